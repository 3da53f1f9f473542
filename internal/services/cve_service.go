package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

const (
	cveDefaultDays  = 7
	cveMaxDays      = 30
	cveDefaultLimit = 50
	cveMaxLimit     = 200

	feedUserAgent = "threat-intel-dashboard"
)

// cveService aggregates recent vulnerability records from the NVD 2.0 feed,
// falling back to the CIRCL feed when NVD is unavailable. Records are
// normalized fresh on every call and never persisted.
type cveService struct {
	client       *http.Client
	nvdBaseURL   string
	circlBaseURL string
	logger       *zap.Logger
}

// NewCveService creates a new CVE feed aggregator
func NewCveService(client *http.Client, nvdBaseURL, circlBaseURL string, logger *zap.Logger) *cveService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &cveService{
		client:       client,
		nvdBaseURL:   nvdBaseURL,
		circlBaseURL: circlBaseURL,
		logger:       logger,
	}
}

// Recent returns normalized CVE records published in the last days days,
// newest-first as provided by the feed. days is clamped to [1,30], limit to
// [1,200]. NVD failure is recovered via the CIRCL fallback; if both feeds fail
// the call fails with apperrors.ErrFeed.
func (s *cveService) Recent(ctx context.Context, days, limit int) ([]models.CveRecord, error) {
	days = clamp(days, 1, cveMaxDays, cveDefaultDays)
	limit = clamp(limit, 1, cveMaxLimit, cveDefaultLimit)

	items, err := s.fetchNVD(ctx, days, limit)
	if err != nil {
		s.logger.Warn("NVD feed failed, falling back to CIRCL", zap.Error(err))
		items, err = s.fetchCircl(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrFeed, err)
		}
	}

	// Final pass: recover a severity score from the text when the feed had none
	for i := range items {
		if items[i].CvssScore == nil {
			items[i].CvssScore = extractCvssFromText(items[i].Title + " " + items[i].Summary)
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// --- NVD 2.0 ---

type nvdResponse struct {
	Vulnerabilities []struct {
		Cve nvdCve `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCve struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics        nvdMetrics         `json:"metrics"`
	Configurations []nvdConfiguration `json:"configurations"`
}

type nvdMetrics struct {
	CvssMetricV31 []nvdCvssMetric `json:"cvssMetricV31"`
	CvssMetricV30 []nvdCvssMetric `json:"cvssMetricV30"`
	CvssMetricV2  []nvdCvssMetric `json:"cvssMetricV2"`
}

type nvdCvssMetric struct {
	CvssData struct {
		BaseScore *float64 `json:"baseScore"`
	} `json:"cvssData"`
	// v2 metric blocks sometimes carry the score at the top level
	BaseScore *float64 `json:"baseScore"`
}

type nvdConfiguration struct {
	Nodes []nvdNode `json:"nodes"`
}

type nvdNode struct {
	CpeMatch []nvdCpeMatch `json:"cpeMatch"`
	// older exports use snake_case
	CpeMatchLegacy []nvdCpeMatch `json:"cpe_match"`
	Children       []nvdNode     `json:"children"`
}

type nvdCpeMatch struct {
	Criteria string `json:"criteria"`
	Cpe23Uri string `json:"cpe23Uri"`
}

func (s *cveService) fetchNVD(ctx context.Context, days, limit int) ([]models.CveRecord, error) {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	q := url.Values{}
	q.Set("pubStartDate", start.Format("2006-01-02T15:04:05Z"))
	q.Set("pubEndDate", end.Format("2006-01-02T15:04:05Z"))
	q.Set("startIndex", "0")
	q.Set("resultsPerPage", strconv.Itoa(limit))

	var data nvdResponse
	if err := s.getJSON(ctx, s.nvdBaseURL+"?"+q.Encode(), &data); err != nil {
		return nil, err
	}

	items := make([]models.CveRecord, 0, len(data.Vulnerabilities))
	for _, v := range data.Vulnerabilities {
		c := v.Cve
		desc := englishDescription(c.Descriptions)

		rec := models.CveRecord{
			ID:        c.ID,
			Title:     titleFromDescription(c.ID, desc),
			Summary:   desc,
			Vendor:    vendorFromConfigurations(c.Configurations),
			CvssScore: severityScore(c.Metrics),
		}
		if c.Published != "" {
			published := c.Published
			rec.Published = &published
		}
		items = append(items, rec)
	}
	return items, nil
}

// --- CIRCL fallback ---

// circlItem is one record of the CIRCL "last" feed. It has no date filtering
// and no vendor field; Published is capitalized in some revisions of the feed.
type circlItem struct {
	ID              string   `json:"id"`
	Summary         string   `json:"summary"`
	Description     string   `json:"description"`
	Published       string   `json:"published"`
	PublishedLegacy string   `json:"Published"`
	Cvss            *float64 `json:"cvss"`
}

func (s *cveService) fetchCircl(ctx context.Context, limit int) ([]models.CveRecord, error) {
	var list []circlItem
	if err := s.getJSON(ctx, s.circlBaseURL, &list); err != nil {
		return nil, err
	}

	if len(list) > limit {
		list = list[:limit]
	}

	items := make([]models.CveRecord, 0, len(list))
	for _, it := range list {
		summary := it.Summary
		if summary == "" {
			summary = it.Description
		}

		rec := models.CveRecord{
			ID:        it.ID,
			Title:     titleFromDescription(it.ID, summary),
			Summary:   summary,
			Vendor:    nil, // CIRCL 'last' doesn't consistently expose vendor
			CvssScore: it.Cvss,
		}
		published := it.PublishedLegacy
		if published == "" {
			published = it.Published
		}
		if published != "" {
			rec.Published = &published
		}
		items = append(items, rec)
	}
	return items, nil
}

// getJSON performs a GET with the dashboard user agent and decodes the body
func (s *cveService) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// --- normalization helpers ---

// englishDescription picks the English description, falling back to the first one
func englishDescription(descriptions []struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}) string {
	for _, d := range descriptions {
		if strings.EqualFold(d.Lang, "en") {
			return d.Value
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}

// severityScore picks the CVSS base score preferring v3.1, then v3.0, then v2
func severityScore(m nvdMetrics) *float64 {
	for _, metrics := range [][]nvdCvssMetric{m.CvssMetricV31, m.CvssMetricV30, m.CvssMetricV2} {
		if len(metrics) == 0 {
			continue
		}
		if score := metrics[0].CvssData.BaseScore; score != nil {
			return score
		}
		if metrics[0].BaseScore != nil {
			return metrics[0].BaseScore
		}
	}
	return nil
}

// vendorFromConfigurations walks the configuration tree depth-first and
// extracts the vendor token of the first structured CPE identifier
// (cpe:2.3:<part>:<vendor>:<product>:...)
func vendorFromConfigurations(configurations []nvdConfiguration) *string {
	for _, conf := range configurations {
		if v := vendorFromNodes(conf.Nodes); v != nil {
			return v
		}
	}
	return nil
}

func vendorFromNodes(nodes []nvdNode) *string {
	for _, node := range nodes {
		matches := node.CpeMatch
		if len(matches) == 0 {
			matches = node.CpeMatchLegacy
		}
		for _, m := range matches {
			crit := m.Criteria
			if crit == "" {
				crit = m.Cpe23Uri
			}
			if strings.HasPrefix(crit, "cpe:2.3:") {
				parts := strings.Split(crit, ":")
				if len(parts) > 4 && parts[3] != "" {
					vendor := parts[3]
					return &vendor
				}
			}
		}
		if v := vendorFromNodes(node.Children); v != nil {
			return v
		}
	}
	return nil
}

var sentenceEndRe = regexp.MustCompile(`[.!?]\s`)

// titleFromDescription derives a concise title from the first sentence of the
// description, truncated to 100 chars; falls back to the CVE id when the
// description is empty
func titleFromDescription(id, description string) string {
	base := strings.TrimSpace(description)
	if loc := sentenceEndRe.FindStringIndex(base); loc != nil {
		base = strings.TrimSpace(base[:loc[0]+1])
	}
	if r := []rune(base); len(r) > 100 {
		base = string(r[:97]) + "..."
	}
	if base == "" {
		return id
	}
	return base
}

var cvssNumericRe = regexp.MustCompile(`(?i)CVSS(?:\s*base\s*score)?[:\s]+(\d{1,2}(?:\.\d)?)`)

var severityKeywords = []struct {
	re    *regexp.Regexp
	score float64
}{
	{regexp.MustCompile(`(?i)\bcritical\b`), 9.8},
	{regexp.MustCompile(`(?i)\bhigh\b`), 8.2},
	{regexp.MustCompile(`(?i)\bmedium\b|\bmoderate\b`), 5.6},
	{regexp.MustCompile(`(?i)\blow\b`), 3.1},
}

// extractCvssFromText parses a CVSS score out of free text: an explicit
// numeric mention first, then severity keywords mapped to representative
// bucket scores
func extractCvssFromText(txt string) *float64 {
	if m := cvssNumericRe.FindStringSubmatch(txt); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 10 {
			return &v
		}
	}

	for _, kw := range severityKeywords {
		if kw.re.MatchString(txt) {
			score := kw.score
			return &score
		}
	}
	return nil
}

// clamp bounds v to [min,max], substituting def when v is unset (<= 0)
func clamp(v, min, max, def int) int {
	if v <= 0 {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
