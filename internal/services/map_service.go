package services

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/models"
)

// mapCveLimit is how many recent records feed the per-country tally
const mapCveLimit = 300

// CveProvider supplies the normalized CVE batch the map aggregates over
type CveProvider interface {
	// Recent returns normalized CVE records from the feeds (see cveService)
	Recent(ctx context.Context, days, limit int) ([]models.CveRecord, error)
}

// countryHint maps a keyword/phrase pattern to an ISO 3166-1 alpha-2 code.
// Hints are tested in order and the first match wins, so more specific
// patterns must come first.
type countryHint struct {
	re   *regexp.Regexp
	iso2 string
}

var countryHints = []countryHint{
	{regexp.MustCompile(`(?i)usa|united states|microsoft|google|cisco|vmware`), "US"},
	{regexp.MustCompile(`(?i)china|huawei|alibaba|tencent|cn\b`), "CN"},
	{regexp.MustCompile(`(?i)russia|ru\b|kaspersky`), "RU"},
	{regexp.MustCompile(`(?i)iran|ir\b`), "IR"},
	{regexp.MustCompile(`(?i)north korea|dprk|kp\b`), "KP"},
	{regexp.MustCompile(`(?i)india|in\b|tata|infosys`), "IN"},
	{regexp.MustCompile(`(?i)uk|united kingdom|gb\b|british`), "GB"},
	{regexp.MustCompile(`(?i)germany|de\b`), "DE"},
	{regexp.MustCompile(`(?i)france|fr\b`), "FR"},
	{regexp.MustCompile(`(?i)canada|ca\b`), "CA"},
	{regexp.MustCompile(`(?i)israel|il\b|checkpoint|palo alto`), "IL"},
	{regexp.MustCompile(`(?i)turkey|tr\b`), "TR"},
}

var tldRe = regexp.MustCompile(`(?i)\.(cn|ru|de|fr|in|us|uk|tr|il|ca)\b`)

var tldToISO2 = map[string]string{
	"us": "US", "uk": "GB", "cn": "CN", "ru": "RU", "de": "DE",
	"fr": "FR", "in": "IN", "tr": "TR", "il": "IL", "ca": "CA",
}

// mapService derives best-effort per-country counts from recent CVE records.
// The classifier is heuristic, not authoritative: keyword hints first, then a
// recognized top-level domain; records matching neither are excluded.
type mapService struct {
	cves   CveProvider
	logger *zap.Logger
}

// NewMapService creates a new country-inference map service
func NewMapService(cves CveProvider, logger *zap.Logger) *mapService {
	return &mapService{
		cves:   cves,
		logger: logger,
	}
}

// CountryCounts tallies recent CVE records by inferred country, sorted by
// count descending
func (s *mapService) CountryCounts(ctx context.Context) ([]models.CountryCount, error) {
	items, err := s.cves.Recent(ctx, cveDefaultDays, mapCveLimit)
	if err != nil {
		return nil, err
	}
	return CountByCountry(items), nil
}

// CountByCountry classifies each record and tallies the matches
func CountByCountry(items []models.CveRecord) []models.CountryCount {
	counts := make(map[string]int)
	for _, it := range items {
		var parts []string
		if it.Vendor != nil && *it.Vendor != "" {
			parts = append(parts, *it.Vendor)
		}
		if it.Summary != "" {
			parts = append(parts, it.Summary)
		}
		if it.ID != "" {
			parts = append(parts, it.ID)
		}
		blob := strings.Join(parts, " | ")

		if iso2 := inferISO2(blob); iso2 != "" {
			counts[iso2]++
		}
	}

	result := make([]models.CountryCount, 0, len(counts))
	for country, count := range counts {
		result = append(result, models.CountryCount{Country: country, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// inferISO2 classifies a text blob: keyword hints in order, then the TLD
// heuristic; empty string when nothing matches
func inferISO2(txt string) string {
	if txt == "" {
		return ""
	}
	for _, h := range countryHints {
		if h.re.MatchString(txt) {
			return h.iso2
		}
	}
	if m := tldRe.FindStringSubmatch(txt); m != nil {
		return tldToISO2[strings.ToLower(m[1])]
	}
	return ""
}
