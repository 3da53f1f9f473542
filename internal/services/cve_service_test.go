package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
)

func nvdBody(vulns ...string) string {
	return fmt.Sprintf(`{"vulnerabilities":[%s]}`, strings.Join(vulns, ","))
}

const nvdFullVuln = `{"cve":{
	"id":"CVE-2025-0001",
	"published":"2025-08-20T10:00:00.000",
	"descriptions":[
		{"lang":"es","value":"Descripcion en espanol."},
		{"lang":"en","value":"A heap overflow in ExampleServer allows remote code execution. Additional detail follows."}
	],
	"metrics":{
		"cvssMetricV31":[{"cvssData":{"baseScore":9.8}}],
		"cvssMetricV2":[{"baseScore":7.5}]
	},
	"configurations":[{"nodes":[{"children":[{"cpeMatch":[{"criteria":"cpe:2.3:a:exampleco:exampleserver:1.0:*:*:*:*:*:*:*"}]}]}]}]
}}`

const nvdV2OnlyVuln = `{"cve":{
	"id":"CVE-2025-0002",
	"descriptions":[{"lang":"en","value":"Legacy flaw."}],
	"metrics":{"cvssMetricV2":[{"baseScore":6.4}]}
}}`

const nvdTextSeverityVuln = `{"cve":{
	"id":"CVE-2025-0003",
	"descriptions":[{"lang":"en","value":"A critical vulnerability in a widely deployed router firmware"}]
}}`

func TestCveService_Recent_NVD(t *testing.T) {
	logger := zap.NewNop()

	var gotQuery map[string]string
	nvd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"pubStartDate":   r.URL.Query().Get("pubStartDate"),
			"pubEndDate":     r.URL.Query().Get("pubEndDate"),
			"resultsPerPage": r.URL.Query().Get("resultsPerPage"),
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, nvdBody(nvdFullVuln, nvdV2OnlyVuln, nvdTextSeverityVuln))
	}))
	defer nvd.Close()

	svc := NewCveService(nvd.Client(), nvd.URL, "http://unused.invalid", logger)

	items, err := svc.Recent(context.Background(), 7, 50)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Full record: English description, first sentence title, v3.1 score, CPE vendor
	full := items[0]
	assert.Equal(t, "CVE-2025-0001", full.ID)
	assert.Equal(t, "A heap overflow in ExampleServer allows remote code execution.", full.Title)
	require.NotNil(t, full.Vendor)
	assert.Equal(t, "exampleco", *full.Vendor)
	require.NotNil(t, full.CvssScore)
	assert.Equal(t, 9.8, *full.CvssScore)
	require.NotNil(t, full.Published)
	assert.Equal(t, "2025-08-20T10:00:00.000", *full.Published)

	// v2-only record falls back to the top-level base score
	v2 := items[1]
	require.NotNil(t, v2.CvssScore)
	assert.Equal(t, 6.4, *v2.CvssScore)
	assert.Nil(t, v2.Vendor)

	// No metrics at all: severity keyword in the text maps to a bucket score
	text := items[2]
	require.NotNil(t, text.CvssScore)
	assert.Equal(t, 9.8, *text.CvssScore)

	// Outbound window matches the requested 7 days
	assert.Equal(t, "50", gotQuery["resultsPerPage"])
	start, err := time.Parse("2006-01-02T15:04:05Z", gotQuery["pubStartDate"])
	require.NoError(t, err)
	end, err := time.Parse("2006-01-02T15:04:05Z", gotQuery["pubEndDate"])
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
}

func TestCveService_Recent_ClampsDays(t *testing.T) {
	logger := zap.NewNop()

	var start, end time.Time
	nvd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		start, err = time.Parse("2006-01-02T15:04:05Z", r.URL.Query().Get("pubStartDate"))
		require.NoError(t, err)
		end, err = time.Parse("2006-01-02T15:04:05Z", r.URL.Query().Get("pubEndDate"))
		require.NoError(t, err)
		fmt.Fprint(w, nvdBody())
	}))
	defer nvd.Close()

	svc := NewCveService(nvd.Client(), nvd.URL, "http://unused.invalid", logger)

	_, err := svc.Recent(context.Background(), 99, 50)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, end.Sub(start))

	// Unset days falls back to the default window
	_, err = svc.Recent(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
}

func TestCveService_Recent_LimitClamp(t *testing.T) {
	logger := zap.NewNop()

	vulns := make([]string, 10)
	for i := range vulns {
		vulns[i] = fmt.Sprintf(`{"cve":{"id":"CVE-2025-1%03d","descriptions":[{"lang":"en","value":"Flaw."}]}}`, i)
	}
	nvd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nvdBody(vulns...))
	}))
	defer nvd.Close()

	svc := NewCveService(nvd.Client(), nvd.URL, "http://unused.invalid", logger)

	items, err := svc.Recent(context.Background(), 7, 4)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestCveService_Recent_CirclFallback(t *testing.T) {
	logger := zap.NewNop()

	nvd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer nvd.Close()

	circl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"CVE-2025-2001","summary":"An integer overflow. Affects routers.","Published":"2025-08-21T00:00:00","cvss":8.8},
			{"id":"CVE-2025-2002","description":"High severity flaw in a firewall appliance"}
		]`)
	}))
	defer circl.Close()

	svc := NewCveService(nvd.Client(), nvd.URL, circl.URL, logger)

	items, err := svc.Recent(context.Background(), 7, 50)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "CVE-2025-2001", first.ID)
	assert.Equal(t, "An integer overflow.", first.Title)
	require.NotNil(t, first.CvssScore)
	assert.Equal(t, 8.8, *first.CvssScore)
	require.NotNil(t, first.Published)
	assert.Equal(t, "2025-08-21T00:00:00", *first.Published)
	assert.Nil(t, first.Vendor)

	// Description stands in for a missing summary; keyword severity applies
	second := items[1]
	assert.Equal(t, "High severity flaw in a firewall appliance", second.Summary)
	require.NotNil(t, second.CvssScore)
	assert.Equal(t, 8.2, *second.CvssScore)
}

func TestCveService_Recent_BothFeedsFail(t *testing.T) {
	logger := zap.NewNop()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	svc := NewCveService(down.Client(), down.URL, down.URL, logger)

	_, err := svc.Recent(context.Background(), 7, 50)
	assert.True(t, errors.Is(err, apperrors.ErrFeed))
}

func TestTitleFromDescription(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		description string
		want        string
	}{
		{
			name:        "first sentence",
			id:          "CVE-1",
			description: "Short flaw. More detail here.",
			want:        "Short flaw.",
		},
		{
			name:        "no sentence boundary",
			id:          "CVE-1",
			description: "No terminator here",
			want:        "No terminator here",
		},
		{
			name:        "long first sentence truncates to 100",
			id:          "CVE-1",
			description: strings.Repeat("a", 150),
			want:        strings.Repeat("a", 97) + "...",
		},
		{
			name:        "truncation keeps multibyte characters intact",
			id:          "CVE-1",
			description: strings.Repeat("ü", 150),
			want:        strings.Repeat("ü", 97) + "...",
		},
		{
			name:        "empty falls back to id",
			id:          "CVE-2025-9999",
			description: "   ",
			want:        "CVE-2025-9999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titleFromDescription(tt.id, tt.description))
		})
	}
}

func TestExtractCvssFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *float64
	}{
		{"explicit numeric", "Rated CVSS: 7.5 by the vendor", f64(7.5)},
		{"base score phrasing", "CVSS base score 9.1", f64(9.1)},
		{"out of range ignored, keyword wins", "CVSS: 99 critical issue", f64(9.8)},
		{"critical keyword", "a CRITICAL flaw", f64(9.8)},
		{"high keyword", "high severity bug", f64(8.2)},
		{"moderate keyword", "moderate impact", f64(5.6)},
		{"low keyword", "low risk", f64(3.1)},
		{"no signal", "an unremarkable description", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCvssFromText(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func f64(v float64) *float64 { return &v }
