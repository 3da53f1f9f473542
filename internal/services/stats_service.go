package services

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/corpus"
	"github.com/threatdash/backend/internal/models"
)

// TopSourcesResponse is the body of GET /api/stats/top-sources
type TopSourcesResponse struct {
	Total int                  `json:"total"`
	Data  []models.SourceCount `json:"data"`
}

// VolumeResponse is the body of GET /api/stats/volume. Note is set when the
// corpus carries no timestamps and the timeline is skipped.
type VolumeResponse struct {
	Bucket string                `json:"bucket,omitempty"`
	Note   string                `json:"note,omitempty"`
	Data   []models.VolumeBucket `json:"data"`
}

// statsService aggregates simple counts over the passage corpus metadata
type statsService struct {
	meta   *corpus.MetaCache
	logger *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(meta *corpus.MetaCache, logger *zap.Logger) *statsService {
	return &statsService{
		meta:   meta,
		logger: logger,
	}
}

// TopSources returns per-source document counts sorted descending
func (s *statsService) TopSources() *TopSourcesResponse {
	items := s.meta.Items()

	counts := make(map[string]int)
	for _, it := range items {
		src := it.Source
		if src == "" {
			src = "unknown"
		}
		counts[src]++
	}

	data := make([]models.SourceCount, 0, len(counts))
	for source, count := range counts {
		data = append(data, models.SourceCount{Source: source, Count: count})
	}
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Count > data[j].Count
	})

	return &TopSourcesResponse{
		Total: len(items),
		Data:  data,
	}
}

// Volume returns per-UTC-day document counts for items carrying a timestamp
func (s *statsService) Volume() *VolumeResponse {
	items := s.meta.Items()

	counts := make(map[string]int)
	usedTs := false
	for _, it := range items {
		if it.Timestamp == "" {
			continue
		}
		ts, err := parseTimestamp(it.Timestamp)
		if err != nil {
			continue
		}
		usedTs = true
		counts[ts.UTC().Format("2006-01-02")]++
	}

	if !usedTs {
		return &VolumeResponse{
			Note: "No timestamps found; skipping volume chart",
			Data: []models.VolumeBucket{},
		}
	}

	data := make([]models.VolumeBucket, 0, len(counts))
	for bucket, count := range counts {
		data = append(data, models.VolumeBucket{Bucket: bucket, Count: count})
	}
	sort.Slice(data, func(i, j int) bool {
		return data[i].Bucket < data[j].Bucket
	})

	return &VolumeResponse{
		Bucket: "day",
		Data:   data,
	}
}

// parseTimestamp accepts the timestamp shapes the scraper emits
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Parse(time.RFC1123, s)
}
