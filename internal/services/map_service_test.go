package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// fakeCveProvider is a canned-response implementation of CveProvider
type fakeCveProvider struct {
	items []models.CveRecord
	err   error

	lastDays  int
	lastLimit int
}

func (f *fakeCveProvider) Recent(ctx context.Context, days, limit int) ([]models.CveRecord, error) {
	f.lastDays = days
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func strPtr(s string) *string { return &s }

func TestCountByCountry(t *testing.T) {
	tests := []struct {
		name  string
		items []models.CveRecord
		want  []models.CountryCount
	}{
		{
			name: "vendor hints",
			items: []models.CveRecord{
				{ID: "CVE-1", Vendor: strPtr("huawei"), Summary: "flaw in switch firmware"},
				{ID: "CVE-2", Vendor: strPtr("microsoft"), Summary: "flaw in Windows"},
				{ID: "CVE-3", Vendor: strPtr("cisco"), Summary: "router bug"},
			},
			want: []models.CountryCount{
				{Country: "US", Count: 2},
				{Country: "CN", Count: 1},
			},
		},
		{
			name: "summary keywords when vendor is absent",
			items: []models.CveRecord{
				{ID: "CVE-1", Summary: "exploited by actors in North Korea"},
				{ID: "CVE-2", Summary: "targets systems across Russia"},
			},
			want: []models.CountryCount{
				{Country: "KP", Count: 1},
				{Country: "RU", Count: 1},
			},
		},
		{
			name: "TLD fallback",
			items: []models.CveRecord{
				{ID: "CVE-1", Summary: "advisory at example.de has details"},
				{ID: "CVE-2", Summary: "see vendor.uk for the patch"},
			},
			want: []models.CountryCount{
				{Country: "DE", Count: 1},
				{Country: "GB", Count: 1},
			},
		},
		{
			name: "unmatched records are excluded",
			items: []models.CveRecord{
				{ID: "XYZ-1", Summary: "an unremarkable description"},
			},
			want: []models.CountryCount{},
		},
		{
			name: "first hint wins over later ones",
			items: []models.CveRecord{
				// Mentions both a US vendor and a CN vendor; US is listed first
				{ID: "CVE-1", Summary: "microsoft and huawei both affected"},
			},
			want: []models.CountryCount{
				{Country: "US", Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountByCountry(tt.items)
			require.Len(t, got, len(tt.want))
			// Descending by count; equal counts keep insertion order
			for i := range got {
				assert.Equal(t, tt.want[i].Count, got[i].Count)
			}
			gotCountries := make(map[string]int)
			for _, c := range got {
				gotCountries[c.Country] = c.Count
			}
			for _, w := range tt.want {
				assert.Equal(t, w.Count, gotCountries[w.Country])
			}
		})
	}
}

func TestCountByCountry_SortedDescending(t *testing.T) {
	items := []models.CveRecord{
		{ID: "1", Vendor: strPtr("huawei")},
		{ID: "2", Vendor: strPtr("microsoft")},
		{ID: "3", Vendor: strPtr("google")},
		{ID: "4", Vendor: strPtr("cisco")},
	}

	got := CountByCountry(items)

	require.Len(t, got, 2)
	assert.Equal(t, models.CountryCount{Country: "US", Count: 3}, got[0])
	assert.Equal(t, models.CountryCount{Country: "CN", Count: 1}, got[1])
}

func TestMapService_CountryCounts(t *testing.T) {
	logger := zap.NewNop()

	t.Run("uses the fixed window and limit", func(t *testing.T) {
		provider := &fakeCveProvider{items: []models.CveRecord{
			{ID: "CVE-1", Vendor: strPtr("vmware")},
		}}
		svc := NewMapService(provider, logger)

		counts, err := svc.CountryCounts(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 7, provider.lastDays)
		assert.Equal(t, 300, provider.lastLimit)
		require.Len(t, counts, 1)
		assert.Equal(t, "US", counts[0].Country)
	})

	t.Run("feed failure propagates", func(t *testing.T) {
		provider := &fakeCveProvider{err: apperrors.ErrFeed}
		svc := NewMapService(provider, logger)

		_, err := svc.CountryCounts(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrFeed))
	})
}
