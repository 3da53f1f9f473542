package models

// CveRecord is the normalized shape shared by every feed the aggregator consumes.
// Records are derived fresh on every call and never persisted.
type CveRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Vendor    *string  `json:"vendor"`
	Published *string  `json:"published"`
	CvssScore *float64 `json:"cvssScore"`
}

// CountryCount is a per-country tally derived from a batch of CVE records
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// SourceCount is a per-source tally over the passage corpus
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// VolumeBucket is a per-day document count over the passage corpus
type VolumeBucket struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}
