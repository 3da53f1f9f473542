package models

// Passage is a retrievable unit of indexed text with metadata.
// Passages are produced by the external vector index and are read-only here.
// The index builder emits both "url" and "final_url" depending on whether the
// scraper followed redirects, so both are kept and resolved via ResolvedURL.
type Passage struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Site     string `json:"site,omitempty"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
	FinalURL string `json:"final_url,omitempty"`
	// Timestamp of the source document, when the scraper captured one
	Timestamp string `json:"ts,omitempty"`
}

// ResolvedURL prefers the post-redirect URL over the originally scraped one
func (p *Passage) ResolvedURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// ResolvedSource prefers the site label over the source bucket name
func (p *Passage) ResolvedSource() string {
	if p.Site != "" {
		return p.Site
	}
	return p.Source
}

// Citation points a reader at one of the passages backing an answer.
// Index is 1-based and matches the bracketed numbering inside the answer text.
type Citation struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// AskResponse is the answer to a natural-language question with its citations
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// SearchResult is a single lightweight hit returned by the search endpoint
type SearchResult struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the body of GET /api/search in snippets mode
type SearchResponse struct {
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}
