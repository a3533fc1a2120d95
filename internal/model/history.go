package model

// SearchResult is one hit returned by the enhanced search endpoint.
type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Content     string `json:"content,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// SearchHistoryEntry records a completed background search.
type SearchHistoryEntry struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Type      string         `json:"type"`
	Results   []SearchResult `json:"results"`
	CreatedAt string         `json:"createdAt"`
}

// NewSearchHistoryEntry records a search and its results.
func NewSearchHistoryEntry(id, query, searchType string, results []SearchResult) SearchHistoryEntry {
	if results == nil {
		results = []SearchResult{}
	}
	return SearchHistoryEntry{
		ID:        id,
		Query:     query,
		Type:      searchType,
		Results:   results,
		CreatedAt: timestamp(),
	}
}

func (e SearchHistoryEntry) EntryID() string { return e.ID }

func (e SearchHistoryEntry) SearchFields() []string {
	return []string{e.Query, e.Type}
}
