package models

// QueryMetadata describes how a query was served.
type QueryMetadata struct {
	TotalResults   int      `json:"total_results"`
	SourcesSkipped []string `json:"sources_skipped,omitempty"`
	QueryTimeMs    int64    `json:"query_time_ms"`
	CacheHit       bool     `json:"cache_hit"`
}

// QueryResponse is the API response for a flight audit query. Stats is
// populated only when the request asked for it.
type QueryResponse struct {
	Query    AuditQuery    `json:"query"`
	Metadata QueryMetadata `json:"metadata"`
	Flights  []Flight      `json:"flights"`
	Stats    interface{}   `json:"stats,omitempty"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
