package models

// Row is one result row keyed by column name.
type Row map[string]any

// QueryMetadata describes how a query executed.
type QueryMetadata struct {
	RowCount        int   `json:"row_count"`
	ExecutionTimeMs int64 `json:"execution_time_ms"`
	Cached          bool  `json:"cached"`
}

// AggregationResult is one computed aggregate value.
type AggregationResult struct {
	Field    string        `json:"field"`
	Function AggregateFunc `json:"function"`
	Value    any           `json:"value"`
}

// Pagination describes the page window of a paginated result.
type Pagination struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	TotalRows       int64 `json:"total_rows"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

// QueryResult is the executor's output. It is constructed fresh per query
// and never mutated after return. A store failure surfaces as an empty
// result (zero rows), indistinguishable from a genuinely empty result.
type QueryResult struct {
	Data         []Row               `json:"data"`
	Metadata     QueryMetadata       `json:"metadata"`
	Aggregations []AggregationResult `json:"aggregations,omitempty"`
	GroupedBy    map[string][]Row    `json:"grouped_by,omitempty"`
	Pagination   *Pagination         `json:"pagination,omitempty"`
}

// EmptyQueryResult returns a zero-row result. Used when the store fails and
// the failure must not propagate to consumers.
func EmptyQueryResult() *QueryResult {
	return &QueryResult{
		Data:     []Row{},
		Metadata: QueryMetadata{RowCount: 0},
	}
}
