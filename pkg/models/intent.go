// Package models defines the value objects exchanged between the validation
// pipeline, the query engine, and its consumers. All types here are
// request-scoped: constructed per intent, never shared or mutated after return.
package models

// FilterOperator is the closed set of comparison operators an intent may use.
// Anything outside this set fails closed at execution time.
type FilterOperator string

const (
	OperatorEq       FilterOperator = "eq"
	OperatorNe       FilterOperator = "ne"
	OperatorGt       FilterOperator = "gt"
	OperatorLt       FilterOperator = "lt"
	OperatorGte      FilterOperator = "gte"
	OperatorLte      FilterOperator = "lte"
	OperatorContains FilterOperator = "contains"
	OperatorIn       FilterOperator = "in"
)

// Filter is a single predicate in a query intent. Value is a scalar, or a
// slice for the "in" operator.
type Filter struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// AggregateFunc is the closed set of aggregate functions.
type AggregateFunc string

const (
	AggregateCount AggregateFunc = "count"
	AggregateSum   AggregateFunc = "sum"
	AggregateAvg   AggregateFunc = "avg"
	AggregateMin   AggregateFunc = "min"
	AggregateMax   AggregateFunc = "max"
)

// Aggregation requests one aggregate expression over a field.
type Aggregation struct {
	Field    string        `json:"field"`
	Function AggregateFunc `json:"function"`
}

// SortDirection for order-by clauses.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// OrderBy sorts results by a field.
type OrderBy struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// QueryIntent is a structured, read-only data query produced by the model's
// function call. It is the only form in which model output may influence the
// query layer; it must pass the validation pipeline before execution.
type QueryIntent struct {
	Resource     string        `json:"resource"`
	Filters      []Filter      `json:"filters,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	GroupBy      []string      `json:"group_by,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	OrderBy      []OrderBy     `json:"order_by,omitempty"`
	Page         int           `json:"page,omitempty"`
	PageSize     int           `json:"page_size,omitempty"`
}

// ChartType is a renderer-agnostic chart kind.
type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartArea    ChartType = "area"
	ChartScatter ChartType = "scatter"
	ChartPie     ChartType = "pie"
)

// ChartIntent wraps a QueryIntent with chart shaping hints. Unset fields are
// inferred from the query result.
type ChartIntent struct {
	DataSource QueryIntent `json:"data_source"`
	ChartType  ChartType   `json:"chart_type,omitempty"`
	Title      string      `json:"title,omitempty"`
	XField     string      `json:"x_field,omitempty"`
	YFields    []string    `json:"y_fields,omitempty"`
}

// AnalysisMode selects how the summarizer interprets a result set.
type AnalysisMode string

const (
	AnalysisTrend      AnalysisMode = "trend"
	AnalysisComparison AnalysisMode = "comparison"
	AnalysisAnomaly    AnalysisMode = "anomaly"
	AnalysisSummary    AnalysisMode = "summary"
)

// Tone changes the summarizer's phrasing templates, never its numbers.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneInsightful Tone = "insightful"
	ToneActionable Tone = "actionable"
)

// SummaryIntent wraps a QueryIntent with an analysis request.
type SummaryIntent struct {
	DataSource QueryIntent  `json:"data_source"`
	Mode       AnalysisMode `json:"mode,omitempty"`
	FocusAreas []string     `json:"focus_areas,omitempty"`
	Tone       Tone         `json:"tone,omitempty"`
}
