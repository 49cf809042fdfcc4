// Package orchestrator runs the model-facing tool loop: it declares the
// engine tools as function schemas, sends a conversation to the configured
// LLM provider, and routes every tool call through the validation pipeline
// and services via a dispatcher.
package orchestrator

// ToolDefinition declares a tool the model may call, with JSON Schema
// parameters. Providers convert it to their native tool format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines one parameter in JSON Schema form.
type ParameterProperty struct {
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Enum        []string       `json:"enum,omitempty"`
	Items       map[string]any `json:"items,omitempty"`
}

// NewToolDefinition creates a tool definition with standard JSON Schema
// parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		prop := map[string]any{
			"type": v.Type,
		}
		if v.Description != "" {
			prop["description"] = v.Description
		}
		if len(v.Enum) > 0 {
			prop["enum"] = v.Enum
		}
		if len(v.Items) > 0 {
			prop["items"] = v.Items
		}
		props[k] = prop
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// filterItemSchema describes one filter object.
func filterItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column":   map[string]any{"type": "string"},
			"operator": map[string]any{"type": "string", "enum": []string{"eq", "ne", "gt", "lt", "gte", "lte", "contains", "in"}},
			"value":    map[string]any{},
		},
		"required": []string{"column", "operator", "value"},
	}
}

// queryProperties is the shared parameter set for a structured query.
func queryProperties() map[string]ParameterProperty {
	return map[string]ParameterProperty{
		"resource": {
			Type:        "string",
			Description: "Resource to query, e.g. 'customers', 'revenue', 'activities'",
		},
		"filters": {
			Type:        "array",
			Description: "Filters to apply, each {column, operator, value}",
			Items:       filterItemSchema(),
		},
		"aggregations": {
			Type:        "array",
			Description: "Aggregates to compute, each {field, function} with function count/sum/avg/min/max",
			Items: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field":    map[string]any{"type": "string"},
					"function": map[string]any{"type": "string", "enum": []string{"count", "sum", "avg", "min", "max"}},
				},
				"required": []string{"field", "function"},
			},
		},
		"group_by": {
			Type:        "array",
			Description: "Columns to group aggregates by",
			Items:       map[string]any{"type": "string"},
		},
		"order_by": {
			Type:        "array",
			Description: "Sort order, each {field, direction} with direction asc/desc",
			Items: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field":     map[string]any{"type": "string"},
					"direction": map[string]any{"type": "string", "enum": []string{"asc", "desc"}},
				},
				"required": []string{"field", "direction"},
			},
		},
		"limit":     {Type: "integer", Description: "Max rows for non-paginated queries"},
		"page":      {Type: "integer", Description: "Page number starting at 1; enables pagination"},
		"page_size": {Type: "integer", Description: "Rows per page"},
	}
}

// EngineToolDefinitions returns the three engine tools in provider-neutral
// form.
func EngineToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			"query_database",
			"Execute a read-only structured query against a whitelisted resource with filters, aggregations, grouping, ordering, and pagination",
			queryProperties(),
			[]string{"resource"},
		),
		chartToolDefinition(),
		summaryToolDefinition(),
	}
}

func chartToolDefinition() ToolDefinition {
	def := NewToolDefinition(
		"generate_chart",
		"Run a structured query and produce a chart configuration; axes and chart type are inferred from the data when not specified",
		map[string]ParameterProperty{
			"chart_type": {Type: "string", Description: "Explicit chart type", Enum: []string{"bar", "line", "area", "scatter", "pie"}},
			"x_field":    {Type: "string", Description: "Explicit x-axis field"},
			"y_fields":   {Type: "array", Description: "Explicit y-axis fields", Items: map[string]any{"type": "string"}},
			"title":      {Type: "string", Description: "Chart title"},
		},
		[]string{"data_source"},
	)
	addDataSourceParameter(def)
	return def
}

func summaryToolDefinition() ToolDefinition {
	def := NewToolDefinition(
		"summarize_data",
		"Run a structured query and produce a statistical narrative: summary, trend, comparison, or anomaly analysis",
		map[string]ParameterProperty{
			"mode":        {Type: "string", Description: "Analysis mode", Enum: []string{"summary", "trend", "comparison", "anomaly"}},
			"focus_areas": {Type: "array", Description: "Fields to prioritize for analysis", Items: map[string]any{"type": "string"}},
			"tone":        {Type: "string", Description: "Narrative tone", Enum: []string{"neutral", "insightful", "actionable"}},
		},
		[]string{"data_source"},
	)
	addDataSourceParameter(def)
	return def
}

// addDataSourceParameter injects the nested query schema as the data_source
// parameter.
func addDataSourceParameter(def ToolDefinition) {
	queryDef := NewToolDefinition("", "", queryProperties(), []string{"resource"})
	props := def.Parameters["properties"].(map[string]any)
	props["data_source"] = map[string]any{
		"type":        "object",
		"description": "The structured query to execute",
		"properties":  queryDef.Parameters["properties"],
		"required":    queryDef.Parameters["required"],
	}
}
