package models

// AxisConfig describes one chart axis.
type AxisConfig struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Type  string `json:"type"` // "category", "time", "value"
}

// SeriesConfig is one plotted data series.
type SeriesConfig struct {
	Name  string `json:"name"`
	Field string `json:"field"`
	Color string `json:"color,omitempty"`
}

// TooltipConfig controls tooltip rendering.
type TooltipConfig struct {
	Enabled      bool   `json:"enabled"`
	NumberFormat string `json:"number_format,omitempty"` // "locale" formats per the viewer's locale
}

// LegendConfig controls legend placement.
type LegendConfig struct {
	Enabled  bool   `json:"enabled"`
	Position string `json:"position,omitempty"` // e.g. "top-center"
}

// GridConfig controls the plot grid.
type GridConfig struct {
	Enabled   bool   `json:"enabled"`
	LineStyle string `json:"line_style,omitempty"` // "solid", "dashed"
	Color     string `json:"color,omitempty"`
}

// ChartConfiguration is a renderer-agnostic chart description derived from a
// QueryResult. It is transient and rebuilt per request.
type ChartConfiguration struct {
	Type    ChartType      `json:"type"`
	Title   string         `json:"title"`
	Data    []Row          `json:"data"`
	XAxis   AxisConfig     `json:"x_axis"`
	YAxis   []AxisConfig   `json:"y_axis"`
	Series  []SeriesConfig `json:"series"`
	Colors  []string       `json:"colors"`
	Tooltip TooltipConfig  `json:"tooltip"`
	Legend  LegendConfig   `json:"legend"`
	Grid    GridConfig     `json:"grid"`
}
