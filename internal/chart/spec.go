// Package chart builds renderer-neutral chart descriptions.
//
// Builders are pure: the same inputs always give an identical Spec. A Spec
// carries its own data, so a frontend can draw it without reading any other
// part of the page.
package chart

import (
	"fmt"
	"strings"

	"cteview/internal/aggregate"
	"cteview/internal/projection"
	"cteview/internal/table"
)

// Chart kinds.
const (
	KindScatter    = "scatter"
	KindBar        = "bar"
	KindGroupedBar = "grouped_bar"
)

// Axis describes one positional encoding.
type Axis struct {
	Field string `json:"field"`
	Title string `json:"title,omitempty"`
	// Type is "quantitative" or "nominal".
	Type string `json:"type"`
	// Zero controls whether the scale must include 0. Nil leaves it to the
	// renderer.
	Zero *bool `json:"zero,omitempty"`
}

// Color maps a field onto a color scheme.
type Color struct {
	Field  string `json:"field"`
	Scheme string `json:"scheme"`
	// Continuous selects a gradient rather than categorical colors.
	Continuous bool `json:"continuous"`
}

// Series is one named set of bars in a grouped chart.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Point is one bar.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Spec is a declarative chart.
type Spec struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	// Mark is "circle" or "bar".
	Mark string `json:"mark"`
	// Orientation is "h" or "v" for bars.
	Orientation string `json:"orientation,omitempty"`

	X       Axis     `json:"x"`
	Y       Axis     `json:"y"`
	Color   *Color   `json:"color,omitempty"`
	Tooltip []string `json:"tooltip,omitempty"`

	Interactive bool `json:"interactive,omitempty"`

	// CategoryOrder fixes the order of the nominal axis. Sort "none" tells
	// the renderer not to reorder it.
	CategoryOrder []string `json:"category_order,omitempty"`
	Sort          string   `json:"sort,omitempty"`

	BarMode string            `json:"barmode,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
	Legend  string            `json:"legend,omitempty"`
	Width   int               `json:"width,omitempty"`
	Height  int               `json:"height,omitempty"`

	Series []Series         `json:"series,omitempty"`
	Data   []map[string]any `json:"data"`
}

// Chart titles and labels used by the analysis view.
const (
	ScatterTitle      = "Scatterplot of CTE Data"
	CountyTotalsTitle = "Unique Career Cluster Totals by County"
	DiversityLabel    = "Diversity Total"
)

// BottomTitle is the title of the chart of the n lowest-ranked counties.
func BottomTitle(n int) string {
	return fmt.Sprintf("Bottom %d Counties of Focus (Unique Career Cluster Totals)", n)
}

func boolPtr(b bool) *bool { return &b }

// Scatter plots every record of t with x against y. Points are circles
// colored by y on viridis, and the tooltip shows tooltipKey, x and y.
func Scatter(t *table.Table, x, y, tooltipKey string) Spec {
	return Spec{
		Kind:        KindScatter,
		Title:       ScatterTitle,
		Mark:        "circle",
		X:           Axis{Field: x, Title: x, Type: "quantitative", Zero: boolPtr(false)},
		Y:           Axis{Field: y, Title: y, Type: "quantitative", Zero: boolPtr(false)},
		Color:       &Color{Field: y, Scheme: "viridis", Continuous: true},
		Tooltip:     []string{tooltipKey, x, y},
		Interactive: true,
		Data:        t.Records(),
	}
}

// RankingBar draws r as horizontal bars, one per group, in r's order.
// categoryField names the group axis and valueField the measure; the value
// axis and color legend are labelled "Diversity Total".
func RankingBar(title string, r aggregate.Ranking, categoryField, valueField string) Spec {
	data := make([]map[string]any, 0, len(r))
	for _, e := range r {
		data = append(data, map[string]any{categoryField: e.Group, valueField: e.Value})
	}
	return Spec{
		Kind:          KindBar,
		Title:         title,
		Mark:          "bar",
		Orientation:   "h",
		X:             Axis{Field: valueField, Title: DiversityLabel, Type: "quantitative"},
		Y:             Axis{Field: categoryField, Title: categoryField, Type: "nominal"},
		Color:         &Color{Field: valueField, Scheme: "YlOrRd", Continuous: true},
		CategoryOrder: r.Groups(),
		Sort:          "none",
		Labels:        map[string]string{categoryField: categoryField, valueField: DiversityLabel},
		Data:          data,
	}
}

// GroupedBarTitle is the title of the projections chart for v.
func GroupedBarTitle(v projection.View) string {
	return fmt.Sprintf("Employment Projections for %s (%s)", v.Category, strings.Join(v.Years, " vs "))
}

// GroupedBar compares v's year values side by side: one series per year,
// one bar group per row label.
func GroupedBar(v projection.View) Spec {
	series := make([]Series, 0, len(v.Years))
	for _, y := range v.Years {
		s := Series{Name: y, Points: []Point{}}
		for _, p := range v.Long {
			if p.Year == y {
				s.Points = append(s.Points, Point{Label: p.Category, Value: p.Value})
			}
		}
		series = append(series, s)
	}

	data := make([]map[string]any, 0, len(v.Long))
	for _, p := range v.Long {
		data = append(data, map[string]any{v.Field: p.Category, "variable": p.Year, "value": p.Value})
	}

	return Spec{
		Kind:    KindGroupedBar,
		Title:   GroupedBarTitle(v),
		Mark:    "bar",
		X:       Axis{Field: v.Field, Title: v.Field, Type: "nominal"},
		Y:       Axis{Field: "value", Title: "Employment Projections", Type: "quantitative"},
		BarMode: "group",
		Labels:  map[string]string{"value": "Projections", "variable": "Year"},
		Legend:  "Year",
		Width:   800,
		Height:  500,
		Series:  series,
		Data:    data,
	}
}
