package http

import (
	"encoding/json"

	"veraz/internal/analytics"
	"veraz/internal/core"
)

const (
	sourceNote    = "Fuente: API BCRA – Central de Deudores"
	timelineColor = "#00bfff"
	chartFont     = "Segoe UI, Roboto, sans-serif"
)

// Figure is a Plotly figure, rendered client side by Plotly.newPlot.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type          string    `json:"type"`
	Name          string    `json:"name,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	Orientation   string    `json:"orientation,omitempty"`
	Labels        []string  `json:"labels,omitempty"`
	Values        []float64 `json:"values,omitempty"`
	X             any       `json:"x,omitempty"`
	Y             any       `json:"y,omitempty"`
	Text          []string  `json:"text,omitempty"`
	TextInfo      string    `json:"textinfo,omitempty"`
	TextPosition  any       `json:"textposition,omitempty"`
	HoverText     []string  `json:"hovertext,omitempty"`
	HoverInfo     string    `json:"hoverinfo,omitempty"`
	HoverTemplate string    `json:"hovertemplate,omitempty"`
	Pull          []float64 `json:"pull,omitempty"`
	Hole          float64   `json:"hole,omitempty"`
	Rotation      float64   `json:"rotation,omitempty"`
	Sort          *bool     `json:"sort,omitempty"`
	Direction     string    `json:"direction,omitempty"`
	Marker        *Marker   `json:"marker,omitempty"`
	Line          *Line     `json:"line,omitempty"`
}

type Marker struct {
	Colors []string `json:"colors,omitempty"` // pie
	Color  any      `json:"color,omitempty"`  // bar and scatter
	Size   int      `json:"size,omitempty"`
}

type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width,omitempty"`
	Dash  string `json:"dash,omitempty"`
}

type Layout struct {
	Title       *Title       `json:"title,omitempty"`
	Height      int          `json:"height,omitempty"`
	ShowLegend  bool         `json:"showlegend"`
	Margin      Margin       `json:"margin"`
	Font        Font         `json:"font"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	Shapes      []Shape      `json:"shapes,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	PlotBG      string       `json:"plot_bgcolor,omitempty"`
	PaperBG     string       `json:"paper_bgcolor,omitempty"`
}

type Title struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
}

type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

type Font struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
}

type Axis struct {
	Title      string   `json:"title,omitempty"`
	TickMode   string   `json:"tickmode,omitempty"`
	TickVals   []string `json:"tickvals,omitempty"`
	TickText   []string `json:"ticktext,omitempty"`
	TickAngle  int      `json:"tickangle,omitempty"`
	TickFormat string   `json:"tickformat,omitempty"`
	ShowGrid   *bool    `json:"showgrid,omitempty"`
	Automargin bool     `json:"automargin,omitempty"`
}

type Shape struct {
	Type string  `json:"type"`
	XRef string  `json:"xref"`
	YRef string  `json:"yref"`
	X0   string  `json:"x0"`
	X1   string  `json:"x1"`
	Y0   float64 `json:"y0"`
	Y1   float64 `json:"y1"`
	Line Line    `json:"line"`
}

type Annotation struct {
	Text      string  `json:"text"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	X         any     `json:"x"`
	Y         float64 `json:"y"`
	ShowArrow bool    `json:"showarrow"`
	YAnchor   string  `json:"yanchor,omitempty"`
	Font      *Font   `json:"font,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func baseLayout(title string) Layout {
	return Layout{
		Title:   &Title{Text: title, X: 0.5},
		Margin:  Margin{L: 20, R: 20, T: 60, B: 40},
		Font:    Font{Family: chartFont, Size: 12},
		PlotBG:  "#ffffff",
		PaperBG: "#ffffff",
	}
}

// CompositionFigure draws the latest period as a donut or, with many
// entities, as horizontal bars. It returns nil when there is nothing to draw.
func CompositionFigure(c analytics.Composition, period core.YearMonth) *Figure {
	if c.Empty() {
		return nil
	}
	title := "Composición de la deuda - " + core.PeriodLabel(period.Key())

	n := len(c.Slices)
	labels := make([]string, n)
	values := make([]float64, n)
	text := make([]string, n)
	hover := make([]string, n)
	colors := make([]string, n)
	for i, s := range c.Slices {
		labels[i] = s.Label
		values[i] = s.Value.InexactFloat64()
		text[i] = s.Text
		hover[i] = s.Hover
		colors[i] = s.Color
	}

	if c.Mode == analytics.ModeBar {
		positions := make([]string, n)
		for i, s := range c.Slices {
			positions[i] = s.TextPosition
		}
		layout := baseLayout(title)
		layout.Height = 120 + 60*n
		layout.Margin.L = 160
		layout.XAxis = &Axis{Title: "Monto ($)", TickFormat: ",d", ShowGrid: boolPtr(true), Automargin: true}
		layout.YAxis = &Axis{Automargin: true}
		layout.Annotations = []Annotation{sourceAnnotation()}
		return &Figure{
			Data: []Trace{{
				Type:         "bar",
				Orientation:  "h",
				X:            values,
				Y:            labels,
				Text:         text,
				TextPosition: positions,
				HoverText:    hover,
				HoverInfo:    "text",
				Marker:       &Marker{Color: colors},
			}},
			Layout: layout,
		}
	}

	pulls := make([]float64, n)
	for i, s := range c.Slices {
		pulls[i] = s.Pull
	}
	layout := baseLayout(title)
	layout.Height = 480
	layout.Annotations = []Annotation{sourceAnnotation()}
	return &Figure{
		Data: []Trace{{
			Type:         "pie",
			Labels:       labels,
			Values:       values,
			Text:         text,
			TextInfo:     "text",
			TextPosition: "outside",
			HoverText:    hover,
			HoverInfo:    "text",
			Pull:         pulls,
			Hole:         0.4,
			Rotation:     90,
			Sort:         boolPtr(false),
			Direction:    "clockwise",
			Marker:       &Marker{Colors: colors},
		}},
		Layout: layout,
	}
}

func sourceAnnotation() Annotation {
	return Annotation{
		Text:      sourceNote,
		XRef:      "paper",
		YRef:      "paper",
		X:         0.5,
		Y:         -0.12,
		ShowArrow: false,
		YAnchor:   "top",
		Font:      &Font{Family: chartFont, Size: 10},
	}
}

// TimelineFigure draws total debt per period with monthly ticks and a
// dashed marker at each January. It returns nil for an empty series.
func TimelineFigure(t analytics.Timeline) *Figure {
	if t.Empty() {
		return nil
	}
	const dateLayout = "2006-01-02"

	x := make([]string, len(t.Points))
	y := make([]float64, len(t.Points))
	hover := make([]string, len(t.Points))
	for i, p := range t.Points {
		x[i] = p.Date.Format(dateLayout)
		y[i] = p.Total.InexactFloat64()
		hover[i] = core.PeriodLabel(p.Period.Key()) + "<br>" + core.FormatCurrency(p.Total)
	}

	ticks := t.Ticks()
	axis := &Axis{TickMode: "array", TickAngle: -45, ShowGrid: boolPtr(false)}
	for _, tk := range ticks {
		axis.TickVals = append(axis.TickVals, tk.Date.Format(dateLayout))
		axis.TickText = append(axis.TickText, tk.Label)
	}

	layout := baseLayout("Evolución de la deuda total")
	layout.Height = 420
	layout.XAxis = axis
	layout.YAxis = &Axis{Title: "Monto ($)", TickFormat: ",d", Automargin: true}
	for _, m := range t.YearMarkers() {
		d := m.Date.Format(dateLayout)
		layout.Shapes = append(layout.Shapes, Shape{
			Type: "line", XRef: "x", YRef: "paper",
			X0: d, X1: d, Y0: 0, Y1: 1,
			Line: Line{Color: "#adb5bd", Width: 1, Dash: "dash"},
		})
		layout.Annotations = append(layout.Annotations, Annotation{
			Text: m.Label, XRef: "x", YRef: "paper", X: d, Y: 1.02,
			ShowArrow: false, YAnchor: "bottom",
		})
	}

	return &Figure{
		Data: []Trace{{
			Type:      "scatter",
			Mode:      "lines+markers",
			Name:      "Deuda total",
			X:         x,
			Y:         y,
			HoverText: hover,
			HoverInfo: "text",
			Line:      &Line{Color: timelineColor, Width: 3},
			Marker:    &Marker{Color: timelineColor, Size: 7},
		}},
		Layout: layout,
	}
}

// JSON renders the figure for embedding in a page; nil figures render "null".
func (f *Figure) JSON() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
