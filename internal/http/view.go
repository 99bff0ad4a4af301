package http

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"veraz/internal/analytics"
	"veraz/internal/core"
	"veraz/internal/services"
)

const (
	msgInvalidCUIT = "CUIT inválido."
	msgNoData      = "El CUIT consultado no tiene información disponible."
	msgSkipped     = "Algunos períodos informados no pudieron interpretarse y se omitieron: "
)

type alertView struct {
	Level   string // bootstrap contextual class: warning, danger, info
	Message string
}

type pivotCellView struct {
	Text  string
	Class string
}

type pivotRowView struct {
	Entity         string
	Situation      string
	SituationClass string
	Amount         string
	Cells          []pivotCellView
}

type pivotView struct {
	Groups []analytics.ColumnGroup
	Rows   []pivotRowView
	Widths analytics.ColumnWidths
}

type detailRowView struct {
	Period    string
	Entity    string
	Amount    string
	Situation string
	Class     string
}

// queryView feeds the query_result template.
type queryView struct {
	Header          string
	CUIT            string
	Alerts          []alertView
	Pivot           pivotView
	Detail          []detailRowView
	CompositionJSON template.JS
	TimelineJSON    template.JS
	HasComposition  bool
	HasTimeline     bool
}

func newQueryView(v services.DashboardView) (queryView, error) {
	qv := queryView{
		Header: v.Header(),
		CUIT:   v.CUIT,
		Pivot:  newPivotView(v.Pivot),
	}
	if len(v.Skipped) > 0 {
		qv.Alerts = append(qv.Alerts, alertView{Level: "warning", Message: msgSkipped + strings.Join(v.Skipped, ", ")})
	}

	for _, d := range v.Detail {
		qv.Detail = append(qv.Detail, detailRowView{
			Period:    d.Label,
			Entity:    d.Entity,
			Amount:    core.FormatCurrency(d.Amount),
			Situation: d.Situation.Label(),
			Class:     d.Situation.CSSClass(),
		})
	}

	if fig := CompositionFigure(v.Composition, v.Latest); fig != nil {
		js, err := fig.JSON()
		if err != nil {
			return queryView{}, err
		}
		qv.CompositionJSON, qv.HasComposition = template.JS(js), true
	}
	if fig := TimelineFigure(v.Timeline); fig != nil {
		js, err := fig.JSON()
		if err != nil {
			return queryView{}, err
		}
		qv.TimelineJSON, qv.HasTimeline = template.JS(js), true
	}
	return qv, nil
}

func newPivotView(p analytics.Pivot) pivotView {
	cols := p.Columns()
	pv := pivotView{Groups: p.Groups, Widths: p.ColumnWidths()}
	for _, r := range p.Rows {
		row := pivotRowView{
			Entity:         r.Entity,
			Situation:      r.Situation.Label(),
			SituationClass: r.Situation.CSSClass(),
			Amount:         core.FormatCurrency(r.Amount),
			Cells:          make([]pivotCellView, 0, len(cols)),
		}
		for _, c := range cols {
			s, ok := r.Cell(c.Period)
			if !ok {
				row.Cells = append(row.Cells, pivotCellView{})
				continue
			}
			row.Cells = append(row.Cells, pivotCellView{Text: strconv.Itoa(int(s)), Class: s.CSSClass()})
		}
		pv.Rows = append(pv.Rows, row)
	}
	return pv
}

// apiView is the JSON shape of GET /api/query. Amounts are decimal strings.
type apiView struct {
	CUIT         string         `json:"cuit"`
	Denomination string         `json:"denomination"`
	LatestPeriod string         `json:"latest_period,omitempty"`
	Skipped      []string       `json:"skipped_periods,omitempty"`
	Pivot        apiPivot       `json:"pivot"`
	Composition  apiComposition `json:"composition"`
	Timeline     []apiPoint     `json:"timeline"`
	Detail       []apiDetail    `json:"detail"`
}

type apiPivot struct {
	Columns []string      `json:"columns"`
	Rows    []apiPivotRow `json:"rows"`
}

type apiPivotRow struct {
	Entity    string          `json:"entity"`
	Situation int             `json:"situation"`
	Amount    decimal.Decimal `json:"amount"`
	History   map[string]int  `json:"history"`
}

type apiComposition struct {
	Mode   string          `json:"mode"`
	Total  decimal.Decimal `json:"total"`
	Slices []apiSlice      `json:"slices"`
}

type apiSlice struct {
	Label     string          `json:"label"`
	Value     decimal.Decimal `json:"value"`
	Share     string          `json:"share"`
	Situation string          `json:"situation"`
	Others    bool            `json:"others,omitempty"`
}

type apiPoint struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

type apiDetail struct {
	Period    string          `json:"period"`
	Entity    string          `json:"entity"`
	Amount    decimal.Decimal `json:"amount"`
	Situation int             `json:"situation"`
}

func newAPIView(v services.DashboardView) apiView {
	out := apiView{
		CUIT:         v.CUIT,
		Denomination: v.Denomination,
		Skipped:      v.Skipped,
		Composition: apiComposition{
			Mode:   string(v.Composition.Mode),
			Total:  v.Composition.Total,
			Slices: []apiSlice{},
		},
		Timeline: []apiPoint{},
		Detail:   []apiDetail{},
		Pivot:    apiPivot{Columns: []string{}, Rows: []apiPivotRow{}},
	}
	if v.Latest != (core.YearMonth{}) {
		out.LatestPeriod = v.Latest.Key()
	}
	for _, c := range v.Pivot.Columns() {
		out.Pivot.Columns = append(out.Pivot.Columns, c.ID)
	}
	for _, r := range v.Pivot.Rows {
		hist := make(map[string]int, len(r.History))
		for ym, s := range r.History {
			hist[ym.ID()] = int(s)
		}
		out.Pivot.Rows = append(out.Pivot.Rows, apiPivotRow{
			Entity: r.Entity, Situation: int(r.Situation), Amount: r.Amount, History: hist,
		})
	}
	for _, s := range v.Composition.Slices {
		out.Composition.Slices = append(out.Composition.Slices, apiSlice{
			Label: s.Label, Value: s.Value, Share: s.Share.StringFixed(1), Situation: s.Situation, Others: s.Others,
		})
	}
	for _, p := range v.Timeline.Points {
		out.Timeline = append(out.Timeline, apiPoint{Period: p.Period.Key(), Total: p.Total})
	}
	for _, d := range v.Detail {
		out.Detail = append(out.Detail, apiDetail{
			Period: d.Period.Key(), Entity: d.Entity, Amount: d.Amount, Situation: int(d.Situation),
		})
	}
	return out
}
