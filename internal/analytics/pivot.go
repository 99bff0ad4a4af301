// Package analytics turns registry periods into the dashboard views: the
// entity by month pivot, the composition of the latest period and the debt
// timeline. Every function here is pure: inputs are never modified and a
// fresh result is built on each call.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

const (
	entityWidth    = 25.0
	situationWidth = 10.0
	amountWidth    = 10.0
	monthsWidth    = 55.0
)

// PivotRow is one creditor across every period it appears in.
type PivotRow struct {
	Entity    string
	Situation core.Situation  // from the most recent period
	Amount    decimal.Decimal // pesos, from the most recent period
	History   map[core.YearMonth]core.Situation
}

// Column is one month of the pivot.
type Column struct {
	Period core.YearMonth
	ID     string // "2024-03"
	Label  string // month initial
}

// ColumnGroup holds the month columns of one year, most recent first.
type ColumnGroup struct {
	Year    string
	Columns []Column
}

// Pivot is the entity by month matrix.
type Pivot struct {
	Groups  []ColumnGroup
	Rows    []PivotRow
	Skipped []string // period keys that could not be normalized
}

// ColumnWidths are percentages of the table width.
type ColumnWidths struct {
	Entity    float64
	Situation float64
	Amount    float64
	Month     float64
}

type keyedPeriod struct {
	ym     core.YearMonth
	period core.Period
}

// BuildPivot builds the pivot table for a set of periods.
//
// Periods are walked from the most recent to the oldest, so the summary
// columns of a row come from the latest period the entity appears in. Month
// columns without a single value are dropped, and rows come back ordered by
// amount, largest first, ties in first-seen order.
func BuildPivot(periods []core.Period) Pivot {
	keyed, skipped := normalizePeriods(periods)
	sort.SliceStable(keyed, func(i, j int) bool {
		return keyed[i].ym.Key() > keyed[j].ym.Key()
	})

	var rows []PivotRow
	index := make(map[string]int)
	seenMonths := make(map[core.YearMonth]struct{})
	for _, kp := range keyed {
		seenMonths[kp.ym] = struct{}{}
		for _, e := range kp.period.Entities {
			i, ok := index[e.Entity]
			if !ok {
				rows = append(rows, PivotRow{
					Entity:    e.Entity,
					Situation: e.Situation,
					Amount:    e.Scaled(),
					History:   make(map[core.YearMonth]core.Situation),
				})
				i = len(rows) - 1
				index[e.Entity] = i
			}
			rows[i].History[kp.ym] = e.Situation
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.GreaterThan(rows[j].Amount)
	})

	return Pivot{
		Groups:  buildGroups(seenMonths, rows),
		Rows:    rows,
		Skipped: skipped,
	}
}

func normalizePeriods(periods []core.Period) ([]keyedPeriod, []string) {
	keyed := make([]keyedPeriod, 0, len(periods))
	var skipped []string
	for _, p := range periods {
		ym, ok := core.NormalizePeriodKey(p.Key)
		if !ok {
			skipped = append(skipped, p.Key)
			continue
		}
		keyed = append(keyed, keyedPeriod{ym: ym, period: p})
	}
	return keyed, skipped
}

// buildGroups lays out years and months in descending order, keeping only
// months at least one row has a value for.
func buildGroups(months map[core.YearMonth]struct{}, rows []PivotRow) []ColumnGroup {
	byYear := make(map[string][]string)
	for ym := range months {
		if !anyValue(rows, ym) {
			continue
		}
		byYear[ym.Year] = append(byYear[ym.Year], ym.Month)
	}

	years := make([]string, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))

	groups := make([]ColumnGroup, 0, len(years))
	for _, y := range years {
		ms := byYear[y]
		sort.Sort(sort.Reverse(sort.StringSlice(ms)))
		g := ColumnGroup{Year: y}
		for _, m := range ms {
			ym := core.YearMonth{Year: y, Month: m}
			g.Columns = append(g.Columns, Column{Period: ym, ID: ym.ID(), Label: core.MonthInitial(m)})
		}
		groups = append(groups, g)
	}
	return groups
}

func anyValue(rows []PivotRow, ym core.YearMonth) bool {
	for _, r := range rows {
		if _, ok := r.History[ym]; ok {
			return true
		}
	}
	return false
}

// Columns returns every surviving month column in display order.
func (p Pivot) Columns() []Column {
	var cols []Column
	for _, g := range p.Groups {
		cols = append(cols, g.Columns...)
	}
	return cols
}

// ColumnWidths splits the table: fixed shares for the summary columns, the
// remaining 55% evenly across month columns.
func (p Pivot) ColumnWidths() ColumnWidths {
	w := ColumnWidths{Entity: entityWidth, Situation: situationWidth, Amount: amountWidth}
	if n := len(p.Columns()); n > 0 {
		w.Month = monthsWidth / float64(n)
	}
	return w
}

// Cell returns the situation of a row for a month, ok=false when blank.
func (r PivotRow) Cell(ym core.YearMonth) (core.Situation, bool) {
	s, ok := r.History[ym]
	return s, ok
}

// ExportTable is the flat form of the pivot handed to spreadsheet writers.
type ExportTable struct {
	Header []string
	Rows   [][]any
}

// ExportTable flattens the pivot: entity, situation, amount and one column
// per surviving month. Blank cells are empty strings.
func (p Pivot) ExportTable() ExportTable {
	cols := p.Columns()
	t := ExportTable{Header: []string{"Entidad", "Situación", "Monto"}}
	for _, c := range cols {
		t.Header = append(t.Header, c.ID)
	}
	for _, r := range p.Rows {
		row := []any{r.Entity, int(r.Situation), r.Amount.IntPart()}
		for _, c := range cols {
			if s, ok := r.Cell(c.Period); ok {
				row = append(row, int(s))
			} else {
				row = append(row, "")
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
