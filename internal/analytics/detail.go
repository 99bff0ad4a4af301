package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

// DetailRow is one entity line of one period. Period is zero when the
// registry key could not be read as a month; Label then holds the raw key.
type DetailRow struct {
	Period    core.YearMonth
	Label     string // "Marzo 2024"
	Entity    string
	Amount    decimal.Decimal // pesos
	Situation core.Situation
}

// BuildDetail lists every entity of every period, most recent period first,
// keeping the registry order of entities within a period. Periods with an
// unreadable key follow the dated ones in registry order.
func BuildDetail(periods []core.Period) []DetailRow {
	keyed, _ := normalizePeriods(periods)
	sort.SliceStable(keyed, func(i, j int) bool {
		return keyed[i].ym.Key() > keyed[j].ym.Key()
	})
	var rows []DetailRow
	for _, kp := range keyed {
		rows = appendDetail(rows, kp.period, kp.ym, core.PeriodLabel(kp.ym.Key()))
	}
	for _, p := range periods {
		if _, ok := core.NormalizePeriodKey(p.Key); !ok {
			rows = appendDetail(rows, p, core.YearMonth{}, p.Key)
		}
	}
	return rows
}

func appendDetail(rows []DetailRow, p core.Period, ym core.YearMonth, label string) []DetailRow {
	for _, e := range p.Entities {
		rows = append(rows, DetailRow{
			Period:    ym,
			Label:     label,
			Entity:    e.Entity,
			Amount:    e.Scaled(),
			Situation: e.Situation,
		})
	}
	return rows
}
