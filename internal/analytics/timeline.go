package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

// Point is the total debt of one period.
type Point struct {
	Period core.YearMonth
	Date   time.Time // first day of the month, UTC
	Total  decimal.Decimal
}

// Tick is an axis position with its label.
type Tick struct {
	Date  time.Time
	Label string
}

// Timeline is the chronological series of period totals.
type Timeline struct {
	Points  []Point
	Skipped []string
}

// BuildTimeline sums every period and orders the totals by date, oldest
// first. Periods whose key cannot be turned into a date are left out and
// listed in Skipped. Duplicate months are kept as separate points.
func BuildTimeline(periods []core.Period) Timeline {
	var t Timeline
	for _, p := range periods {
		ym, ok := core.NormalizePeriodKey(p.Key)
		if !ok {
			t.Skipped = append(t.Skipped, p.Key)
			continue
		}
		date, err := ym.Date()
		if err != nil {
			t.Skipped = append(t.Skipped, p.Key)
			continue
		}
		t.Points = append(t.Points, Point{Period: ym, Date: date, Total: p.Total()})
	}
	sort.SliceStable(t.Points, func(i, j int) bool {
		return t.Points[i].Date.Before(t.Points[j].Date)
	})
	return t
}

// Ticks returns one tick per point labelled "MM/YYYY".
func (t Timeline) Ticks() []Tick {
	ticks := make([]Tick, 0, len(t.Points))
	for _, p := range t.Points {
		ticks = append(ticks, Tick{Date: p.Date, Label: p.Date.Format("01/2006")})
	}
	return ticks
}

// YearMarkers returns the January points, one per year, labelled with the
// year.
func (t Timeline) YearMarkers() []Tick {
	var markers []Tick
	seen := make(map[int]bool)
	for _, p := range t.Points {
		if p.Date.Month() != time.January || seen[p.Date.Year()] {
			continue
		}
		seen[p.Date.Year()] = true
		markers = append(markers, Tick{Date: p.Date, Label: p.Period.Year})
	}
	return markers
}

func (t Timeline) Empty() bool {
	return len(t.Points) == 0
}
