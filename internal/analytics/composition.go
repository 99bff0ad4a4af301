package analytics

import (
	"html"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

// Mode is how a composition is drawn.
type Mode string

const (
	ModeNone Mode = "none"
	ModePie  Mode = "pie"
	ModeBar  Mode = "bar"
)

const (
	OthersLabel     = "Otros"
	OthersSituation = "N/A"

	// BarThreshold is the entity count from which a pie becomes unreadable.
	BarThreshold = 6

	TextInside  = "inside"
	TextOutside = "outside"

	pullOffset    = 0.04
	labelWidth    = 20
	labelMaxLines = 2
)

var (
	othersPercent = decimal.NewFromInt(3)
	minorPercent  = decimal.NewFromInt(10)
	percentScale  = decimal.NewFromInt(100)
)

// Palette is the corporate color cycle for composition slices.
var Palette = []string{"#0d6efd", "#DFA83D", "#947F57"}

// Slice is one segment of the composition chart.
type Slice struct {
	Label        string
	Value        decimal.Decimal // pesos
	Situation    string          // "N/A" for the Others bucket
	Others       bool
	Share        decimal.Decimal // percent of total
	Text         string
	Hover        string
	Pull         float64 // pie only
	TextPosition string  // bar only
	Color        string
}

// Composition is the classified breakdown of a single period.
type Composition struct {
	Mode        Mode
	Total       decimal.Decimal
	EntityCount int // positive entities before bucketing
	Slices      []Slice
}

// ModeFor picks the chart type from the number of positive entities.
func ModeFor(count int) Mode {
	switch {
	case count <= 0:
		return ModeNone
	case count >= BarThreshold:
		return ModeBar
	default:
		return ModePie
	}
}

// Classify builds the composition chart for one period's entities.
//
// Entities with a non-positive amount are ignored. Entities below 3% of the
// total are folded into a single Others slice, so the slice values always add
// up to the total.
func Classify(entities []core.EntityDebt) Composition {
	var slices []Slice
	for _, e := range entities {
		v := e.Scaled()
		if !v.IsPositive() {
			continue
		}
		slices = append(slices, Slice{Label: e.Entity, Value: v, Situation: e.Situation.Label()})
	}
	if len(slices) == 0 {
		return Composition{Mode: ModeNone, Total: decimal.Zero}
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})
	total := decimal.Zero
	for _, s := range slices {
		total = total.Add(s.Value)
	}

	explicit := make([]Slice, 0, len(slices))
	others := decimal.Zero
	for _, s := range slices {
		if below(s.Value, total, othersPercent) {
			others = others.Add(s.Value)
			continue
		}
		explicit = append(explicit, s)
	}

	mode := ModeFor(len(slices))
	if mode == ModeBar {
		sort.SliceStable(explicit, func(i, j int) bool {
			return explicit[i].Value.LessThan(explicit[j].Value)
		})
	}
	if others.IsPositive() {
		explicit = append(explicit, Slice{
			Label:     OthersLabel,
			Value:     others,
			Situation: OthersSituation,
			Others:    true,
		})
	}

	for i := range explicit {
		decorate(&explicit[i], i, total, mode)
	}

	return Composition{
		Mode:        mode,
		Total:       total,
		EntityCount: len(slices),
		Slices:      explicit,
	}
}

func decorate(s *Slice, i int, total decimal.Decimal, mode Mode) {
	minor := below(s.Value, total, minorPercent)
	s.Share = core.Share(s.Value, total)
	s.Text = sliceText(s.Label, s.Value, total)
	s.Hover = "Situación: " + s.Situation
	s.Color = Palette[i%len(Palette)]
	switch mode {
	case ModePie:
		if minor {
			s.Pull = pullOffset
		}
	case ModeBar:
		s.TextPosition = TextInside
		if minor {
			s.TextPosition = TextOutside
		}
	}
}

// below reports value/total < pct%, computed without division.
func below(value, total, pct decimal.Decimal) bool {
	return value.Mul(percentScale).LessThan(total.Mul(pct))
}

// Sum returns the exact sum of the slice values.
func (c Composition) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range c.Slices {
		sum = sum.Add(s.Value)
	}
	return sum
}

func (c Composition) Empty() bool {
	return c.Mode == ModeNone || len(c.Slices) == 0
}

func sliceText(label string, value, total decimal.Decimal) string {
	lines := wrapLabel(label, labelWidth)
	if len(lines) == 0 {
		lines = []string{"-"}
	}
	if len(lines) > labelMaxLines {
		lines = lines[:labelMaxLines]
	}
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return strings.Join(lines, "<br>") + "<br>" +
		core.FormatPercent(value, total) + " (" + core.FormatCurrency(value) + ")"
}

// wrapLabel breaks text into lines of at most width runes, filling greedily
// word by word. Words longer than width are split.
func wrapLabel(text string, width int) []string {
	var (
		lines []string
		line  []rune
	)
	flush := func() {
		if len(line) > 0 {
			lines = append(lines, string(line))
			line = nil
		}
	}
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(line) > 0 && len(line)+1+len(w) <= width {
			line = append(line, ' ')
			line = append(line, w...)
			continue
		}
		flush()
		for len(w) > width {
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		line = append(line, w...)
	}
	flush()
	return lines
}
