package core

import (
	"testing"
	"time"
)

func TestNormalizePeriodKey(t *testing.T) {
	cases := []struct {
		in    string
		want  YearMonth
		valid bool
	}{
		{"202401", YearMonth{"2024", "01"}, true},
		{"202412", YearMonth{"2024", "12"}, true},
		{"20243", YearMonth{"2024", "03"}, true},
		{"2024", YearMonth{}, false},
		{"2024011", YearMonth{}, false},
		{"", YearMonth{}, false},
	}
	for _, tc := range cases {
		got, ok := NormalizePeriodKey(tc.in)
		if ok != tc.valid || got != tc.want {
			t.Fatalf("NormalizePeriodKey(%q) = %+v,%v want %+v,%v", tc.in, got, ok, tc.want, tc.valid)
		}
		if ok && len(got.Key()) != 6 {
			t.Fatalf("normalized key %q is not 6 chars", got.Key())
		}
	}
}

func TestYearMonthKeysDoNotCollide(t *testing.T) {
	a := YearMonth{Year: "20", Month: "23"}
	b := YearMonth{Year: "202", Month: "3"}
	m := map[YearMonth]int{a: 1, b: 2}
	if len(m) != 2 {
		t.Fatalf("distinct year/month pairs must be distinct keys")
	}
}

func TestYearMonthDate(t *testing.T) {
	d, err := YearMonth{"2024", "02"}.Date()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", d)
	}
	for _, bad := range []YearMonth{{"2024", "13"}, {"2024", "00"}, {"20x4", "01"}, {"2024", "+1"}} {
		if _, err := bad.Date(); err == nil {
			t.Fatalf("%+v expected error", bad)
		}
	}
}

func TestYearMonthID(t *testing.T) {
	if got := (YearMonth{"2024", "03"}).ID(); got != "2024-03" {
		t.Fatalf("got %q", got)
	}
}
