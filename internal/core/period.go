package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// YearMonth identifies one registry period. It is comparable and is used
// directly as a map key.
type YearMonth struct {
	Year  string // 4 chars
	Month string // 2 chars, zero padded
}

// NormalizePeriodKey canonicalizes a raw period key into year and month.
//
// Keys of length 5 ("20243") get the month portion left-padded ("202403").
// Anything that is not 6 characters after that step is reported as
// unrecognized; the caller decides what to do with it.
func NormalizePeriodKey(raw string) (YearMonth, bool) {
	if len(raw) == 5 {
		raw = raw[:4] + "0" + raw[4:]
	}
	if len(raw) != 6 {
		return YearMonth{}, false
	}
	return YearMonth{Year: raw[:4], Month: raw[4:6]}, true
}

// Key returns the canonical YYYYMM form.
func (ym YearMonth) Key() string {
	return ym.Year + ym.Month
}

// ID returns the column identifier used by the pivot table ("2024-03").
func (ym YearMonth) ID() string {
	return ym.Year + "-" + ym.Month
}

// Date returns the first day of the month in UTC.
func (ym YearMonth) Date() (time.Time, error) {
	year, err := strconv.Atoi(ym.Year)
	if err != nil || strings.ContainsAny(ym.Year, "+-") {
		return time.Time{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(ym.Month)
	if err != nil || month < 1 || month > 12 || strings.ContainsAny(ym.Month, "+-") {
		return time.Time{}, ErrInvalidPeriod
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}
