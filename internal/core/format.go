package core

import "strconv"

var monthNames = map[string]string{
	"01": "Enero", "02": "Febrero", "03": "Marzo", "04": "Abril",
	"05": "Mayo", "06": "Junio", "07": "Julio", "08": "Agosto",
	"09": "Septiembre", "10": "Octubre", "11": "Noviembre", "12": "Diciembre",
}

var monthInitials = map[string]string{
	"01": "E", "02": "F", "03": "M", "04": "A", "05": "M", "06": "J",
	"07": "J", "08": "A", "09": "S", "10": "O", "11": "N", "12": "D",
}

// SituationStyle is the cell styling for a severity code.
type SituationStyle struct {
	Background string
	Foreground string
}

var situationStyles = map[Situation]SituationStyle{
	2: {Background: "#FFE5E5", Foreground: "#000000"},
	3: {Background: "#FFBFBF", Foreground: "#000000"},
	4: {Background: "#FF8080", Foreground: "#FFFFFF"},
	5: {Background: "#FF4C4C", Foreground: "#FFFFFF"},
}

// PeriodLabel renders "202401" as "Enero 2024". Keys that are not a valid
// year and month come back unchanged.
func PeriodLabel(key string) string {
	ym, ok := NormalizePeriodKey(key)
	if !ok {
		return key
	}
	if _, err := ym.Date(); err != nil {
		return key
	}
	return monthNames[ym.Month] + " " + ym.Year
}

// MonthInitial returns the single-letter header used by the pivot table.
func MonthInitial(month string) string {
	if s, ok := monthInitials[month]; ok {
		return s
	}
	return month
}

// FormatCUIT renders "30687120066" as "30-68712006-6".
func FormatCUIT(cuit string) string {
	if len(cuit) != 11 {
		return cuit
	}
	return cuit[:2] + "-" + cuit[2:10] + "-" + cuit[10:]
}

// Style returns the severity styling, ok=false for codes without one.
func (s Situation) Style() (SituationStyle, bool) {
	st, ok := situationStyles[s]
	return st, ok
}

// CSSClass returns the table cell class for styled codes ("bg-sit-3").
func (s Situation) CSSClass() string {
	if _, ok := situationStyles[s]; !ok {
		return ""
	}
	return "bg-sit-" + strconv.Itoa(int(s))
}

// StyledSituations lists the codes that carry a style, mildest first.
func StyledSituations() []Situation {
	return []Situation{2, 3, 4, 5}
}
