package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "usuario"
)

type (
	Role string

	// Identity is the authenticated user behind a query.
	Identity struct {
		Username string
		Role     Role
	}

	// Situation is the registry delinquency classification (1 normal .. 5 severe).
	// Zero means the entity did not report one.
	Situation int

	EntityDebt struct {
		Entity    string
		Amount    decimal.Decimal // thousands of pesos, as reported
		Situation Situation
	}

	Period struct {
		Key      string // YYYYMM, sometimes YYYYM upstream
		Entities []EntityDebt
	}

	// Report is the full registry answer for one CUIT.
	Report struct {
		CUIT         string
		Denomination string
		Periods      []Period
	}
)

var (
	ErrInvalidCUIT        = errors.New("invalid cuit")
	ErrNoData             = errors.New("no data for cuit")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmptyUsername      = errors.New("empty username")
	ErrEmptyPassword      = errors.New("empty password")
	ErrInvalidRole        = errors.New("invalid role")
)

var thousand = decimal.NewFromInt(1000)

// Scaled returns the amount in pesos.
func (e EntityDebt) Scaled() decimal.Decimal {
	return e.Amount.Mul(thousand)
}

// Label returns the situation as shown in tooltips and tables.
func (s Situation) Label() string {
	if s == 0 {
		return "-"
	}
	return strconv.Itoa(int(s))
}

// Total returns the sum of all entity amounts in pesos.
func (p Period) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entities {
		total = total.Add(e.Scaled())
	}
	return total
}

// ValidateCUIT checks the tax id is exactly 11 ASCII digits.
func ValidateCUIT(cuit string) error {
	if len(cuit) != 11 {
		return ErrInvalidCUIT
	}
	for _, r := range cuit {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return ErrInvalidCUIT
		}
	}
	return nil
}

// NormalizeCUIT strips blanks and the dashes users paste from formatted ids.
func NormalizeCUIT(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// LatestPeriod returns the period with the greatest normalized key.
// Periods whose key does not normalize are ignored.
func (r Report) LatestPeriod() (Period, bool) {
	var (
		latest Period
		best   YearMonth
		found  bool
	)
	for _, p := range r.Periods {
		ym, ok := NormalizePeriodKey(p.Key)
		if !ok {
			continue
		}
		if !found || ym.Key() > best.Key() {
			latest, best, found = p, ym, true
		}
	}
	return latest, found
}
