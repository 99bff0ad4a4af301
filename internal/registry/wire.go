package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

// envelope is the JSON returned by /CentralDeDeudores/v1.0/Deudas/Historicas.
type envelope struct {
	Status        int      `json:"status"`
	Results       *results `json:"results"`
	ErrorMessages []string `json:"errorMessages"`
}

type results struct {
	Identificacion json.RawMessage `json:"identificacion"`
	Denominacion   string          `json:"denominacion"`
	Periodos       []wirePeriod    `json:"periodos"`
}

type wirePeriod struct {
	Periodo   string       `json:"periodo"`
	Entidades []wireEntity `json:"entidades"`
}

type wireEntity struct {
	Entidad   string          `json:"entidad"`
	Monto     decimal.Decimal `json:"monto"`
	Situacion *int            `json:"situacion"`
}

// DecodeReport reads a registry answer. Error payloads come back as *Error;
// an answer without periods is not an error here.
func DecodeReport(cuit string, r io.Reader) (core.Report, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return core.Report{}, fmt.Errorf("decode registry response: %w", err)
	}
	if env.Status >= 400 || len(env.ErrorMessages) > 0 {
		return core.Report{}, &Error{Status: env.Status, Messages: env.ErrorMessages}
	}

	report := core.Report{CUIT: cuit}
	if env.Results == nil {
		return report, nil
	}
	report.Denomination = strings.TrimSpace(env.Results.Denominacion)
	for _, p := range env.Results.Periodos {
		period := core.Period{Key: strings.TrimSpace(p.Periodo)}
		for _, e := range p.Entidades {
			debt := core.EntityDebt{
				Entity: strings.TrimSpace(e.Entidad),
				Amount: e.Monto,
			}
			if e.Situacion != nil {
				debt.Situation = core.Situation(*e.Situacion)
			}
			period.Entities = append(period.Entities, debt)
		}
		report.Periods = append(report.Periods, period)
	}
	return report, nil
}
