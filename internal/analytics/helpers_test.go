package analytics

import (
	"github.com/shopspring/decimal"

	"veraz/internal/core"
)

func debt(entity string, thousands int64, situation int) core.EntityDebt {
	return core.EntityDebt{
		Entity:    entity,
		Amount:    decimal.NewFromInt(thousands),
		Situation: core.Situation(situation),
	}
}

func period(key string, entities ...core.EntityDebt) core.Period {
	return core.Period{Key: key, Entities: entities}
}

func pesos(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
