package core

import "time"

// QueryRecord is the audit entry of one dashboard query.
type QueryRecord struct {
	ID           string
	Username     string
	CUIT         string
	Denomination string
	Periods      int
	Skipped      []string
	CreatedAt    time.Time
}
