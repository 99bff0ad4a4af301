package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"veraz/internal/core"
)

// QueryAuditMessage announces a completed dashboard query. It carries the
// whole audit record so consumers do not need access to the database.
type QueryAuditMessage struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	CUIT         string    `json:"cuit"`
	Denomination string    `json:"denomination"`
	Periods      int       `json:"periods"`
	Skipped      []string  `json:"skipped,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewQueryAuditMessage(rec core.QueryRecord) *QueryAuditMessage {
	return &QueryAuditMessage{
		ID:           rec.ID,
		Username:     rec.Username,
		CUIT:         rec.CUIT,
		Denomination: rec.Denomination,
		Periods:      rec.Periods,
		Skipped:      rec.Skipped,
		Timestamp:    rec.CreatedAt,
	}
}

// Record converts the message back into an audit record.
func (m *QueryAuditMessage) Record() core.QueryRecord {
	return core.QueryRecord{
		ID:           m.ID,
		Username:     m.Username,
		CUIT:         m.CUIT,
		Denomination: m.Denomination,
		Periods:      m.Periods,
		Skipped:      m.Skipped,
		CreatedAt:    m.Timestamp,
	}
}

func (m *QueryAuditMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func QueryAuditMessageFromJSON(data []byte) (*QueryAuditMessage, error) {
	var msg QueryAuditMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.CUIT == "" {
		return nil, errors.New("query audit message without id or cuit")
	}
	return &msg, nil
}
