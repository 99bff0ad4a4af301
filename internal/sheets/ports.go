package sheets

import (
	"context"

	"veraz/internal/core"
)

// AuditAppender writes query audit entries to a spreadsheet. It returns a
// reference to the written row.
type AuditAppender interface {
	AppendQuery(ctx context.Context, rec core.QueryRecord) (rowRef string, err error)
}

// AuditHeader is the column layout of the audit sheet.
var AuditHeader = []any{"ID", "Fecha", "Usuario", "CUIT", "Denominación", "Períodos", "Períodos omitidos"}

// AuditRow renders rec in AuditHeader order.
func AuditRow(rec core.QueryRecord) []any {
	skipped := ""
	for i, k := range rec.Skipped {
		if i > 0 {
			skipped += ", "
		}
		skipped += k
	}
	return []any{
		rec.ID,
		rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		rec.Username,
		core.FormatCUIT(rec.CUIT),
		rec.Denomination,
		rec.Periods,
		skipped,
	}
}
