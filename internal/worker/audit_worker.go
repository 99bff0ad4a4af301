// Package worker moves query audit records from the local database to the
// audit spreadsheet.
package worker

import (
	"context"
	"fmt"

	"veraz/internal/amqp"
	"veraz/internal/core"
	"veraz/internal/log"
	"veraz/internal/sheets"
)

// AuditStore is the slice of the repository the worker needs to track sync
// status. The worker runs without one when it has no access to the database.
type AuditStore interface {
	PendingQueries(ctx context.Context, limit int) ([]core.QueryRecord, error)
	MarkQuerySynced(ctx context.Context, id string) error
	MarkQuerySyncError(ctx context.Context, id string) error
}

// AuditWorker appends audit records to the spreadsheet.
type AuditWorker struct {
	store     AuditStore
	sheet     sheets.AuditAppender
	batchSize int
	logger    *log.Logger
}

func NewAuditWorker(store AuditStore, sheet sheets.AuditAppender, batchSize int, logger *log.Logger) *AuditWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{
		store:     store,
		sheet:     sheet,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleAuditMessage processes a single query audit message from AMQP.
func (w *AuditWorker) HandleAuditMessage(ctx context.Context, msg *amqp.QueryAuditMessage) error {
	w.logger.InfoContext(ctx, "Processing audit message",
		log.FieldMessageID, msg.ID,
		log.FieldCUIT, msg.CUIT)

	if err := w.sync(ctx, msg.Record()); err != nil {
		return fmt.Errorf("sync audit record: %w", err)
	}
	return nil
}

// ProcessPending syncs records whose message never made it through.
func (w *AuditWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processBatch(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger batch of pending records when the worker
// starts, to recover from downtime.
func (w *AuditWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending audit records found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *AuditWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	if w.store == nil {
		return 0, 0, nil
	}
	pending, err := w.store.PendingQueries(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending audit records: %w", err)
	}
	if len(pending) > 0 {
		w.logger.InfoContext(ctx, "Processing pending audit records", "count", len(pending))
	}
	for _, rec := range pending {
		if err := w.sync(ctx, rec); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync audit record",
				log.FieldMessageID, rec.ID, log.FieldError, err.Error())
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *AuditWorker) sync(ctx context.Context, rec core.QueryRecord) error {
	ref, err := w.sheet.AppendQuery(ctx, rec)
	if err != nil {
		if w.store != nil {
			if markErr := w.store.MarkQuerySyncError(ctx, rec.ID); markErr != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldMessageID, rec.ID, log.FieldError, markErr.Error())
			}
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if w.store != nil {
		// the row is in the sheet already, a failed status update is only logged
		if err := w.store.MarkQuerySynced(ctx, rec.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark as synced",
				log.FieldMessageID, rec.ID, log.FieldError, err.Error())
		}
	}

	w.logger.InfoContext(ctx, "Synced audit record",
		log.FieldMessageID, rec.ID,
		log.FieldUsername, rec.Username,
		log.FieldCUIT, rec.CUIT,
		"sheets_ref", ref)
	return nil
}
