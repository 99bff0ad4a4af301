package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"veraz/internal/amqp"
	"veraz/internal/core"
	"veraz/internal/sheets/memory"
)

type fakeStore struct {
	pending []core.QueryRecord
	synced  []string
	failed  []string
	listErr error
}

func (f *fakeStore) PendingQueries(_ context.Context, limit int) ([]core.QueryRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) MarkQuerySynced(_ context.Context, id string) error {
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakeStore) MarkQuerySyncError(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

func record(id string) core.QueryRecord {
	return core.QueryRecord{
		ID:           id,
		Username:     "ana",
		CUIT:         "30687120066",
		Denomination: "ACME SA",
		Periods:      3,
		CreatedAt:    time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandleAuditMessage(t *testing.T) {
	store := &fakeStore{}
	sheet := memory.New()
	w := NewAuditWorker(store, sheet, 10, nil)

	msg := amqp.NewQueryAuditMessage(record("q1"))
	if err := w.HandleAuditMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleAuditMessage: %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 {
		t.Fatalf("sheet has %d rows, want 1", len(rows))
	}
	if len(store.synced) != 1 || store.synced[0] != "q1" {
		t.Fatalf("synced = %v", store.synced)
	}
}

func TestHandleAuditMessage_SheetFailure(t *testing.T) {
	store := &fakeStore{}
	sheet := memory.New()
	sheet.FailWith(errors.New("quota exceeded"))
	w := NewAuditWorker(store, sheet, 10, nil)

	err := w.HandleAuditMessage(context.Background(), amqp.NewQueryAuditMessage(record("q1")))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.failed) != 1 || len(store.synced) != 0 {
		t.Fatalf("failed=%v synced=%v", store.failed, store.synced)
	}
}

func TestHandleAuditMessage_WithoutStore(t *testing.T) {
	sheet := memory.New()
	w := NewAuditWorker(nil, sheet, 10, nil)

	if err := w.HandleAuditMessage(context.Background(), amqp.NewQueryAuditMessage(record("q1"))); err != nil {
		t.Fatalf("HandleAuditMessage: %v", err)
	}
	if len(sheet.Rows()) != 1 {
		t.Fatal("row not appended")
	}
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck without store: %v", err)
	}
}

func TestProcessPending_RespectsBatchSize(t *testing.T) {
	store := &fakeStore{pending: []core.QueryRecord{record("a"), record("b"), record("c")}}
	sheet := memory.New()
	w := NewAuditWorker(store, sheet, 2, nil)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(store.synced) != 2 {
		t.Fatalf("synced %d records, want 2", len(store.synced))
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := &fakeStore{pending: []core.QueryRecord{record("a"), record("b")}}
	sheet := memory.New()
	w := NewAuditWorker(store, sheet, 1, nil)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Fatalf("sheet has %d rows, want 2", len(sheet.Rows()))
	}
}

func TestStartupSyncCheck_ListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("disk I/O error")}
	w := NewAuditWorker(store, memory.New(), 10, nil)

	if err := w.StartupSyncCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
