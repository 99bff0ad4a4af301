package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"veraz/internal/analytics"
	"veraz/internal/cache"
	"veraz/internal/core"
	"veraz/internal/registry"
	"veraz/internal/registry/memory"
)

const testCUIT = "30687120066"

var ana = core.Identity{Username: "ana", Role: core.RoleUser}

type countingFetcher struct {
	inner registry.Fetcher
	calls int
	err   error
}

func (f *countingFetcher) FetchHistory(ctx context.Context, cuit string) (core.Report, error) {
	f.calls++
	if f.err != nil {
		return core.Report{}, f.err
	}
	return f.inner.FetchHistory(ctx, cuit)
}

type fakeAudit struct {
	recorded  []core.QueryRecord
	published []core.QueryRecord
	err       error
}

func (f *fakeAudit) RecordQuery(_ context.Context, rec core.QueryRecord) error {
	f.recorded = append(f.recorded, rec)
	return f.err
}

func (f *fakeAudit) PublishQueryAudit(_ context.Context, rec core.QueryRecord) error {
	f.published = append(f.published, rec)
	return f.err
}

func newTestService(t *testing.T) (*DashboardService, *countingFetcher, *fakeAudit) {
	t.Helper()
	fetcher := &countingFetcher{inner: memory.New("../registry/memory/testdata")}
	audit := &fakeAudit{}
	svc := NewDashboardService(DashboardOptions{
		Fetcher:   fetcher,
		Snapshots: cache.NewSnapshots(8, time.Minute),
		Recorder:  audit,
		Publisher: audit,
	})
	return svc, fetcher, audit
}

func TestQuery_Fixture(t *testing.T) {
	svc, _, audit := newTestService(t)

	view, err := svc.Query(context.Background(), ana, "30-68712006-6")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if view.Header() != "Datos para: ACME SOCIEDAD ANONIMA (CUIT: 30-68712006-6)" {
		t.Fatalf("Header = %q", view.Header())
	}
	if view.Latest.Key() != "202403" {
		t.Fatalf("Latest = %v", view.Latest)
	}
	if view.Composition.Mode != analytics.ModeBar {
		t.Fatalf("Mode = %s, want bar", view.Composition.Mode)
	}
	if want := decimal.NewFromInt(50402000); !view.Composition.Total.Equal(want) {
		t.Fatalf("Total = %s, want %s", view.Composition.Total, want)
	}
	if !view.Composition.Sum().Equal(view.Composition.Total) {
		t.Fatal("slice values do not add up to the total")
	}
	if len(view.Pivot.Rows) != 8 {
		t.Fatalf("pivot rows = %d, want 8", len(view.Pivot.Rows))
	}
	if len(view.Timeline.Points) != 4 {
		t.Fatalf("timeline points = %d, want 4", len(view.Timeline.Points))
	}
	if len(view.Detail) != 12 {
		t.Fatalf("detail rows = %d, want 12", len(view.Detail))
	}
	if len(view.Skipped) != 0 {
		t.Fatalf("Skipped = %v", view.Skipped)
	}

	if len(audit.recorded) != 1 || len(audit.published) != 1 {
		t.Fatalf("audit recorded=%d published=%d", len(audit.recorded), len(audit.published))
	}
	rec := audit.recorded[0]
	if rec.Username != "ana" || rec.CUIT != testCUIT || rec.Periods != 4 || rec.ID == "" {
		t.Fatalf("audit record = %+v", rec)
	}
}

func TestQuery_InvalidCUIT(t *testing.T) {
	svc, fetcher, audit := newTestService(t)

	for _, in := range []string{"", "123", "3068712006X", "306871200661"} {
		if _, err := svc.Query(context.Background(), ana, in); !errors.Is(err, core.ErrInvalidCUIT) {
			t.Errorf("Query(%q) error = %v, want ErrInvalidCUIT", in, err)
		}
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetcher called %d times for invalid input", fetcher.calls)
	}
	if len(audit.recorded) != 0 {
		t.Fatal("invalid queries were audited")
	}
}

func TestQuery_NotFoundIsNoData(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Query(context.Background(), ana, "20123456789")
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
}

func TestQuery_EmptyPeriods(t *testing.T) {
	store := memory.New("")
	store.Put(core.Report{CUIT: "20123456789", Denomination: "SIN DEUDA"})
	svc := NewDashboardService(DashboardOptions{Fetcher: store})

	if _, err := svc.Query(context.Background(), ana, "20123456789"); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
}

func TestQuery_UpstreamFailure(t *testing.T) {
	upstream := &registry.Error{Status: 503, Messages: []string{"Servicio no disponible"}}
	svc := NewDashboardService(DashboardOptions{Fetcher: &countingFetcher{err: upstream}})

	_, err := svc.Query(context.Background(), ana, testCUIT)
	var regErr *registry.Error
	if !errors.As(err, &regErr) || regErr.Status != 503 {
		t.Fatalf("error = %v, want registry error 503", err)
	}
}

func TestQuery_FetchesEveryTime(t *testing.T) {
	store := memory.New("../registry/memory/testdata")
	fetcher := &countingFetcher{inner: store}
	svc := NewDashboardService(DashboardOptions{
		Fetcher:   fetcher,
		Snapshots: cache.NewSnapshots(8, time.Minute),
	})
	ctx := context.Background()

	first, err := svc.Query(ctx, ana, testCUIT)
	if err != nil {
		t.Fatal(err)
	}

	store.Put(core.Report{
		CUIT:         testCUIT,
		Denomination: "ACME SA",
		Periods: []core.Period{
			{Key: "202404", Entities: []core.EntityDebt{{Entity: "BANCO A", Amount: decimal.NewFromInt(100), Situation: 1}}},
		},
	})
	second, err := svc.Query(ctx, ana, testCUIT)
	if err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("calls = %d, want 2", fetcher.calls)
	}
	if first.Composition.Total.Equal(second.Composition.Total) {
		t.Fatalf("second query reused total %s", second.Composition.Total)
	}
	if second.Denomination != "ACME SA" || second.Latest.Key() != "202404" {
		t.Fatalf("second view = %s %v", second.Denomination, second.Latest)
	}

	data, err := svc.Export(ctx, ana, testCUIT)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("export refetched, calls=%d", fetcher.calls)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Deudas")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "BANCO A" {
		t.Fatalf("export rows = %v, want the latest snapshot", rows)
	}
}

func TestExport_SnapshotsArePerUser(t *testing.T) {
	svc, fetcher, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Query(ctx, ana, testCUIT); err != nil {
		t.Fatal(err)
	}
	other := core.Identity{Username: "beto", Role: core.RoleUser}
	if _, err := svc.Export(ctx, other, testCUIT); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("calls = %d, snapshots leaked across users", fetcher.calls)
	}
}

func TestQuery_AuditFailureDoesNotFail(t *testing.T) {
	svc, _, audit := newTestService(t)
	audit.err = errors.New("database is locked")

	if _, err := svc.Query(context.Background(), ana, testCUIT); err != nil {
		t.Fatalf("Query: %v", err)
	}
}

func TestBuildView_SkipsMalformedPeriods(t *testing.T) {
	report := core.Report{
		CUIT: testCUIT,
		Periods: []core.Period{
			{Key: "202401", Entities: []core.EntityDebt{{Entity: "A", Amount: decimal.NewFromInt(10), Situation: 1}}},
			{Key: "2024", Entities: []core.EntityDebt{{Entity: "B", Amount: decimal.NewFromInt(5), Situation: 1}}},
			{Key: "202413", Entities: []core.EntityDebt{{Entity: "C", Amount: decimal.NewFromInt(5), Situation: 1}}},
		},
	}

	view := BuildView(report)
	if len(view.Skipped) != 2 || view.Skipped[0] != "2024" || view.Skipped[1] != "202413" {
		t.Fatalf("Skipped = %v", view.Skipped)
	}
	if view.Latest.Key() != "202413" {
		t.Fatalf("Latest = %v", view.Latest)
	}
	if len(view.Timeline.Points) != 1 {
		t.Fatalf("timeline points = %d", len(view.Timeline.Points))
	}
}

func TestExport(t *testing.T) {
	svc, fetcher, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Query(ctx, ana, testCUIT); err != nil {
		t.Fatal(err)
	}
	data, err := svc.Export(ctx, ana, testCUIT)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("export refetched, calls=%d", fetcher.calls)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Deudas")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("rows = %d, want header + 8", len(rows))
	}
	if rows[1][0] != "BANCO DE LA NACION ARGENTINA" {
		t.Fatalf("first row entity = %q", rows[1][0])
	}
}

func TestExport_RefetchesOnMiss(t *testing.T) {
	svc, fetcher, _ := newTestService(t)

	if _, err := svc.Export(context.Background(), ana, testCUIT); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("calls = %d, want 1", fetcher.calls)
	}
}
