package memory

import (
	"context"
	"errors"
	"testing"

	"veraz/internal/core"
	"veraz/internal/registry"
)

func TestFetchHistoryFromFixture(t *testing.T) {
	s := New("testdata")

	report, err := s.FetchHistory(context.Background(), "30687120066")
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if report.Denomination != "ACME SOCIEDAD ANONIMA" || len(report.Periods) != 4 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Periods[0].Entities) != 8 {
		t.Fatalf("latest period entities = %d", len(report.Periods[0].Entities))
	}
}

func TestFetchHistoryMissingFixture(t *testing.T) {
	s := New("testdata")
	_, err := s.FetchHistory(context.Background(), "20111111112")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutTakesPrecedence(t *testing.T) {
	s := New("testdata")
	s.Put(core.Report{CUIT: "30687120066", Denomination: "OVERRIDE"})

	report, err := s.FetchHistory(context.Background(), "30687120066")
	if err != nil || report.Denomination != "OVERRIDE" {
		t.Fatalf("report = %+v, err = %v", report, err)
	}
}

func TestFetchHistoryInvalidCUIT(t *testing.T) {
	if _, err := New("").FetchHistory(context.Background(), "abc"); !errors.Is(err, core.ErrInvalidCUIT) {
		t.Fatalf("expected ErrInvalidCUIT, got %v", err)
	}
}

func TestFetchHistoryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("testdata").FetchHistory(ctx, "30687120066"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
