// Package services holds the use cases behind the HTTP handlers.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veraz/internal/analytics"
	"veraz/internal/cache"
	"veraz/internal/core"
	"veraz/internal/export"
	"veraz/internal/log"
	"veraz/internal/registry"
)

// AuditRecorder persists query audit entries locally.
type AuditRecorder interface {
	RecordQuery(ctx context.Context, rec core.QueryRecord) error
}

// AuditPublisher hands audit entries to the audit worker.
type AuditPublisher interface {
	PublishQueryAudit(ctx context.Context, rec core.QueryRecord) error
}

// DashboardView is everything the dashboard renders for one CUIT.
type DashboardView struct {
	CUIT         string
	Denomination string
	Latest       core.YearMonth
	Pivot        analytics.Pivot
	Composition  analytics.Composition
	Timeline     analytics.Timeline
	Detail       []analytics.DetailRow
	Skipped      []string // period keys left out of the tables and charts
}

// Header is the query banner: "Datos para: ACME SA (CUIT: 30-68712006-6)".
func (v DashboardView) Header() string {
	return fmt.Sprintf("Datos para: %s (CUIT: %s)", v.Denomination, core.FormatCUIT(v.CUIT))
}

// DashboardService orchestrates registry lookups, the analytics pipeline,
// the snapshot cache and query auditing.
type DashboardService struct {
	fetcher   registry.Fetcher
	snapshots *cache.Snapshots
	recorder  AuditRecorder
	publisher AuditPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
}

type DashboardOptions struct {
	Fetcher   registry.Fetcher
	Snapshots *cache.Snapshots
	Recorder  AuditRecorder  // optional
	Publisher AuditPublisher // optional
	Logger    *log.Logger
}

func NewDashboardService(opts DashboardOptions) *DashboardService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = cache.NewSnapshots(64, 5*time.Minute)
	}
	logger = logger.WithComponent(log.ComponentDashboard)
	return &DashboardService{
		fetcher:   opts.Fetcher,
		snapshots: snapshots,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// Query builds the dashboard view of a CUIT for the given user.
func (s *DashboardService) Query(ctx context.Context, id core.Identity, rawCUIT string) (DashboardView, error) {
	cuit := core.NormalizeCUIT(rawCUIT)
	if err := core.ValidateCUIT(cuit); err != nil {
		return DashboardView{}, err
	}

	report, err := s.fetch(ctx, id, cuit)
	if err != nil {
		return DashboardView{}, err
	}

	view := BuildView(report)

	s.events.LogPeriodsSkipped(ctx, cuit, view.Skipped)
	s.events.LogQueryCompleted(ctx, id.Username, cuit, len(report.Periods),
		view.Composition.EntityCount, string(view.Composition.Mode))
	s.audit(ctx, id, view, len(report.Periods))

	return view, nil
}

// BuildView runs the analytics pipeline over a report.
func BuildView(report core.Report) DashboardView {
	view := DashboardView{
		CUIT:         report.CUIT,
		Denomination: report.Denomination,
		Pivot:        analytics.BuildPivot(report.Periods),
		Timeline:     analytics.BuildTimeline(report.Periods),
		Detail:       analytics.BuildDetail(report.Periods),
	}
	if latest, ok := report.LatestPeriod(); ok {
		view.Latest, _ = core.NormalizePeriodKey(latest.Key)
		view.Composition = analytics.Classify(latest.Entities)
	} else {
		view.Composition = analytics.Classify(nil)
	}
	view.Skipped = mergeSkipped(view.Pivot.Skipped, view.Timeline.Skipped)
	return view
}

// Export renders the pivot of a CUIT as an xlsx workbook. The snapshot of
// the user's last query is reused when still cached.
func (s *DashboardService) Export(ctx context.Context, id core.Identity, rawCUIT string) ([]byte, error) {
	cuit := core.NormalizeCUIT(rawCUIT)
	if err := core.ValidateCUIT(cuit); err != nil {
		return nil, err
	}
	report, hit := s.snapshots.Get(id.Username, cuit)
	if !hit {
		var err error
		if report, err = s.fetch(ctx, id, cuit); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := export.WritePivotXLSX(&buf, analytics.BuildPivot(report.Periods)); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "Pivot exported",
		log.FieldOperation, log.OpExport,
		log.FieldUsername, id.Username,
		log.FieldCUIT, cuit,
		log.FieldCacheHit, hit,
		"bytes", buf.Len())
	return buf.Bytes(), nil
}

// fetch always asks the registry and stores the result as the user's
// snapshot for a later export.
func (s *DashboardService) fetch(ctx context.Context, id core.Identity, cuit string) (core.Report, error) {
	if s.fetcher == nil {
		return core.Report{}, errors.New("no registry configured")
	}
	report, err := s.fetcher.FetchHistory(ctx, cuit)
	if errors.Is(err, registry.ErrNotFound) {
		return core.Report{}, core.ErrNoData
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("fetch history: %w", err)
	}
	if len(report.Periods) == 0 {
		return core.Report{}, core.ErrNoData
	}
	if report.CUIT == "" {
		report.CUIT = cuit
	}
	s.snapshots.Put(id.Username, report)
	return report, nil
}

// audit never fails the query; both sinks are best effort.
func (s *DashboardService) audit(ctx context.Context, id core.Identity, view DashboardView, periods int) {
	if s.recorder == nil && s.publisher == nil {
		return
	}
	rec := core.QueryRecord{
		ID:           uuid.NewString(),
		Username:     id.Username,
		CUIT:         view.CUIT,
		Denomination: view.Denomination,
		Periods:      periods,
		Skipped:      view.Skipped,
		CreatedAt:    s.now().UTC(),
	}
	if s.recorder != nil {
		if err := s.recorder.RecordQuery(ctx, rec); err != nil {
			s.events.LogError(ctx, "Failed to record query audit", err,
				log.ComponentStorage, log.OpAudit, log.NewFields().WithUser(id.Username, string(id.Role)))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishQueryAudit(ctx, rec); err != nil {
			s.events.LogError(ctx, "Failed to publish query audit", err,
				log.ComponentAMQP, log.OpAudit, log.NewFields().WithUser(id.Username, string(id.Role)))
		}
	}
}

func mergeSkipped(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, k := range l {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
