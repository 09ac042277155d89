package lifecycle

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"rulegate/internal/domain"
)

// Generated view name prefixes owned by the compiler.
var ownedViewPrefixes = []string{"claim_", "read_"}

// DriftReport is the outcome of one reconciliation sweep.
type DriftReport struct {
	Missing []string // recorded views absent from the store
	Orphans []string // compiler-prefixed views with no record
}

// Clean reports whether the store matches the artifact records exactly.
func (r *DriftReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0
}

// Reconciler periodically verifies that generated-object records mirror the
// backing store. It never repairs: the lifecycle manager is the only writer,
// so drift means something bypassed it and deserves a human look.
type Reconciler struct {
	db        *sql.DB
	artifacts domain.ArtifactRepository
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewReconciler creates a Reconciler over the read pool.
func NewReconciler(db *sql.DB, artifacts domain.ArtifactRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:        db,
		artifacts: artifacts,
		logger:    logger.With("component", "reconciler"),
		cron:      cron.New(),
	}
}

// Start schedules sweeps with the given cron expression and starts the
// scheduler.
func (r *Reconciler) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		if _, err := r.Sweep(context.Background()); err != nil {
			r.logger.Warn("reconcile sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reconciler started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (r *Reconciler) Stop() {
	r.cron.Stop()
}

// Sweep compares artifact records of view kinds against sqlite_master and
// logs any drift.
func (r *Reconciler) Sweep(ctx context.Context) (*DriftReport, error) {
	records, err := r.artifacts.List(ctx)
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]bool)
	for _, a := range records {
		if a.Kind.IsView() {
			recorded[a.Name] = true
		}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'view'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report := &DriftReport{}
	for name := range recorded {
		if !present[name] {
			report.Missing = append(report.Missing, name)
		}
	}
	for name := range present {
		if owned(name) && !recorded[name] {
			report.Orphans = append(report.Orphans, name)
		}
	}

	if !report.Clean() {
		r.logger.Warn("artifact drift detected",
			"missing", report.Missing, "orphans", report.Orphans)
	}
	return report, nil
}

func owned(view string) bool {
	for _, p := range ownedViewPrefixes {
		if strings.HasPrefix(view, p) {
			return true
		}
	}
	return false
}
