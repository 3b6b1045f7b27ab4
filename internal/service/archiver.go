package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Archival defaults.
const (
	DefaultRetentionDays    = 38
	DefaultArchiveBatchSize = 200
)

// ArchiveConfig tunes the archiver. Zero values take the defaults.
type ArchiveConfig struct {
	RetentionDays int
	BatchSize     int
}

// Archiver rolls records older than the retention window into per-day
// totals and removes them from the live set.
//
// A run has two phases. Phase one folds every batch record into its day's
// total and appends its id to DailyTotal.SourceIDs; ids already present are
// skipped. Phase two deletes the sources. A run that stops between the
// phases leaves records that are counted but still live ("partially
// archived"); the next run finds their ids in SourceIDs, does not count
// them again and finishes the delete.
type Archiver struct {
	store     port.LedgerStore
	periods   *period.Resolver
	retention int
	batchSize int
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewArchiver creates the archiver.
func NewArchiver(store port.LedgerStore, periods *period.Resolver, cfg ArchiveConfig, metrics *observability.Metrics, logger *zap.Logger) *Archiver {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultArchiveBatchSize
	}
	return &Archiver{
		store:     store,
		periods:   periods,
		retention: cfg.RetentionDays,
		batchSize: cfg.BatchSize,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunOnce archives at most one batch and returns how many records left the
// live set. Failures are logged and reported as zero; the next insertion
// retries.
func (a *Archiver) RunOnce(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "Archiver.RunOnce")
	defer span.End()

	n, err := a.archive(ctx)
	if err != nil {
		a.logger.Warn("archival failed, will retry on next insert", observability.Diagnostic(err))
		return 0
	}
	span.SetAttributes(attribute.Int("archived", n))
	if n > 0 {
		a.metrics.AddArchived(n)
		a.logger.Info("archived records into daily totals", zap.Int("count", n))
	}
	return n
}

func (a *Archiver) archive(ctx context.Context) (int, error) {
	cutoff := a.periods.Now().AddDate(0, 0, -a.retention)
	batch, err := a.store.ListRecords(ctx, domain.RecordFilter{
		To:        &cutoff,
		Ascending: true,
		Limit:     a.batchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list archivable records: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	loc := a.periods.Location()
	var days []string
	byDay := make(map[string][]domain.Record)
	for _, r := range batch {
		day := r.Day(loc)
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], r)
	}

	// Phase one: aggregate.
	now := a.periods.Now()
	for _, day := range days {
		total, err := a.store.GetDailyTotal(ctx, day)
		if err != nil {
			return 0, fmt.Errorf("read daily total %s: %w", day, err)
		}
		if total == nil {
			total = &domain.DailyTotal{Date: day}
		}

		changed := false
		for _, r := range byDay[day] {
			if total.Contains(r.ID) {
				continue
			}
			total.Total = total.Total.Add(r.Amount)
			total.SourceIDs = append(total.SourceIDs, r.ID)
			changed = true
		}
		if !changed {
			continue
		}
		total.UpdatedAt = now
		if err := a.store.SaveDailyTotal(ctx, *total); err != nil {
			return 0, fmt.Errorf("save daily total %s: %w", day, err)
		}
	}

	// Phase two: remove sources.
	for _, r := range batch {
		if err := a.store.DeleteRecord(ctx, r.ID); err != nil {
			return 0, fmt.Errorf("delete archived record %d: %w", r.ID, err)
		}
	}
	return len(batch), nil
}
