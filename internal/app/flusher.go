package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wergy/milestone/internal/progress"
	"github.com/wergy/milestone/internal/storage"
)

// Flusher drains the engine's change journal and persists it through the
// snapshot store. Delivery is at least once: a failed batch is requeued and
// retried on the next interval, so store writes must stay idempotent.
type Flusher struct {
	journal  *progress.Journal
	store    storage.SnapshotStore
	logger   *slog.Logger
	interval time.Duration
}

// NewFlusher wires a flusher to a journal and store.
func NewFlusher(journal *progress.Journal, store storage.SnapshotStore, interval time.Duration, logger *slog.Logger) (*Flusher, error) {
	if journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{journal: journal, store: store, logger: logger, interval: interval}, nil
}

// Run flushes on a fixed interval until ctx is done, then performs one final
// flush so no acknowledged change is lost on clean shutdown.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := f.Flush(context.Background()); err != nil {
				f.logger.Error("final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil {
				f.logger.Warn("flush failed, batch requeued", "error", err)
			}
		}
	}
}

// Flush drains pending changes and writes them out. On error the whole batch
// is requeued; sequence numbers keep the eventual replay idempotent.
func (f *Flusher) Flush(ctx context.Context) error {
	batch := f.journal.Drain()
	if len(batch.Changes) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "journal.flush", trace.WithAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.Int("batch.changes", len(batch.Changes)),
	))
	defer span.End()

	if err := f.apply(ctx, batch.Changes); err != nil {
		span.RecordError(err)
		f.journal.Requeue(batch)
		return fmt.Errorf("apply batch %s: %w", batch.ID, err)
	}
	return nil
}

// apply writes changes in journal order, batching consecutive runs of the
// same kind into one store call. Order matters: a completion followed by its
// revocation must not be reordered.
func (f *Flusher) apply(ctx context.Context, changes []progress.Change) error {
	for start := 0; start < len(changes); {
		end := start + 1
		for end < len(changes) && changes[end].Kind == changes[start].Kind {
			end++
		}
		run := changes[start:end]
		if err := f.applyRun(ctx, run); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func (f *Flusher) applyRun(ctx context.Context, run []progress.Change) error {
	switch run[0].Kind {
	case progress.ChangeProgress:
		rows := make([]storage.ProgressRow, 0, len(run))
		for _, ch := range run {
			rows = append(rows, storage.ProgressRow{
				SubjectKind: ch.SubjectKind,
				SubjectID:   ch.SubjectID,
				CriterionID: ch.CriterionID,
				Counter:     ch.Counter,
				UpdatedAt:   ch.At,
			})
		}
		return f.store.UpsertProgress(ctx, rows)
	case progress.ChangeCompletion:
		rows := make([]storage.CompletionRow, 0, len(run))
		for _, ch := range run {
			rows = append(rows, storage.CompletionRow{
				SubjectKind: ch.SubjectKind,
				SubjectID:   ch.SubjectID,
				NodeID:      ch.NodeID,
				CompletedAt: ch.At,
			})
		}
		return f.store.UpsertCompletions(ctx, rows)
	case progress.ChangeCompletionCleared:
		rows := make([]storage.CompletionRow, 0, len(run))
		for _, ch := range run {
			rows = append(rows, storage.CompletionRow{
				SubjectKind: ch.SubjectKind,
				SubjectID:   ch.SubjectID,
				NodeID:      ch.NodeID,
			})
		}
		return f.store.DeleteCompletions(ctx, rows)
	case progress.ChangeTimerStarted:
		rows := make([]storage.TimerRow, 0, len(run))
		for _, ch := range run {
			rows = append(rows, storage.TimerRow{
				SubjectKind: ch.SubjectKind,
				SubjectID:   ch.SubjectID,
				ChallengeID: ch.ChallengeID,
				CriterionID: ch.CriterionID,
				StartAsset:  ch.StartAsset,
				StartedAt:   ch.At,
				Deadline:    ch.Deadline,
			})
		}
		return f.store.UpsertTimers(ctx, rows)
	case progress.ChangeTimerCleared:
		for _, ch := range run {
			if err := f.store.DeleteTimers(ctx, ch.SubjectKind, ch.SubjectID, []string{ch.ChallengeID}); err != nil {
				return err
			}
		}
		return nil
	default:
		f.logger.Warn("unknown change kind dropped", "kind", run[0].Kind)
		return nil
	}
}
