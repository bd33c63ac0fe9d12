// Package storage defines the persistence boundary for subject progress
// snapshots. The engine emits upsert rows through an asynchronous flusher
// and loads a snapshot once per subject attach; implementations own
// durability and retries.
package storage

import (
	"context"
	"time"
)

// ProgressRow is the persisted counter of one criterion for one subject.
type ProgressRow struct {
	SubjectKind string
	SubjectID   string
	CriterionID uint32
	Counter     uint64
	UpdatedAt   time.Time
}

// CompletionRow is the persisted completion of one tree node for one subject.
type CompletionRow struct {
	SubjectKind string
	SubjectID   string
	NodeID      uint32
	CompletedAt time.Time
}

// TimerRow is one persisted active timed challenge.
type TimerRow struct {
	SubjectKind string
	SubjectID   string
	ChallengeID string
	CriterionID uint32
	StartAsset  uint64
	StartedAt   time.Time
	Deadline    time.Time
}

// Snapshot is the full persisted state of one subject, consumed once at
// attach time.
type Snapshot struct {
	Progress    []ProgressRow
	Completions []CompletionRow
	Timers      []TimerRow
}

// SnapshotStore persists and restores subject progress. Writes must be
// idempotent upserts keyed on (subject, criterion) or (subject, node):
// the flusher delivers at least once.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, subjectKind, subjectID string) (Snapshot, error)
	UpsertProgress(ctx context.Context, rows []ProgressRow) error
	UpsertCompletions(ctx context.Context, rows []CompletionRow) error
	DeleteCompletions(ctx context.Context, rows []CompletionRow) error
	UpsertTimers(ctx context.Context, rows []TimerRow) error
	DeleteTimers(ctx context.Context, subjectKind, subjectID string, challengeIDs []string) error
	Close() error
}
