// Package sqlite provides a SQLite-backed snapshot store for subject
// progress, completions and active timed challenges.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wergy/milestone/internal/platform/storage/sqlitemigrate"
	"github.com/wergy/milestone/internal/storage"
	"github.com/wergy/milestone/internal/storage/sqlite/migrations"
)

// Store persists subject snapshots in a single SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// LoadSnapshot returns every persisted row for one subject. A subject with
// no rows yields an empty snapshot, not an error.
func (s *Store) LoadSnapshot(ctx context.Context, subjectKind, subjectID string) (storage.Snapshot, error) {
	var snap storage.Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	if s == nil || s.sqlDB == nil {
		return snap, fmt.Errorf("storage is not configured")
	}
	subjectKind = strings.TrimSpace(subjectKind)
	subjectID = strings.TrimSpace(subjectID)
	if subjectKind == "" {
		return snap, fmt.Errorf("subject kind is required")
	}
	if subjectID == "" {
		return snap, fmt.Errorf("subject id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT criterion_id, counter, updated_at
FROM criteria_progress
WHERE subject_kind = ? AND subject_id = ?
ORDER BY criterion_id`, subjectKind, subjectID)
	if err != nil {
		return snap, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		row := storage.ProgressRow{SubjectKind: subjectKind, SubjectID: subjectID}
		var updatedAt int64
		if err := rows.Scan(&row.CriterionID, &row.Counter, &updatedAt); err != nil {
			return snap, fmt.Errorf("scan progress row: %w", err)
		}
		row.UpdatedAt = fromMillis(updatedAt)
		snap.Progress = append(snap.Progress, row)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate progress rows: %w", err)
	}

	compRows, err := s.sqlDB.QueryContext(ctx, `
SELECT node_id, completed_at
FROM tree_completions
WHERE subject_kind = ? AND subject_id = ?
ORDER BY node_id`, subjectKind, subjectID)
	if err != nil {
		return snap, fmt.Errorf("query completions: %w", err)
	}
	defer compRows.Close()
	for compRows.Next() {
		row := storage.CompletionRow{SubjectKind: subjectKind, SubjectID: subjectID}
		var completedAt int64
		if err := compRows.Scan(&row.NodeID, &completedAt); err != nil {
			return snap, fmt.Errorf("scan completion row: %w", err)
		}
		row.CompletedAt = fromMillis(completedAt)
		snap.Completions = append(snap.Completions, row)
	}
	if err := compRows.Err(); err != nil {
		return snap, fmt.Errorf("iterate completion rows: %w", err)
	}

	timerRows, err := s.sqlDB.QueryContext(ctx, `
SELECT challenge_id, criterion_id, start_asset, started_at, deadline
FROM timed_challenges
WHERE subject_kind = ? AND subject_id = ?
ORDER BY challenge_id`, subjectKind, subjectID)
	if err != nil {
		return snap, fmt.Errorf("query timers: %w", err)
	}
	defer timerRows.Close()
	for timerRows.Next() {
		row := storage.TimerRow{SubjectKind: subjectKind, SubjectID: subjectID}
		var startedAt, deadline int64
		if err := timerRows.Scan(&row.ChallengeID, &row.CriterionID, &row.StartAsset, &startedAt, &deadline); err != nil {
			return snap, fmt.Errorf("scan timer row: %w", err)
		}
		row.StartedAt = fromMillis(startedAt)
		row.Deadline = fromMillis(deadline)
		snap.Timers = append(snap.Timers, row)
	}
	if err := timerRows.Err(); err != nil {
		return snap, fmt.Errorf("iterate timer rows: %w", err)
	}

	return snap, nil
}

// UpsertProgress writes counter rows, replacing any existing value for the
// same subject and criterion.
func (s *Store) UpsertProgress(ctx context.Context, rows []storage.ProgressRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin progress upsert: %w", err)
	}
	for _, row := range rows {
		if err := validateSubject(row.SubjectKind, row.SubjectID); err != nil {
			_ = tx.Rollback()
			return err
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO criteria_progress (subject_kind, subject_id, criterion_id, counter, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (subject_kind, subject_id, criterion_id)
DO UPDATE SET counter = excluded.counter, updated_at = excluded.updated_at`,
			row.SubjectKind, row.SubjectID, row.CriterionID, row.Counter, toMillis(row.UpdatedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert progress %d: %w", row.CriterionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit progress upsert: %w", err)
	}
	return nil
}

// UpsertCompletions records completed tree nodes.
func (s *Store) UpsertCompletions(ctx context.Context, rows []storage.CompletionRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion upsert: %w", err)
	}
	for _, row := range rows {
		if err := validateSubject(row.SubjectKind, row.SubjectID); err != nil {
			_ = tx.Rollback()
			return err
		}
		if row.CompletedAt.IsZero() {
			row.CompletedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tree_completions (subject_kind, subject_id, node_id, completed_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (subject_kind, subject_id, node_id)
DO UPDATE SET completed_at = excluded.completed_at`,
			row.SubjectKind, row.SubjectID, row.NodeID, toMillis(row.CompletedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert completion %d: %w", row.NodeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion upsert: %w", err)
	}
	return nil
}

// DeleteCompletions removes revoked node completions.
func (s *Store) DeleteCompletions(ctx context.Context, rows []storage.CompletionRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion delete: %w", err)
	}
	for _, row := range rows {
		if err := validateSubject(row.SubjectKind, row.SubjectID); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `
DELETE FROM tree_completions
WHERE subject_kind = ? AND subject_id = ? AND node_id = ?`,
			row.SubjectKind, row.SubjectID, row.NodeID,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete completion %d: %w", row.NodeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion delete: %w", err)
	}
	return nil
}

// UpsertTimers records active timed challenges.
func (s *Store) UpsertTimers(ctx context.Context, rows []storage.TimerRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timer upsert: %w", err)
	}
	for _, row := range rows {
		if err := validateSubject(row.SubjectKind, row.SubjectID); err != nil {
			_ = tx.Rollback()
			return err
		}
		if strings.TrimSpace(row.ChallengeID) == "" {
			_ = tx.Rollback()
			return fmt.Errorf("challenge id is required")
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO timed_challenges (subject_kind, subject_id, challenge_id, criterion_id, start_asset, started_at, deadline)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (subject_kind, subject_id, challenge_id)
DO UPDATE SET criterion_id = excluded.criterion_id,
    start_asset = excluded.start_asset,
    started_at = excluded.started_at,
    deadline = excluded.deadline`,
			row.SubjectKind, row.SubjectID, row.ChallengeID, row.CriterionID,
			row.StartAsset, toMillis(row.StartedAt), toMillis(row.Deadline),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert timer %s: %w", row.ChallengeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timer upsert: %w", err)
	}
	return nil
}

// DeleteTimers removes resolved or expired challenges for one subject.
func (s *Store) DeleteTimers(ctx context.Context, subjectKind, subjectID string, challengeIDs []string) error {
	if len(challengeIDs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := validateSubject(subjectKind, subjectID); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timer delete: %w", err)
	}
	for _, id := range challengeIDs {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM timed_challenges
WHERE subject_kind = ? AND subject_id = ? AND challenge_id = ?`,
			subjectKind, subjectID, id,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete timer %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timer delete: %w", err)
	}
	return nil
}

func validateSubject(kind, id string) error {
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("subject kind is required")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("subject id is required")
	}
	return nil
}
