package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/wergy/milestone/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "milestone.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadSnapshotEmptySubject(t *testing.T) {
	store := openTestStore(t)
	snap, err := store.LoadSnapshot(context.Background(), "player", "p1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Progress) != 0 || len(snap.Completions) != 0 || len(snap.Timers) != 0 {
		t.Fatalf("snapshot for unknown subject = %+v, want empty", snap)
	}
}

func TestLoadSnapshotRequiresSubject(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.LoadSnapshot(context.Background(), "", "p1"); err == nil {
		t.Fatal("expected error for missing subject kind")
	}
	if _, err := store.LoadSnapshot(context.Background(), "player", " "); err == nil {
		t.Fatal("expected error for missing subject id")
	}
}

func TestProgressRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	rows := []storage.ProgressRow{
		{SubjectKind: "player", SubjectID: "p1", CriterionID: 1, Counter: 3, UpdatedAt: now},
		{SubjectKind: "player", SubjectID: "p1", CriterionID: 2, Counter: 7, UpdatedAt: now},
		{SubjectKind: "player", SubjectID: "p2", CriterionID: 1, Counter: 9, UpdatedAt: now},
	}
	if err := store.UpsertProgress(ctx, rows); err != nil {
		t.Fatalf("upsert progress: %v", err)
	}

	snap, err := store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Progress) != 2 {
		t.Fatalf("progress rows = %d, want 2", len(snap.Progress))
	}
	if snap.Progress[0].CriterionID != 1 || snap.Progress[0].Counter != 3 {
		t.Fatalf("row 0 = %+v, want criterion 1 counter 3", snap.Progress[0])
	}
	if !snap.Progress[0].UpdatedAt.Equal(now) {
		t.Fatalf("updated at = %v, want %v", snap.Progress[0].UpdatedAt, now)
	}

	// A replayed write for the same key overwrites, never duplicates.
	rows[0].Counter = 4
	if err := store.UpsertProgress(ctx, rows[:1]); err != nil {
		t.Fatalf("re-upsert progress: %v", err)
	}
	snap, err = store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if len(snap.Progress) != 2 || snap.Progress[0].Counter != 4 {
		t.Fatalf("after re-upsert rows = %+v, want counter 4 and no duplicate", snap.Progress)
	}
}

func TestCompletionsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	rows := []storage.CompletionRow{
		{SubjectKind: "player", SubjectID: "p1", NodeID: 10, CompletedAt: now},
		{SubjectKind: "player", SubjectID: "p1", NodeID: 12, CompletedAt: now},
	}
	if err := store.UpsertCompletions(ctx, rows); err != nil {
		t.Fatalf("upsert completions: %v", err)
	}
	if err := store.UpsertCompletions(ctx, rows); err != nil {
		t.Fatalf("replayed upsert completions: %v", err)
	}

	snap, err := store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Completions) != 2 {
		t.Fatalf("completion rows = %d, want 2", len(snap.Completions))
	}
	if snap.Completions[0].NodeID != 10 || snap.Completions[1].NodeID != 12 {
		t.Fatalf("completions = %+v, want nodes 10 and 12", snap.Completions)
	}

	if err := store.DeleteCompletions(ctx, rows[:1]); err != nil {
		t.Fatalf("delete completion: %v", err)
	}
	snap, err = store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if len(snap.Completions) != 1 || snap.Completions[0].NodeID != 12 {
		t.Fatalf("after delete = %+v, want node 12 only", snap.Completions)
	}

	// Deleting an absent row is a no-op.
	if err := store.DeleteCompletions(ctx, rows[:1]); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
}

func TestTimersRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	rows := []storage.TimerRow{
		{
			SubjectKind: "player", SubjectID: "p1", ChallengeID: "ch-1",
			CriterionID: 1, StartAsset: 42,
			StartedAt: started, Deadline: started.Add(5 * time.Minute),
		},
		{
			SubjectKind: "player", SubjectID: "p1", ChallengeID: "ch-2",
			CriterionID: 2, StartAsset: 7,
			StartedAt: started, Deadline: started.Add(time.Minute),
		},
	}
	if err := store.UpsertTimers(ctx, rows); err != nil {
		t.Fatalf("upsert timers: %v", err)
	}

	snap, err := store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Timers) != 2 {
		t.Fatalf("timer rows = %d, want 2", len(snap.Timers))
	}
	got := snap.Timers[0]
	if got.ChallengeID != "ch-1" || got.CriterionID != 1 || got.StartAsset != 42 {
		t.Fatalf("timer row = %+v, want ch-1 for criterion 1", got)
	}
	if !got.Deadline.Equal(started.Add(5 * time.Minute)) {
		t.Fatalf("deadline = %v, want %v", got.Deadline, started.Add(5*time.Minute))
	}

	if err := store.DeleteTimers(ctx, "player", "p1", []string{"ch-1"}); err != nil {
		t.Fatalf("delete timer: %v", err)
	}
	snap, err = store.LoadSnapshot(ctx, "player", "p1")
	if err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if len(snap.Timers) != 1 || snap.Timers[0].ChallengeID != "ch-2" {
		t.Fatalf("after delete = %+v, want ch-2 only", snap.Timers)
	}
}

func TestUpsertTimersRequiresChallengeID(t *testing.T) {
	store := openTestStore(t)
	rows := []storage.TimerRow{{SubjectKind: "player", SubjectID: "p1"}}
	if err := store.UpsertTimers(context.Background(), rows); err == nil {
		t.Fatal("expected error for empty challenge id")
	}
}

func TestWritesRejectEmptySubject(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.UpsertProgress(ctx, []storage.ProgressRow{{SubjectID: "p1"}}); err == nil {
		t.Fatal("expected error for missing subject kind")
	}
	if err := store.UpsertCompletions(ctx, []storage.CompletionRow{{SubjectKind: "player"}}); err == nil {
		t.Fatal("expected error for missing subject id")
	}
	if err := store.DeleteTimers(ctx, "", "p1", []string{"ch-1"}); err == nil {
		t.Fatal("expected error for missing subject kind")
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if _, err := store.LoadSnapshot(context.Background(), "player", "p1"); err == nil {
		t.Fatal("expected error for unconfigured storage")
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "milestone.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	rows := []storage.ProgressRow{{
		SubjectKind: "player", SubjectID: "p1", CriterionID: 1, Counter: 5,
		UpdatedAt: time.Now().UTC(),
	}}
	if err := store.UpsertProgress(context.Background(), rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	snap, err := reopened.LoadSnapshot(context.Background(), "player", "p1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if len(snap.Progress) != 1 || snap.Progress[0].Counter != 5 {
		t.Fatalf("snapshot after reopen = %+v, want counter 5", snap.Progress)
	}
}
