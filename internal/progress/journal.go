package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeKind discriminates journal entries.
type ChangeKind uint8

const (
	// ChangeProgress records a new counter value for a criterion.
	ChangeProgress ChangeKind = iota
	// ChangeCompletion records a tree node completion.
	ChangeCompletion
	// ChangeCompletionCleared records an explicit completion reset.
	ChangeCompletionCleared
	// ChangeTimerStarted records a newly opened timed challenge.
	ChangeTimerStarted
	// ChangeTimerCleared records a terminated timed challenge.
	ChangeTimerCleared
)

// Change is one journaled mutation. The persistence collaborator consumes
// changes at least once; Seq makes accumulate replays idempotent.
type Change struct {
	Seq         uint64
	Kind        ChangeKind
	SubjectKind string
	SubjectID   string
	CriterionID uint32
	NodeID      uint32
	Counter     uint64
	At          time.Time

	// Timer fields, set for ChangeTimerStarted and ChangeTimerCleared.
	ChallengeID string
	StartAsset  uint64
	Deadline    time.Time
}

// Batch is a drained slice of changes with a stable identity, so a retried
// flush can be recognized downstream.
type Batch struct {
	ID      string
	Changes []Change
}

// Journal is the engine-wide write-ahead change list. Appends happen inside
// subject critical sections; draining happens on the flusher goroutine. The
// journal never blocks event processing on persistence.
type Journal struct {
	mu      sync.Mutex
	seq     uint64
	pending []Change
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append assigns the next sequence number to ch, queues it, and returns the
// assigned sequence.
func (j *Journal) Append(ch Change) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	ch.Seq = j.seq
	j.pending = append(j.pending, ch)
	return ch.Seq
}

// Drain removes and returns all pending changes as a batch. Returns a zero
// batch when nothing is pending.
func (j *Journal) Drain() Batch {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.pending) == 0 {
		return Batch{}
	}
	batch := Batch{ID: uuid.NewString(), Changes: j.pending}
	j.pending = nil
	return batch
}

// Requeue puts a failed batch back at the front of the pending list so the
// in-memory state stays authoritative until persistence succeeds.
func (j *Journal) Requeue(batch Batch) {
	if len(batch.Changes) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(batch.Changes, j.pending...)
}

// Pending returns the number of queued changes.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}
