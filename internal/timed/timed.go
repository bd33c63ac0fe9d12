// Package timed tracks countdown windows for timed criteria. Each tracker
// belongs to one subject session; the engine serializes access.
package timed

import (
	"time"

	"github.com/google/uuid"

	"github.com/wergy/milestone/internal/criteria"
)

// Outcome is the terminal state of a timed challenge.
type Outcome uint8

const (
	// OutcomeSucceeded means the criterion reached its required amount
	// before the deadline.
	OutcomeSucceeded Outcome = iota
	// OutcomeFailed means an explicit fail condition fired.
	OutcomeFailed
	// OutcomeExpired means the deadline passed with the criterion
	// unsatisfied. A missed deadline is routine, not an error.
	OutcomeExpired
)

// Challenge is one active countdown window. A new instance is created for
// every start event; terminal outcomes destroy the instance.
type Challenge struct {
	ID          string
	CriterionID uint32
	StartAsset  uint64
	StartedAt   time.Time
	Deadline    time.Time
}

// Tracker manages the active challenges of one subject, keyed by criterion.
type Tracker struct {
	active map[uint32]*Challenge
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[uint32]*Challenge)}
}

// Start opens a window for the criterion. A start event while a window is
// already active replaces it with a fresh instance (re-entrant, new
// deadline). Returns the created challenge.
func (t *Tracker) Start(c *criteria.Criterion, startAsset uint64, now time.Time) *Challenge {
	ch := &Challenge{
		ID:          uuid.NewString(),
		CriterionID: c.ID,
		StartAsset:  startAsset,
		StartedAt:   now,
		Deadline:    now.Add(c.TimedWindow),
	}
	t.active[c.ID] = ch
	return ch
}

// Restore re-creates a persisted challenge at subject attach.
func (t *Tracker) Restore(ch Challenge) {
	restored := ch
	t.active[ch.CriterionID] = &restored
}

// Active returns the running challenge for the criterion, if any.
func (t *Tracker) Active(criterionID uint32) (*Challenge, bool) {
	ch, ok := t.active[criterionID]
	return ch, ok
}

// Resolve terminates the challenge for the criterion with the given outcome.
// Returns the closed challenge, or false when none was active.
func (t *Tracker) Resolve(criterionID uint32, _ Outcome) (*Challenge, bool) {
	ch, ok := t.active[criterionID]
	if !ok {
		return nil, false
	}
	delete(t.active, criterionID)
	return ch, true
}

// DropAll discards every active challenge, e.g. on subject detach. No other
// side effects; accrued progress is left untouched.
func (t *Tracker) DropAll() []*Challenge {
	out := make([]*Challenge, 0, len(t.active))
	for id, ch := range t.active {
		delete(t.active, id)
		out = append(out, ch)
	}
	return out
}

// All returns the active challenges, for snapshot persistence.
func (t *Tracker) All() []Challenge {
	out := make([]Challenge, 0, len(t.active))
	for _, ch := range t.active {
		out = append(out, *ch)
	}
	return out
}
