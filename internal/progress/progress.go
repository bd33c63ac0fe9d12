// Package progress holds per-subject criterion counters and tree completion
// records, and journals every mutation for asynchronous persistence. A Store
// is owned by exactly one subject session; it is not safe for concurrent use
// on its own.
package progress

import (
	"math"
	"time"

	"github.com/wergy/milestone/internal/criteria"
)

// Mode selects how a delta is applied to a criterion counter.
type Mode uint8

const (
	// ModeSet overwrites the counter unconditionally.
	ModeSet Mode = iota
	// ModeAccumulate adds the delta with saturating arithmetic.
	ModeAccumulate
	// ModeHighest keeps the larger of counter and delta.
	ModeHighest
)

// ModeFor returns the accumulation rule for a criterion type. High-water
// types keep their best value, level/rating types are absolute, everything
// else counts up.
func ModeFor(t criteria.Type) Mode {
	switch t {
	case criteria.TypeReachLevel, criteria.TypeReachSkillLevel,
		criteria.TypeHighestPersonalRating, criteria.TypeCurrency,
		criteria.TypeGainReputation, criteria.TypeHonorLevelReached:
		return ModeSet
	case criteria.TypeHighestHitDealt, criteria.TypeHighestHitReceived,
		criteria.TypeHighestHealCast, criteria.TypeHighestHealingReceived,
		criteria.TypeHighestAuctionBid, criteria.TypeHighestAuctionSold,
		criteria.TypeHighestGoldValueOwned:
		return ModeHighest
	default:
		return ModeAccumulate
	}
}

// Record is the accrued progress of one criterion for one subject.
type Record struct {
	CriterionID uint32
	Counter     uint64
	UpdatedAt   time.Time
	// Seq is the journal sequence of the last applied change, used to
	// deduplicate accumulate replays.
	Seq uint64
}

// TreeCompletion marks a tree node completed for one subject. Completion is
// monotonic outside explicit resets.
type TreeCompletion struct {
	NodeID      uint32
	CompletedAt time.Time
}

// Store is one subject's progress state.
type Store struct {
	subjectKind string
	subjectID   string
	records     map[uint32]*Record
	completions map[uint32]*TreeCompletion
	journal     *Journal
}

// NewStore creates an empty store for the subject, journaling into journal.
// A nil journal disables change capture (used by replay).
func NewStore(journal *Journal, subjectKind, subjectID string) *Store {
	return &Store{
		subjectKind: subjectKind,
		subjectID:   subjectID,
		records:     make(map[uint32]*Record),
		completions: make(map[uint32]*TreeCompletion),
		journal:     journal,
	}
}

// Counter returns the accrued counter for a criterion, zero when absent.
func (s *Store) Counter(criterionID uint32) uint64 {
	if rec, ok := s.records[criterionID]; ok {
		return rec.Counter
	}
	return 0
}

// Record applies delta under the given mode and reports the new counter and
// whether it changed. Idempotent applications (Set to the same value, a
// smaller Highest) report changed=false so callers can skip tree walks.
func (s *Store) Record(criterionID uint32, delta uint64, mode Mode, now time.Time) (uint64, bool) {
	rec, ok := s.records[criterionID]
	if !ok {
		rec = &Record{CriterionID: criterionID}
		s.records[criterionID] = rec
	}

	next := rec.Counter
	switch mode {
	case ModeSet:
		next = delta
	case ModeAccumulate:
		next = saturatingAdd(rec.Counter, delta)
	case ModeHighest:
		if delta > rec.Counter {
			next = delta
		}
	}
	if ok && next == rec.Counter {
		return rec.Counter, false
	}

	rec.Counter = next
	rec.UpdatedAt = now
	rec.Seq = s.append(Change{
		Kind:        ChangeProgress,
		CriterionID: criterionID,
		Counter:     next,
		At:          now,
	})
	return next, true
}

// Reset zeroes a criterion counter. Reports whether anything was cleared.
func (s *Store) Reset(criterionID uint32, now time.Time) bool {
	rec, ok := s.records[criterionID]
	if !ok || rec.Counter == 0 {
		return false
	}
	rec.Counter = 0
	rec.UpdatedAt = now
	rec.Seq = s.append(Change{
		Kind:        ChangeProgress,
		CriterionID: criterionID,
		Counter:     0,
		At:          now,
	})
	return true
}

// Completed reports whether a tree node is marked complete.
func (s *Store) Completed(nodeID uint32) bool {
	_, ok := s.completions[nodeID]
	return ok
}

// CompletedAt returns the completion timestamp of a node.
func (s *Store) CompletedAt(nodeID uint32) (time.Time, bool) {
	c, ok := s.completions[nodeID]
	if !ok {
		return time.Time{}, false
	}
	return c.CompletedAt, true
}

// Complete marks a node complete. Reports false when it already was; the
// caller verifies the node predicate before calling.
func (s *Store) Complete(nodeID uint32, now time.Time) bool {
	if _, ok := s.completions[nodeID]; ok {
		return false
	}
	s.completions[nodeID] = &TreeCompletion{NodeID: nodeID, CompletedAt: now}
	s.append(Change{
		Kind:   ChangeCompletion,
		NodeID: nodeID,
		At:     now,
	})
	return true
}

// Uncomplete clears a node's completion as part of an explicit reset.
func (s *Store) Uncomplete(nodeID uint32, now time.Time) bool {
	if _, ok := s.completions[nodeID]; !ok {
		return false
	}
	delete(s.completions, nodeID)
	s.append(Change{
		Kind:   ChangeCompletionCleared,
		NodeID: nodeID,
		At:     now,
	})
	return true
}

// ApplyChange replays a journaled change onto the store, deduplicating by
// sequence number: a change at or below the record's last applied sequence
// is ignored. Used when rebuilding state from an at-least-once change feed.
func (s *Store) ApplyChange(ch Change) {
	switch ch.Kind {
	case ChangeProgress:
		rec, ok := s.records[ch.CriterionID]
		if !ok {
			rec = &Record{CriterionID: ch.CriterionID}
			s.records[ch.CriterionID] = rec
		}
		if ch.Seq != 0 && ch.Seq <= rec.Seq {
			return
		}
		rec.Counter = ch.Counter
		rec.UpdatedAt = ch.At
		rec.Seq = ch.Seq
	case ChangeCompletion:
		if _, ok := s.completions[ch.NodeID]; !ok {
			s.completions[ch.NodeID] = &TreeCompletion{NodeID: ch.NodeID, CompletedAt: ch.At}
		}
	case ChangeCompletionCleared:
		delete(s.completions, ch.NodeID)
	}
}

// LoadRecord seeds a counter from a persisted snapshot row.
func (s *Store) LoadRecord(criterionID uint32, counter uint64, updatedAt time.Time) {
	s.records[criterionID] = &Record{CriterionID: criterionID, Counter: counter, UpdatedAt: updatedAt}
}

// LoadCompletion seeds a completion from a persisted snapshot row.
func (s *Store) LoadCompletion(nodeID uint32, completedAt time.Time) {
	s.completions[nodeID] = &TreeCompletion{NodeID: nodeID, CompletedAt: completedAt}
}

// Records returns a copy of all progress records.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// Completions returns a copy of all completion records.
func (s *Store) Completions() []TreeCompletion {
	out := make([]TreeCompletion, 0, len(s.completions))
	for _, c := range s.completions {
		out = append(out, *c)
	}
	return out
}

// append stamps the subject onto the change and journals it. Returns zero
// when journaling is disabled.
func (s *Store) append(ch Change) uint64 {
	if s.journal == nil {
		return 0
	}
	ch.SubjectKind = s.subjectKind
	ch.SubjectID = s.subjectID
	return s.journal.Append(ch)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
