package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
	"github.com/wergy/milestone/internal/progress"
	"github.com/wergy/milestone/internal/storage"
	"github.com/wergy/milestone/internal/timed"
)

// Session is one subject's serialization domain: progress mutations and tree
// propagation for the subject happen under its lock, so aggregation always
// reads a consistent snapshot of sibling values.
type Session struct {
	engine  *Engine
	subject event.Subject
	faction event.Faction

	mu     sync.Mutex
	store  *progress.Store
	timers *timed.Tracker
}

func newSession(e *Engine, subject event.Subject, faction event.Faction) *Session {
	return &Session{
		engine:  e,
		subject: subject,
		faction: faction,
		store:   progress.NewStore(e.journal, string(subject.Kind), subject.ID),
		timers:  timed.NewTracker(),
	}
}

// Subject returns the session's subject identity.
func (s *Session) Subject() event.Subject {
	return s.subject
}

// restore seeds the session from a persisted snapshot. Snapshot rows were
// journaled by a previous process lifetime; loading them does not journal
// again.
func (s *Session) restore(snap storage.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range snap.Progress {
		s.store.LoadRecord(row.CriterionID, row.Counter, row.UpdatedAt)
	}
	for _, row := range snap.Completions {
		s.store.LoadCompletion(row.NodeID, row.CompletedAt)
	}
	for _, row := range snap.Timers {
		if _, ok := s.engine.defs.Criterion(row.CriterionID); !ok {
			s.engine.logger.Warn("dropping persisted timer for unknown criterion",
				"criterion_id", row.CriterionID, "subject_id", s.subject.ID)
			continue
		}
		s.timers.Restore(timed.Challenge{
			ID:          row.ChallengeID,
			CriterionID: row.CriterionID,
			StartAsset:  row.StartAsset,
			StartedAt:   row.StartedAt,
			Deadline:    row.Deadline,
		})
	}
}

// HandleEvent updates every criterion the event matches and propagates the
// affected trees. Returns the node completion transitions, in propagation
// order.
func (s *Session) HandleEvent(evt *event.Event) []Completion {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := evt.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Some activities double as timer start events for timed criteria.
	if tt := timedTypeFor(evt.Kind); tt != criteria.TimedTypeNone {
		s.startTimersLocked(tt, evt.Asset, now)
	}

	var completions []Completion
	for _, c := range s.engine.defs.ByType(evt.Kind) {
		if !s.criterionInScope(c) {
			continue
		}
		if c.Timed() {
			// Timed criteria accrue only inside an open window. The event
			// clock decides expiry: a satisfying event at or past the
			// deadline must not sneak in ahead of the next tick.
			ch, active := s.timers.Active(c.ID)
			if !active {
				continue
			}
			if !ch.Deadline.After(now) {
				s.expireChallengeLocked(c, now)
				continue
			}
		}
		if !s.engine.match.Matches(evt, c) {
			continue
		}

		mode := progress.ModeFor(c.Type)
		delta := evt.Value
		if delta == 0 && mode == progress.ModeAccumulate {
			delta = 1
		}
		newValue, changed := s.store.Record(c.ID, delta, mode, now)
		if !changed {
			continue
		}
		completions = append(completions, s.propagateLocked(c.ID, now)...)

		if c.Timed() && s.criterionSatisfied(c, newValue) {
			if ch, ok := s.timers.Resolve(c.ID, timed.OutcomeSucceeded); ok {
				s.journalTimerCleared(ch, now)
			}
		}
	}
	return completions
}

// StartTimers opens timed windows for every timed criterion started by the
// given timer type and asset. Quest accepts, spell casts and scenario stage
// changes arrive through here when they are not criteria events themselves.
func (s *Session) StartTimers(tt criteria.TimedType, asset uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimersLocked(tt, asset, now)
}

func (s *Session) startTimersLocked(tt criteria.TimedType, asset uint64, now time.Time) {
	for _, c := range s.engine.defs.ByTimedType(tt) {
		if c.TimedAsset != 0 && c.TimedAsset != asset {
			continue
		}
		if !s.criterionInScope(c) {
			continue
		}
		if c.Flags.Has(criteria.FlagResetOnStart) {
			s.resetCriterionLocked(c, now)
		}
		if old, active := s.timers.Active(c.ID); active {
			s.journalTimerCleared(old, now)
		}
		ch := s.timers.Start(c, asset, now)
		s.engine.journal.Append(progress.Change{
			Kind:        progress.ChangeTimerStarted,
			SubjectKind: string(s.subject.Kind),
			SubjectID:   s.subject.ID,
			CriterionID: c.ID,
			ChallengeID: ch.ID,
			StartAsset:  ch.StartAsset,
			At:          now,
			Deadline:    ch.Deadline,
		})
	}
}

// FailTimers terminates active challenges whose criterion declares the given
// fail condition, e.g. ConditionNoDeath on a death event.
func (s *Session) FailTimers(cond criteria.Condition, asset uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.timers.All() {
		c, ok := s.engine.defs.Criterion(ch.CriterionID)
		if !ok || c.FailCondition != cond {
			continue
		}
		if c.FailAsset != 0 && c.FailAsset != asset {
			continue
		}
		if closed, ok := s.timers.Resolve(c.ID, timed.OutcomeFailed); ok {
			s.journalTimerCleared(closed, now)
			if c.Flags.Has(criteria.FlagResetOnStart) {
				s.resetCriterionLocked(c, now)
			}
		}
	}
}

// ResetCriterion zeroes a criterion's progress and revokes dependent node
// completions, e.g. when a tracked activity restarts.
func (s *Session) ResetCriterion(criterionID uint32, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.engine.defs.Criterion(criterionID); ok {
		s.resetCriterionLocked(c, now)
	}
}

// Progress returns the subject's counter for a criterion.
func (s *Session) Progress(criterionID uint32) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Counter(criterionID)
}

// NodeCompleted reports whether the subject has completed the tree node.
func (s *Session) NodeCompleted(nodeID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Completed(nodeID)
}

// ActiveChallenge returns the running timed challenge for a criterion.
func (s *Session) ActiveChallenge(criterionID uint32) (timed.Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.timers.Active(criterionID)
	if !ok {
		return timed.Challenge{}, false
	}
	return *ch, true
}

// tick expires overdue challenges. Expiry discards the timed context; accrued
// progress is reset only for criteria flagged to restart from zero.
func (s *Session) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.timers.All() {
		if ch.Deadline.After(now) {
			continue
		}
		c, ok := s.engine.defs.Criterion(ch.CriterionID)
		if !ok {
			if closed, resolved := s.timers.Resolve(ch.CriterionID, timed.OutcomeExpired); resolved {
				s.journalTimerCleared(closed, now)
			}
			continue
		}
		s.expireChallengeLocked(c, now)
	}
}

// expireChallengeLocked closes the criterion's window as missed, journals the
// clear and applies the reset-on-start zeroing.
func (s *Session) expireChallengeLocked(c *criteria.Criterion, now time.Time) {
	ch, ok := s.timers.Resolve(c.ID, timed.OutcomeExpired)
	if !ok {
		return
	}
	s.journalTimerCleared(ch, now)
	s.engine.logger.Debug("timed challenge expired",
		slog.Uint64("criterion_id", uint64(c.ID)),
		slog.String("subject_id", s.subject.ID))
	if c.Flags.Has(criteria.FlagResetOnStart) {
		s.resetCriterionLocked(c, now)
	}
}

// dropTimers discards all active challenges on detach.
func (s *Session) dropTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, ch := range s.timers.DropAll() {
		s.journalTimerCleared(ch, now)
	}
}

func (s *Session) journalTimerCleared(ch *timed.Challenge, now time.Time) {
	s.engine.journal.Append(progress.Change{
		Kind:        progress.ChangeTimerCleared,
		SubjectKind: string(s.subject.Kind),
		SubjectID:   s.subject.ID,
		CriterionID: ch.CriterionID,
		ChallengeID: ch.ID,
		At:          now,
	})
}

// criterionInScope reports whether the criterion applies to this subject
// kind. An unset scope means player-only.
func (s *Session) criterionInScope(c *criteria.Criterion) bool {
	scope := c.Scope
	if scope == 0 {
		scope = criteria.ScopePlayer
	}
	return scope.Has(s.subject.Kind.Scope())
}

// criterionSatisfied reports whether any leaf node referencing the criterion
// has reached its required amount, which settles timed challenges.
func (s *Session) criterionSatisfied(c *criteria.Criterion, counter uint64) bool {
	for _, leafID := range s.engine.defs.LeavesFor(c.ID) {
		node, ok := s.engine.defs.Node(leafID)
		if !ok {
			continue
		}
		if counter >= requiredAmount(node) {
			return true
		}
	}
	return false
}

// timedTypeFor maps criteria events that double as timer start events.
func timedTypeFor(t criteria.Type) criteria.TimedType {
	switch t {
	case criteria.TypeKillCreature:
		return criteria.TimedTypeCreature
	case criteria.TypeCastSpell:
		return criteria.TimedTypeSpellCaster
	case criteria.TypeBeSpellTarget:
		return criteria.TimedTypeSpellTarget
	case criteria.TypeUseItem:
		return criteria.TimedTypeItem
	case criteria.TypeSendEvent:
		return criteria.TimedTypeEvent
	default:
		return criteria.TimedTypeNone
	}
}
