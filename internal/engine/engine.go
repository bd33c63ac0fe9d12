// Package engine drives criterion progress updates and criteria tree
// aggregation. Subjects are attached explicitly; each subject's updates run
// inside its own critical section, and completion transitions are returned
// to the caller rather than dispatched through callbacks.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
	"github.com/wergy/milestone/internal/matcher"
	"github.com/wergy/milestone/internal/progress"
	"github.com/wergy/milestone/internal/storage"
)

// Completion is one incomplete-to-complete transition of a tree node,
// emitted exactly once per transition. The consumer grants rewards and
// notifies clients; the engine knows nothing of reward contents.
type Completion struct {
	Subject event.Subject
	NodeID  uint32
	At      time.Time
}

// Engine evaluates events against the loaded definitions for every attached
// subject. Safe for concurrent use across subjects; updates for one subject
// are serialized by its session.
type Engine struct {
	defs    *criteria.Definitions
	match   *matcher.Matcher
	journal *progress.Journal
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[event.Subject]*Session
}

// New creates an engine over the validated definition tables.
func New(defs *criteria.Definitions, match *matcher.Matcher, journal *progress.Journal, logger *slog.Logger) (*Engine, error) {
	if defs == nil {
		return nil, fmt.Errorf("definitions are required")
	}
	if match == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if journal == nil {
		journal = progress.NewJournal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		defs:     defs,
		match:    match,
		journal:  journal,
		logger:   logger,
		sessions: make(map[event.Subject]*Session),
	}, nil
}

// Journal returns the engine's write-ahead change list.
func (e *Engine) Journal() *progress.Journal {
	return e.journal
}

// Attach creates (or returns) the session for a subject, seeding it from the
// persisted snapshot. Called once at subject login/creation.
func (e *Engine) Attach(subject event.Subject, faction event.Faction, snap storage.Snapshot) (*Session, error) {
	if subject.ID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if subject.Kind == "" {
		subject.Kind = event.SubjectPlayer
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[subject]; ok {
		return s, nil
	}
	s := newSession(e, subject, faction)
	s.restore(snap)
	e.sessions[subject] = s
	return s, nil
}

// Detach removes a subject session, dropping its active timed challenges.
// Accrued progress stays journaled; nothing else happens.
func (e *Engine) Detach(subject event.Subject) {
	e.mu.Lock()
	s, ok := e.sessions[subject]
	if ok {
		delete(e.sessions, subject)
	}
	e.mu.Unlock()
	if ok {
		s.dropTimers()
	}
}

// Session returns the attached session for a subject.
func (e *Engine) Session(subject event.Subject) (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[subject]
	return s, ok
}

// HandleEvent routes an event to its subject's session and returns the
// completion transitions it caused. Events for unattached subjects are an
// error; the caller decides whether to attach first.
func (e *Engine) HandleEvent(evt *event.Event) ([]Completion, error) {
	if evt == nil {
		return nil, fmt.Errorf("event is required")
	}
	s, ok := e.Session(evt.Subject)
	if !ok {
		return nil, fmt.Errorf("subject %s/%s is not attached", evt.Subject.Kind, evt.Subject.ID)
	}
	return s.HandleEvent(evt), nil
}

// Tick advances timed-challenge expiry for every attached subject. Expiry
// detection latency is bounded by the tick interval; deadlines are not
// tracked with per-challenge timers.
func (e *Engine) Tick(now time.Time) {
	e.mu.RLock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.RUnlock()

	for _, s := range sessions {
		s.tick(now)
	}
}

// ValidateTickInterval checks the configured expiry tick against the
// shortest timed window: detection latency must stay well under the
// smallest window or short challenges expire late.
func (e *Engine) ValidateTickInterval(tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	shortest := e.defs.ShortestTimedWindow()
	if shortest == 0 {
		return nil
	}
	if tick > shortest/10 {
		return fmt.Errorf("tick interval %s exceeds a tenth of the shortest timed window %s", tick, shortest)
	}
	return nil
}
