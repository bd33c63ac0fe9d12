// Package event defines the discrete game events the engine consumes. Events
// are facts produced by the world simulation; the engine never generates
// them. Ordering is guaranteed per subject only.
package event

import (
	"time"

	"github.com/wergy/milestone/internal/criteria"
)

// SubjectKind identifies which scope of progress a subject tracks.
type SubjectKind string

const (
	// SubjectPlayer tracks a single character's progress.
	SubjectPlayer SubjectKind = "player"
	// SubjectAccount tracks account-wide progress shared by characters.
	SubjectAccount SubjectKind = "account"
	// SubjectGuild tracks guild-wide aggregate progress.
	SubjectGuild SubjectKind = "guild"
)

// Scope returns the criterion scope bit for the subject kind.
func (k SubjectKind) Scope() criteria.ScopeFlags {
	switch k {
	case SubjectAccount:
		return criteria.ScopeAccount
	case SubjectGuild:
		return criteria.ScopeGuild
	default:
		return criteria.ScopePlayer
	}
}

// Subject identifies the entity whose progress an event updates.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Faction is the subject's faction, used by faction-restricted tree nodes.
type Faction int8

const (
	FactionHorde    Faction = 0
	FactionAlliance Faction = 1
	FactionAny      Faction = -1
)

// Actor describes the source or target of an event as seen at the moment the
// event fired. Zero values mean "unknown"; predicates over unknown fields do
// not match.
type Actor struct {
	Player       bool
	Entry        uint64
	CreatureType uint64
	Class        uint64
	Race         uint64
	Level        uint64
	HealthPct    uint64
	Dead         bool
	Enemy        bool
	Auras        []uint64
	Zone         uint64
	Area         uint64
}

// HasAura reports whether the actor carries the given aura.
func (a *Actor) HasAura(spellID uint64) bool {
	if a == nil {
		return false
	}
	for _, id := range a.Auras {
		if id == spellID {
			return true
		}
	}
	return false
}

// Sheet carries the slow-changing character-sheet facts qualifier predicates
// read: reputation standings, quest log, known spells, owned items. The
// world simulation snapshots these onto the event; the engine never queries
// the simulation back.
type Sheet struct {
	AchievementPoints uint64
	HonorLevel        uint64
	TitleBits         map[uint64]bool
	Reputations       map[uint64]int64
	GuildReputation   int64
	Skills            map[uint64]uint64
	KnownSpells       map[uint64]bool
	Items             map[uint64]uint64
	Currencies        map[uint64]uint64
	ActiveQuests      map[uint64]bool
	CompletedQuests   map[uint64]bool
	RewardedQuests    map[uint64]bool
	ExploredAreas     map[uint64]bool
	Achievements      map[uint64]bool
}

// Event is one discrete game-event notification.
type Event struct {
	Subject    Subject
	Kind       criteria.Type
	Asset      uint64
	Value      uint64
	Source     *Actor
	Target     *Actor
	Sheet      *Sheet
	Map        uint64
	Difficulty uint64
	ArenaType  uint64
	GroupSize  uint64
	InGroup    bool
	Timestamp  time.Time
}

// Facts flattens the event into the variable map scripted conditions
// evaluate against.
func (e *Event) Facts() map[string]any {
	facts := map[string]any{
		"kind":       uint64(e.Kind),
		"asset":      e.Asset,
		"value":      e.Value,
		"map":        e.Map,
		"difficulty": e.Difficulty,
		"group_size": e.GroupSize,
		"in_group":   e.InGroup,
	}
	facts["source"] = actorFacts(e.Source)
	facts["target"] = actorFacts(e.Target)
	return facts
}

func actorFacts(a *Actor) map[string]any {
	if a == nil {
		return map[string]any{}
	}
	return map[string]any{
		"player":        a.Player,
		"entry":         a.Entry,
		"creature_type": a.CreatureType,
		"class":         a.Class,
		"race":          a.Race,
		"level":         a.Level,
		"health_pct":    a.HealthPct,
		"dead":          a.Dead,
		"enemy":         a.Enemy,
		"zone":          a.Zone,
		"area":          a.Area,
	}
}
