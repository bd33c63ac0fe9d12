package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

// maxLineBytes bounds a single JSONL record. Character sheets with large
// quest maps fit comfortably; anything bigger is a malformed feed.
const maxLineBytes = 1 << 20

type wireActor struct {
	Player       bool     `json:"player"`
	Entry        uint64   `json:"entry"`
	CreatureType uint64   `json:"creature_type"`
	Class        uint64   `json:"class"`
	Race         uint64   `json:"race"`
	Level        uint64   `json:"level"`
	HealthPct    uint64   `json:"health_pct"`
	Dead         bool     `json:"dead"`
	Enemy        bool     `json:"enemy"`
	Auras        []uint64 `json:"auras"`
	Zone         uint64   `json:"zone"`
	Area         uint64   `json:"area"`
}

type wireSheet struct {
	AchievementPoints uint64            `json:"achievement_points"`
	HonorLevel        uint64            `json:"honor_level"`
	TitleBits         map[uint64]bool   `json:"title_bits"`
	Reputations       map[uint64]int64  `json:"reputations"`
	GuildReputation   int64             `json:"guild_reputation"`
	Skills            map[uint64]uint64 `json:"skills"`
	KnownSpells       map[uint64]bool   `json:"known_spells"`
	Items             map[uint64]uint64 `json:"items"`
	Currencies        map[uint64]uint64 `json:"currencies"`
	ActiveQuests      map[uint64]bool   `json:"active_quests"`
	CompletedQuests   map[uint64]bool   `json:"completed_quests"`
	RewardedQuests    map[uint64]bool   `json:"rewarded_quests"`
	ExploredAreas     map[uint64]bool   `json:"explored_areas"`
	Achievements      map[uint64]bool   `json:"achievements"`
}

type wireSubject struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Faction string `json:"faction"`
}

type wireEvent struct {
	Subject    wireSubject `json:"subject"`
	Kind       string      `json:"kind"`
	Asset      uint64      `json:"asset"`
	Value      uint64      `json:"value"`
	Source     *wireActor  `json:"source"`
	Target     *wireActor  `json:"target"`
	Sheet      *wireSheet  `json:"sheet"`
	Map        uint64      `json:"map"`
	Difficulty uint64      `json:"difficulty"`
	ArenaType  uint64      `json:"arena_type"`
	GroupSize  uint64      `json:"group_size"`
	InGroup    bool        `json:"in_group"`
	Timestamp  time.Time   `json:"timestamp"`
}

// SourceEvent is one decoded feed record with its subject's faction, which
// the engine needs at attach time rather than per event.
type SourceEvent struct {
	Event   event.Event
	Faction event.Faction
}

// ReadEvents decodes a JSONL event feed and calls handle for each record in
// order. Decoding stops on the first malformed line.
func ReadEvents(r io.Reader, handle func(SourceEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal([]byte(raw), &we); err != nil {
			return fmt.Errorf("line %d: decode event: %w", line, err)
		}
		se, err := buildEvent(we)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := handle(se); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event feed: %w", err)
	}
	return nil
}

func buildEvent(we wireEvent) (SourceEvent, error) {
	var se SourceEvent

	kind, ok := criteria.ParseType(we.Kind)
	if !ok {
		return se, fmt.Errorf("unknown event kind %q", we.Kind)
	}

	subjectKind, err := parseSubjectKind(we.Subject.Kind)
	if err != nil {
		return se, err
	}
	if strings.TrimSpace(we.Subject.ID) == "" {
		return se, fmt.Errorf("subject id is required")
	}

	faction, err := parseFaction(we.Subject.Faction)
	if err != nil {
		return se, err
	}

	se.Faction = faction
	se.Event = event.Event{
		Subject:    event.Subject{Kind: subjectKind, ID: we.Subject.ID},
		Kind:       kind,
		Asset:      we.Asset,
		Value:      we.Value,
		Source:     buildActor(we.Source),
		Target:     buildActor(we.Target),
		Sheet:      buildSheet(we.Sheet),
		Map:        we.Map,
		Difficulty: we.Difficulty,
		ArenaType:  we.ArenaType,
		GroupSize:  we.GroupSize,
		InGroup:    we.InGroup,
		Timestamp:  we.Timestamp,
	}
	return se, nil
}

func parseSubjectKind(kind string) (event.SubjectKind, error) {
	switch kind {
	case string(event.SubjectPlayer):
		return event.SubjectPlayer, nil
	case string(event.SubjectAccount):
		return event.SubjectAccount, nil
	case string(event.SubjectGuild):
		return event.SubjectGuild, nil
	default:
		return "", fmt.Errorf("unknown subject kind %q", kind)
	}
}

func parseFaction(faction string) (event.Faction, error) {
	switch faction {
	case "horde":
		return event.FactionHorde, nil
	case "alliance":
		return event.FactionAlliance, nil
	case "", "any":
		return event.FactionAny, nil
	default:
		return event.FactionAny, fmt.Errorf("unknown faction %q", faction)
	}
}

func buildActor(wa *wireActor) *event.Actor {
	if wa == nil {
		return nil
	}
	return &event.Actor{
		Player:       wa.Player,
		Entry:        wa.Entry,
		CreatureType: wa.CreatureType,
		Class:        wa.Class,
		Race:         wa.Race,
		Level:        wa.Level,
		HealthPct:    wa.HealthPct,
		Dead:         wa.Dead,
		Enemy:        wa.Enemy,
		Auras:        wa.Auras,
		Zone:         wa.Zone,
		Area:         wa.Area,
	}
}

func buildSheet(ws *wireSheet) *event.Sheet {
	if ws == nil {
		return nil
	}
	return &event.Sheet{
		AchievementPoints: ws.AchievementPoints,
		HonorLevel:        ws.HonorLevel,
		TitleBits:         ws.TitleBits,
		Reputations:       ws.Reputations,
		GuildReputation:   ws.GuildReputation,
		Skills:            ws.Skills,
		KnownSpells:       ws.KnownSpells,
		Items:             ws.Items,
		Currencies:        ws.Currencies,
		ActiveQuests:      ws.ActiveQuests,
		CompletedQuests:   ws.CompletedQuests,
		RewardedQuests:    ws.RewardedQuests,
		ExploredAreas:     ws.ExploredAreas,
		Achievements:      ws.Achievements,
	}
}
