package matcher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

func testMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	return m
}

func TestMatchesRequiresSameKind(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{ID: 1, Type: criteria.TypeKillCreature, Asset: 42}
	evt := &event.Event{Kind: criteria.TypeCompleteQuest, Asset: 42}
	if m.Matches(evt, c) {
		t.Fatal("different event kind should not match")
	}
}

func TestMatchesAssetWildcard(t *testing.T) {
	m := testMatcher(t)

	specific := &criteria.Criterion{ID: 1, Type: criteria.TypeKillCreature, Asset: 42}
	wildcard := &criteria.Criterion{ID: 2, Type: criteria.TypeKillCreature}

	kill42 := &event.Event{Kind: criteria.TypeKillCreature, Asset: 42}
	kill7 := &event.Event{Kind: criteria.TypeKillCreature, Asset: 7}

	if !m.Matches(kill42, specific) {
		t.Fatal("matching asset should match")
	}
	if m.Matches(kill7, specific) {
		t.Fatal("different asset should not match")
	}
	if !m.Matches(kill7, wildcard) {
		t.Fatal("zero asset should match any entry")
	}
}

func TestMatchesQuestRequiresExactAsset(t *testing.T) {
	m := testMatcher(t)

	// Quest criteria never use the wildcard rule: an unset asset matches
	// nothing rather than every quest.
	unset := &criteria.Criterion{ID: 1, Type: criteria.TypeCompleteQuest}
	evt := &event.Event{Kind: criteria.TypeCompleteQuest, Asset: 7}
	if m.Matches(evt, unset) {
		t.Fatal("quest criterion without asset should not match")
	}

	quest := &criteria.Criterion{ID: 2, Type: criteria.TypeCompleteQuest, Asset: 7}
	if !m.Matches(evt, quest) {
		t.Fatal("exact quest asset should match")
	}
}

func TestMatchesArenaUsesMap(t *testing.T) {
	m := testMatcher(t)

	arena := &criteria.Criterion{ID: 1, Type: criteria.TypeWinArena, Asset: 559}
	onMap := &event.Event{Kind: criteria.TypeWinArena, Map: 559}
	offMap := &event.Event{Kind: criteria.TypeWinArena, Map: 562}

	if !m.Matches(onMap, arena) {
		t.Fatal("arena win on the named map should match")
	}
	if m.Matches(offMap, arena) {
		t.Fatal("arena win on another map should not match")
	}
}

func TestMatchesPureCounter(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{ID: 1, Type: criteria.TypeHonorableKill}
	evt := &event.Event{Kind: criteria.TypeHonorableKill, Value: 1}
	if !m.Matches(evt, c) {
		t.Fatal("pure counter type should match unconditionally")
	}
}

func TestMatchesUnknownTypeFailsClosed(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{ID: 1, Type: criteria.Type(60000)}
	evt := &event.Event{Kind: criteria.Type(60000)}
	if m.Matches(evt, c) {
		t.Fatal("unknown criterion type must fail closed")
	}
}

func TestModifierTargetPredicates(t *testing.T) {
	m := testMatcher(t)
	base := criteria.Criterion{ID: 1, Type: criteria.TypeKillCreature, Asset: 42}

	cases := []struct {
		name string
		mod  criteria.Modifier
		evt  event.Event
		want bool
	}{
		{
			name: "target dead",
			mod:  criteria.Modifier{Kind: criteria.ModTargetMustBeDead},
			evt:  event.Event{Target: &event.Actor{Dead: true}},
			want: true,
		},
		{
			name: "target alive",
			mod:  criteria.Modifier{Kind: criteria.ModTargetMustBeDead},
			evt:  event.Event{Target: &event.Actor{}},
			want: false,
		},
		{
			name: "nil target fails closed",
			mod:  criteria.Modifier{Kind: criteria.ModTargetMustBeDead},
			evt:  event.Event{},
			want: false,
		},
		{
			name: "target creature entry",
			mod:  criteria.Modifier{Kind: criteria.ModTargetCreatureEntry, Asset: 42},
			evt:  event.Event{Target: &event.Actor{Entry: 42}},
			want: true,
		},
		{
			name: "target aura",
			mod:  criteria.Modifier{Kind: criteria.ModTargetHasAura, Asset: 100},
			evt:  event.Event{Target: &event.Actor{Auras: []uint64{99, 100}}},
			want: true,
		},
		{
			name: "source aura missing",
			mod:  criteria.Modifier{Kind: criteria.ModSourceHasAura, Asset: 100},
			evt:  event.Event{Source: &event.Actor{Auras: []uint64{99}}},
			want: false,
		},
		{
			name: "target level at threshold",
			mod:  criteria.Modifier{Kind: criteria.ModTargetLevelGreater, Asset: 60},
			evt:  event.Event{Target: &event.Actor{Level: 60}},
			want: true,
		},
		{
			name: "source health below",
			mod:  criteria.Modifier{Kind: criteria.ModSourceHealthPctLower, Asset: 10},
			evt:  event.Event{Source: &event.Actor{HealthPct: 5}},
			want: true,
		},
		{
			name: "area or zone matches area",
			mod:  criteria.Modifier{Kind: criteria.ModTargetAreaOrZone, Asset: 33},
			evt:  event.Event{Target: &event.Actor{Zone: 1, Area: 33}},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			c.Modifiers = []criteria.Modifier{tc.mod}
			evt := tc.evt
			evt.Kind = c.Type
			evt.Asset = c.Asset
			if got := m.Matches(&evt, &c); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestModifierWorldPredicates(t *testing.T) {
	m := testMatcher(t)
	base := criteria.Criterion{ID: 1, Type: criteria.TypeWinBattleground}

	cases := []struct {
		name string
		mod  criteria.Modifier
		evt  event.Event
		want bool
	}{
		{
			name: "map",
			mod:  criteria.Modifier{Kind: criteria.ModSourceMap, Asset: 30},
			evt:  event.Event{Map: 30},
			want: true,
		},
		{
			name: "difficulty mismatch",
			mod:  criteria.Modifier{Kind: criteria.ModMapDifficulty, Asset: 2},
			evt:  event.Event{Difficulty: 1},
			want: false,
		},
		{
			name: "group size cap",
			mod:  criteria.Modifier{Kind: criteria.ModMaxGroupMembers, Asset: 5},
			evt:  event.Event{GroupSize: 5},
			want: true,
		},
		{
			name: "not in group",
			mod:  criteria.Modifier{Kind: criteria.ModNotInGroup},
			evt:  event.Event{InGroup: true},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			c.Modifiers = []criteria.Modifier{tc.mod}
			evt := tc.evt
			evt.Kind = c.Type
			if got := m.Matches(&evt, &c); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestModifierSheetPredicates(t *testing.T) {
	m := testMatcher(t)
	base := criteria.Criterion{ID: 1, Type: criteria.TypeHonorableKill}
	sheet := &event.Sheet{
		AchievementPoints: 500,
		Skills:            map[uint64]uint64{356: 280},
		KnownSpells:       map[uint64]bool{1234: true},
		Items:             map[uint64]uint64{700: 3},
		Reputations:       map[uint64]int64{69: 9000},
		CompletedQuests:   map[uint64]bool{7: true},
	}

	cases := []struct {
		name string
		mod  criteria.Modifier
		want bool
	}{
		{"achievement points met", criteria.Modifier{Kind: criteria.ModMinAchievementPoints, Asset: 400}, true},
		{"achievement points short", criteria.Modifier{Kind: criteria.ModMinAchievementPoints, Asset: 600}, false},
		{"skill rank", criteria.Modifier{Kind: criteria.ModSkill, Asset: 356, SecondaryAsset: 275}, true},
		{"has spell", criteria.Modifier{Kind: criteria.ModHasSpell, Asset: 1234}, true},
		{"item count short", criteria.Modifier{Kind: criteria.ModItemCount, Asset: 700, SecondaryAsset: 5}, false},
		{"faction standing", criteria.Modifier{Kind: criteria.ModFactionStanding, Asset: 69, SecondaryAsset: 8000}, true},
		{"completed quest", criteria.Modifier{Kind: criteria.ModCompletedQuest, Asset: 7}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			c.Modifiers = []criteria.Modifier{tc.mod}
			evt := &event.Event{Kind: c.Type, Sheet: sheet}
			if got := m.Matches(evt, &c); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestModifierNilSheetFailsClosed(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{
		ID:        1,
		Type:      criteria.TypeHonorableKill,
		Modifiers: []criteria.Modifier{{Kind: criteria.ModHasSpell, Asset: 1234}},
	}
	evt := &event.Event{Kind: c.Type}
	if m.Matches(evt, c) {
		t.Fatal("sheet predicate without a sheet must fail closed")
	}
}

func TestModifierUnknownKindFailsClosed(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{
		ID:        1,
		Type:      criteria.TypeHonorableKill,
		Modifiers: []criteria.Modifier{{Kind: criteria.ModifierKind(59999)}},
	}
	evt := &event.Event{Kind: c.Type}
	if m.Matches(evt, c) {
		t.Fatal("unknown modifier kind must fail closed")
	}
}

func TestAllModifiersMustHold(t *testing.T) {
	m := testMatcher(t)
	c := &criteria.Criterion{
		ID:    1,
		Type:  criteria.TypeKillCreature,
		Asset: 42,
		Modifiers: []criteria.Modifier{
			{Kind: criteria.ModTargetMustBeDead},
			{Kind: criteria.ModTargetLevelGreater, Asset: 60},
		},
	}
	evt := &event.Event{
		Kind:   criteria.TypeKillCreature,
		Asset:  42,
		Target: &event.Actor{Dead: true, Level: 59},
	}
	if m.Matches(evt, c) {
		t.Fatal("a single failing modifier must veto the match")
	}
	evt.Target.Level = 61
	if !m.Matches(evt, c) {
		t.Fatal("all modifiers holding should match")
	}
}
