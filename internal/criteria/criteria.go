// Package criteria defines the immutable criterion and criteria tree
// definition tables the evaluation engine runs against. Definitions are
// loaded once at startup and validated before any event is processed.
package criteria

import "time"

// Type identifies the kind of game activity a criterion tracks. The numeric
// values match the upstream definition data and must not be reordered.
type Type uint16

const (
	TypeKillCreature             Type = 0
	TypeWinBattleground          Type = 1
	TypeReachLevel               Type = 5
	TypeReachSkillLevel          Type = 7
	TypeCompleteAchievement      Type = 8
	TypeCompleteQuestCount       Type = 9
	TypeCompleteQuestsInZone     Type = 11
	TypeCurrency                 Type = 12
	TypeDamageDone               Type = 13
	TypeCompleteBattleground     Type = 15
	TypeDeath                    Type = 17
	TypeKilledByCreature         Type = 20
	TypeKilledByPlayer           Type = 23
	TypeFallWithoutDying         Type = 24
	TypeCompleteQuest            Type = 27
	TypeBeSpellTarget            Type = 28
	TypeCastSpell                Type = 29
	TypeWinArena                 Type = 32
	TypePlayArena                Type = 33
	TypeLearnSpell               Type = 34
	TypeHonorableKill            Type = 35
	TypeOwnItem                  Type = 36
	TypeWinRatedArena            Type = 37
	TypeHighestPersonalRating    Type = 39
	TypeUseItem                  Type = 41
	TypeLootItem                 Type = 42
	TypeExploreArea              Type = 43
	TypeGainReputation           Type = 46
	TypeEquipEpicItem            Type = 49
	TypeDoEmote                  Type = 54
	TypeHealingDone              Type = 55
	TypeGetKillingBlows          Type = 56
	TypeEquipItem                Type = 57
	TypeLootMoney                Type = 67
	TypeUseGameObject            Type = 68
	TypeSpecialPvPKill           Type = 70
	TypeFishInGameObject         Type = 72
	TypeSendEvent                Type = 73
	TypeOnLogin                  Type = 74
	TypeWinDuel                  Type = 76
	TypeLoseDuel                 Type = 77
	TypeKillCreatureType         Type = 78
	TypeGoldEarnedByAuctions     Type = 80
	TypeCreateAuction            Type = 82
	TypeHighestAuctionBid        Type = 83
	TypeWonAuctions              Type = 84
	TypeHighestAuctionSold       Type = 85
	TypeHighestGoldValueOwned    Type = 86
	TypeRollNeed                 Type = 93
	TypeRollGreed                Type = 94
	TypeReleaseSpirit            Type = 95
	TypeOwnPet                   Type = 96
	TypeHighestHitDealt          Type = 101
	TypeHighestHitReceived       Type = 102
	TypeTotalDamageReceived      Type = 103
	TypeHighestHealCast          Type = 104
	TypeTotalHealingReceived     Type = 105
	TypeHighestHealingReceived   Type = 106
	TypeQuestAbandoned           Type = 107
	TypeFlightPathsTaken         Type = 108
	TypeCatchFromPool            Type = 127
	TypeCompleteDungeonEncounter Type = 165
	TypeEnterArea                Type = 163
	TypeLeaveArea                Type = 164
	TypeHonorLevelReached        Type = 194
	TypeCompleteWorldQuest       Type = 203
	TypeEarnHonorXP              Type = 207
)

// Flags qualify how a single criterion accrues and resets progress.
type Flags uint32

const (
	// FlagShowProgressBar marks the criterion for progress bar display.
	FlagShowProgressBar Flags = 0x01
	// FlagHidden hides the criterion from progress listings.
	FlagHidden Flags = 0x02
	// FlagFailAchievement fails the owning goal when the criterion's fail
	// condition triggers.
	FlagFailAchievement Flags = 0x04
	// FlagResetOnStart zeroes accrued progress whenever the dependent
	// activity (usually a timed challenge) starts over, and again when a
	// timed window expires unsatisfied.
	FlagResetOnStart Flags = 0x08
	// FlagIsDate marks the counter as a date value rather than a count.
	FlagIsDate Flags = 0x10
	// FlagMoneyCounter marks the counter as a money amount.
	FlagMoneyCounter Flags = 0x20
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// ScopeFlags restrict which subject kinds a criterion applies to.
type ScopeFlags uint8

const (
	ScopePlayer  ScopeFlags = 0x1
	ScopeAccount ScopeFlags = 0x2
	ScopeGuild   ScopeFlags = 0x4
)

// Has reports whether all bits in want are set.
func (f ScopeFlags) Has(want ScopeFlags) bool { return f&want == want }

// TimedType identifies which start event opens a criterion's timed window.
type TimedType uint8

const (
	TimedTypeNone          TimedType = 0
	TimedTypeEvent         TimedType = 1
	TimedTypeQuest         TimedType = 2
	TimedTypeSpellCaster   TimedType = 5
	TimedTypeSpellTarget   TimedType = 6
	TimedTypeCreature      TimedType = 7
	TimedTypeItem          TimedType = 9
	TimedTypeScenarioStage TimedType = 14
)

// Condition identifies a criterion-level start or fail condition.
type Condition uint8

const (
	ConditionNone       Condition = 0
	ConditionNoDeath    Condition = 1
	ConditionBGMap      Condition = 3
	ConditionNoLose     Condition = 4
	ConditionRemoveAura Condition = 5
	ConditionCastSpell  Condition = 8
	ConditionNoSpellHit Condition = 9
	ConditionNotInGroup Condition = 10
	ConditionEvent      Condition = 14
)

// ModifierKind identifies one additional-condition predicate attached to a
// criterion. Kinds without a matcher branch fail closed.
type ModifierKind uint16

const (
	ModItemLevel            ModifierKind = 3
	ModTargetCreatureEntry  ModifierKind = 4
	ModTargetMustBePlayer   ModifierKind = 5
	ModTargetMustBeDead     ModifierKind = 6
	ModTargetMustBeEnemy    ModifierKind = 7
	ModSourceHasAura        ModifierKind = 8
	ModTargetHasAura        ModifierKind = 10
	ModItemQualityMin       ModifierKind = 14
	ModItemQualityEquals    ModifierKind = 15
	ModSourceAreaOrZone     ModifierKind = 17
	ModTargetAreaOrZone     ModifierKind = 18
	ModArenaType            ModifierKind = 24
	ModSourceRace           ModifierKind = 25
	ModSourceClass          ModifierKind = 26
	ModTargetRace           ModifierKind = 27
	ModTargetClass          ModifierKind = 28
	ModMaxGroupMembers      ModifierKind = 29
	ModTargetCreatureType   ModifierKind = 30
	ModSourceMap            ModifierKind = 32
	ModNotInGroup           ModifierKind = 35
	ModInGroup              ModifierKind = 36
	ModTitleBitIndex        ModifierKind = 38
	ModSourceLevel          ModifierKind = 39
	ModTargetLevel          ModifierKind = 40
	ModSourceZone           ModifierKind = 41
	ModTargetZone           ModifierKind = 42
	ModSourceHealthPctLower ModifierKind = 43
	ModSourceHealthPctAbove ModifierKind = 44
	ModSourceHealthPctEqual ModifierKind = 45
	ModTargetHealthPctLower ModifierKind = 46
	ModTargetHealthPctAbove ModifierKind = 47
	ModTargetHealthPctEqual ModifierKind = 48
	ModMinAchievementPoints ModifierKind = 56
	ModGuildReputation      ModifierKind = 62
	ModMapDifficulty        ModifierKind = 68
	ModSourceLevelGreater   ModifierKind = 69
	ModTargetLevelGreater   ModifierKind = 70
	ModSourceLevelLower     ModifierKind = 71
	ModTargetLevelLower     ModifierKind = 72
	ModModifierTree         ModifierKind = 73
	ModIsOnQuest            ModifierKind = 84
	ModHasAchievement       ModifierKind = 86
	ModFactionStanding      ModifierKind = 95
	ModSkill                ModifierKind = 99
	ModHasSpell             ModifierKind = 104
	ModItemCount            ModifierKind = 105
	ModRewardedQuest        ModifierKind = 110
	ModCompletedQuest       ModifierKind = 111
	ModExploredArea         ModifierKind = 113
	ModCurrencyAmount       ModifierKind = 119
	ModHonorLevel           ModifierKind = 193

	// ModScript evaluates a CEL expression against the event facts. Local
	// extension for conditions the fixed taxonomy cannot express.
	ModScript ModifierKind = 1000
)

// Modifier is one additional-condition predicate. Asset and SecondaryAsset
// carry kind-specific parameters; Script is set only for ModScript.
type Modifier struct {
	Kind           ModifierKind
	Asset          uint64
	SecondaryAsset uint64
	Script         string
}

// Criterion is one elementary trackable condition. Immutable after load.
type Criterion struct {
	ID             uint32
	Type           Type
	Asset          uint64
	SecondaryAsset uint64
	TertiaryAsset  uint64
	Flags          Flags
	Scope          ScopeFlags
	FailCondition  Condition
	FailAsset      uint64
	Modifiers      []Modifier

	// TimedType, TimedAsset and TimedWindow describe the countdown window
	// opened by a matching start event. TimedTypeNone means untimed.
	TimedType   TimedType
	TimedAsset  uint64
	TimedWindow time.Duration
}

// Timed reports whether the criterion must be satisfied inside a window.
func (c *Criterion) Timed() bool { return c.TimedType != TimedTypeNone }

// TreeOperator combines child results into a node's completion predicate.
type TreeOperator uint8

const (
	OpSingle              TreeOperator = 0
	OpSingleNotCompleted  TreeOperator = 1
	OpAll                 TreeOperator = 4
	OpSumChildren         TreeOperator = 5
	OpMaxChild            TreeOperator = 6
	OpCountDirectChildren TreeOperator = 7
	OpAny                 TreeOperator = 8
	OpSumChildrenWeight   TreeOperator = 9
)

// TreeFlags qualify display and faction restrictions of a tree node.
type TreeFlags uint32

const (
	TreeFlagProgressBar       TreeFlags = 0x0001
	TreeFlagProgressIsDate    TreeFlags = 0x0004
	TreeFlagShowCurrencyIcon  TreeFlags = 0x0008
	TreeFlagAllianceOnly      TreeFlags = 0x0200
	TreeFlagHordeOnly         TreeFlags = 0x0400
	TreeFlagShowRequiredCount TreeFlags = 0x0800
)

// Has reports whether all bits in want are set.
func (f TreeFlags) Has(want TreeFlags) bool { return f&want == want }

// TreeNode is one node of the criteria forest. Leaves reference a criterion;
// internal nodes aggregate their children. Children are stored as ids into
// the definition arena, never as live references.
type TreeNode struct {
	ID          uint32
	Operator    TreeOperator
	Amount      uint64
	Weight      uint64
	CriterionID uint32
	Parent      uint32
	Children    []uint32
	Flags       TreeFlags
}

// Leaf reports whether the node references a criterion directly.
func (n *TreeNode) Leaf() bool { return n.CriterionID != 0 }

// String returns the operator's definition-file name.
func (op TreeOperator) String() string {
	switch op {
	case OpSingle:
		return "single"
	case OpSingleNotCompleted:
		return "single_not_completed"
	case OpAll:
		return "all"
	case OpSumChildren:
		return "sum_children"
	case OpMaxChild:
		return "max_child"
	case OpCountDirectChildren:
		return "count_direct_children"
	case OpAny:
		return "any"
	case OpSumChildrenWeight:
		return "sum_children_weight"
	default:
		return "unknown"
	}
}

// Known reports whether the operator is part of the supported set.
func (op TreeOperator) Known() bool {
	switch op {
	case OpSingle, OpSingleNotCompleted, OpAll, OpSumChildren, OpMaxChild,
		OpCountDirectChildren, OpAny, OpSumChildrenWeight:
		return true
	default:
		return false
	}
}
