package criteria

// Definition-file names for the enumerated kinds. The loader resolves names
// case-sensitively; an unknown name is a load error, not a silent skip,
// because a typo in a definition must not turn into a dead criterion.

var typeNames = map[string]Type{
	"kill_creature":              TypeKillCreature,
	"win_battleground":           TypeWinBattleground,
	"reach_level":                TypeReachLevel,
	"reach_skill_level":          TypeReachSkillLevel,
	"complete_achievement":       TypeCompleteAchievement,
	"complete_quest_count":       TypeCompleteQuestCount,
	"complete_quests_in_zone":    TypeCompleteQuestsInZone,
	"currency":                   TypeCurrency,
	"damage_done":                TypeDamageDone,
	"complete_battleground":      TypeCompleteBattleground,
	"death":                      TypeDeath,
	"killed_by_creature":         TypeKilledByCreature,
	"killed_by_player":           TypeKilledByPlayer,
	"fall_without_dying":         TypeFallWithoutDying,
	"complete_quest":             TypeCompleteQuest,
	"be_spell_target":            TypeBeSpellTarget,
	"cast_spell":                 TypeCastSpell,
	"win_arena":                  TypeWinArena,
	"play_arena":                 TypePlayArena,
	"learn_spell":                TypeLearnSpell,
	"honorable_kill":             TypeHonorableKill,
	"own_item":                   TypeOwnItem,
	"win_rated_arena":            TypeWinRatedArena,
	"highest_personal_rating":    TypeHighestPersonalRating,
	"use_item":                   TypeUseItem,
	"loot_item":                  TypeLootItem,
	"explore_area":               TypeExploreArea,
	"gain_reputation":            TypeGainReputation,
	"equip_epic_item":            TypeEquipEpicItem,
	"do_emote":                   TypeDoEmote,
	"healing_done":               TypeHealingDone,
	"get_killing_blows":          TypeGetKillingBlows,
	"equip_item":                 TypeEquipItem,
	"loot_money":                 TypeLootMoney,
	"use_game_object":            TypeUseGameObject,
	"special_pvp_kill":           TypeSpecialPvPKill,
	"fish_in_game_object":        TypeFishInGameObject,
	"send_event":                 TypeSendEvent,
	"on_login":                   TypeOnLogin,
	"win_duel":                   TypeWinDuel,
	"lose_duel":                  TypeLoseDuel,
	"kill_creature_type":         TypeKillCreatureType,
	"gold_earned_by_auctions":    TypeGoldEarnedByAuctions,
	"create_auction":             TypeCreateAuction,
	"highest_auction_bid":        TypeHighestAuctionBid,
	"won_auctions":               TypeWonAuctions,
	"highest_auction_sold":       TypeHighestAuctionSold,
	"highest_gold_value_owned":   TypeHighestGoldValueOwned,
	"roll_need":                  TypeRollNeed,
	"roll_greed":                 TypeRollGreed,
	"release_spirit":             TypeReleaseSpirit,
	"own_pet":                    TypeOwnPet,
	"highest_hit_dealt":          TypeHighestHitDealt,
	"highest_hit_received":       TypeHighestHitReceived,
	"total_damage_received":      TypeTotalDamageReceived,
	"highest_heal_cast":          TypeHighestHealCast,
	"total_healing_received":     TypeTotalHealingReceived,
	"highest_healing_received":   TypeHighestHealingReceived,
	"quest_abandoned":            TypeQuestAbandoned,
	"flight_paths_taken":         TypeFlightPathsTaken,
	"catch_from_pool":            TypeCatchFromPool,
	"complete_dungeon_encounter": TypeCompleteDungeonEncounter,
	"enter_area":                 TypeEnterArea,
	"leave_area":                 TypeLeaveArea,
	"honor_level_reached":        TypeHonorLevelReached,
	"complete_world_quest":       TypeCompleteWorldQuest,
	"earn_honor_xp":              TypeEarnHonorXP,
}

var operatorNames = map[string]TreeOperator{
	"single":                OpSingle,
	"single_not_completed":  OpSingleNotCompleted,
	"all":                   OpAll,
	"sum_children":          OpSumChildren,
	"max_child":             OpMaxChild,
	"count_direct_children": OpCountDirectChildren,
	"any":                   OpAny,
	"sum_children_weight":   OpSumChildrenWeight,
}

var flagNames = map[string]Flags{
	"show_progress_bar": FlagShowProgressBar,
	"hidden":            FlagHidden,
	"fail_achievement":  FlagFailAchievement,
	"reset_on_start":    FlagResetOnStart,
	"is_date":           FlagIsDate,
	"money_counter":     FlagMoneyCounter,
}

var treeFlagNames = map[string]TreeFlags{
	"progress_bar":        TreeFlagProgressBar,
	"progress_is_date":    TreeFlagProgressIsDate,
	"show_currency_icon":  TreeFlagShowCurrencyIcon,
	"alliance_only":       TreeFlagAllianceOnly,
	"horde_only":          TreeFlagHordeOnly,
	"show_required_count": TreeFlagShowRequiredCount,
}

var scopeNames = map[string]ScopeFlags{
	"player":  ScopePlayer,
	"account": ScopeAccount,
	"guild":   ScopeGuild,
}

var timedTypeNames = map[string]TimedType{
	"event":          TimedTypeEvent,
	"quest":          TimedTypeQuest,
	"spell_caster":   TimedTypeSpellCaster,
	"spell_target":   TimedTypeSpellTarget,
	"creature":       TimedTypeCreature,
	"item":           TimedTypeItem,
	"scenario_stage": TimedTypeScenarioStage,
}

var conditionNames = map[string]Condition{
	"no_death":     ConditionNoDeath,
	"bg_map":       ConditionBGMap,
	"no_lose":      ConditionNoLose,
	"remove_aura":  ConditionRemoveAura,
	"cast_spell":   ConditionCastSpell,
	"no_spell_hit": ConditionNoSpellHit,
	"not_in_group": ConditionNotInGroup,
	"event":        ConditionEvent,
}

// Only kinds the matcher evaluates are named here. ModModifierTree has no
// matcher branch yet, so the loader must reject it rather than accept a
// criterion that can never pass.
var modifierKindNames = map[string]ModifierKind{
	"item_level":              ModItemLevel,
	"target_creature_entry":   ModTargetCreatureEntry,
	"target_must_be_player":   ModTargetMustBePlayer,
	"target_must_be_dead":     ModTargetMustBeDead,
	"target_must_be_enemy":    ModTargetMustBeEnemy,
	"source_has_aura":         ModSourceHasAura,
	"target_has_aura":         ModTargetHasAura,
	"item_quality_min":        ModItemQualityMin,
	"item_quality_equals":     ModItemQualityEquals,
	"source_area_or_zone":     ModSourceAreaOrZone,
	"target_area_or_zone":     ModTargetAreaOrZone,
	"arena_type":              ModArenaType,
	"source_race":             ModSourceRace,
	"source_class":            ModSourceClass,
	"target_race":             ModTargetRace,
	"target_class":            ModTargetClass,
	"max_group_members":       ModMaxGroupMembers,
	"target_creature_type":    ModTargetCreatureType,
	"source_map":              ModSourceMap,
	"not_in_group":            ModNotInGroup,
	"in_group":                ModInGroup,
	"title_bit_index":         ModTitleBitIndex,
	"source_level":            ModSourceLevel,
	"target_level":            ModTargetLevel,
	"source_zone":             ModSourceZone,
	"target_zone":             ModTargetZone,
	"source_health_pct_lower": ModSourceHealthPctLower,
	"source_health_pct_above": ModSourceHealthPctAbove,
	"source_health_pct_equal": ModSourceHealthPctEqual,
	"target_health_pct_lower": ModTargetHealthPctLower,
	"target_health_pct_above": ModTargetHealthPctAbove,
	"target_health_pct_equal": ModTargetHealthPctEqual,
	"min_achievement_points":  ModMinAchievementPoints,
	"guild_reputation":        ModGuildReputation,
	"map_difficulty":          ModMapDifficulty,
	"source_level_greater":    ModSourceLevelGreater,
	"target_level_greater":    ModTargetLevelGreater,
	"source_level_lower":      ModSourceLevelLower,
	"target_level_lower":      ModTargetLevelLower,
	"is_on_quest":             ModIsOnQuest,
	"has_achievement":         ModHasAchievement,
	"faction_standing":        ModFactionStanding,
	"skill":                   ModSkill,
	"has_spell":               ModHasSpell,
	"item_count":              ModItemCount,
	"rewarded_quest":          ModRewardedQuest,
	"completed_quest":         ModCompletedQuest,
	"explored_area":           ModExploredArea,
	"currency_amount":         ModCurrencyAmount,
	"honor_level":             ModHonorLevel,
	"script":                  ModScript,
}

// ParseType resolves a definition-file type name.
func ParseType(name string) (Type, bool) {
	t, ok := typeNames[name]
	return t, ok
}

// ParseOperator resolves a definition-file operator name.
func ParseOperator(name string) (TreeOperator, bool) {
	op, ok := operatorNames[name]
	return op, ok
}

// ParseFlag resolves a criterion flag name.
func ParseFlag(name string) (Flags, bool) {
	f, ok := flagNames[name]
	return f, ok
}

// ParseTreeFlag resolves a tree node flag name.
func ParseTreeFlag(name string) (TreeFlags, bool) {
	f, ok := treeFlagNames[name]
	return f, ok
}

// ParseScope resolves a subject scope name.
func ParseScope(name string) (ScopeFlags, bool) {
	f, ok := scopeNames[name]
	return f, ok
}

// ParseTimedType resolves a timed-type name.
func ParseTimedType(name string) (TimedType, bool) {
	t, ok := timedTypeNames[name]
	return t, ok
}

// ParseCondition resolves a start/fail condition name.
func ParseCondition(name string) (Condition, bool) {
	c, ok := conditionNames[name]
	return c, ok
}

// ParseModifierKind resolves a modifier kind name.
func ParseModifierKind(name string) (ModifierKind, bool) {
	k, ok := modifierKindNames[name]
	return k, ok
}
