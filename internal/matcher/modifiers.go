package matcher

import (
	"fmt"
	"log/slog"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

// modifierMatches evaluates one additional condition. Comparisons are exact
// integer comparisons on the same width as stored progress; predicates over
// absent event data fail closed.
func (m *Matcher) modifierMatches(evt *event.Event, c *criteria.Criterion, mod *criteria.Modifier) bool {
	switch mod.Kind {
	case criteria.ModTargetCreatureEntry:
		return evt.Target != nil && evt.Target.Entry == mod.Asset

	case criteria.ModTargetMustBePlayer:
		return evt.Target != nil && evt.Target.Player

	case criteria.ModTargetMustBeDead:
		return evt.Target != nil && evt.Target.Dead

	case criteria.ModTargetMustBeEnemy:
		return evt.Target != nil && evt.Target.Enemy

	case criteria.ModSourceHasAura:
		return evt.Source.HasAura(mod.Asset)

	case criteria.ModTargetHasAura:
		return evt.Target.HasAura(mod.Asset)

	case criteria.ModItemLevel:
		// Item events carry the item level in the event value.
		return evt.Value >= mod.Asset

	case criteria.ModItemQualityMin:
		return evt.Value >= mod.Asset

	case criteria.ModItemQualityEquals:
		return evt.Value == mod.Asset

	case criteria.ModSourceAreaOrZone:
		return evt.Source != nil && (evt.Source.Zone == mod.Asset || evt.Source.Area == mod.Asset)

	case criteria.ModTargetAreaOrZone:
		return evt.Target != nil && (evt.Target.Zone == mod.Asset || evt.Target.Area == mod.Asset)

	case criteria.ModSourceZone:
		return evt.Source != nil && evt.Source.Zone == mod.Asset

	case criteria.ModTargetZone:
		return evt.Target != nil && evt.Target.Zone == mod.Asset

	case criteria.ModSourceMap:
		return evt.Map == mod.Asset

	case criteria.ModMapDifficulty:
		return evt.Difficulty == mod.Asset

	case criteria.ModArenaType:
		return evt.ArenaType == mod.Asset

	case criteria.ModSourceRace:
		return evt.Source != nil && evt.Source.Race == mod.Asset

	case criteria.ModSourceClass:
		return evt.Source != nil && evt.Source.Class == mod.Asset

	case criteria.ModTargetRace:
		return evt.Target != nil && evt.Target.Race == mod.Asset

	case criteria.ModTargetClass:
		return evt.Target != nil && evt.Target.Class == mod.Asset

	case criteria.ModTargetCreatureType:
		return evt.Target != nil && evt.Target.CreatureType == mod.Asset

	case criteria.ModSourceLevel:
		return evt.Source != nil && evt.Source.Level == mod.Asset

	case criteria.ModTargetLevel:
		return evt.Target != nil && evt.Target.Level == mod.Asset

	case criteria.ModSourceLevelGreater:
		return evt.Source != nil && evt.Source.Level >= mod.Asset

	case criteria.ModTargetLevelGreater:
		return evt.Target != nil && evt.Target.Level >= mod.Asset

	case criteria.ModSourceLevelLower:
		return evt.Source != nil && evt.Source.Level <= mod.Asset

	case criteria.ModTargetLevelLower:
		return evt.Target != nil && evt.Target.Level <= mod.Asset

	case criteria.ModSourceHealthPctLower:
		return evt.Source != nil && evt.Source.HealthPct < mod.Asset

	case criteria.ModSourceHealthPctAbove:
		return evt.Source != nil && evt.Source.HealthPct > mod.Asset

	case criteria.ModSourceHealthPctEqual:
		return evt.Source != nil && evt.Source.HealthPct == mod.Asset

	case criteria.ModTargetHealthPctLower:
		return evt.Target != nil && evt.Target.HealthPct < mod.Asset

	case criteria.ModTargetHealthPctAbove:
		return evt.Target != nil && evt.Target.HealthPct > mod.Asset

	case criteria.ModTargetHealthPctEqual:
		return evt.Target != nil && evt.Target.HealthPct == mod.Asset

	case criteria.ModMaxGroupMembers:
		return evt.GroupSize <= mod.Asset

	case criteria.ModInGroup:
		return evt.InGroup

	case criteria.ModNotInGroup:
		return !evt.InGroup

	case criteria.ModMinAchievementPoints:
		return evt.Sheet != nil && evt.Sheet.AchievementPoints >= mod.Asset

	case criteria.ModHonorLevel:
		return evt.Sheet != nil && evt.Sheet.HonorLevel >= mod.Asset

	case criteria.ModTitleBitIndex:
		return evt.Sheet != nil && evt.Sheet.TitleBits[mod.Asset]

	case criteria.ModGuildReputation:
		return evt.Sheet != nil && evt.Sheet.GuildReputation >= int64(mod.Asset)

	case criteria.ModFactionStanding:
		return evt.Sheet != nil && evt.Sheet.Reputations[mod.Asset] >= int64(mod.SecondaryAsset)

	case criteria.ModSkill:
		return evt.Sheet != nil && evt.Sheet.Skills[mod.Asset] >= mod.SecondaryAsset

	case criteria.ModHasSpell:
		return evt.Sheet != nil && evt.Sheet.KnownSpells[mod.Asset]

	case criteria.ModItemCount:
		return evt.Sheet != nil && evt.Sheet.Items[mod.Asset] >= mod.SecondaryAsset

	case criteria.ModCurrencyAmount:
		return evt.Sheet != nil && evt.Sheet.Currencies[mod.Asset] >= mod.SecondaryAsset

	case criteria.ModIsOnQuest:
		return evt.Sheet != nil && evt.Sheet.ActiveQuests[mod.Asset]

	case criteria.ModCompletedQuest:
		return evt.Sheet != nil && evt.Sheet.CompletedQuests[mod.Asset]

	case criteria.ModRewardedQuest:
		return evt.Sheet != nil && evt.Sheet.RewardedQuests[mod.Asset]

	case criteria.ModExploredArea:
		return evt.Sheet != nil && evt.Sheet.ExploredAreas[mod.Asset]

	case criteria.ModHasAchievement:
		return evt.Sheet != nil && evt.Sheet.Achievements[mod.Asset]

	case criteria.ModScript:
		return m.scriptMatches(evt, c, mod)

	default:
		m.warnOnce(fmt.Sprintf("modifier:%d", mod.Kind), "modifier kind has no matcher branch",
			slog.Uint64("modifier_kind", uint64(mod.Kind)),
			slog.Uint64("criterion_id", uint64(c.ID)))
		return false
	}
}
