// Package matcher decides whether a game event satisfies a criterion's
// predicate set. Matching is deterministic and side-effect free; unknown
// criterion types and modifier kinds fail closed and are logged once per
// kind so definition gaps surface without destabilizing evaluation.
package matcher

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

// Matcher evaluates criterion predicates against events. Safe for concurrent
// use; the only internal mutability is the compiled-script cache and the
// once-per-kind log guard.
type Matcher struct {
	scripts *scriptCache
	logger  *slog.Logger
	warned  sync.Map
}

// New creates a Matcher. Scripted conditions are compiled on first use and
// cached.
func New(logger *slog.Logger) (*Matcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scripts, err := newScriptCache()
	if err != nil {
		return nil, fmt.Errorf("init script environment: %w", err)
	}
	return &Matcher{scripts: scripts, logger: logger}, nil
}

// Matches reports whether evt satisfies the criterion: the event kind must
// equal the criterion type, the criterion's asset must match, and every
// additional condition must hold.
func (m *Matcher) Matches(evt *event.Event, c *criteria.Criterion) bool {
	if evt == nil || c == nil {
		return false
	}
	if evt.Kind != c.Type {
		return false
	}
	if !m.assetMatches(evt, c) {
		return false
	}
	for i := range c.Modifiers {
		if !m.modifierMatches(evt, c, &c.Modifiers[i]) {
			return false
		}
	}
	return true
}

// assetMatches applies the per-type asset rule. Most types select a specific
// game entity by the criterion's primary asset, with zero meaning "any".
func (m *Matcher) assetMatches(evt *event.Event, c *criteria.Criterion) bool {
	switch c.Type {
	case criteria.TypeKillCreature, criteria.TypeKilledByCreature,
		criteria.TypeKillCreatureType, criteria.TypeSpecialPvPKill:
		// Kill events carry the victim or killer entry as the asset.
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeCastSpell, criteria.TypeBeSpellTarget,
		criteria.TypeLearnSpell:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeOwnItem, criteria.TypeUseItem, criteria.TypeLootItem,
		criteria.TypeEquipItem, criteria.TypeEquipEpicItem:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeUseGameObject, criteria.TypeFishInGameObject,
		criteria.TypeCatchFromPool:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeCompleteQuest, criteria.TypeQuestAbandoned:
		// Quest criteria always name a specific quest.
		return c.Asset != 0 && c.Asset == evt.Asset

	case criteria.TypeCompleteQuestsInZone, criteria.TypeExploreArea,
		criteria.TypeEnterArea, criteria.TypeLeaveArea:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeGainReputation, criteria.TypeCurrency,
		criteria.TypeReachSkillLevel:
		// Asset selects the faction, currency or skill line.
		return c.Asset != 0 && c.Asset == evt.Asset

	case criteria.TypeCompleteAchievement:
		return c.Asset != 0 && c.Asset == evt.Asset

	case criteria.TypeWinBattleground, criteria.TypeCompleteBattleground,
		criteria.TypeCompleteDungeonEncounter, criteria.TypeCompleteWorldQuest:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeDoEmote, criteria.TypeSendEvent:
		return assetSelects(c.Asset, evt.Asset)

	case criteria.TypeWinArena, criteria.TypePlayArena,
		criteria.TypeWinRatedArena:
		// Asset selects the arena map when present.
		return assetSelects(c.Asset, evt.Map)

	case criteria.TypeReachLevel, criteria.TypeCompleteQuestCount,
		criteria.TypeDeath, criteria.TypeKilledByPlayer,
		criteria.TypeFallWithoutDying, criteria.TypeHonorableKill,
		criteria.TypeWinDuel, criteria.TypeLoseDuel,
		criteria.TypeDamageDone, criteria.TypeHealingDone,
		criteria.TypeGetKillingBlows, criteria.TypeLootMoney,
		criteria.TypeHighestPersonalRating, criteria.TypeHighestHitDealt,
		criteria.TypeHighestHitReceived, criteria.TypeTotalDamageReceived,
		criteria.TypeHighestHealCast, criteria.TypeTotalHealingReceived,
		criteria.TypeHighestHealingReceived, criteria.TypeFlightPathsTaken,
		criteria.TypeGoldEarnedByAuctions, criteria.TypeCreateAuction,
		criteria.TypeHighestAuctionBid, criteria.TypeWonAuctions,
		criteria.TypeHighestGoldValueOwned, criteria.TypeRollNeed,
		criteria.TypeRollGreed, criteria.TypeReleaseSpirit,
		criteria.TypeOwnPet, criteria.TypeOnLogin,
		criteria.TypeHonorLevelReached, criteria.TypeEarnHonorXP:
		// Pure counters; the event value carries the contribution.
		return true

	default:
		m.warnOnce(fmt.Sprintf("type:%d", c.Type), "criterion type has no matcher branch",
			slog.Uint64("criterion_type", uint64(c.Type)),
			slog.Uint64("criterion_id", uint64(c.ID)))
		return false
	}
}

// assetSelects applies the wildcard asset rule: zero matches anything.
func assetSelects(want, got uint64) bool {
	return want == 0 || want == got
}

// warnOnce logs the message a single time per key.
func (m *Matcher) warnOnce(key, msg string, args ...any) {
	if _, loaded := m.warned.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	m.logger.Warn(msg, args...)
}
