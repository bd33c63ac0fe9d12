package engine

import (
	"time"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

// propagateLocked re-evaluates every tree that transitively references the
// updated criterion. Each affected path is walked leaf to root, so a node is
// only judged after the children feeding it are settled for this update.
// Trees sharing the criterion are processed independently. Caller holds the
// session lock.
func (s *Session) propagateLocked(criterionID uint32, now time.Time) []Completion {
	var completions []Completion
	for _, leafID := range s.engine.defs.LeavesFor(criterionID) {
		node, ok := s.engine.defs.Node(leafID)
		for ok {
			if s.store.Completed(node.ID) {
				// Completion is monotonic under normal updates.
				node, ok = s.parent(node)
				continue
			}
			if s.nodeSatisfied(node) && s.store.Complete(node.ID, now) {
				completions = append(completions, Completion{
					Subject: s.subject,
					NodeID:  node.ID,
					At:      now,
				})
			}
			node, ok = s.parent(node)
		}
	}
	return completions
}

// resetCriterionLocked zeroes the criterion counter and revokes every
// dependent completion that no longer holds, children before parents, so an
// ancestor is re-derived against its children's fresh state.
func (s *Session) resetCriterionLocked(c *criteria.Criterion, now time.Time) {
	s.store.Reset(c.ID, now)
	for _, leafID := range s.engine.defs.LeavesFor(c.ID) {
		node, ok := s.engine.defs.Node(leafID)
		for ok {
			if s.store.Completed(node.ID) && !s.nodeSatisfied(node) {
				s.store.Uncomplete(node.ID, now)
			}
			node, ok = s.parent(node)
		}
	}
}

func (s *Session) parent(n *criteria.TreeNode) (*criteria.TreeNode, bool) {
	if n.Parent == 0 {
		return nil, false
	}
	return s.engine.defs.Node(n.Parent)
}

// requiredAmount is the node threshold; definitions with no explicit amount
// require a single unit.
func requiredAmount(n *criteria.TreeNode) uint64 {
	if n.Amount == 0 {
		return 1
	}
	return n.Amount
}

// nodeSatisfied evaluates the node's operator predicate over its criterion
// counter or children. It derives from current child state rather than
// trusting stored flags, so a stale completion never props up an ancestor.
// A node with no children (and no criterion) is vacuously incomplete.
func (s *Session) nodeSatisfied(n *criteria.TreeNode) bool {
	if !s.factionAllowed(n) {
		return false
	}
	required := requiredAmount(n)
	switch n.Operator {
	case criteria.OpSingle:
		return n.Leaf() && s.store.Counter(n.CriterionID) >= required

	case criteria.OpSingleNotCompleted:
		return n.Leaf() && s.store.Counter(n.CriterionID) < required

	case criteria.OpAll:
		if len(n.Children) == 0 {
			return false
		}
		for _, childID := range n.Children {
			if !s.childComplete(childID) {
				return false
			}
		}
		return true

	case criteria.OpAny:
		for _, childID := range n.Children {
			if s.childComplete(childID) {
				return true
			}
		}
		return false

	case criteria.OpSumChildren, criteria.OpSumChildrenWeight, criteria.OpMaxChild:
		if len(n.Children) == 0 {
			return false
		}
		return s.nodeValue(n) >= required

	case criteria.OpCountDirectChildren:
		count := uint64(0)
		for _, childID := range n.Children {
			if s.childComplete(childID) {
				count++
			}
		}
		return len(n.Children) > 0 && count >= required

	default:
		return false
	}
}

// childComplete checks the stored completion first and falls back to
// re-deriving from the child's own state. The re-derivation covers two
// cases: a sibling that completed before this tree existed in storage, and
// an ancestor re-check after a reset revoked the triggering child while a
// different child still holds.
func (s *Session) childComplete(childID uint32) bool {
	if s.store.Completed(childID) {
		return true
	}
	child, ok := s.engine.defs.Node(childID)
	if !ok {
		return false
	}
	return s.nodeSatisfied(child)
}

// nodeValue is the node's effective value under its operator.
func (s *Session) nodeValue(n *criteria.TreeNode) uint64 {
	switch n.Operator {
	case criteria.OpSingle, criteria.OpSingleNotCompleted:
		if n.Leaf() {
			return s.store.Counter(n.CriterionID)
		}
		return 0

	case criteria.OpAll:
		var lowest uint64
		for i, childID := range n.Children {
			v := s.childValue(childID)
			if i == 0 || v < lowest {
				lowest = v
			}
		}
		return lowest

	case criteria.OpAny, criteria.OpMaxChild:
		var highest uint64
		for _, childID := range n.Children {
			if v := s.childValue(childID); v > highest {
				highest = v
			}
		}
		return highest

	case criteria.OpSumChildren:
		var sum uint64
		for _, childID := range n.Children {
			sum = saturatingAdd(sum, s.childValue(childID))
		}
		return sum

	case criteria.OpSumChildrenWeight:
		var sum uint64
		for _, childID := range n.Children {
			child, ok := s.engine.defs.Node(childID)
			if !ok {
				continue
			}
			weight := child.Weight
			if weight == 0 {
				weight = 1
			}
			sum = saturatingAdd(sum, saturatingMul(s.nodeValue(child), weight))
		}
		return sum

	case criteria.OpCountDirectChildren:
		var count uint64
		for _, childID := range n.Children {
			if s.childComplete(childID) {
				count++
			}
		}
		return count

	default:
		return 0
	}
}

func (s *Session) childValue(childID uint32) uint64 {
	child, ok := s.engine.defs.Node(childID)
	if !ok {
		return 0
	}
	return s.nodeValue(child)
}

// factionAllowed honors alliance-only and horde-only tree restrictions.
func (s *Session) factionAllowed(n *criteria.TreeNode) bool {
	if n.Flags.Has(criteria.TreeFlagAllianceOnly) && s.faction != event.FactionAlliance {
		return false
	}
	if n.Flags.Has(criteria.TreeFlagHordeOnly) && s.faction != event.FactionHorde {
		return false
	}
	return true
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	product := a * b
	if product/b != a {
		return ^uint64(0)
	}
	return product
}
