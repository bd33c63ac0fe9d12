package criteria

import (
	"fmt"
	"time"
)

// Definitions is the validated, immutable criterion and tree table set.
// All lookups are by integer id into internal maps; callers never hold live
// parent/child references.
type Definitions struct {
	criteria    map[uint32]*Criterion
	nodes       map[uint32]*TreeNode
	roots       []uint32
	byType      map[Type][]*Criterion
	byTimedType map[TimedType][]*Criterion
	leaves      map[uint32][]uint32
}

// NewDefinitions indexes and validates the given tables. It returns an error
// for any structural defect: a dangling criterion or child reference, an
// unknown operator, a node with more than one parent, or a cycle in the
// forest. A failed validation is a fatal configuration error.
func NewDefinitions(criteriaDefs []Criterion, nodeDefs []TreeNode) (*Definitions, error) {
	d := &Definitions{
		criteria:    make(map[uint32]*Criterion, len(criteriaDefs)),
		nodes:       make(map[uint32]*TreeNode, len(nodeDefs)),
		byType:      make(map[Type][]*Criterion),
		byTimedType: make(map[TimedType][]*Criterion),
		leaves:      make(map[uint32][]uint32),
	}

	for i := range criteriaDefs {
		c := criteriaDefs[i]
		if c.ID == 0 {
			return nil, fmt.Errorf("criterion id 0 is reserved")
		}
		if _, dup := d.criteria[c.ID]; dup {
			return nil, fmt.Errorf("duplicate criterion id %d", c.ID)
		}
		d.criteria[c.ID] = &c
		d.byType[c.Type] = append(d.byType[c.Type], &c)
		if c.Timed() {
			if c.TimedWindow <= 0 {
				return nil, fmt.Errorf("criterion %d: timed window must be positive", c.ID)
			}
			d.byTimedType[c.TimedType] = append(d.byTimedType[c.TimedType], &c)
		}
	}

	for i := range nodeDefs {
		n := nodeDefs[i]
		if n.ID == 0 {
			return nil, fmt.Errorf("tree node id 0 is reserved")
		}
		if _, dup := d.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate tree node id %d", n.ID)
		}
		if !n.Operator.Known() {
			return nil, fmt.Errorf("tree node %d: unknown operator %d", n.ID, n.Operator)
		}
		d.nodes[n.ID] = &n
	}

	if err := d.link(); err != nil {
		return nil, err
	}
	if err := d.checkCycles(); err != nil {
		return nil, err
	}
	return d, nil
}

// link resolves child and criterion references and assigns parent pointers.
func (d *Definitions) link() error {
	for _, n := range d.nodes {
		if n.CriterionID != 0 {
			if len(n.Children) > 0 {
				return fmt.Errorf("tree node %d: leaf cannot have children", n.ID)
			}
			if _, ok := d.criteria[n.CriterionID]; !ok {
				return fmt.Errorf("tree node %d: dangling criterion reference %d", n.ID, n.CriterionID)
			}
			d.leaves[n.CriterionID] = append(d.leaves[n.CriterionID], n.ID)
		}
		for _, childID := range n.Children {
			child, ok := d.nodes[childID]
			if !ok {
				return fmt.Errorf("tree node %d: dangling child reference %d", n.ID, childID)
			}
			if child.Parent != 0 && child.Parent != n.ID {
				return fmt.Errorf("tree node %d: already child of %d, cannot attach to %d", childID, child.Parent, n.ID)
			}
			child.Parent = n.ID
		}
	}
	for id, n := range d.nodes {
		if n.Parent == 0 {
			d.roots = append(d.roots, id)
		}
	}
	return nil
}

// checkCycles walks every node once; a node revisited while still on the
// current path means the forest contains a cycle.
func (d *Definitions) checkCycles() error {
	const (
		unvisited = 0
		onPath    = 1
		done      = 2
	)
	state := make(map[uint32]uint8, len(d.nodes))

	var visit func(id uint32) error
	visit = func(id uint32) error {
		switch state[id] {
		case onPath:
			return fmt.Errorf("criteria tree cycle detected at node %d", id)
		case done:
			return nil
		}
		state[id] = onPath
		for _, childID := range d.nodes[id].Children {
			if err := visit(childID); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range d.nodes {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Criterion returns the criterion definition for id.
func (d *Definitions) Criterion(id uint32) (*Criterion, bool) {
	c, ok := d.criteria[id]
	return c, ok
}

// Node returns the tree node definition for id.
func (d *Definitions) Node(id uint32) (*TreeNode, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// ByType returns all criteria tracking the given activity type.
func (d *Definitions) ByType(t Type) []*Criterion {
	return d.byType[t]
}

// ByTimedType returns all timed criteria started by the given timer type.
func (d *Definitions) ByTimedType(t TimedType) []*Criterion {
	return d.byTimedType[t]
}

// LeavesFor returns every leaf node id referencing the criterion. A criterion
// may appear in multiple trees.
func (d *Definitions) LeavesFor(criterionID uint32) []uint32 {
	return d.leaves[criterionID]
}

// Roots returns the ids of all tree roots.
func (d *Definitions) Roots() []uint32 {
	return d.roots
}

// CriterionCount returns the number of loaded criteria.
func (d *Definitions) CriterionCount() int { return len(d.criteria) }

// NodeCount returns the number of loaded tree nodes.
func (d *Definitions) NodeCount() int { return len(d.nodes) }

// ShortestTimedWindow returns the smallest configured timed window, or zero
// when no timed criteria exist. Used to bound the expiry tick interval.
func (d *Definitions) ShortestTimedWindow() time.Duration {
	var window time.Duration
	for _, list := range d.byTimedType {
		for _, c := range list {
			if window == 0 || c.TimedWindow < window {
				window = c.TimedWindow
			}
		}
	}
	return window
}
