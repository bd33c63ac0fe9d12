// Package loader reads criteria and tree definitions from YAML files and
// assembles them into a validated criteria.Definitions set.
package loader

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wergy/milestone/internal/criteria"
)

type fileModifier struct {
	Kind           string `yaml:"kind"`
	Asset          uint64 `yaml:"asset"`
	SecondaryAsset uint64 `yaml:"secondary_asset"`
	Script         string `yaml:"script"`
}

type fileTimed struct {
	Type   string `yaml:"type"`
	Asset  uint64 `yaml:"asset"`
	Window string `yaml:"window"`
}

type fileCriterion struct {
	ID             uint32         `yaml:"id"`
	Type           string         `yaml:"type"`
	Asset          uint64         `yaml:"asset"`
	SecondaryAsset uint64         `yaml:"secondary_asset"`
	TertiaryAsset  uint64         `yaml:"tertiary_asset"`
	Flags          []string       `yaml:"flags"`
	Scope          []string       `yaml:"scope"`
	FailCondition  string         `yaml:"fail_condition"`
	FailAsset      uint64         `yaml:"fail_asset"`
	Timed          *fileTimed     `yaml:"timed"`
	Modifiers      []fileModifier `yaml:"modifiers"`
}

type fileNode struct {
	ID        uint32   `yaml:"id"`
	Operator  string   `yaml:"operator"`
	Amount    uint64   `yaml:"amount"`
	Weight    uint64   `yaml:"weight"`
	Criterion uint32   `yaml:"criterion"`
	Flags     []string `yaml:"flags"`
	Children  []uint32 `yaml:"children"`
}

type file struct {
	Criteria []fileCriterion `yaml:"criteria"`
	Trees    []fileNode      `yaml:"trees"`
}

// LoadFile reads a definition file from disk.
func LoadFile(path string) (*criteria.Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	defs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return defs, nil
}

// Load reads a YAML definition document from r and builds the definition set.
// Every name in the document must resolve; unknown names fail the load.
func Load(r io.Reader) (*criteria.Definitions, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}

	crits := make([]criteria.Criterion, 0, len(doc.Criteria))
	for _, fc := range doc.Criteria {
		c, err := buildCriterion(fc)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", fc.ID, err)
		}
		crits = append(crits, c)
	}

	nodes := make([]criteria.TreeNode, 0, len(doc.Trees))
	for _, fn := range doc.Trees {
		n, err := buildNode(fn)
		if err != nil {
			return nil, fmt.Errorf("tree node %d: %w", fn.ID, err)
		}
		nodes = append(nodes, n)
	}

	return criteria.NewDefinitions(crits, nodes)
}

func buildCriterion(fc fileCriterion) (criteria.Criterion, error) {
	var c criteria.Criterion
	c.ID = fc.ID
	c.Asset = fc.Asset
	c.SecondaryAsset = fc.SecondaryAsset
	c.TertiaryAsset = fc.TertiaryAsset
	c.FailAsset = fc.FailAsset

	t, ok := criteria.ParseType(fc.Type)
	if !ok {
		return c, fmt.Errorf("unknown type %q", fc.Type)
	}
	c.Type = t

	for _, name := range fc.Flags {
		f, ok := criteria.ParseFlag(name)
		if !ok {
			return c, fmt.Errorf("unknown flag %q", name)
		}
		c.Flags |= f
	}

	for _, name := range fc.Scope {
		s, ok := criteria.ParseScope(name)
		if !ok {
			return c, fmt.Errorf("unknown scope %q", name)
		}
		c.Scope |= s
	}

	if fc.FailCondition != "" {
		cond, ok := criteria.ParseCondition(fc.FailCondition)
		if !ok {
			return c, fmt.Errorf("unknown fail condition %q", fc.FailCondition)
		}
		c.FailCondition = cond
	}

	if fc.Timed != nil {
		tt, ok := criteria.ParseTimedType(fc.Timed.Type)
		if !ok {
			return c, fmt.Errorf("unknown timed type %q", fc.Timed.Type)
		}
		window, err := time.ParseDuration(fc.Timed.Window)
		if err != nil {
			return c, fmt.Errorf("timed window: %w", err)
		}
		if window <= 0 {
			return c, fmt.Errorf("timed window %q must be positive", fc.Timed.Window)
		}
		c.TimedType = tt
		c.TimedAsset = fc.Timed.Asset
		c.TimedWindow = window
	}

	for i, fm := range fc.Modifiers {
		kind, ok := criteria.ParseModifierKind(fm.Kind)
		if !ok {
			return c, fmt.Errorf("modifier %d: unknown kind %q", i, fm.Kind)
		}
		if kind == criteria.ModScript && fm.Script == "" {
			return c, fmt.Errorf("modifier %d: script kind requires an expression", i)
		}
		if kind != criteria.ModScript && fm.Script != "" {
			return c, fmt.Errorf("modifier %d: script set on non-script kind %q", i, fm.Kind)
		}
		c.Modifiers = append(c.Modifiers, criteria.Modifier{
			Kind:           kind,
			Asset:          fm.Asset,
			SecondaryAsset: fm.SecondaryAsset,
			Script:         fm.Script,
		})
	}

	return c, nil
}

func buildNode(fn fileNode) (criteria.TreeNode, error) {
	var n criteria.TreeNode
	n.ID = fn.ID
	n.Amount = fn.Amount
	n.Weight = fn.Weight
	n.CriterionID = fn.Criterion
	n.Children = fn.Children

	op, ok := criteria.ParseOperator(fn.Operator)
	if !ok {
		return n, fmt.Errorf("unknown operator %q", fn.Operator)
	}
	n.Operator = op

	for _, name := range fn.Flags {
		f, ok := criteria.ParseTreeFlag(name)
		if !ok {
			return n, fmt.Errorf("unknown flag %q", name)
		}
		n.Flags |= f
	}

	return n, nil
}
