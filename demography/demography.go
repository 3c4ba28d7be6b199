// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package demography implements the rooted DAG of populations that
// the sum-product engine walks: leaves, merges, and admixture
// (pulse) events, together with the derived event tree (junction
// tree) that orders the engine's traversal.
package demography

import (
	"math"
	"sort"

	"github.com/fredericlemoine/bitset"

	"github.com/coalsfs/coalsfs/coalerr"
	"github.com/coalsfs/coalsfs/sizehistory"
	"github.com/coalsfs/coalsfs/timestage"
)

// Population is a node of the demography: a size history spanning
// from its sampling time (0 for a present-day leaf, later for an
// archaic leaf) down to the event that ends it, plus, for leaves, the
// observed sample size and derived-allele count.
type Population struct {
	ID         string
	History    sizehistory.History
	Leaf       bool
	NLeaf      int64
	SampleTime float64
	Folded     bool

	// NLineages and NDerived are the ancestral+derived and derived
	// lineage counts subtended by this node under the configuration
	// currently loaded into the engine; they are set by the caller
	// (package sfsio / likelihood) after construction, not by Graph
	// itself.
	NLineages int64
	NDerived  int64
}

// EventKind distinguishes the three event shapes of spec §3.1.
type EventKind int

const (
	EventLeaf EventKind = iota
	EventMerge
	EventAdmixture
)

// Event is one node of the demography's backward-time history: a
// leaf's origin, a merge of two children into one parent, or an
// admixture pulse splitting one child's ancestry between two
// parents.
type Event struct {
	Kind EventKind
	Time float64

	// Leaf, Merge: the populations below the event, forward in time.
	Children []string
	// Merge: the single population above the event.
	Parent string

	// Admixture: the single population below the event.
	Child string
	// Admixture: the two populations above the event.
	Parents []string
	// Admixture: Parents[i] receives SplitProbs[Parents[i]] of Child's
	// lineages; the two probabilities sum to 1.
	SplitProbs map[string]float64
}

// Graph is the validated rooted DAG of Populations connected by
// Events, plus the indexes the sum-product engine needs to walk it:
// each population's parent(s) and children, and the derived event
// tree (see EventTree).
type Graph struct {
	pops   map[string]*Population
	events []Event

	leaves   []string
	root     string
	children map[string][]string
	parents  map[string][]string

	Tree *EventTree
}

// NewGraph validates pops and events against spec §3.2's invariants
// and builds the indexed Graph plus its event tree.
func NewGraph(pops []*Population, events []Event) (*Graph, error) {
	g := &Graph{
		pops:     make(map[string]*Population, len(pops)),
		events:   events,
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	for _, p := range pops {
		if _, ok := g.pops[p.ID]; ok {
			return nil, coalerr.NewContractError("demography.NewGraph", "duplicate population id %q", p.ID)
		}
		g.pops[p.ID] = p
		if p.Leaf {
			g.leaves = append(g.leaves, p.ID)
		}
	}
	sort.Strings(g.leaves)

	for _, e := range events {
		switch e.Kind {
		case EventMerge:
			if len(e.Children) != 2 || e.Parent == "" {
				return nil, coalerr.NewContractError("demography.NewGraph", "merge event at t=%v must have exactly two children and one parent", e.Time)
			}
			for _, c := range e.Children {
				if err := g.mustExist(c); err != nil {
					return nil, err
				}
				g.parents[c] = append(g.parents[c], e.Parent)
			}
			if err := g.mustExist(e.Parent); err != nil {
				return nil, err
			}
			g.children[e.Parent] = append(g.children[e.Parent], e.Children...)
		case EventAdmixture:
			if len(e.Parents) != 2 || e.Child == "" {
				return nil, coalerr.NewContractError("demography.NewGraph", "admixture event at t=%v must have exactly two parents and one child", e.Time)
			}
			sum := e.SplitProbs[e.Parents[0]] + e.SplitProbs[e.Parents[1]]
			if sum < 1-1e-9 || sum > 1+1e-9 {
				return nil, coalerr.NewContractError("demography.NewGraph", "admixture split probabilities at t=%v sum to %v, want 1", e.Time, sum)
			}
			if err := g.mustExist(e.Child); err != nil {
				return nil, err
			}
			for _, p := range e.Parents {
				if err := g.mustExist(p); err != nil {
					return nil, err
				}
				g.children[p] = append(g.children[p], e.Child)
			}
			g.parents[e.Child] = append(g.parents[e.Child], e.Parents...)
		case EventLeaf:
			// no edges to record; the leaf population itself anchors
			// the event tree's initial events.
		default:
			return nil, coalerr.NewContractError("demography.NewGraph", "unknown event kind %v", e.Kind)
		}
	}

	root, err := g.findRoot()
	if err != nil {
		return nil, err
	}
	g.root = root

	if err := g.checkEventTimes(); err != nil {
		return nil, err
	}
	if err := g.checkDisjointLeafSets(); err != nil {
		return nil, err
	}

	tree, err := buildEventTree(g)
	if err != nil {
		return nil, err
	}
	g.Tree = tree

	return g, nil
}

func (g *Graph) mustExist(id string) error {
	if _, ok := g.pops[id]; !ok {
		return coalerr.NewContractError("demography.NewGraph", "event refers to unknown population %q", id)
	}
	return nil
}

// findRoot returns the single population with no parent.
func (g *Graph) findRoot() (string, error) {
	var roots []string
	for id := range g.pops {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	if len(roots) != 1 {
		sort.Strings(roots)
		return "", coalerr.NewContractError("demography.NewGraph", "demography must have exactly one root population, found %v", roots)
	}
	return roots[0], nil
}

// checkEventTimes enforces that a parent population's event time is
// never younger than any of its children's (spec §3.1: "t_parent_event
// ≥ t_child_event").
func (g *Graph) checkEventTimes() error {
	eventTimeOf := make(map[string]float64)
	for _, e := range g.events {
		switch e.Kind {
		case EventMerge:
			eventTimeOf[e.Parent] = e.Time
		case EventAdmixture:
			for _, p := range e.Parents {
				eventTimeOf[p] = e.Time
			}
		}
	}
	for _, e := range g.events {
		var children []string
		switch e.Kind {
		case EventMerge:
			children = e.Children
		case EventAdmixture:
			children = []string{e.Child}
		default:
			continue
		}
		for _, c := range children {
			if ct, ok := eventTimeOf[c]; ok && ct > e.Time+1e-9 {
				return coalerr.NewContractError("demography.NewGraph", "event at t=%v has child %q whose own event is younger (t=%v)", e.Time, c, ct)
			}
		}
	}
	return nil
}

// checkDisjointLeafSets enforces spec §3.2: a merge node's two
// children must subtend disjoint leaf sets.
func (g *Graph) checkDisjointLeafSets() error {
	index := make(map[string]uint, len(g.leaves))
	for i, l := range g.leaves {
		index[l] = uint(i)
	}
	n := uint(len(g.leaves))

	sets := make(map[string]*bitset.BitSet, len(g.pops))
	var compute func(id string) *bitset.BitSet
	compute = func(id string) *bitset.BitSet {
		if s, ok := sets[id]; ok {
			return s
		}
		p := g.pops[id]
		s := bitset.New(n)
		if p.Leaf {
			s.Set(index[id])
		}
		for _, c := range g.children[id] {
			s = s.Union(compute(c))
		}
		sets[id] = s
		return s
	}
	for id := range g.pops {
		compute(id)
	}

	// A population downstream of an admixture pulse legitimately
	// shares leaves with its sibling: the pulse is exactly the event
	// that lets the same leaf's lineages reach the graph's single
	// root along two different paths, each carrying its own
	// probability of having taken that path. The disjointness
	// invariant only catches an accidental merge of a branch with
	// itself or an ancestor in an ordinary, admixture-free tree.
	throughAdmixture := make(map[string]bool, len(g.pops))
	var admixed func(id string) bool
	admixed = func(id string) bool {
		if v, ok := throughAdmixture[id]; ok {
			return v
		}
		_, _, ok := g.AdmixtureSource(id)
		v := ok
		for _, c := range g.children[id] {
			if admixed(c) {
				v = true
			}
		}
		throughAdmixture[id] = v
		return v
	}
	for id := range g.pops {
		admixed(id)
	}

	for _, e := range g.events {
		if e.Kind != EventMerge {
			continue
		}
		if throughAdmixture[e.Children[0]] || throughAdmixture[e.Children[1]] {
			continue
		}
		a, b := sets[e.Children[0]], sets[e.Children[1]]
		if a.IntersectionCardinality(b) != 0 {
			return coalerr.NewContractError("demography.NewGraph", "merge at t=%v combines non-disjoint leaf sets under %q and %q", e.Time, e.Children[0], e.Children[1])
		}
	}
	return nil
}

// Root returns the id of the demography's root population.
func (g *Graph) Root() string { return g.root }

// Leaves returns the sorted ids of the leaf populations.
func (g *Graph) Leaves() []string { return g.leaves }

// Population returns the named population, or an error if unknown.
func (g *Graph) Population(id string) (*Population, error) {
	p, ok := g.pops[id]
	if !ok {
		return nil, coalerr.NewContractError("demography.Population", "unknown population %q", id)
	}
	return p, nil
}

// Children returns v's children, forward in time (populations that
// exist before v's own originating event).
func (g *Graph) Children(v string) []string { return g.children[v] }

// Parents returns v's parent populations, backward in time: one for
// a non-admixture population, two for a population born out of an
// admixture event.
func (g *Graph) Parents(v string) []string { return g.parents[v] }

// NLineagesSubtendedBy returns the total observed lineage count
// (ancestral + derived) under the configuration currently loaded at
// the leaves reachable from v.
func (g *Graph) NLineagesSubtendedBy(v string) int64 {
	p := g.pops[v]
	if p.Leaf {
		return p.NLineages
	}
	var total int64
	for _, c := range g.children[v] {
		total += g.NLineagesSubtendedBy(c)
	}
	return total
}

// NDerivedSubtendedBy returns the total observed derived-allele count
// under the configuration currently loaded at the leaves reachable
// from v.
func (g *Graph) NDerivedSubtendedBy(v string) int64 {
	p := g.pops[v]
	if p.Leaf {
		return p.NDerived
	}
	var total int64
	for _, c := range g.children[v] {
		total += g.NDerivedSubtendedBy(c)
	}
	return total
}

// AdmixtureSource reports, for a population p born out of an
// admixture pulse, the single child population below the pulse and
// the fraction of its lineages that trace to p. ok is false if p is
// not the product of an admixture event.
func (g *Graph) AdmixtureSource(p string) (child string, q float64, ok bool) {
	for _, e := range g.events {
		if e.Kind != EventAdmixture {
			continue
		}
		for _, parent := range e.Parents {
			if parent == p {
				return e.Child, e.SplitProbs[p], true
			}
		}
	}
	return "", 0, false
}

// IsAdmixture reports whether v was produced by a merge of two
// children (false) or is a non-leaf population with no recorded
// merge, i.e. receives lineages from an admixture split (true).
func (g *Graph) IsAdmixture(v string) bool {
	_, _, ok := g.AdmixtureSource(v)
	return ok
}

// LeafConfig is the observed ancestral and derived lineage count
// sampled at a leaf population.
type LeafConfig struct {
	NAncestral, NDerived int64
}

// Configure returns a new Graph over the same populations and events
// as g, with every leaf's NLineages and NDerived set from counts. The
// returned Graph shares g's size histories (safe for concurrent use,
// as sizehistory.Memoized guards its caches with a mutex) but owns its
// own Population values, so it can be evaluated concurrently with g
// and with any other Graph produced by Configure.
func (g *Graph) Configure(counts map[string]LeafConfig) (*Graph, error) {
	pops := make([]*Population, 0, len(g.pops))
	for id, p := range g.pops {
		np := *p
		if p.Leaf {
			c, ok := counts[id]
			if !ok {
				return nil, coalerr.NewContractError("demography.Configure", "no configuration for leaf population %q", id)
			}
			if c.NAncestral+c.NDerived > p.NLeaf {
				return nil, coalerr.NewContractError("demography.Configure", "leaf %q: %d+%d exceeds sample size %d", id, c.NAncestral, c.NDerived, p.NLeaf)
			}
			np.NLineages = c.NAncestral + c.NDerived
			np.NDerived = c.NDerived
		}
		pops = append(pops, &np)
	}
	return NewGraph(pops, g.events)
}

// EventTimes returns the distinct times, rounded to the nearest
// generation, at which g's events occur — the merge and admixture
// times a reader of a demography most often wants summarized, without
// re-deriving them from the full event list.
func (g *Graph) EventTimes() timestage.Stages {
	st := timestage.New()
	for _, e := range g.events {
		if e.Kind == EventLeaf {
			continue
		}
		st.AddStage(int64(math.Round(e.Time)))
	}
	return st
}
