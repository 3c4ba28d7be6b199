// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package demography

import (
	"fmt"
	"sort"

	"github.com/coalsfs/coalsfs/coalerr"
)

// eventTreeNode is one node of the junction tree: a group of
// populations ("subpops") that coexist immediately above some merge
// or admixture event, plus the single-or-double population the event
// gives rise to going backward in time ("parentPops") and, for each
// population the event consumes going forward in time, the
// downstream event that produced it ("childPops").
type eventTreeNode struct {
	ID         string
	SubPops    []string
	ParentPops []string
	ChildPops  map[string]string
	Time       float64
}

// EventTree is the junction tree over a Graph's events, built once at
// Graph construction time: it orders the sum-product engine's
// traversal so that every event is visited only after all the
// populations feeding into it have already been resolved.
type EventTree struct {
	nodes map[string]*eventTreeNode
	root  string
}

// Root returns the id of the event tree's root, the event whose
// single parent population is the demography's root.
func (t *EventTree) Root() string { return t.root }

// SubPops returns the populations coexisting immediately above event.
func (t *EventTree) SubPops(event string) []string { return t.nodes[event].SubPops }

// ParentPops returns the population(s) this event gives rise to,
// backward in time: one for a merge, two for an admixture, and the
// leaf population itself for a leaf event.
func (t *EventTree) ParentPops(event string) []string { return t.nodes[event].ParentPops }

// ChildPops returns, for each population this event consumes forward
// in time, the id of the child event that produced it.
func (t *EventTree) ChildPops(event string) map[string]string { return t.nodes[event].ChildPops }

// Time returns the event's time, in generations before present.
func (t *EventTree) Time(event string) float64 { return t.nodes[event].Time }

// buildEventTree ports momi2's demography.py._build_event_tree:
// start with each leaf as its own event, then fold in g's events in
// time order, merging the event(s) under each event's child
// populations into one new junction-tree node whose subpops are the
// union of its children's subpops, with the consumed child
// populations removed and the event's own parent populations added.
func buildEventTree(g *Graph) (*EventTree, error) {
	t := &EventTree{nodes: make(map[string]*eventTreeNode)}

	currEvent := make(map[string]string, len(g.pops))
	for _, l := range g.leaves {
		id := "leaf:" + l
		p := g.pops[l]
		t.nodes[id] = &eventTreeNode{
			ID:         id,
			SubPops:    []string{l},
			ParentPops: []string{l},
			ChildPops:  map[string]string{},
			Time:       p.SampleTime,
		}
		currEvent[l] = id
	}

	ordered := make([]Event, len(g.events))
	copy(ordered, g.events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })

	for i, e := range ordered {
		var parentPops, childPops []string
		switch e.Kind {
		case EventMerge:
			parentPops = []string{e.Parent}
			childPops = e.Children
		case EventAdmixture:
			parentPops = e.Parents
			childPops = []string{e.Child}
		default:
			continue
		}

		childEventSet := make(map[string]bool)
		childEventPops := make(map[string]string)
		for _, c := range childPops {
			ce, ok := currEvent[c]
			if !ok {
				return nil, coalerr.NewContractError("demography.buildEventTree", "population %q has no event registered before t=%v", c, e.Time)
			}
			childEventSet[ce] = true
			childEventPops[c] = ce
		}

		subPopSet := make(map[string]bool)
		for ce := range childEventSet {
			for _, p := range t.nodes[ce].SubPops {
				subPopSet[p] = true
			}
		}
		for _, c := range childPops {
			delete(subPopSet, c)
		}
		for _, p := range parentPops {
			subPopSet[p] = true
		}

		subPops := make([]string, 0, len(subPopSet))
		for p := range subPopSet {
			subPops = append(subPops, p)
		}
		sort.Strings(subPops)

		id := fmt.Sprintf("event:%d", i)
		t.nodes[id] = &eventTreeNode{
			ID:         id,
			SubPops:    subPops,
			ParentPops: append([]string(nil), parentPops...),
			ChildPops:  childEventPops,
			Time:       e.Time,
		}

		for _, p := range subPops {
			currEvent[p] = id
		}
		for _, c := range childPops {
			delete(currEvent, c)
		}
	}

	remaining := make(map[string]bool)
	for _, ev := range currEvent {
		remaining[ev] = true
	}
	if len(remaining) != 1 {
		return nil, coalerr.NewContractError("demography.buildEventTree", "event tree construction left %d unresolved events, want 1", len(remaining))
	}
	for ev := range remaining {
		t.root = ev
	}

	return t, nil
}
