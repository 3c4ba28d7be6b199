// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package demography_test

import (
	"math"
	"testing"

	"github.com/coalsfs/coalsfs/demography"
	"github.com/coalsfs/coalsfs/sizehistory"
)

func mustConstant(t *testing.T, n, tau float64) sizehistory.History {
	t.Helper()
	h, err := sizehistory.NewConstant(n, tau)
	if err != nil {
		t.Fatalf("NewConstant: %v", err)
	}
	return h
}

func twoLeafMerge(t *testing.T) []*demography.Population {
	t.Helper()
	return []*demography.Population{
		{ID: "A", History: mustConstant(t, 5000, 1000), Leaf: true, NLeaf: 4, NLineages: 4},
		{ID: "B", History: mustConstant(t, 5000, 1000), Leaf: true, NLeaf: 4, NLineages: 4},
		{ID: "AB", History: mustConstant(t, 8000, math.Inf(1))},
	}
}

func TestNewGraphMerge(t *testing.T) {
	pops := twoLeafMerge(t)
	events := []demography.Event{
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "B"}, Parent: "AB"},
	}
	g, err := demography.NewGraph(pops, events)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	if g.Root() != "AB" {
		t.Errorf("Root: got %q, want %q", g.Root(), "AB")
	}
	if got := g.Leaves(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("Leaves: got %v, want [A B]", got)
	}
	children := g.Children("AB")
	if len(children) != 2 {
		t.Errorf("Children(AB): got %v, want 2 entries", children)
	}
	if got := g.NLineagesSubtendedBy("AB"); got != 8 {
		t.Errorf("NLineagesSubtendedBy(AB): got %d, want 8", got)
	}
}

func TestNewGraphRejectsNonDisjointMerge(t *testing.T) {
	pops := []*demography.Population{
		{ID: "A", History: mustConstant(t, 5000, 1000), Leaf: true, NLeaf: 4, NLineages: 4},
		{ID: "AB", History: mustConstant(t, 8000, math.Inf(1))},
	}
	events := []demography.Event{
		// A merged with itself is a contract violation (not disjoint),
		// modeled here via duplicate children referencing the same leaf.
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "A"}, Parent: "AB"},
	}
	if _, err := demography.NewGraph(pops, events); err == nil {
		t.Errorf("expected error for non-disjoint merge children")
	}
}

func TestNewGraphRejectsMultipleRoots(t *testing.T) {
	pops := []*demography.Population{
		{ID: "A", History: mustConstant(t, 5000, math.Inf(1)), Leaf: true, NLeaf: 4, NLineages: 4},
		{ID: "B", History: mustConstant(t, 5000, math.Inf(1)), Leaf: true, NLeaf: 4, NLineages: 4},
	}
	if _, err := demography.NewGraph(pops, nil); err == nil {
		t.Errorf("expected error for a demography with two unconnected roots")
	}
}

func TestEventTreeBuildsSingleRoot(t *testing.T) {
	pops := twoLeafMerge(t)
	events := []demography.Event{
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "B"}, Parent: "AB"},
	}
	g, err := demography.NewGraph(pops, events)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	root := g.Tree.Root()
	parents := g.Tree.ParentPops(root)
	if len(parents) != 1 || parents[0] != "AB" {
		t.Errorf("event tree root parent pops: got %v, want [AB]", parents)
	}
	if got := g.Tree.SubPops(root); len(got) != 1 || got[0] != "AB" {
		t.Errorf("event tree root subpops: got %v, want [AB]", got)
	}
}

func TestNewGraphAdmixture(t *testing.T) {
	pops := []*demography.Population{
		{ID: "A", History: mustConstant(t, 5000, 500), Leaf: true, NLeaf: 6, NLineages: 6},
		{ID: "P1", History: mustConstant(t, 5000, math.Inf(1))},
		{ID: "P2", History: mustConstant(t, 5000, math.Inf(1))},
	}
	events := []demography.Event{
		{
			Kind:       demography.EventAdmixture,
			Time:       500,
			Child:      "A",
			Parents:    []string{"P1", "P2"},
			SplitProbs: map[string]float64{"P1": 0.3, "P2": 0.7},
		},
	}
	if _, err := demography.NewGraph(pops, events); err == nil {
		t.Errorf("expected error: admixture event leaves two unconnected roots P1, P2")
	}
}

// admixtureIntoOneRoot builds a demography where leaf A is admixed at
// t=500 into two destinations, each of which then merges with its own
// further leaf (B or C, parameterized so the test below can swap them)
// before the two branches merge into a single root at t=2000. This is
// the minimal topology in which admixture's two destinations actually
// converge: without the further merges beyond P1/P2, the graph would
// never have a single root (see TestNewGraphAdmixture above).
func admixtureIntoOneRoot(t *testing.T, q1 float64, secondLeafOfP1, secondLeafOfP2 string) (*demography.Graph, error) {
	t.Helper()
	pops := []*demography.Population{
		{ID: "A", History: mustConstant(t, 5000, 500), Leaf: true, NLeaf: 4, NLineages: 4, NDerived: 1},
		{ID: "B", History: mustConstant(t, 5000, 1000), Leaf: true, NLeaf: 2, NLineages: 2},
		{ID: "C", History: mustConstant(t, 5000, 1000), Leaf: true, NLeaf: 2, NLineages: 2},
		{ID: "P1", History: mustConstant(t, 5000, 500)},
		{ID: "P2", History: mustConstant(t, 5000, 500)},
		{ID: "X", History: mustConstant(t, 8000, 1000)},
		{ID: "Y", History: mustConstant(t, 8000, 1000)},
		{ID: "R", History: mustConstant(t, 10000, math.Inf(1))},
	}
	events := []demography.Event{
		{
			Kind:       demography.EventAdmixture,
			Time:       500,
			Child:      "A",
			Parents:    []string{"P1", "P2"},
			SplitProbs: map[string]float64{"P1": q1, "P2": 1 - q1},
		},
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"P1", secondLeafOfP1}, Parent: "X"},
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"P2", secondLeafOfP2}, Parent: "Y"},
		{Kind: demography.EventMerge, Time: 2000, Children: []string{"X", "Y"}, Parent: "R"},
	}
	return demography.NewGraph(pops, events)
}

func TestNewGraphAdmixtureConvergesToSingleRoot(t *testing.T) {
	g, err := admixtureIntoOneRoot(t, 0.3, "B", "C")
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	if g.Root() != "R" {
		t.Errorf("Root: got %q, want %q", g.Root(), "R")
	}
}

func TestConfigureIndependentOfSource(t *testing.T) {
	pops := twoLeafMerge(t)
	events := []demography.Event{
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "B"}, Parent: "AB"},
	}
	g, err := demography.NewGraph(pops, events)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	g2, err := g.Configure(map[string]demography.LeafConfig{
		"A": {NAncestral: 3, NDerived: 1},
		"B": {NAncestral: 4, NDerived: 0},
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	pa, err := g.Population("A")
	if err != nil {
		t.Fatalf("Population: %v", err)
	}
	if pa.NDerived != 0 {
		t.Errorf("source graph mutated by Configure: A.NDerived = %d, want 0", pa.NDerived)
	}

	pa2, err := g2.Population("A")
	if err != nil {
		t.Fatalf("Population: %v", err)
	}
	if pa2.NLineages != 4 || pa2.NDerived != 1 {
		t.Errorf("configured graph: A lineages=%d derived=%d, want 4, 1", pa2.NLineages, pa2.NDerived)
	}
}

func TestConfigureRejectsMissingLeaf(t *testing.T) {
	pops := twoLeafMerge(t)
	events := []demography.Event{
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "B"}, Parent: "AB"},
	}
	g, err := demography.NewGraph(pops, events)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	if _, err := g.Configure(map[string]demography.LeafConfig{"A": {NAncestral: 4, NDerived: 0}}); err == nil {
		t.Errorf("expected error: Configure missing an entry for leaf %q", "B")
	}
}

func TestEventTimes(t *testing.T) {
	pops := twoLeafMerge(t)
	events := []demography.Event{
		{Kind: demography.EventMerge, Time: 1000, Children: []string{"A", "B"}, Parent: "AB"},
	}
	g, err := demography.NewGraph(pops, events)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	got := g.EventTimes().Stages()
	if len(got) != 1 || got[0] != 1000 {
		t.Errorf("EventTimes: got %v, want [1000]", got)
	}
}

func TestAdmixtureSplitProbSumsToOne(t *testing.T) {
	n := int64(5)
	q := 0.35
	var sum float64
	for k := int64(0); k <= n; k++ {
		sum += demography.AdmixtureSplitProb(n, k, q)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum of AdmixtureSplitProb over k: got %v, want 1", sum)
	}
}
