// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sfsio loads the already-resolved demography and
// leaf-configuration representations that an external parser (spec
// §6.1, out of scope for this module) is expected to hand over: a
// JSON description of populations, epochs, and events, and a TSV
// batch of per-leaf allele-count configurations.
package sfsio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/coalsfs/coalsfs/demography"
	"github.com/coalsfs/coalsfs/sizehistory"
)

// epochJSON is the wire shape of a sizehistory.Epoch. Tau is null for
// the final, open-ended epoch of a population's history.
type epochJSON struct {
	TStart     float64  `json:"t_start"`
	Tau        *float64 `json:"tau"`
	NBottom    float64  `json:"n_bottom"`
	NTop       float64  `json:"n_top"`
	GrowthRate *float64 `json:"growth_rate,omitempty"`
}

type populationJSON struct {
	ID         string      `json:"id"`
	Leaf       bool        `json:"leaf"`
	NLeaf      int64       `json:"n_leaf,omitempty"`
	SampleTime float64     `json:"sample_time,omitempty"`
	Folded     bool        `json:"folded,omitempty"`
	Epochs     []epochJSON `json:"epochs"`
}

type eventJSON struct {
	Kind       string             `json:"kind"`
	Time       float64            `json:"time"`
	Children   []string           `json:"children,omitempty"`
	Parent     string             `json:"parent,omitempty"`
	Child      string             `json:"child,omitempty"`
	Parents    []string           `json:"parents,omitempty"`
	SplitProbs map[string]float64 `json:"split_probs,omitempty"`
}

type demographyJSON struct {
	Populations []populationJSON `json:"populations"`
	Events      []eventJSON      `json:"events"`
}

// ReadDemography decodes a demography from its JSON representation
// and validates it into a demography.Graph.
func ReadDemography(r io.Reader) (*demography.Graph, error) {
	var doc demographyJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("sfsio: decoding demography: %v", err)
	}

	pops := make([]*demography.Population, 0, len(doc.Populations))
	for _, pj := range doc.Populations {
		h, err := buildHistory(pj.ID, pj.Epochs)
		if err != nil {
			return nil, err
		}
		pops = append(pops, &demography.Population{
			ID:         pj.ID,
			History:    h,
			Leaf:       pj.Leaf,
			NLeaf:      pj.NLeaf,
			SampleTime: pj.SampleTime,
			Folded:     pj.Folded,
		})
	}

	events := make([]demography.Event, 0, len(doc.Events))
	for _, ej := range doc.Events {
		e, err := buildEvent(ej)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return demography.NewGraph(pops, events)
}

func buildEvent(ej eventJSON) (demography.Event, error) {
	switch ej.Kind {
	case "leaf":
		return demography.Event{Kind: demography.EventLeaf, Time: ej.Time, Children: ej.Children}, nil
	case "merge":
		return demography.Event{Kind: demography.EventMerge, Time: ej.Time, Children: ej.Children, Parent: ej.Parent}, nil
	case "admixture":
		return demography.Event{
			Kind:       demography.EventAdmixture,
			Time:       ej.Time,
			Child:      ej.Child,
			Parents:    ej.Parents,
			SplitProbs: ej.SplitProbs,
		}, nil
	default:
		return demography.Event{}, fmt.Errorf("sfsio: unknown event kind %q", ej.Kind)
	}
}

// buildHistory translates a population's JSON epoch list into a
// sizehistory.History, wrapping the result with sizehistory.Memoized
// so that repeated kernel calls during evaluation are cached per
// epoch (spec §4.7).
func buildHistory(popID string, epochs []epochJSON) (sizehistory.History, error) {
	if len(epochs) == 0 {
		return nil, fmt.Errorf("sfsio: population %q has no epochs", popID)
	}
	if len(epochs) == 1 {
		e := epochs[0]
		tau := math.Inf(1)
		if e.Tau != nil {
			tau = *e.Tau
		}
		if e.GrowthRate != nil {
			h, err := sizehistory.NewExponential(e.NBottom, e.NTop, *e.GrowthRate, tau)
			if err != nil {
				return nil, fmt.Errorf("sfsio: population %q: %v", popID, err)
			}
			return sizehistory.NewMemoized(h), nil
		}
		h, err := sizehistory.NewConstant(e.NBottom, tau)
		if err != nil {
			return nil, fmt.Errorf("sfsio: population %q: %v", popID, err)
		}
		return sizehistory.NewMemoized(h), nil
	}

	pieces := make([]sizehistory.Epoch, len(epochs))
	for i, e := range epochs {
		tau := math.Inf(1)
		if e.Tau != nil {
			tau = *e.Tau
		}
		piece := sizehistory.Epoch{TStart: e.TStart, Tau: tau, NBottom: e.NBottom, NTop: e.NTop}
		if e.GrowthRate != nil {
			piece.Exponential = true
			piece.GrowthRate = *e.GrowthRate
		}
		pieces[i] = piece
	}
	p, err := sizehistory.NewPiecewise(pieces)
	if err != nil {
		return nil, fmt.Errorf("sfsio: population %q: %v", popID, err)
	}
	return sizehistory.NewMemoized(p), nil
}

// Config is one leaf-configuration observation: the derived and
// ancestral lineage counts sampled at each leaf population.
type Config struct {
	ID     string
	Leaves map[string]LeafCount
}

// LeafCount is the (n_ancestral, n_derived) pair observed at a leaf
// for one configuration.
type LeafCount struct {
	NAncestral, NDerived int64
}

// ReadConfigs reads a batch of leaf configurations from a TSV file
// with columns config, population, n_ancestral, n_derived — one row
// per (configuration, leaf population) pair, following the
// csv.Reader{Comma:'\t', Comment:'#'} convention used throughout this
// module's TSV readers.
func ReadConfigs(r io.Reader) ([]Config, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("sfsio: reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[h] = i
	}
	for _, h := range []string{"config", "population", "n_ancestral", "n_derived"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("sfsio: expecting field %q", h)
		}
	}

	byID := make(map[string]*Config)
	var order []string
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("sfsio: on row %d: %v", ln, err)
		}

		id := row[fields["config"]]
		pop := row[fields["population"]]
		nAnc, err := strconv.ParseInt(row[fields["n_ancestral"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sfsio: row %d: invalid n_ancestral %q: %v", ln, row[fields["n_ancestral"]], err)
		}
		nDer, err := strconv.ParseInt(row[fields["n_derived"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sfsio: row %d: invalid n_derived %q: %v", ln, row[fields["n_derived"]], err)
		}

		c, ok := byID[id]
		if !ok {
			c = &Config{ID: id, Leaves: make(map[string]LeafCount)}
			byID[id] = c
			order = append(order, id)
		}
		c.Leaves[pop] = LeafCount{NAncestral: nAnc, NDerived: nDer}
	}

	sort.Strings(order)
	out := make([]Config, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// Clone returns a new graph configured with cfg's leaf counts, sharing
// g's populations and events otherwise. Unlike Apply, the returned
// graph is independent of g, so a batch of Clone results can be
// evaluated concurrently (see likelihood.ComputeSFSBatch).
func Clone(g *demography.Graph, cfg Config) (*demography.Graph, error) {
	counts := make(map[string]demography.LeafConfig, len(cfg.Leaves))
	for id, lc := range cfg.Leaves {
		counts[id] = demography.LeafConfig{NAncestral: lc.NAncestral, NDerived: lc.NDerived}
	}
	return g.Configure(counts)
}

// Apply sets each leaf population's lineage and derived-allele counts
// in g to match cfg, so that a subsequent likelihood.ComputeSFS
// evaluates cfg's likelihood. Every leaf of g must appear in cfg.
func Apply(g *demography.Graph, cfg Config) error {
	for _, id := range g.Leaves() {
		lc, ok := cfg.Leaves[id]
		if !ok {
			return fmt.Errorf("sfsio: configuration %q has no entry for leaf population %q", cfg.ID, id)
		}
		p, err := g.Population(id)
		if err != nil {
			return err
		}
		if lc.NAncestral+lc.NDerived > p.NLeaf {
			return fmt.Errorf("sfsio: configuration %q at leaf %q: %d+%d exceeds sample size %d", cfg.ID, id, lc.NAncestral, lc.NDerived, p.NLeaf)
		}
		p.NLineages = lc.NAncestral + lc.NDerived
		p.NDerived = lc.NDerived
	}
	return nil
}
