// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package likelihood implements the sum-product engine: Chen's
// partial-likelihood recursion over a demography's population graph,
// producing the joint site-frequency spectrum and the likelihood of
// observed leaf configurations.
package likelihood

import (
	"math"

	"github.com/coalsfs/coalsfs/coalerr"
	"github.com/coalsfs/coalsfs/combin"
	"github.com/coalsfs/coalsfs/demography"
	"github.com/coalsfs/coalsfs/memo"
)

// key identifies one (population, ancestral count, derived count)
// argument tuple shared by the Bottom and Top recursions.
type key struct {
	node string
	a, d int64
}

// Engine evaluates Chen's sum-product recursion over a single
// demography.Graph. It owns the memo caches for the recursion's
// three quantities and must not be shared across concurrent
// evaluations of the same graph (spec §5: "single-threaded
// cooperative inside one compute_sfs invocation").
type Engine struct {
	g *demography.Graph

	bottom *memo.Cache[key, float64]
	top    *memo.Cache[key, float64]
	joint  *memo.Cache[string, float64]
}

// NewEngine returns an Engine over g, with empty memo caches.
func NewEngine(g *demography.Graph) *Engine {
	return &Engine{
		g:      g,
		bottom: memo.New[key, float64](),
		top:    memo.New[key, float64](),
		joint:  memo.New[string, float64](),
	}
}

// Bottom returns the likelihood of the observed leaf configuration
// beneath v, conditioned on there being a ancestral and d derived
// lineages at the bottom of v's size history (spec §4.6).
func (e *Engine) Bottom(v string, a, d int64) (float64, error) {
	return e.memoBottom(v, a, d)
}

func (e *Engine) memoBottom(v string, a, d int64) (float64, error) {
	k := key{node: v, a: a, d: d}
	if cached, ok := e.bottom.Get(k); ok {
		return cached, nil
	}

	p, err := e.g.Population(v)
	if err != nil {
		return 0, err
	}

	var val float64
	if p.Leaf {
		val = e.bottomLeaf(p, a, d)
	} else {
		children := e.g.Children(v)
		switch len(children) {
		case 2:
			val, err = e.bottomMerge(v, children[0], children[1], a, d)
		case 1:
			val, err = e.bottomAdmixture(v, children[0], a, d)
		default:
			return 0, coalerr.NewContractError("likelihood.Bottom", "population %q has %d children, want 1 (admixture) or 2 (merge)", v, len(children))
		}
		if err != nil {
			return 0, err
		}
	}

	e.bottom.Set(k, val)
	return val, nil
}

// bottomLeaf implements the leaf base case: probability 1 if (a,d)
// exactly matches the observed sample, else 0.
func (e *Engine) bottomLeaf(p *demography.Population, a, d int64) float64 {
	if a+d == p.NLineages && d == p.NDerived {
		return 1
	}
	return 0
}

// bottomMerge combines two children's top likelihoods across every
// way of splitting a ancestral and d derived lineages between them
// (spec §4.6's non-admixture bottom() case).
func (e *Engine) bottomMerge(v, left, right string, a, d int64) (float64, error) {
	nLeft := e.g.NLineagesSubtendedBy(left)
	nRight := e.g.NLineagesSubtendedBy(right)

	var terms []float64
	for aL := int64(0); aL <= a; aL++ {
		aR := a - aL
		if aR < 0 {
			continue
		}
		for dL := int64(0); dL <= d; dL++ {
			dR := d - dL
			if dR < 0 {
				continue
			}
			nL := aL + dL
			nR := aR + dR
			if nL < 1 || nL > nLeft || nR < 1 || nR > nRight {
				continue
			}

			topL, err := e.memoTop(left, aL, dL)
			if err != nil {
				return 0, err
			}
			if topL == 0 {
				continue
			}
			topR, err := e.memoTop(right, aR, dR)
			if err != nil {
				return 0, err
			}
			if topR == 0 {
				continue
			}

			w := math.Exp(combin.LogBinom(int(a), int(aL)) + combin.LogBinom(int(d), int(dL)) - combin.LogBinom(int(a+d), int(nL)))
			terms = append(terms, w*topL*topR)
		}
	}
	return sumTerms(terms), nil
}

// bottomAdmixture computes the contribution of an admixture pulse to
// one of its two destination parents: it convolves the single child
// v's top distribution through the binomial lineage-origin split and
// the hypergeometric derived-allele split (spec §4.6's admixture
// bottom() case; the other parent's contribution is obtained
// symmetrically from its own AdmixtureSource call).
func (e *Engine) bottomAdmixture(parent, child string, a, d int64) (float64, error) {
	_, q, ok := e.g.AdmixtureSource(parent)
	if !ok {
		return 0, coalerr.NewContractError("likelihood.Bottom", "population %q has one child %q but is not an admixture destination", parent, child)
	}
	nChild := e.g.NLineagesSubtendedBy(child)

	var terms []float64
	for dv := d; dv <= nChild; dv++ {
		for av := int64(0); av <= nChild-dv; av++ {
			nv := av + dv
			if nv < a+d {
				continue
			}
			topV, err := e.memoTop(child, av, dv)
			if err != nil {
				return 0, err
			}
			if topV == 0 {
				continue
			}

			nFromParent := a + d
			splitProb := demography.AdmixtureSplitProb(nv, nFromParent, q)
			if splitProb == 0 {
				continue
			}
			// Hypergeometric probability that the a+d lineages sent
			// to parent carry d of the child's dv derived lineages
			// and a of its av ancestral ones.
			urnProb := math.Exp(combin.LogBinom(int(dv), int(d)) + combin.LogBinom(int(av), int(a)) - combin.LogBinom(int(nv), int(a+d)))
			if urnProb == 0 {
				continue
			}
			terms = append(terms, topV*splitProb*urnProb)
		}
	}
	return sumTerms(terms), nil
}

// Top returns the likelihood of the observed leaf configuration
// beneath v, conditioned on there being aTop ancestral and dTop
// derived lineages at the top of v's size history, after coalescence
// through the epoch (spec §4.6).
func (e *Engine) Top(v string, aTop, dTop int64) (float64, error) {
	return e.memoTop(v, aTop, dTop)
}

func (e *Engine) memoTop(v string, aTop, dTop int64) (float64, error) {
	k := key{node: v, a: aTop, d: dTop}
	if cached, ok := e.top.Get(k); ok {
		return cached, nil
	}

	p, err := e.g.Population(v)
	if err != nil {
		return 0, err
	}
	nLeaves := e.g.NLineagesSubtendedBy(v)

	var terms []float64
	for dBot := dTop; dBot <= nLeaves; dBot++ {
		for aBot := int64(0); aBot <= nLeaves-dBot; aBot++ {
			if aBot+dBot < aTop+dTop {
				continue
			}
			if dBot > 0 && dTop == 0 {
				continue
			}

			pBot, err := e.memoBottom(v, aBot, dBot)
			if err != nil {
				return 0, err
			}
			if pBot == 0 {
				continue
			}

			term := pBot * p.History.G(aBot+dBot, aTop+dTop)
			if dBot > 0 {
				term *= math.Exp(combin.LogUrnProb(int(dTop), int(aTop), int(dBot), int(aBot)))
			}
			terms = append(terms, term)
		}
	}

	val := sumTerms(terms)
	e.top.Set(k, val)
	return val, nil
}

// JointSFS returns the expected number of segregating sites whose
// most-recent common ancestor lies at v, weighted by the observed
// configuration likelihood (spec §4.6). The likelihood of the whole
// demography is JointSFS(root).
func (e *Engine) JointSFS(v string) (float64, error) {
	if cached, ok := e.joint.Get(v); ok {
		return cached, nil
	}

	nLeaves := e.g.NLineagesSubtendedBy(v)
	p, err := e.g.Population(v)
	if err != nil {
		return 0, err
	}

	var terms []float64
	for nBot := int64(1); nBot <= nLeaves; nBot++ {
		for nTop := int64(1); nTop <= nBot; nTop++ {
			// momi2/huachen_eqs.py's partial_likelihood joint_sfs
			// loops n_derived over range(1, n_bot-n_top+1), i.e. up
			// to and including n_bot-n_top, not n_bot-n_top+1.
			for d := int64(1); d <= nBot-nTop; d++ {
				a := nBot - d
				bot, err := e.memoBottom(v, a, d)
				if err != nil {
					return 0, err
				}
				if bot == 0 {
					continue
				}
				terms = append(terms, bot*p.History.ESi(d, nBot, nTop))
			}
		}
	}
	ret := sumTerms(terms)

	children := e.g.Children(v)
	if len(children) == 2 {
		left, right := children[0], children[1]
		if e.g.NDerivedSubtendedBy(left) == 0 {
			jr, err := e.JointSFS(right)
			if err != nil {
				return 0, err
			}
			ret += jr
		}
		if e.g.NDerivedSubtendedBy(right) == 0 {
			jl, err := e.JointSFS(left)
			if err != nil {
				return 0, err
			}
			ret += jl
		}
	}

	e.joint.Set(v, ret)
	return ret, nil
}

// ComputeSFS evaluates the overall likelihood of g's currently loaded
// configuration: JointSFS at the demography's root.
//
// A leaf population with Folded set has no known ancestral state, so
// its observed (n_ancestral, n_derived) pair is indistinguishable from
// (n_derived, n_ancestral); the reported likelihood is the sum of
// JointSFS evaluated under both polarizations of every folded leaf
// (momi2's folded-SFS convention, §4 of the supplemented features).
func ComputeSFS(g *demography.Graph) (float64, error) {
	e := NewEngine(g)
	v, err := e.JointSFS(g.Root())
	if err != nil {
		return 0, err
	}

	counts, anyFolded, err := complementFoldedCounts(g)
	if err != nil {
		return 0, err
	}
	if !anyFolded {
		return v, nil
	}

	gc, err := g.Configure(counts)
	if err != nil {
		return 0, err
	}
	ec := NewEngine(gc)
	vc, err := ec.JointSFS(gc.Root())
	if err != nil {
		return 0, err
	}
	return v + vc, nil
}

// complementFoldedCounts returns a full leaf-configuration map for g
// in which every Folded leaf has its ancestral and derived counts
// swapped, and every unfolded leaf keeps its observed counts. The
// second return value reports whether g has any folded leaf at all,
// so callers can skip the second evaluation when there is nothing to
// fold.
func complementFoldedCounts(g *demography.Graph) (map[string]demography.LeafConfig, bool, error) {
	counts := make(map[string]demography.LeafConfig, len(g.Leaves()))
	anyFolded := false
	for _, id := range g.Leaves() {
		p, err := g.Population(id)
		if err != nil {
			return nil, false, err
		}
		if p.Folded {
			anyFolded = true
			counts[id] = demography.LeafConfig{NAncestral: p.NDerived, NDerived: p.NLineages - p.NDerived}
			continue
		}
		counts[id] = demography.LeafConfig{NAncestral: p.NLineages - p.NDerived, NDerived: p.NDerived}
	}
	return counts, anyFolded, nil
}

// sumTerms accumulates terms with Kahan compensated summation once
// the term count exceeds the ~50 threshold past which naive floating
// summation starts losing meaningful precision (spec §4.6), and plain
// addition otherwise.
func sumTerms(terms []float64) float64 {
	if len(terms) <= 50 {
		var sum float64
		for _, t := range terms {
			sum += t
		}
		return sum
	}

	var sum, c float64
	for _, t := range terms {
		y := t - c
		s := sum + y
		c = (s - sum) - y
		sum = s
	}
	return sum
}
