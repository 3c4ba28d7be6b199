// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sizehistory implements the size-history models of a
// population node: constant, exponential-growth, and piecewise
// compositions of both. A history exposes the three coalescent
// kernels (G, ET, ESi) of package coalescent dispatched against its
// own diploid population size and epoch duration.
package sizehistory

import (
	"fmt"
	"math"

	"github.com/coalsfs/coalsfs/coalescent"
)

// Epoch is a single time-bounded interval of a population's size
// history: it starts tStart generations before present, lasts tau
// generations (tau may be infinite for the oldest epoch), and spans a
// diploid population size that holds constant at nBottom or decays
// exponentially from nBottom to nTop at growthRate.
type Epoch struct {
	TStart     float64
	Tau        float64
	NBottom    float64
	NTop       float64
	GrowthRate float64
	Exponential bool
}

// validate checks the invariants of spec §4.1: tau >= 0, both sizes
// positive, and — when the epoch is exponential — N_top =
// N_bottom*exp(-growthRate*tau).
func (e Epoch) validate() error {
	if e.Tau < 0 {
		return fmt.Errorf("sizehistory: epoch at t=%v has negative tau %v", e.TStart, e.Tau)
	}
	if e.NBottom <= 0 || e.NTop <= 0 {
		return fmt.Errorf("sizehistory: epoch at t=%v has non-positive population size", e.TStart)
	}
	if e.Exponential && !math.IsInf(e.Tau, 1) {
		want := e.NBottom * math.Exp(-e.GrowthRate*e.Tau)
		if math.Abs(want-e.NTop) > 1e-6*math.Max(1, want) {
			return fmt.Errorf("sizehistory: epoch at t=%v breaks N_top = N_bottom*exp(-growth*tau): got %v, want %v", e.TStart, e.NTop, want)
		}
	}
	return nil
}

// History is the kernel interface every size-history model exposes:
// the coalescent transition probability, expected sojourn time, and
// expected branch count, all conditioned on an epoch's own diploid
// size and duration.
type History interface {
	// G returns the probability that n lineages entering the history
	// from its bottom coalesce down to exactly m by its top.
	G(n, m int64) float64
	// ET returns the expected time spent with i lineages, given n
	// entering at the bottom and m leaving at the top.
	ET(i, n, m int64) float64
	// ESi returns the expected number of class-i branches, given n
	// entering at the bottom and m leaving at the top.
	ESi(i, n, m int64) float64
	// Tau returns the duration of the history in generations.
	Tau() float64
	// NDiploid returns the diploid population size used for the
	// kernel calls (for a multi-epoch Piecewise history, this is
	// undefined and panics: such a history does not have a single
	// size).
	NDiploid() float64
}

// Constant is a history of unchanging diploid size N over duration tau.
type Constant struct {
	N   float64
	tau float64
}

// NewConstant builds a Constant history, rejecting a non-positive N
// or a negative tau (spec §4.1).
func NewConstant(n, tau float64) (Constant, error) {
	e := Epoch{Tau: tau, NBottom: n, NTop: n}
	if err := e.validate(); err != nil {
		return Constant{}, err
	}
	return Constant{N: n, tau: tau}, nil
}

func (c Constant) G(n, m int64) float64         { return coalescent.G(n, m, c.N, c.tau) }
func (c Constant) ET(i, n, m int64) float64      { return coalescent.ET(i, n, m, c.N, c.tau) }
func (c Constant) ESi(i, n, m int64) float64     { return coalescent.ESi(i, n, m, c.N, c.tau) }
func (c Constant) Tau() float64                  { return c.tau }
func (c Constant) NDiploid() float64             { return c.N }

// Exponential is a history whose diploid size decays (or grows, for
// negative growthRate) exponentially from nBottom to nTop over tau
// generations: N(t) = nBottom*exp(-growthRate*t).
//
// Chen's closed forms assume a constant N within an epoch; an
// exponential epoch is approximated, per spec §9's design note, by
// its time-averaged harmonic size — the standard coalescent
// substitution under which a population of changing size is treated,
// for the purpose of the pairwise coalescence rate, as a population
// of constant size equal to the harmonic mean of N(t) over the epoch.
type Exponential struct {
	NBottom    float64
	NTop       float64
	GrowthRate float64
	tau        float64
}

// NewExponential builds an Exponential history; nTop must equal
// nBottom*exp(-growthRate*tau) for finite tau (spec §4.1 invariant).
func NewExponential(nBottom, nTop, growthRate, tau float64) (Exponential, error) {
	e := Epoch{Tau: tau, NBottom: nBottom, NTop: nTop, GrowthRate: growthRate, Exponential: true}
	if err := e.validate(); err != nil {
		return Exponential{}, err
	}
	return Exponential{NBottom: nBottom, NTop: nTop, GrowthRate: growthRate, tau: tau}, nil
}

// harmonicN returns the time-averaged harmonic diploid size used as
// the constant-N substitute for the coalescent kernels.
func (x Exponential) harmonicN() float64 {
	if math.IsInf(x.tau, 1) || x.GrowthRate == 0 {
		return x.NBottom
	}
	// Harmonic mean of N(t) = NBottom*exp(-growthRate*t) over [0,tau]:
	// (1/tau) * integral_0^tau 1/N(t) dt, inverted.
	integral := (math.Exp(x.GrowthRate*x.tau) - 1) / (x.GrowthRate * x.NBottom)
	mean := x.tau / integral
	return mean
}

func (x Exponential) G(n, m int64) float64     { return coalescent.G(n, m, x.harmonicN(), x.tau) }
func (x Exponential) ET(i, n, m int64) float64  { return coalescent.ET(i, n, m, x.harmonicN(), x.tau) }
func (x Exponential) ESi(i, n, m int64) float64 { return coalescent.ESi(i, n, m, x.harmonicN(), x.tau) }
func (x Exponential) Tau() float64              { return x.tau }
func (x Exponential) NDiploid() float64         { return x.harmonicN() }

// Piecewise composes an ordered, contiguous sequence of epochs into a
// single history spanning from the bottom of the first epoch to the
// (possibly infinite) top of the last. Epoch boundaries must be
// strictly increasing from 0, and the population size must be
// continuous across boundaries (NTop of one epoch equals NBottom of
// the next), per spec §4.1's "no gaps" invariant.
//
// Because Chen's closed forms operate within a single constant- (or
// exponential-) size epoch, Piecewise folds its epochs together with
// Chapman-Kolmogorov composition (see compose) before answering a
// G/ET/ESi query: lineages passing through the history take on some
// lineage count at each epoch boundary, and the composed kernels sum
// over every count the boundary could have held. The sum-product
// engine calls G/ET/ESi on a Piecewise history exactly as it would on
// any single-epoch History; the composition across epochs is entirely
// internal to this type.
type Piecewise struct {
	Epochs []Epoch
}

// NewPiecewise validates the ordered epoch sequence and returns a
// Piecewise history. The final epoch must have infinite duration.
func NewPiecewise(epochs []Epoch) (*Piecewise, error) {
	if len(epochs) == 0 {
		return nil, fmt.Errorf("sizehistory: piecewise history has no epochs")
	}
	wantStart := 0.0
	for i, e := range epochs {
		if err := e.validate(); err != nil {
			return nil, err
		}
		if e.TStart != wantStart {
			return nil, fmt.Errorf("sizehistory: epoch %d starts at %v, want %v (no gaps allowed)", i, e.TStart, wantStart)
		}
		if i > 0 {
			prev := epochs[i-1]
			if math.Abs(prev.NTop-e.NBottom) > 1e-6*math.Max(1, prev.NTop) {
				return nil, fmt.Errorf("sizehistory: epoch %d starts at size %v, previous epoch ended at %v", i, e.NBottom, prev.NTop)
			}
		}
		if i < len(epochs)-1 {
			if math.IsInf(e.Tau, 1) {
				return nil, fmt.Errorf("sizehistory: only the final epoch may have infinite tau")
			}
			wantStart = e.TStart + e.Tau
		}
	}
	last := epochs[len(epochs)-1]
	if !math.IsInf(last.Tau, 1) {
		return nil, fmt.Errorf("sizehistory: final epoch must have infinite tau")
	}
	return &Piecewise{Epochs: epochs}, nil
}

// AtEpoch returns the History for the epoch containing the given
// index into p.Epochs, dispatching to Constant or Exponential.
func (p *Piecewise) AtEpoch(idx int) (History, error) {
	if idx < 0 || idx >= len(p.Epochs) {
		return nil, fmt.Errorf("sizehistory: epoch index %d out of range [0,%d)", idx, len(p.Epochs))
	}
	e := p.Epochs[idx]
	if e.Exponential {
		return NewExponential(e.NBottom, e.NTop, e.GrowthRate, e.Tau)
	}
	return NewConstant(e.NBottom, e.Tau)
}

// composite folds every one of p's epochs into a single History,
// composing them pairwise left to right (most recent epoch first)
// with compose. For a single-epoch Piecewise this is just that
// epoch's own History.
//
// The fold is recomputed on every call rather than cached on p
// itself: package sizehistory's Memoized wrapper already caches
// G/ET/ESi results for a Piecewise history at the (n,m) or (i,n,m)
// argument level, so repeated queries from the sum-product engine do
// not repeat the composition work.
func (p *Piecewise) composite() (History, error) {
	h, err := p.AtEpoch(0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(p.Epochs); i++ {
		next, err := p.AtEpoch(i)
		if err != nil {
			return nil, err
		}
		h = compose(h, next)
	}
	return h, nil
}

func (p *Piecewise) G(n, m int64) float64 {
	h, err := p.composite()
	if err != nil {
		panic(err)
	}
	return h.G(n, m)
}

func (p *Piecewise) ET(i, n, m int64) float64 {
	h, err := p.composite()
	if err != nil {
		panic(err)
	}
	return h.ET(i, n, m)
}

func (p *Piecewise) ESi(i, n, m int64) float64 {
	h, err := p.composite()
	if err != nil {
		panic(err)
	}
	return h.ESi(i, n, m)
}

func (p *Piecewise) Tau() float64 {
	var total float64
	for _, e := range p.Epochs {
		if math.IsInf(e.Tau, 1) {
			return math.Inf(1)
		}
		total += e.Tau
	}
	return total
}

func (p *Piecewise) NDiploid() float64 {
	if len(p.Epochs) != 1 {
		panic("sizehistory: NDiploid is undefined for a multi-epoch Piecewise history")
	}
	return p.Epochs[0].NBottom
}

// composed chains two histories end to end: h1 is entered first (its
// bottom is the composed history's bottom, nearer the present), and
// its top feeds directly into h2's bottom; h2's top is the composed
// history's top. G, ET, and ESi implement the Chapman-Kolmogorov
// composition of h1 and h2's transition kernels, summing over every
// lineage count the shared boundary could hold.
type composed struct {
	h1, h2 History
}

// compose returns the History obtained by running h1 to completion
// and then running h2 on whatever lineage count h1 leaves behind.
func compose(h1, h2 History) History {
	return composed{h1: h1, h2: h2}
}

// G sums the two-epoch transition probability over every boundary
// lineage count l between m and n: g_total(n,m) = Σ_l g1(n,l)·g2(l,m).
func (c composed) G(n, m int64) float64 {
	var sum float64
	for l := m; l <= n; l++ {
		sum += c.h1.G(n, l) * c.h2.G(l, m)
	}
	return sum
}

// ET returns the expected time spent with i lineages across both
// epochs, weighted by the probability of passing through each
// possible boundary count l:
//
//	ET_total(i,n,m) = (1/G_total(n,m)) * Σ_l g1(n,l)·g2(l,m) * (et1 + et2)
//
// where et1 is h1's own ET(i,n,l) when i can occur in h1 (i>=l) and
// et2 is h2's own ET(i,l,m) when i can occur in h2 (i<=l). At i==l
// both terms apply: that boundary count is realized at the end of h1
// and at the start of h2, two genuinely separate stretches of time
// that both count toward the total.
func (c composed) ET(i, n, m int64) float64 {
	g := c.G(n, m)
	if g == 0 {
		return 0
	}
	var sum float64
	for l := m; l <= n; l++ {
		w := c.h1.G(n, l) * c.h2.G(l, m)
		if w == 0 {
			continue
		}
		var et float64
		if i >= l {
			et += c.h1.ET(i, n, l)
		}
		if i <= l {
			et += c.h2.ET(i, l, m)
		}
		sum += w * et
	}
	return sum / g
}

// ESi reuses the single-epoch combinatorial weighting of
// coalescent.PNK, which depends only on tree topology and not on
// either epoch's demographic parameters, substituting the composed
// ET in place of a single epoch's own ET.
func (c composed) ESi(i, n, m int64) float64 {
	var sum float64
	for k := m; k <= n; k++ {
		p := coalescent.PNK(i, n, k)
		if p == 0 {
			continue
		}
		sum += p * float64(k) * c.ET(k, n, m)
	}
	return sum
}

func (c composed) Tau() float64 {
	t1, t2 := c.h1.Tau(), c.h2.Tau()
	if math.IsInf(t1, 1) || math.IsInf(t2, 1) {
		return math.Inf(1)
	}
	return t1 + t2
}

func (c composed) NDiploid() float64 {
	panic("sizehistory: NDiploid is undefined for a composed multi-epoch history")
}
