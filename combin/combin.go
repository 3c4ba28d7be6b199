// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package combin implements the exact and log-space combinatorial
// primitives the sum-product engine and the coalescent kernels are
// built on: exact integer binomial coefficients, log-gamma binomial
// coefficients, rising and falling factorials, and the hypergeometric
// "urn" probability used to distribute derived alleles exchangeably
// among surviving lineages.
package combin

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/mathext"
)

// BinomExact returns the exact integer binomial coefficient C(n,k) as a
// big.Int. Returns zero if k < 0 or k > n.
func BinomExact(n, k int) *big.Int {
	if k < 0 || k > n || n < 0 {
		return new(big.Int)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// LogBinom returns log(C(n,k)) = logΓ(n+1) − logΓ(k+1) − logΓ(n−k+1).
// Returns negative infinity if k < 0 or k > n.
func LogBinom(n, k int) float64 {
	if k < 0 || k > n || n < 0 {
		return math.Inf(-1)
	}
	lgn, _ := mathext.Lgamma(float64(n) + 1)
	lgk, _ := mathext.Lgamma(float64(k) + 1)
	lgnk, _ := mathext.Lgamma(float64(n-k) + 1)
	return lgn - lgk - lgnk
}

// RisingFactorial returns the rising factorial n^(k) = n(n+1)...(n+k−1),
// with n^(0) = 1, as an exact big.Int.
func RisingFactorial(n, k int64) *big.Int {
	if k <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).MulRange(n, n+k-1)
}

// FallingFactorial returns the falling factorial n_(k) = n(n−1)...(n−k+1),
// with n_(0) = 1, as an exact big.Int.
func FallingFactorial(n, k int64) *big.Int {
	if k <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).MulRange(n-k+1, n)
}

// LogUrnProb returns the log probability that a parent lineage group
// carrying nParentDerived derived and nParentAncestral ancestral
// lineages yields, after an exchangeable split, a child group carrying
// nChildDerived derived and nChildAncestral ancestral lineages.
//
// This is the hypergeometric "urn" weight of spec §4.2:
//
//	logC(nChildDerived-1, nParentDerived-1) +
//	logC(nChildAncestral-1, nParentAncestral-1) -
//	logC(nChild-1, nParent-1)
//
// if both parent counts are positive and the child counts dominate them;
// 0 if one side of the split carries no lineages of a kind on both ends;
// and negative infinity (impossible) otherwise.
func LogUrnProb(nParentDerived, nParentAncestral, nChildDerived, nChildAncestral int) float64 {
	nParent := nParentDerived + nParentAncestral
	nChild := nChildDerived + nChildAncestral

	switch {
	case nChildDerived >= nParentDerived && nParentDerived > 0 &&
		nChildAncestral >= nParentAncestral && nParentAncestral > 0:
		return LogBinom(nChildDerived-1, nParentDerived-1) +
			LogBinom(nChildAncestral-1, nParentAncestral-1) -
			LogBinom(nChild-1, nParent-1)
	case (nChildDerived == 0 && nParentDerived == 0) || (nChildAncestral == 0 && nParentAncestral == 0):
		return 0
	default:
		return math.Inf(-1)
	}
}
