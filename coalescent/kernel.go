// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"math"
	"math/big"

	"github.com/coalsfs/coalsfs/bigfloat"
	"github.com/coalsfs/coalsfs/combin"
	"gonum.org/v1/gonum/floats"
)

// TauInfinite marks an epoch of unbounded duration (the root epoch of a
// demography). Any finite comparison against it must use math.IsInf.
var TauInfinite = math.Inf(1)

// G returns the probability that n lineages at the bottom of an epoch
// of duration tau and diploid size nDiploid coalesce down to exactly m
// lineages at the top of the epoch. Panics if n < m (spec §4.4: "if a
// call has n < m the function rejects").
func G(n, m int64, nDiploid, tau float64) float64 {
	if n < m {
		panic("coalescent: G called with n < m")
	}
	if math.IsInf(tau, 1) {
		if m == 1 {
			return 1
		}
		return 0
	}
	if tau == 0 {
		if n == m {
			return 1
		}
		return 0
	}

	nd := bigfloat.New(nDiploid)
	t := bigfloat.New(tau)

	sum := bigfloat.Zero()
	for k := m; k <= n; k++ {
		term := bigfloat.Mul(Gcoef(k, n, m), expC(k, t, nd))
		sum = bigfloat.Add(sum, term)
	}
	return bigfloat.ToFloat64(sum)
}

// ET returns the expected amount of time, during an epoch of duration
// tau and diploid size nDiploid, spent with exactly i ancestral
// lineages, conditional on starting with n lineages at the bottom and
// ending with m at the top.
func ET(i, n, m int64, nDiploid, tau float64) float64 {
	switch {
	case math.IsInf(tau, 1):
		if m != 1 || i == 1 {
			return 0
		}
		return 2 * nDiploid / float64(choose2(i))
	case n == m:
		if i == n {
			return tau
		}
		return 0
	case m == i:
		return formula1(n, m, nDiploid, tau)
	case n == i:
		return formula2(n, m, nDiploid, tau)
	default:
		return formula3(i, n, m, nDiploid, tau)
	}
}

func choose2(k int64) int64 {
	return k * (k - 1) / 2
}

// formula1 is Chen's ET formula for the m == i case.
func formula1(n, m int64, nDiploid, tau float64) float64 {
	nd := bigfloat.New(nDiploid)
	t := bigfloat.New(tau)
	four := bigfloat.New(4)

	r := bigfloat.Zero()
	for k := m + 1; k <= n; k++ {
		eM := expC(m, t, nd)
		eK := expC(k, t, nd)
		kd := bigfloat.FromInt64(k - m)
		kd2 := bigfloat.FromInt64(k + m - 1)
		denom := bigfloat.Mul(kd, kd2)
		first := bigfloat.Quo(bigfloat.Sub(eM, eK), denom)
		second := bigfloat.Mul(bigfloat.Quo(t, bigfloat.Mul(four, nd)), eM)
		bracket := bigfloat.Sub(first, second)
		r = bigfloat.Add(r, bigfloat.Mul(Gcoef(k, n, m), bracket))
	}
	g := G(n, m, nDiploid, tau)
	q := bigfloat.Quo(bigfloat.Mul(four, nd), bigfloat.New(g))
	return bigfloat.ToFloat64(bigfloat.Mul(q, r))
}

// formula2 is Chen's ET formula for the n == i case.
func formula2(n, m int64, nDiploid, tau float64) float64 {
	nd := bigfloat.New(nDiploid)
	t := bigfloat.New(tau)
	four := bigfloat.New(4)

	r := bigfloat.Zero()
	for k := m; k < n; k++ {
		eK := expC(k, t, nd)
		eN := expC(n, t, nd)
		kd := bigfloat.FromInt64(n - k)
		kd2 := bigfloat.FromInt64(n + k - 1)
		denom := bigfloat.Mul(kd, kd2)
		first := bigfloat.Quo(bigfloat.Sub(eK, eN), denom)
		second := bigfloat.Mul(bigfloat.Quo(t, bigfloat.Mul(four, nd)), eN)
		bracket := bigfloat.Sub(first, second)
		r = bigfloat.Add(r, bigfloat.Mul(Gcoef(k, n, m), bracket))
	}
	g := G(n, m, nDiploid, tau)
	q := bigfloat.Quo(bigfloat.Mul(four, nd), bigfloat.New(g))
	return bigfloat.ToFloat64(bigfloat.Mul(q, r))
}

// formula3 is Chen's ET formula for the general (double-sum) case.
func formula3(j, n, m int64, nDiploid, tau float64) float64 {
	nd := bigfloat.New(nDiploid)
	t := bigfloat.New(tau)
	four := bigfloat.New(4)

	eJ := expC(j, t, nd)

	r := bigfloat.Zero()
	for k := j + 1; k <= n; k++ {
		gk := Gcoef(k, n, j)
		inner := bigfloat.Zero()
		for l := m; l < j; l++ {
			gl := Gcoef(l, j, m)

			kj := bigfloat.FromInt64(k - j)
			kj2 := bigfloat.FromInt64(k + j - 1)
			lj := bigfloat.FromInt64(l - j)
			lj2 := bigfloat.FromInt64(l + j - 1)
			lk := bigfloat.FromInt64(l - k)
			lk2 := bigfloat.FromInt64(l + k - 1)

			// A: exp(-C(j)*tau/2Nd) * ( tau/4Nd - 1/[(k-j)(k+j-1)] - 1/[(l-j)(l+j-1)] )
			sumDen := bigfloat.Add(bigfloat.Mul(kj, kj2), bigfloat.Mul(lj, lj2))
			a := bigfloat.Mul(eJ, bigfloat.Sub(bigfloat.Quo(t, bigfloat.Mul(four, nd)), bigfloat.Quo(sumDen, bigfloat.Mul(bigfloat.Mul(kj, kj2), bigfloat.Mul(lj, lj2)))))

			// B: exp(-C(k)*tau/2Nd) * (l-j)(l+j-1) / [(k-j)(k+j-1)(l-k)(l+k-1)]
			eK := expC(k, t, nd)
			bNum := bigfloat.Mul(lj, lj2)
			bDen := bigfloat.Mul(bigfloat.Mul(kj, kj2), bigfloat.Mul(lk, lk2))
			b := bigfloat.Mul(eK, bigfloat.Quo(bNum, bDen))

			// C: exp(-C(l)*tau/2Nd) * (k-j)(k+j-1) / [(l-k)(l+k-1)(l-j)(l+j-1)]
			eL := expC(l, t, nd)
			cNum := bigfloat.Mul(kj, kj2)
			cDen := bigfloat.Mul(bigfloat.Mul(lk, lk2), bigfloat.Mul(lj, lj2))
			c := bigfloat.Mul(eL, bigfloat.Quo(cNum, cDen))

			term := bigfloat.Sub(bigfloat.Add(a, b), c)
			inner = bigfloat.Add(inner, bigfloat.Mul(gl, term))
		}
		r = bigfloat.Add(r, bigfloat.Mul(gk, inner))
	}

	g := G(n, m, nDiploid, tau)
	q := bigfloat.Quo(bigfloat.Mul(four, nd), bigfloat.New(g))
	return bigfloat.ToFloat64(bigfloat.Mul(q, r))
}

// ESi returns the expected number of mutation-carrying branches of
// class i:
//
//	ESi(i,n,m) = Σ_{k=m..n} p_{n,k}(i) · k · ET(k,n,m)
//
// where p_{n,k}(i) = C(n-i-1,k-2)/C(n-1,k-1) for k>=2, p_{n,1}(i)=[i=n].
func ESi(i, n, m int64, nDiploid, tau float64) float64 {
	terms := make([]float64, 0, n-m+1)
	for k := m; k <= n; k++ {
		p := pnk(i, n, k)
		if p == 0 {
			continue
		}
		terms = append(terms, p*float64(k)*ET(k, n, m, nDiploid, tau))
	}
	return floats.Sum(terms)
}

// PNK returns p_{n,k}(i), the probability that a Kingman coalescent
// tree on n lineages passes through exactly k ancestral lineages at
// the moment lineage i (in an exchangeable labeling) first coalesces
// with another. It is a pure function of tree topology: it does not
// depend on population size or elapsed time, so callers composing
// ET/ESi across several epochs of different demographic parameters can
// reuse a single PNK value unchanged.
func PNK(i, n, k int64) float64 {
	return pnk(i, n, k)
}

func pnk(i, n, k int64) float64 {
	if k == 1 {
		if i == n {
			return 1
		}
		return 0
	}
	num := combin.BinomExact(int(n-i-1), int(k-2))
	den := combin.BinomExact(int(n-1), int(k-1))
	if den.Sign() == 0 {
		return 0
	}
	numF := new(big.Float).SetInt(num)
	denF := new(big.Float).SetInt(den)
	f, _ := new(big.Float).Quo(numF, denF).Float64()
	return f
}
