// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package coalescent implements the closed-form coalescent functions of
// Hua Chen (2012, Theoretical Population Biology): the lineage-count
// transition probability g, the expected sojourn time ET, and the
// expected branch-count ESi. Every intermediate sum is accumulated in
// package bigfloat and only cast to float64 at the outermost call, as
// required by spec §4.4/§9.
package coalescent

import (
	"math/big"

	"github.com/coalsfs/coalsfs/bigfloat"
	"github.com/coalsfs/coalsfs/combin"
)

// Gcoef returns Chen's coefficient
//
//	(2k−1)·(−1)^(k−m)·rising(m,k−1)·falling(n,k) / (m!·(k−m)!·rising(n,k))
//
// as a big.Float. The sign is applied directly via (−1)^(k−m); callers
// must never take its absolute value (spec §4.6).
func Gcoef(k, n, m int64) *big.Float {
	num := new(big.Int).Mul(combin.RisingFactorial(m, k-1), combin.FallingFactorial(n, k))
	num.Mul(num, big.NewInt(2*k-1))
	if (k-m)%2 != 0 {
		num.Neg(num)
	}

	den := new(big.Int).Mul(factorial(m), factorial(k-m))
	den.Mul(den, combin.RisingFactorial(n, k))

	return bigfloat.Quo(bigfloat.FromInt(num), bigfloat.FromInt(den))
}

func factorial(n int64) *big.Int {
	if n < 2 {
		return big.NewInt(1)
	}
	return new(big.Int).MulRange(2, n)
}

// expC returns exp(-C(k)*tau/(2*Nd)) = exp(-k(k-1)*tau/(4*Nd)), the
// per-pair coalescence-rate decay factor, in big-float.
func expC(k int64, tau, nDiploid *big.Float) *big.Float {
	ck := bigfloat.FromInt64(k * (k - 1))
	num := bigfloat.Mul(ck, tau)
	den := bigfloat.Mul(bigfloat.New(4), nDiploid)
	arg := bigfloat.Neg(bigfloat.Quo(num, den))
	return bigfloat.Exp(arg)
}
