// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package bigfloat provides the arbitrary-precision real arithmetic
// used by the coalescent kernels.
//
// Chen's closed-form coalescent sums are alternating series whose terms
// can exceed 10^20 in magnitude before cancelling down to a value near 1;
// evaluating them in a 53-bit double loses the result to catastrophic
// cancellation. Every intermediate sum in package coalescent is instead
// accumulated in a *big.Float with a process-wide minimum precision, and
// only the final ratio is cast back to float64.
package bigfloat

import (
	"math/big"
	"sync"

	"github.com/ALTree/bigfloat"
)

// MinPrecision is the minimum mantissa precision, in bits, required by
// spec: "Minimum precision: 100 bits of mantissa (≈30 decimal digits)".
const MinPrecision = 100

// DefaultPrecision is used until SetPrecision is called.
const DefaultPrecision = 128

var (
	mu   sync.Mutex
	prec uint = DefaultPrecision
)

// SetPrecision sets the process-wide mantissa precision, in bits, used
// by every Float returned from New/FromInt64/FromInt. It must be called
// before any demography is evaluated, not while an evaluation is in
// flight: precision is a global knob, the same way the reference
// implementation configures its big-float context's precision once at
// process start (spec §5, §9).
//
// Panics if bits is below MinPrecision.
func SetPrecision(bits uint) {
	if bits < MinPrecision {
		panic("bigfloat: precision below the 100-bit minimum required by spec")
	}
	mu.Lock()
	defer mu.Unlock()
	prec = bits
}

// Precision returns the current process-wide precision, in bits.
func Precision() uint {
	mu.Lock()
	defer mu.Unlock()
	return prec
}

// New returns a new Float, with the process-wide precision, set to x.
func New(x float64) *big.Float {
	return new(big.Float).SetPrec(Precision()).SetFloat64(x)
}

// FromInt64 returns a new Float, with the process-wide precision, set to n.
func FromInt64(n int64) *big.Float {
	return new(big.Float).SetPrec(Precision()).SetInt64(n)
}

// FromInt returns a new Float, with the process-wide precision, set to n.
func FromInt(n *big.Int) *big.Float {
	return new(big.Float).SetPrec(Precision()).SetInt(n)
}

// Zero returns a new zero-valued Float at the process-wide precision.
func Zero() *big.Float {
	return new(big.Float).SetPrec(Precision())
}

// Add returns x + y as a new Float.
func Add(x, y *big.Float) *big.Float {
	return new(big.Float).SetPrec(Precision()).Add(x, y)
}

// Sub returns x - y as a new Float.
func Sub(x, y *big.Float) *big.Float {
	return new(big.Float).SetPrec(Precision()).Sub(x, y)
}

// Mul returns x * y as a new Float.
func Mul(x, y *big.Float) *big.Float {
	return new(big.Float).SetPrec(Precision()).Mul(x, y)
}

// Quo returns x / y as a new Float. Panics if y is zero, matching
// big.Float's own division-by-zero behavior.
func Quo(x, y *big.Float) *big.Float {
	return new(big.Float).SetPrec(Precision()).Quo(x, y)
}

// Neg returns -x as a new Float.
func Neg(x *big.Float) *big.Float {
	return new(big.Float).SetPrec(Precision()).Neg(x)
}

// Exp returns e**x as a new Float.
func Exp(x *big.Float) *big.Float {
	return bigfloat.Exp(x)
}

// Log returns the natural logarithm of x as a new Float. x must be
// strictly positive.
func Log(x *big.Float) *big.Float {
	return bigfloat.Log(x)
}

// Factorial returns n! as an exact Float, computed via big.Int.MulRange
// and cast to the process-wide precision.
func Factorial(n int64) *big.Float {
	if n < 0 {
		panic("bigfloat: factorial of a negative number")
	}
	if n < 2 {
		return New(1)
	}
	f := new(big.Int).MulRange(2, n)
	return FromInt(f)
}

// ToFloat64 casts a Float down to a float64, the only point at which
// precision loss is permitted.
func ToFloat64(x *big.Float) float64 {
	f, _ := x.Float64()
	return f
}

// Sign returns -1, 0, or +1 depending on whether x is negative, zero, or
// positive.
func Sign(x *big.Float) int {
	return x.Sign()
}

// IsFinite reports whether x is neither NaN-like (big.Float never
// produces NaN on its own arithmetic, but can overflow to Inf) nor
// infinite. A non-finite result here signals a PrecisionError upstream.
func IsFinite(x *big.Float) bool {
	return !x.IsInf()
}
