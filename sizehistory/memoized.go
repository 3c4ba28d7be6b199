// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package sizehistory

import "github.com/coalsfs/coalsfs/memo"

// Memoized wraps a History so that repeated G/ET/ESi calls for the
// same epoch and the same small integer arguments are served from a
// cache instead of re-running the big-float kernel (spec §4.7: kernel
// calls are memoized "per... the epoch identity"). One Memoized
// instance owns one epoch's caches; it must not be shared across
// epochs with different N/tau.
type Memoized struct {
	h       History
	gCache  *memo.Cache[memo.Key3, float64]
	etCache *memo.Cache[memo.Key3, float64]
	esCache *memo.Cache[memo.Key3, float64]
}

// NewMemoized returns a Memoized wrapping h.
func NewMemoized(h History) *Memoized {
	return &Memoized{
		h:       h,
		gCache:  memo.New[memo.Key3, float64](),
		etCache: memo.New[memo.Key3, float64](),
		esCache: memo.New[memo.Key3, float64](),
	}
}

func (m *Memoized) G(n, mm int64) float64 {
	return m.gCache.GetOrCompute(memo.Key3{A: n, B: mm}, func() float64 { return m.h.G(n, mm) })
}

func (m *Memoized) ET(i, n, mm int64) float64 {
	return m.etCache.GetOrCompute(memo.Key3{A: i, B: n, C: mm}, func() float64 { return m.h.ET(i, n, mm) })
}

func (m *Memoized) ESi(i, n, mm int64) float64 {
	return m.esCache.GetOrCompute(memo.Key3{A: i, B: n, C: mm}, func() float64 { return m.h.ESi(i, n, mm) })
}

func (m *Memoized) Tau() float64      { return m.h.Tau() }
func (m *Memoized) NDiploid() float64 { return m.h.NDiploid() }
