// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent_test

import (
	"math"
	"testing"

	"github.com/coalsfs/coalsfs/coalescent"
)

func TestGDegenerate(t *testing.T) {
	if got := coalescent.G(5, 5, 1000, 0); got != 1 {
		t.Errorf("G(5,5,N,0): got %v, want 1", got)
	}
	if got := coalescent.G(5, 3, 1000, 0); got != 0 {
		t.Errorf("G(5,3,N,0): got %v, want 0", got)
	}
	if got := coalescent.G(5, 1, 1000, coalescent.TauInfinite); math.Abs(got-1) > 1e-9 {
		t.Errorf("G(5,1,N,inf): got %v, want 1", got)
	}
	if got := coalescent.G(5, 2, 1000, coalescent.TauInfinite); got != 0 {
		t.Errorf("G(5,2,N,inf): got %v, want 0", got)
	}
}

func TestGSumsToOne(t *testing.T) {
	n := int64(6)
	nDiploid := 5000.0
	tau := 2000.0

	var sum float64
	for m := int64(1); m <= n; m++ {
		sum += coalescent.G(n, m, nDiploid, tau)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("sum of G(%d,m,N,tau) over m: got %v, want 1", n, sum)
	}
}

func TestGPanicsOnInvalidArgs(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic when n < m")
		}
	}()
	coalescent.G(2, 5, 1000, 100)
}

func TestETNonNegative(t *testing.T) {
	n := int64(5)
	nDiploid := 10000.0
	tau := 1500.0

	for m := int64(1); m <= n; m++ {
		for i := m; i <= n; i++ {
			got := coalescent.ET(i, n, m, nDiploid, tau)
			if got < -1e-9 {
				t.Errorf("ET(%d,%d,%d): got %v, want >= 0", i, n, m, got)
			}
		}
	}
}

func TestETInfiniteEpoch(t *testing.T) {
	if got := coalescent.ET(1, 5, 1, 1000, coalescent.TauInfinite); got != 0 {
		t.Errorf("ET(1,5,1,N,inf): got %v, want 0", got)
	}
	if got := coalescent.ET(3, 5, 1, 1000, coalescent.TauInfinite); got <= 0 {
		t.Errorf("ET(3,5,1,N,inf): got %v, want > 0", got)
	}
}

func TestETFullEpochSpentAtN(t *testing.T) {
	// n == m: all of tau is spent with n lineages.
	if got := coalescent.ET(4, 4, 4, 8000, 123.5); got != 123.5 {
		t.Errorf("ET(4,4,4,N,tau): got %v, want 123.5", got)
	}
	if got := coalescent.ET(3, 4, 4, 8000, 123.5); got != 0 {
		t.Errorf("ET(3,4,4,N,tau): got %v, want 0", got)
	}
}

func TestESiNonNegative(t *testing.T) {
	n := int64(5)
	nDiploid := 10000.0
	tau := 1500.0

	for m := int64(1); m <= n; m++ {
		for i := int64(1); i <= n; i++ {
			got := coalescent.ESi(i, n, m, nDiploid, tau)
			if got < -1e-9 {
				t.Errorf("ESi(%d,%d,%d): got %v, want >= 0", i, n, m, got)
			}
		}
	}
}
