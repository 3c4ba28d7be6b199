// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package combin_test

import (
	"math"
	"testing"

	"github.com/coalsfs/coalsfs/combin"
)

func TestBinomExact(t *testing.T) {
	tests := []struct {
		n, k int
		want int64
	}{
		{5, 2, 10},
		{10, 0, 1},
		{10, 10, 1},
		{6, 3, 20},
		{5, 7, 0},
		{5, -1, 0},
	}
	for _, test := range tests {
		got := combin.BinomExact(test.n, test.k)
		if got.Int64() != test.want {
			t.Errorf("BinomExact(%d,%d): got %v, want %d", test.n, test.k, got, test.want)
		}
	}
}

func TestLogBinom(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{5, 2, math.Log(10)},
		{6, 3, math.Log(20)},
		{10, 0, 0},
	}
	for _, test := range tests {
		got := combin.LogBinom(test.n, test.k)
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("LogBinom(%d,%d): got %v, want %v", test.n, test.k, got, test.want)
		}
	}
}

func TestRisingFallingFactorial(t *testing.T) {
	if got := combin.RisingFactorial(3, 4).Int64(); got != 360 { // 3*4*5*6
		t.Errorf("RisingFactorial(3,4): got %d, want 360", got)
	}
	if got := combin.FallingFactorial(6, 3).Int64(); got != 120 { // 6*5*4
		t.Errorf("FallingFactorial(6,3): got %d, want 120", got)
	}
	if got := combin.RisingFactorial(5, 0).Int64(); got != 1 {
		t.Errorf("RisingFactorial(5,0): got %d, want 1", got)
	}
}

func TestLogUrnProb(t *testing.T) {
	tests := []struct {
		name                                                   string
		pDer, pAnc, cDer, cAnc                                 int
		wantNegInf, wantZero                                   bool
		want                                                   float64
	}{
		{name: "basic", pDer: 1, pAnc: 1, cDer: 2, cAnc: 2},
		{name: "no derived on either side", pDer: 0, pAnc: 1, cDer: 0, cAnc: 2, wantZero: true},
		{name: "impossible: fewer derived in child", pDer: 2, pAnc: 1, cDer: 1, cAnc: 2, wantNegInf: true},
	}
	for _, test := range tests {
		got := combin.LogUrnProb(test.pDer, test.pAnc, test.cDer, test.cAnc)
		if test.wantNegInf {
			if !math.IsInf(got, -1) {
				t.Errorf("%s: got %v, want -Inf", test.name, got)
			}
			continue
		}
		if math.IsInf(got, -1) {
			t.Errorf("%s: got -Inf unexpectedly", test.name)
		}
		if test.wantZero && got != 0 {
			t.Errorf("%s: got %v, want 0", test.name, got)
		}
	}

	// all-ancestral split is certain (probability 1, log 0)
	if got := combin.LogUrnProb(0, 3, 0, 5); got != 0 {
		t.Errorf("all-ancestral split: got %v, want 0", got)
	}
}
