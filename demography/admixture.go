// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package demography

import "gonum.org/v1/gonum/stat/distuv"

// AdmixtureSplitProb returns the probability that, of n lineages
// entering an admixture node, exactly k trace their immediate
// ancestry to the parent receiving fraction q of the pulse — the
// binomial lineage-origin split of spec §4.6 and momi2's
// admixture_prob (`binom_coeffs`).
func AdmixtureSplitProb(n, k int64, q float64) float64 {
	b := distuv.Binomial{N: float64(n), P: q}
	return b.Prob(float64(k))
}
