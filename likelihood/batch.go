// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package likelihood

import (
	"sync"

	"github.com/coalsfs/coalsfs/demography"
)

// BatchResult pairs one graph's joint SFS likelihood with any error
// encountered while evaluating it.
type BatchResult struct {
	Value float64
	Err   error
}

type batchJob struct {
	index int
	g     *demography.Graph
}

type batchAnswer struct {
	index int
	value float64
	err   error
}

func graphWorker(jobs <-chan batchJob, answers chan<- batchAnswer, wg *sync.WaitGroup) {
	for j := range jobs {
		v, err := ComputeSFS(j.g)
		answers <- batchAnswer{index: j.index, value: v, err: err}
		wg.Done()
	}
}

// ComputeSFSBatch evaluates ComputeSFS over graphs using numCPU worker
// goroutines. Each graph is an independent demography.Graph — most
// often the same demography configured with different observed leaf
// counts via demography.Graph.Configure — so parallelism happens
// across evaluations rather than inside any single graph's recursion
// (spec §5: one Engine is never shared across goroutines). Results are
// returned in the same order as graphs.
func ComputeSFSBatch(graphs []*demography.Graph, numCPU int) []BatchResult {
	if numCPU < 1 {
		numCPU = 1
	}
	jobs := make(chan batchJob, numCPU*2)
	answers := make(chan batchAnswer, numCPU*2)

	var wg sync.WaitGroup
	for i := 0; i < numCPU; i++ {
		go graphWorker(jobs, answers, &wg)
	}

	go func() {
		for i, g := range graphs {
			wg.Add(1)
			jobs <- batchJob{index: i, g: g}
		}
		wg.Wait()
		close(answers)
	}()

	results := make([]BatchResult, len(graphs))
	for a := range answers {
		results[a.index] = BatchResult{Value: a.value, Err: a.err}
	}
	close(jobs)
	return results
}
