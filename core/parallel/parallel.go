// Package parallel provides chunked CPU parallelism for embarrassingly
// parallel work such as independent tree fits. Callers are responsible for
// determinism: each unit of work must derive its own random source so the
// result does not depend on scheduling order.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits items across the available CPU cores and invokes fn
// with a half-open range [start, end) on each worker goroutine. It returns
// after all workers finish.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so every item is covered.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over [0, items) when items
// is at or below threshold, and parallelizes otherwise. Small inputs are
// cheaper to process without goroutine overhead.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
