package common

import (
	"runtime"
	"sync"
)

// ForEach runs work for every index in [0, n) on a pool of workers. A
// non-positive workers value picks a count from the workload. newWorker is
// called once per worker so each can own its scratch buffers; indices must
// write to disjoint outputs.
func ForEach(n, workers int, newWorker func() func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = OptimalWorkerCount(n)
	}
	workers = min(workers, n)

	jobs := make(chan int, n)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			process := newWorker()
			for i := range jobs {
				process(i)
			}
		}()
	}

	for i := range n {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
}

// OptimalWorkerCount determines the number of workers based on workload
func OptimalWorkerCount(n int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if n < 100 {
		return max(1, min(numCPU/2, n))
	}

	// For medium workloads, use most CPUs
	if n < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
