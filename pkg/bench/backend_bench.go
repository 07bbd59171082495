// Package bench compares two inference backends' throughput and picks
// a winner, the way original_source's Network::initialize benchmarks
// half- versus single-precision OpenCL before committing to one.
// Adapted from the teacher's pkg/bench versus-arena harness (worker
// dispatch, atomic counters, a summary struct), re-grounded on that
// backend-throughput comparison rather than the teacher's generic
// move-by-move game arena.
package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zerogo-engine/zerogo/pkg/network"
)

// Result summarizes one backend's throughput over a fixed work budget.
type Result struct {
	Name        string
	Evaluations uint64
	Duration    time.Duration
}

// EvaluationsPerSecond reports the backend's measured throughput.
func (r Result) EvaluationsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Evaluations) / r.Duration.Seconds()
}

// Summary is the outcome of comparing two backends.
type Summary struct {
	A, B   Result
	Winner string
}

// preferenceMargin is original_source's tie-breaking rule: prefer the
// first (conventionally single-precision) backend unless the second is
// more than this fraction faster.
const preferenceMargin = 0.05

// Compare runs a and b each for budget wall-clock time using nThreads
// workers, forwarding one freshly built batch per call via makeBatch,
// and reports which backend was faster. nameA is favored on a near-tie
// per preferenceMargin, mirroring original_source's "prefer single
// precision when the gap is under 5%" rule.
func Compare(nameA string, a *network.ForwardPipe, nameB string, b *network.ForwardPipe, makeBatch func() []network.PlaneSet, budget time.Duration, nThreads int) Summary {
	resA := run(nameA, a, makeBatch, budget, nThreads)
	resB := run(nameB, b, makeBatch, budget, nThreads)

	winner := resA.Name
	if resB.EvaluationsPerSecond() > resA.EvaluationsPerSecond()*(1+preferenceMargin) {
		winner = resB.Name
	}
	return Summary{A: resA, B: resB, Winner: winner}
}

func run(name string, backend *network.ForwardPipe, makeBatch func() []network.PlaneSet, budget time.Duration, nThreads int) Result {
	if nThreads < 1 {
		nThreads = 1
	}
	var count atomic.Uint64
	var wg sync.WaitGroup
	start := time.Now()
	deadline := start.Add(budget)

	for t := 0; t < nThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				batch := makeBatch()
				backend.Forward(batch)
				count.Add(uint64(len(batch)))
			}
		}()
	}
	wg.Wait()

	return Result{Name: name, Evaluations: count.Load(), Duration: time.Since(start)}
}
