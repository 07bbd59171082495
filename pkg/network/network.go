package network

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/cache"
	"github.com/zerogo-engine/zerogo/pkg/gostate"
)

// SymmetryMode selects how a position's eight D4-equivalent
// orientations are used at inference time, matching original_source's
// NNPlanes / Ensemble selection on the command line.
type SymmetryMode int

const (
	// Direct evaluates only the identity orientation.
	Direct SymmetryMode = iota
	// RandomSymmetry evaluates one orientation chosen uniformly at
	// random per call, diversifying self-play without the cost of
	// evaluating all eight.
	RandomSymmetry
	// Average evaluates all eight orientations and averages the
	// resulting policy and winrate, original_source's default and
	// most accurate (and most expensive) ensemble.
	Average
)

const numSymmetries = 8

// Network is the batched policy+value evaluator bound to one set of
// weights. It satisfies mcts.Evaluator by structural typing (this
// package intentionally does not import pkg/mcts, to keep the search
// package decoupled from the weight format and batching details).
type Network struct {
	weights *Weights
	pipe    *ForwardPipe
	size    int

	Symmetry SymmetryMode
	rng      *rand.Rand

	cache *cache.EvalCache
}

// New returns a Network bound to w, for boards of the given size, with
// a FIFO evaluation cache sized from an expected playout budget.
func New(w *Weights, size int, expectedPlayouts int) *Network {
	return &Network{
		weights:  w,
		pipe:     NewForwardPipe(w, size),
		size:     size,
		Symmetry: Average,
		rng:      rand.New(rand.NewSource(0xd1ce)),
		cache:    cache.New(cache.SetSizeFromPlayouts(expectedPlayouts)),
	}
}

// Evaluate implements mcts.Evaluator: returns a per-vertex-plus-pass
// policy and a winrate for the side to move at gs.
func (n *Network) Evaluate(gs *gostate.GameState) ([]float32, float32) {
	switch n.Symmetry {
	case Average:
		return n.evaluateAveraged(gs)
	case RandomSymmetry:
		idx := n.rng.Intn(numSymmetries)
		return n.evaluateOne(gs, idx)
	default:
		return n.evaluateOne(gs, 0)
	}
}

// cacheProbeMoveLimit bounds symmetric-hash probing to the opening,
// where repeated symmetric transpositions are common enough to be
// worth the extra lookups; past it, positions are sufficiently
// asymmetric that a miss is the expected outcome.
const cacheProbeMoveLimit = 30

func (n *Network) evaluateOne(gs *gostate.GameState, symmetryIdx int) ([]float32, float32) {
	plainHash := gs.SymmetryHash(symmetryTransform(0, n.size))

	if cached, ok := n.cache.Lookup(plainHash); ok {
		return cached.Policy, cached.Winrate
	}

	// Opening-only, and only when the orientation being requested is
	// deterministic: probe the other 7 D4 hashes for a position that is
	// a symmetric transposition of one already cached under its own
	// plain hash, and reuse it by permuting its policy into this
	// position's coordinates.
	if n.Symmetry != RandomSymmetry && gs.MoveNumber() < cacheProbeMoveLimit {
		for probe := 1; probe < numSymmetries; probe++ {
			h := gs.SymmetryHash(symmetryTransform(probe, n.size))
			if cached, ok := n.cache.Lookup(h); ok {
				// The cached policy is laid out in the transformed
				// position's coordinates, so it is scattered back with the
				// inverse transform; only the two 90-degree rotations (5
				// and 6) are not their own inverse.
				inverse := probe
				if probe == 5 || probe == 6 {
					inverse = 11 - probe
				}
				return unpermutePolicy(cached.Policy, inverse, n.size), cached.Winrate
			}
		}
	}

	transform := symmetryTransform(symmetryIdx, n.size)
	planes := gatherPlanes(gs, n.size, transform)
	rawPolicies, rawValues := n.pipe.Forward([]PlaneSet{planes})
	policy := softmax(rawPolicies[0], 1.0)
	winrate := (float32(math.Tanh(float64(rawValues[0]))) + 1) / 2
	if n.weights.ValueHeadNotSTM && gs.ToMove() == board.White {
		winrate = 1 - winrate
	}

	policy = unpermutePolicy(policy, symmetryIdx, n.size)

	n.cache.Insert(plainHash, cache.Result{Policy: policy, Winrate: winrate})
	return policy, winrate
}

func (n *Network) evaluateAveraged(gs *gostate.GameState) ([]float32, float32) {
	sumPolicy := make([]float32, n.size*n.size+1)
	var sumWinrate float32

	for i := 0; i < numSymmetries; i++ {
		policy, winrate := n.evaluateOne(gs, i)
		for j := range sumPolicy {
			sumPolicy[j] += policy[j]
		}
		sumWinrate += winrate
	}
	for j := range sumPolicy {
		sumPolicy[j] /= numSymmetries
	}
	return sumPolicy, sumWinrate / numSymmetries
}

// gatherPlanes builds the inputChannels x size x size input tensor:
// for each of the 8 retained history boards, one plane of the side to
// move's stones and one of the opponent's, then two side-to-move
// indicator planes (all-1 on the current player's plane, all-0 on the
// other), exactly original_source's Network::gather_features order,
// with transform applied to every (x, y) board lookup.
func gatherPlanes(gs *gostate.GameState, size int, transform func(x, y int) (int, int)) PlaneSet {
	toMove := gs.ToMove()
	other := toMove.Opposite()

	planes := make(PlaneSet, inputChannels)
	for i := range planes {
		planes[i] = make([]float32, size*size)
	}

	for h := 0; h < 8; h++ {
		b := gs.PastBoard(h)
		ownPlane := planes[h*2]
		oppPlane := planes[h*2+1]
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				tx, ty := transform(x, y)
				v := b.Vertex(tx, ty)
				c := b.At(v)
				idx := y*size + x
				if c == toMove {
					ownPlane[idx] = 1
				} else if c == other {
					oppPlane[idx] = 1
				}
			}
		}
	}

	stmPlane := planes[16]
	for i := range stmPlane {
		stmPlane[i] = 1
	}
	// planes[17] (the White-to-move indicator) is left all-zero for
	// Black to move and is set all-one for White; original_source
	// encodes side to move purely via which of these two planes is lit.
	if toMove == board.White {
		for i := range planes[16] {
			planes[16][i] = 0
			planes[17][i] = 1
		}
	}

	return planes
}

// symmetryTransform returns the forward coordinate map for D4 element
// idx, decoded bit by bit the way original_source's symmetry table
// names its eight entries: bit 2 swaps x and y, bit 1 flips x, bit 0
// flips y, applied in that order.
func symmetryTransform(idx int, size int) func(x, y int) (int, int) {
	swapXY := idx&4 != 0
	flipX := idx&2 != 0
	flipY := idx&1 != 0
	return func(x, y int) (int, int) {
		if swapXY {
			x, y = y, x
		}
		if flipX {
			x = size - 1 - x
		}
		if flipY {
			y = size - 1 - y
		}
		return x, y
	}
}

// unpermutePolicy maps a policy vector computed over the symmetry-idx
// orientation back into canonical board coordinates, leaving the final
// pass probability untouched.
func unpermutePolicy(policy []float32, idx int, size int) []float32 {
	if idx == 0 {
		return policy
	}
	transform := symmetryTransform(idx, size)
	out := make([]float32, len(policy))
	out[len(out)-1] = policy[len(policy)-1]
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			tx, ty := transform(x, y)
			out[ty*size+tx] = policy[y*size+x]
		}
	}
	return out
}
