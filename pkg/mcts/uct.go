package mcts

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/gostate"
)

// Evaluator is the PUCT search's view of the network: given a position,
// return a per-vertex-plus-pass policy and a winrate for the side to
// move. Accepting this interface instead of a concrete *network.Network
// keeps this package decoupled from the evaluator's weight format and
// batching details.
type Evaluator interface {
	Evaluate(gs *gostate.GameState) (policy []float32, winrate float32)
}

// DefaultPuct is original_source's cfg_puct default.
const DefaultPuct = 0.8

// fpuReduction discounts the parent's own eval when used as first-play
// urgency for one of its unvisited children, matching original_source's
// cfg_fpu_reduction default.
const fpuReduction = 0.25

// CreateChildren evaluates the network for the position at node and
// builds its children from the resulting policy. It does not itself
// record a visit on node — the caller's backpropagation loop does
// that uniformly for every node on a simulation's path, root and leaf
// alike, so a node's visit count equals the number of simulations that
// passed through it (plus one on a root Think expanded itself, which
// records that first evaluation). Returns false, nil if another
// worker is already expanding this node — the caller should simply
// back off and reuse node's current (possibly still-default) eval for
// its own backpropagation; this is spec.md's "transient expansion
// collision", never surfaced as an error.
func CreateChildren(node *UCTNode, gs *gostate.GameState, color board.Color, eval Evaluator) (blackEval float32, expanded bool, err error) {
	if !node.tryAcquireExpanding() {
		// Use the mean of real results only: GetEval would count the
		// in-flight virtual losses on node as results.
		if real := node.RealVisits(); real > 0 {
			return float32(math.Float64frombits(node.blackEvals.Load()) / float64(real)), false, nil
		}
		return 0.5, false, nil
	}

	if gs.Ko.Passes() >= 2 {
		// Terminal position: no children.
		score := gs.FinalScore()
		blackEval = 0.5
		if score > 0 {
			blackEval = 1.0
		} else if score < 0 {
			blackEval = 0.0
		}
		node.finishExpanding()
		return blackEval, true, nil
	}

	policy, winrate := eval.Evaluate(gs)

	type candidate struct {
		move  int16
		prior float32
	}
	size := gs.Ko.Board.Size()
	candidates := make([]candidate, 0, size*size+1)
	sum := float32(0)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := gs.Ko.Board.Vertex(x, y)
			if !gs.Ko.IsLegal(color, v) {
				continue
			}
			p := policy[y*size+x]
			candidates = append(candidates, candidate{move: int16(v), prior: p})
			sum += p
		}
	}
	passPrior := policy[len(policy)-1]
	candidates = append(candidates, candidate{move: board.Pass, prior: passPrior})
	sum += passPrior

	if sum > 0 {
		for i := range candidates {
			candidates[i].prior /= sum
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].prior > candidates[j].prior })

	children := make([]NodePointer, len(candidates))
	for i, c := range candidates {
		children[i] = NewNodePointer(c.move, c.prior)
	}
	node.setChildren(children)

	blackEval = winrate
	if color == board.White {
		blackEval = 1.0 - winrate
	}
	node.finishExpanding()
	return blackEval, true, nil
}

// KillSuperkos marks Invalid every non-pass child whose move leads to a
// position already seen earlier in the game, inflating each child it
// checks. It first moves node from Expanded to SingleThreadUse (doing
// nothing if that CAS fails) and holds childrenMu while it works,
// matching original_source's kill_superkos contract.
func KillSuperkos(node *UCTNode, gs *gostate.GameState, color board.Color) {
	if !node.acquireSingleThreadUse() {
		return
	}
	defer node.releaseSingleThreadUse()

	node.childrenMu.Lock()
	defer node.childrenMu.Unlock()

	for i := range node.children {
		child := &node.children[i]
		if child.Move() == board.Pass {
			continue
		}
		clone := gs.Clone()
		clone.PlayMove(color, int(child.Move()))
		if clone.Ko.Superko() {
			child.Get().SetStatus(Invalid)
		}
	}
}

// uctValue is the exact PUCT formula from original_source's
// uct_select_child: value = winrate + puct, where
// puct = cfg_puct * prior * sqrt(parentvisits) / (1 + childvisits).
func uctValue(winrate, prior float32, parentVisits, childVisits int32, puct float32) float32 {
	numerator := math.Sqrt(float64(parentVisits))
	p := puct * prior * float32(numerator) / float32(1+childVisits)
	return winrate + p
}

// SelectChild walks node's Active children and returns the one with
// the highest PUCT value for color to move. isRoot disables FPU
// reduction for the root exactly as original_source does (the root has
// already been fully evaluated, so its children's priors alone are
// trusted without discount).
func SelectChild(node *UCTNode, color board.Color, isRoot bool, puct float32) *NodePointer {
	parentVisits := node.RealVisits()
	if parentVisits < 1 {
		parentVisits = 1
	}
	parentEval := node.GetEval(color)

	var best *NodePointer
	var bestValue float32 = -math.MaxFloat32

	for i := range node.children {
		child := &node.children[i]
		if child.Inflated() && !child.Get().Active() {
			continue
		}

		var winrate float32
		var childVisits int32
		if child.Inflated() {
			c := child.Get()
			childVisits = c.RealVisits()
			if childVisits > 0 {
				winrate = c.GetEval(color)
			} else {
				winrate = fpuBaseline(parentEval, isRoot)
			}
		} else {
			winrate = fpuBaseline(parentEval, isRoot)
		}

		value := uctValue(winrate, child.Prior(), parentVisits, childVisits, puct)
		if value > bestValue {
			bestValue = value
			best = child
		}
	}
	return best
}

func fpuBaseline(parentEval float32, isRoot bool) float32 {
	if isRoot {
		return parentEval
	}
	return parentEval - fpuReduction
}

// rootChildLess implements original_source's NodeComp lexicographic
// root-move comparator: prefer any visited child over an unvisited one,
// then more visits, then (for equal visits) higher winrate, then (for
// zero visits on both) higher prior.
func rootChildLess(a, b *UCTNode, color board.Color) bool {
	av, bv := a.RealVisits(), b.RealVisits()
	if (av > 0) != (bv > 0) {
		return av == 0
	}
	if av != bv {
		return av < bv
	}
	if av > 0 {
		return a.GetEval(color) < b.GetEval(color)
	}
	return a.Prior < b.Prior
}

// BestRootChild returns the root's preferred move by rootChildLess,
// skipping Invalid children.
func BestRootChild(root *UCTNode, color board.Color) *NodePointer {
	var best *NodePointer
	for i := range root.children {
		child := &root.children[i]
		node := child.Get()
		if node.Status() == Invalid {
			continue
		}
		if best == nil || rootChildLess(best.Get(), node, color) {
			best = child
		}
	}
	return best
}

// DirichletNoise mixes Dirichlet(alpha) noise into every child's prior,
// exactly as original_source's dirichlet_noise: sample one Gamma(alpha,
// 1) draw per child, normalize to a distribution, then blend with
// weight eps against the existing priors.
func DirichletNoise(node *UCTNode, epsilon, alpha float32, rng *rand.Rand) {
	n := len(node.children)
	if n == 0 {
		return
	}
	draws := make([]float64, n)
	sum := 0.0
	for i := range draws {
		draws[i] = sampleGamma(rng, float64(alpha))
		sum += draws[i]
	}
	if sum <= 0 {
		return
	}
	for i := range node.children {
		eta := float32(draws[i] / sum)
		node.children[i].prior = node.children[i].prior*(1-epsilon) + eta*epsilon
	}
}

// sampleGamma draws from Gamma(shape, 1) via Marsaglia-Tsang squeeze,
// the same algorithm original_source pulls from its C++ standard
// library's gamma_distribution.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var v, x float64
		for v <= 0 {
			x = rng.NormFloat64()
			v = 1 + c*x
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// RandomizeFirstProportionally picks one child at random, weighted by
// visit count, and swaps it into slot 0; Think plays slot 0 whenever it
// applied this randomization. Matches original_source's randomize_first_proportionally,
// used to diversify self-play openings.
func RandomizeFirstProportionally(node *UCTNode, rng *rand.Rand) {
	n := len(node.children)
	if n < 2 {
		return
	}
	cumulative := make([]int64, n)
	var total int64
	for i := range node.children {
		total += int64(node.children[i].Get().RealVisits())
		cumulative[i] = total
	}
	if total == 0 {
		return
	}
	pick := rng.Int63n(total)
	chosen := 0
	for i, c := range cumulative {
		if pick < c {
			chosen = i
			break
		}
	}
	node.children[0], node.children[chosen] = node.children[chosen], node.children[0]
}
