package mcts

import (
	"sync/atomic"

	"golang.org/x/exp/rand"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/gostate"
)

// UCTSearch drives repeated play_simulation descents through one
// shared tree until its Limiter says stop, then reports the root's
// preferred move. Grounded on spec.md §4.6; no UCTSearch.cpp survives
// in the retrieved original_source excerpt, so the worker-loop skeleton
// is adapted from the teacher's Search/SearchMultiThreaded, narrowed
// from root-parallel multi-tree to a single shared PUCT tree descended
// by every worker, per spec.md §5.
type UCTSearch struct {
	Limiter *Limiter
	eval    Evaluator

	Puct             float32
	DirichletEpsilon float32
	DirichletAlpha   float32
	Noise            bool
	RandomizeOpening int // number of opening plies over which the root move is randomized proportionally to visits

	root     *UCTNode
	rootGame gostate.GameState
}

// NewUCTSearch returns a search bound to eval, with original_source's
// default PUCT constant and dirichlet parameters.
func NewUCTSearch(eval Evaluator) *UCTSearch {
	return &UCTSearch{
		Limiter:          NewLimiter(),
		eval:             eval,
		Puct:             DefaultPuct,
		DirichletEpsilon: 0.25,
		DirichletAlpha:   0.03,
	}
}

// SetRootState installs gs as the search root, discarding any existing
// tree. AdvanceRoot should be preferred when gs is a direct child of
// the current root, to keep its subtree's statistics.
func (s *UCTSearch) SetRootState(gs gostate.GameState) {
	s.rootGame = gs
	s.root = NewUCTNode(board.Pass, 1.0)
	s.root.SetStatus(Active)
}

// AdvanceRoot reuses the subtree under move as the new root, avoiding
// a full re-expansion of a position the tree has already explored.
// Falls back to SetRootState if move was never inflated as a child.
func (s *UCTSearch) AdvanceRoot(color board.Color, move int) {
	newGame := s.rootGame.Clone()
	newGame.PlayMove(color, move)

	if s.root != nil {
		for i := range s.root.children {
			child := &s.root.children[i]
			if int(child.Move()) == move && child.Inflated() {
				s.rootGame = newGame
				s.root = child.Get()
				return
			}
		}
	}
	s.SetRootState(newGame)
}

// Think runs simulations until the Limiter stops the search, then
// returns the root's preferred move. color is the side to move at the
// root.
func (s *UCTSearch) Think(color board.Color) (int, error) {
	s.Limiter.Reset()

	if s.root == nil {
		s.SetRootState(*gostate.NewGameState(9, 7.5, gostate.DefaultResignPolicy()))
	}
	if !s.root.Expanded() {
		blackEval, _, err := CreateChildren(s.root, &s.rootGame, color, s.eval)
		if err != nil {
			return 0, err
		}
		s.root.Update(blackEval)
	}
	if s.Noise {
		rng := rand.New(rand.NewSource(rootNoiseSeed()))
		DirichletNoise(s.root, s.DirichletEpsilon, s.DirichletAlpha, rng)
	}

	threads := max(1, s.Limiter.Limits().NumThreads)
	var visits atomic.Uint32
	var tg ThreadGroup
	for t := 0; t < threads; t++ {
		t := t
		seed := workerSeed(t)
		tg.AddTask(func() {
			rng := rand.New(rand.NewSource(seed))
			for s.Limiter.Ok(visits.Load()) {
				s.playSimulation(color, rng)
				n := visits.Add(1)
				if t == 0 && n%256 == 0 && visitLeadDecided(s.root, s.Limiter.Limits().MaxVisits, n) {
					s.Limiter.SetStop(true)
				}
			}
		})
	}
	tg.WaitAll()

	randomized := s.RandomizeOpening > 0 && s.rootGame.MoveNumber() < s.RandomizeOpening
	if randomized {
		rng := rand.New(rand.NewSource(rootNoiseSeed()))
		RandomizeFirstProportionally(s.root, rng)
	}

	best := BestRootChild(s.root, color)
	if randomized && len(s.root.children) > 0 && s.root.children[0].Get().RealVisits() > 0 {
		best = &s.root.children[0]
	}
	if best == nil {
		return board.Pass, nil
	}
	if s.rootGame.ShouldResign(s.root.GetEval(color)) {
		return board.Resign, nil
	}
	return int(best.Move()), nil
}

// playSimulation is original_source's 4-step per-simulation protocol:
// descend applying virtual losses, expand the leaf, undo the virtual
// losses, and backpropagate the resulting value up the path.
func (s *UCTSearch) playSimulation(rootColor board.Color, rng *rand.Rand) {
	gs := s.rootGame.Clone()
	color := rootColor

	node := s.root
	path := []*UCTNode{node}
	node.ApplyVirtualLoss()

	for node.Expanded() {
		child := SelectChild(node, color, node == s.root, s.Puct)
		if child == nil {
			break
		}
		gs.PlayMove(color, int(child.Move()))
		color = color.Opposite()

		node = child.Get()
		node.ApplyVirtualLoss()
		path = append(path, node)
	}

	blackEval, expanded, _ := CreateChildren(node, &gs, color, s.eval)
	if expanded {
		KillSuperkos(node, &gs, color)
	}

	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		n.UndoVirtualLoss()
		n.Update(blackEval)
	}
}

// visitLeadDecided reports whether the leading root child already has
// more visits than any other child could reach with the visits
// remaining in the budget, the "visit-lead" early-out spec.md §4.6
// names.
func visitLeadDecided(root *UCTNode, maxVisits uint32, visitsSoFar uint32) bool {
	if maxVisits == DefaultVisitsLimit {
		return false
	}
	remaining := int64(maxVisits) - int64(visitsSoFar)
	if remaining <= 0 {
		return true
	}

	var best, second int32
	for i := range root.children {
		child := &root.children[i]
		if !child.Inflated() {
			continue
		}
		v := child.Get().RealVisits()
		if v > best {
			second = best
			best = v
		} else if v > second {
			second = v
		}
	}
	return int64(best-second) > remaining
}

var seedCounter atomic.Int64

func workerSeed(threadID int) uint64 {
	return uint64(seedCounter.Add(1))*0x9e3779b97f4a7c15 + uint64(threadID)
}

func rootNoiseSeed() uint64 {
	return uint64(seedCounter.Add(1)) * 0xff51afd7ed558ccd
}
