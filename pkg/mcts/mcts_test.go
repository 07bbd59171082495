package mcts

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/gostate"
)

// constantEvaluator returns a uniform policy over every vertex plus
// pass (CreateChildren drops the illegal ones), and a fixed winrate, so concurrency tests don't depend on
// any real weight file.
type constantEvaluator struct {
	winrate float32
}

func (e constantEvaluator) Evaluate(gs *gostate.GameState) ([]float32, float32) {
	size := gs.Ko.Board.Size()
	policy := make([]float32, size*size+1)
	uniform := float32(1) / float32(len(policy))
	for i := range policy {
		policy[i] = uniform
	}
	return policy, e.winrate
}

func TestNodeVirtualLossIsNeutralAfterUndo(t *testing.T) {
	n := NewUCTNode(0, 1.0)
	n.Update(0.5)

	before := n.GetEval(board.Black)
	n.ApplyVirtualLoss()
	n.UndoVirtualLoss()
	after := n.GetEval(board.Black)

	require.Equal(t, before, after)
	require.Zero(t, n.VirtualLoss())
}

func TestCreateChildrenBuildsSortedLegalMoves(t *testing.T) {
	gs := gostate.NewGameState(5, 0, gostate.DefaultResignPolicy())
	node := NewUCTNode(0, 1.0)

	blackEval, expanded, err := CreateChildren(node, gs, board.Black, constantEvaluator{winrate: 0.5})
	require.NoError(t, err)
	require.True(t, expanded)
	require.Equal(t, float32(0.5), blackEval)
	require.Equal(t, 26, len(node.Children())) // 5x5 vertices + pass
	require.True(t, node.Expanded())
	require.EqualValues(t, 0, node.Visits())
}

func TestCreateChildrenSecondCallLosesRace(t *testing.T) {
	gs := gostate.NewGameState(5, 0, gostate.DefaultResignPolicy())
	node := NewUCTNode(0, 1.0)

	_, expanded1, _ := CreateChildren(node, gs, board.Black, constantEvaluator{winrate: 0.5})
	_, expanded2, err := CreateChildren(node, gs, board.Black, constantEvaluator{winrate: 0.5})

	require.True(t, expanded1)
	require.False(t, expanded2)
	require.NoError(t, err)
}

func TestSelectChildPrefersHigherPrior(t *testing.T) {
	node := NewUCTNode(0, 1.0)
	node.children = []NodePointer{
		NewNodePointer(1, 0.1),
		NewNodePointer(2, 0.9),
	}
	node.Update(0.5) // seed so the node itself has a real visit

	best := SelectChild(node, board.Black, true, DefaultPuct)
	require.NotNil(t, best)
	require.EqualValues(t, 2, best.Move())
}

func TestDirichletNoiseKeepsPriorsNormalizedish(t *testing.T) {
	node := NewUCTNode(0, 1.0)
	node.children = []NodePointer{
		NewNodePointer(1, 0.5),
		NewNodePointer(2, 0.5),
	}
	rng := rand.New(rand.NewSource(1))
	DirichletNoise(node, 0.25, 0.03, rng)

	sum := float32(0)
	for _, c := range node.children {
		require.GreaterOrEqual(t, c.Prior(), float32(0))
		sum += c.Prior()
	}
	require.InDelta(t, 1.0, sum, 0.05)
}

func TestUCTSearchConcurrentVisitsAreExact(t *testing.T) {
	const workers = 4
	const simsPerWorker = 10000

	eval := constantEvaluator{winrate: 0.5}
	search := NewUCTSearch(eval)
	search.SetRootState(*gostate.NewGameState(9, 7.5, gostate.DefaultResignPolicy()))

	_, _, err := CreateChildren(search.root, &search.rootGame, board.Black, eval)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(uint64(seed)))
			for i := 0; i < simsPerWorker; i++ {
				search.playSimulation(board.Black, rng)
			}
		}(int64(w))
	}
	wg.Wait()

	require.EqualValues(t, workers*simsPerWorker, search.root.Visits())
	require.Zero(t, search.root.VirtualLoss())

	for i := range search.root.children {
		child := &search.root.children[i]
		if !child.Inflated() {
			continue
		}
		n := child.Get()
		if n.RealVisits() == 0 {
			continue
		}
		require.InDelta(t, 0.5, n.GetEval(board.Black), 1e-3)
		require.Zero(t, n.VirtualLoss())
	}
}
