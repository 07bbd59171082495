package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerogo-engine/zerogo/pkg/board"
)

// writeTinyV1Weights writes a minimal valid v1-format weight file for a
// tiny network, sized for boardSize, so engine tests don't need a real
// trained network.
func writeTinyV1Weights(t *testing.T, path string, boardSize, channels, blocks int) {
	t.Helper()
	const inputChannels = 18
	const valueHiddenDim = 256

	line := func(n int, v float32) string {
		fields := make([]string, n)
		for i := range fields {
			fields[i] = strconv.FormatFloat(float64(v), 'f', 4, 32)
		}
		return strings.Join(fields, " ")
	}

	var sb strings.Builder
	sb.WriteString("1\n")
	for layer := 0; layer < 1+2*blocks; layer++ {
		in := channels
		if layer == 0 {
			in = inputChannels
		}
		sb.WriteString(line(channels*in*9, 0.01) + "\n")
		sb.WriteString(line(channels, 0) + "\n")
		sb.WriteString(line(channels, 0) + "\n")
		sb.WriteString(line(channels, 1) + "\n")
	}
	boardSquares := boardSize * boardSize
	sb.WriteString(line(2*channels, 0.01) + "\n")
	sb.WriteString(line(2, 0) + "\n")
	sb.WriteString(line(2, 0) + "\n")
	sb.WriteString(line(2, 1) + "\n")
	sb.WriteString(line((2*boardSquares)*(boardSquares+1), 0.01) + "\n")
	sb.WriteString(line(boardSquares+1, 0) + "\n")
	sb.WriteString(line(channels, 0.01) + "\n")
	sb.WriteString(line(1, 0) + "\n")
	sb.WriteString(line(1, 0) + "\n")
	sb.WriteString(line(1, 1) + "\n")
	sb.WriteString(line(boardSquares*valueHiddenDim, 0.01) + "\n")
	sb.WriteString(line(valueHiddenDim, 0) + "\n")
	sb.WriteString(line(valueHiddenDim, 0.01) + "\n")
	sb.WriteString(line(1, 0) + "\n")

	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.txt")
	writeTinyV1Weights(t, path, 5, 4, 1)

	cfg := DefaultConfig()
	cfg.BoardSize = 5
	cfg.WeightsPath = path
	cfg.NumThreads = 2
	cfg.MaxVisits = 16
	return cfg
}

func TestNewBuildsEngineFromWeightsFile(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Contains(t, e.ShowBoard(), "a")
}

func TestNewReturnsWrappedErrorOnMissingWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardSize = 5
	cfg.WeightsPath = "/nonexistent/weights.txt"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestGenMoveReturnsPlayableVertexAndAdvancesGame(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)

	move, err := e.GenMove(board.Black)
	require.NoError(t, err)
	require.NotEqual(t, 0, move+1) // sanity: the engine did not pass (board.Pass is -1)
	require.Equal(t, board.White, e.game.ToMove())
}

func TestClearBoardResetsGameState(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)

	_, err = e.GenMove(board.Black)
	require.NoError(t, err)
	require.NotZero(t, e.game.MoveNumber())

	require.NoError(t, e.ClearBoard(5, 7.5))
	require.Equal(t, 0, e.game.MoveNumber())
}

func TestClearBoardSameSizeAppliesNewKomi(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, e.ClearBoard(5, 6.5))
	require.Equal(t, float32(6.5), e.game.Komi())
	require.Equal(t, 5, e.game.Ko.Board.Size())
}

func TestClearBoardReturnsErrorWhenWeightsMissing(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, os.Remove(cfg.WeightsPath))
	require.Error(t, e.ClearBoard(9, 7.5))
}

func TestUndoIsUnsupported(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)
	require.Error(t, e.Undo())
}
