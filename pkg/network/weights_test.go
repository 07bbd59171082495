package network

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeV1WeightsFile builds a minimal valid v1-format file on disk for
// a tiny 1-block, channels-channel network on the given board size, the
// way autogtp-trained nets were originally shipped before v3.
func writeV1WeightsFile(t *testing.T, path string, boardSize, channels, blocks int) {
	t.Helper()

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
	sb.WriteString(line(policyOutputs*channels, 0.01) + "\n")
	sb.WriteString(line(policyOutputs, 0) + "\n")
	sb.WriteString(line(policyOutputs, 0) + "\n")
	sb.WriteString(line(policyOutputs, 1) + "\n")
	sb.WriteString(line((policyOutputs*boardSquares)*(boardSquares+1), 0.01) + "\n")
	sb.WriteString(line(boardSquares+1, 0) + "\n")
	sb.WriteString(line(channels, 0.01) + "\n")
	sb.WriteString(line(valueOutputs, 0) + "\n")
	sb.WriteString(line(valueOutputs, 0) + "\n")
	sb.WriteString(line(valueOutputs, 1) + "\n")
	sb.WriteString(line(boardSquares*valueHiddenDim, 0.01) + "\n")
	sb.WriteString(line(valueHiddenDim, 0) + "\n")
	sb.WriteString(line(valueHiddenDim, 0.01) + "\n")
	sb.WriteString(line(valueOutputs, 0) + "\n")

	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func TestLoadWeightsParsesV1TextFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.txt")
	writeV1WeightsFile(t, path, 5, 4, 1)

	w, err := LoadWeights(path, 5)
	require.NoError(t, err)
	require.Equal(t, 4, w.Channels)
	require.Equal(t, 1, w.Blocks)
	require.Len(t, w.ConvWeights, 3)
	require.False(t, w.ValueHeadNotSTM)
}

func TestLoadWeightsRejectsBadVersionLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.txt")
	require.NoError(t, os.WriteFile(path, []byte("99\nbogus\n"), 0o644))

	_, err := LoadWeights(path, 5)
	require.Error(t, err)
}

func TestFoldConvBiasIntoBatchnormZeroesBias(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.txt")
	writeV1WeightsFile(t, path, 5, 4, 1)

	w, err := LoadWeights(path, 5)
	require.NoError(t, err)
	for _, cb := range w.ConvBiases {
		for _, v := range cb {
			require.Zero(t, v)
		}
	}
}
