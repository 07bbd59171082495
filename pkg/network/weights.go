// Package network implements the batched policy+value evaluator: the
// v1/v2/v3 weight file formats, the convolution stack (kept in its
// parsed spatial layout; no Winograd transform), input-plane gathering, D4 symmetry ensembling, and the pure-Go
// CPU ForwardPipe reference backend.
package network

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// valueHeadType distinguishes the single-scalar winrate head from a
// (future) categorical head; only valueHeadSingle is implemented here,
// matching spec.md's scope.
type valueHeadType uint8

const (
	valueHeadSingle valueHeadType = 0
)

// Weights holds every parsed tensor a ForwardPipe needs, convolutions
// included in their spatial layout (no Winograd transform is applied), in original_source's per-layer order:
// input convolution, then Blocks pairs of residual-block convolutions,
// then the policy and value head tensors.
type Weights struct {
	Channels int
	Blocks   int

	ConvWeights     [][]float32 // one entry per conv layer (1 + 2*Blocks), spatial 3x3 layout as parsed
	ConvBiases      [][]float32
	BatchnormMeans  [][]float32
	BatchnormStddev [][]float32 // pre-divided: 1/sqrt(var+eps)

	ConvPolicyWeights []float32
	ConvPolicyBiases  []float32
	BNPolicyW1        []float32
	BNPolicyW2        []float32
	IPPolicyWeights   []float32
	IPPolicyBiases    []float32

	ConvValueWeights []float32
	ConvValueBiases  []float32
	BNValueW1        []float32
	BNValueW2        []float32
	IP1ValueWeights  []float32
	IP1ValueBiases   []float32
	IP2ValueWeights  []float32
	IP2ValueBiases   []float32

	// ValueHeadNotSTM marks a v2-format network, whose value head
	// returns Black's winrate rather than the side to move's;
	// Network.Evaluate flips it for White to move before caching it.
	ValueHeadNotSTM bool
}

const (
	inputChannels  = 18 // 8 past-move planes x 2 colors + 2 side-to-move planes
	valueHiddenDim = 256
	policyOutputs  = 2
	valueOutputs   = 1
)

// processBnVar converts a batch-norm variance vector into the
// precomputed 1/sqrt(var+eps) scale original_source's process_bn_var
// applies once at load time instead of per-inference.
func processBnVar(v []float32) {
	const eps = 1e-5
	for i, x := range v {
		v[i] = float32(1.0 / math.Sqrt(float64(x)+eps))
	}
}

// LoadWeights reads a v1, v2, or v3 Leela-Zero-format weight file,
// transparently gzip-decompressed, for a board of the given size.
// A file that opens with the v3 magic "3LZW\n" is read as v3 directly;
// any other file opens with its version number on a line of its own.
// Gzip decoding uses the standard library's compress/gzip: no
// gzip-capable library appears anywhere in the retrieval pack.
func LoadWeights(path string, boardSize int) (*Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weights file: %w", err)
	}
	defer f.Close()

	r, err := transparentGzipReader(f)
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}

	br := bufio.NewReader(r)
	version := 3
	if head, _ := br.Peek(5); string(head) != "3LZW\n" {
		versionLine, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read weights file version: %w", err)
		}
		version, err = strconv.Atoi(strings.TrimSpace(versionLine))
		if err != nil || version < 1 || version > 3 {
			return nil, fmt.Errorf("weights file is the wrong version: %q", versionLine)
		}
	}

	w := &Weights{ValueHeadNotSTM: version == 2}
	if version == 3 {
		err = loadV3(br, w, boardSize)
	} else {
		err = loadV1(br, w, boardSize)
	}
	if err != nil {
		return nil, fmt.Errorf("parse weights file: %w", err)
	}

	transformAll(w, boardSize)
	return w, nil
}

// transparentGzipReader returns a reader over f's contents, decoding
// gzip if the stream starts with a gzip magic header and passing the
// bytes through untouched otherwise.
func transparentGzipReader(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

func loadV1(r *bufio.Reader, w *Weights, boardSize int) error {
	lines := []string{}
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}

	// 1 input conv block (4 lines) + 14 head lines; the rest are
	// residual block lines, 4 per conv layer, 2 conv layers per block.
	residualLines := len(lines) - (4 + 14)
	if residualLines < 0 || residualLines%8 != 0 {
		return fmt.Errorf("unexpected line count %d", len(lines))
	}
	blocks := residualLines / 8
	idx := 0

	parseFloats := func(s string) ([]float32, error) {
		fields := strings.Fields(s)
		out := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, err
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fmt.Errorf("non-finite weight")
			}
			out[i] = float32(v)
		}
		return out, nil
	}

	for layer := 0; layer < 1+2*blocks; layer++ {
		cw, err := parseFloats(lines[idx])
		if err != nil {
			return err
		}
		idx++
		cb, err := parseFloats(lines[idx])
		if err != nil {
			return err
		}
		idx++
		bm, err := parseFloats(lines[idx])
		if err != nil {
			return err
		}
		idx++
		bs, err := parseFloats(lines[idx])
		if err != nil {
			return err
		}
		idx++

		processBnVar(bs)
		w.ConvWeights = append(w.ConvWeights, cw)
		w.ConvBiases = append(w.ConvBiases, cb)
		w.BatchnormMeans = append(w.BatchnormMeans, bm)
		w.BatchnormStddev = append(w.BatchnormStddev, bs)
	}

	head := lines[idx:]
	get := func(i int) ([]float32, error) { return parseFloats(head[i]) }

	var err error
	if w.ConvPolicyWeights, err = get(0); err != nil {
		return err
	}
	if w.ConvPolicyBiases, err = get(1); err != nil {
		return err
	}
	if w.BNPolicyW1, err = get(2); err != nil {
		return err
	}
	if w.BNPolicyW2, err = get(3); err != nil {
		return err
	}
	if w.IPPolicyWeights, err = get(4); err != nil {
		return err
	}
	if w.IPPolicyBiases, err = get(5); err != nil {
		return err
	}
	if w.ConvValueWeights, err = get(6); err != nil {
		return err
	}
	if w.ConvValueBiases, err = get(7); err != nil {
		return err
	}
	if w.BNValueW1, err = get(8); err != nil {
		return err
	}
	if w.BNValueW2, err = get(9); err != nil {
		return err
	}
	if w.IP1ValueWeights, err = get(10); err != nil {
		return err
	}
	if w.IP1ValueBiases, err = get(11); err != nil {
		return err
	}
	if w.IP2ValueWeights, err = get(12); err != nil {
		return err
	}
	if w.IP2ValueBiases, err = get(13); err != nil {
		return err
	}

	w.Channels = len(w.ConvBiases[0])
	w.Blocks = blocks
	processBnVar(w.BNPolicyW2)
	processBnVar(w.BNValueW2)
	foldConvBiasIntoBatchnorm(w)
	return nil
}

func loadV3(r *bufio.Reader, w *Weights, boardSize int) error {
	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return err
	}
	if string(magic[:]) != "3LZW\n" {
		return fmt.Errorf("bad v3 magic %q", magic)
	}

	var headByte [1]byte
	if _, err := io.ReadFull(r, headByte[:]); err != nil {
		return err
	}
	if valueHeadType(headByte[0]) != valueHeadSingle {
		return fmt.Errorf("unsupported value head type %d", headByte[0])
	}

	var floatSizeByte [1]byte
	if _, err := io.ReadFull(r, floatSizeByte[:]); err != nil {
		return err
	}
	float32Format := floatSizeByte[0] != 0

	var blocksBytes, filtersBytes [2]byte
	if _, err := io.ReadFull(r, blocksBytes[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, filtersBytes[:]); err != nil {
		return err
	}
	blocks := int(binary.LittleEndian.Uint16(blocksBytes[:]))
	filters := int(binary.LittleEndian.Uint16(filtersBytes[:]))
	if blocks == 0 || filters == 0 {
		return fmt.Errorf("zero blocks or filters in v3 header")
	}

	readFloat := func() (float32, error) {
		if float32Format {
			var b [4]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return 0, err
			}
			return math.Float32frombits(binary.LittleEndian.Uint32(b[:])), nil
		}
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return float16ToFloat32(binary.LittleEndian.Uint16(b[:])), nil
	}

	readN := func(n int) ([]float32, error) {
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v, err := readFloat()
			if err != nil {
				return nil, err
			}
			if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
				return nil, fmt.Errorf("non-finite weight")
			}
			out[i] = v
		}
		return out, nil
	}

	for block := 0; block < 1+2*blocks; block++ {
		count := filters * filters * 9
		if block == 0 {
			count = filters * inputChannels * 9
		}
		cw, err := readN(count)
		if err != nil {
			return err
		}
		cb, err := readN(filters)
		if err != nil {
			return err
		}
		bm, err := readN(filters)
		if err != nil {
			return err
		}
		bs, err := readN(filters)
		if err != nil {
			return err
		}
		processBnVar(bs)
		w.ConvWeights = append(w.ConvWeights, cw)
		w.ConvBiases = append(w.ConvBiases, cb)
		w.BatchnormMeans = append(w.BatchnormMeans, bm)
		w.BatchnormStddev = append(w.BatchnormStddev, bs)
	}

	boardSquares := boardSize * boardSize
	var err error
	if w.ConvPolicyWeights, err = readN(policyOutputs * filters); err != nil {
		return err
	}
	if w.ConvPolicyBiases, err = readN(policyOutputs); err != nil {
		return err
	}
	if w.BNPolicyW1, err = readN(policyOutputs); err != nil {
		return err
	}
	if w.BNPolicyW2, err = readN(policyOutputs); err != nil {
		return err
	}
	if w.IPPolicyWeights, err = readN((policyOutputs * boardSquares) * (boardSquares + 1)); err != nil {
		return err
	}
	if w.IPPolicyBiases, err = readN(boardSquares + 1); err != nil {
		return err
	}
	if w.ConvValueWeights, err = readN(filters); err != nil {
		return err
	}
	if w.ConvValueBiases, err = readN(valueOutputs); err != nil {
		return err
	}
	if w.BNValueW1, err = readN(valueOutputs); err != nil {
		return err
	}
	if w.BNValueW2, err = readN(valueOutputs); err != nil {
		return err
	}
	if w.IP1ValueWeights, err = readN(boardSquares * valueHiddenDim); err != nil {
		return err
	}
	if w.IP1ValueBiases, err = readN(valueHiddenDim); err != nil {
		return err
	}
	if w.IP2ValueWeights, err = readN(valueHiddenDim); err != nil {
		return err
	}
	if w.IP2ValueBiases, err = readN(valueOutputs); err != nil {
		return err
	}

	processBnVar(w.BNPolicyW2)
	processBnVar(w.BNValueW2)

	w.Channels = filters
	w.Blocks = blocks
	foldConvBiasIntoBatchnorm(w)
	return nil
}

// foldConvBiasIntoBatchnorm absorbs every convolution's bias into its
// following batchnorm mean (mean -= bias; bias := 0) so inference never
// needs to add a separate bias term, matching original_source's
// load-time fold in Network::initialize.
func foldConvBiasIntoBatchnorm(w *Weights) {
	for i := range w.ConvBiases {
		for j := range w.BatchnormMeans[i] {
			w.BatchnormMeans[i][j] -= w.ConvBiases[i][j]
			w.ConvBiases[i][j] = 0
		}
	}
	for i := range w.BNValueW1 {
		w.BNValueW1[i] -= w.ConvValueBiases[i]
		w.ConvValueBiases[i] = 0
	}
	for i := range w.BNPolicyW1 {
		w.BNPolicyW1[i] -= w.ConvPolicyBiases[i]
		w.ConvPolicyBiases[i] = 0
	}
}

// float16ToFloat32 decodes an IEEE-754 half-precision value, matching
// original_source's conv16 lambda exactly (subnormal/infinite handling
// included, since a v3 file may genuinely encode either).
func float16ToFloat32(bits uint16) float32 {
	mantissa := uint32(bits & 0x3ff)
	exponent := uint32((bits >> 10) & 0x1f)
	sign := bits >> 15

	var out float64
	switch {
	case exponent == 0:
		out = float64(mantissa) / float64(uint32(1)<<24)
	case exponent == 31:
		out = math.Inf(1)
	default:
		significand := 1 + float64(mantissa)/float64(uint32(1)<<10)
		out = significand * float64(uint32(1)<<exponent) / float64(uint32(1)<<15)
	}
	if sign != 0 {
		out = -out
	}
	return float32(out)
}
