package network

import "math"

// transformAll is the hook where original_source's Winograd F(4x4,3x3)
// kernel transform would run. This package's ForwardPipe convolves
// directly in the spatial domain rather than the Winograd domain, so
// there is nothing to transform, and transformAll does nothing. See
// DESIGN.md for why the direct-convolution
// simplification was chosen over porting the transform.
func transformAll(w *Weights, boardSize int) {
	_ = boardSize
}

// ForwardPipe runs the convolutional tower plus policy and value heads
// for one batch of input-plane stacks, direct-convolving in the spatial
// domain (no Winograd transform — see transformAll).
type ForwardPipe struct {
	w  *Weights
	bs int // board size
}

// NewForwardPipe returns a CPU backend bound to w for boards of size bs.
func NewForwardPipe(w *Weights, bs int) *ForwardPipe {
	return &ForwardPipe{w: w, bs: bs}
}

// PlaneSet is one sample's flattened input: Channels planes of bs*bs
// values each, in [channel][y*bs+x] layout.
type PlaneSet [][]float32

// Forward evaluates a batch of input-plane stacks and returns, for each
// sample, a raw (pre-softmax) policy vector of length bs*bs+1 and a raw
// (pre-tanh) value scalar.
func (fp *ForwardPipe) Forward(batch []PlaneSet) (policies [][]float32, values []float32) {
	policies = make([][]float32, len(batch))
	values = make([]float32, len(batch))
	for i, planes := range batch {
		policies[i], values[i] = fp.forwardOne(planes)
	}
	return policies, values
}

func (fp *ForwardPipe) forwardOne(input PlaneSet) ([]float32, float32) {
	w := fp.w
	bs := fp.bs

	cur := convBNReLU(input, w.ConvWeights[0], w.BatchnormMeans[0], w.BatchnormStddev[0], inputChannels, w.Channels, bs, true)

	for block := 0; block < w.Blocks; block++ {
		l1 := 1 + block*2
		l2 := l1 + 1
		residual := cur
		out1 := convBNReLU(cur, w.ConvWeights[l1], w.BatchnormMeans[l1], w.BatchnormStddev[l1], w.Channels, w.Channels, bs, true)
		out2 := convBNReLU(out1, w.ConvWeights[l2], w.BatchnormMeans[l2], w.BatchnormStddev[l2], w.Channels, w.Channels, bs, false)
		for c := range out2 {
			for i := range out2[c] {
				v := out2[c][i] + residual[c][i]
				if v < 0 {
					v = 0
				}
				out2[c][i] = v
			}
		}
		cur = out2
	}

	policyConv := convBN1x1(cur, w.ConvPolicyWeights, w.BNPolicyW1, w.BNPolicyW2, w.Channels, policyOutputs, bs)
	policyFlat := flatten(policyConv, bs)
	policy := innerProduct(policyFlat, w.IPPolicyWeights, w.IPPolicyBiases, len(policyFlat), bs*bs+1)

	valueConv := convBN1x1(cur, w.ConvValueWeights, w.BNValueW1, w.BNValueW2, w.Channels, valueOutputs, bs)
	valueFlat := flatten(valueConv, bs)
	hidden := innerProduct(valueFlat, w.IP1ValueWeights, w.IP1ValueBiases, len(valueFlat), valueHiddenDim)
	for i := range hidden {
		if hidden[i] < 0 {
			hidden[i] = 0
		}
	}
	valueOut := innerProduct(hidden, w.IP2ValueWeights, w.IP2ValueBiases, valueHiddenDim, 1)

	return policy, valueOut[0]
}

// convBNReLU applies an inChannels -> outChannels 3x3/pad1/stride1
// convolution followed by the folded batchnorm scale (mean already has
// the conv bias folded in, per foldConvBiasIntoBatchnorm) and an
// optional ReLU, matching original_source's convolve+batchnorm pair.
func convBNReLU(input PlaneSet, weights, bnMeans, bnStddev []float32, inChannels, outChannels, bs int, relu bool) PlaneSet {
	out := make(PlaneSet, outChannels)
	for oc := 0; oc < outChannels; oc++ {
		plane := make([]float32, bs*bs)
		wBase := oc * inChannels * 9
		for y := 0; y < bs; y++ {
			for x := 0; x < bs; x++ {
				sum := float32(0)
				for ic := 0; ic < inChannels; ic++ {
					icPlane := input[ic]
					wOff := wBase + ic*9
					for ky := -1; ky <= 1; ky++ {
						sy := y + ky
						if sy < 0 || sy >= bs {
							continue
						}
						for kx := -1; kx <= 1; kx++ {
							sx := x + kx
							if sx < 0 || sx >= bs {
								continue
							}
							sum += icPlane[sy*bs+sx] * weights[wOff+(ky+1)*3+(kx+1)]
						}
					}
				}
				v := (sum - bnMeans[oc]) * bnStddev[oc]
				if relu && v < 0 {
					v = 0
				}
				plane[y*bs+x] = v
			}
		}
		out[oc] = plane
	}
	return out
}

// convBN1x1 is the policy/value heads' 1x1 convolution: a per-pixel
// linear combination across channels, followed by the folded batchnorm
// scale and a ReLU, matching original_source's head convolutions.
func convBN1x1(input PlaneSet, weights, bnMeans, bnStddev []float32, inChannels, outChannels, bs int) PlaneSet {
	out := make(PlaneSet, outChannels)
	for oc := 0; oc < outChannels; oc++ {
		plane := make([]float32, bs*bs)
		wBase := oc * inChannels
		for p := 0; p < bs*bs; p++ {
			sum := float32(0)
			for ic := 0; ic < inChannels; ic++ {
				sum += input[ic][p] * weights[wBase+ic]
			}
			v := (sum - bnMeans[oc]) * bnStddev[oc]
			if v < 0 {
				v = 0
			}
			plane[p] = v
		}
		out[oc] = plane
	}
	return out
}

func flatten(planes PlaneSet, bs int) []float32 {
	out := make([]float32, 0, len(planes)*bs*bs)
	for _, p := range planes {
		out = append(out, p...)
	}
	return out
}

// innerProduct is a fully connected layer: out[j] = bias[j] +
// sum_i in[i]*weights[j*len(in)+i], matching original_source's
// innerproduct template.
func innerProduct(in, weights, biases []float32, inSize, outSize int) []float32 {
	out := make([]float32, outSize)
	for j := 0; j < outSize; j++ {
		sum := float64(biases[j])
		base := j * inSize
		for i := 0; i < inSize; i++ {
			sum += float64(in[i]) * float64(weights[base+i])
		}
		out[j] = float32(sum)
	}
	return out
}

// softmax returns a new slice holding logits normalized into a
// probability distribution, with the usual max-subtraction for
// numerical stability; logits is left unchanged.
func softmax(logits []float32, temperature float32) []float32 {
	out := make([]float32, len(logits))
	maxV := float32(math.Inf(-1))
	for _, v := range logits {
		if v > maxV {
			maxV = v
		}
	}
	sum := float32(0)
	for i, v := range logits {
		e := float32(math.Exp(float64((v - maxV) / temperature)))
		out[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}
