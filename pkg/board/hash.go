package board

// zobristKeys holds one random 64-bit key per (vertex, color) pair. The
// board's position hash is the XOR of the keys for every occupied and
// empty vertex, following original_source's Zobrist scheme for
// positional superko detection.
var zobristKeys [maxSquare][3]uint64

func init() {
	var state uint64 = 0x9e3779b97f4a7c15
	next := func() uint64 {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		return z ^ (z >> 31)
	}
	for v := 0; v < maxSquare; v++ {
		for c := 0; c < 3; c++ {
			zobristKeys[v][c] = next()
		}
	}
}

// Hash returns the Zobrist hash of the current stone configuration.
func (b *Board) Hash() uint64 {
	var h uint64
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			v := b.Vertex(x, y)
			h ^= zobristKeys[v][b.square[v]]
		}
	}
	return h
}

// HashSymmetry computes the hash as if every stone had first been
// mapped through transform. Used by the evaluation cache to probe the
// seven non-identity symmetric positions without materializing a
// transformed board copy.
func (b *Board) HashSymmetry(transform func(x, y int) (int, int)) uint64 {
	var h uint64
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			v := b.Vertex(x, y)
			tx, ty := transform(x, y)
			tv := b.Vertex(tx, ty)
			h ^= zobristKeys[tv][b.square[v]]
		}
	}
	return h
}
