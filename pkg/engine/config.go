// Package engine wires Board/GameState/UCTSearch/Network behind the
// six-method surface a GTP frontend drives: genmove, play, undo,
// clear_board, final_score, showboard.
package engine

import "github.com/zerogo-engine/zerogo/pkg/gostate"

// Config is built once at startup and never mutated once a search has
// begun, mirroring original_source's global configuration pattern.
type Config struct {
	BoardSize int
	Komi      float32

	WeightsPath string

	// PuctConstant is original_source's cfg_puct; spec.md gives 0.8 as
	// the literal default.
	PuctConstant float32

	DirichletEpsilon float32
	DirichletAlpha   float32

	NumThreads int
	MaxVisits  uint32
	Movetime   int // milliseconds; -1 for unlimited

	Resign           gostate.ResignPolicy
	RandomizeOpening int

	ExpectedPlayouts int // sizes the evaluation cache, see pkg/cache.SetSizeFromPlayouts
}

// DefaultConfig returns original_source's usual defaults for a 19x19
// board.
func DefaultConfig() Config {
	return Config{
		BoardSize:        19,
		Komi:             7.5,
		PuctConstant:     0.8,
		DirichletEpsilon: 0.25,
		DirichletAlpha:   0.03,
		NumThreads:       1,
		MaxVisits:        0,
		Movetime:         -1,
		Resign:           gostate.DefaultResignPolicy(),
		RandomizeOpening: 0,
		ExpectedPlayouts: 10000,
	}
}
