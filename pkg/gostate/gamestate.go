package gostate

import "github.com/zerogo-engine/zerogo/pkg/board"

// maxHistory is the number of past board snapshots GameState retains
// for the network's input planes (original_source's INPUT_MOVES).
const maxHistory = 8

// ResignPolicy configures early resignation. Not part of the distilled
// specification of this state layer, but present in original_source's
// autogtp self-play harness: a game resigns once the side to move's
// estimated winrate drops under Threshold, but never before
// MinMoveNumber plies have been played (the network's early-game
// estimates are too noisy to trust).
type ResignPolicy struct {
	Threshold     float32
	MinMoveNumber int
}

// DefaultResignPolicy mirrors autogtp's usual defaults.
func DefaultResignPolicy() ResignPolicy {
	return ResignPolicy{Threshold: 0.10, MinMoveNumber: 10}
}

// GameState layers komi, a resign policy, and bounded move history over
// a KoState.
type GameState struct {
	Ko KoState

	komi   float32
	resign ResignPolicy

	history [maxHistory]board.Board
	histLen int
}

// NewGameState returns a GameState for an empty board of the given
// size.
func NewGameState(size int, komi float32, resign ResignPolicy) *GameState {
	gs := &GameState{komi: komi, resign: resign}
	gs.Ko = *NewKoState(size)
	gs.pushHistory()
	return gs
}

func (gs *GameState) pushHistory() {
	for i := len(gs.history) - 1; i > 0; i-- {
		gs.history[i] = gs.history[i-1]
	}
	gs.history[0] = gs.Ko.Board.Clone()
	if gs.histLen < maxHistory {
		gs.histLen++
	}
}

// PlayMove advances the underlying KoState and pushes the resulting
// position onto the history ring.
func (gs *GameState) PlayMove(color board.Color, vertex int) {
	gs.Ko.PlayMove(color, vertex)
	gs.pushHistory()
}

// ToMove returns the color to play next.
func (gs *GameState) ToMove() board.Color { return gs.Ko.Board.ToMove() }

// MoveNumber returns the number of plies played so far.
func (gs *GameState) MoveNumber() int { return gs.Ko.MoveNumber() }

// Komi returns the configured komi.
func (gs *GameState) Komi() float32 { return gs.komi }

// Resign returns the configured resign policy.
func (gs *GameState) Resign() ResignPolicy { return gs.resign }

// PastBoard returns the board snapshot h plies back (0 is the current
// position), clamped to the oldest snapshot still retained. Grounded on
// original_source's get_past_board, used when gathering network input
// planes.
func (gs *GameState) PastBoard(h int) *board.Board {
	if h < 0 {
		h = 0
	}
	if h >= gs.histLen {
		h = gs.histLen - 1
	}
	return &gs.history[h]
}

// SymmetryHash returns the Zobrist hash of the current position as
// seen through a coordinate transform, used by the evaluation cache to
// probe the non-identity D4 symmetries during opening moves.
func (gs *GameState) SymmetryHash(transform func(x, y int) (int, int)) uint64 {
	return gs.Ko.Board.HashSymmetry(transform)
}

// ShouldResign reports whether the side to move should resign, given
// its estimated winrate.
func (gs *GameState) ShouldResign(winrateForToMove float32) bool {
	if gs.MoveNumber() < gs.resign.MinMoveNumber {
		return false
	}
	return winrateForToMove < gs.resign.Threshold
}

// FinalScore computes the Tromp-Taylor area score of the current
// position from Black's perspective, komi included.
func (gs *GameState) FinalScore() float32 {
	return gs.Ko.Board.AreaScore(gs.komi)
}

// Clone returns an independent copy for a simulation frame to mutate.
func (gs *GameState) Clone() GameState {
	clone := *gs
	clone.Ko = gs.Ko.Clone()
	return clone
}
