// Package gostate layers positional-superko detection and move history
// over pkg/board, giving the search a value it can copy cheaply between
// simulation frames.
package gostate

import "github.com/zerogo-engine/zerogo/pkg/board"

// KoState owns a Board plus the bookkeeping original_source's KoState
// keeps alongside it: the vertex a single-stone capture forbids for the
// very next move, a move counter, a pass counter, and every position
// hash seen so far this game.
type KoState struct {
	Board board.Board

	lastKo  int
	moveNum int
	passes  int

	seen    map[uint64]struct{}
	superko bool // set by PlayMove: did the resulting position already occur earlier?
}

// NewKoState returns a KoState for an empty board of the given size.
func NewKoState(size int) *KoState {
	ks := &KoState{lastKo: board.Pass, seen: make(map[uint64]struct{})}
	ks.Board.Reset(size)
	ks.seen[ks.Board.Hash()] = struct{}{}
	return ks
}

// PlayMove plays color at vertex (board.Pass is a legal pass), updates
// the ko point, and records the resulting position hash.
func (ks *KoState) PlayMove(color board.Color, vertex int) {
	ks.moveNum++
	if vertex == board.Pass {
		ks.passes++
		ks.lastKo = board.Pass
		ks.superko = false
		ks.Board.SetToMove(color.Opposite())
		return
	}

	ks.passes = 0
	ks.lastKo = ks.Board.Play(color, vertex)
	ks.Board.SetToMove(color.Opposite())

	hash := ks.Board.Hash()
	_, ks.superko = ks.seen[hash]
	ks.seen[hash] = struct{}{}
}

// KoVertex returns the vertex forbidden by the most recent single-stone
// capture, or board.Pass if none is in effect.
func (ks *KoState) KoVertex() int { return ks.lastKo }

// MoveNumber returns the number of plies played so far.
func (ks *KoState) MoveNumber() int { return ks.moveNum }

// Passes returns the number of consecutive passes just played.
func (ks *KoState) Passes() int { return ks.passes }

// Hash returns the current position's Zobrist hash.
func (ks *KoState) Hash() uint64 { return ks.Board.Hash() }

// Superko reports whether the move PlayMove just applied produced a
// position that already occurred earlier in the game — checked against
// the history as it stood before that move was recorded, per
// original_source's KoState::superko. Used to prune UCT children once a
// simulated move is known to repeat a position.
func (ks *KoState) Superko() bool {
	return ks.superko
}

// IsLegal reports whether color may play at vertex: the vertex is
// empty, the move is not suicide, and it is not the vertex the last
// single-stone capture forbids.
func (ks *KoState) IsLegal(color board.Color, vertex int) bool {
	if vertex == board.Pass {
		return true
	}
	if ks.Board.At(vertex) != board.Empty {
		return false
	}
	if vertex == ks.lastKo {
		return false
	}
	return !ks.Board.IsSuicide(vertex, color)
}

// Clone returns an independent copy, including its own seen-position
// set, so simulation frames never share mutable state.
func (ks *KoState) Clone() KoState {
	seen := make(map[uint64]struct{}, len(ks.seen))
	for h := range ks.seen {
		seen[h] = struct{}{}
	}
	return KoState{
		Board:   ks.Board.Clone(),
		lastKo:  ks.lastKo,
		moveNum: ks.moveNum,
		passes:  ks.passes,
		seen:    seen,
		superko: ks.superko,
	}
}
