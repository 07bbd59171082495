package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/gostate"
	"github.com/zerogo-engine/zerogo/pkg/mcts"
	"github.com/zerogo-engine/zerogo/pkg/network"
)

// Engine owns one GameState, one UCTSearch, and one Network behind the
// six GTP-style methods a frontend drives. Grounded on the teacher's
// top-level composition-root pattern (one struct owning the search,
// exposing a small method surface) in its own top-level MCTS type.
type Engine struct {
	cfg Config

	game   *gostate.GameState
	search *mcts.UCTSearch
	net    *network.Network
}

// New loads weights from cfg.WeightsPath and builds an Engine ready for
// play. A weight-parse failure is returned as a wrapped error — per
// SPEC_FULL.md §7, the library never calls os.Exit itself; that is
// cmd/gozero's decision to make.
func New(cfg Config) (*Engine, error) {
	net, search, err := buildSearch(cfg)
	if err != nil {
		return nil, err
	}

	gs := gostate.NewGameState(cfg.BoardSize, cfg.Komi, cfg.Resign)
	search.SetRootState(*gs)

	log.Info().Int("size", cfg.BoardSize).Float32("komi", cfg.Komi).Msg("engine ready")
	return &Engine{cfg: cfg, game: gs, search: search, net: net}, nil
}

// buildSearch loads cfg's weight file at cfg.BoardSize and wires a
// fresh Network and UCTSearch from it. Shared by New and ClearBoard's
// board-size-change path, which must reload weights since the
// policy/value head dimensions are derived from the board size.
func buildSearch(cfg Config) (*network.Network, *mcts.UCTSearch, error) {
	w, err := network.LoadWeights(cfg.WeightsPath, cfg.BoardSize)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.WeightsPath).Msg("failed to load weights")
		return nil, nil, fmt.Errorf("engine: load weights: %w", err)
	}

	net := network.New(w, cfg.BoardSize, cfg.ExpectedPlayouts)
	search := mcts.NewUCTSearch(net)
	search.Puct = cfg.PuctConstant
	search.DirichletEpsilon = cfg.DirichletEpsilon
	search.DirichletAlpha = cfg.DirichletAlpha
	search.Noise = cfg.DirichletEpsilon > 0
	search.RandomizeOpening = cfg.RandomizeOpening

	limits := mcts.DefaultLimits().SetThreads(cfg.NumThreads).SetMovetime(cfg.Movetime)
	if cfg.MaxVisits > 0 {
		limits.SetMaxVisits(cfg.MaxVisits)
	}
	search.Limiter.SetLimits(limits)

	return net, search, nil
}

// GenMove runs a search for color and plays the chosen move, returning
// it. A returned move of board.Resign means the engine resigned;
// board.Pass means it passed.
func (e *Engine) GenMove(color board.Color) (int, error) {
	move, err := e.search.Think(color)
	if err != nil {
		return 0, fmt.Errorf("engine: genmove: %w", err)
	}
	log.Info().Str("color", color.String()).Int("move", move).Msg("genmove")
	if move == board.Resign {
		return move, nil
	}
	e.Play(color, move)
	return move, nil
}

// Play advances the game by one move and reuses the corresponding
// search subtree as the new root, per AdvanceRoot. A pass (or a resign,
// which is played as a pass) resets the search root instead.
func (e *Engine) Play(color board.Color, vertex int) {
	if vertex == board.Pass || vertex == board.Resign {
		e.game.PlayMove(color, board.Pass)
		e.search.SetRootState(*e.game)
		return
	}
	e.search.AdvanceRoot(color, vertex)
	e.game.PlayMove(color, vertex)
}

// Undo is not supported by the underlying KoState (which has no
// reverse-move operation, per spec.md's Non-goals), so it is
// implemented as a config error rather than silently doing nothing.
func (e *Engine) Undo() error {
	return fmt.Errorf("engine: undo is not supported")
}

// ClearBoard resets to an empty board of size with the given komi, per
// spec.md's clear_board(size, komi). A size change reloads the weight
// file, since the policy/value head dimensions depend on board size;
// a same-size call just resets the game and keeps the loaded network
// and its evaluation cache.
func (e *Engine) ClearBoard(size int, komi float32) error {
	if size != e.cfg.BoardSize {
		cfg := e.cfg
		cfg.BoardSize = size
		net, search, err := buildSearch(cfg)
		if err != nil {
			return fmt.Errorf("engine: clear_board: %w", err)
		}
		e.net = net
		e.search = search
		e.cfg.BoardSize = size
	}

	e.cfg.Komi = komi
	e.game = gostate.NewGameState(size, komi, e.cfg.Resign)
	e.search.SetRootState(*e.game)
	log.Info().Int("size", size).Float32("komi", komi).Msg("board cleared")
	return nil
}

// FinalScore returns the Tromp-Taylor area score from Black's
// perspective, komi included.
func (e *Engine) FinalScore() float32 {
	return e.game.FinalScore()
}

// ShowBoard renders the current position as text, one row per line,
// Black/White/Empty per vertex.
func (e *Engine) ShowBoard() string {
	return e.game.Ko.Board.SerializeBoard()
}
