// Command gozero is a thin line-oriented harness around pkg/engine's
// six-method surface: genmove, play, undo, clear_board, final_score,
// showboard. It is a demonstration CLI, not a GTP server — no grammar
// parsing, no flag library beyond the standard one, per SPEC_FULL.md's
// explicit scope.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"

	"github.com/zerogo-engine/zerogo/pkg/board"
	"github.com/zerogo-engine/zerogo/pkg/engine"
)

func main() {
	weightsPath := flag.String("weights", "", "path to a v1/v2/v3 Leela-Zero-format weight file")
	size := flag.Int("size", 19, "board size")
	komi := flag.Float64("komi", 7.5, "komi")
	threads := flag.Int("threads", 1, "search worker threads")
	movetime := flag.Int("movetime", 1000, "search budget per move, in milliseconds; -1 for unlimited")
	flag.Parse()

	if *weightsPath == "" {
		log.Fatal().Msg("gozero: -weights is required")
	}

	cfg := engine.DefaultConfig()
	cfg.WeightsPath = *weightsPath
	cfg.BoardSize = *size
	cfg.Komi = float32(*komi)
	cfg.NumThreads = *threads
	cfg.Movetime = *movetime

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("gozero: failed to start engine")
	}

	runLoop(eng, *size)
}

func runLoop(eng *engine.Engine, size int) {
	scanner := bufio.NewScanner(os.Stdin)
	toMove := board.Black

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]

		switch cmd {
		case "genmove":
			move, err := eng.GenMove(toMove)
			if err != nil {
				fmt.Println("? " + err.Error())
				continue
			}
			fmt.Println("= " + moveText(move, size))
			toMove = toMove.Opposite()

		case "play":
			if len(fields) != 2 {
				fmt.Println("? play requires one vertex argument")
				continue
			}
			v, err := parseVertex(fields[1], size)
			if err != nil {
				fmt.Println("? " + err.Error())
				continue
			}
			eng.Play(toMove, v)
			toMove = toMove.Opposite()
			fmt.Println("= ")

		case "undo":
			if err := eng.Undo(); err != nil {
				fmt.Println("? " + err.Error())
				continue
			}
			toMove = toMove.Opposite()
			fmt.Println("= ")

		case "clear_board":
			newSize, newKomi := size, 7.5
			if len(fields) >= 2 {
				v, err := strconv.Atoi(fields[1])
				if err != nil {
					fmt.Println("? " + err.Error())
					continue
				}
				newSize = v
			}
			if len(fields) >= 3 {
				v, err := strconv.ParseFloat(fields[2], 32)
				if err != nil {
					fmt.Println("? " + err.Error())
					continue
				}
				newKomi = v
			}
			if err := eng.ClearBoard(newSize, float32(newKomi)); err != nil {
				fmt.Println("? " + err.Error())
				continue
			}
			size = newSize
			toMove = board.Black
			fmt.Println("= ")

		case "final_score":
			fmt.Printf("= %.1f\n", eng.FinalScore())

		case "showboard":
			fmt.Println("= " + renderColored(eng.ShowBoard()))

		case "quit":
			return

		default:
			fmt.Println("? unknown command: " + cmd)
		}
	}
}

func moveText(move, size int) string {
	switch move {
	case board.Pass:
		return "pass"
	case board.Resign:
		return "resign"
	}
	b := &board.Board{}
	b.Reset(size)
	return b.MoveToText(move)
}

func parseVertex(text string, size int) (int, error) {
	switch strings.ToLower(text) {
	case "pass":
		return board.Pass, nil
	case "resign":
		return board.Resign, nil
	}
	if len(text) < 2 {
		return 0, fmt.Errorf("bad vertex %q", text)
	}
	col := strings.ToUpper(text[:1])[0]
	x := int(col - 'A')
	if col > 'I' {
		x--
	}
	row, err := strconv.Atoi(text[1:])
	if err != nil {
		return 0, fmt.Errorf("bad vertex %q: %w", text, err)
	}
	y := row - 1
	if x < 0 || x >= size || y < 0 || y >= size {
		return 0, fmt.Errorf("vertex %q out of range for size %d", text, size)
	}
	b := &board.Board{}
	b.Reset(size)
	return b.Vertex(x, y), nil
}

// renderColored recolors SerializeBoard's plain 'X'/'O' glyphs using
// termenv, the same terminal-styling library the go-mcts teacher's
// example CLIs depend on.
func renderColored(plain string) string {
	black := termenv.String("X").Foreground(termenv.ANSIBrightWhite).Background(termenv.ANSIBlack).String()
	white := termenv.String("O").Foreground(termenv.ANSIBlack).Background(termenv.ANSIBrightWhite).String()

	var sb strings.Builder
	for _, r := range plain {
		switch r {
		case 'X':
			sb.WriteString(black)
		case 'O':
			sb.WriteString(white)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
