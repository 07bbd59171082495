package board

import (
	"strconv"
	"strings"
)

// MoveToText renders a vertex in GTP coordinate form ("A1", "T19", ...);
// 'I' is skipped the way chess/Go notation conventionally skips it to
// avoid confusion with the digit 1. Pass/Resign render as their words.
func (b *Board) MoveToText(move int) string {
	switch move {
	case Pass:
		return "pass"
	case Resign:
		return "resign"
	}

	x, y := b.XY(move)
	var sb strings.Builder
	if x < 8 {
		sb.WriteByte(byte('A' + x))
	} else {
		sb.WriteByte(byte('A' + x + 1))
	}
	sb.WriteString(strconv.Itoa(y + 1))
	return sb.String()
}

// MoveToTextSGF renders a vertex in SGF coordinate form: lowercase
// letters, with the row inverted (SGF's origin is the top-left, GTP's is
// the bottom-left). Pass and Resign both render as "tt", matching
// original_source's convention for the classic 19x19 SGF pass encoding.
func (b *Board) MoveToTextSGF(move int) string {
	if move == Pass || move == Resign {
		return "tt"
	}

	x, y := b.XY(move)
	row := b.size - y - 1

	var sb strings.Builder
	sb.WriteByte(sgfLetter(x))
	sb.WriteByte(sgfLetter(row))
	return sb.String()
}

func sgfLetter(n int) byte {
	if n <= 25 {
		return byte('a' + n)
	}
	return byte('A' + n - 26)
}

// Starpoint reports whether (x, y) is a conventional star point: only
// defined for odd sizes >= 9, at {3 or 2, center, N-1-{3 or 2}}.
func Starpoint(size, x, y int) bool {
	if size%2 == 0 || size < 9 {
		return false
	}

	near := 2
	if size >= 13 {
		near = 3
	}
	stars := [3]int{near, size / 2, size - 1 - near}

	hits := 0
	for _, p := range [2]int{x, y} {
		for _, s := range stars {
			if p == s {
				hits++
			}
		}
	}
	return hits >= 2
}

// SerializeBoard renders the canonical ASCII grid: column letters on top
// and bottom (skipping 'I'), row numbers on both sides, star points shown
// as '+'. Matches spec.md's end-to-end 3x3 reset fixture exactly.
func (b *Board) SerializeBoard() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	writeColumnHeader(&sb, b.size)

	for y := b.size - 1; y >= 0; y-- {
		sb.WriteString(padRow(y + 1))
		sb.WriteByte(' ')
		for x := 0; x < b.size; x++ {
			v := b.Vertex(x, y)
			switch b.square[v] {
			case White:
				sb.WriteByte('O')
			case Black:
				sb.WriteByte('X')
			default:
				if Starpoint(b.size, x, y) {
					sb.WriteByte('+')
				} else {
					sb.WriteByte('.')
				}
			}
			sb.WriteByte(' ')
		}
		sb.WriteString(padRow(y + 1))
		sb.WriteByte('\n')
	}

	writeColumnHeader(&sb, b.size)
	sb.WriteByte('\n')
	return sb.String()
}

func writeColumnHeader(sb *strings.Builder, size int) {
	sb.WriteString("  ")
	for x := 0; x < size; x++ {
		sb.WriteByte(' ')
		sb.WriteByte(columnLetter(x))
	}
	sb.WriteString(" \n")
}

func columnLetter(x int) byte {
	if x < 8 {
		return byte('a' + x)
	}
	return byte('a' + x + 1)
}

func padRow(row int) string {
	if row < 10 {
		return " " + strconv.Itoa(row)
	}
	return strconv.Itoa(row)
}

// StonesOf lists every vertex occupied by color, column by column
// (x outer, y inner);
// used by showboard/debug introspection (original_source's
// get_stone_list, generalized to filter by color).
func (b *Board) StonesOf(c Color) []int {
	var out []int
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			v := b.Vertex(x, y)
			if b.square[v] == c {
				out = append(out, v)
			}
		}
	}
	return out
}
