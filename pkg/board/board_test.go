package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetSerialize3x3(t *testing.T) {
	var b Board
	b.Reset(3)

	want := "\n   a b c \n 3 . . .  3\n 2 . . .  2\n 1 . . .  1\n   a b c \n\n"
	require.Equal(t, want, b.SerializeBoard())
}

func TestMoveToText(t *testing.T) {
	var b Board
	b.Reset(3)

	require.Equal(t, "B1", b.MoveToText(b.Vertex(1, 0)))
	require.Equal(t, "A2", b.MoveToText(b.Vertex(0, 1)))
	require.Equal(t, "ca", b.MoveToTextSGF(b.Vertex(2, 2)))
	require.Equal(t, "pass", b.MoveToText(Pass))
}

// allWhiteFieldWithHoles fills a 5x5 board with a single connected White
// string, leaving only the given vertices empty.
func allWhiteFieldWithHoles(holes ...[2]int) *Board {
	var b Board
	b.Reset(5)
	isHole := func(x, y int) bool {
		for _, h := range holes {
			if h[0] == x && h[1] == y {
				return true
			}
		}
		return false
	}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			if isHole(x, y) {
				continue
			}
			b.Play(White, b.Vertex(x, y))
		}
	}
	return &b
}

func TestIsSuicide(t *testing.T) {
	// The lone White string has three remaining liberties: (3,3), (1,1),
	// (1,2). Filling (3,3) kills none of them (the string keeps (1,1)
	// and (1,2)) and the Black stone itself would have zero liberties:
	// genuine suicide. Filling (1,1) is not suicide because it has its
	// own liberty right next to it at (1,2).
	b := allWhiteFieldWithHoles([2]int{3, 3}, [2]int{1, 1}, [2]int{1, 2})

	require.True(t, b.IsSuicide(b.Vertex(3, 3), Black))
	require.False(t, b.IsSuicide(b.Vertex(1, 1), Black))
}

func TestCaptureThreeStoneString(t *testing.T) {
	var b Board
	b.Reset(5)

	// A 3-stone White string along the top edge at (2,4),(3,4),(4,4).
	// y=4 is the last row, so each stone's only liberties are its
	// left/right neighbors along the row and the cell directly below.
	// Black takes (1,4), (2,3), (3,3), leaving (4,3) as the string's
	// last liberty; playing it captures all three stones.
	whites := [][2]int{{2, 4}, {3, 4}, {4, 4}}
	for _, xy := range whites {
		b.Play(White, b.Vertex(xy[0], xy[1]))
	}
	blacks := [][2]int{{1, 4}, {2, 3}, {3, 3}}
	for _, xy := range blacks {
		b.Play(Black, b.Vertex(xy[0], xy[1]))
	}
	b.Play(Black, b.Vertex(4, 3))

	require.EqualValues(t, 3, b.Prisoners(Black))
	require.EqualValues(t, 0, b.Prisoners(White))
	require.Equal(t, Empty, b.At(b.Vertex(3, 4)))
}

func TestAreaScore(t *testing.T) {
	// A single Black stone and a single White stone on an otherwise
	// empty board: the empty region is one connected space reachable
	// from both colors, so every empty point is contested and only the
	// two stones themselves (1 each) plus komi decide the score.
	var b Board
	b.Reset(5)
	b.Play(Black, b.Vertex(0, 0))
	b.Play(White, b.Vertex(4, 4))

	require.InDelta(t, float32(-6.5), b.AreaScore(6.5), 1e-6)
	require.InDelta(t, float32(-0.5), b.AreaScore(0.5), 1e-6)
}

func TestBoardConservation(t *testing.T) {
	var b Board
	size := 9
	b.Reset(size)

	moves := [][2]int{{2, 2}, {6, 6}, {2, 3}, {6, 5}, {3, 2}, {5, 6}}
	colors := []Color{Black, White, Black, White, Black, White}
	for i, m := range moves {
		b.Play(colors[i], b.Vertex(m[0], m[1]))
	}

	empties := 0
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if b.At(b.Vertex(x, y)) == Empty {
				empties++
			}
		}
	}
	total := int(b.TotalStones(Black)) + int(b.TotalStones(White)) + empties
	require.Equal(t, size*size, total)
}

func TestIsEye(t *testing.T) {
	var b Board
	b.Reset(5)
	// Surround (2,2) with Black on all 4 orthogonal neighbors.
	b.Play(Black, b.Vertex(1, 2))
	b.Play(Black, b.Vertex(3, 2))
	b.Play(Black, b.Vertex(2, 1))
	b.Play(Black, b.Vertex(2, 3))
	require.True(t, b.IsEye(Black, b.Vertex(2, 2)))
	require.False(t, b.IsEye(White, b.Vertex(2, 2)))
}
