package reversi

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMove(t *testing.T) {
	t.Run("Flips the sandwiched white piece", func(t *testing.T) {
		// Given: an 8x8 start position, white at (3,3) and black at (4,3)
		board := newBoard(t, 8)

		// When: black places at (2,3)
		next, err := ApplyMove(board, entity.Black, 2, 3)
		require.NoError(t, err)

		// Then: (3,3) should turn black and nothing else should flip
		assertCell(t, next, 2, 3, entity.Black)
		assertCell(t, next, 3, 3, entity.Black)
		assertCell(t, next, 4, 3, entity.Black)
		assertCell(t, next, 4, 4, entity.White)
		assert.Equal(t, 4, next.Count(entity.Black))
		assert.Equal(t, 1, next.Count(entity.White))

		// And: the input board should be untouched
		assert.Equal(t, newBoard(t, 8).String(), board.String())
	})

	t.Run("Illegal placement fails and keeps the board", func(t *testing.T) {
		// Given: a start position
		board := newBoard(t, 8)
		before := board.String()

		// When: black places in a corner with nothing to capture
		next, err := ApplyMove(board, entity.Black, 0, 0)

		// Then: ErrIllegalMove should be returned
		require.ErrorIs(t, err, apperror.ErrIllegalMove)
		assert.Nil(t, next)
		assert.Equal(t, before, board.String())
	})

	t.Run("Occupied cell is illegal", func(t *testing.T) {
		board := newBoard(t, 8)

		_, err := ApplyMove(board, entity.Black, 3, 3)

		require.ErrorIs(t, err, apperror.ErrIllegalMove)
	})

	t.Run("Out of range placement", func(t *testing.T) {
		board := newBoard(t, 6)

		_, err := ApplyMove(board, entity.White, 6, 2)

		require.ErrorIs(t, err, apperror.ErrOutOfBounds)
	})

	t.Run("Only qualifying directions flip", func(t *testing.T) {
		// Given: a closed white run to the right and an open white run downwards
		board := parseBoard(t, 6,
			".OO*..",
			"O.....",
			"O.....",
			"......",
			"......",
			"......",
		)

		// When: black places at (0,0)
		next, err := ApplyMove(board, entity.Black, 0, 0)
		require.NoError(t, err)

		// Then: only the run closed by black should flip
		assert.Equal(t, strings.Join([]string{
			"****..",
			"O.....",
			"O.....",
			"......",
			"......",
			"......",
		}, ""), next.String())
	})
}

func TestIsLegal(t *testing.T) {
	t.Run("Run into the edge does not qualify", func(t *testing.T) {
		// Given: a white run that reaches the edge without a black piece
		board := parseBoard(t, 6,
			".OOOOO",
			"......",
			"......",
			"......",
			"......",
			"......",
		)

		// Then: black cannot play at (0,0)
		assert.False(t, IsLegal(board, entity.Black, 0, 0))
	})

	t.Run("Run into an empty cell does not qualify", func(t *testing.T) {
		board := parseBoard(t, 6,
			".OO.*.",
			"......",
			"......",
			"......",
			"......",
			"......",
		)

		assert.False(t, IsLegal(board, entity.Black, 0, 0))
	})

	t.Run("Adjacent own piece does not qualify", func(t *testing.T) {
		board := newBoard(t, 8)

		// (3,2): white (3,3) closed by black (3,4)
		assert.True(t, IsLegal(board, entity.Black, 3, 2))
		// (2,4): black (3,4) below, white (3,3) diagonally runs into an empty cell
		assert.False(t, IsLegal(board, entity.Black, 2, 4))
	})

	t.Run("Empty colour never plays", func(t *testing.T) {
		assert.False(t, IsLegal(newBoard(t, 8), entity.Empty, 2, 3))
	})
}

func TestLegalMoves(t *testing.T) {
	// Given: an 8x8 start position
	board := newBoard(t, 8)

	// Then: black should have the four classic openings
	assert.Equal(t, []entity.Move{19, 26, 37, 44}, LegalMoves(board, entity.Black))
	assert.False(t, MustPass(board, entity.Black))

	// And: a board without white pieces leaves white nothing to do
	onlyBlack := parseBoard(t, 4,
		"....",
		".**.",
		".**.",
		"....",
	)
	assert.True(t, MustPass(onlyBlack, entity.White))
	assert.Empty(t, LegalMoves(onlyBlack, entity.White))
}

func TestApplyMove_RandomPlayouts(t *testing.T) {
	for _, n := range []int{6, 8, 12} {
		rng := rand.New(rand.NewSource(int64(n))) //nolint: gosec // deterministic playout

		board := newBoard(t, n)
		color := entity.Black
		passes := 0

		for passes < 2 {
			moves := LegalMoves(board, color)
			if len(moves) == 0 {
				passes++
				color = color.Opponent()
				continue
			}
			passes = 0

			move := moves[rng.Intn(len(moves))]
			row, col := move.Position(n)

			flips := Flips(board, color, row, col)
			mine := board.Count(color)
			total := n*n - board.Count(entity.Empty)

			next, err := ApplyMove(board, color, row, col)
			require.NoError(t, err)

			// a legal move flips at least one piece, only ever adds one and never removes
			require.NotEmpty(t, flips)
			require.Equal(t, total+1, n*n-next.Count(entity.Empty))
			require.Equal(t, mine+len(flips)+1, next.Count(color))

			board = next
			color = color.Opponent()
		}
	}
}

func newBoard(t *testing.T, n int) *entity.Board {
	t.Helper()

	board, err := entity.NewBoard(n)
	require.NoError(t, err)

	return board
}

func parseBoard(t *testing.T, n int, rows ...string) *entity.Board {
	t.Helper()

	board, err := entity.ParseBoard(n, strings.Join(rows, ""))
	require.NoError(t, err)

	return board
}

func assertCell(t *testing.T, board *entity.Board, row, col int, want entity.Cell) {
	t.Helper()

	got, err := board.Get(row, col)
	require.NoError(t, err)
	assert.Equal(t, want, got, "cell (%d, %d)", row, col)
}
