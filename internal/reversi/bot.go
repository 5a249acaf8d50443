package reversi

import (
	"math/rand"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

// Suggest picks a placement for color: the one flipping the most pieces, corners first,
// with ties broken by rng.
func Suggest(board *entity.Board, color entity.Cell, rng *rand.Rand) (entity.Move, error) {
	moves := LegalMoves(board, color)
	if len(moves) == 0 {
		return entity.Pass, apperror.ErrNoLegalMoves
	}

	n := board.Size()

	var best []entity.Move
	bestScore := -1
	for _, move := range moves {
		row, col := move.Position(n)

		score := len(Flips(board, color, row, col))
		if isCorner(n, row, col) {
			score += n * n
		}

		switch {
		case score > bestScore:
			best = append(best[:0], move)
			bestScore = score
		case score == bestScore:
			best = append(best, move)
		}
	}

	return best[rng.Intn(len(best))], nil
}

func isCorner(n, row, col int) bool {
	return (row == 0 || row == n-1) && (col == 0 || col == n-1)
}
