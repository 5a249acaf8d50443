package entity

import (
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
)

// Move is a linear board index row*N+col, or Pass.
type Move int

// Pass marks a turn where the player had no legal placement.
const Pass Move = -1

// MoveOutcome is the advisory answer to a submitted move.
type MoveOutcome string

const (
	MoveAccepted   MoveOutcome = "OK"
	MoveAutoPassed MoveOutcome = "Pass"
	MoveGameOver   MoveOutcome = "GameOver"
)

func NewMove(n, row, col int) (Move, error) {
	if row < 0 || row >= n || col < 0 || col >= n {
		return Pass, fmt.Errorf("%w: (%d, %d) on %dx%d", apperror.ErrOutOfBounds, row, col, n, n)
	}

	return Move(row*n + col), nil
}

func (that Move) IsPass() bool {
	return that < 0
}

// Position splits the index for an n×n board.
func (that Move) Position(n int) (int, int) {
	return int(that) / n, int(that) % n
}

// MoverAt returns the colour that made the move at index i of a move log.
func MoverAt(i int) Cell {
	if i%2 == 0 {
		return Black
	}

	return White
}
