package reversi

import (
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

// IsLegal reports whether color may place at (row, col): the cell is empty and at least
// one direction holds a run of opponent pieces closed by a piece of color.
func IsLegal(board *entity.Board, color entity.Cell, row, col int) bool {
	if color == entity.Empty {
		return false
	}

	cell, err := board.Get(row, col)
	if err != nil || cell != entity.Empty {
		return false
	}

	for _, dir := range entity.Directions {
		if len(flipsInDirection(board, color, row, col, dir[0], dir[1])) > 0 {
			return true
		}
	}

	return false
}

// Flips returns the linear indexes that a placement of color at (row, col) would turn over.
// The target cell itself is not checked.
func Flips(board *entity.Board, color entity.Cell, row, col int) []int {
	var flips []int
	for _, dir := range entity.Directions {
		flips = append(flips, flipsInDirection(board, color, row, col, dir[0], dir[1])...)
	}

	return flips
}

// ApplyMove validates and plays a placement, returning the next snapshot. board is not modified.
func ApplyMove(board *entity.Board, color entity.Cell, row, col int) (*entity.Board, error) {
	if !board.InBounds(row, col) {
		return nil, fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfBounds, row, col)
	}

	if !IsLegal(board, color, row, col) {
		return nil, fmt.Errorf("%w: %s at (%d, %d)", apperror.ErrIllegalMove, color, row, col)
	}

	return Place(board, color, row, col)
}

// Place sets (row, col) to color and flips every qualifying run without checking legality.
// It is used for authoritative history, which is trusted.
func Place(board *entity.Board, color entity.Cell, row, col int) (*entity.Board, error) {
	if !board.InBounds(row, col) {
		return nil, fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfBounds, row, col)
	}

	flips := Flips(board, color, row, col)

	next := board.Clone()
	if err := next.Set(row, col, color); err != nil {
		return nil, err
	}

	n := board.Size()
	for _, idx := range flips {
		if err := next.Set(idx/n, idx%n, color); err != nil {
			return nil, err
		}
	}

	return next, nil
}

// LegalMoves lists every placement available to color, in index order.
func LegalMoves(board *entity.Board, color entity.Cell) []entity.Move {
	n := board.Size()

	var moves []entity.Move
	for row := range n {
		for col := range n {
			if IsLegal(board, color, row, col) {
				moves = append(moves, entity.Move(row*n+col))
			}
		}
	}

	return moves
}

// MustPass reports whether color has no placement and so has to pass.
func MustPass(board *entity.Board, color entity.Cell) bool {
	n := board.Size()
	for row := range n {
		for col := range n {
			if IsLegal(board, color, row, col) {
				return false
			}
		}
	}

	return true
}

// flipsInDirection returns the opponent run starting next to (row, col) when it is
// closed by color, nil otherwise.
func flipsInDirection(board *entity.Board, color entity.Cell, row, col, dr, dc int) []int {
	opponent := color.Opponent()
	n := board.Size()

	var run []int
	r, c := row, col
	for cell := range board.Scan(row, col, dr, dc) {
		r, c = r+dr, c+dc

		switch cell {
		case opponent:
			run = append(run, r*n+c)
		case color:
			return run
		default:
			return nil
		}
	}

	// ran off the edge
	return nil
}
