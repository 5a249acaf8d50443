package reversi

import (
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/entity"
)

// Snapshot is the board after a move. The first snapshot of a game has Color Empty.
// Boards held by snapshots are shared and must be treated as read-only.
type Snapshot struct {
	Move  entity.Move   `json:"move"`
	Color entity.Cell   `json:"color"`
	Board *entity.Board `json:"board"`
}

// Initial returns the snapshot of an n×n game before any move.
func Initial(n int) (Snapshot, error) {
	board, err := entity.NewBoard(n)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Move: entity.Pass, Color: entity.Empty, Board: board}, nil
}

// Step plays the move found at index i of a move log on top of prev. The mover is
// derived from the index parity; a pass keeps the board.
func Step(prev *entity.Board, i int, move entity.Move) (Snapshot, error) {
	color := entity.MoverAt(i)
	if move.IsPass() {
		return Snapshot{Move: move, Color: color, Board: prev}, nil
	}

	row, col := move.Position(prev.Size())
	board, err := Place(prev, color, row, col)
	if err != nil {
		return Snapshot{}, fmt.Errorf("move %d (%d): %w", i, move, err)
	}

	return Snapshot{Move: move, Color: color, Board: board}, nil
}

// Replay rebuilds an n×n game from its complete move log. The result has len(moves)+1
// snapshots; the last one is the current board. Moves are not re-validated.
func Replay(n int, moves []entity.Move) (*entity.Board, []Snapshot, error) {
	initial, err := Initial(n)
	if err != nil {
		return nil, nil, err
	}

	snapshots := make([]Snapshot, 0, len(moves)+1)
	snapshots = append(snapshots, initial)

	board := initial.Board
	for i, move := range moves {
		snapshot, err := Step(board, i, move)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to replay: %w", err)
		}

		snapshots = append(snapshots, snapshot)
		board = snapshot.Board
	}

	return board, snapshots, nil
}
