package entity

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
)

// MinDimension is the smallest playable board side.
const MinDimension = 4

// Cell is the content of one board position.
type Cell uint8

const (
	Empty Cell = iota
	Black
	White
)

// serialized forms used by the remote service board string.
const (
	emptyRune = '.'
	blackRune = '*'
	whiteRune = 'O'
)

// Directions lists the 8 compass steps as (dr, dc).
var Directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Opponent returns the other colour. Empty has no opponent.
func (that Cell) Opponent() Cell {
	switch that {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (that Cell) String() string {
	switch that {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

func (that Cell) rune() byte {
	switch that {
	case Black:
		return blackRune
	case White:
		return whiteRune
	default:
		return emptyRune
	}
}

func (that Cell) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Cell) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "black":
		*that = Black
	case "white":
		*that = White
	case "", "empty":
		*that = Empty
	default:
		return fmt.Errorf("unknown cell %q", text)
	}

	return nil
}

// Board is an N×N grid. A board handed out as a snapshot must not be mutated;
// use Clone to derive the next one.
type Board struct {
	size  int
	cells []Cell
}

// ValidateDimension checks that n is even and at least MinDimension.
func ValidateDimension(n int) error {
	if n < MinDimension || n%2 != 0 {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidDimension, n)
	}

	return nil
}

// NewBoard returns the standard starting position for an n×n board.
func NewBoard(n int) (*Board, error) {
	if err := ValidateDimension(n); err != nil {
		return nil, err
	}

	board := &Board{
		size:  n,
		cells: make([]Cell, n*n),
	}

	mid := n / 2
	board.cells[(mid-1)*n+mid-1] = White
	board.cells[(mid-1)*n+mid] = Black
	board.cells[mid*n+mid-1] = Black
	board.cells[mid*n+mid] = White

	return board, nil
}

// ParseBoard decodes the canonical serialization produced by String.
func ParseBoard(n int, serialized string) (*Board, error) {
	if err := ValidateDimension(n); err != nil {
		return nil, err
	}

	if len(serialized) != n*n {
		return nil, fmt.Errorf("board string has %d cells, want %d", len(serialized), n*n)
	}

	board := &Board{size: n, cells: make([]Cell, n*n)}
	for i := range len(serialized) {
		switch serialized[i] {
		case blackRune:
			board.cells[i] = Black
		case whiteRune:
			board.cells[i] = White
		case emptyRune:
			board.cells[i] = Empty
		default:
			return nil, fmt.Errorf("unknown cell %q at %d", serialized[i], i)
		}
	}

	return board, nil
}

// Size returns N for an N×N board.
func (that *Board) Size() int {
	return that.size
}

// InBounds reports whether (row, col) is on the board.
func (that *Board) InBounds(row, col int) bool {
	return row >= 0 && row < that.size && col >= 0 && col < that.size
}

// Get returns the cell at (row, col), or ErrOutOfBounds.
func (that *Board) Get(row, col int) (Cell, error) {
	if !that.InBounds(row, col) {
		return Empty, fmt.Errorf("%w: (%d, %d) on %dx%d", apperror.ErrOutOfBounds, row, col, that.size, that.size)
	}

	return that.cells[row*that.size+col], nil
}

// Set writes cell at (row, col), or returns ErrOutOfBounds.
func (that *Board) Set(row, col int, cell Cell) error {
	if !that.InBounds(row, col) {
		return fmt.Errorf("%w: (%d, %d) on %dx%d", apperror.ErrOutOfBounds, row, col, that.size, that.size)
	}

	that.cells[row*that.size+col] = cell

	return nil
}

// Scan yields the cells met walking from (row, col) in direction (dr, dc),
// excluding the start cell, up to the edge of the board.
func (that *Board) Scan(row, col, dr, dc int) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		if dr == 0 && dc == 0 {
			return
		}

		for r, c := row+dr, col+dc; that.InBounds(r, c); r, c = r+dr, c+dc {
			if !yield(that.cells[r*that.size+c]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (that *Board) Clone() *Board {
	cells := make([]Cell, len(that.cells))
	copy(cells, that.cells)

	return &Board{size: that.size, cells: cells}
}

// Count returns how many positions hold cell.
func (that *Board) Count(cell Cell) int {
	count := 0
	for _, c := range that.cells {
		if c == cell {
			count++
		}
	}

	return count
}

// Equal reports whether both boards have the same size and cells.
func (that *Board) Equal(other *Board) bool {
	if other == nil || that.size != other.size {
		return false
	}

	for i := range that.cells {
		if that.cells[i] != other.cells[i] {
			return false
		}
	}

	return true
}

// String is the canonical serialization: row-major, '*' black, 'O' white, '.' empty.
func (that *Board) String() string {
	var sb strings.Builder
	sb.Grow(len(that.cells))

	for _, c := range that.cells {
		sb.WriteByte(c.rune())
	}

	return sb.String()
}

func (that *Board) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

// UnmarshalText parses a canonical serialization, taking the side from its length.
func (that *Board) UnmarshalText(text []byte) error {
	n := int(math.Sqrt(float64(len(text))))
	if n*n != len(text) {
		return fmt.Errorf("%w: %d cells is not a square board", apperror.ErrInvalidDimension, len(text))
	}

	board, err := ParseBoard(n, string(text))
	if err != nil {
		return err
	}

	*that = *board

	return nil
}
