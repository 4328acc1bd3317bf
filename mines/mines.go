package mines

import (
	"errors"
	"fmt"
)

type Content byte

const (
	Blank Content = iota
	Number
	Bomb
)

func (c Content) String() string {
	switch c {
	case Blank:
		return "Blank"
	case Number:
		return "Number"
	case Bomb:
		return "Bomb"
	default:
		return "UNKNOWN"
	}
}

type Cell struct {
	Bomb      bool
	Revealed  bool
	Proximity int
	Row       int
	Col       int
}

// IsBomb reports the hidden content of the cell without touching its revealed state.
func (c *Cell) IsBomb() bool {
	return c.Bomb
}

func (c *Cell) Content() Content {
	switch {
	case c.Bomb:
		return Bomb
	case c.Proximity > 0:
		return Number
	default:
		return Blank
	}
}

func (c *Cell) Position() Position {
	return Position{Row: c.Row, Col: c.Col}
}

type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

type Board struct {
	Rows  int
	Cols  int
	Bombs int
	Cells [][]*Cell
}

type GameParams struct {
	Rows  int
	Cols  int
	Bombs int
}

var (
	ErrGameOver          = errors.New("game is over, no further moves accepted")
	ErrBombCountMismatch = errors.New("bomb count mismatch")
)

type InvalidConfigError struct {
	Rows  int
	Cols  int
	Bombs int
}

type OutOfBoundsError struct {
	Pos  Position
	Rows int
	Cols int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("move out of range - %s - board (%d, %d)", e.Pos, e.Rows, e.Cols)
}

func (e *InvalidConfigError) Error() string {
	switch {
	case e.Rows <= 0:
		return fmt.Sprintf("cannot create a board with rows: %d", e.Rows)
	case e.Cols <= 0:
		return fmt.Sprintf("cannot create a board with cols: %d", e.Cols)
	case e.Bombs < 0:
		return fmt.Sprintf("cannot create a board with negative amount of bombs: %d", e.Bombs)
	case e.Bombs >= e.Rows*e.Cols:
		return fmt.Sprintf("not enough space for %d bombs (%d >= %d * %d)", e.Bombs, e.Bombs, e.Rows, e.Cols)
	default:
		return "cannot construct board: unknown error"
	}
}

func (p GameParams) Validate() error {
	if p.Rows <= 0 || p.Cols <= 0 || p.Bombs < 0 || p.Bombs >= p.Rows*p.Cols {
		return &InvalidConfigError{Rows: p.Rows, Cols: p.Cols, Bombs: p.Bombs}
	}
	return nil
}

// NewBoard allocates an empty grid. Bombs are not placed; see PlaceBombs.
func NewBoard(params GameParams) (*Board, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cells := make([][]*Cell, params.Rows)
	for row := range cells {
		cells[row] = make([]*Cell, params.Cols)
		for col := range cells[row] {
			cells[row][col] = &Cell{Row: row, Col: col}
		}
	}
	return &Board{Rows: params.Rows, Cols: params.Cols, Bombs: params.Bombs, Cells: cells}, nil
}

func (board *Board) Params() GameParams {
	return GameParams{Rows: board.Rows, Cols: board.Cols, Bombs: board.Bombs}
}

func (board *Board) Valid(pos Position) bool {
	return !(pos.Row < 0 || pos.Row >= board.Rows || pos.Col < 0 || pos.Col >= board.Cols)
}

func (board *Board) At(pos Position) (*Cell, error) {
	if !board.Valid(pos) {
		return nil, &OutOfBoundsError{Pos: pos, Rows: board.Rows, Cols: board.Cols}
	}
	return board.Cells[pos.Row][pos.Col], nil
}

// Neighbours returns the in-bounds positions surrounding pos, excluding pos itself.
func (board *Board) Neighbours(pos Position) []Position {
	var positions []Position
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Position{Row: pos.Row + dr, Col: pos.Col + dc}
			if board.Valid(n) {
				positions = append(positions, n)
			}
		}
	}
	return positions
}

func (board *Board) NeighbouringCells(pos Position) []*Cell {
	neighbours := board.Neighbours(pos)
	cells := make([]*Cell, len(neighbours))
	for i, n := range neighbours {
		cells[i] = board.Cells[n.Row][n.Col]
	}
	return cells
}

// Each calls fn for every cell in row-major order.
func (board *Board) Each(fn func(cell *Cell)) {
	for _, row := range board.Cells {
		for _, cell := range row {
			fn(cell)
		}
	}
}

func (board *Board) BombCount() int {
	count := 0
	board.Each(func(cell *Cell) {
		if cell.IsBomb() {
			count++
		}
	})
	return count
}

func (board *Board) RevealedCells() int {
	count := 0
	board.Each(func(cell *Cell) {
		if cell.Revealed {
			count++
		}
	})
	return count
}

func (board *Board) RemainingCells() int {
	return board.Rows*board.Cols - board.RevealedCells()
}
