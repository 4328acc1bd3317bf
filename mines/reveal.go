package mines

import (
	"github.com/zyedidia/generic/mapset"
)

// Reveal opens pos and cascades through connected blank cells, stopping at
// numbered cells. It returns the newly revealed positions in reveal order.
// A bomb is revealed alone and never expanded.
func Reveal(board *Board, pos Position) ([]Position, error) {
	cell, err := board.At(pos)
	if err != nil {
		return nil, err
	}
	if cell.Revealed {
		return nil, nil
	}
	if cell.IsBomb() {
		cell.Revealed = true
		return []Position{pos}, nil
	}
	return cascade(board, pos), nil
}

func cascade(board *Board, start Position) []Position {
	var revealed []Position
	visited := mapset.New[Position]()
	visited.Put(start)
	stack := []Position{start}
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cell := board.Cells[pos.Row][pos.Col]
		if cell.Revealed || cell.IsBomb() {
			continue
		}
		cell.Revealed = true
		revealed = append(revealed, pos)
		if cell.Proximity != 0 {
			continue
		}
		for _, n := range board.Neighbours(pos) {
			if visited.Has(n) || board.Cells[n.Row][n.Col].Revealed {
				continue
			}
			visited.Put(n)
			stack = append(stack, n)
		}
	}
	return revealed
}

// Wins reports whether every non-bomb cell is revealed. It does not modify the board.
func Wins(board *Board) bool {
	for _, row := range board.Cells {
		for _, cell := range row {
			if !cell.IsBomb() && !cell.Revealed {
				return false
			}
		}
	}
	return true
}
