package mines

import (
	"math/rand/v2"
)

const seedStream = 0x9e3779b97f4a7c15

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}

// CreateBoard builds a board with bombs placed and proximity counts computed.
func CreateBoard(params GameParams, rng *rand.Rand) (*Board, error) {
	board, err := NewBoard(params)
	if err != nil {
		return nil, err
	}
	if err := PlaceBombs(board, params.Bombs, rng); err != nil {
		return nil, err
	}
	ComputeProximity(board)
	return board, nil
}

// PlaceBombs shuffles every position and mines the first bombCount of them.
// All other cells are reset to blank.
func PlaceBombs(board *Board, bombCount int, rng *rand.Rand) error {
	params := GameParams{Rows: board.Rows, Cols: board.Cols, Bombs: bombCount}
	if err := params.Validate(); err != nil {
		return err
	}
	positions := make([]int, board.Rows*board.Cols)
	for i := range positions {
		positions[i] = i
	}
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	board.Each(func(cell *Cell) {
		cell.Bomb = false
		cell.Proximity = 0
	})
	for _, position := range positions[:bombCount] {
		board.Cells[position/board.Cols][position%board.Cols].Bomb = true
	}
	board.Bombs = bombCount
	return nil
}

// ComputeProximity recounts adjacent bombs for every non-bomb cell from scratch.
func ComputeProximity(board *Board) {
	board.Each(func(cell *Cell) {
		cell.Proximity = 0
	})
	board.Each(func(cell *Cell) {
		if !cell.IsBomb() {
			return
		}
		for _, ncell := range board.NeighbouringCells(cell.Position()) {
			if !ncell.IsBomb() {
				ncell.Proximity++
			}
		}
	})
}

type Relocation struct {
	From Position
	To   Position
}

// RelocateBomb moves a bomb at pos to a uniformly chosen non-bomb cell and
// recomputes proximity. It returns nil and changes nothing when pos is not a bomb.
func RelocateBomb(board *Board, pos Position, rng *rand.Rand) (*Relocation, error) {
	cell, err := board.At(pos)
	if err != nil {
		return nil, err
	}
	if !cell.IsBomb() {
		return nil, nil
	}
	var candidates []*Cell
	board.Each(func(c *Cell) {
		if !c.IsBomb() {
			candidates = append(candidates, c)
		}
	})
	// Bombs < Rows*Cols is enforced at creation, so there is always a free cell.
	target := candidates[rng.IntN(len(candidates))]
	cell.Bomb = false
	target.Bomb = true
	ComputeProximity(board)
	return &Relocation{From: pos, To: target.Position()}, nil
}
