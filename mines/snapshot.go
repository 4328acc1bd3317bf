package mines

import (
	"strconv"
)

const (
	HiddenMarker = "?"
	BlankMarker  = "-"
	BombMarker   = "*"
)

// Values sent to remote views for a single cell. Counts 0..8 use ShowCount.
const (
	ShowCount  byte = 0x00
	ShowMine   byte = 0x10
	ShowHidden byte = 0x30
)

// Snapshot is a read-only rendering of the board, indexed [row][col].
type Snapshot [][]string

type UpdatedCell struct {
	Row   int
	Col   int
	Value byte
}

func NewHiddenSnapshot(rows, cols int) Snapshot {
	snapshot := make(Snapshot, rows)
	for row := range snapshot {
		snapshot[row] = make([]string, cols)
		for col := range snapshot[row] {
			snapshot[row][col] = HiddenMarker
		}
	}
	return snapshot
}

func contentMarker(cell *Cell) string {
	switch cell.Content() {
	case Bomb:
		return BombMarker
	case Number:
		return strconv.Itoa(cell.Proximity)
	default:
		return BlankMarker
	}
}

func (board *Board) snapshot(show func(cell *Cell) bool) Snapshot {
	snapshot := NewHiddenSnapshot(board.Rows, board.Cols)
	board.Each(func(cell *Cell) {
		if show(cell) {
			snapshot[cell.Row][cell.Col] = contentMarker(cell)
		}
	})
	return snapshot
}

func (board *Board) Snapshot() Snapshot {
	return board.snapshot(func(cell *Cell) bool {
		return cell.Revealed
	})
}

// LoseSnapshot is Snapshot with every bomb shown. Hidden non-bomb cells stay hidden.
func (board *Board) LoseSnapshot() Snapshot {
	return board.snapshot(func(cell *Cell) bool {
		return cell.Revealed || cell.IsBomb()
	})
}

// Solution shows the true content of every cell.
func (board *Board) Solution() Snapshot {
	return board.snapshot(func(cell *Cell) bool {
		return true
	})
}

func (s Snapshot) Rows() int {
	return len(s)
}

func (s Snapshot) Cols() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Apply writes cell updates into the snapshot, ignoring positions outside it.
func (s Snapshot) Apply(updates []UpdatedCell) {
	for _, update := range updates {
		if update.Row < 0 || update.Row >= s.Rows() || update.Col < 0 || update.Col >= s.Cols() {
			continue
		}
		s[update.Row][update.Col] = update.Marker()
	}
}

func (u UpdatedCell) Marker() string {
	switch {
	case u.Value == ShowMine:
		return BombMarker
	case u.Value == ShowHidden:
		return HiddenMarker
	case u.Value == 0:
		return BlankMarker
	default:
		return strconv.Itoa(int(u.Value))
	}
}

func cellValue(cell *Cell, showBomb bool) byte {
	switch {
	case cell.IsBomb() && (cell.Revealed || showBomb):
		return ShowMine
	case cell.Revealed:
		return ShowCount | byte(cell.Proximity)
	default:
		return ShowHidden
	}
}

func (board *Board) CellUpdates(positions []Position) []UpdatedCell {
	updates := make([]UpdatedCell, 0, len(positions))
	for _, pos := range positions {
		if !board.Valid(pos) {
			continue
		}
		cell := board.Cells[pos.Row][pos.Col]
		updates = append(updates, UpdatedCell{Row: pos.Row, Col: pos.Col, Value: cellValue(cell, false)})
	}
	return updates
}

func (board *Board) RevealedCellUpdates() []UpdatedCell {
	var updates []UpdatedCell
	board.Each(func(cell *Cell) {
		if cell.Revealed {
			updates = append(updates, UpdatedCell{Row: cell.Row, Col: cell.Col, Value: cellValue(cell, false)})
		}
	})
	return updates
}

// BombCellUpdates shows every bomb, for views of a lost game.
func (board *Board) BombCellUpdates() []UpdatedCell {
	var updates []UpdatedCell
	board.Each(func(cell *Cell) {
		if cell.IsBomb() {
			updates = append(updates, UpdatedCell{Row: cell.Row, Col: cell.Col, Value: cellValue(cell, true)})
		}
	})
	return updates
}
