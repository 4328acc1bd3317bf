package mines

import (
	"fmt"
	"math/rand/v2"
)

type GameState int

const (
	StateCreated GameState = iota
	StateAwaitingFirstMove
	StateInProgress
	StateWon
	StateLost
)

func (s GameState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateAwaitingFirstMove:
		return "AwaitingFirstMove"
	case StateInProgress:
		return "InProgress"
	case StateWon:
		return "Won"
	case StateLost:
		return "Lost"
	default:
		return "UNKNOWN"
	}
}

func (s GameState) Terminal() bool {
	return s == StateWon || s == StateLost
}

type MoveResultType int

const (
	Continue MoveResultType = iota
	GameWon
	GameLost
)

func (r MoveResultType) String() string {
	switch r {
	case Continue:
		return "Continue"
	case GameWon:
		return "Won"
	case GameLost:
		return "Lost"
	default:
		return "UNKNOWN"
	}
}

type MoveResult struct {
	Result   MoveResultType
	Revealed []Position
	// Set only when the first move hit a bomb and it was moved away.
	Relocation *Relocation
}

// Game is a single-player session. It is not safe for concurrent use; moves
// are expected one at a time.
type Game struct {
	Params GameParams
	Board  *Board
	state  GameState
	moves  int
	rng    *rand.Rand
}

func NewGame(params GameParams, rng *rand.Rand) (*Game, error) {
	game := &Game{Params: params, state: StateCreated, rng: rng}
	board, err := CreateBoard(params, rng)
	if err != nil {
		return nil, err
	}
	game.Board = board
	game.state = StateAwaitingFirstMove
	return game, nil
}

// NewGameFromBoard starts a session on an already generated board. The board
// must leave at least one cell free of bombs and hold exactly board.Bombs bombs.
func NewGameFromBoard(board *Board, rng *rand.Rand) (*Game, error) {
	params := board.Params()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if count := board.BombCount(); count != params.Bombs {
		return nil, fmt.Errorf("%w: board holds %d bombs but declares %d", ErrBombCountMismatch, count, params.Bombs)
	}
	return &Game{Params: params, Board: board, state: StateAwaitingFirstMove, rng: rng}, nil
}

func (game *Game) State() GameState {
	return game.state
}

// Moves counts the moves that revealed at least one cell.
func (game *Game) Moves() int {
	return game.moves
}

func (game *Game) Move(pos Position) (*MoveResult, error) {
	if game.state.Terminal() {
		return nil, ErrGameOver
	}
	if !game.Board.Valid(pos) {
		return nil, &OutOfBoundsError{Pos: pos, Rows: game.Board.Rows, Cols: game.Board.Cols}
	}
	result := &MoveResult{Result: Continue}
	if game.state == StateAwaitingFirstMove {
		relocation, err := RelocateBomb(game.Board, pos, game.rng)
		if err != nil {
			return nil, err
		}
		result.Relocation = relocation
		game.state = StateInProgress
	}
	revealed, err := Reveal(game.Board, pos)
	if err != nil {
		return nil, fmt.Errorf("reveal %s: %w", pos, err)
	}
	if len(revealed) > 0 {
		game.moves++
	}
	result.Revealed = revealed
	switch {
	case game.Board.Cells[pos.Row][pos.Col].IsBomb():
		game.state = StateLost
		result.Result = GameLost
	case Wins(game.Board):
		game.state = StateWon
		result.Result = GameWon
	}
	return result, nil
}

func (game *Game) Snapshot() Snapshot {
	return game.Board.Snapshot()
}

func (game *Game) LoseSnapshot() Snapshot {
	return game.Board.LoseSnapshot()
}
