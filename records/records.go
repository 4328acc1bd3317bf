package records

import (
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/tomasstrnad1997/minesweeper/mines"
)

type Outcome string

const (
	Won     Outcome = "won"
	Lost    Outcome = "lost"
	Aborted Outcome = "aborted"
)

type Record struct {
	ID         int64
	Difficulty mines.Difficulty
	Rows       int
	Cols       int
	Bombs      int
	Seed       uint64
	Outcome    Outcome
	Moves      int
	// Fingerprint identifies the final bomb layout, after any first-move relocation.
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  time.Time
}

var (
	ErrNoStore       = errors.New("no record store configured")
	ErrInvalidRecord = errors.New("invalid record")
)

type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func OutcomeOf(state mines.GameState) Outcome {
	switch state {
	case mines.StateWon:
		return Won
	case mines.StateLost:
		return Lost
	default:
		return Aborted
	}
}

func NewRecord(game *mines.Game, seed uint64, startedAt, finishedAt time.Time) *Record {
	return &Record{
		Difficulty:  mines.DifficultyOf(game.Params),
		Rows:        game.Params.Rows,
		Cols:        game.Params.Cols,
		Bombs:       game.Params.Bombs,
		Seed:        seed,
		Outcome:     OutcomeOf(game.State()),
		Moves:       game.Moves(),
		Fingerprint: LayoutFingerprint(game.Board),
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
}

// Finish saves a record for a game that ended or was abandoned.
func (s *Service) Finish(game *mines.Game, seed uint64, startedAt time.Time) (*Record, error) {
	if s.Store == nil {
		return nil, ErrNoStore
	}
	record := NewRecord(game, seed, startedAt, s.now())
	if err := s.Store.SaveRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Recent(limit int) ([]Record, error) {
	if s.Store == nil {
		return nil, ErrNoStore
	}
	return s.Store.ListRecords(limit)
}

func (s *Service) Totals() (map[Outcome]int, error) {
	if s.Store == nil {
		return nil, ErrNoStore
	}
	return s.Store.CountByOutcome()
}

func (r *Record) Validate() error {
	if err := (mines.GameParams{Rows: r.Rows, Cols: r.Cols, Bombs: r.Bombs}).Validate(); err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	switch r.Outcome {
	case Won, Lost, Aborted:
	default:
		return errors.Join(ErrInvalidRecord, errors.New("unknown outcome "+string(r.Outcome)))
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return errors.Join(ErrInvalidRecord, errors.New("game finished before it started"))
	}
	return nil
}

// LayoutFingerprint hashes the board dimensions and bomb positions.
func LayoutFingerprint(board *mines.Board) string {
	data := make([]byte, 0, 8+(board.Rows*board.Cols+7)/8)
	data = append(data, byte(board.Rows>>24), byte(board.Rows>>16), byte(board.Rows>>8), byte(board.Rows))
	data = append(data, byte(board.Cols>>24), byte(board.Cols>>16), byte(board.Cols>>8), byte(board.Cols))
	var bits byte
	i := 0
	board.Each(func(cell *mines.Cell) {
		if cell.IsBomb() {
			bits |= 1 << (i % 8)
		}
		i++
		if i%8 == 0 {
			data = append(data, bits)
			bits = 0
		}
	})
	if i%8 != 0 {
		data = append(data, bits)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
