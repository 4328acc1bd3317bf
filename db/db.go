package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/records"
)

//go:embed schema.sql
var ddl string

const (
	insertGame = `INSERT INTO games (difficulty, board_rows, board_cols, bombs, seed, outcome, moves, fingerprint, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	listGames = `SELECT id, difficulty, board_rows, board_cols, bombs, seed, outcome, moves, fingerprint, started_at, finished_at
FROM games ORDER BY finished_at DESC, id DESC LIMIT ?`
	countGames = `SELECT outcome, COUNT(*) FROM games GROUP BY outcome`
)

type SQLStore struct {
	DB  *sql.DB
	ctx context.Context
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (store *SQLStore) InitializeTables() error {
	return InitializeTables(store.DB)
}

func InitStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path not set")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{DB: db, ctx: context.Background()}, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) SaveRecord(record *records.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(s.ctx, insertGame,
		string(record.Difficulty),
		record.Rows,
		record.Cols,
		record.Bombs,
		int64(record.Seed),
		string(record.Outcome),
		record.Moves,
		record.Fingerprint,
		record.StartedAt.UnixMilli(),
		record.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	return nil
}

func (s *SQLStore) ListRecords(limit int) ([]records.Record, error) {
	rows, err := s.DB.QueryContext(s.ctx, listGames, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var result []records.Record
	for rows.Next() {
		var (
			r                     records.Record
			difficulty, outcome   string
			seed                  int64
			startedAt, finishedAt int64
		)
		err := rows.Scan(&r.ID, &difficulty, &r.Rows, &r.Cols, &r.Bombs, &seed, &outcome, &r.Moves, &r.Fingerprint, &startedAt, &finishedAt)
		if err != nil {
			return nil, err
		}
		r.Difficulty = mines.Difficulty(difficulty)
		r.Outcome = records.Outcome(outcome)
		r.Seed = uint64(seed)
		r.StartedAt = time.UnixMilli(startedAt)
		r.FinishedAt = time.UnixMilli(finishedAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *SQLStore) CountByOutcome() (map[records.Outcome]int, error) {
	rows, err := s.DB.QueryContext(s.ctx, countGames)
	if err != nil {
		return nil, fmt.Errorf("count games: %w", err)
	}
	defer rows.Close()
	counts := make(map[records.Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[records.Outcome(outcome)] = count
	}
	return counts, rows.Err()
}
