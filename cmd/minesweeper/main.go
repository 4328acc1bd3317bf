package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/config"
	"github.com/tomasstrnad1997/minesweeper/console"
	"github.com/tomasstrnad1997/minesweeper/db"
	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/records"
	"github.com/tomasstrnad1997/minesweeper/render"
)

var log = logrus.New()

func openHistory(path string) (*records.Service, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	store, err := db.InitStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.InitializeTables(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &records.Service{Store: store}, func() { store.Close() }, nil
}

func main() {
	cfg, err := config.FromArgs("minesweeper", os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	level, err := cfg.Level()
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(level)

	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Fatal("Game failed")
	}
}

// run plays one game on in and out. The history store is closed before run
// returns.
func run(cfg config.Config, in io.Reader, out io.Writer) error {
	history, closeHistory, err := openHistory(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeHistory()

	con := console.New(in, out)
	var difficulty mines.Difficulty
	if cfg.Difficulty != "" {
		difficulty, err = mines.ParseDifficulty(cfg.Difficulty)
	} else {
		difficulty, err = con.ChooseDifficulty()
	}
	if err != nil {
		return fmt.Errorf("failed to choose difficulty: %w", err)
	}

	params, err := difficulty.Params()
	if err != nil {
		return fmt.Errorf("failed to choose difficulty: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	game, err := mines.NewGame(params, mines.NewRand(seed))
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	log.WithFields(logrus.Fields{"difficulty": difficulty, "seed": seed}).Debug("Game created")

	if cfg.SolutionPath != "" {
		if err := render.WriteSolution(cfg.SolutionPath, game.Board); err != nil {
			return fmt.Errorf("failed to write solution: %w", err)
		}
	}

	startedAt := time.Now()
	state, playErr := con.Play(game)

	// The first move may have moved a bomb.
	if cfg.SolutionPath != "" {
		if err := render.WriteSolution(cfg.SolutionPath, game.Board); err != nil {
			log.WithError(err).Error("Failed to write solution")
		}
	}
	if history != nil {
		record, err := history.Finish(game, seed, startedAt)
		if err != nil {
			log.WithError(err).Error("Failed to save game record")
		} else {
			log.WithFields(logrus.Fields{"id": record.ID, "outcome": record.Outcome, "moves": record.Moves}).Info("Game recorded")
		}
	}
	if playErr != nil && !errors.Is(playErr, console.ErrInputClosed) {
		return playErr
	}
	log.WithField("state", state).Debug("Game over")
	return nil
}
