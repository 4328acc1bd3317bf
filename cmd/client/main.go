package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/client"
	"github.com/tomasstrnad1997/minesweeper/config"
	"github.com/tomasstrnad1997/minesweeper/console"
	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/protocol"
)

var log = logrus.New()

func main() {
	cfg, err := config.FromArgs("client", os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	level, err := cfg.Level()
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(level)
	client.SetLogLevel(level)
	protocol.SetLogLevel(level)

	controller := protocol.CreateConnectionController()
	if err := controller.Connect(cfg.Host, cfg.Port); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port}).Fatal("Failed to connect")
	}
	defer controller.Close()
	log.WithField("server", controller.GetServerAddress()).Info("Connected")

	c := client.New(controller, os.Stdout)
	c.Listen()

	con := c.NewConsole(os.Stdin)
	var difficulty mines.Difficulty
	if cfg.Difficulty != "" {
		difficulty, err = mines.ParseDifficulty(cfg.Difficulty)
	} else {
		difficulty, err = con.ChooseDifficulty()
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to choose difficulty")
	}
	params, err := difficulty.Params()
	if err != nil {
		log.WithError(err).Fatal("Failed to choose difficulty")
	}
	var seed *uint64
	if cfg.Seed != 0 {
		seed = &cfg.Seed
	}

	end, err := c.Play(con, params, seed)
	if err != nil && !errors.Is(err, console.ErrInputClosed) {
		log.WithError(err).Fatal("Game failed")
	}
	log.WithField("end", end).Debug("Game over")
}
