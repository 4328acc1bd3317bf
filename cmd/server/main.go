package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/config"
	"github.com/tomasstrnad1997/minesweeper/db"
	"github.com/tomasstrnad1997/minesweeper/records"
	"github.com/tomasstrnad1997/minesweeper/server"
)

var log = logrus.New()

func main() {
	cfg, err := config.FromArgs("server", os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	level, err := cfg.Level()
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(level)
	server.SetLogLevel(level)

	opts := server.Options{MaxRows: cfg.MaxRows, MaxCols: cfg.MaxCols}
	if cfg.DBPath != "" {
		store, err := db.InitStore(cfg.DBPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to create store")
		}
		defer store.Close()
		if err := store.InitializeTables(); err != nil {
			log.WithError(err).Fatal("Failed to create tables")
		}
		opts.Records = &records.Service{Store: store}
	}
	if cfg.Seed != 0 {
		seed := cfg.Seed
		opts.NewSeed = func() uint64 { return seed }
	}

	srv, err := server.SpawnServer("Server", cfg.Port, opts)
	if err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
	log.WithFields(logrus.Fields{"name": srv.Name, "port": srv.Port}).Info("Server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down")
	if err := srv.Close(); err != nil {
		log.WithError(err).Error("Failed to close server")
	}
}
