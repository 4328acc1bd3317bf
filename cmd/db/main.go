package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/config"
	"github.com/tomasstrnad1997/minesweeper/db"
	"github.com/tomasstrnad1997/minesweeper/records"
)

var log = logrus.New()

func main() {
	cfg, err := config.FromArgs("db", os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	store, err := db.InitStore(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to create store")
	}
	defer store.Close()
	if err = store.InitializeTables(); err != nil {
		log.WithError(err).Fatal("Failed to create tables")
	}
	log.WithField("path", cfg.DBPath).Info("Tables created")

	service := &records.Service{Store: store}
	totals, err := service.Totals()
	if err != nil {
		log.WithError(err).Fatal("Failed to count games")
	}
	log.WithFields(logrus.Fields{
		"won":     totals[records.Won],
		"lost":    totals[records.Lost],
		"aborted": totals[records.Aborted],
	}).Info("Game history")

	recent, err := service.Recent(10)
	if err != nil {
		log.WithError(err).Fatal("Failed to list games")
	}
	for _, record := range recent {
		log.WithFields(logrus.Fields{
			"id":         record.ID,
			"difficulty": record.Difficulty,
			"outcome":    record.Outcome,
			"moves":      record.Moves,
			"seed":       record.Seed,
			"finished":   record.FinishedAt.Format("2006-01-02 15:04:05"),
		}).Info("Game")
	}
}
