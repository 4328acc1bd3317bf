package config

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DBPath       string `env:"MINES_DB_PATH"`
	Host         string `env:"MINES_HOST" envDefault:"localhost"`
	Port         uint16 `env:"MINES_PORT" envDefault:"42069"`
	Difficulty   string `env:"MINES_DIFFICULTY"`
	Seed         uint64 `env:"MINES_SEED"`
	SolutionPath string `env:"MINES_SOLUTION_PATH"`
	LogLevel     string `env:"MINES_LOG_LEVEL" envDefault:"info"`
	MaxRows      int    `env:"MINES_MAX_ROWS" envDefault:"64"`
	MaxCols      int    `env:"MINES_MAX_COLS" envDefault:"64"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags registers a flag for every field, defaulting to its current value.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "sqlite database for game history")
	fs.StringVar(&c.Host, "host", c.Host, "server host")
	fs.Func("port", fmt.Sprintf("server port (default %d)", c.Port), func(value string) error {
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return err
		}
		c.Port = uint16(port)
		return nil
	})
	fs.StringVar(&c.Difficulty, "difficulty", c.Difficulty, "easy, medium or hard (asked when empty)")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "seed for the bomb layout, 0 picks a random one")
	fs.StringVar(&c.SolutionPath, "solution", c.SolutionPath, "file the solved board is written to")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.IntVar(&c.MaxRows, "max-rows", c.MaxRows, "most rows a server board may have")
	fs.IntVar(&c.MaxCols, "max-cols", c.MaxCols, "most columns a server board may have")
}

// FromArgs loads environment defaults and then parses flags, so flags win.
func FromArgs(name string, args []string) (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}

func (c Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}
