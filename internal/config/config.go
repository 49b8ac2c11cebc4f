package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Env struct {
	// ModulesDir overrides the modules directory next to the executable.
	ModulesDir string `env:"LECTURECUT_MODULES_DIR"`
	LogLevel   string `env:"LECTURECUT_LOG_LEVEL" envDefault:"warn"`
	NoProgress bool   `env:"LECTURECUT_NO_PROGRESS"`
}

// Load reads .env when present, then the process environment.
func Load() (Env, error) {
	_ = godotenv.Load() // best-effort: load .env if present
	return Parse()
}

func Parse() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("environment: %w", err)
	}
	return e, nil
}

func (e Env) Logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(e.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LECTURECUT_LOG_LEVEL: %w", err)
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}
