package main

import (
	"log/slog"
	"os"

	"github.com/hellomouse/tptmp-server/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.LevelFromString(level), os.Stderr).With("app", "tptmp-server")
	logging.Set(l)
	return l
}
