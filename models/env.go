package models

import (
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// Env is the environment shared by the HTTP handlers.
type Env struct {
	// DB is the database connection, or a transaction in tests.
	DB *gorm.DB
	// Logger receives handler errors.
	Logger *slog.Logger
}

func (e *Env) Log() *slog.Logger {
	return e.Logger
}
