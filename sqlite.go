//go:build sqlite

package main

// sqlite support

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDialector(dsn string) gorm.Dialector {
	return &sqlite.Dialector{
		DSN: dsn,
	}
}

func configureDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// one writer at a time, the compare and set follow transitions rely on it.
	sqlDB.SetMaxOpenConns(1)

	// enable foreign key constraints
	return db.Exec("PRAGMA foreign_keys = ON").Error
}
