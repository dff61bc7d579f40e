package main

import (
	"github.com/lysand-org/lysand/models"
)

type AutoMigrateCmd struct {
}

func (a *AutoMigrateCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	return db.AutoMigrate(models.AllTables()...)
}
