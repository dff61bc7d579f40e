package main

import (
	"context"

	"github.com/lysand-org/lysand/models"
	"gorm.io/gorm"
)

type DeleteAccountCmd struct {
	Name   string `required:"" help:"name of the account to delete"`
	Domain string `required:"" help:"domain of the account to delete"`
}

func (d *DeleteAccountCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		actor, err := models.NewActors(tx).Find(context.Background(), d.Name, d.Domain)
		if err != nil {
			return err
		}
		// the account, its tokens, relationships and notifications cascade.
		if err := tx.Delete(actor).Error; err != nil {
			return err
		}
		ctx.Logger.Info("deleted account", "acct", actor.Acct(), "id", actor.ID)
		return nil
	})
}
