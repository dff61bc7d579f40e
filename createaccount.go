package main

import (
	"context"

	"github.com/lysand-org/lysand/models"
)

type CreateAccountCmd struct {
	Name     string `required:"" help:"name of the account to create"`
	Domain   string `required:"" help:"domain of the account to create"`
	Email    string `required:"" help:"email address of the account"`
	Password string `required:"" help:"password of the account"`
	Locked   bool   `help:"require follow requests to be approved"`
}

func (c *CreateAccountCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	account, err := models.NewAccounts(db).Create(context.Background(), c.Name, c.Domain, c.Email, c.Password, c.Locked)
	if err != nil {
		return err
	}
	token, err := models.NewTokens(db).Create(context.Background(), account)
	if err != nil {
		return err
	}
	ctx.Logger.Info("created account", "acct", account.Actor.Acct(), "id", account.ActorID, "token", token.AccessToken)
	return nil
}
