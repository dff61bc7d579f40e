package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lysand-org/lysand/federation"
	"github.com/lysand-org/lysand/internal/webfinger"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
)

type FollowCmd struct {
	Actor   string        `required:"" help:"uri or user@domain of the local actor to follow with"`
	Target  string        `required:"" help:"uri or user@domain of the actor to follow"`
	Timeout time.Duration `help:"delivery timeout" default:"10s"`
}

func (f *FollowCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	actors := models.NewActors(db)
	actor, err := findActor(actors, f.Actor)
	if err != nil {
		return err
	}
	target, err := findActor(actors, f.Target)
	if err != nil {
		return err
	}

	svc := relationships.New(db,
		relationships.WithDeliverer(federation.NewClient(db, federation.WithTimeout(f.Timeout))),
		relationships.WithLogger(ctx.Logger),
	)
	rel, err := svc.RequestFollow(context.Background(), actor.ID, target.ID, relationships.FollowOptions{ShowingReblogs: true})
	if err != nil {
		return err
	}
	state, err := rel.FollowState()
	if err != nil {
		return err
	}
	ctx.Logger.Info("follow", "actor", actor.URI, "target", target.URI, "state", state.String())
	return nil
}

// findActor finds a known actor by URI or by webfinger handle.
func findActor(actors *models.Actors, s string) (*models.Actor, error) {
	if strings.HasPrefix(s, "https://") {
		return actors.FindByURI(context.Background(), s)
	}
	acct, err := webfinger.Parse(s)
	if err != nil {
		return nil, err
	}
	if acct.Host == "" {
		return nil, fmt.Errorf("%q: domain is required", s)
	}
	return actors.Find(context.Background(), acct.User, acct.Host)
}
