package mastodon

import (
	"errors"
	"net/http"

	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/internal/to"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
	"gorm.io/gorm"
)

func AccountsShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	if _, err := env.authenticate(r); err != nil {
		return err
	}
	id, err := accountID(r)
	if err != nil {
		return err
	}
	actors := models.NewActors(env.DB)
	actor, err := actors.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	serialise := Serialiser{req: r}
	account := serialise.Account(actor)
	if account.FollowersCount, err = actors.FollowersCount(r.Context(), actor); err != nil {
		return err
	}
	if account.FollowingCount, err = actors.FollowingCount(r.Context(), actor); err != nil {
		return err
	}
	return to.JSON(w, account)
}

func AccountsFollow(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	target, err := accountID(r)
	if err != nil {
		return err
	}
	var params struct {
		Reblogs   *bool    `schema:"reblogs" json:"reblogs"`
		Notify    bool     `schema:"notify" json:"notify"`
		Languages []string `schema:"languages[]" json:"languages"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	opts := relationships.FollowOptions{
		ShowingReblogs: params.Reblogs == nil || *params.Reblogs,
		Notifying:      params.Notify,
		Languages:      params.Languages,
	}
	if _, err := env.Relationships.RequestFollow(r.Context(), user.ActorID, target, opts); err != nil {
		return relationshipError(err)
	}
	return env.writeRelationship(w, r, user, target)
}

func AccountsUnfollow(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.Unfollow(r.Context(), user.ActorID, target.ID)
		return err
	})
}

func AccountsRemoveFromFollowers(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.RemoveFollower(r.Context(), user.ActorID, target.ID)
		return err
	})
}

func AccountsBlock(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		if _, err := env.Relationships.SetBlocking(r.Context(), user.ActorID, target.ID, true); err != nil {
			return err
		}
		if !env.UnfollowOnBlock {
			return nil
		}
		if _, err := env.Relationships.Unfollow(r.Context(), user.ActorID, target.ID); err != nil {
			return err
		}
		_, err := env.Relationships.RemoveFollower(r.Context(), user.ActorID, target.ID)
		return err
	})
}

func AccountsUnblock(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.SetBlocking(r.Context(), user.ActorID, target.ID, false)
		return err
	})
}

// AccountsMute mutes the target. Mutes do not expire; a duration parameter
// is accepted and ignored.
func AccountsMute(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Notifications *bool `schema:"notifications" json:"notifications"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		notifications := params.Notifications == nil || *params.Notifications
		_, err := env.Relationships.SetMuting(r.Context(), user.ActorID, target.ID, true, notifications)
		return err
	})
}

func AccountsUnmute(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.SetMuting(r.Context(), user.ActorID, target.ID, false, false)
		return err
	})
}

func AccountsNote(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Comment string `schema:"comment" json:"comment"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.SetNote(r.Context(), user.ActorID, target.ID, params.Comment)
		return err
	})
}

func AccountsPin(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.SetEndorsed(r.Context(), user.ActorID, target.ID, true)
		return err
	})
}

func AccountsUnpin(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, target *models.Actor) error {
		_, err := env.Relationships.SetEndorsed(r.Context(), user.ActorID, target.ID, false)
		return err
	})
}

// apply authenticates the request, looks up the {id} account and runs fn
// against it, then writes the resulting relationship.
func (e *Env) apply(w http.ResponseWriter, r *http.Request, fn func(user *models.Account, target *models.Actor) error) error {
	user, err := e.authenticate(r)
	if err != nil {
		return err
	}
	id, err := accountID(r)
	if err != nil {
		return err
	}
	target, err := models.NewActors(e.DB).FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	if err := fn(user, target); err != nil {
		return relationshipError(err)
	}
	return e.writeRelationship(w, r, user, target.ID)
}

func (e *Env) writeRelationship(w http.ResponseWriter, r *http.Request, user *models.Account, target snowflake.ID) error {
	forward, inverse, err := e.Relationships.Relationship(r.Context(), user.ActorID, target)
	if err != nil {
		return relationshipError(err)
	}
	serialise := Serialiser{req: r}
	return to.JSON(w, serialise.Relationship(forward, inverse))
}
