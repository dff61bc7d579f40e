package mastodon

import (
	"net/http"

	"github.com/lysand-org/lysand/internal/to"
	"github.com/lysand-org/lysand/models"
)

// FollowRequestsIndex lists the accounts with a pending follow request to the viewer.
func FollowRequestsIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	requests, err := models.NewRelationships(env.DB).FollowRequests(r.Context(), user.ActorID, models.PaginateRelationship(r, "relationships.actor_id"))
	if err != nil {
		return err
	}
	requests = newestFirst(r, requests)
	if len(requests) > 0 {
		linkHeader(w, r, requests[0].ActorID, requests[len(requests)-1].ActorID)
	}
	serialise := Serialiser{req: r}
	resp := make([]*Account, 0, len(requests))
	for _, rel := range requests {
		resp = append(resp, serialise.Account(rel.Actor))
	}
	return to.JSON(w, resp)
}

func FollowRequestsAuthorize(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, follower *models.Actor) error {
		_, err := env.Relationships.AcceptFollow(r.Context(), user.ActorID, follower.ID)
		return err
	})
}

func FollowRequestsReject(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.apply(w, r, func(user *models.Account, follower *models.Actor) error {
		_, err := env.Relationships.RejectFollow(r.Context(), user.ActorID, follower.ID)
		return err
	})
}
