package mastodon

import (
	"net/http"

	"github.com/lysand-org/lysand/models"
)

func MutesIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	muted, err := models.NewRelationships(env.DB).Muted(r.Context(), user.ActorID, models.PaginateRelationship(r, "relationships.target_id"))
	if err != nil {
		return err
	}
	return env.writeTargets(w, r, newestFirst(r, muted))
}
