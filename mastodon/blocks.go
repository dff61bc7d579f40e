package mastodon

import (
	"net/http"

	"github.com/lysand-org/lysand/internal/to"
	"github.com/lysand-org/lysand/models"
)

func BlocksIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	blocked, err := models.NewRelationships(env.DB).Blocked(r.Context(), user.ActorID, models.PaginateRelationship(r, "relationships.target_id"))
	if err != nil {
		return err
	}
	return env.writeTargets(w, r, newestFirst(r, blocked))
}

// writeTargets writes the target accounts of a page of relationships.
func (e *Env) writeTargets(w http.ResponseWriter, r *http.Request, rels []*models.Relationship) error {
	if len(rels) > 0 {
		linkHeader(w, r, rels[0].TargetID, rels[len(rels)-1].TargetID)
	}
	serialise := Serialiser{req: r}
	resp := make([]*Account, 0, len(rels))
	for _, rel := range rels {
		resp = append(resp, serialise.Account(rel.Target))
	}
	return to.JSON(w, resp)
}
