package mastodon

import (
	"errors"
	"net/http"

	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/internal/to"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
)

// RelationshipsShow returns the viewer's relationship to each account in the
// id[] parameter, in the order requested. Unknown accounts and the viewer
// themselves are left out.
func RelationshipsShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	var params struct {
		ID  []string `schema:"id"`
		IDs []string `schema:"id[]"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	var subjects []snowflake.ID
	seen := make(map[snowflake.ID]bool)
	for _, s := range append(params.ID, params.IDs...) {
		id, err := snowflake.Parse(s)
		if err != nil || id == user.ActorID || seen[id] {
			continue
		}
		seen[id] = true
		subjects = append(subjects, id)
	}

	rels := models.NewRelationships(env.DB)
	existing, err := rels.FindBySubjects(r.Context(), user.ActorID, subjects)
	if err != nil {
		return err
	}
	forwards := make(map[snowflake.ID]*models.Relationship, len(existing))
	for _, rel := range existing {
		forwards[rel.TargetID] = rel
	}
	inverses, err := rels.FindByOwners(r.Context(), subjects, user.ActorID)
	if err != nil {
		return err
	}
	blockedBy := make(map[snowflake.ID]*models.Relationship, len(inverses))
	for _, rel := range inverses {
		blockedBy[rel.ActorID] = rel
	}

	serialise := Serialiser{req: r}
	resp := make([]*Relationship, 0, len(subjects))
	for _, id := range subjects {
		forward, ok := forwards[id]
		if !ok {
			// first time the viewer has asked about this account
			var inverse *models.Relationship
			forward, inverse, err = env.Relationships.Relationship(r.Context(), user.ActorID, id)
			switch {
			case errors.Is(err, relationships.ErrNotFound):
				continue
			case err != nil:
				return err
			}
			blockedBy[id] = inverse
		}
		resp = append(resp, serialise.Relationship(forward, blockedBy[id]))
	}
	return to.JSON(w, resp)
}
