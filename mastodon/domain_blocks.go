package mastodon

import (
	"errors"
	"net/http"

	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/internal/to"
)

func DomainBlocksCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.domainBlock(w, r, true)
}

func DomainBlocksDestroy(env *Env, w http.ResponseWriter, r *http.Request) error {
	return env.domainBlock(w, r, false)
}

// domainBlock sets domain_blocking on the viewer's row for every known
// account on the requested domain.
func (e *Env) domainBlock(w http.ResponseWriter, r *http.Request, blocking bool) error {
	user, err := e.authenticate(r)
	if err != nil {
		return err
	}
	var params struct {
		Domain string `schema:"domain" json:"domain"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Domain == "" {
		return httpx.Error(http.StatusUnprocessableEntity, errors.New("domain is required"))
	}
	if err := e.Relationships.SetDomainBlock(r.Context(), user.ActorID, params.Domain, blocking); err != nil {
		return httpx.Error(http.StatusUnprocessableEntity, err)
	}
	return to.JSON(w, map[string]any{})
}
