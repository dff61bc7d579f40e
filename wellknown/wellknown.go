// Package wellknown serves the /.well-known discovery documents for local actors.
package wellknown

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/internal/webfinger"
	"github.com/lysand-org/lysand/models"
	"gorm.io/gorm"
)

// Routes returns the /.well-known routes served by env.
func Routes(env *models.Env) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/webfinger", httpx.HandlerFunc(func(*http.Request) *models.Env { return env }, WebfingerShow))
		r.Get("/host-meta", HostMetaIndex)
	}
}

func HostMetaIndex(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/xrd+xml")
	io.WriteString(rw, `<?xml version="1.0" encoding="UTF-8"?>
		<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
		<Subject>`+r.Host+`</Subject>
		<Link rel="lrdd" template="https://`+r.Host+`/.well-known/webfinger?resource={uri}"/>
		</XRD>`)
}

// WebfingerShow resolves an acct: resource to a local actor's URI.
func WebfingerShow(env *models.Env, w http.ResponseWriter, r *http.Request) error {
	acct, err := webfinger.Parse(r.URL.Query().Get("resource"))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if acct.Host == "" {
		acct.Host = r.Host
	}

	actor, err := models.NewActors(env.DB).Find(r.Context(), acct.User, acct.Host)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Error(http.StatusNotFound, fmt.Errorf("no such account: %s", acct))
	case err != nil:
		return httpx.Error(http.StatusBadRequest, err)
	case actor.IsRemote():
		return httpx.Error(http.StatusNotFound, fmt.Errorf("%s is not local to this instance", acct))
	}

	w.Header().Set("Content-Type", "application/jrd+json")
	return json.MarshalFull(w, &webfinger.Webfinger{
		Subject: acct.String(),
		Aliases: []string{
			actor.URL(),
			actor.URI,
		},
		Links: []webfinger.Link{{
			Rel:  "http://webfinger.net/rel/profile-page",
			Type: "text/html",
			Href: actor.URL(),
		}, {
			Rel:  "self",
			Type: "application/json",
			Href: actor.URI,
		}},
	})
}
