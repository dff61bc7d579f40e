// Package inbox receives Lysand relationship objects delivered by remote instances.
package inbox

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/lysand-org/lysand/federation"
	keys "github.com/lysand-org/lysand/internal/crypto"
	"github.com/lysand-org/lysand/internal/httpsig"
	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
	"gorm.io/gorm"
)

// maxBodySize bounds the size of a delivered object.
const maxBodySize = 1 << 20

type Env struct {
	*models.Env
	Relationships *relationships.Service
}

// Routes returns the inbox routes served by env.
func Routes(env *Env) func(chi.Router) {
	h := httpx.HandlerFunc(func(*http.Request) *Env { return env }, Create)
	return func(r chi.Router) {
		r.Post("/inbox", h)
		r.Post("/users/{name}/inbox", h)
	}
}

// Create verifies the signature on a delivered object and applies it to the
// relationship between its author and the local actor it names.
func Create(env *Env, w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	actors := models.NewActors(env.DB)
	if name := chi.URLParam(r, "name"); name != "" {
		recipient, err := actors.Find(ctx, name, hostname(r))
		if err != nil || recipient.IsRemote() {
			return httpx.Error(http.StatusNotFound, fmt.Errorf("no local actor named %q", name))
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if err := httpsig.VerifyDigest(r, body); err != nil {
		return httpx.Error(http.StatusUnauthorized, err)
	}
	keyID, err := httpsig.Verify(r, func(keyID string) (crypto.PublicKey, error) {
		signer, err := actors.FindByURI(ctx, actorURI(keyID))
		if err != nil {
			return nil, fmt.Errorf("unknown signer %q: %w", keyID, err)
		}
		return keys.ParseRSAPublicKey(signer.PublicKey)
	})
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, err)
	}

	var obj federation.Object
	if err := json.Unmarshal(body, &obj); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if obj.Author != actorURI(keyID) {
		return httpx.Error(http.StatusForbidden, fmt.Errorf("%s signed an object authored by %s", keyID, obj.Author))
	}
	author, err := actors.FindByURI(ctx, obj.Author)
	if err != nil {
		return lookupError(obj.Author, err)
	}

	env.Log().Info("inbox", "type", obj.Type, "author", obj.Author, "id", obj.ID)
	switch obj.Type {
	case federation.TypeFollow:
		followee, err := local(ctx, actors, obj.Followee)
		if err != nil {
			return err
		}
		_, err = env.Relationships.RequestFollow(ctx, author.ID, followee.ID, relationships.FollowOptions{ShowingReblogs: true})
		if err != nil {
			return relationshipError(err)
		}
	case federation.TypeFollowAccept:
		follower, err := local(ctx, actors, obj.Follower)
		if err != nil {
			return err
		}
		if _, err := env.Relationships.AcceptFollow(ctx, author.ID, follower.ID); err != nil {
			return relationshipError(err)
		}
	case federation.TypeFollowReject:
		follower, err := local(ctx, actors, obj.Follower)
		if err != nil {
			return err
		}
		if _, err := env.Relationships.RejectFollow(ctx, author.ID, follower.ID); err != nil {
			return relationshipError(err)
		}
	case federation.TypeUnfollow:
		followee, err := local(ctx, actors, obj.Followee)
		if err != nil {
			return err
		}
		if _, err := env.Relationships.Unfollow(ctx, author.ID, followee.ID); err != nil {
			return relationshipError(err)
		}
	default:
		return httpx.Error(http.StatusUnprocessableEntity, fmt.Errorf("unsupported object type %q", obj.Type))
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}

// local returns the local actor identified by uri.
func local(ctx context.Context, actors *models.Actors, uri string) (*models.Actor, error) {
	actor, err := actors.FindByURI(ctx, uri)
	if err != nil {
		return nil, lookupError(uri, err)
	}
	if actor.IsRemote() {
		return nil, httpx.Error(http.StatusUnprocessableEntity, fmt.Errorf("%s is not local to this instance", uri))
	}
	return actor, nil
}

func lookupError(uri string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httpx.Error(http.StatusNotFound, fmt.Errorf("unknown actor %q", uri))
	}
	return err
}

func relationshipError(err error) error {
	switch {
	case errors.Is(err, relationships.ErrNotFound):
		return httpx.Error(http.StatusNotFound, err)
	case errors.Is(err, relationships.ErrInvalidTransition), errors.Is(err, relationships.ErrSelfRelationship):
		return httpx.Error(http.StatusUnprocessableEntity, err)
	default:
		return err
	}
}

// actorURI strips the fragment from a key id.
func actorURI(keyID string) string {
	uri, _, _ := strings.Cut(keyID, "#")
	return uri
}

func hostname(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	return host
}
