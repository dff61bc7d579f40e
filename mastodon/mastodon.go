// Package mastodon implements the relationship endpoints of the Mastodon API.
package mastodon

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
	"github.com/lysand-org/lysand/streaming"
	"gorm.io/gorm"
)

type Env struct {
	*models.Env

	// Relationships applies follow, block and mute changes.
	Relationships *relationships.Service

	// Streams serves the streaming API. It is nil when notifications are
	// published to Redis, which this process does not subscribe to.
	Streams *streaming.Mux

	// UnfollowOnBlock ends follows in both directions when an account is blocked.
	UnfollowOnBlock bool
}

// Routes returns the /api routes served by env.
func Routes(env *Env) func(chi.Router) {
	h := func(fn func(*Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(func(*http.Request) *Env { return env }, fn)
	}
	return func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/accounts/relationships", h(RelationshipsShow))
			r.Get("/accounts/{id}", h(AccountsShow))
			r.Post("/accounts/{id}/follow", h(AccountsFollow))
			r.Post("/accounts/{id}/unfollow", h(AccountsUnfollow))
			r.Post("/accounts/{id}/remove_from_followers", h(AccountsRemoveFromFollowers))
			r.Post("/accounts/{id}/block", h(AccountsBlock))
			r.Post("/accounts/{id}/unblock", h(AccountsUnblock))
			r.Post("/accounts/{id}/mute", h(AccountsMute))
			r.Post("/accounts/{id}/unmute", h(AccountsUnmute))
			r.Post("/accounts/{id}/note", h(AccountsNote))
			r.Post("/accounts/{id}/pin", h(AccountsPin))
			r.Post("/accounts/{id}/unpin", h(AccountsUnpin))

			r.Get("/blocks", h(BlocksIndex))
			r.Get("/mutes", h(MutesIndex))

			r.Post("/domain_blocks", h(DomainBlocksCreate))
			r.Delete("/domain_blocks", h(DomainBlocksDestroy))

			r.Get("/notifications", h(NotificationsIndex))
			r.Get("/streaming/health", h(StreamingHealth))
			r.Get("/streaming/user/notification", h(StreamingNotifications))

			r.Get("/follow_requests", h(FollowRequestsIndex))
			r.Post("/follow_requests/{id}/authorize", h(FollowRequestsAuthorize))
			r.Post("/follow_requests/{id}/reject", h(FollowRequestsReject))
		})
	}
}

// authenticate authenticates the bearer token attached to the request and, if
// successful, returns the account associated with the token.
func (e *Env) authenticate(r *http.Request) (*models.Account, error) {
	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || bearer == "" {
		return nil, httpx.Error(http.StatusUnauthorized, errors.New("missing bearer token"))
	}
	token, err := models.NewTokens(e.DB).FindByAccessToken(r.Context(), bearer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.Error(http.StatusUnauthorized, errors.New("invalid bearer token"))
		}
		return nil, err
	}
	return token.Account, nil
}

// accountID returns the {id} URL parameter.
func accountID(r *http.Request) (snowflake.ID, error) {
	id, err := snowflake.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return 0, httpx.Error(http.StatusNotFound, fmt.Errorf("invalid account id: %w", err))
	}
	return id, nil
}

// relationshipError maps relationship errors to HTTP status codes.
func relationshipError(err error) error {
	switch {
	case errors.Is(err, relationships.ErrNotFound):
		return httpx.Error(http.StatusNotFound, err)
	case errors.Is(err, relationships.ErrInvalidTransition), errors.Is(err, relationships.ErrSelfRelationship):
		return httpx.Error(http.StatusUnprocessableEntity, err)
	case errors.Is(err, relationships.ErrDeliveryFailed):
		return httpx.Error(http.StatusBadGateway, err)
	default:
		return err
	}
}

// linkHeader writes the pagination Link header for a page of results
// running from newest to oldest.
func linkHeader(w http.ResponseWriter, r *http.Request, newest, oldest snowflake.ID) {
	url := fmt.Sprintf("https://%s%s", r.Host, r.URL.Path)
	w.Header().Set("Link", fmt.Sprintf(`<%s?max_id=%d>; rel="next", <%s?min_id=%d>; rel="prev"`, url, oldest, url, newest))
}

// newestFirst reverses a page fetched in ascending order for a min_id query.
func newestFirst[T any](r *http.Request, page []T) []T {
	if r.URL.Query().Get("min_id") == "" {
		return page
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page
}

func stringOrDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}
