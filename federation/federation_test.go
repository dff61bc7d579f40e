package federation

import (
	"context"
	"crypto"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	keys "github.com/lysand-org/lysand/internal/crypto"
	"github.com/lysand-org/lysand/internal/httpsig"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/models/modelstest"
	"github.com/stretchr/testify/require"
)

func TestObjects(t *testing.T) {
	alice := &models.Actor{URI: "https://example.com/users/alice", Domain: "example.com"}
	bob := &models.Actor{URI: "https://example.org/users/bob", Domain: "example.org"}

	t.Run("Follow", func(t *testing.T) {
		require := require.New(t)
		obj := NewFollow(alice, bob)
		require.Equal(TypeFollow, obj.Type)
		require.Equal(alice.URI, obj.Author)
		require.Equal(bob.URI, obj.Followee)
		require.Empty(obj.Follower)
		require.Equal("https://example.com/follows/"+obj.ID, obj.URI)
		require.False(obj.CreatedAt.IsZero())
	})

	t.Run("FollowAccept", func(t *testing.T) {
		require := require.New(t)
		obj := NewFollowAccept(bob, alice)
		require.Equal(TypeFollowAccept, obj.Type)
		require.Equal(bob.URI, obj.Author)
		require.Equal(alice.URI, obj.Follower)
		require.Equal("https://example.org/follows/"+obj.ID, obj.URI)
	})

	t.Run("FollowReject", func(t *testing.T) {
		require := require.New(t)
		obj := NewFollowReject(bob, alice)
		require.Equal(TypeFollowReject, obj.Type)
		require.Equal(bob.URI, obj.Author)
		require.Equal(alice.URI, obj.Follower)
	})

	t.Run("Unfollow", func(t *testing.T) {
		require := require.New(t)
		obj := NewUnfollow(alice, bob)
		require.Equal(TypeUnfollow, obj.Type)
		require.Equal(bob.URI, obj.Followee)
		require.Empty(obj.URI)

		b, err := json.Marshal(obj)
		require.NoError(err)
		require.NotContains(string(b), `"uri"`)
		require.NotContains(string(b), `"follower"`)
	})

	t.Run("ids are unique", func(t *testing.T) {
		require.NotEqual(t, NewFollow(alice, bob).ID, NewFollow(alice, bob).ID)
	})
}

func TestClientDeliver(t *testing.T) {
	db := modelstest.DB(t)
	ctx := context.Background()

	account, _ := modelstest.Account(t, db, "alice", "example.com")
	alice := account.Actor

	t.Run("signed delivery", func(t *testing.T) {
		require := require.New(t)

		var got Object
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(err)
			require.NoError(httpsig.VerifyDigest(r, body))
			keyID, err := httpsig.Verify(r, func(keyID string) (crypto.PublicKey, error) {
				return keys.ParseRSAPublicKey(alice.PublicKey)
			})
			require.NoError(err)
			require.Equal(alice.PublicKeyID(), keyID)
			require.Equal("application/json", r.Header.Get("Content-Type"))
			require.NoError(json.Unmarshal(body, &got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		bob := modelstest.Actor(t, db, "bob", "example.org", modelstest.WithInbox(srv.URL+"/users/bob/inbox"))
		obj := NewFollow(alice, bob)
		require.NoError(NewClient(db).Deliver(ctx, alice, bob, obj))
		require.Equal(obj.ID, got.ID)
		require.Equal(alice.URI, got.Author)
		require.Equal(bob.URI, got.Followee)
	})

	t.Run("non 2xx is a failure", func(t *testing.T) {
		require := require.New(t)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		carol := modelstest.Actor(t, db, "carol", "example.org", modelstest.WithInbox(srv.URL+"/inbox"))
		err := NewClient(db).Deliver(ctx, alice, carol, NewFollow(alice, carol))
		require.Error(err)
	})

	t.Run("timeout is a failure", func(t *testing.T) {
		require := require.New(t)

		done := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()
		defer close(done)

		dave := modelstest.Actor(t, db, "dave", "example.org", modelstest.WithInbox(srv.URL+"/inbox"))
		err := NewClient(db, WithTimeout(50*time.Millisecond)).Deliver(ctx, alice, dave, NewFollow(alice, dave))
		require.Error(err)
		require.True(strings.Contains(err.Error(), "timed out"))
	})

	t.Run("remote senders cannot deliver", func(t *testing.T) {
		require := require.New(t)

		erin := modelstest.Actor(t, db, "erin", "example.net")
		err := NewClient(db).Deliver(ctx, erin, alice, NewFollow(erin, alice))
		require.Error(err)
	})
}
