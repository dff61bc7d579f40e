package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActor(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		require := require.New(t)
		a := &Actor{Type: "LocalPerson", Name: "alice", Domain: "example.com", URI: "https://example.com/users/alice"}
		require.True(a.IsLocal())
		require.False(a.IsRemote())
		require.Equal("alice", a.Acct())
		require.Equal("https://example.com/users/alice#main-key", a.PublicKeyID())
	})

	t.Run("remote", func(t *testing.T) {
		require := require.New(t)
		a := &Actor{Type: "Person", Name: "bob", Domain: "example.org", InboxURL: "https://example.org/users/bob/inbox"}
		require.True(a.IsRemote())
		require.Equal("bob@example.org", a.Acct())
		require.Equal("https://example.org/users/bob/inbox", a.Inbox())
		a.SharedInboxURL = "https://example.org/inbox"
		require.Equal("https://example.org/inbox", a.Inbox())
	})
}

func TestNormaliseDomain(t *testing.T) {
	tests := map[string]string{
		"example.com":  "example.com",
		"Example.COM.": "example.com",
		"bücher.de":    "xn--bcher-kva.de",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := NormaliseDomain(in)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestActors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("Find", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := MockActor(t, tx, "alice", "example.com")

		found, err := NewActors(tx).Find(ctx, "alice", "EXAMPLE.com")
		require.NoError(err)
		require.Equal(alice.ID, found.ID)

		found, err = NewActors(tx).FindByURI(ctx, alice.URI)
		require.NoError(err)
		require.Equal(alice.ID, found.ID)

		found, err = NewActors(tx).FindByID(ctx, alice.ID)
		require.NoError(err)
		require.Equal(alice.URI, found.URI)
	})

	t.Run("FindByDomain", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		MockActor(t, tx, "alice", "example.com")
		MockActor(t, tx, "bob", "example.org")
		MockActor(t, tx, "carol", "example.org")

		actors, err := NewActors(tx).FindByDomain(ctx, "example.org")
		require.NoError(err)
		require.Len(actors, 2)
	})
}
