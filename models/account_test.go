package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		require := require.New(t)

		tx := db.Begin()
		defer tx.Rollback()

		account, err := NewAccounts(tx).Create(ctx, "alice", "Example.COM", "alice@example.com", "password", true)
		require.NoError(err)
		require.NotNil(account)
		require.True(account.Actor.IsLocal())
		require.True(account.Actor.Locked)
		require.Equal("example.com", account.Domain())
		require.Equal("https://example.com/users/alice", account.Actor.URI)
		require.Equal("https://example.com/users/alice#main-key", account.PublicKeyID())
		require.True(account.ComparePassword("password"))
		require.False(account.ComparePassword("hunter2"))

		key, err := account.PrivKey()
		require.NoError(err)
		require.NotNil(key)

		found, err := NewAccounts(tx).AccountForActor(ctx, account.Actor)
		require.NoError(err)
		require.Equal(account.ID, found.ID)
		require.Equal("alice", found.Name())
	})

	t.Run("token", func(t *testing.T) {
		require := require.New(t)

		tx := db.Begin()
		defer tx.Rollback()

		account, err := NewAccounts(tx).Create(ctx, "alice", "example.com", "alice@example.com", "password", false)
		require.NoError(err)

		token, err := NewTokens(tx).Create(ctx, account)
		require.NoError(err)
		require.Len(token.AccessToken, 64)

		found, err := NewTokens(tx).FindByAccessToken(ctx, token.AccessToken)
		require.NoError(err)
		require.Equal(account.ID, found.Account.ID)
		require.Equal(account.ActorID, found.Account.Actor.ID)
	})

	t.Run("delete", func(t *testing.T) {
		require := require.New(t)

		tx := db.Begin()
		defer tx.Rollback()

		account, err := NewAccounts(tx).Create(ctx, "alice", "example.com", "alice@example.com", "password", false)
		require.NoError(err)

		err = tx.Delete(account.Actor).Error
		require.NoError(err)

		var count int64
		require.NoError(tx.Model(&Account{}).Where("id = ?", account.ID).Count(&count).Error)
		require.EqualValues(0, count)
	})
}
