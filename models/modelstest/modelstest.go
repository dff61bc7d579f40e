// Package modelstest provides database fixtures for tests of packages built on models.
package modelstest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"testing"

	"github.com/lysand-org/lysand/internal/crypto"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB returns an in memory database private to t with all tables migrated.
// The pool holds a single connection so concurrent callers are serialised.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", url.PathEscape(t.Name()))
	dbLogger := logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         dbLogger,
	})
	require.NoError(err)

	sqlDB, err := db.DB()
	require.NoError(err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(db.AutoMigrate(models.AllTables()...))
	return db
}

// Local marks the actor as belonging to this instance.
func Local() func(*models.Actor) {
	return func(a *models.Actor) {
		a.Type = "LocalPerson"
	}
}

// Locked marks the actor as requiring approval of follow requests.
func Locked() func(*models.Actor) {
	return func(a *models.Actor) {
		a.Locked = true
	}
}

// WithPublicKey replaces the actor's generated public key.
func WithPublicKey(pem []byte) func(*models.Actor) {
	return func(a *models.Actor) {
		a.PublicKey = pem
	}
}

// WithInbox sets the inbox the actor receives deliveries on.
func WithInbox(inbox string) func(*models.Actor) {
	return func(a *models.Actor) {
		a.InboxURL = inbox
	}
}

// Actor creates a new actor in the database. Actors are remote unless Local is passed.
func Actor(t *testing.T, tx *gorm.DB, name, domain string, opts ...func(*models.Actor)) *models.Actor {
	t.Helper()
	require := require.New(t)

	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)

	uri := fmt.Sprintf("https://%s/users/%s", domain, name)
	actor := &models.Actor{
		ID:          snowflake.Now(),
		Type:        "Person",
		URI:         uri,
		Name:        name,
		Domain:      domain,
		DisplayName: name,
		InboxURL:    uri + "/inbox",
		PublicKey:   kp.PublicKey,
	}
	for _, opt := range opts {
		opt(actor)
	}
	require.NoError(tx.Create(actor).Error)
	return actor
}

// Account creates a local actor and its account, with an access token.
func Account(t *testing.T, tx *gorm.DB, name, domain string, opts ...func(*models.Actor)) (*models.Account, *models.Token) {
	t.Helper()
	require := require.New(t)

	account, err := models.NewAccounts(tx).Create(context.Background(), name, domain, name+"@"+domain, "password", false)
	require.NoError(err)
	if len(opts) > 0 {
		for _, opt := range opts {
			opt(account.Actor)
		}
		require.NoError(tx.Save(account.Actor).Error)
	}
	token, err := models.NewTokens(tx).Create(context.Background(), account)
	require.NoError(err)
	return account, token
}
