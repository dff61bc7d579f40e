package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lysand-org/lysand/internal/crypto"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// WithType sets the type of an actor.
func WithType(t ActorType) func(*Actor) {
	return func(a *Actor) {
		a.Type = t
	}
}

// MockActor creates a new actor in the database.
func MockActor(t *testing.T, tx *gorm.DB, name, domain string, opts ...func(*Actor)) *Actor {
	t.Helper()
	require := require.New(t)

	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)

	actor := &Actor{
		ID:          snowflake.Now(),
		URI:         fmt.Sprintf("https://%s/users/%s", domain, name),
		Name:        name,
		Domain:      domain,
		DisplayName: name,
		PublicKey:   kp.PublicKey,
	}
	for _, opt := range opts {
		opt(actor)
	}
	require.NoError(tx.Create(actor).Error)
	return actor
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	// foreign keys are enabled per connection.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=1"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	return db
}

// recordingLogger is a gorm logger which records the errors it is asked to log.
type recordingLogger struct {
	mu   sync.Mutex
	errs []error
}

func (l *recordingLogger) LogMode(logger.LogLevel) logger.Interface { return l }
func (l *recordingLogger) Info(context.Context, string, ...interface{}) {}
func (l *recordingLogger) Warn(context.Context, string, ...interface{}) {}

func (l *recordingLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, errors.New(fmt.Sprintf(msg, args...)))
}

func (l *recordingLogger) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}
