package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/lysand-org/lysand/federation"
	"github.com/lysand-org/lysand/models"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// Deliverer delivers a federation object from a local actor to a remote one.
type Deliverer interface {
	Deliver(ctx context.Context, from, to *models.Actor, obj *federation.Object) error
}

// NewRelationshipRequestProcessor returns a worker which delivers queued
// relationship requests every interval until ctx is cancelled.
func NewRelationshipRequestProcessor(db *gorm.DB, deliverer Deliverer, logger *slog.Logger, interval time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger := logger.With("worker", "RelationshipRequestProcessor")
		logger.Info("started")
		defer logger.Info("stopped")

		db := db.WithContext(ctx)
		for {
			if err := ProcessRelationshipRequests(db, deliverer, logger); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
				// continue
			}
		}
	}
}

// ProcessRelationshipRequests makes one pass over the pending relationship requests.
func ProcessRelationshipRequests(db *gorm.DB, deliverer Deliverer, logger *slog.Logger) error {
	return process(db, relationshipRequestScope, func(db *gorm.DB, request *models.RelationshipRequest) error {
		err := processRelationshipRequest(db.Statement.Context, deliverer, request)
		if err != nil {
			logger.Error("relationship request failed", "from", request.Actor.URI, "to", request.Target.URI, "action", request.Action, "attempt", request.Attempts+1, "err", err)
		}
		return err
	})
}

func relationshipRequestScope(db *gorm.DB) *gorm.DB {
	return db.Preload("Actor").Preload("Target").Where("attempts < ?", maxAttempts)
}

func processRelationshipRequest(ctx context.Context, deliverer Deliverer, request *models.RelationshipRequest) error {
	switch request.Action {
	case models.ActionUnfollow:
		return deliverer.Deliver(ctx, request.Actor, request.Target, federation.NewUnfollow(request.Actor, request.Target))
	default:
		return fmt.Errorf("unknown action %q", request.Action)
	}
}
