// Package relationships implements the follow state machine and the
// block, mute and note toggles layered on the relationship store.
package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysand-org/lysand/federation"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced actor does not exist.
	ErrNotFound = errors.New("actor not found")

	// ErrInvalidTransition is returned when an operation does not apply to
	// the current follow state, for example accepting a follow that is not pending.
	ErrInvalidTransition = errors.New("invalid follow transition")

	// ErrDeliveryFailed is returned when a follow request could not be
	// delivered to a remote instance. The local follow has been rolled back.
	ErrDeliveryFailed = errors.New("federation delivery failed")

	// ErrSelfRelationship is returned when an actor acts on itself.
	ErrSelfRelationship = models.ErrSelfRelationship
)

// maxAttempts bounds how often an operation is re-evaluated after a
// concurrent writer changed the follow state underneath it.
const maxAttempts = 3

// Deliverer delivers a federation object from a local actor to a remote one.
type Deliverer interface {
	Deliver(ctx context.Context, from, to *models.Actor, obj *federation.Object) error
}

// Notifier records an in app notification for target caused by actor.
type Notifier interface {
	Notify(ctx context.Context, target snowflake.ID, typ models.NotificationType, actor snowflake.ID) error
}

// Service applies relationship changes between actors.
type Service struct {
	actors    *models.Actors
	rels      *models.Relationships
	deliverer Deliverer
	notifier  Notifier
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDeliverer sets the Deliverer used for remote actors.
func WithDeliverer(d Deliverer) Option {
	return func(s *Service) {
		s.deliverer = d
	}
}

// WithNotifier sets the Notifier used for local actors.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New returns a Service backed by db. Unless overridden notifications are
// stored in db and remote delivery is disabled.
func New(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		actors:    models.NewActors(db),
		rels:      models.NewRelationships(db),
		deliverer: disabled{},
		notifier:  models.NewNotifications(db),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type disabled struct{}

func (disabled) Deliver(_ context.Context, _, to *models.Actor, obj *federation.Object) error {
	return fmt.Errorf("deliver %s to %s: federation is disabled", obj.Type, to.URI)
}

// Relationship returns the current relationship from owner to subject, and
// its inverse, creating both if needed.
func (s *Service) Relationship(ctx context.Context, owner, subject snowflake.ID) (*models.Relationship, *models.Relationship, error) {
	if _, _, err := s.pair(ctx, owner, subject); err != nil {
		return nil, nil, err
	}
	return s.rels.Resolve(ctx, owner, subject)
}

// pair loads both actors, failing with ErrNotFound if either is missing.
func (s *Service) pair(ctx context.Context, actorID, targetID snowflake.ID) (*models.Actor, *models.Actor, error) {
	if actorID == targetID {
		return nil, nil, ErrSelfRelationship
	}
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.actor(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (s *Service) actor(ctx context.Context, id snowflake.ID) (*models.Actor, error) {
	actor, err := s.actors.FindByID(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%d: %w", id, ErrNotFound)
	case err != nil:
		return nil, err
	default:
		return actor, nil
	}
}

// update resolves the pair inside a transaction and calls fn with the
// current forward row. When fn loses a race with a concurrent follow state
// change the pair is resolved again and fn re-evaluated.
func (s *Service) update(ctx context.Context, owner, subject snowflake.ID, fn func(rels *models.Relationships, forward *models.Relationship) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = s.rels.Transaction(ctx, func(rels *models.Relationships) error {
			forward, _, err := rels.Resolve(ctx, owner, subject)
			if err != nil {
				return err
			}
			return fn(rels, forward)
		})
		if !errors.Is(err, models.ErrFollowStateChanged) {
			return err
		}
	}
	return err
}

// setFollowState moves row(owner→subject) between follow states and writes
// the mirror flags onto row(subject→owner). It must be called inside a transaction.
func setFollowState(ctx context.Context, rels *models.Relationships, owner, subject snowflake.ID, from, to models.FollowState) error {
	if err := rels.CompareAndSetFollowState(ctx, owner, subject, from, to); err != nil {
		return err
	}
	following, requested := to.Flags()
	return rels.Update(ctx, subject, owner, map[string]any{
		"followed_by":  following,
		"requested_by": requested,
	})
}

// deliver sends obj and logs, rather than returns, any failure.
func (s *Service) deliver(ctx context.Context, from, to *models.Actor, obj *federation.Object) {
	if err := s.deliverer.Deliver(ctx, from, to, obj); err != nil {
		s.logger.Error("federation delivery failed", "from", from.URI, "to", to.URI, "type", obj.Type, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, target *models.Actor, typ models.NotificationType, actor *models.Actor) {
	if target.IsRemote() {
		return
	}
	if err := s.notifier.Notify(ctx, target.ID, typ, actor.ID); err != nil {
		s.logger.Error("notify", "target", target.ID, "type", typ, "actor", actor.ID, "err", err)
	}
}
