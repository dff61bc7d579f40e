package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysand-org/lysand/federation"
	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
)

// FollowOptions are the follower's preferences recorded with a follow.
type FollowOptions struct {
	// ShowingReblogs shows the followee's reblogs in the follower's home timeline.
	ShowingReblogs bool
	// Notifying notifies the follower when the followee posts.
	Notifying bool
	// Languages limits the followee's posts to these languages. Empty means all.
	Languages []string
}

func (o FollowOptions) fields() map[string]any {
	return map[string]any{
		"showing_reblogs": o.ShowingReblogs,
		"notifying":       o.Notifying,
		"languages":       models.Languages(o.Languages),
	}
}

// RequestFollow starts a follow of target by actor.
//
// Following an unlocked local actor takes effect immediately. Following a
// locked local actor, or any remote actor, leaves the follow pending until
// the target accepts it. A follow of a remote actor is delivered before
// RequestFollow returns; if delivery fails the follow is rolled back and the
// rolled back relationship is returned with an error wrapping ErrDeliveryFailed.
//
// Requesting a follow that is already pending or active only updates the
// follow preferences.
func (s *Service) RequestFollow(ctx context.Context, actorID, targetID snowflake.ID, opts FollowOptions) (*models.Relationship, error) {
	actor, target, err := s.pair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if actor.IsRemote() && target.IsRemote() {
		return nil, fmt.Errorf("follow %s -> %s: neither actor is local: %w", actor.URI, target.URI, ErrInvalidTransition)
	}

	next := models.FollowActive
	if target.IsRemote() || target.Locked {
		next = models.FollowPending
	}

	var transitioned bool
	err = s.update(ctx, actorID, targetID, func(rels *models.Relationships, forward *models.Relationship) error {
		transitioned = false
		state, err := forward.FollowState()
		if err != nil {
			return err
		}
		if err := rels.Update(ctx, actorID, targetID, opts.fields()); err != nil {
			return err
		}
		if state != models.FollowNone {
			return nil
		}
		transitioned = true
		if actor.IsLocal() && target.IsRemote() {
			// an undelivered unfollow from an earlier follow must not chase this one.
			if err := rels.Dequeue(ctx, actorID, targetID); err != nil {
				return err
			}
		}
		return setFollowState(ctx, rels, actorID, targetID, models.FollowNone, next)
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		switch {
		case target.IsRemote():
			obj := federation.NewFollow(actor, target)
			if err := s.deliverer.Deliver(ctx, actor, target, obj); err != nil {
				s.logger.Error("federation delivery failed", "from", actor.URI, "to", target.URI, "type", obj.Type, "err", err)
				if err := s.rollbackFollow(ctx, actorID, targetID); err != nil {
					return nil, err
				}
				rel, ferr := s.rels.Find(ctx, actorID, targetID)
				if ferr != nil {
					return nil, ferr
				}
				return rel, fmt.Errorf("follow %s: %w: %w", target.URI, ErrDeliveryFailed, err)
			}
		case next == models.FollowActive:
			s.notify(ctx, target, models.NotificationFollow, actor)
			if actor.IsRemote() {
				s.deliver(ctx, target, actor, federation.NewFollowAccept(target, actor))
			}
		default:
			s.notify(ctx, target, models.NotificationFollowRequest, actor)
		}
	}
	return s.rels.Find(ctx, actorID, targetID)
}

// rollbackFollow returns a pending follow to none after a failed delivery.
func (s *Service) rollbackFollow(ctx context.Context, actorID, targetID snowflake.ID) error {
	err := s.rels.Transaction(ctx, func(rels *models.Relationships) error {
		return setFollowState(ctx, rels, actorID, targetID, models.FollowPending, models.FollowNone)
	})
	if errors.Is(err, models.ErrFollowStateChanged) {
		// a concurrent unfollow or accept has already moved the row on.
		return nil
	}
	return err
}

// AcceptFollow accepts follower's pending follow of target. It returns the
// target's relationship to the follower. A remote follower is sent a
// FollowAccept; delivery failures are logged and do not affect the local state.
func (s *Service) AcceptFollow(ctx context.Context, targetID, followerID snowflake.ID) (*models.Relationship, error) {
	follower, target, err := s.pair(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	err = s.update(ctx, followerID, targetID, func(rels *models.Relationships, forward *models.Relationship) error {
		state, err := forward.FollowState()
		if err != nil {
			return err
		}
		if state != models.FollowPending {
			return fmt.Errorf("accept %s -> %s: follow is %s: %w", follower.URI, target.URI, state, ErrInvalidTransition)
		}
		return setFollowState(ctx, rels, followerID, targetID, models.FollowPending, models.FollowActive)
	})
	if err != nil {
		return nil, err
	}
	if follower.IsRemote() && target.IsLocal() {
		s.deliver(ctx, target, follower, federation.NewFollowAccept(target, follower))
	}
	return s.rels.Find(ctx, targetID, followerID)
}

// RejectFollow rejects follower's pending follow of target. It returns the
// target's relationship to the follower. A remote follower is sent a
// FollowReject; delivery failures are logged and do not affect the local state.
func (s *Service) RejectFollow(ctx context.Context, targetID, followerID snowflake.ID) (*models.Relationship, error) {
	follower, target, err := s.pair(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	err = s.update(ctx, followerID, targetID, func(rels *models.Relationships, forward *models.Relationship) error {
		state, err := forward.FollowState()
		if err != nil {
			return err
		}
		if state != models.FollowPending {
			return fmt.Errorf("reject %s -> %s: follow is %s: %w", follower.URI, target.URI, state, ErrInvalidTransition)
		}
		return setFollowState(ctx, rels, followerID, targetID, models.FollowPending, models.FollowNone)
	})
	if err != nil {
		return nil, err
	}
	if follower.IsRemote() && target.IsLocal() {
		s.deliver(ctx, target, follower, federation.NewFollowReject(target, follower))
	}
	return s.rels.Find(ctx, targetID, followerID)
}

// Unfollow ends actor's active or pending follow of target. Unfollowing when
// there is no follow is a no op. When a local actor unfollows a remote one an
// Unfollow is queued for background delivery.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID snowflake.ID) (*models.Relationship, error) {
	actor, target, err := s.pair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	err = s.update(ctx, actorID, targetID, func(rels *models.Relationships, forward *models.Relationship) error {
		state, err := forward.FollowState()
		if err != nil {
			return err
		}
		if state == models.FollowNone {
			return nil
		}
		if err := setFollowState(ctx, rels, actorID, targetID, state, models.FollowNone); err != nil {
			return err
		}
		if actor.IsLocal() && target.IsRemote() {
			return rels.Enqueue(ctx, actorID, targetID, models.ActionUnfollow)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.rels.Find(ctx, actorID, targetID)
}

// RemoveFollower ends follower's active follow of actor. It returns actor's
// relationship to the former follower. A remote follower is sent a
// FollowReject; delivery failures are logged.
func (s *Service) RemoveFollower(ctx context.Context, actorID, followerID snowflake.ID) (*models.Relationship, error) {
	follower, actor, err := s.pair(ctx, followerID, actorID)
	if err != nil {
		return nil, err
	}
	var removed bool
	err = s.update(ctx, followerID, actorID, func(rels *models.Relationships, forward *models.Relationship) error {
		removed = false
		state, err := forward.FollowState()
		if err != nil {
			return err
		}
		if state != models.FollowActive {
			return nil
		}
		removed = true
		return setFollowState(ctx, rels, followerID, actorID, models.FollowActive, models.FollowNone)
	})
	if err != nil {
		return nil, err
	}
	if removed && follower.IsRemote() && actor.IsLocal() {
		s.deliver(ctx, actor, follower, federation.NewFollowReject(actor, follower))
	}
	return s.rels.Find(ctx, actorID, followerID)
}
