package relationships

import (
	"context"

	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
)

// The toggles below write only row(actor→target). The target is never told.

// SetBlocking blocks or unblocks target for actor. Blocking does not end
// follows in either direction.
func (s *Service) SetBlocking(ctx context.Context, actorID, targetID snowflake.ID, blocking bool) (*models.Relationship, error) {
	return s.set(ctx, actorID, targetID, map[string]any{
		"blocking": blocking,
	})
}

// SetMuting mutes or unmutes target for actor. notifications also mutes
// notifications from target; unmuting always clears it.
func (s *Service) SetMuting(ctx context.Context, actorID, targetID snowflake.ID, muting, notifications bool) (*models.Relationship, error) {
	return s.set(ctx, actorID, targetID, map[string]any{
		"muting":               muting,
		"muting_notifications": muting && notifications,
	})
}

// SetDomainBlocking records whether actor blocks target's domain.
func (s *Service) SetDomainBlocking(ctx context.Context, actorID, targetID snowflake.ID, blocking bool) (*models.Relationship, error) {
	return s.set(ctx, actorID, targetID, map[string]any{
		"domain_blocking": blocking,
	})
}

// SetNote sets actor's private note about target.
func (s *Service) SetNote(ctx context.Context, actorID, targetID snowflake.ID, note string) (*models.Relationship, error) {
	return s.set(ctx, actorID, targetID, map[string]any{
		"note": note,
	})
}

// SetEndorsed features or unfeatures target on actor's profile.
func (s *Service) SetEndorsed(ctx context.Context, actorID, targetID snowflake.ID, endorsed bool) (*models.Relationship, error) {
	return s.set(ctx, actorID, targetID, map[string]any{
		"endorsed": endorsed,
	})
}

// SetDomainBlock applies SetDomainBlocking from actor to every known actor on domain.
func (s *Service) SetDomainBlock(ctx context.Context, actorID snowflake.ID, domain string, blocking bool) error {
	if _, err := s.actor(ctx, actorID); err != nil {
		return err
	}
	targets, err := s.actors.FindByDomain(ctx, domain)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if target.ID == actorID {
			continue
		}
		if _, err := s.SetDomainBlocking(ctx, actorID, target.ID, blocking); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) set(ctx context.Context, actorID, targetID snowflake.ID, fields map[string]any) (*models.Relationship, error) {
	if _, _, err := s.pair(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	var rel *models.Relationship
	err := s.rels.Transaction(ctx, func(rels *models.Relationships) error {
		if _, _, err := rels.Resolve(ctx, actorID, targetID); err != nil {
			return err
		}
		if err := rels.Update(ctx, actorID, targetID, fields); err != nil {
			return err
		}
		var err error
		rel, err = rels.Find(ctx, actorID, targetID)
		return err
	})
	return rel, err
}
