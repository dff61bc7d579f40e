package models

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lysand-org/lysand/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	// ErrSelfRelationship is returned when an actor and target are the same.
	ErrSelfRelationship = errors.New("cannot relate an actor to itself")

	// ErrRelationshipMissing is returned when an update matched no row.
	ErrRelationshipMissing = errors.New("relationship not found")

	// ErrFollowStateChanged is returned by CompareAndSetFollowState when
	// the row no longer holds the expected follow state.
	ErrFollowStateChanged = errors.New("follow state changed concurrently")

	// ErrInvalidFollowState is returned when a row has both following and requested set.
	ErrInvalidFollowState = errors.New("relationship is both following and requested")
)

// A Relationship is the directed state between an owning actor and a subject.
// The flags ending in By mirror the subject's row about the owner.
type Relationship struct {
	ActorID             snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Actor               *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID            snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Target              *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Following           bool `gorm:"not null;default:false"`
	Requested           bool `gorm:"not null;default:false"`
	ShowingReblogs      bool `gorm:"not null;default:false"`
	Notifying           bool `gorm:"not null;default:false"`
	Languages           Languages
	FollowedBy          bool   `gorm:"not null;default:false"`
	RequestedBy         bool   `gorm:"not null;default:false"`
	Blocking            bool   `gorm:"not null;default:false"`
	Muting              bool   `gorm:"not null;default:false"`
	MutingNotifications bool   `gorm:"not null;default:false"`
	DomainBlocking      bool   `gorm:"not null;default:false"`
	Endorsed            bool   `gorm:"not null;default:false"`
	Note                string `gorm:"type:text"`
}

// Languages is the set of languages a follower wants to see, stored as a JSON array.
type Languages []string

func (Languages) GormDataType() string {
	return "text"
}

func (l Languages) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Languages) Scan(src any) error {
	var b []byte
	switch src := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		b = src
	case string:
		b = []byte(src)
	default:
		return fmt.Errorf("cannot scan %T into Languages", src)
	}
	var langs []string
	if err := json.Unmarshal(b, &langs); err != nil {
		return err
	}
	*l = langs
	return nil
}

// FollowState is the combined value of the following and requested flags.
type FollowState int

const (
	FollowNone FollowState = iota
	FollowPending
	FollowActive
)

func (s FollowState) String() string {
	switch s {
	case FollowNone:
		return "none"
	case FollowPending:
		return "pending"
	case FollowActive:
		return "active"
	default:
		return fmt.Sprintf("FollowState(%d)", int(s))
	}
}

// Flags returns the following and requested columns for s on the owner's row.
func (s FollowState) Flags() (following, requested bool) {
	switch s {
	case FollowActive:
		return true, false
	case FollowPending:
		return false, true
	default:
		return false, false
	}
}

// FollowState returns the follow state recorded by the row.
func (r *Relationship) FollowState() (FollowState, error) {
	switch {
	case r.Following && r.Requested:
		return FollowNone, fmt.Errorf("%d -> %d: %w", r.ActorID, r.TargetID, ErrInvalidFollowState)
	case r.Following:
		return FollowActive, nil
	case r.Requested:
		return FollowPending, nil
	default:
		return FollowNone, nil
	}
}

// A Request is the bookkeeping shared by background requests.
type Request struct {
	ID uint32 `gorm:"primarykey;"`
	// CreatedAt is the time the request was created.
	CreatedAt time.Time
	// UpdatedAt is the time the request was last updated.
	UpdatedAt time.Time
	// Attempts is the number of times the request has been attempted.
	Attempts uint32 `gorm:"not null;default:0"`
	// LastAttempt is the time the request was last attempted.
	LastAttempt time.Time
	// LastResult is the result of the last attempt if it failed.
	LastResult string `gorm:"size:255;not null;default:''"`
}

// A RelationshipRequest records a relationship change that must be delivered
// to a remote instance. RelationshipRequests are processed in the background.
type RelationshipRequest struct {
	Request

	// ActorID is the ID of the actor that is requesting the relationship change.
	ActorID snowflake.ID `gorm:"uniqueIndex:uidx_relationship_requests_actor_id_target_id;not null;"`
	// Actor is the actor that is requesting the relationship change.
	Actor    *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID snowflake.ID `gorm:"uniqueIndex:uidx_relationship_requests_actor_id_target_id;not null;"`
	// Target is the remote actor that is being unfollowed.
	Target *Actor `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	// Action is the action to deliver.
	Action RelationshipRequestAction `gorm:"not null"`
}

type RelationshipRequestAction string

const (
	ActionUnfollow RelationshipRequestAction = "unfollow"
)

func (RelationshipRequestAction) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "enum('unfollow')"
	default:
		return "TEXT"
	}
}

// Relationships is the relationship store.
type Relationships struct {
	db *gorm.DB
}

func NewRelationships(db *gorm.DB) *Relationships {
	return &Relationships{
		db: db,
	}
}

// Transaction runs fn against a store bound to a single database transaction.
func (r *Relationships) Transaction(ctx context.Context, fn func(*Relationships) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRelationships(tx))
	})
}

// Find returns the relationship from owner to subject.
// It returns gorm.ErrRecordNotFound if no row exists.
func (r *Relationships) Find(ctx context.Context, owner, subject snowflake.ID) (*Relationship, error) {
	var rel Relationship
	res := r.db.WithContext(ctx).Where("actor_id = ? AND target_id = ?", owner, subject).Limit(1).Find(&rel)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// a missing row is expected when resolving lazily, don't log it.
		return nil, gorm.ErrRecordNotFound
	}
	return &rel, nil
}

// FindBySubjects returns the relationships from owner to each of subjects that
// exist, in the order the subjects were given.
func (r *Relationships) FindBySubjects(ctx context.Context, owner snowflake.ID, subjects []snowflake.ID) ([]*Relationship, error) {
	if len(subjects) == 0 {
		return nil, nil
	}
	var rels []*Relationship
	if err := r.db.WithContext(ctx).Where("actor_id = ? AND target_id IN ?", owner, subjects).Find(&rels).Error; err != nil {
		return nil, err
	}
	byTarget := make(map[snowflake.ID]*Relationship, len(rels))
	for _, rel := range rels {
		byTarget[rel.TargetID] = rel
	}
	ordered := make([]*Relationship, 0, len(rels))
	for _, id := range subjects {
		if rel, ok := byTarget[id]; ok {
			ordered = append(ordered, rel)
			delete(byTarget, id)
		}
	}
	return ordered, nil
}

// FindByOwners returns the relationships from each of owners to subject that exist.
func (r *Relationships) FindByOwners(ctx context.Context, owners []snowflake.ID, subject snowflake.ID) ([]*Relationship, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	var rels []*Relationship
	err := r.db.WithContext(ctx).Where("actor_id IN ? AND target_id = ?", owners, subject).Find(&rels).Error
	return rels, err
}

// Create inserts a relationship from owner to subject with every flag false. If the row
// was inserted concurrently the existing row is returned.
func (r *Relationships) Create(ctx context.Context, owner, subject snowflake.ID) (*Relationship, error) {
	if owner == subject {
		return nil, ErrSelfRelationship
	}
	rel := &Relationship{
		ActorID:  owner,
		TargetID: subject,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rel).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.Find(ctx, owner, subject)
}

// Resolve returns the forward relationship from owner to subject, and the
// inverse from subject to owner, creating either if missing.
func (r *Relationships) Resolve(ctx context.Context, owner, subject snowflake.ID) (*Relationship, *Relationship, error) {
	if owner == subject {
		return nil, nil, ErrSelfRelationship
	}
	forward, err := r.findOrCreate(ctx, owner, subject)
	if err != nil {
		return nil, nil, err
	}
	inverse, err := r.findOrCreate(ctx, subject, owner)
	if err != nil {
		return nil, nil, err
	}
	return forward, inverse, nil
}

func (r *Relationships) findOrCreate(ctx context.Context, owner, subject snowflake.ID) (*Relationship, error) {
	rel, err := r.Find(ctx, owner, subject)
	switch {
	case err == nil:
		return rel, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.Create(ctx, owner, subject)
	default:
		return nil, err
	}
}

// Update applies fields to the relationship from owner to subject.
func (r *Relationships) Update(ctx context.Context, owner, subject snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Relationship{}).Where("actor_id = ? AND target_id = ?", owner, subject).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%d -> %d: %w", owner, subject, ErrRelationshipMissing)
	}
	return nil
}

// CompareAndSetFollowState moves the owner's row from one follow state to
// another. ErrFollowStateChanged is returned if the row was not in from.
func (r *Relationships) CompareAndSetFollowState(ctx context.Context, owner, subject snowflake.ID, from, to FollowState) error {
	wasFollowing, wasRequested := from.Flags()
	following, requested := to.Flags()
	res := r.db.WithContext(ctx).Model(&Relationship{}).
		Where("actor_id = ? AND target_id = ? AND following = ? AND requested = ?", owner, subject, wasFollowing, wasRequested).
		Updates(map[string]any{
			"following": following,
			"requested": requested,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%d -> %d: %s: %w", owner, subject, from, ErrFollowStateChanged)
	}
	return nil
}

// Enqueue schedules a relationship request for background delivery.
// A pending request for the same pair is replaced.
func (r *Relationships) Enqueue(ctx context.Context, actorID, targetID snowflake.ID, action RelationshipRequestAction) error {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"action",
			"updated_at",
			"attempts", // resets the attempts counter
		}),
	})
	return tx.Create(&RelationshipRequest{
		ActorID:  actorID,
		TargetID: targetID,
		Action:   action,
	}).Error
}

// Dequeue drops any pending relationship request for the pair.
func (r *Relationships) Dequeue(ctx context.Context, actorID, targetID snowflake.ID) error {
	return r.db.WithContext(ctx).Where("actor_id = ? AND target_id = ?", actorID, targetID).Delete(&RelationshipRequest{}).Error
}

// Blocked returns the relationships where owner is blocking the target.
func (r *Relationships) Blocked(ctx context.Context, owner snowflake.ID, scopes ...func(*gorm.DB) *gorm.DB) ([]*Relationship, error) {
	var rels []*Relationship
	err := r.db.WithContext(ctx).Joins("Target").Scopes(scopes...).Find(&rels, "relationships.actor_id = ? AND relationships.blocking = ?", owner, true).Error
	return rels, err
}

// Muted returns the relationships where owner is muting the target.
func (r *Relationships) Muted(ctx context.Context, owner snowflake.ID, scopes ...func(*gorm.DB) *gorm.DB) ([]*Relationship, error) {
	var rels []*Relationship
	err := r.db.WithContext(ctx).Joins("Target").Scopes(scopes...).Find(&rels, "relationships.actor_id = ? AND relationships.muting = ?", owner, true).Error
	return rels, err
}

// FollowRequests returns the pending follow requests addressed to subject.
// Each row is owned by the requesting actor.
func (r *Relationships) FollowRequests(ctx context.Context, subject snowflake.ID, scopes ...func(*gorm.DB) *gorm.DB) ([]*Relationship, error) {
	var rels []*Relationship
	err := r.db.WithContext(ctx).Joins("Actor").Scopes(scopes...).Find(&rels, "relationships.target_id = ? AND relationships.requested = ?", subject, true).Error
	return rels, err
}
