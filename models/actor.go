package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lysand-org/lysand/internal/snowflake"
	"golang.org/x/net/idna"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// An Actor is a local or remote account as seen by the relationship engine.
type Actor struct {
	ID             snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	UpdatedAt      time.Time
	Type           ActorType `gorm:"default:'Person';not null"`
	Name           string    `gorm:"size:64;uniqueIndex:idx_actor_name_domain;not null"`
	Domain         string    `gorm:"size:255;uniqueIndex:idx_actor_name_domain;not null"`
	URI            string    `gorm:"size:255;uniqueIndex;not null"`
	DisplayName    string    `gorm:"size:64;not null"`
	Note           string    `gorm:"type:text"`
	Locked         bool      `gorm:"not null;default:false"`
	Avatar         string    `gorm:"size:255;not null;default:''"`
	Header         string    `gorm:"size:255;not null;default:''"`
	InboxURL       string    `gorm:"size:255;not null;default:''"`
	SharedInboxURL string    `gorm:"size:255;not null;default:''"`
	PublicKey      []byte    `gorm:"not null"`
}

type ActorType string

func (ActorType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "enum('Person', 'Application', 'Service', 'Group', 'Organization', 'LocalPerson', 'LocalService')"
	default:
		return "TEXT"
	}
}

// IsLocal indicates whether the actor is local to the instance.
func (a *Actor) IsLocal() bool {
	switch a.Type {
	case "LocalPerson", "LocalService":
		return true
	default:
		return false
	}
}

// IsRemote indicates whether the actor is not local to the instance.
func (a *Actor) IsRemote() bool {
	return !a.IsLocal()
}

func (a *Actor) IsBot() bool {
	return a.Type == "Service" || a.Type == "LocalService" || a.Type == "Application"
}

func (a *Actor) IsGroup() bool {
	return a.Type == "Group"
}

// Inbox returns the actor's inbox URL, or shared inbox URL if applicable.
func (a *Actor) Inbox() string {
	if a.SharedInboxURL != "" {
		return a.SharedInboxURL
	}
	return a.InboxURL
}

// Acct returns the webfinger style account name; local actors omit the domain.
func (a *Actor) Acct() string {
	if a.IsLocal() {
		return a.Name
	}
	return fmt.Sprintf("%s@%s", a.Name, a.Domain)
}

func (a *Actor) PublicKeyID() string {
	return fmt.Sprintf("%s#main-key", a.URI)
}

func (a *Actor) URL() string {
	return fmt.Sprintf("https://%s/@%s", a.Domain, a.Name)
}

// NormaliseDomain returns the lower case ASCII form of an internationalised domain name.
func NormaliseDomain(domain string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	return strings.ToLower(ascii), nil
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// FindByID returns the actor with the given id.
func (a *Actors) FindByID(ctx context.Context, id snowflake.ID) (*Actor, error) {
	var actor Actor
	return &actor, a.db.WithContext(ctx).Take(&actor, id).Error
}

// FindByURI returns an actor by its URI if it exists locally.
func (a *Actors) FindByURI(ctx context.Context, uri string) (*Actor, error) {
	var actor Actor
	return &actor, a.db.WithContext(ctx).Take(&actor, "uri = ?", uri).Error
}

// Find finds an actor by its name and domain.
func (a *Actors) Find(ctx context.Context, name, domain string) (*Actor, error) {
	domain, err := NormaliseDomain(domain)
	if err != nil {
		return nil, err
	}
	var actor Actor
	return &actor, a.db.WithContext(ctx).Take(&actor, "name = ? AND domain = ?", name, domain).Error
}

// FindByDomain returns every known actor on domain.
func (a *Actors) FindByDomain(ctx context.Context, domain string) ([]*Actor, error) {
	domain, err := NormaliseDomain(domain)
	if err != nil {
		return nil, err
	}
	var actors []*Actor
	return actors, a.db.WithContext(ctx).Where("domain = ?", domain).Order("id").Find(&actors).Error
}

// FollowersCount counts the active follows of the actor. Counts are never
// stored, they are computed from the relationships table on demand.
func (a *Actors) FollowersCount(ctx context.Context, actor *Actor) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&Relationship{}).Where("target_id = ? AND following = ?", actor.ID, true).Count(&count).Error
	return count, err
}

// FollowingCount counts the actors the actor is actively following.
func (a *Actors) FollowingCount(ctx context.Context, actor *Actor) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&Relationship{}).Where("actor_id = ? AND following = ?", actor.ID, true).Count(&count).Error
	return count, err
}
