package models

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/lysand-org/lysand/internal/crypto"
	"github.com/lysand-org/lysand/internal/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// An Account is a local user account.
// An Account belongs to an Actor.
type Account struct {
	snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	UpdatedAt         time.Time
	ActorID           snowflake.ID `gorm:"uniqueIndex;not null"`
	Actor             *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:create;"`
	Email             string       `gorm:"size:64;not null"`
	EncryptedPassword []byte       `gorm:"size:60;not null"`
	PrivateKey        []byte       `gorm:"not null"`
}

func (a *Account) Name() string {
	return a.Actor.Name
}

func (a *Account) Domain() string {
	return a.Actor.Domain
}

// PublicKeyID returns the key id used when signing requests on behalf of the account.
func (a *Account) PublicKeyID() string {
	return a.Actor.PublicKeyID()
}

// PrivKey returns the parsed RSA private key of the account.
func (a *Account) PrivKey() (*rsa.PrivateKey, error) {
	return crypto.ParseRSAPrivateKey(a.PrivateKey)
}

// ComparePassword reports whether password matches the account's password.
func (a *Account) ComparePassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.EncryptedPassword, []byte(password)) == nil
}

type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// AccountForActor returns the local account belonging to actor.
func (a *Accounts) AccountForActor(ctx context.Context, actor *Actor) (*Account, error) {
	var account Account
	if err := a.db.WithContext(ctx).Joins("Actor").First(&account, "actor_id = ?", actor.ID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Create creates a new local actor and its account.
func (a *Accounts) Create(ctx context.Context, name, domain, email, password string, locked bool) (*Account, error) {
	domain, err := NormaliseDomain(domain)
	if err != nil {
		return nil, err
	}
	var account Account
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keypair, err := crypto.GenerateRSAKeypair()
		if err != nil {
			return err
		}

		passwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		uri := fmt.Sprintf("https://%s/users/%s", domain, name)
		actor := &Actor{
			ID:          snowflake.Now(),
			Type:        "LocalPerson",
			Name:        name,
			Domain:      domain,
			URI:         uri,
			DisplayName: name,
			Locked:      locked,
			InboxURL:    uri + "/inbox",
			PublicKey:   keypair.PublicKey,
		}
		if err := tx.Create(actor).Error; err != nil {
			return err
		}

		account = Account{
			ID:                snowflake.Now(),
			ActorID:           actor.ID,
			Actor:             actor,
			Email:             email,
			EncryptedPassword: passwd,
			PrivateKey:        keypair.PrivateKey,
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
