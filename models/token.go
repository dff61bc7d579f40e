package models

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/lysand-org/lysand/internal/snowflake"
	"gorm.io/gorm"
)

// A Token is a bearer token issued to an Account.
type Token struct {
	AccessToken string `gorm:"size:64;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time
	AccountID   snowflake.ID `gorm:"not null"`
	Account     *Account     `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Scope       string       `gorm:"size:64;not null;default:'read write follow push'"`
}

type Tokens struct {
	db *gorm.DB
}

func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Create issues a new access token for account.
func (t *Tokens) Create(ctx context.Context, account *Account) (*Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	token := &Token{
		AccessToken: hex.EncodeToString(buf),
		AccountID:   account.ID,
		Account:     account,
	}
	return token, t.db.WithContext(ctx).Create(token).Error
}

// FindByAccessToken returns the token, its account, and the account's actor.
func (t *Tokens) FindByAccessToken(ctx context.Context, accessToken string) (*Token, error) {
	var token Token
	if err := t.db.WithContext(ctx).Joins("Account").Preload("Account.Actor").Take(&token, "access_token = ?", accessToken).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
