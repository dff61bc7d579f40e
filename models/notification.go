package models

import (
	"context"
	"time"

	"github.com/lysand-org/lysand/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// A Notification tells an actor that another actor did something to them.
type Notification struct {
	ID        snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
	// TargetID is the actor being notified.
	TargetID snowflake.ID `gorm:"not null;index"`
	Target   *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	// ActorID is the actor that caused the notification.
	ActorID snowflake.ID     `gorm:"not null"`
	Actor   *Actor           `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Type    NotificationType `gorm:"not null"`
}

type NotificationType string

const (
	NotificationFollow        NotificationType = "follow"
	NotificationFollowRequest NotificationType = "follow_request"
)

func (NotificationType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "enum('follow', 'follow_request')"
	default:
		return "TEXT"
	}
}

type Notifications struct {
	db *gorm.DB
}

func NewNotifications(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

// Notify records a notification of type typ for target, caused by actor.
func (n *Notifications) Notify(ctx context.Context, target snowflake.ID, typ NotificationType, actor snowflake.ID) error {
	return n.db.WithContext(ctx).Create(&Notification{
		ID:       snowflake.Now(),
		TargetID: target,
		ActorID:  actor,
		Type:     typ,
	}).Error
}

// FindByTarget returns the notifications for target, newest first.
func (n *Notifications) FindByTarget(ctx context.Context, target snowflake.ID) ([]*Notification, error) {
	var notifications []*Notification
	err := n.db.WithContext(ctx).Joins("Actor").Where("notifications.target_id = ?", target).Order("notifications.id desc").Find(&notifications).Error
	return notifications, err
}
