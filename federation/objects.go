// Package federation builds the Lysand objects exchanged with remote
// instances and delivers them to remote inboxes.
package federation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysand-org/lysand/models"
)

// Object types understood by the relationship engine.
const (
	TypeFollow       = "Follow"
	TypeFollowAccept = "FollowAccept"
	TypeFollowReject = "FollowReject"
	TypeUnfollow     = "Unfollow"
)

// Object is a Lysand follow, follow accept, follow reject, or unfollow.
type Object struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Followee  string    `json:"followee,omitempty"`
	Follower  string    `json:"follower,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	URI       string    `json:"uri,omitempty"`
}

func newObject(typ string, author *models.Actor) *Object {
	id := uuid.New().String()
	return &Object{
		Type:      typ,
		ID:        id,
		Author:    author.URI,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		URI:       fmt.Sprintf("https://%s/follows/%s", author.Domain, id),
	}
}

// NewFollow returns a follow request from follower to followee.
func NewFollow(follower, followee *models.Actor) *Object {
	obj := newObject(TypeFollow, follower)
	obj.Followee = followee.URI
	return obj
}

// NewFollowAccept returns followee's acceptance of follower's request.
func NewFollowAccept(followee, follower *models.Actor) *Object {
	obj := newObject(TypeFollowAccept, followee)
	obj.Follower = follower.URI
	return obj
}

// NewFollowReject returns followee's rejection of follower's request.
func NewFollowReject(followee, follower *models.Actor) *Object {
	obj := NewFollowAccept(followee, follower)
	obj.Type = TypeFollowReject
	return obj
}

// NewUnfollow returns follower's withdrawal of a follow of followee.
// Unfollows are not addressable so they carry no uri.
func NewUnfollow(follower, followee *models.Actor) *Object {
	obj := newObject(TypeUnfollow, follower)
	obj.Followee = followee.URI
	obj.URI = ""
	return obj
}
