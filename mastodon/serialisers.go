package mastodon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
)

// serialisers for various mastodon API responses.

type Account struct {
	ID             snowflake.ID     `json:"id,string"`
	Username       string           `json:"username"`
	Acct           string           `json:"acct"`
	DisplayName    string           `json:"display_name"`
	Locked         bool             `json:"locked"`
	Bot            bool             `json:"bot"`
	Group          bool             `json:"group"`
	CreatedAt      string           `json:"created_at"`
	Note           string           `json:"note"`
	URL            string           `json:"url"`
	Avatar         string           `json:"avatar"`        // these four fields _cannot_ be blank
	AvatarStatic   string           `json:"avatar_static"` // if they are, various clients will consider the
	Header         string           `json:"header"`        // account to be invalid and ignore it or just go weird :grr:
	HeaderStatic   string           `json:"header_static"` // so they must be set to a default image.
	FollowersCount int64            `json:"followers_count"`
	FollowingCount int64            `json:"following_count"`
	StatusesCount  int64            `json:"statuses_count"`
	LastStatusAt   *string          `json:"last_status_at"`
	Emojis         []map[string]any `json:"emojis"`
	Fields         []map[string]any `json:"fields"`
}

type Relationship struct {
	ID                  snowflake.ID `json:"id,string"`
	Following           bool         `json:"following"`
	ShowingReblogs      bool         `json:"showing_reblogs"`
	Notifying           bool         `json:"notifying"`
	FollowedBy          bool         `json:"followed_by"`
	Blocking            bool         `json:"blocking"`
	BlockedBy           bool         `json:"blocked_by"`
	Muting              bool         `json:"muting"`
	MutingNotifications bool         `json:"muting_notifications"`
	Requested           bool         `json:"requested"`
	RequestedBy         bool         `json:"requested_by"`
	DomainBlocking      bool         `json:"domain_blocking"`
	Endorsed            bool         `json:"endorsed"`
	Note                string       `json:"note"`
}

type Notification struct {
	ID        snowflake.ID `json:"id,string"`
	Type      string       `json:"type"`
	CreatedAt string       `json:"created_at"`
	Account   *Account     `json:"account"`
}

type Serialiser struct {
	req *http.Request
}

func (s *Serialiser) Account(a *models.Actor) *Account {
	return &Account{
		ID:           a.ID,
		Username:     a.Name,
		Acct:         a.Acct(),
		DisplayName:  a.DisplayName,
		Locked:       a.Locked,
		Bot:          a.IsBot(),
		Group:        a.IsGroup(),
		CreatedAt:    a.ID.ToTime().Round(time.Hour).Format("2006-01-02T00:00:00.000Z"),
		Note:         a.Note,
		URL:          a.URL(),
		Avatar:       stringOrDefault(a.Avatar, s.defaultImage("avatar")),
		AvatarStatic: stringOrDefault(a.Avatar, s.defaultImage("avatar")),
		Header:       stringOrDefault(a.Header, s.defaultImage("header")),
		HeaderStatic: stringOrDefault(a.Header, s.defaultImage("header")),
		Emojis:       []map[string]any{},
		Fields:       []map[string]any{},
	}
}

func (s *Serialiser) defaultImage(kind string) string {
	return fmt.Sprintf("https://%s/%s.png", s.req.Host, kind)
}

// Relationship projects forward, the viewer's row about the subject, into
// the API shape. blocked_by comes from inverse, the subject's row about the
// viewer, which may be nil.
func (s *Serialiser) Relationship(forward, inverse *models.Relationship) *Relationship {
	return &Relationship{
		ID:                  forward.TargetID,
		Following:           forward.Following,
		ShowingReblogs:      forward.ShowingReblogs,
		Notifying:           forward.Notifying,
		FollowedBy:          forward.FollowedBy,
		Blocking:            forward.Blocking,
		BlockedBy:           inverse != nil && inverse.Blocking,
		Muting:              forward.Muting,
		MutingNotifications: forward.MutingNotifications,
		Requested:           forward.Requested,
		RequestedBy:         forward.RequestedBy,
		DomainBlocking:      forward.DomainBlocking,
		Endorsed:            forward.Endorsed,
		Note:                forward.Note,
	}
}

func (s *Serialiser) Notification(n *models.Notification) *Notification {
	return &Notification{
		ID:        n.ID,
		Type:      string(n.Type),
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Account:   s.Account(n.Actor),
	}
}
