package mastodon

import (
	"net/http"

	"github.com/lysand-org/lysand/internal/to"
	"github.com/lysand-org/lysand/models"
)

// NotificationsIndex lists the follow and follow_request notifications for the viewer.
func NotificationsIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	notifications, err := models.NewNotifications(env.DB).FindByTarget(r.Context(), user.ActorID)
	if err != nil {
		return err
	}
	serialise := Serialiser{req: r}
	resp := make([]*Notification, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, serialise.Notification(n))
	}
	return to.JSON(w, resp)
}
