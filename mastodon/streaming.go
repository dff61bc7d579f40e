package mastodon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lysand-org/lysand/internal/httpx"
	"github.com/lysand-org/lysand/streaming"
)

func StreamingHealth(env *Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(w, "OK")
	return err
}

// StreamingNotifications streams the viewer's notifications as server sent events.
func StreamingNotifications(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.authenticate(r)
	if err != nil {
		return err
	}
	if env.Streams == nil {
		return httpx.Error(http.StatusNotFound, fmt.Errorf("streaming is not served by this instance"))
	}
	sub := env.Streams.Subscribe(streaming.NotificationsChannel(user.ActorID))
	defer sub.Cancel()
	return stream(r.Context(), w, sub)
}

// stream writes a stream of SSE events to w until ctx is done or sub is cancelled.
func stream(ctx context.Context, w http.ResponseWriter, sub *streaming.Subscription) error {
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	thumpTime := 30 * time.Second
	thump := time.NewTicker(thumpTime)
	defer thump.Stop()

	if _, err := io.WriteString(w, ":)\n\n"); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	for {
		select {
		case <-thump.C:
			if _, err := io.WriteString(w, ":thump\n\n"); err != nil {
				return err
			}
			if err := rc.Flush(); err != nil {
				return err
			}
		case payload, ok := <-sub.C:
			if !ok {
				return fmt.Errorf("subscription cancelled")
			}
			if _, err := io.WriteString(w, "event: "+payload.Event+"\ndata: "); err != nil {
				return err
			}
			if err := json.MarshalFull(w, payload.Data); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
			if err := rc.Flush(); err != nil {
				return err
			}
			thump.Reset(thumpTime)
		case <-ctx.Done():
			return nil
		}
	}
}
