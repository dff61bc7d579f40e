package mastodon

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/models/modelstest"
	"github.com/lysand-org/lysand/streaming"
	"github.com/stretchr/testify/require"
)

func TestStreamingNotifications(t *testing.T) {
	db := modelstest.DB(t)

	t.Run("notifications are streamed as events", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		account, token := modelstest.Account(t, tx, "alice", "example.com")
		mux := new(streaming.Mux)
		srv := httptest.NewServer(testRouter(tx, func(env *Env) { env.Streams = mux }))
		defer srv.Close()

		req, err := http.NewRequest("GET", srv.URL+"/api/v1/streaming/user/notification", nil)
		require.NoError(err)
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		resp, err := srv.Client().Do(req)
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusOK, resp.StatusCode)
		require.Equal("text/event-stream", resp.Header.Get("Content-Type"))

		body := bufio.NewReader(resp.Body)
		line, err := body.ReadString('\n')
		require.NoError(err)
		require.Equal(":)\n", line)
		_, err = body.ReadString('\n')
		require.NoError(err)

		err = mux.Publish(context.Background(), streaming.NotificationsChannel(account.ActorID), streaming.Payload{
			Event: "notification",
			Data: streaming.Notification{
				Type:      models.NotificationFollow,
				AccountID: "42",
			},
		})
		require.NoError(err)

		line, err = body.ReadString('\n')
		require.NoError(err)
		require.Equal("event: notification\n", line)
		line, err = body.ReadString('\n')
		require.NoError(err)
		require.True(strings.HasPrefix(line, "data: {"), line)
		require.Contains(line, `"type":"follow"`)
		require.Contains(line, `"account_id":"42"`)
	})

	t.Run("not served without an in process broker", func(t *testing.T) {
		tx := db.Begin()
		defer tx.Rollback()

		_, token := modelstest.Account(t, tx, "alice", "example.com")
		rec := do(testRouter(tx), token, "GET", "/api/v1/streaming/user/notification", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
