// Package streaming fans notifications out to subscribers of an account's
// notification channel, either in process or through Redis pub/sub.
package streaming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lysand-org/lysand/internal/snowflake"
	"github.com/lysand-org/lysand/models"
)

// Payload is a single streamed event.
type Payload struct {
	Event string `json:"event"`
	Data  any    `json:"payload"`
}

// Broker publishes payloads to named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, p Payload) error
}

// NotificationsChannel returns the channel that notifications for account are published on.
func NotificationsChannel(account snowflake.ID) string {
	return fmt.Sprintf("timeline:%d:notifications", account)
}

// Notifier records notifications.
type Notifier interface {
	Notify(ctx context.Context, target snowflake.ID, typ models.NotificationType, actor snowflake.ID) error
}

// Publisher is a Notifier which records each notification with the wrapped
// Notifier and then publishes it to the target's notification channel.
type Publisher struct {
	Notifier
	Broker Broker
}

// Notification is the payload published for each notification.
type Notification struct {
	Type      models.NotificationType `json:"type"`
	AccountID string                  `json:"account_id"`
	CreatedAt time.Time               `json:"created_at"`
}

func (p *Publisher) Notify(ctx context.Context, target snowflake.ID, typ models.NotificationType, actor snowflake.ID) error {
	if err := p.Notifier.Notify(ctx, target, typ, actor); err != nil {
		return err
	}
	return p.Broker.Publish(ctx, NotificationsChannel(target), Payload{
		Event: "notification",
		Data: Notification{
			Type:      typ,
			AccountID: actor.String(),
			CreatedAt: time.Now().UTC(),
		},
	})
}

// Mux is an in process Broker.
type Mux struct {
	mu            sync.Mutex
	subscriptions map[*Subscription]chan<- Payload
}

// Publish delivers p to every subscriber of channel. Subscribers which are
// not keeping up are unsubscribed.
func (m *Mux) Publish(_ context.Context, channel string, p Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub, ch := range m.subscriptions {
		if sub.channel != channel {
			continue
		}
		select {
		case ch <- p:
		default:
			// too slow, unsubscribe
			m.cancel(sub)
		}
	}
	return nil
}

// Subscribe returns a subscription to channel.
func (m *Mux) Subscribe(channel string) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Payload, 16)
	sub := &Subscription{
		mux:     m,
		channel: channel,
		C:       ch,
	}
	if m.subscriptions == nil {
		m.subscriptions = make(map[*Subscription]chan<- Payload)
	}
	m.subscriptions[sub] = ch
	return sub
}

// cancel must be called with m.mu held.
func (m *Mux) cancel(sub *Subscription) {
	ch, ok := m.subscriptions[sub]
	if ok {
		delete(m.subscriptions, sub)
		close(ch)
	}
}

type Subscription struct {
	mux     *Mux
	channel string
	// The channel to which events are received.
	C <-chan Payload
}

func (s *Subscription) Cancel() {
	s.mux.mu.Lock()
	defer s.mux.mu.Unlock()
	s.mux.cancel(s)
}
