package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/go-json-experiment/json"
	"github.com/lysand-org/lysand/internal/httpsig"
	"github.com/lysand-org/lysand/models"
	"gorm.io/gorm"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Client delivers objects to remote inboxes, signing each request with the
// private key of the sending local account.
type Client struct {
	accounts  *models.Accounts
	transport http.RoundTripper
	timeout   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per delivery timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProxy routes deliveries through the HTTP proxy at proxy.
func WithProxy(proxy *url.URL) ClientOption {
	return func(c *Client) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = http.ProxyURL(proxy)
		c.transport = t
	}
}

// WithTransport replaces the underlying transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient returns a Client which looks up signing keys in db.
func NewClient(db *gorm.DB, opts ...ClientOption) *Client {
	c := &Client{
		accounts:  models.NewAccounts(db),
		transport: http.DefaultTransport,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver posts obj to the inbox of to, signed as from. from must be a local
// actor. Network errors, timeouts and non 2xx responses are returned as errors.
func (c *Client) Deliver(ctx context.Context, from, to *models.Actor, obj *Object) error {
	inbox := to.Inbox()
	if inbox == "" {
		return fmt.Errorf("deliver %s to %s: actor has no inbox", obj.Type, to.URI)
	}
	if from.IsRemote() {
		return fmt.Errorf("deliver %s from %s: actor is not local", obj.Type, from.URI)
	}
	account, err := c.accounts.AccountForActor(ctx, from)
	if err != nil {
		return fmt.Errorf("deliver %s from %s: %w", obj.Type, from.URI, err)
	}
	privateKey, err := account.PrivKey()
	if err != nil {
		return err
	}
	keyID := account.PublicKeyID()

	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = requests.URL(inbox).
		BodyBytes(body).
		Header("Content-Type", "application/json").
		Transport(requests.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if err := httpsig.Sign(req, keyID, privateKey, body); err != nil {
				return nil, fmt.Errorf("failed to sign request: %w", err)
			}
			return c.transport.RoundTrip(req)
		})).
		CheckStatus(http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent).
		Fetch(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("deliver %s to %s: timed out after %v: %w", obj.Type, inbox, c.timeout, err)
	}
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", obj.Type, inbox, err)
	}
	return nil
}
