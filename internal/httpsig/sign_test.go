package httpsig

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

const keyID = "https://example.com/users/foo#main-key"

func TestSignRequest(t *testing.T) {
	privatekey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyFn := func(id string) (crypto.PublicKey, error) {
		if id != keyID {
			return nil, errors.New("unknown key")
		}
		return &privatekey.PublicKey, nil
	}

	t.Run("GET", func(t *testing.T) {
		require := require.New(t)
		req, err := http.NewRequest("GET", "https://example.com/users/foo", nil)
		require.NoError(err)
		req.Header.Set("Accept", "application/json")

		require.NoError(Sign(req, keyID, privatekey, nil))
		got, err := Verify(req, keyFn)
		require.NoError(err, "req.Signature: %s", req.Header.Get("Signature"))
		require.Equal(keyID, got)
	})

	t.Run("POST signs the digest of the body", func(t *testing.T) {
		require := require.New(t)
		body := []byte(`{"type":"Follow"}`)
		req, err := http.NewRequest("POST", "https://example.com/users/bar/inbox", bytes.NewReader(body))
		require.NoError(err)

		require.NoError(Sign(req, keyID, privatekey, body))
		_, err = Verify(req, keyFn)
		require.NoError(err)
		require.NoError(VerifyDigest(req, body))
		require.Error(VerifyDigest(req, []byte(`{"type":"Unfollow"}`)))
	})

	t.Run("tampered request fails verification", func(t *testing.T) {
		require := require.New(t)
		req, err := http.NewRequest("GET", "https://example.com/users/foo", nil)
		require.NoError(err)
		require.NoError(Sign(req, keyID, privatekey, nil))

		req.Header.Set("Date", "Mon, 02 Jan 2006 15:04:05 GMT")
		_, err = Verify(req, keyFn)
		require.Error(err)
	})

	t.Run("missing digest", func(t *testing.T) {
		req, err := http.NewRequest("POST", "https://example.com/inbox", nil)
		require.NoError(t, err)
		require.Error(t, VerifyDigest(req, nil))
	})
}
