// Package httpsig signs and verifies HTTP requests using the
// draft-cavage-http-signatures scheme spoken by fediverse servers.
package httpsig

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-fed/httpsig"
)

// dateFormat is http.TimeFormat; the Date header must be in GMT, not UTC.
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Sign signs the request using the given keyID and privateKey.
// POST requests sign a SHA-256 digest of body.
func Sign(req *http.Request, keyID string, privateKey crypto.PrivateKey, body []byte) error {
	req.Header.Set("Date", time.Now().UTC().Format(dateFormat))
	req.Header.Set("Host", req.URL.Host)

	headers := []string{httpsig.RequestTarget, "host", "date"}
	switch req.Method {
	case http.MethodPost:
		headers = append(headers, "digest")
	default:
		if req.Header.Get("Accept") != "" {
			headers = append(headers, "accept")
		}
		body = nil
	}

	signer, _, err := httpsig.NewSigner([]httpsig.Algorithm{httpsig.RSA_SHA256}, httpsig.DigestSha256, headers, httpsig.Signature, 60)
	if err != nil {
		return err
	}
	return signer.SignRequest(privateKey, keyID, req, body)
}

// Verify verifies the Signature header of the request. keyFn resolves the
// signer's public key from the keyId parameter. The keyId is returned so
// callers can attribute the request to an actor.
func Verify(req *http.Request, keyFn func(keyID string) (crypto.PublicKey, error)) (string, error) {
	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return "", err
	}
	keyID := verifier.KeyId()
	pubKey, err := keyFn(keyID)
	if err != nil {
		return keyID, err
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return keyID, fmt.Errorf("verify signature for %q: %w", keyID, err)
	}
	return keyID, nil
}

// VerifyDigest checks the Digest header of the request against body.
func VerifyDigest(req *http.Request, body []byte) error {
	header := req.Header.Get("Digest")
	if header == "" {
		return errors.New("Digest header is missing")
	}
	sum := sha256.Sum256(body)
	if want := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:]); header != want {
		return fmt.Errorf("digest mismatch: got %q, want %q", header, want)
	}
	return nil
}
