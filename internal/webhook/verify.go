package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Required headers on every inbound webhook delivery
const (
	HeaderEventID   = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

// Verification errors. Missing headers are a malformed request; a bad
// signature is an authentication failure.
var (
	ErrMissingHeaders   = errors.New("missing webhook headers")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier authenticates inbound webhook payloads against the shared
// signing secret
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewVerifier creates a verifier from the configured signing secret. The
// secret may carry the provider's whsec_ prefix around a base64 key.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook signing secret not configured")
	}
	trimmed := strings.TrimPrefix(secret, "whsec_")
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		// Plain-text secrets are accepted as-is
		key = []byte(trimmed)
	}
	return &Verifier{secret: key, tolerance: 5 * time.Minute}, nil
}

// Verify checks the signature headers against the raw body. It returns the
// transport-level event id on success.
func (v *Verifier) Verify(body []byte, headers http.Header) (string, error) {
	eventID := headers.Get(HeaderEventID)
	timestamp := headers.Get(HeaderTimestamp)
	signature := headers.Get(HeaderSignature)
	if eventID == "" || timestamp == "" || signature == "" {
		return "", ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if skew := time.Since(time.Unix(unix, 0)); skew > v.tolerance || skew < -v.tolerance {
		return "", ErrInvalidSignature
	}

	expected := v.Sign(eventID, timestamp, body)
	for _, candidate := range strings.Fields(signature) {
		// Signatures are versioned "v1,<base64>" entries
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return eventID, nil
		}
	}

	return "", ErrInvalidSignature
}

// Sign computes the base64 HMAC-SHA256 signature over id, timestamp and body
func (v *Verifier) Sign(eventID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(eventID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
