// Package share encodes offer selections into URL-safe share tokens and
// renders them as downloadable exports.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// Version is the only payload version this package reads or writes.
const Version = 1

// MaxTokenLength is the longest token Decode accepts.
const MaxTokenLength = 2000

// Payload is the versioned share envelope.
type Payload struct {
	V         int                    `json:"v"`
	CreatedAt time.Time              `json:"createdAt"`
	Offers    []domain.OfferSnapshot `json:"offers"`
}

// Encode wraps offers in a version 1 payload and returns it as unpadded
// base64url JSON.
func Encode(offers []domain.OfferSnapshot, now time.Time) (string, error) {
	if offers == nil {
		offers = []domain.OfferSnapshot{}
	}
	data, err := json.Marshal(Payload{V: Version, CreatedAt: now.UTC(), Offers: offers})
	if err != nil {
		return "", fmt.Errorf("share: marshal payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode. It never panics; failures are
// reported as domain.ErrPayloadTooLarge, domain.ErrInvalidPayload or
// domain.ErrPayloadDecode.
func Decode(token string) (Payload, error) {
	return decode(token, MaxTokenLength)
}

func decode(token string, maxLen int) (Payload, error) {
	if len(token) > maxLen {
		return Payload{}, domain.ErrPayloadTooLarge
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrPayloadDecode, err)
	}

	var envelope struct {
		V      json.RawMessage `json:"v"`
		Offers json.RawMessage `json:"offers"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrPayloadDecode, err)
	}

	var v float64
	if err := json.Unmarshal(envelope.V, &v); err != nil || v != Version {
		return Payload{}, domain.ErrInvalidPayload
	}
	if !bytes.HasPrefix(bytes.TrimSpace(envelope.Offers), []byte("[")) {
		return Payload{}, domain.ErrInvalidPayload
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return p, nil
}

// Decoder applies a configurable token length limit.
type Decoder struct {
	MaxLength int
}

// Decode is Decode with d.MaxLength, falling back to MaxTokenLength.
func (d Decoder) Decode(token string) (Payload, error) {
	maxLen := d.MaxLength
	if maxLen <= 0 {
		maxLen = MaxTokenLength
	}
	return decode(token, maxLen)
}
