// Package extractor derives the origin's AJAX tokens and pulls playable streams out of embed pages
package extractor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultTokenKey is the shared key the origin's player scripts sign AJAX requests with
const DefaultTokenKey = "37911490979715163134003223491201"

// TokenDeriver computes hex(HMAC-SHA256(key, id + unixSeconds)).
// Tokens are only accepted by the origin for a short time after they are derived.
type TokenDeriver struct {
	key []byte
	now func() time.Time
}

// NewTokenDeriver returns a deriver for key; an empty key selects DefaultTokenKey
func NewTokenDeriver(key string) *TokenDeriver {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenDeriver{key: []byte(key), now: time.Now}
}

// WithClock returns a copy of the deriver that reads the time from now
func (d *TokenDeriver) WithClock(now func() time.Time) *TokenDeriver {
	return &TokenDeriver{key: d.key, now: now}
}

// Derive returns the token for id at the current time
func (d *TokenDeriver) Derive(id string) string {
	return d.DeriveAt(id, d.now())
}

// DeriveAt returns the token for id at t; tokens only change when the unix second does
func (d *TokenDeriver) DeriveAt(id string, t time.Time) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(id + strconv.FormatInt(t.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
