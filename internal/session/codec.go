// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements self-contained signed session tokens carried in
// an HTTP-only cookie. A token encodes the user id and issuance time and is
// authenticated with HMAC-SHA256 under a process-wide signing key.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieName is the session cookie name.
const CookieName = "phs_session"

// KeyLen is the size of the HMAC signing key in bytes.
const KeyLen = 32

// DefaultMaxAge is the default maximum session age.
const DefaultMaxAge = 24 * time.Hour

// Verification errors. All of them collapse to an unauthenticated response
// at the HTTP boundary; the distinction exists for logging and tests.
var (
	ErrMalformed = errors.New("session: malformed token")
	ErrTampered  = errors.New("session: signature mismatch")
	ErrExpired   = errors.New("session: token expired")
)

// Config holds codec construction parameters.
type Config struct {
	// Key is the HMAC signing key. When nil, a fresh random key is
	// generated, which invalidates all outstanding sessions on process
	// restart. Supplying a key from deployment secrets makes sessions
	// survive restarts at the cost of a long-lived secret at rest.
	Key []byte

	// MaxAge is the maximum accepted token age. Zero means DefaultMaxAge.
	MaxAge time.Duration

	// SecureCookies marks issued cookies Secure. Disable only in
	// development over plain HTTP.
	SecureCookies bool
}

// Codec signs and verifies session tokens. The key is set at construction
// and read-only afterwards, so a single Codec is safe for concurrent use.
type Codec struct {
	key    []byte
	maxAge time.Duration
	secure bool

	now func() time.Time // overridable in tests
}

// NewCodec creates a Codec from the given configuration.
func NewCodec(cfg Config) (*Codec, error) {
	key := cfg.Key
	if key == nil {
		key = make([]byte, KeyLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
	}
	if len(key) < KeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", KeyLen, len(key))
	}

	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}

	return &Codec{
		key:    key,
		maxAge: maxAge,
		secure: cfg.SecureCookies,
		now:    time.Now,
	}, nil
}

// tokenVersion prefixes every payload so the format can evolve.
const tokenVersion = "v1"

// Issue produces a signed token for the given user id with the current time
// as issuance time.
func (c *Codec) Issue(userID int64) string {
	payload := fmt.Sprintf("%s:%d:%d", tokenVersion, userID, c.now().Unix())
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) +
		"." + base64.RawURLEncoding.EncodeToString(c.sign(payload))
}

// Verify checks a token's structure, signature and age, returning the
// encoded user id. The signature is verified before any payload field is
// trusted.
func (c *Codec) Verify(token string) (int64, error) {
	payloadPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return 0, ErrMalformed
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return 0, ErrMalformed
	}
	mac, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return 0, ErrMalformed
	}

	payload := string(payloadBytes)
	if !hmac.Equal(mac, c.sign(payload)) {
		return 0, ErrTampered
	}

	// Signature is valid as of here; the payload is ours.
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] != tokenVersion {
		return 0, ErrMalformed
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrMalformed
	}
	issuedAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, ErrMalformed
	}

	if c.now().Sub(time.Unix(issuedAt, 0)) > c.maxAge {
		return 0, ErrExpired
	}

	return userID, nil
}

func (c *Codec) sign(payload string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// SetCookie attaches a session cookie for the given user to the response.
func (c *Codec) SetCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    c.Issue(userID),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie with the same name and path.
func (c *Codec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts the raw session token from the request cookie.
// Returns http.ErrNoCookie when no session cookie is present.
func FromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
