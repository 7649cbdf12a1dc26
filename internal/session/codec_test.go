package session

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(Config{})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token := codec.Issue(42)
	userID, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	codec := newTestCodec(t)
	token := codec.Issue(42)

	// Flipping any single bit must never validate. Casing changes in
	// base64url flip exactly one bit of the decoded payload or MAC.
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		flipped := flipCase(token[i])
		if flipped == token[i] {
			continue
		}
		mutated := token[:i] + string(flipped) + token[i+1:]

		_, err := codec.Verify(mutated)
		if err == nil {
			t.Fatalf("tampered token at byte %d validated", i)
		}
		if !errors.Is(err, ErrTampered) && !errors.Is(err, ErrMalformed) {
			t.Fatalf("tampered token at byte %d: err = %v, want Tampered or Malformed", i, err)
		}
	}
}

func flipCase(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z':
		return b - 'a' + 'A'
	case b >= 'A' && b <= 'Z':
		return b - 'A' + 'a'
	default:
		return b
	}
}

func TestVerify_MalformedTokens(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"bad payload encoding", "!!!.AAAA"},
		{"bad mac encoding", "AAAA.!!!"},
		{"empty halves", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrTampered) {
				t.Errorf("err = %v, want Malformed or Tampered", err)
			}
		})
	}
}

func TestVerify_SignedGarbagePayload(t *testing.T) {
	// A payload correctly signed by our key but with nonsense content is
	// malformed (not tampered): the signature authenticates garbage.
	codec := newTestCodec(t)

	for _, payload := range []string{"nonsense", "v1:abc:def", "v2:42:100", "v1:-5:100", "v1:42:xyz"} {
		token := base64.RawURLEncoding.EncodeToString([]byte(payload)) +
			"." + base64.RawURLEncoding.EncodeToString(codec.sign(payload))
		_, err := codec.Verify(token)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("payload %q: err = %v, want ErrMalformed", payload, err)
		}
	}
}

func TestVerify_Expired(t *testing.T) {
	codec := newTestCodec(t)
	codec.maxAge = time.Hour

	issued := time.Now()
	codec.now = func() time.Time { return issued }
	token := codec.Issue(7)

	// Still valid right at the boundary.
	codec.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token at max age rejected: %v", err)
	}

	// One second past max age is expired.
	codec.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	_, err := codec.Verify(token)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestVerify_ForeignKey(t *testing.T) {
	a := newTestCodec(t)
	b := newTestCodec(t)

	token := a.Issue(42)
	_, err := b.Verify(token)
	if !errors.Is(err, ErrTampered) {
		t.Fatalf("token signed under another key: err = %v, want ErrTampered", err)
	}
}

func TestNewCodec_KeyValidation(t *testing.T) {
	if _, err := NewCodec(Config{Key: []byte("short")}); err == nil {
		t.Fatal("short key accepted")
	}

	key := make([]byte, KeyLen)
	codec, err := NewCodec(Config{Key: key})
	if err != nil {
		t.Fatalf("NewCodec with explicit key: %v", err)
	}
	if _, err := codec.Verify(codec.Issue(1)); err != nil {
		t.Fatalf("round trip with explicit key: %v", err)
	}
}

func TestCookies(t *testing.T) {
	codec := newTestCodec(t)

	t.Run("set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		codec.SetCookie(rec, 42)

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("got %d cookies, want 1", len(cookies))
		}
		c := cookies[0]
		if c.Name != CookieName {
			t.Errorf("cookie name = %q", c.Name)
		}
		if !c.HttpOnly {
			t.Error("cookie is not HttpOnly")
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Error("cookie is not SameSite=Lax")
		}
		if userID, err := codec.Verify(c.Value); err != nil || userID != 42 {
			t.Errorf("cookie value does not verify: id=%d err=%v", userID, err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		codec.ClearCookie(rec)

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("got %d cookies, want 1", len(cookies))
		}
		if cookies[0].MaxAge >= 0 {
			t.Error("clear cookie is not immediately expired")
		}
		if cookies[0].Name != CookieName || cookies[0].Path != "/" {
			t.Error("clear cookie name/path mismatch")
		}
	})

	t.Run("extract", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := FromRequest(r); !errors.Is(err, http.ErrNoCookie) {
			t.Errorf("err = %v, want http.ErrNoCookie", err)
		}

		r.AddCookie(&http.Cookie{Name: CookieName, Value: codec.Issue(9)})
		token, err := FromRequest(r)
		if err != nil {
			t.Fatalf("FromRequest: %v", err)
		}
		if userID, err := codec.Verify(token); err != nil || userID != 9 {
			t.Errorf("extracted token: id=%d err=%v", userID, err)
		}
	})
}
