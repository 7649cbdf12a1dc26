package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestProtection() *LoginProtection {
	return NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       1000, // effectively unlimited for unit tests
		IPBurst:           1000,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
}

func TestLoginProtection_LockoutAfterMaxAttempts(t *testing.T) {
	lp := newTestProtection()

	for i := 0; i < 2; i++ {
		locked, _ := lp.RecordFailedAttempt("victim")
		if locked {
			t.Fatalf("locked after %d attempts, want lock at 3", i+1)
		}
	}

	locked, duration := lp.RecordFailedAttempt("victim")
	if !locked {
		t.Fatal("not locked after max attempts")
	}
	if duration != time.Minute {
		t.Errorf("lock duration = %v, want 1m", duration)
	}

	isLocked, remaining := lp.IsAccountLocked("victim")
	if !isLocked {
		t.Error("IsAccountLocked = false right after lockout")
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp := newTestProtection()

	// First lockout: 1m. Second lockout: 2m.
	for i := 0; i < 3; i++ {
		lp.RecordFailedAttempt("victim")
	}
	lp.failedAttempts["victim"].lockedUntil = time.Now().Add(-time.Second) // expire the lock

	var locked bool
	var duration time.Duration
	for i := 0; i < 3; i++ {
		locked, duration = lp.RecordFailedAttempt("victim")
	}
	if !locked {
		t.Fatal("second lockout not triggered")
	}
	if duration != 2*time.Minute {
		t.Errorf("second lock duration = %v, want 2m", duration)
	}
}

func TestLoginProtection_SuccessClearsTracking(t *testing.T) {
	lp := newTestProtection()

	lp.RecordFailedAttempt("user")
	lp.RecordFailedAttempt("user")
	lp.RecordSuccessfulLogin("user")

	// Counter restarted: two more failures do not lock.
	lp.RecordFailedAttempt("user")
	locked, _ := lp.RecordFailedAttempt("user")
	if locked {
		t.Error("locked despite successful login resetting the counter")
	}
}

func TestLoginProtection_WindowReset(t *testing.T) {
	lp := newTestProtection()

	lp.RecordFailedAttempt("user")
	lp.RecordFailedAttempt("user")
	// Age the first failure out of the window.
	lp.failedAttempts["user"].firstFailed = time.Now().Add(-2 * time.Minute)

	locked, _ := lp.RecordFailedAttempt("user")
	if locked {
		t.Error("locked although the attempt window had passed")
	}
	if lp.failedAttempts["user"].count != 1 {
		t.Errorf("count = %d, want 1 after window reset", lp.failedAttempts["user"].count)
	}
}

func TestLoginProtection_UnknownAccountNotLocked(t *testing.T) {
	lp := newTestProtection()
	if locked, _ := lp.IsAccountLocked("nobody"); locked {
		t.Error("unknown account reported locked")
	}
}

func TestLoginProtection_IPRateLimitMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       0.001, // effectively one request
		IPBurst:           1,
		MaxFailedAttempts: 5,
	})

	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.RemoteAddr = "10.1.2.3:51000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}

	// GET requests bypass the limiter.
	getReq := httptest.NewRequest(http.MethodGet, "/v1/login", nil)
	getReq.RemoteAddr = "10.1.2.3:51000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, getReq)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rec.Code)
	}
}
