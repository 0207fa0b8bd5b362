package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, claims, err := m.IssueUserToken("driver-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.UserID != "driver-1" || claims.Subject != "driver-1" {
		t.Fatalf("claims = %+v", claims)
	}

	parsed, err := m.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if parsed.UserID != "driver-1" {
		t.Fatalf("parsed user = %q", parsed.UserID)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager("secret-a", time.Hour).IssueUserToken("driver-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour).ParseAndValidate(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	token, _, err := NewManager("test-secret", -time.Minute).IssueUserToken("driver-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewManager("test-secret", time.Hour).ParseAndValidate(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestNewManagerPanicsOnEmptySecret(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewManager("   ", time.Hour)
}

func TestFromAuthorization(t *testing.T) {
	r := httptest.NewRequest("GET", "/trips/driver-1/snapshot", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	if tok, err := FromAuthorization(r); err != nil || tok != "abc123" {
		t.Fatalf("header token = %q, err = %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/ws/drivers/driver-1?token=abc123", nil)
	if tok, err := FromAuthorization(r); err != nil || tok != "abc123" {
		t.Fatalf("query token = %q, err = %v", tok, err)
	}

	r = httptest.NewRequest("GET", "/trips/driver-1/snapshot", nil)
	if _, err := FromAuthorization(r); !errors.Is(err, ErrNoAuthHeader) {
		t.Fatalf("missing header err = %v, want ErrNoAuthHeader", err)
	}

	r = httptest.NewRequest("GET", "/trips/driver-1/snapshot", nil)
	r.Header.Set("Authorization", "Basic abc123")
	if _, err := FromAuthorization(r); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("non-bearer err = %v, want ErrEmptyToken", err)
	}
}
