package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService("test-secret-0123456789", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_RejectsShortSecret(t *testing.T) {
	if _, err := NewService("short", time.Hour, time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssuePair_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.IssuePair(42, true)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.TokenType != "bearer" || pair.UserID != 42 || pair.ExpiresIn != 3600 {
		t.Errorf("unexpected pair metadata: %+v", pair)
	}

	access, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if access.UserID != 42 || !access.IsAdmin || access.TokenType != TokenTypeAccess {
		t.Errorf("unexpected access claims: %+v", access)
	}

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if refresh.UserID != 42 || refresh.TokenType != TokenTypeRefresh {
		t.Errorf("unexpected refresh claims: %+v", refresh)
	}
}

func TestVerifyAccess_RejectsRefreshToken(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.IssuePair(7, false)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrWrongTokenUse) {
		t.Errorf("want ErrWrongTokenUse, got %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrWrongTokenUse) {
		t.Errorf("want ErrWrongTokenUse, got %v", err)
	}
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	svc := newTestService(t)
	pair, _ := svc.IssuePair(7, false)

	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", pair.AccessToken)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := svc.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsForeignSecret(t *testing.T) {
	other, _ := NewService("another-secret-0123456789", time.Hour, time.Hour)
	pair, _ := other.IssuePair(7, false)

	svc := newTestService(t)
	if _, err := svc.Verify(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	svc, err := NewService("test-secret-0123456789", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	pair, _ := svc.IssuePair(7, false)

	if _, err := svc.Verify(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}
