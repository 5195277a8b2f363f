package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-0123456789")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if c.DBHost != "localhost" || c.DBPort != 5432 || c.DBPoolSize != 10 {
		t.Errorf("unexpected db defaults: %+v", c)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.JWTAccessTTL != time.Hour || c.JWTRefreshTTL != 7*24*time.Hour {
		t.Errorf("unexpected jwt ttls: access=%v refresh=%v", c.JWTAccessTTL, c.JWTRefreshTTL)
	}
	if c.MaxFileSizeBytes() != 50*1024*1024 {
		t.Errorf("MaxFileSizeBytes = %d", c.MaxFileSizeBytes())
	}
}

func TestFromEnv_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}

	t.Setenv("JWT_SECRET", "too-short")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}

func TestDatabaseURL_EscapesCredentials(t *testing.T) {
	c := &Config{
		DBHost: "db", DBPort: 5433, DBName: "chat",
		DBUser: "app", DBPass: "p@ss:word",
	}
	got := c.DatabaseURL()
	want := "postgres://app:p%40ss%3Aword@db:5433/chat"
	if got != want {
		t.Errorf("DatabaseURL = %q, want %q", got, want)
	}
}

func TestRedisAddr(t *testing.T) {
	c := &Config{RedisHost: "cache", RedisPort: 6380}
	if got := c.RedisAddr(); got != "cache:6380" {
		t.Errorf("RedisAddr = %q", got)
	}
}
