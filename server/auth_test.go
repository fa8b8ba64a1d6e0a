package main

import (
	"strings"
	"testing"
)

func TestAuthLoginAndValidate(t *testing.T) {
	a := NewAuth(nil, "hunter2")

	if _, err := a.Login("wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password should fail")
	}

	token, err := a.Login("hunter2", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if err := a.ValidateToken(token); err != nil {
		t.Errorf("ValidateToken: %v", err)
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	a := NewAuth(nil, "hunter2")
	token, err := a.Login("hunter2", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if err := a.ValidateToken(tampered); err == nil {
		t.Error("tampered signature should be rejected")
	}
	if err := a.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage should be rejected")
	}

	// Tokens from another secret don't validate here
	other := NewAuth(nil, "hunter2")
	foreign, err := other.Login("hunter2", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := a.ValidateToken(foreign); err == nil {
		t.Error("foreign-secret token should be rejected")
	}
}

func TestAuthDisabledWithoutPassword(t *testing.T) {
	a := NewAuth(nil, "")
	if _, err := a.Login("anything", "1.2.3.4"); err == nil {
		t.Error("empty admin password should disable login")
	}
}

func TestAuthLoginRateLimit(t *testing.T) {
	a := NewAuth(nil, "hunter2")

	for i := 0; i < maxLoginAttempts; i++ {
		a.Login("wrong", "9.9.9.9")
	}
	_, err := a.Login("hunter2", "9.9.9.9")
	if err == nil || !strings.Contains(err.Error(), "too many") {
		t.Errorf("expected rate limit after %d attempts, got %v", maxLoginAttempts, err)
	}

	// Other addresses are unaffected
	if _, err := a.Login("hunter2", "8.8.8.8"); err != nil {
		t.Errorf("unrelated address should still log in: %v", err)
	}
}

func TestAuthSecretPersists(t *testing.T) {
	db, err := OpenDB(tempDBPath(t))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	a1 := NewAuth(db, "hunter2")
	token, err := a1.Login("hunter2", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A second instance over the same database accepts the old token
	a2 := NewAuth(db, "hunter2")
	if err := a2.ValidateToken(token); err != nil {
		t.Errorf("token should survive restart: %v", err)
	}
}
