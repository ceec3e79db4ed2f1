package httpapi

import (
	"strings"
	"testing"
	"time"

	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/store/memory"
)

func TestAuthManager_LoginAndParseToken(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestAuthManager_RejectsTamperedToken(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "operator", Password: "operator123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	other := NewAuthManager("different-secret", time.Hour, nil)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestAuthManager_RejectsWrongPassword(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, memory.NewSeeded())

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatal("expected wrong password to be rejected")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatal("expected unknown user to be rejected")
	}
}

func TestAuthManager_CreateOperator(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("unit-secret", time.Hour, repo)

	cases := []struct {
		name    string
		req     domain.OperatorCreateRequest
		wantErr string
	}{
		{"short username", domain.OperatorCreateRequest{Username: "ab", Password: "secret1"}, "at least 4 characters"},
		{"short password", domain.OperatorCreateRequest{Username: "kasia", Password: "123"}, "at least 6 characters"},
		{"duplicate", domain.OperatorCreateRequest{Username: "operator", Password: "secret1"}, "already exists"},
	}
	for _, tc := range cases {
		_, err := auth.CreateOperator(tc.req)
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}

	created, err := auth.CreateOperator(domain.OperatorCreateRequest{Username: "Kasia", Password: "secret1"})
	if err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if created.Username != "kasia" || created.Role != "operator" || !created.Active {
		t.Fatalf("unexpected operator %+v", created)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "kasia", Password: "secret1"}); err != nil {
		t.Fatalf("new operator should be able to log in: %v", err)
	}

	found := false
	for _, op := range auth.ListOperators() {
		if op.Username == "kasia" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected new operator in list")
	}
}
