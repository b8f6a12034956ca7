package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
)

func testManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret-at-least-16-chars", "santerelay", "santerelay-api", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func testUser() models.User {
	facilityID := uuid.New()
	return models.User{
		ID:         uuid.New(),
		Username:   "nurse1",
		Email:      "nurse1@santerelay.example",
		Role:       "nurse",
		FacilityID: &facilityID,
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	m := testManager(t)
	user := testUser()

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("uid: got %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != "nurse" {
		t.Errorf("role: got %s", claims.Role)
	}
	if claims.FacilityID == nil || *claims.FacilityID != *user.FacilityID {
		t.Error("facility id not carried in claims")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	m := testManager(t)

	token, err := m.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}

	// Payload swapped from a token signed with a different key.
	other, err := NewJWTManager("another-secret-16-chars-long", "santerelay", "santerelay-api", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	foreign, err := other.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	foreignParts := strings.Split(foreign, ".")
	forged := strings.Join([]string{parts[0], foreignParts[1], parts[2]}, ".")

	if _, err := m.ValidateToken(context.Background(), forged); err == nil {
		t.Fatal("forged payload accepted")
	}
	if _, err := m.ValidateToken(context.Background(), "not-a-token"); err == nil {
		t.Fatal("malformed token accepted")
	}
	if _, err := m.ValidateToken(context.Background(), ""); err == nil {
		t.Fatal("empty token accepted")
	}
}

func TestValidateTokenExpiry(t *testing.T) {
	m := testManager(t)
	user := testUser()

	issued := time.Now()
	m.nowFunc = func() time.Time { return issued }

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	m.nowFunc = func() time.Time { return issued.Add(30 * time.Minute) }
	if _, err := m.ValidateToken(context.Background(), token); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}

	m.nowFunc = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateTokenIssuerAndAudience(t *testing.T) {
	m := testManager(t)

	otherIssuer, err := NewJWTManager("test-secret-at-least-16-chars", "someone-else", "santerelay-api", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	token, err := otherIssuer.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("token from another issuer accepted")
	}
}

func TestNewJWTManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "santerelay", "santerelay-api", time.Hour); err == nil {
		t.Fatal("short secret accepted")
	}
}
