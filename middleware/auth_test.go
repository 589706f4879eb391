package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DamianoLaRosa/Participium/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestParseToken(t *testing.T) {
	claims := Claims{
		ID:       10,
		Username: "mario",
		Role:     models.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	identity, err := ParseToken(signToken(t, claims, testSecret), testSecret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if identity.ID != 10 || identity.Username != "mario" || identity.Role != models.RoleCitizen {
		t.Errorf("unexpected identity %+v", identity)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	claims := Claims{ID: 10, Role: models.RoleCitizen}
	if _, err := ParseToken(signToken(t, claims, "other-secret"), testSecret); err == nil {
		t.Error("expected an error for a token signed with the wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := Claims{
		ID:   10,
		Role: models.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	if _, err := ParseToken(signToken(t, claims, testSecret), testSecret); err == nil {
		t.Error("expected an error for an expired token")
	}
}

func TestParseTokenRejectsMissingIdentityFields(t *testing.T) {
	claims := Claims{Username: "mario"}
	if _, err := ParseToken(signToken(t, claims, testSecret), testSecret); err == nil {
		t.Error("expected an error for a token without id and role")
	}
}

func TestExtractToken(t *testing.T) {
	testCases := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := extractToken(tc.header); got != tc.want {
			t.Errorf("extractToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
