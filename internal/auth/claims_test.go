package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("shift-lead", RoleOperator, testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "shift-lead" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "shift-lead")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 15*time.Minute {
		t.Errorf("lifetime = %v, want 15m", ttl)
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("ops", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != DefaultTTL {
		t.Errorf("lifetime = %v, want %v", ttl, DefaultTTL)
	}
}

func TestGenerateToken_NoSecret(t *testing.T) {
	if _, err := GenerateToken("ops", RoleOperator, "", time.Minute); !errors.Is(err, ErrNoSecret) {
		t.Errorf("GenerateToken() error = %v, want ErrNoSecret", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateToken("ops", RoleOperator, testSecret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	sign := func(claims Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}
	now := time.Now()
	base := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "ops",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	expired := base
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	foreign := base
	foreign.Issuer = "someone-else"
	anonymous := base
	anonymous.Subject = ""
	noExpiry := base
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-valid-jwt"},
		{"wrong secret", sign(Claims{RegisteredClaims: base, Role: RoleOperator}, jwt.SigningMethodHS256, []byte("another-secret"))},
		{"expired", sign(Claims{RegisteredClaims: expired, Role: RoleOperator}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"foreign issuer", sign(Claims{RegisteredClaims: foreign, Role: RoleOperator}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing subject", sign(Claims{RegisteredClaims: anonymous, Role: RoleOperator}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing expiry", sign(Claims{RegisteredClaims: noExpiry, Role: RoleOperator}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"unknown role", sign(Claims{RegisteredClaims: base, Role: "root"}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"HS512", sign(Claims{RegisteredClaims: base, Role: RoleOperator}, jwt.SigningMethodHS512, []byte(testSecret))},
		{"truncated", valid[:len(valid)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestClaims_Can(t *testing.T) {
	tests := []struct {
		have Role
		need Role
		want bool
	}{
		{RoleOperator, RoleOperator, true},
		{RoleOperator, RoleViewer, true},
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleOperator, false},
		{"", RoleViewer, false},
		{RoleOperator, "root", false},
	}

	for _, tt := range tests {
		c := &Claims{Role: tt.have}
		if got := c.Can(tt.need); got != tt.want {
			t.Errorf("Claims{Role: %q}.Can(%q) = %v, want %v", tt.have, tt.need, got, tt.want)
		}
	}
}
