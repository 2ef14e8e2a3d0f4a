package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/casevault/internal/domain/rbac"
)

const testSecret = "test-secret-0123456789abcdefghijklmnop"

func newTestTokens(t *testing.T, secret string) *Tokens {
	t.Helper()
	tokens, err := NewTokens(context.Background(), secret, "casevault", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() ошибка: %v", err)
	}
	return tokens
}

func TestIssueAndParse(t *testing.T) {
	tokens := newTestTokens(t, testSecret)

	signed, expiresAt, err := tokens.Issue("user-1", rbac.RoleJudge)
	if err != nil {
		t.Fatalf("Issue() ошибка: %v", err)
	}
	if d := time.Until(expiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("срок действия %v, ожидается около 1h", d)
	}

	principal, err := tokens.Parse(context.Background(), signed)
	if err != nil {
		t.Fatalf("Parse() ошибка: %v", err)
	}
	if principal.UserID != "user-1" || principal.Role != rbac.RoleJudge {
		t.Errorf("Parse() = %+v", principal)
	}

	// kid присутствует в заголовке
	parsed, _, err := jwt.NewParser().ParseUnverified(signed, &Claims{})
	if err != nil {
		t.Fatalf("ParseUnverified() ошибка: %v", err)
	}
	if parsed.Header["kid"] != tokens.KeyID() {
		t.Errorf("kid = %v, ожидается %s", parsed.Header["kid"], tokens.KeyID())
	}
}

func TestKeyID_StableForSecret(t *testing.T) {
	a := newTestTokens(t, testSecret)
	b := newTestTokens(t, testSecret)
	c := newTestTokens(t, testSecret+"x")
	if a.KeyID() != b.KeyID() {
		t.Error("kid различается для одного секрета")
	}
	if a.KeyID() == c.KeyID() {
		t.Error("kid совпадает для разных секретов")
	}
}

func TestParse_Rejects(t *testing.T) {
	tokens := newTestTokens(t, testSecret)
	valid, _, err := tokens.Issue("user-1", rbac.RoleLawyer)
	if err != nil {
		t.Fatal(err)
	}

	// Просроченный токен: выпущен «два часа назад»
	expiredIssuer := newTestTokens(t, testSecret)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue("user-1", rbac.RoleLawyer)
	if err != nil {
		t.Fatal(err)
	}

	// Другой секрет — другой kid, ключ не найден
	foreign, _, err := newTestTokens(t, strings.Repeat("z", 40)).Issue("user-1", rbac.RoleLawyer)
	if err != nil {
		t.Fatal(err)
	}

	// Другой issuer
	otherIssuer, err := NewTokens(context.Background(), testSecret, "someone-else", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	wrongIss, _, err := otherIssuer.Issue("user-1", rbac.RoleLawyer)
	if err != nil {
		t.Fatal(err)
	}

	// Неизвестная роль в payload
	badRole, _, err := tokens.Issue("user-1", rbac.Role("ADMIN"))
	if err != nil {
		t.Fatal(err)
	}

	// Алгоритм none
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "casevault",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-1",
		Role:   rbac.RoleJudge,
	})
	unsigned.Header["kid"] = tokens.KeyID()
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"пустой", ""},
		{"мусор", "not-a-token"},
		{"подделанная подпись", valid[:len(valid)-4] + "AAAA"},
		{"просроченный", expired},
		{"чужой ключ", foreign},
		{"чужой issuer", wrongIss},
		{"неизвестная роль", badRole},
		{"алгоритм none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Parse(context.Background(), tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() = %v, ожидается ErrInvalidToken", err)
			}
		})
	}
}
