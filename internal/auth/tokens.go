// Пакет auth — выпуск и проверка bearer-токенов casevault.
// Секрет подписи публикуется как oct JWK в in-memory jwkset storage,
// проверка подписи идёт через keyfunc по kid из заголовка токена.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/casevault/internal/domain/rbac"
)

// ErrInvalidToken — токен отсутствует, повреждён, просрочен или подписан чужим ключом.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// Claims — payload bearer-токена.
type Claims struct {
	jwt.RegisteredClaims
	// UserID — ID пользователя
	UserID string `json:"userId"`
	// Role — роль пользователя на момент выпуска
	Role rbac.Role `json:"role"`
}

// Tokens выпускает и проверяет HS256 токены.
type Tokens struct {
	secret []byte
	kid    string
	issuer string
	ttl    time.Duration
	jwks   keyfunc.Keyfunc
	now    func() time.Time
}

// NewTokens создаёт Tokens. Ключ регистрируется в jwkset storage
// с kid, вычисленным из секрета (стабилен между перезапусками).
func NewTokens(ctx context.Context, secret, issuer string, ttl time.Duration) (*Tokens, error) {
	key := []byte(secret)
	kid := keyID(key)

	jwk, err := jwkset.NewJWKFromKey(key, jwkset.JWKOptions{
		Marshal: jwkset.JWKMarshalOptions{Private: true},
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgHS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK в storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Ctx:          ctx,
		Storage:      storage,
		UseWhitelist: []jwkset.USE{jwkset.UseSig},
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &Tokens{
		secret: key,
		kid:    kid,
		issuer: issuer,
		ttl:    ttl,
		jwks:   k,
		now:    time.Now,
	}, nil
}

// Issue выпускает токен, связывающий userID и role, со сроком жизни ttl.
func (t *Tokens) Issue(userID string, role rbac.Role) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header[jwkset.HeaderKID] = t.kid

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("подпись токена: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse проверяет подпись, срок действия и issuer токена
// и возвращает аутентифицированного субъекта.
func (t *Tokens) Parse(ctx context.Context, tokenString string) (rbac.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, t.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err) //nolint:errorlint // намеренный двойной wrap
	}
	if !token.Valid {
		return rbac.Principal{}, ErrInvalidToken
	}

	if claims.UserID == "" {
		return rbac.Principal{}, fmt.Errorf("%w: отсутствует userId", ErrInvalidToken)
	}
	if !rbac.IsValidRole(string(claims.Role)) {
		return rbac.Principal{}, fmt.Errorf("%w: неизвестная роль %q", ErrInvalidToken, claims.Role)
	}

	return rbac.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// KeyID возвращает kid ключа подписи.
func (t *Tokens) KeyID() string {
	return t.kid
}

// keyID — первые 8 байт SHA-256 секрета в hex.
func keyID(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:8])
}
