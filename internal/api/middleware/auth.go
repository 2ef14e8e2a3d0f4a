// auth.go — middleware аутентификации bearer-токеном и проверки возможностей роли.
// Токен — единственный источник личности: payload {userId, role} кладётся
// в контекст запроса как rbac.Principal.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/casevault/internal/api/errors"
	"github.com/bigkaa/casevault/internal/domain/rbac"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyPrincipal — аутентифицированный субъект в контексте запроса.
const ContextKeyPrincipal contextKey = "principal"

// TokenParser проверяет bearer-токен. Реализуется auth.Tokens.
type TokenParser interface {
	Parse(ctx context.Context, token string) (rbac.Principal, error)
}

// JWTAuth — middleware аутентификации bearer-токеном.
type JWTAuth struct {
	tokens TokenParser
	logger *slog.Logger
}

// NewJWTAuth создаёт middleware поверх парсера токенов.
func NewJWTAuth(tokens TokenParser, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		tokens: tokens,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware: извлекает Bearer token,
// проверяет подпись, срок действия и роль, помещает Principal в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			principal, err := j.tokens.Parse(r.Context(), tokenString)
			if err != nil {
				j.logger.Debug("Проверка токена не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireCapability возвращает middleware, пропускающий только роли,
// которым таблица rbac разрешает операцию op.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireCapability(op rbac.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				apierrors.Unauthorized(w, "Отсутствует субъект в контексте")
				return
			}

			if err := rbac.Authorize(principal.Role, op); err != nil {
				apierrors.Forbidden(w, capitalize(err.Error()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// WithPrincipal возвращает контекст с Principal.
func WithPrincipal(ctx context.Context, p rbac.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext извлекает Principal из контекста запроса.
// Второй результат false, если запрос не прошёл аутентификацию.
func PrincipalFromContext(ctx context.Context) (rbac.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(rbac.Principal)
	return p, ok
}

// capitalize делает первую букву сообщения заглавной.
func capitalize(s string) string {
	for i, r := range s {
		return strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}
