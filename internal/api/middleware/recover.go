// recover.go — перехват паники обработчика с ответом INTERNAL_ERROR.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/bigkaa/casevault/internal/api/errors"
)

// Recoverer возвращает middleware, превращающий панику в ответ 500
// с текстом паники в поле "error".
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "recoverer"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // сравнение значения паники
					panic(rec)
				}
				logger.Error("Паника в обработчике",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.InternalError(w, "Ошибка сервера", fmt.Errorf("%v", rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
