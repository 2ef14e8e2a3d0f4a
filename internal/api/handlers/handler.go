// handler.go — основной обработчик API casevault.
// Объединяет доменные обработчики, декодирует и валидирует типизированные
// запросы и делегирует их в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/bigkaa/casevault/internal/api/errors"
	"github.com/bigkaa/casevault/internal/api/middleware"
	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/service"
)

// AuthAPI — операции хранилища учётных записей. Реализуется service.AuthService.
type AuthAPI interface {
	Register(ctx context.Context, params service.RegisterParams) (*model.Profile, error)
	Authenticate(ctx context.Context, email, password string) (*service.LoginResult, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
	ListAssignable(ctx context.Context, p rbac.Principal) (*service.AssignableUsers, error)
}

// CaseAPI — операции реестра дел. Реализуется service.CaseService.
type CaseAPI interface {
	Create(ctx context.Context, p rbac.Principal, params service.CreateCaseParams) (*service.CaseView, error)
	List(ctx context.Context, p rbac.Principal) ([]*service.CaseView, error)
	Get(ctx context.Context, p rbac.Principal, id string) (*service.CaseView, error)
	SetStatus(ctx context.Context, p rbac.Principal, id, status string) (*service.CaseView, error)
}

// EvidenceAPI — операции журнала доказательств. Реализуется service.EvidenceService.
type EvidenceAPI interface {
	Upload(ctx context.Context, p rbac.Principal, params service.UploadParams) (*service.EvidenceView, error)
	ListByCase(ctx context.Context, p rbac.Principal, caseID string) ([]*service.EvidenceView, error)
	Verify(ctx context.Context, p rbac.Principal, id string) (*service.EvidenceView, error)
	Decide(ctx context.Context, p rbac.Principal, id, decision string) (*service.EvidenceView, error)
	Open(ctx context.Context, p rbac.Principal, id string) (*service.EvidenceFile, error)
}

// APIHandler — основной обработчик API casevault.
type APIHandler struct {
	health        *HealthHandler
	auth          AuthAPI
	cases         CaseAPI
	evidence      EvidenceAPI
	validate      *validator.Validate
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize — лимит размера файла; тело multipart ограничивается с запасом на поля формы.
func NewAPIHandler(
	health *HealthHandler,
	auth AuthAPI,
	cases CaseAPI,
	evidence EvidenceAPI,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		auth:          auth,
		cases:         cases,
		evidence:      evidence,
		validate:      newValidator(),
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// newValidator создаёт validator, сообщающий имена полей по json-тегам.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON декодирует тело запроса в dst и валидирует его.
// При ошибке пишет ответ 400 и возвращает false.
func (h *APIHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			apierrors.ValidationError(w, "Пустое тело запроса")
			return false
		}
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return h.validateRequest(w, dst)
}

// validateRequest проверяет теги validate у dst.
func (h *APIHandler) validateRequest(w http.ResponseWriter, dst any) bool {
	err := h.validate.Struct(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		apierrors.ValidationError(w, describeValidation(verrs))
		return false
	}
	apierrors.ValidationError(w, err.Error())
	return false
}

// describeValidation формирует сообщение из ошибок validator.
func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("поле %s обязательно", fe.Field()))
		case "min":
			parts = append(parts, fmt.Sprintf("поле %s: длина не меньше %s", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("поле %s: длина не больше %s", fe.Field(), fe.Param()))
		case "email":
			parts = append(parts, fmt.Sprintf("поле %s: некорректный email", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("поле %s: допустимые значения %s", fe.Field(), fe.Param()))
		case "uuid":
			parts = append(parts, fmt.Sprintf("поле %s: некорректный идентификатор", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("поле %s: нарушено правило %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// principal извлекает аутентифицированный субъект.
// Если его нет (маршрут без JWT middleware), пишет 401.
func principal(w http.ResponseWriter, r *http.Request) (rbac.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
	}
	return p, ok
}

// writeServiceError маппит ошибку сервисного слоя в HTTP-ответ.
// op — описание операции для лога и сообщения 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.InvalidCredentials(w, "Неверный email или пароль")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrTooLarge):
		apierrors.PayloadTooLarge(w, err.Error())
	case errors.Is(err, service.ErrIO):
		h.logger.Error("Ошибка ввода-вывода", slog.String("op", op), slog.String("error", err.Error()))
		apierrors.IOError(w, "Ошибка обработки файла: "+op)
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("op", op), slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка сервера: "+op, err)
	}
}
