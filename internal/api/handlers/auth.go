// auth.go — обработчики /api/auth и /api/users endpoints:
// регистрация, вход, смена пароля и список пользователей для назначения.
package handlers

import (
	"net/http"

	"github.com/bigkaa/casevault/internal/service"
)

// Register — POST /api/auth/register.
// Создаёт пользователя и возвращает публичный профиль.
// Доступ: без аутентификации.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.auth.Register(r.Context(), service.RegisterParams{
		Name:     req.Name,
		Username: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeServiceError(w, err, "регистрация пользователя")
		return
	}

	writeJSON(w, http.StatusCreated, mapProfile(*profile))
}

// Login — POST /api/auth/login.
// Проверяет email и пароль, выдаёт bearer-токен.
// Доступ: без аутентификации.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "вход")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      mapProfile(result.User),
	})
}

// ChangePassword — PATCH /api/auth/password.
// Меняет пароль текущего пользователя.
// Доступ: любая роль.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), p.UserID, req.Password); err != nil {
		h.writeServiceError(w, err, "смена пароля")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsersByRole — GET /api/users/by-role.
// Активные специалисты, публичные наблюдатели и судьи для назначения на дело.
// Доступ: LAWYER.
func (h *APIHandler) ListUsersByRole(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	users, err := h.auth.ListAssignable(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, err, "список пользователей")
		return
	}

	writeJSON(w, http.StatusOK, assignableResponse{
		Professionals: mapProfiles(users.Professionals),
		Publics:       mapProfiles(users.Publics),
		Judges:        mapProfiles(users.Judges),
	})
}
