// cases.go — обработчики /api/cases endpoints.
// Создание дела юристом, выборка по роли, просмотр, смена статуса судьёй.
package handlers

import (
	"net/http"

	"github.com/bigkaa/casevault/internal/service"
)

// CreateCase — POST /api/cases.
// Доступ: LAWYER.
func (h *APIHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createCaseRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	params := service.CreateCaseParams{
		Title:                 req.Title,
		CaseNumber:            req.CaseNumber,
		Description:           req.Description,
		AssignedProfessionals: req.AssignedProfessionals,
		AssignedPublicViewers: req.AssignedPublicViewers,
	}
	if req.AssignedJudge != "" {
		params.AssignedJudge = &req.AssignedJudge
	}

	view, err := h.cases.Create(r.Context(), p, params)
	if err != nil {
		h.writeServiceError(w, err, "создание дела")
		return
	}

	writeJSON(w, http.StatusCreated, mapCase(view))
}

// ListCases — GET /api/cases.
// Юрист видит свои дела, специалист и наблюдатель — назначенные, судья — все.
// Доступ: любая роль.
func (h *APIHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	views, err := h.cases.List(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, err, "список дел")
		return
	}

	items := make([]caseResponse, len(views))
	for i, v := range views {
		items[i] = mapCase(v)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetCase — GET /api/cases/{id}.
// Публичному наблюдателю доступны только закрытые дела.
// Доступ: любая роль.
func (h *APIHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.cases.Get(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err, "получение дела")
		return
	}

	writeJSON(w, http.StatusOK, mapCase(view))
}

// SetCaseStatus — PATCH /api/cases/{id}/status.
// Доступ: JUDGE.
func (h *APIHandler) SetCaseStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req setStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	view, err := h.cases.SetStatus(r.Context(), p, id, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "смена статуса дела")
		return
	}

	writeJSON(w, http.StatusOK, mapCase(view))
}
