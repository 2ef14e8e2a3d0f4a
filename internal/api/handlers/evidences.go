// evidences.go — обработчики /api/evidences endpoints.
// Загрузка файла (multipart/form-data), список по делу, выдача файла,
// верификация специалистом и решение судьи.
package handlers

import (
	"errors"
	"mime"
	"net/http"

	apierrors "github.com/bigkaa/casevault/internal/api/errors"
	"github.com/bigkaa/casevault/internal/service"
)

// multipartMemory — объём формы в памяти, остальное Go пишет во временные файлы.
const multipartMemory = 8 << 20

// formOverhead — запас на поля формы сверх лимита файла.
const formOverhead = 1 << 20

// UploadEvidence — POST /api/evidences.
// Поля формы: caseId, file, type (необязательно), description (необязательно).
// Доступ: LAWYER.
func (h *APIHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.PayloadTooLarge(w, "Тело запроса превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	params := service.UploadParams{
		CaseID:      r.FormValue("caseId"),
		Type:        r.FormValue("type"),
		Description: r.FormValue("description"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		params.FileName = header.Filename
		params.ContentType = header.Header.Get("Content-Type")
		params.Content = file
	case errors.Is(err, http.ErrMissingFile):
		// Отсутствие файла проверяет сервис вместе с остальными полями
	default:
		apierrors.ValidationError(w, "Некорректная часть file: "+err.Error())
		return
	}

	view, err := h.evidence.Upload(r.Context(), p, params)
	if err != nil {
		h.writeServiceError(w, err, "загрузка доказательства")
		return
	}

	writeJSON(w, http.StatusCreated, mapEvidence(view))
}

// ListEvidenceByCase — GET /api/evidences/by-case/{caseId}.
// Публичному наблюдателю доступны только доказательства закрытых дел.
// Доступ: любая роль.
func (h *APIHandler) ListEvidenceByCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathUUID(w, r, "caseId")
	if !ok {
		return
	}

	views, err := h.evidence.ListByCase(r.Context(), p, caseID)
	if err != nil {
		h.writeServiceError(w, err, "список доказательств")
		return
	}

	items := make([]evidenceResponse, len(views))
	for i, v := range views {
		items[i] = mapEvidence(v)
	}
	writeJSON(w, http.StatusOK, items)
}

// DownloadEvidence — GET /api/evidences/{id}/file.
// Отдаёт сохранённый файл; заголовок X-Content-SHA256 содержит отпечаток на момент загрузки.
// Доступ: любая роль (правило видимости как у списка).
func (h *APIHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ef, err := h.evidence.Open(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err, "выдача файла доказательства")
		return
	}
	defer ef.File.Close()

	e := ef.Evidence
	if e.MimeType != "" {
		w.Header().Set("Content-Type", e.MimeType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": e.OriginalFileName,
	}))
	w.Header().Set("X-Content-SHA256", e.SHA256Hash)

	http.ServeContent(w, r, e.OriginalFileName, e.CreatedAt, ef.File)
}

// VerifyEvidence — PATCH /api/evidences/{id}/verify.
// Доступ: PROFESSIONAL.
func (h *APIHandler) VerifyEvidence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.evidence.Verify(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err, "верификация доказательства")
		return
	}

	writeJSON(w, http.StatusOK, mapEvidence(view))
}

// DecideEvidence — PATCH /api/evidences/{id}/approve.
// Тело: {"decision": "APPROVED" | "REJECTED"}.
// Доступ: JUDGE.
func (h *APIHandler) DecideEvidence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	view, err := h.evidence.Decide(r.Context(), p, id, req.Decision)
	if err != nil {
		h.writeServiceError(w, err, "решение по доказательству")
		return
	}

	writeJSON(w, http.StatusOK, mapEvidence(view))
}
