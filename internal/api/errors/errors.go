// Пакет errors — конструкторы ответов с ошибками в формате casevault.
// Единый формат: {"code": "...", "message": "..."}.
// Ответ 500 дополнительно содержит "error" с текстом исходной ошибки.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, описанные в OpenAPI документе.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeIOError            = "IO_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// errorBody — тело ответа ошибки.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	writeBody(w, statusCode, errorBody{Code: code, Message: message})
}

func writeBody(w http.ResponseWriter, statusCode int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// InvalidCredentials — 400 неверный email или пароль.
func InvalidCredentials(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidCredentials, message)
}

// Conflict — 400 дублирующийся ресурс. Клиенты casevault ожидают 400, а не 409.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeConflict, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// PayloadTooLarge — 413 файл превышает допустимый размер.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message)
}

// IOError — 500 ошибка чтения или записи файла.
func IOError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeIOError, message)
}

// InternalError — 500 внутренняя ошибка. Текст err попадает в поле "error".
func InternalError(w http.ResponseWriter, message string, err error) {
	body := errorBody{Code: CodeInternalError, Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	writeBody(w, http.StatusInternalServerError, body)
}
