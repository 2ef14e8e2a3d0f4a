package model

import "time"

// EvidenceType — тип доказательства.
type EvidenceType string

const (
	EvidenceDocument EvidenceType = "DOCUMENT"
	EvidenceImage    EvidenceType = "IMAGE"
	EvidenceVideo    EvidenceType = "VIDEO"
	EvidenceOther    EvidenceType = "OTHER"
)

// IsValid проверяет, что тип входит в перечисление.
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceDocument, EvidenceImage, EvidenceVideo, EvidenceOther:
		return true
	}
	return false
}

// EvidenceStatus — статус доказательства.
// Рабочий поток: UPLOADED → VERIFIED → APPROVED | REJECTED.
type EvidenceStatus string

const (
	EvidenceUploaded EvidenceStatus = "UPLOADED"
	EvidenceVerified EvidenceStatus = "VERIFIED"
	EvidenceApproved EvidenceStatus = "APPROVED"
	EvidenceRejected EvidenceStatus = "REJECTED"
)

// IsDecision проверяет, что статус — решение судьи.
func (s EvidenceStatus) IsDecision() bool {
	return s == EvidenceApproved || s == EvidenceRejected
}

// Evidence — метаданные загруженного файла доказательства.
// Хранится в таблице evidences.
type Evidence struct {
	// ID — UUID доказательства
	ID string
	// CaseID — дело, к которому относится доказательство
	CaseID string
	// UploadedBy — ID загрузившего юриста
	UploadedBy string
	// Type — тип (по умолчанию DOCUMENT)
	Type EvidenceType
	// Description — описание (может быть пустым)
	Description string
	// FilePath — путь к файлу относительно директории загрузок
	FilePath string
	// OriginalFileName — оригинальное имя файла
	OriginalFileName string
	// MimeType — MIME-тип файла
	MimeType string
	// SHA256Hash — hex SHA-256 содержимого на момент загрузки, не пересчитывается
	SHA256Hash string
	// SizeBytes — размер файла в байтах
	SizeBytes int64
	// Status — статус (начальный UPLOADED)
	Status EvidenceStatus
	// VerifiedBy — ID специалиста, верифицировавшего доказательство
	VerifiedBy *string
	// ApprovedBy — ID судьи, принявшего решение
	ApprovedBy *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
