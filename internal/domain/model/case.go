package model

import "time"

// CaseStatus — статус дела.
type CaseStatus string

// Статусы дела. Переходы между ними не ограничены.
const (
	CaseStatusOpen        CaseStatus = "OPEN"
	CaseStatusUnderReview CaseStatus = "UNDER_REVIEW"
	CaseStatusClosed      CaseStatus = "CLOSED"
)

// IsValid проверяет, что статус входит в перечисление.
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusUnderReview, CaseStatusClosed:
		return true
	}
	return false
}

// AssignmentKind — вид назначения пользователя на дело.
type AssignmentKind string

const (
	AssignmentProfessional AssignmentKind = "PROFESSIONAL"
	AssignmentPublicViewer AssignmentKind = "PUBLIC"
)

// Case — дело. Хранится в таблицах cases и case_assignments.
type Case struct {
	// ID — UUID дела
	ID string
	// Title — заголовок
	Title string
	// Description — описание (может быть пустым)
	Description string
	// CaseNumber — уникальный номер дела
	CaseNumber string
	// Status — статус дела (начальный OPEN)
	Status CaseStatus
	// CreatedBy — ID юриста-владельца, неизменяем
	CreatedBy string
	// AssignedProfessionals — ID назначенных специалистов
	AssignedProfessionals []string
	// AssignedPublicViewers — ID назначенных публичных наблюдателей
	AssignedPublicViewers []string
	// AssignedJudge — ID назначенного судьи (опционально)
	AssignedJudge *string
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
