// dto.go — JSON-схемы запросов и ответов API и маппинг доменных моделей.
// Имена полей совпадают с теми, что ожидает клиент casevault.
package handlers

import (
	"time"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/service"
)

// --- Запросы ---

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	UserName string `json:"userName" validate:"required,min=5,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=LAWYER PROFESSIONAL JUDGE PUBLIC"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type createCaseRequest struct {
	Title                 string   `json:"title" validate:"required"`
	CaseNumber            string   `json:"caseNumber" validate:"required"`
	Description           string   `json:"description"`
	AssignedProfessionals []string `json:"assignedProfessionals" validate:"omitempty,dive,uuid"`
	AssignedPublicViewers []string `json:"assignedPublicViewers" validate:"omitempty,dive,uuid"`
	// Пустая строка и null — судья не назначен
	AssignedJudge string `json:"assignedJudge" validate:"omitempty,uuid"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

// --- Ответы ---

// userProfile — публичный профиль пользователя.
type userProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// person — участник дела или доказательства (только имя и роль).
type person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      userProfile `json:"user"`
}

type assignableResponse struct {
	Professionals []userProfile `json:"professionals"`
	Publics       []userProfile `json:"publics"`
	Judges        []userProfile `json:"judges"`
}

type caseResponse struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	CaseNumber            string    `json:"caseNumber"`
	Status                string    `json:"status"`
	CreatedBy             person    `json:"createdBy"`
	AssignedProfessionals []person  `json:"assignedProfessionals"`
	AssignedPublicViewers []person  `json:"assignedPublicViewers"`
	AssignedJudge         *person   `json:"assignedJudge"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type evidenceResponse struct {
	ID               string    `json:"id"`
	CaseID           string    `json:"caseId"`
	UploadedBy       person    `json:"uploadedBy"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	FilePath         string    `json:"filePath"`
	OriginalFileName string    `json:"originalFileName"`
	MimeType         string    `json:"mimeType"`
	SHA256Hash       string    `json:"sha256Hash"`
	SizeBytes        int64     `json:"sizeBytes"`
	Status           string    `json:"status"`
	VerifiedBy       *person   `json:"verifiedBy"`
	ApprovedBy       *person   `json:"approvedBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// --- Маппинг ---

func mapProfile(p model.Profile) userProfile {
	return userProfile{ID: p.ID, Name: p.Name, Email: p.Email, Role: string(p.Role)}
}

func mapProfiles(list []model.Profile) []userProfile {
	result := make([]userProfile, len(list))
	for i, p := range list {
		result[i] = mapProfile(p)
	}
	return result
}

func mapPerson(p model.Profile) person {
	return person{ID: p.ID, Name: p.Name, Role: string(p.Role)}
}

func mapOptionalPerson(p *model.Profile) *person {
	if p == nil {
		return nil
	}
	mapped := mapPerson(*p)
	return &mapped
}

func mapPeople(list []model.Profile) []person {
	result := make([]person, len(list))
	for i, p := range list {
		result[i] = mapPerson(p)
	}
	return result
}

func mapCase(v *service.CaseView) caseResponse {
	c := v.Case
	return caseResponse{
		ID:                    c.ID,
		Title:                 c.Title,
		Description:           c.Description,
		CaseNumber:            c.CaseNumber,
		Status:                string(c.Status),
		CreatedBy:             mapPerson(v.CreatedBy),
		AssignedProfessionals: mapPeople(v.Professionals),
		AssignedPublicViewers: mapPeople(v.PublicViewers),
		AssignedJudge:         mapOptionalPerson(v.Judge),
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

func mapEvidence(v *service.EvidenceView) evidenceResponse {
	e := v.Evidence
	return evidenceResponse{
		ID:               e.ID,
		CaseID:           e.CaseID,
		UploadedBy:       mapPerson(v.UploadedBy),
		Type:             string(e.Type),
		Description:      e.Description,
		FilePath:         e.FilePath,
		OriginalFileName: e.OriginalFileName,
		MimeType:         e.MimeType,
		SHA256Hash:       e.SHA256Hash,
		SizeBytes:        e.SizeBytes,
		Status:           string(e.Status),
		VerifiedBy:       mapOptionalPerson(v.VerifiedBy),
		ApprovedBy:       mapOptionalPerson(v.ApprovedBy),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
