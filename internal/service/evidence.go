// evidence.go — журнал доказательств: загрузка файла с SHA-256 отпечатком,
// выдача по делу, верификация специалистом и решение судьи.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/repository"
	"github.com/bigkaa/casevault/internal/storage/digest"
	"github.com/bigkaa/casevault/internal/storage/filestore"
)

// FileStorage — хранилище файлов доказательств. Реализуется filestore.FileStore.
type FileStorage interface {
	SaveFile(reader io.Reader, originalFilename, caseID string) (*filestore.SaveResult, error)
	Open(storagePath string) (*os.File, error)
}

// UploadParams — данные загрузки доказательства.
type UploadParams struct {
	CaseID      string
	Type        string
	Description string
	// FileName — оригинальное имя файла из multipart
	FileName string
	// ContentType — MIME-тип из заголовка части; пустой или octet-stream — определяется по содержимому
	ContentType string
	Content     io.Reader
}

// EvidenceView — доказательство с разрешёнными профилями участников.
type EvidenceView struct {
	Evidence   *model.Evidence
	UploadedBy model.Profile
	VerifiedBy *model.Profile
	ApprovedBy *model.Profile
}

// EvidenceFile — открытый файл доказательства для выдачи клиенту.
// Вызывающий код обязан закрыть File.
type EvidenceFile struct {
	Evidence *model.Evidence
	File     *os.File
}

// EvidenceService — бизнес-логика журнала доказательств.
type EvidenceService struct {
	cases    repository.CaseRepository
	evidence repository.EvidenceRepository
	files    FileStorage
	people   *PeopleResolver
	logger   *slog.Logger
}

// NewEvidenceService создаёт сервис доказательств.
func NewEvidenceService(
	cases repository.CaseRepository,
	evidence repository.EvidenceRepository,
	files FileStorage,
	people *PeopleResolver,
	logger *slog.Logger,
) *EvidenceService {
	return &EvidenceService{
		cases:    cases,
		evidence: evidence,
		files:    files,
		people:   people,
		logger:   logger.With(slog.String("component", "evidence_service")),
	}
}

// Upload сохраняет файл на диск, вычисляет SHA-256 сохранённых байт
// и создаёт запись в статусе UPLOADED.
// Если хэш или запись не удались, файл остаётся на диске без метаданных.
func (s *EvidenceService) Upload(ctx context.Context, p rbac.Principal, params UploadParams) (*EvidenceView, error) {
	if err := authorize(p, rbac.OpUploadEvidence); err != nil {
		return nil, err
	}

	caseID := strings.TrimSpace(params.CaseID)
	if caseID == "" {
		return nil, validationError("caseId обязателен")
	}
	parsed, err := uuid.Parse(caseID)
	if err != nil {
		return nil, validationError("caseId: некорректный идентификатор %q", params.CaseID)
	}
	caseID = parsed.String()

	if params.Content == nil || params.FileName == "" {
		return nil, validationError("файл обязателен")
	}

	evType := model.EvidenceDocument
	if params.Type != "" {
		evType = model.EvidenceType(params.Type)
		if !evType.IsValid() {
			return nil, validationError("недопустимый тип %q, допустимые: DOCUMENT, IMAGE, VIDEO, OTHER", params.Type)
		}
	}

	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: дело %s", ErrNotFound, caseID)
		}
		return nil, err
	}

	saved, err := s.files.SaveFile(params.Content, params.FileName, caseID)
	if err != nil {
		if errors.Is(err, filestore.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrTooLarge, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, fmt.Errorf("%w: сохранение файла: %w", ErrIO, err) //nolint:errorlint // намеренный двойной wrap
	}

	hash, err := digest.File(saved.FullPath)
	if err != nil {
		s.orphaned(saved, err)
		return nil, fmt.Errorf("%w: %w", ErrIO, err) //nolint:errorlint // намеренный двойной wrap
	}

	e := &model.Evidence{
		ID:               uuid.New().String(),
		CaseID:           caseID,
		UploadedBy:       p.UserID,
		Type:             evType,
		Description:      params.Description,
		FilePath:         saved.StoragePath,
		OriginalFileName: params.FileName,
		MimeType:         s.detectMime(params.ContentType, saved.FullPath),
		SHA256Hash:       hash,
		SizeBytes:        saved.Size,
		Status:           model.EvidenceUploaded,
	}
	if err := s.evidence.Create(ctx, e); err != nil {
		s.orphaned(saved, err)
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, fmt.Errorf("%w: дело %s", ErrNotFound, caseID)
		}
		return nil, err
	}

	evidenceUploadedTotal.WithLabelValues(string(evType)).Inc()
	evidenceUploadedBytes.Add(float64(saved.Size))
	s.logger.Info("Доказательство загружено",
		slog.String("evidence_id", e.ID),
		slog.String("case_id", caseID),
		slog.String("sha256", hash),
		slog.Int64("size", saved.Size),
	)

	return s.view(ctx, e)
}

// ListByCase возвращает все доказательства дела.
func (s *EvidenceService) ListByCase(ctx context.Context, p rbac.Principal, caseID string) ([]*EvidenceView, error) {
	if err := authorize(p, rbac.OpListEvidence); err != nil {
		return nil, err
	}
	if err := s.checkCaseAccess(ctx, p, caseID); err != nil {
		return nil, err
	}

	list, err := s.evidence.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

// Verify переводит доказательство в VERIFIED.
// Текущий статус не проверяется: повторный вызов перезаписывает verifiedBy.
func (s *EvidenceService) Verify(ctx context.Context, p rbac.Principal, id string) (*EvidenceView, error) {
	if err := authorize(p, rbac.OpVerifyEvidence); err != nil {
		return nil, err
	}

	e, err := s.evidence.SetVerified(ctx, id, p.UserID)
	if err != nil {
		return nil, s.mapEvidenceError(err, id)
	}

	evidenceTransitionsTotal.WithLabelValues(string(model.EvidenceVerified)).Inc()
	s.logger.Info("Доказательство верифицировано",
		slog.String("evidence_id", id),
		slog.String("professional_id", p.UserID),
	)
	return s.view(ctx, e)
}

// Decide записывает решение судьи APPROVED или REJECTED.
// Предыдущий статус не проверяется.
func (s *EvidenceService) Decide(ctx context.Context, p rbac.Principal, id, decision string) (*EvidenceView, error) {
	if err := authorize(p, rbac.OpDecideEvidence); err != nil {
		return nil, err
	}

	status := model.EvidenceStatus(decision)
	if !status.IsDecision() {
		return nil, validationError("недопустимое решение %q, допустимые: APPROVED, REJECTED", decision)
	}

	e, err := s.evidence.SetDecision(ctx, id, status, p.UserID)
	if err != nil {
		return nil, s.mapEvidenceError(err, id)
	}

	evidenceTransitionsTotal.WithLabelValues(decision).Inc()
	s.logger.Info("Решение по доказательству",
		slog.String("evidence_id", id),
		slog.String("decision", decision),
		slog.String("judge_id", p.UserID),
	)
	return s.view(ctx, e)
}

// Open открывает сохранённый файл доказательства.
// Правило видимости то же, что у ListByCase.
func (s *EvidenceService) Open(ctx context.Context, p rbac.Principal, id string) (*EvidenceFile, error) {
	if err := authorize(p, rbac.OpDownloadEvidence); err != nil {
		return nil, err
	}

	e, err := s.evidence.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapEvidenceError(err, id)
	}
	if err := s.checkCaseAccess(ctx, p, e.CaseID); err != nil {
		return nil, err
	}

	f, err := s.files.Open(e.FilePath)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: файл доказательства %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err) //nolint:errorlint // намеренный двойной wrap
	}
	return &EvidenceFile{Evidence: e, File: f}, nil
}

// checkCaseAccess проверяет существование дела и доступ публичного наблюдателя.
func (s *EvidenceService) checkCaseAccess(ctx context.Context, p rbac.Principal, caseID string) error {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: дело %s", ErrNotFound, caseID)
		}
		return err
	}
	return checkCaseVisible(p, c)
}

// detectMime возвращает MIME-тип из заголовка или определяет его по содержимому файла.
func (s *EvidenceService) detectMime(declared, fullPath string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	mt, err := mimetype.DetectFile(fullPath)
	if err != nil {
		s.logger.Warn("Не удалось определить MIME-тип",
			slog.String("path", fullPath),
			slog.String("error", err.Error()),
		)
		return "application/octet-stream"
	}
	return mt.String()
}

// orphaned фиксирует файл, оставшийся на диске без записи метаданных.
func (s *EvidenceService) orphaned(saved *filestore.SaveResult, cause error) {
	evidenceOrphanedTotal.Inc()
	s.logger.Warn("Файл сохранён без записи доказательства",
		slog.String("path", saved.StoragePath),
		slog.String("error", cause.Error()),
	)
}

// mapEvidenceError маппит ошибки репозитория доказательств.
func (s *EvidenceService) mapEvidenceError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: доказательство %s", ErrNotFound, id)
	}
	return err
}

// view разрешает профили одного доказательства.
func (s *EvidenceService) view(ctx context.Context, e *model.Evidence) (*EvidenceView, error) {
	views, err := s.views(ctx, []*model.Evidence{e})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// views разрешает профили участников для списка доказательств.
func (s *EvidenceService) views(ctx context.Context, list []*model.Evidence) ([]*EvidenceView, error) {
	var ids []string
	for _, e := range list {
		ids = append(ids, e.UploadedBy)
		if e.VerifiedBy != nil {
			ids = append(ids, *e.VerifiedBy)
		}
		if e.ApprovedBy != nil {
			ids = append(ids, *e.ApprovedBy)
		}
	}

	profiles, err := s.people.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*EvidenceView, len(list))
	for i, e := range list {
		result[i] = &EvidenceView{
			Evidence:   e,
			UploadedBy: profileOf(profiles, e.UploadedBy),
			VerifiedBy: optionalProfile(profiles, e.VerifiedBy),
			ApprovedBy: optionalProfile(profiles, e.ApprovedBy),
		}
	}
	return result, nil
}
