package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/casevault/internal/domain/model"
)

// EvidenceRepository — интерфейс доступа к таблице evidences.
type EvidenceRepository interface {
	// Create сохраняет метаданные доказательства.
	Create(ctx context.Context, e *model.Evidence) error
	// GetByID возвращает доказательство по UUID.
	GetByID(ctx context.Context, id string) (*model.Evidence, error)
	// ListByCase возвращает все доказательства дела в порядке загрузки.
	ListByCase(ctx context.Context, caseID string) ([]*model.Evidence, error)
	// SetVerified переводит доказательство в VERIFIED и записывает верификатора.
	SetVerified(ctx context.Context, id, verifiedBy string) (*model.Evidence, error)
	// SetDecision записывает решение судьи (APPROVED или REJECTED).
	SetDecision(ctx context.Context, id string, status model.EvidenceStatus, approvedBy string) (*model.Evidence, error)
}

const evidenceColumns = `id, case_id, uploaded_by, type, description, file_path,
	original_file_name, mime_type, sha256_hash, size_bytes, status,
	verified_by, approved_by, created_at, updated_at`

// evidenceRepo — реализация EvidenceRepository.
type evidenceRepo struct {
	db DBTX
}

// NewEvidenceRepository создаёт репозиторий доказательств.
func NewEvidenceRepository(db DBTX) EvidenceRepository {
	return &evidenceRepo{db: db}
}

func (r *evidenceRepo) Create(ctx context.Context, e *model.Evidence) error {
	query := `
		INSERT INTO evidences (id, case_id, uploaded_by, type, description, file_path,
			original_file_name, mime_type, sha256_hash, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.CaseID, e.UploadedBy, e.Type, e.Description, e.FilePath,
		e.OriginalFileName, e.MimeType, e.SHA256Hash, e.SizeBytes, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: дело или пользователь не существует", ErrInvalidReference)
		}
		return fmt.Errorf("ошибка создания доказательства: %w", err)
	}
	return nil
}

func (r *evidenceRepo) GetByID(ctx context.Context, id string) (*model.Evidence, error) {
	e, err := scanEvidence(r.db.QueryRow(ctx,
		`SELECT `+evidenceColumns+` FROM evidences WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения доказательства: %w", err)
	}
	return e, nil
}

func (r *evidenceRepo) ListByCase(ctx context.Context, caseID string) ([]*model.Evidence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+evidenceColumns+`
		FROM evidences
		WHERE case_id = $1
		ORDER BY created_at, id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения доказательств дела: %w", err)
	}
	defer rows.Close()

	var result []*model.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования доказательства: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *evidenceRepo) SetVerified(ctx context.Context, id, verifiedBy string) (*model.Evidence, error) {
	return r.update(ctx, `
		UPDATE evidences
		SET status = $2, verified_by = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+evidenceColumns,
		id, model.EvidenceVerified, verifiedBy)
}

func (r *evidenceRepo) SetDecision(ctx context.Context, id string, status model.EvidenceStatus, approvedBy string) (*model.Evidence, error) {
	return r.update(ctx, `
		UPDATE evidences
		SET status = $2, approved_by = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+evidenceColumns,
		id, status, approvedBy)
}

// update выполняет UPDATE ... RETURNING и сканирует обновлённую запись.
func (r *evidenceRepo) update(ctx context.Context, query string, args ...any) (*model.Evidence, error) {
	e, err := scanEvidence(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: пользователь не существует", ErrInvalidReference)
		}
		return nil, fmt.Errorf("ошибка обновления доказательства: %w", err)
	}
	return e, nil
}

// scanEvidence сканирует строку результата в model.Evidence.
func scanEvidence(row pgx.Row) (*model.Evidence, error) {
	e := &model.Evidence{}
	var typ, status string
	err := row.Scan(
		&e.ID, &e.CaseID, &e.UploadedBy, &typ, &e.Description, &e.FilePath,
		&e.OriginalFileName, &e.MimeType, &e.SHA256Hash, &e.SizeBytes, &status,
		&e.VerifiedBy, &e.ApprovedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Type = model.EvidenceType(typ)
	e.Status = model.EvidenceStatus(status)
	return e, nil
}
