package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/casevault/internal/domain/model"
)

// CaseFilter — условия выборки дел. Пустые поля не фильтруют.
type CaseFilter struct {
	// CreatedBy — только дела, созданные пользователем
	CreatedBy string
	// AssignedUser — только дела, где пользователь назначен с видом AssignedKind
	AssignedUser string
	AssignedKind model.AssignmentKind
}

// CaseRepository — интерфейс доступа к таблицам cases и case_assignments.
type CaseRepository interface {
	// Create создаёт дело вместе с назначениями в одной транзакции.
	Create(ctx context.Context, c *model.Case) error
	// GetByID возвращает дело с назначениями.
	GetByID(ctx context.Context, id string) (*model.Case, error)
	// List возвращает дела, подходящие под фильтр, новые первыми.
	List(ctx context.Context, filter CaseFilter) ([]*model.Case, error)
	// UpdateStatus меняет статус дела и возвращает обновлённую запись.
	UpdateStatus(ctx context.Context, id string, status model.CaseStatus) (*model.Case, error)
}

const caseColumns = `id, title, description, case_number, status, created_by,
	assigned_judge_id, created_at, updated_at`

// caseRepo — реализация CaseRepository.
type caseRepo struct {
	db DBTX
	tx *TxRunner
}

// NewCaseRepository создаёт репозиторий дел.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepo{db: pool, tx: NewTxRunner(pool)}
}

func (r *caseRepo) Create(ctx context.Context, c *model.Case) error {
	err := r.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO cases (id, title, description, case_number, status, created_by, assigned_judge_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			c.ID, c.Title, c.Description, c.CaseNumber, c.Status, c.CreatedBy, c.AssignedJudge,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return err
		}

		if err := insertAssignments(ctx, tx, c.ID, model.AssignmentProfessional, c.AssignedProfessionals); err != nil {
			return err
		}
		return insertAssignments(ctx, tx, c.ID, model.AssignmentPublicViewer, c.AssignedPublicViewers)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: номер дела %q уже используется", ErrConflict, c.CaseNumber)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: назначенный пользователь не существует", ErrInvalidReference)
		}
		return fmt.Errorf("ошибка создания дела: %w", err)
	}
	return nil
}

// insertAssignments сохраняет назначения одного вида с сохранением порядка.
func insertAssignments(ctx context.Context, tx pgx.Tx, caseID string, kind model.AssignmentKind, userIDs []string) error {
	for i, userID := range userIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO case_assignments (case_id, user_id, kind, position)
			VALUES ($1, $2, $3, $4)`,
			caseID, userID, kind, i,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *caseRepo) GetByID(ctx context.Context, id string) (*model.Case, error) {
	c, err := scanCase(r.db.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения дела: %w", err)
	}
	if err := r.loadAssignments(ctx, []*model.Case{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *caseRepo) List(ctx context.Context, filter CaseFilter) ([]*model.Case, error) {
	// Динамическое построение WHERE
	var conditions []string
	var args []any
	argNum := 1

	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argNum))
		args = append(args, filter.CreatedBy)
		argNum++
	}
	if filter.AssignedUser != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM case_assignments a WHERE a.case_id = cases.id AND a.user_id = $%d AND a.kind = $%d)",
			argNum, argNum+1))
		args = append(args, filter.AssignedUser, filter.AssignedKind)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM cases
		%s
		ORDER BY created_at DESC, id`, caseColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка дел: %w", err)
	}
	defer rows.Close()

	var result []*model.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования дела: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка получения списка дел: %w", err)
	}

	if err := r.loadAssignments(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *caseRepo) UpdateStatus(ctx context.Context, id string, status model.CaseStatus) (*model.Case, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса дела: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// loadAssignments заполняет списки назначений одним запросом для всех дел.
func (r *caseRepo) loadAssignments(ctx context.Context, cases []*model.Case) error {
	if len(cases) == 0 {
		return nil
	}
	byID := make(map[string]*model.Case, len(cases))
	ids := make([]string, len(cases))
	for i, c := range cases {
		byID[c.ID] = c
		ids[i] = c.ID
	}

	rows, err := r.db.Query(ctx, `
		SELECT case_id, user_id, kind
		FROM case_assignments
		WHERE case_id = ANY($1::uuid[])
		ORDER BY case_id, kind, position`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения назначений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var caseID, userID, kind string
		if err := rows.Scan(&caseID, &userID, &kind); err != nil {
			return fmt.Errorf("ошибка сканирования назначения: %w", err)
		}
		c := byID[caseID]
		switch model.AssignmentKind(kind) {
		case model.AssignmentProfessional:
			c.AssignedProfessionals = append(c.AssignedProfessionals, userID)
		case model.AssignmentPublicViewer:
			c.AssignedPublicViewers = append(c.AssignedPublicViewers, userID)
		}
	}
	return rows.Err()
}

// scanCase сканирует строку результата в model.Case (без назначений).
func scanCase(row pgx.Row) (*model.Case, error) {
	c := &model.Case{}
	var status string
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.CaseNumber, &status, &c.CreatedBy,
		&c.AssignedJudge, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = model.CaseStatus(status)
	return c, nil
}
