// cases.go — реестр дел: создание с назначениями, выборка по роли,
// просмотр с ограничением для публичных наблюдателей, смена статуса судьёй.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/repository"
)

// CreateCaseParams — данные нового дела.
type CreateCaseParams struct {
	Title                 string
	CaseNumber            string
	Description           string
	AssignedProfessionals []string
	AssignedPublicViewers []string
	AssignedJudge         *string
}

// CaseView — дело с разрешёнными профилями участников.
type CaseView struct {
	Case          *model.Case
	CreatedBy     model.Profile
	Professionals []model.Profile
	PublicViewers []model.Profile
	Judge         *model.Profile
}

// CaseService — бизнес-логика реестра дел.
type CaseService struct {
	cases  repository.CaseRepository
	users  repository.UserRepository
	people *PeopleResolver
	logger *slog.Logger
}

// NewCaseService создаёт сервис дел.
func NewCaseService(
	cases repository.CaseRepository,
	users repository.UserRepository,
	people *PeopleResolver,
	logger *slog.Logger,
) *CaseService {
	return &CaseService{
		cases:  cases,
		users:  users,
		people: people,
		logger: logger.With(slog.String("component", "case_service")),
	}
}

// Create создаёт дело в статусе OPEN от имени юриста p.
func (s *CaseService) Create(ctx context.Context, p rbac.Principal, params CreateCaseParams) (*CaseView, error) {
	if err := authorize(p, rbac.OpCreateCase); err != nil {
		return nil, err
	}

	params.Title = strings.TrimSpace(params.Title)
	params.CaseNumber = strings.TrimSpace(params.CaseNumber)
	if params.Title == "" || params.CaseNumber == "" {
		return nil, validationError("title и caseNumber обязательны")
	}

	professionals, err := normalizeIDs("assignedProfessionals", params.AssignedProfessionals)
	if err != nil {
		return nil, err
	}
	viewers, err := normalizeIDs("assignedPublicViewers", params.AssignedPublicViewers)
	if err != nil {
		return nil, err
	}
	var judge *string
	if params.AssignedJudge != nil && strings.TrimSpace(*params.AssignedJudge) != "" {
		ids, err := normalizeIDs("assignedJudge", []string{*params.AssignedJudge})
		if err != nil {
			return nil, err
		}
		judge = &ids[0]
	}

	if err := s.checkAssignees(ctx, professionals, viewers, judge); err != nil {
		return nil, err
	}

	c := &model.Case{
		ID:                    uuid.New().String(),
		Title:                 params.Title,
		Description:           params.Description,
		CaseNumber:            params.CaseNumber,
		Status:                model.CaseStatusOpen,
		CreatedBy:             p.UserID,
		AssignedProfessionals: professionals,
		AssignedPublicViewers: viewers,
		AssignedJudge:         judge,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: номер дела %q уже существует", ErrConflict, c.CaseNumber)
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, validationError("назначенный пользователь не существует")
		}
		return nil, err
	}

	casesCreatedTotal.Inc()
	s.logger.Info("Дело создано",
		slog.String("case_id", c.ID),
		slog.String("case_number", c.CaseNumber),
		slog.String("created_by", p.UserID),
	)

	views, err := s.resolve(ctx, []*model.Case{c})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List возвращает дела, видимые p:
// юрист — свои, специалист и публичный наблюдатель — где назначены, судья — все.
func (s *CaseService) List(ctx context.Context, p rbac.Principal) ([]*CaseView, error) {
	if err := authorize(p, rbac.OpListCases); err != nil {
		return nil, err
	}

	var filter repository.CaseFilter
	switch p.Role {
	case rbac.RoleLawyer:
		filter.CreatedBy = p.UserID
	case rbac.RoleProfessional:
		filter.AssignedUser = p.UserID
		filter.AssignedKind = model.AssignmentProfessional
	case rbac.RolePublic:
		filter.AssignedUser = p.UserID
		filter.AssignedKind = model.AssignmentPublicViewer
	case rbac.RoleJudge:
		// без фильтра
	}

	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cases)
}

// Get возвращает дело. Публичному наблюдателю доступны только закрытые дела.
func (s *CaseService) Get(ctx context.Context, p rbac.Principal, id string) (*CaseView, error) {
	if err := authorize(p, rbac.OpGetCase); err != nil {
		return nil, err
	}

	c, err := s.getCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkCaseVisible(p, c); err != nil {
		return nil, err
	}

	views, err := s.resolve(ctx, []*model.Case{c})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// SetStatus меняет статус дела. Переходы между статусами не ограничены.
func (s *CaseService) SetStatus(ctx context.Context, p rbac.Principal, id, status string) (*CaseView, error) {
	if err := authorize(p, rbac.OpSetCaseStatus); err != nil {
		return nil, err
	}

	newStatus := model.CaseStatus(status)
	if !newStatus.IsValid() {
		return nil, validationError("недопустимый статус %q, допустимые: OPEN, UNDER_REVIEW, CLOSED", status)
	}

	c, err := s.cases.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: дело %s", ErrNotFound, id)
		}
		return nil, err
	}

	s.logger.Info("Статус дела изменён",
		slog.String("case_id", id),
		slog.String("status", status),
		slog.String("judge_id", p.UserID),
	)

	views, err := s.resolve(ctx, []*model.Case{c})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// getCase загружает дело, маппя ErrNotFound репозитория.
func (s *CaseService) getCase(ctx context.Context, id string) (*model.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: дело %s", ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

// checkCaseVisible — публичный наблюдатель видит дело и его доказательства только после закрытия.
func checkCaseVisible(p rbac.Principal, c *model.Case) error {
	if p.Role == rbac.RolePublic && c.Status != model.CaseStatusClosed {
		return fmt.Errorf("%w: дело ещё не закрыто", ErrForbidden)
	}
	return nil
}

// checkAssignees проверяет, что назначенные пользователи существуют,
// активны и имеют роль, соответствующую виду назначения.
func (s *CaseService) checkAssignees(ctx context.Context, professionals, viewers []string, judge *string) error {
	expected := make(map[string]rbac.Role, len(professionals)+len(viewers)+1)
	ids := make([]string, 0, len(professionals)+len(viewers)+1)
	add := func(id string, role rbac.Role) error {
		if prev, ok := expected[id]; ok && prev != role {
			return validationError("пользователь %s назначен с разными ролями", id)
		}
		expected[id] = role
		ids = append(ids, id)
		return nil
	}
	for _, id := range professionals {
		if err := add(id, rbac.RoleProfessional); err != nil {
			return err
		}
	}
	for _, id := range viewers {
		if err := add(id, rbac.RolePublic); err != nil {
			return err
		}
	}
	if judge != nil {
		if err := add(*judge, rbac.RoleJudge); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[string]*model.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}

	for _, id := range ids {
		u, ok := found[id]
		if !ok || !u.Active {
			return validationError("пользователь %s не найден или неактивен", id)
		}
		if u.Role != expected[id] {
			return validationError("пользователь %s имеет роль %s, ожидается %s", id, u.Role, expected[id])
		}
	}
	return nil
}

// resolve разрешает профили всех участников дел одним запросом.
func (s *CaseService) resolve(ctx context.Context, cases []*model.Case) ([]*CaseView, error) {
	var ids []string
	for _, c := range cases {
		ids = append(ids, c.CreatedBy)
		ids = append(ids, c.AssignedProfessionals...)
		ids = append(ids, c.AssignedPublicViewers...)
		if c.AssignedJudge != nil {
			ids = append(ids, *c.AssignedJudge)
		}
	}

	profiles, err := s.people.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*CaseView, len(cases))
	for i, c := range cases {
		v := &CaseView{
			Case:          c,
			CreatedBy:     profileOf(profiles, c.CreatedBy),
			Professionals: make([]model.Profile, 0, len(c.AssignedProfessionals)),
			PublicViewers: make([]model.Profile, 0, len(c.AssignedPublicViewers)),
			Judge:         optionalProfile(profiles, c.AssignedJudge),
		}
		for _, id := range c.AssignedProfessionals {
			v.Professionals = append(v.Professionals, profileOf(profiles, id))
		}
		for _, id := range c.AssignedPublicViewers {
			v.PublicViewers = append(v.PublicViewers, profileOf(profiles, id))
		}
		views[i] = v
	}
	return views, nil
}

// normalizeIDs проверяет формат UUID, приводит к каноническому виду и убирает дубликаты.
func normalizeIDs(field string, ids []string) ([]string, error) {
	result := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, validationError("%s: некорректный идентификатор %q", field, raw)
		}
		s := id.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result, nil
}
