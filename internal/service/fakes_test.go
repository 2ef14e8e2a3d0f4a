package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/repository"
)

// --- In-memory репозитории для unit-тестов ---

// memUsers — in-memory UserRepository.
type memUsers struct {
	mu       sync.Mutex
	byID     map[string]*model.User
	getByIDs int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*model.User)}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDs++
	var result []*model.User
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memUsers) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) ListActiveByRoles(_ context.Context, roles []rbac.Role) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.User
	for _, u := range m.byID {
		if !u.Active {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				cp := *u
				result = append(result, &cp)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memUsers) SetPassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// memCases — in-memory CaseRepository.
type memCases struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*model.Case
}

func newMemCases() *memCases {
	return &memCases{byID: make(map[string]*model.Case)}
}

func (m *memCases) Create(_ context.Context, c *model.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.CaseNumber == c.CaseNumber {
			return repository.ErrConflict
		}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.byID[c.ID] = cloneCase(c)
	m.order = append(m.order, c.ID)
	return nil
}

func (m *memCases) GetByID(_ context.Context, id string) (*model.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCase(c), nil
}

func (m *memCases) List(_ context.Context, filter repository.CaseFilter) ([]*model.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Case
	for i := len(m.order) - 1; i >= 0; i-- {
		c := m.byID[m.order[i]]
		if filter.CreatedBy != "" && c.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.AssignedUser != "" {
			list := c.AssignedProfessionals
			if filter.AssignedKind == model.AssignmentPublicViewer {
				list = c.AssignedPublicViewers
			}
			if !contains(list, filter.AssignedUser) {
				continue
			}
		}
		result = append(result, cloneCase(c))
	}
	return result, nil
}

func (m *memCases) UpdateStatus(_ context.Context, id string, status model.CaseStatus) (*model.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return cloneCase(c), nil
}

func cloneCase(c *model.Case) *model.Case {
	cp := *c
	cp.AssignedProfessionals = append([]string(nil), c.AssignedProfessionals...)
	cp.AssignedPublicViewers = append([]string(nil), c.AssignedPublicViewers...)
	return &cp
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// memEvidence — in-memory EvidenceRepository.
type memEvidence struct {
	mu        sync.Mutex
	order     []string
	byID      map[string]*model.Evidence
	createErr error
}

func newMemEvidence() *memEvidence {
	return &memEvidence{byID: make(map[string]*model.Evidence)}
}

func (m *memEvidence) Create(_ context.Context, e *model.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.byID[e.ID] = &cp
	m.order = append(m.order, e.ID)
	return nil
}

func (m *memEvidence) GetByID(_ context.Context, id string) (*model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEvidence) ListByCase(_ context.Context, caseID string) ([]*model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Evidence
	for _, id := range m.order {
		if e := m.byID[id]; e.CaseID == caseID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memEvidence) SetVerified(_ context.Context, id, verifiedBy string) (*model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.Status = model.EvidenceVerified
	e.VerifiedBy = &verifiedBy
	cp := *e
	return &cp, nil
}

func (m *memEvidence) SetDecision(_ context.Context, id string, status model.EvidenceStatus, approvedBy string) (*model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.Status = status
	e.ApprovedBy = &approvedBy
	cp := *e
	return &cp, nil
}

// --- Вспомогательные функции ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture — набор сервисов поверх in-memory репозиториев.
type fixture struct {
	users    *memUsers
	cases    *memCases
	evidence *memEvidence
	people   *PeopleResolver
	auth     *AuthService
	caseSvc  *CaseService
}

// stubTokens — TokenIssuer без подписи.
type stubTokens struct{}

func (stubTokens) Issue(userID string, role rbac.Role) (string, time.Time, error) {
	return "token-" + userID + "-" + string(role), time.Now().Add(time.Hour), nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newMemUsers(),
		cases:    newMemCases(),
		evidence: newMemEvidence(),
	}
	f.people = NewPeopleResolver(f.users, 128, time.Minute)
	f.auth = NewAuthService(f.users, stubTokens{}, f.people, 4, testLogger())
	f.caseSvc = NewCaseService(f.cases, f.users, f.people, testLogger())
	return f
}

// register регистрирует пользователя и возвращает его Principal.
func (f *fixture) register(t *testing.T, username string, role rbac.Role) rbac.Principal {
	t.Helper()
	profile, err := f.auth.Register(context.Background(), RegisterParams{
		Name:     "Name " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("Register(%s) ошибка: %v", username, err)
	}
	return rbac.Principal{UserID: profile.ID, Role: profile.Role}
}
