package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/casevault/internal/config"
	"github.com/bigkaa/casevault/internal/database"
	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool, закрываемый в t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("casevault_test"),
		postgres.WithUsername("casevault"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("CV_DB_HOST", host)
	t.Setenv("CV_DB_PORT", port.Port())
	t.Setenv("CV_DB_NAME", "casevault_test")
	t.Setenv("CV_DB_USER", "casevault")
	t.Setenv("CV_DB_PASSWORD", "test-password")
	t.Setenv("CV_DB_SSL_MODE", "disable")
	t.Setenv("CV_JWT_SECRET", strings.Repeat("k", 32))

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// createUser создаёт пользователя с указанной ролью.
func createUser(t *testing.T, repo UserRepository, username string, role rbac.Role) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         "User " + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         role,
		Active:       true,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) ошибка: %v", username, err)
	}
	return u
}

// --- Тесты UserRepository ---

func TestUserRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	lawyer := createUser(t, repo, "lawyer1", rbac.RoleLawyer)
	if lawyer.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// GetByEmail
	got, err := repo.GetByEmail(ctx, "lawyer1@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() ошибка: %v", err)
	}
	if got.ID != lawyer.ID || got.Role != rbac.RoleLawyer || !got.Active {
		t.Errorf("GetByEmail() = %+v", got)
	}
	if len(got.RefreshTokens) != 0 {
		t.Errorf("RefreshTokens = %v, ожидается пустой", got.RefreshTokens)
	}

	// Не найден
	if _, err := repo.GetByID(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(unknown) = %v, ожидается ErrNotFound", err)
	}

	// Дубликат email
	dup := &model.User{
		ID: uuid.New().String(), Name: "Dup", Username: "another1",
		Email: "lawyer1@example.com", PasswordHash: "x", Role: rbac.RolePublic, Active: true,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create(дубликат email) = %v, ожидается ErrConflict", err)
	}

	exists, err := repo.ExistsByEmailOrUsername(ctx, "nobody@example.com", "lawyer1")
	if err != nil {
		t.Fatalf("ExistsByEmailOrUsername() ошибка: %v", err)
	}
	if !exists {
		t.Error("ExistsByEmailOrUsername() = false для занятого username")
	}

	// SetPassword
	if err := repo.SetPassword(ctx, lawyer.ID, "$2a$10$other"); err != nil {
		t.Fatalf("SetPassword() ошибка: %v", err)
	}
	got, _ = repo.GetByID(ctx, lawyer.ID)
	if got.PasswordHash != "$2a$10$other" {
		t.Errorf("PasswordHash = %q после SetPassword", got.PasswordHash)
	}
	if err := repo.SetPassword(ctx, uuid.New().String(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPassword(unknown) = %v, ожидается ErrNotFound", err)
	}
}

func TestUserRepository_ListActiveByRoles(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	createUser(t, repo, "lawyer1", rbac.RoleLawyer)
	prof := createUser(t, repo, "prof01", rbac.RoleProfessional)
	judge := createUser(t, repo, "judge1", rbac.RoleJudge)
	inactive := createUser(t, repo, "judge2", rbac.RoleJudge)
	if _, err := pool.Exec(ctx, `UPDATE users SET active = FALSE WHERE id = $1`, inactive.ID); err != nil {
		t.Fatalf("деактивация: %v", err)
	}

	users, err := repo.ListActiveByRoles(ctx, []rbac.Role{rbac.RoleProfessional, rbac.RoleJudge})
	if err != nil {
		t.Fatalf("ListActiveByRoles() ошибка: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListActiveByRoles() = %d пользователей, ожидается 2", len(users))
	}

	byID, err := repo.GetByIDs(ctx, []string{prof.ID, judge.ID, uuid.New().String()})
	if err != nil {
		t.Fatalf("GetByIDs() ошибка: %v", err)
	}
	if len(byID) != 2 {
		t.Errorf("GetByIDs() = %d пользователей, ожидается 2", len(byID))
	}
}

// --- Тесты CaseRepository ---

func TestCaseRepository_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	repo := NewCaseRepository(pool)

	lawyer := createUser(t, users, "lawyer1", rbac.RoleLawyer)
	p1 := createUser(t, users, "prof01", rbac.RoleProfessional)
	p2 := createUser(t, users, "prof02", rbac.RoleProfessional)
	viewer := createUser(t, users, "viewer1", rbac.RolePublic)
	judge := createUser(t, users, "judge1", rbac.RoleJudge)

	c := &model.Case{
		ID:                    uuid.New().String(),
		Title:                 "Theft",
		CaseNumber:            "C-001",
		Status:                model.CaseStatusOpen,
		CreatedBy:             lawyer.ID,
		AssignedProfessionals: []string{p2.ID, p1.ID},
		AssignedPublicViewers: []string{viewer.ID},
		AssignedJudge:         &judge.ID,
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Status != model.CaseStatusOpen || got.CreatedBy != lawyer.ID {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.AssignedProfessionals) != 2 || got.AssignedProfessionals[0] != p2.ID {
		t.Errorf("AssignedProfessionals = %v, ожидается [%s %s]", got.AssignedProfessionals, p2.ID, p1.ID)
	}
	if len(got.AssignedPublicViewers) != 1 || got.AssignedPublicViewers[0] != viewer.ID {
		t.Errorf("AssignedPublicViewers = %v", got.AssignedPublicViewers)
	}
	if got.AssignedJudge == nil || *got.AssignedJudge != judge.ID {
		t.Errorf("AssignedJudge = %v", got.AssignedJudge)
	}

	// Дубликат номера дела — запись не создаётся
	dup := &model.Case{
		ID: uuid.New().String(), Title: "Other", CaseNumber: "C-001",
		Status: model.CaseStatusOpen, CreatedBy: lawyer.ID,
		AssignedProfessionals: []string{p1.ID},
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("Create(дубликат) = %v, ожидается ErrConflict", err)
	}
	if _, err := repo.GetByID(ctx, dup.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("дубликат сохранён: %v", err)
	}

	// Несуществующий назначенный пользователь — транзакция откатывается
	bad := &model.Case{
		ID: uuid.New().String(), Title: "Bad", CaseNumber: "C-002",
		Status: model.CaseStatusOpen, CreatedBy: lawyer.ID,
		AssignedPublicViewers: []string{uuid.New().String()},
	}
	if err := repo.Create(ctx, bad); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("Create(неизвестный пользователь) = %v, ожидается ErrInvalidReference", err)
	}
	if _, err := repo.GetByID(ctx, bad.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("дело сохранено без назначений: %v", err)
	}

	// UpdateStatus
	updated, err := repo.UpdateStatus(ctx, c.ID, model.CaseStatusClosed)
	if err != nil {
		t.Fatalf("UpdateStatus() ошибка: %v", err)
	}
	if updated.Status != model.CaseStatusClosed || len(updated.AssignedProfessionals) != 2 {
		t.Errorf("UpdateStatus() = %+v", updated)
	}
	if _, err := repo.UpdateStatus(ctx, uuid.New().String(), model.CaseStatusOpen); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(unknown) = %v, ожидается ErrNotFound", err)
	}
}

func TestCaseRepository_ListFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	repo := NewCaseRepository(pool)

	l1 := createUser(t, users, "lawyer1", rbac.RoleLawyer)
	l2 := createUser(t, users, "lawyer2", rbac.RoleLawyer)
	prof := createUser(t, users, "prof01", rbac.RoleProfessional)
	viewer := createUser(t, users, "viewer1", rbac.RolePublic)

	newCase := func(number, owner string, profs, viewers []string) {
		c := &model.Case{
			ID: uuid.New().String(), Title: number, CaseNumber: number,
			Status: model.CaseStatusOpen, CreatedBy: owner,
			AssignedProfessionals: profs, AssignedPublicViewers: viewers,
		}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", number, err)
		}
	}
	newCase("C-1", l1.ID, []string{prof.ID}, nil)
	newCase("C-2", l1.ID, nil, []string{viewer.ID})
	newCase("C-3", l2.ID, []string{prof.ID}, []string{viewer.ID})
	newCase("C-4", l2.ID, nil, nil)

	tests := []struct {
		name   string
		filter CaseFilter
		want   int
	}{
		{"без фильтра", CaseFilter{}, 4},
		{"созданные lawyer1", CaseFilter{CreatedBy: l1.ID}, 2},
		{"назначен специалист", CaseFilter{AssignedUser: prof.ID, AssignedKind: model.AssignmentProfessional}, 2},
		{"назначен наблюдатель", CaseFilter{AssignedUser: viewer.ID, AssignedKind: model.AssignmentPublicViewer}, 2},
		{"вид назначения учитывается", CaseFilter{AssignedUser: prof.ID, AssignedKind: model.AssignmentPublicViewer}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() ошибка: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() = %d дел, ожидается %d", len(got), tt.want)
			}
		})
	}
}

// --- Тесты EvidenceRepository ---

func TestEvidenceRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	cases := NewCaseRepository(pool)
	repo := NewEvidenceRepository(pool)

	lawyer := createUser(t, users, "lawyer1", rbac.RoleLawyer)
	prof := createUser(t, users, "prof01", rbac.RoleProfessional)
	judge := createUser(t, users, "judge1", rbac.RoleJudge)

	c := &model.Case{
		ID: uuid.New().String(), Title: "Theft", CaseNumber: "C-001",
		Status: model.CaseStatusOpen, CreatedBy: lawyer.ID,
	}
	if err := cases.Create(ctx, c); err != nil {
		t.Fatalf("Create(case) ошибка: %v", err)
	}

	e := &model.Evidence{
		ID:               uuid.New().String(),
		CaseID:           c.ID,
		UploadedBy:       lawyer.ID,
		Type:             model.EvidenceDocument,
		FilePath:         "2026/10/19/hello.txt",
		OriginalFileName: "hello.txt",
		MimeType:         "text/plain",
		SHA256Hash:       "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SizeBytes:        5,
		Status:           model.EvidenceUploaded,
	}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	list, err := repo.ListByCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListByCase() ошибка: %v", err)
	}
	if len(list) != 1 || list[0].SHA256Hash != e.SHA256Hash || list[0].VerifiedBy != nil {
		t.Fatalf("ListByCase() = %+v", list)
	}

	verified, err := repo.SetVerified(ctx, e.ID, prof.ID)
	if err != nil {
		t.Fatalf("SetVerified() ошибка: %v", err)
	}
	if verified.Status != model.EvidenceVerified || verified.VerifiedBy == nil || *verified.VerifiedBy != prof.ID {
		t.Errorf("SetVerified() = %+v", verified)
	}

	decided, err := repo.SetDecision(ctx, e.ID, model.EvidenceRejected, judge.ID)
	if err != nil {
		t.Fatalf("SetDecision() ошибка: %v", err)
	}
	if decided.Status != model.EvidenceRejected || decided.ApprovedBy == nil || *decided.ApprovedBy != judge.ID {
		t.Errorf("SetDecision() = %+v", decided)
	}
	if decided.VerifiedBy == nil {
		t.Error("VerifiedBy потерян после решения")
	}

	if _, err := repo.SetVerified(ctx, uuid.New().String(), prof.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetVerified(unknown) = %v, ожидается ErrNotFound", err)
	}

	orphan := *e
	orphan.ID = uuid.New().String()
	orphan.CaseID = uuid.New().String()
	if err := repo.Create(ctx, &orphan); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("Create(неизвестное дело) = %v, ожидается ErrInvalidReference", err)
	}
}
