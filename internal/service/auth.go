// auth.go — хранилище учётных данных: регистрация, вход по паролю,
// список пользователей для назначения на дела.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/repository"
)

// Ограничения длины username.
const (
	usernameMinLen = 5
	usernameMaxLen = 20
)

// TokenIssuer выпускает bearer-токены. Реализуется auth.Tokens.
type TokenIssuer interface {
	Issue(userID string, role rbac.Role) (string, time.Time, error)
}

// RegisterParams — данные регистрации.
type RegisterParams struct {
	Name     string
	Username string
	Email    string
	Password string
	// Role — пустая строка означает роль по умолчанию (PUBLIC)
	Role string
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.Profile
}

// AssignableUsers — активные пользователи, сгруппированные по ролям.
type AssignableUsers struct {
	Professionals []model.Profile
	Publics       []model.Profile
	Judges        []model.Profile
}

// AuthService — регистрация и аутентификация пользователей.
type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	people     *PeopleResolver
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService создаёт сервис учётных данных.
func NewAuthService(
	users repository.UserRepository,
	tokens TokenIssuer,
	people *PeopleResolver,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		people:     people,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "auth_service")),
	}
}

// Register создаёт пользователя и возвращает его публичный профиль.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*model.Profile, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	if params.Name == "" || params.Username == "" || params.Email == "" || params.Password == "" {
		return nil, validationError("name, userName, email и password обязательны")
	}
	if n := utf8.RuneCountInString(params.Username); n < usernameMinLen || n > usernameMaxLen {
		return nil, validationError("длина userName должна быть от %d до %d символов", usernameMinLen, usernameMaxLen)
	}

	role := rbac.DefaultRole
	if params.Role != "" {
		if !rbac.IsValidRole(params.Role) {
			return nil, validationError("недопустимая роль %q", params.Role)
		}
		role = rbac.Role(params.Role)
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, params.Email, params.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email или username уже используется", ErrConflict)
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         params.Name,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Гонка между проверкой и вставкой — ловим unique violation
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: email или username уже используется", ErrConflict)
		}
		return nil, err
	}

	usersRegisteredTotal.WithLabelValues(string(role)).Inc()
	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)

	profile := user.Profile()
	s.people.Remember(profile)
	return &profile, nil
}

// Authenticate проверяет email и пароль и выпускает токен.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		loginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			loginsTotal.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		s.logger.Debug("Неверный пароль", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	loginsTotal.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Profile()}, nil
}

// ChangePassword сохраняет новый пароль пользователя.
// В БД всегда записывается bcrypt-дайджест, открытый текст не сохраняется.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return validationError("password обязателен")
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: пользователь %s", ErrNotFound, userID)
		}
		return err
	}
	return nil
}

// ListAssignable возвращает активных специалистов, публичных наблюдателей и судей.
func (s *AuthService) ListAssignable(ctx context.Context, p rbac.Principal) (*AssignableUsers, error) {
	if err := authorize(p, rbac.OpListUsersByRole); err != nil {
		return nil, err
	}

	users, err := s.users.ListActiveByRoles(ctx,
		[]rbac.Role{rbac.RoleProfessional, rbac.RolePublic, rbac.RoleJudge})
	if err != nil {
		return nil, err
	}

	result := &AssignableUsers{
		Professionals: []model.Profile{},
		Publics:       []model.Profile{},
		Judges:        []model.Profile{},
	}
	for _, u := range users {
		switch u.Role {
		case rbac.RoleProfessional:
			result.Professionals = append(result.Professionals, u.Profile())
		case rbac.RolePublic:
			result.Publics = append(result.Publics, u.Profile())
		case rbac.RoleJudge:
			result.Judges = append(result.Judges, u.Profile())
		}
	}
	return result, nil
}

// hashPassword вычисляет bcrypt-дайджест со случайной солью.
func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validationError("password длиннее 72 байт")
		}
		return "", fmt.Errorf("хэширование пароля: %w", err)
	}
	return string(hash), nil
}
