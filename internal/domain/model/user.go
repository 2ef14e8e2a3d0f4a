// Пакет model — доменные модели casevault.
package model

import (
	"time"

	"github.com/bigkaa/casevault/internal/domain/rbac"
)

// User — учётная запись пользователя.
// Хранится в таблице users, никогда не удаляется физически.
type User struct {
	// ID — UUID пользователя
	ID string
	// Name — отображаемое имя
	Name string
	// Username — уникальное имя пользователя
	Username string
	// Email — уникальный адрес электронной почты
	Email string
	// PasswordHash — bcrypt-дайджест пароля (никогда не отдаётся наружу)
	PasswordHash string
	// Role — роль пользователя
	Role rbac.Role
	// Active — учётная запись активна
	Active bool
	// RefreshTokens — зарезервировано, в текущих сценариях не используется
	RefreshTokens []string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Profile — публичные поля пользователя для отображения в делах и доказательствах.
type Profile struct {
	ID    string
	Name  string
	Email string
	Role  rbac.Role
}

// Profile возвращает публичный профиль пользователя.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
