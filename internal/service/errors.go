// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/casevault/internal/domain/rbac"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — роль или владение не позволяют выполнить операцию.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrTooLarge — загружаемый файл превышает допустимый размер.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrIO — ошибка чтения или записи файла доказательства.
	ErrIO = errors.New("ошибка ввода-вывода")
)

// validationError формирует ErrValidation с описанием.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// authorize проверяет операцию по таблице capabilities.
func authorize(p rbac.Principal, op rbac.Operation) error {
	if err := rbac.Authorize(p.Role, op); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err) //nolint:errorlint // намеренный двойной wrap
	}
	return nil
}
