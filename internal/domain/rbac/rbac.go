// Пакет rbac — роли пользователей и таблица возможностей (capabilities).
// Каждая операция API объявляет допустимые роли как данные; проверка
// выполняется единообразно через Authorize, а не ветвлением в обработчиках.
package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role — роль пользователя.
type Role string

// Роли системы.
const (
	RoleLawyer       Role = "LAWYER"
	RoleProfessional Role = "PROFESSIONAL"
	RoleJudge        Role = "JUDGE"
	RolePublic       Role = "PUBLIC"
)

// DefaultRole — роль при регистрации без явного указания.
const DefaultRole = RolePublic

// allRoles — все допустимые роли.
var allRoles = []Role{RoleLawyer, RoleProfessional, RoleJudge, RolePublic}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	for _, r := range allRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}

// Operation — операция API, для которой задан набор допустимых ролей.
type Operation string

// Операции API.
const (
	OpListUsersByRole  Operation = "users.by_role"
	OpCreateCase       Operation = "cases.create"
	OpListCases        Operation = "cases.list"
	OpGetCase          Operation = "cases.get"
	OpSetCaseStatus    Operation = "cases.set_status"
	OpUploadEvidence   Operation = "evidences.upload"
	OpListEvidence     Operation = "evidences.list"
	OpDownloadEvidence Operation = "evidences.download"
	OpVerifyEvidence   Operation = "evidences.verify"
	OpDecideEvidence   Operation = "evidences.decide"
)

// capabilities — таблица допустимых ролей для каждой операции.
// nil — операция доступна любой аутентифицированной роли.
var capabilities = map[Operation][]Role{
	OpListUsersByRole:  {RoleLawyer},
	OpCreateCase:       {RoleLawyer},
	OpListCases:        nil,
	OpGetCase:          nil,
	OpSetCaseStatus:    {RoleJudge},
	OpUploadEvidence:   {RoleLawyer},
	OpListEvidence:     nil,
	OpDownloadEvidence: nil,
	OpVerifyEvidence:   {RoleProfessional},
	OpDecideEvidence:   {RoleJudge},
}

// ErrForbidden — роль не входит в набор допустимых для операции.
var ErrForbidden = errors.New("недостаточно прав")

// Principal — аутентифицированный субъект запроса.
// Единственный источник — payload bearer-токена.
type Principal struct {
	UserID string
	Role   Role
}

// AllowedRoles возвращает допустимые роли операции.
// Второй результат false — операция неизвестна.
func AllowedRoles(op Operation) ([]Role, bool) {
	roles, ok := capabilities[op]
	return roles, ok
}

// Authorize проверяет, допустима ли операция op для роли role.
// Неизвестная операция запрещена для всех.
func Authorize(role Role, op Operation) error {
	roles, ok := capabilities[op]
	if !ok {
		return fmt.Errorf("%w: неизвестная операция %s", ErrForbidden, op)
	}
	if !IsValidRole(string(role)) {
		return fmt.Errorf("%w: неизвестная роль %q", ErrForbidden, role)
	}
	if roles == nil {
		return nil
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: операция %s требует роль %s", ErrForbidden, op, joinRoles(roles))
}

// joinRoles форматирует список ролей для сообщений об ошибках.
func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " или ")
}
