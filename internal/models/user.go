// Package models содержит доменные структуры маркетплейса: пользователей,
// услуги, платежи и подписки, а также DTO для входящих JSON-запросов.
package models

import "time"

// Роли пользователей.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// User представляет пользователя, идентифицированного кошельковой платформой.
// Поля идентичности после создания не меняются, адрес кошелька может быть
// дозаполнен позже, когда станет известен из ответа шлюза.
type User struct {
	ID            string    // Внутренний идентификатор (uuid)
	PlatformUID   string    // Идентификатор, выданный SDK кошелька
	Username      string    // Отображаемое имя
	WalletAddress string    // Адрес кошелька, может быть пустым
	Role          string    // student или teacher
	CreatedAt     time.Time // Дата создания записи
}

// SyncUserRequest — DTO запроса на синхронизацию пользователя.
type SyncUserRequest struct {
	UID      string `json:"uid" validate:"required"`
	Username string `json:"username"`
	Wallet   string `json:"wallet"`
}
