package models

import "time"

// Статусы подписки. Статус cancelled терминальный.
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription представляет доступ студента к услуге преподавателя на
// оплаченный период. Статус active допустим только при наличии хотя бы
// одного платежа в статусе released или completed.
type Subscription struct {
	ID        string    // Идентификатор подписки (uuid)
	UserID    string    // Студент
	TeacherID string    // Преподаватель
	ServiceID string    // Оплаченная услуга
	PlanName  string    // Название плана
	Amount    float64   // Цена за период
	EndDate   time.Time // Дата окончания оплаченного периода
	Status    string    // pending, active или cancelled
	CreatedAt time.Time
}

// SubscriptionEntry — подписка вместе с названием услуги, как её видит
// студент в списке.
type SubscriptionEntry struct {
	Subscription
	ServiceName string
}

// CreateSubscriptionRequest — DTO запроса на ручное создание подписки.
type CreateSubscriptionRequest struct {
	StudentID    string  `json:"student_id" validate:"required,uuid"`
	TeacherID    string  `json:"teacher_id" validate:"required,uuid"`
	ServiceID    string  `json:"service_id" validate:"required,uuid"`
	PlanName     string  `json:"plan_name" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	DurationDays int     `json:"duration_days" validate:"required,gt=0"`
}

// ActivateSubscriptionRequest — DTO запроса на активацию подписки.
// TeacherWallet опционален и используется только для дозаполнения адреса
// кошелька преподавателя.
type ActivateSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	TeacherWallet  string `json:"teacher_wallet"`
}
