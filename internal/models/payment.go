package models

import "time"

// Статусы платежа. Переходы только вперёд: pending -> released -> completed,
// из любого нетерминального статуса возможен переход в refunded.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusReleased  = "released"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

// Payment представляет одну эскроу-транзакцию. Пока платёж в статусе
// pending, получателем числится эскроу-счёт; при релизе получателем
// становится преподаватель.
type Payment struct {
	ID             string     // Внутренний идентификатор (uuid)
	PiPaymentID    string     // Идентификатор платежа, выданный шлюзом
	PayerID        string     // Плательщик (студент)
	PayeeID        string     // Текущий получатель: эскроу-счёт или преподаватель
	PayeeTeacherID string     // Конечный получатель (преподаватель)
	SubscriptionID *string    // Подписка, которую финансирует платёж
	Amount         float64    // Сумма в единицах платформы
	Status         string     // Статус жизненного цикла
	Txid           *string    // Подтверждение расчёта от шлюза
	RefundTxid     *string    // Подтверждение возврата
	FromWallet     *string    // Кошелёк плательщика из ответа шлюза
	ToWallet       *string    // Кошелёк получателя из ответа шлюза
	PayoutKey      *string    // Идемпотентный ключ выплаты
	PaidAt         *time.Time // Момент выплаты преподавателю
	CreatedAt      time.Time
}

// IsTerminal сообщает, находится ли платёж в финальном статусе.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusRefunded
}

// ApprovePaymentRequest — DTO запроса на подтверждение платежа.
type ApprovePaymentRequest struct {
	PaymentID string  `json:"payment_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required,uuid"`
	TeacherID string  `json:"teacher_id" validate:"required,uuid"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// CompletePaymentRequest — DTO запроса на завершение платежа.
// Txid — подтверждение расчёта, полученное клиентом от кошелька.
type CompletePaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Txid      string `json:"txid" validate:"required"`
	StudentID string `json:"student_id" validate:"required,uuid"`
	ServiceID string `json:"service_id" validate:"required,uuid"`
	PlanName  string `json:"plan_name"`
}

// RefundPaymentRequest — DTO запроса на возврат платежа.
type RefundPaymentRequest struct {
	PaymentID  string `json:"payment_id" validate:"required"`
	RefundTxid string `json:"refund_txid" validate:"required"`
}

// PayoutResult — результат обработки одного платежа при выплате.
type PayoutResult struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"` // completed или skipped
	Reason    string `json:"reason,omitempty"`
	Txid      string `json:"txid,omitempty"`
}
