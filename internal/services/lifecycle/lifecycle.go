// Package lifecycle реализует эскроу-цикл платежа: approve, complete,
// activate и refund. Машина состояний платежа:
//
//	pending --(complete ok)--> released --(payout ok)--> completed
//	любой нетерминальный --(refund ok)--> refunded
//
// Строки платежей создаются и мутируются только здесь. Порядок операций в
// Approve жёсткий: сначала шлюз, потом хранилище — иначе в базе появляются
// фантомные pending-платежи, которых шлюз никогда не одобрял.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
	"github.com/magabrotheeeer/escrow-marketplace/internal/pigateway"
)

// Repository определяет методы хранилища, нужные платёжному циклу.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, bool, error)
	UpdateUserWallet(ctx context.Context, userID, wallet string) error
	GetService(ctx context.Context, id string) (*models.Service, bool, error)
	CreatePayment(ctx context.Context, piPaymentID, payerID, payeeID, payeeTeacherID string, amount float64) (*models.Payment, error)
	GetPaymentByProviderID(ctx context.Context, piPaymentID string) (*models.Payment, bool, error)
	MarkPaymentReleased(ctx context.Context, piPaymentID, subscriptionID, txid, fromWallet, toWallet, payeeID string) (*models.Payment, error)
	MarkPaymentRefunded(ctx context.Context, piPaymentID, refundTxid string) (*models.Payment, error)
	ReleaseSubscriptionPayments(ctx context.Context, subscriptionID, payeeID string) ([]*models.Payment, error)
	ListPaymentsBySubscription(ctx context.Context, subscriptionID string) ([]*models.Payment, error)
	CreateSubscription(ctx context.Context, userID, teacherID, serviceID, planName string, amount float64, endDate time.Time) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*models.Subscription, bool, error)
	ActivateSubscription(ctx context.Context, id string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
}

// Gateway определяет операции внешнего платёжного шлюза.
type Gateway interface {
	Approve(ctx context.Context, paymentID string) (*pigateway.PaymentResponse, error)
	Complete(ctx context.Context, paymentID, txid string) (*pigateway.PaymentResponse, error)
	Refund(ctx context.Context, paymentID, refundTxid string) (*pigateway.PaymentResponse, error)
}

// Events публикует события платёжного цикла. Публикация не влияет на
// результат операции.
type Events interface {
	Publish(routingKey string, message any) error
}

// Service оркестрирует вызовы шлюза и мутации хранилища.
type Service struct {
	repo    Repository
	gateway Gateway
	events  Events
	log     *slog.Logger

	escrowAccountID string
	renewalPeriod   time.Duration
}

// New создаёт сервис платёжного цикла. events может быть nil.
func New(repo Repository, gateway Gateway, events Events, log *slog.Logger, escrowAccountID string, renewalPeriod time.Duration) *Service {
	return &Service{
		repo:            repo,
		gateway:         gateway,
		events:          events,
		log:             log,
		escrowAccountID: escrowAccountID,
		renewalPeriod:   renewalPeriod,
	}
}

func (s *Service) publish(routingKey string, message any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, message); err != nil {
		s.log.Warn("failed to publish payment event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// CompleteResult — результат завершения платежа.
type CompleteResult struct {
	Payment      *models.Payment      `json:"payment"`
	Subscription *models.Subscription `json:"subscription"`
}

// ActivateResult — результат активации подписки.
type ActivateResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Payments     []*models.Payment    `json:"payments"`
}

// RefundResult — результат возврата платежа.
type RefundResult struct {
	Payment *models.Payment `json:"payment"`
}

// Approve одобряет платёж на шлюзе и заводит pending-платёж в хранилище.
// Получателем до релиза числится эскроу-счёт, конечный преподаватель
// запоминается отдельно. Никакая запись не делается до успеха шлюза.
func (s *Service) Approve(ctx context.Context, req models.ApprovePaymentRequest) (*models.Payment, error) {
	const op = "lifecycle.Approve"
	log := s.log.With(slog.String("op", op), slog.String("payment_id", req.PaymentID))

	if _, found, err := s.repo.GetUserByID(ctx, req.StudentID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if !found {
		return nil, fmt.Errorf("%s: student %s: %w", op, req.StudentID, ErrUserNotFound)
	}
	if _, found, err := s.repo.GetUserByID(ctx, req.TeacherID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if !found {
		return nil, fmt.Errorf("%s: teacher %s: %w", op, req.TeacherID, ErrUserNotFound)
	}

	approveData, err := s.gateway.Approve(ctx, req.PaymentID)
	if err != nil {
		log.Error("gateway approve failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRejected, err)
	}
	log.Info("gateway approved payment")

	amount := req.Amount
	if approveData.Amount > 0 {
		amount = approveData.Amount
	}

	payment, err := s.repo.CreatePayment(ctx, req.PaymentID, req.StudentID, s.escrowAccountID, req.TeacherID, amount)
	if err != nil {
		// Шлюз платёж одобрил, а строки в базе нет: оставляем след для сверки.
		log.Error("payment approved by gateway but not persisted", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
	}

	log.Info("payment created", slog.String("status", payment.Status))
	s.publish("approved", payment)
	return payment, nil
}

// Complete подтверждает расчёт платежа на шлюзе, создаёт pending-подписку
// на период продления и переводит платёж в released. Кошелёк плательщика из
// ответа шлюза дозаполняется на его записи.
func (s *Service) Complete(ctx context.Context, req models.CompletePaymentRequest) (*CompleteResult, error) {
	const op = "lifecycle.Complete"
	log := s.log.With(slog.String("op", op), slog.String("payment_id", req.PaymentID))

	payment, found, err := s.repo.GetPaymentByProviderID(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %s: %w", op, req.PaymentID, ErrPaymentNotFound)
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("%s: %s is %s: %w", op, req.PaymentID, payment.Status, ErrAlreadyTerminal)
	}

	service, found, err := s.repo.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %s: %w", op, req.ServiceID, ErrServiceNotFound)
	}

	completeData, err := s.gateway.Complete(ctx, req.PaymentID, req.Txid)
	if err != nil {
		log.Error("gateway complete failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRejected, err)
	}
	log.Info("gateway completed payment", slog.String("txid", req.Txid))

	planName := req.PlanName
	if planName == "" {
		planName = service.Name
	}
	amount := completeData.Amount
	if amount == 0 {
		amount = payment.Amount
	}
	endDate := time.Now().Add(s.renewalPeriod)

	subscription, err := s.repo.CreateSubscription(ctx, req.StudentID, service.OwnerID, service.ID, planName, amount, endDate)
	if err != nil {
		log.Error("payment completed by gateway but subscription not persisted", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
	}

	updated, err := s.repo.MarkPaymentReleased(ctx, req.PaymentID, subscription.ID, req.Txid,
		completeData.PayerWallet(), completeData.PayeeWallet(), service.OwnerID)
	if err != nil {
		log.Error("payment completed by gateway but not released in store", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
	}
	if updated == nil {
		// Условный UPDATE не нашёл pending-строку: платёж уже ушёл вперёд.
		return nil, fmt.Errorf("%s: %s: %w", op, req.PaymentID, ErrAlreadyTerminal)
	}

	if err := s.repo.UpdateUserWallet(ctx, req.StudentID, completeData.PayerWallet()); err != nil {
		log.Warn("failed to backfill payer wallet", sl.Err(err))
	}

	log.Info("payment released", slog.String("subscription_id", subscription.ID))
	s.publish("released", updated)
	return &CompleteResult{Payment: updated, Subscription: subscription}, nil
}

// Activate переводит подписку в active и отпускает из эскроу все её
// платежи, ещё не находящиеся в released или терминальном статусе.
// Конечным получателем становится преподаватель подписки. Операция
// идемпотентна: повторный вызов возвращает текущее состояние без мутаций.
func (s *Service) Activate(ctx context.Context, subscriptionID, teacherWallet string) (*ActivateResult, error) {
	const op = "lifecycle.Activate"
	log := s.log.With(slog.String("op", op), slog.String("subscription_id", subscriptionID))

	subscription, err := s.repo.ActivateSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subscription == nil {
		existing, found, err := s.repo.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			return nil, fmt.Errorf("%s: %s: %w", op, subscriptionID, ErrSubscriptionNotFound)
		}
		// Существует, но cancelled — терминальный статус не реанимируем.
		return nil, fmt.Errorf("%s: subscription %s is %s: %w", op, subscriptionID, existing.Status, ErrAlreadyTerminal)
	}

	released, err := s.repo.ReleaseSubscriptionPayments(ctx, subscriptionID, subscription.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(released) > 0 {
		log.Info("payments released from escrow", slog.Int("count", len(released)))
		for _, p := range released {
			s.publish("released", p)
		}
	}

	if teacherWallet != "" {
		if err := s.repo.UpdateUserWallet(ctx, subscription.TeacherID, teacherWallet); err != nil {
			log.Warn("failed to backfill teacher wallet", sl.Err(err))
		}
	}

	payments, err := s.repo.ListPaymentsBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription activated", slog.Int("payments", len(payments)))
	return &ActivateResult{Subscription: subscription, Payments: payments}, nil
}

// Refund запрашивает возврат на шлюзе, переводит платёж в refunded и
// отменяет связанную подписку. Терминальные платежи не возвращаются.
func (s *Service) Refund(ctx context.Context, req models.RefundPaymentRequest) (*RefundResult, error) {
	const op = "lifecycle.Refund"
	log := s.log.With(slog.String("op", op), slog.String("payment_id", req.PaymentID))

	payment, found, err := s.repo.GetPaymentByProviderID(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %s: %w", op, req.PaymentID, ErrPaymentNotFound)
	}
	if payment.IsTerminal() {
		return nil, fmt.Errorf("%s: %s is %s: %w", op, req.PaymentID, payment.Status, ErrAlreadyTerminal)
	}

	if _, err := s.gateway.Refund(ctx, req.PaymentID, req.RefundTxid); err != nil {
		log.Error("gateway refund failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayRejected, err)
	}

	updated, err := s.repo.MarkPaymentRefunded(ctx, req.PaymentID, req.RefundTxid)
	if err != nil {
		log.Error("payment refunded by gateway but not marked in store", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%s: %s: %w", op, req.PaymentID, ErrAlreadyTerminal)
	}

	if updated.SubscriptionID != nil {
		if err := s.repo.CancelSubscription(ctx, *updated.SubscriptionID); err != nil {
			log.Error("payment refunded but subscription not cancelled", sl.Err(err))
			return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
		}
		log.Info("subscription cancelled", slog.String("subscription_id", *updated.SubscriptionID))
	}

	log.Info("payment refunded", slog.String("refund_txid", req.RefundTxid))
	s.publish("refunded", updated)
	return &RefundResult{Payment: updated}, nil
}
