// Package payout реализует выплату released-платежей преподавателям.
// Свипер работает в режиме at-least-once: неудачный перевод оставляет
// платёж в released и будет повторён следующим проходом, а идемпотентный
// ключ, закреплённый за платежом, защищает от двойной выплаты на стороне
// шлюза. Ошибки отдельных платежей не прерывают обработку остальных.
package payout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
	"github.com/magabrotheeeer/escrow-marketplace/internal/pigateway"
)

// Repository определяет методы хранилища, нужные свиперу.
type Repository interface {
	ListUnsettledPayments(ctx context.Context) ([]*models.Payment, error)
	GetUserByID(ctx context.Context, id string) (*models.User, bool, error)
	ClaimPayoutKey(ctx context.Context, paymentID, key string) (string, error)
	MarkPaymentCompleted(ctx context.Context, paymentID string) (bool, error)
}

// Gateway определяет операцию перевода средств.
type Gateway interface {
	Transfer(ctx context.Context, req pigateway.TransferRequest, idempotencyKey string) (*pigateway.TransferResponse, error)
}

// Events публикует события выплат.
type Events interface {
	Publish(routingKey string, message any) error
}

// Service — сервис выплат.
type Service struct {
	repo    Repository
	gateway Gateway
	events  Events
	log     *slog.Logger
}

// New создаёт сервис выплат. events может быть nil.
func New(repo Repository, gateway Gateway, events Events, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		events:  events,
		log:     log,
	}
}

// SweepPending обходит released-платежи без отметки о выплате и переводит
// каждую сумму на кошелёк конечного получателя. Платёж без разрешимого
// кошелька пропускается с причиной в результате. Уже выплаченные платежи в
// выборку не попадают, а условная отметка completed гарантирует, что
// конкурентные проходы не зафиксируют одну выплату дважды.
func (s *Service) SweepPending(ctx context.Context) ([]models.PayoutResult, error) {
	const op = "payout.SweepPending"
	log := s.log.With(slog.String("op", op))

	payments, err := s.repo.ListUnsettledPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(payments) == 0 {
		log.Info("no payments to payout")
		return []models.PayoutResult{}, nil
	}
	log.Info("found payments to payout", slog.Int("count", len(payments)))

	results := make([]models.PayoutResult, 0, len(payments))
	for _, p := range payments {
		results = append(results, s.payout(ctx, log, p))
	}
	return results, nil
}

func (s *Service) payout(ctx context.Context, log *slog.Logger, p *models.Payment) models.PayoutResult {
	skipped := func(reason string, err error) models.PayoutResult {
		if err != nil {
			log.Warn("payout skipped", slog.String("payment_id", p.ID), slog.String("reason", reason), sl.Err(err))
		} else {
			log.Warn("payout skipped", slog.String("payment_id", p.ID), slog.String("reason", reason))
		}
		return models.PayoutResult{PaymentID: p.ID, Status: "skipped", Reason: reason}
	}

	payee, found, err := s.repo.GetUserByID(ctx, p.PayeeID)
	if err != nil {
		return skipped("failed to fetch payee", err)
	}
	if !found || payee.WalletAddress == "" {
		return skipped("payee wallet address is not resolvable", nil)
	}

	key, err := s.repo.ClaimPayoutKey(ctx, p.ID, uuid.New().String())
	if err != nil {
		return skipped("failed to claim payout idempotency key", err)
	}

	transfer, err := s.gateway.Transfer(ctx, pigateway.TransferRequest{
		ToAddress: payee.WalletAddress,
		Amount:    p.Amount,
		Memo:      fmt.Sprintf("Payment %s payout", p.ID),
	}, key)
	if err != nil {
		// Платёж остаётся released и будет повторён следующим проходом.
		return skipped("gateway transfer failed", err)
	}

	marked, err := s.repo.MarkPaymentCompleted(ctx, p.ID)
	if err != nil {
		// Перевод прошёл, отметка не записалась: ключ идемпотентности
		// делает повтор безопасным, но случай требует сверки.
		return skipped("transfer sent but payment not marked completed", err)
	}
	if !marked {
		return skipped("payment already settled by a concurrent sweep", nil)
	}

	log.Info("payment paid out", slog.String("payment_id", p.ID), slog.String("txid", transfer.Txid))
	result := models.PayoutResult{PaymentID: p.ID, Status: models.PaymentStatusCompleted, Txid: transfer.Txid}
	if s.events != nil {
		if err := s.events.Publish("paid_out", result); err != nil {
			log.Warn("failed to publish payout event", sl.Err(err))
		}
	}
	return result
}
