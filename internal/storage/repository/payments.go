package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

const paymentColumns = `id, pi_payment_id, payer_id, payee_id, payee_teacher_id,
		subscription_id, amount, status, txid, refund_txid, from_wallet, to_wallet,
		payout_key, paid_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.PiPaymentID, &p.PayerID, &p.PayeeID, &p.PayeeTeacherID,
		&p.SubscriptionID, &p.Amount, &p.Status, &p.Txid, &p.RefundTxid, &p.FromWallet,
		&p.ToWallet, &p.PayoutKey, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment вставляет платёж в статусе pending. Вставка идемпотентна по
// pi_payment_id: при повторном approve того же платежа возвращается уже
// существующая строка без изменения её статуса.
func (s *Storage) CreatePayment(ctx context.Context, piPaymentID, payerID, payeeID, payeeTeacherID string, amount float64) (*models.Payment, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (pi_payment_id, payer_id, payee_id, payee_teacher_id, amount, status)
			  VALUES ($1, $2, $3, $4, $5, 'pending')
			  ON CONFLICT (pi_payment_id) DO UPDATE SET pi_payment_id = EXCLUDED.pi_payment_id
			  RETURNING ` + paymentColumns
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, piPaymentID, payerID, payeeID, payeeTeacherID, amount))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPaymentByProviderID возвращает платёж по идентификатору шлюза.
// Возвращает false без ошибки, если платёж не найден.
func (s *Storage) GetPaymentByProviderID(ctx context.Context, piPaymentID string) (*models.Payment, bool, error) {
	const op = "storage.GetPaymentByProviderID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE pi_payment_id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, piPaymentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// MarkPaymentReleased переводит платёж pending -> released, записывая
// подписку, подтверждение расчёта, кошельки сторон и конечного получателя.
// Условие по статусу не даёт повторно отпустить уже released, completed или
// refunded платёж.
func (s *Storage) MarkPaymentReleased(ctx context.Context, piPaymentID, subscriptionID, txid, fromWallet, toWallet, payeeID string) (*models.Payment, error) {
	const op = "storage.MarkPaymentReleased"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = 'released', subscription_id = $2, txid = $3,
			      from_wallet = NULLIF($4, ''), to_wallet = NULLIF($5, ''), payee_id = $6
			  WHERE pi_payment_id = $1 AND status = 'pending'
			  RETURNING ` + paymentColumns
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, piPaymentID, subscriptionID, txid, fromWallet, toWallet, payeeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ReleaseSubscriptionPayments переводит в released все платежи подписки,
// ещё не находящиеся в released, completed или refunded, и назначает
// конечного получателя. Возвращает затронутые строки; повторный вызов
// ничего не меняет.
func (s *Storage) ReleaseSubscriptionPayments(ctx context.Context, subscriptionID, payeeID string) ([]*models.Payment, error) {
	const op = "storage.ReleaseSubscriptionPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = 'released', payee_id = $2
			  WHERE subscription_id = $1 AND status = 'pending'
			  RETURNING ` + paymentColumns
	rows, err := s.DB.QueryContext(ctx, query, subscriptionID, payeeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListPaymentsBySubscription возвращает все платежи подписки.
func (s *Storage) ListPaymentsBySubscription(ctx context.Context, subscriptionID string) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsBySubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE subscription_id = $1 ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListUnsettledPayments возвращает released-платежи без отметки о выплате —
// кандидатов на перевод преподавателю.
func (s *Storage) ListUnsettledPayments(ctx context.Context) ([]*models.Payment, error) {
	const op = "storage.ListUnsettledPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE status = 'released' AND paid_at IS NULL ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ClaimPayoutKey закрепляет за платежом идемпотентный ключ выплаты. Ключ
// записывается только один раз: повторные попытки выплаты получают тот же
// ключ и шлюз может дедуплицировать перевод.
func (s *Storage) ClaimPayoutKey(ctx context.Context, paymentID, key string) (string, error) {
	const op = "storage.ClaimPayoutKey"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET payout_key = COALESCE(payout_key, $2)
			  WHERE id = $1 RETURNING payout_key`
	var claimed string
	if err := s.DB.QueryRowContext(ctx, query, paymentID, key).Scan(&claimed); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return claimed, nil
}

// MarkPaymentCompleted переводит платёж released -> completed и ставит
// отметку времени выплаты. Условие по статусу и paid_at — защита от двойной
// выплаты при конкурентных проходах свипера: выигрывает ровно один UPDATE.
func (s *Storage) MarkPaymentCompleted(ctx context.Context, paymentID string) (bool, error) {
	const op = "storage.MarkPaymentCompleted"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = 'completed', paid_at = NOW()
			  WHERE id = $1 AND status = 'released' AND paid_at IS NULL`
	res, err := s.DB.ExecContext(ctx, query, paymentID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// MarkPaymentRefunded переводит нетерминальный платёж в refunded и сохраняет
// подтверждение возврата. Возвращает nil без ошибки, если платёж уже в
// терминальном статусе.
func (s *Storage) MarkPaymentRefunded(ctx context.Context, piPaymentID, refundTxid string) (*models.Payment, error) {
	const op = "storage.MarkPaymentRefunded"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = 'refunded', refund_txid = $2
			  WHERE pi_payment_id = $1 AND status NOT IN ('refunded', 'completed')
			  RETURNING ` + paymentColumns
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, piPaymentID, refundTxid))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
