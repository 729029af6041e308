package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

const subscriptionColumns = `id, user_id, teacher_id, service_id, plan_name, amount, end_date, status, created_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.TeacherID, &sub.ServiceID, &sub.PlanName,
		&sub.Amount, &sub.EndDate, &sub.Status, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription вставляет подписку в статусе pending и возвращает её.
func (s *Storage) CreateSubscription(ctx context.Context, userID, teacherID, serviceID, planName string, amount float64, endDate time.Time) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_id, teacher_id, service_id, plan_name, amount, end_date, status)
			  VALUES ($1, $2, $3, $4, $5, $6, 'pending')
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, teacherID, serviceID, planName, amount, endDate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscription возвращает подписку по идентификатору. Возвращает false
// без ошибки, если подписка не найдена.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, bool, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, true, nil
}

// ActivateSubscription переводит подписку в статус active. Терминальный
// cancelled не реанимируется: такие строки условие не затрагивает.
// Повторная активация возвращает ту же строку без изменений.
func (s *Storage) ActivateSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'active'
			  WHERE id = $1 AND status <> 'cancelled'
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CancelSubscription переводит подписку в терминальный статус cancelled.
func (s *Storage) CancelSubscription(ctx context.Context, id string) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'cancelled' WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptionsByUser возвращает подписки студента вместе с названиями
// услуг.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID string) ([]*models.SubscriptionEntry, error) {
	const op = "storage.ListSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_id, s.teacher_id, s.service_id, s.plan_name,
			         s.amount, s.end_date, s.status, s.created_at,
			         COALESCE(srv.name, s.plan_name)
			  FROM subscriptions s
			  LEFT JOIN services srv ON srv.id = s.service_id
			  WHERE s.user_id = $1
			  ORDER BY s.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionEntry
	for rows.Next() {
		var entry models.SubscriptionEntry
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.TeacherID, &entry.ServiceID,
			&entry.PlanName, &entry.Amount, &entry.EndDate, &entry.Status, &entry.CreatedAt,
			&entry.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &entry)
	}
	return result, rows.Err()
}
