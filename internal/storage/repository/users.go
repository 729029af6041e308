package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

const userColumns = `id, pi_uid, username, COALESCE(wallet_address, ''), role, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.PlatformUID, &u.Username, &u.WalletAddress, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByPlatformUID находит пользователя по идентификатору кошельковой
// платформы. Возвращает false без ошибки, если пользователь не найден.
func (s *Storage) FindUserByPlatformUID(ctx context.Context, platformUID string) (*models.User, bool, error) {
	const op = "storage.FindUserByPlatformUID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE pi_uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, platformUID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// GetUserByID возвращает пользователя по внутреннему идентификатору.
// Возвращает false без ошибки, если пользователь не найден.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, bool, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// CreateUser вставляет нового пользователя. Уникальный индекс по pi_uid
// гарантирует отсутствие дублей при конкурентных вызовах: при конфликте
// возвращается уже существующая строка.
func (s *Storage) CreateUser(ctx context.Context, platformUID, username, wallet, role string) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (pi_uid, username, wallet_address, role)
			  VALUES ($1, $2, NULLIF($3, ''), $4)
			  ON CONFLICT (pi_uid) DO UPDATE SET pi_uid = EXCLUDED.pi_uid
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, platformUID, username, wallet, role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserWallet дозаполняет адрес кошелька пользователя. Пустой адрес
// игнорируется, уже известный адрес не затирается пустым значением.
func (s *Storage) UpdateUserWallet(ctx context.Context, userID, wallet string) error {
	const op = "storage.UpdateUserWallet"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if wallet == "" || wallet == "unknown" {
		return nil
	}

	query := `UPDATE users SET wallet_address = $2 WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, userID, wallet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
