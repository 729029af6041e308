package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

// GetService возвращает услугу по идентификатору. Возвращает false без
// ошибки, если услуга не найдена.
func (s *Storage) GetService(ctx context.Context, id string) (*models.Service, bool, error) {
	const op = "storage.GetService"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_id, name, price FROM services WHERE id = $1`
	var svc models.Service
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&svc.ID, &svc.OwnerID, &svc.Name, &svc.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &svc, true, nil
}
