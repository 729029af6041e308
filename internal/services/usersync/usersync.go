// Package usersync реализует идемпотентную синхронизацию пользователя,
// идентифицированного кошельковой платформой. Вызывается при аутентификации
// независимо от платёжного цикла.
package usersync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
)

// Repository определяет методы хранилища для синхронизации пользователей.
type Repository interface {
	FindUserByPlatformUID(ctx context.Context, platformUID string) (*models.User, bool, error)
	CreateUser(ctx context.Context, platformUID, username, wallet, role string) (*models.User, error)
}

// Service — сервис синхронизации пользователей.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создаёт сервис синхронизации.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Sync возвращает существующего пользователя по идентификатору платформы
// или создаёт нового с ролью student. Конкурентные дубликаты гасятся
// уникальным ограничением по pi_uid на уровне хранилища, поэтому оба
// конкурентных вызова получают одну и ту же строку.
func (s *Service) Sync(ctx context.Context, platformUID, username, wallet string) (*models.User, error) {
	const op = "usersync.Sync"

	user, found, err := s.repo.FindUserByPlatformUID(ctx, platformUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return user, nil
	}

	user, err = s.repo.CreateUser(ctx, platformUID, username, wallet, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new user", slog.String("platform_uid", platformUID))
	return user, nil
}
