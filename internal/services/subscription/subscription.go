// Package subscription содержит бизнес-логику ручного создания подписок и
// их списков с кешированием. Платёжных строк этот сервис не создаёт: они
// принадлежат платёжному циклу.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/models"
	"github.com/magabrotheeeer/escrow-marketplace/internal/services/lifecycle"
)

// Repository определяет методы хранилища для подписок.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, bool, error)
	GetService(ctx context.Context, id string) (*models.Service, bool, error)
	CreateSubscription(ctx context.Context, userID, teacherID, serviceID, planName string, amount float64, endDate time.Time) (*models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]*models.SubscriptionEntry, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с подписками.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("subscriptions:%s", userID)
}

// Create создаёт pending-подписку студента на услугу преподавателя с датой
// окончания через заданное число дней. Оба пользователя обязаны
// существовать.
func (s *Service) Create(ctx context.Context, req models.CreateSubscriptionRequest) (*models.Subscription, error) {
	const op = "subscription.Create"

	student, found, err := s.repo.GetUserByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: student %s: %w", op, req.StudentID, lifecycle.ErrUserNotFound)
	}
	if _, found, err = s.repo.GetUserByID(ctx, req.TeacherID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if !found {
		return nil, fmt.Errorf("%s: teacher %s: %w", op, req.TeacherID, lifecycle.ErrUserNotFound)
	}
	if _, found, err = s.repo.GetService(ctx, req.ServiceID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if !found {
		return nil, fmt.Errorf("%s: %s: %w", op, req.ServiceID, lifecycle.ErrServiceNotFound)
	}

	endDate := time.Now().AddDate(0, 0, req.DurationDays)
	sub, err := s.repo.CreateSubscription(ctx, req.StudentID, req.TeacherID, req.ServiceID, req.PlanName, req.Amount, endDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", slog.String("id", sub.ID))

	if err := s.cache.Invalidate(cacheKey(student.ID)); err != nil {
		s.log.Warn("failed to invalidate subscriptions cache", sl.Err(err))
	}
	return sub, nil
}

// List возвращает подписки студента, используя кеш или репозиторий.
func (s *Service) List(ctx context.Context, userID string) ([]*models.SubscriptionEntry, error) {
	const op = "subscription.List"

	var cached []*models.SubscriptionEntry
	found, err := s.cache.Get(cacheKey(userID), &cached)
	if err != nil {
		s.log.Warn("failed to read subscriptions cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	entries, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(cacheKey(userID), entries, time.Hour); err != nil {
		s.log.Warn("failed to cache subscriptions", sl.Err(err))
	}
	return entries, nil
}

// InvalidateUser сбрасывает кеш списка подписок пользователя. Вызывается
// после активации или отмены подписки.
func (s *Service) InvalidateUser(userID string) {
	if err := s.cache.Invalidate(cacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate subscriptions cache", sl.Err(err))
	}
}
