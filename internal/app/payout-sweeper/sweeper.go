// Package payoutsweeper содержит приложение свипера выплат: периодический
// проход по released-платежам с переводом средств преподавателям.
package payoutsweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/escrow-marketplace/internal/config"
	librabbitmq "github.com/magabrotheeeer/escrow-marketplace/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/escrow-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/escrow-marketplace/internal/pigateway"
	"github.com/magabrotheeeer/escrow-marketplace/internal/rabbitmq"
	payoutservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/payout"
	"github.com/magabrotheeeer/escrow-marketplace/internal/storage/repository"
)

// App представляет приложение свипера.
type App struct {
	payoutService *payoutservice.Service
	interval      time.Duration
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *repository.Storage
	logger        *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for attempt := 0; attempt < 10; attempt++ {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения свипера.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		return nil, err
	}

	var conn *amqp.Connection
	var ch *amqp.Channel
	var events payoutservice.Events
	if cfg.RabbitMQURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetPaymentQueues())
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		events = librabbitmq.NewPublisher(ch, rabbitmq.EventsExchange)
	}

	gatewayClient := pigateway.NewClient(cfg.PiGateway.APIURL, cfg.PiGateway.APIKey,
		cfg.PiGateway.RequestTimeout, cfg.PiGateway.TransferRetries, cfg.PiGateway.TransferRetryGap)

	return &App{
		payoutService: payoutservice.New(db, gatewayClient, events, logger),
		interval:      cfg.Escrow.SweepInterval,
		conn:          conn,
		ch:            ch,
		db:            db,
		logger:        logger,
	}, nil
}

// Run запускает периодический проход выплат до отмены контекста. Первый
// проход выполняется сразу.
func (a *App) Run(ctx context.Context) error {
	a.sweep(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down payout sweeper")
			if a.ch != nil {
				_ = a.ch.Close()
			}
			if a.conn != nil {
				_ = a.conn.Close()
			}
			_ = a.db.DB.Close()
			return nil
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	results, err := a.payoutService.SweepPending(ctx)
	if err != nil {
		a.logger.Error("payout sweep failed", sl.Err(err))
		return
	}
	a.logger.Info("payout sweep finished", slog.Int("count", len(results)))
}
