package escrowmarket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/escrow-marketplace/internal/cache"
	"github.com/magabrotheeeer/escrow-marketplace/internal/config"
	librabbitmq "github.com/magabrotheeeer/escrow-marketplace/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/escrow-marketplace/internal/migrations"
	"github.com/magabrotheeeer/escrow-marketplace/internal/pigateway"
	"github.com/magabrotheeeer/escrow-marketplace/internal/rabbitmq"
	lifecycleservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/lifecycle"
	payoutservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/payout"
	subscriptionservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/subscription"
	usersyncservice "github.com/magabrotheeeer/escrow-marketplace/internal/services/usersync"
	"github.com/magabrotheeeer/escrow-marketplace/internal/storage/repository"
)

// App собирает зависимости HTTP-сервера маркетплейса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создаёт приложение: хранилище с миграциями, кеш, клиент шлюза,
// публикатор событий и все сервисы поверх них.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	gatewayClient := pigateway.NewClient(cfg.PiGateway.APIURL, cfg.PiGateway.APIKey,
		cfg.PiGateway.RequestTimeout, cfg.PiGateway.TransferRetries, cfg.PiGateway.TransferRetryGap)

	// События публикуются только при настроенном RabbitMQ.
	var conn *amqp.Connection
	var ch *amqp.Channel
	var events *librabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetPaymentQueues())
		if err != nil {
			return nil, err
		}
		events = librabbitmq.NewPublisher(ch, rabbitmq.EventsExchange)
	}

	lifecycleService := lifecycleservice.New(db, gatewayClient, eventsOrNil(events), logger,
		cfg.Escrow.HoldingAccountID, cfg.Escrow.RenewalPeriod)
	payoutService := payoutservice.New(db, gatewayClient, payoutEventsOrNil(events), logger)
	subscriptionService := subscriptionservice.New(db, cacheRedis, logger)
	usersyncService := usersyncservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, lifecycleService, payoutService, subscriptionService, usersyncService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Типизированные nil-интерфейсы: сервисы проверяют events на nil, поэтому
// обёртка из nil-указателя недопустима.
func eventsOrNil(p *librabbitmq.Publisher) lifecycleservice.Events {
	if p == nil {
		return nil
	}
	return p
}

func payoutEventsOrNil(p *librabbitmq.Publisher) payoutservice.Events {
	if p == nil {
		return nil
	}
	return p
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.ch != nil {
			_ = a.ch.Close()
		}
		if a.conn != nil {
			_ = a.conn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
