// Package groupbuyaggregator собирает и запускает основное HTTP-приложение
// движка совместных закупок.
package groupbuyaggregator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/cache"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/config"
	jwtlib "github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/jwt"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/migrations"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/notifier"
	biddingservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/bidding"
	lifecycleservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/lifecycle"
	penaltyservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/penalty"
	reviewservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/review"
	sweeperservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/sweeper"
	userservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/user"
	votingservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/voting"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и подключения к внешним системам.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: хранилище, кеш, брокер уведомлений,
// сервисы и маршруты.
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

	var events notifier.Notifier
	var conn *amqp.Connection
	var ch *amqp.Channel
	conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Warn("rabbitmq unavailable, notifications disabled", slog.Any("err", err))
		events = notifier.Noop{}
	} else {
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			conn.Close()
			return nil, err
		}
		events = notifier.NewAMQPNotifier(ch, logger)
	}

	penaltyService := penaltyservice.NewPenaltyService(db, events, logger)
	lifecycleService := lifecycleservice.NewLifecycleService(db, cacheRedis, penaltyService, events, logger)
	biddingService := biddingservice.NewBiddingService(db, events, logger)
	votingService := votingservice.NewVotingService(db, events, logger)
	reviewService := reviewservice.NewReviewService(db, logger)
	sweeperService := sweeperservice.NewSweeperService(db, biddingService, votingService,
		cfg.SweepInterval, logger)
	userService := userservice.NewUserService(db, logger)

	maker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, maker,
		lifecycleService, biddingService, votingService, penaltyService, reviewService,
		sweeperService, userService)

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
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
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
		a.db.DB.Close()
		return err
	}
}
