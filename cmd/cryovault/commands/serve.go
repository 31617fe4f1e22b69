package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/themadjocker/cryo-vault-backend-api/internal/app"
	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/config"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
	"github.com/themadjocker/cryo-vault-backend-api/internal/notify"
	"github.com/themadjocker/cryo-vault-backend-api/internal/storage/postgres"
	transporthttp "github.com/themadjocker/cryo-vault-backend-api/internal/transport/http"
	"github.com/themadjocker/cryo-vault-backend-api/migrations"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the expiry reclaimer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Dev {
				logger.Warn("running in development mode, ledger secret may be the built-in default")
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, name := range applied {
		logger.Info("applied migration", "name", name)
	}

	// Sinks outlive the request context so queued events can still flush
	// during shutdown.
	sinkCtx, stopSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSinks()
	sinks, hub, closeSinks, err := buildSinks(sinkCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	dispatcher := notify.NewDispatcher(cfg.Notify.QueueSize, logger, sinks...)

	clk := clock.NewSystem()
	slotRepo := postgres.NewSlotRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)

	ledgerSvc := app.NewLedgerService(
		postgres.NewLedgerRepository(pool),
		ledger.NewHasher(cfg.Ledger.Secret),
		clk,
		app.WithDifficulty(cfg.Ledger.Difficulty),
		app.WithMaxNonceAttempts(cfg.Ledger.MaxNonceAttempts),
		app.WithLedgerEvents(dispatcher),
		app.WithLedgerLogger(logger),
	)
	reservationSvc := app.NewReservationService(
		reservationRepo,
		slotRepo,
		ledgerSvc,
		clk,
		app.WithHoldTTL(cfg.Reservation.HoldTTL),
		app.WithEventPublisher(dispatcher),
		app.WithLogger(logger),
	)
	slotSvc := app.NewSlotService(slotRepo, reservationRepo, ledgerSvc, clk, dispatcher, logger)
	reclaimer := app.NewReclaimer(reservationSvc, cfg.Reservation.SweepInterval, logger)

	var events http.Handler
	if hub != nil {
		events = hub
	}
	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			Slots:        slotSvc,
			Reservations: reservationSvc,
			Ledger:       ledgerSvc,
			Events:       events,
			Ready:        pool,
			Logger:       logger,
			CORSOrigins:  cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchDone := make(chan struct{})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go func() {
		defer close(dispatchDone)
		_ = dispatcher.Run(dispatchCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return reclaimer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if hub != nil {
			hub.Close()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	stopDispatch()
	<-dispatchDone
	logger.Info("server stopped")
	return err
}

// buildSinks assembles the enabled push channels. The returned hub is nil
// when the WebSocket stream is disabled.
func buildSinks(ctx context.Context, cfg *config.Config, logger log.Logger) ([]notify.Sink, *notify.Hub, func(), error) {
	var (
		sinks   []notify.Sink
		hub     *notify.Hub
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Notify.WebSocket {
		hub = notify.NewHub(cfg.Server.CORSOrigins, logger)
		sinks = append(sinks, hub)
	}

	if cfg.Notify.RedisAddr != "" {
		rs, err := notify.NewRedisSink(&redis.Options{
			Addr:     cfg.Notify.RedisAddr,
			Password: cfg.Notify.RedisPassword,
		}, cfg.Notify.RedisPrefix)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable at startup, events will be retried per delivery", "addr", cfg.Notify.RedisAddr, "error", err.Error())
		}
		cancel()
		sinks = append(sinks, rs)
		closers = append(closers, func() { _ = rs.Close() })
		logger.Info("redis event sink enabled", "addr", cfg.Notify.RedisAddr, "prefix", cfg.Notify.RedisPrefix)
	}

	if cfg.Notify.MQTTBroker != "" {
		ms, err := notify.NewMQTTSink(ctx, notify.MQTTConfig{
			BrokerURL: cfg.Notify.MQTTBroker,
			ClientID:  cfg.Notify.MQTTClientID,
			TopicRoot: cfg.Notify.MQTTTopicRoot,
			QoS:       cfg.Notify.MQTTQoS,
			Username:  cfg.Notify.MQTTUsername,
			Password:  cfg.Notify.MQTTPassword,
		}, logger)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		sinks = append(sinks, ms)
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = ms.Close(ctx)
		})
		logger.Info("mqtt event sink enabled", "broker", cfg.Notify.MQTTBroker, "root", cfg.Notify.MQTTTopicRoot)
	}

	return sinks, hub, closeAll, nil
}
