package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/bank"
	"github.com/hellofresh/bankengine/config"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	"github.com/hellofresh/bankengine/driver/inmemory"
	driverPostgres "github.com/hellofresh/bankengine/driver/sql/postgres"
	"github.com/hellofresh/bankengine/extension/amqp"
	"github.com/hellofresh/bankengine/extension/kafka"
	"github.com/hellofresh/bankengine/extension/prometheus"
	bankengineZap "github.com/hellofresh/bankengine/extension/zap"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
	"github.com/hellofresh/bankengine/projection"
)

func main() {
	var configDir string
	flag.StringVar(&configDir, "config", ".", "directory holding the .env file")
	flag.Parse()

	cfg, err := config.Load(configDir)
	failOnError(err)

	logger, err := newLogger(cfg.LogLevel)
	failOnError(err)
	defer func() { _ = logger.Sync() }()
	engineLogger := bankengineZap.Wrap(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := prometheus.NewMetrics()
	failOnError(metrics.RegisterMetrics(prom.DefaultRegisterer))

	db, err := config.OpenPostgres(ctx, cfg.PostgresDSN, engineLogger)
	failOnError(err)
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close db", zap.Error(err))
		}
	}()

	gormDB, err := config.OpenGorm(db)
	failOnError(err)
	book, err := projection.NewGormOrderBook(gormDB)
	failOnError(err)

	manager, err := config.NewManager(db, engineLogger)
	failOnError(err)
	failOnError(config.SetupDB(ctx, manager, db, cfg.StreamName(), book.Migrate))

	eventStore, err := manager.NewEventStore()
	failOnError(err)

	projector, err := projection.NewOrderBookProjector(book, engineLogger)
	failOnError(err)

	// The bus keeps the order book of this process current, the runner catches up on writes of other processes
	bus := inmemory.NewEventBus(engineLogger)
	bus.Subscribe(projector.Handle)

	repoOptions := []aggregate.RepositoryOption{
		aggregate.WithPublisher(bus),
		aggregate.WithLogger(engineLogger),
		aggregate.WithMetrics(metrics),
	}
	for _, publisher := range newPublishers(cfg, manager.PayloadTransformer(), engineLogger, logger) {
		repoOptions = append(repoOptions, aggregate.WithPublisher(publisher))
	}

	sequence, err := driverPostgres.NewSequence(db, config.AccountNumberSequence)
	failOnError(err)

	service := newService(cfg, eventStore, sequence, book, repoOptions, engineLogger, metrics)

	runner, err := projection.NewRunner(eventStore, cfg.StreamName(), projector, engineLogger)
	failOnError(err)
	listener, closeListener, err := config.NewProjectionListener(cfg, manager, engineLogger)
	failOnError(err)
	defer func() { _ = closeListener() }()

	go func() {
		if err := runner.Run(ctx, listener); err != nil && ctx.Err() == nil {
			logger.Error("order book projection stopped", zap.Error(err))
			stop()
		}
	}()

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", newHandler(service, logger).Routes())

	serve(ctx, cfg.HTTPAddr, router, logger)
}

func newService(
	cfg config.Config,
	eventStore bankengine.EventStore,
	sequence money.Sequence,
	book matching.OrderBook,
	repoOptions []aggregate.RepositoryOption,
	logger bankengine.Logger,
	metrics bankengine.Metrics,
) *bank.Service {
	accounts, err := account.NewRepository(eventStore, cfg.StreamName(), repoOptions...)
	failOnError(err)
	orders, err := order.NewRepository(eventStore, cfg.StreamName(), repoOptions...)
	failOnError(err)
	portfolios, err := portfolio.NewRepository(eventStore, cfg.StreamName(), repoOptions...)
	failOnError(err)

	ibans, err := money.NewGenerator(cfg.BankCode, cfg.BranchCode, sequence)
	failOnError(err)

	bankCfg, err := cfg.Bank()
	failOnError(err)

	service, err := bank.NewService(accounts, orders, portfolios, ibans, book, bankCfg, logger, metrics)
	failOnError(err)

	return service
}

func newPublishers(
	cfg config.Config,
	converter bankengine.MessagePayloadConverter,
	engineLogger bankengine.Logger,
	logger *zap.Logger,
) []bankengine.EventPublisher {
	var publishers []bankengine.EventPublisher

	if cfg.AMQPDSN != "" {
		publisher, err := amqp.NewEventPublisher(cfg.AMQPDSN, cfg.AMQPQueue, converter, engineLogger)
		failOnError(err)
		publishers = append(publishers, publisher)
		logger.Info("publishing events to amqp", zap.String("queue", cfg.AMQPQueue))
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		writer, err := kafka.NewWriter(brokers, cfg.KafkaTopic)
		failOnError(err)
		publisher, err := kafka.NewEventPublisher(writer, converter, engineLogger)
		failOnError(err)
		publishers = append(publishers, publisher)
		logger.Info("publishing events to kafka", zap.String("topic", cfg.KafkaTopic), zap.Strings("brokers", brokers))
	}

	return publishers
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}

func serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	closed := make(chan struct{})
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", zap.Error(err))
		}
		close(closed)
	}()

	logger.Info("starting http server", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("http server returned an error", zap.Error(err))
		return
	}

	<-closed
}

func failOnError(err error) {
	if err != nil {
		panic(err)
	}
}
