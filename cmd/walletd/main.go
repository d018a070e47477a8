package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/custodia/walletcore/internal/adapters"
	"github.com/custodia/walletcore/internal/config"
	"github.com/custodia/walletcore/internal/ledger"
	"github.com/custodia/walletcore/internal/scheduler"
	"github.com/custodia/walletcore/internal/server"
	"github.com/custodia/walletcore/internal/wallet"
	"github.com/custodia/walletcore/internal/wallet/events"
	"github.com/custodia/walletcore/pkg/httpjson"
	"github.com/custodia/walletcore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to walletcore.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	repo := ledger.NewRepository(db, zapLogger)
	if err := repo.AutoMigrate(); err != nil {
		zapLogger.Fatal("Failed to migrate ledger schema", zap.Error(err))
	}
	agg := ledger.NewAggregator(repo)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	bus := buildEventBus(cfg, zapLogger)

	registry := adapters.NewRegistry()
	moveFee, err := cfg.MoveFeeDecimal()
	if err != nil {
		zapLogger.Fatal("Invalid move fee", zap.Error(err))
	}

	walletCfg := wallet.Config{
		ConfirmWithdrawAdmin: cfg.ConfirmWithdrawAdmin,
		ConfirmWithdrawUser:  cfg.ConfirmWithdrawUser,
		ConfirmMoveAdmin:     cfg.ConfirmMoveAdmin,
		ConfirmMoveUser:      cfg.ConfirmMoveUser,
		MaxRetries:           cfg.MaxRetries,
		MoveFee:              moveFee,
		WithdrawFees:         make(map[string]decimal.Decimal),
		ConfirmTargets:       make(map[string]int),
	}
	for _, ac := range cfg.Adapters {
		walletCfg.ConfirmTargets[ac.Symbol] = ac.ConfirmTarget
		if ac.WithdrawFee != "" {
			fee, err := decimal.NewFromString(ac.WithdrawFee)
			if err != nil {
				zapLogger.Fatal("Invalid withdrawal fee",
					zap.String("symbol", ac.Symbol), zap.Error(err))
			}
			walletCfg.WithdrawFees[ac.Symbol] = fee
		}
	}

	svc := wallet.NewService(repo, agg, registry, bus, walletCfg, zapLogger)

	var rpcCache httpjson.Cache = httpjson.NewMemoryCache()
	if redisClient != nil {
		rpcCache = httpjson.NewRedisCache(redisClient, "walletcore:rpc")
	}
	for _, ac := range cfg.Adapters {
		registry.Register(adapters.NewRPCAdapter(adapters.RPCConfig{
			Symbol:         ac.Symbol,
			Name:           ac.Name,
			URL:            ac.URL,
			Username:       ac.Username,
			Password:       ac.Password,
			Scope:          cfg.Scope,
			RequestTimeout: ac.RequestTimeout,
			CacheTTL:       ac.CacheTTL,
			DecimalPlaces:  ac.DecimalPlaces,
			ListBatch:      ac.ListBatch,
		}, rpcCache, svc, zapLogger))
	}

	rebalancer := wallet.NewRebalancer(svc, agg, zapLogger)

	interval, err := scheduler.ParseInterval(cfg.Interval)
	if err != nil {
		zapLogger.Fatal("Invalid reconciliation interval", zap.Error(err))
	}
	sched := scheduler.New(registry, scheduler.Config{
		Interval:    interval,
		Timeout:     cfg.ReconcileTimeout,
		Concurrency: cfg.ReconcileConcurrency,
	}, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	apiServer := server.NewServer(zapLogger, svc, rebalancer, cfg.Scope)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Router(),
	}
	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down...")

	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}

func buildEventBus(cfg *config.Config, zapLogger *zap.Logger) *events.Bus {
	var publishers []events.Publisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		publishers = append(publishers, events.NewKafkaPublisher(cfg.Events.KafkaBrokers, zapLogger))
	}
	if cfg.Events.RedisEnabled && cfg.RedisAddr != "" {
		publishers = append(publishers, events.NewRedisPublisher(cfg.RedisAddr, zapLogger))
	}
	if cfg.Events.WebhookURL != "" {
		publishers = append(publishers, events.NewWebhookPublisher(cfg.Events.WebhookURL, cfg.Events.WebhookSecret, zapLogger))
	}
	return events.NewBus(cfg.Events.Topic, publishers, zapLogger)
}
