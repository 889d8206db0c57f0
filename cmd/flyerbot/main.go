package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/agent"
	"github.com/betbot/flyerbot/internal/controlplane/server"
	"github.com/betbot/flyerbot/internal/dispatch"
	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/handlers"
	"github.com/betbot/flyerbot/internal/infrastructure/websocket"
	"github.com/betbot/flyerbot/internal/journal"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/risk"
	"github.com/betbot/flyerbot/internal/services"
	"github.com/betbot/flyerbot/pkg/config"
	"github.com/betbot/flyerbot/pkg/logger"
	"github.com/betbot/flyerbot/pkg/persistence"
	"github.com/betbot/flyerbot/pkg/ratelimit"
	"github.com/betbot/flyerbot/pkg/sdk/lightning"
	"github.com/betbot/flyerbot/pkg/secretstore"
	"github.com/betbot/flyerbot/pkg/shutdown"
	"github.com/betbot/flyerbot/pkg/syncgroup"
)

const gracefulShutdownPeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	envPath := flag.String("env", ".env", "环境变量文件")
	flag.Parse()

	_ = godotenv.Load(*envPath)

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}
	if err := loadCredentials(cfg); err != nil {
		logrus.Errorf("读取凭证库失败: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("配置无效: %v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logrus.Errorf("❌ 退出: %+v", err)
		os.Exit(1)
	}
	logrus.Info("已停止")
}

func run(cfg *config.Config) error {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	shutdowns := shutdown.NewManager()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
		defer cancel()
		shutdowns.Shutdown(ctx)
	}()

	client := lightning.NewClient(lightning.Config{
		BaseURL:   cfg.REST.BaseURL,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Timeout:   cfg.REST.Timeout,
		ProxyURL:  cfg.ProxyURL,
	}, ratelimit.NewRateLimitManager())

	portfolio := services.NewPortfolio(cfg.LegalCurrencyCode, cfg.CryptoCurrencyCode, client)
	orders := services.NewOrderBook(cfg.ProductCode, client, domain.OrderFilter{ChildOrderState: domain.OrderState(cfg.OrderSyncState)})
	positions := services.NewPositionBook(cfg.ProductCode, client)

	if cfg.Storage.SnapshotDir != "" {
		snapshots, err := persistence.Open(cfg.Storage.SnapshotBackend, cfg.Storage.SnapshotDir)
		if err != nil {
			return err
		}
		logrus.Infof("账本快照: backend=%s dir=%s", cfg.Storage.SnapshotBackend, cfg.Storage.SnapshotDir)
		shutdowns.OnShutdown("snapshots", func(context.Context) error { return snapshots.Close() })
		portfolio.WithStore(snapshots.NewStore("ledger", cfg.ProductCode, "portfolio"))
		orders.WithStore(snapshots.NewStore("ledger", cfg.ProductCode, "orders"))
		positions.WithStore(snapshots.NewStore("ledger", cfg.ProductCode, "positions"))
	}

	var (
		recorder   handlers.Recorder
		executions server.ExecutionSource
	)
	if cfg.Storage.JournalPath != "" {
		j, err := journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			return err
		}
		shutdowns.OnShutdown("journal", func(context.Context) error { return j.Close() })
		recorder, executions = j, j
	}

	exchange := services.NewExchange(cfg.ProductCode, client, portfolio, orders, positions)
	buffer := services.NewDataBuffer(cfg.DataBufferSize)

	decider, err := agent.New(cfg.Agent.Kind, cfg.Agent.Seed)
	if err != nil {
		return err
	}
	breaker := risk.NewCircuitBreaker(risk.CircuitBreakerConfig{
		MaxConsecutiveErrors: int64(cfg.Risk.MaxConsecutiveErrors),
		DailyLossLimit:       cfg.Risk.DailyLossLimit,
	})
	executor, err := agent.NewExecutor(agent.ExecutorConfig{
		ProductCode: cfg.ProductCode,
		OrderSize:   cfg.Agent.OrderSize,
		DryRun:      cfg.DryRun,
	}, client)
	if err != nil {
		return err
	}
	executor.WithGuard(breaker)
	runner := agent.NewRunner(decider, executor, func() agent.State {
		return agent.State{
			Board:        buffer.Data(),
			Portfolio:    portfolio.Snapshot(),
			ActiveOrders: orders.Active(""),
			Positions:    positions.List(),
		}
	})
	shutdowns.OnShutdown("agent", func(context.Context) error {
		runner.Close()
		return nil
	})

	dispatcher, err := dispatch.NewDispatcher(
		handlers.NewBoardEventHandler(cfg.ProductCode, buffer, runner),
		handlers.NewChildOrderEventHandler(orders, positions, portfolio, recorder).WithPnLSink(breaker),
	)
	if err != nil {
		return err
	}
	stream, err := websocket.NewStream(websocket.Config{
		URL:             cfg.Stream.URL,
		APIKey:          cfg.APIKey,
		APISecret:       cfg.APISecret,
		PublicChannels:  cfg.Stream.PublicChannels,
		PrivateChannels: cfg.Stream.PrivateChannels,
		PauseBufferSize: cfg.Stream.PauseBufferSize,
		ProxyURL:        cfg.ProxyURL,
	}, dispatcher)
	if err != nil {
		return err
	}
	batch := services.NewBatch(exchange, cfg.BatchPeriod())
	health := services.NewHealthCheck(exchange, stream, cfg.HealthPeriod())

	logrus.Infof("🚀 启动 product=%s agent=%s dry_run=%v", cfg.ProductCode, cfg.Agent.Kind, cfg.DryRun)
	if err := services.Bootstrap(rootCtx,
		services.NamedLedger{Name: "portfolio", Ledger: portfolio},
		services.NamedLedger{Name: "orders", Ledger: orders},
		services.NamedLedger{Name: "positions", Ledger: positions},
	); err != nil {
		return errors.WithMessage(err, "初始同步失败")
	}

	plane, err := server.New(server.Config{
		Listen:         cfg.ControlPlane.Listen,
		AllowedOrigins: cfg.ControlPlane.AllowedOrigins,
		ProductCode:    cfg.ProductCode,
	}, server.Deps{
		Orders:      orders,
		Positions:   positions,
		Portfolio:   portfolio,
		Executions:  executions,
		Exchange:    exchange,
		Stream:      stream,
		Batch:       batch,
		HealthCheck: health,
		Risk:        breaker,
	})
	if err != nil {
		return err
	}
	if _, err := plane.Start(rootCtx); err != nil {
		return err
	}
	if cfg.MetricsListen != "" {
		if _, err := metrics.StartAsync(rootCtx, cfg.MetricsListen); err != nil {
			logrus.Errorf("metrics/pprof 启动失败: %v", err)
		}
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case s := <-sigChan:
			logrus.Infof("收到信号 %s，正在关闭...", s)
			rootCancel()
		case <-rootCtx.Done():
		}
	}()

	logrus.Info("✅ 已启动，按 Ctrl+C 停止")
	err = syncgroup.Go(rootCtx,
		stopOnExit(rootCancel, stream.Run),
		stopOnExit(rootCancel, batch.Run),
		stopOnExit(rootCancel, health.Run),
	)
	if err != nil && !isCanceled(err) {
		return err
	}
	return nil
}

// loadCredentials 环境变量缺少凭证且配置了凭证库时，从库中补齐
func loadCredentials(cfg *config.Config) error {
	if cfg.Storage.SecretsDB == "" || (cfg.APIKey != "" && cfg.APISecret != "") {
		return nil
	}
	key, err := secretstore.ParseKey(cfg.Storage.SecretsKey)
	if err != nil {
		return err
	}
	store, err := secretstore.Open(secretstore.OpenOptions{Path: cfg.Storage.SecretsDB, EncryptionKey: key, ReadOnly: true})
	if err != nil {
		return err
	}
	defer store.Close()
	return cfg.FillCredentials(store, secretstore.EnvPrefix)
}

// stopOnExit 任一循环退出时取消其余循环
func stopOnExit(cancel context.CancelFunc, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		defer cancel()
		err := fn(ctx)
		if isCanceled(err) {
			return nil
		}
		return err
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
