package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/catalogo/internal/catalog"
	"github.com/hitoshi/catalogo/internal/config"
	"github.com/hitoshi/catalogo/internal/database"
	"github.com/hitoshi/catalogo/internal/handler"
	"github.com/hitoshi/catalogo/internal/logger"
	"github.com/hitoshi/catalogo/internal/media"
	"github.com/hitoshi/catalogo/internal/metrics"
	"github.com/hitoshi/catalogo/internal/middleware"
	"github.com/hitoshi/catalogo/internal/product"
	"github.com/hitoshi/catalogo/internal/repository"
	"github.com/hitoshi/catalogo/internal/security"
	"github.com/hitoshi/catalogo/internal/settings"
	"github.com/hitoshi/catalogo/internal/view"
	"github.com/hitoshi/catalogo/internal/worker/resync"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み（既存の環境変数が優先）、JSON構造化ログをセットアップした上で
// 環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（存在しない場合は無視する）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// storeBackend はストアドライバごとに組み立てた永続化層。
type storeBackend struct {
	store  repository.ProductStore
	feed   repository.ChangeFeed
	pinger repository.Pinger
	close  func() error
}

// openStore は設定されたドライバのストアと変更通知フィードを開く。
// postgresの場合は接続確認まで行う。
func openStore(ctx context.Context, cfg *config.Config) (*storeBackend, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		mem := repository.NewMemoryProductStore()
		return &storeBackend{
			store:  mem,
			feed:   mem,
			pinger: mem,
			close:  func() error { return nil },
		}, nil
	}

	dsn, err := database.WithAccessKey(cfg.DatabaseURL, cfg.DatabaseAccessKey)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	return &storeBackend{
		store:  repository.NewPostgresProductStore(db),
		feed:   repository.NewPostgresChangeFeed(dsn, cfg.ListenerMinReconnect, cfg.ListenerMaxReconnect, slog.Default()),
		pinger: db,
		close:  db.Close,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. ストア
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	if cfg.StoreDriver == config.StoreDriverMemory {
		n, err := seedProducts(ctx, backend.store)
		if err != nil {
			return fmt.Errorf("failed to seed memory store: %w", err)
		}
		slog.Info("memory store seeded", slog.Int("count", n))
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. リポジトリとプロバイダ
	repo := product.NewRepository(backend.store, slog.Default(), collector)
	provider := catalog.NewProvider(repo, backend.feed, slog.Default(), collector, catalog.Config{
		Debounce: cfg.RefreshDebounce,
	})
	if err := provider.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize catalog provider: %w", err)
	}
	defer provider.Close()

	// 4. 定期リフレッシュ
	resyncJob := resync.NewJob(provider, slog.Default(), cfg.ResyncInterval)
	go resyncJob.Start(ctx)

	// 5. セキュリティと画像プロキシ
	imageGuard := security.NewImageURLGuard()
	imageProxy := media.NewProxy(
		imageGuard,
		imageGuard.NewSafeClient(cfg.ImageFetchTimeout),
		cfg.ImageMaxSize,
		collector,
	)
	forms := view.NewFormBuilder(security.NewMarkupGuard(), imageGuard)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TrustProxy:        cfg.TrustProxy,

		Provider: provider,
		Forms:    forms,
		Images:   imageProxy,

		Fields:     settings.NewRegistry(),
		Connection: connectionInfo(cfg),

		HealthChecker:  backend.pinger,
		MetricsHandler: metrics.Handler(reg),
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// SSEストリームはプロバイダのCloseで終了するため、シャットダウン開始時に閉じる
	server.RegisterOnShutdown(func() {
		if err := provider.Close(); err != nil {
			slog.Warn("failed to close catalog provider", slog.String("error", err.Error()))
		}
	})

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return errors.New("migrate requires STORE_DRIVER=postgres")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	dsn, err := database.WithAccessKey(cfg.DatabaseURL, cfg.DatabaseAccessKey)
	if err != nil {
		return err
	}

	version, err := database.RunMigrations(dsn)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// connectionInfo は設定画面に表示するマスク済みの接続情報を作る。
func connectionInfo(cfg *config.Config) handler.ConnectionInfo {
	return handler.ConnectionInfo{
		StoreDriver:         cfg.StoreDriver,
		MaskedEndpoint:      maskDatabaseURL(cfg.DatabaseURL),
		AccessKeyConfigured: cfg.DatabaseAccessKey != "",
	}
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// ユーザー名、ホスト、データベース名は残す。
func maskDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
