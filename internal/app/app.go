package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/gitpost/internal/config"
	"github.com/hitoshi/gitpost/internal/database"
	"github.com/hitoshi/gitpost/internal/facebook"
	"github.com/hitoshi/gitpost/internal/gemini"
	"github.com/hitoshi/gitpost/internal/handler"
	"github.com/hitoshi/gitpost/internal/logger"
	"github.com/hitoshi/gitpost/internal/metrics"
	"github.com/hitoshi/gitpost/internal/middleware"
	"github.com/hitoshi/gitpost/internal/post"
	"github.com/hitoshi/gitpost/internal/repository"
	"github.com/hitoshi/gitpost/internal/research"
	"github.com/hitoshi/gitpost/internal/security"
	"github.com/hitoshi/gitpost/internal/settings"
	"github.com/hitoshi/gitpost/internal/worker/autopost"
)

// completedResetDelay は完了状態の表示をアイドルに戻すまでの時間。
const completedResetDelay = 3 * time.Second

// feedFetchTimeout はリサーチフィード取得のタイムアウト。
const feedFetchTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
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
		slog.String("research_source", cfg.ResearchSource),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// services はワイヤリング済みのドメインサービス一式を保持する。
type services struct {
	draftRepo     repository.DraftRepository
	settingsRepo  repository.SettingsRepository
	postService   *post.Service
	settingsSvc   *settings.Service
	collector     *metrics.Collector
	registry      *prometheus.Registry
	healthChecker handler.HealthChecker
	closer        func()
}

// buildServices は設定に従って全依存関係をワイヤリングする。
// DATABASE_URLが設定されていればPostgres、未設定ならメモリ＋JSONファイルで動作する。
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	svcs := &services{closer: func() {}}

	// 1. リポジトリの初期化
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		svcs.draftRepo = repository.NewPostgresDraftRepo(db)
		svcs.settingsRepo = repository.NewPostgresSettingsRepo(db)
		svcs.healthChecker = db
		svcs.closer = func() { db.Close() }
	} else {
		settingsRepo, err := repository.NewFileSettingsRepo(cfg.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open settings file: %w", err)
		}
		slog.Info("using in-memory draft store", slog.String("settings_file", cfg.SettingsFile))

		svcs.draftRepo = repository.NewMemoryDraftRepo()
		svcs.settingsRepo = settingsRepo
	}

	// 2. セキュリティサービスの初期化
	guard := security.NewURLGuard()
	sanitizer := security.NewTextSanitizer()

	// 3. 外部クライアントの初期化
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, slog.Default(), cfg.GeminiTimeout, cfg.ResearchBatchSize)
	if err != nil {
		svcs.closer()
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	fbClient := facebook.NewClient(guard.NewSafeClient(cfg.PublishTimeout), slog.Default())

	// 4. リサーチソースの選択
	var researcher post.Researcher = geminiClient
	if cfg.ResearchSource == config.ResearchSourceFeed {
		researcher = research.NewFeedSource(
			guard.NewSafeClient(feedFetchTimeout), guard, slog.Default(),
			cfg.ResearchFeedURL, cfg.ResearchBatchSize,
		)
	}

	// 5. メトリクスの初期化
	svcs.registry = prometheus.NewRegistry()
	svcs.collector = metrics.NewCollector(svcs.registry)

	// 6. ドメインサービスの初期化
	svcs.settingsSvc = settings.NewService(svcs.settingsRepo, fbClient, slog.Default())
	svcs.postService = post.NewService(
		svcs.draftRepo, svcs.settingsRepo,
		researcher, geminiClient, fbClient,
		sanitizer, guard,
		svcs.collector, slog.Default(),
		cfg.PublishInterval, completedResetDelay,
	)

	return svcs, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.closer()

	// ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ResearchRate = rate.Limit(float64(cfg.RateLimitResearch) / 60.0)
	rateLimiterCfg.ResearchBurst = cfg.RateLimitResearch

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Collector:         svcs.collector,
		HealthChecker:     svcs.healthChecker,
		Gatherer:          svcs.registry,
		PostService:       svcs.postService,
		SettingsService:   svcs.settingsSvc,
	})

	// HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は自動投稿ワーカーモードで起動する。
// 時間帯が開いた下書きを定期的に投稿するジョブを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.closer()

	job := autopost.NewJob(svcs.postService, svcs.settingsRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("autopost_interval", cfg.AutoPostInterval),
	)

	// 自動投稿ジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.AutoPostInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
