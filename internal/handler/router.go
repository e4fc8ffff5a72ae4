package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/gitpost/internal/metrics"
	"github.com/hitoshi/gitpost/internal/middleware"
)

// HealthChecker はヘルスチェック対象への疎通確認インターフェース。
// インメモリ構成ではnilのままでよい。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 監視
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// ドメインサービス
	PostService     PostServiceInterface
	SettingsService SettingsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → SecurityHeadersMiddleware → RateLimitMiddleware(General)
//
// ヘルスチェックとメトリクスはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	draftHandler := NewDraftHandler(deps.PostService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- APIルート ---
	// リサーチを伴うルートには専用のレート制限を追加する
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// スケジュール（一括リサーチとビュー）
		r.Route("/api/schedule", func(r chi.Router) {
			r.Get("/", draftHandler.GetSchedule)
			r.With(deps.RateLimiter.ResearchMiddleware()).Post("/", draftHandler.BatchSchedule)
		})

		// 下書き管理
		r.Route("/api/drafts", func(r chi.Router) {
			r.Get("/", draftHandler.ListDrafts)
			r.With(deps.RateLimiter.ResearchMiddleware()).Post("/", draftHandler.AddDraft)
			r.Post("/publish-all", draftHandler.PublishAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", draftHandler.GetDraft)
				r.Patch("/", draftHandler.UpdateDraft)
				r.Delete("/", draftHandler.DeleteDraft)
				r.Post("/select", draftHandler.SelectDraft)
				r.Post("/publish", draftHandler.PublishDraft)
			})
		})

		// 操作状態
		r.Get("/api/status", draftHandler.GetStatus)

		// 設定管理
		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.GetSettings)
			r.Put("/", settingsHandler.UpdateSettings)
			r.Post("/connect", settingsHandler.Connect)
			r.Delete("/connect", settingsHandler.Disconnect)
		})
	})

	return r
}

// healthHandler はヘルスチェックのハンドラーを返す。
// checkerが指定されていれば疎通確認も行う。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK
		if checker != nil {
			if err := checker.Ping(); err != nil {
				status = "unavailable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
