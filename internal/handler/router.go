package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/catalogo/internal/metrics"
	"github.com/hitoshi/catalogo/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TrustProxy        bool

	// 商品
	Provider CatalogProvider
	Forms    FormBuilder
	Images   ImageFetcher

	// 設定
	Fields     FieldRegistry
	Connection ConnectionInfo

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	EventKeepAlive time.Duration
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RealIP → RateLimit(General)
//
// RealIPはTrustProxyが有効な場合のみ組み込む。無効な場合はRemoteAddrでレート制限する。
// 書き込み系のルートにはRateLimit(Write)を追加する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	homeHandler := NewHomeHandler(deps.Provider)
	productHandler := NewProductHandler(deps.Provider, deps.Forms, deps.Images)
	settingsHandler := NewSettingsHandler(deps.Fields, deps.Connection)
	eventsHandler := NewEventsHandler(deps.Provider, deps.EventKeepAlive)

	// --- レート制限の対象外 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- API ---
	// ミドルウェアスタック: RealIP → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		if deps.TrustProxy {
			r.Use(chimw.RealIP)
		}
		r.Use(deps.RateLimiter.GeneralMiddleware())
		write := deps.RateLimiter.WriteMiddleware()

		r.Get("/home", homeHandler.Summary)
		r.Get("/events", eventsHandler.Stream)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.With(write).Post("/", productHandler.Create)
			r.Post("/refresh", productHandler.Refresh)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.Get)
				r.With(write).Patch("/", productHandler.Update)
				r.With(write).Delete("/", productHandler.Delete)
				r.Get("/images/{slot}", productHandler.Image)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/connection", settingsHandler.Connection)

			r.Route("/fields", func(r chi.Router) {
				r.Get("/", settingsHandler.ListFields)
				r.With(write).Post("/", settingsHandler.AddField)
				r.With(write).Put("/{id}", settingsHandler.UpdateField)
				r.With(write).Delete("/{id}", settingsHandler.DeleteField)
			})
		})
	})

	return r
}
