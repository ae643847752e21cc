package http

import (
	"net/http"

	_ "github.com/DRSN-tech/shop-backend/docs" // Импорт описания API для swagger
	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router  *chi.Mux
	cfg     *cfg.HTTPConfig
	admin   *cfg.AdminCfg
	metrics HTTPMetrics
	logger  logger.Logger
}

func NewRouter(router *chi.Mux, cfg *cfg.HTTPConfig, admin *cfg.AdminCfg, metrics HTTPMetrics, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, admin: admin, metrics: metrics, logger: logger}
}

// Init регистрирует middleware и маршруты. metricsHandler отдаёт /metrics.
func (r *Router) Init(prUC usecase.ProductUC, searchUC usecase.SearchUC, fpUC usecase.FingerprintUC, metricsHandler http.Handler) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(RequestLogger(r.logger))
	r.router.Use(middleware.Recoverer)
	r.router.Use(Metrics(r.metrics))

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(r.cfg.SwaggerURL),
	))
	r.router.Method(http.MethodGet, "/metrics", metricsHandler)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		prHandler := NewProductHandler(prUC, r.cfg.MaxUploadBytes, r.logger)
		searchHandler := NewSearchHandler(searchUC, r.cfg.MaxUploadBytes, r.logger)
		adminHandler := NewAdminHandler(fpUC, r.logger)

		registerProductRoutes(v1, prHandler)
		registerSearchRoutes(v1, searchHandler)
		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(AdminOnly(r.admin.Token, r.logger))
			registerAdminRoutes(admin, prHandler, adminHandler)
		})
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Get("/{id}", prHandler.getProduct)
	})
}

func registerSearchRoutes(router chi.Router, searchHandler *SearchHandler) {
	router.Post("/search-by-image", searchHandler.searchByImage)
}

func registerAdminRoutes(router chi.Router, prHandler *ProductHandler, adminHandler *AdminHandler) {
	router.Post("/products", prHandler.registerNewProduct)
	router.Post("/products/{id}/fingerprint", adminHandler.recomputeProductFingerprint)
	router.Post("/recompute-histograms", adminHandler.recomputeHistograms)
}
