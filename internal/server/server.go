// Пакет server — HTTP-сервер casevault с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bigkaa/casevault/internal/api/handlers"
	"github.com/bigkaa/casevault/internal/api/middleware"
	"github.com/bigkaa/casevault/internal/api/openapi"
	"github.com/bigkaa/casevault/internal/config"
	"github.com/bigkaa/casevault/internal/domain/rbac"
)

// Server — HTTP-сервер casevault.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, handler, jwtAuth),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi router: глобальные middleware, публичные маршруты
// и защищённые группы с проверкой возможностей роли.
func NewRouter(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, jwtAuth *middleware.JWTAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Content-SHA256"},
		MaxAge:         300,
	}))

	// Health и metrics — без аутентификации
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)
	router.Method(http.MethodGet, "/openapi.yaml", openapi.Handler())

	router.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.Register)
		api.Post("/auth/login", h.Login)

		api.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware())

			r.Patch("/auth/password", h.ChangePassword)

			r.With(middleware.RequireCapability(rbac.OpListUsersByRole)).
				Get("/users/by-role", h.ListUsersByRole)

			r.Route("/cases", func(r chi.Router) {
				r.With(middleware.RequireCapability(rbac.OpCreateCase)).Post("/", h.CreateCase)
				r.With(middleware.RequireCapability(rbac.OpListCases)).Get("/", h.ListCases)
				r.With(middleware.RequireCapability(rbac.OpGetCase)).Get("/{id}", h.GetCase)
				r.With(middleware.RequireCapability(rbac.OpSetCaseStatus)).Patch("/{id}/status", h.SetCaseStatus)
			})

			r.Route("/evidences", func(r chi.Router) {
				r.With(middleware.RequireCapability(rbac.OpUploadEvidence)).Post("/", h.UploadEvidence)
				r.With(middleware.RequireCapability(rbac.OpListEvidence)).Get("/by-case/{caseId}", h.ListEvidenceByCase)
				r.With(middleware.RequireCapability(rbac.OpDownloadEvidence)).Get("/{id}/file", h.DownloadEvidence)
				r.With(middleware.RequireCapability(rbac.OpVerifyEvidence)).Patch("/{id}/verify", h.VerifyEvidence)
				r.With(middleware.RequireCapability(rbac.OpDecideEvidence)).Patch("/{id}/approve", h.DecideEvidence)
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. После этого выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
