// Точка входа casevault — сервис учёта дел и доказательств.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт хранилище файлов, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/casevault/internal/api/handlers"
	"github.com/bigkaa/casevault/internal/api/middleware"
	"github.com/bigkaa/casevault/internal/api/openapi"
	"github.com/bigkaa/casevault/internal/auth"
	"github.com/bigkaa/casevault/internal/config"
	"github.com/bigkaa/casevault/internal/database"
	"github.com/bigkaa/casevault/internal/repository"
	"github.com/bigkaa/casevault/internal/server"
	"github.com/bigkaa/casevault/internal/service"
	"github.com/bigkaa/casevault/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации (.env — опционально)
	if err := config.LoadDotenv(); err != nil {
		slog.Error("Ошибка загрузки .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("casevault запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Проверка встроенного OpenAPI-документа
	if _, err := openapi.Load(ctx); err != nil {
		logger.Error("Некорректный OpenAPI-документ", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Repositories
	userRepo := repository.NewUserRepository(pool)
	caseRepo := repository.NewCaseRepository(pool)
	evidenceRepo := repository.NewEvidenceRepository(pool)

	// 7. Bearer-токены
	tokens, err := auth.NewTokens(ctx, cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("Ошибка инициализации токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Токены инициализированы",
		slog.String("issuer", cfg.JWTIssuer),
		slog.String("kid", tokens.KeyID()),
		slog.String("ttl", cfg.JWTTTL.String()),
	)

	// 8. Хранилище файлов доказательств
	files, err := filestore.New(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов",
			slog.String("dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 9. Services
	people := service.NewPeopleResolver(userRepo, cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	authSvc := service.NewAuthService(userRepo, tokens, people, cfg.BcryptCost, logger)
	caseSvc := service.NewCaseService(caseRepo, userRepo, people, logger)
	evidenceSvc := service.NewEvidenceService(caseRepo, evidenceRepo, files, people, logger)

	// 10. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"casevault",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	}

	// 11. Handlers и middleware
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(healthHandler, authSvc, caseSvc, evidenceSvc, cfg.MaxUploadSize, logger)
	jwtAuth := middleware.NewJWTAuth(tokens, logger)

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		if dephealthSvc != nil {
			dephealthSvc.Stop()
		}
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("casevault остановлен")
}
