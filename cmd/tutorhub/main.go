package main

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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/example/tutoring-scheduler/internal/application"
	"github.com/example/tutoring-scheduler/internal/config"
	httptransport "github.com/example/tutoring-scheduler/internal/http"
	"github.com/example/tutoring-scheduler/internal/persistence/sqlite"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	resourceRepo := sqlite.NewResourceRepository(pool)
	enrollmentRepo := sqlite.NewEnrollmentRepository(pool)
	lessonRepo := sqlite.NewLessonRepository(pool)
	sessionRepo := sqlite.NewAuthSessionRepository(pool)

	userService := application.NewUserService(userRepo, nil, idGenerator, now)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	resourceService := application.NewResourceService(resourceRepo, enrollmentRepo, lessonRepo, cfg.Location, idGenerator, now, logger)
	enrollmentService := application.NewEnrollmentService(enrollmentRepo, userRepo, resourceRepo, lessonRepo, cfg.Location, idGenerator, now, logger)
	lessonService := application.NewLessonService(lessonRepo, enrollmentRepo, userRepo, resourceRepo, cfg.Location, idGenerator, now, logger)
	materializerService := application.NewMaterializerService(enrollmentRepo, lessonRepo, cfg.Location, idGenerator, now, logger)
	plannerService := application.NewPlannerService()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Session-Token"},
		AllowCredentials: true,
	})

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Resources:      httptransport.NewResourceHandler(resourceService, logger),
		Enrollments:    httptransport.NewEnrollmentHandler(enrollmentService, logger),
		Lessons:        httptransport.NewLessonHandler(lessonService, logger),
		Materializer:   httptransport.NewMaterializerHandler(materializerService, logger),
		Planner:        httptransport.NewPlannerHandler(plannerService, logger),
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			corsMiddleware.Handler,
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("tutorhub API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
