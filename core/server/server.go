package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"orgsync-api/core/cache"
	"orgsync-api/core/config"
	"orgsync-api/core/constants"
	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/core/queue"
	"orgsync-api/modules/calendar"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

// Server owns the process-wide connections and the wired modules.
type Server struct {
	cfg      *config.Config
	db       *database.Database
	redis    *redis.Client
	queue    *queue.Client
	calendar *calendar.Module
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	queueClient := queue.NewClient(cfg.Redis)

	calendarModule, err := calendar.New(cfg, db, redisClient, queueClient)
	if err != nil {
		_ = queueClient.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		db:       db,
		redis:    redisClient,
		queue:    queueClient,
		calendar: calendarModule,
	}, nil
}

func (s *Server) Close() {
	if err := s.queue.Close(); err != nil {
		logger.Warn("Server:Close:Queue:Error", "error", err)
	}
	if err := s.redis.Close(); err != nil {
		logger.Warn("Server:Close:Redis:Error", "error", err)
	}
	if err := s.db.Close(); err != nil {
		logger.Warn("Server:Close:Database:Error", "error", err)
	}
}

// Migrate applies pending schema migrations.
func (s *Server) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db.SQLx().DB)
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = constants.DefaultRequestTimeout

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			logger.Info("HTTP:Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.calendar.Init(e)
	return e
}

func (s *Server) newWorker() (*asynq.Server, *asynq.ServeMux) {
	mux := asynq.NewServeMux()
	s.calendar.RegisterTasks(mux)
	return queue.NewServer(s.cfg.Redis, constants.WorkerConcurrency), mux
}

// Serve runs the HTTP API until ctx is cancelled. With withWorker set the
// calendar task worker runs in the same process.
func (s *Server) Serve(ctx context.Context, withWorker bool) error {
	if err := s.calendar.CleanupExpiredStates(ctx); err != nil {
		logger.Warn("Server:Serve:CleanupStates:Error", "error", err)
	}

	if withWorker {
		worker, mux := s.newWorker()
		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer worker.Shutdown()
		logger.Info("Server:Serve:WorkerStarted", "queue", constants.QueueCalendarSync)
	}

	e := s.newEcho()
	addr := fmt.Sprintf(":%d", s.cfg.App.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server:Serve:Listening", "addr", addr, "env", s.cfg.App.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Server:Serve:ShuttingDown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Work runs only the calendar task worker until ctx is cancelled.
func (s *Server) Work(ctx context.Context) error {
	worker, mux := s.newWorker()
	if err := worker.Start(mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	logger.Info("Server:Work:Started", "queue", constants.QueueCalendarSync, "concurrency", constants.WorkerConcurrency)

	<-ctx.Done()

	logger.Info("Server:Work:ShuttingDown")
	stopped := make(chan struct{})
	go func() {
		worker.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(constants.ShutdownTimeout):
		logger.Warn("Server:Work:ShutdownTimeout")
	}
	return nil
}
