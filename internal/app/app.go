// Package app initializes and runs the users API.
// It configures logging, storage, validation and routing, starts the optional
// gRPC health server and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/patric-chuzhbe/usersapi/internal/config"
	"github.com/patric-chuzhbe/usersapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/usersapi/internal/grpcserver"
	"github.com/patric-chuzhbe/usersapi/internal/ipchecker"
	"github.com/patric-chuzhbe/usersapi/internal/logger"
	"github.com/patric-chuzhbe/usersapi/internal/metrics"
	"github.com/patric-chuzhbe/usersapi/internal/ratelimit"
	"github.com/patric-chuzhbe/usersapi/internal/requestid"
	"github.com/patric-chuzhbe/usersapi/internal/router"
	"github.com/patric-chuzhbe/usersapi/internal/service"
	"github.com/patric-chuzhbe/usersapi/internal/validation"
)

const rateLimiterCleanupInterval = time.Minute

// App encapsulates the configuration, HTTP handler, storage backend and
// background workers of the users API.
type App struct {
	cfg            *config.Config
	db             *memorystorage.MemoryStorage
	rateLimiter    *ratelimit.RateLimiter
	healthServer   *health.Server
	storageWatcher *grpcserver.StorageWatcher
	httpHandler    http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - setting up the storage and the service on top of it
// - setting up metrics, rate limiting and the router
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(
		app.cfg.LogLevel,
		logger.WithProduction(app.cfg.IsProduction()),
		logger.WithFile(app.cfg.LogFile),
		logger.WithErrorFile(app.cfg.LogErrorFile),
	)
	if err != nil {
		return nil, err
	}

	app.db, err = memorystorage.New()
	if err != nil {
		return nil, err
	}

	validator, err := validation.New()
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	if checker.IsTrustedSubnetEmpty() {
		logger.Log.Infow("no trusted subnet configured, /metrics answers 403 to everyone")
	}

	svc := service.New(app.db)

	routerOptions := []router.Option{
		router.WithAnnotator(requestid.New(app.cfg.RequestIDHeader)),
		router.WithMetrics(metrics.New(countUsers(svc)), checker),
		router.WithGzip(app.cfg.EnableGzip),
	}

	if app.cfg.RateLimitRPS > 0 {
		app.rateLimiter = ratelimit.New(
			app.cfg.RateLimitRPS,
			app.cfg.RateLimitBurst,
			ratelimit.WithKeyFunc(checker.ClientKey),
			ratelimit.WithRejectHandler(router.TooManyRequests),
		)
		routerOptions = append(routerOptions, router.WithRateLimiter(app.rateLimiter))
	}

	if app.cfg.GRPCHealthAddr != "" {
		app.healthServer = health.NewServer()
		app.storageWatcher = grpcserver.NewStorageWatcher(app.db, app.healthServer, app.cfg.HealthCheckInterval)
	}

	app.httpHandler = router.New(svc, validator, routerOptions...)

	return app, nil
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve runs the servers until ctx is done or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if a.rateLimiter != nil {
		a.rateLimiter.Run(workersCtx, rateLimiterCleanupInterval)
	}

	serverErrCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if a.healthServer != nil {
		var (
			lis net.Listener
			err error
		)
		grpcServer, lis, err = grpcserver.NewGRPCServer(a.cfg.GRPCHealthAddr, a.healthServer)
		if err != nil {
			return fmt.Errorf("gRPC health server: %w", err)
		}

		a.storageWatcher.ListenErrors(func(err error) {
			logger.Log.Warnw("storage health check failed", "error", err)
		})
		a.storageWatcher.Run(workersCtx)

		logger.Log.Infow("gRPC health server running", "addr", lis.Addr().String())
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				serverErrCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         a.cfg.RunAddr,
		Handler:      a.httpHandler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr, "env", a.cfg.Env)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Stopping servers...")
		stopWorkers()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if grpcServer != nil {
			grpcServer.Stop()
		}
		return err
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() error {
	if err := logger.Sync(); err != nil {
		return fmt.Errorf("logger sync: %w", err)
	}

	return nil
}

func countUsers(svc *service.Service) func() float64 {
	return func() float64 {
		count, err := svc.CountUsers(context.Background())
		if err != nil {
			logger.Log.Errorw("counting users for metrics failed", "error", err)
			return 0
		}

		return float64(count)
	}
}
