package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/usersapi/internal/logger"
)

const errorChannelCapacity = 16

type pinger interface {
	Ping(ctx context.Context) error
}

// StorageWatcher pings the storage on a fixed interval and mirrors the result
// into a health server.
type StorageWatcher struct {
	db           pinger
	health       *health.Server
	interval     time.Duration
	errorChannel chan error
}

// NewStorageWatcher creates a watcher that updates healthServer every
// interval.
func NewStorageWatcher(db pinger, healthServer *health.Server, interval time.Duration) *StorageWatcher {
	return &StorageWatcher{
		db:           db,
		health:       healthServer,
		interval:     interval,
		errorChannel: make(chan error, errorChannelCapacity),
	}
}

// ListenErrors calls callback for every failed ping until the watcher stops.
func (w *StorageWatcher) ListenErrors(callback func(error)) {
	go func() {
		for err := range w.errorChannel {
			callback(err)
		}
	}()
}

// Check pings the storage once and updates the serving status. It returns
// the ping error, if any.
func (w *StorageWatcher) Check(ctx context.Context) error {
	status := healthpb.HealthCheckResponse_SERVING

	err := w.db.Ping(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	w.health.SetServingStatus("", status)
	w.health.SetServingStatus(ServiceName, status)

	return err
}

// Run checks the storage immediately and then every interval until ctx is
// done. On exit the health server is switched to NOT_SERVING for good.
func (w *StorageWatcher) Run(ctx context.Context) {
	w.report(w.Check(ctx))

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		defer close(w.errorChannel)

		for {
			select {
			case <-ctx.Done():
				w.health.Shutdown()
				logger.Log.Debugln("storage watcher stopped")
				return
			case <-ticker.C:
				w.report(w.Check(ctx))
			}
		}
	}()
}

func (w *StorageWatcher) report(err error) {
	if err == nil {
		return
	}

	select {
	case w.errorChannel <- err:
	default:
		logger.Log.Warnw("storage watcher error dropped", "error", err)
	}
}
