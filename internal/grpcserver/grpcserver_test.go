package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/usersapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/usersapi/internal/mockstorage"
)

const (
	addr        = "localhost:0"
	dialTimeout = 5 * time.Second
)

// startTestGRPCServer boots up a test gRPC server and returns the client and shutdown function.
func startTestGRPCServer(t *testing.T, healthServer *health.Server) (healthpb.HealthClient, func()) {
	server, lis, err := NewGRPCServer(addr, healthServer)
	require.NoError(t, err)

	go func() {
		if err := server.Serve(lis); err != nil {
			t.Logf("gRPC server stopped: %v", err)
		}
	}()

	dialContext, cancelDial := context.WithTimeout(context.Background(), dialTimeout)
	defer cancelDial()

	conn, err := grpc.DialContext(
		dialContext,
		lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	require.NoError(t, err)

	return healthpb.NewHealthClient(conn),
		func() {
			server.Stop()
			conn.Close()
			lis.Close()
		}
}

func TestHealthServing(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)

	healthServer := health.NewServer()
	watcher := NewStorageWatcher(db, healthServer, time.Hour)
	require.NoError(t, watcher.Check(context.Background()))

	client, shutdown := startTestGRPCServer(t, healthServer)
	defer shutdown()

	for _, service := range []string{"", ServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}

func TestHealthNotServingWhenStorageFails(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("Ping", mock.Anything).Return(errors.New("storage closed"))

	healthServer := health.NewServer()
	watcher := NewStorageWatcher(db, healthServer, time.Hour)
	assert.Error(t, watcher.Check(context.Background()))

	client, shutdown := startTestGRPCServer(t, healthServer)
	defer shutdown()

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
	db.AssertExpectations(t)
}

func TestStorageWatcherRun(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("Ping", mock.Anything).Return(errors.New("storage closed"))

	healthServer := health.NewServer()
	watcher := NewStorageWatcher(db, healthServer, 10*time.Millisecond)

	errs := make(chan error, errorChannelCapacity)
	watcher.ListenErrors(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	watcher.Run(ctx)

	select {
	case err := <-errs:
		assert.EqualError(t, err, "storage closed")
	case <-time.After(time.Second):
		t.Fatal("no ping error reported")
	}

	cancel()

	assert.Eventually(t, func() bool {
		resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)
}
