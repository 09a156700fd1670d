package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/stt"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type warmingProvider struct {
	state atomic.Int32
}

func (p *warmingProvider) Name() string { return "fake" }

func (p *warmingProvider) Transcribe(context.Context, *audio.Container) (stt.Result, error) {
	return stt.Result{}, nil
}

func (p *warmingProvider) State() stt.LoadState { return stt.LoadState(p.state.Load()) }

func (p *warmingProvider) WaitReady(context.Context) error { return nil }

func startServer(t *testing.T, provider stt.Provider) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 16)
	srv := NewServer(Config{PollInterval: 10 * time.Millisecond}, provider, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ServeListener(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsProviderWarmUp(t *testing.T) {
	t.Parallel()

	provider := &warmingProvider{}
	provider.state.Store(int32(stt.StateLoading))
	client := startServer(t, provider)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))

	provider.state.Store(int32(stt.StateReady))
	require.Eventually(t, func() bool {
		return check(t, client) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHealthFailedProvider(t *testing.T) {
	t.Parallel()

	provider := &warmingProvider{}
	provider.state.Store(int32(stt.StateFailed))
	client := startServer(t, provider)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client))
}

func TestServingStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(stt.StateReady))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(stt.StateLoading))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(stt.StateFailed))
}
