package repository

import (
	"context"
	"net"
	"testing"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/database"
	"service_marketplace/pkg/logger"
	testtool "service_marketplace/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "chat:user:alice", UserChannel("alice"))
}

func TestRedisPubSub_RoundTrip(t *testing.T) {
	testtool.RequireIntegration(t)
	logger.SetNewNop()
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	client, err := database.NewRedisClient("", nil, net.JoinHostPort(host, port), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	bus := NewRedisPubSub(client)
	got := make(chan domain.RelayEvent, 1)
	stop, err := bus.Subscribe(ctx, UserChannel("bob"), func(ev domain.RelayEvent) { got <- ev })
	require.NoError(t, err)
	defer stop()

	sent := domain.RelayEvent{
		Origin: "node-a",
		Event:  domain.WSResponse{Action: string(domain.NotifyMessage), Success: true, Payload: map[string]interface{}{"body": "hi"}},
	}
	require.NoError(t, bus.Publish(ctx, UserChannel("bob"), sent))

	select {
	case ev := <-got:
		assert.Equal(t, sent, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("relay event not received")
	}
}
