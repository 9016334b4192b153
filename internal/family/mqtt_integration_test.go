//go:build integration

package family

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%d", host, port.Int())
}

func TestMQTTRoundTrip(t *testing.T) {
	broker := startMosquitto(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	receiver, err := NewMQTTMessenger(MQTTConfig{Broker: broker, TopicPrefix: "it", QoS: 1, From: "mom@example.com"}, nil)
	require.NoError(t, err)
	require.NoError(t, receiver.Connect(ctx))
	defer receiver.Disconnect()

	got := make(chan Envelope, 1)
	require.NoError(t, receiver.Subscribe(ctx, "mom@example.com", func(env Envelope) { got <- env }))

	sender, err := NewMQTTMessenger(MQTTConfig{Broker: broker, TopicPrefix: "it", QoS: 1, From: "alice@example.com"}, nil)
	require.NoError(t, err)
	require.NoError(t, sender.Connect(ctx))
	defer sender.Disconnect()

	require.NoError(t, sender.Send(ctx, []string{"mom@example.com"}, "no motion", KindEscalation))

	select {
	case env := <-got:
		assert.Equal(t, "alice@example.com", env.From)
		assert.Equal(t, "mom@example.com", env.To)
		assert.Equal(t, KindEscalation, env.Kind)
		assert.Equal(t, "no motion", env.Message)
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}
