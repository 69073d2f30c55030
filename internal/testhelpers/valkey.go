//go:build integration

package testhelpers

import (
	"context"
	"crypto/rand"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/todoapuestas/tap-bridge/internal/config"
)

const (
	valkeyImage = "valkey/valkey:9-alpine"
	valkeyPort  = "6379/tcp"
)

// skipWithoutDocker skips the calling test when no Docker daemon answers.
func skipWithoutDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("docker not available")
	}
}

// RunValkeyContainer starts a password protected Valkey server for the test
// and returns a cache configuration pointing at it. The container is removed
// when the test completes.
func RunValkeyContainer(t *testing.T) config.CacheConfig {
	t.Helper()
	skipWithoutDocker(t)

	ctx := context.Background()
	password := rand.Text()

	container, err := testcontainers.Run(ctx, valkeyImage,
		testcontainers.WithExposedPorts(valkeyPort),
		testcontainers.WithEnv(map[string]string{
			"VALKEY_EXTRA_FLAGS": "--requirepass " + password,
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort(valkeyPort),
		),
		testcontainers.WithLogger(log.TestLogger(t)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, valkeyPort)
	require.NoError(t, err)

	return config.CacheConfig{
		Type:    "valkey",
		MaxSize: 100,
		Valkey: config.ValkeyConfig{
			// IPv4 loopback: the mapped port is not always bound on ::1
			Address:  net.JoinHostPort("127.0.0.1", port.Port()),
			Username: "default",
			Password: password,
		},
	}
}
