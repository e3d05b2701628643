// Package pgtest provides a PostgreSQL database for integration tests.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvDSN points tests at an existing database instead of a container.
const EnvDSN = "TEST_POSTGRES_DSN"

const image = "postgres:16-alpine"

// DSN returns a connection string for a disposable database. The test is
// skipped in -short mode or when neither EnvDSN nor a container runtime is
// available.
func DSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		return dsn
	}
	if !dockerAvailable() {
		t.Skipf("%s not set and no container runtime available", EnvDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "paneladmin",
				"POSTGRES_PASSWORD": "paneladmin",
				"POSTGRES_DB":       "paneladmin",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("cannot start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://paneladmin:paneladmin@%s:%s/paneladmin?sslmode=disable", host, port.Port())
}

// dockerAvailable reports whether testcontainers can reach a container
// runtime. Provider detection panics on some hosts.
func dockerAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}
