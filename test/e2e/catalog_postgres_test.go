//go:build e2e

// Package e2e exercises the catalog stores against real backends: a
// testcontainers postgres:16-alpine container started once per run,
// torn down at the end of the test.
package e2e

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/araujobsd/ndmpd/internal/catalog"
	catalogpg "github.com/araujobsd/ndmpd/internal/catalog/postgres"
)

func TestCatalogPostgresRecordAndLookup(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ndmpd_e2e"),
		postgres.WithUsername("ndmpd_e2e"),
		postgres.WithPassword("ndmpd_e2e"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := &catalogpg.Config{
		Host:     host,
		Port:     port.Int(),
		Database: "ndmpd_e2e",
		User:     "ndmpd_e2e",
		Password: "ndmpd_e2e",
	}

	store, err := catalogpg.Open(ctx, cfg, slog.Default())
	if err != nil {
		t.Fatalf("catalog/postgres: open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	entries := []catalog.Entry{
		{BackupID: "bu-1", Path: "/etc/passwd", Size: 1024, Mtime: time.Now().Truncate(time.Second)},
		{BackupID: "bu-1", Path: "/etc", IsDir: true, Mtime: time.Now().Truncate(time.Second)},
	}
	if err := store.Record(ctx, entries); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, ok, err := store.Lookup(ctx, "bu-1", "/etc/passwd")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("Lookup: entry not found")
	}
	if got.Size != 1024 {
		t.Errorf("Size = %d, want 1024", got.Size)
	}

	if _, ok, err := store.Lookup(ctx, "bu-1", "/nonexistent"); err != nil {
		t.Fatalf("Lookup nonexistent: %v", err)
	} else if ok {
		t.Error("Lookup nonexistent: expected ok=false")
	}

	// Re-recording the same path updates rather than duplicates
	// (catalog.Entry's unique index on backup_id+path, exercised
	// through the on-conflict-update clause).
	entries[0].Size = 2048
	if err := store.Record(ctx, entries[:1]); err != nil {
		t.Fatalf("Record (update): %v", err)
	}
	got, _, err = store.Lookup(ctx, "bu-1", "/etc/passwd")
	if err != nil {
		t.Fatalf("Lookup after update: %v", err)
	}
	if got.Size != 2048 {
		t.Errorf("Size after update = %d, want 2048", got.Size)
	}
}
