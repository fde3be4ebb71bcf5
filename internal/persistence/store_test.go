package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

func exerciseStore(t *testing.T, store KVStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "tickets"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
	if err := store.Set(ctx, "tickets", []byte(`[{"id":"ticket1"}]`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(ctx, "tickets", []byte(`[{"id":"ticket2"}]`)); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	got, err := store.Get(ctx, "tickets")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != `[{"id":"ticket2"}]` {
		t.Errorf("Get() = %s, want overwritten value", got)
	}
	if err := store.Delete(ctx, "tickets"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, "tickets"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(after delete) error = %v, want ErrKeyNotFound", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	value := []byte("abc")
	if err := store.Set(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'z'
	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}
}

func TestWithPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inner := NewMemoryStore()
	store := WithPrefix(inner, "tenant-a:")
	exerciseStore(t, store)

	if err := store.Set(ctx, "users", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	if _, err := inner.Get(ctx, "tenant-a:users"); err != nil {
		t.Fatalf("prefixed key not written: %v", err)
	}
	if WithPrefix(inner, "") != KVStore(inner) {
		t.Fatalf("empty prefix should return the store unchanged")
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "helpdesk.db")
	store, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Skipf("sqlite unavailable in this build: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestOpenMemoryWithPrefix(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "memory", KeyPrefix: "p:"}}
	store, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, ok := store.(*prefixedStore); !ok {
		t.Fatalf("Open() = %T, want prefixed store", store)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "floppy"}}
	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("Open() with unknown driver should fail")
	}
	cfg = &config.Config{Storage: config.StorageConfig{Driver: "postgres"}}
	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("Open() postgres without DSN should fail")
	}
}

func TestPendingMigrations(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"0003_c.sql", "0002_b.sql", "0001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		applied map[string]struct{}
		want    []string
	}{
		{name: "fresh database", applied: map[string]struct{}{}, want: []string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}},
		{name: "partially applied", applied: map[string]struct{}{"0001_a.sql": {}}, want: []string{"0002_b.sql", "0003_c.sql"}},
		{name: "up to date", applied: map[string]struct{}{"0001_a.sql": {}, "0002_b.sql": {}, "0003_c.sql": {}}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pendingMigrations(dir, tc.applied)
			if err != nil {
				t.Fatalf("pendingMigrations() error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("pendingMigrations() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPendingMigrationsMissingDir(t *testing.T) {
	if _, err := pendingMigrations(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
