package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikey/phishing-detector/internal/core"
	"go.uber.org/zap/zaptest"
)

type stoppableRepo interface {
	core.CacheRepository
	Stop()
}

// exerciseRepository runs the behaviour every cache backend shares
func exerciseRepository(t *testing.T, repo core.CacheRepository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	live := &core.CacheEntry{
		Fingerprint:         "live",
		IsPhishing:          true,
		PhishingProbability: 0.93,
		ModelUsed:           "linear-baseline-v1",
		LastSeen:            now,
		ExpiresAt:           now.Add(time.Hour),
	}
	expired := &core.CacheEntry{
		Fingerprint: "expired",
		LastSeen:    now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}
	for _, e := range []*core.CacheEntry{live, expired} {
		if err := repo.Set(ctx, e); err != nil {
			t.Fatalf("Set(%s) failed: %v", e.Fingerprint, err)
		}
	}

	got, err := repo.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.IsPhishing || got.PhishingProbability != 0.93 || got.ModelUsed != "linear-baseline-v1" {
		t.Errorf("unexpected entry %+v", got)
	}
	if !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", live.ExpiresAt, got.ExpiresAt)
	}

	if _, err := repo.Get(ctx, "expired"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entries must not be returned, got %v", err)
	}

	// Overwrite keeps one entry per fingerprint
	live.PhishingProbability = 0.4
	live.IsPhishing = false
	if err := repo.Set(ctx, live); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	got, err = repo.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if got.IsPhishing || got.PhishingProbability != 0.4 {
		t.Errorf("overwrite not applied: %+v", got)
	}

	if err := repo.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if err := repo.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "live"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(zaptest.NewLogger(t), time.Hour)
	defer cache.Stop()

	exerciseRepository(t, cache)
}

func TestMemoryCacheCleanup(t *testing.T) {
	cache := NewMemoryCache(zaptest.NewLogger(t), time.Hour)
	defer cache.Stop()
	ctx := context.Background()

	_ = cache.Set(ctx, &core.CacheEntry{Fingerprint: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	_ = cache.Set(ctx, &core.CacheEntry{Fingerprint: "new", ExpiresAt: time.Now().Add(time.Minute)})

	if err := cache.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", cache.Len())
	}

	// Stop is idempotent
	cache.Stop()
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache(zaptest.NewLogger(t), 0)
	defer cache.Stop()
	ctx := context.Background()

	entry := &core.CacheEntry{Fingerprint: "k", PhishingProbability: 0.1, ExpiresAt: time.Now().Add(time.Minute)}
	_ = cache.Set(ctx, entry)
	entry.PhishingProbability = 0.9

	got, _ := cache.Get(ctx, "k")
	got.IsPhishing = true
	again, _ := cache.Get(ctx, "k")
	if again.PhishingProbability != 0.1 || again.IsPhishing {
		t.Errorf("cache shares memory with callers: %+v", again)
	}
}

func TestSQLiteCache(t *testing.T) {
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zaptest.NewLogger(t), time.Hour)
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED") {
			t.Skip("sqlite3 driver requires cgo")
		}
		t.Fatalf("NewSQLiteCache failed: %v", err)
	}
	defer cache.Stop()

	exerciseRepository(t, cache)
}

func TestMySQLCache(t *testing.T) {
	dsn := os.Getenv("PHISHING_DETECTOR_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("PHISHING_DETECTOR_TEST_MYSQL_DSN not set")
	}
	cache, err := NewMySQLCache(dsn, zaptest.NewLogger(t), time.Hour)
	if err != nil {
		t.Fatalf("NewMySQLCache failed: %v", err)
	}
	defer cache.Stop()

	exerciseRepository(t, cache)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("PHISHING_DETECTOR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PHISHING_DETECTOR_TEST_REDIS_ADDR not set")
	}
	cache, err := NewRedisCache(context.Background(), addr, "", 0, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	var repo stoppableRepo = cache
	defer repo.Stop()

	exerciseRepository(t, repo)
}
