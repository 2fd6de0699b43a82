// internal/service/cache_test.go
package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"snowrail/internal/models"
)

func TestMemoryCacheStoreTTL(t *testing.T) {
	store := NewMemoryCacheStore(30*time.Millisecond, 10)
	ctx := context.Background()

	store.Set(ctx, "k", &models.ValidationResult{ID: "r1"})

	if _, ok := store.Get(ctx, "k"); !ok {
		t.Fatal("expected fresh entry to be returned")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := store.Get(ctx, "k"); ok {
		t.Error("expected expired entry to not be returned")
	}
	if store.Len() != 1 {
		t.Errorf("expired entry should still be physically present, Len() = %d", store.Len())
	}
}

func TestMemoryCacheStoreFIFOEviction(t *testing.T) {
	store := NewMemoryCacheStore(time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.Set(ctx, fmt.Sprintf("k%d", i), &models.ValidationResult{})
	}

	// Touch k0 so LRU would evict k1; FIFO must still evict k0.
	store.Get(ctx, "k0")
	store.Set(ctx, "k3", &models.ValidationResult{})

	if _, ok := store.Get(ctx, "k0"); ok {
		t.Error("expected oldest-inserted entry k0 to be evicted")
	}
	if _, ok := store.Get(ctx, "k1"); !ok {
		t.Error("expected k1 to survive eviction")
	}
	if _, ok := store.Get(ctx, "k3"); !ok {
		t.Error("expected newest entry k3 to be present")
	}
}

func TestCacheKeyDeterminism(t *testing.T) {
	a := CacheKey("https://api.example.com", []string{"tls", "dns"})
	b := CacheKey("https://api.example.com", []string{"tls", "dns"})
	c := CacheKey("https://api.example.com", []string{"tls"})
	d := CacheKey("https://other.example.com", []string{"tls", "dns"})

	if a != b {
		t.Error("identical inputs must produce identical keys")
	}
	if a == c {
		t.Error("different check sets must produce different keys")
	}
	if a == d {
		t.Error("different destinations must produce different keys")
	}
}

func TestChecksHash(t *testing.T) {
	set := []models.CheckResult{
		{Type: "tls", Score: 95, Passed: true, Risk: models.RiskNone},
		{Type: "dns", Score: 80, Passed: true, Risk: models.RiskNone},
	}

	if ChecksHash(set) != ChecksHash(set) {
		t.Error("hash must be deterministic")
	}

	changed := []models.CheckResult{
		{Type: "tls", Score: 94, Passed: true, Risk: models.RiskNone},
		{Type: "dns", Score: 80, Passed: true, Risk: models.RiskNone},
	}
	if ChecksHash(set) == ChecksHash(changed) {
		t.Error("different check outcomes must change the hash")
	}
}
