package cache_test

import (
	"testing"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Len(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}

	c.Delete("a")
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after delete, got %d", c.Len())
	}
}

func TestCache_ZeroTTLDefaulted(t *testing.T) {
	c := cache.New[string](0)

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected entry readable under the defaulted TTL")
	}
}

func TestCache_AccountListings(t *testing.T) {
	c := cache.New[[]domain.ProviderAccount](5 * time.Minute)

	c.Set("accounts:link-1", []domain.ProviderAccount{
		{AccountID: "acc-1", Name: "Checking"},
		{AccountID: "acc-2", Name: "Savings"},
	})

	got, ok := c.Get("accounts:link-1")
	if !ok {
		t.Fatal("expected account listing cached")
	}
	if len(got) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(got))
	}
}
