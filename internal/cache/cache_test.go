package cache

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func newSQLiteCache(t *testing.T, client *http.Client) *Cache {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := New(store, client)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetOrFetchMissThenHit(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "payload")
	}))
	defer server.Close()

	c := newSQLiteCache(t, server.Client())
	ctx := context.Background()

	body, status, err := c.GetOrFetch(ctx, server.URL+"/a", false)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if status != http.StatusOK || string(body) != "payload" {
		t.Fatalf("got (%q, %d)", body, status)
	}

	body, status, err = c.GetOrFetch(ctx, server.URL+"/a", false)
	if err != nil {
		t.Fatalf("GetOrFetch hit failed: %v", err)
	}
	if status != http.StatusOK || string(body) != "payload" {
		t.Fatalf("hit returned (%q, %d)", body, status)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func TestGetOrFetchForce(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintf(w, "payload-%d", hits)
	}))
	defer server.Close()

	c := newSQLiteCache(t, server.Client())
	ctx := context.Background()

	if _, _, err := c.GetOrFetch(ctx, server.URL, false); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	body, _, err := c.GetOrFetch(ctx, server.URL, true)
	if err != nil {
		t.Fatalf("forced fetch failed: %v", err)
	}
	if string(body) != "payload-2" {
		t.Errorf("forced fetch returned %q, want payload-2", body)
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
}

func TestGetOrFetchStoresFailures(t *testing.T) {
	// Failure bodies are stored too, so a known-bad endpoint is not hammered
	// on every run. The status is passed through for the caller to check.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newSQLiteCache(t, server.Client())
	ctx := context.Background()

	body, status, err := c.GetOrFetch(ctx, server.URL, false)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if !bytes.Contains(body, []byte("broken")) {
		t.Errorf("body = %q", body)
	}

	ok, err := c.Contains(ctx, server.URL)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !ok {
		t.Error("failure response was not stored")
	}
}

func TestSetClearResetContains(t *testing.T) {
	c := newSQLiteCache(t, nil)
	ctx := context.Background()

	urls := []string{"http://example.test/a", "http://example.test/b"}
	for _, u := range urls {
		if err := c.Set(ctx, u, []byte("body of "+u)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	ok, _ := c.Contains(ctx, urls[0])
	if !ok {
		t.Fatal("Contains = false after Set")
	}

	body, status, err := c.GetOrFetch(ctx, urls[0], false)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if status != http.StatusOK || string(body) != "body of "+urls[0] {
		t.Errorf("got (%q, %d)", body, status)
	}

	if err := c.Clear(ctx, urls[0]); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if ok, _ := c.Contains(ctx, urls[0]); ok {
		t.Error("entry survives Clear")
	}
	// Clearing an absent entry is not an error.
	if err := c.Clear(ctx, urls[0]); err != nil {
		t.Errorf("Clear of absent entry failed: %v", err)
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ok, _ := c.Contains(ctx, urls[1]); ok {
		t.Error("entry survives Reset")
	}
}

func TestSetOverwrites(t *testing.T) {
	c := newSQLiteCache(t, nil)
	ctx := context.Background()
	url := "http://example.test/a"

	if err := c.Set(ctx, url, []byte("first")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, url, []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	body, _, err := c.GetOrFetch(ctx, url, false)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if string(body) != "second" {
		t.Errorf("body = %q, want second", body)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put(ctx, "http://example.test/a", []byte("persisted")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	body, ok, err := reopened.Get(ctx, "http://example.test/a")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = (%v, %v)", ok, err)
	}
	if string(body) != "persisted" {
		t.Errorf("body = %q", body)
	}
}
