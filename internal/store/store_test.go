package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T, threshold int) *Store {
	t.Helper()
	s, err := New(Config{
		CompressionThreshold: threshold,
		CleanupInterval:      50 * time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t, 1024)

	if err := s.Insert("k1", []byte("hello"), nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	val, ok, err := s.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to be found")
	}
	if string(val) != "hello" {
		t.Fatalf("got %q, want %q", val, "hello")
	}
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t, 1024)

	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected key to be missing")
	}
}

func TestInsertCompressesLargePayloads(t *testing.T) {
	s := newTestStore(t, 8)

	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}

	if err := s.Insert("big", big, nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	e, ok := s.shardFor("big").get("big")
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if !e.compressed {
		t.Fatal("expected payload at/above threshold to be compressed")
	}

	val, ok, err := s.Get("big")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(val) != string(big) {
		t.Fatal("decompressed value does not round-trip")
	}
}

func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t, 1024)

	ttl := 10 * time.Millisecond
	if err := s.Insert("ephemeral", []byte("v"), &ttl); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, ok, _ := s.Get("ephemeral"); !ok {
		t.Fatal("expected key to be present immediately after insert")
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := s.Get("ephemeral"); ok {
		t.Fatal("expected key to have expired")
	}
}

func TestBackgroundSweepEvictsExpiredKeys(t *testing.T) {
	s := newTestStore(t, 1024)

	ttl := 5 * time.Millisecond
	if err := s.Insert("sweepme", []byte("v"), &ttl); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if s.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected background sweep to evict the expired key")
}

func TestDefaultTTLAppliesWhenNoneGiven(t *testing.T) {
	defaultTTL := 10 * time.Millisecond
	s, err := New(Config{
		CompressionThreshold: 1024,
		CleanupInterval:      time.Hour,
		DefaultTTL:           &defaultTTL,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown()

	if err := s.Insert("k", []byte("v"), nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, status := s.ExpiresIn("k"); status != ExpActive {
		t.Fatalf("expected ExpActive, got %v", status)
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("expected key to have expired via default TTL")
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	s := newTestStore(t, 1024)

	if s.Delete("nope") {
		t.Fatal("expected Delete of missing key to report false")
	}

	if err := s.Insert("k", []byte("v"), nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !s.Delete("k") {
		t.Fatal("expected Delete of existing key to report true")
	}
	if s.Delete("k") {
		t.Fatal("expected second Delete to report false")
	}
}

func TestExpiresInStatuses(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, status := s.ExpiresIn("absent"); status != ExpNotFound {
		t.Fatalf("got %v, want ExpNotFound", status)
	}

	if err := s.Insert("no-ttl", []byte("v"), nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, status := s.ExpiresIn("no-ttl"); status != ExpNoTimeout {
		t.Fatalf("got %v, want ExpNoTimeout", status)
	}

	ttl := time.Minute
	if err := s.Insert("with-ttl", []byte("v"), &ttl); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d, status := s.ExpiresIn("with-ttl"); status != ExpActive || d <= 0 {
		t.Fatalf("got (%v, %v), want (>0, ExpActive)", d, status)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(t, 1024)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%8)
			_ = s.Insert(key, []byte("v"), nil)
			_, _, _ = s.Get(key)
			s.Delete(key)
		}(i)
	}
	wg.Wait()
}
