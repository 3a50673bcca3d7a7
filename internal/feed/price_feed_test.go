package feed

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/platform/polymarket"
)

type fakeSocket struct {
	mu         sync.Mutex
	subscribed [][]string
	handler    polymarket.PriceUpdateHandler
	connected  bool
	closed     bool
}

func (s *fakeSocket) Connect(context.Context) error { s.connected = true; return nil }

func (s *fakeSocket) Subscribe(_ context.Context, assetIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = append(s.subscribed, assetIDs)
	return nil
}

func (s *fakeSocket) OnPriceUpdate(h polymarket.PriceUpdateHandler) { s.handler = h }

func (s *fakeSocket) Close() error { s.closed = true; return nil }

type fakePriceCache struct {
	mu     sync.Mutex
	writes map[string]decimal.Decimal // "market/outcome" -> price
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{writes: make(map[string]decimal.Decimal)}
}

func (c *fakePriceCache) SetPrice(_ context.Context, market, outcome string, price decimal.Decimal, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes[market+"/"+outcome] = price
	return nil
}

func (c *fakePriceCache) GetPrice(context.Context, string, string) (decimal.Decimal, time.Time, error) {
	return decimal.Zero, time.Time{}, domain.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrackSubscribesOnlyNewAssets(t *testing.T) {
	sock := &fakeSocket{}
	f := NewPriceFeed(sock, newFakePriceCache(), testLogger())

	bindings := []AssetBinding{
		{AssetID: "tok1", Market: "0xm1", Outcome: "Yes"},
		{AssetID: "tok2", Market: "0xm1", Outcome: "No"},
	}
	if err := f.Track(context.Background(), bindings); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(sock.subscribed) != 1 || len(sock.subscribed[0]) != 2 {
		t.Fatalf("subscribed = %v, want one batch of 2", sock.subscribed)
	}

	// Same assets plus one new one: only the new one goes out.
	again := append(bindings, AssetBinding{AssetID: "tok3", Market: "0xm2", Outcome: "Yes"})
	if err := f.Track(context.Background(), again); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(sock.subscribed) != 2 {
		t.Fatalf("subscribed batches = %d, want 2", len(sock.subscribed))
	}
	if got := sock.subscribed[1]; len(got) != 1 || got[0] != "tok3" {
		t.Errorf("second batch = %v, want [tok3]", got)
	}
}

func TestTrackSkipsEmptyAndDuplicateIDs(t *testing.T) {
	sock := &fakeSocket{}
	f := NewPriceFeed(sock, newFakePriceCache(), testLogger())

	err := f.Track(context.Background(), []AssetBinding{{AssetID: "", Market: "0xm", Outcome: "Yes"}})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(sock.subscribed) != 0 {
		t.Errorf("should not subscribe with no valid assets, got %v", sock.subscribed)
	}
}

func TestHandleUpdateWritesBoundAssets(t *testing.T) {
	sock := &fakeSocket{}
	cache := newFakePriceCache()
	f := NewPriceFeed(sock, cache, testLogger())

	err := f.Track(context.Background(), []AssetBinding{
		{AssetID: "tok1", Market: "0xm1", Outcome: "Yes"},
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	f.handleUpdate(domain.PriceUpdate{
		AssetID:   "tok1",
		Price:     decimal.RequireFromString("0.62"),
		Timestamp: 1700000000,
	})
	f.handleUpdate(domain.PriceUpdate{
		AssetID: "unknown",
		Price:   decimal.RequireFromString("0.5"),
	})

	if len(cache.writes) != 1 {
		t.Fatalf("writes = %v, want exactly the bound asset", cache.writes)
	}
	if got := cache.writes["0xm1/Yes"]; !got.Equal(decimal.RequireFromString("0.62")) {
		t.Errorf("cached price = %s, want 0.62", got)
	}
}

func TestBindingsFromActivities(t *testing.T) {
	positions := []domain.Position{
		{Market: "0xm1", Outcome: "Yes"},
		{Market: "0xm2", Outcome: "No"},
	}
	acts := []domain.Activity{
		{Kind: domain.ActivityTrade, Market: "0xm1", Outcome: "Yes", AssetID: "tok1"},
		{Kind: domain.ActivityTrade, Market: "0xm1", Outcome: "Yes", AssetID: "tok1"}, // duplicate fill
		{Kind: domain.ActivityTrade, Market: "0xm1", Outcome: "No", AssetID: "tok2"},  // closed side
		{Kind: domain.ActivityTrade, Market: "0xm2", Outcome: "No", AssetID: "tok3"},
		{Kind: domain.ActivityRedeem, Market: "0xm2", AssetID: "tok4"},
		{Kind: domain.ActivityTrade, Market: "0xm2", Outcome: "No", AssetID: ""},
	}

	got := BindingsFromActivities(positions, acts)
	if len(got) != 2 {
		t.Fatalf("bindings = %+v, want 2", got)
	}
	if got[0].AssetID != "tok1" || got[0].Market != "0xm1" || got[0].Outcome != "Yes" {
		t.Errorf("first binding = %+v", got[0])
	}
	if got[1].AssetID != "tok3" || got[1].Market != "0xm2" || got[1].Outcome != "No" {
		t.Errorf("second binding = %+v", got[1])
	}
}

func TestRunClosesSocketOnCancel(t *testing.T) {
	sock := &fakeSocket{}
	f := NewPriceFeed(sock, newFakePriceCache(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !sock.connected {
		t.Error("socket was never connected")
	}
	if !sock.closed {
		t.Error("socket was not closed")
	}
	if sock.handler == nil {
		t.Error("price handler was not installed")
	}
}
