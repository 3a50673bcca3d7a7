package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

type memMarketCache struct {
	entries map[string]domain.MarketInfo
}

func newMemMarketCache() *memMarketCache {
	return &memMarketCache{entries: make(map[string]domain.MarketInfo)}
}

func (c *memMarketCache) Set(_ context.Context, info domain.MarketInfo) error {
	c.entries[info.ConditionID] = info
	return nil
}

func (c *memMarketCache) Get(_ context.Context, conditionID string) (domain.MarketInfo, error) {
	info, ok := c.entries[conditionID]
	if !ok {
		return domain.MarketInfo{}, domain.ErrNotFound
	}
	return info, nil
}

type memPriceCache struct {
	prices map[string]decimal.Decimal
}

func (c *memPriceCache) SetPrice(_ context.Context, market, outcome string, price decimal.Decimal, _ time.Time) error {
	c.prices[market+"/"+outcome] = price
	return nil
}

func (c *memPriceCache) GetPrice(_ context.Context, market, outcome string) (decimal.Decimal, time.Time, error) {
	p, ok := c.prices[market+"/"+outcome]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return p, time.Now(), nil
}

func TestMarketsForReadsThroughCache(t *testing.T) {
	gamma := &fakeGamma{infos: []domain.MarketInfo{
		{ConditionID: "0xm1", Title: "Cached market"},
	}}
	cache := newMemMarketCache()
	svc := NewPriceService(gamma, cache, nil, testLogger())

	first := svc.MarketsFor(context.Background(), []string{"0xm1"})
	if _, ok := first["0xm1"]; !ok {
		t.Fatal("first lookup missed")
	}
	if gamma.calls != 1 {
		t.Fatalf("gamma calls = %d, want 1", gamma.calls)
	}

	second := svc.MarketsFor(context.Background(), []string{"0xm1"})
	if second["0xm1"].Title != "Cached market" {
		t.Errorf("second lookup = %+v", second["0xm1"])
	}
	if gamma.calls != 1 {
		t.Errorf("gamma calls = %d, want 1 (second served from cache)", gamma.calls)
	}
}

func TestMarketsForDeduplicatesConditionIDs(t *testing.T) {
	gamma := &fakeGamma{infos: []domain.MarketInfo{
		{ConditionID: "0xm1", Title: "Market one"},
		{ConditionID: "0xm2", Title: "Market two"},
	}}
	svc := NewPriceService(gamma, nil, nil, testLogger())

	got := svc.MarketsFor(context.Background(), []string{"0xm1", "0xm1", "0xm2", "", "0xm1"})
	if len(got) != 2 {
		t.Fatalf("got %d markets, want 2", len(got))
	}
	want := []string{"0xm1", "0xm2"}
	if !reflect.DeepEqual(gamma.gotIDs, want) {
		t.Errorf("gamma condition IDs = %v, want %v", gamma.gotIDs, want)
	}
}

func TestMarketsForAbsorbsGammaFailure(t *testing.T) {
	gamma := &fakeGamma{err: domain.ErrRateLimited}
	svc := NewPriceService(gamma, nil, nil, testLogger())

	got := svc.MarketsFor(context.Background(), []string{"0xm1", "0xm2"})
	if len(got) != 0 {
		t.Errorf("got %v, want empty map on failure", got)
	}
}

func TestLookupPrefersLivePrice(t *testing.T) {
	live := &memPriceCache{prices: map[string]decimal.Decimal{
		"0xm1/Yes": d("0.70"),
	}}
	svc := NewPriceService(&fakeGamma{}, nil, live, testLogger())

	markets := map[string]domain.MarketInfo{
		"0xm1": {
			ConditionID:   "0xm1",
			Outcomes:      []string{"Yes", "No"},
			OutcomePrices: []decimal.Decimal{d("0.55"), d("0.45")},
		},
	}
	lookup := svc.Lookup(context.Background(), markets)

	if got := lookup("0xm1", "Yes"); !got.Equal(d("0.70")) {
		t.Errorf("live-backed price = %s, want 0.70", got)
	}
	if got := lookup("0xm1", "No"); !got.Equal(d("0.45")) {
		t.Errorf("gamma fallback price = %s, want 0.45", got)
	}
	if got := lookup("0xunknown", "Yes"); !got.IsZero() {
		t.Errorf("unknown market price = %s, want 0", got)
	}
}
