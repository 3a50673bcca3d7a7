package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

func fixedPrice(p string) PriceLookup {
	return func(market, outcome string) decimal.Decimal { return d(p) }
}

func TestOpenPositions_NetSharesAndAvgBuy(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		tradeActivity("m1", "Yes", domain.SideBuy, "0.60", "100", 200),
		tradeActivity("m1", "Yes", domain.SideSell, "0.70", "50", 300),
	}
	positions := OpenPositions(acts, fixedPrice("0.65"), DefaultOptions())

	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if !p.NetShares.Equal(d("150")) {
		t.Errorf("net shares = %s, want 150", p.NetShares)
	}
	if !p.AvgBuyPrice.Equal(d("0.5")) {
		t.Errorf("avg buy = %s, want 0.5", p.AvgBuyPrice)
	}
	if !p.TotalBought.Equal(d("100")) {
		t.Errorf("total bought = %s, want 100", p.TotalBought)
	}
	if !p.CurrentPrice.Equal(d("0.65")) {
		t.Errorf("current price = %s, want 0.65", p.CurrentPrice)
	}
	if !p.Value().Equal(d("97.5")) {
		t.Errorf("value = %s, want 97.5", p.Value())
	}
}

func TestOpenPositions_ExcludesRedeemedMarkets(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		redeemActivity("m1", "100", "100", 200),
		tradeActivity("m2", "Yes", domain.SideBuy, "0.40", "100", 150),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())

	if len(positions) != 1 {
		t.Fatalf("expected redeemed market excluded, got %d positions", len(positions))
	}
	if positions[0].Market != "m2" {
		t.Errorf("market = %s, want m2", positions[0].Market)
	}
}

func TestOpenPositions_DropsClosedLots(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		tradeActivity("m1", "Yes", domain.SideSell, "0.60", "100", 200),
		// oversold: net negative must also be dropped, not reported short
		tradeActivity("m2", "Yes", domain.SideBuy, "0.40", "10", 100),
		tradeActivity("m2", "Yes", domain.SideSell, "0.60", "15", 200),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())
	if len(positions) != 0 {
		t.Fatalf("expected no open positions, got %d", len(positions))
	}
}

func TestOpenPositions_DustFiltering(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("dust", "Yes", domain.SideBuy, "0.50", "5", 100),
		tradeActivity("kept", "Yes", domain.SideBuy, "0.50", "5", 200),
	}
	priced := func(market, outcome string) decimal.Decimal {
		if market == "dust" {
			return d("0.001") // value 0.005, at or below threshold
		}
		return d("0.01") // value 0.05, clears it
	}
	positions := OpenPositions(acts, priced, DefaultOptions())

	if len(positions) != 1 {
		t.Fatalf("expected 1 position after dust filter, got %d", len(positions))
	}
	if positions[0].Market != "kept" {
		t.Errorf("market = %s, want kept", positions[0].Market)
	}
}

func TestOpenPositions_ValueExactlyAtThresholdIsDust(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.50", "1", 100),
	}
	// 1 share × 0.01 = 0.01, equal to the threshold, still excluded.
	positions := OpenPositions(acts, fixedPrice("0.01"), DefaultOptions())
	if len(positions) != 0 {
		t.Fatalf("expected value == threshold to be dust, got %d positions", len(positions))
	}
}

func TestOpenPositions_NilPriceLookupMarksZero(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.50", "100", 100),
	}
	positions := OpenPositions(acts, nil, DefaultOptions())
	// zero mark → zero value → below dust threshold
	if len(positions) != 0 {
		t.Fatalf("expected unpriced position filtered as dust, got %d", len(positions))
	}
}

func TestOpenPositions_LastBuyTimeIgnoresSells(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		tradeActivity("m1", "Yes", domain.SideSell, "0.60", "10", 999),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].LastBuyTime != 100 {
		t.Errorf("last buy time = %d, want 100", positions[0].LastBuyTime)
	}
}

func TestOpenPositions_SortedByLastBuyDesc(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.50", "10", 100),
		tradeActivity("m2", "Yes", domain.SideBuy, "0.50", "10", 300),
		tradeActivity("m3", "Yes", domain.SideBuy, "0.50", "10", 200),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())

	want := []string{"m2", "m3", "m1"}
	for i, p := range positions {
		if p.Market != want[i] {
			t.Errorf("positions[%d].Market = %s, want %s", i, p.Market, want[i])
		}
	}
}

func TestOpenPositions_OutcomesTrackedSeparately(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		tradeActivity("m1", "No", domain.SideBuy, "0.30", "50", 200),
		tradeActivity("m1", "Yes", domain.SideSell, "0.50", "100", 300),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())

	if len(positions) != 1 {
		t.Fatalf("expected only the No side open, got %d positions", len(positions))
	}
	p := positions[0]
	if p.Outcome != "No" || !p.NetShares.Equal(d("50")) {
		t.Errorf("got outcome %s shares %s, want No / 50", p.Outcome, p.NetShares)
	}
}

func TestOpenPositions_CategoryFromSlug(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.50", "100", 100),
	}
	positions := OpenPositions(acts, fixedPrice("0.50"), DefaultOptions())
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Category != "politics" {
		t.Errorf("category = %q, want politics", positions[0].Category)
	}
}

func TestLastSettled_FiltersSortsAndLimits(t *testing.T) {
	mk := func(status string, matchTime int64) domain.Trade {
		tr := fill(domain.SideBuy, "0.5", "1", "0", matchTime)
		tr.Status = status
		return tr
	}
	trades := []domain.Trade{
		mk("MATCHED", 100),
		mk("RETRYING", 500),
		mk("CONFIRMED", 300),
		mk("MINED", 200),
		mk("FAILED", 400),
	}

	got := LastSettled(trades, DefaultOptions(), 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(got))
	}
	if got[0].MatchTime != 300 || got[1].MatchTime != 200 {
		t.Errorf("match times = [%d %d], want [300 200]", got[0].MatchTime, got[1].MatchTime)
	}
}

func TestLastSettled_NoLimitWhenNonPositive(t *testing.T) {
	mk := func(matchTime int64) domain.Trade {
		tr := fill(domain.SideBuy, "0.5", "1", "0", matchTime)
		tr.Status = "MATCHED"
		return tr
	}
	got := LastSettled([]domain.Trade{mk(1), mk(2), mk(3)}, DefaultOptions(), 0)
	if len(got) != 3 {
		t.Fatalf("expected all settled trades with n=0, got %d", len(got))
	}
}
