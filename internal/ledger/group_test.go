package ledger

import (
	"testing"

	"github.com/poiselabs/poise/internal/domain"
)

func groupFill(market, outcome string, side domain.Side, price, size string, matchTime int64) domain.Trade {
	t := fill(side, price, size, "0", matchTime)
	t.Market = market
	t.Outcome = outcome
	return t
}

func tradeActivity(market, outcome string, side domain.Side, price, size string, ts int64) domain.Activity {
	return domain.Activity{
		Kind:            domain.ActivityTrade,
		Market:          market,
		Side:            side,
		Size:            d(size),
		Price:           d(price),
		Timestamp:       ts,
		Outcome:         outcome,
		Title:           "Will it happen?",
		Slug:            "politics-will-it-happen",
		TransactionHash: "0xabc",
	}
}

func redeemActivity(market, usdcSize, size string, ts int64) domain.Activity {
	return domain.Activity{
		Kind:            domain.ActivityRedeem,
		Market:          market,
		Size:            d(size),
		UsdcSize:        d(usdcSize),
		Timestamp:       ts,
		Title:           "Settled market",
		Slug:            "sports-settled-market",
		TransactionHash: "0xdef",
	}
}

func TestGroupTrades_BuySellAggregates(t *testing.T) {
	buy := groupFill("m1", "Yes", domain.SideBuy, "0.40", "100", 100)
	sell := groupFill("m1", "Yes", domain.SideSell, "0.60", "100", 200)
	sell.FeeRateBps = d("200")

	groups := GroupTrades([]domain.Trade{buy, sell})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if !g.AvgBuyPrice.Equal(d("0.4")) {
		t.Errorf("avg buy price = %s, want 0.4", g.AvgBuyPrice)
	}
	if !g.TotalBought.Equal(d("40")) {
		t.Errorf("total bought = %s, want 40", g.TotalBought)
	}
	// (60 − 1.20) − 40 = 18.80
	if !g.PnL.Equal(d("18.8")) {
		t.Errorf("pnl = %s, want 18.8", g.PnL)
	}
	if g.LastMatchTime != 200 {
		t.Errorf("last match time = %d, want 200", g.LastMatchTime)
	}
}

func TestGroupTrades_PartitionsExhaustiveAndDisjoint(t *testing.T) {
	trades := []domain.Trade{
		groupFill("m1", "Yes", domain.SideBuy, "0.5", "10", 1),
		groupFill("m1", "No", domain.SideBuy, "0.5", "20", 2),
		groupFill("m2", "Yes", domain.SideBuy, "0.5", "30", 3),
		groupFill("m1", "Yes", domain.SideSell, "0.5", "40", 4),
	}

	groups := GroupTrades(trades)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Each input trade contributes to exactly one group: the per-group BUY
	// notionals must add up to the input's BUY notional.
	total := d("0")
	for _, g := range groups {
		total = total.Add(g.TotalBought)
	}
	if !total.Equal(d("30")) { // 5 + 10 + 15
		t.Errorf("summed total_bought = %s, want 30", total)
	}
}

func TestGroupTrades_NoBuyFills(t *testing.T) {
	groups := GroupTrades([]domain.Trade{
		groupFill("m1", "Yes", domain.SideSell, "0.80", "25", 50),
	})
	g := groups[0]
	if !g.AvgBuyPrice.IsZero() || !g.TotalBought.IsZero() {
		t.Errorf("expected zero avg/total for sell-only group, got %s / %s", g.AvgBuyPrice, g.TotalBought)
	}
	if !g.PnL.Equal(d("20")) {
		t.Errorf("pnl = %s, want 20", g.PnL)
	}
}

func TestGroupTrades_SortedNewestFirst(t *testing.T) {
	groups := GroupTrades([]domain.Trade{
		groupFill("m1", "Yes", domain.SideBuy, "0.5", "1", 100),
		groupFill("m2", "Yes", domain.SideBuy, "0.5", "1", 300),
		groupFill("m3", "Yes", domain.SideBuy, "0.5", "1", 200),
	})

	want := []int64{300, 200, 100}
	for i, g := range groups {
		if g.LastMatchTime != want[i] {
			t.Errorf("groups[%d].LastMatchTime = %d, want %d", i, g.LastMatchTime, want[i])
		}
	}
}

func TestGroupTrades_TitleFromEarliestFill(t *testing.T) {
	first := groupFill("m1", "Yes", domain.SideBuy, "0.5", "1", 100)
	first.MarketTitle = "original title"
	first.Category = "politics"
	later := groupFill("m1", "Yes", domain.SideBuy, "0.5", "1", 200)
	later.MarketTitle = "renamed title"
	later.Category = "renamed"

	// Input order must not matter.
	for _, trades := range [][]domain.Trade{{first, later}, {later, first}} {
		g := GroupTrades(trades)[0]
		if g.MarketTitle != "original title" || g.Category != "politics" {
			t.Errorf("group metadata = %q/%q, want earliest fill's", g.MarketTitle, g.Category)
		}
	}
}

func TestTradesFromActivities_RedeemBecomesSell(t *testing.T) {
	trades := TradesFromActivities([]domain.Activity{
		redeemActivity("m1", "50", "100", 900),
	})
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Side != domain.SideSell {
		t.Errorf("side = %s, want SELL", tr.Side)
	}
	if !tr.Price.Equal(d("0.5")) {
		t.Errorf("price = %s, want 0.5", tr.Price)
	}
	if !tr.Size.Equal(d("100")) {
		t.Errorf("size = %s, want 100", tr.Size)
	}
	if !tr.FeeRateBps.IsZero() {
		t.Errorf("fee rate = %s, want 0", tr.FeeRateBps)
	}
}

func TestTradesFromActivities_SkipsZeroSizeRedeem(t *testing.T) {
	trades := TradesFromActivities([]domain.Activity{
		redeemActivity("m1", "0", "0", 900),
		tradeActivity("m2", "Yes", domain.SideBuy, "0.3", "10", 901),
	})
	if len(trades) != 1 {
		t.Fatalf("expected zero-size redeem to be skipped, got %d trades", len(trades))
	}
	if trades[0].Market != "m2" {
		t.Errorf("surviving trade market = %s, want m2", trades[0].Market)
	}
}

func TestApplyRedemptions_MergesIntoExistingGroup(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 100),
		redeemActivity("m1", "100", "100", 500),
	}
	groups := ApplyRedemptions(GroupTrades(FillTrades(acts)), acts)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	// −40 spent + 100 redeemed
	if !g.PnL.Equal(d("60")) {
		t.Errorf("pnl = %s, want 60", g.PnL)
	}
	if g.LastMatchTime != 500 {
		t.Errorf("last match time = %d, want redemption time 500", g.LastMatchTime)
	}
	if g.Outcome != "Yes" {
		t.Errorf("outcome = %s, want Yes", g.Outcome)
	}
}

func TestApplyRedemptions_OlderRedemptionKeepsGroupTime(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.40", "100", 800),
		redeemActivity("m1", "10", "10", 500),
	}
	g := ApplyRedemptions(GroupTrades(FillTrades(acts)), acts)[0]
	if g.LastMatchTime != 800 {
		t.Errorf("last match time = %d, want 800", g.LastMatchTime)
	}
}

func TestApplyRedemptions_RedeemOnlyGroup(t *testing.T) {
	acts := []domain.Activity{
		redeemActivity("m9", "25", "50", 700),
		redeemActivity("m9", "10", "20", 900),
	}
	groups := ApplyRedemptions(nil, acts)

	if len(groups) != 1 {
		t.Fatalf("expected 1 synthesized group, got %d", len(groups))
	}
	g := groups[0]
	if g.Outcome != domain.RedeemOnlyOutcome {
		t.Errorf("outcome = %q, want sentinel %q", g.Outcome, domain.RedeemOnlyOutcome)
	}
	if !g.AvgBuyPrice.IsZero() || !g.TotalBought.IsZero() {
		t.Errorf("expected zero avg/total, got %s / %s", g.AvgBuyPrice, g.TotalBought)
	}
	if !g.PnL.Equal(d("35")) {
		t.Errorf("pnl = %s, want 35", g.PnL)
	}
	if g.LastMatchTime != 900 {
		t.Errorf("last match time = %d, want 900", g.LastMatchTime)
	}
	if g.Category != "sports" {
		t.Errorf("category = %q, want sports", g.Category)
	}
}

func TestApplyRedemptions_KeyedByMarketNotOutcome(t *testing.T) {
	// The redemption has no outcome; it must still settle the "No" group of
	// the same market.
	acts := []domain.Activity{
		tradeActivity("m1", "No", domain.SideBuy, "0.20", "100", 100),
		redeemActivity("m1", "100", "100", 200),
	}
	groups := ApplyRedemptions(GroupTrades(FillTrades(acts)), acts)
	if len(groups) != 1 {
		t.Fatalf("expected redemption to merge by market, got %d groups", len(groups))
	}
	if !groups[0].PnL.Equal(d("80")) {
		t.Errorf("pnl = %s, want 80", groups[0].PnL)
	}
}

func TestApplyRedemptions_ResortsByLastMatchTime(t *testing.T) {
	acts := []domain.Activity{
		tradeActivity("m1", "Yes", domain.SideBuy, "0.5", "1", 300),
		tradeActivity("m2", "Yes", domain.SideBuy, "0.5", "1", 100),
		redeemActivity("m2", "1", "1", 999),
	}
	groups := ApplyRedemptions(GroupTrades(FillTrades(acts)), acts)
	if groups[0].Market != "m2" || groups[1].Market != "m1" {
		t.Errorf("expected redeemed m2 first, got [%s %s]", groups[0].Market, groups[1].Market)
	}
}
