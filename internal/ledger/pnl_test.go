package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// d is a test helper for creating decimals from strings.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fill(side domain.Side, price, size, feeBps string, matchTime int64) domain.Trade {
	return domain.Trade{
		ID:         "t1",
		Market:     "0xcond",
		Side:       side,
		Size:       d(size),
		Price:      d(price),
		FeeRateBps: d(feeBps),
		Status:     "CONFIRMED",
		MatchTime:  matchTime,
		Outcome:    "Yes",
	}
}

func TestTradePnL_SellNetOfFee(t *testing.T) {
	// 0.60 × 100 = 60 gross, fee at 200 bps = 1.20
	got := TradePnL(fill(domain.SideSell, "0.60", "100", "200", 0))
	if !got.Equal(d("58.8")) {
		t.Errorf("expected 58.8, got %s", got)
	}
}

func TestTradePnL_BuyIncludesFee(t *testing.T) {
	got := TradePnL(fill(domain.SideBuy, "0.40", "100", "200", 0))
	if !got.Equal(d("-40.8")) {
		t.Errorf("expected -40.8, got %s", got)
	}
}

func TestTradePnL_ZeroFee(t *testing.T) {
	got := TradePnL(fill(domain.SideBuy, "0.25", "8", "0", 0))
	if !got.Equal(d("-2")) {
		t.Errorf("expected -2, got %s", got)
	}
}

func TestDailyPnL_BucketsByCalendarDay(t *testing.T) {
	day1 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Unix()
	day1later := time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC).Unix()

	daily := DailyPnL([]domain.Trade{
		fill(domain.SideBuy, "0.50", "10", "0", day1),
		fill(domain.SideSell, "0.70", "10", "0", day1later),
		fill(domain.SideSell, "1.00", "10", "0", day2),
	}, time.UTC)

	if len(daily) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(daily))
	}
	if daily[0].Date != "2024-03-11" || !daily[0].Amount.Equal(d("10")) {
		t.Errorf("newest bucket = %s %s, want 2024-03-11 10", daily[0].Date, daily[0].Amount)
	}
	if daily[1].Date != "2024-03-10" || !daily[1].Amount.Equal(d("2")) {
		t.Errorf("older bucket = %s %s, want 2024-03-10 2", daily[1].Date, daily[1].Amount)
	}
}

func TestDailyPnL_TimeZoneShiftsBucket(t *testing.T) {
	// 23:30 UTC belongs to the next day two hours east.
	ts := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC).Unix()
	trades := []domain.Trade{fill(domain.SideSell, "0.50", "10", "0", ts)}

	utc := DailyPnL(trades, time.UTC)
	east := DailyPnL(trades, time.FixedZone("UTC+2", 2*3600))

	if utc[0].Date != "2024-03-10" {
		t.Errorf("UTC bucket = %s, want 2024-03-10", utc[0].Date)
	}
	if east[0].Date != "2024-03-11" {
		t.Errorf("UTC+2 bucket = %s, want 2024-03-11", east[0].Date)
	}
}

func TestTotalPnL_EqualsDirectSum(t *testing.T) {
	trades := []domain.Trade{
		fill(domain.SideBuy, "0.40", "100", "200", 1000),
		fill(domain.SideSell, "0.60", "100", "200", 90000),
		fill(domain.SideBuy, "0.15", "33", "0", 180000),
		fill(domain.SideSell, "0.95", "33", "50", 270000),
	}

	direct := decimal.Zero
	for _, tr := range trades {
		direct = direct.Add(TradePnL(tr))
	}

	total := TotalPnL(DailyPnL(trades, time.UTC))
	if !total.Equal(direct) {
		t.Errorf("bucketed total %s != direct sum %s", total, direct)
	}
}

func TestDailyPnL_EmptyInput(t *testing.T) {
	daily := DailyPnL(nil, time.UTC)
	if len(daily) != 0 {
		t.Fatalf("expected no buckets, got %d", len(daily))
	}
	if !TotalPnL(daily).IsZero() {
		t.Errorf("expected zero total")
	}
}
