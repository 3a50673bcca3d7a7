package ledger

import "testing"

func TestUnitBet_FivePercentRoundedDown(t *testing.T) {
	cases := []struct {
		balance string
		want    string
	}{
		{"1000", "50"},
		{"123.45", "6.17"},   // 6.1725 truncated
		{"0.19", "0"},        // 0.0095 truncates to zero
		{"0.20", "0.01"},     // exactly one cent
		{"999.99", "49.99"},  // 49.9995 truncated, never rounded up
		{"0", "0"},
	}
	for _, c := range cases {
		got := UnitBet(d(c.balance))
		if !got.Equal(d(c.want)) {
			t.Errorf("UnitBet(%s) = %s, want %s", c.balance, got, c.want)
		}
	}
}
