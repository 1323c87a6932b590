package models

import "testing"

func TestClassifySignal(t *testing.T) {
	tests := []struct {
		name       string
		horizon    int
		change     float64
		confidence float64
		want       Signal
	}{
		{"1d strong buy", 1, 1.5, 0.70, SignalStrongBuy},
		{"1d buy", 1, 0.8, 0.60, SignalBuy},
		{"1d noise", 1, 0.3, 0.90, SignalNeutral},
		{"7d strong sell", 7, -3.5, 0.70, SignalStrongSell},
		{"7d sell", 7, -1.5, 0.60, SignalSell},
		{"30d strong buy above 6", 30, 6.5, 0.70, SignalStrongBuy},
		{"30d 5.5 stays buy", 30, 5.5, 0.70, SignalBuy},
		{"30d strong sell below -6", 30, -6.5, 0.70, SignalStrongSell},
		{"30d -5.5 stays sell", 30, -5.5, 0.70, SignalSell},
		{"low confidence gates strong", 7, 4.0, 0.60, SignalBuy},
		{"low confidence gates everything", 7, 4.0, 0.40, SignalNeutral},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySignal(tc.horizon, tc.change, tc.confidence); got != tc.want {
				t.Fatalf("ClassifySignal(%d, %v, %v) = %s, want %s", tc.horizon, tc.change, tc.confidence, got, tc.want)
			}
		})
	}
}
