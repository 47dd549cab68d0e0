package classifier

import (
	"errors"
	"testing"
	"time"

	"github.com/finbolt/ghb/internal/core"
)

// seriesWith builds an n-bar daily series ending at end, where every close
// is flat at base and the final close is last. A flat prefix pins the
// moving average at base so tests can place the last bar precisely.
func seriesWith(n int, base, last float64, end time.Time) core.PriceSeries {
	series := make(core.PriceSeries, n)
	for i := 0; i < n; i++ {
		date := end.AddDate(0, 0, i-n+1)
		close := base
		if i == n-1 {
			close = last
		}
		series[i] = core.PricePoint{Date: date, Open: close, High: close, Low: close, Close: close, Volume: 1000}
	}
	return series
}

var asOf = time.Date(2021, 6, 4, 0, 0, 0, 0, time.UTC)

func TestClassify_InsufficientHistory(t *testing.T) {
	series := seriesWith(150, 100, 100, asOf)

	_, err := Classify("AAPL", series, asOf, DefaultParams())
	if !errors.Is(err, core.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestClassify_NoLookAhead(t *testing.T) {
	// 250 bars, but only 150 at or before the requested date.
	series := seriesWith(250, 100, 100, asOf.AddDate(0, 0, 100))

	_, err := Classify("AAPL", series, asOf, DefaultParams())
	if !errors.Is(err, core.ErrInsufficientHistory) {
		t.Fatalf("classifier saw future bars: %v", err)
	}
}

func TestClassify_States(t *testing.T) {
	tests := []struct {
		name string
		base float64
		last float64
		want core.State
	}{
		// MA stays ~base because 199 of 200 closes are flat.
		{"extended above average is P1", 100, 115, core.StateP1},
		{"modestly above average is P2", 100, 103, core.StateP2},
		{"shallow pullback is N1", 100, 97, core.StateN1},
		{"deep breakdown is N2", 100, 80, core.StateN2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := seriesWith(200, tt.base, tt.last, asOf)
			sig, err := Classify("TEST", series, asOf, DefaultParams())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sig.State != tt.want {
				t.Errorf("state = %s, want %s (close=%.2f ma=%.2f roc=%.2f dist=%.2f)",
					sig.State, tt.want, sig.Close, sig.MA, sig.ROC, sig.Distance)
			}
		})
	}
}

func TestClassify_MomentumEntry(t *testing.T) {
	// Close barely above the MA, but 20-day ROC above 5% still makes P1.
	series := seriesWith(220, 100, 100, asOf)
	for i := 200; i < 220; i++ {
		series[i].Close = 100 + float64(i-199)*0.3 // ~+6% over 20 bars
	}

	sig, err := Classify("MOMO", series, asOf, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.ROC <= 5 {
		t.Fatalf("test setup: ROC = %.2f, want > 5", sig.ROC)
	}
	if sig.State != core.StateP1 {
		t.Errorf("state = %s, want P1 on momentum", sig.State)
	}
}

func TestClassify_DegenerateAverage(t *testing.T) {
	// All-zero closes: MA is zero. Must classify, not panic.
	series := seriesWith(200, 0, 0, asOf)

	sig, err := Classify("BAD", series, asOf, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.State != core.StateN2 {
		t.Errorf("state = %s, want N2 for degenerate average", sig.State)
	}
	if sig.Distance != 0 {
		t.Errorf("distance = %f, want 0", sig.Distance)
	}
}

func TestClassify_Pure(t *testing.T) {
	series := seriesWith(210, 100, 108, asOf)

	first, err := Classify("PURE", series, asOf, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Classify("PURE", series, asOf, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("classifier is not pure: %+v != %+v", first, second)
	}
}

func TestParams_Validate(t *testing.T) {
	bad := DefaultParams()
	bad.MAPeriod = 0
	if err := bad.Validate(); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("default params should validate, got %v", err)
	}
}
