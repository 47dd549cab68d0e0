package indicator

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// LastSMA returns the simple moving average of the trailing window only.
// Returns 0 if fewer than period prices are available.
func LastSMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// ROC returns the percentage rate of change between the latest price and
// the price period bars earlier. Returns 0 when the series is too short,
// matching the warm-up behavior of the weekly classifier.
func ROC(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0
	}
	base := prices[len(prices)-1-period]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1] - base) / base * 100
}

// PercentDistance returns the percentage distance of price from the
// moving average. A non-positive average yields 0 rather than a division
// blow-up; that only happens on malformed data.
func PercentDistance(price, ma float64) float64 {
	if ma <= 0 {
		return 0
	}
	return (price - ma) / ma * 100
}
