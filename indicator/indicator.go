// Package indicator computes technical indicators over price series.
//
// Every indicator returns a Series aligned with its input: entry i belongs
// to price i. Entries that cannot be computed yet, because not enough
// history is available, are NaN.
package indicator

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/kylaris/trading/price"
)

var ErrInvalidPeriod = errors.New("invalid period")

type Series []float64

// Valid reports whether the value at index i is available.
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// Last returns the latest available value.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i], true
		}
	}

	return math.NaN(), false
}

// MarshalJSON encodes unavailable values as null.
func (s Series) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) {
			v := s[i]
			values[i] = &v
		}
	}

	return json.Marshal(values)
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var values []*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	series := nanSeries(len(values))
	for i, v := range values {
		if v != nil {
			series[i] = *v
		}
	}

	*s = series
	return nil
}

func nanSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}

	return s
}

// EMA is the exponential moving average of close prices. It is seeded
// with the simple average of the first period closes.
func EMA(prices []*price.Price, period int) (Series, error) {
	return ema(price.Closes(prices), period)
}

func ema(values []float64, period int) (Series, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}

	results := nanSeries(len(values))
	if len(values) < period {
		return results, nil
	}

	var sum float64
	for _, v := range values[:period] {
		sum += v
	}

	previous := sum / float64(period)
	results[period-1] = previous

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		previous = alpha*values[i] + (1.0-alpha)*previous
		results[i] = previous
	}

	return results, nil
}

// RSI is the relative strength index using Wilder smoothing. The first
// value appears at index period.
func RSI(prices []*price.Price, period int) (Series, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}

	values := price.Closes(prices)

	results := nanSeries(len(values))
	if len(values) <= period {
		return results, nil
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		gains[i] = math.Max(diff, 0)
		losses[i] = math.Max(-diff, 0)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	results[period] = strength(avgGain, avgLoss)

	n := float64(period)
	for i := period + 1; i < len(values); i++ {
		avgGain = (avgGain*(n-1) + gains[i]) / n
		avgLoss = (avgLoss*(n-1) + losses[i]) / n
		results[i] = strength(avgGain, avgLoss)
	}

	return results, nil
}

func strength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	return 100 - (100 / (1 + avgGain/avgLoss))
}

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	Line      Series `json:"line"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACD computes the moving average convergence divergence. The signal
// line is the EMA of the available MACD values, right aligned to the
// price timeline.
func MACD(prices []*price.Price, fast, slow, signal int) (*MACDResult, error) {
	if signal < 1 {
		return nil, ErrInvalidPeriod
	}

	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return nil, err
	}

	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return nil, err
	}

	line := nanSeries(len(prices))
	available := make([]float64, 0, len(prices))
	for i := range line {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}

		line[i] = fastEMA[i] - slowEMA[i]
		available = append(available, line[i])
	}

	signalValues, err := ema(available, signal)
	if err != nil {
		return nil, err
	}

	signalLine := nanSeries(len(prices))
	copy(signalLine[len(prices)-len(signalValues):], signalValues)

	histogram := nanSeries(len(prices))
	for i := range histogram {
		if math.IsNaN(line[i]) || math.IsNaN(signalLine[i]) {
			continue
		}

		histogram[i] = line[i] - signalLine[i]
	}

	return &MACDResult{
		Line:      line,
		Signal:    signalLine,
		Histogram: histogram,
	}, nil
}

// ATR is the average true range using Wilder smoothing. The first value
// is the mean true range of the first period records.
func ATR(prices []*price.Price, period int) (Series, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}

	results := nanSeries(len(prices))
	if len(prices) < period {
		return results, nil
	}

	ranges := make([]float64, len(prices))
	for i, p := range prices {
		tr := p.High - p.Low
		if i > 0 {
			prev := prices[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(p.High-prev), math.Abs(p.Low-prev)))
		}
		ranges[i] = tr
	}

	var sum float64
	for _, tr := range ranges[:period] {
		sum += tr
	}

	atr := sum / float64(period)
	results[period-1] = atr

	n := float64(period)
	for i := period; i < len(prices); i++ {
		atr = (atr*(n-1) + ranges[i]) / n
		results[i] = atr
	}

	return results, nil
}
