package price

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrIntervalNotSupported   = errors.New("interval not supported")
	ErrInstrumentNotSupported = errors.New("instrument not supported")
	ErrCategoryNotSupported   = errors.New("category not supported")
	ErrInvalidTimeRange       = errors.New("invalid time range")
	ErrInvalidLimit           = errors.New("invalid limit")
)

// Interval is the unit of time each price record aggregates.
type Interval string

const (
	Minute   Interval = "1m"
	Minute5  Interval = "5m"
	Minute15 Interval = "15m"
	Minute30 Interval = "30m"
	Hour     Interval = "1h"
	Hour4    Interval = "4h"
	Day      Interval = "1d"
	Week     Interval = "1w"
	Month    Interval = "1mo"
)

var intervals = []Interval{
	Minute, Minute5, Minute15, Minute30, Hour, Hour4, Day, Week, Month,
}

func ParseInterval(interval string) (Interval, error) {
	for _, i := range intervals {
		if string(i) == interval {
			return i, nil
		}
	}

	return "", ErrIntervalNotSupported
}

func (i Interval) String() string {
	return string(i)
}

// Category is the broad class of a tradable asset.
type Category string

const (
	Equity Category = "equity"
	Crypto Category = "crypto"
)

func ParseCategory(category string) (Category, error) {
	switch strings.ToLower(category) {
	case "equity":
		return Equity, nil
	case "crypto":
		return Crypto, nil
	default:
		return "", ErrCategoryNotSupported
	}
}

// Instrument is a trading symbol available for analysis.
type Instrument string

const (
	ETHUSDT Instrument = "ETHUSDT"
	BTCUSDT Instrument = "BTCUSDT"
	AAPL    Instrument = "AAPL"
	NVDA    Instrument = "NVDA"
	TSLA    Instrument = "TSLA"
)

var instruments = map[Instrument]Category{
	ETHUSDT: Crypto,
	BTCUSDT: Crypto,
	AAPL:    Equity,
	NVDA:    Equity,
	TSLA:    Equity,
}

func ParseInstrument(instrument string) (Instrument, error) {
	i := Instrument(strings.ToUpper(instrument))
	if _, ok := instruments[i]; !ok {
		return "", ErrInstrumentNotSupported
	}

	return i, nil
}

func (i Instrument) String() string {
	return string(i)
}

// Category returns the market class the instrument is listed under.
func (i Instrument) Category() Category {
	return instruments[i]
}

// MarketIdentifier uniquely identifies what is being traded across
// providers, storage and prompt rendering.
type MarketIdentifier struct {
	Instrument Instrument `json:"instrument" yaml:"instrument"`
	Category   Category   `json:"category" yaml:"category"`
}

// NewMarketIdentifier resolves the category from the instrument table.
func NewMarketIdentifier(instrument string) (MarketIdentifier, error) {
	i, err := ParseInstrument(instrument)
	if err != nil {
		return MarketIdentifier{}, err
	}

	return MarketIdentifier{
		Instrument: i,
		Category:   i.Category(),
	}, nil
}

func (id MarketIdentifier) String() string {
	return string(id.Category) + ":" + string(id.Instrument)
}

// Price is a single OHLCV record for one interval.
type Price struct {
	Symbol    MarketIdentifier `json:"symbol"`
	Interval  Interval         `json:"interval"`
	Timestamp time.Time        `json:"timestamp"` // open time, UTC
	Open      float64          `json:"open"`
	High      float64          `json:"high"`
	Low       float64          `json:"low"`
	Close     float64          `json:"close"`
	Volume    float64          `json:"volume"`
}

// ProviderContext carries the parameters for one Fetch call.
type ProviderContext struct {
	Symbol    MarketIdentifier `json:"symbol"`
	Interval  Interval         `json:"interval"`
	StartTime time.Time        `json:"start_time"` // inclusive
	EndTime   time.Time        `json:"end_time"`   // exclusive
	Limit     int              `json:"limit"`      // 0 means no limit
}

func (ctx ProviderContext) Validate() error {
	if _, err := ParseInstrument(string(ctx.Symbol.Instrument)); err != nil {
		return err
	}

	if _, err := ParseInterval(string(ctx.Interval)); err != nil {
		return err
	}

	if !ctx.StartTime.Before(ctx.EndTime) {
		return ErrInvalidTimeRange
	}

	if ctx.Limit < 0 {
		return ErrInvalidLimit
	}

	return nil
}

// Key identifies the context for caching purposes.
func (ctx ProviderContext) Key() string {
	bs, _ := json.Marshal(struct {
		Symbol   string
		Interval Interval
		Start    int64
		End      int64
		Limit    int
	}{
		Symbol:   ctx.Symbol.String(),
		Interval: ctx.Interval,
		Start:    ToMilliseconds(ctx.StartTime),
		End:      ToMilliseconds(ctx.EndTime),
		Limit:    ctx.Limit,
	})

	return string(bs)
}

// Provider connects to a market data source and returns standardized
// price records ordered by timestamp.
type Provider interface {
	Fetch(ctx context.Context, pctx ProviderContext) ([]*Price, error)
}

// Closes extracts the close price of every record.
func Closes(prices []*Price) []float64 {
	values := make([]float64, len(prices))
	for i, p := range prices {
		values[i] = p.Close
	}

	return values
}
