package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/price"
)

const klinesPath = "/api/v3/klines"

// intervals maps to Binance notation, which spells one month "1M".
var intervals = map[price.Interval]string{
	price.Minute:   "1m",
	price.Minute5:  "5m",
	price.Minute15: "15m",
	price.Minute30: "30m",
	price.Hour:     "1h",
	price.Hour4:    "4h",
	price.Day:      "1d",
	price.Week:     "1w",
	price.Month:    "1M",
}

func Interval(i price.Interval) (string, error) {
	interval, ok := intervals[i]
	if !ok {
		return "", price.ErrIntervalNotSupported
	}
	return interval, nil
}

// APIError is the error body Binance returns with a non 2xx status.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: status %d, code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Provider retrieves historical klines from the Binance public REST API.
type Provider struct {
	cfg     conf.Binance
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewProvider(cfg conf.Binance, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		log: log.With(
			zap.String("infra", "provider"),
			zap.String("provider", "binance"),
		),
	}
}

// Fetch pages through the requested range, advancing past the close time
// of the last kline of each batch until the range or the limit is
// exhausted.
func (p *Provider) Fetch(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	if err := pctx.Validate(); err != nil {
		return nil, err
	}

	if pctx.Symbol.Category != price.Crypto {
		return nil, price.ErrCategoryNotSupported
	}

	interval, err := Interval(pctx.Interval)
	if err != nil {
		return nil, err
	}

	log := p.log.With(
		zap.String("symbol", pctx.Symbol.Instrument.String()),
		zap.String("interval", interval),
	)

	start := price.ToMilliseconds(pctx.StartTime)
	end := price.ToMilliseconds(pctx.EndTime)

	prices := make([]*price.Price, 0)
	next := start

	for next <= end {
		rows, err := p.klines(ctx, pctx, interval, next, end-1)
		if err != nil {
			return nil, err
		}

		log.Debug("batch fetched",
			zap.Int64("start", next),
			zap.Int("rows", len(rows)),
		)

		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			prices = append(prices, row.price(pctx))

			if pctx.Limit > 0 && len(prices) >= pctx.Limit {
				return sorted(prices), nil
			}
		}

		next = rows[len(rows)-1].CloseTime + 1
	}

	return sorted(prices), nil
}

func sorted(prices []*price.Price) []*price.Price {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Timestamp.Before(prices[j].Timestamp)
	})
	return prices
}

func (p *Provider) klines(ctx context.Context, pctx price.ProviderContext, interval string, start, end int64) ([]kline, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", pctx.Symbol.Instrument.String())
	params.Set("interval", interval)
	params.Set("startTime", strconv.FormatInt(start, 10))
	params.Set("endTime", strconv.FormatInt(end, 10))
	if pctx.Limit > 0 {
		params.Set("limit", strconv.Itoa(pctx.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+klinesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var rows []kline
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}

	return rows, nil
}

// kline is one row of the klines response:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...]
type kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

func (k *kline) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}

	if len(row) < 7 {
		return fmt.Errorf("kline has %d fields", len(row))
	}

	if err := json.Unmarshal(row[0], &k.OpenTime); err != nil {
		return err
	}

	if err := json.Unmarshal(row[6], &k.CloseTime); err != nil {
		return err
	}

	for i, dst := range []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume} {
		v, err := decimal(row[i+1])
		if err != nil {
			return err
		}
		*dst = v
	}

	return nil
}

// decimal parses the quoted decimal strings Binance uses for prices.
func decimal(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, err
		}
		return f, nil
	}

	return strconv.ParseFloat(s, 64)
}

func (k *kline) price(pctx price.ProviderContext) *price.Price {
	return &price.Price{
		Symbol:    pctx.Symbol,
		Interval:  pctx.Interval,
		Timestamp: price.FromMilliseconds(k.OpenTime),
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}
}
