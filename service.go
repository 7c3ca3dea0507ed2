package trading

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/indicator"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

var (
	ErrExecutionsRequired = errors.New("at least one execution required")
	ErrNoPrices           = errors.New("no prices in range")
)

// StatusCode maps service errors onto the status codes every transport
// reports. Anything unrecognised is 417.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, execution.ErrExecutionNotFound):
		return http.StatusNotFound

	case errors.Is(err, execution.ErrInvalidExecution),
		errors.Is(err, ErrExecutionsRequired),
		errors.Is(err, indicator.ErrInvalidPeriod),
		errors.Is(err, price.ErrIntervalNotSupported),
		errors.Is(err, price.ErrInstrumentNotSupported),
		errors.Is(err, price.ErrCategoryNotSupported),
		errors.Is(err, price.ErrInvalidTimeRange),
		errors.Is(err, price.ErrInvalidLimit),
		errors.Is(err, prompt.ErrLanguageNotSupported):
		return http.StatusBadRequest

	default:
		return http.StatusExpectationFailed
	}
}

// MACD and ATR periods used when a request leaves them unset.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
	DefaultATR        = 14
)

type Service interface {
	Prices(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error)
	Indicators(ctx context.Context, req IndicatorsRequest) (*IndicatorSet, error)
	Snapshot(ctx context.Context, req SnapshotRequest) (*prompt.PriceIndicatorSnapshot, error)
	RecordExecution(ctx context.Context, req RecordExecutionRequest) (*execution.Execution, error)
	Execution(id execution.ID) (*execution.Execution, error)
	Executions(symbol price.Instrument) ([]*execution.Execution, error)
	DeleteExecution(ctx context.Context, id execution.ID) error
	Review(ctx context.Context, req ReviewRequest) (prompt.LocalizableString, error)
}

type ServiceMiddleware func(Service) Service

type IndicatorsRequest struct {
	Context    price.ProviderContext
	EMAFast    int
	EMASlow    int
	RSI        int
	ATR        int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

type IndicatorSet struct {
	Symbol   price.MarketIdentifier `json:"symbol"`
	Interval price.Interval         `json:"interval"`
	Prices   []*price.Price         `json:"prices"`
	EMAFast  indicator.Series       `json:"ema_fast"`
	EMASlow  indicator.Series       `json:"ema_slow"`
	RSI      indicator.Series       `json:"rsi"`
	ATR      indicator.Series       `json:"atr"`
	MACD     *indicator.MACDResult  `json:"macd"`
}

type SnapshotRequest struct {
	Context    price.ProviderContext
	WindowSize int
}

type RecordExecutionRequest struct {
	Symbol              string  `json:"symbol" yaml:"symbol" binding:"required"`
	BuyTimestamp        string  `json:"buy_timestamp" yaml:"buy_timestamp" binding:"required"`
	SellTimestamp       string  `json:"sell_timestamp" yaml:"sell_timestamp" binding:"required"`
	BuyPrice            float64 `json:"buy_price" yaml:"buy_price" binding:"required"`
	SellPrice           float64 `json:"sell_price" yaml:"sell_price" binding:"required"`
	Profit              float64 `json:"profit" yaml:"profit"`
	TakeProfit          float64 `json:"take_profit" yaml:"take_profit"`
	TakeProfitRate      float64 `json:"take_profit_rate" yaml:"take_profit_rate"`
	StopLoss            float64 `json:"stop_loss" yaml:"stop_loss"`
	RewardRiskRatio     float64 `json:"reward_risk_ratio" yaml:"reward_risk_ratio"`
	WinRate             float64 `json:"win_rate" yaml:"win_rate"`
	PriorCostRate       float64 `json:"prior_cost_rate" yaml:"prior_cost_rate"`
	PosteriorGrowthRate float64 `json:"posterior_growth_rate" yaml:"posterior_growth_rate"`
	SellBeforeBuy       bool    `json:"sell_before_buy" yaml:"sell_before_buy"`
}

// Execution builds an unsaved aggregate from the request.
func (req RecordExecutionRequest) Execution() (*execution.Execution, error) {
	symbol, err := price.NewMarketIdentifier(req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", execution.ErrInvalidExecution, err)
	}

	e := execution.NewExecution(symbol)
	e.BuyTimestamp = req.BuyTimestamp
	e.SellTimestamp = req.SellTimestamp
	e.BuyPrice = req.BuyPrice
	e.SellPrice = req.SellPrice
	e.Profit = req.Profit
	e.TakeProfit = req.TakeProfit
	e.TakeProfitRate = req.TakeProfitRate
	e.StopLoss = req.StopLoss
	e.RewardRiskRatio = req.RewardRiskRatio
	e.WinRate = req.WinRate
	e.PriorCostRate = req.PriorCostRate
	e.PosteriorGrowthRate = req.PosteriorGrowthRate
	e.SellBeforeBuy = req.SellBeforeBuy

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// ReviewRequest names stored executions by ID and may carry further
// executions inline. Inline executions are reviewed but not stored.
type ReviewRequest struct {
	Context      price.ProviderContext
	ExecutionIDs []execution.ID
	Executions   []RecordExecutionRequest
	Comments     prompt.LocalizableString
	WindowSize   int
}

func NewService(executions execution.Repository, provider price.Provider, cfg conf.Review) Service {
	return &service{cfg, executions, provider}
}

type service struct {
	cfg        conf.Review
	executions execution.Repository
	provider   price.Provider
}

func (svc *service) Prices(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	return svc.provider.Fetch(ctx, pctx)
}

func (svc *service) fetch(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	prices, err := svc.provider.Fetch(ctx, pctx)
	if err != nil {
		return nil, err
	}

	if len(prices) == 0 {
		return nil, ErrNoPrices
	}

	return prices, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (svc *service) Indicators(ctx context.Context, req IndicatorsRequest) (*IndicatorSet, error) {
	prices, err := svc.fetch(ctx, req.Context)
	if err != nil {
		return nil, err
	}

	set := &IndicatorSet{
		Symbol:   req.Context.Symbol,
		Interval: req.Context.Interval,
		Prices:   prices,
	}

	set.EMAFast, err = indicator.EMA(prices, orDefault(req.EMAFast, svc.cfg.EMAFast))
	if err != nil {
		return nil, err
	}

	set.EMASlow, err = indicator.EMA(prices, orDefault(req.EMASlow, svc.cfg.EMASlow))
	if err != nil {
		return nil, err
	}

	set.RSI, err = indicator.RSI(prices, orDefault(req.RSI, svc.cfg.RSI))
	if err != nil {
		return nil, err
	}

	set.ATR, err = indicator.ATR(prices, orDefault(req.ATR, DefaultATR))
	if err != nil {
		return nil, err
	}

	set.MACD, err = indicator.MACD(prices,
		orDefault(req.MACDFast, DefaultMACDFast),
		orDefault(req.MACDSlow, DefaultMACDSlow),
		orDefault(req.MACDSignal, DefaultMACDSignal),
	)
	if err != nil {
		return nil, err
	}

	return set, nil
}

func (svc *service) Snapshot(ctx context.Context, req SnapshotRequest) (*prompt.PriceIndicatorSnapshot, error) {
	prices, err := svc.fetch(ctx, req.Context)
	if err != nil {
		return nil, err
	}

	rsi, err := indicator.RSI(prices, svc.cfg.RSI)
	if err != nil {
		return nil, err
	}

	emaFast, err := indicator.EMA(prices, svc.cfg.EMAFast)
	if err != nil {
		return nil, err
	}

	emaSlow, err := indicator.EMA(prices, svc.cfg.EMASlow)
	if err != nil {
		return nil, err
	}

	return &prompt.PriceIndicatorSnapshot{
		Prices:     prices,
		RSI:        rsi,
		EMA20:      emaFast,
		EMA50:      emaSlow,
		WindowSize: orDefault(req.WindowSize, svc.cfg.WindowSize),
		Location:   svc.cfg.Location,
	}, nil
}

func (svc *service) RecordExecution(ctx context.Context, req RecordExecutionRequest) (*execution.Execution, error) {
	e, err := req.Execution()
	if err != nil {
		return nil, err
	}

	e.Record()

	if err := svc.executions.Store(e); err != nil {
		return nil, err
	}

	defer e.Notify()

	return e, nil
}

func (svc *service) Execution(id execution.ID) (*execution.Execution, error) {
	return svc.executions.Find(id)
}

func (svc *service) Executions(symbol price.Instrument) ([]*execution.Execution, error) {
	if symbol == "" {
		return svc.executions.ListAll()
	}

	return svc.executions.FindBySymbol(symbol)
}

func (svc *service) DeleteExecution(ctx context.Context, id execution.ID) error {
	e, err := svc.executions.Find(id)
	if err != nil {
		return err
	}

	e.Delete()

	if err := svc.executions.Delete(e); err != nil {
		return err
	}

	defer e.Notify()

	return nil
}

func (svc *service) Review(ctx context.Context, req ReviewRequest) (prompt.LocalizableString, error) {
	executions := make([]*execution.Execution, 0, len(req.ExecutionIDs)+len(req.Executions))

	for _, id := range req.ExecutionIDs {
		e, err := svc.executions.Find(id)
		if err != nil {
			return nil, err
		}

		executions = append(executions, e)
	}

	for _, r := range req.Executions {
		e, err := r.Execution()
		if err != nil {
			return nil, err
		}

		executions = append(executions, e)
	}

	if len(executions) == 0 {
		return nil, ErrExecutionsRequired
	}

	snapshot, err := svc.Snapshot(ctx, SnapshotRequest{
		Context:    req.Context,
		WindowSize: req.WindowSize,
	})
	if err != nil {
		return nil, err
	}

	review := &prompt.TradeReviewContext{
		Executions: executions,
		Snapshot:   snapshot,
		Comments:   req.Comments,
	}

	return review.Build()
}
