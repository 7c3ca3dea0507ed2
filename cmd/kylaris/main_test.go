package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/persistence"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

type sinePrices struct{}

func (sinePrices) Fetch(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	prices := make([]*price.Price, 0)
	for t := pctx.StartTime; t.Before(pctx.EndTime); t = t.Add(15 * time.Minute) {
		c := 2750 + 20*math.Sin(float64(len(prices))/4)
		prices = append(prices, &price.Price{
			Symbol:    pctx.Symbol,
			Interval:  pctx.Interval,
			Timestamp: t,
			Open:      c - 1,
			High:      c + 5,
			Low:       c - 5,
			Close:     c,
			Volume:    12,
		})
	}
	return prices, nil
}

type kylarisTestSuite struct {
	suite.Suite
	cfg *conf.Config
	svc trading.Service
}

func (suite *kylarisTestSuite) SetupSuite() {
	conf.Path = "../.."
	conf.Port = 8080

	cfg, err := conf.LoadConfig()
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	cfg.Persistence.Driver = conf.InMem

	repo, err := persistence.NewExecutionRepository(cfg.Persistence)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	svc := trading.NewService(repo, sinePrices{}, cfg.Review)
	svc = trading.LoggingMiddleware(zap.NewNop())(svc)

	suite.cfg = cfg
	suite.svc = svc
}

func (suite *kylarisTestSuite) pctx() price.ProviderContext {
	return price.ProviderContext{
		Symbol:    price.MarketIdentifier{Instrument: price.ETHUSDT, Category: price.Crypto},
		Interval:  price.Minute15,
		StartTime: time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *kylarisTestSuite) TestReviewExample() {
	input, err := loadReviewInput("../../review.example.yaml")
	suite.Require().NoError(err)
	suite.Require().Len(input.Executions, 2)
	suite.True(input.Executions[0].SellBeforeBuy)
	suite.Equal(-71.08, input.Executions[0].Profit)
	suite.Equal(-1.0, input.Executions[1].WinRate)

	review, err := suite.svc.Review(context.Background(), trading.ReviewRequest{
		Context:    suite.pctx(),
		Executions: input.Executions,
		Comments:   input.Comments,
	})
	suite.Require().NoError(err)

	chinese := review.Get(prompt.Chinese)
	suite.Equal(2, strings.Count(chinese, "<begin>"))
	suite.Contains(chinese, "2025/11/22 17:13以$2755开仓")
	suite.Contains(chinese, "-1 在比率和比例中表示不可用。")

	english := review.Get(prompt.English)
	suite.Contains(english, "-1 in ratios and rates indicates not available.")

	// the configured window keeps the last 48 of 96 rows
	suite.Equal(48, strings.Count(english, ", 12, "))
}

func (suite *kylarisTestSuite) TestLoadReviewInputKeepsDollarSigns() {
	suite.T().Setenv("HOME", "/home/trader")

	path := filepath.Join(suite.T().TempDir(), "review.yaml")
	err := os.WriteFile(path, []byte(`executions:
  - symbol: ETHUSDT
    buy_timestamp: 2025/11/22 17:13
    sell_timestamp: 2025/11/22 17:53
    buy_price: 2755
    sell_price: 2783
comments:
  english: price sat near $2750 all afternoon, $HOME is not a variable here
  chinese: 价格一整个下午都横盘在$2750附近
`), 0o644)
	suite.Require().NoError(err)

	input, err := loadReviewInput(path)
	suite.Require().NoError(err)

	suite.Equal("price sat near $2750 all afternoon, $HOME is not a variable here", input.Comments.Get(prompt.English))
	suite.Equal("价格一整个下午都横盘在$2750附近", input.Comments.Get(prompt.Chinese))
	suite.Equal("2025/11/22 17:13", input.Executions[0].BuyTimestamp)
}

func (suite *kylarisTestSuite) TestWriteIndicators() {
	set, err := suite.svc.Indicators(context.Background(), trading.IndicatorsRequest{Context: suite.pctx()})
	suite.Require().NoError(err)

	var buf bytes.Buffer
	err = writeIndicators(&buf, set, time.UTC, 3)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	suite.Require().Len(lines, 4)
	suite.True(strings.HasPrefix(lines[0], "TIME"))
	suite.True(strings.HasPrefix(lines[3], "2025-11-22 23:45"))
	suite.NotContains(lines[3], "nan")
}

func (suite *kylarisTestSuite) TestTracker() {
	history, err := sinePrices{}.Fetch(context.Background(), suite.pctx())
	suite.Require().NoError(err)

	t := newTracker(history[:60], suite.cfg.Review)
	suite.Len(t.prices, 60)

	values, err := t.Add(history[60])
	suite.Require().NoError(err)
	suite.False(math.IsNaN(values.EMAFast))
	suite.False(math.IsNaN(values.EMASlow))
	suite.False(math.IsNaN(values.RSI))

	// a repeated kline replaces the last one, a stale one is ignored
	_, err = t.Add(history[60])
	suite.Require().NoError(err)
	_, err = t.Add(history[10])
	suite.Require().NoError(err)
	suite.Len(t.prices, 61)

	// too short for the slow average
	short := newTracker(history[:5], suite.cfg.Review)
	values, err = short.Add(history[5])
	suite.Require().NoError(err)
	suite.True(math.IsNaN(values.EMASlow))
	suite.True(math.IsNaN(values.EMAFast))
}

func TestKylarisTestSuite(t *testing.T) {
	suite.Run(t, new(kylarisTestSuite))
}
