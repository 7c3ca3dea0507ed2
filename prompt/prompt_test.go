package prompt

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/indicator"
	"github.com/kylaris/trading/price"
)

type promptTestSuite struct {
	suite.Suite
	snapshot *PriceIndicatorSnapshot
}

func (suite *promptTestSuite) SetupTest() {
	symbol := price.MarketIdentifier{Instrument: price.ETHUSDT, Category: price.Crypto}
	start := time.Date(2025, 11, 22, 22, 0, 0, 0, time.UTC) // 17:00 in New York

	prices := make([]*price.Price, 3)
	for i := range prices {
		prices[i] = &price.Price{
			Symbol:    symbol,
			Interval:  price.Minute15,
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      2750.9 + float64(i),
			High:      2770.2 + float64(i),
			Low:       2740.7 + float64(i),
			Close:     2760.5 + float64(i),
			Volume:    1234.56,
		}
	}

	nan := math.NaN()
	suite.snapshot = &PriceIndicatorSnapshot{
		Prices:     prices,
		RSI:        indicator.Series{nan, 48.2, 55.9},
		EMA20:      indicator.Series{nan, nan, 2761.4},
		EMA50:      indicator.Series{nan, nan, nan},
		WindowSize: 2,
	}
}

func (suite *promptTestSuite) TestLocalizableString() {
	s := Localized("a", "甲")
	s.Append(Localized("b", "乙"))
	s.AppendBreak()
	s.AppendMarker(End, "", "")

	suite.Equal("ab\n<break>\n<end>", s.Get(English))
	suite.Equal("甲乙\n<break>\n<end>", s.Get(Chinese))

	s.Append(Text("!"))
	suite.True(strings.HasSuffix(s.Get(Chinese), "!"))
}

func (suite *promptTestSuite) TestLocalizableStringEncoding() {
	bs, err := json.Marshal(Localized("hello", "你好"))
	suite.Require().NoError(err)
	suite.JSONEq(`{"english":"hello","chinese":"你好"}`, string(bs))

	var decoded LocalizableString
	suite.Require().NoError(json.Unmarshal(bs, &decoded))
	suite.Equal("你好", decoded.Get(Chinese))

	var comments LocalizableString
	err = yaml.Unmarshal([]byte("en: sideways market\nzh: 横盘\n"), &comments)
	suite.Require().NoError(err)
	suite.Equal("sideways market", comments.Get(English))
	suite.Equal("横盘", comments.Get(Chinese))

	err = yaml.Unmarshal([]byte("fr: bonjour\n"), &comments)
	suite.ErrorIs(err, ErrLanguageNotSupported)
}

func (suite *promptTestSuite) TestSnapshot() {
	s, err := suite.snapshot.Consumable()
	suite.Require().NoError(err)

	expected := "Symbol: ETHUSDT\n<break>\n" +
		"Prices & Indicators(15m): Timestamp, Open, High, Low, Close, Volume, EMA20, EMA50, RSI;\n<begin>\n" +
		"17:15, 2751, 2771, 2741, 2761, 1234, nan, nan, 48;\n" +
		"17:30, 2752, 2772, 2742, 2762, 1234, 2761, nan, 55;\n" +
		"<end>"
	suite.Equal(expected, s.Get(English))

	suite.True(strings.HasPrefix(s.Get(Chinese), "交易代码：ETHUSDT\n<break>\n价格指标表（15m）："))
	suite.True(strings.HasSuffix(s.Get(Chinese), "17:30, 2752, 2772, 2742, 2762, 1234, 2761, nan, 55;\n<end>"))
}

func (suite *promptTestSuite) TestSnapshotWindowLargerThanSeries() {
	suite.snapshot.WindowSize = 48
	suite.snapshot.Location = time.UTC

	s, err := suite.snapshot.Consumable()
	suite.Require().NoError(err)

	text := s.Get(English)
	suite.Contains(text, "22:00, 2750, 2770, 2740, 2760, 1234, nan, nan, nan;\n")
	suite.Equal(3, strings.Count(text, ";\n")-1)
}

func (suite *promptTestSuite) TestEmptySnapshot() {
	_, err := (&PriceIndicatorSnapshot{}).Consumable()
	suite.ErrorIs(err, ErrEmptySnapshot)
}

func (suite *promptTestSuite) TestTradeReviewContext() {
	e := execution.NewExecution(price.MarketIdentifier{Instrument: price.ETHUSDT, Category: price.Crypto})
	e.BuyTimestamp = "2025/11/22 17:13"
	e.SellTimestamp = "2025/11/22 17:53"
	e.BuyPrice = 2755
	e.SellPrice = 2783
	e.Profit = -71.08
	e.TakeProfit = 102
	e.TakeProfitRate = 4.7
	e.StopLoss = 67
	e.RewardRiskRatio = 1.53
	e.WinRate = 44
	e.PriorCostRate = 3.09
	e.PosteriorGrowthRate = -3.29
	e.SellBeforeBuy = true

	ctx := &TradeReviewContext{
		Executions: []*execution.Execution{e},
		Snapshot:   suite.snapshot,
		Comments:   Localized("-1 in ratios and rates indicates not available.", "比率中的-1表示不可用。"),
	}

	s, err := ctx.Build()
	suite.Require().NoError(err)

	english := s.Get(English)
	suite.True(strings.HasPrefix(english, "You are now a trade reviewer"))
	suite.Contains(english, "\n<begin>\nAt $2755 at 2025/11/22 17:13 I opened a position on short, ")
	suite.Contains(english, "at 2025/11/22 17:53 at $2783 I closed the position, realizing a profit of $-71.08. ")
	suite.Contains(english, "take-profit at $102 (4.7% of total equity) and a stop-loss at $67 (3.09% of total equity)")
	suite.Contains(english, "risk-reward ratio of 1.53:1")
	suite.Contains(english, "-3.29% growth in the account. \n<end>\n<break>\nBelow are the price and indicator data")
	suite.Contains(english, "Symbol: ETHUSDT")
	suite.Contains(english, "<end>\n<break>\n-1 in ratios and rates indicates not available.\n<break>\n")
	suite.True(strings.HasSuffix(english, "Based on the information above, provide a post-trade analysis."))

	chinese := s.Get(Chinese)
	suite.Contains(chinese, "我在2025/11/22 17:13以$2755开仓看空，2025/11/22 17:53以$2783平仓盈利$-71.08。")
	suite.Contains(chinese, "我的预估胜率是44%")
	suite.True(strings.HasSuffix(chinese, "基于上述信息进行交易复盘。"))
}

func (suite *promptTestSuite) TestTradeReviewContextLong() {
	e := execution.NewExecution(price.MarketIdentifier{Instrument: price.ETHUSDT, Category: price.Crypto})
	e.BuyTimestamp = "10:00"
	e.SellTimestamp = "11:00"
	e.BuyPrice = 1
	e.SellPrice = 2

	ctx := &TradeReviewContext{
		Executions: []*execution.Execution{e},
		Snapshot:   suite.snapshot,
	}

	s, err := ctx.Build()
	suite.Require().NoError(err)
	suite.Contains(s.Get(English), "on long, ")
	suite.Contains(s.Get(Chinese), "看多，")
}

func (suite *promptTestSuite) TestParseLanguage() {
	language, err := ParseLanguage("ZH")
	suite.NoError(err)
	suite.Equal(Chinese, language)

	_, err = ParseLanguage("klingon")
	suite.ErrorIs(err, ErrLanguageNotSupported)
}

func TestPromptTestSuite(t *testing.T) {
	suite.Run(t, new(promptTestSuite))
}
