package prompt

import (
	"strconv"

	"github.com/kylaris/trading/execution"
)

// TradeReviewContext asks a model for a post-trade analysis of a set of
// executions against the market data around them.
type TradeReviewContext struct {
	Executions []*execution.Execution
	Snapshot   Consumable
	Comments   LocalizableString
}

func (c *TradeReviewContext) Build() (LocalizableString, error) {
	result := Localized(
		"You are now a trade reviewer, and you need to conduct a post-trade analysis "+
			"of this transaction based on the following information: ",
		"你现在是一位交易复盘师，你需要根据下列信息复盘本次交易：",
	)

	for _, e := range c.Executions {
		result.AppendBegin()
		result.Append(describe(e))
		result.AppendMarker(End, "\n", "")
	}

	result.AppendBreak()
	result.Append(Localized(
		"Below are the price and indicator data for that period: ",
		"下面是那段时间的价格和指标数据：",
	))

	result.AppendBreak()
	snapshot, err := c.Snapshot.Consumable()
	if err != nil {
		return nil, err
	}
	result.Append(snapshot)

	result.AppendBreak()
	result.Append(c.Comments)

	result.AppendBreak()
	result.Append(Localized(
		"Based on the information above, provide a post-trade analysis.",
		"基于上述信息进行交易复盘。",
	))

	return result, nil
}

func describe(e *execution.Execution) LocalizableString {
	f := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	result := Localized(
		"At $"+f(e.BuyPrice)+" at "+e.BuyTimestamp+" I opened a position ",
		"我在"+e.BuyTimestamp+"以$"+f(e.BuyPrice)+"开仓",
	)

	if e.SellBeforeBuy {
		result.Append(Localized("on short, ", "看空，"))
	} else {
		result.Append(Localized("on long, ", "看多，"))
	}

	result.Append(Localized(
		"at "+e.SellTimestamp+" at $"+f(e.SellPrice)+" I closed the position, ",
		e.SellTimestamp+"以$"+f(e.SellPrice)+"平仓",
	))

	result.Append(Localized(
		"realizing a profit of $"+f(e.Profit)+". "+
			"My position settings were a take-profit at $"+f(e.TakeProfit)+
			" ("+f(e.TakeProfitRate)+"% of total equity) and a stop-loss at $"+f(e.StopLoss)+
			" ("+f(e.PriorCostRate)+"% of total equity). "+
			"My estimated win rate was "+f(e.WinRate)+"%, with an expected risk-reward ratio of "+
			f(e.RewardRiskRatio)+":1 based on this. "+
			"This trade resulted in a "+f(e.PosteriorGrowthRate)+"% growth in the account. ",
		"盈利$"+f(e.Profit)+"。"+
			"我的仓位设置是，$"+f(e.TakeProfit)+"止盈（"+f(e.TakeProfitRate)+"%总资产），"+
			"$"+f(e.StopLoss)+"止损（"+f(e.PriorCostRate)+"%总资产）。"+
			"我的预估胜率是"+f(e.WinRate)+"%，"+
			"基于此的期望盈亏比是"+f(e.RewardRiskRatio)+":1。"+
			"本单实现"+f(e.PosteriorGrowthRate)+"%的账户增长。",
	))

	return result
}
