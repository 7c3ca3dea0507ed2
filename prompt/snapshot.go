package prompt

import (
	"errors"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kylaris/trading/indicator"
	"github.com/kylaris/trading/price"
)

var ErrEmptySnapshot = errors.New("snapshot has no prices")

// DefaultLocation is the market clock used for the price table.
var DefaultLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// PriceIndicatorSnapshot is a table of the most recent prices together
// with the indicators computed over the whole series.
type PriceIndicatorSnapshot struct {
	Prices     []*price.Price   `json:"prices"`
	RSI        indicator.Series `json:"rsi"`
	EMA20      indicator.Series `json:"ema20"`
	EMA50      indicator.Series `json:"ema50"`
	WindowSize int              `json:"window_size"`
	Location   *time.Location   `json:"-"`
}

func (s *PriceIndicatorSnapshot) Consumable() (LocalizableString, error) {
	if len(s.Prices) == 0 {
		return nil, ErrEmptySnapshot
	}

	first := s.Prices[0]

	result := Localized("Symbol: ", "交易代码：")
	result.Append(Text(first.Symbol.Instrument.String()))
	result.AppendBreak()

	interval := first.Interval.String()
	result.Append(Localized(
		"Prices & Indicators("+interval+"): ",
		"价格指标表（"+interval+"）：",
	))
	result.Append(Localized(
		"Timestamp, Open, High, Low, Close, Volume, EMA20, EMA50, RSI;",
		"时间戳，开盘，最高，最低，收盘，成交量，EMA20，EMA50，RSI；",
	))
	result.AppendBegin()

	loc := s.Location
	if loc == nil {
		loc = DefaultLocation
	}

	start := len(s.Prices) - s.WindowSize
	if start < 0 || s.WindowSize <= 0 {
		start = 0
	}

	for i := start; i < len(s.Prices); i++ {
		p := s.Prices[i]

		var sb strings.Builder
		sb.WriteString(p.Timestamp.In(loc).Format("15:04"))
		for _, v := range []string{
			truncate(p.Open),
			truncate(p.High),
			truncate(p.Low),
			truncate(p.Close),
			truncate(p.Volume),
			value(s.EMA20, i),
			value(s.EMA50, i),
			value(s.RSI, i),
		} {
			sb.WriteString(", ")
			sb.WriteString(v)
		}
		sb.WriteString(";\n")

		result.Append(Text(sb.String()))
	}

	result.AppendMarker(End, "", "")
	return result, nil
}

func truncate(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}

func value(s indicator.Series, i int) string {
	if !s.Valid(i) {
		return "nan"
	}
	return truncate(s[i])
}
