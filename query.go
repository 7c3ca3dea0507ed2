package trading

import (
	"time"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

// PriceQuery is the wire form of a price range. Either Start or one of the
// look-back offsets selects the beginning; End defaults to now.
type PriceQuery struct {
	Symbol   string    `json:"symbol" form:"symbol" binding:"required"`
	Interval string    `json:"interval" form:"interval"`
	Start    time.Time `json:"start" form:"start" time_format:"2006-01-02T15:04:05Z07:00"`
	End      time.Time `json:"end" form:"end" time_format:"2006-01-02T15:04:05Z07:00"`
	Hours    int       `json:"hours" form:"hours"`
	Days     int       `json:"days" form:"days"`
	Months   int       `json:"months" form:"months"`
	Years    int       `json:"years" form:"years"`
	Limit    int       `json:"limit" form:"limit"`
}

// DefaultLookback is used when a query names neither Start nor an offset.
var DefaultLookback = price.Offset{Hours: 24}

func (q PriceQuery) Context() (price.ProviderContext, error) {
	symbol, err := price.NewMarketIdentifier(q.Symbol)
	if err != nil {
		return price.ProviderContext{}, err
	}

	interval := price.Minute15
	if q.Interval != "" {
		interval, err = price.ParseInterval(q.Interval)
		if err != nil {
			return price.ProviderContext{}, err
		}
	}

	end := q.End
	if end.IsZero() {
		end = price.Now()
	}

	start := q.Start
	if start.IsZero() {
		offset := price.Offset{
			Hours:  q.Hours,
			Days:   q.Days,
			Months: q.Months,
			Years:  q.Years,
		}

		if offset == (price.Offset{}) {
			offset = DefaultLookback
		}

		start = offset.Before(end)
	}

	pctx := price.ProviderContext{
		Symbol:    symbol,
		Interval:  interval,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Limit:     q.Limit,
	}

	if err := pctx.Validate(); err != nil {
		return price.ProviderContext{}, err
	}

	return pctx, nil
}

// ReviewQuery is the wire form of a ReviewRequest.
type ReviewQuery struct {
	PriceQuery
	ExecutionIDs []string                 `json:"execution_ids"`
	Executions   []RecordExecutionRequest `json:"executions"`
	Comments     prompt.LocalizableString `json:"comments"`
	WindowSize   int                      `json:"window_size"`
}

func (q ReviewQuery) Request() (ReviewRequest, error) {
	pctx, err := q.PriceQuery.Context()
	if err != nil {
		return ReviewRequest{}, err
	}

	ids := make([]execution.ID, 0, len(q.ExecutionIDs))
	for _, s := range q.ExecutionIDs {
		id, err := execution.ParseID(s)
		if err != nil {
			return ReviewRequest{}, err
		}

		ids = append(ids, id)
	}

	return ReviewRequest{
		Context:      pctx,
		ExecutionIDs: ids,
		Executions:   q.Executions,
		Comments:     q.Comments,
		WindowSize:   q.WindowSize,
	}, nil
}
