package main

import (
	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/indicator"
	"github.com/kylaris/trading/price"
)

const trackerCapacity = 500

type trackedValues struct {
	EMAFast float64
	EMASlow float64
	RSI     float64
}

// tracker keeps a bounded series of closed klines and recomputes the
// indicators each time one is added.
type tracker struct {
	cfg    conf.Review
	prices []*price.Price
}

func newTracker(history []*price.Price, cfg conf.Review) *tracker {
	t := &tracker{cfg: cfg}
	for _, p := range history {
		t.push(p)
	}
	return t
}

func (t *tracker) push(p *price.Price) {
	if n := len(t.prices); n > 0 {
		last := t.prices[n-1]
		switch {
		case p.Timestamp.Equal(last.Timestamp):
			t.prices[n-1] = p
			return
		case p.Timestamp.Before(last.Timestamp):
			return
		}
	}

	t.prices = append(t.prices, p)
	if len(t.prices) > trackerCapacity {
		t.prices = t.prices[len(t.prices)-trackerCapacity:]
	}
}

func (t *tracker) Add(p *price.Price) (*trackedValues, error) {
	t.push(p)

	emaFast, err := indicator.EMA(t.prices, t.cfg.EMAFast)
	if err != nil {
		return nil, err
	}

	emaSlow, err := indicator.EMA(t.prices, t.cfg.EMASlow)
	if err != nil {
		return nil, err
	}

	rsi, err := indicator.RSI(t.prices, t.cfg.RSI)
	if err != nil {
		return nil, err
	}

	// values stay NaN until the series has warmed up
	values := new(trackedValues)
	values.EMAFast, _ = emaFast.Last()
	values.EMASlow, _ = emaSlow.Last()
	values.RSI, _ = rsi.Last()

	return values, nil
}
