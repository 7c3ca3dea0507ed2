package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kylaris/trading/price"
)

const (
	readTimeout  = 90 * time.Second
	streamBuffer = 64
)

type klineEvent struct {
	Event  string      `json:"e"`
	Symbol string      `json:"s"`
	Kline  streamKline `json:"k"`
}

type streamKline struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Closed    bool   `json:"x"`
}

// Stream subscribes to the kline stream of symbol and emits every kline
// once it is closed. The channel is closed when ctx is done or the
// connection drops.
func (p *Provider) Stream(ctx context.Context, symbol price.MarketIdentifier, interval price.Interval) (<-chan *price.Price, error) {
	if symbol.Category != price.Crypto {
		return nil, price.ErrCategoryNotSupported
	}

	i, err := Interval(interval)
	if err != nil {
		return nil, err
	}

	url := p.cfg.StreamURL + "/ws/" + strings.ToLower(symbol.Instrument.String()) + "@kline_" + i

	log := p.log.With(
		zap.String("stream", url),
	)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	log.Info("connected")

	stream := make(chan *price.Price, streamBuffer)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(stream)
		defer close(done)

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPingHandler(func(data string) error {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Error(err.Error())
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))

			var event klineEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				log.Warn("invalid message", zap.Error(err))
				continue
			}

			if event.Event != "kline" || !event.Kline.Closed {
				continue
			}

			candle, err := event.Kline.price(symbol, interval)
			if err != nil {
				log.Warn("invalid kline", zap.Error(err))
				continue
			}

			select {
			case stream <- candle:
			case <-ctx.Done():
				return
			}
		}
	}()

	return stream, nil
}

func (k *streamKline) price(symbol price.MarketIdentifier, interval price.Interval) (*price.Price, error) {
	values := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return &price.Price{
		Symbol:    symbol,
		Interval:  interval,
		Timestamp: price.FromMilliseconds(k.OpenTime),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
