package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"
	"go.uber.org/zap"

	"github.com/flarexio/core/pubsub"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/execution"
)

// EventHandler journals execution events published on
// executions.<id>.<action>.
func EventHandler(log *zap.Logger) pubsub.MessageHandler {
	log = log.With(
		zap.String("component", "journal"),
	)

	return func(ctx context.Context, msg *pubsub.Message) error {
		ss := strings.Split(msg.Topic, ".")
		if len(ss) != 3 || ss[0] != "executions" {
			return errors.New("invalid event")
		}

		name, ok := execution.ParseEventName("execution_" + ss[2])
		if !ok {
			return errors.New("invalid event")
		}

		switch name {
		case execution.ExecutionRecorded:
			var e *execution.ExecutionRecordedEvent
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				return err
			}

			log.Info("execution recorded",
				zap.String("id", e.ExecutionID.String()),
				zap.String("symbol", e.Execution.Symbol.Instrument.String()),
				zap.String("direction", e.Execution.Direction()),
				zap.Float64("profit", e.Execution.Profit),
			)

		case execution.ExecutionDeleted:
			var e *execution.ExecutionDeletedEvent
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				return err
			}

			log.Info("execution deleted",
				zap.String("id", e.ExecutionID.String()),
				zap.Time("occured_at", e.OccuredAt),
			)
		}

		return nil
	}
}

func errorCode(err error) string {
	return strconv.Itoa(trading.StatusCode(err))
}

func PricesHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var q trading.PriceQuery
		if err := json.Unmarshal(r.Data(), &q); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		pctx, err := q.Context()
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, pctx)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ReviewHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var q trading.ReviewQuery
		if err := json.Unmarshal(r.Data(), &q); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		req, err := q.Request()
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(errorCode(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}
