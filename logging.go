package trading

import (
	"context"

	"go.uber.org/zap"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			log.With(
				zap.String("service", "trading"),
				zap.String("middleware", "logging"),
			),
			next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func contextFields(pctx price.ProviderContext) []zap.Field {
	return []zap.Field{
		zap.String("symbol", pctx.Symbol.String()),
		zap.String("interval", pctx.Interval.String()),
		zap.Time("start", pctx.StartTime),
		zap.Time("end", pctx.EndTime),
	}
}

func (mw *loggingMiddleware) Prices(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	log := mw.log.With(zap.String("action", "prices"))
	log = log.With(contextFields(pctx)...)

	prices, err := mw.next.Prices(ctx, pctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("prices fetched", zap.Int("count", len(prices)))
	return prices, nil
}

func (mw *loggingMiddleware) Indicators(ctx context.Context, req IndicatorsRequest) (*IndicatorSet, error) {
	log := mw.log.With(zap.String("action", "indicators"))
	log = log.With(contextFields(req.Context)...)

	set, err := mw.next.Indicators(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("indicators computed", zap.Int("count", len(set.Prices)))
	return set, nil
}

func (mw *loggingMiddleware) Snapshot(ctx context.Context, req SnapshotRequest) (*prompt.PriceIndicatorSnapshot, error) {
	log := mw.log.With(zap.String("action", "snapshot"))
	log = log.With(contextFields(req.Context)...)

	snapshot, err := mw.next.Snapshot(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("snapshot taken", zap.Int("window_size", snapshot.WindowSize))
	return snapshot, nil
}

func (mw *loggingMiddleware) RecordExecution(ctx context.Context, req RecordExecutionRequest) (*execution.Execution, error) {
	log := mw.log.With(
		zap.String("action", "record_execution"),
		zap.String("symbol", req.Symbol),
	)

	e, err := mw.next.RecordExecution(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("execution recorded",
		zap.String("execution_id", e.ID.String()),
		zap.String("direction", e.Direction()),
	)
	return e, nil
}

func (mw *loggingMiddleware) Execution(id execution.ID) (*execution.Execution, error) {
	log := mw.log.With(
		zap.String("action", "execution"),
		zap.String("execution_id", id.String()),
	)

	e, err := mw.next.Execution(id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("execution found")
	return e, nil
}

func (mw *loggingMiddleware) Executions(symbol price.Instrument) ([]*execution.Execution, error) {
	log := mw.log.With(
		zap.String("action", "executions"),
		zap.String("symbol", symbol.String()),
	)

	executions, err := mw.next.Executions(symbol)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("executions listed", zap.Int("count", len(executions)))
	return executions, nil
}

func (mw *loggingMiddleware) DeleteExecution(ctx context.Context, id execution.ID) error {
	log := mw.log.With(
		zap.String("action", "delete_execution"),
		zap.String("execution_id", id.String()),
	)

	err := mw.next.DeleteExecution(ctx, id)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("execution deleted")
	return nil
}

func (mw *loggingMiddleware) Review(ctx context.Context, req ReviewRequest) (prompt.LocalizableString, error) {
	log := mw.log.With(
		zap.String("action", "review"),
		zap.Int("stored", len(req.ExecutionIDs)),
		zap.Int("inline", len(req.Executions)),
	)
	log = log.With(contextFields(req.Context)...)

	review, err := mw.next.Review(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("review built")
	return review, nil
}
