package trading

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
)

type EndpointSet struct {
	Prices          endpoint.Endpoint
	Indicators      endpoint.Endpoint
	Snapshot        endpoint.Endpoint
	RecordExecution endpoint.Endpoint
	Execution       endpoint.Endpoint
	Executions      endpoint.Endpoint
	DeleteExecution endpoint.Endpoint
	Review          endpoint.Endpoint
}

func NewEndpointSet(svc Service) EndpointSet {
	return EndpointSet{
		Prices:          PricesEndpoint(svc),
		Indicators:      IndicatorsEndpoint(svc),
		Snapshot:        SnapshotEndpoint(svc),
		RecordExecution: RecordExecutionEndpoint(svc),
		Execution:       ExecutionEndpoint(svc),
		Executions:      ExecutionsEndpoint(svc),
		DeleteExecution: DeleteExecutionEndpoint(svc),
		Review:          ReviewEndpoint(svc),
	}
}

func PricesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		pctx, ok := request.(price.ProviderContext)
		if !ok {
			return nil, errors.New("invalid request")
		}

		prices, err := svc.Prices(ctx, pctx)
		if err != nil {
			return nil, err
		}

		return prices, nil
	}
}

func IndicatorsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(IndicatorsRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		set, err := svc.Indicators(ctx, req)
		if err != nil {
			return nil, err
		}

		return set, nil
	}
}

func SnapshotEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(SnapshotRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		snapshot, err := svc.Snapshot(ctx, req)
		if err != nil {
			return nil, err
		}

		return snapshot, nil
	}
}

func RecordExecutionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(RecordExecutionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		e, err := svc.RecordExecution(ctx, req)
		if err != nil {
			return nil, err
		}

		return e, nil
	}
}

func ExecutionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		id, ok := request.(execution.ID)
		if !ok {
			return nil, errors.New("invalid request")
		}

		e, err := svc.Execution(id)
		if err != nil {
			return nil, err
		}

		return e, nil
	}
}

func ExecutionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		symbol, ok := request.(price.Instrument)
		if !ok {
			return nil, errors.New("invalid request")
		}

		executions, err := svc.Executions(symbol)
		if err != nil {
			return nil, err
		}

		return executions, nil
	}
}

func DeleteExecutionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		id, ok := request.(execution.ID)
		if !ok {
			return nil, errors.New("invalid request")
		}

		err = svc.DeleteExecution(ctx, id)
		return nil, err
	}
}

func ReviewEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(ReviewRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		review, err := svc.Review(ctx, req)
		if err != nil {
			return nil, err
		}

		return review, nil
	}
}
