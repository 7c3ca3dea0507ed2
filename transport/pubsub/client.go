package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/prompt"
)

// Requester is the part of *nats.Conn the client endpoints need.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// ServiceError is an error reply of a remote micro service.
type ServiceError struct {
	Code        string
	Description string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %s: %s", e.Code, e.Description)
}

func roundTrip(ctx context.Context, nc Requester, topic string, req any) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	msg, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if code := msg.Header.Get(micro.ErrorCodeHeader); code != "" {
		return nil, &ServiceError{
			Code:        code,
			Description: msg.Header.Get(micro.ErrorHeader),
		}
	}

	return msg.Data, nil
}

// ReviewEndpoint requests a review from a remote instance over topic,
// e.g. "trading.review".
func ReviewEndpoint(nc Requester, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(trading.ReviewQuery)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := roundTrip(ctx, nc, topic, req)
		if err != nil {
			return nil, err
		}

		var review prompt.LocalizableString
		if err := json.Unmarshal(data, &review); err != nil {
			return nil, err
		}

		return review, nil
	}
}
