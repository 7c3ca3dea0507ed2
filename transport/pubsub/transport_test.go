package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flarexio/core/events"
	"github.com/flarexio/core/pubsub"

	"github.com/kylaris/trading"
	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/persistence/inmem"
	"github.com/kylaris/trading/price"
	"github.com/kylaris/trading/prompt"
)

type flatProvider struct{}

func (flatProvider) Fetch(ctx context.Context, pctx price.ProviderContext) ([]*price.Price, error) {
	if pctx.Symbol.Category != price.Crypto {
		return nil, price.ErrCategoryNotSupported
	}

	prices := make([]*price.Price, 0)
	for t := pctx.StartTime; t.Before(pctx.EndTime); t = t.Add(time.Hour) {
		prices = append(prices, &price.Price{
			Symbol:    pctx.Symbol,
			Interval:  pctx.Interval,
			Timestamp: t,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    1,
		})
	}
	return prices, nil
}

type fakeRequest struct {
	data        []byte
	response    []byte
	code        string
	description string
}

func (r *fakeRequest) Respond(data []byte, opts ...micro.RespondOpt) error {
	r.response = data
	return nil
}

func (r *fakeRequest) RespondJSON(v any, opts ...micro.RespondOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Respond(data)
}

func (r *fakeRequest) Error(code, description string, data []byte, opts ...micro.RespondOpt) error {
	r.code = code
	r.description = description
	return nil
}

func (r *fakeRequest) Data() []byte           { return r.data }
func (r *fakeRequest) Headers() micro.Headers { return micro.Headers{} }
func (r *fakeRequest) Subject() string        { return "trading.review" }
func (r *fakeRequest) Reply() string          { return "_INBOX.test" }

// loopback answers requests by calling a micro handler in process.
type loopback struct {
	handler micro.HandlerFunc
	topic   string
}

func (l *loopback) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	if subj != l.topic {
		return nil, nats.ErrNoResponders
	}

	req := &fakeRequest{data: data}
	l.handler(req)

	msg := nats.NewMsg(subj)
	msg.Data = req.response
	if req.code != "" {
		msg.Header.Set(micro.ErrorCodeHeader, req.code)
		msg.Header.Set(micro.ErrorHeader, req.description)
	}

	return msg, nil
}

type pubsubTestSuite struct {
	suite.Suite
	svc       trading.Service
	endpoints trading.EndpointSet
	ps        *LocalPubSub
	messages  []*pubsub.Message
	logs      *observer.ObservedLogs
}

func (suite *pubsubTestSuite) SetupTest() {
	executions, err := inmem.NewExecutionRepository()
	suite.Require().NoError(err)

	core, logs := observer.New(zap.InfoLevel)

	suite.ps = NewLocalPubSub()
	suite.messages = nil
	suite.logs = logs

	suite.ps.Subscribe("executions.#", func(ctx context.Context, msg *pubsub.Message) error {
		suite.messages = append(suite.messages, msg)
		return nil
	})
	suite.ps.Subscribe("executions.*.*", EventHandler(zap.New(core)))

	events.ReplaceGlobals(suite.ps)

	suite.svc = trading.NewService(executions, flatProvider{}, conf.DefaultReview())
	suite.endpoints = trading.NewEndpointSet(suite.svc)
}

func (suite *pubsubTestSuite) TearDownTest() {
	events.ReplaceGlobals(nil)
}

func (suite *pubsubTestSuite) query() trading.ReviewQuery {
	return trading.ReviewQuery{
		PriceQuery: trading.PriceQuery{
			Symbol:   "BTCUSDT",
			Interval: "1h",
			Start:    time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC),
		},
		Executions: []trading.RecordExecutionRequest{{
			Symbol:        "BTCUSDT",
			BuyTimestamp:  "2025-11-22 09:30",
			SellTimestamp: "2025-11-22 11:00",
			BuyPrice:      84000,
			SellPrice:     85120,
			Profit:        1120,
		}},
		Comments: prompt.Text("Held through the dip."),
	}
}

func (suite *pubsubTestSuite) TestEventsPublished() {
	e, err := suite.svc.RecordExecution(context.Background(), suite.query().Executions[0])
	suite.Require().NoError(err)

	suite.Require().Len(suite.messages, 1)
	msg := suite.messages[0]
	suite.Equal("executions."+e.ID.String()+".recorded", msg.Topic)

	var event struct {
		ExecutionID string              `json:"execution_id"`
		Execution   execution.Execution `json:"execution"`
	}
	suite.Require().NoError(json.Unmarshal(msg.Data, &event))
	suite.Equal(e.ID.String(), event.ExecutionID)
	suite.Equal(85120.0, event.Execution.SellPrice)

	err = suite.svc.DeleteExecution(context.Background(), e.ID)
	suite.Require().NoError(err)

	suite.Require().Len(suite.messages, 2)
	suite.Equal("executions."+e.ID.String()+".deleted", suite.messages[1].Topic)
}

func (suite *pubsubTestSuite) TestEventHandlerJournals() {
	e, err := suite.svc.RecordExecution(context.Background(), suite.query().Executions[0])
	suite.Require().NoError(err)

	err = suite.svc.DeleteExecution(context.Background(), e.ID)
	suite.Require().NoError(err)

	entries := suite.logs.All()
	suite.Require().Len(entries, 2)

	recorded := entries[0].ContextMap()
	suite.Equal("execution recorded", entries[0].Message)
	suite.Equal("journal", recorded["component"])
	suite.Equal(e.ID.String(), recorded["id"])
	suite.Equal("BTCUSDT", recorded["symbol"])
	suite.Equal("long", recorded["direction"])

	suite.Equal("execution deleted", entries[1].Message)
	suite.Equal(e.ID.String(), entries[1].ContextMap()["id"])
}

func (suite *pubsubTestSuite) TestEventHandlerRejectsUnknownTopics() {
	handler := EventHandler(zap.NewNop())
	ctx := context.Background()

	err := handler(ctx, &pubsub.Message{Topic: "executions.x.archived", Data: []byte(`{}`)})
	suite.Error(err)

	err = handler(ctx, &pubsub.Message{Topic: "prices.recorded", Data: []byte(`{}`)})
	suite.Error(err)

	err = handler(ctx, &pubsub.Message{Topic: "executions.x.recorded", Data: []byte(`not json`)})
	suite.Error(err)
}

func (suite *pubsubTestSuite) TestPublishFailureKeepsExecution() {
	suite.ps.Close()

	e, err := suite.svc.RecordExecution(context.Background(), suite.query().Executions[0])
	suite.Require().NoError(err)

	_, err = suite.svc.Execution(e.ID)
	suite.NoError(err)
	suite.Empty(suite.messages)
}

func (suite *pubsubTestSuite) TestReviewRoundTrip() {
	nc := &loopback{ReviewHandler(suite.endpoints.Review), "trading.review"}
	client := ReviewEndpoint(nc, "trading.review")

	resp, err := client(context.Background(), suite.query())
	suite.Require().NoError(err)

	review, ok := resp.(prompt.LocalizableString)
	suite.Require().True(ok)
	suite.Contains(review.Get(prompt.English), "on long, ")
	suite.Contains(review.Get(prompt.English), "Held through the dip.")
	suite.Contains(review.Get(prompt.Chinese), "看多，")
}

func (suite *pubsubTestSuite) TestReviewServiceError() {
	nc := &loopback{ReviewHandler(suite.endpoints.Review), "trading.review"}
	client := ReviewEndpoint(nc, "trading.review")

	q := suite.query()
	q.Executions = nil

	_, err := client(context.Background(), q)

	var svcErr *ServiceError
	suite.Require().True(errors.As(err, &svcErr))
	suite.Equal("400", svcErr.Code)
	suite.Equal(trading.ErrExecutionsRequired.Error(), svcErr.Description)
}

func (suite *pubsubTestSuite) TestPricesHandler() {
	q := suite.query().PriceQuery
	data, err := json.Marshal(q)
	suite.Require().NoError(err)

	req := &fakeRequest{data: data}
	PricesHandler(suite.endpoints.Prices)(req)
	suite.Require().Empty(req.code)

	var prices []*price.Price
	suite.Require().NoError(json.Unmarshal(req.response, &prices))
	suite.Len(prices, 24)

	req = &fakeRequest{data: []byte(`{"symbol":"DOGEUSDT"}`)}
	PricesHandler(suite.endpoints.Prices)(req)
	suite.Equal("400", req.code)

	// equities are modelled but the provider cannot serve them
	req = &fakeRequest{data: []byte(`{"symbol":"AAPL"}`)}
	PricesHandler(suite.endpoints.Prices)(req)
	suite.Equal("400", req.code)
	suite.Equal(price.ErrCategoryNotSupported.Error(), req.description)

	req = &fakeRequest{data: []byte(`not json`)}
	PricesHandler(suite.endpoints.Prices)(req)
	suite.Equal("400", req.code)
}

func TestPubSubTestSuite(t *testing.T) {
	suite.Run(t, new(pubsubTestSuite))
}

func TestMatchTopic(t *testing.T) {
	assert := assert.New(t)

	assert.True(matchTopic("executions.#", "executions.01J.recorded"))
	assert.True(matchTopic("executions.#", "executions"))
	assert.True(matchTopic("executions.*.deleted", "executions.01J.deleted"))
	assert.True(matchTopic("#", "trading.review"))

	assert.False(matchTopic("executions.*", "executions.01J.recorded"))
	assert.False(matchTopic("executions.*.deleted", "executions.01J.recorded"))
	assert.False(matchTopic("executions.#", "prices.ETHUSDT"))
}

func TestLocalPubSubClosed(t *testing.T) {
	ps := NewLocalPubSub()
	assert.NoError(t, ps.Close())

	assert.ErrorIs(t, ps.Publish("executions.x.recorded", nil), ErrPubSubClosed)
	assert.ErrorIs(t, ps.Subscribe("executions.#", nil), ErrPubSubClosed)
}
