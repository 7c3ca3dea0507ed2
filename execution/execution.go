package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flarexio/core/events"
	"github.com/flarexio/core/model"

	"github.com/kylaris/trading/price"
)

var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrInvalidExecution  = errors.New("invalid execution")
)

// NotAvailable marks a ratio or rate that was not known at trade time.
const NotAvailable = -1

type ID ulid.ULID // AggregateRoot

func MakeID() ID {
	return ID(ulid.Make())
}

func ParseID(id string) (ID, error) {
	executionID, err := ulid.Parse(id)
	if err != nil {
		return ID{}, err
	}
	return ID(executionID), nil
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) String() string {
	return ulid.ULID(id).String()
}

func (id ID) Time() time.Time {
	ms := ulid.ULID(id).Time()
	return ulid.Time(ms)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	executionID, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = executionID
	return nil
}

// Execution is a completed round trip trade as the trader recalls it.
// Timestamps are kept in the consumable form the trader wrote them in.
type Execution struct {
	ID                  ID                     `json:"id"`
	Symbol              price.MarketIdentifier `json:"symbol"`
	BuyTimestamp        string                 `json:"buy_timestamp"`
	SellTimestamp       string                 `json:"sell_timestamp"`
	BuyPrice            float64                `json:"buy_price"`
	SellPrice           float64                `json:"sell_price"`
	Profit              float64                `json:"profit"`
	TakeProfit          float64                `json:"take_profit"`
	TakeProfitRate      float64                `json:"take_profit_rate"`
	StopLoss            float64                `json:"stop_loss"`
	RewardRiskRatio     float64                `json:"reward_risk_ratio"`
	WinRate             float64                `json:"win_rate"`
	PriorCostRate       float64                `json:"prior_cost_rate"`
	PosteriorGrowthRate float64                `json:"posterior_growth_rate"`
	SellBeforeBuy       bool                   `json:"sell_before_buy"`
	model.Model

	events.EventStore `json:"-"`
}

// NewExecution allocates an execution with a fresh identity.
func NewExecution(symbol price.MarketIdentifier) *Execution {
	id := MakeID()

	return &Execution{
		ID:     id,
		Symbol: symbol,
		Model: model.Model{
			CreatedAt: id.Time(),
		},

		EventStore: events.NewEventStore(),
	}
}

// Restore attaches an empty event store to an execution loaded from storage.
func (e *Execution) Restore() *Execution {
	e.EventStore = events.NewEventStore()
	return e
}

func (e *Execution) Validate() error {
	if e.BuyTimestamp == "" || e.SellTimestamp == "" {
		return fmt.Errorf("%w: timestamps required", ErrInvalidExecution)
	}

	if e.BuyPrice <= 0 || e.SellPrice <= 0 {
		return fmt.Errorf("%w: prices must be positive", ErrInvalidExecution)
	}

	if _, err := price.ParseInstrument(string(e.Symbol.Instrument)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExecution, err)
	}

	return nil
}

func (e *Execution) Record() {
	e.UpdatedAt = time.Now()

	event := NewExecutionRecordedEvent(e)
	e.AddEvent(event)
}

func (e *Execution) Delete() {
	now := time.Now()
	e.UpdatedAt = now
	e.DeletedAt = now

	event := NewExecutionDeletedEvent(e)
	e.AddEvent(event)
}

// Direction is "short" for executions opened by selling.
func (e *Execution) Direction() string {
	if e.SellBeforeBuy {
		return "short"
	}

	return "long"
}
