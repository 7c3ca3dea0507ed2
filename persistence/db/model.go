package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/flarexio/core/model"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
)

// DataModel carries the bookkeeping columns gorm maintains. A delete only
// stamps DeletedAt.
type DataModel struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Execution struct {
	ID                  string `gorm:"primaryKey"`
	Instrument          string `gorm:"index"`
	Category            string
	BuyTimestamp        string
	SellTimestamp       string
	BuyPrice            float64
	SellPrice           float64
	Profit              float64
	TakeProfit          float64
	TakeProfitRate      float64
	StopLoss            float64
	RewardRiskRatio     float64
	WinRate             float64
	PriorCostRate       float64
	PosteriorGrowthRate float64
	SellBeforeBuy       bool
	DataModel
}

// NewExecution converts the aggregate into its row.
func NewExecution(e *execution.Execution) *Execution {
	row := &Execution{
		ID:                  e.ID.String(),
		Instrument:          e.Symbol.Instrument.String(),
		Category:            string(e.Symbol.Category),
		BuyTimestamp:        e.BuyTimestamp,
		SellTimestamp:       e.SellTimestamp,
		BuyPrice:            e.BuyPrice,
		SellPrice:           e.SellPrice,
		Profit:              e.Profit,
		TakeProfit:          e.TakeProfit,
		TakeProfitRate:      e.TakeProfitRate,
		StopLoss:            e.StopLoss,
		RewardRiskRatio:     e.RewardRiskRatio,
		WinRate:             e.WinRate,
		PriorCostRate:       e.PriorCostRate,
		PosteriorGrowthRate: e.PosteriorGrowthRate,
		SellBeforeBuy:       e.SellBeforeBuy,
	}

	row.CreatedAt = e.CreatedAt
	row.UpdatedAt = e.UpdatedAt
	if !e.DeletedAt.IsZero() {
		row.DeletedAt = gorm.DeletedAt{Time: e.DeletedAt, Valid: true}
	}

	return row
}

func (row *Execution) reconstitute() (*execution.Execution, error) {
	id, err := execution.ParseID(row.ID)
	if err != nil {
		return nil, err
	}

	e := &execution.Execution{
		ID: id,
		Symbol: price.MarketIdentifier{
			Instrument: price.Instrument(row.Instrument),
			Category:   price.Category(row.Category),
		},
		BuyTimestamp:        row.BuyTimestamp,
		SellTimestamp:       row.SellTimestamp,
		BuyPrice:            row.BuyPrice,
		SellPrice:           row.SellPrice,
		Profit:              row.Profit,
		TakeProfit:          row.TakeProfit,
		TakeProfitRate:      row.TakeProfitRate,
		StopLoss:            row.StopLoss,
		RewardRiskRatio:     row.RewardRiskRatio,
		WinRate:             row.WinRate,
		PriorCostRate:       row.PriorCostRate,
		PosteriorGrowthRate: row.PosteriorGrowthRate,
		SellBeforeBuy:       row.SellBeforeBuy,
		Model: model.Model{
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
	}

	if row.DeletedAt.Valid {
		e.DeletedAt = row.DeletedAt.Time.UTC()
	}

	return e.Restore(), nil
}

func reconstituteAll(rows []*Execution) ([]*execution.Execution, error) {
	results := make([]*execution.Execution, 0, len(rows))
	for _, row := range rows {
		e, err := row.reconstitute()
		if err != nil {
			return nil, err
		}

		results = append(results, e)
	}

	return results, nil
}
