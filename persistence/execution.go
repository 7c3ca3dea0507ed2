package persistence

import (
	"errors"

	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/persistence/db"
	"github.com/kylaris/trading/persistence/inmem"
	"github.com/kylaris/trading/persistence/kv"
)

func NewExecutionRepository(cfg conf.Persistence) (execution.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewExecutionRepository(cfg)
	case conf.BadgerDB:
		return kv.NewExecutionRepository(cfg)
	case conf.InMem:
		return inmem.NewExecutionRepository()
	default:
		return nil, errors.New("driver not supported")
	}
}
