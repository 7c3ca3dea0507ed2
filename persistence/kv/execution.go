package kv

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
)

var prefix = []byte("executions/")

func key(id execution.ID) []byte {
	return append(append([]byte{}, prefix...), id.String()...)
}

func NewExecutionRepository(cfg conf.Persistence) (execution.Repository, error) {
	opts := badger.DefaultOptions(cfg.Host + "/" + cfg.Name + ".badger")
	if cfg.InMem {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	repo := new(executionRepository)
	repo.db = db
	return repo, nil
}

type executionRepository struct {
	db *badger.DB
}

func (repo *executionRepository) Store(e *execution.Execution) error {
	bs, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return repo.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(e.ID), bs)
	})
}

func (repo *executionRepository) Delete(e *execution.Execution) error {
	return repo.db.Update(func(txn *badger.Txn) error {
		k := key(e.ID)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return execution.ErrExecutionNotFound
			}
			return err
		}

		return txn.Delete(k)
	})
}

func (repo *executionRepository) Truncate() error {
	return repo.db.DropPrefix(prefix)
}

func (repo *executionRepository) ListAll() ([]*execution.Execution, error) {
	return repo.scan(func(*execution.Execution) bool { return true })
}

func (repo *executionRepository) Find(id execution.ID) (*execution.Execution, error) {
	var e *execution.Execution
	err := repo.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return execution.ErrExecutionNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})

	if err != nil {
		return nil, err
	}

	return e.Restore(), nil
}

func (repo *executionRepository) FindBySymbol(symbol price.Instrument) ([]*execution.Execution, error) {
	return repo.scan(func(e *execution.Execution) bool {
		return e.Symbol.Instrument == symbol
	})
}

// scan walks the executions in key order, which is ULID and therefore
// creation order.
func (repo *executionRepository) scan(match func(*execution.Execution) bool) ([]*execution.Execution, error) {
	results := make([]*execution.Execution, 0)

	err := repo.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e *execution.Execution
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}

			if match(e) {
				results = append(results, e.Restore())
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return results, nil
}

func (repo *executionRepository) Close() error {
	return repo.db.Close()
}
