package inmem

import (
	"sort"
	"sync"

	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
)

func NewExecutionRepository() (execution.Repository, error) {
	return &executionRepository{
		executions: make(map[execution.ID]execution.Execution),
	}, nil
}

type executionRepository struct {
	executions map[execution.ID]execution.Execution
	sync.RWMutex
}

func (repo *executionRepository) Store(e *execution.Execution) error {
	repo.Lock()
	defer repo.Unlock()

	stored := *e
	stored.EventStore = nil

	repo.executions[e.ID] = stored
	return nil
}

func (repo *executionRepository) Delete(e *execution.Execution) error {
	repo.Lock()
	defer repo.Unlock()

	if _, ok := repo.executions[e.ID]; !ok {
		return execution.ErrExecutionNotFound
	}

	delete(repo.executions, e.ID)
	return nil
}

func (repo *executionRepository) Truncate() error {
	repo.Lock()
	defer repo.Unlock()

	repo.executions = make(map[execution.ID]execution.Execution)
	return nil
}

func (repo *executionRepository) ListAll() ([]*execution.Execution, error) {
	return repo.filter(func(*execution.Execution) bool { return true }), nil
}

func (repo *executionRepository) Find(id execution.ID) (*execution.Execution, error) {
	repo.RLock()
	defer repo.RUnlock()

	e, ok := repo.executions[id]
	if !ok {
		return nil, execution.ErrExecutionNotFound
	}

	return e.Restore(), nil
}

func (repo *executionRepository) FindBySymbol(symbol price.Instrument) ([]*execution.Execution, error) {
	return repo.filter(func(e *execution.Execution) bool {
		return e.Symbol.Instrument == symbol
	}), nil
}

func (repo *executionRepository) filter(match func(*execution.Execution) bool) []*execution.Execution {
	repo.RLock()
	defer repo.RUnlock()

	results := make([]*execution.Execution, 0)
	for _, e := range repo.executions {
		if match(&e) {
			results = append(results, e.Restore())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID.String() < results[j].ID.String()
	})

	return results
}

func (repo *executionRepository) Close() error {
	return nil
}
