package execution

import "github.com/kylaris/trading/price"

type Repository interface {
	// Command

	Store(e *Execution) error
	Delete(e *Execution) error
	Truncate() error

	// Query

	ListAll() ([]*Execution, error)
	Find(id ID) (*Execution, error)
	FindBySymbol(symbol price.Instrument) ([]*Execution, error)

	Close() error
}
