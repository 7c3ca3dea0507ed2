package db

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kylaris/trading/conf"
	"github.com/kylaris/trading/execution"
	"github.com/kylaris/trading/price"
)

func NewExecutionRepository(cfg conf.Persistence) (execution.Repository, error) {
	filename := cfg.Host + "/" + cfg.Name + ".db"
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Execution{}); err != nil {
		return nil, err
	}

	repo := new(executionRepository)
	repo.db = db
	return repo, nil
}

type executionRepository struct {
	db *gorm.DB
}

func (repo *executionRepository) Store(e *execution.Execution) error {
	row := NewExecution(e) // convert Domain to Data model
	return repo.db.Unscoped().Save(row).Error
}

func (repo *executionRepository) Delete(e *execution.Execution) error {
	result := repo.db.Delete(&Execution{}, "id = ?", e.ID.String())
	if err := result.Error; err != nil {
		return err
	}

	if result.RowsAffected == 0 {
		return execution.ErrExecutionNotFound
	}

	return nil
}

func (repo *executionRepository) Truncate() error {
	return repo.db.Exec("DELETE FROM executions").Error
}

func (repo *executionRepository) ListAll() ([]*execution.Execution, error) {
	var rows []*Execution

	result := repo.db.Order("id").Find(&rows)
	if err := result.Error; err != nil {
		return nil, err
	}

	return reconstituteAll(rows)
}

func (repo *executionRepository) Find(id execution.ID) (*execution.Execution, error) {
	var row *Execution

	result := repo.db.Take(&row, "id = ?", id.String())
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, execution.ErrExecutionNotFound
		}

		return nil, err
	}

	return row.reconstitute()
}

func (repo *executionRepository) FindBySymbol(symbol price.Instrument) ([]*execution.Execution, error) {
	var rows []*Execution

	result := repo.db.Order("id").Find(&rows, "instrument = ?", symbol.String())
	if err := result.Error; err != nil {
		return nil, err
	}

	return reconstituteAll(rows)
}

func (repo *executionRepository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
