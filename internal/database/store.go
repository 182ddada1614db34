package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by Get when the query matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the data-access handle passed to every handler. Queries use `?`
// placeholders; values are always bound, never spliced into the query text.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get scans the first row of query into dest, or returns ErrNotFound.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	// Select scans every row of query into dest, which must point to a slice.
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	// Exec runs a write statement and reports the number of affected rows.
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	// Create inserts a model value.
	Create(ctx context.Context, value interface{}) error
	// Transaction runs fn against a transactional Store. Returning an error
	// from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in a Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	res := s.db.WithContext(ctx).Raw(query, args...).Scan(dest)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translate(s.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error)
}

func (s *gormStore) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res := s.db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) Create(ctx context.Context, value interface{}) error {
	return translate(s.db.WithContext(ctx).Create(value).Error)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
