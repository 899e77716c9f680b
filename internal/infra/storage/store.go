package storage

import (
	"database/sql"
	"fmt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store bundles the repositories of one database.
type Store struct {
	Driver  string
	Events  EventRepository
	Results ResultRepository

	db *sql.DB
}

// Open connects to the configured database and creates its schemas.
func Open(driver, dsn string, maxOpenConns int) (*Store, error) {
	switch driver {
	case DriverSQLite, "":
		db, err := InitSQLite(dsn, maxOpenConns)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:  DriverSQLite,
			Events:  NewSQLiteEventRepository(db),
			Results: NewSQLiteResultRepository(db),
			db:      db,
		}, nil
	case DriverPostgres:
		db, err := InitPostgres(dsn, maxOpenConns)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:  DriverPostgres,
			Events:  NewPostgresEventRepository(db),
			Results: NewPostgresResultRepository(db),
			db:      db,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
