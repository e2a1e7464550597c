package datastore

import "fmt"

type DatastoreType string

const (
	Redis  DatastoreType = "redis"
	SQLite DatastoreType = "sqlite"
	Memory DatastoreType = "memory"
)

// Config selects and addresses the backend store.
type Config struct {
	Type DatastoreType
	// URL is the redis connection url, e.g. redis://:password@localhost:6379/0.
	URL string
	// DBName is the sqlite file, ":memory:" is allowed.
	DBName string
}

// Validate reports whether the config carries everything the selected backend needs.
func (c *Config) Validate() error {
	switch c.Type {
	case Redis:
		if c.URL == "" {
			return fmt.Errorf("redis store requires a connection url")
		}
	case SQLite:
		if c.DBName == "" {
			return fmt.Errorf("sqlite store requires a database file")
		}
	case Memory:
	default:
		return fmt.Errorf("unknown datastore type %q", c.Type)
	}
	return nil
}

type DatastoreFactory struct{}

// New creates the store described by config. The returned store is meant to be
// created once and shared by all requests.
func (f *DatastoreFactory) New(config *Config) (Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case Redis:
		return NewRedisStore(config.URL)
	case SQLite:
		return NewSQLiteStore(config.DBName)
	default:
		return NewMemoryStore(), nil
	}
}
