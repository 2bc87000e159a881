package engine

import "fmt"

// DBCmd is an id of a storage command, each storage defines its own set
type DBCmd int

// Query is a command sql for every supported engine
type Query struct {
	Sqlite   string
	Postgres string
}

// QueryMap keeps queries of a storage by command
type QueryMap struct {
	queries map[DBCmd]Query
}

// NewQueryMap creates an empty QueryMap
func NewQueryMap() *QueryMap {
	return &QueryMap{queries: map[DBCmd]Query{}}
}

// Add sets engine-specific queries for a command
func (q *QueryMap) Add(cmd DBCmd, query Query) *QueryMap {
	q.queries[cmd] = query
	return q
}

// AddSame sets one query for all engines, placeholders are converted with SQL.Adopt
func (q *QueryMap) AddSame(cmd DBCmd, query string) *QueryMap {
	return q.Add(cmd, Query{Sqlite: query, Postgres: query})
}

// Pick returns query of the command for the engine type
func (q *QueryMap) Pick(dbType Type, cmd DBCmd) (string, error) {
	query, ok := q.queries[cmd]
	if !ok {
		return "", fmt.Errorf("unsupported command type %d", cmd)
	}
	switch dbType {
	case Sqlite:
		return query.Sqlite, nil
	case Postgres:
		return query.Postgres, nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// RWLocker is a read-write locker, storages lock around queries on engines without concurrent writes
type RWLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// NoopLocker is a locker doing nothing, used for engines handling concurrency on their own
type NoopLocker struct{}

// Lock does nothing
func (NoopLocker) Lock() {}

// Unlock does nothing
func (NoopLocker) Unlock() {}

// RLock does nothing
func (NoopLocker) RLock() {}

// RUnlock does nothing
func (NoopLocker) RUnlock() {}
