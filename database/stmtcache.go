package database

import (
	"database/sql"
	"sync"
)

// StmtCache caches prepared sql statements, keyed by query string, so the
// ledger/registry/burnrouter statedbs never re-prepare the same query twice.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

// Len reports how many distinct statements are currently cached, which
// shows whether repeated calls reuse one prepared statement.
func (sc *StmtCache) Len() int {
	n := 0
	sc.m.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.Prepare(query)
		if err != nil {
			return nil, err
		}
		sc.m.Store(query, stmt)
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

func (sc *StmtCache) MustPrepare(query string) *sql.Stmt {
	stmt, err := sc.Prepare(query)
	if err != nil {
		panic(err)
	}
	return stmt
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
