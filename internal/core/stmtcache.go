package core

import (
	"database/sql"
	"sync"
)

// cachedStmt is a prepared statement shared through the statement cache.
// It is closed once it has been evicted and every caller has released it.
type cachedStmt struct {
	stmt *sql.Stmt

	mu      sync.Mutex
	refs    int
	retired bool
}

func newCachedStmt(stmt *sql.Stmt) *cachedStmt {
	return &cachedStmt{stmt: stmt, refs: 1}
}

// acquire takes a reference. It fails once the statement is retired.
func (c *cachedStmt) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retired {
		return false
	}
	c.refs++
	return true
}

func (c *cachedStmt) release() {
	c.mu.Lock()
	c.refs--
	closeNow := c.retired && c.refs == 0
	c.mu.Unlock()
	if closeNow {
		_ = c.stmt.Close()
	}
}

// retire is the eviction callback of the statement cache.
func (c *cachedStmt) retire() {
	c.mu.Lock()
	c.retired = true
	closeNow := c.refs == 0
	c.mu.Unlock()
	if closeNow {
		_ = c.stmt.Close()
	}
}
