// Package database is the persistence layer for the operations console.
// Queries are hand-written pgx statements over a shared pool; the
// scheduling engine itself never touches this package.
package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries bundles every database operation on a shared connection pool.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates a Queries instance backed by the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}
