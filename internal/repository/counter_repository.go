package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository hands out per-year monotonic ticket sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, year int) (int, error)
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository builds the repository.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

// Next bumps the counter row for the given year atomically, creating it
// on first use. Safe under concurrent submissions.
func (r *counterRepository) Next(ctx context.Context, year int) (int, error) {
	const query = `
        INSERT INTO ticket_counters (year, last_value) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET last_value = ticket_counters.last_value + 1
        RETURNING last_value`
	var value int
	if err := r.pool.QueryRow(ctx, query, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next ticket number for %d: %w", year, err)
	}
	return value, nil
}
