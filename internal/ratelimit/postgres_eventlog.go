package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEventLog implements EventLog on the rate_limit_logs table.
type PostgresEventLog struct {
	pool *pgxpool.Pool
}

// NewPostgresEventLog creates an EventLog backed by the given connection pool.
func NewPostgresEventLog(pool *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{pool: pool}
}

func (l *PostgresEventLog) Count(ctx context.Context, identifier string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM rate_limit_logs WHERE identifier = $1 AND created_at > $2`

	var n int
	if err := l.pool.QueryRow(ctx, query, identifier, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rate limit events: %w", err)
	}
	return n, nil
}

func (l *PostgresEventLog) Oldest(ctx context.Context, identifier string, since time.Time) (time.Time, bool, error) {
	query := `SELECT MIN(created_at) FROM rate_limit_logs WHERE identifier = $1 AND created_at > $2`

	var oldest *time.Time
	if err := l.pool.QueryRow(ctx, query, identifier, since).Scan(&oldest); err != nil {
		return time.Time{}, false, fmt.Errorf("querying oldest rate limit event: %w", err)
	}
	if oldest == nil {
		return time.Time{}, false, nil
	}
	return *oldest, true, nil
}

func (l *PostgresEventLog) Record(ctx context.Context, identifier string, at time.Time) error {
	query := `INSERT INTO rate_limit_logs (identifier, created_at) VALUES ($1, $2)`

	if _, err := l.pool.Exec(ctx, query, identifier, at); err != nil {
		return fmt.Errorf("recording rate limit event: %w", err)
	}
	return nil
}

func (l *PostgresEventLog) Prune(ctx context.Context, identifier string, before time.Time) error {
	var err error
	if identifier == "" {
		_, err = l.pool.Exec(ctx, `DELETE FROM rate_limit_logs WHERE created_at < $1`, before)
	} else {
		_, err = l.pool.Exec(ctx, `DELETE FROM rate_limit_logs WHERE identifier = $1 AND created_at < $2`, identifier, before)
	}
	if err != nil {
		return fmt.Errorf("pruning rate limit events: %w", err)
	}
	return nil
}
