package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/equiblock/engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. Amounts and prices are stored as NUMERIC for exact decimal
// precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed journal.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectColumns = `id, kind, account, asset,
	        amount::TEXT, COALESCE(asset_out, ''), amount_out::TEXT,
	        price::TEXT, timestamp`

func (s *PostgresStore) Append(ctx context.Context, e *model.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal_events (id, kind, account, asset, amount, asset_out, amount_out, price, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7::NUMERIC, $8::NUMERIC, $9)`,
		e.ID, e.Kind, e.Account, e.Asset,
		e.Amount.String(), e.AssetOut, e.AmountOut.String(),
		e.Price.String(), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, account string) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+`
		 FROM journal_events WHERE account = $1 ORDER BY timestamp`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) ListByKind(ctx context.Context, kind string) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+`
		 FROM journal_events WHERE kind = $1 ORDER BY timestamp`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+`
		 FROM journal_events ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// pgxRows is the subset of pgx.Rows needed to scan events.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows pgxRows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		var amountS, amountOutS, priceS string

		if err := rows.Scan(&e.ID, &e.Kind, &e.Account, &e.Asset,
			&amountS, &e.AssetOut, &amountOutS, &priceS, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Amount, _ = decimal.NewFromString(amountS)
		e.AmountOut, _ = decimal.NewFromString(amountOutS)
		e.Price, _ = decimal.NewFromString(priceS)

		events = append(events, e)
	}
	return events, rows.Err()
}
