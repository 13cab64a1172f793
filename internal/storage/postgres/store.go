package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rateScope/internal/model"
)

// Store provides Postgres persistence for observations.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Append inserts one observation. The table is insert-only; history is
// never rewritten.
func (s *Store) Append(ctx context.Context, obs model.PriceObservation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO observations (
			pool, source, token_mint, token_symbol,
			amount_out_per_sol, spot_price, fee_paid, tvl, error, observed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		obs.Pool,
		string(obs.Source),
		obs.TokenMint,
		obs.TokenSymbol,
		obs.AmountOutPerSol,
		obs.SpotPrice,
		obs.FeePaid,
		obs.TVL,
		obs.Error,
		obs.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}
