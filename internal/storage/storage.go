package storage

import (
	"context"

	"rateScope/internal/model"
)

// Storage defines a sink for price observations.
type Storage interface {
	Append(ctx context.Context, obs model.PriceObservation) error
}
