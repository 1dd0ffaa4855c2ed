package ports

import (
	"context"
	"time"

	"valuta-service/internal/domain/model"

	"github.com/shopspring/decimal"
)

// RateProvider fetches rates from one upstream source. It does no caching.
type RateProvider interface {
	Name() string
	LatestRates(ctx context.Context, base string) (*model.ExchangeRateSnapshot, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*model.ExchangeRateSnapshot, error)
	HistoricalRates(ctx context.Context, base string, start, end time.Time) (model.HistoricalRates, error)
}

// ProviderSelector resolves a provider by name. An empty name resolves to
// the configured default.
type ProviderSelector interface {
	GetProvider(name string) (RateProvider, error)
	ListProviders() []string
}
