package ports

import (
	"context"

	"valuta-service/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CurrencyService interface {
	GetLatestRates(ctx context.Context, baseCurrency string) (*model.ExchangeRateSnapshot, error)
	Convert(ctx context.Context, amount decimal.Decimal, sourceCurrency, targetCurrency string) (*model.ConversionResult, error)
	GetHistoricalRates(ctx context.Context, request model.HistoricalRatesRequest) (*model.PaginatedResult[model.RateHistoryEntry], error)
	ListProviders() []string
}
