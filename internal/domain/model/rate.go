package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rates maps a currency code to its rate against a base currency.
type Rates map[string]decimal.Decimal

// ExchangeRateSnapshot is one upstream quote of every rate for a base currency.
type ExchangeRateSnapshot struct {
	Amount       decimal.Decimal `json:"amount"`
	BaseCurrency string          `json:"base"`
	Date         time.Time       `json:"date"`
	Rates        Rates           `json:"rates"`
}

type ConversionResult struct {
	Amount          decimal.Decimal `json:"amount"`
	FromCurrency    string          `json:"fromCurrency"`
	ToCurrency      string          `json:"toCurrency"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Rate            decimal.Decimal `json:"rate"`
	Date            time.Time       `json:"date"`
}

type HistoricalRatesRequest struct {
	BaseCurrency string    `json:"baseCurrency"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Page         int       `json:"page"`
	PageSize     int       `json:"pageSize"`
}

// HistoricalRates holds one rate mapping per calendar day, keyed by the day
// at UTC midnight.
type HistoricalRates map[time.Time]Rates

type RateHistoryEntry struct {
	Date             time.Time `json:"date"`
	BaseCurrencyCode string    `json:"baseCurrencyCode"`
	Rates            Rates     `json:"exchangeRates"`
}

type PaginatedResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}
