package service

import (
	"fmt"
	"sort"

	"valuta-service/internal/domain/model"

	"github.com/shopspring/decimal"
)

// ShapeConversionResult scales a one-unit snapshot to amount.
func ShapeConversionResult(unit *model.ExchangeRateSnapshot, amount decimal.Decimal, from, to string) (*model.ConversionResult, error) {
	if unit == nil {
		return nil, fmt.Errorf("%w: empty conversion snapshot", model.ErrMalformedResponse)
	}

	rate, ok := unit.Rates[to]
	if !ok {
		return nil, fmt.Errorf("%w: conversion snapshot has no rate for %s", model.ErrMalformedResponse, to)
	}

	return &model.ConversionResult{
		Amount:          amount,
		FromCurrency:    from,
		ToCurrency:      to,
		ConvertedAmount: amount.Mul(rate),
		Rate:            rate,
		Date:            unit.Date,
	}, nil
}

// BuildHistory flattens history into entries, newest first.
func BuildHistory(history model.HistoricalRates, base string) []model.RateHistoryEntry {
	entries := make([]model.RateHistoryEntry, 0, len(history))
	for date, rates := range history {
		entries = append(entries, model.RateHistoryEntry{
			Date:             date,
			BaseCurrencyCode: base,
			Rates:            rates,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	return entries
}

// Paginate returns the 1-based page of items. Non-positive page and
// pageSize are treated as 1; a page past the end has no items. The
// arithmetic never exceeds len(items), so any int is safe.
func Paginate[T any](items []T, page, pageSize int) *model.PaginatedResult[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	start, end := total, total
	if page-1 < totalPages {
		start = (page - 1) * pageSize
		if remaining := total - start; pageSize < remaining {
			end = start + pageSize
		}
	}

	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])

	return &model.PaginatedResult[T]{
		Items:      pageItems,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
}
