package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valuta-service/internal/cachekey"
	"valuta-service/internal/domain/model"
	"valuta-service/internal/domain/ports"
	"valuta-service/internal/metrics"
	"valuta-service/pkg/logger"
	"valuta-service/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLatestTTL     = time.Hour
	DefaultConversionTTL = time.Hour
	DefaultHistoricalTTL = 24 * time.Hour
	DefaultPageSize      = 10
	// MaxPageSize caps the page size of a historical query.
	MaxPageSize          = 500
)

const (
	operationLatest     = "latest"
	operationConversion = "convert"
	operationHistorical = "historical"
)

type CurrencyService struct {
	selector   ports.ProviderSelector
	cache      ports.Cache
	restricted *model.RestrictedSet
	log        *logger.Logger
	metrics    *metrics.Metrics
	group      singleflight.Group
	flightsMu  sync.Mutex
	flights    map[string]*flight

	providerName    string
	latestTTL       time.Duration
	conversionTTL   time.Duration
	historicalTTL   time.Duration
	defaultPageSize int
}

// flight is the context shared by every caller waiting on one upstream
// fetch. It is cancelled when the last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type Option func(*CurrencyService)

// WithTTLs overrides the cache lifetimes. Zero values keep the defaults.
func WithTTLs(latest, conversion, historical time.Duration) Option {
	return func(s *CurrencyService) {
		if latest > 0 {
			s.latestTTL = latest
		}
		if conversion > 0 {
			s.conversionTTL = conversion
		}
		if historical > 0 {
			s.historicalTTL = historical
		}
	}
}

func WithDefaultPageSize(size int) Option {
	return func(s *CurrencyService) {
		if size > 0 {
			s.defaultPageSize = min(size, MaxPageSize)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CurrencyService) {
		s.metrics = m
	}
}

// WithProvider pins the service to a named provider instead of the
// selector's default.
func WithProvider(name string) Option {
	return func(s *CurrencyService) {
		s.providerName = name
	}
}

func NewCurrencyService(selector ports.ProviderSelector, cache ports.Cache, restricted *model.RestrictedSet, log *logger.Logger, opts ...Option) *CurrencyService {
	s := &CurrencyService{
		selector:        selector,
		cache:           cache,
		restricted:      restricted,
		log:             log,
		latestTTL:       DefaultLatestTTL,
		conversionTTL:   DefaultConversionTTL,
		historicalTTL:   DefaultHistoricalTTL,
		defaultPageSize: DefaultPageSize,
		flights:         make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CurrencyService) GetLatestRates(ctx context.Context, baseCurrency string) (*model.ExchangeRateSnapshot, error) {
	base := model.NormalizeCode(baseCurrency)
	if base == "" {
		return nil, fmt.Errorf("%w: base currency is required", model.ErrInvalidArgument)
	}
	if s.restricted.Contains(base) {
		return nil, fmt.Errorf("%w: %s", model.ErrRestrictedCurrency, base)
	}

	return readThrough(ctx, s, operationLatest, cachekey.Latest(base), s.latestTTL,
		[]any{"base", base},
		func(ctx context.Context) (*model.ExchangeRateSnapshot, error) {
			provider, err := s.selector.GetProvider(s.providerName)
			if err != nil {
				return nil, err
			}

			snapshot, err := provider.LatestRates(ctx, base)
			if err != nil {
				return nil, err
			}

			s.restricted.Strip(snapshot.Rates)
			return snapshot, nil
		})
}

func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, sourceCurrency, targetCurrency string) (*model.ConversionResult, error) {
	from := model.NormalizeCode(sourceCurrency)
	to := model.NormalizeCode(targetCurrency)

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", model.ErrInvalidArgument)
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: source and target currencies are required", model.ErrInvalidArgument)
	}
	for _, code := range []string{from, to} {
		if s.restricted.Contains(code) {
			return nil, fmt.Errorf("%w: %s", model.ErrRestrictedCurrency, code)
		}
	}

	unit, err := readThrough(ctx, s, operationConversion, cachekey.Conversion(from, to), s.conversionTTL,
		[]any{"from", from, "to", to, "amount", amount.String()},
		func(ctx context.Context) (*model.ExchangeRateSnapshot, error) {
			provider, err := s.selector.GetProvider(s.providerName)
			if err != nil {
				return nil, err
			}
			return provider.Convert(ctx, decimal.NewFromInt(1), from, to)
		})
	if err != nil {
		return nil, err
	}

	return ShapeConversionResult(unit, amount, from, to)
}

func (s *CurrencyService) GetHistoricalRates(ctx context.Context, request model.HistoricalRatesRequest) (*model.PaginatedResult[model.RateHistoryEntry], error) {
	base := model.NormalizeCode(request.BaseCurrency)
	if base == "" {
		return nil, fmt.Errorf("%w: base currency is required", model.ErrInvalidArgument)
	}
	if request.StartDate.IsZero() || request.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", model.ErrInvalidArgument)
	}

	start := utils.TruncateDay(request.StartDate)
	end := utils.TruncateDay(request.EndDate)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			model.ErrInvalidArgument, utils.FormatDate(start), utils.FormatDate(end))
	}
	if s.restricted.Contains(base) {
		return nil, fmt.Errorf("%w: %s", model.ErrRestrictedCurrency, base)
	}

	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	history, err := readThrough(ctx, s, operationHistorical, cachekey.Historical(base, start, end), s.historicalTTL,
		[]any{"base", base, "start_date", utils.FormatDate(start), "end_date", utils.FormatDate(end)},
		func(ctx context.Context) (model.HistoricalRates, error) {
			provider, err := s.selector.GetProvider(s.providerName)
			if err != nil {
				return nil, err
			}

			history, err := provider.HistoricalRates(ctx, base, start, end)
			if err != nil {
				return nil, err
			}

			for _, rates := range history {
				s.restricted.Strip(rates)
			}
			return history, nil
		})
	if err != nil {
		return nil, err
	}

	return Paginate(BuildHistory(history, base), page, pageSize), nil
}

func (s *CurrencyService) ListProviders() []string {
	return s.selector.ListProviders()
}

// readThrough serves key from the cache or runs fetch once for all
// concurrent callers missing the same key. A caller returns as soon as its
// context is done; the shared fetch is cancelled only once no caller is
// waiting for it.
func readThrough[T any](ctx context.Context, s *CurrencyService, operation, key string, ttl time.Duration, fields []any, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	logArgs := make([]any, 0, 4+len(fields))
	logArgs = append(logArgs, "operation", operation, "key", key)
	logArgs = append(logArgs, fields...)

	if cached, found := s.cache.Get(ctx, key); found {
		if value, ok := cached.(T); ok {
			s.log.Info("Cache hit", logArgs...)
			s.metrics.ObserveCache(operation, true)
			return value, nil
		}
		s.log.Warn("Unexpected cached value type, refetching", logArgs...)
	}

	s.log.Info("Cache miss, fetching from provider", logArgs...)
	s.metrics.ObserveCache(operation, false)

	fetchCtx, leave := s.joinFlight(ctx, key)
	defer leave()

	ch := s.group.DoChan(key, func() (any, error) {
		value, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, key, value, ttl); err != nil {
			s.log.Error("Failed to cache value", append(logArgs, "error", err)...)
		}
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.log.Error("Provider request failed", append(logArgs, "error", res.Err)...)
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	case <-ctx.Done():
		s.log.Info("Caller cancelled while waiting for provider", logArgs...)
		return zero, ctx.Err()
	}
}

// joinFlight registers the caller as a waiter on key and returns the
// context the shared fetch must use. The returned func must be called once
// the caller stops waiting.
func (s *CurrencyService) joinFlight(ctx context.Context, key string) (context.Context, func()) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	f, ok := s.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[key] = f
	}
	f.waiters++

	return f.ctx, func() { s.leaveFlight(key, f) }
}

func (s *CurrencyService) leaveFlight(key string, f *flight) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	// A cancelled call must not be joined by the next caller.
	s.group.Forget(key)
}
