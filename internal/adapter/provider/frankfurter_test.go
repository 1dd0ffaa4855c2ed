package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"valuta-service/internal/domain/model"
	"valuta-service/internal/resilience"
	"valuta-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(maxRetries uint64) *resilience.Policy {
	cfg := resilience.DefaultConfig("test")
	cfg.MaxRetries = maxRetries
	cfg.BaseDelay = time.Millisecond
	return resilience.NewPolicy(cfg, logger.Nop())
}

func newTestClient(t *testing.T, handler http.HandlerFunc, policy *resilience.Policy) *FrankfurterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewFrankfurter(server.URL, 2*time.Second, policy, logger.Nop())
}

func TestFrankfurter_LatestRates(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2024-05-10","rates":{"EUR":0.85,"GBP":0.75,"TRY":8.5}}`))
	}, testPolicy(0))

	snapshot, err := client.LatestRates(context.Background(), "USD")
	require.NoError(t, err)

	assert.Equal(t, "/latest", gotPath)
	assert.Equal(t, "from=USD", gotQuery)
	assert.Equal(t, "USD", snapshot.BaseCurrency)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), snapshot.Date)
	assert.True(t, decimal.NewFromInt(1).Equal(snapshot.Amount))
	require.Len(t, snapshot.Rates, 3)
	assert.True(t, decimal.RequireFromString("0.85").Equal(snapshot.Rates["EUR"]))
}

func TestFrankfurter_Convert(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2024-05-10","rates":{"EUR":0.85}}`))
	}, testPolicy(0))

	snapshot, err := client.Convert(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
	require.NoError(t, err)

	assert.Equal(t, "amount=1&from=USD&to=EUR", gotQuery)
	assert.True(t, decimal.RequireFromString("0.85").Equal(snapshot.Rates["EUR"]))
}

func TestFrankfurter_HistoricalRates(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","start_date":"2020-01-02","end_date":"2020-01-03",
			"rates":{"2020-01-02":{"EUR":0.89},"2020-01-03":{"EUR":0.9}}}`))
	}, testPolicy(0))

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	history, err := client.HistoricalRates(context.Background(), "USD", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/2020-01-01..2020-01-03", gotPath)
	require.Len(t, history, 2)
	day := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	assert.True(t, decimal.RequireFromString("0.9").Equal(history[day]["EUR"]))
}

func TestFrankfurter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantCalls int32
	}{
		{"server error is retried", http.StatusBadGateway, `{}`, model.ErrUpstreamUnavailable, 4},
		{"request timeout is retried", http.StatusRequestTimeout, `{}`, model.ErrUpstreamUnavailable, 4},
		{"client error is not retried", http.StatusNotFound, `{"message":"not found"}`, model.ErrUpstreamUnavailable, 1},
		{"too many requests is not retried", http.StatusTooManyRequests, `{}`, model.ErrUpstreamUnavailable, 1},
		{"undecodable body", http.StatusOK, `not json`, model.ErrMalformedResponse, 1},
		{"missing rates", http.StatusOK, `{"base":"USD","date":"2024-05-10"}`, model.ErrMalformedResponse, 1},
		{"bad date", http.StatusOK, `{"base":"USD","date":"10/05/2024","rates":{"EUR":0.85}}`, model.ErrMalformedResponse, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, testPolicy(3))

			_, err := client.LatestRates(context.Background(), "USD")

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestFrankfurter_HistoricalBadDateKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"yesterday":{"EUR":0.9}}}`))
	}, testPolicy(0))

	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.HistoricalRates(context.Background(), "USD", day, day)

	assert.ErrorIs(t, err, model.ErrMalformedResponse)
}

func TestFrankfurter_CircuitOpensAfterFiveFailures(t *testing.T) {
	var calls atomic.Int32
	policy := testPolicy(0)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, policy)

	for i := 0; i < 5; i++ {
		_, err := client.LatestRates(context.Background(), "USD")
		require.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	}
	require.Equal(t, int32(5), calls.Load())
	require.Equal(t, gobreaker.StateOpen, policy.State())

	_, err := client.LatestRates(context.Background(), "USD")

	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.Equal(t, int32(5), calls.Load(), "open circuit must not reach the network")
}

func TestFrankfurter_MalformedDoesNotTripBreaker(t *testing.T) {
	policy := testPolicy(0)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`garbage`))
	}, policy)

	for i := 0; i < 10; i++ {
		_, err := client.LatestRates(context.Background(), "USD")
		require.ErrorIs(t, err, model.ErrMalformedResponse)
	}

	assert.Equal(t, gobreaker.StateClosed, policy.State())
}

func TestFrankfurter_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewFrankfurter(url, time.Second, testPolicy(1), logger.Nop())

	_, err := client.LatestRates(context.Background(), "USD")

	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.True(t, resilience.IsTransient(err))
}

func TestFrankfurter_Name(t *testing.T) {
	client := NewFrankfurter("", time.Second, testPolicy(0), logger.Nop())
	assert.Equal(t, "frankfurter", client.Name())
	assert.Equal(t, DefaultFrankfurterURL, client.baseURL)
}
