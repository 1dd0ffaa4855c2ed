package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"valuta-service/internal/config"
	"valuta-service/internal/domain/model"
	"valuta-service/internal/metrics"
	"valuta-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockCurrencyService struct {
	GetLatestRatesFunc     func(ctx context.Context, baseCurrency string) (*model.ExchangeRateSnapshot, error)
	ConvertFunc            func(ctx context.Context, amount decimal.Decimal, source, target string) (*model.ConversionResult, error)
	GetHistoricalRatesFunc func(ctx context.Context, request model.HistoricalRatesRequest) (*model.PaginatedResult[model.RateHistoryEntry], error)
	ListProvidersFunc      func() []string
}

func (m *MockCurrencyService) GetLatestRates(ctx context.Context, baseCurrency string) (*model.ExchangeRateSnapshot, error) {
	return m.GetLatestRatesFunc(ctx, baseCurrency)
}

func (m *MockCurrencyService) Convert(ctx context.Context, amount decimal.Decimal, source, target string) (*model.ConversionResult, error) {
	return m.ConvertFunc(ctx, amount, source, target)
}

func (m *MockCurrencyService) GetHistoricalRates(ctx context.Context, request model.HistoricalRatesRequest) (*model.PaginatedResult[model.RateHistoryEntry], error) {
	return m.GetHistoricalRatesFunc(ctx, request)
}

func (m *MockCurrencyService) ListProviders() []string {
	return m.ListProvidersFunc()
}

const testSecret = "test-secret"

func testAuthConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("bob-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	return config.AuthConfig{
		Secret:   testSecret,
		Issuer:   "valuta-service",
		Audience: "valuta-clients",
		TokenTTL: time.Hour,
		Users: config.Users{
			{Username: "alice", Password: "alice-pass", Roles: []string{RoleAdmin, RoleUser}},
			{Username: "bob", Password: string(hash), Roles: []string{RoleUser}},
		},
	}
}

type testServer struct {
	handler  http.Handler
	auth     *Authenticator
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, svc *MockCurrencyService, limiter func(*metrics.Metrics) *RateLimiter) *testServer {
	t.Helper()
	return newTestServerWithLogger(t, svc, limiter, logger.Nop())
}

func newTestServerWithLogger(t *testing.T, svc *MockCurrencyService, limiter func(*metrics.Metrics) *RateLimiter, log *logger.Logger) *testServer {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	var rl *RateLimiter
	if limiter != nil {
		rl = limiter(m)
	}

	auth := NewAuthenticator(testAuthConfig(t), log)
	router := NewRouter(NewHandler(svc, log, m), auth, rl, log, m, registry)

	return &testServer{
		handler:  router.SetupRoutes(),
		auth:     auth,
		metrics:  m,
		registry: registry,
	}
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool          `json:"success"`
		Data    loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
