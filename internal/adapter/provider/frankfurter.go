package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"valuta-service/internal/domain/model"
	"valuta-service/internal/resilience"
	"valuta-service/pkg/logger"
	"valuta-service/pkg/utils"

	"github.com/shopspring/decimal"
)

const DefaultFrankfurterURL = "https://api.frankfurter.app"

// FrankfurterClient talks to the Frankfurter rates API. Every request runs
// through the client's resilience policy.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
	policy     *resilience.Policy
	log        *logger.Logger
}

type latestResponse struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

type historicalResponse struct {
	Amount    decimal.Decimal                       `json:"amount"`
	Base      string                                `json:"base"`
	StartDate string                                `json:"start_date"`
	EndDate   string                                `json:"end_date"`
	Rates     map[string]map[string]decimal.Decimal `json:"rates"`
}

func NewFrankfurter(baseURL string, timeout time.Duration, policy *resilience.Policy, log *logger.Logger) *FrankfurterClient {
	if baseURL == "" {
		baseURL = DefaultFrankfurterURL
	}
	return &FrankfurterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		policy: policy,
		log:    log,
	}
}

func (f *FrankfurterClient) Name() string {
	return string(Frankfurter)
}

func (f *FrankfurterClient) LatestRates(ctx context.Context, base string) (*model.ExchangeRateSnapshot, error) {
	query := url.Values{}
	query.Set("from", base)

	var apiResp latestResponse
	if err := f.get(ctx, "/latest", query, &apiResp); err != nil {
		f.log.Error("Error fetching latest rates", "error", err, "base", base)
		return nil, err
	}

	return apiResp.snapshot()
}

func (f *FrankfurterClient) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*model.ExchangeRateSnapshot, error) {
	query := url.Values{}
	query.Set("amount", amount.String())
	query.Set("from", from)
	query.Set("to", to)

	var apiResp latestResponse
	if err := f.get(ctx, "/latest", query, &apiResp); err != nil {
		f.log.Error("Error converting currency", "error", err, "amount", amount.String(), "from", from, "to", to)
		return nil, err
	}

	return apiResp.snapshot()
}

func (f *FrankfurterClient) HistoricalRates(ctx context.Context, base string, start, end time.Time) (model.HistoricalRates, error) {
	path := fmt.Sprintf("/%s..%s", utils.FormatDate(start), utils.FormatDate(end))
	query := url.Values{}
	query.Set("from", base)

	var apiResp historicalResponse
	if err := f.get(ctx, path, query, &apiResp); err != nil {
		f.log.Error("Error fetching historical rates",
			"error", err,
			"base", base,
			"start_date", utils.FormatDate(start),
			"end_date", utils.FormatDate(end),
		)
		return nil, err
	}

	if apiResp.Rates == nil {
		return nil, fmt.Errorf("%w: historical response has no rates", model.ErrMalformedResponse)
	}

	history := make(model.HistoricalRates, len(apiResp.Rates))
	for day, rates := range apiResp.Rates {
		date, err := utils.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date key %q", model.ErrMalformedResponse, day)
		}
		history[date] = model.Rates(rates)
	}

	return history, nil
}

// get issues a GET and decodes the JSON body into out. Network failures,
// 408 and 5xx are transient; other non-200 statuses and undecodable bodies
// are not.
func (f *FrankfurterClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := f.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return f.policy.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return resilience.Transient(fmt.Errorf("%w: failed to send request: %v", model.ErrUpstreamUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resilience.Transient(fmt.Errorf("%w: API returned status %d", model.ErrUpstreamUnavailable, resp.StatusCode))
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("%w: API returned status %d: %s", model.ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", model.ErrMalformedResponse, err)
		}

		return nil
	})
}

func (r latestResponse) snapshot() (*model.ExchangeRateSnapshot, error) {
	if r.Base == "" || r.Rates == nil {
		return nil, fmt.Errorf("%w: response is missing base or rates", model.ErrMalformedResponse)
	}

	date, err := utils.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", model.ErrMalformedResponse, r.Date)
	}

	return &model.ExchangeRateSnapshot{
		Amount:       r.Amount,
		BaseCurrency: r.Base,
		Date:         date,
		Rates:        model.Rates(r.Rates),
	}, nil
}
