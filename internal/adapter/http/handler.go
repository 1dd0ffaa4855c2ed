package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"valuta-service/internal/domain/model"
	"valuta-service/internal/domain/ports"
	"valuta-service/internal/metrics"
	"valuta-service/pkg/logger"
	"valuta-service/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type latestRatesQuery struct {
	BaseCurrency string `validate:"required,alpha,len=3"`
}

type convertQuery struct {
	Value          string `validate:"required,numeric"`
	SourceCurrency string `validate:"required,alpha,len=3"`
	TargetCurrency string `validate:"required,alpha,len=3"`
}

type historicalQuery struct {
	BaseCurrency string `validate:"required,alpha,len=3"`
	StartDate    string `validate:"required,datetime=2006-01-02"`
	EndDate      string `validate:"required,datetime=2006-01-02"`
	Page         string `validate:"omitempty,numeric"`
	PageSize     string `validate:"omitempty,numeric"`
}

type pagingQuery struct {
	Page     int `validate:"lte=1000000"`
	PageSize int `validate:"lte=500"`
}

type Handler struct {
	service  ports.CurrencyService
	log      *logger.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewHandler(service ports.CurrencyService, log *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
	}
}

func (h *Handler) GetLatestRatesHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.RateRequestsTotal.Inc()

	query := latestRatesQuery{
		BaseCurrency: queryParam(r, "baseCurrency"),
	}
	if err := h.validate.Struct(query); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	snapshot, err := h.service.GetLatestRates(r.Context(), query.BaseCurrency)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, snapshot)
}

func (h *Handler) ConvertCurrencyHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.ConversionRequestsTotal.Inc()

	query := convertQuery{
		Value:          queryParam(r, "value"),
		SourceCurrency: queryParam(r, "sourceCurrency"),
		TargetCurrency: queryParam(r, "targetCurrency"),
	}
	if err := h.validate.Struct(query); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	amount, err := decimal.NewFromString(query.Value)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "invalid value parameter")
		return
	}

	result, err := h.service.Convert(r.Context(), amount, query.SourceCurrency, query.TargetCurrency)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, result)
}

func (h *Handler) GetHistoricalRatesHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.HistoricalRequestsTotal.Inc()

	query := historicalQuery{
		BaseCurrency: queryParam(r, "baseCurrency"),
		StartDate:    queryParam(r, "startDate"),
		EndDate:      queryParam(r, "endDate"),
		Page:         queryParam(r, "page"),
		PageSize:     queryParam(r, "pageSize"),
	}
	if err := h.validate.Struct(query); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	startDate, err := utils.ParseDate(query.StartDate)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "invalid startDate format, use YYYY-MM-DD")
		return
	}

	endDate, err := utils.ParseDate(query.EndDate)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "invalid endDate format, use YYYY-MM-DD")
		return
	}

	page, err := optionalInt(query.Page)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "invalid page parameter")
		return
	}

	pageSize, err := optionalInt(query.PageSize)
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "invalid pageSize parameter")
		return
	}

	if err := h.validate.Struct(pagingQuery{Page: page, PageSize: pageSize}); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	request := model.HistoricalRatesRequest{
		BaseCurrency: query.BaseCurrency,
		StartDate:    startDate,
		EndDate:      endDate,
		Page:         page,
		PageSize:     pageSize,
	}

	result, err := h.service.GetHistoricalRates(r.Context(), request)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, result)
}

func (h *Handler) ListProvidersHandler(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, h.service.ListProviders())
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, map[string]string{"status": "ok"})
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func optionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "len", "alpha":
			msgs = append(msgs, fmt.Sprintf("%s must be a 3-letter currency code", field))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must use YYYY-MM-DD", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func (h *Handler) sendSuccessResponse(w http.ResponseWriter, data interface{}) {
	writeJSON(w, h.log, http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handler) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, h.log, statusCode, Response{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, statusCode int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorMessage := "internal server error"

	switch {
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrRestrictedCurrency):
		statusCode = http.StatusBadRequest
		errorMessage = err.Error()
	case errors.Is(err, model.ErrUnsupportedProvider):
		errorMessage = "unsupported provider"
	case errors.Is(err, model.ErrMalformedResponse):
		statusCode = http.StatusBadGateway
		errorMessage = "invalid response from rate provider"
	case errors.Is(err, model.ErrUpstreamUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorMessage = "rate provider unavailable"
	}

	if statusCode >= http.StatusInternalServerError {
		h.log.Error("Service error", "error", err, "status_code", statusCode)
	} else {
		h.log.Warn("Request rejected", "error", err, "status_code", statusCode)
	}
	h.sendErrorResponse(w, statusCode, errorMessage)
}
