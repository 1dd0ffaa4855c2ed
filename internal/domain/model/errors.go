package model

import "errors"

var (
	// ErrInvalidArgument reports missing or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRestrictedCurrency reports a currency excluded by policy.
	ErrRestrictedCurrency = errors.New("restricted currency")
	// ErrUnsupportedProvider reports an unknown rate provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrUpstreamUnavailable reports a failed upstream call after retries,
	// or a call rejected by an open circuit.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse reports an upstream payload that breaks its contract.
	ErrMalformedResponse = errors.New("malformed upstream response")
)
