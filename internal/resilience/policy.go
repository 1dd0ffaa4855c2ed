// Package resilience wraps upstream calls in a retry policy around a circuit
// breaker. Each retry attempt passes through the breaker, so every failed
// attempt counts towards opening it.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"valuta-service/internal/domain/model"
	"valuta-service/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

type Config struct {
	Name string
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64
	// BaseDelay scales the wait before retry n to BaseDelay * 2^n.
	BaseDelay time.Duration
	// FailureThreshold is the count of consecutive transient failures that opens the circuit.
	FailureThreshold uint32
	// BreakDuration is how long the circuit stays open before a half-open trial.
	BreakDuration time.Duration
	// OnStateChange, when set, observes breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRetries:       3,
		BaseDelay:        time.Second,
		FailureThreshold: 5,
		BreakDuration:    time.Minute,
	}
}

type Policy struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func NewPolicy(cfg Config, log *logger.Logger) *Policy {
	p := &Policy{cfg: cfg, log: log}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: p.stateChanged,
	})

	return p
}

func (p *Policy) stateChanged(name string, from, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		p.log.Error("Circuit breaker opened due to failures", "breaker", name, "break_duration", p.cfg.BreakDuration)
	case gobreaker.StateHalfOpen:
		p.log.Info("Circuit breaker half-open, testing if upstream is available", "breaker", name)
	case gobreaker.StateClosed:
		p.log.Info("Circuit breaker reset, normal operation resumed", "breaker", name)
	}

	if p.cfg.OnStateChange != nil {
		p.cfg.OnStateChange(name, from, to)
	}
}

// State reports the breaker's current state.
func (p *Policy) State() gobreaker.State {
	return p.breaker.State()
}

// Execute runs op under the policy. Transient failures are retried with
// exponential backoff; anything else is returned after the first attempt.
// When the circuit is open, Execute fails with model.ErrUpstreamUnavailable
// without calling op.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.cfg.MaxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		attempt++

		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%w: circuit %q is open", model.ErrUpstreamUnavailable, p.cfg.Name))
		case IsTransient(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}, b, func(err error, wait time.Duration) {
		p.log.Warn("Upstream request failed, retrying",
			"breaker", p.cfg.Name,
			"error", err,
			"retry_in", wait,
			"attempt", attempt,
			"max_retries", p.cfg.MaxRetries,
		)
	})

	return err
}

func (p *Policy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * p.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 1 << 62
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
