package provider

import (
	"time"

	"valuta-service/internal/domain/ports"
	"valuta-service/internal/resilience"
	"valuta-service/pkg/logger"
)

type RegistryConfig struct {
	FrankfurterURL string
	Timeout        time.Duration
	Resilience     resilience.Config
}

// NewRegistry returns the static table of known providers. Each provider
// gets its own resilience policy.
func NewRegistry(cfg RegistryConfig, log *logger.Logger) map[Name]Constructor {
	return map[Name]Constructor{
		Frankfurter: func() ports.RateProvider {
			policyCfg := cfg.Resilience
			policyCfg.Name = string(Frankfurter)
			plog := log.With("provider", string(Frankfurter))
			return NewFrankfurter(cfg.FrankfurterURL, cfg.Timeout, resilience.NewPolicy(policyCfg, plog), plog)
		},
	}
}
