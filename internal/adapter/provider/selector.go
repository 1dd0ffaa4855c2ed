package provider

import (
	"fmt"
	"sort"
	"strings"

	"valuta-service/internal/domain/model"
	"valuta-service/internal/domain/ports"
)

// Name identifies a provider variant. Lookups are case-insensitive.
type Name string

const Frankfurter Name = "frankfurter"

func (n Name) normalize() Name {
	return Name(strings.ToLower(strings.TrimSpace(string(n))))
}

// Constructor builds one provider instance.
type Constructor func() ports.RateProvider

// Selector maps provider names to instances built once at startup, so
// per-provider state such as circuit breakers is shared by every caller.
type Selector struct {
	defaultName Name
	providers   map[Name]ports.RateProvider
}

func NewSelector(defaultName string, registry map[Name]Constructor) (*Selector, error) {
	s := &Selector{
		defaultName: Name(defaultName).normalize(),
		providers:   make(map[Name]ports.RateProvider, len(registry)),
	}

	for name, construct := range registry {
		s.providers[name.normalize()] = construct()
	}

	if _, ok := s.providers[s.defaultName]; !ok {
		return nil, fmt.Errorf("%w: default provider %q is not registered", model.ErrUnsupportedProvider, defaultName)
	}

	return s, nil
}

func (s *Selector) GetProvider(name string) (ports.RateProvider, error) {
	key := Name(name).normalize()
	if key == "" {
		key = s.defaultName
	}

	p, ok := s.providers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedProvider, name)
	}
	return p, nil
}

func (s *Selector) ListProviders() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
