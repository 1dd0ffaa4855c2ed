package model

import (
	"sort"
	"strings"
)

// DefaultRestricted lists the codes excluded when no policy is configured.
var DefaultRestricted = []string{"TRY", "PLN", "THB", "MXN"}

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RestrictedSet is the case-insensitive set of currency codes that may never
// appear as input or output. It is read-only after construction.
type RestrictedSet struct {
	codes map[string]struct{}
}

func NewRestrictedSet(codes ...string) *RestrictedSet {
	set := &RestrictedSet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if c = NormalizeCode(c); c != "" {
			set.codes[c] = struct{}{}
		}
	}
	return set
}

func (s *RestrictedSet) Contains(code string) bool {
	if s == nil {
		return false
	}
	_, ok := s.codes[NormalizeCode(code)]
	return ok
}

// Strip deletes every restricted code from rates in place.
func (s *RestrictedSet) Strip(rates Rates) {
	if s == nil {
		return
	}
	for code := range rates {
		if s.Contains(code) {
			delete(rates, code)
		}
	}
}

// Codes returns the set's members in sorted order.
func (s *RestrictedSet) Codes() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *RestrictedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.codes)
}
