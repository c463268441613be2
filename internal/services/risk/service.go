// Package risk decides whether an inbound deposit needs manual
// confirmation tracking before funds are credited.
package risk

import (
	"github.com/shopspring/decimal"
)

// Service routes inbound deposits: a flagged deposit goes through the
// pending/confirmation flow instead of being credited instantly.
type Service interface {
	RequiresManualConfirmation(fromAddress string, amount decimal.Decimal) bool
}

// Config holds the routing rules.
type Config struct {
	// BlacklistedAddresses always require manual confirmation.
	BlacklistedAddresses []string
	// ManualReviewThreshold flags any deposit above this amount.
	// Zero disables the threshold.
	ManualReviewThreshold decimal.Decimal
}

type service struct {
	blacklist map[string]struct{}
	threshold decimal.Decimal
}

func NewService(config Config) Service {
	blacklist := make(map[string]struct{}, len(config.BlacklistedAddresses))
	for _, addr := range config.BlacklistedAddresses {
		blacklist[addr] = struct{}{}
	}
	return &service{
		blacklist: blacklist,
		threshold: config.ManualReviewThreshold,
	}
}

func (s *service) RequiresManualConfirmation(fromAddress string, amount decimal.Decimal) bool {
	if _, ok := s.blacklist[fromAddress]; ok {
		return true
	}
	if s.threshold.Sign() > 0 && amount.GreaterThan(s.threshold) {
		return true
	}
	return false
}
