package ledger

// Default confirmation thresholds before a pending deposit is credited.
const (
	DefaultRequiredConfirmations = 3
	DefaultMaxConflictRetries    = 3
)

func defaultConfirmationPolicy() map[string]int {
	return map[string]int{
		"BTC":  3,
		"ETH":  12,
		"USDT": 12,
	}
}
