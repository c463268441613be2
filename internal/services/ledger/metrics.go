package ledger

import "github.com/shopspring/decimal"

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransaction(txType string, amount decimal.Decimal) {}
func (NoopMetricsCollector) RecordError(operation, errType string)                   {}
