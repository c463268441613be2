package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			txn := &Transaction{Status: tt.from}
			assert.Equal(t, tt.allowed, txn.CanTransitionTo(tt.to))
		})
	}
}

func TestTransaction_IsTerminal(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, (&Transaction{Status: status}).IsTerminal(), status)
	}
	for _, status := range []string{StatusPending, StatusProcessing} {
		assert.False(t, (&Transaction{Status: status}).IsTerminal(), status)
	}
}

func TestTransaction_AppendLogIsAppendOnly(t *testing.T) {
	txn := &Transaction{}
	txn.AppendLog("transaction created", nil)
	txn.AppendLog("status changed", map[string]interface{}{"from": "pending", "to": "completed"})

	logs := txn.AuditLog()
	assert.Len(t, logs, 2)

	first := logs[0].(map[string]interface{})
	assert.Equal(t, "transaction created", first["message"])

	second := logs[1].(map[string]interface{})
	assert.Equal(t, "status changed", second["message"])
	ctx := second["context"].(map[string]interface{})
	assert.Equal(t, "pending", ctx["from"])

	// a third append leaves earlier entries untouched
	txn.AppendLog("confirmations updated", map[string]interface{}{"confirmations": 3})
	logs = txn.AuditLog()
	assert.Len(t, logs, 3)
	assert.Equal(t, "transaction created", logs[0].(map[string]interface{})["message"])
}

func TestTransaction_Amounts(t *testing.T) {
	txn := &Transaction{
		Amount: dec(t, "-0.5"),
		Fee:    dec(t, "0.001"),
	}
	assert.True(t, txn.IsOutgoing())
	assert.False(t, txn.IsIncoming())
	assert.True(t, txn.AbsoluteAmount().Equal(dec(t, "0.5")))
	assert.True(t, txn.TotalAmount().Equal(dec(t, "0.501")))

	deposit := &Transaction{Amount: dec(t, "1")}
	assert.True(t, deposit.IsIncoming())
	assert.True(t, deposit.TotalAmount().Equal(dec(t, "1")))
}
