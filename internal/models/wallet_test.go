package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	assert.NoError(t, err)
	return d
}

func TestWallet_AvailableBalance(t *testing.T) {
	w := &Wallet{
		Balance: dec(t, "1.00000000"),
		Hold:    dec(t, "0.30000000"),
	}
	assert.True(t, w.AvailableBalance().Equal(dec(t, "0.7")))
}

func TestWallet_HoldFunds(t *testing.T) {
	t.Run("reserves within available balance", func(t *testing.T) {
		w := &Wallet{Balance: dec(t, "1"), Hold: decimal.Zero}
		assert.True(t, w.HoldFunds(dec(t, "0.501")))
		assert.True(t, w.Hold.Equal(dec(t, "0.501")))
		assert.True(t, w.Balance.Equal(dec(t, "1")))
	})

	t.Run("rejects hold beyond available balance", func(t *testing.T) {
		w := &Wallet{Balance: dec(t, "1"), Hold: dec(t, "0.6")}
		assert.False(t, w.HoldFunds(dec(t, "0.5")))
		assert.True(t, w.Hold.Equal(dec(t, "0.6")), "failed hold must not mutate")
	})

	t.Run("allows hold of exactly the available balance", func(t *testing.T) {
		w := &Wallet{Balance: dec(t, "1"), Hold: dec(t, "0.4")}
		assert.True(t, w.HoldFunds(dec(t, "0.6")))
		assert.True(t, w.AvailableBalance().IsZero())
	})
}

func TestWallet_ReleaseFundsFloorsAtZero(t *testing.T) {
	w := &Wallet{Balance: dec(t, "1"), Hold: dec(t, "0.2")}
	w.ReleaseFunds(dec(t, "0.5"))
	assert.True(t, w.Hold.IsZero())

	w.Hold = dec(t, "0.5")
	w.ReleaseFunds(dec(t, "0.2"))
	assert.True(t, w.Hold.Equal(dec(t, "0.3")))
}

func TestWallet_Debit(t *testing.T) {
	w := &Wallet{Balance: dec(t, "0.499")}
	assert.False(t, w.Debit(dec(t, "0.5")))
	assert.True(t, w.Balance.Equal(dec(t, "0.499")))

	assert.True(t, w.Debit(dec(t, "0.499")))
	assert.True(t, w.Balance.IsZero())
}

func TestWallet_Credit(t *testing.T) {
	w := &Wallet{Balance: decimal.Zero}
	w.Credit(dec(t, "0.1"))
	w.Credit(dec(t, "0.2"))
	// exact decimal arithmetic, no binary float drift
	assert.True(t, w.Balance.Equal(dec(t, "0.3")))
}

func TestWallet_EightFractionalDigits(t *testing.T) {
	w := &Wallet{Balance: decimal.Zero}
	for i := 0; i < 1000; i++ {
		w.Credit(dec(t, "0.00000001"))
	}
	assert.True(t, w.Balance.Equal(dec(t, "0.00001")))
}
