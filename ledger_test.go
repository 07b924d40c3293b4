package bankadmin_test

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/bankadmin"
)

func acct(id int64, balance string) bankadmin.Account {
	return bankadmin.Account{
		AcctID:  snowflake.ParseInt64(id),
		Balance: decimal.RequireFromString(balance),
	}
}

func TestProRata(t *testing.T) {
	t.Run("splits in proportion to positive balances", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		accts := []bankadmin.Account{
			acct(1, "1000"),
			acct(2, "500"),
			acct(3, "0"),
		}
		distributable := bankadmin.Distributable(decimal.NewFromInt(1000), decimal.NewFromInt(50))
		as.True(decimal.NewFromInt(500).Equal(distributable))

		shares, distributed := bankadmin.ProRata(accts, distributable)
		reqrd.Len(shares, 2)
		as.Equal(snowflake.ParseInt64(1), shares[0].AcctID)
		as.Equal("333.33", shares[0].Amount.StringFixed(2))
		as.Equal("66.67", shares[0].Basis.StringFixed(2))
		as.Equal(snowflake.ParseInt64(2), shares[1].AcctID)
		as.Equal("166.67", shares[1].Amount.StringFixed(2))
		as.Equal("33.33", shares[1].Basis.StringFixed(2))
		as.Equal("500.00", distributed.StringFixed(2))
	})

	t.Run("returns nothing when no balance is positive", func(tt *testing.T) {
		as := assert.New(tt)
		accts := []bankadmin.Account{acct(1, "0"), acct(2, "0")}
		shares, distributed := bankadmin.ProRata(accts, decimal.NewFromInt(100))
		as.Empty(shares)
		as.True(distributed.IsZero())
	})

	t.Run("skips shares that round to zero", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		accts := []bankadmin.Account{
			acct(1, "1000000"),
			acct(2, "0.01"),
		}
		shares, distributed := bankadmin.ProRata(accts, decimal.NewFromInt(10))
		reqrd.Len(shares, 1)
		as.Equal(snowflake.ParseInt64(1), shares[0].AcctID)
		as.Equal("10.00", distributed.StringFixed(2))
	})

	t.Run("leftover cents go to the largest remainders", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		accts := []bankadmin.Account{
			acct(1, "100"),
			acct(2, "100"),
			acct(3, "100"),
		}
		distributable := decimal.NewFromInt(100)
		shares, distributed := bankadmin.ProRata(accts, distributable)
		reqrd.Len(shares, 3)
		as.Equal("33.34", shares[0].Amount.StringFixed(2))
		as.Equal("33.33", shares[1].Amount.StringFixed(2))
		as.Equal("33.33", shares[2].Amount.StringFixed(2))
		as.True(distributable.Equal(distributed))
	})

	t.Run("never pays more than the pool", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		accts := []bankadmin.Account{
			acct(1, "1"),
			acct(2, "1"),
			acct(3, "1"),
		}
		distributable := bankadmin.Distributable(decimal.RequireFromString("0.04"), decimal.NewFromInt(50))
		as.Equal("0.02", distributable.StringFixed(2))

		shares, distributed := bankadmin.ProRata(accts, distributable)
		reqrd.Len(shares, 2)
		for _, sh := range shares {
			as.Equal("0.01", sh.Amount.StringFixed(2))
		}
		as.True(distributable.Equal(distributed))
	})

	t.Run("uneven balances sum to the pool", func(tt *testing.T) {
		as := assert.New(tt)
		accts := []bankadmin.Account{
			acct(1, "123.45"),
			acct(2, "0.07"),
			acct(3, "9876.54"),
			acct(4, "-50"),
			acct(5, "333.33"),
		}
		distributable := decimal.RequireFromString("777.77")
		shares, distributed := bankadmin.ProRata(accts, distributable)
		as.Len(shares, 4)
		as.True(distributable.Equal(distributed))
		for _, sh := range shares {
			as.True(sh.Amount.Equal(sh.Amount.Truncate(2)))
		}
	})
}

func TestDistributable(t *testing.T) {
	as := assert.New(t)
	as.Equal("300.00", bankadmin.Distributable(decimal.NewFromInt(500), decimal.NewFromInt(60)).StringFixed(2))
	as.Equal("0.33", bankadmin.Distributable(decimal.NewFromInt(1), decimal.RequireFromString("33.333")).StringFixed(2))
	as.Equal("0.66", bankadmin.Distributable(decimal.NewFromInt(1), decimal.RequireFromString("66.6666")).StringFixed(2))
	as.True(bankadmin.Distributable(decimal.RequireFromString("0.01"), decimal.NewFromInt(50)).IsZero())
}

func TestBalanceOf(t *testing.T) {
	as := assert.New(t)
	txns := []bankadmin.Transaction{
		{Kind: bankadmin.KindCredit, Amount: decimal.NewFromInt(100)},
		{Kind: bankadmin.KindDebit, Amount: decimal.NewFromInt(30)},
		{Kind: bankadmin.KindTransferOut, Amount: decimal.NewFromInt(20)},
		{Kind: bankadmin.KindTransferIn, Amount: decimal.NewFromInt(5)},
		{Kind: bankadmin.KindProfit, Amount: decimal.RequireFromString("1.25")},
	}
	as.Equal("56.25", bankadmin.BalanceOf(txns).StringFixed(2))
	as.True(bankadmin.BalanceOf(nil).IsZero())
}

func TestTxnKind(t *testing.T) {
	as := assert.New(t)
	as.Equal("Transfer Out", bankadmin.KindTransferOut.Title())
	as.Equal("Profit Distribution", bankadmin.KindProfit.Title())
	as.True(bankadmin.KindTransferIn.Valid())
	as.False(bankadmin.TxnKind("refund").Valid())
}
