package bankadmin

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	// maxPercentagePlaces keeps a percentage printable in a transaction description.
	maxPercentagePlaces = 4
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -moneyPlaces)
	// maxMoney bounds stored amounts to NUMERIC(15, 2), i.e. 13 integer digits.
	maxMoney = decimal.New(1, 13)
)

// Share is one account's cut of a pro-rata distribution.
type Share struct {
	AcctID snowflake.ID
	// Basis is the account's pre-distribution percentage of the positive total.
	Basis  decimal.Decimal
	Amount decimal.Decimal
}

// PositiveTotal sums the balances of accounts holding more than zero.
func PositiveTotal(accts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accts {
		if a.Balance.IsPositive() {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// ProRata splits distributable across accounts in proportion to their positive
// balances using the largest remainder method: every share is truncated to
// cents and the leftover cents go one each to the largest truncation
// remainders, so the returned total always equals distributable. Accounts at or
// below zero get nothing, as do accounts whose final share is zero.
func ProRata(accts []Account, distributable decimal.Decimal) ([]Share, decimal.Decimal) {
	total := PositiveTotal(accts)
	if !total.IsPositive() || !distributable.IsPositive() {
		return nil, decimal.Zero
	}

	type part struct {
		share     Share
		remainder decimal.Decimal
	}
	parts := make([]part, 0, len(accts))
	allotted := decimal.Zero
	for _, a := range accts {
		if !a.Balance.IsPositive() {
			continue
		}
		exact := a.Balance.Mul(distributable).Div(total)
		floor := exact.Truncate(moneyPlaces)
		parts = append(parts, part{
			share: Share{
				AcctID: a.AcctID,
				Basis:  a.Balance.Mul(hundred).Div(total).Round(moneyPlaces),
				Amount: floor,
			},
			remainder: exact.Sub(floor),
		})
		allotted = allotted.Add(floor)
	}

	// leftover is a whole number of cents below len(parts)
	leftover := distributable.Sub(allotted).Div(cent).IntPart()
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return parts[order[i]].remainder.GreaterThan(parts[order[j]].remainder)
	})
	for i := 0; i < len(order) && int64(i) < leftover; i++ {
		p := &parts[order[i]]
		p.share.Amount = p.share.Amount.Add(cent)
	}

	shares := make([]Share, 0, len(parts))
	distributed := decimal.Zero
	for _, p := range parts {
		if !p.share.Amount.IsPositive() {
			continue
		}
		shares = append(shares, p.share)
		distributed = distributed.Add(p.share.Amount)
	}
	return shares, distributed
}

// Distributable is the slice of the profit pool handed out at percentage p,
// truncated to cents so it never exceeds the exact amount.
func Distributable(totalProfit, percentage decimal.Decimal) decimal.Decimal {
	return totalProfit.Mul(percentage).Div(hundred).Truncate(moneyPlaces)
}

// BalanceOf replays a transaction history into a balance.
func BalanceOf(txns []Transaction) decimal.Decimal {
	bal := decimal.Zero
	for _, t := range txns {
		bal = bal.Add(t.Signed())
	}
	return bal
}

func hasPrecision(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

func hasMoneyPrecision(d decimal.Decimal) bool {
	return hasPrecision(d, moneyPlaces)
}

// fitsMoney reports whether d can be stored as a balance or amount.
func fitsMoney(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxMoney)
}
