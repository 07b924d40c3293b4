package bankadmin

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Account struct {
	AcctID     snowflake.ID    `json:"id"`
	NationalID string          `json:"national_id"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TxnKind string

const (
	KindCredit      TxnKind = "credit"
	KindDebit       TxnKind = "debit"
	KindProfit      TxnKind = "profit_distribution"
	KindTransferOut TxnKind = "transfer_out"
	KindTransferIn  TxnKind = "transfer_in"
)

// Sign is +1 for kinds that add to a balance and -1 for those that take away.
func (k TxnKind) Sign() int {
	switch k {
	case KindDebit, KindTransferOut:
		return -1
	default:
		return 1
	}
}

// Title renders the kind for documents, e.g. "Transfer Out".
func (k TxnKind) Title() string {
	switch k {
	case KindCredit:
		return "Credit"
	case KindDebit:
		return "Debit"
	case KindProfit:
		return "Profit Distribution"
	case KindTransferOut:
		return "Transfer Out"
	case KindTransferIn:
		return "Transfer In"
	default:
		return string(k)
	}
}

func (k TxnKind) Valid() bool {
	switch k {
	case KindCredit, KindDebit, KindProfit, KindTransferOut, KindTransferIn:
		return true
	}
	return false
}

type Transaction struct {
	TxnID         snowflake.ID    `json:"id"`
	AcctID        snowflake.ID    `json:"account_id"`
	Kind          TxnKind         `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   string          `json:"description"`
	CounterpartID *snowflake.ID   `json:"counterpart_id,omitempty"`
}

// Signed returns the amount with the sign of its effect on the owning balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind.Sign() < 0 {
		return t.Amount.Neg()
	}
	return t.Amount
}

type Admin struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
