package bankadmin

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInternalServer     = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrUnauthorized       = errors.New("invalid username or password")
)

type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

type ErrNotFound struct {
	ID int64 `json:"id"`
}

func (e ErrNotFound) Error() string {
	return "record not found"
}

type ErrInsufficientFunds struct {
	ID      int64           `json:"id"`
	Balance decimal.Decimal `json:"balance"`
	Amount  decimal.Decimal `json:"amount"`
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient balance %s for amount %s", e.Balance.StringFixed(2), e.Amount.StringFixed(2))
}

type ErrDuplicateAccount struct {
	NationalID string `json:"national_id"`
}

func (e ErrDuplicateAccount) Error() string {
	return fmt.Sprintf("account with national ID %s already exists", e.NationalID)
}

// ErrAccountNotEmpty is returned when deleting an account that still holds funds.
type ErrAccountNotEmpty struct {
	ID      int64           `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

func (e ErrAccountNotEmpty) Error() string {
	return "cannot delete account with positive balance"
}

// ErrStorage wraps failures of the underlying store. Its details are never
// surfaced to clients.
type ErrStorage struct {
	Op  string
	Err error
}

func (e ErrStorage) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e ErrStorage) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return ErrStorage{Op: op, Err: err}
}

// isRejection reports whether err is a domain rejection, i.e. the request was
// refused without anything going wrong on our side.
func isRejection(err error) bool {
	return errors.As(err, &ErrBadRequest{}) ||
		errors.As(err, &ErrNotFound{}) ||
		errors.As(err, &ErrInsufficientFunds{}) ||
		errors.As(err, &ErrDuplicateAccount{}) ||
		errors.As(err, &ErrAccountNotEmpty{})
}
