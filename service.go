package bankadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultIssuer = "Bank Administration"

type RegisterReq struct {
	NationalID    string          `json:"national_id"`
	Name          string          `json:"name"`
	InitialAmount decimal.Decimal `json:"initial_amount"`
}

type EditReq struct {
	AcctID     snowflake.ID    `json:"-"`
	NationalID string          `json:"national_id"`
	Name       string          `json:"name"`
	// Balance is required; a missing value is rejected, never read as zero.
	Balance decimal.NullDecimal `json:"balance"`
}

type DeleteReq struct {
	AcctID snowflake.ID
}

type OperationKind string

const (
	OpCredit   OperationKind = "credit"
	OpDebit    OperationKind = "debit"
	OpTransfer OperationKind = "transfer"
)

type OperationReq struct {
	Kind   OperationKind   `json:"kind"`
	AcctID snowflake.ID    `json:"-"`
	Amount decimal.Decimal `json:"amount"`
	DestID snowflake.ID    `json:"destination"`
}

type OperationResult struct {
	Kind         OperationKind    `json:"kind"`
	Balance      decimal.Decimal  `json:"balance"`
	DestBalance  *decimal.Decimal `json:"destination_balance,omitempty"`
	Transactions []Transaction    `json:"transactions"`
}

type ProfitReq struct {
	TotalProfit decimal.Decimal `json:"total_profit"`
	Percentage  decimal.Decimal `json:"percentage"`
}

type ProfitResult struct {
	Distributable        decimal.Decimal `json:"distributable"`
	Distributed          decimal.Decimal `json:"distributed"`
	TotalPositiveBalance decimal.Decimal `json:"total_positive_balance"`
	Recipients           int             `json:"recipients"`
	Transactions         []Transaction   `json:"transactions"`
}

type AccountReq struct {
	AcctID snowflake.ID
}

type AccountsOverview struct {
	Accounts      []Account       `json:"accounts"`
	TotalAccounts int             `json:"total_accounts"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

type TransactionsReq struct {
	AcctID snowflake.ID
	Limit  int
}

type StatementReq struct {
	AcctID snowflake.ID
	Format StatementFormat
}

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks . Service
type Service interface {
	Register(context.Context, RegisterReq) (*Account, error)
	EditAccount(context.Context, EditReq) (*Account, error)
	DeleteAccount(context.Context, DeleteReq) error
	Operate(context.Context, OperationReq) (*OperationResult, error)
	DistributeProfit(context.Context, ProfitReq) (*ProfitResult, error)
	Account(context.Context, AccountReq) (*Account, error)
	Accounts(context.Context) (*AccountsOverview, error)
	Transactions(context.Context, TransactionsReq) ([]Transaction, error)
	Statement(context.Context, StatementReq) (*Statement, error)
}

type ServiceOption func(*serviceImpl)

// WithClock replaces the wall clock used to stamp transactions.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *serviceImpl) {
		s.now = now
	}
}

// WithIssuer sets the institution name printed on statements.
func WithIssuer(name string) ServiceOption {
	return func(s *serviceImpl) {
		if name != "" {
			s.issuer = name
		}
	}
}

func NewService(repo Repository, node *snowflake.Node, log *zerolog.Logger, opts ...ServiceOption) *serviceImpl {
	svc := &serviceImpl{
		repo:   repo,
		node:   node,
		log:    log,
		now:    time.Now,
		issuer: defaultIssuer,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

var (
	_ Service = (*serviceImpl)(nil)
)

type serviceImpl struct {
	repo   Repository
	node   *snowflake.Node
	log    *zerolog.Logger
	now    func() time.Time
	issuer string
}

func (s *serviceImpl) Register(ctx context.Context, req RegisterReq) (*Account, error) {
	if req.InitialAmount.IsNegative() {
		return nil, ErrBadRequest{Fields: map[string]string{"initial_amount": "cannot be negative"}}
	}

	now := s.now().UTC()
	acct := Account{
		AcctID:     s.node.Generate(),
		NationalID: strings.TrimSpace(req.NationalID),
		Name:       strings.TrimSpace(req.Name),
		Balance:    req.InitialAmount.Round(moneyPlaces),
		CreatedAt:  now,
	}

	err := s.repo.Atomic(ctx, func(r Repository) error {
		if _, err := r.GetAccountByNationalID(ctx, acct.NationalID); err == nil {
			return ErrDuplicateAccount{NationalID: acct.NationalID}
		} else if !isNotFound(err) {
			return err
		}
		if err := r.CreateAccount(ctx, acct); err != nil {
			return err
		}
		if !acct.Balance.IsPositive() {
			return nil
		}
		return r.InsertTransactions(ctx, []Transaction{{
			TxnID:       s.node.Generate(),
			AcctID:      acct.AcctID,
			Kind:        KindCredit,
			Amount:      acct.Balance,
			Timestamp:   now,
			Description: "Initial deposit",
		}})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("method", "register").
		Str("acctID", acct.AcctID.String()).
		Str("balance", acct.Balance.StringFixed(2)).
		Msg("account registered")
	return &acct, nil
}

func (s *serviceImpl) EditAccount(ctx context.Context, req EditReq) (*Account, error) {
	if !req.Balance.Valid {
		return nil, ErrBadRequest{Fields: map[string]string{"balance": "required"}}
	}
	if req.Balance.Decimal.IsNegative() {
		return nil, ErrBadRequest{Fields: map[string]string{"balance": "cannot be negative"}}
	}
	if !fitsMoney(req.Balance.Decimal) {
		return nil, ErrBadRequest{Fields: map[string]string{"balance": "at most 13 integer digits"}}
	}

	var updated Account
	err := s.repo.Atomic(ctx, func(r Repository) error {
		acct, err := r.GetAccount(ctx, req.AcctID)
		if err != nil {
			return err
		}

		nationalID := strings.TrimSpace(req.NationalID)
		if nationalID != acct.NationalID {
			if _, err = r.GetAccountByNationalID(ctx, nationalID); err == nil {
				return ErrDuplicateAccount{NationalID: nationalID}
			} else if !isNotFound(err) {
				return err
			}
		}

		balance := req.Balance.Decimal.Round(moneyPlaces)
		if delta := balance.Sub(acct.Balance); !delta.IsZero() {
			kind := KindCredit
			if delta.IsNegative() {
				kind = KindDebit
			}
			err = r.InsertTransactions(ctx, []Transaction{{
				TxnID:       s.node.Generate(),
				AcctID:      acct.AcctID,
				Kind:        kind,
				Amount:      delta.Abs(),
				Timestamp:   s.now().UTC(),
				Description: "Balance adjustment during account edit",
			}})
			if err != nil {
				return err
			}
		}

		updated = *acct
		updated.NationalID = nationalID
		updated.Name = strings.TrimSpace(req.Name)
		updated.Balance = balance
		return r.UpdateAccount(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("method", "editAccount").
		Str("acctID", updated.AcctID.String()).
		Msg("account updated")
	return &updated, nil
}

func (s *serviceImpl) DeleteAccount(ctx context.Context, req DeleteReq) error {
	err := s.repo.Atomic(ctx, func(r Repository) error {
		acct, err := r.GetAccount(ctx, req.AcctID)
		if err != nil {
			return err
		}
		if acct.Balance.IsPositive() {
			return ErrAccountNotEmpty{ID: acct.AcctID.Int64(), Balance: acct.Balance}
		}
		return r.DeleteAccount(ctx, acct.AcctID)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("method", "deleteAccount").
		Str("acctID", req.AcctID.String()).
		Msg("account deleted")
	return nil
}

func (s *serviceImpl) Operate(ctx context.Context, req OperationReq) (*OperationResult, error) {
	var (
		res *OperationResult
		err error
	)
	if !req.Amount.IsPositive() {
		return nil, ErrBadRequest{Fields: map[string]string{"amount": "must be positive"}}
	}
	switch req.Kind {
	case OpCredit:
		res, err = s.credit(ctx, req)
	case OpDebit:
		res, err = s.debit(ctx, req)
	case OpTransfer:
		res, err = s.transfer(ctx, req)
	default:
		return nil, ErrBadRequest{Fields: map[string]string{"kind": "must be one of credit, debit, transfer"}}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("method", "operate").
		Str("kind", string(req.Kind)).
		Str("acctID", req.AcctID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("operation applied")
	return res, nil
}

func (s *serviceImpl) credit(ctx context.Context, req OperationReq) (*OperationResult, error) {
	amount := req.Amount.Round(moneyPlaces)
	res := &OperationResult{Kind: OpCredit}
	err := s.repo.Atomic(ctx, func(r Repository) error {
		acct, err := r.GetAccount(ctx, req.AcctID)
		if err != nil {
			return err
		}
		acct.Balance = acct.Balance.Add(amount)
		if !fitsMoney(acct.Balance) {
			return ErrBadRequest{Fields: map[string]string{"amount": "resulting balance exceeds the storable maximum"}}
		}
		txn := Transaction{
			TxnID:       s.node.Generate(),
			AcctID:      acct.AcctID,
			Kind:        KindCredit,
			Amount:      amount,
			Timestamp:   s.now().UTC(),
			Description: fmt.Sprintf("Credit operation of %s", amount.StringFixed(2)),
		}
		if err = r.UpdateAccount(ctx, *acct); err != nil {
			return err
		}
		if err = r.InsertTransactions(ctx, []Transaction{txn}); err != nil {
			return err
		}
		res.Balance = acct.Balance
		res.Transactions = []Transaction{txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *serviceImpl) debit(ctx context.Context, req OperationReq) (*OperationResult, error) {
	amount := req.Amount.Round(moneyPlaces)
	res := &OperationResult{Kind: OpDebit}
	err := s.repo.Atomic(ctx, func(r Repository) error {
		acct, err := r.GetAccount(ctx, req.AcctID)
		if err != nil {
			return err
		}
		if acct.Balance.LessThan(amount) {
			return ErrInsufficientFunds{ID: acct.AcctID.Int64(), Balance: acct.Balance, Amount: amount}
		}
		acct.Balance = acct.Balance.Sub(amount)
		txn := Transaction{
			TxnID:       s.node.Generate(),
			AcctID:      acct.AcctID,
			Kind:        KindDebit,
			Amount:      amount,
			Timestamp:   s.now().UTC(),
			Description: fmt.Sprintf("Debit operation of %s", amount.StringFixed(2)),
		}
		if err = r.UpdateAccount(ctx, *acct); err != nil {
			return err
		}
		if err = r.InsertTransactions(ctx, []Transaction{txn}); err != nil {
			return err
		}
		res.Balance = acct.Balance
		res.Transactions = []Transaction{txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *serviceImpl) transfer(ctx context.Context, req OperationReq) (*OperationResult, error) {
	if req.DestID == 0 {
		return nil, ErrBadRequest{Fields: map[string]string{"destination": "required for transfer"}}
	}
	if req.DestID == req.AcctID {
		return nil, ErrBadRequest{Fields: map[string]string{"destination": "cannot transfer to the same account"}}
	}

	amount := req.Amount.Round(moneyPlaces)
	res := &OperationResult{Kind: OpTransfer}
	err := s.repo.Atomic(ctx, func(r Repository) error {
		src, err := r.GetAccount(ctx, req.AcctID)
		if err != nil {
			return err
		}
		dst, err := r.GetAccount(ctx, req.DestID)
		if err != nil {
			return err
		}
		if src.Balance.LessThan(amount) {
			return ErrInsufficientFunds{ID: src.AcctID.Int64(), Balance: src.Balance, Amount: amount}
		}

		src.Balance = src.Balance.Sub(amount)
		dst.Balance = dst.Balance.Add(amount)
		if !fitsMoney(dst.Balance) {
			return ErrBadRequest{Fields: map[string]string{"amount": "destination balance would exceed the storable maximum"}}
		}
		now := s.now().UTC()
		srcID, dstID := src.AcctID, dst.AcctID
		pair := []Transaction{
			{
				TxnID:         s.node.Generate(),
				AcctID:        srcID,
				Kind:          KindTransferOut,
				Amount:        amount,
				Timestamp:     now,
				Description:   fmt.Sprintf("Transfer out of %s to %s (%s)", amount.StringFixed(2), dst.Name, dst.NationalID),
				CounterpartID: &dstID,
			},
			{
				TxnID:         s.node.Generate(),
				AcctID:        dstID,
				Kind:          KindTransferIn,
				Amount:        amount,
				Timestamp:     now,
				Description:   fmt.Sprintf("Transfer in of %s from %s (%s)", amount.StringFixed(2), src.Name, src.NationalID),
				CounterpartID: &srcID,
			},
		}

		if err = r.UpdateAccount(ctx, *src); err != nil {
			return err
		}
		if err = r.UpdateAccount(ctx, *dst); err != nil {
			return err
		}
		if err = r.InsertTransactions(ctx, pair); err != nil {
			return err
		}
		res.Balance = src.Balance
		res.DestBalance = &dst.Balance
		res.Transactions = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *serviceImpl) DistributeProfit(ctx context.Context, req ProfitReq) (*ProfitResult, error) {
	if !req.TotalProfit.IsPositive() {
		return nil, ErrBadRequest{Fields: map[string]string{"total_profit": "must be positive"}}
	}
	if !req.Percentage.IsPositive() || req.Percentage.GreaterThan(hundred) {
		return nil, ErrBadRequest{Fields: map[string]string{"percentage": "must be greater than 0 and at most 100"}}
	}

	res := &ProfitResult{Distributable: Distributable(req.TotalProfit, req.Percentage)}
	if !res.Distributable.IsPositive() {
		return nil, ErrBadRequest{Fields: map[string]string{"percentage": "distributable amount is less than one cent"}}
	}
	err := s.repo.Atomic(ctx, func(r Repository) error {
		accts, err := r.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if len(accts) == 0 {
			return ErrBadRequest{Fields: map[string]string{"accounts": "no accounts registered to distribute profit to"}}
		}
		res.TotalPositiveBalance = PositiveTotal(accts)
		if !res.TotalPositiveBalance.IsPositive() {
			return ErrBadRequest{Fields: map[string]string{"accounts": "total positive balance is zero"}}
		}

		shares, distributed := ProRata(accts, res.Distributable)
		byID := make(map[snowflake.ID]Account, len(accts))
		for _, a := range accts {
			byID[a.AcctID] = a
		}

		now := s.now().UTC()
		txns := make([]Transaction, 0, len(shares))
		for _, sh := range shares {
			acct := byID[sh.AcctID]
			acct.Balance = acct.Balance.Add(sh.Amount)
			if !fitsMoney(acct.Balance) {
				return ErrBadRequest{Fields: map[string]string{"total_profit": "a share would exceed the storable maximum balance"}}
			}
			if err = r.UpdateAccount(ctx, acct); err != nil {
				return err
			}
			txns = append(txns, Transaction{
				TxnID:     s.node.Generate(),
				AcctID:    acct.AcctID,
				Kind:      KindProfit,
				Amount:    sh.Amount,
				Timestamp: now,
				Description: fmt.Sprintf("Profit share (%s%%) from %s%% of total profit %s",
					sh.Basis.StringFixed(2), req.Percentage.String(), req.TotalProfit.StringFixed(2)),
			})
		}
		if err = r.InsertTransactions(ctx, txns); err != nil {
			return err
		}

		res.Distributed = distributed
		res.Recipients = len(shares)
		res.Transactions = txns
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("method", "distributeProfit").
		Str("distributed", res.Distributed.StringFixed(2)).
		Int("recipients", res.Recipients).
		Msg("profit distributed")
	return res, nil
}

func (s *serviceImpl) Account(ctx context.Context, req AccountReq) (*Account, error) {
	return s.repo.GetAccount(ctx, req.AcctID)
}

func (s *serviceImpl) Accounts(ctx context.Context) (*AccountsOverview, error) {
	accts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, a := range accts {
		total = total.Add(a.Balance)
	}
	return &AccountsOverview{
		Accounts:      accts,
		TotalAccounts: len(accts),
		TotalBalance:  total,
	}, nil
}

func (s *serviceImpl) Transactions(ctx context.Context, req TransactionsReq) ([]Transaction, error) {
	if req.AcctID != 0 {
		if _, err := s.repo.GetAccount(ctx, req.AcctID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListTransactions(ctx, TxnFilter{AcctID: req.AcctID, Limit: req.Limit})
}

func (s *serviceImpl) Statement(ctx context.Context, req StatementReq) (*Statement, error) {
	acct, err := s.repo.GetAccount(ctx, req.AcctID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactions(ctx, TxnFilter{AcctID: req.AcctID})
	if err != nil {
		return nil, err
	}
	format := req.Format
	if format == "" {
		format = FormatPDF
	}
	return &Statement{
		Issuer:       s.issuer,
		Account:      *acct,
		Transactions: txns,
		GeneratedAt:  s.now().UTC(),
		Format:       format,
	}, nil
}

func isNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
