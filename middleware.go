package bankadmin

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

// Chain wraps svc so that the first middleware is the outermost.
func Chain(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

const (
	maxNationalIDLen = 15
	maxNameLen       = 100
)

var (
	_ Service = (*validationMiddleware)(nil)
)

// validationMiddleware rejects malformed input before it reaches the ledger.
// Checks that need stored state (existence, balances, duplicates) stay in the
// service where they run inside the request's storage transaction.
type validationMiddleware struct {
	next Service
}

func NewValidationMiddleware() Middleware {
	return func(svc Service) Service {
		return &validationMiddleware{
			next: svc,
		}
	}
}

type fieldErrs map[string]string

func (f fieldErrs) check(ok bool, field, msg string) {
	if !ok {
		if _, exists := f[field]; !exists {
			f[field] = msg
		}
	}
}

func (f fieldErrs) err() error {
	if len(f) == 0 {
		return nil
	}
	return ErrBadRequest{Fields: f}
}

func (f fieldErrs) holder(nationalID, name string) {
	nationalID = strings.TrimSpace(nationalID)
	name = strings.TrimSpace(name)
	f.check(nationalID != "", "national_id", "required")
	f.check(utf8.RuneCountInString(nationalID) <= maxNationalIDLen, "national_id", "at most 15 characters")
	f.check(name != "", "name", "required")
	f.check(utf8.RuneCountInString(name) <= maxNameLen, "name", "at most 100 characters")
}

func (f fieldErrs) money(d decimal.Decimal, field string, allowZero bool) {
	if allowZero {
		f.check(!d.IsNegative(), field, "cannot be negative")
	} else {
		f.check(d.IsPositive(), field, "must be positive")
	}
	f.check(hasMoneyPrecision(d), field, "at most 2 decimal places")
	f.check(fitsMoney(d), field, "at most 13 integer digits")
}

func (v *validationMiddleware) Register(ctx context.Context, req RegisterReq) (*Account, error) {
	errs := fieldErrs{}
	errs.holder(req.NationalID, req.Name)
	errs.money(req.InitialAmount, "initial_amount", true)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return v.next.Register(ctx, req)
}

func (v *validationMiddleware) EditAccount(ctx context.Context, req EditReq) (*Account, error) {
	errs := fieldErrs{}
	errs.check(req.AcctID != 0, "acctID", "required")
	errs.holder(req.NationalID, req.Name)
	errs.check(req.Balance.Valid, "balance", "required")
	if req.Balance.Valid {
		errs.money(req.Balance.Decimal, "balance", true)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	return v.next.EditAccount(ctx, req)
}

func (v *validationMiddleware) DeleteAccount(ctx context.Context, req DeleteReq) error {
	if req.AcctID == 0 {
		return ErrBadRequest{Fields: map[string]string{"acctID": "required"}}
	}
	return v.next.DeleteAccount(ctx, req)
}

func (v *validationMiddleware) Operate(ctx context.Context, req OperationReq) (*OperationResult, error) {
	errs := fieldErrs{}
	errs.check(req.AcctID != 0, "acctID", "required")
	switch req.Kind {
	case OpCredit, OpDebit:
	case OpTransfer:
		errs.check(req.DestID != 0, "destination", "required for transfer")
		errs.check(req.DestID != req.AcctID, "destination", "cannot transfer to the same account")
	default:
		errs.check(false, "kind", "must be one of credit, debit, transfer")
	}
	errs.money(req.Amount, "amount", false)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return v.next.Operate(ctx, req)
}

func (v *validationMiddleware) DistributeProfit(ctx context.Context, req ProfitReq) (*ProfitResult, error) {
	errs := fieldErrs{}
	errs.money(req.TotalProfit, "total_profit", false)
	errs.check(req.Percentage.IsPositive() && req.Percentage.LessThanOrEqual(hundred),
		"percentage", "must be greater than 0 and at most 100")
	errs.check(hasPrecision(req.Percentage, maxPercentagePlaces), "percentage", "at most 4 decimal places")
	if err := errs.err(); err != nil {
		return nil, err
	}
	return v.next.DistributeProfit(ctx, req)
}

func (v *validationMiddleware) Account(ctx context.Context, req AccountReq) (*Account, error) {
	if req.AcctID == 0 {
		return nil, ErrBadRequest{Fields: map[string]string{"acctID": "required"}}
	}
	return v.next.Account(ctx, req)
}

func (v *validationMiddleware) Accounts(ctx context.Context) (*AccountsOverview, error) {
	return v.next.Accounts(ctx)
}

func (v *validationMiddleware) Transactions(ctx context.Context, req TransactionsReq) ([]Transaction, error) {
	if req.Limit < 0 {
		return nil, ErrBadRequest{Fields: map[string]string{"limit": "cannot be negative"}}
	}
	return v.next.Transactions(ctx, req)
}

func (v *validationMiddleware) Statement(ctx context.Context, req StatementReq) (*Statement, error) {
	errs := fieldErrs{}
	errs.check(req.AcctID != 0, "acctID", "required")
	errs.check(req.Format == "" || req.Format.Valid(), "format", "must be pdf or xlsx")
	if err := errs.err(); err != nil {
		return nil, err
	}
	return v.next.Statement(ctx, req)
}

//
// Rate limiting middlewares
//

// limitMiddleware limits the number of in-flight requests to the service by using
// weighted semaphores with an acquisition timeout, one per operation group.
// Limits are static, so servers on heterogeneous machines need tuning by hand;
// it is load shedding, not admission control.
type limitMiddleware struct {
	next   Service
	limits *ServiceLimits
}

var (
	_ Service = (*limitMiddleware)(nil)
)

type ServiceLimits struct {
	Mutation     *semaphore.Weighted
	Distribution *semaphore.Weighted
	Read         *semaphore.Weighted
	Statement    *semaphore.Weighted
	// AcquireTimeout bounds how long a call waits for a slot.
	AcquireTimeout time.Duration
}

func NewServiceLimits(mutation, distribution, read, statement int64, timeout time.Duration) *ServiceLimits {
	return &ServiceLimits{
		Mutation:       semaphore.NewWeighted(mutation),
		Distribution:   semaphore.NewWeighted(distribution),
		Read:           semaphore.NewWeighted(read),
		Statement:      semaphore.NewWeighted(statement),
		AcquireTimeout: timeout,
	}
}

func NewLimitMiddleware(limits *ServiceLimits) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:   next,
			limits: limits,
		}
	}
}

func (l *limitMiddleware) acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	actx := ctx
	if l.limits.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.limits.AcquireTimeout)
		defer cancel()
	}
	if err := sem.Acquire(actx, 1); err != nil {
		return nil, ErrServiceUnavailable
	}
	return func() { sem.Release(1) }, nil
}

func limited[T any](l *limitMiddleware, ctx context.Context, sem *semaphore.Weighted, fn func() (T, error)) (T, error) {
	release, err := l.acquire(ctx, sem)
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return fn()
}

func (l *limitMiddleware) Register(ctx context.Context, req RegisterReq) (*Account, error) {
	return limited(l, ctx, l.limits.Mutation, func() (*Account, error) {
		return l.next.Register(ctx, req)
	})
}

func (l *limitMiddleware) EditAccount(ctx context.Context, req EditReq) (*Account, error) {
	return limited(l, ctx, l.limits.Mutation, func() (*Account, error) {
		return l.next.EditAccount(ctx, req)
	})
}

func (l *limitMiddleware) DeleteAccount(ctx context.Context, req DeleteReq) error {
	_, err := limited(l, ctx, l.limits.Mutation, func() (struct{}, error) {
		return struct{}{}, l.next.DeleteAccount(ctx, req)
	})
	return err
}

func (l *limitMiddleware) Operate(ctx context.Context, req OperationReq) (*OperationResult, error) {
	return limited(l, ctx, l.limits.Mutation, func() (*OperationResult, error) {
		return l.next.Operate(ctx, req)
	})
}

func (l *limitMiddleware) DistributeProfit(ctx context.Context, req ProfitReq) (*ProfitResult, error) {
	return limited(l, ctx, l.limits.Distribution, func() (*ProfitResult, error) {
		return l.next.DistributeProfit(ctx, req)
	})
}

func (l *limitMiddleware) Account(ctx context.Context, req AccountReq) (*Account, error) {
	return limited(l, ctx, l.limits.Read, func() (*Account, error) {
		return l.next.Account(ctx, req)
	})
}

func (l *limitMiddleware) Accounts(ctx context.Context) (*AccountsOverview, error) {
	return limited(l, ctx, l.limits.Read, func() (*AccountsOverview, error) {
		return l.next.Accounts(ctx)
	})
}

func (l *limitMiddleware) Transactions(ctx context.Context, req TransactionsReq) ([]Transaction, error) {
	return limited(l, ctx, l.limits.Read, func() ([]Transaction, error) {
		return l.next.Transactions(ctx, req)
	})
}

func (l *limitMiddleware) Statement(ctx context.Context, req StatementReq) (*Statement, error) {
	return limited(l, ctx, l.limits.Statement, func() (*Statement, error) {
		return l.next.Statement(ctx, req)
	})
}

type ServiceBreaker struct {
	Register         *gobreaker.TwoStepCircuitBreaker[*Account]
	EditAccount      *gobreaker.TwoStepCircuitBreaker[*Account]
	DeleteAccount    *gobreaker.TwoStepCircuitBreaker[struct{}]
	Operate          *gobreaker.TwoStepCircuitBreaker[*OperationResult]
	DistributeProfit *gobreaker.TwoStepCircuitBreaker[*ProfitResult]
	Account          *gobreaker.TwoStepCircuitBreaker[*Account]
	Accounts         *gobreaker.TwoStepCircuitBreaker[*AccountsOverview]
	Transactions     *gobreaker.TwoStepCircuitBreaker[[]Transaction]
	Statement        *gobreaker.TwoStepCircuitBreaker[*Statement]
}

// NewServiceBreaker builds one breaker per operation from a shared template;
// each breaker is named after its operation.
func NewServiceBreaker(st gobreaker.Settings) *ServiceBreaker {
	named := func(name string) gobreaker.Settings {
		s := st
		s.Name = name
		return s
	}
	return &ServiceBreaker{
		Register:         gobreaker.NewTwoStepCircuitBreaker[*Account](named("register")),
		EditAccount:      gobreaker.NewTwoStepCircuitBreaker[*Account](named("editAccount")),
		DeleteAccount:    gobreaker.NewTwoStepCircuitBreaker[struct{}](named("deleteAccount")),
		Operate:          gobreaker.NewTwoStepCircuitBreaker[*OperationResult](named("operate")),
		DistributeProfit: gobreaker.NewTwoStepCircuitBreaker[*ProfitResult](named("distributeProfit")),
		Account:          gobreaker.NewTwoStepCircuitBreaker[*Account](named("account")),
		Accounts:         gobreaker.NewTwoStepCircuitBreaker[*AccountsOverview](named("accounts")),
		Transactions:     gobreaker.NewTwoStepCircuitBreaker[[]Transaction](named("transactions")),
		Statement:        gobreaker.NewTwoStepCircuitBreaker[*Statement](named("statement")),
	}
}

// circuitBreakMiddleware is a middleware that implements the circuit breaker pattern.
// It works in conjunction with limitMiddleware: when the store keeps failing, or
// slots cannot be acquired within the deadline, the circuit opens and calls are
// refused outright until the breaker's timeout admits a trial request. Domain
// rejections such as insufficient funds count as successes.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func guarded[T any](b *gobreaker.TwoStepCircuitBreaker[T], fn func() (T, error)) (T, error) {
	done, err := b.Allow()
	if err != nil {
		var zero T
		return zero, ErrServiceUnavailable
	}
	res, err := fn()
	done(err == nil || isRejection(err))
	return res, err
}

func (c *circuitBreakMiddleware) Register(ctx context.Context, req RegisterReq) (*Account, error) {
	return guarded(c.brkrs.Register, func() (*Account, error) {
		return c.next.Register(ctx, req)
	})
}

func (c *circuitBreakMiddleware) EditAccount(ctx context.Context, req EditReq) (*Account, error) {
	return guarded(c.brkrs.EditAccount, func() (*Account, error) {
		return c.next.EditAccount(ctx, req)
	})
}

func (c *circuitBreakMiddleware) DeleteAccount(ctx context.Context, req DeleteReq) error {
	_, err := guarded(c.brkrs.DeleteAccount, func() (struct{}, error) {
		return struct{}{}, c.next.DeleteAccount(ctx, req)
	})
	return err
}

func (c *circuitBreakMiddleware) Operate(ctx context.Context, req OperationReq) (*OperationResult, error) {
	return guarded(c.brkrs.Operate, func() (*OperationResult, error) {
		return c.next.Operate(ctx, req)
	})
}

func (c *circuitBreakMiddleware) DistributeProfit(ctx context.Context, req ProfitReq) (*ProfitResult, error) {
	return guarded(c.brkrs.DistributeProfit, func() (*ProfitResult, error) {
		return c.next.DistributeProfit(ctx, req)
	})
}

func (c *circuitBreakMiddleware) Account(ctx context.Context, req AccountReq) (*Account, error) {
	return guarded(c.brkrs.Account, func() (*Account, error) {
		return c.next.Account(ctx, req)
	})
}

func (c *circuitBreakMiddleware) Accounts(ctx context.Context) (*AccountsOverview, error) {
	return guarded(c.brkrs.Accounts, func() (*AccountsOverview, error) {
		return c.next.Accounts(ctx)
	})
}

func (c *circuitBreakMiddleware) Transactions(ctx context.Context, req TransactionsReq) ([]Transaction, error) {
	return guarded(c.brkrs.Transactions, func() ([]Transaction, error) {
		return c.next.Transactions(ctx, req)
	})
}

func (c *circuitBreakMiddleware) Statement(ctx context.Context, req StatementReq) (*Statement, error) {
	return guarded(c.brkrs.Statement, func() (*Statement, error) {
		return c.next.Statement(ctx, req)
	})
}
