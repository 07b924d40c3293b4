package bankadmin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/bankadmin"
	"github.com/arhyth/bankadmin/mocks"
)

func TestValidationMWRegister(t *testing.T) {
	t.Run("returns an error on an overlong national ID", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		acct, err := v.Register(context.Background(), bankadmin.RegisterReq{
			NationalID: "1234567890123456",
			Name:       "Too Long",
		})
		as.Nil(acct)
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "national_id")
	})

	t.Run("returns an error on sub-cent amounts", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.Register(context.Background(), bankadmin.RegisterReq{
			NationalID:    "111",
			Name:          "Fraction",
			InitialAmount: decimal.RequireFromString("10.005"),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "initial_amount")
	})

	t.Run("returns an error on a blank name", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.Register(context.Background(), bankadmin.RegisterReq{NationalID: "111", Name: "   "})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "name")
	})

	t.Run("passes valid input through", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)
		req := bankadmin.RegisterReq{
			NationalID:    "111",
			Name:          "Valid",
			InitialAmount: decimal.RequireFromString("10.50"),
		}
		svc.EXPECT().
			Register(gomock.Any(), req).
			Return(&bankadmin.Account{Name: "Valid"}, nil)

		acct, err := v.Register(context.Background(), req)
		as.Nil(err)
		as.Equal("Valid", acct.Name)
	})
}

func TestValidationMWEditAccount(t *testing.T) {
	acctID := snowflake.ParseInt64(7241722241547767808)

	t.Run("returns an error when balance is omitted", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		acct, err := v.EditAccount(context.Background(), bankadmin.EditReq{
			AcctID:     acctID,
			NationalID: "111",
			Name:       "Alice Renamed",
		})
		as.Nil(acct)
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Equal("required", errbr.Fields["balance"])
	})

	t.Run("passes an explicit zero balance through", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)
		req := bankadmin.EditReq{
			AcctID:     acctID,
			NationalID: "111",
			Name:       "Alice",
			Balance:    decimal.NewNullDecimal(decimal.Zero),
		}
		svc.EXPECT().EditAccount(gomock.Any(), req).Return(&bankadmin.Account{Name: "Alice"}, nil)

		_, err := v.EditAccount(context.Background(), req)
		as.Nil(err)
	})

	t.Run("returns an error on a balance wider than the column", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.EditAccount(context.Background(), bankadmin.EditReq{
			AcctID:     acctID,
			NationalID: "111",
			Name:       "Alice",
			Balance:    decimal.NewNullDecimal(decimal.RequireFromString("10000000000000")),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "balance")
	})
}

func TestValidationMWOperate(t *testing.T) {
	acctID := snowflake.ParseInt64(7241722241547767808)

	t.Run("returns an error on an unknown kind", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		res, err := v.Operate(context.Background(), bankadmin.OperationReq{
			Kind:   "refund",
			AcctID: acctID,
			Amount: decimal.NewFromInt(1),
		})
		as.Nil(res)
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "kind")
	})

	t.Run("returns an error on a transfer without destination", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.Operate(context.Background(), bankadmin.OperationReq{
			Kind:   bankadmin.OpTransfer,
			AcctID: acctID,
			Amount: decimal.NewFromInt(1),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "destination")
	})

	t.Run("returns an error on an amount past 13 integer digits", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.Operate(context.Background(), bankadmin.OperationReq{
			Kind:   bankadmin.OpCredit,
			AcctID: acctID,
			Amount: decimal.RequireFromString("1e13"),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Equal("at most 13 integer digits", errbr.Fields["amount"])
	})

	t.Run("returns an error on a negative amount", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		v := bankadmin.NewValidationMiddleware()(svc)

		_, err := v.Operate(context.Background(), bankadmin.OperationReq{
			Kind:   bankadmin.OpDebit,
			AcctID: acctID,
			Amount: decimal.NewFromInt(-5),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "amount")
	})
}

func TestValidationMWDistributeProfit(t *testing.T) {
	as := assert.New(t)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	v := bankadmin.NewValidationMiddleware()(svc)

	for _, pct := range []string{"0", "-1", "100.01", "33.33333"} {
		_, err := v.DistributeProfit(context.Background(), bankadmin.ProfitReq{
			TotalProfit: decimal.NewFromInt(1000),
			Percentage:  decimal.RequireFromString(pct),
		})
		errbr := bankadmin.ErrBadRequest{}
		as.ErrorAs(err, &errbr, "percentage %s", pct)
		as.Contains(errbr.Fields, "percentage")
	}
}

func TestValidationMWStatement(t *testing.T) {
	as := assert.New(t)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	v := bankadmin.NewValidationMiddleware()(svc)

	_, err := v.Statement(context.Background(), bankadmin.StatementReq{
		AcctID: snowflake.ParseInt64(1),
		Format: "docx",
	})
	as.ErrorAs(err, &bankadmin.ErrBadRequest{})
}

func TestLimitMW(t *testing.T) {
	t.Run("sheds calls once the group is saturated", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		limits := bankadmin.NewServiceLimits(1, 1, 1, 1, 20*time.Millisecond)
		l := bankadmin.NewLimitMiddleware(limits)(svc)

		entered := make(chan struct{})
		release := make(chan struct{})
		svc.EXPECT().
			Operate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, bankadmin.OperationReq) (*bankadmin.OperationResult, error) {
				close(entered)
				<-release
				return &bankadmin.OperationResult{}, nil
			}).
			Times(1)

		done := make(chan error)
		go func() {
			_, err := l.Operate(context.Background(), bankadmin.OperationReq{})
			done <- err
		}()
		<-entered

		_, err := l.Register(context.Background(), bankadmin.RegisterReq{})
		as.ErrorIs(err, bankadmin.ErrServiceUnavailable)

		close(release)
		as.Nil(<-done)
	})

	t.Run("groups do not share slots", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		limits := bankadmin.NewServiceLimits(1, 1, 1, 1, 20*time.Millisecond)
		l := bankadmin.NewLimitMiddleware(limits)(svc)

		as.Nil(limits.Mutation.Acquire(context.Background(), 1))
		defer limits.Mutation.Release(1)
		svc.EXPECT().
			Accounts(gomock.Any()).
			Return(&bankadmin.AccountsOverview{}, nil)

		_, err := l.Accounts(context.Background())
		as.Nil(err)
	})
}

func TestCircuitBreakMW(t *testing.T) {
	settings := gobreaker.Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}

	t.Run("opens after consecutive storage failures", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		cb := bankadmin.NewCircuitBreakMiddleware(bankadmin.NewServiceBreaker(settings))(svc)

		storageErr := bankadmin.ErrStorage{Op: "list accounts", Err: errors.New("connection refused")}
		svc.EXPECT().
			Accounts(gomock.Any()).
			Return(nil, storageErr).
			Times(2)

		for i := 0; i < 2; i++ {
			_, err := cb.Accounts(context.Background())
			as.ErrorAs(err, &bankadmin.ErrStorage{})
		}
		_, err := cb.Accounts(context.Background())
		as.ErrorIs(err, bankadmin.ErrServiceUnavailable)
	})

	t.Run("domain rejections do not trip it", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		cb := bankadmin.NewCircuitBreakMiddleware(bankadmin.NewServiceBreaker(settings))(svc)

		svc.EXPECT().
			Operate(gomock.Any(), gomock.Any()).
			Return(nil, bankadmin.ErrInsufficientFunds{}).
			Times(3)

		for i := 0; i < 3; i++ {
			_, err := cb.Operate(context.Background(), bankadmin.OperationReq{})
			as.ErrorAs(err, &bankadmin.ErrInsufficientFunds{})
		}
	})

	t.Run("breakers are per operation", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		svc := mocks.NewMockService(ctrl)
		cb := bankadmin.NewCircuitBreakMiddleware(bankadmin.NewServiceBreaker(settings))(svc)

		svc.EXPECT().
			Transactions(gomock.Any(), gomock.Any()).
			Return(nil, bankadmin.ErrStorage{Err: errors.New("timeout")}).
			Times(2)
		svc.EXPECT().
			Account(gomock.Any(), gomock.Any()).
			Return(&bankadmin.Account{}, nil)

		for i := 0; i < 2; i++ {
			cb.Transactions(context.Background(), bankadmin.TransactionsReq{})
		}
		_, err := cb.Account(context.Background(), bankadmin.AccountReq{AcctID: 1})
		as.Nil(err)
	})
}
