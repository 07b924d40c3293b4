package bankadmin

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
)

// TxnFilter narrows ListTransactions. A zero AcctID lists every account and a
// zero Limit means no limit. Results are always newest first.
type TxnFilter struct {
	AcctID snowflake.ID
	Limit  int
}

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . Repository
type Repository interface {
	// Atomic runs fn against a repository bound to a single storage
	// transaction. Any error returned by fn rolls back every write made through
	// it. Calling Atomic on an already bound repository joins that transaction.
	Atomic(ctx context.Context, fn func(Repository) error) error

	CreateAccount(ctx context.Context, acct Account) error
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	GetAccountByNationalID(ctx context.Context, nationalID string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateAccount(ctx context.Context, acct Account) error
	DeleteAccount(ctx context.Context, id snowflake.ID) error

	InsertTransactions(ctx context.Context, txns []Transaction) error
	ListTransactions(ctx context.Context, filter TxnFilter) ([]Transaction, error)

	CreateAdmin(ctx context.Context, admin Admin) error
	GetAdmin(ctx context.Context, username string) (*Admin, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// OpenRepository connects the backend named by cfg.Database.Driver, applying
// Postgres migrations first when cfg.Database.Migrate is set. The returned
// func releases the connection.
func OpenRepository(cfg *Config, log *zerolog.Logger) (Repository, func(), error) {
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Migrate {
			if err := MigrateUp(cfg.Database.ConnectionString); err != nil {
				return nil, nil, err
			}
		}
		pgendpt, err := NewPostgresEndpoint(cfg.Database.ConnectionString, log)
		if err != nil {
			return nil, nil, err
		}
		return pgendpt, pgendpt.Close, nil
	default:
		store, err := NewSQLiteStore(cfg.Database.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Err(err).Msg("error closing database")
			}
		}, nil
	}
}
