package bankadmin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type SeedAccount struct {
	NationalID    string `yaml:"national_id"`
	Name          string `yaml:"name"`
	InitialAmount string `yaml:"initial_amount"`
}

type SeedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// LoadSeedFile reads a YAML fixture of accounts to register.
func LoadSeedFile(path string) ([]RegisterReq, error) {
	fl, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fl.Close()

	var sf SeedFile
	if err = yaml.NewDecoder(fl).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	reqs := make([]RegisterReq, 0, len(sf.Accounts))
	for i, sa := range sf.Accounts {
		amount := decimal.Zero
		if sa.InitialAmount != "" {
			if amount, err = decimal.NewFromString(sa.InitialAmount); err != nil {
				return nil, fmt.Errorf("seed account %d: initial_amount: %w", i, err)
			}
		}
		reqs = append(reqs, RegisterReq{
			NationalID:    sa.NationalID,
			Name:          sa.Name,
			InitialAmount: amount,
		})
	}
	return reqs, nil
}

// Seed registers reqs through svc. Holders already registered are skipped.
// It returns the number of accounts created.
func Seed(ctx context.Context, svc Service, reqs []RegisterReq, log *zerolog.Logger) (int, error) {
	created := 0
	for _, req := range reqs {
		acct, err := svc.Register(ctx, req)
		if err != nil {
			if errors.As(err, &ErrDuplicateAccount{}) {
				log.Info().
					Str("nationalID", req.NationalID).
					Msg("account already seeded")
				continue
			}
			return created, err
		}
		created++
		log.Info().
			Str("acctID", acct.AcctID.String()).
			Str("name", acct.Name).
			Msg("seeded account")
	}
	return created, nil
}

// LocalHelper prepares a local Postgres database for development and tests.
type LocalHelper struct {
	ConnStr string
	Conn    *pgx.Conn
}

func NewLocalHelper(connStr string) (*LocalHelper, error) {
	conn, err := pgx.Connect(context.Background(), connStr)
	if err != nil {
		return nil, err
	}
	return &LocalHelper{
		ConnStr: connStr,
		Conn:    conn,
	}, nil
}

// InitDB migrates the schema up and returns a teardown that reverts it.
func (lh *LocalHelper) InitDB() (func(), error) {
	if err := MigrateUp(lh.ConnStr); err != nil {
		return nil, err
	}
	return lh.teardownDB(), nil
}

// Truncate empties every table while keeping the schema.
func (lh *LocalHelper) Truncate(ctx context.Context) error {
	_, err := lh.Conn.Exec(ctx, `TRUNCATE transactions, accounts, admins RESTART IDENTITY;`)
	return err
}

func (lh *LocalHelper) teardownDB() func() {
	return func() {
		defer lh.Conn.Close(context.Background())

		if err := MigrateDown(lh.ConnStr); err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup migrate down: %s", err.Error())
		}
	}
}
