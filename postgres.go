package bankadmin

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pgUniqueViolation = "23505"

var (
	pgInsertAcctSQL = `
		INSERT INTO accounts (pub_id, national_id, name, balance, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`

	pgSelectAcctSQL = `
		SELECT pub_id, national_id, name, balance, created_at
		FROM accounts
		WHERE pub_id = $1;
	`

	pgSelectAcctByNationalIDSQL = `
		SELECT pub_id, national_id, name, balance, created_at
		FROM accounts
		WHERE national_id = $1;
	`

	pgListAcctsSQL = `
		SELECT pub_id, national_id, name, balance, created_at
		FROM accounts
		ORDER BY name, pub_id;
	`

	pgUpdateAcctSQL = `
		UPDATE accounts
		SET national_id = $1, name = $2, balance = $3
		WHERE pub_id = $4;
	`

	pgDeleteAcctTxnsSQL = `
		DELETE FROM transactions
		WHERE acct_id = $1;
	`

	pgUnlinkCounterpartSQL = `
		UPDATE transactions
		SET counterpart_id = NULL
		WHERE counterpart_id = $1;
	`

	pgDeleteAcctSQL = `
		DELETE FROM accounts
		WHERE pub_id = $1;
	`

	pgInsertTxnSQL = `
		INSERT INTO transactions (pub_id, acct_id, typ, amount, ts, description, counterpart_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	pgSelectTxnsSQL = `
		SELECT pub_id, acct_id, typ, amount, ts, description, counterpart_id
		FROM transactions
	`

	pgInsertAdminSQL = `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2);
	`

	pgSelectAdminSQL = `
		SELECT id, username, password_hash
		FROM admins
		WHERE username = $1;
	`

	pgCountAdminsSQL = `SELECT count(*) FROM admins;`
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PostgresEndpoint struct {
	pool *pgxpool.Pool
	q    pgQuerier
	inTx bool
	log  *zerolog.Logger
}

var (
	_ Repository = (*PostgresEndpoint)(nil)
)

func NewPostgresEndpoint(connStr string, log *zerolog.Logger) (*PostgresEndpoint, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	endpt := &PostgresEndpoint{
		pool: pool,
		q:    pool,
		log:  log,
	}
	return endpt, err
}

func (pg *PostgresEndpoint) Close() {
	pg.pool.Close()
}

func (pg *PostgresEndpoint) Atomic(ctx context.Context, fn func(Repository) error) error {
	if pg.inTx {
		return fn(pg)
	}

	tx, err := pg.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() {
		if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			pg.log.Err(rerr).Msg("transaction rollback fail")
		}
	}()

	bound := &PostgresEndpoint{
		pool: pg.pool,
		q:    tx,
		inTx: true,
		log:  pg.log,
	}
	if err = fn(bound); err != nil {
		return err
	}

	return storageErr("commit transaction", tx.Commit(ctx))
}

func (pg *PostgresEndpoint) CreateAccount(ctx context.Context, acct Account) error {
	_, err := pg.q.Exec(ctx, pgInsertAcctSQL,
		acct.AcctID.Int64(), acct.NationalID, acct.Name, acct.Balance, acct.CreatedAt)
	if isPgUniqueViolation(err) {
		return ErrDuplicateAccount{NationalID: acct.NationalID}
	}
	return storageErr("insert account", err)
}

func (pg *PostgresEndpoint) GetAccount(ctx context.Context, id snowflake.ID) (*Account, error) {
	acct, err := scanAccount(pg.q.QueryRow(ctx, pgSelectAcctSQL, id.Int64()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound{ID: id.Int64()}
	}
	if err != nil {
		return nil, storageErr("select account", err)
	}
	return acct, nil
}

func (pg *PostgresEndpoint) GetAccountByNationalID(ctx context.Context, nationalID string) (*Account, error) {
	acct, err := scanAccount(pg.q.QueryRow(ctx, pgSelectAcctByNationalIDSQL, nationalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound{}
	}
	if err != nil {
		return nil, storageErr("select account by national ID", err)
	}
	return acct, nil
}

func (pg *PostgresEndpoint) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := pg.q.Query(ctx, pgListAcctsSQL)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	defer rows.Close()

	accts := []Account{}
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr("scan account", err)
		}
		accts = append(accts, *acct)
	}
	return accts, storageErr("list accounts", rows.Err())
}

func (pg *PostgresEndpoint) UpdateAccount(ctx context.Context, acct Account) error {
	tag, err := pg.q.Exec(ctx, pgUpdateAcctSQL,
		acct.NationalID, acct.Name, acct.Balance, acct.AcctID.Int64())
	if isPgUniqueViolation(err) {
		return ErrDuplicateAccount{NationalID: acct.NationalID}
	}
	if err != nil {
		return storageErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{ID: acct.AcctID.Int64()}
	}
	return nil
}

func (pg *PostgresEndpoint) DeleteAccount(ctx context.Context, id snowflake.ID) error {
	batch := &pgx.Batch{}
	batch.Queue(pgDeleteAcctTxnsSQL, id.Int64())
	batch.Queue(pgUnlinkCounterpartSQL, id.Int64())
	batch.Queue(pgDeleteAcctSQL, id.Int64())
	btresults := pg.q.SendBatch(ctx, batch)
	defer btresults.Close()

	var tag pgconn.CommandTag
	for i := 0; i < batch.Len(); i++ {
		var err error
		if tag, err = btresults.Exec(); err != nil {
			return storageErr("delete account", err)
		}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound{ID: id.Int64()}
	}
	return nil
}

func (pg *PostgresEndpoint) InsertTransactions(ctx context.Context, txns []Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range txns {
		var counterpart any
		if t.CounterpartID != nil {
			counterpart = t.CounterpartID.Int64()
		}
		batch.Queue(pgInsertTxnSQL,
			t.TxnID.Int64(), t.AcctID.Int64(), string(t.Kind), t.Amount, t.Timestamp, t.Description, counterpart)
	}
	btresults := pg.q.SendBatch(ctx, batch)
	defer btresults.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := btresults.Exec(); err != nil {
			return storageErr("insert transactions", err)
		}
	}
	return nil
}

func (pg *PostgresEndpoint) ListTransactions(ctx context.Context, filter TxnFilter) ([]Transaction, error) {
	sql := pgSelectTxnsSQL
	args := []any{}
	if filter.AcctID != 0 {
		args = append(args, filter.AcctID.Int64())
		sql += " WHERE acct_id = $1"
	}
	sql += " ORDER BY ts DESC, pub_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := pg.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		var (
			t           Transaction
			id, acctID  int64
			kind        string
			counterpart pgtype.Int8
		)
		if err = rows.Scan(&id, &acctID, &kind, &t.Amount, &t.Timestamp, &t.Description, &counterpart); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		t.TxnID = snowflake.ParseInt64(id)
		t.AcctID = snowflake.ParseInt64(acctID)
		t.Kind = TxnKind(kind)
		t.Timestamp = t.Timestamp.UTC()
		if counterpart.Valid {
			cp := snowflake.ParseInt64(counterpart.Int64)
			t.CounterpartID = &cp
		}
		txns = append(txns, t)
	}
	return txns, storageErr("list transactions", rows.Err())
}

func (pg *PostgresEndpoint) CreateAdmin(ctx context.Context, admin Admin) error {
	_, err := pg.q.Exec(ctx, pgInsertAdminSQL, admin.Username, admin.PasswordHash)
	return storageErr("insert admin", err)
}

func (pg *PostgresEndpoint) GetAdmin(ctx context.Context, username string) (*Admin, error) {
	var admin Admin
	err := pg.q.QueryRow(ctx, pgSelectAdminSQL, username).Scan(&admin.ID, &admin.Username, &admin.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound{}
	}
	if err != nil {
		return nil, storageErr("select admin", err)
	}
	return &admin, nil
}

func (pg *PostgresEndpoint) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := pg.q.QueryRow(ctx, pgCountAdminsSQL).Scan(&n); err != nil {
		return 0, storageErr("count admins", err)
	}
	return n, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acct Account
		id   int64
	)
	if err := row.Scan(&id, &acct.NationalID, &acct.Name, &acct.Balance, &acct.CreatedAt); err != nil {
		return nil, err
	}
	acct.AcctID = snowflake.ParseInt64(id)
	acct.CreatedAt = acct.CreatedAt.UTC()
	return &acct, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
