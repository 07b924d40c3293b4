package bankadmin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Amounts are stored as text so decimals survive SQLite's numeric affinity
// unchanged.
type sqliteAccount struct {
	PubID      int64           `gorm:"column:pub_id;primaryKey;autoIncrement:false"`
	NationalID string          `gorm:"column:national_id;size:15;uniqueIndex;not null"`
	Name       string          `gorm:"column:name;size:100;not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:text;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null"`
}

func (sqliteAccount) TableName() string { return "accounts" }

type sqliteTransaction struct {
	PubID         int64           `gorm:"column:pub_id;primaryKey;autoIncrement:false"`
	AcctID        int64           `gorm:"column:acct_id;index;not null"`
	Typ           string          `gorm:"column:typ;size:32;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:text;not null"`
	TS            time.Time       `gorm:"column:ts;index;not null"`
	Description   string          `gorm:"column:description;size:255"`
	CounterpartID *int64          `gorm:"column:counterpart_id;index"`
}

func (sqliteTransaction) TableName() string { return "transactions" }

type sqliteAdmin struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	Username     string `gorm:"column:username;size:80;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;size:256;not null"`
}

func (sqliteAdmin) TableName() string { return "admins" }

// SQLiteStore is the single-file backend used for local runs and tests.
type SQLiteStore struct {
	db   *gorm.DB
	inTx bool
	log  *zerolog.Logger
}

var (
	_ Repository = (*SQLiteStore)(nil)
)

func NewSQLiteStore(path string, log *zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent requests
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&sqliteAccount{}, &sqliteTransaction{}, &sqliteAdmin{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Atomic(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&SQLiteStore{db: tx, inTx: true, log: s.log})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return storageErr("commit transaction", err)
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, acct Account) error {
	row := toSQLiteAccount(acct)
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateAccount{NationalID: acct.NationalID}
	}
	return storageErr("insert account", err)
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id snowflake.ID) (*Account, error) {
	var row sqliteAccount
	err := s.db.WithContext(ctx).Where("pub_id = ?", id.Int64()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound{ID: id.Int64()}
	}
	if err != nil {
		return nil, storageErr("select account", err)
	}
	acct := row.toAccount()
	return &acct, nil
}

func (s *SQLiteStore) GetAccountByNationalID(ctx context.Context, nationalID string) (*Account, error) {
	var row sqliteAccount
	err := s.db.WithContext(ctx).Where("national_id = ?", nationalID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound{}
	}
	if err != nil {
		return nil, storageErr("select account by national ID", err)
	}
	acct := row.toAccount()
	return &acct, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]Account, error) {
	var rows []sqliteAccount
	if err := s.db.WithContext(ctx).Order("name, pub_id").Find(&rows).Error; err != nil {
		return nil, storageErr("list accounts", err)
	}
	accts := make([]Account, 0, len(rows))
	for _, r := range rows {
		accts = append(accts, r.toAccount())
	}
	return accts, nil
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, acct Account) error {
	res := s.db.WithContext(ctx).
		Model(&sqliteAccount{}).
		Where("pub_id = ?", acct.AcctID.Int64()).
		Updates(map[string]any{
			"national_id": acct.NationalID,
			"name":        acct.Name,
			"balance":     acct.Balance,
		})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return ErrDuplicateAccount{NationalID: acct.NationalID}
	}
	if res.Error != nil {
		return storageErr("update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound{ID: acct.AcctID.Int64()}
	}
	return nil
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id snowflake.ID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("acct_id = ?", id.Int64()).Delete(&sqliteTransaction{}).Error; err != nil {
		return storageErr("delete account transactions", err)
	}
	err := db.Model(&sqliteTransaction{}).
		Where("counterpart_id = ?", id.Int64()).
		Update("counterpart_id", nil).Error
	if err != nil {
		return storageErr("unlink counterpart", err)
	}
	res := db.Where("pub_id = ?", id.Int64()).Delete(&sqliteAccount{})
	if res.Error != nil {
		return storageErr("delete account", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound{ID: id.Int64()}
	}
	return nil
}

func (s *SQLiteStore) InsertTransactions(ctx context.Context, txns []Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	rows := make([]sqliteTransaction, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, toSQLiteTransaction(t))
	}
	return storageErr("insert transactions", s.db.WithContext(ctx).Create(&rows).Error)
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, filter TxnFilter) ([]Transaction, error) {
	q := s.db.WithContext(ctx).Order("ts DESC, pub_id DESC")
	if filter.AcctID != 0 {
		q = q.Where("acct_id = ?", filter.AcctID.Int64())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []sqliteTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageErr("list transactions", err)
	}
	txns := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		txns = append(txns, r.toTransaction())
	}
	return txns, nil
}

func (s *SQLiteStore) CreateAdmin(ctx context.Context, admin Admin) error {
	row := sqliteAdmin{Username: admin.Username, PasswordHash: admin.PasswordHash}
	return storageErr("insert admin", s.db.WithContext(ctx).Create(&row).Error)
}

func (s *SQLiteStore) GetAdmin(ctx context.Context, username string) (*Admin, error) {
	var row sqliteAdmin
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound{}
	}
	if err != nil {
		return nil, storageErr("select admin", err)
	}
	return &Admin{ID: row.ID, Username: row.Username, PasswordHash: row.PasswordHash}, nil
}

func (s *SQLiteStore) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&sqliteAdmin{}).Count(&n).Error; err != nil {
		return 0, storageErr("count admins", err)
	}
	return n, nil
}

func toSQLiteAccount(a Account) sqliteAccount {
	return sqliteAccount{
		PubID:      a.AcctID.Int64(),
		NationalID: a.NationalID,
		Name:       a.Name,
		Balance:    a.Balance,
		CreatedAt:  a.CreatedAt,
	}
}

func (r sqliteAccount) toAccount() Account {
	return Account{
		AcctID:     snowflake.ParseInt64(r.PubID),
		NationalID: r.NationalID,
		Name:       r.Name,
		Balance:    r.Balance,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func toSQLiteTransaction(t Transaction) sqliteTransaction {
	row := sqliteTransaction{
		PubID:       t.TxnID.Int64(),
		AcctID:      t.AcctID.Int64(),
		Typ:         string(t.Kind),
		Amount:      t.Amount,
		TS:          t.Timestamp,
		Description: t.Description,
	}
	if t.CounterpartID != nil {
		cp := t.CounterpartID.Int64()
		row.CounterpartID = &cp
	}
	return row
}

func (r sqliteTransaction) toTransaction() Transaction {
	t := Transaction{
		TxnID:       snowflake.ParseInt64(r.PubID),
		AcctID:      snowflake.ParseInt64(r.AcctID),
		Kind:        TxnKind(r.Typ),
		Amount:      r.Amount,
		Timestamp:   r.TS.UTC(),
		Description: r.Description,
	}
	if r.CounterpartID != nil {
		cp := snowflake.ParseInt64(*r.CounterpartID)
		t.CounterpartID = &cp
	}
	return t
}
