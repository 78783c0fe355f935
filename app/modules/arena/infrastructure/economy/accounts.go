// Package arenaeconomy stores the bank accounts that can back arena funds.
package arenaeconomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var (
	ErrAccountNotFound = errors.New("bank account not found")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// BankAccount is a row in bank_accounts.
type BankAccount struct {
	bun.BaseModel `bun:"table:bank_accounts,alias:ba"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Owner     string          `bun:"owner,notnull"`
	Currency  string          `bun:"currency,notnull"`
	Balance   decimal.Decimal `bun:"balance,type:numeric(20,4),notnull"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Accounts opens and looks up bank accounts.
type Accounts struct {
	db bun.IDB
}

func NewAccounts(db bun.IDB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return a.db
	}
	return db
}

// Open creates an account with an opening balance.
func (a *Accounts) Open(ctx context.Context, db bun.IDB, owner, currency string, opening decimal.Decimal) (*BankAccount, error) {
	if opening.IsNegative() {
		return nil, fmt.Errorf("opening balance: %w", ErrInvalidAmount)
	}
	acct := &BankAccount{
		Owner:     strings.TrimSpace(owner),
		Currency:  currency,
		Balance:   opening,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := a.resolveDB(db).NewInsert().Model(acct).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to open bank account: %w", err)
	}
	return acct, nil
}

func (a *Accounts) Get(ctx context.Context, db bun.IDB, id int64) (*BankAccount, error) {
	acct := new(BankAccount)
	err := a.resolveDB(db).NewSelect().Model(acct).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return acct, nil
}

// Resolve binds account id to db so the domain can move funds inside the
// caller's transaction. Its signature matches the arena loader's account
// resolver.
func (a *Accounts) Resolve(ctx context.Context, db bun.IDB, id int64) (arenadomain.BankAccount, error) {
	acct, err := a.Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &bankAccount{id: acct.ID, db: a.resolveDB(db)}, nil
}

// bankAccount adapts a stored account to arenadomain.BankAccount. Balance
// changes are single conditional UPDATEs, so concurrent writers serialise on
// the row lock.
type bankAccount struct {
	id int64
	db bun.IDB
}

func (b *bankAccount) Balance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := b.db.NewSelect().Model((*BankAccount)(nil)).Column("balance").Where("id = ?", b.id).Scan(ctx, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %d: %w", b.id, ErrAccountNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

func (b *bankAccount) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("withdraw %s: %w", amount, ErrInvalidAmount)
	}
	res, err := b.db.NewUpdate().Model((*BankAccount)(nil)).
		Set("balance = balance - ?", amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", b.id).
		Where("balance >= ?", amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to withdraw: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		if _, err := b.Balance(ctx); err != nil {
			return err
		}
		return fmt.Errorf("withdraw %s from account %d: %w", amount, b.id, arenadomain.ErrInsufficientFunds)
	}
	return nil
}

func (b *bankAccount) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit %s: %w", amount, ErrInvalidAmount)
	}
	res, err := b.db.NewUpdate().Model((*BankAccount)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", b.id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deposit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d: %w", b.id, ErrAccountNotFound)
	}
	return nil
}

// FormatAmount renders amount with two decimals followed by the currency name.
func FormatAmount(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// CreateTables creates bank_accounts if it does not exist.
func CreateTables(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*BankAccount)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create bank_accounts: %w", err)
	}
	return nil
}

func DropTables(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDropTable().Model((*BankAccount)(nil)).IfExists().Exec(ctx)
	return err
}
