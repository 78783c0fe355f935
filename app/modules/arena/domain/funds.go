package arenadomain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// LinkBankAccount makes acct authoritative for the arena's funds. The
// virtual balance is left untouched but ignored while an account is linked.
func (a *Arena) LinkBankAccount(id int64, acct BankAccount) {
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	a.BankAccountID = &id
	a.account = acct
	a.dirty = true
}

// UnlinkBankAccount reverts to the virtual balance.
func (a *Arena) UnlinkBankAccount() {
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	a.BankAccountID = nil
	a.account = nil
	a.dirty = true
}

// HasBankAccount reports whether an external account backs the funds.
func (a *Arena) HasBankAccount() bool {
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	return a.account != nil
}

// VirtualBalance is the locally tracked balance.
func (a *Arena) VirtualBalance() decimal.Decimal {
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	return a.virtualBalance
}

func (a *Arena) AvailableFunds(ctx context.Context) (decimal.Decimal, error) {
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	return a.availableLocked(ctx)
}

func (a *Arena) availableLocked(ctx context.Context) (decimal.Decimal, error) {
	if a.account != nil {
		bal, err := a.account.Balance(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bank account balance: %w", err)
		}
		return bal, nil
	}
	return a.virtualBalance, nil
}

// EnsureFunds checks, without moving money, that amount could be debited.
func (a *Arena) EnsureFunds(ctx context.Context, amount decimal.Decimal) (bool, string) {
	if !amount.IsPositive() {
		return true, ""
	}
	avail, err := a.AvailableFunds(ctx)
	if err != nil {
		return false, "the arena's bank account could not be reached"
	}
	if avail.LessThan(amount) {
		return false, fmt.Sprintf("the arena only has %s available but %s is required", avail.StringFixed(2), amount.StringFixed(2))
	}
	return true, ""
}

// Credit adds amount to the funds. Non-positive amounts are ignored.
func (a *Arena) Credit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	if a.account != nil {
		if err := a.account.Deposit(ctx, amount); err != nil {
			return fmt.Errorf("bank account deposit: %w", err)
		}
		return nil
	}
	a.virtualBalance = a.virtualBalance.Add(amount)
	a.dirty = true
	return nil
}

// Debit removes amount from the funds. It fails with ErrInsufficientFunds
// exactly when EnsureFunds would have refused the same amount.
func (a *Arena) Debit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	a.fundsMu.Lock()
	defer a.fundsMu.Unlock()
	avail, err := a.availableLocked(ctx)
	if err != nil {
		return err
	}
	if avail.LessThan(amount) {
		return ErrInsufficientFunds
	}
	if a.account != nil {
		if err := a.account.Withdraw(ctx, amount); err != nil {
			return fmt.Errorf("bank account withdraw: %w", err)
		}
		return nil
	}
	a.virtualBalance = a.virtualBalance.Sub(amount)
	a.dirty = true
	return nil
}
