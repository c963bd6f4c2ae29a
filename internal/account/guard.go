package account

import "fmt"

// ErrInsufficientBalance is returned by CheckSufficiency when a debit would
// overdraw an account that does not allow a negative balance.
type ErrInsufficientBalance struct {
	Balance int64
	Delta   int64
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: %d available, %d required", e.Balance, -e.Delta)
}

// CheckSufficiency validates whether applying delta (negative for a debit) to
// an account balance is permitted under the account's overdraft policy.
// Pure function, no I/O. Called before every debit-producing operation.
func CheckSufficiency(balance int64, allowNegative bool, delta int64) error {
	if allowNegative {
		return nil
	}
	if balance+delta < 0 {
		return &ErrInsufficientBalance{Balance: balance, Delta: delta}
	}
	return nil
}

// CheckDebit is a convenience wrapper for debiting amount from acc.
func CheckDebit(acc *Account, amount int64) error {
	return CheckSufficiency(acc.Balance, acc.AllowNegativeBalance, -amount)
}
