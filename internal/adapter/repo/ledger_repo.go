package repo

import (
	"context"
	"fmt"
	"strings"

	"contentgen/internal/domain"
	"contentgen/internal/infra"
	"contentgen/internal/sqlinline"
)

// LedgerPG implements domain.CreditLedger on credit_balances/credit_ledger.
type LedgerPG struct {
	sql infra.SQLExecutor
}

func NewLedger(sql infra.SQLExecutor) *LedgerPG {
	return &LedgerPG{sql: sql}
}

func (l *LedgerPG) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	if err := l.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, userID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Charge debits amount once per reference. Repeating a charge for the same
// reference is a no-op; an uncovered amount yields domain.ErrInsufficientCredits.
func (l *LedgerPG) Charge(ctx context.Context, userID string, amount int64, referenceType, referenceID string) error {
	if amount < 0 {
		return fmt.Errorf("charge amount must be >= 0, got %d", amount)
	}
	if amount == 0 {
		return nil
	}
	var already, charged int
	err := l.sql.QueryRow(ctx, sqlinline.QChargeCredits, userID, amount, referenceType, referenceID).Scan(&already, &charged)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			// A concurrent charge for the same reference won the race.
			return nil
		}
		return err
	}
	if already > 0 || charged > 0 {
		return nil
	}
	return domain.ErrInsufficientCredits
}

// Refund credits amount back at most once per reference.
func (l *LedgerPG) Refund(ctx context.Context, userID string, amount int64, referenceType, referenceID, reason string) error {
	if amount < 0 {
		return fmt.Errorf("refund amount must be >= 0, got %d", amount)
	}
	if amount == 0 {
		return nil
	}
	var credited int
	err := l.sql.QueryRow(ctx, sqlinline.QRefundCredits, userID, amount, referenceType, referenceID, truncate(reason, 200)).Scan(&credited)
	if err != nil && !infra.IsUniqueViolation(err) {
		return err
	}
	return nil
}

// Grant adds credits outside of any job and returns the new balance.
func (l *LedgerPG) Grant(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be > 0, got %d", amount)
	}
	var balance int64
	if err := l.sql.QueryRow(ctx, sqlinline.QGrantCredits, userID, amount, reason).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Entries lists ledger movements for one reference, oldest first.
func (l *LedgerPG) Entries(ctx context.Context, referenceType, referenceID string) ([]domain.LedgerEntry, error) {
	rows, err := l.sql.Query(ctx, sqlinline.QSelectLedgerEntries, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e    domain.LedgerEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.ReferenceType, &e.ReferenceID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.LedgerEntryKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

var _ domain.CreditLedger = (*LedgerPG)(nil)
