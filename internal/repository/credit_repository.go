package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

// CreditRepository owns the balance row and the append-only transaction
// ledger for each organization.
type CreditRepository struct {
	db *sqlx.DB
}

func NewCreditRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// DeductRequest links a send charge to what it paid for.
type DeductRequest struct {
	OrgID      int64
	Amount     int64
	Type       domain.TransactionType
	MessageID  *int64
	CampaignID *int64
	UserID     *int64
}

// TryDeduct subtracts Amount from the org balance only if the balance
// covers it, and appends the matching ledger row, all in one transaction.
// The conditional UPDATE is the serialization point: concurrent callers
// race on it, and the loser of the last covering deduction gets
// domain.ErrInsufficientFunds with no ledger row written.
func (r *CreditRepository) TryDeduct(ctx context.Context, req DeductRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("deduction amount must be positive, got %d", req.Amount)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin deduction transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE credit_balances
		SET balance_cents = balance_cents - ?, updated_at = CURRENT_TIMESTAMP
		WHERE org_id = ? AND balance_cents >= ?
	`, req.Amount, req.OrgID, req.Amount)
	if err != nil {
		return "", fmt.Errorf("failed to deduct balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return "", domain.ErrInsufficientFunds
	}

	var after int64
	if err := tx.GetContext(ctx, &after,
		"SELECT balance_cents FROM credit_balances WHERE org_id = ?", req.OrgID); err != nil {
		return "", fmt.Errorf("failed to read balance after deduction: %w", err)
	}

	reference := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions
			(org_id, type, amount_cents, balance_before_cents, balance_after_cents,
			 message_id, campaign_id, user_id, reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.OrgID, req.Type, -req.Amount, after+req.Amount, after,
		req.MessageID, req.CampaignID, req.UserID, reference); err != nil {
		return "", fmt.Errorf("failed to record ledger transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit deduction: %w", err)
	}

	return reference, nil
}

// AddFunds is the unconditional inverse of TryDeduct, sharing the same
// one-transaction ledger discipline.
func (r *CreditRepository) AddFunds(ctx context.Context, orgID, amount int64, txType domain.TransactionType, userID *int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("funding amount must be positive, got %d", amount)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin funding transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE credit_balances
		SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		WHERE org_id = ?
	`, amount, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to add funds: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		// First funding for this org creates the balance row.
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO credit_balances (org_id, balance_cents) VALUES (?, ?)",
			orgID, amount); err != nil {
			return "", fmt.Errorf("failed to create balance row: %w", err)
		}
	}

	var after int64
	if err := tx.GetContext(ctx, &after,
		"SELECT balance_cents FROM credit_balances WHERE org_id = ?", orgID); err != nil {
		return "", fmt.Errorf("failed to read balance after funding: %w", err)
	}

	reference := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions
			(org_id, type, amount_cents, balance_before_cents, balance_after_cents, user_id, reference)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, orgID, txType, amount, after-amount, after, userID, reference); err != nil {
		return "", fmt.Errorf("failed to record ledger transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit funding: %w", err)
	}

	return reference, nil
}

func (r *CreditRepository) GetBalance(ctx context.Context, orgID int64) (*domain.Balance, error) {
	var balance domain.Balance
	err := r.db.GetContext(ctx, &balance,
		"SELECT org_id, balance_cents, updated_at FROM credit_balances WHERE org_id = ?", orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.Balance{OrgID: orgID}, nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

func (r *CreditRepository) ListTransactions(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Transaction, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount,
		"SELECT COUNT(*) FROM credit_transactions WHERE org_id = ?", orgID); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var transactions []domain.Transaction
	query := `
		SELECT id, org_id, type, amount_cents, balance_before_cents, balance_after_cents,
		       message_id, campaign_id, user_id, reference, created_at
		FROM credit_transactions
		WHERE org_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	if err := r.db.SelectContext(ctx, &transactions, query, orgID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, totalCount, nil
}

// ResolveSendPrice returns the per-segment price in cents: the org override
// when present, the shared default otherwise. No configured price at all is
// a hard configuration error, never a free send.
func (r *CreditRepository) ResolveSendPrice(ctx context.Context, orgID int64) (int64, error) {
	var price int64
	err := r.db.GetContext(ctx, &price, `
		SELECT price_cents FROM pricing
		WHERE service = 'sms_send' AND (org_id = ? OR org_id IS NULL)
		ORDER BY org_id IS NULL
		LIMIT 1
	`, orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrNoPricing
		}
		return 0, fmt.Errorf("failed to resolve send price: %w", err)
	}
	return price, nil
}
