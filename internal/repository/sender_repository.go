package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

type SenderRepository struct {
	db *sqlx.DB
}

func NewSenderRepository(db *sqlx.DB) *SenderRepository {
	return &SenderRepository{db: db}
}

const senderColumns = "id, org_id, number, verified, is_primary, rate_limit_max, rate_limit_hours, created_at"

func (r *SenderRepository) ListByOrg(ctx context.Context, orgID int64) ([]domain.SenderNumber, error) {
	var senders []domain.SenderNumber
	err := r.db.SelectContext(ctx, &senders,
		"SELECT "+senderColumns+" FROM sender_numbers WHERE org_id = ? ORDER BY id ASC", orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sender numbers: %w", err)
	}
	return senders, nil
}

func (r *SenderRepository) GetByNumber(ctx context.Context, orgID int64, number string) (*domain.SenderNumber, error) {
	var sender domain.SenderNumber
	err := r.db.GetContext(ctx, &sender,
		"SELECT "+senderColumns+" FROM sender_numbers WHERE org_id = ? AND number = ?", orgID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoSenderNumber
		}
		return nil, fmt.Errorf("failed to get sender number: %w", err)
	}
	return &sender, nil
}

// Resolve picks the sender number for an outbound send. An explicitly
// requested number must exist and be verified for the org; otherwise the
// org's primary verified number is used.
func (r *SenderRepository) Resolve(ctx context.Context, orgID int64, explicit *string) (*domain.SenderNumber, error) {
	if explicit != nil && *explicit != "" {
		sender, err := r.GetByNumber(ctx, orgID, *explicit)
		if err != nil {
			return nil, err
		}
		if !sender.Verified {
			return nil, domain.ErrNoSenderNumber
		}
		return sender, nil
	}

	var sender domain.SenderNumber
	err := r.db.GetContext(ctx, &sender,
		"SELECT "+senderColumns+` FROM sender_numbers
		WHERE org_id = ? AND verified = TRUE
		ORDER BY is_primary DESC, id ASC LIMIT 1`, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoSenderNumber
		}
		return nil, fmt.Errorf("failed to resolve sender number: %w", err)
	}
	return &sender, nil
}
