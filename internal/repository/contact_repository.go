package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = "id, org_id, phone_number, first_name, last_name, opted_out, deleted, created_at"

// ListEligible returns up to limit contacts eligible for a campaign send
// (not opted out, not deleted), oldest first, plus the total eligible count
// so callers can tell when a batch ceiling truncated the result.
func (r *ContactRepository) ListEligible(ctx context.Context, orgID int64, limit int) ([]domain.Contact, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM contacts
		WHERE org_id = ? AND opted_out = FALSE AND deleted = FALSE
	`, orgID); err != nil {
		return nil, 0, fmt.Errorf("failed to count eligible contacts: %w", err)
	}

	var contacts []domain.Contact
	query := "SELECT " + contactColumns + `
		FROM contacts
		WHERE org_id = ? AND opted_out = FALSE AND deleted = FALSE
		ORDER BY id ASC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &contacts, query, orgID, limit); err != nil {
		return nil, 0, fmt.Errorf("failed to list eligible contacts: %w", err)
	}

	return contacts, total, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.GetContext(ctx, &contact,
		"SELECT "+contactColumns+" FROM contacts WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &contact, nil
}
