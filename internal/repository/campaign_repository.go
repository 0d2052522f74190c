package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, org_id, name, body, template_id, sender_number, status, scheduled_at,
	recipient_count, sent_count, delivered_count, failed_count, replied_count,
	deleted, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (org_id, name, body, template_id, sender_number, status)
		VALUES (?, ?, ?, ?, ?, 'draft')
	`, c.OrgID, c.Name, c.Body, c.TemplateID, c.SenderNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to create campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := r.db.GetContext(ctx, &campaign,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

func (r *CampaignRepository) List(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount,
		"SELECT COUNT(*) FROM campaigns WHERE org_id = ? AND deleted = FALSE", orgID); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	var campaigns []domain.Campaign
	query := "SELECT " + campaignColumns + `
		FROM campaigns
		WHERE org_id = ? AND deleted = FALSE
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	if err := r.db.SelectContext(ctx, &campaigns, query, orgID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, totalCount, nil
}

// UpdateStatus moves a campaign between lifecycle states with the expected
// current status as a guard, so two concurrent transitions cannot both
// apply. Zero affected rows means the campaign was not in expected status.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.CampaignStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update campaign status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *CampaignRepository) SetSchedule(ctx context.Context, id int64, at *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET scheduled_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to set campaign schedule: %w", err)
	}
	return nil
}

func (r *CampaignRepository) SetRecipientCount(ctx context.Context, id int64, count int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET recipient_count = recipient_count + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, count, id)
	if err != nil {
		return fmt.Errorf("failed to update recipient count: %w", err)
	}
	return nil
}

// IncrementCounter bumps one of the outcome counters (sent_count,
// failed_count, delivered_count, replied_count) by one. The column name is
// validated against a fixed set before interpolation.
func (r *CampaignRepository) IncrementCounter(ctx context.Context, id int64, column string) error {
	switch column {
	case "sent_count", "failed_count", "delivered_count", "replied_count":
	default:
		return fmt.Errorf("unknown campaign counter column %q", column)
	}

	query := fmt.Sprintf(
		"UPDATE campaigns SET %s = %s + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		column, column)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}

func (r *CampaignRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET deleted = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// ListDueScheduled returns scheduled campaigns whose activation time has
// passed, for the scheduler to start.
func (r *CampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	query := "SELECT " + campaignColumns + `
		FROM campaigns
		WHERE status = 'scheduled' AND deleted = FALSE AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
	`
	if err := r.db.SelectContext(ctx, &campaigns, query, now); err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) ListRunning(ctx context.Context) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	query := "SELECT " + campaignColumns + " FROM campaigns WHERE status = 'running' AND deleted = FALSE"
	if err := r.db.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, fmt.Errorf("failed to list running campaigns: %w", err)
	}
	return campaigns, nil
}
