package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

// MessageRepository handles database operations for message records.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, org_id, campaign_id, contact_id, direction, phone_number, sender_number,
	body, status, segments, encoding, price_cents, gateway_message_id, error_detail,
	created_at, sent_at, delivered_at, updated_at`

// Create writes the terminal outcome of a processed job (or an inbound
// event). Records are written once per job and never contended.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(org_id, campaign_id, contact_id, direction, phone_number, sender_number,
			 body, status, segments, encoding, price_cents, gateway_message_id,
			 error_detail, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.OrgID, msg.CampaignID, msg.ContactID, msg.Direction, msg.PhoneNumber,
		msg.SenderNumber, msg.Body, msg.Status, msg.Segments, msg.Encoding,
		msg.PriceCents, msg.GatewayMessageID, msg.ErrorDetail, msg.SentAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create message record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	var message domain.Message
	err := r.db.GetContext(ctx, &message,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

func (r *MessageRepository) GetAll(
	ctx context.Context,
	orgID int64,
	status *domain.MessageStatus,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var messages []domain.Message

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM messages WHERE org_id = ? AND status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, orgID, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count messages: %w", err)
		}

		query := "SELECT " + messageColumns + `
			FROM messages
			WHERE org_id = ? AND status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &messages, query, orgID, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get messages: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM messages WHERE org_id = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, orgID); err != nil {
			return nil, 0, fmt.Errorf("failed to count messages: %w", err)
		}

		query := "SELECT " + messageColumns + `
			FROM messages
			WHERE org_id = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &messages, query, orgID, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get messages: %w", err)
		}
	}

	return messages, totalCount, nil
}

// GetStats returns outbound message counts by status for one organization.
func (r *MessageRepository) GetStats(ctx context.Context, orgID int64) (sent, delivered, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)      AS sent,
			COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0) AS delivered,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)    AS failed
		FROM messages
		WHERE org_id = ? AND direction = 'outbound'
	`

	var stats struct {
		Sent      int64 `db:"sent"`
		Delivered int64 `db:"delivered"`
		Failed    int64 `db:"failed"`
	}

	if err := r.db.GetContext(ctx, &stats, query, orgID); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats.Sent, stats.Delivered, stats.Failed, nil
}

// MarkDelivered advances a sent message to delivered, keyed by the gateway
// message id. The status guard makes re-application a no-op and protects
// terminal statuses from reverting; zero affected rows is not an error.
func (r *MessageRepository) MarkDelivered(ctx context.Context, gatewayMessageID string, deliveredAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = 'delivered', delivered_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE gateway_message_id = ? AND status = 'sent'
	`, deliveredAt, gatewayMessageID)
	if err != nil {
		return false, fmt.Errorf("failed to mark message delivered: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// MarkDeliveryFailed records an asynchronous delivery failure for a message
// that was accepted by the gateway. Same idempotency guard as MarkDelivered.
func (r *MessageRepository) MarkDeliveryFailed(ctx context.Context, gatewayMessageID, detail string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET status = 'failed', error_detail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE gateway_message_id = ? AND status = 'sent'
	`, detail, gatewayMessageID)
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery failure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
