package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

// JobRepository is the durable dispatch queue. Producers enqueue
// concurrently; each job is handed to exactly one active worker via a
// conditional claim UPDATE. Jobs are terminal after one attempt: done or
// failed, never requeued.
type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, org_id, user_id, contact_id, template_id, campaign_id, sender_number,
	phone_number, body, direct_reply, priority, status, claimed_by, error_detail,
	created_at, updated_at`

func (r *JobRepository) Enqueue(ctx context.Context, job *domain.Job) (int64, error) {
	if job.PhoneNumber == "" {
		return 0, fmt.Errorf("job destination number is required")
	}
	if job.Body == "" {
		return 0, fmt.Errorf("job body is required")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dispatch_jobs
			(org_id, user_id, contact_id, template_id, campaign_id, sender_number,
			 phone_number, body, direct_reply, priority, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'queued')
	`, job.OrgID, job.UserID, job.ContactID, job.TemplateID, job.CampaignID,
		job.SenderNumber, job.PhoneNumber, job.Body, job.DirectReply, job.Priority)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get job id: %w", err)
	}
	return id, nil
}

// ClaimNext atomically claims the oldest queued job for workerID. The
// status guard in the UPDATE is what guarantees a job is active on exactly
// one worker at a time. Returns nil when the queue is empty.
func (r *JobRepository) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	var id int64
	err := r.db.GetContext(ctx, &id,
		"SELECT id FROM dispatch_jobs WHERE status = 'queued' ORDER BY created_at ASC, id ASC LIMIT 1")
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find queued job: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET status = 'processing', claimed_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'queued'
	`, workerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		// Another worker won the claim; the caller just polls again.
		return nil, nil
	}

	var job domain.Job
	if err := r.db.GetContext(ctx, &job,
		"SELECT "+jobColumns+" FROM dispatch_jobs WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to load claimed job %d: %w", id, err)
	}
	return &job, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET status = 'done', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %d done: %w", id, err)
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET status = 'failed', error_detail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark job %d failed: %w", id, err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	err := r.db.GetContext(ctx, &job,
		"SELECT "+jobColumns+" FROM dispatch_jobs WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// CountByCampaign returns per-status job counts for one campaign, used to
// decide when a running campaign is finished.
func (r *JobRepository) CountByCampaign(ctx context.Context, campaignID int64) (queued, processing, done, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0)     AS queued,
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0) AS processing,
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)       AS done,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)     AS failed
		FROM dispatch_jobs
		WHERE campaign_id = ?
	`

	var counts struct {
		Queued     int64 `db:"queued"`
		Processing int64 `db:"processing"`
		Done       int64 `db:"done"`
		Failed     int64 `db:"failed"`
	}
	if err := r.db.GetContext(ctx, &counts, query, campaignID); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to count campaign jobs: %w", err)
	}
	return counts.Queued, counts.Processing, counts.Done, counts.Failed, nil
}

// PurgeDone removes completed jobs past the short retention horizon.
// Failed jobs live longer to support diagnosis; see PurgeFailed.
func (r *JobRepository) PurgeDone(ctx context.Context, olderThan time.Time) (int64, error) {
	return r.purge(ctx, domain.JobDone, olderThan)
}

func (r *JobRepository) PurgeFailed(ctx context.Context, olderThan time.Time) (int64, error) {
	return r.purge(ctx, domain.JobFailed, olderThan)
}

func (r *JobRepository) purge(ctx context.Context, status domain.JobStatus, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM dispatch_jobs WHERE status = ? AND updated_at < ?", status, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s jobs: %w", status, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
