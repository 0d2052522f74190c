package domain

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignDone      CampaignStatus = "done"
	CampaignFailed    CampaignStatus = "failed"
)

// campaignTransitions is the full lifecycle table. Anything not listed here
// is rejected with an InvalidTransitionError.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignRunning},
	CampaignScheduled: {CampaignRunning, CampaignDraft},
	CampaignRunning:   {CampaignPaused, CampaignDone, CampaignFailed},
	CampaignPaused:    {CampaignRunning},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to CampaignStatus) bool {
	for _, allowed := range campaignTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a campaign status admits no further transitions.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignDone || s == CampaignFailed
}

// Campaign is a bulk-send lifecycle entity. Deleted is a soft marker
// orthogonal to Status: it hides the campaign from active views without
// destroying history.
type Campaign struct {
	ID             int64          `db:"id" json:"id"`
	OrgID          int64          `db:"org_id" json:"orgId"`
	Name           string         `db:"name" json:"name"`
	Body           string         `db:"body" json:"body"`
	TemplateID     *int64         `db:"template_id" json:"templateId,omitempty"`
	SenderNumber   *string        `db:"sender_number" json:"senderNumber,omitempty"`
	Status         CampaignStatus `db:"status" json:"status"`
	ScheduledAt    *time.Time     `db:"scheduled_at" json:"scheduledAt,omitempty"`
	RecipientCount int            `db:"recipient_count" json:"recipientCount"`
	SentCount      int            `db:"sent_count" json:"sentCount"`
	DeliveredCount int            `db:"delivered_count" json:"deliveredCount"`
	FailedCount    int            `db:"failed_count" json:"failedCount"`
	RepliedCount   int            `db:"replied_count" json:"repliedCount"`
	Deleted        bool           `db:"deleted" json:"deleted"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// StartResult reports the outcome of activating a campaign. Partial is set
// when eligible recipients exceeded the batch ceiling, so callers see the
// truncation instead of assuming everyone was enqueued.
type StartResult struct {
	CampaignID int64         `json:"campaignId"`
	Eligible   int           `json:"eligible"`
	Enqueued   int           `json:"enqueued"`
	Failed     int           `json:"failed"`
	Partial    bool          `json:"partial"`
	Outcomes   []SendOutcome `json:"-"`
}
