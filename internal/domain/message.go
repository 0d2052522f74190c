package domain

import "time"

type MessageStatus string

const (
	StatusQueued    MessageStatus = "queued"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
	StatusReceived  MessageStatus = "received"
)

type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

// Message is the durable outcome of a processed job (outbound) or an
// inbound event. After creation only status and terminal timestamps
// advance; a terminal status never reverts.
type Message struct {
	ID               int64            `db:"id" json:"id"`
	OrgID            int64            `db:"org_id" json:"orgId"`
	CampaignID       *int64           `db:"campaign_id" json:"campaignId,omitempty"`
	ContactID        *int64           `db:"contact_id" json:"contactId,omitempty"`
	Direction        MessageDirection `db:"direction" json:"direction"`
	PhoneNumber      string           `db:"phone_number" json:"phoneNumber"`
	SenderNumber     string           `db:"sender_number" json:"senderNumber"`
	Body             string           `db:"body" json:"body"`
	Status           MessageStatus    `db:"status" json:"status"`
	Segments         int              `db:"segments" json:"segments"`
	Encoding         string           `db:"encoding" json:"encoding"`
	PriceCents       int64            `db:"price_cents" json:"priceCents"`
	GatewayMessageID *string          `db:"gateway_message_id" json:"gatewayMessageId,omitempty"`
	ErrorDetail      *string          `db:"error_detail" json:"errorDetail,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	SentAt           *time.Time       `db:"sent_at" json:"sentAt,omitempty"`
	DeliveredAt      *time.Time       `db:"delivered_at" json:"deliveredAt,omitempty"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// Job is one unit of outbound work. The payload is immutable after enqueue;
// a worker consumes it exactly once and records the outcome as a Message.
// Attempts are fixed at one: a failed job is terminal, never requeued.
type Job struct {
	ID           int64     `db:"id" json:"id"`
	OrgID        int64     `db:"org_id" json:"orgId"`
	UserID       int64     `db:"user_id" json:"userId"`
	ContactID    *int64    `db:"contact_id" json:"contactId,omitempty"`
	TemplateID   *int64    `db:"template_id" json:"templateId,omitempty"`
	CampaignID   *int64    `db:"campaign_id" json:"campaignId,omitempty"`
	SenderNumber *string   `db:"sender_number" json:"senderNumber,omitempty"`
	PhoneNumber  string    `db:"phone_number" json:"phoneNumber"`
	Body         string    `db:"body" json:"body"`
	DirectReply  bool      `db:"direct_reply" json:"directReply"`
	Priority     int       `db:"priority" json:"priority"`
	Status       JobStatus `db:"status" json:"status"`
	ClaimedBy    *string   `db:"claimed_by" json:"claimedBy,omitempty"`
	ErrorDetail  *string   `db:"error_detail" json:"errorDetail,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// GatewaySendResult is the synchronous acknowledgment from the carrier
// gateway.
type GatewaySendResult struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// SendOutcome is the per-recipient result surfaced to bulk producers so one
// failure does not swallow the rest of a batch.
type SendOutcome struct {
	JobID       int64
	PhoneNumber string
	Enqueued    bool
	Err         error
}
