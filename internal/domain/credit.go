package domain

import "time"

// Balance is the single mutable shared resource contended by all concurrent
// workers of an organization. All amounts are integer cents.
type Balance struct {
	OrgID        int64     `db:"org_id" json:"orgId"`
	BalanceCents int64     `db:"balance_cents" json:"balanceCents"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type TransactionType string

const (
	TxPurchase   TransactionType = "purchase"
	TxSendCharge TransactionType = "send_charge"
	TxRefund     TransactionType = "refund"
	TxAdjustment TransactionType = "adjustment"
)

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted; they are the audit trail reconciling every balance change.
type Transaction struct {
	ID                 int64           `db:"id" json:"id"`
	OrgID              int64           `db:"org_id" json:"orgId"`
	Type               TransactionType `db:"type" json:"type"`
	AmountCents        int64           `db:"amount_cents" json:"amountCents"`
	BalanceBeforeCents int64           `db:"balance_before_cents" json:"balanceBeforeCents"`
	BalanceAfterCents  int64           `db:"balance_after_cents" json:"balanceAfterCents"`
	MessageID          *int64          `db:"message_id" json:"messageId,omitempty"`
	CampaignID         *int64          `db:"campaign_id" json:"campaignId,omitempty"`
	UserID             *int64          `db:"user_id" json:"userId,omitempty"`
	Reference          string          `db:"reference" json:"reference"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
}
