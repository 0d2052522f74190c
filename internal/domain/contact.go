package domain

import "time"

// Contact is a recipient. Eligibility for campaign sends means not opted
// out and not soft-deleted.
type Contact struct {
	ID          int64     `db:"id" json:"id"`
	OrgID       int64     `db:"org_id" json:"orgId"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName"`
	OptedOut    bool      `db:"opted_out" json:"optedOut"`
	Deleted     bool      `db:"deleted" json:"deleted"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// SenderNumber is an organization's provisioned sending number together
// with its hard external throughput ceiling.
type SenderNumber struct {
	ID             int64     `db:"id" json:"id"`
	OrgID          int64     `db:"org_id" json:"orgId"`
	Number         string    `db:"number" json:"number"`
	Verified       bool      `db:"verified" json:"verified"`
	IsPrimary      bool      `db:"is_primary" json:"isPrimary"`
	RateLimitMax   int       `db:"rate_limit_max" json:"rateLimitMax"`
	RateLimitHours int       `db:"rate_limit_hours" json:"rateLimitHours"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
