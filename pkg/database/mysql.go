package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			phone_number VARCHAR(20) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			opted_out BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_contacts_org (org_id, opted_out, deleted)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS sender_numbers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			number VARCHAR(20) NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_primary BOOLEAN NOT NULL DEFAULT FALSE,
			rate_limit_max INT NOT NULL DEFAULT 100,
			rate_limit_hours INT NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_sender_numbers_number (number),
			INDEX idx_sender_numbers_org (org_id, verified)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS campaigns (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			name VARCHAR(200) NOT NULL,
			body TEXT NOT NULL,
			template_id BIGINT,
			sender_number VARCHAR(20),
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			scheduled_at DATETIME,
			recipient_count INT NOT NULL DEFAULT 0,
			sent_count INT NOT NULL DEFAULT 0,
			delivered_count INT NOT NULL DEFAULT 0,
			failed_count INT NOT NULL DEFAULT 0,
			replied_count INT NOT NULL DEFAULT 0,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_campaigns_org (org_id, deleted),
			INDEX idx_campaigns_status (status, scheduled_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS dispatch_jobs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL DEFAULT 0,
			contact_id BIGINT,
			template_id BIGINT,
			campaign_id BIGINT,
			sender_number VARCHAR(20),
			phone_number VARCHAR(20) NOT NULL,
			body TEXT NOT NULL,
			direct_reply BOOLEAN NOT NULL DEFAULT FALSE,
			priority INT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'queued',
			claimed_by VARCHAR(64),
			error_detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_dispatch_jobs_status (status, id),
			INDEX idx_dispatch_jobs_campaign (campaign_id, status),
			INDEX idx_dispatch_jobs_retention (status, updated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			campaign_id BIGINT,
			contact_id BIGINT,
			direction VARCHAR(10) NOT NULL DEFAULT 'outbound',
			phone_number VARCHAR(20) NOT NULL,
			sender_number VARCHAR(20) NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'queued',
			segments INT NOT NULL DEFAULT 1,
			encoding VARCHAR(10) NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL DEFAULT 0,
			gateway_message_id VARCHAR(100),
			error_detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			sent_at DATETIME,
			delivered_at DATETIME,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_messages_gateway_id (gateway_message_id),
			INDEX idx_messages_org_status (org_id, status),
			INDEX idx_messages_campaign (campaign_id),
			INDEX idx_messages_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS credit_balances (
			org_id BIGINT PRIMARY KEY,
			balance_cents BIGINT NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT chk_balance_non_negative CHECK (balance_cents >= 0)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			type VARCHAR(20) NOT NULL,
			amount_cents BIGINT NOT NULL,
			balance_before_cents BIGINT NOT NULL,
			balance_after_cents BIGINT NOT NULL,
			message_id BIGINT,
			campaign_id BIGINT,
			user_id BIGINT,
			reference VARCHAR(36) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_credit_transactions_reference (reference),
			INDEX idx_credit_transactions_org (org_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS pricing (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			service VARCHAR(50) NOT NULL,
			org_id BIGINT,
			price_cents BIGINT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_pricing_service_org (service, org_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM contacts")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d contacts, skipping seed", count)
		return nil
	}

	const orgID = 1

	if _, err := db.Exec(
		"INSERT INTO credit_balances (org_id, balance_cents) VALUES (?, ?)",
		orgID, 10000,
	); err != nil {
		return fmt.Errorf("failed to seed balance: %w", err)
	}

	if _, err := db.Exec(
		"INSERT INTO pricing (service, org_id, price_cents) VALUES ('sms_send', NULL, 2)",
	); err != nil {
		return fmt.Errorf("failed to seed pricing: %w", err)
	}

	if _, err := db.Exec(
		`INSERT INTO sender_numbers (org_id, number, verified, is_primary, rate_limit_max, rate_limit_hours)
		 VALUES (?, '+15550100001', TRUE, TRUE, 100, 1)`,
		orgID,
	); err != nil {
		return fmt.Errorf("failed to seed sender number: %w", err)
	}

	testContacts := []struct {
		phone     string
		firstName string
		lastName  string
	}{
		{"+905551234567", "Aylin", "Demir"},
		{"+905559876543", "Mert", "Kaya"},
		{"+905551112233", "Zeynep", "Arslan"},
		{"+905554445566", "Emre", "Yildiz"},
		{"+905557778899", "Elif", "Celik"},
		{"+905552223344", "Can", "Aydin"},
		{"+905556667788", "Selin", "Koc"},
		{"+905553334455", "Burak", "Sahin"},
		{"+905558889900", "Deniz", "Ozturk"},
		{"+905551239876", "Ece", "Polat"},
	}

	for _, c := range testContacts {
		if _, err := db.Exec(
			"INSERT INTO contacts (org_id, phone_number, first_name, last_name) VALUES (?, ?, ?, ?)",
			orgID, c.phone, c.firstName, c.lastName,
		); err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test contacts", len(testContacts))
	return nil
}
