package service

import (
	"context"
	"fmt"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/repository"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

type creditRepository interface {
	TryDeduct(ctx context.Context, req repository.DeductRequest) (string, error)
	AddFunds(ctx context.Context, orgID, amount int64, txType domain.TransactionType, userID *int64) (string, error)
	GetBalance(ctx context.Context, orgID int64) (*domain.Balance, error)
	ListTransactions(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Transaction, int64, error)
	ResolveSendPrice(ctx context.Context, orgID int64) (int64, error)
}

type CreditService struct {
	repo creditRepository
}

func NewCreditService(repo creditRepository) *CreditService {
	return &CreditService{repo: repo}
}

// ChargeForSend deducts the per-segment send price times segments from the
// org balance. The deduction is conditional on sufficient funds; on
// domain.ErrInsufficientFunds no ledger entry is written. Returns the
// ledger reference and the amount charged.
func (s *CreditService) ChargeForSend(
	ctx context.Context,
	orgID int64,
	segments int,
	messageID, campaignID *int64,
) (string, int64, error) {
	price, err := s.repo.ResolveSendPrice(ctx, orgID)
	if err != nil {
		return "", 0, err
	}

	amount := price * int64(segments)

	ref, err := s.repo.TryDeduct(ctx, repository.DeductRequest{
		OrgID:      orgID,
		Amount:     amount,
		Type:       domain.TxSendCharge,
		MessageID:  messageID,
		CampaignID: campaignID,
	})
	if err != nil {
		return "", amount, err
	}

	return ref, amount, nil
}

// QuoteSend returns the price in cents for sending the given number of
// segments, without touching the balance.
func (s *CreditService) QuoteSend(ctx context.Context, orgID int64, segments int) (int64, error) {
	price, err := s.repo.ResolveSendPrice(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return price * int64(segments), nil
}

func (s *CreditService) Purchase(ctx context.Context, orgID, amountCents int64, userID *int64) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("purchase amount must be positive")
	}

	ref, err := s.repo.AddFunds(ctx, orgID, amountCents, domain.TxPurchase, userID)
	if err != nil {
		return "", err
	}

	logger.Infof("Credited %d cents to org %d (transaction %s)", amountCents, orgID, ref)

	return ref, nil
}

func (s *CreditService) GetBalance(ctx context.Context, orgID int64) (*domain.Balance, error) {
	return s.repo.GetBalance(ctx, orgID)
}

func (s *CreditService) ListTransactions(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, orgID, page, pageSize)
}
