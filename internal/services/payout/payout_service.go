package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// claimBatchSize bounds one eligible-entry fetch while claiming
const claimBatchSize = 50

// BalanceProvider supplies the available balance check for new requests
type BalanceProvider interface {
	GetBalance(ctx context.Context, landlordID string) (*domain.LandlordBalance, error)
}

// CreateRequestInput is a landlord's withdrawal request
type CreateRequestInput struct {
	LandlordID       string
	Amount           int64
	Currency         string
	Method           domain.PayoutMethod
	BankDetails      *domain.BankDetails
	ConnectAccountID string
}

// Service runs the payout request workflow: request, review, process.
// Every state transition is a conditional update guarded on the current
// status, so racing admins and landlords settle on exactly one outcome.
type Service struct {
	db          ports.DBPort
	payoutRepo  ports.PayoutRepository
	paymentRepo ports.PaymentRepository
	balances    BalanceProvider
	gateways    map[domain.PayoutMethod]ports.TransferGateway
	audit       ports.AuditTrail
	logger      ports.Logger
}

// NewService creates a new payout service
func NewService(
	db ports.DBPort,
	payoutRepo ports.PayoutRepository,
	paymentRepo ports.PaymentRepository,
	balances BalanceProvider,
	gateways map[domain.PayoutMethod]ports.TransferGateway,
	audit ports.AuditTrail,
	logger ports.Logger,
) *Service {
	return &Service{
		db:          db,
		payoutRepo:  payoutRepo,
		paymentRepo: paymentRepo,
		balances:    balances,
		gateways:    gateways,
		audit:       audit,
		logger:      logger,
	}
}

// CreateRequest opens a pending payout request and claims eligible ledger
// entries, oldest first, until their net amounts cover the requested figure.
// Entries are claimed whole, so the stored amount may exceed the requested
// one. Each claim is a single conditional update; losing a claim race just
// moves on to the next entry.
func (s *Service) CreateRequest(ctx context.Context, actor domain.Principal, input *CreateRequestInput) (*domain.PayoutRequest, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount.WithDetail("amount", input.Amount)
	}

	request := &domain.PayoutRequest{
		ID:               uuid.New().String(),
		LandlordID:       input.LandlordID,
		RequestedAmount:  input.Amount,
		Currency:         input.Currency,
		Method:           input.Method,
		BankDetails:      input.BankDetails,
		ConnectAccountID: input.ConnectAccountID,
		Status:           domain.PayoutStatusPending,
	}
	if err := request.ValidateMethodDetails(); err != nil {
		return nil, err
	}

	balance, err := s.balances.GetBalance(ctx, input.LandlordID)
	if err != nil {
		return nil, err
	}
	if input.Amount > balance.AvailableBalance {
		return nil, domain.ErrInsufficientBalance.
			WithDetail("requested", input.Amount).
			WithDetail("available", balance.AvailableBalance)
	}

	claimed, claimedSum, err := s.claimEntries(ctx, input.LandlordID, request.ID, input.Amount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request.Amount = claimedSum
	request.RelatedPayments = claimed
	request.RequestedAt = now
	request.CreatedAt = now
	request.UpdatedAt = now

	if err := s.payoutRepo.Create(ctx, nil, request); err != nil {
		if _, relErr := s.paymentRepo.ReleaseClaims(ctx, nil, request.ID); relErr != nil {
			s.logger.Error("failed to release claims after create failure",
				ports.String("payout_request_id", request.ID),
				ports.String("error", relErr.Error()))
		}
		return nil, err
	}

	s.logger.Info("payout request created",
		ports.String("payout_request_id", request.ID),
		ports.String("landlord_id", input.LandlordID),
		ports.Int64("requested_amount", input.Amount),
		ports.Int64("amount", claimedSum),
		ports.Int("claimed_entries", len(claimed)))

	return request, nil
}

// claimEntries binds eligible entries to the request until their net sum
// covers target. On any shortfall or error the partial claims are released.
func (s *Service) claimEntries(ctx context.Context, landlordID, requestID string, target int64) ([]string, int64, error) {
	var claimed []string
	var sum int64
	now := time.Now().UTC()

	release := func() {
		if len(claimed) == 0 {
			return
		}
		if _, err := s.paymentRepo.ReleaseClaims(ctx, nil, requestID); err != nil {
			s.logger.Error("failed to release partial claims",
				ports.String("payout_request_id", requestID),
				ports.String("error", err.Error()))
		}
	}

	for sum < target {
		candidates, err := s.paymentRepo.ListEligibleForPayout(ctx, nil, landlordID, claimBatchSize)
		if err != nil {
			release()
			return nil, 0, err
		}
		if len(candidates) == 0 {
			// Pool ran dry: concurrent requests claimed the balance first
			release()
			return nil, 0, domain.ErrAllocationConflict
		}

		progressed := false
		for _, candidate := range candidates {
			if sum >= target {
				break
			}
			id, err := uuid.Parse(candidate.ID)
			if err != nil {
				continue
			}
			won, err := s.paymentRepo.ClaimForPayout(ctx, nil, id, requestID, now)
			if err != nil {
				release()
				return nil, 0, err
			}
			if !won {
				// A concurrent request claimed this entry; try the next
				continue
			}
			claimed = append(claimed, candidate.ID)
			sum += candidate.LandlordNetAmount
			progressed = true
		}

		if !progressed && sum < target {
			release()
			return nil, 0, domain.ErrAllocationConflict
		}
	}

	return claimed, sum, nil
}

// GetRequest retrieves a payout request with its related payment ids
func (s *Service) GetRequest(ctx context.Context, id string) (*domain.PayoutRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payout_request_id", id)
	}
	request, err := s.payoutRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	related, err := s.paymentRepo.ListRelatedPaymentIDs(ctx, nil, request.ID)
	if err != nil {
		return nil, err
	}
	request.RelatedPayments = related
	return request, nil
}

// Cancel withdraws the landlord's own pending request. The request closes as
// a rejection carrying a system reason and its claimed entries return to the
// available pool.
func (s *Service) Cancel(ctx context.Context, actor domain.Principal, id string) (*domain.PayoutRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payout_request_id", id)
	}

	request, err := s.payoutRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if request.LandlordID != actor.UserID {
		return nil, domain.ErrAuthAccessDenied
	}
	if !request.CanBeCancelledBy(actor.UserID) {
		return nil, domain.ErrInvalidTransition.WithDetail("status", string(request.Status))
	}

	now := time.Now().UTC()
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rejected, err := s.payoutRepo.Reject(ctx, tx, requestID, actor.UserID, domain.CancelledByLandlordReason, "", now)
		if err != nil {
			return err
		}
		if !rejected {
			return domain.ErrInvalidTransition
		}
		_, err = s.paymentRepo.ReleaseClaims(ctx, tx, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, "payout.cancelled", "payout_request", id, nil,
		map[string]interface{}{"status": string(domain.PayoutStatusRejected), "reason": domain.CancelledByLandlordReason})

	s.logger.Info("payout request cancelled by landlord",
		ports.String("payout_request_id", id),
		ports.String("landlord_id", actor.UserID))

	return s.GetRequest(ctx, id)
}

// Approve moves a pending request to approved
func (s *Service) Approve(ctx context.Context, actor domain.Principal, id, notes string) (*domain.PayoutRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payout_request_id", id)
	}

	approved, err := s.payoutRepo.Approve(ctx, nil, requestID, actor.UserID, notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !approved {
		request, err := s.payoutRepo.GetByID(ctx, nil, requestID)
		if err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition.WithDetail("status", string(request.Status))
	}

	s.audit.Record(ctx, actor, "payout.approved", "payout_request", id, nil,
		map[string]interface{}{"status": string(domain.PayoutStatusApproved), "notes": notes})

	s.logger.Info("payout request approved",
		ports.String("payout_request_id", id),
		ports.String("admin_id", actor.UserID))

	return s.GetRequest(ctx, id)
}

// Reject closes a pending or approved request and returns its claimed entries
// to the available pool.
func (s *Service) Reject(ctx context.Context, actor domain.Principal, id, reason, notes string) (*domain.PayoutRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payout_request_id", id)
	}
	if reason == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "reason")
	}

	now := time.Now().UTC()
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rejected, err := s.payoutRepo.Reject(ctx, tx, requestID, actor.UserID, reason, notes, now)
		if err != nil {
			return err
		}
		if !rejected {
			request, err := s.payoutRepo.GetByID(ctx, tx, requestID)
			if err != nil {
				return err
			}
			return domain.ErrInvalidTransition.WithDetail("status", string(request.Status))
		}
		_, err = s.paymentRepo.ReleaseClaims(ctx, tx, requestID.String())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, "payout.rejected", "payout_request", id, nil,
		map[string]interface{}{"status": string(domain.PayoutStatusRejected), "reason": reason})

	s.logger.Info("payout request rejected",
		ports.String("payout_request_id", id),
		ports.String("admin_id", actor.UserID),
		ports.String("reason", reason))

	return s.GetRequest(ctx, id)
}

// Process executes the transfer for an approved request and marks it
// processed. The external call runs outside any atomic step; on gateway
// failure the request stays approved and claimed, ready for a retry. The
// transfer itself is idempotent on the request id, so a retry after an
// ambiguous failure cannot pay twice.
func (s *Service) Process(ctx context.Context, actor domain.Principal, id, operatorReference string) (*domain.PayoutRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("payout_request_id", id)
	}

	request, err := s.payoutRepo.GetByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status == domain.PayoutStatusProcessed {
		return nil, domain.ErrAlreadyProcessed
	}
	if request.Status != domain.PayoutStatusApproved {
		return nil, domain.ErrInvalidTransition.WithDetail("status", string(request.Status))
	}

	gateway, ok := s.gateways[request.Method]
	if !ok {
		return nil, domain.ErrPayoutMethodInvalid.WithDetail("method", string(request.Method))
	}

	result, err := gateway.Execute(ctx, &ports.TransferRequest{
		IdempotencyKey:    request.ID,
		Amount:            request.Amount,
		Currency:          request.Currency,
		Method:            request.Method,
		BankDetails:       request.BankDetails,
		ConnectAccountID:  request.ConnectAccountID,
		OperatorReference: operatorReference,
	})
	if err != nil {
		s.logger.Error("payout transfer failed, request stays approved",
			ports.String("payout_request_id", id),
			ports.String("error", err.Error()))
		return nil, err
	}

	processed, err := s.payoutRepo.MarkProcessed(ctx, nil, requestID, result.TransferID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !processed {
		// Raced a reject between the status check and the transfer. The
		// transfer went out; surface it loudly for reconciliation.
		s.logger.Error("transfer executed but request left approved state",
			ports.String("payout_request_id", id),
			ports.String("transfer_id", result.TransferID))
		return nil, domain.ErrInvalidTransition
	}

	s.audit.Record(ctx, actor, "payout.processed", "payout_request", id, nil,
		map[string]interface{}{"status": string(domain.PayoutStatusProcessed), "transfer_id": result.TransferID})

	s.logger.Info("payout request processed",
		ports.String("payout_request_id", id),
		ports.String("transfer_id", result.TransferID),
		ports.Int64("amount", request.Amount))

	return s.GetRequest(ctx, id)
}

// ListForLandlord lists a landlord's requests, newest first
func (s *Service) ListForLandlord(ctx context.Context, landlordID string, limit, offset int32) ([]*domain.PayoutRequest, error) {
	if landlordID == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "landlord_id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.payoutRepo.ListByLandlord(ctx, nil, landlordID, limit, offset)
}

// ListPending returns the admin review queue, oldest first
func (s *Service) ListPending(ctx context.Context, limit, offset int32) ([]*domain.PayoutRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.payoutRepo.ListByStatus(ctx, nil, domain.PayoutStatusPending, limit, offset)
}
