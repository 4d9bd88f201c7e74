package payout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/internal/services/payout"
)

// MockDBPort mocks the database port
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockPayoutRepository mocks the payout repository
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, db ports.DBTX, request *domain.PayoutRequest) error {
	args := m.Called(ctx, db, request)
	return args.Error(0)
}

func (m *MockPayoutRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PayoutRequest, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutRequest), args.Error(1)
}

func (m *MockPayoutRepository) Approve(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, notes string, at time.Time) (bool, error) {
	args := m.Called(ctx, db, id, reviewedBy, notes, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) Reject(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, reason, notes string, at time.Time) (bool, error) {
	args := m.Called(ctx, db, id, reviewedBy, reason, notes, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) MarkProcessed(ctx context.Context, db ports.DBTX, id uuid.UUID, transferID string, at time.Time) (bool, error) {
	args := m.Called(ctx, db, id, transferID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) ListByLandlord(ctx context.Context, db ports.DBTX, landlordID string, limit, offset int32) ([]*domain.PayoutRequest, error) {
	args := m.Called(ctx, db, landlordID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PayoutRequest), args.Error(1)
}

func (m *MockPayoutRepository) ListByStatus(ctx context.Context, db ports.DBTX, status domain.PayoutStatus, limit, offset int32) ([]*domain.PayoutRequest, error) {
	args := m.Called(ctx, db, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PayoutRequest), args.Error(1)
}

// MockPaymentRepository mocks the claim-related payment repository methods
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) ClaimForPayout(ctx context.Context, db ports.DBTX, id uuid.UUID, payoutRequestID string, at time.Time) (bool, error) {
	args := m.Called(ctx, db, id, payoutRequestID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ReleaseClaims(ctx context.Context, db ports.DBTX, payoutRequestID string) (int64, error) {
	args := m.Called(ctx, db, payoutRequestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) ListEligibleForPayout(ctx context.Context, db ports.DBTX, landlordID string, limit int32) ([]*domain.PaymentEntry, error) {
	args := m.Called(ctx, db, landlordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentEntry), args.Error(1)
}

func (m *MockPaymentRepository) ListRelatedPaymentIDs(ctx context.Context, db ports.DBTX, payoutRequestID string) ([]string, error) {
	args := m.Called(ctx, db, payoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPaymentRepository) CreateIdempotent(ctx context.Context, db ports.DBTX, entry *domain.PaymentEntry) (bool, error) {
	return false, nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentEntry, error) {
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) GetByExternalReference(ctx context.Context, db ports.DBTX, externalReference string) (*domain.PaymentEntry, error) {
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) ConfirmPending(ctx context.Context, db ports.DBTX, externalReference string, heldAt, expiresAt time.Time) (bool, error) {
	return false, nil
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, db ports.DBTX, externalReference, reason string) (bool, error) {
	return false, nil
}

func (m *MockPaymentRepository) MarkRefunded(ctx context.Context, db ports.DBTX, id uuid.UUID, refundAmount int64, reason string) (bool, error) {
	return false, nil
}

func (m *MockPaymentRepository) ReleaseEscrow(ctx context.Context, db ports.DBTX, id uuid.UUID, interest, netAmount int64, releasedAt time.Time) (bool, error) {
	return false, nil
}

func (m *MockPaymentRepository) SetInspectionFlags(ctx context.Context, db ports.DBTX, id uuid.UUID, propertyVisited, documentsReceived *bool) error {
	return nil
}

func (m *MockPaymentRepository) ListForLandlord(ctx context.Context, db ports.DBTX, landlordID string, filter ports.PaymentFilter) ([]*domain.PaymentEntry, error) {
	return nil, nil
}

func (m *MockPaymentRepository) AggregateBalance(ctx context.Context, db ports.DBTX, landlordID string) (*domain.LandlordBalance, error) {
	return nil, nil
}

func (m *MockPaymentRepository) ListEarnings(ctx context.Context, db ports.DBTX, landlordID string, from, to *time.Time) ([]domain.EarningsLine, error) {
	return nil, nil
}

// stubBalances returns a fixed available balance
type stubBalances struct {
	available int64
}

func (s stubBalances) GetBalance(ctx context.Context, landlordID string) (*domain.LandlordBalance, error) {
	return &domain.LandlordBalance{LandlordID: landlordID, AvailableBalance: s.available}, nil
}

// MockTransferGateway mocks the external transfer call
type MockTransferGateway struct {
	mock.Mock
}

func (m *MockTransferGateway) Execute(ctx context.Context, req *ports.TransferRequest) (*ports.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TransferResult), args.Error(1)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...ports.Field)  {}
func (noopLogger) Error(string, ...ports.Field) {}
func (noopLogger) Warn(string, ...ports.Field)  {}
func (noopLogger) Debug(string, ...ports.Field) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, domain.Principal, string, string, string, map[string]interface{}, map[string]interface{}) {
}

func landlord() domain.Principal {
	return domain.Principal{UserID: "landlord-1", Role: domain.RoleLandlord}
}

func admin() domain.Principal {
	return domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
}

func eligibleEntry(net int64, createdAt time.Time) *domain.PaymentEntry {
	return &domain.PaymentEntry{
		ID:                uuid.New().String(),
		LandlordID:        "landlord-1",
		Status:            domain.PaymentStatusCompleted,
		LandlordNetAmount: net,
		CreatedAt:         createdAt,
	}
}

func newService(payoutRepo *MockPayoutRepository, paymentRepo *MockPaymentRepository, available int64, gateway ports.TransferGateway) *payout.Service {
	gateways := map[domain.PayoutMethod]ports.TransferGateway{}
	if gateway != nil {
		gateways[domain.PayoutMethodBankTransfer] = gateway
		gateways[domain.PayoutMethodStripeConnect] = gateway
	}
	return payout.NewService(new(MockDBPort), payoutRepo, paymentRepo,
		stubBalances{available: available}, gateways, noopAudit{}, noopLogger{})
}

func bankInput(amount int64) *payout.CreateRequestInput {
	return &payout.CreateRequestInput{
		LandlordID: "landlord-1",
		Amount:     amount,
		Currency:   "USD",
		Method:     domain.PayoutMethodBankTransfer,
		BankDetails: &domain.BankDetails{
			BankName:      "First National",
			AccountNumber: "12345678",
			AccountName:   "A. Landlord",
		},
	}
}

func TestCreateRequest_ClaimsOldestFirstWholeEntries(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 200000, nil)

	ctx := context.Background()
	now := time.Now().UTC()
	oldest := eligibleEntry(60000, now.Add(-72*time.Hour))
	middle := eligibleEntry(50000, now.Add(-48*time.Hour))
	newest := eligibleEntry(40000, now.Add(-24*time.Hour))

	paymentRepo.On("ListEligibleForPayout", ctx, nil, "landlord-1", int32(50)).
		Return([]*domain.PaymentEntry{oldest, middle, newest}, nil)
	paymentRepo.On("ClaimForPayout", ctx, nil, mock.Anything, mock.Anything, mock.Anything).
		Return(true, nil)
	payoutRepo.On("Create", ctx, nil, mock.AnythingOfType("*domain.PayoutRequest")).Return(nil)

	request, err := service.CreateRequest(ctx, landlord(), bankInput(100000))

	require.NoError(t, err)
	// 60000 + 50000 covers the 100000 ask; the newest entry stays unclaimed
	assert.Equal(t, int64(110000), request.Amount)
	assert.Equal(t, int64(100000), request.RequestedAmount)
	assert.Equal(t, []string{oldest.ID, middle.ID}, request.RelatedPayments)
	assert.Equal(t, domain.PayoutStatusPending, request.Status)
	paymentRepo.AssertNumberOfCalls(t, "ClaimForPayout", 2)
}

func TestCreateRequest_InsufficientBalance(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 50000, nil)

	_, err := service.CreateRequest(context.Background(), landlord(), bankInput(100000))

	assert.Equal(t, domain.ErrorCodePayoutInsufficientBalance, domain.GetErrorCode(err))
	paymentRepo.AssertNotCalled(t, "ClaimForPayout")
	payoutRepo.AssertNotCalled(t, "Create")
}

func TestCreateRequest_RejectsNonPositiveAmount(t *testing.T) {
	service := newService(new(MockPayoutRepository), new(MockPaymentRepository), 100000, nil)

	_, err := service.CreateRequest(context.Background(), landlord(), bankInput(0))

	assert.True(t, domain.IsValidationError(err))
}

func TestCreateRequest_RequiresMethodDetails(t *testing.T) {
	service := newService(new(MockPayoutRepository), new(MockPaymentRepository), 100000, nil)

	input := bankInput(50000)
	input.BankDetails = nil
	_, err := service.CreateRequest(context.Background(), landlord(), input)

	assert.True(t, domain.IsValidationError(err))
}

func TestCreateRequest_LosingClaimRaceMovesOn(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 200000, nil)

	ctx := context.Background()
	now := time.Now().UTC()
	contested := eligibleEntry(60000, now.Add(-72*time.Hour))
	fallback := eligibleEntry(70000, now.Add(-48*time.Hour))

	contestedID := uuid.MustParse(contested.ID)
	fallbackID := uuid.MustParse(fallback.ID)

	paymentRepo.On("ListEligibleForPayout", ctx, nil, "landlord-1", int32(50)).
		Return([]*domain.PaymentEntry{contested, fallback}, nil)
	// A concurrent request wins the first entry; the second claim succeeds
	paymentRepo.On("ClaimForPayout", ctx, nil, contestedID, mock.Anything, mock.Anything).
		Return(false, nil)
	paymentRepo.On("ClaimForPayout", ctx, nil, fallbackID, mock.Anything, mock.Anything).
		Return(true, nil)
	payoutRepo.On("Create", ctx, nil, mock.Anything).Return(nil)

	request, err := service.CreateRequest(ctx, landlord(), bankInput(50000))

	require.NoError(t, err)
	assert.Equal(t, int64(70000), request.Amount)
	assert.Equal(t, []string{fallback.ID}, request.RelatedPayments)
}

func TestCreateRequest_PoolRunsDryReleasesClaims(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 200000, nil)

	ctx := context.Background()
	only := eligibleEntry(30000, time.Now().UTC().Add(-24*time.Hour))
	onlyID := uuid.MustParse(only.ID)

	paymentRepo.On("ListEligibleForPayout", ctx, nil, "landlord-1", int32(50)).
		Return([]*domain.PaymentEntry{only}, nil).Once()
	paymentRepo.On("ClaimForPayout", ctx, nil, onlyID, mock.Anything, mock.Anything).
		Return(true, nil)
	// Second fetch finds nothing left to claim
	paymentRepo.On("ListEligibleForPayout", ctx, nil, "landlord-1", int32(50)).
		Return([]*domain.PaymentEntry{}, nil).Once()
	paymentRepo.On("ReleaseClaims", ctx, nil, mock.AnythingOfType("string")).
		Return(int64(1), nil)

	_, err := service.CreateRequest(ctx, landlord(), bankInput(100000))

	assert.Equal(t, domain.ErrorCodePayoutAllocationConflict, domain.GetErrorCode(err))
	paymentRepo.AssertCalled(t, "ReleaseClaims", ctx, nil, mock.AnythingOfType("string"))
	payoutRepo.AssertNotCalled(t, "Create")
}

func TestCancel_PendingByOwner(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 0, nil)

	ctx := context.Background()
	id := uuid.New()
	pending := &domain.PayoutRequest{
		ID:         id.String(),
		LandlordID: "landlord-1",
		Status:     domain.PayoutStatusPending,
	}
	rejected := *pending
	rejected.Status = domain.PayoutStatusRejected
	rejected.RejectionReason = domain.CancelledByLandlordReason

	payoutRepo.On("GetByID", ctx, nil, id).Return(pending, nil).Once()
	payoutRepo.On("Reject", ctx, mock.Anything, id, "landlord-1",
		domain.CancelledByLandlordReason, "", mock.AnythingOfType("time.Time")).
		Return(true, nil)
	paymentRepo.On("ReleaseClaims", ctx, mock.Anything, id.String()).Return(int64(2), nil)
	payoutRepo.On("GetByID", ctx, nil, id).Return(&rejected, nil).Once()
	paymentRepo.On("ListRelatedPaymentIDs", ctx, nil, id.String()).Return([]string{}, nil)

	got, err := service.Cancel(ctx, landlord(), id.String())

	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusRejected, got.Status)
	assert.Equal(t, domain.CancelledByLandlordReason, got.RejectionReason)
	payoutRepo.AssertExpectations(t)
}

func TestCancel_NotOwner(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, nil)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:         id.String(),
		LandlordID: "landlord-2",
		Status:     domain.PayoutStatusPending,
	}, nil)

	_, err := service.Cancel(ctx, landlord(), id.String())

	assert.True(t, domain.IsAuthError(err))
	payoutRepo.AssertNotCalled(t, "Reject")
}

func TestCancel_ApprovedIsConflict(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, nil)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:         id.String(),
		LandlordID: "landlord-1",
		Status:     domain.PayoutStatusApproved,
	}, nil)

	_, err := service.Cancel(ctx, landlord(), id.String())

	assert.True(t, domain.IsConflictError(err))
}

func TestApprove_Pending(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 0, nil)

	ctx := context.Background()
	id := uuid.New()
	approved := &domain.PayoutRequest{
		ID:         id.String(),
		LandlordID: "landlord-1",
		Status:     domain.PayoutStatusApproved,
		ReviewedBy: "admin-1",
	}

	payoutRepo.On("Approve", ctx, nil, id, "admin-1", "looks good", mock.AnythingOfType("time.Time")).
		Return(true, nil)
	payoutRepo.On("GetByID", ctx, nil, id).Return(approved, nil)
	paymentRepo.On("ListRelatedPaymentIDs", ctx, nil, id.String()).Return([]string{"p1"}, nil)

	got, err := service.Approve(ctx, admin(), id.String(), "looks good")

	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusApproved, got.Status)
	assert.Equal(t, []string{"p1"}, got.RelatedPayments)
}

func TestApprove_AlreadyReviewedIsConflict(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, nil)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("Approve", ctx, nil, id, "admin-1", "", mock.Anything).Return(false, nil)
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:     id.String(),
		Status: domain.PayoutStatusRejected,
	}, nil)

	_, err := service.Approve(ctx, admin(), id.String(), "")

	assert.True(t, domain.IsConflictError(err))
}

func TestReject_DeallocatesEntries(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	service := newService(payoutRepo, paymentRepo, 0, nil)

	ctx := context.Background()
	id := uuid.New()
	rejected := &domain.PayoutRequest{
		ID:              id.String(),
		Status:          domain.PayoutStatusRejected,
		RejectionReason: "stale bank details",
	}

	payoutRepo.On("Reject", ctx, mock.Anything, id, "admin-1", "stale bank details", "",
		mock.AnythingOfType("time.Time")).Return(true, nil)
	paymentRepo.On("ReleaseClaims", ctx, mock.Anything, id.String()).Return(int64(3), nil)
	payoutRepo.On("GetByID", ctx, nil, id).Return(rejected, nil)
	paymentRepo.On("ListRelatedPaymentIDs", ctx, nil, id.String()).Return([]string{}, nil)

	got, err := service.Reject(ctx, admin(), id.String(), "stale bank details", "")

	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusRejected, got.Status)
	paymentRepo.AssertCalled(t, "ReleaseClaims", ctx, mock.Anything, id.String())
}

func TestReject_RequiresReason(t *testing.T) {
	service := newService(new(MockPayoutRepository), new(MockPaymentRepository), 0, nil)

	_, err := service.Reject(context.Background(), admin(), uuid.New().String(), "", "")

	assert.True(t, domain.IsValidationError(err))
}

func TestProcess_ApprovedExecutesTransfer(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	paymentRepo := new(MockPaymentRepository)
	gateway := new(MockTransferGateway)
	service := newService(payoutRepo, paymentRepo, 0, gateway)

	ctx := context.Background()
	id := uuid.New()
	approvedAt := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	approved := &domain.PayoutRequest{
		ID:         id.String(),
		LandlordID: "landlord-1",
		Amount:     110000,
		Currency:   "USD",
		Method:     domain.PayoutMethodBankTransfer,
		BankDetails: &domain.BankDetails{
			BankName:      "First National",
			AccountNumber: "12345678",
			AccountName:   "A. Landlord",
		},
		Status:     domain.PayoutStatusApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: &approvedAt,
	}
	processedAt := approvedAt.Add(48 * time.Hour)
	processed := *approved
	processed.Status = domain.PayoutStatusProcessed
	processed.TransferID = "wire-789"
	processed.ProcessedAt = &processedAt

	payoutRepo.On("GetByID", ctx, nil, id).Return(approved, nil).Once()
	gateway.On("Execute", ctx, mock.MatchedBy(func(req *ports.TransferRequest) bool {
		return req.IdempotencyKey == id.String() &&
			req.Amount == int64(110000) &&
			req.OperatorReference == "wire-789"
	})).Return(&ports.TransferResult{TransferID: "wire-789"}, nil)
	payoutRepo.On("MarkProcessed", ctx, nil, id, "wire-789", mock.AnythingOfType("time.Time")).
		Return(true, nil)
	payoutRepo.On("GetByID", ctx, nil, id).Return(&processed, nil).Once()
	paymentRepo.On("ListRelatedPaymentIDs", ctx, nil, id.String()).Return([]string{"p1", "p2"}, nil)

	got, err := service.Process(ctx, admin(), id.String(), "wire-789")

	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusProcessed, got.Status)
	assert.Equal(t, "wire-789", got.TransferID)
	// Processing stamps its own timestamp; the approval record is untouched.
	require.NotNil(t, got.ReviewedAt)
	assert.Equal(t, approvedAt, *got.ReviewedAt)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, processedAt, *got.ProcessedAt)
	gateway.AssertExpectations(t)
}

func TestProcess_AlreadyProcessedIsConflict(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	gateway := new(MockTransferGateway)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, gateway)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:     id.String(),
		Status: domain.PayoutStatusProcessed,
	}, nil)

	_, err := service.Process(ctx, admin(), id.String(), "")

	assert.Equal(t, domain.ErrorCodePayoutAlreadyProcessed, domain.GetErrorCode(err))
	gateway.AssertNotCalled(t, "Execute")
}

func TestProcess_PendingIsConflict(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	gateway := new(MockTransferGateway)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, gateway)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:     id.String(),
		Status: domain.PayoutStatusPending,
	}, nil)

	_, err := service.Process(ctx, admin(), id.String(), "")

	assert.True(t, domain.IsConflictError(err))
	gateway.AssertNotCalled(t, "Execute")
}

func TestProcess_GatewayFailureLeavesApproved(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	gateway := new(MockTransferGateway)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, gateway)

	ctx := context.Background()
	id := uuid.New()
	payoutRepo.On("GetByID", ctx, nil, id).Return(&domain.PayoutRequest{
		ID:       id.String(),
		Amount:   50000,
		Currency: "USD",
		Method:   domain.PayoutMethodStripeConnect,
		Status:   domain.PayoutStatusApproved,
	}, nil)
	gateway.On("Execute", ctx, mock.Anything).
		Return(nil, domain.WrapError(domain.ErrorCodeTransferFailed, "stripe transfer failed", assert.AnError))

	_, err := service.Process(ctx, admin(), id.String(), "")

	assert.True(t, domain.IsGatewayError(err))
	// The request must stay approved for a retry
	payoutRepo.AssertNotCalled(t, "MarkProcessed")
}

func TestListPending_ClampsLimit(t *testing.T) {
	payoutRepo := new(MockPayoutRepository)
	service := newService(payoutRepo, new(MockPaymentRepository), 0, nil)

	ctx := context.Background()
	payoutRepo.On("ListByStatus", ctx, nil, domain.PayoutStatusPending, int32(50), int32(0)).
		Return([]*domain.PayoutRequest{}, nil)

	_, err := service.ListPending(ctx, 0, 0)

	require.NoError(t, err)
	payoutRepo.AssertExpectations(t)
}

// fakeClaimStore is an in-memory payment repository whose claim operations are
// atomic under a mutex, standing in for the conditional single-row updates the
// real repository issues. Only the claim path is implemented.
type fakeClaimStore struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*domain.PaymentEntry
	claims  map[string]string // entry id -> payout request id
}

func newFakeClaimStore() *fakeClaimStore {
	return &fakeClaimStore{
		entries: make(map[string]*domain.PaymentEntry),
		claims:  make(map[string]string),
	}
}

func (f *fakeClaimStore) add(entry *domain.PaymentEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, entry.ID)
	f.entries[entry.ID] = entry
}

func (f *fakeClaimStore) ListEligibleForPayout(ctx context.Context, db ports.DBTX, landlordID string, limit int32) ([]*domain.PaymentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var eligible []*domain.PaymentEntry
	for _, id := range f.order {
		if _, taken := f.claims[id]; taken {
			continue
		}
		if f.entries[id].LandlordID != landlordID {
			continue
		}
		eligible = append(eligible, f.entries[id])
		if int32(len(eligible)) >= limit {
			break
		}
	}
	return eligible, nil
}

func (f *fakeClaimStore) ClaimForPayout(ctx context.Context, db ports.DBTX, id uuid.UUID, payoutRequestID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := id.String()
	if _, taken := f.claims[key]; taken {
		return false, nil
	}
	if _, ok := f.entries[key]; !ok {
		return false, nil
	}
	f.claims[key] = payoutRequestID
	return true, nil
}

func (f *fakeClaimStore) ReleaseClaims(ctx context.Context, db ports.DBTX, payoutRequestID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var released int64
	for id, owner := range f.claims {
		if owner == payoutRequestID {
			delete(f.claims, id)
			released++
		}
	}
	return released, nil
}

func (f *fakeClaimStore) ListRelatedPaymentIDs(ctx context.Context, db ports.DBTX, payoutRequestID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, id := range f.order {
		if f.claims[id] == payoutRequestID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeClaimStore) CreateIdempotent(ctx context.Context, db ports.DBTX, entry *domain.PaymentEntry) (bool, error) {
	return false, nil
}

func (f *fakeClaimStore) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentEntry, error) {
	return nil, domain.ErrPaymentNotFound
}

func (f *fakeClaimStore) GetByExternalReference(ctx context.Context, db ports.DBTX, externalReference string) (*domain.PaymentEntry, error) {
	return nil, domain.ErrPaymentNotFound
}

func (f *fakeClaimStore) ConfirmPending(ctx context.Context, db ports.DBTX, externalReference string, heldAt, expiresAt time.Time) (bool, error) {
	return false, nil
}

func (f *fakeClaimStore) MarkFailed(ctx context.Context, db ports.DBTX, externalReference, reason string) (bool, error) {
	return false, nil
}

func (f *fakeClaimStore) MarkRefunded(ctx context.Context, db ports.DBTX, id uuid.UUID, refundAmount int64, reason string) (bool, error) {
	return false, nil
}

func (f *fakeClaimStore) ReleaseEscrow(ctx context.Context, db ports.DBTX, id uuid.UUID, interest, netAmount int64, releasedAt time.Time) (bool, error) {
	return false, nil
}

func (f *fakeClaimStore) SetInspectionFlags(ctx context.Context, db ports.DBTX, id uuid.UUID, propertyVisited, documentsReceived *bool) error {
	return nil
}

func (f *fakeClaimStore) ListForLandlord(ctx context.Context, db ports.DBTX, landlordID string, filter ports.PaymentFilter) ([]*domain.PaymentEntry, error) {
	return nil, nil
}

func (f *fakeClaimStore) AggregateBalance(ctx context.Context, db ports.DBTX, landlordID string) (*domain.LandlordBalance, error) {
	return nil, nil
}

func (f *fakeClaimStore) ListEarnings(ctx context.Context, db ports.DBTX, landlordID string, from, to *time.Time) ([]domain.EarningsLine, error) {
	return nil, nil
}

// fakePayoutStore records created requests; review methods are unused here
type fakePayoutStore struct {
	mu       sync.Mutex
	requests []*domain.PayoutRequest
}

func (f *fakePayoutStore) Create(ctx context.Context, db ports.DBTX, request *domain.PayoutRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	return nil
}

func (f *fakePayoutStore) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PayoutRequest, error) {
	return nil, domain.ErrPayoutNotFound
}

func (f *fakePayoutStore) Approve(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, notes string, at time.Time) (bool, error) {
	return false, nil
}

func (f *fakePayoutStore) Reject(ctx context.Context, db ports.DBTX, id uuid.UUID, reviewedBy, reason, notes string, at time.Time) (bool, error) {
	return false, nil
}

func (f *fakePayoutStore) MarkProcessed(ctx context.Context, db ports.DBTX, id uuid.UUID, transferID string, at time.Time) (bool, error) {
	return false, nil
}

func (f *fakePayoutStore) ListByLandlord(ctx context.Context, db ports.DBTX, landlordID string, limit, offset int32) ([]*domain.PayoutRequest, error) {
	return nil, nil
}

func (f *fakePayoutStore) ListByStatus(ctx context.Context, db ports.DBTX, status domain.PayoutStatus, limit, offset int32) ([]*domain.PayoutRequest, error) {
	return nil, nil
}

func TestCreateRequest_ConcurrentRequestsClaimDisjointEntries(t *testing.T) {
	store := newFakeClaimStore()
	payoutStore := &fakePayoutStore{}

	// 40 entries of 10000 net each, all for one landlord, shared by every racer
	const entryCount = 40
	const entryNet = int64(10000)
	now := time.Now().UTC()
	for i := 0; i < entryCount; i++ {
		store.add(eligibleEntry(entryNet, now.Add(time.Duration(-entryCount+i)*time.Hour)))
	}

	service := payout.NewService(new(MockDBPort), payoutStore, store,
		stubBalances{available: entryCount * entryNet},
		map[domain.PayoutMethod]ports.TransferGateway{}, noopAudit{}, noopLogger{})

	const workers = 8
	const askAmount = int64(50000)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan *domain.PayoutRequest, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			request, err := service.CreateRequest(ctx, landlord(), bankInput(askAmount))
			if err != nil {
				errs <- err
				return
			}
			results <- request
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	// A racer that found the pool drained must fail with the allocation
	// conflict, never a partial claim
	for err := range errs {
		assert.Equal(t, domain.ErrorCodePayoutAllocationConflict, domain.GetErrorCode(err))
	}

	// Every claimed entry belongs to exactly one request
	seen := make(map[string]string)
	for request := range results {
		assert.GreaterOrEqual(t, request.Amount, askAmount)
		var sum int64
		for _, paymentID := range request.RelatedPayments {
			if owner, dup := seen[paymentID]; dup {
				t.Fatalf("entry %s claimed by both %s and %s", paymentID, owner, request.ID)
			}
			seen[paymentID] = request.ID
			sum += entryNet
		}
		assert.Equal(t, request.Amount, sum)

		// The store agrees with the request about what it owns
		owned, err := store.ListRelatedPaymentIDs(ctx, nil, request.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, request.RelatedPayments, owned)
	}

	// No entry may be left claimed by a failed request
	store.mu.Lock()
	defer store.mu.Unlock()
	for id, owner := range store.claims {
		assert.Equal(t, owner, seen[id], "entry %s claimed by unknown request", id)
	}
}
