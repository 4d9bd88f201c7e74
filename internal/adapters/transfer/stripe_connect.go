package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/pkg/resilience"
)

const maxTransferAttempts = 3

// StripeConnectAdapter executes payouts as Stripe Connect transfers to the
// landlord's connected account.
type StripeConnectAdapter struct {
	baseURL    string
	apiKey     string
	httpClient ports.HTTPClient
	backoff    resilience.BackoffStrategy
	timeouts   *resilience.TimeoutConfig
	logger     ports.Logger
}

// NewStripeConnectAdapter creates a new Stripe Connect transfer adapter
func NewStripeConnectAdapter(baseURL, apiKey string, httpClient ports.HTTPClient, logger ports.Logger) *StripeConnectAdapter {
	return &StripeConnectAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		backoff:    resilience.TransferBackoff(),
		timeouts:   resilience.DefaultTimeoutConfig(),
		logger:     logger,
	}
}

type stripeTransferResponse struct {
	ID string `json:"id"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute creates a transfer to the connected account. The payout request id
// rides along as the Idempotency-Key, so a retried call after an ambiguous
// failure cannot move funds twice.
func (a *StripeConnectAdapter) Execute(ctx context.Context, req *ports.TransferRequest) (*ports.TransferResult, error) {
	if req.Method != domain.PayoutMethodStripeConnect {
		return nil, domain.NewDomainError(domain.ErrorCodePayoutMethodInvalid,
			fmt.Sprintf("stripe connect adapter cannot execute %s payouts", req.Method))
	}
	if req.ConnectAccountID == "" {
		return nil, domain.ErrPayoutConnectAccountMissing
	}

	formData := url.Values{}
	formData.Set("amount", strconv.FormatInt(req.Amount, 10))
	formData.Set("currency", strings.ToLower(req.Currency))
	formData.Set("destination", req.ConnectAccountID)
	formData.Set("metadata[payout_request_id]", req.IdempotencyKey)

	var lastErr error
	for attempt := 0; attempt < maxTransferAttempts; attempt++ {
		if attempt > 0 {
			delay := a.backoff.NextDelay(attempt - 1)
			a.logger.Warn("Retrying stripe transfer",
				ports.String("payout_request_id", req.IdempotencyKey),
				ports.Int("attempt", attempt),
				ports.String("delay", delay.String()),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		attemptCtx, cancel := a.timeouts.RetryAttemptContext(ctx)
		result, retryable, err := a.createTransfer(attemptCtx, formData, req.IdempotencyKey)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, domain.WrapError(domain.ErrorCodeTransferFailed, "stripe transfer failed", lastErr)
}

func (a *StripeConnectAdapter) createTransfer(ctx context.Context, formData url.Values, idempotencyKey string) (*ports.TransferResult, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/transfers", strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build transfer request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are retryable; the idempotency key keeps this safe
		return nil, true, fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read transfer response: %w", err)
	}

	var parsed stripeTransferResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse transfer response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("stripe returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, false, fmt.Errorf("stripe rejected transfer (status %d): %s", resp.StatusCode, msg)
	}
	if parsed.ID == "" {
		return nil, false, fmt.Errorf("stripe response missing transfer id")
	}

	a.logger.Info("Stripe transfer created",
		ports.String("transfer_id", parsed.ID),
		ports.String("payout_request_id", idempotencyKey),
	)

	return &ports.TransferResult{TransferID: parsed.ID}, false, nil
}
