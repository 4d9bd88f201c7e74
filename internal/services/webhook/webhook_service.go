package webhook

import (
	"context"
	"encoding/json"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/internal/services/ledger"
)

// Gateway event types this service understands. Anything else is
// acknowledged and ignored so the gateway stops retrying.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// Ledger is the slice of the ledger service the dispatcher drives
type Ledger interface {
	RecordConfirmedPayment(ctx context.Context, input *ledger.RecordPaymentInput) (*domain.PaymentEntry, error)
	ConfirmPayment(ctx context.Context, externalReference string) error
	MarkFailed(ctx context.Context, externalReference, reason string) error
}

// Event is the gateway webhook envelope
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	ID          string `json:"id"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Metadata    struct {
		ApplicationID string `json:"application_id"`
		LandlordID    string `json:"landlord_id"`
		PayerID       string `json:"payer_id"`
		Type          string `json:"type"`
	} `json:"metadata"`
}

type paymentIntent struct {
	ID               string `json:"id"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// Service turns verified gateway events into ledger operations. Delivery is
// at-least-once and out of order; every dispatch target is idempotent.
type Service struct {
	ledger Ledger
	logger ports.Logger
}

// NewService creates a new webhook dispatch service
func NewService(ledger Ledger, logger ports.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// ParseEvent decodes the envelope. The signature must already be verified;
// parsing failures map to a 400 with no partial writes.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload.WithDetail("reason", err.Error())
	}
	if event.Type == "" {
		return nil, domain.ErrInvalidPayload.WithDetail("reason", "missing event type")
	}
	return &event, nil
}

// Dispatch routes one event to its ledger operation. Returns (false, nil) for
// event types this service does not handle.
func (s *Service) Dispatch(ctx context.Context, event *Event) (bool, error) {
	switch event.Type {
	case EventCheckoutCompleted:
		return true, s.handleCheckoutCompleted(ctx, event)
	case EventPaymentSucceeded:
		intent, err := parseIntent(event)
		if err != nil {
			return true, err
		}
		return true, s.ledger.ConfirmPayment(ctx, intent.ID)
	case EventPaymentFailed:
		intent, err := parseIntent(event)
		if err != nil {
			return true, err
		}
		reason := "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			reason = intent.LastPaymentError.Message
		}
		return true, s.ledger.MarkFailed(ctx, intent.ID, reason)
	default:
		s.logger.Debug("ignoring unrecognized gateway event",
			ports.String("event_id", event.ID),
			ports.String("event_type", event.Type))
		return false, nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *Event) error {
	var session checkoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return domain.ErrInvalidPayload.WithDetail("reason", err.Error())
	}
	if session.ID == "" {
		return domain.ErrInvalidPayload.WithDetail("reason", "missing session id")
	}

	kind := domain.PaymentKind(session.Metadata.Type)
	_, err := s.ledger.RecordConfirmedPayment(ctx, &ledger.RecordPaymentInput{
		ExternalReference: session.ID,
		ApplicationID:     session.Metadata.ApplicationID,
		PayerUserID:       session.Metadata.PayerID,
		LandlordID:        session.Metadata.LandlordID,
		Amount:            session.AmountTotal,
		Currency:          session.Currency,
		Kind:              kind,
	})
	return err
}

func parseIntent(event *Event) (*paymentIntent, error) {
	var intent paymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, domain.ErrInvalidPayload.WithDetail("reason", err.Error())
	}
	if intent.ID == "" {
		return nil, domain.ErrInvalidPayload.WithDetail("reason", "missing payment intent id")
	}
	return &intent, nil
}
