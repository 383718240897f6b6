package services

import (
	"context"
	"errors"
	"time"

	"settlement-service/models"
	"settlement-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationDispatcher is the fire-and-forget seam to the notification
// service. Failures are logged, never rolled back, never re-raised to the
// gateway.
type NotificationDispatcher interface {
	EnrollmentConfirmed(ctx context.Context, event models.EnrollmentEvent) error
}

// WebhookProcessor applies gateway notifications to local state. It is the
// only mutating path for Payment status, Enrollment creation and
// installment #1; everything it does must stay safe under duplicate and
// concurrent delivery of the same reference id.
type WebhookProcessor interface {
	Process(ctx context.Context, notification models.GatewayNotification, raw []byte) models.WebhookOutcome
}

type webhookProcessorImpl struct {
	repo       repository.PaymentRepository
	gateway    GatewayClient
	dispatcher NotificationDispatcher
	catalog    CourseCatalog
	logger     *zap.Logger
}

func NewWebhookProcessor(
	repo repository.PaymentRepository,
	gateway GatewayClient,
	dispatcher NotificationDispatcher,
	catalog CourseCatalog,
	logger *zap.Logger,
) WebhookProcessor {
	return &webhookProcessorImpl{
		repo:       repo,
		gateway:    gateway,
		dispatcher: dispatcher,
		catalog:    catalog,
		logger:     logger,
	}
}

// Process runs the settlement state machine. It never returns an error: the
// outcome is for logging, metrics and the ack body, and the caller always
// acknowledges receipt regardless.
func (p *webhookProcessorImpl) Process(ctx context.Context, n models.GatewayNotification, raw []byte) models.WebhookOutcome {
	// Signature first, before touching any state. An invalid signature is
	// still acknowledged upstream so the gateway stops retrying, but nothing
	// it says is trusted.
	if !p.gateway.VerifySignature(n) {
		p.logger.Warn("Webhook signature verification failed",
			zap.String("reference_id", n.ReferenceID),
			zap.String("transaction_id", n.TransactionID),
		)
		return models.OutcomeInvalidSignature
	}

	payment, err := p.repo.GetPaymentByReferenceID(ctx, n.ReferenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to settle; not a condition the gateway should retry.
			p.logger.Warn("Webhook for unknown reference id",
				zap.String("reference_id", n.ReferenceID))
			return models.OutcomeUnknownReference
		}
		p.logger.Error("Payment lookup failed",
			zap.String("reference_id", n.ReferenceID), zap.Error(err))
		return models.OutcomeError
	}

	mapped := mapGatewayStatus(n.Status)

	// Terminal is immutable. An exact repeat is a silent duplicate; a
	// contradicting status is logged and rejected rather than re-applied.
	if payment.Status.IsTerminal() {
		if mapped == payment.Status {
			p.logger.Info("Duplicate webhook for settled payment",
				zap.String("reference_id", n.ReferenceID),
				zap.String("status", string(payment.Status)),
			)
			return models.OutcomeDuplicate
		}
		p.logger.Warn("Webhook contradicts terminal payment status, ignoring",
			zap.String("reference_id", n.ReferenceID),
			zap.String("recorded_status", string(payment.Status)),
			zap.String("reported_status", n.Status),
		)
		return models.OutcomeConflict
	}

	now := time.Now()
	envelope := models.GatewayEnvelope{
		Raw:          string(raw),
		ParsedStatus: string(mapped),
		ReceivedAt:   now,
	}

	switch mapped {
	case models.PaymentStatusCompleted:
		return p.applyCompleted(ctx, payment, n, envelope, now)

	case models.PaymentStatusFailed:
		applied, err := p.repo.SettleFailed(ctx, payment, envelope.Serialize())
		if err != nil {
			p.logger.Error("Failed to record failed payment",
				zap.String("reference_id", n.ReferenceID), zap.Error(err))
			return models.OutcomeError
		}
		if !applied {
			return models.OutcomeDuplicate
		}
		p.logger.Info("Payment failed",
			zap.String("reference_id", n.ReferenceID),
			zap.String("payment_id", payment.ID.String()),
		)
		return models.OutcomeApplied

	default:
		// PENDING, CANCELLED and anything unrecognized change no state;
		// keep the payload for audit.
		envelope.ParsedStatus = n.Status
		if err := p.repo.SaveGatewayEnvelope(ctx, payment.ID, envelope.Serialize()); err != nil {
			p.logger.Error("Failed to record gateway envelope",
				zap.String("reference_id", n.ReferenceID), zap.Error(err))
			return models.OutcomeError
		}
		p.logger.Info("Webhook with non-final status recorded",
			zap.String("reference_id", n.ReferenceID),
			zap.String("status", n.Status),
		)
		return models.OutcomeIgnoredStatus
	}
}

func (p *webhookProcessorImpl) applyCompleted(ctx context.Context, payment *models.Payment, n models.GatewayNotification, envelope models.GatewayEnvelope, now time.Time) models.WebhookOutcome {
	result, err := p.repo.SettleCompleted(ctx, payment, envelope.Serialize(), n.TransactionID, now)
	if err != nil {
		p.logger.Error("Settlement transaction failed",
			zap.String("reference_id", n.ReferenceID), zap.Error(err))
		return models.OutcomeError
	}
	if result.AlreadySettled {
		return models.OutcomeDuplicate
	}

	p.logger.Info("Payment completed",
		zap.String("reference_id", n.ReferenceID),
		zap.String("payment_id", payment.ID.String()),
		zap.Bool("enrollment_created", result.EnrollmentCreated),
		zap.Bool("installment_settled", result.InstallmentSettled),
	)

	// Email only on a fresh enrollment, after the transaction has
	// committed. Best effort from here on.
	if result.EnrollmentCreated && p.dispatcher != nil {
		event := models.EnrollmentEvent{
			Type:         "enrollment_confirmed",
			EnrollmentID: result.Enrollment.ID.String(),
			PaymentID:    payment.ID.String(),
			UserID:       payment.UserID.String(),
			CourseID:     payment.CourseID.String(),
			Amount:       payment.Amount,
			Currency:     payment.Currency,
			Timestamp:    now.UTC(),
		}
		if course, err := p.catalog.GetCourse(ctx, payment.CourseID); err == nil {
			event.CourseTitle = course.Title
		}
		if err := p.dispatcher.EnrollmentConfirmed(ctx, event); err != nil {
			p.logger.Warn("Failed to dispatch enrollment confirmation",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	}

	return models.OutcomeApplied
}

func mapGatewayStatus(status string) models.PaymentStatus {
	switch status {
	case models.GatewayStatusCompleted:
		return models.PaymentStatusCompleted
	case models.GatewayStatusFailed:
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}
