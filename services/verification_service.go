package services

import (
	"context"
	"errors"
	"net/http"

	"settlement-service/models"
	"settlement-service/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VerificationService is the read-only reconciliation surface for client
// polling. It observes whatever the webhook processor has committed and
// never mutates Payment, Installment or Enrollment state.
type VerificationService interface {
	Verify(ctx context.Context, principal models.AuthenticatedPrincipal, referenceID string) (*models.PaymentSummary, *ServiceError)
	ListPayments(ctx context.Context, principal models.AuthenticatedPrincipal) ([]models.Payment, *ServiceError)
}

type verificationServiceImpl struct {
	payments    repository.PaymentRepository
	enrollments repository.EnrollmentRepository
	gateway     GatewayClient
	catalog     CourseCatalog
	logger      *zap.Logger
}

func NewVerificationService(
	payments repository.PaymentRepository,
	enrollments repository.EnrollmentRepository,
	gateway GatewayClient,
	catalog CourseCatalog,
	logger *zap.Logger,
) VerificationService {
	return &verificationServiceImpl{
		payments:    payments,
		enrollments: enrollments,
		gateway:     gateway,
		catalog:     catalog,
		logger:      logger,
	}
}

func (s *verificationServiceImpl) Verify(ctx context.Context, principal models.AuthenticatedPrincipal, referenceID string) (*models.PaymentSummary, *ServiceError) {
	payment, err := s.payments.GetPaymentByReferenceID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Diagnostic aid only: ask the gateway what it thinks, log the
			// answer, but create or update nothing locally.
			if status, remoteErr := s.gateway.VerifyRemote(ctx, referenceID); remoteErr == nil {
				s.logger.Info("Unknown reference id known to gateway",
					zap.String("reference_id", referenceID),
					zap.String("remote_status", status),
				)
			}
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Payment not found or still processing"}
		}
		s.logger.Error("Payment lookup failed",
			zap.String("reference_id", referenceID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to look up payment"}
	}

	if payment.UserID != principal.ID && !principal.IsAdmin() {
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "Not allowed to view this payment"}
	}

	summary := &models.PaymentSummary{Payment: payment}

	if course, err := s.catalog.GetCourse(ctx, payment.CourseID); err == nil {
		summary.CourseTitle = course.Title
	}

	if enrollment, err := s.enrollments.FindActive(ctx, payment.UserID, payment.CourseID); err == nil {
		summary.Enrolled = true
		summary.Enrollment = enrollment
	}

	if payment.Type == models.PaymentTypeInstallment {
		installments, err := s.payments.GetInstallmentsByPaymentID(ctx, payment.ID)
		if err != nil {
			s.logger.Warn("Installment lookup failed",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
		} else {
			summary.Installments = installments
		}
	}

	// For a still-pending payment the remote status can explain the wait.
	// Advisory only; local state is the system of record.
	if payment.Status == models.PaymentStatusPending && payment.GatewayTransactionID != nil {
		if status, err := s.gateway.VerifyRemote(ctx, *payment.GatewayTransactionID); err == nil {
			summary.GatewayAdvice = status
		}
	}

	return summary, nil
}

func (s *verificationServiceImpl) ListPayments(ctx context.Context, principal models.AuthenticatedPrincipal) ([]models.Payment, *ServiceError) {
	payments, err := s.payments.GetPaymentsByUserID(ctx, principal.ID)
	if err != nil {
		s.logger.Error("Payment list failed",
			zap.String("user_id", principal.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to list payments"}
	}
	return payments, nil
}
