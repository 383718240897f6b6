package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"settlement-service/models"
	"settlement-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// PaymentInitiator starts a new payment: validates input, asks the gateway
// for a redirect or direct charge, and persists the pending Payment plus any
// installment schedule. No money has settled and no enrollment exists when
// it returns.
type PaymentInitiator interface {
	Initiate(ctx context.Context, principal models.AuthenticatedPrincipal, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, *ServiceError)
}

type paymentInitiatorImpl struct {
	repo    repository.PaymentRepository
	gateway GatewayClient
	catalog CourseCatalog
	users   UserDirectory
	logger  *zap.Logger
}

func NewPaymentInitiator(
	repo repository.PaymentRepository,
	gateway GatewayClient,
	catalog CourseCatalog,
	users UserDirectory,
	logger *zap.Logger,
) PaymentInitiator {
	return &paymentInitiatorImpl{
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		users:   users,
		logger:  logger,
	}
}

func (s *paymentInitiatorImpl) Initiate(ctx context.Context, principal models.AuthenticatedPrincipal, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, *ServiceError) {
	if req.Amount <= 0 {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Amount must be positive"}
	}

	paymentType := models.PaymentType(req.PaymentType)
	if paymentType != models.PaymentTypeOneTime && paymentType != models.PaymentTypeInstallment {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Unrecognized payment type: " + req.PaymentType}
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid course ID"}
	}

	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Course not found"}
		}
		s.logger.Error("Course lookup failed", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Course catalog unavailable"}
	}

	// Validate the installment plan before any gateway call so a bad
	// schedule never leaves a dangling charge.
	paymentID := uuid.New()
	var installments []models.Installment
	if paymentType == models.PaymentTypeInstallment && len(req.Installments) > 0 {
		installments, err = BuildInstallmentSchedule(paymentID, req.Amount, req.Installments)
		if err != nil {
			return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: err.Error()}
		}
	}

	referenceID := newReferenceID(principal.ID, courseID)

	charge := ChargeRequest{
		ReferenceID:   referenceID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		PaymentMethod: req.PaymentMethod,
		WalletType:    req.WalletType,
		CustomerPhone: req.Phone,
		Description:   course.Title,
	}
	if contact, err := s.users.GetContact(ctx, principal.ID); err == nil {
		charge.CustomerEmail = contact.Email
		if charge.CustomerPhone == "" {
			charge.CustomerPhone = contact.Phone
		}
	} else {
		s.logger.Warn("User contact lookup failed, continuing without it",
			zap.String("user_id", principal.ID.String()), zap.Error(err))
	}

	// Wallet payments charge directly; everything else goes through the
	// hosted payment page.
	var gwResp *ChargeResponse
	if req.WalletType != "" {
		gwResp, err = s.gateway.ChargeDirect(ctx, charge)
	} else {
		gwResp, err = s.gateway.BuildRedirect(ctx, charge)
	}
	if err != nil {
		s.logger.Error("Gateway initiation failed",
			zap.String("reference_id", referenceID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Payment gateway unavailable"}
	}

	payment := &models.Payment{
		ID:            paymentID,
		UserID:        principal.ID,
		CourseID:      courseID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		Type:          paymentType,
		Status:        models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		ReferenceID:   referenceID,
	}
	if req.WalletType != "" {
		payment.WalletType = &req.WalletType
	}
	if gwResp.RedirectURL != "" {
		payment.RedirectURL = &gwResp.RedirectURL
	}
	if gwResp.TransactionID != "" {
		payment.GatewayTransactionID = &gwResp.TransactionID
	}

	// Payment and schedule stand or fall together; a pending installment
	// payment without its rows would settle with nothing for the collector
	// to advance.
	if err := s.repo.CreatePaymentWithSchedule(ctx, payment, installments); err != nil {
		s.logger.Error("Failed to persist payment",
			zap.String("reference_id", referenceID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to save payment"}
	}

	s.logger.Info("Payment initiated",
		zap.String("payment_id", paymentID.String()),
		zap.String("reference_id", referenceID),
		zap.String("course_id", courseID.String()),
		zap.String("type", string(paymentType)),
	)

	return &models.InitiatePaymentResponse{
		Success:     true,
		PaymentID:   paymentID.String(),
		ReferenceID: referenceID,
		RedirectURL: gwResp.RedirectURL,
	}, nil
}

// newReferenceID builds the idempotency key the gateway echoes back. It is
// never reused: user and course segments aid debugging, the nano timestamp
// and random suffix make collisions implausible.
func newReferenceID(userID, courseID uuid.UUID) string {
	return fmt.Sprintf("PAY-%s-%s-%d-%s",
		userID.String()[:8],
		courseID.String()[:8],
		time.Now().UnixNano(),
		uuid.NewString()[:8],
	)
}
