package repository

import (
	"context"
	"errors"
	"time"

	"settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementResult reports what a completed-settlement transaction actually
// did, so the caller can distinguish a fresh apply from a replay.
type SettlementResult struct {
	AlreadySettled     bool
	Enrollment         *models.Enrollment
	EnrollmentCreated  bool
	InstallmentSettled bool
}

type PaymentRepository interface {
	// CreatePaymentWithSchedule persists a pending payment together with its
	// installment rows; an installment payment can never exist without its
	// schedule.
	CreatePaymentWithSchedule(ctx context.Context, payment *models.Payment, installments []models.Installment) error
	GetPaymentByReferenceID(ctx context.Context, referenceID string) (*models.Payment, error)
	GetPaymentsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	GetInstallmentsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]models.Installment, error)
	MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, transactionID string, paidAt time.Time) error

	// SettleCompleted applies a COMPLETED notification in one transaction:
	// payment flip, enrollment check-then-create, installment #1 settlement.
	SettleCompleted(ctx context.Context, payment *models.Payment, envelope string, gatewayTxID string, paidAt time.Time) (*SettlementResult, error)
	// SettleFailed applies a FAILED notification.
	SettleFailed(ctx context.Context, payment *models.Payment, envelope string) (bool, error)
	// SaveGatewayEnvelope records a non-final notification for audit only.
	SaveGatewayEnvelope(ctx context.Context, paymentID uuid.UUID, envelope string) error
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) CreatePaymentWithSchedule(ctx context.Context, payment *models.Payment, installments []models.Installment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		if len(installments) > 0 {
			if err := tx.Create(&installments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormPaymentRepo) GetPaymentByReferenceID(ctx context.Context, referenceID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) GetPaymentsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *gormPaymentRepo) GetInstallmentsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]models.Installment, error) {
	var installments []models.Installment
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("installment_number ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// MarkInstallmentPaid is the primitive the external installment collector
// uses for installments 2..N. Guarded so a paid installment is never
// re-marked.
func (r *gormPaymentRepo) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, transactionID string, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Installment{}).
		Where("id = ? AND is_paid = ?", installmentID, false).
		Updates(map[string]interface{}{
			"is_paid":        true,
			"status":         models.InstallmentStatusCompleted,
			"payment_date":   paidAt,
			"transaction_id": transactionID,
		}).Error
}

func (r *gormPaymentRepo) SettleCompleted(ctx context.Context, payment *models.Payment, envelope string, gatewayTxID string, paidAt time.Time) (*SettlementResult, error) {
	result := &SettlementResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Flip the payment only if it is still pending. Zero rows affected
		// means a concurrent delivery settled it first; bail out without
		// touching enrollment or installments again.
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":                 models.PaymentStatusCompleted,
				"gateway_response":       envelope,
				"gateway_transaction_id": gatewayTxID,
				"payment_date":           paidAt,
				"updated_at":             time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			result.AlreadySettled = true
			return nil
		}

		enrollment, created, err := findOrCreateEnrollment(tx, payment.UserID, payment.CourseID, paidAt)
		if err != nil {
			return err
		}
		result.Enrollment = enrollment
		result.EnrollmentCreated = created

		if payment.Type == models.PaymentTypeInstallment {
			res := tx.Model(&models.Installment{}).
				Where("payment_id = ? AND installment_number = ? AND is_paid = ?", payment.ID, 1, false).
				Updates(map[string]interface{}{
					"is_paid":        true,
					"status":         models.InstallmentStatusCompleted,
					"payment_date":   paidAt,
					"transaction_id": gatewayTxID,
				})
			if res.Error != nil {
				return res.Error
			}
			result.InstallmentSettled = res.RowsAffected > 0
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormPaymentRepo) SettleFailed(ctx context.Context, payment *models.Payment, envelope string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":           models.PaymentStatusFailed,
			"gateway_response": envelope,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormPaymentRepo) SaveGatewayEnvelope(ctx context.Context, paymentID uuid.UUID, envelope string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("gateway_response", envelope).Error
}

// findOrCreateEnrollment performs the guarded check-then-create inside the
// settlement transaction. The unique index on (user_id, course_id) is the
// backstop: a concurrent insert surfaces as a duplicate-key error which we
// resolve by re-reading the winner's row.
func findOrCreateEnrollment(tx *gorm.DB, userID, courseID uuid.UUID, enrolledAt time.Time) (*models.Enrollment, bool, error) {
	var existing models.Enrollment
	err := tx.Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.EnrollmentStatusActive).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	enrollment := models.Enrollment{
		ID:             uuid.New(),
		UserID:         userID,
		CourseID:       courseID,
		Status:         models.EnrollmentStatusActive,
		EnrollmentDate: enrolledAt,
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		// Lost the race to another delivery; the winner's row satisfies us.
		var winner models.Enrollment
		if lookupErr := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&winner).Error; lookupErr == nil {
			return &winner, false, nil
		}
		return nil, false, err
	}
	return &enrollment, true, nil
}
