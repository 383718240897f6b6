package repository

import (
	"context"

	"settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentRepository is the read surface over the enrollment table shared
// with the rest of the back office. All enrollment writes performed by this
// service happen inside the settlement transaction in PaymentRepository.
type EnrollmentRepository interface {
	FindActive(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
}

type gormEnrollmentRepo struct {
	db *gorm.DB
}

func NewGormEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &gormEnrollmentRepo{db: db}
}

func (r *gormEnrollmentRepo) FindActive(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.EnrollmentStatusActive).
		First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *gormEnrollmentRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrollment_date DESC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}
