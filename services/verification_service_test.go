package services_test

import (
	"context"
	"net/http"
	"testing"

	"settlement-service/models"
	"settlement-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeEnrollmentRepo struct {
	payments *fakePaymentRepo
}

func (f *fakeEnrollmentRepo) FindActive(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	f.payments.mu.Lock()
	defer f.payments.mu.Unlock()
	for i := range f.payments.enrollments {
		e := f.payments.enrollments[i]
		if e.UserID == userID && e.CourseID == courseID && e.Status == models.EnrollmentStatusActive {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEnrollmentRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	f.payments.mu.Lock()
	defer f.payments.mu.Unlock()
	var out []models.Enrollment
	for _, e := range f.payments.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newVerifier(repo *fakePaymentRepo, gw *fakeGateway, catalog *fakeCatalog) services.VerificationService {
	return services.NewVerificationService(repo, &fakeEnrollmentRepo{payments: repo}, gw, catalog, zap.NewNop())
}

func TestVerify_PendingBeforeAnyWebhook(t *testing.T) {
	repo := newFakePaymentRepo()
	payment := seedPendingPayment(repo, "REF-V1", models.PaymentTypeOneTime)
	verifier := newVerifier(repo, &fakeGateway{}, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	summary, svcErr := verifier.Verify(context.Background(), principalFor(payment.UserID), "REF-V1")

	assert.Nil(t, svcErr)
	assert.Equal(t, models.PaymentStatusPending, summary.Payment.Status)
	assert.False(t, summary.Enrolled)
	assert.Nil(t, summary.Enrollment)
}

func TestVerify_NeverMutatesState(t *testing.T) {
	repo := newFakePaymentRepo()
	payment := seedPendingPayment(repo, "REF-V2", models.PaymentTypeOneTime)
	verifier := newVerifier(repo, &fakeGateway{remoteStatus: "COMPLETED"}, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	for i := 0; i < 5; i++ {
		_, svcErr := verifier.Verify(context.Background(), principalFor(payment.UserID), "REF-V2")
		assert.Nil(t, svcErr)
	}

	// The gateway may claim completion; the local record stays untouched
	// until the webhook processor says otherwise.
	stored, _ := repo.GetPaymentByReferenceID(context.Background(), "REF-V2")
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, 0, repo.activeEnrollments(payment.UserID, payment.CourseID))
}

func TestVerify_EnrichesWithCourseEnrollmentAndInstallments(t *testing.T) {
	repo := newFakePaymentRepo()
	payment := seedPendingPayment(repo, "REF-V3", models.PaymentTypeInstallment)
	catalog := &fakeCatalog{courses: map[uuid.UUID]services.Course{
		payment.CourseID: {ID: payment.CourseID, Title: "Intro to Go"},
	}}
	proc := services.NewWebhookProcessor(repo, &fakeGateway{}, &fakeDispatcher{}, catalog, zap.NewNop())
	repo.addInstallments([]models.Installment{
		{ID: uuid.New(), PaymentID: payment.ID, InstallmentNumber: 1, Amount: 50, Status: models.InstallmentStatusPending},
		{ID: uuid.New(), PaymentID: payment.ID, InstallmentNumber: 2, Amount: 50, Status: models.InstallmentStatusPending},
	})

	n, raw := notification("REF-V3", models.GatewayStatusCompleted, "valid-signature")
	proc.Process(context.Background(), n, raw)

	verifier := newVerifier(repo, &fakeGateway{}, catalog)
	summary, svcErr := verifier.Verify(context.Background(), principalFor(payment.UserID), "REF-V3")

	assert.Nil(t, svcErr)
	assert.Equal(t, "Intro to Go", summary.CourseTitle)
	assert.True(t, summary.Enrolled)
	assert.NotNil(t, summary.Enrollment)
	assert.Len(t, summary.Installments, 2)
}

func TestVerify_UnknownReferenceIsNotFound(t *testing.T) {
	repo := newFakePaymentRepo()
	gw := &fakeGateway{remoteStatus: "PENDING"}
	verifier := newVerifier(repo, gw, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	_, svcErr := verifier.Verify(context.Background(), principalFor(uuid.New()), "REF-NOPE")

	assert.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	// The remote fallback is advisory only and must not create anything.
	assert.Equal(t, 1, gw.remoteCalls)
	_, err := repo.GetPaymentByReferenceID(context.Background(), "REF-NOPE")
	assert.Error(t, err)
}

func TestVerify_ForeignPaymentIsForbidden(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPendingPayment(repo, "REF-V4", models.PaymentTypeOneTime)
	verifier := newVerifier(repo, &fakeGateway{}, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	_, svcErr := verifier.Verify(context.Background(), principalFor(uuid.New()), "REF-V4")

	assert.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
}

func TestVerify_AdminMayViewAnyPayment(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPendingPayment(repo, "REF-V5", models.PaymentTypeOneTime)
	verifier := newVerifier(repo, &fakeGateway{}, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	admin := models.AuthenticatedPrincipal{ID: uuid.New(), Role: "admin"}
	summary, svcErr := verifier.Verify(context.Background(), admin, "REF-V5")

	assert.Nil(t, svcErr)
	assert.NotNil(t, summary.Payment)
}

func TestListPayments_ReturnsOwnOnly(t *testing.T) {
	repo := newFakePaymentRepo()
	mine := seedPendingPayment(repo, "REF-V6", models.PaymentTypeOneTime)
	seedPendingPayment(repo, "REF-V7", models.PaymentTypeOneTime)
	verifier := newVerifier(repo, &fakeGateway{}, &fakeCatalog{courses: map[uuid.UUID]services.Course{}})

	payments, svcErr := verifier.ListPayments(context.Background(), principalFor(mine.UserID))

	assert.Nil(t, svcErr)
	assert.Len(t, payments, 1)
	assert.Equal(t, "REF-V6", payments[0].ReferenceID)
}
