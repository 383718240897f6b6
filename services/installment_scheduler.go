package services

import (
	"fmt"
	"math"

	"settlement-service/models"

	"github.com/google/uuid"
)

// BuildInstallmentSchedule turns the client-supplied plan into pending
// Installment rows for a payment. The per-slice amounts must add up to the
// payment total within the rounding epsilon; the schedule is never mutated
// after creation. Installment #1 settles with the originating payment,
// 2..N belong to the external collector.
func BuildInstallmentSchedule(paymentID uuid.UUID, totalAmount float64, plan []models.InstallmentPlanItem) ([]models.Installment, error) {
	if len(plan) == 0 {
		return nil, fmt.Errorf("installment plan is empty")
	}

	var sum float64
	installments := make([]models.Installment, 0, len(plan))
	for i, item := range plan {
		if item.Amount <= 0 {
			return nil, fmt.Errorf("installment %d has non-positive amount", i+1)
		}
		if item.DueDate.IsZero() {
			return nil, fmt.Errorf("installment %d has no due date", i+1)
		}
		sum += item.Amount
		installments = append(installments, models.Installment{
			ID:                uuid.New(),
			PaymentID:         paymentID,
			InstallmentNumber: i + 1,
			Amount:            item.Amount,
			DueDate:           item.DueDate,
			IsPaid:            false,
			Status:            models.InstallmentStatusPending,
		})
	}

	if math.Abs(sum-totalAmount) > models.AmountEpsilon {
		return nil, fmt.Errorf("installment amounts sum to %.2f, payment total is %.2f", sum, totalAmount)
	}

	return installments, nil
}
