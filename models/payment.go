package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentType string

const (
	PaymentTypeOneTime     PaymentType = "one_time"
	PaymentTypeInstallment PaymentType = "installment"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "pending"
	InstallmentStatusCompleted InstallmentStatus = "completed"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive EnrollmentStatus = "active"
)

// AmountEpsilon is the tolerance used when comparing monetary sums.
const AmountEpsilon = 0.01

// Payment is one purchase attempt. ReferenceID is generated at initiation,
// echoed back by the gateway, and is the idempotency key for all webhook
// processing.
type Payment struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	CourseID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"course_id"`
	Amount               float64        `gorm:"not null" json:"amount"`
	Currency             string         `gorm:"type:varchar(10);not null" json:"currency"`
	Type                 PaymentType    `gorm:"type:varchar(20);not null" json:"type"`
	Status               PaymentStatus  `gorm:"type:varchar(20);not null" json:"status"`
	PaymentMethod        string         `gorm:"type:varchar(50)" json:"payment_method"`
	WalletType           *string        `gorm:"type:varchar(50)" json:"wallet_type,omitempty"`
	ReferenceID          string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_id"`
	GatewayTransactionID *string        `gorm:"type:varchar(128)" json:"gateway_transaction_id,omitempty"`
	GatewayResponse      *string        `gorm:"type:jsonb" json:"-"` // serialized GatewayEnvelope, audit only
	RedirectURL          *string        `gorm:"type:varchar(1024)" json:"redirect_url,omitempty"`
	PaymentDate          *time.Time     `json:"payment_date,omitempty"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`

	Installments []Installment `gorm:"foreignKey:PaymentID" json:"installments,omitempty"`
}

// Installment is one scheduled slice of an installment Payment. Numbers are
// contiguous from 1; only #1 is settled by this service.
type Installment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID         uuid.UUID         `gorm:"type:uuid;index:idx_payment_installment,unique;not null" json:"payment_id"`
	InstallmentNumber int               `gorm:"index:idx_payment_installment,unique;not null" json:"installment_number"`
	Amount            float64           `gorm:"not null" json:"amount"`
	DueDate           time.Time         `gorm:"not null" json:"due_date"`
	IsPaid            bool              `gorm:"not null;default:false" json:"is_paid"`
	Status            InstallmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	PaymentDate       *time.Time        `json:"payment_date,omitempty"`
	TransactionID     *string           `gorm:"type:varchar(128)" json:"transaction_id,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// Enrollment is a user's registration in a course, created here only as a
// side effect of a completed Payment. The composite unique index backs the
// at-most-one-per-(user,course) invariant under concurrent webhooks.
type Enrollment struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;index:idx_user_course,unique;not null" json:"user_id"`
	CourseID       uuid.UUID        `gorm:"type:uuid;index:idx_user_course,unique;not null" json:"course_id"`
	Status         EnrollmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	EnrollmentDate time.Time        `gorm:"not null" json:"enrollment_date"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// GatewayEnvelope is the typed audit record for the last notification seen
// for a payment. Raw survives gateway schema drift; ParsedStatus is what we
// made of it at the time.
type GatewayEnvelope struct {
	Raw          string    `json:"raw"`
	ParsedStatus string    `json:"parsed_status"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Serialize renders the envelope for the jsonb column.
func (e GatewayEnvelope) Serialize() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// AuthenticatedPrincipal is the caller identity, extracted from the bearer
// token by middleware and passed by value into every operation that needs
// authorization context.
type AuthenticatedPrincipal struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the principal may read payments it does not own.
func (p AuthenticatedPrincipal) IsAdmin() bool {
	return p.Role == "admin"
}
