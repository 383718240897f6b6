package models

import "time"

// Gateway-side notification statuses. Anything outside this set is stored
// for audit and otherwise ignored.
const (
	GatewayStatusCompleted = "COMPLETED"
	GatewayStatusFailed    = "FAILED"
	GatewayStatusPending   = "PENDING"
	GatewayStatusCancelled = "CANCELLED"
)

// GatewayNotification is the gateway-shaped webhook payload. Signature is an
// HMAC over the canonical serialization of the other fields.
type GatewayNotification struct {
	TransactionID string  `json:"transaction_id"`
	ReferenceID   string  `json:"reference_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	Timestamp     string  `json:"timestamp"`
	Signature     string  `json:"signature"`
}

// WebhookOutcome classifies what the processor did with a notification.
// Exposed for metrics and the ack body; never for the HTTP status.
type WebhookOutcome string

const (
	OutcomeApplied          WebhookOutcome = "applied"
	OutcomeDuplicate        WebhookOutcome = "duplicate"
	OutcomeConflict         WebhookOutcome = "conflict"
	OutcomeInvalidSignature WebhookOutcome = "invalid_signature"
	OutcomeUnknownReference WebhookOutcome = "unknown_reference"
	OutcomeIgnoredStatus    WebhookOutcome = "ignored_status"
	OutcomeError            WebhookOutcome = "error"
)

// EnrollmentEvent is published to Kafka after a payment settles so the
// notification service can send the confirmation email. Best effort.
type EnrollmentEvent struct {
	Type         string    `json:"type"` // "enrollment_confirmed"
	EnrollmentID string    `json:"enrollment_id"`
	PaymentID    string    `json:"payment_id"`
	UserID       string    `json:"user_id"`
	CourseID     string    `json:"course_id"`
	CourseTitle  string    `json:"course_title,omitempty"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Timestamp    time.Time `json:"timestamp"`
}

// InstallmentPlanItem is the client-supplied schedule slice for an
// installment payment.
type InstallmentPlanItem struct {
	Amount  float64   `json:"amount" binding:"required,gt=0"`
	DueDate time.Time `json:"due_date" binding:"required"`
}

// InitiatePaymentRequest is the checkout-UI input for starting a payment.
type InitiatePaymentRequest struct {
	CourseID      string                `json:"course_id" binding:"required"`
	Amount        float64               `json:"amount" binding:"required,gt=0"`
	Currency      string                `json:"currency" binding:"required"`
	PaymentType   string                `json:"payment_type" binding:"required"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	WalletType    string                `json:"wallet_type,omitempty"`
	Phone         string                `json:"phone,omitempty"`
	Installments  []InstallmentPlanItem `json:"installments,omitempty"`
}

// InitiatePaymentResponse is returned to the checkout UI.
type InitiatePaymentResponse struct {
	Success     bool   `json:"success"`
	PaymentID   string `json:"payment_id"`
	ReferenceID string `json:"reference_id"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentSummary is the read model served by the verification endpoint.
type PaymentSummary struct {
	Payment       *Payment      `json:"payment"`
	CourseTitle   string        `json:"course_title,omitempty"`
	Enrolled      bool          `json:"enrolled"`
	Enrollment    *Enrollment   `json:"enrollment,omitempty"`
	Installments  []Installment `json:"installments,omitempty"`
	GatewayAdvice string        `json:"gateway_advice,omitempty"` // advisory remote status, diagnostics only
}
