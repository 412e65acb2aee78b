package types

import (
	"encoding/json"
	"time"
)

// BillStatus represents the processing status of a ledger record
type BillStatus string

const (
	StatusNew                    BillStatus = "New"
	StatusValidated              BillStatus = "Validated"
	StatusInsuranceProcessed     BillStatus = "Insurance Processed"
	StatusClosedFullyPaid        BillStatus = "Closed - Fully Paid"
	StatusClosedPendingPayment   BillStatus = "Closed - Pending Patient Payment"
	StatusRejectedInvalidAmount  BillStatus = "Rejected: Invalid Amount"
	StatusRejectedMissingPatient BillStatus = "Rejected: Missing Patient ID"
	StatusErrorFailedToSave      BillStatus = "Error - Failed to Save"
)

// IsTerminal reports whether the pipeline performs no further automatic
// transitions from this status
func (s BillStatus) IsTerminal() bool {
	switch s {
	case StatusClosedFullyPaid, StatusClosedPendingPayment,
		StatusRejectedInvalidAmount, StatusRejectedMissingPatient,
		StatusErrorFailedToSave:
		return true
	}
	return false
}

// InsurancePlan is an immutable insurance coverage definition
type InsurancePlan struct {
	ID              string  `json:"id" db:"id"`
	Name            string  `json:"name" db:"name"`
	CoveragePercent float64 `json:"coverage_percent" db:"coverage_percent"`
}

// AuditEntry is a single timestamped entry in a bill's audit trail
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Message   string    `json:"message"`
}

// LedgerRecord is the mutable billing aggregate. The audit trail is
// append-only: mutate it through AppendAudit, never directly.
type LedgerRecord struct {
	ID                   string         `json:"id,omitempty" db:"id"`
	PatientID            string         `json:"patient_id" db:"patient_id"`
	ServiceDescription   string         `json:"service_description" db:"service_description"`
	OriginalAmount       float64        `json:"original_amount" db:"original_amount"`
	AppliedInsurancePlan *InsurancePlan `json:"applied_insurance_plan,omitempty"`
	InsurancePaidAmount  float64        `json:"insurance_paid_amount" db:"insurance_paid_amount"`
	PatientPaidAmount    float64        `json:"patient_paid_amount" db:"patient_paid_amount"`
	FinalAmount          float64        `json:"final_amount" db:"final_amount"`
	Status               BillStatus     `json:"status" db:"status"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`

	auditLog []AuditEntry
}

// NewLedgerRecord creates a fresh, unpersisted ledger record in the New state
func NewLedgerRecord(patientID, serviceDescription string, originalAmount float64) *LedgerRecord {
	now := time.Now()
	return &LedgerRecord{
		PatientID:          patientID,
		ServiceDescription: serviceDescription,
		OriginalAmount:     originalAmount,
		Status:             StatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// AppendAudit appends a timestamped entry to the audit trail. The actor is
// always passed explicitly; there is no ambient default
func (r *LedgerRecord) AppendAudit(actor, message string) {
	r.auditLog = append(r.auditLog, AuditEntry{
		Timestamp: time.Now(),
		Actor:     actor,
		Message:   message,
	})
}

// AuditTrail returns a copy of the audit trail in append order
func (r *LedgerRecord) AuditTrail() []AuditEntry {
	trail := make([]AuditEntry, len(r.auditLog))
	copy(trail, r.auditLog)
	return trail
}

// RestoreAuditTrail replaces the audit trail when rehydrating a record from
// storage. Not for use outside repositories
func (r *LedgerRecord) RestoreAuditTrail(entries []AuditEntry) {
	r.auditLog = make([]AuditEntry, len(entries))
	copy(r.auditLog, entries)
}

// RemainingBalance returns the amount still owed on this bill. Always
// derived, never stored
func (r *LedgerRecord) RemainingBalance() float64 {
	return r.OriginalAmount - r.InsurancePaidAmount - r.PatientPaidAmount
}

// MarshalJSON includes the audit trail alongside the exported fields
func (r *LedgerRecord) MarshalJSON() ([]byte, error) {
	type alias LedgerRecord
	return json.Marshal(&struct {
		*alias
		AuditTrail []AuditEntry `json:"audit_trail"`
	}{
		alias:      (*alias)(r),
		AuditTrail: r.AuditTrail(),
	})
}

// PatientContext carries the patient data the insurance stage needs
type PatientContext struct {
	PatientID     string         `json:"patient_id"`
	InsurancePlan *InsurancePlan `json:"insurance_plan,omitempty"`
}

// BillingRequest pairs one ledger record with its patient context for a
// single pipeline run. Created once per run, never reused. Actor is the
// username charged to audit entries written during the run
type BillingRequest struct {
	Record  *LedgerRecord
	Patient PatientContext
	Actor   string
}

// NewBillingRequest creates a billing request for one pipeline run
func NewBillingRequest(record *LedgerRecord, patient PatientContext, actor string) *BillingRequest {
	return &BillingRequest{
		Record:  record,
		Patient: patient,
		Actor:   actor,
	}
}
