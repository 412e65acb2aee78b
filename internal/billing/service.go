package billing

import (
	"context"
	"fmt"

	"github.com/isharax9/healthcare-system-sub000/internal/authz"
	"github.com/isharax9/healthcare-system-sub000/pkg/config"
	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/monitoring"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// Service implements the BillingService interface. Authorization is
// enforced here, once, at the entry point: the pipeline stages themselves
// are pure data transformation
type Service struct {
	config   *config.Config
	logger   *logger.Logger
	repo     interfaces.BillingRepository
	patients interfaces.PatientContextProvider
	pipeline *Pipeline
}

// New creates a new billing service
func New(cfg *config.Config, log *logger.Logger, repo interfaces.BillingRepository, patients interfaces.PatientContextProvider) *Service {
	return &Service{
		config:   cfg,
		logger:   log,
		repo:     repo,
		patients: patients,
		pipeline: NewPipeline(repo, log),
	}
}

// CreateBill builds a ledger record for the patient and drives it through
// the billing pipeline. The returned bool mirrors the pipeline outcome: on
// false the record's status and audit trail say what went wrong, and its
// final fields must not be trusted
func (s *Service) CreateBill(ctx context.Context, principal interfaces.PermissionSet, patientID, serviceDescription string, amount float64) (*types.LedgerRecord, bool, error) {
	if err := s.checkPermission(principal, authz.PermCreateBill, "bills"); err != nil {
		return nil, false, err
	}

	plan, err := s.patients.GetInsurancePlan(ctx, patientID)
	if err != nil {
		return nil, false, types.NewExternalError(types.ErrCodeInternalError, "failed to load patient insurance context", err)
	}

	record := types.NewLedgerRecord(patientID, serviceDescription, amount)
	request := types.NewBillingRequest(record, types.PatientContext{
		PatientID:     patientID,
		InsurancePlan: plan,
	}, principal.Username())

	ok := s.pipeline.Run(ctx, request)
	return record, ok, nil
}

// RecordPatientPayment applies a patient payment to an already-closed bill.
// This is a separate operation outside the pipeline; it never re-enters the
// stage chain. Payments that would push total receipts past the original
// amount are rejected, since reopening a fully paid bill has no defined
// semantics
func (s *Service) RecordPatientPayment(ctx context.Context, principal interfaces.PermissionSet, billID string, amount float64) (*types.LedgerRecord, error) {
	if err := s.checkPermission(principal, authz.PermProcessPayments, "payments"); err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "payment amount must be greater than zero", map[string]interface{}{
			"amount": amount,
		})
	}

	record, err := s.repo.GetBillByID(ctx, billID)
	if err != nil {
		return nil, err
	}

	if record.Status != types.StatusClosedPendingPayment {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("bill %s is not awaiting patient payment (status: %s)", billID, record.Status), nil)
	}

	if record.InsurancePaidAmount+record.PatientPaidAmount+amount > record.OriginalAmount {
		return nil, types.NewValidationError(types.ErrCodeOverpayment,
			fmt.Sprintf("payment of %.2f would exceed the original amount of %.2f", amount, record.OriginalAmount),
			map[string]interface{}{
				"insurance_paid": record.InsurancePaidAmount,
				"patient_paid":   record.PatientPaidAmount,
			})
	}

	record.PatientPaidAmount += amount
	record.AppendAudit(principal.Username(), fmt.Sprintf("patient payment of $%.2f recorded", amount))

	if record.RemainingBalance() <= 0 {
		record.Status = types.StatusClosedFullyPaid
		record.AppendAudit(principal.Username(), "bill fully paid")
	}

	if _, err := s.repo.Save(ctx, record); err != nil {
		return nil, types.NewInternalError(types.ErrCodeSaveFailed, "failed to save patient payment", err)
	}

	s.logger.WithBillID(record.ID).WithFields(map[string]interface{}{
		"amount": amount,
		"status": string(record.Status),
	}).Info("Patient payment recorded")

	return record, nil
}

// GetBill retrieves a single bill
func (s *Service) GetBill(ctx context.Context, principal interfaces.PermissionSet, billID string) (*types.LedgerRecord, error) {
	if err := s.checkPermission(principal, authz.PermAccessBilling, "bills"); err != nil {
		return nil, err
	}

	return s.repo.GetBillByID(ctx, billID)
}

// ListBills lists bills, optionally filtered by patient
func (s *Service) ListBills(ctx context.Context, principal interfaces.PermissionSet, patientID string) ([]*types.LedgerRecord, error) {
	if err := s.checkPermission(principal, authz.PermAccessBilling, "bills"); err != nil {
		return nil, err
	}

	return s.repo.ListBills(ctx, patientID)
}

// DeleteBill removes a bill
func (s *Service) DeleteBill(ctx context.Context, principal interfaces.PermissionSet, billID string) error {
	if err := s.checkPermission(principal, authz.PermDeleteBill, "bills"); err != nil {
		return err
	}

	if err := s.repo.DeleteBill(ctx, billID); err != nil {
		return err
	}

	s.logger.WithBillID(billID).Info("Bill deleted")
	return nil
}

// checkPermission evaluates one permission for the principal and emits the
// audit and metrics trail for the decision
func (s *Service) checkPermission(principal interfaces.PermissionSet, permission, resource string) error {
	allowed := principal.HasPermission(permission)

	monitoring.RecordPermissionCheck(permission, principal.Role(), allowed)
	s.logger.Audit(principal.Username(), permission, resource, allowed, nil)

	if !allowed {
		return types.NewAuthorizationError(types.ErrCodeForbidden,
			fmt.Sprintf("role %q does not have permission %q", principal.Role(), permission))
	}
	return nil
}
