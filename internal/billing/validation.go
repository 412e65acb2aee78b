package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// ValidationStage rejects bills that fail basic business rules before any
// adjudication happens. First failing rule wins
type ValidationStage struct {
	logger *logger.Logger
}

// NewValidationStage creates a new validation stage
func NewValidationStage(log *logger.Logger) *ValidationStage {
	return &ValidationStage{logger: log}
}

// Name identifies the stage in logs and metrics
func (s *ValidationStage) Name() string {
	return "validation"
}

// Process validates the ledger record. Rules are checked in order: the
// amount must be positive, then the patient id must be non-blank
func (s *ValidationStage) Process(ctx context.Context, req *types.BillingRequest) bool {
	record := req.Record

	if record.OriginalAmount <= 0 {
		record.Status = types.StatusRejectedInvalidAmount
		record.AppendAudit(req.Actor, fmt.Sprintf("rejected: original amount %.2f must be greater than zero", record.OriginalAmount))

		s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), map[string]interface{}{
			"original_amount": record.OriginalAmount,
		})
		return false
	}

	if strings.TrimSpace(record.PatientID) == "" {
		record.Status = types.StatusRejectedMissingPatient
		record.AppendAudit(req.Actor, "rejected: patient ID is missing")

		s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), nil)
		return false
	}

	record.Status = types.StatusValidated
	record.AppendAudit(req.Actor, "passed initial validation")

	s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), nil)
	return true
}
