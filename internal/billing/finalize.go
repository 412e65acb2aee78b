package billing

import (
	"context"
	"fmt"

	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// FinalizationStage is the terminal stage: it freezes the remaining balance
// into the final amount, closes the bill, and persists it. The only stage
// that talks to storage
type FinalizationStage struct {
	gateway interfaces.PersistenceGateway
	logger  *logger.Logger
}

// NewFinalizationStage creates a new finalization stage
func NewFinalizationStage(gateway interfaces.PersistenceGateway, log *logger.Logger) *FinalizationStage {
	return &FinalizationStage{
		gateway: gateway,
		logger:  log,
	}
}

// Name identifies the stage in logs and metrics
func (s *FinalizationStage) Name() string {
	return "finalization"
}

// Process freezes the final amount, sets the terminal status, and saves the
// record. A persistence failure is surfaced once, never retried
func (s *FinalizationStage) Process(ctx context.Context, req *types.BillingRequest) bool {
	record := req.Record

	remaining := record.RemainingBalance()
	record.FinalAmount = remaining

	if remaining <= 0 {
		record.Status = types.StatusClosedFullyPaid
		record.AppendAudit(req.Actor, "finalized with no remaining balance")
	} else {
		record.Status = types.StatusClosedPendingPayment
		record.AppendAudit(req.Actor, fmt.Sprintf("finalized: $%.2f due from patient", remaining))
	}

	id, err := s.gateway.Save(ctx, record)
	if err != nil {
		record.Status = types.StatusErrorFailedToSave
		record.AppendAudit(req.Actor, fmt.Sprintf("CRITICAL: failed to save bill: %v", err))

		s.logger.WithFields(map[string]interface{}{
			"stage":      s.Name(),
			"patient_id": record.PatientID,
			"error":      err.Error(),
		}).Error("Failed to persist finalized bill")
		return false
	}

	record.ID = id
	record.AppendAudit(req.Actor, fmt.Sprintf("bill saved with id %s", id))

	s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), map[string]interface{}{
		"bill_id":      id,
		"final_amount": record.FinalAmount,
	})
	return true
}
