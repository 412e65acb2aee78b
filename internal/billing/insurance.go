package billing

import (
	"context"
	"fmt"

	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// InsuranceStage applies the patient's insurance plan to the bill. It never
// halts the chain: a missing plan or zero coverage is a no-op, not a failure
type InsuranceStage struct {
	logger *logger.Logger
}

// NewInsuranceStage creates a new insurance adjudication stage
func NewInsuranceStage(log *logger.Logger) *InsuranceStage {
	return &InsuranceStage{logger: log}
}

// Name identifies the stage in logs and metrics
func (s *InsuranceStage) Name() string {
	return "insurance"
}

// Process applies coverage from the patient's plan, if one is on file
func (s *InsuranceStage) Process(ctx context.Context, req *types.BillingRequest) bool {
	record := req.Record
	plan := req.Patient.InsurancePlan

	if plan == nil {
		record.AppendAudit(req.Actor, "no insurance on file")

		s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), map[string]interface{}{
			"insurance_applied": false,
		})
		return true
	}

	amountToCover := record.OriginalAmount * plan.CoveragePercent / 100
	record.InsurancePaidAmount += amountToCover
	record.AppliedInsurancePlan = plan
	record.Status = types.StatusInsuranceProcessed
	record.AppendAudit(req.Actor, fmt.Sprintf("applied insurance plan %s (%g%% coverage), covered $%.2f",
		plan.Name, plan.CoveragePercent, amountToCover))

	s.logger.BillingEvent(s.Name(), record.PatientID, string(record.Status), map[string]interface{}{
		"insurance_applied": true,
		"plan":              plan.Name,
		"covered_amount":    amountToCover,
	})
	return true
}
