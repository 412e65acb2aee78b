package billing

import (
	"context"
	"time"

	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/monitoring"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// Pipeline drives a billing request through the fixed stage chain
// validation -> insurance -> finalization. The chain is built fresh for
// every run and stages hold no per-run state, so concurrent runs over
// independent records are safe
type Pipeline struct {
	gateway interfaces.PersistenceGateway
	logger  *logger.Logger
}

// NewPipeline creates a new billing pipeline
func NewPipeline(gateway interfaces.PersistenceGateway, log *logger.Logger) *Pipeline {
	return &Pipeline{
		gateway: gateway,
		logger:  log,
	}
}

// Run processes one billing request and reports whether the run completed.
// On a false return the record's final fields must not be trusted, but the
// record itself is always safe to read: status and audit trail reflect
// exactly what happened
func (p *Pipeline) Run(ctx context.Context, req *types.BillingRequest) bool {
	stages := []ProcessingStage{
		NewValidationStage(p.logger),
		NewInsuranceStage(p.logger),
		NewFinalizationStage(p.gateway, p.logger),
	}

	for _, stage := range stages {
		start := time.Now()
		proceed := stage.Process(ctx, req)
		monitoring.RecordStageDuration(stage.Name(), time.Since(start))

		if !proceed {
			monitoring.RecordStageHalt(stage.Name())
			monitoring.RecordPipelineRun(false)

			p.logger.WithFields(map[string]interface{}{
				"stage":      stage.Name(),
				"patient_id": req.Record.PatientID,
				"status":     string(req.Record.Status),
			}).Warn("Billing pipeline halted")
			return false
		}
	}

	monitoring.RecordPipelineRun(true)
	return true
}
