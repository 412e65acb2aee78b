package billing

import (
	"context"

	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// ProcessingStage is one unit of the billing pipeline. A stage mutates the
// ledger record in place, appends an audit entry describing what it did,
// and returns false to halt the chain. A stage must never leave the record
// in a status that contradicts its audit trail
type ProcessingStage interface {
	// Name identifies the stage in logs and metrics
	Name() string

	// Process runs the stage against one billing request and reports
	// whether the chain should continue
	Process(ctx context.Context, req *types.BillingRequest) bool
}
