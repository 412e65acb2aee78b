package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// MockPersistenceGateway is a mock implementation of PersistenceGateway
type MockPersistenceGateway struct {
	mock.Mock
}

func (m *MockPersistenceGateway) Save(ctx context.Context, record *types.LedgerRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func setupTestPipeline() (*Pipeline, *MockPersistenceGateway) {
	log := logger.New("debug")
	gateway := &MockPersistenceGateway{}
	return NewPipeline(gateway, log), gateway
}

func newTestRequest(record *types.LedgerRecord, plan *types.InsurancePlan) *types.BillingRequest {
	return types.NewBillingRequest(record, types.PatientContext{
		PatientID:     record.PatientID,
		InsurancePlan: plan,
	}, "admin")
}

func TestPipeline_RejectsInvalidAmount(t *testing.T) {
	pipeline, gateway := setupTestPipeline()

	for _, amount := range []float64{0, -1, -250.75} {
		record := types.NewLedgerRecord("patient-1", "Consultation", amount)
		ok := pipeline.Run(context.Background(), newTestRequest(record, nil))

		assert.False(t, ok)
		assert.Equal(t, types.StatusRejectedInvalidAmount, record.Status)
		assert.Equal(t, 0.0, record.InsurancePaidAmount, "no insurance logic may run after rejection")
		assert.Empty(t, record.ID)
	}

	gateway.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPipeline_RejectsMissingPatientID(t *testing.T) {
	pipeline, gateway := setupTestPipeline()

	for _, patientID := range []string{"", "   ", "\t"} {
		record := types.NewLedgerRecord(patientID, "Consultation", 100)
		ok := pipeline.Run(context.Background(), newTestRequest(record, nil))

		assert.False(t, ok)
		assert.Equal(t, types.StatusRejectedMissingPatient, record.Status)
	}

	gateway.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPipeline_AppliesInsuranceCoverage(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-1", nil)

	record := types.NewLedgerRecord("patient-1", "Surgery", 200)
	plan := &types.InsurancePlan{ID: "plan-1", Name: "HealthPlus", CoveragePercent: 30}

	ok := pipeline.Run(context.Background(), newTestRequest(record, plan))

	require.True(t, ok)
	assert.Equal(t, 60.0, record.InsurancePaidAmount)
	assert.Equal(t, 140.0, record.FinalAmount)
	assert.Equal(t, types.StatusClosedPendingPayment, record.Status)
	assert.Equal(t, plan, record.AppliedInsurancePlan)
	assert.Equal(t, "bill-1", record.ID)
}

func TestPipeline_FullCoverageClosesFullyPaid(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-2", nil)

	record := types.NewLedgerRecord("patient-1", "Checkup", 100)
	plan := &types.InsurancePlan{ID: "plan-2", Name: "FullCover", CoveragePercent: 100}

	ok := pipeline.Run(context.Background(), newTestRequest(record, plan))

	require.True(t, ok)
	assert.Equal(t, 0.0, record.FinalAmount)
	assert.Equal(t, types.StatusClosedFullyPaid, record.Status)
}

func TestPipeline_NoInsuranceOnFile(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-3", nil)

	record := types.NewLedgerRecord("patient-1", "X-Ray", 80)
	ok := pipeline.Run(context.Background(), newTestRequest(record, nil))

	require.True(t, ok)
	assert.Equal(t, 0.0, record.InsurancePaidAmount)
	assert.Nil(t, record.AppliedInsurancePlan)
	assert.Equal(t, 80.0, record.FinalAmount)
	assert.Equal(t, types.StatusClosedPendingPayment, record.Status)

	messages := auditMessages(record)
	assert.Contains(t, messages, "no insurance on file")

	// The pipeline still reached finalization
	gateway.AssertCalled(t, "Save", mock.Anything, record)
}

func TestPipeline_ZeroCoverageIsNoOpNotFailure(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-4", nil)

	record := types.NewLedgerRecord("patient-1", "MRI", 500)
	plan := &types.InsurancePlan{ID: "plan-3", Name: "NoCover", CoveragePercent: 0}

	ok := pipeline.Run(context.Background(), newTestRequest(record, plan))

	require.True(t, ok)
	assert.Equal(t, 0.0, record.InsurancePaidAmount)
	assert.Equal(t, types.StatusClosedPendingPayment, record.Status)
}

func TestPipeline_PersistenceFailure(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	record := types.NewLedgerRecord("patient-1", "Consultation", 150)
	ok := pipeline.Run(context.Background(), newTestRequest(record, nil))

	assert.False(t, ok)
	assert.Equal(t, types.StatusErrorFailedToSave, record.Status)
	assert.Empty(t, record.ID, "id must stay unset when the save fails")
}

func TestPipeline_AuditTrailIsDeterministic(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-5", nil)

	plan := &types.InsurancePlan{ID: "plan-1", Name: "HealthPlus", CoveragePercent: 30}

	first := types.NewLedgerRecord("patient-1", "Surgery", 200)
	second := types.NewLedgerRecord("patient-1", "Surgery", 200)

	require.True(t, pipeline.Run(context.Background(), newTestRequest(first, plan)))
	require.True(t, pipeline.Run(context.Background(), newTestRequest(second, plan)))

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, auditMessages(first), auditMessages(second), "identical inputs must produce identical audit content")
}

func TestPipeline_StatusMatchesAuditOrdering(t *testing.T) {
	pipeline, gateway := setupTestPipeline()
	gateway.On("Save", mock.Anything, mock.Anything).Return("bill-6", nil)

	record := types.NewLedgerRecord("patient-1", "Surgery", 200)
	plan := &types.InsurancePlan{ID: "plan-1", Name: "HealthPlus", CoveragePercent: 30}

	require.True(t, pipeline.Run(context.Background(), newTestRequest(record, plan)))

	messages := auditMessages(record)
	require.Len(t, messages, 4)
	assert.Equal(t, "passed initial validation", messages[0])
	assert.Contains(t, messages[1], "HealthPlus")
	assert.Contains(t, messages[1], "$60.00")
	assert.Contains(t, messages[2], "$140.00")
	assert.Contains(t, messages[3], "bill-6")
}

func auditMessages(record *types.LedgerRecord) []string {
	trail := record.AuditTrail()
	messages := make([]string, len(trail))
	for i, entry := range trail {
		messages[i] = entry.Message
	}
	return messages
}
