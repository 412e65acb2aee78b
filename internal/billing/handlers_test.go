package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/isharax9/healthcare-system-sub000/internal/authz"
	"github.com/isharax9/healthcare-system-sub000/pkg/config"
	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// MockBillingService is a mock implementation of BillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateBill(ctx context.Context, principal interfaces.PermissionSet, patientID, serviceDescription string, amount float64) (*types.LedgerRecord, bool, error) {
	args := m.Called(ctx, principal, patientID, serviceDescription, amount)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*types.LedgerRecord), args.Bool(1), args.Error(2)
}

func (m *MockBillingService) RecordPatientPayment(ctx context.Context, principal interfaces.PermissionSet, billID string, amount float64) (*types.LedgerRecord, error) {
	args := m.Called(ctx, principal, billID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LedgerRecord), args.Error(1)
}

func (m *MockBillingService) GetBill(ctx context.Context, principal interfaces.PermissionSet, billID string) (*types.LedgerRecord, error) {
	args := m.Called(ctx, principal, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LedgerRecord), args.Error(1)
}

func (m *MockBillingService) ListBills(ctx context.Context, principal interfaces.PermissionSet, patientID string) ([]*types.LedgerRecord, error) {
	args := m.Called(ctx, principal, patientID)
	return args.Get(0).([]*types.LedgerRecord), args.Error(1)
}

func (m *MockBillingService) DeleteBill(ctx context.Context, principal interfaces.PermissionSet, billID string) error {
	args := m.Called(ctx, principal, billID)
	return args.Error(0)
}

func setupTestHandlers() (*mux.Router, *MockBillingService, *authz.TokenValidator) {
	service := &MockBillingService{}
	validator := authz.NewTokenValidator(&config.JWTConfig{
		SecretKey:      "test-secret-key",
		AccessTokenTTL: 3600,
	})
	handlers := NewHandlers(service, validator, logger.New("debug"))

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router, service, validator
}

func adminToken(t *testing.T, validator *authz.TokenValidator) string {
	t.Helper()

	token, err := validator.GenerateToken(&types.User{ID: "user-1", Username: "alice", Role: types.RoleAdmin})
	require.NoError(t, err)
	return token
}

func TestHandlers_MissingTokenRejected(t *testing.T) {
	router, _, _ := setupTestHandlers()

	req := httptest.NewRequest("GET", "/api/v1/bills", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlers_InvalidTokenRejected(t *testing.T) {
	router, _, _ := setupTestHandlers()

	req := httptest.NewRequest("GET", "/api/v1/bills", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlers_CreateBill(t *testing.T) {
	router, service, validator := setupTestHandlers()

	record := types.NewLedgerRecord("patient-1", "Surgery", 200)
	record.ID = "bill-1"
	record.Status = types.StatusClosedPendingPayment
	service.On("CreateBill", mock.Anything, mock.Anything, "patient-1", "Surgery", 200.0).Return(record, true, nil)

	body := `{"patient_id": "patient-1", "service_description": "Surgery", "amount": 200}`
	req := httptest.NewRequest("POST", "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createBillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Processed)
	assert.Equal(t, "bill-1", resp.Bill.ID)
}

func TestHandlers_CreateBillRejectionReturns422(t *testing.T) {
	router, service, validator := setupTestHandlers()

	record := types.NewLedgerRecord("patient-1", "Surgery", -1)
	record.Status = types.StatusRejectedInvalidAmount
	service.On("CreateBill", mock.Anything, mock.Anything, "patient-1", "Surgery", -1.0).Return(record, false, nil)

	body := `{"patient_id": "patient-1", "service_description": "Surgery", "amount": -1}`
	req := httptest.NewRequest("POST", "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlers_ForbiddenMapsTo403(t *testing.T) {
	router, service, validator := setupTestHandlers()

	service.On("CreateBill", mock.Anything, mock.Anything, "patient-1", "Surgery", 200.0).
		Return(nil, false, types.NewAuthorizationError(types.ErrCodeForbidden, "not allowed"))

	body := `{"patient_id": "patient-1", "service_description": "Surgery", "amount": 200}`
	req := httptest.NewRequest("POST", "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlers_GetBillNotFoundMapsTo404(t *testing.T) {
	router, service, validator := setupTestHandlers()

	service.On("GetBill", mock.Anything, mock.Anything, "missing").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "bill missing not found"))

	req := httptest.NewRequest("GET", "/api/v1/bills/missing", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_RecordPayment(t *testing.T) {
	router, service, validator := setupTestHandlers()

	record := types.NewLedgerRecord("patient-1", "Surgery", 200)
	record.ID = "bill-1"
	record.Status = types.StatusClosedFullyPaid
	service.On("RecordPatientPayment", mock.Anything, mock.Anything, "bill-1", 140.0).Return(record, nil)

	req := httptest.NewRequest("POST", "/api/v1/bills/bill-1/payments", strings.NewReader(`{"amount": 140}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlers_DeleteBill(t *testing.T) {
	router, service, validator := setupTestHandlers()

	service.On("DeleteBill", mock.Anything, mock.Anything, "bill-1").Return(nil)

	req := httptest.NewRequest("DELETE", "/api/v1/bills/bill-1", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, validator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
