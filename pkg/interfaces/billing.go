package interfaces

import (
	"context"

	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// PermissionSet answers permission queries for an authenticated principal.
// Evaluation is total and deterministic for a given (role, permission) pair
type PermissionSet interface {
	HasPermission(permission string) bool
	Role() string
	Username() string
}

// PersistenceGateway persists ledger records. Save is an upsert: records
// without an id are inserted and assigned one, records with an id are
// updated in place
type PersistenceGateway interface {
	Save(ctx context.Context, record *types.LedgerRecord) (string, error)
}

// PatientContextProvider looks up the insurance plan on file for a patient.
// A patient with no plan yields (nil, nil)
type PatientContextProvider interface {
	GetInsurancePlan(ctx context.Context, patientID string) (*types.InsurancePlan, error)
}

// BillingRepository provides the read and delete side of bill storage on
// top of the persistence gateway
type BillingRepository interface {
	PersistenceGateway
	GetBillByID(ctx context.Context, id string) (*types.LedgerRecord, error)
	ListBills(ctx context.Context, patientID string) ([]*types.LedgerRecord, error)
	DeleteBill(ctx context.Context, id string) error
}

// BillingService is the role-gated entry point to the billing pipeline
type BillingService interface {
	CreateBill(ctx context.Context, principal PermissionSet, patientID, serviceDescription string, amount float64) (*types.LedgerRecord, bool, error)
	RecordPatientPayment(ctx context.Context, principal PermissionSet, billID string, amount float64) (*types.LedgerRecord, error)
	GetBill(ctx context.Context, principal PermissionSet, billID string) (*types.LedgerRecord, error)
	ListBills(ctx context.Context, principal PermissionSet, patientID string) ([]*types.LedgerRecord, error)
	DeleteBill(ctx context.Context, principal PermissionSet, billID string) error
}
