package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/isharax9/healthcare-system-sub000/pkg/database"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// Repository implements BillingRepository and PatientContextProvider on
// PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new billing repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Save upserts a ledger record. Records without an id are inserted and
// assigned one; records with an id are updated in place
func (r *Repository) Save(ctx context.Context, record *types.LedgerRecord) (string, error) {
	trailJSON, err := json.Marshal(record.AuditTrail())
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit trail: %w", err)
	}

	var planID sql.NullString
	if record.AppliedInsurancePlan != nil {
		planID = sql.NullString{String: record.AppliedInsurancePlan.ID, Valid: true}
	}

	record.UpdatedAt = time.Now()

	if record.ID == "" {
		id := uuid.New().String()

		query := `
			INSERT INTO bills (
				id, patient_id, service_description, original_amount,
				insurance_plan_id, insurance_paid_amount, patient_paid_amount,
				final_amount, status, audit_trail, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

		_, err = r.db.ExecContext(ctx, query,
			id, record.PatientID, record.ServiceDescription, record.OriginalAmount,
			planID, record.InsurancePaidAmount, record.PatientPaidAmount,
			record.FinalAmount, string(record.Status), trailJSON,
			record.CreatedAt, record.UpdatedAt,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert bill: %w", err)
		}

		r.logger.WithBillID(id).Debug("Bill inserted")
		return id, nil
	}

	query := `
		UPDATE bills SET
			insurance_plan_id = $2, insurance_paid_amount = $3,
			patient_paid_amount = $4, final_amount = $5, status = $6,
			audit_trail = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, planID, record.InsurancePaidAmount,
		record.PatientPaidAmount, record.FinalAmount, string(record.Status),
		trailJSON, record.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update bill: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return "", types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("bill %s not found", record.ID))
	}

	return record.ID, nil
}

// GetBillByID retrieves a single bill with its audit trail
func (r *Repository) GetBillByID(ctx context.Context, id string) (*types.LedgerRecord, error) {
	query := `
		SELECT b.id, b.patient_id, b.service_description, b.original_amount,
			b.insurance_paid_amount, b.patient_paid_amount, b.final_amount,
			b.status, b.audit_trail, b.created_at, b.updated_at,
			p.id, p.name, p.coverage_percent
		FROM bills b
		LEFT JOIN insurance_plans p ON p.id = b.insurance_plan_id
		WHERE b.id = $1`

	record, err := r.scanBill(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("bill %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return record, nil
}

// ListBills lists bills, newest first, optionally filtered by patient
func (r *Repository) ListBills(ctx context.Context, patientID string) ([]*types.LedgerRecord, error) {
	query := `
		SELECT b.id, b.patient_id, b.service_description, b.original_amount,
			b.insurance_paid_amount, b.patient_paid_amount, b.final_amount,
			b.status, b.audit_trail, b.created_at, b.updated_at,
			p.id, p.name, p.coverage_percent
		FROM bills b
		LEFT JOIN insurance_plans p ON p.id = b.insurance_plan_id`

	var args []interface{}
	if patientID != "" {
		query += ` WHERE b.patient_id = $1`
		args = append(args, patientID)
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var records []*types.LedgerRecord
	for rows.Next() {
		record, err := r.scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return records, nil
}

// DeleteBill removes a bill by id
func (r *Repository) DeleteBill(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("bill %s not found", id))
	}

	return nil
}

// GetInsurancePlan looks up the insurance plan on file for a patient. A
// patient with no plan yields (nil, nil)
func (r *Repository) GetInsurancePlan(ctx context.Context, patientID string) (*types.InsurancePlan, error) {
	query := `
		SELECT p.id, p.name, p.coverage_percent
		FROM patients pt
		JOIN insurance_plans p ON p.id = pt.insurance_plan_id
		WHERE pt.id = $1`

	var plan types.InsurancePlan
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(&plan.ID, &plan.Name, &plan.CoveragePercent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insurance plan: %w", err)
	}

	return &plan, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBill scans one bill row, including the joined insurance plan and the
// JSONB audit trail
func (r *Repository) scanBill(row rowScanner) (*types.LedgerRecord, error) {
	var record types.LedgerRecord
	var status string
	var trailJSON []byte
	var planID, planName sql.NullString
	var planCoverage sql.NullFloat64

	err := row.Scan(
		&record.ID, &record.PatientID, &record.ServiceDescription, &record.OriginalAmount,
		&record.InsurancePaidAmount, &record.PatientPaidAmount, &record.FinalAmount,
		&status, &trailJSON, &record.CreatedAt, &record.UpdatedAt,
		&planID, &planName, &planCoverage,
	)
	if err != nil {
		return nil, err
	}

	record.Status = types.BillStatus(status)

	if planID.Valid {
		record.AppliedInsurancePlan = &types.InsurancePlan{
			ID:              planID.String,
			Name:            planName.String,
			CoveragePercent: planCoverage.Float64,
		}
	}

	var trail []types.AuditEntry
	if len(trailJSON) > 0 {
		if err := json.Unmarshal(trailJSON, &trail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit trail: %w", err)
		}
	}
	record.RestoreAuditTrail(trail)

	return &record, nil
}
