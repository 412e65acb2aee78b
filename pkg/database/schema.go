package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for billing storage
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createInsurancePlansTable,
		createPatientsTable,
		createBillsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createBillsIndexes,
		createPatientsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

const createInsurancePlansTable = `
CREATE TABLE IF NOT EXISTS insurance_plans (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	name VARCHAR(255) NOT NULL,
	coverage_percent NUMERIC(5,2) NOT NULL CHECK (coverage_percent >= 0 AND coverage_percent <= 100),
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);`

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	full_name VARCHAR(255) NOT NULL,
	insurance_plan_id UUID REFERENCES insurance_plans(id),
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);`

const createBillsTable = `
CREATE TABLE IF NOT EXISTS bills (
	id UUID PRIMARY KEY,
	patient_id VARCHAR(255) NOT NULL,
	service_description TEXT NOT NULL,
	original_amount NUMERIC(12,2) NOT NULL,
	insurance_plan_id UUID REFERENCES insurance_plans(id),
	insurance_paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	patient_paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	final_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	status VARCHAR(64) NOT NULL,
	audit_trail JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);`

const createBillsIndexes = `
CREATE INDEX IF NOT EXISTS idx_bills_patient_id ON bills(patient_id);
CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status);`

const createPatientsIndexes = `
CREATE INDEX IF NOT EXISTS idx_patients_insurance_plan_id ON patients(insurance_plan_id);`
