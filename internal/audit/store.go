package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metalagman/normareg/internal/state"
)

// ErrNotFound is returned by Get when no audit row exists for the given
// execution_id, mirroring retrieve_execution's None-on-not-found semantics.
var ErrNotFound = errors.New("audit: execution not found")

// Store persists one audit_logs row per pipeline run, keyed by
// execution_id, grounded on original_source/backend/services/audit.py's
// AuditService.save_execution/retrieve_execution, using a
// transaction-per-operation shape with Postgres placeholders.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated audit database connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Save writes exactly one audit_logs row for s.ExecutionID, inserting on
// first save and overwriting on re-save (the Orchestrator calls Save once,
// after the pipeline halts or completes, but ON CONFLICT keeps a retried
// save idempotent rather than erroring on the unique constraint).
func (s *Store) Save(ctx context.Context, st *state.SharedState) error {
	var structuredModel any
	if st.RegulatoryModel != nil {
		b, err := json.Marshal(st.RegulatoryModel)
		if err != nil {
			return fmt.Errorf("marshal regulatory model: %w", err)
		}
		structuredModel = b
	}
	impactedFiles, err := json.Marshal(nonNilSlice(st.ImpactedFiles))
	if err != nil {
		return fmt.Errorf("marshal impacted files: %w", err)
	}
	impactAnalysis, err := json.Marshal(nonNilSlice(st.ImpactAnalysis))
	if err != nil {
		return fmt.Errorf("marshal impact analysis: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (
			execution_id, raw_text, change_detected, risk_level,
			structured_model, impacted_files, impact_analysis,
			technical_spec, kiro_prompt, error, "timestamp"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (execution_id) DO UPDATE SET
			raw_text = EXCLUDED.raw_text,
			change_detected = EXCLUDED.change_detected,
			risk_level = EXCLUDED.risk_level,
			structured_model = EXCLUDED.structured_model,
			impacted_files = EXCLUDED.impacted_files,
			impact_analysis = EXCLUDED.impact_analysis,
			technical_spec = EXCLUDED.technical_spec,
			kiro_prompt = EXCLUDED.kiro_prompt,
			error = EXCLUDED.error,
			"timestamp" = EXCLUDED."timestamp"`,
		st.ExecutionID, st.RawRegulatoryText, st.ChangeDetected, nullableString(string(st.RiskLevel)),
		structuredModel, impactedFiles, impactAnalysis,
		nullableString(st.TechnicalSpec), nullableString(st.KiroPrompt), nullableString(st.Error),
		st.ExecutionTimestamp)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert audit log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Get retrieves the audit row for an execution_id and reconstructs the
// SharedState it recorded. Returns ErrNotFound if no such row exists.
func (s *Store) Get(ctx context.Context, executionID string) (*state.SharedState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT execution_id, raw_text, change_detected, risk_level,
			structured_model, impacted_files, impact_analysis,
			technical_spec, kiro_prompt, error, "timestamp"
		FROM audit_logs WHERE execution_id = $1`, executionID)

	st, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return st, nil
}

// List returns the most recent audit rows, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]*state.SharedState, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, raw_text, change_detected, risk_level,
			structured_model, impacted_files, impact_analysis,
			technical_spec, kiro_prompt, error, "timestamp"
		FROM audit_logs ORDER BY "timestamp" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []*state.SharedState
	for rows.Next() {
		st, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return out, nil
}

// row is satisfied by both *sql.Row and *sql.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanRow(r row) (*state.SharedState, error) {
	var st state.SharedState
	var changeDetected sql.NullBool
	var riskLevel, technicalSpec, kiroPrompt, execErr sql.NullString
	var structuredModel, impactedFiles, impactAnalysis sql.NullString

	if err := r.Scan(
		&st.ExecutionID, &st.RawRegulatoryText, &changeDetected, &riskLevel,
		&structuredModel, &impactedFiles, &impactAnalysis,
		&technicalSpec, &kiroPrompt, &execErr, &st.ExecutionTimestamp,
	); err != nil {
		return nil, err
	}

	if changeDetected.Valid {
		v := changeDetected.Bool
		st.ChangeDetected = &v
	}
	st.RiskLevel = state.RiskLevel(riskLevel.String)
	st.TechnicalSpec = technicalSpec.String
	st.KiroPrompt = kiroPrompt.String
	st.Error = execErr.String

	if structuredModel.Valid && structuredModel.String != "" {
		var model state.RegulatoryModel
		if err := json.Unmarshal([]byte(structuredModel.String), &model); err != nil {
			return nil, fmt.Errorf("unmarshal structured_model: %w", err)
		}
		st.RegulatoryModel = &model
	}

	st.ImpactedFiles = []state.ImpactedFile{}
	if impactedFiles.Valid && impactedFiles.String != "" {
		if err := json.Unmarshal([]byte(impactedFiles.String), &st.ImpactedFiles); err != nil {
			return nil, fmt.Errorf("unmarshal impacted_files: %w", err)
		}
	}

	st.ImpactAnalysis = []state.Impact{}
	if impactAnalysis.Valid && impactAnalysis.String != "" {
		if err := json.Unmarshal([]byte(impactAnalysis.String), &st.ImpactAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal impact_analysis: %w", err)
		}
	}

	return &st, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
