package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"

	"aeterna/internal/model"
)

func (s *Store) GetLatestDriftResult(_ context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		significant                     int
		driftScore                      float64
		violationsJSON, suppressedJSON  string
		timestamp                       int64
	)
	row := s.db.QueryRow(
		`SELECT drift_score, violations, suppressed_violations, is_significant, timestamp
		 FROM drift_results WHERE tenant_id = ? AND project_id = ?`,
		tenant.TenantID, projectID,
	)
	if err := row.Scan(&driftScore, &violationsJSON, &suppressedJSON, &significant, &timestamp); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var violations, suppressed []model.Violation
	if err := json.Unmarshal([]byte(violationsJSON), &violations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(suppressedJSON), &suppressed); err != nil {
		return nil, err
	}

	return &model.DriftResult{
		ProjectID:            projectID,
		DriftScore:           driftScore,
		Violations:           violations,
		SuppressedViolations: suppressed,
		Timestamp:            timestamp,
		IsSignificant:        significant != 0,
	}, nil
}

// SaveLatestDriftResult persists result, matching the extra surface
// the in-memory adapter also exposes beyond the narrower
// storage.Backend contract.
func (s *Store) SaveLatestDriftResult(tenant model.TenantContext, result model.DriftResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	violationsJSON, err := json.Marshal(result.Violations)
	if err != nil {
		return err
	}
	suppressedJSON, err := json.Marshal(result.SuppressedViolations)
	if err != nil {
		return err
	}

	significant := 0
	if result.IsSignificant {
		significant = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO drift_results (tenant_id, project_id, drift_score, violations, suppressed_violations, is_significant, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, project_id) DO UPDATE SET
			drift_score = excluded.drift_score,
			violations = excluded.violations,
			suppressed_violations = excluded.suppressed_violations,
			is_significant = excluded.is_significant,
			timestamp = excluded.timestamp`,
		tenant.TenantID, result.ProjectID, result.DriftScore, string(violationsJSON), string(suppressedJSON), significant, result.Timestamp,
	)
	return err
}

func (s *Store) SaveDriftConfig(_ context.Context, cfg model.DriftConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	autoSuppress := 0
	if cfg.AutoSuppressInfo {
		autoSuppress = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO drift_configs (tenant_id, project_id, threshold, low_confidence_threshold, auto_suppress_info, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, project_id) DO UPDATE SET
			threshold = excluded.threshold,
			low_confidence_threshold = excluded.low_confidence_threshold,
			auto_suppress_info = excluded.auto_suppress_info,
			updated_at = excluded.updated_at`,
		cfg.TenantID, cfg.ProjectID, cfg.Threshold, cfg.LowConfidenceThreshold, autoSuppress, cfg.UpdatedAt,
	)
	return err
}

func (s *Store) DriftConfig(tenantID, projectID string) (model.DriftConfig, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg model.DriftConfig
	var autoSuppress int
	cfg.TenantID, cfg.ProjectID = tenantID, projectID
	row := s.db.QueryRow(
		`SELECT threshold, low_confidence_threshold, auto_suppress_info, updated_at
		 FROM drift_configs WHERE tenant_id = ? AND project_id = ?`,
		tenantID, projectID,
	)
	if err := row.Scan(&cfg.Threshold, &cfg.LowConfidenceThreshold, &autoSuppress, &cfg.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.DriftConfig{}, false, nil
		}
		return model.DriftConfig{}, false, err
	}
	cfg.AutoSuppressInfo = autoSuppress != 0
	return cfg, true, nil
}

func (s *Store) GetGovernanceEvents(_ context.Context, tenant model.TenantContext, since int64, limit int) ([]model.GovernanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT event_type, payload, timestamp FROM governance_events
	          WHERE tenant_id = ? AND timestamp >= ? ORDER BY timestamp ASC`
	args := []interface{}{tenant.TenantID, since}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GovernanceEvent
	for rows.Next() {
		var eventType, payload string
		var timestamp int64
		if err := rows.Scan(&eventType, &payload, &timestamp); err != nil {
			return nil, err
		}
		ev, err := decodeGovernanceEvent(model.GovernanceEventType(eventType), payload, timestamp)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PersistGovernanceEvent stores a single event in the audit trail this
// Backend serves back through GetGovernanceEvents. Nothing in this
// module calls it; the Engine's CheckDrift persists only the
// DriftResult, via SaveLatestDriftResult.
func (s *Store) PersistGovernanceEvent(tenant model.TenantContext, event model.GovernanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := encodeGovernanceEvent(event)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO governance_events (tenant_id, event_type, payload, timestamp) VALUES (?, ?, ?, ?)`,
		tenant.TenantID, string(event.Type), payload, event.Timestamp,
	)
	return err
}

func encodeGovernanceEvent(event model.GovernanceEvent) (string, error) {
	b, err := json.Marshal(event)
	return string(b), err
}

func decodeGovernanceEvent(_ model.GovernanceEventType, payload string, _ int64) (model.GovernanceEvent, error) {
	var ev model.GovernanceEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
