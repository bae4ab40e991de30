package sqlitestore

import (
	"context"
	"encoding/json"

	"aeterna/internal/model"
)

func (s *Store) PersistEvents(_ context.Context, sessionID string, batch []model.TrajectoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var nextSeq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM trajectory_events WHERE session_id = ?`, sessionID).Scan(&nextSeq); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO trajectory_events (session_id, seq, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, event := range batch {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(sessionID, nextSeq+i, string(payload)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadEvents(_ context.Context, sessionID string) ([]model.TrajectoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM trajectory_events WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrajectoryEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var event model.TrajectoryEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
