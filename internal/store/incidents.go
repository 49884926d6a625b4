package store

import (
	"context"
	"fmt"

	"tisops-insights-go/internal/types"
)

const incidentColumns = `request_id, subject, technician, priority, request_status, aplicativos,
	categorizacion, modulo, recurrencia, created_time, parent_ticket_id, linked_ticket_count`

// UpsertIncidents replaces incidents by request id. batch tags the import.
func (s *Store) UpsertIncidents(ctx context.Context, batch string, items []types.RawIncident) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`REPLACE INTO incidents (`+incidentColumns+`, import_batch)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, it := range items {
		_, err := stmt.ExecContext(ctx,
			it.RequestID, it.Subject, it.Technician, it.Priority, it.Status, it.Application,
			it.Category, it.Module, it.Recurrence, it.CreatedTime, it.ParentTicketID, it.LinkedTicketCount,
			batch,
		)
		if err != nil {
			return stored, fmt.Errorf("store incident %s: %w", it.RequestID, err)
		}
		stored++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return stored, nil
}

// ListIncidents returns every stored incident ordered by request id.
func (s *Store) ListIncidents(ctx context.Context) ([]types.RawIncident, error) {
	var out []types.RawIncident
	err := s.retry(ctx, "list incidents", func() error {
		out = []types.RawIncident{}
		rows, err := s.db.QueryContext(ctx, `SELECT `+incidentColumns+` FROM incidents ORDER BY request_id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it types.RawIncident
			if err := rows.Scan(
				&it.RequestID, &it.Subject, &it.Technician, &it.Priority, &it.Status, &it.Application,
				&it.Category, &it.Module, &it.Recurrence, &it.CreatedTime, &it.ParentTicketID, &it.LinkedTicketCount,
			); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}
