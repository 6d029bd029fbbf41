package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditLog is one admin-action audit entry. Entries are written for
// centers and companies CSV uploads only.
type AuditLog struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	EntityType string          `json:"entity_type"`
	EntityID   sql.NullString  `json:"entity_id,omitempty"`
	Operation  string          `json:"operation"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IPAddress  sql.NullString  `json:"ip_address,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateAuditLogParams is the write-side shape for one audit entry.
type CreateAuditLogParams struct {
	EntityType string
	EntityID   sql.NullString
	Operation  string
	Metadata   json.RawMessage
	IPAddress  sql.NullString
}

// CreateAuditLog inserts one audit log row.
func (q *Queries) CreateAuditLog(ctx context.Context, params CreateAuditLogParams) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, operation, metadata, ip_address, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	var metadata interface{}
	if len(params.Metadata) > 0 {
		metadata = []byte(params.Metadata)
	}
	_, err := q.db.ExecContext(ctx, query, params.EntityType, params.EntityID, params.Operation, metadata, params.IPAddress)
	if err != nil {
		return fmt.Errorf("creating audit log entry: %w", err)
	}
	return nil
}

// GetAuditLogsParams filters an audit log query.
type GetAuditLogsParams struct {
	EntityType sql.NullString
	Operation  sql.NullString
	Limit      int
}

// GetAuditLogs returns audit entries matching the filter, newest first.
func (q *Queries) GetAuditLogs(ctx context.Context, params GetAuditLogsParams) ([]AuditLog, error) {
	query := `
		SELECT id, timestamp, entity_type, entity_id, operation, metadata, ip_address, created_at
		FROM audit_log
		WHERE ($1::text IS NULL OR entity_type = $1)
		  AND ($2::text IS NULL OR operation = $2)
		ORDER BY timestamp DESC
		LIMIT $3
	`
	rows, err := q.db.QueryContext(ctx, query, params.EntityType, params.Operation, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.EntityType, &l.EntityID, &l.Operation,
			&l.Metadata, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
