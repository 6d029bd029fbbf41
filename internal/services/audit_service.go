package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pinggolf/cancercenter-offices/internal/db"
)

// AuditService records admin-facing actions to the audit log. Only the
// centers and companies CSV upload handlers write entries; refresh triggers
// and deletion-flag decisions are not audited.
type AuditService struct {
	queries *db.Queries
}

// NewAuditService creates a new audit service.
func NewAuditService(queries *db.Queries) *AuditService {
	return &AuditService{queries: queries}
}

// AuditParams contains all fields for an audit log entry.
type AuditParams struct {
	EntityType string
	EntityID   string
	Operation  string
	Metadata   map[string]interface{}
	IPAddress  string
}

// Log creates an audit log entry.
func (s *AuditService) Log(ctx context.Context, params AuditParams) error {
	var metadataJSON []byte
	var err error
	if params.Metadata != nil {
		metadataJSON, err = json.Marshal(params.Metadata)
		if err != nil {
			return err
		}
	}

	return s.queries.CreateAuditLog(ctx, db.CreateAuditLogParams{
		EntityType: params.EntityType,
		EntityID:   sql.NullString{String: params.EntityID, Valid: params.EntityID != ""},
		Operation:  params.Operation,
		Metadata:   metadataJSON,
		IPAddress:  sql.NullString{String: params.IPAddress, Valid: params.IPAddress != ""},
	})
}

// QueryAuditLog retrieves audit logs with flexible filtering.
func (s *AuditService) QueryAuditLog(ctx context.Context, entityType, operation string, limit int) ([]db.AuditLog, error) {
	return s.queries.GetAuditLogs(ctx, db.GetAuditLogsParams{
		EntityType: sql.NullString{String: entityType, Valid: entityType != ""},
		Operation:  sql.NullString{String: operation, Valid: operation != ""},
		Limit:      limit,
	})
}
