package api

import (
	"log"
	"net/http"

	"github.com/pinggolf/cancercenter-offices/internal/services"
)

// serverAuditParams builds the common audit-log shape for admin write
// operations, tagging the entity and metadata, with the request's remote
// address as a best-effort actor identifier.
func serverAuditParams(operation, entityID string, metadata map[string]interface{}, r *http.Request) services.AuditParams {
	return services.AuditParams{
		EntityType: "admin_action",
		EntityID:   entityID,
		Operation:  operation,
		Metadata:   metadata,
		IPAddress:  r.RemoteAddr,
	}
}

// internalErrorLogOnly logs an error from a non-critical side effect (e.g.
// audit logging) without failing the request that triggered it.
func internalErrorLogOnly(context string, err error) {
	log.Printf("api: %s: %v", context, err)
}
