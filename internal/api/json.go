package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("api: encoding response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// internalError logs the real cause and writes a generic 500 body, per
// §4.J: internal errors are logged structurally and never surfaced verbatim.
func internalError(w http.ResponseWriter, context string, err error) {
	log.Printf("api: %s: %v", context, err)
	writeJSONError(w, http.StatusInternalServerError, "internal server error")
}
