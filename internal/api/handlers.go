package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/docstore"
)

// Handler exposes the gateway over HTTP
type Handler struct {
	exec Executor
}

// NewHandler creates a handler backed by exec
func NewHandler(exec Executor) *Handler {
	return &Handler{exec: exec}
}

// HealthHandler reports that the process is serving
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateDocument handles POST /buckets/{bucket}/docs/{id}
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	h.execute(w, r, payload, docstore.OpCreate, http.StatusCreated)
}

// UpsertDocument handles PUT /buckets/{bucket}/docs/{id}
func (h *Handler) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	h.execute(w, r, payload, docstore.OpUpsert, http.StatusOK)
}

// RemoveDocument handles DELETE /buckets/{bucket}/docs/{id}
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, nil, docstore.OpRemove, http.StatusOK)
}

// GetDocument handles GET /buckets/{bucket}/docs/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, nil, docstore.OpGet, http.StatusOK)
}

// Transaction handles POST /transactions
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode transaction request")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON format"})
		return
	}
	if req.ID == "" || req.Bucket == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "id and bucket are required"})
		return
	}

	op, err := docstore.ParseOperation(req.Operation)
	if err != nil {
		log.Warn().Str("operation", req.Operation).Str("bucket", req.Bucket).Msg("Rejected unknown operation")
		status, kind := statusForError(err)
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}
	status := http.StatusOK
	if op == docstore.OpCreate {
		status = http.StatusCreated
	}
	h.run(w, r, req.ID, req.Bucket, req.Payload, op, status)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, payload map[string]any, op docstore.Operation, okStatus int) {
	vars := mux.Vars(r)
	h.run(w, r, vars["id"], vars["bucket"], payload, op, okStatus)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, id, bucket string, payload map[string]any, op docstore.Operation, okStatus int) {
	res, err := h.exec.Execute(r.Context(), id, bucket, payload, op)
	if err != nil {
		status, kind := statusForError(err)
		log.Warn().
			Err(err).
			Str("operation", string(op)).
			Str("bucket", bucket).
			Str("doc_id", id).
			Int("status", status).
			Msg("Document operation failed")
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}

	if res.Status == docstore.StatusNotFound {
		writeJSON(w, http.StatusNotFound, DocumentResponse{Status: res.Status.String(), Document: res.Document})
		return
	}

	log.Info().
		Str("operation", string(op)).
		Str("bucket", bucket).
		Str("doc_id", id).
		Str("remote_addr", r.RemoteAddr).
		Msg("Document operation served")
	writeJSON(w, okStatus, DocumentResponse{Status: res.Status.String(), Document: res.Document})
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode document payload")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON format"})
		return nil, false
	}
	if payload == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "body must be a JSON object"})
		return nil, false
	}
	return payload, true
}

func statusForError(err error) (int, string) {
	var te *docstore.TransactionError
	if errors.As(err, &te) {
		switch te.Kind {
		case docstore.KindDocumentExists:
			return http.StatusConflict, string(te.Kind)
		case docstore.KindUnknownOperation:
			return http.StatusBadRequest, string(te.Kind)
		case docstore.KindBucketOpen:
			return http.StatusServiceUnavailable, string(te.Kind)
		}
		return http.StatusBadGateway, string(te.Kind)
	}
	if errors.Is(err, config.ErrMissingProperty) {
		return http.StatusInternalServerError, "configuration"
	}
	return http.StatusServiceUnavailable, "connection"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
