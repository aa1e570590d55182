package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"stealthcompany.com/docgateway/internal/metrics"
)

const documentPath = "/buckets/{bucket}/docs/{id}"

// SetupRoutes configures and returns the HTTP router
func SetupRoutes(exec Executor) *mux.Router {
	h := NewHandler(exec)
	r := mux.NewRouter()

	r.Use(metrics.MetricsMiddleware)

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	// Document endpoints, one per operation kind
	r.HandleFunc(documentPath, h.CreateDocument).Methods(http.MethodPost)
	r.HandleFunc(documentPath, h.UpsertDocument).Methods(http.MethodPut)
	r.HandleFunc(documentPath, h.RemoveDocument).Methods(http.MethodDelete)
	r.HandleFunc(documentPath, h.GetDocument).Methods(http.MethodGet)

	// Generic entry point taking the operation kind in the body
	r.HandleFunc("/transactions", h.Transaction).Methods(http.MethodPost)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r
}
