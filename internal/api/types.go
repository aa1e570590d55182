package api

import (
	"context"

	"stealthcompany.com/docgateway/internal/docstore"
)

// Executor runs one document operation; *docstore.Gateway satisfies it
type Executor interface {
	Execute(ctx context.Context, docID, bucketName string, payload map[string]any, op docstore.Operation) (docstore.Result, error)
}

// TransactionRequest is the body of POST /transactions
type TransactionRequest struct {
	ID        string         `json:"id"`
	Bucket    string         `json:"bucket"`
	Operation string         `json:"operation"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// DocumentResponse is returned for every successful operation
type DocumentResponse struct {
	Status   string            `json:"status"`
	Document docstore.Document `json:"document"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
