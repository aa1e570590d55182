package docstore

import (
	"context"
	"strings"
)

// Operation is the kind of document operation a caller asks the gateway to run
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpsert Operation = "UPSERT"
	OpRemove Operation = "REMOVE"
	OpGet    Operation = "GET"
)

// ParseOperation maps a case-insensitive operation name to an Operation
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	if op.valid() {
		return op, nil
	}
	return "", &TransactionError{Kind: KindUnknownOperation, Op: Operation(s), Err: ErrUnknownOperation}
}

func (op Operation) valid() bool {
	switch op {
	case OpCreate, OpUpsert, OpRemove, OpGet:
		return true
	}
	return false
}

// label is the metrics label for op; anything outside the four kinds collapses to "unknown"
func (op Operation) label() string {
	if op.valid() {
		return string(op)
	}
	return unknownLabel
}

// Document is a JSON-like payload stored under a caller supplied id
type Document struct {
	ID      string         `json:"id"`
	Content map[string]any `json:"content,omitempty"`
	CAS     uint64         `json:"cas,omitempty"`
}

// Status tags the outcome of a successful Execute call
type Status int

const (
	StatusNone Status = iota
	StatusOK
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	default:
		return "none"
	}
}

// Result is the tagged outcome of Execute. Failures are reported through the error return,
// so a NotFound result is never confused with a failed operation.
type Result struct {
	Status   Status
	Document Document
}

// Found reports whether the result carries a document
func (r Result) Found() bool {
	return r.Status == StatusOK
}

// Credentials authenticate a cluster connection
type Credentials struct {
	Username string
	Password string
}

// Connector connects and authenticates against a set of store nodes
type Connector interface {
	Connect(ctx context.Context, nodes []string, creds Credentials) (Cluster, error)
}

// Cluster is an authenticated connection context to a set of store nodes
type Cluster interface {
	OpenBucket(ctx context.Context, name string) (Bucket, error)
	Close() error
}

// Bucket is an open reference to one named document collection.
// Implementations return ErrDocumentExists and ErrDocumentNotFound for the matching cases.
type Bucket interface {
	Insert(ctx context.Context, id string, content map[string]any) (Document, error)
	Upsert(ctx context.Context, id string, content map[string]any) (Document, error)
	Remove(ctx context.Context, id string) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
}
