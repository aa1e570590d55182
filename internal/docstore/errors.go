package docstore

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentExists   = errors.New("document already exists")
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrBucketOpen       = errors.New("could not open bucket")
)

// ErrorKind classifies a TransactionError
type ErrorKind string

const (
	KindBucketOpen       ErrorKind = "bucket_open"
	KindDocumentExists   ErrorKind = "document_exists"
	KindUnknownOperation ErrorKind = "unknown_operation"
	KindStore            ErrorKind = "store"
)

// TransactionError is returned when a document operation could not be carried out
type TransactionError struct {
	Kind   ErrorKind
	Op     Operation
	Bucket string
	DocID  string
	Err    error
}

func (e *TransactionError) Error() string {
	switch e.Kind {
	case KindBucketOpen:
		return fmt.Sprintf("could not open bucket [%s]: %v", e.Bucket, e.Err)
	case KindUnknownOperation:
		return fmt.Sprintf("unknown operation %q", string(e.Op))
	}
	return fmt.Sprintf("%s %s in bucket [%s] failed: %v", e.Op, e.DocID, e.Bucket, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a TransactionError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var te *TransactionError
	return errors.As(err, &te) && te.Kind == kind
}
