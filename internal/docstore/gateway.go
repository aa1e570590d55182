package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/metrics"
)

const unknownLabel = "unknown"

// Gateway runs document operations against named buckets through a shared Registry
type Gateway struct {
	registry *Registry
	props    config.Properties
}

// NewGateway creates a gateway that reads its connection settings from props on every call
func NewGateway(registry *Registry, props config.Properties) *Gateway {
	return &Gateway{
		registry: registry,
		props:    props,
	}
}

// OpenConnection resolves the cluster named by the configured node list.
// A missing node list, username or password fails before any network call.
func (g *Gateway) OpenConnection(ctx context.Context) (*ClusterHandle, error) {
	nodes, err := g.props.GetRequired(config.KeyNodes)
	if err != nil {
		return nil, err
	}
	user, err := g.props.GetRequired(config.KeyUsername)
	if err != nil {
		return nil, err
	}
	pass, err := g.props.GetRequired(config.KeyPassword)
	if err != nil {
		return nil, err
	}
	return g.registry.Cluster(ctx, nodes, user, pass)
}

// Execute runs op for docID in bucketName.
// GET and REMOVE of a missing id return StatusNotFound without an error.
// An unknown op returns an empty Result and ErrUnknownOperation.
func (g *Gateway) Execute(ctx context.Context, docID, bucketName string, payload map[string]any, op Operation) (Result, error) {
	start := time.Now()

	cluster, err := g.OpenConnection(ctx)
	if err != nil {
		metrics.RecordOperation(op.label(), unknownLabel, "error", start)
		return Result{}, err
	}

	if !op.valid() {
		log.Warn().Str("operation", string(op)).Str("bucket", bucketName).Str("doc_id", docID).Msg("Unknown document operation")
		err = &TransactionError{Kind: KindUnknownOperation, Op: op, Bucket: bucketName, DocID: docID, Err: ErrUnknownOperation}
		metrics.RecordOperation(unknownLabel, unknownLabel, string(KindUnknownOperation), start)
		return Result{}, err
	}

	// the bucket label is only recorded for buckets that actually opened
	bucket, err := g.registry.Bucket(ctx, cluster, bucketName)
	if err != nil {
		metrics.RecordOperation(op.label(), unknownLabel, resultLabel(Result{}, err), start)
		return Result{}, err
	}

	var res Result
	switch op {
	case OpCreate:
		res, err = insert(ctx, bucket, docID, bucketName, payload)
	case OpUpsert:
		res, err = upsert(ctx, bucket, docID, bucketName, payload)
	case OpRemove:
		res, err = remove(ctx, bucket, docID, bucketName)
	case OpGet:
		res, err = get(ctx, bucket, docID, bucketName)
	}

	metrics.RecordOperation(op.label(), bucketName, resultLabel(res, err), start)
	if err != nil {
		return Result{}, err
	}

	log.Debug().
		Str("operation", string(op)).
		Str("bucket", bucketName).
		Str("doc_id", docID).
		Str("status", res.Status.String()).
		Dur("duration", time.Since(start)).
		Msg("Document operation completed")
	return res, nil
}

func insert(ctx context.Context, bucket Bucket, docID, bucketName string, payload map[string]any) (Result, error) {
	doc, err := bucket.Insert(ctx, docID, payload)
	if err != nil {
		return Result{}, storeError(OpCreate, bucketName, docID, err)
	}
	return Result{Status: StatusOK, Document: doc}, nil
}

func upsert(ctx context.Context, bucket Bucket, docID, bucketName string, payload map[string]any) (Result, error) {
	doc, err := bucket.Upsert(ctx, docID, payload)
	if err != nil {
		return Result{}, storeError(OpUpsert, bucketName, docID, err)
	}
	return Result{Status: StatusOK, Document: doc}, nil
}

func remove(ctx context.Context, bucket Bucket, docID, bucketName string) (Result, error) {
	doc, err := bucket.Remove(ctx, docID)
	if errors.Is(err, ErrDocumentNotFound) {
		return Result{Status: StatusNotFound, Document: Document{ID: docID}}, nil
	}
	if err != nil {
		return Result{}, storeError(OpRemove, bucketName, docID, err)
	}
	return Result{Status: StatusOK, Document: doc}, nil
}

func get(ctx context.Context, bucket Bucket, docID, bucketName string) (Result, error) {
	doc, err := bucket.Get(ctx, docID)
	if errors.Is(err, ErrDocumentNotFound) {
		return Result{Status: StatusNotFound, Document: Document{ID: docID}}, nil
	}
	if err != nil {
		return Result{}, storeError(OpGet, bucketName, docID, err)
	}
	return Result{Status: StatusOK, Document: doc}, nil
}

func storeError(op Operation, bucketName, docID string, err error) error {
	kind := KindStore
	if errors.Is(err, ErrDocumentExists) {
		kind = KindDocumentExists
	}
	return &TransactionError{Kind: kind, Op: op, Bucket: bucketName, DocID: docID, Err: err}
}

func resultLabel(res Result, err error) string {
	if err != nil {
		var te *TransactionError
		if errors.As(err, &te) {
			return string(te.Kind)
		}
		return "error"
	}
	return res.Status.String()
}
