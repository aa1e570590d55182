package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/docstore"
)

// Bucket runs key/value operations on a bucket's default collection
type Bucket struct {
	name       string
	collection *gocb.Collection
}

// Insert stores content under id, failing if the id already exists
func (b *Bucket) Insert(ctx context.Context, id string, content map[string]any) (docstore.Document, error) {
	start := time.Now()
	res, err := b.collection.Insert(id, content, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		return docstore.Document{}, b.fail("insert", id, err)
	}
	b.trace("insert", id, start)
	return docstore.Document{ID: id, Content: content, CAS: uint64(res.Cas())}, nil
}

// Upsert stores or replaces content under id
func (b *Bucket) Upsert(ctx context.Context, id string, content map[string]any) (docstore.Document, error) {
	start := time.Now()
	res, err := b.collection.Upsert(id, content, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return docstore.Document{}, b.fail("upsert", id, err)
	}
	b.trace("upsert", id, start)
	return docstore.Document{ID: id, Content: content, CAS: uint64(res.Cas())}, nil
}

// Remove deletes id
func (b *Bucket) Remove(ctx context.Context, id string) (docstore.Document, error) {
	start := time.Now()
	res, err := b.collection.Remove(id, &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		return docstore.Document{}, b.fail("remove", id, err)
	}
	b.trace("remove", id, start)
	return docstore.Document{ID: id, CAS: uint64(res.Cas())}, nil
}

// Get reads id
func (b *Bucket) Get(ctx context.Context, id string) (docstore.Document, error) {
	start := time.Now()
	res, err := b.collection.Get(id, &gocb.GetOptions{Context: ctx})
	if err != nil {
		return docstore.Document{}, b.fail("get", id, err)
	}

	var content map[string]any
	if err := res.Content(&content); err != nil {
		log.Error().Err(err).Str("doc_id", id).Str("bucket", b.name).Msg("Failed to decode document")
		return docstore.Document{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	b.trace("get", id, start)
	return docstore.Document{ID: id, Content: content, CAS: uint64(res.Cas())}, nil
}

func (b *Bucket) fail(op, id string, err error) error {
	err = translateError(err)
	if errors.Is(err, docstore.ErrDocumentNotFound) || errors.Is(err, docstore.ErrDocumentExists) {
		log.Debug().Err(err).Str("doc_id", id).Str("bucket", b.name).Str("operation", op).Msg("Document precondition not met")
	} else {
		log.Error().Err(err).Str("doc_id", id).Str("bucket", b.name).Str("operation", op).Msg("Couchbase operation failed")
	}
	return fmt.Errorf("failed to %s document %s: %w", op, id, err)
}

func (b *Bucket) trace(op, id string, start time.Time) {
	log.Debug().
		Str("doc_id", id).
		Str("bucket", b.name).
		Str("operation", op).
		Dur("duration", time.Since(start)).
		Msg("Couchbase operation succeeded")
}

// translateError maps gocb key/value errors onto the docstore sentinels, keeping the gocb error in the chain
func translateError(err error) error {
	switch {
	case errors.Is(err, gocb.ErrDocumentExists):
		return fmt.Errorf("%w: %w", docstore.ErrDocumentExists, err)
	case errors.Is(err, gocb.ErrDocumentNotFound):
		return fmt.Errorf("%w: %w", docstore.ErrDocumentNotFound, err)
	}
	return err
}
