// Package store declares the storage contract this module assumes
//: a document database exposing per-collection document
// lookups and a pipeline execution primitive supporting correlated
// sub-pipelines, per-document $facet-style parallel sub-pipelines, and
// $lookup/$unwind/$group/$addToSet/$merge. The concrete implementation
// lives in store/mongostore; store/storetest provides an in-memory fake
// behind the same interface for tests.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNoDocuments is returned by FindOne when no document matches the
// filter. store/mongostore translates mongo.ErrNoDocuments into this
// value, so callers test errors.Is(err, store.ErrNoDocuments) without
// caring which engine is behind the interface.
var ErrNoDocuments = errors.New("store: no documents match filter")

// Document is a loosely-typed document as read from or written to a
// collection.
type Document = bson.M

// WriteModel is one operation in a bulk write: an update
// (optionally upserting) against documents matching Filter.
type WriteModel struct {
	Filter Document
	Update Document
	Upsert bool
}

// BulkWriteResult summarizes the outcome of a batched write.
type BulkWriteResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
}

// Collection is the per-collection surface this module needs from the
// storage engine.
type Collection interface {
	// FindOne returns the first document matching filter, or
	// ErrNoDocuments if none match.
	FindOne(ctx context.Context, filter Document) (Document, error)

	// Find returns every document matching filter.
	Find(ctx context.Context, filter Document) ([]Document, error)

	// CountDocuments returns the number of documents matching filter.
	CountDocuments(ctx context.Context, filter Document) (int64, error)

	// Aggregate runs a pipeline and returns its output documents. The
	// pipeline may use correlated sub-pipelines, $facet, $lookup,
	// $unwind, $group, and $addToSet.
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]Document, error)

	// BulkWrite applies a batch of update operations in as few round
	// trips as the engine allows. Failures of individual operations are
	// reported but do not prevent the rest from being attempted.
	BulkWrite(ctx context.Context, models []WriteModel) (BulkWriteResult, error)

	// MergeUpsert replaces the document matched by key wholesale with
	// doc, inserting it if absent (whenMatched=replace,
	// whenNotMatched=insert), used by the aggregation record builder
	// (C3) for whole-record replace.
	MergeUpsert(ctx context.Context, key Document, doc Document) error
}

// Store exposes named collections. A single Store is shared process-wide
//; it carries the only process-wide mutable state this
// module has (the connection pool).
type Store interface {
	Collection(name string) Collection
}
