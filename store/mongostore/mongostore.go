// Package mongostore implements the store.Store contract against
// go.mongodb.org/mongo-driver: a thin struct holding a live
// client/database handle, with typed errors surfaced instead of raw
// driver errors.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/xerrors"
	"github.com/evalgo-org/sportsxref/xlog"
)

var log = xlog.New("mongostore")

// MongoStore is a store.Store backed by a single Mongo database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and returns a MongoStore bound to database dbName.
// It pings the server once to fail fast on misconfiguration.
func Connect(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &xerrors.StorageError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &xerrors.StorageError{Op: "ping", Err: err}
	}
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

// Disconnect closes the underlying client.
func (s *MongoStore) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection returns a handle on the named collection.
func (s *MongoStore) Collection(name string) store.Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

// EnsureIndexes creates the two unique indexes the aggregation
// collection relies on: (resourceType, externalKey) for
// key-based lookups during rebuild, and (resourceType, gamedayId) for
// traversal hops keyed by identity.
func (s *MongoStore) EnsureIndexes(ctx context.Context, aggregationCollection string) error {
	coll := s.db.Collection(aggregationCollection)
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "resourceType", Value: 1}, {Key: "externalKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("resourceType_externalKey_unique"),
		},
		{
			Keys:    bson.D{{Key: "resourceType", Value: 1}, {Key: "gamedayId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("resourceType_gamedayId_unique"),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return &xerrors.StorageError{Op: "ensureIndexes", Err: err}
	}
	return nil
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) FindOne(ctx context.Context, filter store.Document) (store.Document, error) {
	var out store.Document
	err := c.coll.FindOne(ctx, filter).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNoDocuments
	}
	if err != nil {
		return nil, &xerrors.StorageError{Op: "findOne", Err: err}
	}
	return out, nil
}

func (c *mongoCollection) Find(ctx context.Context, filter store.Document) ([]store.Document, error) {
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, &xerrors.StorageError{Op: "find", Err: err}
	}
	defer cur.Close(ctx)

	var out []store.Document
	if err := cur.All(ctx, &out); err != nil {
		return nil, &xerrors.StorageError{Op: "find.decode", Err: err}
	}
	return out, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter store.Document) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, &xerrors.StorageError{Op: "countDocuments", Err: err}
	}
	return n, nil
}

func (c *mongoCollection) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]store.Document, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &xerrors.StorageError{Op: "aggregate", Err: err}
	}
	defer cur.Close(ctx)

	var out []store.Document
	if err := cur.All(ctx, &out); err != nil {
		return nil, &xerrors.StorageError{Op: "aggregate.decode", Err: err}
	}
	return out, nil
}

func (c *mongoCollection) BulkWrite(ctx context.Context, models []store.WriteModel) (store.BulkWriteResult, error) {
	if len(models) == 0 {
		return store.BulkWriteResult{}, nil
	}

	driverModels := make([]mongo.WriteModel, 0, len(models))
	for _, m := range models {
		um := mongo.NewUpdateOneModel().SetFilter(m.Filter).SetUpdate(m.Update).SetUpsert(m.Upsert)
		driverModels = append(driverModels, um)
	}

	res, err := c.coll.BulkWrite(ctx, driverModels, options.BulkWrite().SetOrdered(false))
	if err != nil {
		// A BulkWriteException can still carry partial results; the
		// caller (refmaint) treats individual-op failure as non-fatal,
		// so surface it as a StorageError rather than losing the batch.
		return store.BulkWriteResult{}, &xerrors.StorageError{Op: "bulkWrite", Err: err}
	}

	return store.BulkWriteResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}, nil
}

// MergeUpsert replaces the document matched by key wholesale, using an
// aggregation pipeline ending in $merge (whenMatched=replace,
// whenNotMatched=insert), rather than a plain
// ReplaceOne — this is the literal merge-upsert primitive the storage
// contract names, and keeps whole-record replace expressed the same
// way regardless of which field combination the unique key covers.
func (c *mongoCollection) MergeUpsert(ctx context.Context, key store.Document, doc store.Document) error {
	merged := bson.M{}
	for k, v := range doc {
		merged[k] = v
	}
	for k, v := range key {
		merged[k] = v
	}

	onFields := make(bson.A, 0, len(key))
	for k := range key {
		onFields = append(onFields, k)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$documents", Value: bson.A{merged}}},
		{{Key: "$merge", Value: bson.D{
			{Key: "into", Value: c.coll.Name()},
			{Key: "on", Value: onFields},
			{Key: "whenMatched", Value: "replace"},
			{Key: "whenNotMatched", Value: "insert"},
		}}},
	}

	cur, err := c.coll.Database().Collection(c.coll.Name()).Aggregate(ctx, pipeline)
	if err != nil {
		log.WithError(err).Warn("merge upsert failed")
		return &xerrors.StorageError{Op: fmt.Sprintf("mergeUpsert(%s)", c.coll.Name()), Err: err}
	}
	defer cur.Close(ctx)
	return nil
}
