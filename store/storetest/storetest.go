// Package storetest provides an in-memory store.Store used by this
// module's own tests: a map-backed stand-in behind the same interface
// the real engine implements, so package tests never need a live
// database.
//
// The Aggregate fake understands exactly $match, $unwind and $group with
// $addToSet (the shapes fetch's traversal emits), plus $facet over
// sub-pipelines of those. It is not a general aggregation engine.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evalgo-org/sportsxref/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu   sync.Mutex
	cols map[string]*collection
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{cols: make(map[string]*collection)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		c = &collection{}
		s.cols[name] = c
	}
	return c
}

// Seed inserts docs directly into the named collection, bypassing any
// write-side validation. Intended for test setup.
func (s *Store) Seed(name string, docs ...store.Document) {
	c := s.Collection(name).(*collection)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range docs {
		c.docs = append(c.docs, cloneDoc(d))
	}
}

// Dump returns a copy of every document currently in the named
// collection, for assertions.
func (s *Store) Dump(name string) []store.Document {
	c := s.Collection(name).(*collection)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = cloneDoc(d)
	}
	return out
}

type collection struct {
	mu   sync.Mutex
	docs []store.Document
}

func (c *collection) FindOne(ctx context.Context, filter store.Document) (store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if matches(d, filter) {
			return cloneDoc(d), nil
		}
	}
	return nil, store.ErrNoDocuments
}

func (c *collection) Find(ctx context.Context, filter store.Document) ([]store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Document
	for _, d := range c.docs {
		if matches(d, filter) {
			out = append(out, cloneDoc(d))
		}
	}
	return out, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter store.Document) (int64, error) {
	docs, _ := c.Find(ctx, filter)
	return int64(len(docs)), nil
}

func (c *collection) BulkWrite(ctx context.Context, models []store.WriteModel) (store.BulkWriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res store.BulkWriteResult
	for _, m := range models {
		idx := c.findIndexLocked(m.Filter)
		if idx >= 0 {
			applyUpdate(c.docs[idx], m.Update)
			res.MatchedCount++
			res.ModifiedCount++
			continue
		}
		if !m.Upsert {
			continue
		}
		doc := store.Document{}
		for k, v := range m.Filter {
			doc[k] = v
		}
		applyUpdate(doc, m.Update)
		c.docs = append(c.docs, doc)
		res.UpsertedCount++
	}
	return res, nil
}

func (c *collection) MergeUpsert(ctx context.Context, key store.Document, doc store.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.findIndexLocked(key)
	merged := cloneDoc(doc)
	for k, v := range key {
		merged[k] = v
	}
	if idx >= 0 {
		c.docs[idx] = merged
		return nil
	}
	c.docs = append(c.docs, merged)
	return nil
}

func (c *collection) findIndexLocked(filter store.Document) int {
	for i, d := range c.docs {
		if matches(d, filter) {
			return i
		}
	}
	return -1
}

func (c *collection) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]store.Document, error) {
	c.mu.Lock()
	cur := make([]store.Document, len(c.docs))
	for i, d := range c.docs {
		cur[i] = cloneDoc(d)
	}
	c.mu.Unlock()

	return runPipeline(cur, pipeline)
}

func runPipeline(docs []store.Document, pipeline mongo.Pipeline) ([]store.Document, error) {
	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("storetest: stage must have exactly one operator, got %d", len(stage))
		}
		op := stage[0]
		var err error
		switch op.Key {
		case "$match":
			docs = runMatch(docs, toDocument(op.Value))
		case "$unwind":
			docs, err = runUnwind(docs, op.Value)
		case "$group":
			docs, err = runGroup(docs, toDocument(op.Value))
		case "$facet":
			docs, err = runFacet(docs, op.Value)
		default:
			return nil, fmt.Errorf("storetest: unsupported aggregation stage %q", op.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func runMatch(docs []store.Document, filter store.Document) []store.Document {
	var out []store.Document
	for _, d := range docs {
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	return out
}

func runUnwind(docs []store.Document, spec interface{}) ([]store.Document, error) {
	path, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("storetest: $unwind only supports a field-path string")
	}
	field := trimDollar(path)

	var out []store.Document
	for _, d := range docs {
		v, ok := d[field]
		if !ok {
			continue
		}
		items := toSlice(v)
		if items == nil {
			out = append(out, d)
			continue
		}
		for _, item := range items {
			clone := cloneDoc(d)
			clone[field] = item
			out = append(out, clone)
		}
	}
	return out, nil
}

func runGroup(docs []store.Document, spec store.Document) ([]store.Document, error) {
	result := store.Document{"_id": spec["_id"]}
	for outField, accRaw := range spec {
		if outField == "_id" {
			continue
		}
		acc, ok := toDocument(accRaw).(store.Document)
		if !ok {
			return nil, fmt.Errorf("storetest: unsupported $group accumulator for %q", outField)
		}
		addToSetExpr, ok := acc["$addToSet"]
		if !ok {
			return nil, fmt.Errorf("storetest: $group only supports $addToSet accumulators")
		}
		field := trimDollar(addToSetExpr.(string))

		seen := map[string]bool{}
		var set []interface{}
		for _, d := range docs {
			v, ok := d[field]
			if !ok {
				continue
			}
			key := fmt.Sprintf("%v", v)
			if seen[key] {
				continue
			}
			seen[key] = true
			set = append(set, v)
		}
		sort.Slice(set, func(i, j int) bool {
			return fmt.Sprintf("%v", set[i]) < fmt.Sprintf("%v", set[j])
		})
		result[outField] = set
	}
	return []store.Document{result}, nil
}

func runFacet(docs []store.Document, spec interface{}) ([]store.Document, error) {
	facetSpec, ok := toDocument(spec).(store.Document)
	if !ok {
		return nil, fmt.Errorf("storetest: $facet requires a document of named sub-pipelines")
	}

	result := store.Document{}
	for name, sub := range facetSpec {
		subPipeline, ok := sub.(mongo.Pipeline)
		if !ok {
			return nil, fmt.Errorf("storetest: $facet sub-pipeline %q must be a mongo.Pipeline", name)
		}
		out, err := runPipeline(cloneDocs(docs), subPipeline)
		if err != nil {
			return nil, fmt.Errorf("facet %q: %w", name, err)
		}
		result[name] = out
	}
	return []store.Document{result}, nil
}

// matches implements the narrow filter language this module's own
// queries use: implicit equality, and the $in operator over a slice of
// candidate values. Dotted paths are not traversed here; this module
// only ever filters by top-level fields (updates are the only place it
// uses dot notation, handled separately by setDotted/unsetDotted).
func matches(doc, filter store.Document) bool {
	for field, want := range filter {
		have, ok := doc[field]
		if cond, isCond := toDocument(want).(store.Document); isCond {
			if in, ok2 := cond["$in"]; ok2 {
				if !ok || !sliceContains(toSlice(in), have) {
					return false
				}
				continue
			}
			if eq, ok2 := cond["$eq"]; ok2 {
				if !ok || !equal(have, eq) {
					return false
				}
				continue
			}
		}
		if !ok || !equal(have, want) {
			return false
		}
	}
	return true
}

func applyUpdate(doc store.Document, update store.Document) {
	if set, ok := toDocument(update["$set"]).(store.Document); ok {
		for k, v := range set {
			setDotted(doc, k, v)
		}
	}
	if setOnInsert, ok := toDocument(update["$setOnInsert"]).(store.Document); ok {
		for k, v := range setOnInsert {
			if _, exists := doc[k]; !exists {
				doc[k] = v
			}
		}
	}
	if addToSet, ok := toDocument(update["$addToSet"]).(store.Document); ok {
		for k, v := range addToSet {
			applyAddToSet(doc, k, v)
		}
	}
	if pull, ok := toDocument(update["$pull"]).(store.Document); ok {
		for k, v := range pull {
			applyPull(doc, k, v)
		}
	}
	if unset, ok := toDocument(update["$unset"]).(store.Document); ok {
		for k := range unset {
			unsetDotted(doc, k)
		}
	}
}

// setDotted implements Mongo's dot-notation nested-field update: "a.b"
// sets doc["a"]["b"], creating the intermediate document if absent.
func setDotted(doc store.Document, path string, v interface{}) {
	parent, leaf := splitDotted(doc, path)
	parent[leaf] = v
}

func unsetDotted(doc store.Document, path string) {
	parent, leaf := splitDotted(doc, path)
	delete(parent, leaf)
}

func splitDotted(doc store.Document, path string) (store.Document, string) {
	idx := strings.IndexByte(path, '.')
	if idx < 0 {
		return doc, path
	}
	head, rest := path[:idx], path[idx+1:]
	child, ok := toDocument(doc[head]).(store.Document)
	if !ok {
		child = store.Document{}
	}
	doc[head] = child
	return splitDotted(child, rest)
}

func applyAddToSet(doc store.Document, field string, value interface{}) {
	var toAdd []interface{}
	if each, ok := toDocument(value).(store.Document); ok {
		if eachVal, ok2 := each["$each"]; ok2 {
			toAdd = toSlice(eachVal)
		}
	}
	if toAdd == nil {
		toAdd = []interface{}{value}
	}

	existing := toSlice(doc[field])
	for _, v := range toAdd {
		if !sliceContains(existing, v) {
			existing = append(existing, v)
		}
	}
	doc[field] = existing
}

func applyPull(doc store.Document, field string, value interface{}) {
	existing := toSlice(doc[field])
	out := make([]interface{}, 0, len(existing))
	for _, v := range existing {
		if !equal(v, value) {
			out = append(out, v)
		}
	}
	doc[field] = out
}

func toDocument(v interface{}) interface{} {
	switch t := v.(type) {
	case store.Document:
		return t
	case bson.M:
		return store.Document(t)
	case bson.D:
		m := store.Document{}
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m
	default:
		return v
	}
}

func toSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case bson.A:
		return []interface{}(t)
	default:
		return nil
	}
}

func sliceContains(s []interface{}, v interface{}) bool {
	for _, item := range s {
		if equal(item, v) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func trimDollar(s string) string {
	if len(s) > 0 && s[0] == '$' {
		return s[1:]
	}
	return s
}

func cloneDoc(d store.Document) store.Document {
	out := make(store.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func cloneDocs(docs []store.Document) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		out[i] = cloneDoc(d)
	}
	return out
}
