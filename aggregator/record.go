// Package aggregator implements the aggregation record builder (C3):
// for one entity of any type, produce the canonical one-hop aggregation
// document, with per-neighbor-type id sets and externalKey→id maps. Its
// traversal helpers assemble one-hop neighbor sets the way a
// dependency-graph walker would, and its dispatch-by-type posture is an
// interface-segregation pattern generalized to a lookup table.
package aggregator

import (
	"time"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// NeighborSet is one outgoing edge's resolved neighbors: a deduplicated
// set of internal ids (`Ts`) and a map from each neighbor's external
// key to its internal id (`TKeys`).
type NeighborSet struct {
	IDs  []string
	Keys map[string]string
}

func newNeighborSet() *NeighborSet {
	return &NeighborSet{Keys: map[string]string{}}
}

// add records one resolved neighbor, keeping IDs deduplicated while
// preserving first-seen order (consumed verbatim as _rootIds/step
// outputs by fetch's traversal, which must be order-preserving per the
// locked budget-determinism rule — see DESIGN.md).
func (n *NeighborSet) add(externalKey, internalID string) {
	if _, exists := n.Keys[externalKey]; exists {
		return
	}
	n.Keys[externalKey] = internalID
	n.IDs = append(n.IDs, internalID)
}

// Record is the in-memory form of an aggregation record.
// Neighbors is keyed by the field name of the owning type's outgoing
// edge (e.g. "stages", "sgos"), matching typegraph.Edge.Field, so a
// type with two edges to the same target type would still get distinct
// slots — though the fixed edge table never does that today.
type Record struct {
	ResourceType  typegraph.EntityType
	ExternalKey   string
	GamedayID     string
	ExternalID    string
	ExternalScope string
	Name          string
	LastUpdated   time.Time
	Neighbors     map[string]*NeighborSet
}

func newRecord(t typegraph.EntityType) *Record {
	return &Record{ResourceType: t, Neighbors: map[string]*NeighborSet{}}
}

func (r *Record) neighborSet(field string) *NeighborSet {
	ns, ok := r.Neighbors[field]
	if !ok {
		ns = newNeighborSet()
		r.Neighbors[field] = ns
	}
	return ns
}

// keysFieldName is the document field name holding a neighbor type's
// externalKey→id map: the target type's name plus "Keys" (e.g.
// "stageKeys", "sgoKeys") scenario 1's literal naming.
func keysFieldName(to typegraph.EntityType) string {
	return string(to) + "Keys"
}

// ToDocument renders the record in the shape stored in the aggregation
// collection.
func (r *Record) ToDocument() store.Document {
	doc := store.Document{
		"resourceType":     string(r.ResourceType),
		"externalKey":      r.ExternalKey,
		"gamedayId":        r.GamedayID,
		"_externalId":      r.ExternalID,
		"_externalIdScope": r.ExternalScope,
		"name":             r.Name,
		"lastUpdated":      r.LastUpdated,
	}
	for _, edge := range typegraph.OutgoingEdges(r.ResourceType) {
		ns := r.Neighbors[edge.Field]
		if ns == nil {
			ns = newNeighborSet()
		}
		ids := make([]interface{}, len(ns.IDs))
		for i, id := range ns.IDs {
			ids[i] = id
		}
		keys := store.Document{}
		for k, v := range ns.Keys {
			keys[k] = v
		}
		doc[edge.Field] = ids
		doc[keysFieldName(edge.To)] = keys
	}
	return doc
}

// FromDocument reconstructs a Record from a stored aggregation document.
func FromDocument(doc store.Document) *Record {
	r := newRecord(typegraph.EntityType(asString(doc["resourceType"])))
	r.ExternalKey = asString(doc["externalKey"])
	r.GamedayID = asString(doc["gamedayId"])
	r.ExternalID = asString(doc["_externalId"])
	r.ExternalScope = asString(doc["_externalIdScope"])
	r.Name = asString(doc["name"])
	if t, ok := doc["lastUpdated"].(time.Time); ok {
		r.LastUpdated = t
	}

	for _, edge := range typegraph.OutgoingEdges(r.ResourceType) {
		ns := newNeighborSet()
		keysField, _ := doc[keysFieldName(edge.To)].(store.Document)
		for k, v := range keysField {
			ns.Keys[k] = asString(v)
		}
		if ids, ok := doc[edge.Field].([]interface{}); ok {
			for _, id := range ids {
				ns.IDs = append(ns.IDs, asString(id))
			}
		}
		r.Neighbors[edge.Field] = ns
	}
	return r
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
