package fetch

import (
	"sort"
	"strings"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// namePredicate is the compound-key tag-name matcher: an exact-name
// set plus a prefix set (`name*` tokens). A nil predicate
// matches every name — the bare `tags` form with no `>name` tokens.
type namePredicate struct {
	exact    map[string]bool
	prefixes []string
}

func (p *namePredicate) matches(name string) bool {
	if p == nil {
		return true
	}
	if p.exact[name] {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// directive is one compiled projection key. Compound directives end
// their path in "tags" and filter array elements by name; everything
// else is a plain field-path directive.
type directive struct {
	raw             string
	path            []string
	compound        bool
	participantKind string // "team" or "sp", only set for participants.<kind>.tags shape
	predicate       *namePredicate
}

// parseDirective decodes one fieldProjections key. Supported compound
// shapes are the two the fixed design gives literally: a bare trailing
// "tags" segment, and "participants.<kind>.tags" where <kind> is "team"
// or "sp". Any other path is treated as a plain field-path directive.
func parseDirective(key string) directive {
	parts := strings.Split(key, ">")
	pathPart := parts[0]
	segs := strings.Split(pathPart, ".")
	isBareTags := len(segs) == 1 && segs[0] == "tags"
	isParticipantTags := len(segs) == 3 && segs[0] == "participants" &&
		(segs[1] == "team" || segs[1] == "sp") && segs[2] == "tags"

	d := directive{raw: key, path: segs}
	if !isBareTags && !isParticipantTags {
		return d
	}
	d.compound = true
	if isParticipantTags {
		d.participantKind = segs[1]
	}

	if len(parts) > 1 {
		pred := &namePredicate{exact: map[string]bool{}}
		for _, tok := range parts[1:] {
			if tok == "" {
				continue
			}
			if strings.HasSuffix(tok, "*") {
				pred.prefixes = append(pred.prefixes, strings.TrimSuffix(tok, "*"))
			} else {
				pred.exact[tok] = true
			}
		}
		d.predicate = pred
	}
	return d
}

// cloneProjectionSet deep-clones a *FieldProjections before this package
// reads it, per the locked Open Question resolution:
// caller-owned maps must never be mutated by the projection compiler.
func cloneProjectionSet(fp *FieldProjections) *FieldProjections {
	if fp == nil {
		return nil
	}
	return &FieldProjections{
		Inclusions: cloneTypeProjection(fp.Inclusions),
		Exclusions: cloneTypeProjection(fp.Exclusions),
	}
}

func cloneTypeProjection(tp *TypeProjection) *TypeProjection {
	if tp == nil {
		return nil
	}
	out := &TypeProjection{All: map[string]bool{}, ByType: map[string]map[string]bool{}}
	for k, v := range tp.All {
		out.All[k] = v
	}
	for t, m := range tp.ByType {
		cloned := map[string]bool{}
		for k, v := range m {
			cloned[k] = v
		}
		out.ByType[t] = cloned
	}
	return out
}

func compileDirectives(tp *TypeProjection, t typegraph.EntityType) []directive {
	if tp == nil {
		return nil
	}
	merged := map[string]bool{}
	for k := range tp.All {
		merged[k] = true
	}
	if perType, ok := tp.ByType[string(t)]; ok {
		for k := range perType {
			merged[k] = true
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]directive, 0, len(keys))
	for _, k := range keys {
		out = append(out, parseDirective(k))
	}
	return out
}

// applyProjections implements four-phase evaluation
// order: exclusion transforms, then inclusion transforms, then the
// inclusion keep-list projection, then the exclusion remove-list
// projection (which wins over the keep-list, since it runs last).
func applyProjections(doc store.Document, t typegraph.EntityType, fp *FieldProjections) store.Document {
	if fp == nil {
		return doc
	}
	fp = cloneProjectionSet(fp)

	exclDirectives := compileDirectives(fp.Exclusions, t)
	inclDirectives := compileDirectives(fp.Inclusions, t)

	var exclTransforms, exclProjections []directive
	for _, d := range exclDirectives {
		if d.compound {
			exclTransforms = append(exclTransforms, d)
		} else {
			exclProjections = append(exclProjections, d)
		}
	}
	var inclTransforms, inclProjections []directive
	for _, d := range inclDirectives {
		if d.compound {
			inclTransforms = append(inclTransforms, d)
		} else {
			inclProjections = append(inclProjections, d)
		}
	}

	result := cloneDocument(doc)

	for _, d := range exclTransforms {
		applyArrayFilter(result, d, false)
	}
	for _, d := range inclTransforms {
		applyArrayFilter(result, d, true)
	}
	if len(inclProjections) > 0 {
		paths := make([][]string, len(inclProjections))
		for i, d := range inclProjections {
			paths[i] = d.path
		}
		result = pruneToPaths(result, paths)
	}
	for _, d := range exclProjections {
		deletePath(result, d.path)
	}

	return result
}

// applyArrayFilter mutates doc in place, keeping (keep=true) or removing
// (keep=false) elements of the array at d.path whose name matches
// d.predicate. The bare "tags" shape filters doc["tags"] directly; the
// "participants.<kind>.tags" shape filters the "tags" sub-array of each
// participants[i] element whose discriminated kind matches d.participantKind.
func applyArrayFilter(doc store.Document, d directive, keep bool) {
	switch len(d.path) {
	case 1:
		filterTagsField(doc, d.path[0], d.predicate, keep)
	case 3:
		container, ok := doc[d.path[0]].([]interface{})
		if !ok {
			return
		}
		for _, item := range container {
			participant, ok := item.(store.Document)
			if !ok {
				continue
			}
			if participantKindOf(participant) != d.participantKind {
				continue
			}
			filterTagsField(participant, d.path[2], d.predicate, keep)
		}
	}
}

func filterTagsField(doc store.Document, field string, pred *namePredicate, keep bool) {
	raw, ok := doc[field].([]interface{})
	if !ok {
		return
	}
	out := make([]interface{}, 0, len(raw))
	for _, item := range raw {
		tag, ok := item.(store.Document)
		if !ok {
			out = append(out, item)
			continue
		}
		name, _ := tag["name"].(string)
		matched := pred.matches(name)
		if matched == keep {
			out = append(out, item)
		}
	}
	doc[field] = out
}

// participantKindOf determines which kind a participant sub-document is
// by which external id pair it carries.
func participantKindOf(participant store.Document) string {
	if _, ok := participant["teamExtId"]; ok {
		return "team"
	}
	if _, ok := participant["sportsPersonExtId"]; ok {
		return "sp"
	}
	return ""
}

// alwaysKeptFields survive an inclusion keep-list projection regardless
// of whether they were named, so a pruned document never loses its
// identity.
var alwaysKeptFields = []string{"_id", "resourceType", "externalKey", "gamedayId", "_externalId", "_externalIdScope"}

func pruneToPaths(doc store.Document, paths [][]string) store.Document {
	result := store.Document{}
	for _, f := range alwaysKeptFields {
		if v, ok := doc[f]; ok {
			result[f] = v
		}
	}
	for _, p := range paths {
		copyPath(doc, result, p)
	}
	return result
}

func copyPath(src, dst store.Document, path []string) {
	if len(path) == 0 {
		return
	}
	seg := path[0]
	v, ok := src[seg]
	if !ok {
		return
	}
	if len(path) == 1 {
		dst[seg] = v
		return
	}
	switch vv := v.(type) {
	case store.Document:
		childDst, ok := dst[seg].(store.Document)
		if !ok {
			childDst = store.Document{}
			dst[seg] = childDst
		}
		copyPath(vv, childDst, path[1:])
	case []interface{}:
		existing, _ := dst[seg].([]interface{})
		for i, item := range vv {
			id, ok := item.(store.Document)
			if !ok {
				continue
			}
			var od store.Document
			if i < len(existing) {
				od, _ = existing[i].(store.Document)
			}
			if od == nil {
				od = store.Document{}
			}
			copyPath(id, od, path[1:])
			for len(existing) <= i {
				existing = append(existing, store.Document{})
			}
			existing[i] = od
		}
		dst[seg] = existing
	}
}

func deletePath(node interface{}, path []string) {
	if len(path) == 0 {
		return
	}
	switch n := node.(type) {
	case store.Document:
		if len(path) == 1 {
			delete(n, path[0])
			return
		}
		if child, ok := n[path[0]]; ok {
			deletePath(child, path[1:])
		}
	case []interface{}:
		for _, item := range n {
			deletePath(item, path)
		}
	}
}

// cloneDocument deep-clones a store.Document so projection transforms
// never mutate a caller's or another result's shared document.
func cloneDocument(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case store.Document:
		return cloneDocument(vv)
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, item := range vv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
