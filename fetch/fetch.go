package fetch

import (
	"context"
	"errors"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
	"github.com/evalgo-org/sportsxref/xlog"
)

var log = xlog.New("fetch")

const defaultMaxDepth = 6

// Fetcher answers read requests against the materialized aggregation
// collection.
type Fetcher struct {
	store                 store.Store
	aggregationCollection string
}

// NewFetcher constructs a Fetcher.
func NewFetcher(s store.Store, aggregationCollection string) *Fetcher {
	return &Fetcher{store: s, aggregationCollection: aggregationCollection}
}

// Execute answers one read request end to end: validation, route
// resolution, reachability checks, shared-prefix planning, traversal
// execution, budget enforcement, home-collection materialization, and
// projection.
func (f *Fetcher) Execute(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	maxDepth := req.MaxDepth
	if maxDepth == 0 {
		maxDepth = defaultMaxDepth
	}

	routes, err := f.resolveRoutes(req, maxDepth)
	if err != nil {
		return nil, err
	}
	if err := validateReachability(req.RootType, req.IncludeTypes, routes); err != nil {
		return nil, err
	}

	aggColl := f.store.Collection(f.aggregationCollection)
	rootDoc, err := aggColl.FindOne(ctx, store.Document{
		"resourceType": string(req.RootType),
		"externalKey":  req.RootExternalKey,
	})
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return nil, &xerrors.RootMissing{ResourceType: string(req.RootType), ExternalKey: req.RootExternalKey}
		}
		return nil, &xerrors.StorageError{Op: "fetch.findRoot", Err: err}
	}
	rootID := asString1(rootDoc["gamedayId"])

	steps := planSteps(routes)
	outputs, err := executeSteps(ctx, aggColl, rootDoc, steps)
	if err != nil {
		return nil, &xerrors.StorageError{Op: "fetch.executeSteps", Err: err}
	}

	unions := map[typegraph.EntityType]*orderedSet{}
	for _, r := range routes {
		u, ok := unions[r.To]
		if !ok {
			u = newOrderedSet()
			unions[r.To] = u
		}
		u.addAll(routeFinalIDs(r, outputs, []string{rootID}))
	}

	budgetResults := applyBudget(req.Budget, req.IncludeTypes, req.RootType, rootID, unions)

	resp := &Response{
		Root:    RootRef{Type: req.RootType, ExternalKey: req.RootExternalKey},
		Results: map[typegraph.EntityType]TypeResult{},
	}

	for _, t := range req.IncludeTypes {
		res := budgetResults[t]
		var items []store.Document
		if t == req.RootType {
			if len(res.Included) > 0 {
				items = []store.Document{rootDoc}
			}
		} else {
			items, err = fetchHome(ctx, f.store, t, res.Included)
			if err != nil {
				return nil, &xerrors.StorageError{Op: "fetch.materialize", Err: err}
			}
		}

		projected := make([]map[string]interface{}, 0, len(items))
		for _, doc := range items {
			projected = append(projected, applyProjections(doc, t, req.FieldProjections))
		}

		if len(res.Overflow) > 0 {
			log.WithField("type", string(t)).WithField("overflow", len(res.Overflow)).Debug("budget exhausted, ids truncated to overflow")
		}

		resp.Results[t] = TypeResult{
			Items: projected,
			Overflow: OverflowSet{
				ResourceType: string(t),
				OverflowIDs:  res.Overflow,
			},
		}
	}

	return resp, nil
}

func (f *Fetcher) resolveRoutes(req Request, maxDepth int) ([]Route, error) {
	if len(req.Routes) > 0 {
		routes := make([]Route, 0, len(req.Routes))
		for _, rr := range req.Routes {
			r, err := parseExplicitRoute(req.RootType, rr)
			if err != nil {
				return nil, err
			}
			routes = append(routes, r)
		}
		return routes, nil
	}

	targets := make([]typegraph.EntityType, 0, len(req.IncludeTypes))
	for _, t := range req.IncludeTypes {
		if t != req.RootType {
			targets = append(targets, t)
		}
	}
	routes, err := deriveRoutes(req.RootType, targets, maxDepth)
	if err != nil {
		if unreachable, ok := err.(*xerrors.UnreachableTarget); ok {
			return nil, &xerrors.UnreachableAutoRoute{RootType: string(req.RootType), Target: unreachable.Target, MaxDepth: maxDepth}
		}
		return nil, err
	}
	return routes, nil
}

func validateRequest(req Request) error {
	if req.RootType == "" || req.RootExternalKey == "" {
		return &xerrors.BadRequest{Reason: "missing root"}
	}
	if !typegraph.IsKnownType(req.RootType) {
		return &xerrors.BadRequest{Reason: "unknown root type"}
	}
	if len(req.IncludeTypes) == 0 {
		return &xerrors.BadRequest{Reason: "empty include types"}
	}
	seen := map[typegraph.EntityType]bool{}
	for _, t := range req.IncludeTypes {
		if seen[t] {
			return &xerrors.BadRequest{Reason: "duplicate include type: " + string(t)}
		}
		seen[t] = true
		if !typegraph.IsKnownType(t) {
			return &xerrors.BadRequest{Reason: "unknown include type: " + string(t)}
		}
	}
	if req.Budget < 0 {
		return &xerrors.BadRequest{Reason: "negative budget"}
	}
	return nil
}

func asString1(v interface{}) string {
	s, _ := v.(string)
	return s
}
