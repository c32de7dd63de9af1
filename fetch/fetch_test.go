package fetch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/store/storetest"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
)

const aggColl = "aggregation_records"

func newTestFetcher(s *storetest.Store) *Fetcher {
	return NewFetcher(s, aggColl)
}

// Scenario 1: single-hop materialize.
func TestExecute_singleHopMaterialize(t *testing.T) {
	s := storetest.New()
	s.Seed(aggColl, store.Document{
		"resourceType": "competition", "externalKey": "289175|fifa", "gamedayId": "c1",
		"stages": []interface{}{"stg1", "stg2"},
		"sgos":   []interface{}{"sg1"},
	})
	s.Seed("stages",
		store.Document{"_id": "stg1", "resourceType": "stage", "name": "Group A"},
		store.Document{"_id": "stg2", "resourceType": "stage", "name": "Group B"},
	)
	s.Seed("sgos", store.Document{"_id": "sg1", "resourceType": "sgo", "name": "FIFA"})

	f := newTestFetcher(s)
	resp, err := f.Execute(context.Background(), Request{
		RootType: typegraph.Competition, RootExternalKey: "289175|fifa",
		IncludeTypes: []typegraph.EntityType{typegraph.Stage, typegraph.SGO},
		Budget:       20,
	})
	require.NoError(t, err)

	require.Contains(t, resp.Results, typegraph.Stage)
	require.Contains(t, resp.Results, typegraph.SGO)

	stageRes := resp.Results[typegraph.Stage]
	assert.Equal(t, 2, len(stageRes.Items)+len(stageRes.Overflow.OverflowIDs))

	sgoRes := resp.Results[typegraph.SGO]
	assert.Equal(t, 1, len(sgoRes.Items)+len(sgoRes.Overflow.OverflowIDs))
}

// Scenario 2: shared-prefix plan produces exactly six deduplicated
// steps (one per distinct edge label) across four routes that all start
// with competition.stages->stage, three of them continuing through
// stage.events->event.
func TestPlanSteps_sharedPrefixDedup(t *testing.T) {
	stagesEdge := typegraph.Edge{From: typegraph.Competition, Field: "stages", To: typegraph.Stage}
	eventsEdge := typegraph.Edge{From: typegraph.Stage, Field: "events", To: typegraph.Event}
	teamsEdge := typegraph.Edge{From: typegraph.Event, Field: "teams", To: typegraph.Team}
	venuesEdge := typegraph.Edge{From: typegraph.Event, Field: "venues", To: typegraph.Venue}
	eventRankingsEdge := typegraph.Edge{From: typegraph.Event, Field: "rankings", To: typegraph.Ranking}
	stageRankingsEdge := typegraph.Edge{From: typegraph.Stage, Field: "rankings", To: typegraph.Ranking}

	routes := []Route{
		{Key: "team", To: typegraph.Team, Path: []typegraph.Edge{stagesEdge, eventsEdge, teamsEdge}},
		{Key: "venue", To: typegraph.Venue, Path: []typegraph.Edge{stagesEdge, eventsEdge, venuesEdge}},
		{Key: "rankingViaEvent", To: typegraph.Ranking, Path: []typegraph.Edge{stagesEdge, eventsEdge, eventRankingsEdge}},
		{Key: "rankingViaStage", To: typegraph.Ranking, Path: []typegraph.Edge{stagesEdge, stageRankingsEdge}},
	}

	steps := planSteps(routes)
	require.Len(t, steps, 6)

	keys := map[string]Step{}
	for _, s := range steps {
		keys[s.Key] = s
	}
	assert.Equal(t, 0, keys[stagesEdge.Label()].Depth)
	assert.Equal(t, 1, keys[eventsEdge.Label()].Depth)
	assert.Equal(t, stagesEdge.Label(), keys[eventsEdge.Label()].DependsOnKey)
	assert.Equal(t, 2, keys[teamsEdge.Label()].Depth)
	assert.Equal(t, 2, keys[venuesEdge.Label()].Depth)
	assert.Equal(t, 2, keys[eventRankingsEdge.Label()].Depth)
	assert.Equal(t, 1, keys[stageRankingsEdge.Label()].Depth)

	// stable under permutation of the route list
	reordered := []Route{routes[3], routes[1], routes[0], routes[2]}
	steps2 := planSteps(reordered)
	require.Len(t, steps2, 6)
	for i := range steps {
		assert.Equal(t, steps[i].Key, steps2[i].Key)
	}
}

// Scenario 3: union across two routes that both end at team.
func TestExecute_unionAcrossRoutes(t *testing.T) {
	s := storetest.New()
	s.Seed(aggColl,
		store.Document{"resourceType": "competition", "externalKey": "289175|fifa", "gamedayId": "c1", "stages": []interface{}{"stg1"}},
		store.Document{"resourceType": "stage", "gamedayId": "stg1", "events": []interface{}{"ev1"}, "rankings": []interface{}{"rk1"}},
		store.Document{"resourceType": "event", "gamedayId": "ev1", "teams": []interface{}{"t1", "t2"}},
		store.Document{"resourceType": "ranking", "gamedayId": "rk1", "teams": []interface{}{"t2", "t3"}},
	)
	s.Seed("teams",
		store.Document{"_id": "t1", "resourceType": "team", "name": "A"},
		store.Document{"_id": "t2", "resourceType": "team", "name": "B"},
		store.Document{"_id": "t3", "resourceType": "team", "name": "C"},
	)

	f := newTestFetcher(s)
	resp, err := f.Execute(context.Background(), Request{
		RootType: typegraph.Competition, RootExternalKey: "289175|fifa",
		IncludeTypes: []typegraph.EntityType{typegraph.Team},
		Budget:       10,
		Routes: []RequestRoute{
			{Key: "viaEvent", To: typegraph.Team, Via: []string{"competition.stages->stage", "stage.events->event", "event.teams->team"}},
			{Key: "viaRanking", To: typegraph.Team, Via: []string{"competition.stages->stage", "stage.rankings->ranking", "ranking.teams->team"}},
		},
	})
	require.NoError(t, err)

	teamRes := resp.Results[typegraph.Team]
	assert.Equal(t, 3, len(teamRes.Items)+len(teamRes.Overflow.OverflowIDs), "t2 must be deduplicated across both routes")
}

// Scenario 4: budget overflow, applied in request order.
func TestApplyBudget_overflowInRequestOrder(t *testing.T) {
	unions := map[typegraph.EntityType]*orderedSet{
		typegraph.Stage: setOfSize(3),
		typegraph.Event: setOfSize(10),
		typegraph.Team:  setOfSize(50),
		typegraph.Venue: setOfSize(2),
	}
	order := []typegraph.EntityType{typegraph.Stage, typegraph.Event, typegraph.Team, typegraph.Venue}

	results := applyBudget(5, order, typegraph.EntityType(""), "", unions)
	assert.Len(t, results[typegraph.Stage].Included, 3)
	assert.Len(t, results[typegraph.Event].Included, 2)
	assert.Len(t, results[typegraph.Team].Included, 0)
	assert.Len(t, results[typegraph.Venue].Included, 0)
	assert.Len(t, results[typegraph.Team].Overflow, 50)
	assert.Len(t, results[typegraph.Venue].Overflow, 2)
}

func TestApplyBudget_rootConsumesOneSlotFirst(t *testing.T) {
	unions := map[typegraph.EntityType]*orderedSet{
		typegraph.Stage: setOfSize(3),
		typegraph.Event: setOfSize(10),
	}
	order := []typegraph.EntityType{typegraph.Competition, typegraph.Stage, typegraph.Event}

	results := applyBudget(5, order, typegraph.Competition, "c1", unions)
	require.Len(t, results[typegraph.Competition].Included, 1)
	assert.Equal(t, "c1", results[typegraph.Competition].Included[0])
	assert.Len(t, results[typegraph.Stage].Included, 3)
	assert.Len(t, results[typegraph.Event].Included, 1)
}

func setOfSize(n int) *orderedSet {
	s := newOrderedSet()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}
	s.addAll(ids)
	return s
}

// Scenario 5: cycle refused.
func TestParseExplicitRoute_revisitedNodeIsCycleDetected(t *testing.T) {
	_, err := parseExplicitRoute(typegraph.SGO, RequestRoute{
		Key: "loop", To: typegraph.SGO,
		Via: []string{"sgo.sgos->sgo", "sgo.sgos->sgo"},
	})
	var cycle *xerrors.CycleDetected
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, 2, cycle.HopIndex)
	assert.Equal(t, "sgo", cycle.Node)
}

func TestParseExplicitRoute_validRoute(t *testing.T) {
	r, err := parseExplicitRoute(typegraph.Competition, RequestRoute{
		Key: "directStages", To: typegraph.Stage,
		Via: []string{"competition.stages->stage"},
	})
	require.NoError(t, err)
	assert.Equal(t, typegraph.Stage, r.To)
	require.Len(t, r.Path, 1)
	assert.Equal(t, typegraph.Competition, r.Path[0].From)
}

func TestParseExplicitRoute_nonContiguousHop(t *testing.T) {
	_, err := parseExplicitRoute(typegraph.Competition, RequestRoute{
		Key: "bad", To: typegraph.Team,
		Via: []string{"competition.stages->stage", "event.teams->team"},
	})
	var invalid *xerrors.RouteInvalid
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.HopIndex)
}

func TestParseExplicitRoute_wrongFinalTarget(t *testing.T) {
	_, err := parseExplicitRoute(typegraph.Competition, RequestRoute{
		Key: "bad", To: typegraph.Event,
		Via: []string{"competition.stages->stage"},
	})
	var invalid *xerrors.RouteInvalid
	require.ErrorAs(t, err, &invalid)
}

// Scenario 6: scope-regime reject, falling back to a permissible
// alternative (or failing UnreachableAutoRoute when none exists).
func TestDeriveRoutes_scopeRegimeExcludesForbiddenHop(t *testing.T) {
	routes, err := deriveRoutes(typegraph.Competition, []typegraph.EntityType{typegraph.Team}, 6)
	require.NoError(t, err)
	require.Len(t, routes, 1)

	for _, edge := range routes[0].Path {
		assert.False(t, edge.From == typegraph.Venue && edge.To == typegraph.Team,
			"competition-scoped root must never cross venue.teams->team")
	}
}

func TestDeriveRoutes_noPermissibleRouteFailsUnreachable(t *testing.T) {
	// From a team root, event is graph-reachable only via team->venue->event,
	// and that second hop (non-competition-scoped -> competition-scoped) is
	// forbidden for a competition-scoped root.
	_, err := deriveRoutes(typegraph.Team, []typegraph.EntityType{typegraph.Event}, 6)
	var unreachable *xerrors.UnreachableTarget
	require.ErrorAs(t, err, &unreachable)
}

func TestExecute_noPermissibleRouteSurfacesUnreachableAutoRoute(t *testing.T) {
	s := storetest.New()
	s.Seed(aggColl, store.Document{
		"resourceType": "team", "externalKey": "t1|fifa", "gamedayId": "team1",
	})

	f := newTestFetcher(s)
	_, err := f.Execute(context.Background(), Request{
		RootType: typegraph.Team, RootExternalKey: "t1|fifa",
		IncludeTypes: []typegraph.EntityType{typegraph.Event},
		Budget:       5,
	})
	var unreachable *xerrors.UnreachableAutoRoute
	require.ErrorAs(t, err, &unreachable)
}

func TestExecute_rootMissingFailsFast(t *testing.T) {
	s := storetest.New()
	f := newTestFetcher(s)
	_, err := f.Execute(context.Background(), Request{
		RootType: typegraph.Competition, RootExternalKey: "missing",
		IncludeTypes: []typegraph.EntityType{typegraph.Stage},
		Budget:       5,
	})
	var rootMissing *xerrors.RootMissing
	require.ErrorAs(t, err, &rootMissing)
}

func TestValidateRequest_rejectsEmptyIncludeTypes(t *testing.T) {
	err := validateRequest(Request{RootType: typegraph.Competition, RootExternalKey: "x"})
	var bad *xerrors.BadRequest
	require.ErrorAs(t, err, &bad)
}

func TestApplyProjections_exclusionWinsOverInclusion(t *testing.T) {
	doc := store.Document{"_id": "t1", "resourceType": "team", "name": "Albania", "founded": "1930"}
	fp := &FieldProjections{
		Inclusions: &TypeProjection{All: map[string]bool{"name": true, "founded": true}},
		Exclusions: &TypeProjection{All: map[string]bool{"founded": true}},
	}
	out := applyProjections(doc, typegraph.Team, fp)
	assert.Equal(t, "Albania", out["name"])
	_, hasFounded := out["founded"]
	assert.False(t, hasFounded, "exclusion projection must win over inclusion keep-list")
	assert.Equal(t, "t1", out["_id"], "identity fields survive an inclusion keep-list regardless")
}

func TestApplyProjections_compoundTagFilter(t *testing.T) {
	doc := store.Document{
		"_id": "t1", "resourceType": "team",
		"tags": []interface{}{
			store.Document{"name": "rival"},
			store.Document{"name": "host"},
			store.Document{"name": "internal-note"},
		},
	}
	fp := &FieldProjections{
		Exclusions: &TypeProjection{All: map[string]bool{"tags>internal-*": true}},
	}
	out := applyProjections(doc, typegraph.Team, fp)
	tags := out["tags"].([]interface{})
	require.Len(t, tags, 2)
	for _, item := range tags {
		name := item.(store.Document)["name"].(string)
		assert.NotEqual(t, "internal-note", name)
	}
}
