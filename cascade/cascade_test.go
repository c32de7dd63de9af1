package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo-org/sportsxref/aggregator"
	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/store/storetest"
	"github.com/evalgo-org/sportsxref/typegraph"
)

const aggColl = "aggregation_records"

func newTestOrchestrator(s *storetest.Store) *Orchestrator {
	sep := keycodec.DefaultSeparators()
	builder := aggregator.NewBuilder(s, aggColl, sep)
	return NewOrchestrator(builder, s, aggColl, sep)
}

// seedFullTree builds a competition whose transitive closure exercises
// every one of the ten cascade phases, including a self-referential sgo
// cycle (sgo1 -> sgo2 -> sgo1) and a venue reachable from both an event
// and a team so phase 10's worklist must dedup it.
func seedFullTree(t *testing.T) (*storetest.Store, string, map[string]string) {
	t.Helper()
	s := storetest.New()
	sep := keycodec.DefaultSeparators()

	s.Seed("competitions", store.Document{
		"_id": "c1", "resourceType": "competition", "externalKey": "289175|fifa",
		"_externalId": "289175", "_externalIdScope": "fifa", "name": "World Cup",
		"sgos":   []interface{}{store.Document{"extId": "sgo1", "scope": "fifa"}},
		"stages": []interface{}{store.Document{"extId": "st1", "scope": "fifa"}},
	})

	s.Seed("sgos", store.Document{
		"_id": "sg1", "resourceType": "sgo", "externalKey": "sgo1|fifa",
		"_externalId": "sgo1", "_externalIdScope": "fifa", "name": "Zone A",
		"sgos": []interface{}{store.Document{"extId": "sgo2", "scope": "fifa"}},
	})
	s.Seed("sgos", store.Document{
		"_id": "sg2", "resourceType": "sgo", "externalKey": "sgo2|fifa",
		"_externalId": "sgo2", "_externalIdScope": "fifa", "name": "Zone B",
		"sgos": []interface{}{store.Document{"extId": "sgo1", "scope": "fifa"}},
	})

	rk1Key, err := keycodec.BuildRankingKey(sep, keycodec.RankingKey{
		Source: keycodec.RankingSourceStage, SourceID: "st1", SourceScope: "fifa",
		Participant: keycodec.RankingParticipantTeam, ParticipantID: "t1", ParticipantScope: "fifa",
		DateTimeLabel: "2024-01-01T00:00:00Z", Rank: "1",
	})
	require.NoError(t, err)
	rk2Key, err := keycodec.BuildRankingKey(sep, keycodec.RankingKey{
		Source: keycodec.RankingSourceStage, SourceID: "st1", SourceScope: "fifa",
		Participant: keycodec.RankingParticipantTeam, ParticipantID: "t2", ParticipantScope: "fifa",
		DateTimeLabel: "2024-01-02T00:00:00Z", Rank: "2",
	})
	require.NoError(t, err)

	s.Seed("stages", store.Document{
		"_id": "stg1", "resourceType": "stage", "externalKey": "st1|fifa",
		"_externalId": "st1", "_externalIdScope": "fifa", "name": "Group Stage",
		"events": []interface{}{store.Document{"extId": "ev1", "scope": "fifa"}},
		"rankings": []interface{}{
			store.Document{"participantKind": "team", "participantId": "t1", "participantScope": "fifa", "dateTimeLabel": "2024-01-01T00:00:00Z", "rank": "1"},
			store.Document{"participantKind": "team", "participantId": "t2", "participantScope": "fifa", "dateTimeLabel": "2024-01-02T00:00:00Z", "rank": "2"},
		},
	})

	s.Seed("rankings", store.Document{
		"_id": "rk1", "resourceType": "ranking", "externalKey": rk1Key,
	})
	// rk2 resolves to a home document during neighbor resolution (it has
	// a resourceType/externalKey match) but is missing _id, so its own
	// rebuild fails with a malformed-source error rather than NotFound.
	s.Seed("rankings", store.Document{
		"resourceType": "ranking", "externalKey": rk2Key,
	})

	s.Seed("events", store.Document{
		"_id": "ev1id", "resourceType": "event", "externalKey": "ev1|fifa",
		"_externalId": "ev1", "_externalIdScope": "fifa", "name": "Opening Match",
		"teams":  []interface{}{store.Document{"extId": "t1", "scope": "fifa"}},
		"venues": []interface{}{store.Document{"extId": "v1", "scope": "fifa"}},
	})

	s.Seed("teams", store.Document{
		"_id": "team1", "resourceType": "team", "externalKey": "t1|fifa",
		"_externalId": "t1", "_externalIdScope": "fifa", "name": "Albania",
		"staff":         []interface{}{store.Document{"sportsPersonId": "sp1", "sportsPersonScope": "fifa"}},
		"sportsPersons": []interface{}{store.Document{"extId": "sp1", "scope": "fifa"}},
		"clubs":         []interface{}{store.Document{"extId": "cl1", "scope": "fifa"}},
		"nations":       []interface{}{store.Document{"extId": "na1", "scope": "fifa"}},
		// same venue v1 the event already referenced, so phase 10 must dedup.
		"venues": []interface{}{store.Document{"extId": "v1", "scope": "fifa"}},
	})

	staffKey, err := keycodec.BuildStaffKey(sep, keycodec.StaffKey{
		SportsPersonID: "sp1", SportsPersonScope: "fifa",
		Affiliation: keycodec.StaffAffiliationTeam, AffiliationID: "t1", AffiliationScope: "fifa",
	})
	require.NoError(t, err)
	s.Seed("staff", store.Document{
		"_id": "staff1", "resourceType": "staff", "externalKey": staffKey,
		"_externalId": "sp1", "_externalIdScope": "fifa", "name": "Coach",
	})

	s.Seed("sportsPersons", store.Document{
		"_id": "sp1id", "resourceType": "sportsPerson", "externalKey": "sp1|fifa",
		"_externalId": "sp1", "_externalIdScope": "fifa", "name": "Player One",
	})
	s.Seed("clubs", store.Document{
		"_id": "cl1id", "resourceType": "club", "externalKey": "cl1|fifa",
		"_externalId": "cl1", "_externalIdScope": "fifa", "name": "FC One",
	})
	s.Seed("nations", store.Document{
		"_id": "na1id", "resourceType": "nation", "externalKey": "na1|fifa",
		"_externalId": "na1", "_externalIdScope": "fifa", "name": "Nationland",
	})
	s.Seed("venues", store.Document{
		"_id": "v1id", "resourceType": "venue", "externalKey": "v1|fifa",
		"_externalId": "v1", "_externalIdScope": "fifa", "name": "Arena One",
	})

	return s, rk2Key, map[string]string{
		"sgo1": "sgo1|fifa", "sgo2": "sgo2|fifa",
		"stage": "st1|fifa", "event": "ev1|fifa",
		"team": "t1|fifa", "staff": staffKey,
		"sportsPerson": "sp1|fifa", "club": "cl1|fifa",
		"nation": "na1|fifa", "venue": "v1|fifa",
		"ranking1": rk1Key, "ranking2": rk2Key,
	}
}

func TestRebuildTransitively_walksAllTenPhases(t *testing.T) {
	s, _, keys := seedFullTree(t)
	o := newTestOrchestrator(s)

	snap, err := o.RebuildTransitively(context.Background(), "289175", "fifa")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.RunID, "every cascade run gets a correlation id for its log lines")

	completedSet := map[Key]bool{}
	for _, k := range snap.Completed {
		completedSet[k] = true
	}

	for _, want := range []Key{
		{Type: typegraph.Competition, ExternalKey: "289175|fifa"},
		{Type: typegraph.SGO, ExternalKey: keys["sgo1"]},
		{Type: typegraph.SGO, ExternalKey: keys["sgo2"]},
		{Type: typegraph.Stage, ExternalKey: keys["stage"]},
		{Type: typegraph.Event, ExternalKey: keys["event"]},
		{Type: typegraph.Ranking, ExternalKey: keys["ranking1"]},
		{Type: typegraph.Team, ExternalKey: keys["team"]},
		{Type: typegraph.Staff, ExternalKey: keys["staff"]},
		{Type: typegraph.SportsPerson, ExternalKey: keys["sportsPerson"]},
		{Type: typegraph.Club, ExternalKey: keys["club"]},
		{Type: typegraph.Nation, ExternalKey: keys["nation"]},
		{Type: typegraph.Venue, ExternalKey: keys["venue"]},
	} {
		assert.True(t, completedSet[want], "expected %+v to be completed", want)
	}

	// The sgo cycle (sgo1 -> sgo2 -> sgo1) must not cause either node to
	// be attempted more than once.
	attemptedCount := map[Key]int{}
	for _, k := range snap.Attempted {
		attemptedCount[k]++
	}
	assert.Equal(t, 1, attemptedCount[Key{Type: typegraph.SGO, ExternalKey: keys["sgo1"]}])
	assert.Equal(t, 1, attemptedCount[Key{Type: typegraph.SGO, ExternalKey: keys["sgo2"]}])

	// venue is reachable from both the event and the team, but phase 10's
	// worklist dedups it before rebuilding.
	assert.Equal(t, 1, attemptedCount[Key{Type: typegraph.Venue, ExternalKey: keys["venue"]}])
}

func TestRebuildTransitively_failedEntryDoesNotAbortSiblings(t *testing.T) {
	s, rk2Key, keys := seedFullTree(t)
	o := newTestOrchestrator(s)

	snap, err := o.RebuildTransitively(context.Background(), "289175", "fifa")
	require.NoError(t, err)

	failedSet := map[Key]bool{}
	for _, k := range snap.Failed {
		failedSet[k] = true
	}
	assert.True(t, failedSet[Key{Type: typegraph.Ranking, ExternalKey: rk2Key}], "ranking with no gamedayId should fail, not abort the walk")

	completedSet := map[Key]bool{}
	for _, k := range snap.Completed {
		completedSet[k] = true
	}
	assert.True(t, completedSet[Key{Type: typegraph.Ranking, ExternalKey: keys["ranking1"]}], "a sibling ranking failure must not prevent ranking1 from completing")
	assert.True(t, completedSet[Key{Type: typegraph.Team, ExternalKey: keys["team"]}], "downstream phases must still run after an earlier phase has a failure")
}

func TestRebuildTransitively_rootNotFoundReturnsError(t *testing.T) {
	s := storetest.New()
	o := newTestOrchestrator(s)

	_, err := o.RebuildTransitively(context.Background(), "missing", "fifa")
	assert.Error(t, err)
}

func TestRebuildOne_appliesReferenceMaintenanceOnChange(t *testing.T) {
	s := storetest.New()
	s.Seed("teams", store.Document{
		"_id": "team1", "resourceType": "team", "externalKey": "t1|fifa",
		"_externalId": "t1", "_externalIdScope": "fifa", "name": "Albania",
		"venues": []interface{}{store.Document{"extId": "v1", "scope": "fifa"}},
	})
	s.Seed("venues", store.Document{
		"_id": "v1id", "resourceType": "venue", "externalKey": "v1|fifa",
		"_externalId": "v1", "_externalIdScope": "fifa", "name": "Arena One",
	})

	o := newTestOrchestrator(s)
	_, err := o.RebuildOne(context.Background(), typegraph.Team, aggregator.Identity{ExtID: "t1", Scope: "fifa"})
	require.NoError(t, err)

	docs := s.Dump(aggColl)
	var venueRec store.Document
	for _, d := range docs {
		if d["resourceType"] == "venue" {
			venueRec = d
		}
	}
	require.NotNil(t, venueRec, "rebuilding the team must back-fill the venue's reverse pointer")
	assert.Equal(t, []interface{}{"team1"}, venueRec["teams"])
}
