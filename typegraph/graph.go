package typegraph

// edges is the fixed directed multigraph described in SPEC_FULL.md §3.1.
// It is intentionally cyclic (sgo.sgos->sgo, stage.events->event paired
// with event.stages->stage, team.venues->venue paired with
// venue.teams->team) so route derivation must enforce the simple-path
// discipline rather than assume a DAG.
var edges = []Edge{
	{From: Competition, Field: "sgos", To: SGO},
	{From: Competition, Field: "stages", To: Stage},

	{From: SGO, Field: "sgos", To: SGO},

	{From: Stage, Field: "events", To: Event},
	{From: Stage, Field: "rankings", To: Ranking},
	{From: Stage, Field: "competitions", To: Competition},

	{From: Event, Field: "stages", To: Stage},
	{From: Event, Field: "teams", To: Team},
	{From: Event, Field: "venues", To: Venue},
	{From: Event, Field: "rankings", To: Ranking},
	{From: Event, Field: "keyMoments", To: KeyMoment},

	{From: Team, Field: "staff", To: Staff},
	{From: Team, Field: "sportsPersons", To: SportsPerson},
	{From: Team, Field: "clubs", To: Club},
	{From: Team, Field: "nations", To: Nation},
	{From: Team, Field: "venues", To: Venue},

	{From: Venue, Field: "teams", To: Team},
	{From: Venue, Field: "events", To: Event},

	{From: Staff, Field: "sportsPersons", To: SportsPerson},
	{From: Staff, Field: "clubs", To: Club},
	{From: Staff, Field: "nations", To: Nation},
	{From: Staff, Field: "teams", To: Team},

	{From: Ranking, Field: "teams", To: Team},
	{From: Ranking, Field: "sportsPersons", To: SportsPerson},
	{From: Ranking, Field: "stages", To: Stage},
	{From: Ranking, Field: "events", To: Event},

	{From: Club, Field: "teams", To: Team},
	{From: Club, Field: "staff", To: Staff},

	{From: Nation, Field: "teams", To: Team},
	{From: Nation, Field: "staff", To: Staff},

	{From: SportsPerson, Field: "teams", To: Team},
	{From: SportsPerson, Field: "staff", To: Staff},

	{From: KeyMoment, Field: "events", To: Event},
}

// competitionScoped is the fixed scope classification for each entity type.
var competitionScoped = map[EntityType]bool{
	Competition: true,
	Stage:       true,
	Event:       true,
	Team:        true,
	Staff:       true,
	Ranking:     true,
	KeyMoment:   true,
}

// homeCollections maps each entity type to its home collection name.
// Collection names are otherwise configurable storage-layer concerns;
// this table is the one place that fixes the mapping entity type ->
// collection identity.
var homeCollections = map[EntityType]string{
	Competition:  "competitions",
	Stage:        "stages",
	Event:        "events",
	Team:         "teams",
	Venue:        "venues",
	Club:         "clubs",
	SGO:          "sgos",
	Nation:       "nations",
	SportsPerson: "sportsPersons",
	Staff:        "staff",
	Ranking:      "rankings",
	KeyMoment:    "keyMoments",
}

// IsCompetitionScoped reports whether t belongs to the competition-scoped
// subset of entity types.
func IsCompetitionScoped(t EntityType) bool {
	return competitionScoped[t]
}

// OutgoingEdges returns every edge whose From is t, in declaration order.
func OutgoingEdges(t EntityType) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.From == t {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns the full edge table in declaration order.
func AllEdges() []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// CollectionOf returns the home collection name for t, and false if t is
// not a recognized entity type.
func CollectionOf(t EntityType) (string, bool) {
	name, ok := homeCollections[t]
	return name, ok
}

// FieldNameFor returns the array field name every aggregation record
// uses to hold neighbors of type target, e.g. "teams" for Team or
// "keyMoments" for KeyMoment. Every edge in the table that targets a
// given type shares the same field name, so this is well-defined
// independent of which source type owns the edge; reference-maintenance
// (C4) uses it to name the back-pointer slot an *arbitrary* neighbor
// type's record keeps for the type being rebuilt.
func FieldNameFor(target EntityType) (string, bool) {
	for _, e := range edges {
		if e.To == target {
			return e.Field, true
		}
	}
	return "", false
}

// IsKnownType reports whether t is one of the fixed entity types.
func IsKnownType(t EntityType) bool {
	_, ok := homeCollections[t]
	return ok
}

// ScopeTogglePermitted implements the route scope regime: whether a
// hop from `from` to `to` is permitted given the scope class of the
// route's root.
func ScopeTogglePermitted(rootType, from, to EntityType) bool {
	rootScoped := IsCompetitionScoped(rootType)
	fromScoped := IsCompetitionScoped(from)
	toScoped := IsCompetitionScoped(to)

	if rootScoped {
		// Non-competition-scoped -> competition-scoped is forbidden:
		// it would fan back into sibling competitions.
		if !fromScoped && toScoped {
			return false
		}
		return true
	}

	// Root is non-competition-scoped: any hop between two
	// competition-scoped types is forbidden.
	if fromScoped && toScoped {
		return false
	}
	return true
}

// IsScopeToggle reports whether crossing this edge changes scope class,
// used by route scoring.
func IsScopeToggle(from, to EntityType) bool {
	return IsCompetitionScoped(from) != IsCompetitionScoped(to)
}
