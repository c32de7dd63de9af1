package aggregator

import (
	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// refsOnEdge reads the array of neighbor-reference sub-documents a
// source document carries for one outgoing edge. Home documents are
// assumed to carry one such array per outgoing edge of their type,
// named after the edge's field — a direct field enumeration on the
// source; this module always resolves neighbors this way, see
// DESIGN.md for why reverse lookups were not also implemented.
func refsOnEdge(source store.Document, edge typegraph.Edge) []store.Document {
	raw, ok := source[edge.Field].([]interface{})
	if !ok {
		return nil
	}
	out := make([]store.Document, 0, len(raw))
	for _, item := range raw {
		if d, ok := item.(store.Document); ok {
			out = append(out, d)
		}
	}
	return out
}

// neighborExternalKey computes the external key a single reference
// sub-document denotes, dispatching on the edge's target type since
// staff, ranking, and keyMoment carry compound keys whose grammar
// folds in identity fields of the *source* document.
func neighborExternalKey(sep keycodec.Separators, source *Record, edge typegraph.Edge, ref store.Document) (string, error) {
	switch edge.To {
	case typegraph.Staff:
		affiliation, err := affiliationKindFor(source.ResourceType)
		if err != nil {
			return "", err
		}
		return keycodec.BuildStaffKey(sep, keycodec.StaffKey{
			SportsPersonID:    refString(ref, "sportsPersonId"),
			SportsPersonScope: refString(ref, "sportsPersonScope"),
			Affiliation:       affiliation,
			AffiliationID:     source.ExternalID,
			AffiliationScope:  source.ExternalScope,
		})

	case typegraph.Ranking:
		sourceKind, err := rankingSourceKindFor(source.ResourceType)
		if err != nil {
			return "", err
		}
		participantKind := keycodec.RankingParticipantTeam
		if refString(ref, "participantKind") == "sportsPerson" {
			participantKind = keycodec.RankingParticipantSportsPerson
		}
		return keycodec.BuildRankingKey(sep, keycodec.RankingKey{
			Source:            sourceKind,
			SourceID:          source.ExternalID,
			SourceScope:       source.ExternalScope,
			Participant:       participantKind,
			ParticipantID:     refString(ref, "participantId"),
			ParticipantScope:  refString(ref, "participantScope"),
			DateTimeLabel:     refString(ref, "dateTimeLabel"),
			Rank:              refString(ref, "rank"),
		})

	case typegraph.KeyMoment:
		return keycodec.BuildKeyMomentKey(sep, keycodec.KeyMomentKey{
			ISODateTime: refString(ref, "isoDateTime"),
			EventID:     source.ExternalID,
			Scope:       source.ExternalScope,
			Type:        refString(ref, "type"),
			SubType:     refString(ref, "subType"),
		}), nil

	default:
		return keycodec.BuildExternalKey(sep, refString(ref, "extId"), refString(ref, "scope")), nil
	}
}

func affiliationKindFor(t typegraph.EntityType) (keycodec.StaffAffiliationKind, error) {
	switch t {
	case typegraph.Team:
		return keycodec.StaffAffiliationTeam, nil
	case typegraph.Club:
		return keycodec.StaffAffiliationClub, nil
	case typegraph.Nation:
		return keycodec.StaffAffiliationNation, nil
	default:
		return "", &badAffiliationSource{t}
	}
}

func rankingSourceKindFor(t typegraph.EntityType) (keycodec.RankingSourceKind, error) {
	switch t {
	case typegraph.Stage:
		return keycodec.RankingSourceStage, nil
	case typegraph.Event:
		return keycodec.RankingSourceEvent, nil
	default:
		return "", &badRankingSource{t}
	}
}

type badAffiliationSource struct{ t typegraph.EntityType }

func (e *badAffiliationSource) Error() string {
	return "type " + string(e.t) + " cannot own a staff affiliation edge"
}

type badRankingSource struct{ t typegraph.EntityType }

func (e *badRankingSource) Error() string {
	return "type " + string(e.t) + " cannot own a ranking source edge"
}

func refString(ref store.Document, field string) string {
	s, _ := ref[field].(string)
	return s
}
