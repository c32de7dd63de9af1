package keycodec

import (
	"strings"

	"github.com/evalgo-org/sportsxref/xerrors"
)

// RankingSourceKind distinguishes whether a ranking's source is a stage
// or an event.
type RankingSourceKind string

const (
	RankingSourceStage RankingSourceKind = "stage"
	RankingSourceEvent RankingSourceKind = "event"
)

// RankingParticipantKind distinguishes whether a ranking's subject is a
// team or a sportsPerson.
type RankingParticipantKind string

const (
	RankingParticipantTeam         RankingParticipantKind = "team"
	RankingParticipantSportsPerson RankingParticipantKind = "sportsPerson"
)

// RankingKey is the structurally-valid decomposition of a ranking
// compound external key:
//
//	{stage|event}Id<Simple>scope<Variant>{team|sportsPerson}Id<Simple>scope<Label>dateTimeLabel<Position>rank
type RankingKey struct {
	Source            RankingSourceKind
	SourceID          string
	SourceScope       string
	Participant       RankingParticipantKind
	ParticipantID     string
	ParticipantScope  string
	DateTimeLabel     string
	Rank              string
}

// variantSeparator returns the separator encoding the given
// (source, participant) combination.
func variantSeparator(sep Separators, source RankingSourceKind, participant RankingParticipantKind) (string, error) {
	switch {
	case source == RankingSourceStage && participant == RankingParticipantTeam:
		return sep.RankingStageTeam, nil
	case source == RankingSourceStage && participant == RankingParticipantSportsPerson:
		return sep.RankingStageSP, nil
	case source == RankingSourceEvent && participant == RankingParticipantTeam:
		return sep.RankingEventTeam, nil
	case source == RankingSourceEvent && participant == RankingParticipantSportsPerson:
		return sep.RankingEventSP, nil
	default:
		return "", &xerrors.BadCompoundKey{Kind: "ranking", Key: string(source) + "/" + string(participant)}
	}
}

// BuildRankingKey composes a ranking compound external key.
func BuildRankingKey(sep Separators, k RankingKey) (string, error) {
	variant, err := variantSeparator(sep, k.Source, k.Participant)
	if err != nil {
		return "", err
	}

	left := k.SourceID + sep.Simple + k.SourceScope
	right := k.ParticipantID + sep.Simple + k.ParticipantScope + sep.RankingLabel + k.DateTimeLabel + sep.RankingPosition + k.Rank
	return left + variant + right, nil
}

// variants enumerates every (source, participant, separator) combination
// in a fixed order, used by ParseRankingKey to determine which variant a
// raw key string encodes.
func variants(sep Separators) []struct {
	source      RankingSourceKind
	participant RankingParticipantKind
	separator   string
} {
	return []struct {
		source      RankingSourceKind
		participant RankingParticipantKind
		separator   string
	}{
		{RankingSourceStage, RankingParticipantTeam, sep.RankingStageTeam},
		{RankingSourceStage, RankingParticipantSportsPerson, sep.RankingStageSP},
		{RankingSourceEvent, RankingParticipantTeam, sep.RankingEventTeam},
		{RankingSourceEvent, RankingParticipantSportsPerson, sep.RankingEventSP},
	}
}

// ParseRankingKey strictly decodes a ranking compound external key. It
// returns *xerrors.BadCompoundKey for anything that does not
// unambiguously match exactly one variant's grammar.
func ParseRankingKey(sep Separators, key string) (RankingKey, error) {
	var matches []RankingKey

	for _, v := range variants(sep) {
		idx := strings.Index(key, v.separator)
		if idx < 0 {
			continue
		}
		// Guard against a variant separator that is itself a
		// substring of a longer one matching first; require the
		// split to fully consume into two valid halves.
		left := key[:idx]
		right := key[idx+len(v.separator):]

		sourceID, sourceScope, err := ParseExternalKey(sep, left)
		if err != nil {
			continue
		}

		labelIdx := strings.Index(right, sep.RankingLabel)
		if labelIdx < 0 {
			continue
		}
		participantPart := right[:labelIdx]
		afterLabel := right[labelIdx+len(sep.RankingLabel):]

		participantID, participantScope, err := ParseExternalKey(sep, participantPart)
		if err != nil {
			continue
		}

		posIdx := strings.Index(afterLabel, sep.RankingPosition)
		if posIdx < 0 {
			continue
		}
		dateTimeLabel := afterLabel[:posIdx]
		rank := afterLabel[posIdx+len(sep.RankingPosition):]
		if dateTimeLabel == "" || rank == "" {
			continue
		}

		matches = append(matches, RankingKey{
			Source:           v.source,
			SourceID:         sourceID,
			SourceScope:      sourceScope,
			Participant:      v.participant,
			ParticipantID:    participantID,
			ParticipantScope: participantScope,
			DateTimeLabel:    dateTimeLabel,
			Rank:             rank,
		})
	}

	if len(matches) != 1 {
		return RankingKey{}, &xerrors.BadCompoundKey{Kind: "ranking", Key: key}
	}
	return matches[0], nil
}
