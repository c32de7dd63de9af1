package keycodec

import (
	"strings"

	"github.com/evalgo-org/sportsxref/xerrors"
)

// StaffAffiliationKind distinguishes which of team/club/nation a staff
// member's compound key affiliates them with.
type StaffAffiliationKind string

const (
	StaffAffiliationTeam   StaffAffiliationKind = "team"
	StaffAffiliationClub   StaffAffiliationKind = "club"
	StaffAffiliationNation StaffAffiliationKind = "nation"
)

// StaffKey is the structurally-valid decomposition of a staff compound
// external key:
//
//	sportsPersonId<Simple>scope<S_T|S_C|S_N>{team|club|nation}Id<Simple>scope
type StaffKey struct {
	SportsPersonID      string
	SportsPersonScope   string
	Affiliation         StaffAffiliationKind
	AffiliationID       string
	AffiliationScope    string
}

func affiliationSeparator(sep Separators, kind StaffAffiliationKind) (string, error) {
	switch kind {
	case StaffAffiliationTeam:
		return sep.StaffTeam, nil
	case StaffAffiliationClub:
		return sep.StaffClub, nil
	case StaffAffiliationNation:
		return sep.StaffNation, nil
	default:
		return "", &xerrors.BadCompoundKey{Kind: "staff", Key: string(kind)}
	}
}

// BuildStaffKey composes a staff compound external key.
func BuildStaffKey(sep Separators, k StaffKey) (string, error) {
	aff, err := affiliationSeparator(sep, k.Affiliation)
	if err != nil {
		return "", err
	}
	left := k.SportsPersonID + sep.Simple + k.SportsPersonScope
	right := k.AffiliationID + sep.Simple + k.AffiliationScope
	return left + aff + right, nil
}

// ParseStaffKey strictly decodes a staff compound external key,
// determining the affiliation kind from which separator is present.
func ParseStaffKey(sep Separators, key string) (StaffKey, error) {
	candidates := []struct {
		kind      StaffAffiliationKind
		separator string
	}{
		{StaffAffiliationTeam, sep.StaffTeam},
		{StaffAffiliationClub, sep.StaffClub},
		{StaffAffiliationNation, sep.StaffNation},
	}

	var matches []StaffKey
	for _, c := range candidates {
		idx := strings.Index(key, c.separator)
		if idx < 0 {
			continue
		}
		left := key[:idx]
		right := key[idx+len(c.separator):]

		spID, spScope, err := ParseExternalKey(sep, left)
		if err != nil {
			continue
		}
		affID, affScope, err := ParseExternalKey(sep, right)
		if err != nil {
			continue
		}

		matches = append(matches, StaffKey{
			SportsPersonID:    spID,
			SportsPersonScope: spScope,
			Affiliation:       c.kind,
			AffiliationID:     affID,
			AffiliationScope:  affScope,
		})
	}

	if len(matches) != 1 {
		return StaffKey{}, &xerrors.BadCompoundKey{Kind: "staff", Key: key}
	}
	return matches[0], nil
}
