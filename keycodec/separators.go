// Package keycodec implements C2: encoding and strict decoding of edge
// labels, simple external keys, and the three domain-specific compound
// external keys (ranking, staff, keyMoment), plus the stable short hash
// used to name intermediate traversal outputs during read-side planning.
package keycodec

// Separators holds every byte sequence the fixed design requires to be
// unambiguous in source data. The four Ranking<Source><Participant>
// fields (RankingStageTeam through RankingEventSP) are the "middle
// separator" of ranking key grammar: each of the four
// distinct values identifies one of the four ranking variants
// (stage|event source crossed with team|sportsPerson participant), so a
// parser can recover the variant purely from which separator appears.
type Separators struct {
	Simple string // extId <Simple> scope

	RankingStageTeam string // {stage, team} variant
	RankingStageSP   string // {stage, sportsPerson} variant
	RankingEventTeam string // {event, team} variant
	RankingEventSP   string // {event, sportsPerson} variant
	RankingLabel     string // S_L, precedes dateTimeLabel
	RankingPosition  string // S_P, precedes rank

	StaffTeam   string // S_T affiliation separator
	StaffClub   string // S_C affiliation separator
	StaffNation string // S_N affiliation separator
}

// DefaultSeparators returns printable ASCII bracket sequences chosen to
// be unambiguous against typical external ids and scope names.
func DefaultSeparators() Separators {
	return Separators{
		Simple: "|",

		RankingStageTeam: "<ST>",
		RankingStageSP:   "<SX>",
		RankingEventTeam: "<ET>",
		RankingEventSP:   "<EX>",
		RankingLabel:     "^",
		RankingPosition:  "#",

		StaffTeam:   "<T>",
		StaffClub:   "<C>",
		StaffNation: "<N>",
	}
}
