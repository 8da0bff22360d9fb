package model

type CandidateKind string

const (
	CandidateKindUser CandidateKind = "user"
	CandidateKindTeam CandidateKind = "team"
)

// Candidate is a single recommendation. ID is an email for users and a team name for teams.
type Candidate struct {
	Kind   CandidateKind `json:"kind"`
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Skills []string      `json:"skills"`
	Prizes []string      `json:"prizes"`
	// MatchedOn is the attribute value that first selected this candidate.
	MatchedOn string `json:"matched_on"`
}
