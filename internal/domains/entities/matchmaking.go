package entities

// MatchEntrySchemaVersion tags serialized MatchEntry payloads so the
// decoder can reject payloads written by an incompatible build.
const MatchEntrySchemaVersion = 1

// MatchEntry is the transient projection of a Duel kept in the ephemeral
// store while matchmaking and coordination are in flight. Never
// authoritative after settlement.
type MatchEntry struct {
	SchemaVersion int     `json:"v"`
	DuelId        string  `json:"duelId"`
	User1         string  `json:"user1"`
	User2         string  `json:"user2,omitempty"`
	ChallengeId   string  `json:"challengeId"`
	WinningScore  float64 `json:"winningScore"`
	User1Score    float64 `json:"user1Score"`
	User2Score    float64 `json:"user2Score"`
}

// Confirmation answers recorded per participant while a pairing awaits
// both sides' yes/no.
const (
	AnswerPending = "pending"
	AnswerYes     = "yes"
	AnswerNo      = "no"
)
