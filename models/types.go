package models

import "time"

// Poll constraints
const (
	MinOptions = 2
	MaxOptions = 10
)

// Username constraints
const (
	MinUsernameLen = 2
	MaxUsernameLen = 50
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Public   *bool    `json:"public,omitempty"`
}

// OptionIndex is a pointer so a missing selection can be told apart from option 0
type SubmitVoteRequest struct {
	OptionIndex *int `json:"option_index"`
}

type SignInRequest struct {
	Username string `json:"username"`
}

// Response types

type CreatePollResponse struct {
	PollID string `json:"poll_id"`
	Poll   Poll   `json:"poll"`
}

type SubmitVoteResponse struct {
	VoteID  string      `json:"vote_id"`
	Message string      `json:"message"`
	Results PollResults `json:"results"`
}

type MyVoteResponse struct {
	PollID   string `json:"poll_id"`
	HasVoted bool   `json:"has_voted"`
}

type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   Profile   `json:"profile"`
	IsNew     bool      `json:"is_new"`
}

type ListPollsResponse struct {
	Polls []PollSummary `json:"polls"`
}

// Domain types

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

type Vote struct {
	ID          string    `json:"id"`
	PollID      string    `json:"poll_id"`
	OptionIndex int       `json:"option_index"`
	VoterID     *string   `json:"-"` // Never expose in JSON
	CreatedAt   time.Time `json:"created_at"`
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteEvent is the change-feed payload emitted for every inserted vote row
type VoteEvent struct {
	PollID      string    `json:"poll_id"`
	VoteID      string    `json:"vote_id"`
	OptionIndex int       `json:"option_index"`
	VoterID     string    `json:"voter_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventFromVote builds the feed event for an inserted vote
func EventFromVote(v Vote) VoteEvent {
	ev := VoteEvent{
		PollID:      v.PollID,
		VoteID:      v.ID,
		OptionIndex: v.OptionIndex,
		CreatedAt:   v.CreatedAt,
	}
	if v.VoterID != nil {
		ev.VoterID = *v.VoterID
	}
	return ev
}

// Result types

type OptionResult struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Votes   int    `json:"votes"`
	Percent int    `json:"percent"`
}

// Segment is one slice of the results pie chart, angles in radians
type Segment struct {
	Index      int     `json:"index"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Color      string  `json:"color"`
}

type PollResults struct {
	PollID     string         `json:"poll_id"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	Segments   []Segment      `json:"segments"`
}

type PollDetail struct {
	Poll     Poll        `json:"poll"`
	Results  PollResults `json:"results"`
	HasVoted bool        `json:"has_voted"`
}

type PollSummary struct {
	ID          string         `json:"id"`
	Question    string         `json:"question"`
	OptionCount int            `json:"option_count"`
	TotalVotes  int            `json:"total_votes"`
	Options     []OptionResult `json:"options"`
	Public      bool           `json:"public"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedAgo  string         `json:"created_ago"`
}

// LiveMessage is pushed to WebSocket viewers on connect and after every folded vote
type LiveMessage struct {
	Type    string      `json:"type"`
	Results PollResults `json:"results"`
}

// Live message types
const (
	LiveSnapshot = "snapshot"
	LiveUpdate   = "update"
)

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	// RecoverTo is the single recovery action offered by the top-level handler
	RecoverTo string `json:"recover_to,omitempty"`
}
