package game

import (
	"time"
)

type Phase string

const (
	PhaseLobby           Phase = "lobby"
	PhasePromptSelection Phase = "prompt_selection"
	PhaseSubmission      Phase = "submission"
	PhaseVoting          Phase = "voting"
	PhaseScoreboard      Phase = "scoreboard"
	PhaseFinished        Phase = "finished"
)

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether a transition from p to target is legal.
func (p Phase) CanTransitionTo(target Phase) bool {
	valid := map[Phase][]Phase{
		PhaseLobby:           {PhasePromptSelection, PhaseSubmission},
		PhasePromptSelection: {PhaseSubmission},
		PhaseSubmission:      {PhaseVoting},
		PhaseVoting:          {PhaseScoreboard},
		PhaseScoreboard:      {PhaseSubmission, PhasePromptSelection, PhaseFinished},
		PhaseFinished:        {PhaseLobby},
	}
	for _, t := range valid[p] {
		if t == target {
			return true
		}
	}
	return false
}

// Settings holds per-session rules. A timeout of 0 means "no deadline":
// submission/voting wait for all players and results wait for the host.
type Settings struct {
	TotalRounds         int  `json:"totalRounds"`
	SubmissionTime      int  `json:"submissionTimeoutSeconds"`
	VotingTime          int  `json:"votingTimeoutSeconds"`
	ResultsTime         int  `json:"resultsTimeoutSeconds"`
	PromptSelectionTime int  `json:"promptSelectionTimeoutSeconds"`
	CustomPrompts       bool `json:"useCustomPrompts"`
}

// Defaults fills zero-valued fields that have non-zero defaults. The timer
// fields are left alone: 0 is a real value there, not an absence.
func (s *Settings) Defaults() {
	if s.TotalRounds == 0 {
		s.TotalRounds = 3
	}
	if s.PromptSelectionTime == 0 {
		s.PromptSelectionTime = 30
	}
}

func (s Settings) Validate() error {
	if s.TotalRounds < 1 || s.TotalRounds > 10 {
		return ErrValidation
	}
	for _, secs := range []int{s.SubmissionTime, s.VotingTime, s.ResultsTime, s.PromptSelectionTime} {
		if secs < 0 || secs > 600 {
			return ErrValidation
		}
	}
	return nil
}

type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Connected     bool   `json:"connected"`
	ActiveInRound bool   `json:"activeInRound"`
}

// SubmissionRef identifies one bribe by its author and its target. Votes
// reference submissions structurally rather than via concatenated strings.
type SubmissionRef struct {
	SubmitterID string `json:"submitterId"`
	TargetID    string `json:"targetId"`
}

type Bribe struct {
	Content           string `json:"content"`
	ContentType       string `json:"contentType"`
	IsSystemGenerated bool   `json:"isSystemGenerated"`
}

// Conn binds one live transport connection to a player in a session.
type Conn struct {
	ConnID      string
	PlayerID    string
	SessionID   string
	ConnectedAt time.Time
}

// Outbound payloads. The transport layer forwards these verbatim.

type RosterEntry struct {
	PlayerID  string  `json:"playerId"`
	Name      string  `json:"name"`
	IsHost    bool    `json:"isHost"`
	Connected bool    `json:"connected"`
	Score     float64 `json:"score"`
}

type RosterUpdate struct {
	Players  []RosterEntry `json:"players"`
	CanStart bool          `json:"canStart"`
	Settings Settings      `json:"settings"`
}

type PromptSelectionStarted struct {
	Round         int      `json:"round"`
	TotalRounds   int      `json:"totalRounds"`
	PromptOptions []string `json:"promptOptions"`
	TimeLimit     int      `json:"timeLimit"`
}

type RoundStarted struct {
	Round         int    `json:"round"`
	TotalRounds   int    `json:"totalRounds"`
	SharedPrompt  string `json:"sharedPrompt,omitempty"`
	CustomPrompts bool   `json:"customPrompts"`
	TimeLimit     int    `json:"timeLimit"`
}

type TargetAssignment struct {
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	Prompt     string `json:"prompt"`
}

type YourTargets struct {
	Targets []TargetAssignment `json:"targets"`
}

type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

type BallotEntry struct {
	Ref         SubmissionRef `json:"ref"`
	Content     string        `json:"content"`
	ContentType string        `json:"contentType"`
}

type VotingPhase struct {
	Ballot    []BallotEntry `json:"ballot"`
	Prompt    string        `json:"prompt"`
	TimeLimit int           `json:"timeLimit"`
}

type VoteDetail struct {
	Voter             string `json:"voter"`
	Winner            string `json:"winner"`
	PromptOwner       string `json:"promptOwner"`
	Prompt            string `json:"prompt"`
	Content           string `json:"content"`
	ContentType       string `json:"contentType"`
	IsSystemGenerated bool   `json:"isSystemGenerated"`
}

type ScoreboardEntry struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	RoundScore     float64 `json:"roundScore"`
	TotalScore     float64 `json:"totalScore"`
	IsHost         bool    `json:"isHost"`
	PodiumPosition int     `json:"podiumPosition,omitempty"`
}

type RoundResults struct {
	Round               int               `json:"round"`
	VoteDetails         []VoteDetail      `json:"voteDetails"`
	Scoreboard          []ScoreboardEntry `json:"scoreboard"`
	ResultsTimerEnabled bool              `json:"resultsTimerEnabled"`
	ResultsTime         int               `json:"resultsTime"`
}

type GameFinished struct {
	FinalScoreboard []ScoreboardEntry `json:"finalScoreboard"`
}

// Snapshot is a read-only view of coarse session state.
type Snapshot struct {
	SessionID   string `json:"sessionId"`
	Phase       Phase  `json:"phase"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"totalRounds"`
	PlayerCount int    `json:"playerCount"`
}
