package game

// Outbound event names, matching the wire surface the frontend speaks.
const (
	EventLobbyUpdate            = "lobby_update"
	EventPromptSelectionStarted = "prompt_selection_started"
	EventRoundStarted           = "round_started"
	EventYourTargets            = "your_targets"
	EventSubmissionProgress     = "submission_progress"
	EventVotingPhase            = "voting_phase"
	EventVotingProgress         = "voting_progress"
	EventRoundResults           = "round_results"
	EventHostControlsNextRound  = "host_controls_next_round"
	EventGameFinished           = "game_finished"
	EventGameRestarted          = "game_restarted"
	EventReturnedToLobby        = "returned_to_lobby"
	EventPlayerKicked           = "player_kicked"
	EventKickedFromGame         = "kicked_from_game"
	EventMidgameWaiting         = "midgame_waiting"
)

// Emitter hands outbound notifications to the transport layer. Implementations
// must not call back into the session that emitted.
type Emitter interface {
	ToSession(sessionID, event string, payload any)
	ToPlayer(sessionID, playerID, event string, payload any)
}

// NopEmitter discards everything. Useful for tests and detached sessions.
type NopEmitter struct{}

func (NopEmitter) ToSession(string, string, any) {}

func (NopEmitter) ToPlayer(string, string, string, any) {}
