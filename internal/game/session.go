package game

import (
	"strings"
	"sync"
	"time"
)

// Session owns one game's state. All mutation goes through its methods, each
// of which serializes on the session mutex; deadline callbacks re-enter
// through the same lock (see timer.go), so no two intents ever race on a
// session.
type Session struct {
	ID        string
	HostID    string
	CreatedAt time.Time

	mu       sync.Mutex
	settings Settings
	phase    Phase
	round    int

	players map[string]*Player
	order   []string // roster join order, drives tie-stable scoreboards
	scores  map[string]float64
	history map[string]map[string]bool // playerID -> set of past targets

	pairings      map[int]map[string][]string
	bribes        map[int]map[string]map[string]*Bribe // round -> submitter -> target
	votes         map[int]map[string]SubmissionRef
	chosenPrompts map[int]map[string]string
	sharedPrompt  string

	lastResults *RoundResults
	finalBoard  []ScoreboardEntry

	timer *phaseTimer

	emit     Emitter
	prompts  PromptSource
	fallback FallbackSource
	reclaim  func(sessionID string)
}

func NewSession(id, hostID string, settings Settings, emit Emitter, prompts PromptSource, fallback FallbackSource, reclaim func(string)) *Session {
	return &Session{
		ID:            id,
		HostID:        hostID,
		CreatedAt:     time.Now().UTC(),
		settings:      settings,
		phase:         PhaseLobby,
		players:       make(map[string]*Player),
		scores:        make(map[string]float64),
		history:       make(map[string]map[string]bool),
		pairings:      make(map[int]map[string][]string),
		bribes:        make(map[int]map[string]map[string]*Bribe),
		votes:         make(map[int]map[string]SubmissionRef),
		chosenPrompts: make(map[int]map[string]string),
		emit:          emit,
		prompts:       prompts,
		fallback:      fallback,
		reclaim:       reclaim,
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:   s.ID,
		Phase:       s.phase,
		Round:       s.round,
		TotalRounds: s.settings.TotalRounds,
		PlayerCount: len(s.players),
	}
}

func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCount()
}

// AddPlayer registers a new roster entry. A player who joins after the lobby
// sits out until the next round boundary.
func (s *Session) AddPlayer(playerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[playerID] = &Player{
		ID:            playerID,
		Name:          name,
		Connected:     true,
		ActiveInRound: s.phase == PhaseLobby,
	}
	s.order = append(s.order, playerID)
	s.scores[playerID] = 0
	s.history[playerID] = make(map[string]bool)
	s.emitRoster()
}

// FindRejoin resolves a rejoin attempt: by player ID first, then by
// case-insensitive display name. Returns "" when neither matches.
func (s *Session) FindRejoin(rejoinID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rejoinID != "" {
		if _, ok := s.players[rejoinID]; ok {
			return rejoinID
		}
	}
	for _, id := range s.order {
		if strings.EqualFold(s.players[id].Name, name) {
			return id
		}
	}
	return ""
}

// MarkConnected flips a roster entry's connected flag and, on reconnect,
// refreshes the display name.
func (s *Session) MarkConnected(playerID string, connected bool, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Connected = connected
	if connected && name != "" {
		p.Name = name
	}
	s.emitRoster()
	return nil
}

// Start begins the first round. Host-only, lobby-only, three active players
// minimum.
func (s *Session) Start(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.HostID {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	if len(s.activeIDs()) < 3 {
		return ErrNotEnoughPlayers
	}
	s.beginRound()
	return nil
}

// SelectPrompt records a player's custom prompt for the current round. An
// empty choice draws a random prompt from the library, same as timing out.
func (s *Session) SelectPrompt(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePromptSelection {
		return ErrInvalidPhase
	}
	p, ok := s.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.ActiveInRound {
		return ErrInvalidPhase
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = randomPrompt(s.prompts)
	}
	s.chosenPrompts[s.round][playerID] = text

	if len(s.chosenPrompts[s.round]) >= len(s.activeIDs()) {
		s.stopTimer()
		s.beginSubmission()
	}
	return nil
}

// SubmitBribe stores one bribe aimed at one of the submitter's two assigned
// targets. Completing the final outstanding slot advances to voting.
func (s *Session) SubmitBribe(playerID, targetID, content, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseSubmission {
		return ErrInvalidPhase
	}
	p, ok := s.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.ActiveInRound {
		return ErrInvalidPhase
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrValidation
	}
	if indexOf(s.pairings[s.round][playerID], targetID) < 0 {
		return ErrInvalidTarget
	}
	if contentType == "" {
		contentType = "text"
	}

	if s.bribes[s.round][playerID] == nil {
		s.bribes[s.round][playerID] = make(map[string]*Bribe)
	}
	s.bribes[s.round][playerID][targetID] = &Bribe{
		Content:     content,
		ContentType: contentType,
	}

	s.emitSubmissionProgress()
	if s.allSubmitted() {
		s.stopTimer()
		s.endSubmission()
	}
	return nil
}

// SubmitVote records the voter's single pick from their ballot. The final
// vote advances to the scoreboard.
func (s *Session) SubmitVote(playerID string, ref SubmissionRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseVoting {
		return ErrInvalidPhase
	}
	p, ok := s.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.ActiveInRound {
		return ErrInvalidPhase
	}
	if _, voted := s.votes[s.round][playerID]; voted {
		return ErrAlreadyVoted
	}
	if ref.TargetID != playerID || ref.SubmitterID == playerID || lookupBribe(s.bribes[s.round], ref) == nil {
		return ErrInvalidVote
	}

	s.votes[s.round][playerID] = ref

	s.emitVotingProgress()
	if len(s.votes[s.round]) >= len(s.activeIDs()) {
		s.stopTimer()
		s.endVoting()
	}
	return nil
}

// AdvanceRound is the host's "next round" signal, valid only on the
// scoreboard and only when no results timer is running the game.
func (s *Session) AdvanceRound(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.HostID {
		return ErrNotHost
	}
	if s.phase != PhaseScoreboard {
		return ErrInvalidPhase
	}
	if s.settings.ResultsTime > 0 {
		return ErrInvalidPhase
	}
	s.continueOrEnd()
	return nil
}

// Restart resets to the lobby and zeroes all round data and scores.
func (s *Session) Restart(playerID string) error {
	return s.resetToLobby(playerID, EventGameRestarted)
}

// ReturnToLobby is Restart under its post-game name: roster and settings are
// kept, everything round-scoped is dropped.
func (s *Session) ReturnToLobby(playerID string) error {
	return s.resetToLobby(playerID, EventReturnedToLobby)
}

func (s *Session) resetToLobby(playerID, event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.HostID {
		return ErrNotHost
	}

	s.stopTimer()
	s.phase = PhaseLobby
	s.round = 0
	s.pairings = make(map[int]map[string][]string)
	s.bribes = make(map[int]map[string]map[string]*Bribe)
	s.votes = make(map[int]map[string]SubmissionRef)
	s.chosenPrompts = make(map[int]map[string]string)
	s.sharedPrompt = ""
	s.lastResults = nil
	s.finalBoard = nil
	for id, p := range s.players {
		s.scores[id] = 0
		p.ActiveInRound = true
	}

	s.emit.ToSession(s.ID, event, struct{}{})
	s.emitRoster()
	return nil
}

// UpdateSettings replaces the session settings. Host-only, lobby-only.
func (s *Session) UpdateSettings(playerID string, next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.HostID {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	next.Defaults()
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	s.emitRoster()
	return nil
}

// Kick removes a player outright. Pairings are not rebalanced mid-round (a
// bribe slot aimed at the kicked player is wasted), but completion is
// re-checked so the round cannot stall waiting on them.
func (s *Session) Kick(requesterID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requesterID != s.HostID {
		return ErrNotHost
	}
	if targetID == s.HostID {
		return ErrValidation
	}
	if _, ok := s.players[targetID]; !ok {
		return ErrPlayerNotFound
	}

	name := s.players[targetID].Name
	delete(s.players, targetID)
	delete(s.scores, targetID)
	delete(s.history, targetID)
	delete(s.votes[s.round], targetID)
	for i, id := range s.order {
		if id == targetID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.emit.ToPlayer(s.ID, targetID, EventKickedFromGame, map[string]string{
		"message": "You have been kicked from the game by the host",
	})
	s.emit.ToSession(s.ID, EventPlayerKicked, map[string]string{
		"playerId": targetID,
		"name":     name,
		"message":  name + " has been kicked from the game",
	})
	s.emitRoster()

	// The departed player may have been the last straggler.
	switch s.phase {
	case PhasePromptSelection:
		if len(s.chosenPrompts[s.round]) >= len(s.activeIDs()) {
			s.stopTimer()
			s.beginSubmission()
		}
	case PhaseSubmission:
		if s.allSubmitted() {
			s.stopTimer()
			s.endSubmission()
		}
	case PhaseVoting:
		if len(s.votes[s.round]) >= len(s.activeIDs()) {
			s.stopTimer()
			s.endVoting()
		}
	}
	return nil
}

// Resync replays the current phase's view to one player, for reconnects and
// mid-game joiners.
func (s *Session) Resync(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return
	}

	if s.phase != PhaseLobby && !p.ActiveInRound {
		s.emit.ToPlayer(s.ID, playerID, EventMidgameWaiting, map[string]any{
			"message":      "You joined mid-game. Please wait for the next round to begin!",
			"currentRound": s.round,
			"totalRounds":  s.settings.TotalRounds,
			"phase":        s.phase,
		})
		return
	}

	switch s.phase {
	case PhaseSubmission:
		s.emit.ToPlayer(s.ID, playerID, EventRoundStarted, s.roundStartedPayload())
		s.emit.ToPlayer(s.ID, playerID, EventYourTargets, YourTargets{Targets: s.targetsFor(playerID)})
		completed, total, pending := s.submissionProgress()
		s.emit.ToPlayer(s.ID, playerID, EventSubmissionProgress, Progress{
			Completed: completed, Total: total,
			Message: submissionProgressMessage(completed, total, pending),
		})
	case PhaseVoting:
		s.emit.ToPlayer(s.ID, playerID, EventVotingPhase, VotingPhase{
			Ballot:    s.ballotFor(playerID),
			Prompt:    s.promptForTarget(s.round, playerID),
			TimeLimit: s.settings.VotingTime,
		})
		completed, total, pending := s.votingProgress()
		s.emit.ToPlayer(s.ID, playerID, EventVotingProgress, Progress{
			Completed: completed, Total: total,
			Message: votingProgressMessage(completed, total, pending),
		})
	case PhaseScoreboard:
		if s.lastResults != nil {
			s.emit.ToPlayer(s.ID, playerID, EventRoundResults, *s.lastResults)
		}
	case PhaseFinished:
		if s.finalBoard != nil {
			s.emit.ToPlayer(s.ID, playerID, EventGameFinished, GameFinished{FinalScoreboard: s.finalBoard})
		}
	}
}

// Roster returns the lobby_update payload.
func (s *Session) Roster() RosterUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster()
}

// Close cancels any pending deadline. Called when the registry reclaims the
// session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}

// ---- internals; callers hold s.mu ----

func (s *Session) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// activeIDs returns, in join order, the connected players participating in
// the current round.
func (s *Session) activeIDs() []string {
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if p := s.players[id]; p != nil && p.Connected && p.ActiveInRound {
			ids = append(ids, id)
		}
	}
	return ids
}

// activateWaiting flips mid-game joiners to active at the round boundary.
func (s *Session) activateWaiting() {
	for _, p := range s.players {
		if p.Connected && !p.ActiveInRound {
			p.ActiveInRound = true
		}
	}
}

func (s *Session) beginRound() {
	s.round++
	s.activateWaiting()

	pairings, err := GeneratePairings(s.activeIDs(), s.history)
	if err != nil {
		// Kicks shrank the roster below the minimum mid-game; nothing left
		// to play, settle on the scores so far.
		s.round--
		s.finish()
		return
	}
	s.pairings[s.round] = pairings
	s.bribes[s.round] = make(map[string]map[string]*Bribe)
	s.votes[s.round] = make(map[string]SubmissionRef)

	if s.settings.CustomPrompts {
		s.beginPromptSelection()
	} else {
		s.beginSubmission()
	}
}

func (s *Session) beginPromptSelection() {
	s.phase = PhasePromptSelection
	s.chosenPrompts[s.round] = make(map[string]string)

	s.emit.ToSession(s.ID, EventPromptSelectionStarted, PromptSelectionStarted{
		Round:         s.round,
		TotalRounds:   s.settings.TotalRounds,
		PromptOptions: s.prompts.Prompts(),
		TimeLimit:     s.settings.PromptSelectionTime,
	})
	s.armTimerSeconds(s.settings.PromptSelectionTime)
}

func (s *Session) beginSubmission() {
	s.phase = PhaseSubmission

	// The shared prompt doubles as the fallback for missing custom prompts.
	if !s.settings.CustomPrompts || s.sharedPrompt == "" {
		s.sharedPrompt = randomPrompt(s.prompts)
	}

	s.emit.ToSession(s.ID, EventRoundStarted, s.roundStartedPayload())
	for _, playerID := range s.activeIDs() {
		s.emit.ToPlayer(s.ID, playerID, EventYourTargets, YourTargets{Targets: s.targetsFor(playerID)})
	}

	s.armTimerSeconds(s.settings.SubmissionTime)
	s.emitSubmissionProgress()
}

func (s *Session) roundStartedPayload() RoundStarted {
	payload := RoundStarted{
		Round:         s.round,
		TotalRounds:   s.settings.TotalRounds,
		CustomPrompts: s.settings.CustomPrompts,
		TimeLimit:     s.settings.SubmissionTime,
	}
	if !s.settings.CustomPrompts {
		payload.SharedPrompt = s.sharedPrompt
	}
	return payload
}

func (s *Session) targetsFor(playerID string) []TargetAssignment {
	targets := s.pairings[s.round][playerID]
	out := make([]TargetAssignment, 0, len(targets))
	for _, targetID := range targets {
		name := ""
		if p := s.players[targetID]; p != nil {
			name = p.Name
		}
		out = append(out, TargetAssignment{
			TargetID:   targetID,
			TargetName: name,
			Prompt:     s.promptForTarget(s.round, targetID),
		})
	}
	return out
}

// promptForTarget resolves what a bribe for targetID should answer: the
// target's chosen prompt in custom mode, the shared prompt otherwise or as
// fallback.
func (s *Session) promptForTarget(round int, targetID string) string {
	if !s.settings.CustomPrompts {
		return s.sharedPrompt
	}
	if prompt := strings.TrimSpace(s.chosenPrompts[round][targetID]); prompt != "" {
		return prompt
	}
	return s.sharedPrompt
}

// allSubmitted reports whether every active player has filled both bribe
// slots for the current round.
func (s *Session) allSubmitted() bool {
	for _, id := range s.activeIDs() {
		if len(s.bribes[s.round][id]) < 2 {
			return false
		}
	}
	return true
}

// endSubmission backfills missing bribes with system-generated fallbacks and
// opens voting. Every active player's ballot is complete by construction.
func (s *Session) endSubmission() {
	for _, playerID := range s.activeIDs() {
		targets := s.pairings[s.round][playerID]
		if len(targets) == 0 {
			continue
		}
		if s.bribes[s.round][playerID] == nil {
			s.bribes[s.round][playerID] = make(map[string]*Bribe)
		}
		for _, targetID := range targets {
			if _, ok := s.bribes[s.round][playerID][targetID]; !ok {
				fallback := s.fallback.RandomBribe()
				s.bribes[s.round][playerID][targetID] = &fallback
			}
		}
	}

	s.phase = PhaseVoting

	for _, playerID := range s.activeIDs() {
		s.emit.ToPlayer(s.ID, playerID, EventVotingPhase, VotingPhase{
			Ballot:    s.ballotFor(playerID),
			Prompt:    s.promptForTarget(s.round, playerID),
			TimeLimit: s.settings.VotingTime,
		})
	}

	s.armTimerSeconds(s.settings.VotingTime)
	s.emitVotingProgress()
}

// ballotFor collects the bribes targeted at playerID, excluding any they
// authored themselves. System-generated entries are not revealed as such
// until results.
func (s *Session) ballotFor(playerID string) []BallotEntry {
	ballot := make([]BallotEntry, 0, 2)
	for _, submitterID := range s.order {
		if submitterID == playerID {
			continue
		}
		bribe, ok := s.bribes[s.round][submitterID][playerID]
		if !ok {
			continue
		}
		ballot = append(ballot, BallotEntry{
			Ref:         SubmissionRef{SubmitterID: submitterID, TargetID: playerID},
			Content:     bribe.Content,
			ContentType: bribe.ContentType,
		})
	}
	return ballot
}

func (s *Session) endVoting() {
	s.phase = PhaseScoreboard

	roundScores := scoreRound(s.votes[s.round], s.bribes[s.round])
	for id, pts := range roundScores {
		s.scores[id] += pts
	}

	details := make([]VoteDetail, 0, len(s.votes[s.round]))
	for _, voterID := range s.order {
		ref, ok := s.votes[s.round][voterID]
		if !ok {
			continue
		}
		bribe := lookupBribe(s.bribes[s.round], ref)
		voter, winner, owner := s.players[voterID], s.players[ref.SubmitterID], s.players[ref.TargetID]
		if bribe == nil || voter == nil || winner == nil || owner == nil {
			continue
		}
		details = append(details, VoteDetail{
			Voter:             voter.Name,
			Winner:            winner.Name,
			PromptOwner:       owner.Name,
			Prompt:            s.promptForTarget(s.round, ref.TargetID),
			Content:           bribe.Content,
			ContentType:       bribe.ContentType,
			IsSystemGenerated: bribe.IsSystemGenerated,
		})
	}

	results := RoundResults{
		Round:               s.round,
		VoteDetails:         details,
		Scoreboard:          scoreboardEntries(s.order, s.players, s.scores, roundScores, s.HostID),
		ResultsTimerEnabled: s.settings.ResultsTime > 0,
		ResultsTime:         s.settings.ResultsTime,
	}
	s.lastResults = &results
	s.emit.ToSession(s.ID, EventRoundResults, results)

	if s.settings.ResultsTime > 0 {
		s.armTimerSeconds(s.settings.ResultsTime)
	} else {
		s.emit.ToPlayer(s.ID, s.HostID, EventHostControlsNextRound, struct{}{})
	}
}

func (s *Session) continueOrEnd() {
	if s.round >= s.settings.TotalRounds {
		s.finish()
	} else {
		s.beginRound()
	}
}

func (s *Session) finish() {
	s.phase = PhaseFinished

	board := scoreboardEntries(s.order, s.players, s.scores, nil, s.HostID)
	assignPodium(board)
	s.finalBoard = board

	s.emit.ToSession(s.ID, EventGameFinished, GameFinished{FinalScoreboard: board})
	s.armTimer(reclaimGrace)
}

// maybeReclaim runs when the post-finish grace expires; the session is only
// handed back for reclamation if everyone has left.
func (s *Session) maybeReclaim() {
	if s.connectedCount() > 0 || s.reclaim == nil {
		return
	}
	go s.reclaim(s.ID)
}

func (s *Session) roster() RosterUpdate {
	players := make([]RosterEntry, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		players = append(players, RosterEntry{
			PlayerID:  id,
			Name:      p.Name,
			IsHost:    id == s.HostID,
			Connected: p.Connected,
			Score:     s.scores[id],
		})
	}
	return RosterUpdate{
		Players:  players,
		CanStart: s.phase == PhaseLobby && len(s.activeIDs()) >= 3,
		Settings: s.settings,
	}
}

func (s *Session) emitRoster() {
	s.emit.ToSession(s.ID, EventLobbyUpdate, s.roster())
}

func (s *Session) submissionProgress() (completed, total int, pending []string) {
	active := s.activeIDs()
	for _, id := range active {
		if len(s.bribes[s.round][id]) >= 2 {
			completed++
		} else {
			pending = append(pending, s.players[id].Name)
		}
	}
	return completed, len(active), pending
}

func (s *Session) emitSubmissionProgress() {
	completed, total, pending := s.submissionProgress()
	s.emit.ToSession(s.ID, EventSubmissionProgress, Progress{
		Completed: completed,
		Total:     total,
		Message:   submissionProgressMessage(completed, total, pending),
	})
}

func (s *Session) votingProgress() (completed, total int, pending []string) {
	active := s.activeIDs()
	for _, id := range active {
		if _, ok := s.votes[s.round][id]; ok {
			completed++
		} else {
			pending = append(pending, s.players[id].Name)
		}
	}
	return completed, len(active), pending
}

func (s *Session) emitVotingProgress() {
	completed, total, pending := s.votingProgress()
	s.emit.ToSession(s.ID, EventVotingProgress, Progress{
		Completed: completed,
		Total:     total,
		Message:   votingProgressMessage(completed, total, pending),
	})
}
