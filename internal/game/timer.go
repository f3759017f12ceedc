package game

import "time"

// reclaimGrace is how long a finished session lingers before it becomes
// eligible for reclamation.
const reclaimGrace = 30 * time.Second

// phaseTimer is the single cancellable deadline a session may hold. The
// callback is validated against the phase and round it was armed for, so a
// timer that fires after a completion signal already advanced the phase is a
// no-op.
type phaseTimer struct {
	timer *time.Timer
	phase Phase
	round int
}

// armTimer schedules the current phase's deadline, replacing any pending one.
// Caller must hold s.mu.
func (s *Session) armTimer(d time.Duration) {
	s.stopTimer()
	if d <= 0 {
		return
	}
	phase, round := s.phase, s.round
	s.timer = &phaseTimer{
		phase: phase,
		round: round,
		timer: time.AfterFunc(d, func() {
			s.deadlineFired(phase, round)
		}),
	}
}

func (s *Session) armTimerSeconds(secs int) {
	s.armTimer(time.Duration(secs) * time.Second)
}

// stopTimer best-effort cancels the pending deadline. Caller must hold s.mu.
// A callback that already started will still run, but deadlineFired rejects
// it once the phase or round has moved on.
func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.timer.Stop()
		s.timer = nil
	}
}

// deadlineFired hands the expired deadline back into the session's
// serialization point and forces the phase's exit action, unless a completion
// signal got there first.
func (s *Session) deadlineFired(phase Phase, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != phase || s.round != round {
		return // stale deadline
	}
	s.timer = nil

	switch phase {
	case PhasePromptSelection:
		s.beginSubmission()
	case PhaseSubmission:
		s.endSubmission()
	case PhaseVoting:
		s.endVoting()
	case PhaseScoreboard:
		s.continueOrEnd()
	case PhaseFinished:
		s.maybeReclaim()
	}
}
