package game

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotHost          = errors.New("not host")
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrNotEnoughPlayers = errors.New("need at least 3 active players")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrInvalidTarget    = errors.New("target is not assigned to you this round")
	ErrInvalidVote      = errors.New("vote does not reference a bribe on your ballot")
	ErrValidation       = errors.New("invalid request data")
	ErrCodeSpace        = errors.New("could not allocate a unique session code")
)
