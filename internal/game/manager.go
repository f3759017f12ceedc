package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
	codeRetries  = 100
)

// Registry maps session codes to live sessions and connection IDs to their
// player bindings. Constructed once at process start and handed to the
// transport layer; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	conns    map[string]*Conn

	emit     Emitter
	prompts  PromptSource
	fallback FallbackSource
}

func NewRegistry(emit Emitter, prompts PromptSource, fallback FallbackSource) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		conns:    make(map[string]*Conn),
		emit:     emit,
		prompts:  prompts,
		fallback: fallback,
	}
}

// CreateSession allocates a fresh session with the caller as host. Returns
// the session and the host's new player ID.
func (r *Registry) CreateSession(hostName string, settings Settings) (*Session, string, error) {
	settings.Defaults()
	if err := settings.Validate(); err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code := randomCode(codeLength)
	for i := 0; r.sessions[code] != nil; i++ {
		if i >= codeRetries {
			return nil, "", ErrCodeSpace
		}
		code = randomCode(codeLength)
	}

	hostID := uuid.NewString()
	sess := NewSession(code, hostID, settings, r.emit, r.prompts, r.fallback, r.remove)
	r.sessions[code] = sess

	log.Info().Str("code", code).Str("hostId", hostID).Msg("session created")
	return sess, hostID, nil
}

// Get looks a session up by code, case-insensitively.
func (r *Registry) Get(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[strings.ToUpper(strings.TrimSpace(code))]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Join adds a player to a session, or reattaches them if they are rejoining:
// by player ID when the client supplies one, by case-insensitive display
// name otherwise. Returns the session, the player's ID, and whether this was
// a rejoin.
func (r *Registry) Join(code, name, rejoinID string) (*Session, string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", false, ErrValidation
	}

	sess, err := r.Get(code)
	if err != nil {
		return nil, "", false, err
	}

	if existing := sess.FindRejoin(rejoinID, name); existing != "" {
		if err := sess.MarkConnected(existing, true, name); err != nil {
			return nil, "", false, err
		}
		log.Info().Str("code", sess.ID).Str("playerId", existing).Str("name", name).Msg("player rejoined")
		return sess, existing, true, nil
	}

	playerID := uuid.NewString()
	sess.AddPlayer(playerID, name)
	log.Info().Str("code", sess.ID).Str("playerId", playerID).Str("name", name).Msg("player joined")
	return sess, playerID, false, nil
}

// BindConnection records which player a transport connection speaks for.
func (r *Registry) BindConnection(connID, playerID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &Conn{
		ConnID:      connID,
		PlayerID:    playerID,
		SessionID:   sessionID,
		ConnectedAt: time.Now().UTC(),
	}
}

// Lookup resolves a connection to its binding, if any.
func (r *Registry) Lookup(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// UnbindConnection drops the binding and marks the player disconnected. The
// player stays on the roster; reclamation is a separate, delayed concern.
func (r *Registry) UnbindConnection(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	if sess, err := r.Get(c.SessionID); err == nil {
		_ = sess.MarkConnected(c.PlayerID, false, "")
		log.Info().Str("code", c.SessionID).Str("playerId", c.PlayerID).Msg("player disconnected")
	}
}

// UnbindPlayer removes every connection bound to one player, e.g. after a
// kick.
func (r *Registry) UnbindPlayer(sessionID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.conns {
		if c.SessionID == sessionID && c.PlayerID == playerID {
			delete(r.conns, id)
		}
	}
}

// ReclaimIdle removes every session with zero connected players and returns
// how many were reclaimed.
func (r *Registry) ReclaimIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reclaimed := 0
	for code, sess := range r.sessions {
		if sess.ConnectedCount() > 0 {
			continue
		}
		sess.Close()
		delete(r.sessions, code)
		r.pruneConns(code)
		reclaimed++
		log.Info().Str("code", code).Msg("reclaimed idle session")
	}
	return reclaimed
}

// SessionCount reports live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// remove is the post-finish reclamation callback handed to sessions.
func (r *Registry) remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.sessions[code]
	if sess == nil {
		return
	}
	sess.Close()
	delete(r.sessions, code)
	r.pruneConns(code)
	log.Info().Str("code", code).Msg("reclaimed finished session")
}

// pruneConns drops connection bindings for a removed session. Caller holds
// r.mu.
func (r *Registry) pruneConns(code string) {
	for id, c := range r.conns {
		if c.SessionID == code {
			delete(r.conns, id)
		}
	}
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
