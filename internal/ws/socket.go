package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"bribery/internal/game"
)

// ConnCtx is the per-connection state: which session the connection joined
// and which player it speaks for.
type ConnCtx struct {
	Code     string
	PlayerID string
}

// Server bridges Socket.IO connections and the game registry. It implements
// game.Emitter so sessions can push notifications without knowing about
// sockets.
type Server struct {
	reg *game.Registry

	mu      sync.RWMutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
}

func New() *Server {
	return &Server{members: make(map[string]map[string]socketio.Conn)}
}

// SetRegistry wires the registry in after construction; the registry needs
// the server as its emitter, so the two are built in stages.
func (srv *Server) SetRegistry(reg *game.Registry) { srv.reg = reg }

// ToSession broadcasts an event to every connection in a session.
func (srv *Server) ToSession(sessionID, event string, payload any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for _, c := range srv.members[sessionID] {
		c.Emit(event, payload)
	}
}

// ToPlayer delivers an event to every connection bound to one player.
func (srv *Server) ToPlayer(sessionID, playerID, event string, payload any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for _, c := range srv.members[sessionID] {
		if ctx, ok := c.Context().(*ConnCtx); ok && ctx.PlayerID == playerID {
			c.Emit(event, payload)
		}
	}
}

// Mount attaches the Socket.IO server with all game event handlers to the
// given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "create_game", func(s socketio.Conn, payload struct {
		DisplayName string `json:"displayName"`
		game.Settings
	}) map[string]any {
		if payload.DisplayName == "" {
			return srv.err(s, "bad_request", "Display name is required")
		}
		sess, hostID, err := srv.reg.CreateSession(payload.DisplayName, payload.Settings)
		if err != nil {
			return srv.errFor(s, err)
		}
		sess.AddPlayer(hostID, payload.DisplayName)
		srv.attach(s, sess.ID, hostID)
		log.Info().Str("sid", s.ID()).Str("code", sess.ID).Msg("create_game")

		s.Emit("game_created", map[string]any{
			"sessionId": sess.ID,
			"playerId":  hostID,
			"isHost":    true,
		})
		return map[string]any{"sessionId": sess.ID, "playerId": hostID}
	})

	io.OnEvent("/", "join_game", func(s socketio.Conn, payload struct {
		SessionID      string `json:"sessionId"`
		DisplayName    string `json:"displayName"`
		RejoinPlayerID string `json:"rejoinPlayerId"`
	}) map[string]any {
		sess, playerID, rejoined, err := srv.reg.Join(payload.SessionID, payload.DisplayName, payload.RejoinPlayerID)
		if err != nil {
			return srv.errFor(s, err)
		}
		srv.attach(s, sess.ID, playerID)
		log.Info().Str("sid", s.ID()).Str("code", sess.ID).Str("playerId", playerID).Bool("rejoin", rejoined).Msg("join_game")

		s.Emit("joined_game", map[string]any{
			"sessionId": sess.ID,
			"playerId":  playerID,
			"isHost":    playerID == sess.HostID,
			"phase":     sess.Phase(),
		})
		if sess.Phase() != game.PhaseLobby {
			sess.Resync(playerID)
		}
		return map[string]any{"playerId": playerID}
	})

	io.OnEvent("/", "start_game", func(s socketio.Conn) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.Start(ctx.PlayerID); err != nil {
			return srv.errFor(s, err)
		}
		log.Info().Str("code", ctx.Code).Msg("start_game")
		return ok()
	})

	io.OnEvent("/", "select_prompt", func(s socketio.Conn, payload struct {
		Text string `json:"text"`
	}) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.SelectPrompt(ctx.PlayerID, payload.Text); err != nil {
			return srv.errFor(s, err)
		}
		return ok()
	})

	io.OnEvent("/", "submit_bribe", func(s socketio.Conn, payload struct {
		TargetID    string `json:"targetId"`
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
	}) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.SubmitBribe(ctx.PlayerID, payload.TargetID, payload.Content, payload.ContentType); err != nil {
			return srv.errFor(s, err)
		}
		s.Emit("bribe_submitted", map[string]any{"targetId": payload.TargetID})
		return ok()
	})

	io.OnEvent("/", "submit_vote", func(s socketio.Conn, payload struct {
		Ref game.SubmissionRef `json:"ref"`
	}) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.SubmitVote(ctx.PlayerID, payload.Ref); err != nil {
			return srv.errFor(s, err)
		}
		s.Emit("vote_submitted", map[string]any{})
		return ok()
	})

	io.OnEvent("/", "next_round", func(s socketio.Conn) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.AdvanceRound(ctx.PlayerID); err != nil {
			return srv.errFor(s, err)
		}
		return ok()
	})

	io.OnEvent("/", "restart_game", func(s socketio.Conn) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.Restart(ctx.PlayerID); err != nil {
			return srv.errFor(s, err)
		}
		log.Info().Str("code", ctx.Code).Msg("restart_game")
		return ok()
	})

	io.OnEvent("/", "return_to_lobby", func(s socketio.Conn) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.ReturnToLobby(ctx.PlayerID); err != nil {
			return srv.errFor(s, err)
		}
		return ok()
	})

	io.OnEvent("/", "update_settings", func(s socketio.Conn, payload game.Settings) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.UpdateSettings(ctx.PlayerID, payload); err != nil {
			return srv.errFor(s, err)
		}
		return ok()
	})

	io.OnEvent("/", "kick_player", func(s socketio.Conn, payload struct {
		TargetPlayerID string `json:"targetPlayerId"`
	}) map[string]any {
		sess, ctx, err := srv.sessionFor(s)
		if err != nil {
			return srv.errFor(s, err)
		}
		if err := sess.Kick(ctx.PlayerID, payload.TargetPlayerID); err != nil {
			return srv.errFor(s, err)
		}
		srv.reg.UnbindPlayer(ctx.Code, payload.TargetPlayerID)
		srv.detachPlayer(ctx.Code, payload.TargetPlayerID)
		log.Info().Str("code", ctx.Code).Str("playerId", payload.TargetPlayerID).Msg("kick_player")
		return ok()
	})

	io.OnEvent("/", "get_game_state", func(s socketio.Conn, payload struct {
		SessionID string `json:"sessionId"`
	}) map[string]any {
		sess, err := srv.reg.Get(payload.SessionID)
		if err != nil {
			return srv.errFor(s, err)
		}
		snap := sess.Snapshot()
		s.Emit("game_state", snap)
		return map[string]any{"phase": snap.Phase}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
			srv.reg.UnbindConnection(s.ID())
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// attach joins the connection to the session room and records its bindings.
func (srv *Server) attach(s socketio.Conn, code, playerID string) {
	s.SetContext(&ConnCtx{Code: code, PlayerID: playerID})
	s.Join(code)
	srv.addMember(code, s)
	srv.reg.BindConnection(s.ID(), playerID, code)
}

func (srv *Server) sessionFor(s socketio.Conn) (*game.Session, *ConnCtx, error) {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.Code == "" {
		return nil, nil, game.ErrSessionNotFound
	}
	sess, err := srv.reg.Get(ctx.Code)
	if err != nil {
		return nil, nil, err
	}
	return sess, ctx, nil
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
	}
}

// detachPlayer evicts a kicked player's connections from the session room.
func (srv *Server) detachPlayer(code, playerID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for id, c := range srv.members[code] {
		if ctx, ok := c.Context().(*ConnCtx); ok && ctx.PlayerID == playerID {
			c.Leave(code)
			c.SetContext(&ConnCtx{})
			delete(srv.members[code], id)
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func (srv *Server) errFor(s socketio.Conn, err error) map[string]any {
	return srv.err(s, errCode(err), err.Error())
}

func errCode(err error) string {
	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrPlayerNotFound):
		return "not_found"
	case errors.Is(err, game.ErrNotHost):
		return "unauthorized"
	case errors.Is(err, game.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "capacity"
	default:
		return "bad_request"
	}
}

func ok() map[string]any {
	return map[string]any{"ok": true}
}
