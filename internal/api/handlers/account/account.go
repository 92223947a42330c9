// Package account serves the wallet session: connect, disconnect, status and
// a websocket stream of session notices.
package account

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"Vouch/internal/api/handlers"
	"Vouch/internal/core/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	noticeBuf  = 16
)

// SessionManager is the wallet session the handlers drive.
type SessionManager interface {
	Connect(ctx context.Context) (session.State, error)
	Disconnect()
	State() session.State
	Watch(fn func(session.Notice)) func()
}

// StatusResponse is the JSON view of a session.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
	Balance   string `json:"balance,omitempty"`
}

// SessionHandler serves /api/session.
type SessionHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a session handler. checkOrigin may be nil to accept
// same-origin requests only.
func NewSessionHandler(sessions SessionManager, checkOrigin func(r *http.Request) bool) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleConnect asks the wallet for accounts.
// POST /api/session/connect
func (h *SessionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Connect(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, toStatus(state))
}

// HandleDisconnect clears the local session. The wallet keeps its own
// authorization for this site.
// POST /api/session/disconnect
func (h *SessionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.sessions.Disconnect()
	handlers.WriteJSON(w, http.StatusOK, toStatus(h.sessions.State()))
}

// HandleStatus returns the current session.
// GET /api/session
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, toStatus(h.sessions.State()))
}

// HandleEvents upgrades to a websocket and streams session notices until the
// client goes away.
// GET /api/session/events
func (h *SessionHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("session events upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	notices := make(chan session.Notice, noticeBuf)
	unwatch := h.sessions.Watch(func(n session.Notice) {
		select {
		case notices <- n:
		default:
			slog.Warn("dropping session notice for slow client", "kind", n.Kind)
		}
	})
	defer unwatch()

	// Reader: only needed to observe close frames and pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeNotice(conn, initialNotice(h.sessions.State())); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case n := <-notices:
			if err := writeNotice(conn, n); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeNotice(conn *websocket.Conn, n session.Notice) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(n)
}

func initialNotice(s session.State) session.Notice {
	if !s.Connected {
		return session.Notice{Kind: session.NoticeDisconnected}
	}
	st := toStatus(s)
	return session.Notice{Kind: session.NoticeConnected, Account: st.Account, Balance: st.Balance}
}

func toStatus(s session.State) StatusResponse {
	resp := StatusResponse{Connected: s.Connected}
	if s.Account != nil {
		resp.Account = s.Account.Hex()
	}
	if b := s.Balance(); b != nil {
		resp.Balance = b.String()
	}
	return resp
}
