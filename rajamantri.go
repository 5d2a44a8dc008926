// Raja Mantri Chor Sipahi, five-player edition.
//
// Five players share a room; each round deals the five roles at random.
// Raju is revealed immediately, then the chain runs Raju -> Rani ->
// Manthri -> Bhatudu: whoever holds the current role must point out the
// holder of the next one. A correct guess reveals the target and moves
// the chain along (finding Bhatudu also exposes Donga by elimination);
// a wrong guess swaps roles between guesser and accused, putting the
// guesser's own identity at stake. Scores come from the roles held when
// the round ends.
//
// Implementation details:
//   - One WebSocket endpoint at $path/ws; rooms are addressed by code
//     inside messages, not by URL
//   - A single hub goroutine owns the registry and every room, so each
//     action runs to completion before the next and no room state needs
//     locking
//   - Clients are identified by a per-connection id; a client-held
//     session token (cookie as fallback) maps reconnections back to
//     their seat
//   - WebRTC voice signaling is relayed between connections without
//     inspection
//   - In-browser QR code for sharing a room link, backed by go-qrcode
//   - Idle rooms are reaped after a configurable timeout

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// clientMessage is the closed set of actions a client may send. Type
// selects the action; the other fields are per-action payload.
type clientMessage struct {
	Type       string `json:"type"`                  // "create_room", "join_room", "start_game", "make_guess", "next_round", "leave_room", "sending_signal", "returning_signal"
	PlayerName string `json:"playerName,omitempty"`  // create_room / join_room
	SessionID  string `json:"sessionId,omitempty"`   // create_room / join_room
	MaxRounds  int    `json:"maxRounds,omitempty"`   // create_room
	RoomCode   string `json:"roomCode,omitempty"`    // all room actions
	TargetSeat *int   `json:"targetIndex,omitempty"` // make_guess

	// voice signaling relay
	UserToSignal string          `json:"userToSignal,omitempty"` // sending_signal
	CallerID     string          `json:"callerID,omitempty"`     // sending_signal / returning_signal
	Signal       json.RawMessage `json:"signal,omitempty"`
}

// connectedMessage tells a client its connection id right after the
// upgrade, so it can recognize itself in snapshots and signal peers.
type connectedMessage struct {
	Type string `json:"type"` // "connected"
	ID   string `json:"id"`
}

type roomCreatedMessage struct {
	Type     string `json:"type"` // "room_created"
	RoomCode string `json:"roomCode"`
	State    *Room  `json:"state"`
}

// stateUpdateMessage carries a full room snapshot. Snapshots are
// idempotent: a reconnecting client is caught up by a single one.
type stateUpdateMessage struct {
	Type  string `json:"type"` // "state_update"
	State *Room  `json:"state"`
}

// guessEventMessage is the transient banner shown alongside a snapshot.
type guessEventMessage struct {
	Type    string `json:"type"` // "correct_guess" or "wrong_guess"
	Message string `json:"message"`
}

// errorMessage is sent to the requester only, never broadcast.
type errorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type peerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// allUsersMessage gives a joiner the other members' connection ids so
// it can initiate voice calls to each.
type allUsersMessage struct {
	Type  string     `json:"type"` // "all_users"
	Users []peerInfo `json:"users"`
}

type signalMessage struct {
	Type     string          `json:"type"` // "user_joined_signal" or "receiving_returned_signal"
	Signal   json.RawMessage `json:"signal"`
	CallerID string          `json:"callerID,omitempty"`
	ID       string          `json:"id,omitempty"`
}

type Client struct {
	conn      *websocket.Conn
	send      chan any
	connID    string
	sessionID string // cookie fallback, used when a message carries no token
	room      string // code of the room this connection is seated in, if any
}

type action struct {
	client *Client
	msg    clientMessage
}

// Hub owns the registry and all connected clients. Everything below is
// mutated only from run(), one action at a time.
type Hub struct {
	registry *Registry
	clients  map[string]*Client // connID -> client

	register   chan *Client
	unregister chan *Client
	actions    chan action
}

func newHub() *Hub {
	return &Hub{
		registry:   newRegistry(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		actions:    make(chan action),
	}
}

func (h *Hub) run(cfg *Config) {
	var reap <-chan time.Time
	if cfg.roomTimeout > 0 {
		ticker := time.NewTicker(cfg.roomTimeout / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case c := <-h.register:
			h.clients[c.connID] = c
			h.deliver(c, connectedMessage{
				Type: "connected",
				ID:   c.connID,
			})

		case c := <-h.unregister:
			// The seat is kept: a dropped connection can reclaim it by
			// rejoining with the same session token.
			if _, ok := h.clients[c.connID]; ok {
				delete(h.clients, c.connID)
				close(c.send)
			}

		case a := <-h.actions:
			h.dispatch(cfg, a)

		case <-reap:
			h.reapIdle(cfg)
		}
	}
}

func (h *Hub) dispatch(cfg *Config, a action) {
	c := a.client
	msg := a.msg

	switch msg.Type {
	case "create_room":
		h.handleCreate(cfg, c, msg)
	case "join_room":
		h.handleJoin(cfg, c, msg)
	case "start_game":
		h.handleStart(cfg, c, msg)
	case "make_guess":
		h.handleGuess(cfg, c, msg)
	case "next_round":
		h.handleAdvance(cfg, c, msg)
	case "leave_room":
		h.handleLeave(cfg, c, msg)
	case "sending_signal":
		h.relaySignal(msg.UserToSignal, signalMessage{
			Type:     "user_joined_signal",
			Signal:   msg.Signal,
			CallerID: msg.CallerID,
		})
	case "returning_signal":
		h.relaySignal(msg.CallerID, signalMessage{
			Type:   "receiving_returned_signal",
			Signal: msg.Signal,
			ID:     c.connID,
		})
	default:
		// ignore unknown types
	}
}

func (h *Hub) handleCreate(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.create(msg.PlayerName, h.sessionFor(c, msg), c.connID, msg.MaxRounds)
	if err != nil {
		h.deliver(c, errorMessage{Type: "error", Message: err.Error()})
		return
	}

	c.room = room.Code

	h.deliver(c, roomCreatedMessage{
		Type:     "room_created",
		RoomCode: room.Code,
		State:    room,
	})

	logf(cfg, "GAMES: %q created room %s (%d rounds)", msg.PlayerName, room.Code, room.MaxRounds)
}

func (h *Hub) handleJoin(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.lookup(msg.RoomCode)
	if err != nil {
		h.deliver(c, errorMessage{Type: "error", Message: err.Error()})
		return
	}

	rejoined, err := room.join(msg.PlayerName, h.sessionFor(c, msg), c.connID)
	if err != nil {
		h.deliver(c, errorMessage{Type: "error", Message: err.Error()})
		return
	}

	c.room = room.Code
	room.lastActive = time.Now()

	h.broadcastRoom(room)

	// Hand the joiner the other members so it can start voice calls.
	others := make([]peerInfo, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ConnID == c.connID {
			continue
		}
		others = append(others, peerInfo{ID: p.ConnID, Name: p.Name})
	}
	h.deliver(c, allUsersMessage{Type: "all_users", Users: others})

	if rejoined {
		logf(cfg, "GAMES: %q reconnected to room %s", msg.PlayerName, room.Code)
	} else {
		logf(cfg, "GAMES: %q joined room %s", msg.PlayerName, room.Code)
	}
}

func (h *Hub) handleStart(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.lookup(msg.RoomCode)
	if err != nil {
		return
	}

	if !room.start(c.connID) {
		return
	}

	room.lastActive = time.Now()
	h.broadcastRoom(room)

	logf(cfg, "GAMES: Round %d started in room %s", room.Round, room.Code)
}

func (h *Hub) handleGuess(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.lookup(msg.RoomCode)
	if err != nil || msg.TargetSeat == nil {
		return
	}

	switch room.makeGuess(c.connID, *msg.TargetSeat) {
	case guessCorrect:
		h.broadcastToRoom(room.Code, guessEventMessage{Type: "correct_guess", Message: "Correct!"})
		logf(cfg, "GAMES: Correct guess in room %s: %s", room.Code, room.Message)
	case guessIncorrect:
		h.broadcastToRoom(room.Code, guessEventMessage{Type: "wrong_guess", Message: "Incorrect! Swapping..."})
		logf(cfg, "GAMES: Wrong guess in room %s: %s", room.Code, room.Message)
	default:
		return
	}

	room.lastActive = time.Now()
	h.broadcastRoom(room)
}

func (h *Hub) handleAdvance(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.lookup(msg.RoomCode)
	if err != nil {
		return
	}

	if !room.advance(c.connID) {
		return
	}

	room.lastActive = time.Now()
	h.broadcastRoom(room)

	if room.Phase == PhaseGameOver {
		logf(cfg, "GAMES: Room %s finished after %d rounds", room.Code, room.Round)
	}
}

func (h *Hub) handleLeave(cfg *Config, c *Client, msg clientMessage) {
	room, err := h.registry.lookup(msg.RoomCode)
	if err != nil {
		return
	}

	if !room.leave(c.connID) {
		return
	}

	c.room = ""

	if len(room.Players) == 0 {
		h.registry.remove(room.Code)
		logf(cfg, "GAMES: Room %s deleted (empty)", room.Code)
		return
	}

	room.lastActive = time.Now()
	h.broadcastRoom(room)
}

// sessionFor prefers the token the client supplied; the cookie identity
// set at page load serves when the message carries none.
func (h *Hub) sessionFor(c *Client, msg clientMessage) string {
	if msg.SessionID != "" {
		return msg.SessionID
	}
	return c.sessionID
}

func (h *Hub) relaySignal(targetConnID string, msg signalMessage) {
	if target, ok := h.clients[targetConnID]; ok {
		h.deliver(target, msg)
	}
}

// broadcastRoom sends the current snapshot to every member connection.
func (h *Hub) broadcastRoom(room *Room) {
	h.broadcastToRoom(room.Code, stateUpdateMessage{
		Type:  "state_update",
		State: room,
	})
}

func (h *Hub) broadcastToRoom(code string, msg any) {
	for _, c := range h.clients {
		if c.room == code {
			h.deliver(c, msg)
		}
	}
}

// deliver drops clients whose send buffer is full rather than blocking
// the run loop behind them. Clients already dropped are skipped, so a
// late action from a dead connection never writes to a closed channel.
func (h *Hub) deliver(c *Client, msg any) {
	if _, ok := h.clients[c.connID]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c.connID)
		close(c.send)
	}
}

// reapIdle deletes rooms that have seen no action for the configured
// timeout and tells any connections still pointed at them.
func (h *Hub) reapIdle(cfg *Config) {
	cutoff := time.Now().Add(-cfg.roomTimeout)

	for code, room := range h.registry.rooms {
		if !room.lastActive.Before(cutoff) {
			continue
		}

		h.registry.remove(code)
		logf(cfg, "GAMES: Room %s reaped (idle)", code)

		for _, c := range h.clients {
			if c.room == code {
				c.room = ""
				h.deliver(c, errorMessage{Type: "error", Message: "Room closed due to inactivity"})
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const sessionCookieName = "rajamantri_id"

func getOrSetSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sessionID := getOrSetSessionID(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:      conn,
			send:      make(chan any, 8),
			connID:    uuid.New().String(),
			sessionID: sessionID,
		}

		h.register <- client

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.actions <- action{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := strings.ToUpper(ps.ByName("code"))
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../qr/:code; strip the trailing "/qr/:code" to get the
	// client page and pass the room as a query parameter.
	path := strings.TrimSuffix(r.URL.Path, "/qr/"+ps.ByName("code"))

	url := scheme + "://" + r.Host + path + "?room=" + code

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed rajamantri/index.html
var indexHTML []byte

//go:embed rajamantri/app.css
var rajamantriCSS []byte

//go:embed rajamantri/app.js
var rajamantriJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetSessionID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(rajamantriCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(rajamantriJS)
	}
}

// registerRajaMantriGame sets up routes so that:
//   - $path             → HTML client (rooms are created/joined in-band)
//   - $path/ws          → shared WebSocket endpoint
//   - $path/qr/:code    → PNG QR code linking to a room
func registerRajaMantriGame(cfg *Config, path string, mux *httprouter.Router) {
	hub := newHub()
	go hub.run(cfg)

	// Client view
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/rajamantri/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/rajamantri/app.js", getJsHandler(cfg))

	// WebSocket
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/qr/:code", qrHandler)
}
