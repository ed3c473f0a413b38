/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Partydeck Deck Game
//
// Everyone in a room shares one table: a themed classic deck that runs out,
// a truth-or-dare pile that never does, and a weighted fortune draw with a
// lucky number. Cards come from the sheet loaded at startup, or from the
// offline set when that fails.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - First connection to a game becomes host
// - Only the host can replace the classic deck with typed lines or a sheet URL
// - Players identified by cookie (playerID)
// - Host role passes on if the host stays away past the player timeout
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"hash/fnv"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/partydeck/games/cards"
	"github.com/Seednode/partydeck/games/draw"
	"github.com/Seednode/partydeck/games/source"
)

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

// loadResult carries a finished sheet download back into the run loop.
type loadResult struct {
	url  string
	pool *cards.ThemePool
	res  source.Result
	err  error
}

type Hub struct {
	id      string
	clients map[*Client]bool
	room    *deckRoom

	register chan *Client
	unreg    chan *Client
	commands chan command
	loads    chan loadResult
	done     chan struct{}
	once     sync.Once

	fetcher *source.Fetcher

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	hostPlayerID string
	loading      bool
}

func newHub(gameID string, room *deckRoom, fetcher *source.Fetcher) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		room:       room,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		loads:      make(chan loadResult),
		done:       make(chan struct{}),
		fetcher:    fetcher,
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()

			if h.hostPlayerID == "" {
				h.hostPlayerID = c.playerID
			}

			h.clients[c] = true

			h.sendLocked(c, SessionInfoMessage{
				Type:   "session_info",
				GameID: h.id,
				IsHost: c.playerID == h.hostPlayerID,
			})
			for _, msg := range h.room.snapshot() {
				h.sendLocked(c, msg)
			}

			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			isHost := c.playerID == h.hostPlayerID
			h.mu.Unlock()

			if isHost {
				go h.scheduleHandoff(c.playerID, cfg.playerTimeout)
			}

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case lr := <-h.loads:
			h.handleLoad(cfg, lr)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleCommand(cfg *Config, cmd command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	isHost := cmd.client.playerID == h.hostPlayerID

	switch cmd.msg.Type {
	case "load_text", "load_sheet":
		if !isHost {
			h.sendLocked(cmd.client, errorMessage("Only the host can change the deck."))
			return
		}
	}

	if cmd.msg.Type == "load_sheet" {
		h.startLoadLocked(cfg, cmd.client, strings.TrimSpace(cmd.msg.URL))
		return
	}

	msgs := h.room.handle(cmd.msg)
	if cmd.msg.Type == "load_text" && len(msgs) > 1 {
		logf(cfg, "GAMES: Loaded %d typed cards into game %s", h.room.themes.Size(), h.id)
	}

	h.deliverLocked(cmd.client, msgs)
}

// deliverLocked broadcasts room updates, but reports errors only to the
// client whose command caused them.
func (h *Hub) deliverLocked(origin *Client, msgs []any) {
	for _, msg := range msgs {
		if _, isErr := msg.(ErrorMessage); isErr && origin != nil {
			h.sendLocked(origin, msg)
			continue
		}
		h.broadcastLocked(msg)
	}
}

func (h *Hub) startLoadLocked(cfg *Config, c *Client, url string) {
	if err := source.ValidateURL(url); err != nil {
		h.sendLocked(c, errorMessage("Only http and https links can be loaded."))
		return
	}
	if h.loading {
		h.sendLocked(c, errorMessage("A sheet is already loading."))
		return
	}
	h.loading = true

	logf(cfg, "FETCH: Game %s loading %s", h.id, url)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.fetchTimeout)
		defer cancel()

		pool, res, err := source.LoadThemes(ctx, h.fetcher, url)

		select {
		case h.loads <- loadResult{url: url, pool: pool, res: res, err: err}:
		case <-h.done:
		}
	}()
}

func (h *Hub) handleLoad(cfg *Config, lr loadResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.loading = false
	h.lastActive = time.Now()

	if lr.err != nil {
		logf(cfg, "FETCH: Game %s failed to load %s: %v", h.id, lr.url, lr.err)
		h.broadcastLocked(errorMessage("Could not load that sheet."))
		return
	}

	logf(cfg, "FETCH: Game %s loaded %d cards in %d themes (%s) from %s: %s",
		h.id,
		lr.pool.Size(),
		lr.pool.Len(),
		humanReadableSize(lr.res.Bytes),
		lr.url,
		strings.Join(lr.pool.Names(), ", "),
	)

	h.deliverLocked(nil, h.room.loadThemes(lr.pool, source.OriginSheet))
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// scheduleHandoff waits for d, and if the host has not reconnected, makes
// another connected player the host.
func (h *Hub) scheduleHandoff(playerID string, d time.Duration) {
	select {
	case <-time.After(d):
	case <-h.done:
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hostPlayerID != playerID {
		return
	}

	h.hostPlayerID = ""
	for client := range h.clients {
		if client.playerID == playerID {
			h.hostPlayerID = playerID
			return
		}
		if h.hostPlayerID == "" {
			h.hostPlayerID = client.playerID
		}
	}

	for client := range h.clients {
		h.sendLocked(client, SessionInfoMessage{
			Type:   "session_info",
			GameID: h.id,
			IsHost: client.playerID == h.hostPlayerID,
		})
	}
}

// closeAll disconnects all clients of this hub and stops its run loop.
func (h *Hub) closeAll() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "partydeck_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session. Every hub starts from the same library.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration

	loaded  source.Loaded
	fetcher *source.Fetcher
	seed    uint64
}

func newGameManager(idleTimeout time.Duration, loaded source.Loaded, fetcher *source.Fetcher, seed uint64) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		loaded:      loaded,
		fetcher:     fetcher,
		seed:        seed,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// rngFor returns a per-room source. A fixed seed makes each room
// reproducible while keeping rooms independent.
func (gm *GameManager) rngFor(gameID string) draw.RNG {
	if gm.seed == 0 {
		return draw.NewRandomRNG()
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(gameID))

	return draw.NewRNG(gm.seed ^ h.Sum64())
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	room := newDeckRoom(gm.loaded.Library, gm.loaded.Origins[cards.Classic], gm.rngFor(gameID))
	hub := newHub(gameID, room, gm.fetcher)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]
	return hub, ok
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(max(gm.idleTimeout/2, minSessionTimeout/2))
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++
		}
	}

	return reaped
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Type == "" {
			continue
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
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

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

// serveThemes lists the classic themes of a running game, or of the startup
// library when the game does not exist yet.
func serveThemes(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var listing ThemeListMessage

		if hub, ok := gm.lookup(ps.ByName("gameid")); ok {
			hub.mu.RLock()
			listing = hub.room.themeList()
			hub.mu.RUnlock()
		} else {
			listing = newDeckRoom(gm.loaded.Library, gm.loaded.Origins[cards.Classic], nil).themeList()
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(listing); err != nil {
			errs <- err
		}
	}
}

//go:embed assets/deck/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerDeckGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
//   - $path/:gameid/themes   → JSON theme listing
func registerDeckGame(cfg *Config, path string, mux *httprouter.Router, gm *GameManager, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/themes", serveThemes(cfg, gm, errs))
}
