package main

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	maxConnectionsPerIP = 5
	maxTotalConnections = 64
)

// Hub manages connected clients and feeds them into the single Game
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	game       *Game
	cfg        ServerConfig
	ids        IDSource

	// Connection limiting (accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	// Optional persistence; nil when running without a database
	db        *DB
	auth      *Auth
	analytics *Analytics

	log *logrus.Entry
}

// NewHub creates a Hub. db, auth and analytics may be nil.
func NewHub(game *Game, cfg ServerConfig, db *DB, auth *Auth, analytics *Analytics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		quit:       make(chan struct{}),
		game:       game,
		cfg:        cfg,
		ids:        UUIDs{},
		ipConns:    make(map[string]int),
		db:         db,
		auth:       auth,
		analytics:  analytics,
		log:        logger.WithField("component", "hub"),
	}
}

// CanAccept reserves nothing; it only checks the caps
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.cfg.MaxConns {
		return false
	}
	if h.ipConns[ip] >= h.cfg.MaxPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.game.Connect(client.playerID, client.name, 0, client)
			h.peers(n)
			h.log.WithFields(logrus.Fields{"player": client.playerID, "ip": client.remoteAddr}).Info("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.game.Disconnect(client.playerID)
				h.peers(n)
				h.log.WithField("player", client.playerID).Info("client disconnected")
			}

		case <-h.quit:
			return
		}
	}
}

// Stop ends Run
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) peers(n int) {
	if h.analytics != nil {
		h.analytics.SetConcurrentPeers(n)
	}
}

func (h *Hub) track(evt string, accountID int64, data string) {
	if h.analytics != nil {
		h.analytics.Track(evt, accountID, data)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
