package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait            = 10 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = (pongWait * 9) / 10
	maxMessageSize       = 4096
	sendBufSize          = 256
	maxMessagesPerSecond = 60
	leaderboardSize      = 20
	profileHistory       = 10
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   string
	name       string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state, only touched by ReadPump
	accountID int64 // 0 = guest
	username  string
	log       *logrus.Entry
}

// NewClient creates a new Client with a fresh player id and guest name
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := hub.ids.Next("p")
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		playerID:   id,
		name:       GenerateGuestName(),
		remoteAddr: remoteAddr,
		log:        logger.WithFields(logrus.Fields{"component": "client", "player": id}),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	c.hub.track(EvtSessionStart, 0, "")
	defer func() {
		c.hub.track(EvtSessionEnd, c.accountID, "")
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws read")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > c.hub.cfg.RateLimit {
			c.log.WithField("ip", c.remoteAddr).Warn("rate limit exceeded, disconnecting")
			break
		}

		if msgType != websocket.TextMessage {
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix from SendBinary marks a binary frame
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("marshal")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }() // send on a closed channel after unregister
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary queues data as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Debug("bad envelope")
		return
	}

	cmd, ok, err := DecodeCommand(env)
	if ok {
		if err != nil {
			c.log.WithError(err).WithField("type", env.T).Debug("bad command")
			return
		}
		c.hub.game.Handle(c.playerID, cmd)
		return
	}

	switch env.T {
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgLeaderboard:
		c.handleLeaderboard(env.D)
	default:
		c.log.WithField("type", env.T).Debug("unknown message type")
	}
}

func (c *Client) setAccount(id int64, username, token string) {
	c.accountID = id
	c.username = username
	c.hub.game.SetAccount(c.playerID, id, username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:     token,
		Username:  username,
		AccountID: id,
	}})
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setAccount(id, msg.Username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		if !errors.Is(err, ErrBadCredentials) && !errors.Is(err, ErrRateLimited) {
			c.log.WithError(err).Error("login")
			err = errors.New("internal error")
		}
		c.sendError(err.Error())
		return
	}
	c.setAccount(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.setAccount(id, username, msg.Token)
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.accountID == 0 {
		c.sendError("not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(c.accountID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	achievements, err := c.hub.db.GetAchievements(c.accountID)
	if err != nil {
		c.log.WithError(err).Warn("load achievements")
	}
	history, err := c.hub.db.GetMatchHistory(c.accountID, profileHistory)
	if err != nil {
		c.log.WithError(err).Warn("load match history")
	}
	recent := make([]RecentMatch, 0, len(history))
	for _, h := range history {
		recent = append(recent, RecentMatch{
			MatchID: h.MatchID, Kills: h.Kills, FinalKills: h.FinalKills,
			BedsBroken: h.BedsBroken, Deaths: h.Deaths, Won: h.Won, XP: h.XPEarned,
		})
	}
	if achievements == nil {
		achievements = []string{}
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:   c.username,
		Level:      stats.Level,
		XP:         stats.XP,
		Kills:      stats.Kills,
		FinalKills: stats.FinalKills,
		BedsBroken: stats.BedsBroken,
		Deaths:     stats.Deaths,
		Wins:       stats.Wins,
		Losses:     stats.Losses,
		Playtime:   stats.Playtime,

		Achievements: achievements,
		Recent:       recent,
	}})
}

func (c *Client) handleLeaderboard(data json.RawMessage) {
	if c.hub.db == nil {
		c.sendError("leaderboard unavailable")
		return
	}
	var msg LeaderboardMsg
	if len(data) > 0 {
		json.Unmarshal(data, &msg)
	}
	entries, err := c.hub.db.GetLeaderboard(msg.By, leaderboardSize)
	if err != nil {
		c.log.WithError(err).Error("leaderboard")
		c.sendError("leaderboard unavailable")
		return
	}
	c.SendJSON(Envelope{T: MsgLeaderboardData, Data: entries})
}
