package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 2048
	sendBufSize       = 256
	maxMessagesPerSec = 20
	voteCooldown      = 5 * time.Second
)

// Client represents one spectator WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	msgCount   int
	msgResetAt time.Time
	nextVoteAt time.Time

	isAdmin bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
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
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
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
			// 0xFF prefix marks a binary frame (msgpack state)
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
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF so WritePump can distinguish from text.
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
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgVote:
		c.handleVote(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgStart:
		c.handleControl(env.D, func() error { return c.hub.Engine().Start() })
	case MsgPause:
		c.handleControl(env.D, func() error { c.hub.Engine().Pause(); return nil })
	case MsgResume:
		c.handleControl(env.D, func() error { c.hub.Engine().Resume(); return nil })
	case MsgReset:
		c.handleControl(env.D, c.hub.ResetBattle)
	case MsgStats:
		c.handleStats()
	}
}

func (c *Client) handleVote(data json.RawMessage) {
	var msg VoteMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	species, ok := ParseSpecies(msg.Species)
	if !ok {
		c.sendError("unknown species")
		return
	}

	now := time.Now()
	if now.Before(c.nextVoteAt) {
		c.sendError("vote cooldown active")
		return
	}
	c.nextVoteAt = now.Add(voteCooldown)

	id, err := c.hub.VoteSpawn(species)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SendJSON(Envelope{T: MsgVoted, Data: VotedMsg{EntityID: id, Species: species.String()}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("admin access disabled")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	token, err := c.hub.auth.Login(msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.isAdmin = true
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token}})
}

// handleControl validates the admin token and runs the command
func (c *Client) handleControl(data json.RawMessage, cmd func() error) {
	if c.hub.auth == nil {
		c.sendError("admin access disabled")
		return
	}
	var msg ControlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if err := c.hub.auth.ValidateToken(msg.Token); err != nil {
		c.sendError("not authorized")
		return
	}
	if err := cmd(); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleStats() {
	if c.hub.analytics == nil {
		c.sendError("analytics disabled")
		return
	}
	summary, err := c.hub.analytics.BuildSummary()
	if err != nil {
		log.Printf("stats query error: %v", err)
		c.sendError("stats unavailable")
		return
	}
	c.SendJSON(Envelope{T: MsgSummary, Data: summary})
}
