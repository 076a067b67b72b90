package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/network"
	"github.com/gravitas-games/factorylab/internal/store"
	"github.com/gravitas-games/factorylab/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; settings for a full dataset are large
	maxMessageSize = 1 << 20

	// Time allowed for one adjustment request
	requestTimeout = 30 * time.Second
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server

	// Set after authentication
	user *models.User

	// Buffered channel for outbound messages
	send chan []byte

	authenticated bool

	// Guards joined and closed; handlers and Shutdown run on different goroutines
	mu        sync.Mutex
	joined    bool
	closed    bool
	closeOnce sync.Once
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	log.Printf("Received message type: %s", msg.Type)

	if !c.authenticated || c.user == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return
	}
	if msg.Type != network.MsgTypeJoin && msg.Type != network.MsgTypePing && !c.isJoined() {
		c.SendError("not_joined", "Join the session first")
		return
	}

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()

	case network.MsgTypeAdjust:
		c.handleAdjust(msg.Payload)

	case network.MsgTypeAdjustRecipe:
		c.handleAdjustRecipe(msg.Payload)

	case network.MsgTypeFuelOptions:
		c.handleFuelOptions(msg.Payload)

	case network.MsgTypeSavePreset:
		c.handleSavePreset(msg.Payload)

	case network.MsgTypeLoadPreset:
		c.handleLoadPreset(msg.Payload)

	case network.MsgTypeListPresets:
		c.handleListPresets()

	case network.MsgTypeDeletePreset:
		c.handleDeletePreset(msg.Payload)

	case network.MsgTypePing:
		c.handlePing()

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

// handleJoin adds the user to the session and sends the welcome message
func (c *Connection) handleJoin() {
	session := c.server.session
	log.Printf("User join request from %s", c.user.Username)

	c.user.Connected = true
	c.user.ConnectedAt = time.Now()
	c.user.SessionID = session.ID

	if err := session.AddUser(c.user, c); err != nil {
		log.Printf("Failed to add user to session: %v", err)
		c.SendError("join_failed", "Failed to join session")
		return
	}
	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			UserID:        c.user.ID,
			Username:      c.user.Username,
			SessionID:     session.ID,
			SessionStatus: session.GetStatus(),
		},
	})
}

// handleLeave removes the user from the session
func (c *Connection) handleLeave() {
	c.mu.Lock()
	wasJoined := c.joined
	c.joined = false
	c.mu.Unlock()

	if c.user != nil && wasJoined {
		c.server.session.RemoveUser(c.user.ID)
	}
}

func (c *Connection) isJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Connection) handleAdjust(payload json.RawMessage) {
	var req network.AdjustPayload
	if !c.decode(payload, &req, "invalid_adjust") {
		return
	}

	ctx, cancel := context.WithTimeout(c.server.ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	result, cached, err := c.server.session.Adjust(ctx, c.user.ID, req)
	if err != nil {
		c.sendFailure("adjust_failed", err)
		return
	}
	log.Printf("Adjusted %d recipes for %s in %v (cached: %t)", len(result), c.user.Username, time.Since(start), cached)

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeAdjusted,
		Payload: network.AdjustedPayload{Recipes: result, Cached: cached},
	})
}

func (c *Connection) handleAdjustRecipe(payload json.RawMessage) {
	var req network.AdjustRecipePayload
	if !c.decode(payload, &req, "invalid_adjust_recipe") {
		return
	}

	recipe, err := c.server.session.AdjustRecipe(req)
	if err != nil {
		c.sendFailure("adjust_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeAdjustedRecipe,
		Payload: network.AdjustedRecipePayload{Recipe: recipe},
	})
}

func (c *Connection) handleFuelOptions(payload json.RawMessage) {
	var req network.FuelQueryPayload
	if !c.decode(payload, &req, "invalid_fuel_options") {
		return
	}

	options, err := c.server.session.FuelOptions(req.MachineID)
	if err != nil {
		c.sendFailure("fuel_options_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeFuelOptionList,
		Payload: network.FuelOptionsPayload{MachineID: req.MachineID, Options: options},
	})
}

func (c *Connection) handleSavePreset(payload json.RawMessage) {
	var req network.SavePresetPayload
	if !c.decode(payload, &req, "invalid_preset") {
		return
	}

	ctx, cancel := context.WithTimeout(c.server.ctx, requestTimeout)
	defer cancel()

	saved, err := c.server.session.SavePreset(ctx, c.user.ID, req.Name, req.Request)
	if err != nil {
		c.sendFailure("preset_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePresetSaved,
		Payload: network.PresetSavedPayload{Name: saved.Name, UpdatedAt: saved.UpdatedAt},
	})
}

func (c *Connection) handleLoadPreset(payload json.RawMessage) {
	var req network.LoadPresetPayload
	if !c.decode(payload, &req, "invalid_preset") {
		return
	}

	ctx, cancel := context.WithTimeout(c.server.ctx, requestTimeout)
	defer cancel()

	loaded, updated, err := c.server.session.LoadPreset(ctx, c.user.ID, req.Name)
	if err != nil {
		c.sendFailure("preset_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePreset,
		Payload: network.PresetPayload{Name: req.Name, Request: loaded, UpdatedAt: updated},
	})
}

func (c *Connection) handleListPresets() {
	ctx, cancel := context.WithTimeout(c.server.ctx, requestTimeout)
	defer cancel()

	presets, err := c.server.session.ListPresets(ctx, c.user.ID)
	if err != nil {
		c.sendFailure("preset_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePresets,
		Payload: network.PresetsPayload{Presets: presets},
	})
}

func (c *Connection) handleDeletePreset(payload json.RawMessage) {
	var req network.DeletePresetPayload
	if !c.decode(payload, &req, "invalid_preset") {
		return
	}

	ctx, cancel := context.WithTimeout(c.server.ctx, requestTimeout)
	defer cancel()

	if err := c.server.session.DeletePreset(ctx, c.user.ID, req.Name); err != nil {
		c.sendFailure("preset_failed", err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePresetDeleted,
		Payload: network.PresetDeletedPayload{Name: req.Name},
	})
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// decode parses a payload, replying with code on failure
func (c *Connection) decode(payload json.RawMessage, target interface{}, code string) bool {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, target); err != nil {
		log.Printf("Failed to parse %s payload: %v", code, err)
		c.SendError(code, "Invalid payload")
		return false
	}
	return true
}

// sendFailure maps a domain error to an error message
func (c *Connection) sendFailure(code string, err error) {
	switch {
	case errors.Is(err, adjust.ErrUnknownRecipe):
		code = "unknown_recipe"
	case errors.Is(err, ErrUnknownMachine):
		code = "unknown_machine"
	case errors.Is(err, ErrNoRecipes):
		code = "no_recipes"
	case errors.Is(err, store.ErrPresetNotFound):
		code = "preset_not_found"
	case errors.Is(err, ErrNoStore):
		code = "presets_disabled"
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	default:
		log.Printf("Request from %s failed: %v", c.user.Username, err)
	}
	c.SendError(code, err.Error())
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close closes the connection; later calls are no-ops and later sends are dropped
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.handleLeave()

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		if c.ws != nil {
			c.ws.Close()
		}
	})
}
