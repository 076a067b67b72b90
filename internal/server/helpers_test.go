package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/config"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/internal/network"
	"github.com/gravitas-games/factorylab/internal/store"
	"github.com/gravitas-games/factorylab/pkg/models"
)

func newTestSession(t *testing.T, withStore bool) *Session {
	t.Helper()
	d, err := dataset.Load(filepath.Join("..", "dataset", "testdata", "dataset.json"))
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}

	var st *store.Store
	if withStore {
		st, err = store.Open(filepath.Join(t.TempDir(), "presets.db"))
		if err != nil {
			t.Fatalf("Failed to open store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
	}
	return NewSession("test", d, adjust.New(adjust.DefaultConfig()), nil, st, 2)
}

func newTestServer(t *testing.T, session *Session) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{}
	cfg.Server.MaxConnections = 10
	srv := newServer(ctx, cancel, cfg)
	srv.session = session
	return srv
}

func newTestConnection(srv *Server, id string) *Connection {
	conn := NewConnection(nil, srv)
	conn.user = &models.User{ID: id, Username: "user-" + id, Activated: 1}
	conn.authenticated = true
	return conn
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// receive pops the next queued outbound message
func receive(t *testing.T, c *Connection) received {
	t.Helper()
	select {
	case data := <-c.send:
		var msg received
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("Expected a message")
	}
	return received{}
}

func send(c *Connection, msgType string, payload interface{}) {
	raw, _ := json.Marshal(payload)
	c.handleMessage(&network.ClientMessage{Type: msgType, Payload: raw})
}
