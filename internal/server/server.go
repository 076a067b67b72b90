package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/cache"
	"github.com/gravitas-games/factorylab/internal/config"
	"github.com/gravitas-games/factorylab/internal/store"
	"github.com/gravitas-games/factorylab/pkg/models"
)

// anonymousUser names connections when authentication is disabled; each one
// gets its own numbered user id
const anonymousUser = "anonymous"

// Server represents the calculator server
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator // Nil when no public key URL is configured
	redis        *redis.Client
	cache        *cache.Cache
	store        *store.Store

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex
	anonymous   atomic.Uint64

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server serving an already loaded dataset
func New(cfg *config.Config, d *models.Dataset) (*Server, error) {
	log.Println("Initializing server...")

	adjCfg, err := cfg.AdjusterConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("Connected to Redis")

	srv := newServer(ctx, cancel, cfg)
	srv.redis = redisClient

	if cfg.Cache.Enabled {
		srv.cache, err = cache.New(redisClient, cfg.Cache.Prefix, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		if err != nil {
			srv.Shutdown()
			return nil, err
		}
		log.Printf("Result cache enabled (prefix %s, ttl %ds)", cfg.Cache.Prefix, cfg.Cache.TTLSeconds)
	}

	srv.store, err = store.Open(cfg.Store.Path)
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("failed to open preset store: %w", err)
	}
	log.Printf("Preset store opened at %s", cfg.Store.Path)

	if cfg.JWT.PublicKeyURL != "" {
		srv.jwtValidator, err = NewJWTValidator(ctx, cfg, redisClient)
		if err != nil {
			srv.Shutdown()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
	} else {
		log.Println("Warning: no JWT public key URL configured, authentication disabled")
	}

	srv.session = NewSession("main", d, adjust.New(adjCfg), srv.cache, srv.store, cfg.Server.MaxConnections)

	log.Println("Server initialized successfully")
	return srv, nil
}

// newServer builds a server without external connections
func newServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config) *Server {
	return &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				// TODO: check against a configured origin list once the web client has a fixed host
				return true
			},
		},
	}
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	log.Printf("Starting WebSocket server on %s", addr)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	if s.cache != nil {
		s.cache.Close()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Preset store close error: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// authenticate resolves the user of an upgrade request
func (s *Server) authenticate(r *http.Request) (*models.User, int, error) {
	if s.jwtValidator == nil {
		id := fmt.Sprintf("%s-%d", anonymousUser, s.anonymous.Add(1))
		return &models.User{ID: id, Username: anonymousUser, Activated: 1}, http.StatusOK, nil
	}

	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		return nil, http.StatusUnauthorized, fmt.Errorf("missing authentication token")
	}

	user, err := s.jwtValidator.ValidateToken(tokenString)
	if err != nil {
		return nil, http.StatusUnauthorized, fmt.Errorf("invalid token: %w", err)
	}
	return user, http.StatusOK, nil
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	s.connMu.RLock()
	full := s.config.Server.MaxConnections > 0 && len(s.connections) >= s.config.Server.MaxConnections
	s.connMu.RUnlock()
	if full {
		log.Printf("Rejecting %s: connection limit reached", r.RemoteAddr)
		http.Error(w, "Server full", http.StatusServiceUnavailable)
		return
	}

	user, status, err := s.authenticate(r)
	if err != nil {
		log.Printf("Rejecting %s: %v", r.RemoteAddr, err)
		http.Error(w, err.Error(), status)
		return
	}

	log.Printf("Authenticated user: %s (%s) from %s", user.Username, user.ID, r.RemoteAddr)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, s)
	conn.user = user
	conn.authenticated = true

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", user.Username, r.RemoteAddr)

	conn.Handle() // Blocking

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", user.Username, r.RemoteAddr)
}

// handleHealth reports liveness and the loaded dataset
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"session": s.session.GetStatus(),
	})
}
