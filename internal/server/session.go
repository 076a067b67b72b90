package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/cache"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/internal/network"
	"github.com/gravitas-games/factorylab/internal/settings"
	"github.com/gravitas-games/factorylab/internal/store"
	"github.com/gravitas-games/factorylab/pkg/models"
)

var (
	// ErrUnknownMachine is returned for fuel queries on a machine the dataset lacks.
	ErrUnknownMachine = errors.New("unknown machine")

	// ErrNoStore is returned by preset operations when no store is configured.
	ErrNoStore = errors.New("preset store not configured")

	// ErrNoRecipes is returned when a filter matches nothing.
	ErrNoRecipes = errors.New("no recipes match the filter")
)

// Session serves adjustments of one dataset to its connected users
type Session struct {
	ID        string
	CreatedAt time.Time

	// User management
	users       map[string]*models.User // userID -> User
	connections map[string]*Connection  // userID -> Connection
	mu          sync.RWMutex

	// Calculator state, read-only after creation
	dataset  *models.Dataset
	index    *dataset.Index
	adjuster *adjust.Adjuster
	cache    *cache.Cache // Nil disables caching
	store    *store.Store // Nil disables presets

	maxUsers int
}

// NewSession creates a session over a loaded dataset
func NewSession(id string, d *models.Dataset, adj *adjust.Adjuster, c *cache.Cache, st *store.Store, maxUsers int) *Session {
	log.Printf("Creating session: %s", id)

	session := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		users:       make(map[string]*models.User),
		connections: make(map[string]*Connection),
		dataset:     d,
		index:       dataset.NewIndex(d),
		adjuster:    adj,
		cache:       c,
		store:       st,
		maxUsers:    maxUsers,
	}

	log.Printf("Session %s created for %s dataset with %d recipes", id, d.Game, len(d.RecipeIDs))
	return session
}

// AddUser adds a user to the session
func (s *Session) AddUser(user *models.User, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; !exists && s.maxUsers > 0 && len(s.users) >= s.maxUsers {
		return fmt.Errorf("session %s is full", s.ID)
	}

	s.users[user.ID] = user
	s.connections[user.ID] = conn

	log.Printf("User %s (%s) joined session %s", user.Username, user.ID, s.ID)
	return nil
}

// RemoveUser removes a user from the session
func (s *Session) RemoveUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[userID]; exists {
		log.Printf("User %s (%s) left session %s", user.Username, userID, s.ID)
		delete(s.users, userID)
		delete(s.connections, userID)
	}
}

// GetUser retrieves a user by ID
func (s *Session) GetUser(userID string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	return user, exists
}

// GetStatus returns the current session status
func (s *Session) GetStatus() network.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return network.SessionStatus{
		State:     "running",
		UserCount: len(s.users),
		MaxUsers:  s.maxUsers,
		Game:      s.dataset.Game,
		Recipes:   len(s.dataset.RecipeIDs),
		Digest:    s.dataset.Digest,
		Uptime:    int64(time.Since(s.CreatedAt).Seconds()),
	}
}

// Adjust resolves the recipe set of a request and adjusts it, consulting the
// cache first. The boolean reports a cache hit.
func (s *Session) Adjust(ctx context.Context, userID string, p network.AdjustPayload) (models.AdjustedDataset, bool, error) {
	req := p.Request
	if p.Preset != "" {
		loaded, _, err := s.LoadPreset(ctx, userID, p.Preset)
		if err != nil {
			return nil, false, err
		}
		req = loaded
	}

	if len(req.RecipeIDs) == 0 {
		ids := s.index.Filter(s.dataset, p.Category, p.Output, p.Producer)
		if ids != nil && len(ids) == 0 {
			return nil, false, ErrNoRecipes
		}
		req.RecipeIDs = ids
	}

	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, s.dataset.Digest, req); ok {
			return result, true, nil
		}
	}

	result, err := s.adjuster.AdjustDataset(ctx, req, s.dataset)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, s.dataset.Digest, req, result)
	}
	return result, false, nil
}

// AdjustRecipe adjusts one recipe without the silo or cost passes
func (s *Session) AdjustRecipe(p network.AdjustRecipePayload) (*models.AdjustedRecipe, error) {
	return s.adjuster.AdjustRecipe(p.RecipeID, p.Settings, p.Items, p.Global, s.dataset)
}

// FuelOptions lists the fuels a machine can burn
func (s *Session) FuelOptions(machineID string) ([]fuel.Option, error) {
	machine, ok := s.dataset.Machines[machineID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, machineID)
	}
	return fuel.Options(machine, s.dataset), nil
}

// SavePreset stores a request under a name for a user
func (s *Session) SavePreset(ctx context.Context, userID, name string, req adjust.Request) (store.Preset, error) {
	if s.store == nil {
		return store.Preset{}, ErrNoStore
	}
	if len(req.Recipes) > 0 {
		compact := make(map[string]models.RecipeSettings, len(req.Recipes))
		for id, rs := range req.Recipes {
			compact[id] = settings.CompactRecipe(id, rs, req.Global, s.dataset)
		}
		req.Recipes = compact
	}
	body, err := json.Marshal(req)
	if err != nil {
		return store.Preset{}, fmt.Errorf("failed to encode preset: %w", err)
	}
	return s.store.SavePreset(ctx, store.Preset{UserID: userID, Name: name, Body: body})
}

// LoadPreset returns a user's stored request
func (s *Session) LoadPreset(ctx context.Context, userID, name string) (adjust.Request, time.Time, error) {
	if s.store == nil {
		return adjust.Request{}, time.Time{}, ErrNoStore
	}
	p, err := s.store.LoadPreset(ctx, userID, name)
	if err != nil {
		return adjust.Request{}, time.Time{}, err
	}
	var req adjust.Request
	if err := json.Unmarshal(p.Body, &req); err != nil {
		return adjust.Request{}, time.Time{}, fmt.Errorf("failed to decode preset %s: %w", name, err)
	}
	return req, p.UpdatedAt, nil
}

// ListPresets summarizes a user's stored presets
func (s *Session) ListPresets(ctx context.Context, userID string) ([]network.PresetSummary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	presets, err := s.store.ListPresets(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]network.PresetSummary, 0, len(presets))
	for _, p := range presets {
		out = append(out, network.PresetSummary{Name: p.Name, UpdatedAt: p.UpdatedAt})
	}
	return out, nil
}

// DeletePreset removes one of a user's stored requests
func (s *Session) DeletePreset(ctx context.Context, userID, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeletePreset(ctx, userID, name)
}
