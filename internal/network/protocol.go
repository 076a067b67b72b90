package network

import (
	"encoding/json"
	"time"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/pkg/models"
)

// Message types - Client → Server
const (
	MsgTypeJoin         = "join"
	MsgTypeAdjust       = "adjust"
	MsgTypeAdjustRecipe = "adjust_recipe"
	MsgTypeFuelOptions  = "fuel_options"
	MsgTypeSavePreset   = "save_preset"
	MsgTypeLoadPreset   = "load_preset"
	MsgTypeListPresets  = "list_presets"
	MsgTypeDeletePreset = "delete_preset"
	MsgTypePing         = "ping"
)

// Message types - Server → Client
const (
	MsgTypeWelcome        = "welcome"
	MsgTypeAdjusted       = "adjusted"
	MsgTypeAdjustedRecipe = "adjusted_recipe"
	MsgTypeFuelOptionList = "fuel_options"
	MsgTypePresetSaved    = "preset_saved"
	MsgTypePreset         = "preset"
	MsgTypePresets        = "presets"
	MsgTypePresetDeleted  = "preset_deleted"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// JoinPayload is sent by client to join the session
type JoinPayload struct{}

// AdjustPayload asks for a whole dataset adjustment.
// Category, Output and Producer narrow the recipe set when RecipeIDs is empty.
// A non-empty Preset replaces the request with the user's saved one.
type AdjustPayload struct {
	adjust.Request
	Category string `json:"category,omitempty"`
	Output   string `json:"output,omitempty"`
	Producer string `json:"producer,omitempty"`
	Preset   string `json:"preset,omitempty"`
}

// AdjustRecipePayload asks for a single recipe adjustment
type AdjustRecipePayload struct {
	RecipeID string                         `json:"recipeId"`
	Settings models.RecipeSettings          `json:"settings"`
	Items    map[string]models.ItemSettings `json:"items,omitempty"`
	Global   models.GlobalSettings          `json:"global"`
}

// FuelQueryPayload asks which fuels a machine can burn
type FuelQueryPayload struct {
	MachineID string `json:"machine"`
}

// SavePresetPayload stores a named request for the user
type SavePresetPayload struct {
	Name    string         `json:"name"`
	Request adjust.Request `json:"request"`
}

// LoadPresetPayload fetches one of the user's presets
type LoadPresetPayload struct {
	Name string `json:"name"`
}

// DeletePresetPayload removes one of the user's presets
type DeletePresetPayload struct {
	Name string `json:"name"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	UserID        string        `json:"user_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	SessionStatus SessionStatus `json:"session_status"`
}

// AdjustedPayload carries an adjusted dataset
type AdjustedPayload struct {
	Recipes models.AdjustedDataset `json:"recipes"`
	Cached  bool                   `json:"cached"`
}

// AdjustedRecipePayload carries one adjusted recipe
type AdjustedRecipePayload struct {
	Recipe *models.AdjustedRecipe `json:"recipe"`
}

// FuelOptionsPayload lists the fuels a machine can burn
type FuelOptionsPayload struct {
	MachineID string        `json:"machine"`
	Options   []fuel.Option `json:"options"`
}

// PresetSavedPayload confirms a stored preset
type PresetSavedPayload struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PresetPayload returns a stored preset
type PresetPayload struct {
	Name      string         `json:"name"`
	Request   adjust.Request `json:"request"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PresetDeletedPayload confirms a removed preset
type PresetDeletedPayload struct {
	Name string `json:"name"`
}

// PresetSummary is one entry of a preset listing
type PresetSummary struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PresetsPayload lists the user's presets
type PresetsPayload struct {
	Presets []PresetSummary `json:"presets"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State     string      `json:"state"`
	UserCount int         `json:"user_count"`
	MaxUsers  int         `json:"max_users"`
	Game      models.Game `json:"game"`
	Recipes   int         `json:"recipes"`
	Digest    string      `json:"dataset_digest"`
	Uptime    int64       `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
