// Package notifyproto defines the JSON protocol between the core service
// and local presentation clients: a WebSocket push stream of batched
// change notifications plus a bootstrap snapshot over HTTP.
package notifyproto

import (
	"encoding/json"
	"fmt"
)

// Version is the notification protocol version.
const Version = "1.0"

const (
	TypeSubscribe    = "SUBSCRIBE"
	TypeClock        = "CLOCK"
	TypeOwnership    = "OWNERSHIP"
	TypeSpiritStates = "SPIRIT_STATES"
	TypeLevelUp      = "LEVEL_UP"
	TypeActionResult = "ACTION_RESULT"
)

// Base is the envelope every message shares.
type Base struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

func DecodeBase(raw []byte) (Base, error) {
	var b Base
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode base: %w", err)
	}
	if b.Type == "" {
		return b, fmt.Errorf("missing type")
	}
	return b, nil
}

// Client -> Server. First message on the notify WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	Scene           string         `json:"scene"`
	Day             int            `json:"day"`
	Hour            int            `json:"hour"`
	Minute          int            `json:"minute"`
	GameHour        float64        `json:"game_hour"`
	OwnedCount      int            `json:"owned_count"`
	PendingCount    int            `json:"pending_count"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	Actions  string `json:"actions"`
	Spirits  string `json:"spirits"`
	Items    string `json:"items"`
	Leveling string `json:"leveling"`
}

// Server -> Client. Sent on every hour and day boundary.
type ClockMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Day             int     `json:"day"`
	Hour            int     `json:"hour"`
	Minute          int     `json:"minute"`
	GameHour        float64 `json:"game_hour"`
	IsNight         bool    `json:"is_night"`
}

// Server -> Client. Full owned and pending id lists; sent at most once
// per logical operation.
type OwnershipMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	GameHour        float64  `json:"game_hour"`
	Owned           []string `json:"owned"`
	Pending         []string `json:"pending"`
}

// Server -> Client. Wholesale refresh of every owned spirit's state;
// sent at most once per logical operation regardless of how many
// spirits changed.
type SpiritStatesMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	GameHour        float64       `json:"game_hour"`
	Spirits         []SpiritState `json:"spirits"`
}

type SpiritState struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Level int     `json:"level"`
	XP01  float64 `json:"xp01"`

	Serenity01  float64 `json:"serenity01"`
	Appetite01  float64 `json:"appetite01"`
	Integrity01 float64 `json:"integrity01"`

	DaysOwned int `json:"days_owned"`

	Cooldowns   []CooldownEntry   `json:"cooldowns,omitempty"`
	Assignments []AssignmentEntry `json:"assignments,omitempty"`
}

type CooldownEntry struct {
	ActionID            string  `json:"action_id"`
	NextAllowedGameHour float64 `json:"next_allowed_game_hour"`
}

type AssignmentEntry struct {
	ActionID           string  `json:"action_id"`
	CompleteAtGameHour float64 `json:"complete_at_game_hour"`
}

// Server -> Client. One per level gained, in order.
type LevelUpMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	GameHour        float64 `json:"game_hour"`
	SpiritID        string  `json:"spirit_id"`
	Level           int     `json:"level"`
}

// Server -> Client. Echo of an executed (or denied) action.
type ActionResultMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	GameHour        float64 `json:"game_hour"`
	SpiritID        string  `json:"spirit_id"`
	ActionID        string  `json:"action_id"`
	OK              bool    `json:"ok"`
	Code            string  `json:"code,omitempty"`
	Detail          string  `json:"detail,omitempty"`
}
