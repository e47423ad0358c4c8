// Package save defines the versioned player save document and the slot
// gateway that reads and writes it. The on-disk format is plain JSON so
// players can inspect and back up their own files; each version embeds
// the previous one and only appends fields, which keeps every released
// save loadable forever.
package save

import (
	"encoding/json"
	"fmt"
)

// CurrentVersion is the version newly captured saves are written at.
const CurrentVersion = 4

// SaveV1 is the original document: scene, player transform and clock.
type SaveV1 struct {
	Version       int     `json:"version"`
	Scene         string  `json:"scene"`
	SavedUTCTicks int64   `json:"savedUtcTicks"`
	PlayerX       float64 `json:"playerX"`
	PlayerY       float64 `json:"playerY"`
	PlayerZ       float64 `json:"playerZ"`
	PlayerYaw     float64 `json:"playerYaw"`
	Day           int     `json:"day"`
	Hour          int     `json:"hour"`
	Minute        int     `json:"minute"`
}

// SaveV2 added the owned spirit roster.
type SaveV2 struct {
	SaveV1
	OwnedSpiritIDs []string `json:"ownedSpiritIds"`
}

// SaveV3 added the pending summon queue.
type SaveV3 struct {
	SaveV2
	PendingSpiritIDs []string `json:"pendingSpiritIds"`
}

// SaveV4 added full per-spirit state.
type SaveV4 struct {
	SaveV3
	SpiritStates []SpiritStateV4 `json:"spiritStates"`
}

type SpiritStateV4 struct {
	ID               string  `json:"id"`
	Level            int     `json:"level"`
	XP01             float64 `json:"xp01"`
	Serenity01       float64 `json:"serenity01"`
	Appetite01       float64 `json:"appetite01"`
	Integrity01      float64 `json:"integrity01"`
	DaysOwned        int     `json:"daysOwned"`
	AcquiredUTCTicks int64   `json:"acquiredUtcTicks,omitempty"`

	SerenityRegenMult    float64 `json:"serenityRegenMult,omitempty"`
	AppetiteDecayMult    float64 `json:"appetiteDecayMult,omitempty"`
	IntegrityRegenKMult  float64 `json:"integrityRegenKMult,omitempty"`
	AppetitePenaltyKMult float64 `json:"appetitePenaltyKMult,omitempty"`

	Cooldowns   []CooldownV4   `json:"cooldowns,omitempty"`
	Assignments []AssignmentV4 `json:"assignments,omitempty"`
}

type CooldownV4 struct {
	ActionID            string  `json:"actionId"`
	NextAllowedGameHour float64 `json:"nextAllowedGameHour"`
}

type AssignmentV4 struct {
	ActionID           string  `json:"actionId"`
	CompleteAtGameHour float64 `json:"completeAtGameHour"`
}

// Probe extracts the document version without decoding the body. An
// absent, unreadable or sub-1 version reads as 1: the field did not
// exist before v2, so its absence is itself the version marker.
func Probe(raw []byte) int {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 1
	}
	if head.Version < 1 {
		return 1
	}
	return head.Version
}

func DecodeV1(raw []byte) (SaveV1, error) {
	var doc SaveV1
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("save: decode v1: %w", err)
	}
	return doc, nil
}

func DecodeV2(raw []byte) (SaveV2, error) {
	var doc SaveV2
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("save: decode v2: %w", err)
	}
	return doc, nil
}

func DecodeV3(raw []byte) (SaveV3, error) {
	var doc SaveV3
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("save: decode v3: %w", err)
	}
	return doc, nil
}

func DecodeV4(raw []byte) (SaveV4, error) {
	var doc SaveV4
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("save: decode v4: %w", err)
	}
	return doc, nil
}

// Upgrade decodes a document of any known version and lifts it into the
// current shape, leaving fields the original version lacked at their
// zero values. Versions newer than CurrentVersion decode tolerantly as
// v4. The detected version is returned alongside the lifted document.
func Upgrade(raw []byte) (SaveV4, int, error) {
	ver := Probe(raw)
	switch ver {
	case 1:
		v1, err := DecodeV1(raw)
		if err != nil {
			return SaveV4{}, ver, err
		}
		return SaveV4{SaveV3: SaveV3{SaveV2: SaveV2{SaveV1: v1}}}, ver, nil
	case 2:
		v2, err := DecodeV2(raw)
		if err != nil {
			return SaveV4{}, ver, err
		}
		return SaveV4{SaveV3: SaveV3{SaveV2: v2}}, ver, nil
	case 3:
		v3, err := DecodeV3(raw)
		if err != nil {
			return SaveV4{}, ver, err
		}
		return SaveV4{SaveV3: v3}, ver, nil
	default:
		v4, err := DecodeV4(raw)
		if err != nil {
			return SaveV4{}, ver, err
		}
		return v4, ver, nil
	}
}
