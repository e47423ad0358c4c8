package notifyproto

const (
	// Request/transport validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Action executor.
	ErrUnknownAction  = "E_UNKNOWN_ACTION"
	ErrActionDisabled = "E_ACTION_DISABLED"
	ErrNotOwned       = "E_NOT_OWNED"
	ErrCooldown       = "E_COOLDOWN"
	ErrNoResource     = "E_NO_RESOURCE"

	// Registry.
	ErrPendingEmpty = "E_PENDING_EMPTY"

	// Persistence gateway.
	ErrSlotInvalid   = "E_SLOT_INVALID"
	ErrNoPendingLoad = "E_NO_PENDING_LOAD"
	ErrSceneNotReady = "E_SCENE_NOT_READY"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:     {},
	ErrUnknownAction:  {},
	ErrActionDisabled: {},
	ErrNotOwned:       {},
	ErrCooldown:       {},
	ErrNoResource:     {},
	ErrPendingEmpty:   {},
	ErrSlotInvalid:    {},
	ErrNoPendingLoad:  {},
	ErrSceneNotReady:  {},
	ErrInternal:       {},
}

// IsKnownCode reports whether code is part of the protocol vocabulary.
// The empty code (success) counts as known.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
