package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrProtoBadRole    = "E_PROTO_BAD_ROLE"
	ErrUnknownType     = "E_UNKNOWN_TYPE"

	// Planet routing/state.
	ErrPlanetBusy       = "E_PLANET_BUSY"
	ErrPlanetGone       = "E_PLANET_GONE"
	ErrExplorerConflict = "E_EXPLORER_CONFLICT"
	ErrExplorerUnknown  = "E_EXPLORER_UNKNOWN"

	// Request layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoVersion:     {},
	ErrProtoBadRole:     {},
	ErrUnknownType:      {},
	ErrPlanetBusy:       {},
	ErrPlanetGone:       {},
	ErrExplorerConflict: {},
	ErrExplorerUnknown:  {},
	ErrBadRequest:       {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
