package core

import (
	"encoding/json"

	"github.com/dkeye/Mingle/internal/domain"
)

// Event names on the core->client side of the protocol.
const (
	EvUserCount           = "user_count"
	EvWaiting             = "waiting"
	EvMatchFound          = "match_found"
	EvSignal              = "signal"
	EvMessage             = "message"
	EvPartnerDisconnected = "partner_disconnected"
)

type UserCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type WaitingEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type MatchFoundEvent struct {
	Type       string            `json:"type"`
	SessionKey domain.SessionKey `json:"sessionKey"`
	Initiator  bool              `json:"initiator"`
}

// SignalEvent wraps an opaque negotiation payload. The inner bytes are
// forwarded exactly as received; the core never looks inside.
type SignalEvent struct {
	Type   string          `json:"type"`
	Signal json.RawMessage `json:"signal"`
}

type MessageEvent struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

type PartnerDisconnectedEvent struct {
	Type string `json:"type"`
}

// Encode marshals an event into a Frame ready for TrySend.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
