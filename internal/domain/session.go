package domain

// SessionKey identifies a two-party pairing. The key is derived from the
// unordered pair of connection ids, so both members compute the same key.
type SessionKey string

// MakeSessionKey orders the pair before joining so that
// MakeSessionKey(a, b) == MakeSessionKey(b, a). With unique ids the result
// is collision-free.
func MakeSessionKey(a, b ConnID) SessionKey {
	if b < a {
		a, b = b, a
	}
	return SessionKey(string(a) + "_" + string(b))
}

// ChatMessage is the relayed chat payload as the receiving peer sees it.
// The relay anonymizes the sender and stamps the time server-side.
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Type   string `json:"type"`
	Time   string `json:"time"`
}

const (
	SenderStranger  = "Stranger"
	MessageIncoming = "incoming"
)
