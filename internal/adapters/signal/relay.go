package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mingle/internal/domain"
)

// handleSignal passes a negotiation payload through. The inner signal field
// is kept as raw bytes; offers, answers and candidates all look the same
// from here.
func (ctl *SignalWSController) handleSignal(
	cid domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type signalPayload struct {
		Type       string          `json:"type"`
		SessionKey string          `json:"sessionKey"`
		Signal     json.RawMessage `json:"signal"`
	}
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	if p.SessionKey == "" || len(p.Signal) == 0 {
		return
	}
	ctl.Orch.RelaySignal(cid, domain.SessionKey(p.SessionKey), p.Signal)
}

func (ctl *SignalWSController) handleMessage(
	cid domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type messagePayload struct {
		Type       string `json:"type"`
		SessionKey string `json:"sessionKey"`
		Text       string `json:"text"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		return
	}
	if p.SessionKey == "" {
		return
	}
	ctl.Orch.RelayMessage(cid, domain.SessionKey(p.SessionKey), p.Text)
}
