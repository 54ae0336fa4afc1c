package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mingle/internal/domain"
)

func (ctl *SignalWSController) handleFindPartner(
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	type findPayload struct {
		Type string `json:"type"`
		Mode string `json:"mode"`
	}
	var p findPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad find_partner payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}
	mode, err := domain.ParseMode(p.Mode)
	if err != nil {
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "unknown mode",
		})
		return
	}

	if !ctl.limiter.Allow(cid) {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("find_partner rate limited")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "rate_limited",
		})
		return
	}

	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("mode", string(mode)).Msg("find_partner")
	ctl.Orch.FindPartner(cid, mode)
}

// handleLeave — voluntary exit from the current session; the connection
// itself stays up.
func (ctl *SignalWSController) handleLeave(cid domain.ConnID) {
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("leave_chat")
	ctl.Orch.Leave(cid)
}
