package signal

import (
	"github.com/dkeye/Mingle/internal/domain"
)

func (ctl *SignalWSController) handleUserCount(cid domain.ConnID) {
	ctl.Orch.SendUserCount(cid)
}

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
