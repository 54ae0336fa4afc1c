package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mingle/internal/core"
	"github.com/dkeye/Mingle/internal/domain"
)

const waitingMessage = "Looking for a match..."

// Orchestrator composes the registry and the matchmaker and implements the
// event semantics: matching, relaying, presence and teardown. Adapters call
// it; it never touches the transport beyond core.SignalConnection.
type Orchestrator struct {
	Registry *Registry
	Match    *Matchmaker
	Policy   Policy
}

// Connect registers a new live connection and pushes the presence count to
// everyone, the newcomer included.
func (o *Orchestrator) Connect(cid domain.ConnID, conn core.SignalConnection) {
	o.Registry.Add(cid, conn)
	o.broadcastUserCount()
}

// Disconnect handles transport-level loss of a connection: its waiting entry
// goes, its partner (if any) hears partner_disconnected once, only its own
// session mapping is removed, and the new presence count is broadcast.
func (o *Orchestrator) Disconnect(cid domain.ConnID) {
	o.Match.Dequeue(cid)
	if key, ok := o.Match.TeardownMember(cid); ok {
		o.notifyPartners(key, cid)
	}
	o.Registry.Remove(cid)
	o.broadcastUserCount()
}

// Leave handles a voluntary exit from a session. The connection stays alive
// and the queue is untouched; a matched connection is never queued. The
// partner keeps their now-dangling mapping until their own next disconnect,
// leave or match.
func (o *Orchestrator) Leave(cid domain.ConnID) {
	if key, ok := o.Match.TeardownMember(cid); ok {
		o.notifyPartners(key, cid)
	}
}

// FindPartner runs one matching pass and notifies the outcome. On a match
// the waiting side is told initiator=true and the requester initiator=false,
// so exactly one side starts the negotiation offer.
func (o *Orchestrator) FindPartner(cid domain.ConnID, mode domain.ChatMode) {
	out := o.Match.FindPartner(cid, mode, o.Registry.Alive)
	if !out.Matched {
		o.sendTo(cid, core.WaitingEvent{Type: core.EvWaiting, Message: waitingMessage})
		return
	}
	o.sendTo(out.Partner, core.MatchFoundEvent{Type: core.EvMatchFound, SessionKey: out.SessionKey, Initiator: true})
	o.sendTo(cid, core.MatchFoundEvent{Type: core.EvMatchFound, SessionKey: out.SessionKey, Initiator: false})
}

// RelaySignal forwards an opaque negotiation payload to the other member of
// the session. The sender's own recorded mapping must match the target key;
// anything else is dropped so a client cannot inject into a session it does
// not belong to.
func (o *Orchestrator) RelaySignal(cid domain.ConnID, key domain.SessionKey, signal json.RawMessage) {
	if !o.memberOf(cid, key) {
		return
	}
	ev := core.SignalEvent{Type: core.EvSignal, Signal: signal}
	for _, other := range o.Match.MembersOf(key, cid) {
		o.sendTo(other, ev)
	}
}

// RelayMessage forwards a chat line to the other member, stamped with the
// fixed anonymous sender label and a server-side time. Nothing is persisted.
func (o *Orchestrator) RelayMessage(cid domain.ConnID, key domain.SessionKey, text string) {
	if !o.memberOf(cid, key) {
		return
	}
	ev := core.MessageEvent{
		Type: core.EvMessage,
		Message: domain.ChatMessage{
			Sender: domain.SenderStranger,
			Text:   text,
			Type:   domain.MessageIncoming,
			Time:   time.Now().Format("15:04"),
		},
	}
	for _, other := range o.Match.MembersOf(key, cid) {
		o.sendTo(other, ev)
	}
}

// SendUserCount replies point-to-point with the current presence count.
func (o *Orchestrator) SendUserCount(cid domain.ConnID) {
	o.sendTo(cid, core.UserCountEvent{Type: core.EvUserCount, Count: o.Registry.Count()})
}

type Stats struct {
	Connections int `json:"connections"`
	Waiting     int `json:"waiting"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{Connections: o.Registry.Count(), Waiting: o.Match.QueueLen()}
}

func (o *Orchestrator) memberOf(cid domain.ConnID, key domain.SessionKey) bool {
	own, ok := o.Match.SessionOf(cid)
	if !ok || own != key {
		log.Warn().Str("module", "app.orchestrator").Str("cid", string(cid)).Str("session", string(key)).Msg("relay rejected, sender not in session")
		return false
	}
	return true
}

func (o *Orchestrator) notifyPartners(key domain.SessionKey, except domain.ConnID) {
	ev := core.PartnerDisconnectedEvent{Type: core.EvPartnerDisconnected}
	for _, other := range o.Match.MembersOf(key, except) {
		o.sendTo(other, ev)
	}
}

func (o *Orchestrator) broadcastUserCount() {
	frame, err := core.Encode(core.UserCountEvent{Type: core.EvUserCount, Count: o.Registry.Count()})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode user count")
		return
	}
	for _, snap := range o.Registry.Snapshot() {
		if err := snap.Conn.TrySend(frame); err == nil {
			continue
		}
		if o.Policy == nil {
			continue
		}
		switch o.Policy.OnBackPressure(snap.CID) {
		case KickMember:
			log.Warn().Str("module", "app.orchestrator").Str("cid", string(snap.CID)).Msg("kicking slow connection")
			o.Disconnect(snap.CID)
		case DropFrame, NoAction:
		}
	}
}

func (o *Orchestrator) sendTo(cid domain.ConnID, v any) {
	conn, ok := o.Registry.Get(cid)
	if !ok {
		return
	}
	frame, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("cid", string(cid)).Msg("encode event")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("cid", string(cid)).Msg("send failed, dropping frame")
	}
}
