package app_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Mingle/internal/app"
	"github.com/dkeye/Mingle/internal/core"
	"github.com/dkeye/Mingle/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var ev map[string]any
		if err := json.Unmarshal(fr, &ev); err != nil {
			t.Fatalf("bad frame %s: %v", fr, err)
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newOrchestrator() *app.Orchestrator {
	return &app.Orchestrator{
		Registry: app.NewRegistry(),
		Match:    app.NewMatchmaker(),
		Policy:   app.SimplePolicy{},
	}
}

func TestMatchScenario(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	o.Connect("a", a)
	o.Connect("b", b)

	o.FindPartner("a", domain.ModeText)
	waits := a.ofType(t, core.EvWaiting)
	if len(waits) != 1 {
		t.Fatalf("requester got %d waiting events, want 1", len(waits))
	}
	if waits[0]["message"] == "" {
		t.Error("waiting event has no message")
	}

	o.FindPartner("b", domain.ModeText)
	ma := a.ofType(t, core.EvMatchFound)
	mb := b.ofType(t, core.EvMatchFound)
	if len(ma) != 1 || len(mb) != 1 {
		t.Fatalf("match_found counts: a=%d b=%d, want 1 each", len(ma), len(mb))
	}
	if ma[0]["sessionKey"] != mb[0]["sessionKey"] {
		t.Errorf("session keys differ: %v vs %v", ma[0]["sessionKey"], mb[0]["sessionKey"])
	}
	// The side that was waiting initiates; exactly one initiator overall.
	if ma[0]["initiator"] != true {
		t.Error("waiting side did not get initiator=true")
	}
	if mb[0]["initiator"] != false {
		t.Error("requesting side got initiator=true as well")
	}
}

func TestPresenceBroadcastOnTransitions(t *testing.T) {
	o := newOrchestrator()
	a := &fakeConn{}
	o.Connect("a", a)

	counts := a.ofType(t, core.EvUserCount)
	if len(counts) != 1 || counts[0]["count"].(float64) != 1 {
		t.Fatalf("after first connect: %v", counts)
	}

	b := &fakeConn{}
	o.Connect("b", b)
	counts = a.ofType(t, core.EvUserCount)
	if len(counts) != 2 || counts[1]["count"].(float64) != 2 {
		t.Fatalf("after second connect: %v", counts)
	}

	o.Disconnect("b")
	counts = a.ofType(t, core.EvUserCount)
	if len(counts) != 3 || counts[2]["count"].(float64) != 1 {
		t.Fatalf("after disconnect: %v", counts)
	}

	// Point-to-point reply, not a broadcast.
	o.SendUserCount("a")
	if len(a.ofType(t, core.EvUserCount)) != 4 {
		t.Error("request_user_count did not reply to the requester")
	}
}

func TestQueuedDisconnectProducesNoRelayTraffic(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	o.Connect("a", a)
	o.Connect("b", b)

	o.FindPartner("a", domain.ModeText)
	o.Disconnect("a")

	if o.Match.InQueue("a") {
		t.Error("disconnected connection still queued")
	}
	for _, ev := range b.events(t) {
		if ev["type"] != core.EvUserCount {
			t.Errorf("bystander received %v", ev)
		}
	}
}

func TestDeadEntryScanScenario(t *testing.T) {
	o := newOrchestrator()
	a, c := &fakeConn{}, &fakeConn{}
	o.Connect("a", a)
	o.FindPartner("a", domain.ModeText)
	o.Disconnect("a")

	o.Connect("c", c)
	o.FindPartner("c", domain.ModeText)

	if len(c.ofType(t, core.EvMatchFound)) != 0 {
		t.Fatal("matched against a disconnected entry")
	}
	if len(c.ofType(t, core.EvWaiting)) != 1 {
		t.Error("searcher not told to wait")
	}
	if !o.Match.InQueue("c") || o.Match.QueueLen() != 1 {
		t.Error("queue should hold exactly the new searcher")
	}
}

func matchPair(t *testing.T, o *app.Orchestrator, a, b *fakeConn) domain.SessionKey {
	t.Helper()
	o.Connect("a", a)
	o.Connect("b", b)
	o.FindPartner("a", domain.ModeText)
	o.FindPartner("b", domain.ModeText)
	key, ok := o.Match.SessionOf("a")
	if !ok {
		t.Fatal("pair not matched")
	}
	return key
}

func TestMatchedDisconnectNotifiesPartnerOnce(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	matchPair(t, o, a, b)

	o.Disconnect("a")

	if got := len(b.ofType(t, core.EvPartnerDisconnected)); got != 1 {
		t.Fatalf("partner_disconnected delivered %d times, want 1", got)
	}
	if _, ok := o.Match.SessionOf("a"); ok {
		t.Error("disconnector's mapping survived")
	}
	if _, ok := o.Match.SessionOf("b"); !ok {
		t.Error("partner's own mapping removed, expected lazy cleanup")
	}
}

func TestLeaveKeepsConnectionAlive(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	matchPair(t, o, a, b)

	o.Leave("a")

	if got := len(b.ofType(t, core.EvPartnerDisconnected)); got != 1 {
		t.Fatalf("partner_disconnected delivered %d times, want 1", got)
	}
	if o.Registry.Count() != 2 {
		t.Error("leave tore down the transport")
	}
	if _, ok := o.Match.SessionOf("a"); ok {
		t.Error("leaver's mapping survived")
	}
}

func TestMessageStamping(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	key := matchPair(t, o, a, b)

	o.RelayMessage("a", key, "hi")

	msgs := b.ofType(t, core.EvMessage)
	if len(msgs) != 1 {
		t.Fatalf("partner got %d messages, want 1", len(msgs))
	}
	m := msgs[0]["message"].(map[string]any)
	if m["sender"] != "Stranger" {
		t.Errorf("sender = %v, want Stranger", m["sender"])
	}
	if m["text"] != "hi" {
		t.Errorf("text = %v", m["text"])
	}
	if m["type"] != "incoming" {
		t.Errorf("type = %v", m["type"])
	}
	if m["time"] == "" || m["time"] == nil {
		t.Error("time not stamped")
	}
	if len(a.ofType(t, core.EvMessage)) != 0 {
		t.Error("message echoed back to the sender")
	}
}

func TestSignalRelayedVerbatim(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	key := matchPair(t, o, a, b)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0..."}`)
	o.RelaySignal("a", key, payload)

	sigs := b.ofType(t, core.EvSignal)
	if len(sigs) != 1 {
		t.Fatalf("partner got %d signals, want 1", len(sigs))
	}
	inner, _ := json.Marshal(sigs[0]["signal"])
	var want, got map[string]any
	_ = json.Unmarshal(payload, &want)
	_ = json.Unmarshal(inner, &got)
	if got["type"] != want["type"] || got["sdp"] != want["sdp"] {
		t.Errorf("signal altered in transit: %s", inner)
	}
}

func TestRelayRejectsNonMembers(t *testing.T) {
	o := newOrchestrator()
	a, b := &fakeConn{}, &fakeConn{}
	key := matchPair(t, o, a, b)

	c := &fakeConn{}
	o.Connect("c", c)

	o.RelaySignal("c", key, json.RawMessage(`{"type":"candidate"}`))
	o.RelayMessage("c", key, "intruder")

	if len(b.ofType(t, core.EvSignal)) != 0 || len(b.ofType(t, core.EvMessage)) != 0 {
		t.Error("traffic forged into a foreign session was delivered")
	}

	// A member aiming at a key it does not hold is rejected too.
	o.RelayMessage("a", domain.MakeSessionKey("x", "y"), "wrong room")
	if len(b.ofType(t, core.EvMessage)) != 0 {
		t.Error("relay accepted a key the sender is not mapped to")
	}
}
