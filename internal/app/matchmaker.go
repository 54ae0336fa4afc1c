package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mingle/internal/domain"
)

type waitingEntry struct {
	CID  domain.ConnID
	Mode domain.ChatMode
}

// MatchOutcome is the result of one FindPartner call. Either Matched is set
// with the chosen partner and the new session key, or the requester was
// queued.
type MatchOutcome struct {
	Matched    bool
	Partner    domain.ConnID
	SessionKey domain.SessionKey
}

// Matchmaker owns the waiting queue and the session membership map. Both
// live behind one mutex: a matching pass reads the queue and mutates
// membership and must never interleave with another connection's teardown.
// Nothing outside this type touches either structure.
type Matchmaker struct {
	mu      sync.Mutex
	queue   []waitingEntry
	members map[domain.ConnID]domain.SessionKey
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{members: make(map[domain.ConnID]domain.SessionKey)}
}

// FindPartner implements one matching pass for cid. Any stale queue entry of
// the requester is purged first so a connection never waits twice and never
// matches itself. The queue is then scanned from the head; entries whose
// connection is no longer alive are discarded on the way. The oldest live
// entry wins. No live entry means the requester is appended to the tail.
//
// A leftover session mapping of the requester (partner left earlier) is
// dropped on entry: a connection searching again is by definition done with
// its old session.
func (m *Matchmaker) FindPartner(cid domain.ConnID, mode domain.ChatMode, alive func(domain.ConnID) bool) MatchOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dequeueLocked(cid)
	delete(m.members, cid)

	for len(m.queue) > 0 {
		head := m.queue[0]
		m.queue = m.queue[1:]
		if !alive(head.CID) {
			log.Info().Str("module", "app.matchmaker").Str("cid", string(head.CID)).Msg("dead entry elided from queue")
			continue
		}
		key := domain.MakeSessionKey(cid, head.CID)
		m.members[cid] = key
		m.members[head.CID] = key
		log.Info().Str("module", "app.matchmaker").Str("cid", string(cid)).Str("partner", string(head.CID)).Str("session", string(key)).Msg("matched")
		return MatchOutcome{Matched: true, Partner: head.CID, SessionKey: key}
	}

	m.queue = append(m.queue, waitingEntry{CID: cid, Mode: mode})
	log.Info().Str("module", "app.matchmaker").Str("cid", string(cid)).Str("mode", string(mode)).Int("queue", len(m.queue)).Msg("queued")
	return MatchOutcome{}
}

// Dequeue removes the connection's waiting entry, if any. Called on
// disconnect; matching itself dedups on entry as well, so staleness only
// arises from the race between the two.
func (m *Matchmaker) Dequeue(cid domain.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dequeueLocked(cid)
}

func (m *Matchmaker) dequeueLocked(cid domain.ConnID) {
	for i, e := range m.queue {
		if e.CID == cid {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// SessionOf returns the session key the connection is currently mapped to.
func (m *Matchmaker) SessionOf(cid domain.ConnID) (domain.SessionKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.members[cid]
	return key, ok
}

// TeardownMember removes only cid's own mapping and reports the session it
// was in. The partner's mapping is left alone; notifying or cleaning up the
// partner is the caller's call.
func (m *Matchmaker) TeardownMember(cid domain.ConnID) (domain.SessionKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.members[cid]
	if !ok {
		return "", false
	}
	delete(m.members, cid)
	log.Info().Str("module", "app.matchmaker").Str("cid", string(cid)).Str("session", string(key)).Msg("membership removed")
	return key, true
}

// MembersOf lists the connections currently mapped to key, excluding cid.
// After a partner left, their mapping is gone and the result is empty.
func (m *Matchmaker) MembersOf(key domain.SessionKey, except domain.ConnID) []domain.ConnID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConnID
	for cid, k := range m.members {
		if k == key && cid != except {
			out = append(out, cid)
		}
	}
	return out
}

// InQueue reports whether cid currently has a waiting entry.
func (m *Matchmaker) InQueue(cid domain.ConnID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		if e.CID == cid {
			return true
		}
	}
	return false
}

func (m *Matchmaker) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
