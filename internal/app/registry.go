package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Mingle/internal/core"
	"github.com/dkeye/Mingle/internal/domain"
)

// Registry tracks every live connection and its signal endpoint. It is the
// single source of truth for the presence count.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]core.SignalConnection)}
}

func (r *Registry) Add(cid domain.ConnID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = conn
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Int("count", len(r.conns)).Msg("connection added")
}

func (r *Registry) Remove(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Int("count", len(r.conns)).Msg("connection removed")
}

// Get returns the signal endpoint of a live connection.
func (r *Registry) Get(cid domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[cid]
	return conn, ok
}

// Alive reports whether the connection is still registered. The matchmaker
// uses it to elide dead queue entries.
func (r *Registry) Alive(cid domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[cid]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

type regSnap struct {
	CID  domain.ConnID
	Conn core.SignalConnection
}

// Snapshot returns the current endpoints for fan-out without holding the
// lock during sends.
func (r *Registry) Snapshot() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.conns))
	for cid, conn := range r.conns {
		out = append(out, regSnap{CID: cid, Conn: conn})
	}
	return out
}
