package app

import "github.com/dkeye/Mingle/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a connection whose send buffer is full
// during a presence broadcast.
type Policy interface {
	OnBackPressure(cid domain.ConnID) BackpressureAction
}

// SimplePolicy drops the frame. A presence count is re-pushed on the next
// transition anyway, so a slow reader just misses one update.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(cid domain.ConnID) BackpressureAction {
	return DropFrame
}
