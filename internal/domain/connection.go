// Package domain contains entity without logic, just meta-data
package domain

import "errors"

var ErrUnknownMode = errors.New("unknown chat mode")

// ConnID identifies one live transport session. It carries no persisted
// identity; a reconnecting user gets a fresh one.
type ConnID string

// ChatMode is what the user asked to be matched for. It is recorded on the
// waiting entry but does not filter candidates.
type ChatMode string

const (
	ModeText  ChatMode = "text"
	ModeVideo ChatMode = "video"
)

func ParseMode(raw string) (ChatMode, error) {
	switch ChatMode(raw) {
	case ModeText, ModeVideo:
		return ChatMode(raw), nil
	}
	return "", ErrUnknownMode
}
