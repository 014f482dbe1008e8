package board

import "github.com/nhle/leadboard/internal/model"

// EventType identifies what changed on the board.
type EventType int

const (
	// EventChanged follows any local change to the board state.
	EventChanged EventType = iota
	// EventNotice carries a non-fatal message for the status bar.
	EventNotice
	// EventResynced follows a full reload from the store.
	EventResynced
)

func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventNotice:
		return "notice"
	case EventResynced:
		return "resynced"
	default:
		return "unknown"
	}
}

// Event is published on the controller's subscription channel.
type Event struct {
	Type    EventType
	Kind    model.EntityKind
	ID      string
	Message string
	Err     error
	Epoch   uint64
}

// eventBuffer bounds the subscription channel. Events past the buffer are
// dropped; the board can always be re-read from State.
const eventBuffer = 64
