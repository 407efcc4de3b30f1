package steamtrade

import "github.com/k64z/steamstacks/steamapi"

// EventType identifies the kind of trade transition an Event reports.
type EventType int

const (
	EventReceived EventType = iota + 1
	EventSent
	EventAccepted
	EventDeclined
	EventCanceled
	EventExpired
	EventCountered
)

func (t EventType) String() string {
	switch t {
	case EventReceived:
		return "trade_receive"
	case EventSent:
		return "trade_send"
	case EventAccepted:
		return "trade_accept"
	case EventDeclined:
		return "trade_decline"
	case EventCanceled:
		return "trade_cancel"
	case EventExpired:
		return "trade_expire"
	case EventCountered:
		return "trade_counter"
	default:
		return "unknown"
	}
}

// Event describes a single trade offer transition surfaced by a poll.
// Offer always holds the offer's current state. For EventCountered,
// PriorOffer holds the superseded offer the new one replaced.
type Event struct {
	Type       EventType
	Offer      steamapi.TradeOffer
	PriorOffer *steamapi.TradeOffer
}
