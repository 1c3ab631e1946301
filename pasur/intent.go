package pasur

import (
	"encoding/json"
	"errors"
)

// PlayerAction names an action a player can request from the server.
type PlayerAction string

const (
	ActionDealCards   PlayerAction = "deal_cards"
	ActionCountPoints PlayerAction = "count_points"
	ActionNextGame    PlayerAction = "next_game"
	ActionPlayCard    PlayerAction = "play_card"
)

// ErrActionInactive is returned when an intent is requested while the
// matching action is not currently legal.
var ErrActionInactive = errors.New("action is not active")

// Intent is an outbound request. The server never acknowledges it directly;
// its effect shows up in a later snapshot.
type Intent struct {
	Message      string       `json:"message"`
	PlayerAction PlayerAction `json:"player_action"`
	PlayedCard   *int         `json:"played_card,omitempty"`
	CollectCards []int        `json:"collect_cards,omitempty"`
}

// MarshalJSON always emits collect_cards for play_card intents, even when
// nothing is collected; the server requires the key.
func (i Intent) MarshalJSON() ([]byte, error) {
	type plain Intent
	if i.PlayerAction != ActionPlayCard {
		return json.Marshal(plain(i))
	}

	collect := i.CollectCards
	if collect == nil {
		collect = []int{}
	}
	return json.Marshal(struct {
		plain
		CollectCards []int `json:"collect_cards"`
	}{plain(i), collect})
}

// Transport is the connection a view model sends intents through.
type Transport interface {
	Send(v any) error
	Connected() bool
}

// Event is something the transport reports to a screen.
type Event interface {
	event()
}

// Opened is emitted after the socket connects.
type Opened struct{}

// Closed is emitted after the socket drops.
type Closed struct {
	Err error
}

// SnapshotReceived carries one raw inbound frame.
type SnapshotReceived struct {
	Payload []byte
}

func (Opened) event()           {}
func (Closed) event()           {}
func (SnapshotReceived) event() {}
