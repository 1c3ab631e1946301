package pasur

import (
	"bytes"
	"encoding/json"
)

// Phase is the lifecycle stage of a single game.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseOngoing   Phase = "ongoing"
	PhaseFinished  Phase = "finished"
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether no further phase transition can follow.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseCancelled
}

// Opponent is another seated player, as seen by this client.
type Opponent struct {
	Name            string `json:"name"`
	CardCountInHand int    `json:"card_count_in_hand"`
	CardCountInPile int    `json:"card_count_in_pile"`
}

// Points holds a player's score for the match and for the current game.
type Points struct {
	Total       int `json:"total"`
	CurrentGame int `json:"current_game"`
}

// UnmarshalJSON accepts both the object form and a bare integer, which is
// taken as the total.
func (p *Points) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var total *int
		if err := json.Unmarshal(data, &total); err != nil {
			return err
		}
		*p = Points{}
		if total != nil {
			p.Total = *total
		}
		return nil
	}

	type plain Points
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Points(v)
	return nil
}

// RawPlayer is the receiving player's private view. It is an empty object
// when the receiver is a spectator.
type RawPlayer struct {
	CardsInHand         []*RawCard `json:"cards_in_hand"`
	NumberOfCardsInPile int        `json:"number_of_cards_in_pile"`
}

// GameStatus is the snapshot the server pushes after every game event.
type GameStatus struct {
	GamePhase              Phase             `json:"game_phase"`
	PlayerInTurn           string            `json:"player_in_turn"`
	NoPlayerHasCardsOnHand bool              `json:"no_player_has_cards_on_hand"`
	CardsOnBoard           []*RawCard        `json:"cards_on_board"`
	NumberOfCardsInDeck    int               `json:"number_of_cards_in_deck"`
	Player                 *RawPlayer        `json:"player"`
	Opponents              []Opponent        `json:"opponents"`
	LastPlayedCard         *RawCard          `json:"last_played_card"`
	LastCollectedCards     []*RawCard        `json:"last_collected_cards"`
	PlayerPoints           map[string]Points `json:"player_points"`
}

// GameMessage is an inbound frame on a game socket. Error replies carry only
// a message.
type GameMessage struct {
	Message    string      `json:"message"`
	GameStatus *GameStatus `json:"game_status,omitempty"`
}

// Match is one entry of the lobby list.
type Match struct {
	ID         int      `json:"id"`
	Status     string   `json:"status"`
	Players    []string `json:"players"`
	LastAction string   `json:"last_action"`
	GameURL    string   `json:"game_url"`
}

// MenuMessage is an inbound frame on the lobby socket.
type MenuMessage struct {
	Matches []Match `json:"matches"`
}
