/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package pasur

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Banner texts shown above the board.
const (
	WarningLoading      = "Loading…"
	WarningInvite       = "Waiting for opponents. Share the game link to invite players."
	WarningReconnecting = "Connection lost. Reconnecting…"
)

// CSS-style classes consumed by renderers.
const (
	ClassSelectedCard  = "selected_card"
	ClassInTurn        = "in_turn"
	ClassOpponentLeft  = "opponent_left"
	ClassOpponentTop   = "opponent_top"
	ClassOpponentRight = "opponent_right"
)

// Lines kept in the message log.
const messageLogSize = 100

// GameViewModel holds everything one game screen shows. It only changes in
// response to Handle, Apply, ToggleSelection and the status hooks; intents
// never modify it locally.
//
// A GameViewModel is not safe for concurrent use. The screen that owns it
// must funnel every event through a single goroutine.
type GameViewModel struct {
	player    string
	transport Transport

	mounted              bool
	firstMessageReceived bool
	isConnected          bool
	warningMessage       string

	gamePhase              Phase
	cardsOnBoard           []Card
	cardsInHand            []Card
	numberOfCardsInPile    int
	numberOfCardsInDeck    int
	noPlayerHasCardsOnHand bool
	opponents              []Opponent
	playerInTurn           string
	lastPlayedCard         *Card
	lastCollectedCards     []Card
	playerPoints           map[string]Points

	selected []int

	lastMessage string
	messages    []string
}

// NewGameViewModel returns an empty game screen for player, sending intents
// through t.
func NewGameViewModel(player string, t Transport) *GameViewModel {
	return &GameViewModel{
		player:                 player,
		transport:              t,
		cardsOnBoard:           []Card{},
		cardsInHand:            []Card{},
		noPlayerHasCardsOnHand: true,
		opponents:              []Opponent{},
		lastCollectedCards:     []Card{},
		playerPoints:           map[string]Points{},
		selected:               []int{},
	}
}

// Player returns the identifier of the local player.
func (g *GameViewModel) Player() string {
	return g.player
}

// Handle applies one transport event.
func (g *GameViewModel) Handle(e Event) error {
	var err error

	switch ev := e.(type) {
	case Opened, Closed:
	case SnapshotReceived:
		err = g.Apply(ev.Payload)
	}

	g.UpdateStatus()

	return err
}

// Apply decodes one inbound game frame. A frame carrying a game status
// replaces every projected field; the selection is then pruned to the new
// board. Undecodable frames leave the state untouched.
func (g *GameViewModel) Apply(payload []byte) error {
	var msg GameMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode game message: %w", err)
	}

	g.appendMessage(msg.Message)

	if msg.GameStatus != nil {
		g.replace(msg.GameStatus)
	}

	g.firstMessageReceived = true

	return nil
}

func (g *GameViewModel) replace(s *GameStatus) {
	g.gamePhase = s.GamePhase
	g.cardsOnBoard = NormalizeCards(s.CardsOnBoard)
	g.numberOfCardsInDeck = s.NumberOfCardsInDeck
	g.noPlayerHasCardsOnHand = s.NoPlayerHasCardsOnHand
	g.playerInTurn = s.PlayerInTurn
	g.lastPlayedCard = NormalizeCard(s.LastPlayedCard)
	g.lastCollectedCards = NormalizeCards(s.LastCollectedCards)

	g.cardsInHand = []Card{}
	g.numberOfCardsInPile = 0
	if s.Player != nil {
		g.cardsInHand = NormalizeCards(s.Player.CardsInHand)
		g.numberOfCardsInPile = s.Player.NumberOfCardsInPile
	}

	g.opponents = []Opponent{}
	if s.Opponents != nil {
		g.opponents = slices.Clone(s.Opponents)
	}

	g.playerPoints = make(map[string]Points, len(s.PlayerPoints))
	for k, v := range s.PlayerPoints {
		g.playerPoints[k] = v
	}

	g.PruneSelection()
}

func (g *GameViewModel) appendMessage(m string) {
	g.lastMessage = m
	if m == "" {
		return
	}

	g.messages = append(g.messages, m)
	if over := len(g.messages) - messageLogSize; over > 0 {
		g.messages = slices.Delete(g.messages, 0, over)
	}
}

// Mount marks the screen as shown. Until then the status banner reads
// WarningLoading.
func (g *GameViewModel) Mount() {
	g.mounted = true
	g.UpdateStatus()
}

// UpdateStatus refreshes the connection flag from the transport and derives
// the banner. It runs after mount and after every socket open or close.
func (g *GameViewModel) UpdateStatus() {
	g.isConnected = g.transport != nil && g.transport.Connected()

	switch {
	case !g.mounted:
		g.warningMessage = WarningLoading
	case len(g.opponents) == 0:
		g.warningMessage = WarningInvite
	case !g.isConnected:
		g.warningMessage = WarningReconnecting
	default:
		g.warningMessage = ""
	}
}

// IsInTurn reports whether identifier may act right now.
func (g *GameViewModel) IsInTurn(identifier string) bool {
	return identifier == g.playerInTurn && g.gamePhase == PhaseOngoing
}

// InTurnClass returns ClassInTurn when identifier is in turn.
func (g *GameViewModel) InTurnClass(identifier string) string {
	if g.IsInTurn(identifier) {
		return ClassInTurn
	}
	return ""
}

// DealCardsActionActive reports whether a new round of cards can be dealt.
func (g *GameViewModel) DealCardsActionActive() bool {
	return g.noPlayerHasCardsOnHand &&
		g.numberOfCardsInDeck > 0 &&
		(g.gamePhase == PhasePending || g.gamePhase == PhaseOngoing) &&
		len(g.opponents) >= 1
}

// CountPointsActionActive reports whether the finished deck can be scored.
func (g *GameViewModel) CountPointsActionActive() bool {
	return g.noPlayerHasCardsOnHand &&
		g.numberOfCardsInDeck == 0 &&
		len(g.playerPoints) == 0
}

// NextGameActionActive reports whether a new game can be started.
func (g *GameViewModel) NextGameActionActive() bool {
	return g.gamePhase.Terminal()
}

// ToggleSelection adds cardID to the collection selection, or removes it if
// already selected.
func (g *GameViewModel) ToggleSelection(cardID int) {
	if i := slices.Index(g.selected, cardID); i >= 0 {
		g.selected = slices.Delete(g.selected, i, i+1)
		return
	}
	g.selected = append(g.selected, cardID)
}

// SelectedClass returns ClassSelectedCard for selected cards.
func (g *GameViewModel) SelectedClass(cardID int) string {
	if slices.Contains(g.selected, cardID) {
		return ClassSelectedCard
	}
	return ""
}

// OpponentClass maps an opponent index to its seat around the board.
func (g *GameViewModel) OpponentClass(index int) string {
	if len(g.opponents) == 1 {
		return ClassOpponentTop
	}

	seats := []string{ClassOpponentLeft, ClassOpponentTop, ClassOpponentRight}
	if index < 0 || index >= len(seats) {
		return ""
	}
	return seats[index]
}

// SelectedCards returns the raw selection in the order it was made.
func (g *GameViewModel) SelectedCards() []int {
	return slices.Clone(g.selected)
}

// CollectedCards returns the selected ids that are on the board, in board
// order. It does not modify the selection.
func (g *GameViewModel) CollectedCards() []int {
	collected := make([]int, 0, len(g.selected))
	for _, c := range g.cardsOnBoard {
		if slices.Contains(g.selected, c.ID) {
			collected = append(collected, c.ID)
		}
	}
	return collected
}

// PruneSelection drops selected ids that are no longer on the board.
func (g *GameViewModel) PruneSelection() {
	g.selected = g.CollectedCards()
}

// CollectedCardsAndPrune narrows the selection to the board and returns it.
func (g *GameViewModel) CollectedCardsAndPrune() []int {
	g.PruneSelection()
	return g.SelectedCards()
}

// DealCards asks the server to deal a new round.
func (g *GameViewModel) DealCards() error {
	if !g.DealCardsActionActive() {
		return fmt.Errorf("deal cards: %w", ErrActionInactive)
	}
	return g.send(Intent{
		Message:      "Player requested deal cards",
		PlayerAction: ActionDealCards,
	})
}

// CountPoints asks the server to score the game.
func (g *GameViewModel) CountPoints() error {
	if !g.CountPointsActionActive() {
		return fmt.Errorf("count points: %w", ErrActionInactive)
	}
	return g.send(Intent{
		Message:      "Player requested count points",
		PlayerAction: ActionCountPoints,
	})
}

// NextGame asks the server to start the next game of the match.
func (g *GameViewModel) NextGame() error {
	if !g.NextGameActionActive() {
		return fmt.Errorf("next game: %w", ErrActionInactive)
	}
	return g.send(Intent{
		Message:      "Player requested go to next game",
		PlayerAction: ActionNextGame,
	})
}

// PlayCard plays cardID from the hand, collecting the currently selected
// board cards.
func (g *GameViewModel) PlayCard(cardID int) error {
	return g.send(Intent{
		Message:      "Player played a card",
		PlayerAction: ActionPlayCard,
		PlayedCard:   &cardID,
		CollectCards: g.CollectedCards(),
	})
}

func (g *GameViewModel) send(i Intent) error {
	if g.transport == nil {
		return fmt.Errorf("%s: no transport", i.PlayerAction)
	}
	if err := g.transport.Send(i); err != nil {
		return fmt.Errorf("%s: %w", i.PlayerAction, err)
	}
	return nil
}

// GameView is a render-ready copy of a GameViewModel. It shares no memory
// with the model it was taken from.
type GameView struct {
	Player                 string            `json:"player"`
	GamePhase              Phase             `json:"game_phase"`
	CardsOnBoard           []Card            `json:"cards_on_board"`
	CardsInHand            []Card            `json:"cards_in_hand"`
	NumberOfCardsInPile    int               `json:"number_of_cards_in_pile"`
	NumberOfCardsInDeck    int               `json:"number_of_cards_in_deck"`
	NoPlayerHasCardsOnHand bool              `json:"no_player_has_cards_on_hand"`
	Opponents              []Opponent        `json:"opponents"`
	PlayerInTurn           string            `json:"player_in_turn"`
	LastPlayedCard         *Card             `json:"last_played_card"`
	LastCollectedCards     []Card            `json:"last_collected_cards"`
	PlayerPoints           map[string]Points `json:"player_points"`
	SelectedCards          []int             `json:"selected_cards"`

	IsConnected          bool     `json:"is_connected"`
	WarningMessage       string   `json:"warning_message"`
	FirstMessageReceived bool     `json:"first_message_received"`
	LastMessage          string   `json:"last_message"`
	Messages             []string `json:"messages"`

	InTurn                  bool     `json:"in_turn"`
	DealCardsActionActive   bool     `json:"deal_cards_action_active"`
	CountPointsActionActive bool     `json:"count_points_action_active"`
	NextGameActionActive    bool     `json:"next_game_action_active"`
	OpponentClasses         []string `json:"opponent_classes"`
}

// View snapshots the current state together with every derived flag.
func (g *GameViewModel) View() GameView {
	v := GameView{
		Player:                 g.player,
		GamePhase:              g.gamePhase,
		CardsOnBoard:           slices.Clone(g.cardsOnBoard),
		CardsInHand:            slices.Clone(g.cardsInHand),
		NumberOfCardsInPile:    g.numberOfCardsInPile,
		NumberOfCardsInDeck:    g.numberOfCardsInDeck,
		NoPlayerHasCardsOnHand: g.noPlayerHasCardsOnHand,
		Opponents:              slices.Clone(g.opponents),
		PlayerInTurn:           g.playerInTurn,
		LastCollectedCards:     slices.Clone(g.lastCollectedCards),
		PlayerPoints:           make(map[string]Points, len(g.playerPoints)),
		SelectedCards:          g.SelectedCards(),

		IsConnected:          g.isConnected,
		WarningMessage:       g.warningMessage,
		FirstMessageReceived: g.firstMessageReceived,
		LastMessage:          g.lastMessage,
		Messages:             slices.Clone(g.messages),

		InTurn:                  g.IsInTurn(g.player),
		DealCardsActionActive:   g.DealCardsActionActive(),
		CountPointsActionActive: g.CountPointsActionActive(),
		NextGameActionActive:    g.NextGameActionActive(),
		OpponentClasses:         make([]string, len(g.opponents)),
	}

	if g.lastPlayedCard != nil {
		c := *g.lastPlayedCard
		v.LastPlayedCard = &c
	}
	for k, p := range g.playerPoints {
		v.PlayerPoints[k] = p
	}
	for i := range g.opponents {
		v.OpponentClasses[i] = g.OpponentClass(i)
	}
	if v.Messages == nil {
		v.Messages = []string{}
	}

	return v
}
