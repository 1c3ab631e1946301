package pasur

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Navigator moves the host to another screen.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}

// MenuViewModel holds the lobby list. Like GameViewModel it is owned by a
// single goroutine.
type MenuViewModel struct {
	transport Transport
	navigator Navigator

	matches              []Match
	firstMessageReceived bool
	isConnected          bool
	warningMessage       string
}

// NewMenuViewModel returns an empty lobby. t is only consulted for the
// connection state; nav receives SetLocation requests.
func NewMenuViewModel(t Transport, nav Navigator) *MenuViewModel {
	m := &MenuViewModel{
		transport: t,
		navigator: nav,
		matches:   []Match{},
	}
	m.UpdateStatus()
	return m
}

// Handle applies one transport event.
func (m *MenuViewModel) Handle(e Event) error {
	var err error
	if ev, ok := e.(SnapshotReceived); ok {
		err = m.Apply(ev.Payload)
	}

	m.UpdateStatus()

	return err
}

// Apply replaces the match list with the one in payload.
func (m *MenuViewModel) Apply(payload []byte) error {
	var msg MenuMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode menu message: %w", err)
	}

	m.matches = []Match{}
	for _, match := range msg.Matches {
		match.Players = slices.Clone(match.Players)
		m.matches = append(m.matches, match)
	}
	m.firstMessageReceived = true

	return nil
}

// UpdateStatus refreshes the connection flag and banner.
func (m *MenuViewModel) UpdateStatus() {
	m.isConnected = m.transport != nil && m.transport.Connected()

	switch {
	case !m.firstMessageReceived:
		m.warningMessage = WarningLoading
	case !m.isConnected:
		m.warningMessage = WarningReconnecting
	default:
		m.warningMessage = ""
	}
}

// Match returns the match at index.
func (m *MenuViewModel) Match(index int) (Match, bool) {
	if index < 0 || index >= len(m.matches) {
		return Match{}, false
	}
	return m.matches[index], true
}

// SetLocation asks the host to navigate to url.
func (m *MenuViewModel) SetLocation(url string) error {
	if m.navigator == nil {
		return fmt.Errorf("navigate to %q: no navigator", url)
	}
	return m.navigator.Navigate(url)
}

// MenuView is a render-ready copy of a MenuViewModel.
type MenuView struct {
	Matches              []Match `json:"matches"`
	FirstMessageReceived bool    `json:"first_message_received"`
	IsConnected          bool    `json:"is_connected"`
	WarningMessage       string  `json:"warning_message"`
}

// View snapshots the lobby.
func (m *MenuViewModel) View() MenuView {
	matches := make([]Match, len(m.matches))
	for i, match := range m.matches {
		match.Players = slices.Clone(match.Players)
		matches[i] = match
	}

	return MenuView{
		Matches:              matches,
		FirstMessageReceived: m.firstMessageReceived,
		IsConnected:          m.isConnected,
		WarningMessage:       m.warningMessage,
	}
}
