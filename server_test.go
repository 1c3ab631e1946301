package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const menuSnapshot = `{"matches": [
	{"id": 3, "game_url": "/pasur/3/", "players": ["alice", "bob"], "status": "ongoing", "last_action": "10:02"}
]}`

const gameSnapshot = `{
	"message": "bob played a card",
	"game_status": {
		"game_phase": "ongoing",
		"player_in_turn": "alice",
		"no_player_has_cards_on_hand": false,
		"cards_on_board": [{"id": 7, "rank": 7, "suit": 0}, {"id": 12, "rank": "K", "suit": 1}],
		"number_of_cards_in_deck": 40,
		"player": {"cards_in_hand": [{"id": 5, "rank": 3, "suit": 2}], "number_of_cards_in_pile": 0},
		"opponents": [{"name": "bob", "card_count_in_hand": 3, "card_count_in_pile": 0}],
		"last_played_card": null,
		"last_collected_cards": [],
		"player_points": {}
	}
}`

// pasurServer answers the lobby and game sockets with one fixed snapshot
// each and records every frame the client sends on a game socket.
type pasurServer struct {
	*httptest.Server

	intents chan map[string]any
}

func newPasurServer(t *testing.T) *pasurServer {
	t.Helper()

	ps := &pasurServer{intents: make(chan map[string]any, 16)}

	upgrader := websocket.Upgrader{}

	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		snapshot := gameSnapshot
		if strings.HasPrefix(r.URL.Path, "/ws/pasur_menu/") {
			snapshot = menuSnapshot
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(snapshot)); err != nil {
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var intent map[string]any
			if json.Unmarshal(data, &intent) == nil {
				ps.intents <- intent
			}
		}
	}))
	t.Cleanup(ps.Close)

	return ps
}

func testConfig(t *testing.T, server string) *Config {
	t.Helper()

	cfg := &Config{
		gamePath:       "/ws/pasur/",
		menuPath:       "/ws/pasur_menu/",
		player:         "alice",
		reconnectDelay: 50 * time.Millisecond,
		server:         server,
		session:        "s3cr3t",
		port:           8080,
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	return cfg
}

// waitFor blocks until cond holds for the screen's published view.
func waitFor[M viewModel[V], V any](t *testing.T, s *screen[M, V], cond func(V) bool) V {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		v := s.view()
		if cond(v) {
			return v
		}

		select {
		case <-s.updates():
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s, last view %+v", s.name, v)
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}
