/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"github.com/Seednode/elva/pasur"
)

var (
	redCard   = color.New(color.FgRed, color.Bold)
	blackCard = color.New(color.FgHiWhite, color.Bold)
	heading   = color.New(color.FgCyan, color.Bold)
	warning   = color.New(color.FgYellow)
	inTurn    = color.New(color.FgGreen, color.Bold)
)

const (
	choiceRefresh = "Refresh"
	choiceBack    = "Back"
	choiceQuit    = "Quit"
)

func cardLabel(c pasur.Card) string {
	label := string(c.Rank) + c.Suit
	if c.Color == pasur.Red {
		return redCard.Sprint(label)
	}
	return blackCard.Sprint(label)
}

func cardList(cards []pasur.Card, selected []int) string {
	if len(cards) == 0 {
		return "-"
	}

	labels := make([]string, 0, len(cards))
	for _, c := range cards {
		label := cardLabel(c)
		for _, id := range selected {
			if id == c.ID {
				label = "[" + label + "]"
				break
			}
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, " ")
}

// playerList joins names the way the lobby shows them: "a, b and c".
func playerList(players []string) string {
	switch len(players) {
	case 0:
		return "nobody"
	case 1:
		return players[0]
	}
	return strings.Join(players[:len(players)-1], ", ") + " and " + players[len(players)-1]
}

func matchLabel(m pasur.Match) string {
	return fmt.Sprintf("%s with players %s (last action %s)", m.Status, playerList(m.Players), m.LastAction)
}

func drawMenu(w io.Writer, v pasur.MenuView) {
	heading.Fprintln(w, "\n=== PASUR MATCHES ===")
	if v.WarningMessage != "" {
		warning.Fprintln(w, v.WarningMessage)
	}
	if v.FirstMessageReceived && len(v.Matches) == 0 {
		fmt.Fprintln(w, "No matches yet.")
	}
}

func drawGame(w io.Writer, v pasur.GameView) {
	heading.Fprintf(w, "\n=== PASUR (%s) ===\n", v.GamePhase)
	if v.WarningMessage != "" {
		warning.Fprintln(w, v.WarningMessage)
	}

	for i, o := range v.Opponents {
		name := o.Name
		if o.Name == v.PlayerInTurn && v.GamePhase == pasur.PhaseOngoing {
			name = inTurn.Sprint(name + " *")
		}
		fmt.Fprintf(w, "%-15s %s: %d in hand, %d collected\n", v.OpponentClasses[i], name, o.CardCountInHand, o.CardCountInPile)
	}

	fmt.Fprintf(w, "Deck:  %d cards\n", v.NumberOfCardsInDeck)
	fmt.Fprintf(w, "Board: %s\n", cardList(v.CardsOnBoard, v.SelectedCards))
	if v.LastPlayedCard != nil {
		fmt.Fprintf(w, "Last:  %s took %s\n", cardLabel(*v.LastPlayedCard), cardList(v.LastCollectedCards, nil))
	}

	you := "You"
	if v.InTurn {
		you = inTurn.Sprint("You *")
	}
	fmt.Fprintf(w, "%s: %s (%d collected)\n", you, cardList(v.CardsInHand, nil), v.NumberOfCardsInPile)

	for name, p := range v.PlayerPoints {
		fmt.Fprintf(w, "Points %s: %d this game, %d total\n", name, p.CurrentGame, p.Total)
	}
	if v.LastMessage != "" {
		fmt.Fprintln(w, v.LastMessage)
	}
}

type gameChoice struct {
	label string
	apply func(*pasur.GameViewModel) error
}

// gameChoices lists what the player can do given v. Only legal intents are
// offered; the server remains the judge of whether they succeed.
func gameChoices(v pasur.GameView) []gameChoice {
	var choices []gameChoice

	if v.DealCardsActionActive {
		choices = append(choices, gameChoice{"Deal cards", (*pasur.GameViewModel).DealCards})
	}
	if v.CountPointsActionActive {
		choices = append(choices, gameChoice{"Count points", (*pasur.GameViewModel).CountPoints})
	}
	if v.NextGameActionActive {
		choices = append(choices, gameChoice{"Next game", (*pasur.GameViewModel).NextGame})
	}

	if v.InTurn {
		for _, c := range v.CardsInHand {
			c := c
			choices = append(choices, gameChoice{"Play " + cardLabel(c), func(g *pasur.GameViewModel) error {
				return g.PlayCard(c.ID)
			}})
		}
		for _, c := range v.CardsOnBoard {
			c := c
			verb := "Select "
			for _, id := range v.SelectedCards {
				if id == c.ID {
					verb = "Unselect "
					break
				}
			}
			choices = append(choices, gameChoice{verb + cardLabel(c), func(g *pasur.GameViewModel) error {
				g.ToggleSelection(c.ID)
				return nil
			}})
		}
	}

	return choices
}

// chosenMatchURL resolves a prompt index against the list the prompt showed.
func chosenMatchURL(v pasur.MenuView, index int) (string, error) {
	if index < 0 || index >= len(v.Matches) {
		return "", fmt.Errorf("match %d is gone", index)
	}
	return v.Matches[index].GameURL, nil
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}

func runMenu(ctx context.Context, cfg *Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var target string
	menu := newMenuScreen(cfg, pasur.NavigatorFunc(func(url string) error {
		target = url
		return nil
	}))
	go menu.run(ctx, cfg)

	for {
		v := menu.view()
		for !v.FirstMessageReceived {
			drawMenu(os.Stdout, v)
			select {
			case <-ctx.Done():
				return nil
			case <-menu.updates():
			}
			v = menu.view()
		}

		drawMenu(os.Stdout, v)

		items := make([]string, 0, len(v.Matches)+2)
		for _, m := range v.Matches {
			items = append(items, matchLabel(m))
		}
		items = append(items, choiceRefresh, choiceQuit)

		prompt := promptui.Select{
			Label: "Choose a match",
			Items: items,
			Size:  12,
		}

		index, choice, err := prompt.Run()
		if isPromptExit(err) {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case choice == choiceQuit:
			return nil
		case choice == choiceRefresh:
			continue
		}

		gameURL, err := chosenMatchURL(v, index)
		if err != nil {
			warning.Println(err)
			continue
		}

		err = menu.do(ctx, func(m *pasur.MenuViewModel) error {
			return m.SetLocation(gameURL)
		})
		if err != nil {
			warning.Println(err)
			continue
		}

		id, err := matchIDFromURL(target)
		if err != nil {
			warning.Println(err)
			continue
		}

		logf(cfg, "MENU: Joining match %s", id)

		if err := runGame(ctx, cfg, id); err != nil {
			return err
		}
	}
}

// runGame plays one match until the user backs out. It returns nil when the
// user leaves.
func runGame(ctx context.Context, cfg *Config, match string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	game := newGameScreen(cfg, match)
	go game.run(ctx, cfg)

	for {
		v := game.view()
		drawGame(os.Stdout, v)

		choices := gameChoices(v)
		items := make([]string, 0, len(choices)+2)
		for _, c := range choices {
			items = append(items, c.label)
		}
		items = append(items, choiceRefresh, choiceBack)

		prompt := promptui.Select{
			Label: "Your move",
			Items: items,
			Size:  16,
		}

		index, choice, err := prompt.Run()
		if isPromptExit(err) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case choiceBack:
			return nil
		case choiceRefresh:
			continue
		}

		if err := game.do(ctx, choices[index].apply); err != nil {
			warning.Println(err)
		}
	}
}
