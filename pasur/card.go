/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package pasur

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Color is the display color of a card, derived from its suit.
type Color string

const (
	Black Color = "black"
	Red   Color = "red"
)

var suitGlyphs = map[int]string{
	0: "♠",
	1: "♥",
	2: "♣",
	3: "♦",
}

var suitColors = map[int]Color{
	0: Black,
	1: Red,
	2: Black,
	3: Red,
}

// SuitGlyph returns the glyph for a server suit code, or "" for unknown codes.
func SuitGlyph(code int) string {
	return suitGlyphs[code]
}

// SuitColor returns the color for a server suit code, or "" for unknown codes.
func SuitColor(code int) Color {
	return suitColors[code]
}

// Rank is a card rank as displayed: "A", "2".."10", "J", "Q" or "K".
//
// The server sends face ranks as JSON strings and number ranks as JSON
// integers; both decode to the same string form.
type Rank string

func (r *Rank) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Rank(s)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = Rank(strconv.Itoa(n))
	return nil
}

// SuitCode is a server suit code. A missing, null or non-integer code
// decodes as invalid rather than failing the whole frame.
type SuitCode struct {
	Code  int
	Valid bool
}

// ValidSuit returns the SuitCode for code.
func ValidSuit(code int) SuitCode {
	return SuitCode{Code: code, Valid: true}
}

func (s *SuitCode) UnmarshalJSON(data []byte) error {
	*s = SuitCode{}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	*s = ValidSuit(n)
	return nil
}

// RawCard is a card record exactly as the server encodes it.
type RawCard struct {
	ID   int      `json:"id"`
	Rank Rank     `json:"rank"`
	Suit SuitCode `json:"suit"`
}

// Card is a normalized, render-ready card. Cards are never mutated after
// construction; every snapshot produces fresh values.
type Card struct {
	ID     int    `json:"id"`
	Rank   Rank   `json:"rank"`
	Suit   string `json:"suit"`
	Color  Color  `json:"color"`
	Hidden bool   `json:"hidden"`
}

// NormalizeCard maps a raw card to a Card. It returns nil for a nil raw card,
// which is how the server signals that no card has been played yet.
// Unknown or malformed suit codes produce an empty glyph and color.
func NormalizeCard(raw *RawCard) *Card {
	if raw == nil {
		return nil
	}

	c := &Card{
		ID:     raw.ID,
		Rank:   raw.Rank,
		Hidden: true,
	}
	if raw.Suit.Valid {
		c.Suit = SuitGlyph(raw.Suit.Code)
		c.Color = SuitColor(raw.Suit.Code)
	}
	return c
}

// NormalizeCards maps every raw card in list. A nil list yields an empty,
// non-nil slice; nil entries are skipped.
func NormalizeCards(list []*RawCard) []Card {
	cards := make([]Card, 0, len(list))
	for _, raw := range list {
		if c := NormalizeCard(raw); c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}
