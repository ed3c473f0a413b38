/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"hash/fnv"
	"strings"

	"github.com/Seednode/partydeck/games/cards"
	"github.com/Seednode/partydeck/games/draw"
	"github.com/Seednode/partydeck/games/source"
)

const (
	modeMenu    = "menu"
	modeClassic = "classic"
	modeTod     = "tod"
	modeFortune = "fortune"
)

// Card colours and background patterns, picked per card from its ID.
var (
	cardColors = []string{
		"#e63946", "#f4a261", "#e9c46a", "#2a9d8f", "#264653",
		"#8338ec", "#3a86ff", "#ff006e", "#fb5607", "#06d6a0",
		"#118ab2", "#073b4c", "#ef476f", "#7209b7", "#4361ee",
		"#2b9348", "#bc6c25",
	}
	cardPatterns = []string{"dots", "stripes", "grid", "waves"}
)

// ClientMessage is anything a browser may send.
type ClientMessage struct {
	Type  string `json:"type"`
	Mode  string `json:"mode,omitempty"`
	Theme string `json:"theme,omitempty"`
	Text  string `json:"text,omitempty"`
	URL   string `json:"url,omitempty"`
}

// SessionInfoMessage is sent to a client right after it connects.
type SessionInfoMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	IsHost bool   `json:"is_host"`
}

type ThemeListMessage struct {
	Type   string             `json:"type"`
	Themes []cards.ThemeCount `json:"themes"`
	Origin source.Origin      `json:"origin"`
}

type CardView struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Tag     string `json:"tag,omitempty"`
	Color   string `json:"color"`
	Pattern string `json:"pattern"`
}

// DeckStateMessage describes the classic deck, or just the mode when no
// deck is active.
type DeckStateMessage struct {
	Type      string    `json:"type"`
	Mode      string    `json:"mode"`
	Theme     string    `json:"theme,omitempty"`
	Card      *CardView `json:"card,omitempty"`
	Remaining int       `json:"remaining"`
	Drawn     int       `json:"drawn"`
	Size      int       `json:"size"`
	Finished  bool      `json:"finished"`
}

// PromptMessage is one truth or dare. Round counts passes through the pile,
// starting at 1.
type PromptMessage struct {
	Type  string   `json:"type"`
	Kind  string   `json:"kind"`
	Card  CardView `json:"card"`
	Round int      `json:"round"`
}

type FortuneMessage struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	Verse          string `json:"verse"`
	Interpretation string `json:"interpretation,omitempty"`
	LuckyNumber    string `json:"lucky_number"`
	Color          string `json:"color"`
	Pattern        string `json:"pattern"`
	Round          int    `json:"round"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorMessage(msg string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: msg}
}

// styleFor maps a card ID onto a fixed colour and pattern, so every client
// renders the same card the same way.
func styleFor(id string) (string, string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum32()

	return cardColors[sum%uint32(len(cardColors))], cardPatterns[(sum/uint32(len(cardColors)))%uint32(len(cardPatterns))]
}

func viewOf(item cards.Item) CardView {
	color, pattern := styleFor(item.ID)

	return CardView{
		ID:      item.ID,
		Text:    item.Text,
		Tag:     item.Tag,
		Color:   color,
		Pattern: pattern,
	}
}

// deckRoom is the game state of one room. It knows nothing about sockets:
// every method returns the messages to broadcast. The owning hub serialises
// all calls.
type deckRoom struct {
	rng     draw.RNG
	library cards.Library
	origin  source.Origin

	// themes replaces library.Themes after a custom load.
	themes *cards.ThemePool

	mode     string
	theme    string
	deck     *draw.State[cards.Item]
	finished bool

	truths   *draw.State[cards.Item]
	dares    *draw.State[cards.Item]
	fortunes *draw.State[cards.FortuneItem]

	weights draw.WeightTable

	lastPrompt  *PromptMessage
	lastFortune *FortuneMessage

	// empty remembers piles already reported as having no cards.
	empty map[string]bool
}

func newDeckRoom(library cards.Library, origin source.Origin, rng draw.RNG) *deckRoom {
	return &deckRoom{
		rng:     rng,
		library: library,
		origin:  origin,
		themes:  library.Themes,
		mode:    modeMenu,
		weights: draw.DefaultWeights,
		empty:   make(map[string]bool),
	}
}

func (r *deckRoom) themeList() ThemeListMessage {
	counts := r.themes.Counts()
	if counts == nil {
		counts = []cards.ThemeCount{}
	}

	return ThemeListMessage{
		Type:   "themes",
		Themes: counts,
		Origin: r.origin,
	}
}

func (r *deckRoom) state() DeckStateMessage {
	msg := DeckStateMessage{
		Type:     "deck_state",
		Mode:     r.mode,
		Theme:    r.theme,
		Finished: r.finished,
	}

	if r.deck == nil {
		return msg
	}

	msg.Remaining = r.deck.Remaining()
	msg.Drawn = r.deck.DrawnCount()
	msg.Size = r.deck.Size()

	if item, ok := r.deck.Current(); ok && !r.finished {
		view := viewOf(item)
		msg.Card = &view
	}

	return msg
}

// snapshot is everything a newly connected client needs to catch up.
func (r *deckRoom) snapshot() []any {
	msgs := []any{r.themeList(), r.state()}

	switch {
	case r.mode == modeTod && r.lastPrompt != nil:
		msgs = append(msgs, *r.lastPrompt)
	case r.mode == modeFortune && r.lastFortune != nil:
		msgs = append(msgs, *r.lastFortune)
	}

	return msgs
}

func (r *deckRoom) selectMode(name string) []any {
	kind, err := cards.ParseKind(name)
	if err != nil {
		return []any{errorMessage("Unknown game mode.")}
	}

	r.clearDeck()
	r.resetPiles()
	r.mode = kind.String()

	return []any{r.state()}
}

func (r *deckRoom) selectTheme(theme string) []any {
	deck, err := draw.LoadDeck(r.themes, theme, r.rng)
	if err != nil {
		return []any{errorMessage("That theme has no cards.")}
	}

	state, err := draw.NewDeckState(deck, r.rng)
	if err != nil {
		return []any{errorMessage("That theme has no cards.")}
	}

	r.mode = modeClassic
	r.theme = theme
	r.deck = state
	r.finished = false

	return []any{r.state()}
}

func (r *deckRoom) drawCard() []any {
	if r.deck == nil {
		return []any{errorMessage("Pick a theme first.")}
	}

	if _, ok := r.deck.DrawOne(); !ok {
		r.finished = true
	}

	return []any{r.state()}
}

func (r *deckRoom) replay() []any {
	if r.deck == nil {
		return []any{errorMessage("Pick a theme first.")}
	}

	r.deck.Replay()
	r.finished = false

	return []any{r.state()}
}

// menu leaves the current deck and returns to the theme list of the mode.
func (r *deckRoom) menu() []any {
	if r.mode != modeClassic || r.deck == nil {
		r.mode = modeMenu
	}
	r.clearDeck()
	r.resetPiles()

	return []any{r.state()}
}

func (r *deckRoom) clearDeck() {
	r.theme = ""
	r.deck = nil
	r.finished = false
}

// resetPiles puts every truth, dare and fortune back, so the next visit to
// those modes starts from full piles.
func (r *deckRoom) resetPiles() {
	for _, s := range []*draw.State[cards.Item]{r.truths, r.dares} {
		if s != nil {
			s.Reset()
		}
	}
	if r.fortunes != nil {
		r.fortunes.Reset()
	}

	r.lastPrompt = nil
	r.lastFortune = nil
}

// unavailable reports a missing pile the first time only; later requests
// for it produce no messages.
func (r *deckRoom) unavailable(pile, text string) []any {
	if r.empty[pile] {
		return nil
	}
	r.empty[pile] = true

	return []any{errorMessage(text)}
}

func (r *deckRoom) drawPrompt(kind string) []any {
	var (
		state **draw.State[cards.Item]
		pool  []cards.Item
	)

	switch kind {
	case "truth":
		state, pool = &r.truths, r.library.Dual.Truth
	case "dare":
		state, pool = &r.dares, r.library.Dual.Dare
	default:
		return []any{errorMessage("Unknown prompt.")}
	}

	if *state == nil {
		s, err := draw.NewState(pool, r.rng)
		if err != nil {
			return r.unavailable(kind, "There are no "+kind+" cards.")
		}
		*state = s
	}

	card := viewOf((*state).DrawReplacing())
	msg := PromptMessage{
		Type:  "prompt",
		Kind:  kind,
		Card:  card,
		Round: (*state).Reseeds() + 1,
	}

	r.mode = modeTod
	r.lastPrompt = &msg

	return []any{msg}
}

func (r *deckRoom) drawFortune() []any {
	if r.fortunes == nil {
		s, err := draw.NewState(r.library.Fortunes, r.rng)
		if err != nil {
			return r.unavailable(modeFortune, "There are no fortunes.")
		}
		r.fortunes = s
	}

	f := draw.DrawWeighted(r.fortunes, r.weights, r.rng)
	color, pattern := styleFor(f.ID)

	msg := FortuneMessage{
		Type:           "fortune",
		ID:             f.ID,
		Name:           f.Name,
		Verse:          f.Verse(),
		Interpretation: strings.TrimSpace(f.Interpretation),
		LuckyNumber:    draw.LuckyNumber(r.rng),
		Color:          color,
		Pattern:        pattern,
		Round:          r.fortunes.Reseeds() + 1,
	}

	r.mode = modeFortune
	r.lastFortune = &msg

	return []any{msg}
}

// loadThemes swaps in a custom classic pool and returns to the theme list.
func (r *deckRoom) loadThemes(pool *cards.ThemePool, origin source.Origin) []any {
	if pool.Size() == 0 {
		return []any{errorMessage("No usable cards were found.")}
	}

	r.themes = pool
	r.origin = origin
	r.mode = modeClassic
	r.clearDeck()

	return []any{r.themeList(), r.state()}
}

func (r *deckRoom) loadText(text string) []any {
	return r.loadThemes(cards.FromLines(text), source.OriginText)
}

// handle dispatches the synchronous commands. Loads from a URL are started
// by the hub and come back through loadThemes.
func (r *deckRoom) handle(msg ClientMessage) []any {
	switch msg.Type {
	case "select_mode":
		return r.selectMode(msg.Mode)
	case "select_theme":
		return r.selectTheme(msg.Theme)
	case "draw":
		return r.drawCard()
	case "replay":
		return r.replay()
	case "menu":
		return r.menu()
	case "truth", "dare":
		return r.drawPrompt(msg.Type)
	case "fortune":
		return r.drawFortune()
	case "load_text":
		return r.loadText(msg.Text)
	default:
		return nil
	}
}
