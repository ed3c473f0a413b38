/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package cards turns loosely structured spreadsheet payloads into typed
// content pools for the deck, truth-or-dare and fortune games.
package cards

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// DefaultTheme holds every classic card whose row names no topic.
const DefaultTheme = "Bộ Bài Chính"

// Kind selects which schema a payload is normalized into.
type Kind int

const (
	Classic Kind = iota
	TruthOrDare
	Fortune
)

func (k Kind) String() string {
	switch k {
	case Classic:
		return "classic"
	case TruthOrDare:
		return "tod"
	case Fortune:
		return "fortune"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names used by clients and section keys.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classic", "deck", "themes":
		return Classic, nil
	case "tod", "truth_or_dare", "truthordare", "truth-or-dare":
		return TruthOrDare, nil
	case "fortune", "fortunes":
		return Fortune, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Item is a single drawable card. It is never modified after creation.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Tag  string `json:"tag,omitempty"`
}

func newItem(text, tag string) Item {
	return Item{
		ID:   uuid.NewString(),
		Text: text,
		Tag:  tag,
	}
}

func (i Item) ItemID() string { return i.ID }

// FortuneItem is one fortune. WeightClass 0 is the "other" bucket.
type FortuneItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Content        string `json:"content"`
	Interpretation string `json:"interpretation"`
	WeightClass    int    `json:"type,omitempty"`
}

func (f FortuneItem) ItemID() string { return f.ID }

func (f FortuneItem) Class() int { return f.WeightClass }

// Verse breaks the fortune content into lines, starting a new line at every
// capitalised word that follows whitespace.
func (f FortuneItem) Verse() string {
	return Verse(f.Content)
}

func Verse(text string) string {
	runes := []rune(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}

		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}

		if j < len(runes) && unicode.IsUpper(runes[j]) {
			b.WriteByte('\n')
		} else {
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}

	return b.String()
}

// ThemeCount is one row of the theme picker listing.
type ThemeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ThemePool maps theme names to their cards, in discovery order. A theme
// only exists once it holds at least one card.
type ThemePool struct {
	names []string
	items map[string][]Item
}

func NewThemePool() *ThemePool {
	return &ThemePool{
		items: make(map[string][]Item),
	}
}

// Add appends a card to a theme. Blank text is ignored and a blank theme
// name means DefaultTheme.
func (p *ThemePool) Add(theme, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	theme = strings.TrimSpace(theme)
	if theme == "" {
		theme = DefaultTheme
	}

	if _, ok := p.items[theme]; !ok {
		p.names = append(p.names, theme)
	}
	p.items[theme] = append(p.items[theme], newItem(text, theme))
}

func (p *ThemePool) Names() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.names)
}

// Items returns a copy of the theme's cards, or nil for an unknown theme.
func (p *ThemePool) Items(theme string) []Item {
	if p == nil {
		return nil
	}
	return slices.Clone(p.items[theme])
}

func (p *ThemePool) Has(theme string) bool {
	if p == nil {
		return false
	}
	_, ok := p.items[theme]
	return ok
}

func (p *ThemePool) Counts() []ThemeCount {
	if p == nil {
		return nil
	}

	counts := make([]ThemeCount, 0, len(p.names))
	for _, name := range p.names {
		counts = append(counts, ThemeCount{Name: name, Count: len(p.items[name])})
	}
	return counts
}

// Len is the number of themes.
func (p *ThemePool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Size is the number of cards across all themes.
func (p *ThemePool) Size() int {
	if p == nil {
		return 0
	}

	n := 0
	for _, items := range p.items {
		n += len(items)
	}
	return n
}

// DualPool holds the two independently sampled truth-or-dare lists.
type DualPool struct {
	Truth []Item `json:"truth"`
	Dare  []Item `json:"dare"`
}

func (d *DualPool) add(tag, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	switch tag {
	case tagTruth:
		d.Truth = append(d.Truth, newItem(text, tagTruth))
	case tagDare:
		d.Dare = append(d.Dare, newItem(text, tagDare))
	}
}

func (d DualPool) Len() int { return len(d.Truth) + len(d.Dare) }

// Pool is the output of the normalizer; only the field matching Kind is set.
type Pool struct {
	Kind     Kind
	Themes   *ThemePool
	Dual     DualPool
	Fortunes []FortuneItem
}

func (p Pool) Empty() bool {
	switch p.Kind {
	case Classic:
		return p.Themes.Len() == 0
	case TruthOrDare:
		return p.Dual.Len() == 0
	case Fortune:
		return len(p.Fortunes) == 0
	}
	return true
}

// Library bundles one pool per game mode.
type Library struct {
	Themes   *ThemePool
	Dual     DualPool
	Fortunes []FortuneItem
}

// Merge copies the pool into the matching library slot.
func (l *Library) Merge(p Pool) {
	switch p.Kind {
	case Classic:
		l.Themes = p.Themes
	case TruthOrDare:
		l.Dual = p.Dual
	case Fortune:
		l.Fortunes = p.Fortunes
	}
}

// Pool extracts the pool for one mode.
func (l Library) Pool(kind Kind) Pool {
	p := Pool{Kind: kind}
	switch kind {
	case Classic:
		p.Themes = l.Themes
	case TruthOrDare:
		p.Dual = l.Dual
	case Fortune:
		p.Fortunes = l.Fortunes
	}
	return p
}
