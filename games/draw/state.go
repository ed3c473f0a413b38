/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package draw

import (
	"fmt"
	"slices"

	"github.com/Seednode/partydeck/games/cards"
)

// Drawable is anything with a stable identity.
type Drawable interface {
	ItemID() string
}

// Shuffle returns a Fisher-Yates shuffled copy of items.
func Shuffle[T any](items []T, rng RNG) []T {
	out := slices.Clone(items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// LoadDeck returns a shuffled copy of one theme's cards.
func LoadDeck(pool *cards.ThemePool, theme string, rng RNG) ([]cards.Item, error) {
	if !pool.Has(theme) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}
	return Shuffle(pool.Items(theme), rng), nil
}

// ReshuffleFromHistory puts every card seen so far back into a fresh deck.
// Duplicates are dropped by ID, keeping the first of drawn, remaining, then
// current.
func ReshuffleFromHistory[T Drawable](drawn, remaining []T, current *T, rng RNG) []T {
	all := make([]T, 0, len(drawn)+len(remaining)+1)
	all = append(all, drawn...)
	all = append(all, remaining...)
	if current != nil {
		all = append(all, *current)
	}

	seen := make(map[string]bool, len(all))
	unique := all[:0]
	for _, item := range all {
		if seen[item.ItemID()] {
			continue
		}
		seen[item.ItemID()] = true
		unique = append(unique, item)
	}

	return Shuffle(unique, rng)
}

// State is the draw progress for one pool. It is not safe for concurrent
// use; a room's hub goroutine owns it.
type State[T Drawable] struct {
	rng RNG

	master    []T
	available []T

	drawn   []T
	current *T

	reseeds int
}

// NewState starts a shuffled deck over master. An empty master is a setup
// error.
func NewState[T Drawable](master []T, rng RNG) (*State[T], error) {
	if len(master) == 0 {
		return nil, ErrEmptyPool
	}

	s := &State[T]{
		rng:    rng,
		master: slices.Clone(master),
	}
	s.available = Shuffle(s.master, rng)

	return s, nil
}

// NewDeckState wraps an already shuffled deck, which also becomes master.
func NewDeckState[T Drawable](deck []T, rng RNG) (*State[T], error) {
	if len(deck) == 0 {
		return nil, ErrEmptyPool
	}

	return &State[T]{
		rng:       rng,
		master:    slices.Clone(deck),
		available: slices.Clone(deck),
	}, nil
}

// DrawOne pops the last available item. It reports false once the deck is
// exhausted and never refills.
func (s *State[T]) DrawOne() (T, bool) {
	var zero T
	if len(s.available) == 0 {
		return zero, false
	}

	item := s.pop()
	s.record(item)

	return item, true
}

// DrawReplacing pops the last available item, reseeding from a shuffled
// copy of master first when the pool is empty.
func (s *State[T]) DrawReplacing() T {
	if len(s.available) == 0 {
		s.available = Shuffle(s.master, s.rng)
		s.reseeds++
	}

	item := s.pop()
	s.record(item)

	return item
}

// Reset starts over with a freshly shuffled copy of master.
func (s *State[T]) Reset() {
	s.available = Shuffle(s.master, s.rng)
	s.drawn = nil
	s.current = nil
	s.reseeds = 0
}

// Replay returns every seen card to the deck and reshuffles.
func (s *State[T]) Replay() {
	s.available = ReshuffleFromHistory(s.drawn, s.available, s.current, s.rng)
	s.drawn = nil
	s.current = nil
}

func (s *State[T]) pop() T {
	last := len(s.available) - 1
	item := s.available[last]
	s.available = s.available[:last]
	return item
}

func (s *State[T]) remove(id string) {
	s.available = slices.DeleteFunc(s.available, func(item T) bool {
		return item.ItemID() == id
	})
}

func (s *State[T]) record(item T) {
	if s.current != nil {
		s.drawn = append(s.drawn, *s.current)
	}
	s.current = &item
}

// Remaining is the number of items left before exhaustion or reseed.
func (s *State[T]) Remaining() int { return len(s.available) }

// DrawnCount includes the current item.
func (s *State[T]) DrawnCount() int {
	if s.current == nil {
		return len(s.drawn)
	}
	return len(s.drawn) + 1
}

func (s *State[T]) Current() (T, bool) {
	var zero T
	if s.current == nil {
		return zero, false
	}
	return *s.current, true
}

// Size is the number of items in master.
func (s *State[T]) Size() int { return len(s.master) }

func (s *State[T]) Reseeds() int { return s.reseeds }

