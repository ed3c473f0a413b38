/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/partydeck/games/cards"
)

// Origin records where a mode's pool came from.
type Origin string

const (
	OriginSheet    Origin = "sheet"
	OriginFallback Origin = "fallback"
	OriginText     Origin = "text"
)

// Loaded is a library with the origin of each mode and the problems that
// forced a fallback, for reporting once at load time.
type Loaded struct {
	Library cards.Library
	Origins map[cards.Kind]Origin
	Errors  map[cards.Kind]error
	Result  Result
}

// FromPayload normalizes every mode of a decoded payload, substituting the
// fallback pool for any mode that is missing or empty.
func FromPayload(payload any, fallback cards.Library) Loaded {
	loaded := Loaded{
		Library: cards.Library{Themes: cards.NewThemePool()},
		Origins: make(map[cards.Kind]Origin, 3),
		Errors:  make(map[cards.Kind]error),
	}

	for _, kind := range []cards.Kind{cards.Classic, cards.TruthOrDare, cards.Fortune} {
		pool, err := cards.NormalizePayload(payload, kind)
		if err == nil && pool.Empty() {
			err = cards.ErrNoCardContent
		}

		if err != nil {
			loaded.Errors[kind] = err
			loaded.Library.Merge(fallback.Pool(kind))
			loaded.Origins[kind] = OriginFallback
			continue
		}

		loaded.Library.Merge(pool)
		loaded.Origins[kind] = OriginSheet
	}

	return loaded
}

// Load fetches the sheet once and builds the library, falling back per mode.
// A failed fetch is not an error: every mode uses the fallback and the cause
// is reported in Errors.
func Load(ctx context.Context, f *Fetcher, sheetURL string, fallback cards.Library) Loaded {
	if sheetURL == "" {
		return fallbackOnly(fallback, nil)
	}

	res, err := f.Fetch(ctx, sheetURL)
	if err != nil {
		return fallbackOnly(fallback, err)
	}

	loaded := FromPayload(res.Payload, fallback)
	loaded.Result = res

	return loaded
}

func fallbackOnly(fallback cards.Library, err error) Loaded {
	loaded := Loaded{
		Library: fallback,
		Origins: make(map[cards.Kind]Origin, 3),
		Errors:  make(map[cards.Kind]error),
	}

	for _, kind := range []cards.Kind{cards.Classic, cards.TruthOrDare, cards.Fortune} {
		loaded.Origins[kind] = OriginFallback
		if err != nil {
			loaded.Errors[kind] = err
		}
	}

	return loaded
}

// LoadThemes fetches a custom sheet for the classic deck only. Unlike Load,
// any failure is returned to the caller.
func LoadThemes(ctx context.Context, f *Fetcher, sheetURL string) (*cards.ThemePool, Result, error) {
	res, err := f.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, Result{}, err
	}

	pool, err := cards.NormalizePayload(res.Payload, cards.Classic)
	if err != nil {
		return nil, res, err
	}
	if pool.Empty() {
		return nil, res, cards.ErrNoCardContent
	}

	return pool.Themes, res, nil
}

// Fatal reports whether every mode had to fall back.
func (l Loaded) Fatal() bool {
	for _, o := range l.Origins {
		if o != OriginFallback {
			return false
		}
	}
	return true
}

// Err joins the per-mode problems.
func (l Loaded) Err() error {
	var errs []error
	for _, kind := range []cards.Kind{cards.Classic, cards.TruthOrDare, cards.Fortune} {
		if err, ok := l.Errors[kind]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}
