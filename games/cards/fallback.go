/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.toml
var fallbackTOML []byte

// Fallback is the static offline dataset, in the same shapes the remote
// sheet provides.
type Fallback struct {
	Themes   []FallbackTheme   `toml:"themes" yaml:"themes"`
	Truths   []string          `toml:"truths" yaml:"truths"`
	Dares    []string          `toml:"dares" yaml:"dares"`
	Fortunes []FallbackFortune `toml:"fortunes" yaml:"fortunes"`
}

type FallbackTheme struct {
	Name  string   `toml:"name" yaml:"name"`
	Cards []string `toml:"cards" yaml:"cards"`
}

type FallbackFortune struct {
	Name           string `toml:"name" yaml:"name"`
	Content        string `toml:"content" yaml:"content"`
	Interpretation string `toml:"interpretation" yaml:"interpretation"`
	Type           int    `toml:"type" yaml:"type"`
}

// DefaultFallback decodes the embedded dataset.
func DefaultFallback() (Fallback, error) {
	var fb Fallback
	if err := toml.Unmarshal(fallbackTOML, &fb); err != nil {
		return Fallback{}, fmt.Errorf("failed to decode embedded fallback: %w", err)
	}
	return fb, nil
}

// Library converts the dataset into pools.
func (fb Fallback) Library() Library {
	lib := Library{Themes: NewThemePool()}

	for _, theme := range fb.Themes {
		for _, card := range theme.Cards {
			lib.Themes.Add(theme.Name, card)
		}
	}

	for _, t := range fb.Truths {
		lib.Dual.add(tagTruth, t)
	}
	for _, d := range fb.Dares {
		lib.Dual.add(tagDare, d)
	}

	for _, f := range fb.Fortunes {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Content) == "" {
			continue
		}
		lib.Fortunes = append(lib.Fortunes, FortuneItem{
			ID:             uuid.NewString(),
			Name:           strings.TrimSpace(f.Name),
			Content:        strings.TrimSpace(f.Content),
			Interpretation: strings.TrimSpace(f.Interpretation),
			WeightClass:    f.Type,
		})
	}

	return lib
}

// LoadFallbackFile reads a replacement offline dataset. TOML and YAML files
// use the Fallback layout; JSON files are treated like a sheet payload.
func LoadFallbackFile(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Library{}, err
	}

	var fb Fallback

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &fb); err != nil {
			return Library{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fb); err != nil {
			return Library{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case ".json":
		return libraryFromJSON(data)
	default:
		return Library{}, fmt.Errorf("unsupported fallback file type %q", filepath.Ext(path))
	}

	return fb.Library(), nil
}

func libraryFromJSON(data []byte) (Library, error) {
	payload, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Library{}, err
	}

	lib := Library{Themes: NewThemePool()}

	for _, kind := range []Kind{Classic, TruthOrDare, Fortune} {
		pool, err := NormalizePayload(payload, kind)
		if err != nil {
			continue
		}
		lib.Merge(pool)
	}

	return lib, nil
}
