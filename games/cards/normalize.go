/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"fmt"

	"github.com/google/uuid"
)

// Shape is the structure of an extracted row list.
type Shape int

const (
	ShapeUnrecognized Shape = iota
	ShapeTabular
	ShapeRecords
)

func (s Shape) String() string {
	switch s {
	case ShapeTabular:
		return "tabular"
	case ShapeRecords:
		return "records"
	default:
		return "unrecognized"
	}
}

// Classify infers the shape of a row list from its first element.
func Classify(items []any) Shape {
	if len(items) == 0 {
		return ShapeUnrecognized
	}

	switch items[0].(type) {
	case []any:
		return ShapeTabular
	case *Object, map[string]any:
		return ShapeRecords
	}

	return ShapeUnrecognized
}

// dataRows pairs every data row with its field names. Tabular row 0 is the
// header. Elements that do not match the inferred shape are skipped.
func dataRows(items []any, shape Shape) []row {
	var rows []row

	switch shape {
	case ShapeTabular:
		header, _ := items[0].([]any)
		names := make([]string, len(header))
		for i, cell := range header {
			names[i] = cellText(cell)
		}

		for _, item := range items[1:] {
			values, ok := item.([]any)
			if !ok {
				continue
			}
			rows = append(rows, row{names: names, values: values})
		}

	case ShapeRecords:
		for _, item := range items {
			keys, values := entries(item)
			if keys == nil {
				continue
			}
			rows = append(rows, row{names: keys, values: values})
		}
	}

	return rows
}

// Normalize converts an extracted row list into the pool for kind. An empty
// list gives an empty pool and no error.
func Normalize(items []any, kind Kind) (Pool, error) {
	pool := Pool{Kind: kind}
	if kind == Classic {
		pool.Themes = NewThemePool()
	}

	if len(items) == 0 {
		return pool, nil
	}

	shape := Classify(items)
	if shape == ShapeUnrecognized {
		return pool, fmt.Errorf("%w: rows are neither lists nor objects", ErrMalformedPayload)
	}

	rows := dataRows(items, shape)

	switch kind {
	case Classic:
		normalizeClassic(rows, pool.Themes)
		if pool.Themes.Len() == 0 {
			return pool, ErrNoCardContent
		}
	case TruthOrDare:
		pool.Dual = normalizeTruthOrDare(rows)
	case Fortune:
		pool.Fortunes = normalizeFortunes(rows)
	default:
		return pool, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}

	return pool, nil
}

// NormalizePayload runs the whole pipeline on a decoded payload: section
// lookup, row extraction, then Normalize.
func NormalizePayload(payload any, kind Kind) (Pool, error) {
	items := Extract(Section(payload, kind))
	if items == nil {
		empty := Pool{Kind: kind}
		if kind == Classic {
			empty.Themes = NewThemePool()
		}
		return empty, fmt.Errorf("%w: no list of rows found for %s", ErrMalformedPayload, kind)
	}

	return Normalize(items, kind)
}

func normalizeClassic(rows []row, pool *ThemePool) {
	for _, r := range rows {
		content := r.resolve(contentFields)
		topic := r.resolve(topicFields)

		if content < 0 {
			content = 0
			if topic < 0 && len(r.names) > 1 {
				topic = 1
			}
		}

		text := r.text(content)
		if text == "" {
			continue
		}

		theme := ""
		if topic >= 0 && topic != content {
			theme = r.text(topic)
		}

		pool.Add(theme, text)
	}
}

func normalizeTruthOrDare(rows []row) DualPool {
	var dual DualPool

	for _, r := range rows {
		truth, hasTruth := r.lookup(truthFields)
		dare, hasDare := r.lookup(dareFields)

		if hasTruth || hasDare {
			dual.add(tagTruth, truth)
			dual.add(tagDare, dare)
			continue
		}

		// Rows shaped as {type: truth|dare, content: ...}.
		kind, ok := r.lookup(promptKindFields)
		if !ok {
			continue
		}
		content, ok := r.lookup(contentFields)
		if !ok {
			continue
		}

		switch {
		case sameField(kind, tagTruth), sameField(kind, "sự thật"):
			dual.add(tagTruth, content)
		case sameField(kind, tagDare), sameField(kind, "thử thách"):
			dual.add(tagDare, content)
		}
	}

	return dual
}

func normalizeFortunes(rows []row) []FortuneItem {
	var fortunes []FortuneItem

	for _, r := range rows {
		name, ok := r.lookup(fortuneNameFields)
		if !ok || name == "" {
			continue
		}
		content, ok := r.lookup(fortuneContentFields)
		if !ok || content == "" {
			continue
		}

		interpretation, _ := r.lookup(interpretFields)
		class, _ := r.lookup(weightFields)

		fortunes = append(fortunes, FortuneItem{
			ID:             uuid.NewString(),
			Name:           name,
			Content:        content,
			Interpretation: interpretation,
			WeightClass:    parseClass(class),
		})
	}

	return fortunes
}
