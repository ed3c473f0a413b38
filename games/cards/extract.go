/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"slices"
	"sort"
)

// Wrapper keys checked, in order, when the payload itself is not a list.
var wrapperKeys = []string{
	"data",
	"items",
	"records",
	"rows",
	"values",
	"result",
	"results",
	"cards",
	"questions",
}

// Section keys that let one payload carry every game mode at once.
var sectionKeys = map[Kind][]string{
	Classic:     {"classic", "themes", "deck"},
	TruthOrDare: {"tod", "truthordare", "truth_or_dare"},
	Fortune:     {"fortune", "fortunes"},
}

// Extract finds the list of rows inside an arbitrary decoded payload.
// It returns nil when no list of objects or lists exists.
func Extract(payload any) []any {
	if items, ok := complexArray(payload); ok {
		return items
	}

	keys, values := entries(payload)
	if keys == nil {
		return nil
	}

	for _, wrapper := range wrapperKeys {
		for i, key := range keys {
			if !sameField(key, wrapper) {
				continue
			}
			if items, ok := complexArray(values[i]); ok {
				return items
			}
		}
	}

	for _, v := range values {
		if items, ok := complexArray(v); ok {
			return items
		}
	}

	return nil
}

// Section returns the part of a combined payload that belongs to kind, or
// the payload itself when it has no section keys at all. A payload that
// only has sections for other kinds yields nil.
func Section(payload any, kind Kind) any {
	keys, values := entries(payload)

	for _, section := range sectionKeys[kind] {
		for i, key := range keys {
			if sameField(key, section) && values[i] != nil {
				return values[i]
			}
		}
	}

	for other, sections := range sectionKeys {
		if other == kind {
			continue
		}
		for _, section := range sections {
			for _, key := range keys {
				if sameField(key, section) {
					return nil
				}
			}
		}
	}

	return payload
}

func complexArray(v any) ([]any, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}

	switch items[0].(type) {
	case []any, *Object, map[string]any:
		return items, true
	}

	return nil, false
}

// entries lists an object's keys and values in enumeration order: document
// order for *Object, sorted order for plain maps.
func entries(v any) ([]string, []any) {
	switch obj := v.(type) {
	case *Object:
		values := make([]any, len(obj.Keys))
		for i, k := range obj.Keys {
			values[i] = obj.Values[k]
		}
		return slices.Clone(obj.Keys), values

	case map[string]any:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = obj[k]
		}
		return keys, values
	}

	return nil, nil
}
