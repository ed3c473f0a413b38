/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package draw

import (
	"fmt"
	"slices"
)

// Weighted items belong to a weight class.
type Weighted interface {
	Drawable
	Class() int
}

type ClassWeight struct {
	Class  int
	Weight float64
}

// WeightTable gives each named class a relative weight. Classes not listed
// share the Other weight. Weights need not sum to 100.
type WeightTable struct {
	Classes []ClassWeight
	Other   float64
}

// DefaultWeights is the fortune table: class 1 is rare luck, class 4 almost
// never shows.
var DefaultWeights = WeightTable{
	Classes: []ClassWeight{
		{Class: 1, Weight: 5},
		{Class: 2, Weight: 30},
		{Class: 3, Weight: 20},
		{Class: 4, Weight: 0.5},
	},
	Other: 44.5,
}

const otherBucket = -1

type bucket[T any] struct {
	class  int
	weight float64
	items  []T
}

// buckets partitions items by class in table order, with the other bucket
// last. Empty buckets are omitted.
func (t WeightTable) buckets(items []Weighted) []bucket[Weighted] {
	named := make(map[int]int, len(t.Classes))
	all := make([]bucket[Weighted], 0, len(t.Classes)+1)
	for i, cw := range t.Classes {
		named[cw.Class] = i
		all = append(all, bucket[Weighted]{class: cw.Class, weight: cw.Weight})
	}
	all = append(all, bucket[Weighted]{class: otherBucket, weight: t.Other})

	for _, item := range items {
		idx, ok := named[item.Class()]
		if !ok {
			idx = len(all) - 1
		}
		all[idx].items = append(all[idx].items, item)
	}

	return slices.DeleteFunc(all, func(b bucket[Weighted]) bool {
		return len(b.items) == 0
	})
}

// selectBucket walks the buckets subtracting weights from a uniform value in
// [0, total). It returns -1 if rounding leaves nothing selected.
func selectBucket[T any](buckets []bucket[T], rng RNG) int {
	var total float64
	for _, b := range buckets {
		total += b.weight
	}
	if total <= 0 {
		return -1
	}

	v := rng.Float64() * total
	for i, b := range buckets {
		v -= b.weight
		if v < 0 {
			return i
		}
	}

	return -1
}

// DrawWeighted picks a weight class first, then a uniform item inside it,
// and removes that item. An empty pool reseeds from master unshuffled.
func DrawWeighted[T Weighted](s *State[T], table WeightTable, rng RNG) T {
	if len(s.available) == 0 {
		s.available = slices.Clone(s.master)
		s.reseeds++
	}

	items := make([]Weighted, len(s.available))
	for i, item := range s.available {
		items[i] = item
	}

	var picked T
	buckets := table.buckets(items)
	if idx := selectBucket(buckets, rng); idx >= 0 {
		b := buckets[idx].items
		picked = b[rng.IntN(len(b))].(T)
	} else {
		picked = s.available[rng.IntN(len(s.available))]
	}

	s.remove(picked.ItemID())
	s.record(picked)

	return picked
}

// LuckyNumber is a uniform integer in the closed range [0, 100], zero
// padded to two digits.
func LuckyNumber(rng RNG) string {
	return fmt.Sprintf("%02d", rng.IntN(101))
}
