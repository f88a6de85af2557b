/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package votes

import (
	"cmp"
	"slices"
)

// Rank orders items by vote count, highest first. Items with equal counts keep
// their submission order. The input is not modified.
func Rank(items []Item) []Item {
	out := slices.Clone(items)

	slices.SortStableFunc(out, func(a, b Item) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}

		return cmp.Compare(a.seq, b.seq)
	})

	return out
}

// Top returns the first n ranked items, or all of them when fewer exist.
func Top(items []Item, n int) []Item {
	ranked := Rank(items)
	if n < 0 || n >= len(ranked) {
		return ranked
	}

	return ranked[:n]
}
