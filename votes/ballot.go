/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package votes

import "slices"

// Ballot holds one choice per voter. Casting again replaces the earlier choice.
type Ballot struct {
	choices map[string]string
	order   []string
}

func NewBallot() *Ballot {
	return &Ballot{choices: make(map[string]string)}
}

func (b *Ballot) Cast(voter, choice string) {
	if _, ok := b.choices[voter]; !ok {
		b.order = append(b.order, voter)
	}
	b.choices[voter] = choice
}

func (b *Ballot) Choice(voter string) (string, bool) {
	c, ok := b.choices[voter]

	return c, ok
}

func (b *Ballot) Len() int {
	return len(b.choices)
}

// Tally counts the votes per choice.
func (b *Ballot) Tally() map[string]int {
	out := make(map[string]int)
	for _, c := range b.choices {
		out[c]++
	}

	return out
}

// Leader returns the choice with strictly the most votes. Ties and empty
// ballots have no leader.
func (b *Ballot) Leader() (string, int, bool) {
	tally := b.Tally()

	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var (
		best  string
		most  int
		clash bool
	)
	for _, k := range keys {
		switch n := tally[k]; {
		case n > most:
			best, most, clash = k, n, false
		case n == most:
			clash = true
		}
	}

	if most == 0 || clash {
		return "", most, false
	}

	return best, most, true
}

// YesNo counts the voters whose choice equals yes against every other choice.
func (b *Ballot) YesNo(yes string) (int, int) {
	var y, n int
	for _, c := range b.choices {
		if c == yes {
			y++
		} else {
			n++
		}
	}

	return y, n
}

// Voters lists voters in the order of their first cast.
func (b *Ballot) Voters() []string {
	return slices.Clone(b.order)
}

func (b *Ballot) Forget(voter string) {
	if _, ok := b.choices[voter]; !ok {
		return
	}
	delete(b.choices, voter)
	b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == voter })
}

func (b *Ballot) Reset() {
	clear(b.choices)
	b.order = nil
}
