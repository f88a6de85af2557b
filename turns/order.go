/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package turns decides who acts next, how players are split into teams and
// what a board tile holds.
package turns

import (
	"slices"
)

// Order is a cyclic sequence of tokens with a cursor. In solo mode a token is a
// client id; in team mode it is a team name and every member of the team acts
// on it together.
type Order struct {
	tokens  []string
	members map[string][]string
	tokenOf map[string]string
	cursor  int
}

func NewSolo(ids []string, r Rand) *Order {
	tokens := slices.Clone(ids)
	Shuffle(r, len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })

	o := &Order{
		tokens:  tokens,
		members: make(map[string][]string, len(tokens)),
		tokenOf: make(map[string]string, len(tokens)),
	}
	for _, id := range tokens {
		o.members[id] = []string{id}
		o.tokenOf[id] = id
	}

	return o
}

// NewTeams orders the teams randomly. Member lists keep their given order.
func NewTeams(teams map[string][]string, r Rand) *Order {
	tokens := make([]string, 0, len(teams))
	for name, m := range teams {
		if len(m) > 0 {
			tokens = append(tokens, name)
		}
	}
	slices.Sort(tokens)
	Shuffle(r, len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })

	o := &Order{
		tokens:  tokens,
		members: make(map[string][]string, len(tokens)),
		tokenOf: make(map[string]string),
	}
	for _, name := range tokens {
		o.members[name] = slices.Clone(teams[name])
		for _, id := range teams[name] {
			o.tokenOf[id] = name
		}
	}

	return o
}

// Current returns the acting token, or "" for an empty order.
func (o *Order) Current() string {
	if len(o.tokens) == 0 {
		return ""
	}

	return o.tokens[o.cursor]
}

func (o *Order) Cursor() int {
	return o.cursor
}

func (o *Order) Len() int {
	return len(o.tokens)
}

// Advance moves the cursor to (cursor + 1) mod length and returns the new
// current token.
func (o *Order) Advance() string {
	if len(o.tokens) == 0 {
		return ""
	}
	o.cursor = (o.cursor + 1) % len(o.tokens)

	return o.tokens[o.cursor]
}

// Rewind puts the cursor back on the first token.
func (o *Order) Rewind() string {
	o.cursor = 0

	return o.Current()
}

func (o *Order) Tokens() []string {
	return slices.Clone(o.tokens)
}

func (o *Order) Members(token string) []string {
	return slices.Clone(o.members[token])
}

func (o *Order) TokenOf(client string) (string, bool) {
	t, ok := o.tokenOf[client]

	return t, ok
}

// CanAct reports whether client belongs to the current token.
func (o *Order) CanAct(client string) bool {
	t, ok := o.tokenOf[client]

	return ok && t == o.Current()
}

// Remove takes client out of the order. A team whose last member leaves is
// dropped. The cursor stays on the same token when possible.
func (o *Order) Remove(client string) {
	token, ok := o.tokenOf[client]
	if !ok {
		return
	}
	delete(o.tokenOf, client)

	o.members[token] = slices.DeleteFunc(o.members[token], func(id string) bool { return id == client })
	if len(o.members[token]) > 0 {
		return
	}
	delete(o.members, token)

	idx := slices.Index(o.tokens, token)
	o.tokens = slices.Delete(o.tokens, idx, idx+1)

	switch {
	case len(o.tokens) == 0:
		o.cursor = 0
	case idx < o.cursor:
		o.cursor--
	case o.cursor >= len(o.tokens):
		o.cursor = 0
	}
}
