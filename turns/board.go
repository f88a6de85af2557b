/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package turns

const BoardSize = 28

const (
	TileStart        = 0
	TileLoyaltyFill  = 7
	TileLoyaltyDrink = 21
)

type TileKind string

const (
	KindStart        TileKind = "START"
	KindLoyaltyFill  TileKind = "LOYALTY_FILL"
	KindLoyaltyDrink TileKind = "LOYALTY_DRINK"
	KindItem         TileKind = "ITEM"
	KindEmpty        TileKind = "EMPTY"
)

type Landing struct {
	Position int      `json:"position"`
	Kind     TileKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
}

// ResolveLanding names what sits on a tile. Special tiles are fixed; every
// other tile shows items[pos mod len(items)], so the same tile can hold
// different content from one game to the next.
func ResolveLanding(pos int, items []string) Landing {
	pos = ((pos % BoardSize) + BoardSize) % BoardSize

	l := Landing{Position: pos}
	switch pos {
	case TileStart:
		l.Kind = KindStart
	case TileLoyaltyFill:
		l.Kind = KindLoyaltyFill
	case TileLoyaltyDrink:
		l.Kind = KindLoyaltyDrink
	default:
		if len(items) == 0 {
			l.Kind = KindEmpty
		} else {
			l.Kind = KindItem
			l.Text = items[pos%len(items)]
		}
	}

	return l
}

// Board tracks token positions for an Order. Every member of a team shares the
// team's position.
type Board struct {
	order *Order
	pos   map[string]int
	laps  map[string]int
}

func NewBoard(o *Order) *Board {
	return &Board{
		order: o,
		pos:   make(map[string]int),
		laps:  make(map[string]int),
	}
}

// Move advances token by steps around the board and returns the new position.
func (b *Board) Move(token string, steps int) int {
	next := b.pos[token] + steps
	b.laps[token] += next / BoardSize
	b.pos[token] = next % BoardSize

	return b.pos[token]
}

func (b *Board) Position(token string) int {
	return b.pos[token]
}

func (b *Board) Laps(token string) int {
	return b.laps[token]
}

// Positions maps every client in the order to its board position.
func (b *Board) Positions() map[string]int {
	out := make(map[string]int)
	for _, token := range b.order.tokens {
		for _, id := range b.order.members[token] {
			out[id] = b.pos[token]
		}
	}

	return out
}
