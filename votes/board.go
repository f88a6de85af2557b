/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package votes tracks submitted items, toggle votes on them and the set of
// voters that declared themselves finished.
//
// A Board is not safe for concurrent use; it is owned by one room's actor.
package votes

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrLimitExceeded = errors.New("submission limit exceeded")
	ErrItemNotFound  = errors.New("item not found")
	ErrEmptyItem     = errors.New("item text is empty")
)

type Item struct {
	ID         string `json:"id"`
	Author     string `json:"author"`
	AuthorName string `json:"authorName"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`

	voters map[string]struct{}
	seq    int
}

// Voted reports whether voter is currently in the item's voter set.
func (i *Item) Voted(voter string) bool {
	_, ok := i.voters[voter]

	return ok
}

func (i *Item) Voters() []string {
	out := make([]string, 0, len(i.voters))
	for v := range i.voters {
		out = append(out, v)
	}
	slices.Sort(out)

	return out
}

func (i *Item) clone() Item {
	c := *i
	c.voters = make(map[string]struct{}, len(i.voters))
	for v := range i.voters {
		c.voters[v] = struct{}{}
	}

	return c
}

type Board struct {
	items     []*Item
	byID      map[string]*Item
	submitted map[string]int
	done      map[string]struct{}
	seq       int
}

func NewBoard() *Board {
	return &Board{
		byID:      make(map[string]*Item),
		submitted: make(map[string]int),
		done:      make(map[string]struct{}),
	}
}

// Submit appends one item for author. The author may hold at most limit items;
// a limit below 1 means no limit.
func (b *Board) Submit(author, name, text string, limit int) (Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Item{}, ErrEmptyItem
	}

	if limit > 0 && b.submitted[author] >= limit {
		return Item{}, fmt.Errorf("%w: %s already submitted %d", ErrLimitExceeded, author, limit)
	}

	b.seq++
	it := &Item{
		ID:         uuid.NewString(),
		Author:     author,
		AuthorName: name,
		Text:       text,
		voters:     make(map[string]struct{}),
		seq:        b.seq,
	}

	b.items = append(b.items, it)
	b.byID[it.ID] = it
	b.submitted[author]++

	return it.clone(), nil
}

// Submitted returns how many items author currently holds on the board.
func (b *Board) Submitted(author string) int {
	return b.submitted[author]
}

func (b *Board) Len() int {
	return len(b.items)
}

// Toggle flips voter's membership in the item's voter set and returns the new
// count along with whether voter is now counted.
func (b *Board) Toggle(itemID, voter string) (int, bool, error) {
	it, ok := b.byID[itemID]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	if _, ok := it.voters[voter]; ok {
		delete(it.voters, voter)
		it.Votes--

		return it.Votes, false, nil
	}

	it.voters[voter] = struct{}{}
	it.Votes++

	return it.Votes, true, nil
}

// MarkDone records voter as finished. It returns false when voter was already
// marked.
func (b *Board) MarkDone(voter string) bool {
	if _, ok := b.done[voter]; ok {
		return false
	}
	b.done[voter] = struct{}{}

	return true
}

func (b *Board) IsDone(voter string) bool {
	_, ok := b.done[voter]

	return ok
}

func (b *Board) DoneCount() int {
	return len(b.done)
}

// Forget drops everything a departed client contributed: their items, their
// votes on other items and their done mark.
func (b *Board) Forget(client string) {
	kept := b.items[:0]
	for _, it := range b.items {
		if it.Author == client {
			delete(b.byID, it.ID)
			continue
		}
		if _, ok := it.voters[client]; ok {
			delete(it.voters, client)
			it.Votes--
		}
		kept = append(kept, it)
	}
	clear(b.items[len(kept):])
	b.items = kept

	delete(b.submitted, client)
	delete(b.done, client)
}

// Counts maps every item id to its current vote count.
func (b *Board) Counts() map[string]int {
	out := make(map[string]int, len(b.items))
	for _, it := range b.items {
		out[it.ID] = it.Votes
	}

	return out
}

// Items returns copies of all items in submission order.
func (b *Board) Items() []Item {
	out := make([]Item, len(b.items))
	for i, it := range b.items {
		out[i] = it.clone()
	}

	return out
}

func (b *Board) Reset() {
	b.items = nil
	clear(b.byID)
	clear(b.submitted)
	clear(b.done)
	b.seq = 0
}

// ResetDone clears only the finished markers, keeping items and votes.
func (b *Board) ResetDone() {
	clear(b.done)
}
