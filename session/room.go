/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"fmt"
	"time"
)

type Phase string

type Game string

type Player struct {
	ClientID  string    `json:"clientId"`
	Nickname  string    `json:"nickname"`
	Submitted int       `json:"submitted"`
	Alive     bool      `json:"alive"`
	Team      string    `json:"team,omitempty"`
	VoteDone  bool      `json:"voteDone"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func (p *Player) reset() {
	p.Submitted = 0
	p.Alive = true
	p.Team = ""
	p.VoteDone = false
}

// Room is one game instance. It is only ever touched from its actor goroutine.
type Room struct {
	ID         string
	Game       Game
	Phase      Phase
	Players    map[string]*Player
	Remaining  int
	State      any
	CreatedAt  time.Time
	LastActive time.Time

	order []string
}

func newRoom(id string, game Game, phase Phase) *Room {
	now := time.Now()

	return &Room{
		ID:         id,
		Game:       game,
		Phase:      phase,
		Players:    make(map[string]*Player),
		CreatedAt:  now,
		LastActive: now,
	}
}

// Player looks up a registered client.
func (r *Room) Player(clientID string) (*Player, error) {
	p, ok := r.Players[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s in room %s", ErrPlayerNotFound, clientID, r.ID)
	}

	return p, nil
}

func (r *Room) Has(clientID string) bool {
	_, ok := r.Players[clientID]

	return ok
}

// Roster returns players in join order.
func (r *Room) Roster() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Players[id])
	}

	return out
}

// IDs returns client ids in join order.
func (r *Room) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

func (r *Room) Count() int {
	return len(r.order)
}

// Alive returns the ids of living players in join order.
func (r *Room) Alive() []string {
	var out []string
	for _, id := range r.order {
		if r.Players[id].Alive {
			out = append(out, id)
		}
	}

	return out
}

func (r *Room) Nickname(clientID string) string {
	if p, ok := r.Players[clientID]; ok {
		return p.Nickname
	}

	return ""
}

func (r *Room) add(clientID, nickname string) (*Player, bool) {
	if p, ok := r.Players[clientID]; ok {
		if nickname != "" {
			p.Nickname = nickname
		}
		p.Connected = true

		return p, false
	}

	p := &Player{
		ClientID:  clientID,
		Nickname:  nickname,
		Alive:     true,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	r.Players[clientID] = p
	r.order = append(r.order, clientID)

	return p, true
}

func (r *Room) remove(clientID string) {
	delete(r.Players, clientID)
	for i, id := range r.order {
		if id == clientID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Snapshot is a point-in-time copy of a room, enough for a reconnecting client
// to resynchronise.
type Snapshot struct {
	ID         string    `json:"id"`
	Game       Game      `json:"game"`
	Phase      Phase     `json:"phase"`
	Remaining  int       `json:"remaining"`
	Players    []Player  `json:"players"`
	View       any       `json:"view,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

func (r *Room) snapshot(m *Module) Snapshot {
	s := Snapshot{
		ID:         r.ID,
		Game:       r.Game,
		Phase:      r.Phase,
		Remaining:  r.Remaining,
		Players:    make([]Player, 0, len(r.order)),
		CreatedAt:  r.CreatedAt,
		LastActive: r.LastActive,
	}
	for _, p := range r.Roster() {
		s.Players = append(s.Players, *p)
	}
	if m.View != nil {
		s.View = m.View(r)
	}

	return s
}
