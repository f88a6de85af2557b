/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// PhaseSpec declares one phase of a game: where it may go next, how long it
// lasts and what happens on the way in.
type PhaseSpec struct {
	Next []Phase

	// Timer starts a countdown on entry. When it reaches zero the room moves to
	// Expire's answer, or to Next[0] when Expire is nil, without consulting
	// guards.
	Timer  time.Duration
	Expire func(s *Scope) Phase

	// Guard vets a manual transition into this phase.
	Guard func(s *Scope) error

	// Enter runs after the phase is set. It may call Advance to chain into one
	// of this phase's declared successors.
	Enter func(s *Scope)
}

type ActionSpec struct {
	// Phases lists where the action is accepted. Empty means every phase.
	Phases []Phase

	// Member requires the acting client to be registered in the room.
	Member bool

	Handle func(s *Scope) error
}

// Module is the declarative description of one game.
type Module struct {
	Game    Game
	Initial Phase
	Phases  map[Phase]PhaseSpec
	Actions map[string]ActionSpec

	// CanStart vets the roster before Start.
	CanStart func(r *Room) error
	NewState func(r *Room) any

	// Leave lets the game forget a departed player. It may Advance when the
	// departure completes a waiting phase.
	Leave func(s *Scope, clientID string)

	View    func(r *Room) any
	Private func(r *Room, clientID string) any
}

// Allows reports whether from -> to is a declared edge.
func (m *Module) Allows(from, to Phase) bool {
	spec, ok := m.Phases[from]

	return ok && slices.Contains(spec.Next, to)
}

// Validate checks that the table only references declared phases.
func (m *Module) Validate() error {
	if m.Game == "" {
		return errors.New("module without game name")
	}
	if _, ok := m.Phases[m.Initial]; !ok {
		return fmt.Errorf("%s: initial phase %s is not declared", m.Game, m.Initial)
	}
	if m.NewState == nil {
		return fmt.Errorf("%s: missing state constructor", m.Game)
	}

	for from, spec := range m.Phases {
		for _, to := range spec.Next {
			if _, ok := m.Phases[to]; !ok {
				return fmt.Errorf("%s: %s -> %s targets an undeclared phase", m.Game, from, to)
			}
		}
		if spec.Timer > 0 && spec.Expire == nil && len(spec.Next) == 0 {
			return fmt.Errorf("%s: timed phase %s has nowhere to go", m.Game, from)
		}
	}

	for name, a := range m.Actions {
		if a.Handle == nil {
			return fmt.Errorf("%s: action %s has no handler", m.Game, name)
		}
		for _, p := range a.Phases {
			if _, ok := m.Phases[p]; !ok {
				return fmt.Errorf("%s: action %s names undeclared phase %s", m.Game, name, p)
			}
		}
	}

	return nil
}

type Kind int

const (
	KindGame Kind = iota
	KindChangePhase
	KindTick
)

// Action is one request against a room. Only the fields the named action reads
// need to be set.
type Action struct {
	Kind Kind   `json:"-"`
	Name string `json:"-"`

	ClientID string `json:"clientId"`
	Expect   Phase  `json:"expect,omitempty"`
	Phase    Phase  `json:"phase,omitempty"`

	ItemID   string  `json:"itemId,omitempty"`
	TargetID string  `json:"targetId,omitempty"`
	Text     string  `json:"text,omitempty"`
	Flag     bool    `json:"flag,omitempty"`
	Count    int     `json:"count,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

type Result struct {
	Phase  Phase    `json:"phase"`
	Events []string `json:"events"`
	Reply  any      `json:"reply,omitempty"`
}

// Scope is handed to every hook. It carries the room, the triggering action
// and collects emitted events, a requested transition and a reply.
type Scope struct {
	Room   *Room
	Action Action

	publish func(name string, payload any)
	next    Phase
	reply   any
}

func (s *Scope) Emit(name string, payload any) {
	s.publish(name, payload)
}

// Advance requests a transition once the hook returns. The last call wins.
func (s *Scope) Advance(p Phase) {
	s.next = p
}

func (s *Scope) Reply(v any) {
	s.reply = v
}
