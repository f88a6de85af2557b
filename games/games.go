/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package games declares the phase tables of every game the server hosts.
//
// Each game is a session.Module: a map of phases with their allowed
// successors, timers, guards and entry hooks, plus the actions players and
// hosts may send. None of them hold goroutines or locks; the session engine
// runs every hook on the owning room's actor.
package games

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/turns"
)

const (
	GameMarble session.Game = "marble"
	GameMafia  session.Game = "mafia"
	GameTruth  session.Game = "truth"
	GameQuiz   session.Game = "quiz"
	GameLiar   session.Game = "liar"
)

// Deps are the collaborators the games draw randomness and content from.
type Deps struct {
	Rand     turns.Rand
	Dice     turns.Dice
	Words    WordSource
	Keywords WordSource
	Scorer   Scorer
}

func (d Deps) withDefaults() Deps {
	if d.Rand == nil {
		d.Rand = turns.CryptoRand{}
	}
	if d.Dice == nil {
		d.Dice = turns.SixSided{R: d.Rand}
	}
	if d.Words == nil {
		d.Words = QuizWords
	}
	if d.Keywords == nil {
		d.Keywords = LiarWords
	}
	if d.Scorer == nil {
		d.Scorer = StressThreshold{Threshold: DefaultLieThreshold}
	}

	return d
}

// All returns every game module, Marble first.
func All(d Deps) []*session.Module {
	d = d.withDefaults()

	return []*session.Module{
		Marble(d),
		Mafia(d),
		Truth(d),
		Quiz(d),
		Liar(d),
	}
}

func stateOf[T any](r *session.Room) *T {
	st, ok := r.State.(*T)
	if !ok {
		panic(fmt.Sprintf("room %s holds %T, not %T", r.ID, r.State, st))
	}

	return st
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", session.ErrBadRequest, fmt.Sprintf(format, args...))
}

func notPermitted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", session.ErrNotPermitted, fmt.Sprintf(format, args...))
}

func minPlayers(n int) func(r *session.Room) error {
	return func(r *session.Room) error {
		if r.Count() < n {
			return notPermitted("%s needs at least %d players, room %s has %d", r.Game, n, r.ID, r.Count())
		}

		return nil
	}
}

func pick[T any](r turns.Rand, list []T) T {
	return list[r.IntN(len(list))]
}

// teamPayload is the public shape of a team assignment.
func teamPayload(r *session.Room) map[string][]string {
	out := make(map[string][]string)
	for _, p := range r.Roster() {
		if p.Team != "" {
			out[p.Team] = append(out[p.Team], p.ClientID)
		}
	}

	return out
}

// teamActions are shared by every game with a team setup phase.
func teamActions(phase session.Phase, rnd turns.Rand, teamsOf func(r *session.Room) *turns.Teams) map[string]session.ActionSpec {
	publish := func(s *session.Scope, t *turns.Teams) {
		for _, p := range s.Room.Roster() {
			p.Team = t.Of(p.ClientID)
		}
		s.Emit(events.TeamUpdate, map[string]any{"teams": teamPayload(s.Room)})
	}

	return map[string]session.ActionSpec{
		"divide-teams": {
			Phases: []session.Phase{phase},
			Handle: func(s *session.Scope) error {
				n := s.Action.Count
				if n == 0 {
					n = 2
				}

				var (
					groups map[string][]string
					err    error
				)
				switch s.Action.Mode {
				case "", "random":
					groups, err = turns.DivideRandom(s.Room.IDs(), n, rnd)
				case "ladder":
					groups, err = turns.DivideLadder(s.Room.IDs(), n, rnd)
				default:
					return badRequest("unknown division mode %q", s.Action.Mode)
				}
				if err != nil {
					return fmt.Errorf("%w: %w", session.ErrBadRequest, err)
				}

				t := teamsOf(s.Room)
				t.Load(groups)
				publish(s, t)
				s.Reply(groups)

				return nil
			},
		},
		"select-team": {
			Phases: []session.Phase{phase},
			Handle: func(s *session.Scope) error {
				target := s.Action.TargetID
				if target == "" {
					target = s.Action.ClientID
				}
				if !s.Room.Has(target) {
					return fmt.Errorf("%w: %s", session.ErrPlayerNotFound, target)
				}

				t := teamsOf(s.Room)
				if err := t.Set(target, s.Action.Text); err != nil {
					return fmt.Errorf("%w: %w", session.ErrBadRequest, err)
				}
				publish(s, t)

				return nil
			},
		},
		"reset-teams": {
			Phases: []session.Phase{phase},
			Handle: func(s *session.Scope) error {
				t := teamsOf(s.Room)
				t.Reset()
				publish(s, t)

				return nil
			},
		},
	}
}

func merge(sets ...map[string]session.ActionSpec) map[string]session.ActionSpec {
	out := make(map[string]session.ActionSpec)
	for _, set := range sets {
		maps.Copy(out, set)
	}

	return out
}

// isActor reports whether the request comes from clientID, or from the host
// (which sends no client id).
func isActor(s *session.Scope, clientID string) bool {
	return s.Action.ClientID == "" || s.Action.ClientID == clientID
}

func alivePlayer(r *session.Room, id string) error {
	p, err := r.Player(id)
	if err != nil {
		return err
	}
	if !p.Alive {
		return notPermitted("%s is out of the game", id)
	}

	return nil
}

func without(ids []string, drop string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == drop })
}
