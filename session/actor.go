/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/rs/zerolog/log"
)

// maxChain bounds how many Enter hooks may advance in a row.
const maxChain = 4

// actor owns one room. Every read and write of the room happens on its
// goroutine, in the order requests arrive.
type actor struct {
	room   *Room
	module *Module
	reg    *Registry

	inbox chan func()
	done  chan struct{}
	once  sync.Once

	ticker Ticker
	tickC  <-chan time.Time

	lastActive atomic.Int64

	// names published during the current request
	emitted []string
}

func newActor(reg *Registry, m *Module, id string) *actor {
	a := &actor{
		room:   newRoom(id, m.Game, m.Initial),
		module: m,
		reg:    reg,
		inbox:  make(chan func(), 32),
		done:   make(chan struct{}),
	}
	a.room.State = m.NewState(a.room)
	a.lastActive.Store(a.room.LastActive.UnixNano())

	return a
}

func (a *actor) run() {
	defer a.stopTimer()

	for {
		select {
		case <-a.done:
			return
		case job := <-a.inbox:
			job()
		case <-a.tickC:
			a.safely(func() error {
				a.emitted = nil
				a.tick()

				return nil
			})
		}
	}
}

func (a *actor) stop() {
	a.once.Do(func() { close(a.done) })
}

// do runs fn on the actor goroutine and waits for its result.
func (a *actor) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	job := func() {
		a.emitted = nil
		errc <- a.safely(fn)
	}

	select {
	case a.inbox <- job:
	case <-a.done:
		return fmt.Errorf("%w: %s", ErrRoomClosed, a.room.ID)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-a.done:
		return fmt.Errorf("%w: %s", ErrRoomClosed, a.room.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// safely turns a panic in room code into an error for the caller. The actor
// and every other room keep running.
func (a *actor) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "session").
				Str("room", a.room.ID).
				Str("phase", string(a.room.Phase)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("recovered room panic")

			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	return fn()
}

func (a *actor) touch() {
	now := time.Now()
	a.room.LastActive = now
	a.lastActive.Store(now.UnixNano())
}

func (a *actor) idleSince() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

func (a *actor) publish(name string, payload any) {
	_, res := a.reg.broker.Publish(a.room.ID, name, payload)
	a.emitted = append(a.emitted, name)

	if res.Dropped > 0 {
		log.Debug().Str("module", "session").Str("room", a.room.ID).Str("event", name).Int("dropped", res.Dropped).Msg("event not delivered to every feed")
	}
}

func (a *actor) scope(act Action) *Scope {
	return &Scope{Room: a.room, Action: act, publish: a.publish}
}

func (a *actor) stopTimer() {
	if a.ticker != nil {
		a.ticker.Stop()
	}
	a.ticker = nil
	a.tickC = nil
}

func (a *actor) checkExpect(expect Phase) error {
	if expect != "" && expect != a.room.Phase {
		return fmt.Errorf("%w: expected %s, room %s is in %s", ErrStalePhase, expect, a.room.ID, a.room.Phase)
	}

	return nil
}

// transition moves along a declared edge. Manual moves consult the target's
// guard first.
func (a *actor) transition(to Phase, manual bool) error {
	from := a.room.Phase
	if !a.module.Allows(from, to) {
		return fmt.Errorf("%w: %s -> %s in %s", ErrInvalidTransition, from, to, a.module.Game)
	}

	if spec := a.module.Phases[to]; manual && spec.Guard != nil {
		if err := spec.Guard(a.scope(Action{Kind: KindChangePhase, Phase: to})); err != nil {
			return err
		}
	}

	a.enter(to, 0)

	return nil
}

// enter sets the phase unconditionally. Callers have already checked the edge.
func (a *actor) enter(to Phase, depth int) {
	spec := a.module.Phases[to]

	a.stopTimer()
	a.room.Phase = to
	a.room.Remaining = 0
	if spec.Timer > 0 {
		a.room.Remaining = max(1, int(spec.Timer/time.Second))
		a.ticker = a.reg.newTicker(a.reg.interval)
		a.tickC = a.ticker.C()
	}

	log.Debug().Str("module", "session").Str("room", a.room.ID).Str("game", string(a.room.Game)).Str("phase", string(to)).Int("remaining", a.room.Remaining).Msg("phase entered")

	a.publish(events.PhaseChanged, map[string]any{
		"phase":     to,
		"remaining": a.room.Remaining,
	})

	if spec.Enter == nil {
		return
	}

	s := a.scope(Action{})
	spec.Enter(s)
	a.follow(to, s.next, depth)
}

func (a *actor) follow(from, next Phase, depth int) {
	if next == "" {
		return
	}

	if depth >= maxChain || !a.module.Allows(from, next) {
		log.Error().Str("module", "session").Str("room", a.room.ID).Str("from", string(from)).Str("to", string(next)).Int("depth", depth).Msg("refused chained transition")

		return
	}

	a.enter(next, depth+1)
}

// tick counts the running timer down by one. At zero the phase's expiry edge
// is taken regardless of guards.
func (a *actor) tick() {
	if a.room.Remaining <= 0 {
		a.stopTimer()

		return
	}

	a.room.Remaining--
	a.publish(events.TimerTick, map[string]any{
		"phase":            a.room.Phase,
		"secondsRemaining": a.room.Remaining,
	})

	if a.room.Remaining > 0 {
		return
	}
	a.stopTimer()

	from := a.room.Phase
	spec := a.module.Phases[from]

	var to Phase
	switch {
	case spec.Expire != nil:
		to = spec.Expire(a.scope(Action{Kind: KindTick}))
	case len(spec.Next) > 0:
		to = spec.Next[0]
	}

	if to == "" || !a.module.Allows(from, to) {
		log.Error().Str("module", "session").Str("room", a.room.ID).Str("from", string(from)).Str("to", string(to)).Msg("timer expired without a declared edge")

		return
	}

	log.Debug().Str("module", "session").Str("room", a.room.ID).Str("from", string(from)).Str("to", string(to)).Msg("timer expired")

	a.enter(to, 0)
}

func (a *actor) apply(act Action) (Result, error) {
	var reply any

	switch act.Kind {
	case KindChangePhase:
		if err := a.checkExpect(act.Expect); err != nil {
			return Result{}, err
		}
		if act.Phase == "" {
			return Result{}, fmt.Errorf("%w: missing target phase", ErrBadRequest)
		}
		if err := a.transition(act.Phase, true); err != nil {
			return Result{}, err
		}

	case KindTick:
		if err := a.checkExpect(act.Expect); err != nil {
			return Result{}, err
		}
		if a.room.Remaining <= 0 {
			return Result{}, fmt.Errorf("%w: no timer running in %s", ErrStalePhase, a.room.Phase)
		}
		a.tick()

	case KindGame:
		spec, ok := a.module.Actions[act.Name]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s for %s", ErrUnknownAction, act.Name, a.module.Game)
		}
		if err := a.checkExpect(act.Expect); err != nil {
			return Result{}, err
		}
		if len(spec.Phases) > 0 && !slices.Contains(spec.Phases, a.room.Phase) {
			return Result{}, fmt.Errorf("%w: %s is not accepted in %s", ErrStalePhase, act.Name, a.room.Phase)
		}
		if spec.Member && !a.room.Has(act.ClientID) {
			return Result{}, fmt.Errorf("%w: %s in room %s", ErrPlayerNotFound, act.ClientID, a.room.ID)
		}

		s := a.scope(act)
		if err := spec.Handle(s); err != nil {
			return Result{}, err
		}
		reply = s.reply

		switch {
		case s.next == "":
		case a.module.Allows(a.room.Phase, s.next):
			a.enter(s.next, 0)
		default:
			log.Error().Str("module", "session").Str("room", a.room.ID).Str("action", act.Name).Str("from", string(a.room.Phase)).Str("to", string(s.next)).Msg("action requested undeclared transition")
		}

	default:
		return Result{}, fmt.Errorf("%w: unknown action kind %d", ErrBadRequest, act.Kind)
	}

	a.touch()

	return Result{Phase: a.room.Phase, Events: a.emitted, Reply: reply}, nil
}

// start resets the room for module m and enters its first phase.
func (a *actor) start(m *Module) error {
	if m.CanStart != nil {
		if err := m.CanStart(a.room); err != nil {
			return err
		}
	}

	prev := a.room.Game

	a.stopTimer()
	a.module = m
	a.room.Game = m.Game
	for _, p := range a.room.Players {
		p.reset()
	}
	a.room.State = m.NewState(a.room)

	if prev != m.Game {
		a.publish(events.GameChanged, map[string]any{"game": m.Game})
	}

	log.Info().Str("module", "session").Str("room", a.room.ID).Str("game", string(m.Game)).Int("players", a.room.Count()).Msg("game started")

	a.enter(m.Initial, 0)
	a.touch()

	return nil
}

func (a *actor) join(clientID, nickname string) Player {
	p, created := a.room.add(clientID, nickname)
	a.publish(events.PlayerJoined, map[string]any{
		"clientId": p.ClientID,
		"nickname": p.Nickname,
		"rejoin":   !created,
	})
	a.touch()

	return *p
}

func (a *actor) leave(clientID string) error {
	if _, err := a.room.Player(clientID); err != nil {
		return err
	}

	a.room.remove(clientID)
	a.publish(events.PlayerLeft, map[string]any{"clientId": clientID})

	if a.module.Leave != nil {
		s := a.scope(Action{ClientID: clientID})
		a.module.Leave(s, clientID)
		if s.next != "" && a.module.Allows(a.room.Phase, s.next) {
			a.enter(s.next, 0)
		}
	}
	a.touch()

	return nil
}
