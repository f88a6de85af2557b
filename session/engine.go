/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
)

// Manager is the single authority over every room's phase. It validates
// actions against the room's game table, applies them on the room's actor and
// publishes the resulting events.
type Manager struct {
	*Registry
}

func NewManager(opts Options, modules ...*Module) (*Manager, error) {
	reg, err := NewRegistry(opts, modules...)
	if err != nil {
		return nil, err
	}

	return &Manager{Registry: reg}, nil
}

// Apply runs one action against a room. On error the room is unchanged.
func (m *Manager) Apply(ctx context.Context, roomID string, act Action) (Result, error) {
	a, err := m.lookup(roomID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = a.do(ctx, func() error {
		var err error
		res, err = a.apply(act)

		return err
	})

	return res, err
}

// ChangePhase is an explicit host transition. An empty expect skips the stale
// check.
func (m *Manager) ChangePhase(ctx context.Context, roomID string, to, expect Phase) (Result, error) {
	return m.Apply(ctx, roomID, Action{Kind: KindChangePhase, Phase: to, Expect: expect})
}

// Start (re)initialises the room for game from its current roster and enters
// the game's first phase. An empty game restarts the current one.
func (m *Manager) Start(ctx context.Context, roomID string, game Game) (Result, error) {
	a, err := m.lookup(roomID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = a.do(ctx, func() error {
		g := game
		if g == "" {
			g = a.room.Game
		}

		mod, err := m.module(g)
		if err != nil {
			return err
		}
		if err := a.start(mod); err != nil {
			return err
		}
		res = Result{Phase: a.room.Phase, Events: a.emitted}

		return nil
	})

	return res, err
}

func (m *Manager) Snapshot(ctx context.Context, roomID string) (Snapshot, error) {
	return m.Get(ctx, roomID)
}

// Private returns what only clientID may see, such as a secret role or word.
func (m *Manager) Private(ctx context.Context, roomID, clientID string) (any, error) {
	a, err := m.lookup(roomID)
	if err != nil {
		return nil, err
	}

	var out any
	err = a.do(ctx, func() error {
		if _, err := a.room.Player(clientID); err != nil {
			return err
		}
		if a.module.Private != nil {
			out = a.module.Private(a.room, clientID)
		}

		return nil
	})

	return out, err
}
