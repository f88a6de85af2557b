/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session keeps the rooms of the server and runs each room's game
// through its declared phase table.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/turns"
	"github.com/rs/zerolog/log"
)

const codeAttempts = 64

type Options struct {
	Broker *events.Broker

	// DefaultGame is used when a room is created without naming a game.
	DefaultGame Game

	// TickInterval is the length of one countdown second.
	TickInterval time.Duration
	NewTicker    NewTicker

	// PlayerTimeout removes a disconnected player who has not come back,
	// while the room is still in its game's first phase. Zero disables it.
	PlayerTimeout time.Duration

	Rand turns.Rand
}

// Registry maps room ids to their actors. Its lock only guards the map; room
// state belongs to each actor.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*actor

	modules     map[Game]*Module
	defaultGame Game

	broker        *events.Broker
	interval      time.Duration
	newTicker     NewTicker
	playerTimeout time.Duration
	rand          turns.Rand
}

func NewRegistry(opts Options, modules ...*Module) (*Registry, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: no game modules", ErrUnknownGame)
	}

	r := &Registry{
		rooms:         make(map[string]*actor),
		modules:       make(map[Game]*Module, len(modules)),
		defaultGame:   opts.DefaultGame,
		broker:        opts.Broker,
		interval:      opts.TickInterval,
		newTicker:     opts.NewTicker,
		playerTimeout: opts.PlayerTimeout,
		rand:          opts.Rand,
	}

	for _, m := range modules {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.modules[m.Game]; dup {
			return nil, fmt.Errorf("duplicate game module %s", m.Game)
		}
		r.modules[m.Game] = m
	}

	if r.defaultGame == "" {
		r.defaultGame = modules[0].Game
	}
	if _, ok := r.modules[r.defaultGame]; !ok {
		return nil, fmt.Errorf("%w: default %s", ErrUnknownGame, r.defaultGame)
	}
	if r.broker == nil {
		r.broker = events.NewBroker(events.DefaultBuffer)
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	if r.newTicker == nil {
		r.newTicker = RealTicker
	}
	if r.rand == nil {
		r.rand = turns.CryptoRand{}
	}

	return r, nil
}

func (r *Registry) Broker() *events.Broker {
	return r.broker
}

// Games lists the registered games in name order.
func (r *Registry) Games() []Game {
	out := make([]Game, 0, len(r.modules))
	for g := range r.modules {
		out = append(out, g)
	}
	slices.Sort(out)

	return out
}

func (r *Registry) module(game Game) (*Module, error) {
	if game == "" {
		game = r.defaultGame
	}

	m, ok := r.modules[Game(strings.ToLower(string(game)))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, game)
	}

	return m, nil
}

func (r *Registry) lookup(id string) (*actor, error) {
	r.mu.RLock()
	a, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}

	return a, nil
}

// spawn must be called with r.mu held.
func (r *Registry) spawn(id string, m *Module) *actor {
	r.broker.Open(id)

	a := newActor(r, m, id)
	r.rooms[id] = a
	go a.run()

	log.Info().Str("module", "session").Str("room", id).Str("game", string(m.Game)).Msg("room created")

	return a
}

// Create makes room id in the game's first phase. An existing room is left as
// it is. The boolean reports whether a room was created.
func (r *Registry) Create(ctx context.Context, id string, game Game) (Snapshot, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Snapshot{}, false, fmt.Errorf("%w: empty room id", ErrBadRequest)
	}

	m, err := r.module(game)
	if err != nil {
		return Snapshot{}, false, err
	}

	r.mu.Lock()
	a, exists := r.rooms[id]
	if !exists {
		a = r.spawn(id, m)
	}
	r.mu.Unlock()

	snap, err := r.snapshot(ctx, a)

	return snap, !exists, err
}

// Open creates a room under a fresh four digit code.
func (r *Registry) Open(ctx context.Context, game Game) (Snapshot, error) {
	m, err := r.module(game)
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	code, ok := r.freeCode()
	var a *actor
	if ok {
		a = r.spawn(code, m)
	}
	r.mu.Unlock()

	if !ok {
		return Snapshot{}, fmt.Errorf("%w: no free room code", ErrNotPermitted)
	}

	return r.snapshot(ctx, a)
}

// NewCode returns a four digit code that no open room uses at the moment of
// the call.
func (r *Registry) NewCode() (string, error) {
	r.mu.RLock()
	code, ok := r.freeCode()
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: no free room code", ErrNotPermitted)
	}

	return code, nil
}

// freeCode must be called with r.mu held.
func (r *Registry) freeCode() (string, bool) {
	for range codeAttempts {
		code := fmt.Sprintf("%04d", r.rand.IntN(10000))
		if _, taken := r.rooms[code]; !taken {
			return code, true
		}
	}

	return "", false
}

func (r *Registry) snapshot(ctx context.Context, a *actor) (Snapshot, error) {
	var snap Snapshot
	err := a.do(ctx, func() error {
		snap = a.room.snapshot(a.module)

		return nil
	})

	return snap, err
}

func (r *Registry) Get(ctx context.Context, id string) (Snapshot, error) {
	a, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	return r.snapshot(ctx, a)
}

// AddPlayer registers clientID in the room. Joining again with the same id
// updates the nickname and keeps every other field.
func (r *Registry) AddPlayer(ctx context.Context, id, clientID, nickname string) (Player, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Player{}, fmt.Errorf("%w: empty client id", ErrBadRequest)
	}

	a, err := r.lookup(id)
	if err != nil {
		return Player{}, err
	}

	var p Player
	err = a.do(ctx, func() error {
		p = a.join(clientID, strings.TrimSpace(nickname))

		return nil
	})

	return p, err
}

func (r *Registry) RemovePlayer(ctx context.Context, id, clientID string) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}

	return a.do(ctx, func() error {
		return a.leave(clientID)
	})
}

// SetConnected records whether clientID has a live feed. When the last feed
// of a player goes away a removal is scheduled after the player timeout.
func (r *Registry) SetConnected(ctx context.Context, id, clientID string, connected bool) error {
	a, err := r.lookup(id)
	if err != nil {
		return err
	}

	if !connected && r.broker.Connected(id, clientID) {
		return nil
	}

	err = a.do(ctx, func() error {
		p, err := a.room.Player(clientID)
		if err != nil {
			return err
		}
		p.Connected = connected

		return nil
	})
	if err != nil || connected || r.playerTimeout <= 0 {
		return err
	}

	time.AfterFunc(r.playerTimeout, func() { r.expirePlayer(a, clientID) })

	return nil
}

func (r *Registry) expirePlayer(a *actor, clientID string) {
	if r.broker.Connected(a.room.ID, clientID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.do(ctx, func() error {
		p, ok := a.room.Players[clientID]
		if !ok || p.Connected || a.room.Phase != a.module.Initial {
			return nil
		}

		log.Info().Str("module", "session").Str("room", a.room.ID).Str("client", clientID).Msg("removing disconnected player")

		return a.leave(clientID)
	})
	if err != nil {
		log.Debug().Err(err).Str("module", "session").Str("room", a.room.ID).Str("client", clientID).Msg("player expiry skipped")
	}
}

// Close stops the room's actor and timers and ends every feed of the room.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	a, ok := r.rooms[id]
	delete(r.rooms, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}

	a.stop()
	r.broker.CloseRoom(id)

	log.Info().Str("module", "session").Str("room", id).Msg("room closed")

	return nil
}

// Reap closes every room idle since before cutoff and returns their ids.
func (r *Registry) Reap(cutoff time.Time) []string {
	r.mu.RLock()
	var idle []string
	for id, a := range r.rooms {
		if a.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	slices.Sort(idle)
	for _, id := range idle {
		_ = r.Close(id)
	}

	return idle
}

// Reaper closes rooms idle for longer than timeout until ctx ends.
func (r *Registry) Reaper(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		<-ctx.Done()

		return nil
	}

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if ids := r.Reap(now.Add(-timeout)); len(ids) > 0 {
				log.Info().Str("module", "session").Strs("rooms", ids).Msg("reaped idle rooms")
			}
		}
	}
}

// Len returns the number of open rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// Shutdown closes every room.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		_ = r.Close(id)
	}
}
