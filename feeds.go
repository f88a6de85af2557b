/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/gin-contrib/sse"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	keepAlive  = 15 * time.Second
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxFrameSize = 64 << 10
	retryAfter   = 3000
)

// malformedFrames counts inbound websocket frames that could not be used.
var malformedFrames atomic.Int64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// feedIdentity reads who is listening from the query, falling back to the
// player cookie. A player feed must name its client.
func feedIdentity(ctx context.Context, m *session.Manager, r *http.Request, room string) (events.Role, string, error) {
	if _, err := m.Snapshot(ctx, room); err != nil {
		return "", "", err
	}

	q := r.URL.Query()
	role := events.ParseRole(q.Get("role"))

	client := q.Get("clientId")
	if client == "" && role == events.RolePlayer {
		client = clientOf(r, "")
		if client == "" {
			return "", "", fmt.Errorf("%w: player feed needs a clientId", session.ErrBadRequest)
		}
	}

	return role, client, nil
}

// subscribe opens a feed and marks the player connected. The returned func
// undoes both.
func subscribe(ctx context.Context, m *session.Manager, room string, role events.Role, client string) (*events.Feed, func()) {
	feed := m.Broker().Subscribe(room, role, client)

	track := role == events.RolePlayer
	if track {
		if err := m.SetConnected(ctx, room, client, true); err != nil {
			log.Debug().Err(err).Str("module", "feeds").Str("room", room).Str("client", client).Msg("feed opened before join")
		}
	}

	done := func() {
		feed.Close()

		if !track {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := m.SetConnected(ctx, room, client, false); err != nil {
			log.Debug().Err(err).Str("module", "feeds").Str("room", room).Str("client", client).Msg("disconnect not recorded")
		}
	}

	return feed, done
}

func serveEvents(cfg *Config, m *session.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := ps.ByName("room")

		role, client, err := feedIdentity(r.Context(), m, r, room)
		if err != nil {
			writeError(cfg, w, r, err)

			return
		}

		feed, done := subscribe(r.Context(), m, room, role, client)
		defer done()

		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		if err := sse.Encode(w, sse.Event{Event: "ready", Retry: retryAfter, Data: map[string]string{"room": room, "feed": feed.ID()}}); err != nil {
			errs <- err

			return
		}
		_ = rc.Flush()

		log.Debug().Str("module", "feeds").Str("room", room).Str("feed", feed.String()).Str("client", realIP(r)).Msg("event stream opened")

		ping := time.NewTicker(keepAlive)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-feed.C():
				if !ok {
					return
				}

				err := sse.Encode(w, sse.Event{
					Event: ev.Name,
					Id:    strconv.FormatUint(ev.Seq, 10),
					Data:  ev,
				})
				if err != nil {
					errs <- err

					return
				}
			case <-ping.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
			}

			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// frame is one inbound websocket message. Only "action" and "phase" frames
// are understood.
type frame struct {
	Type string `json:"type"`
	Name string `json:"action"`
	session.Action
}

type reply struct {
	Type   string          `json:"type"`
	Action string          `json:"action,omitempty"`
	Result *session.Result `json:"result,omitempty"`
	Event  *events.Event   `json:"event,omitempty"`
	Error  *problem        `json:"error,omitempty"`
}

type socketClient struct {
	conn   *websocket.Conn
	send   chan reply
	room   string
	client string
	role   events.Role
}

func (c *socketClient) queue(msg reply) {
	select {
	case c.send <- msg:
	default:
		log.Debug().Str("module", "feeds").Str("room", c.room).Str("client", c.client).Str("type", msg.Type).Msg("socket reply dropped")
	}
}

func malformed(c *socketClient, why string, err error) {
	malformedFrames.Add(1)

	log.Warn().Err(err).
		Str("module", "feeds").
		Str("room", c.room).
		Str("client", c.client).
		Msg("dropped malformed frame: " + why)

	c.queue(reply{Type: "error", Error: &problem{Error: why, Status: http.StatusBadRequest}})
}

// handle applies one frame. The host may act on behalf of any client; a player
// always acts as itself.
func (c *socketClient) handle(ctx context.Context, m *session.Manager, lim *limiter, f frame) {
	act := f.Action
	if c.role == events.RolePlayer || act.ClientID == "" {
		act.ClientID = c.client
	}

	switch f.Type {
	case "action":
		if f.Name == "" {
			malformed(c, "action without a name", nil)

			return
		}
		act.Kind = session.KindGame
		act.Name = f.Name
	case "phase":
		if c.role != events.RoleHost {
			c.queue(reply{Type: "error", Error: &problem{Error: session.ErrNotPermitted.Error(), Status: http.StatusForbidden}})

			return
		}
		act.Kind = session.KindChangePhase
	default:
		malformed(c, fmt.Sprintf("unknown frame type %q", f.Type), nil)

		return
	}

	var (
		res session.Result
		err error
	)
	if lim.allow(c.room, socketKey(c.client, c.role)) {
		res, err = m.Apply(ctx, c.room, act)
	} else {
		err = errRateLimited
	}

	if err != nil {
		status := statusOf(err)
		c.queue(reply{Type: "error", Action: f.Name, Error: &problem{Error: err.Error(), Status: status}})

		return
	}

	c.queue(reply{Type: "result", Action: f.Name, Result: &res})
}

func socketKey(client string, role events.Role) string {
	if client == "" {
		return "host@" + string(role)
	}

	return client
}

func (c *socketClient) readPump(ctx context.Context, m *session.Manager, lim *limiter) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			malformed(c, "binary frames are not accepted", nil)

			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			malformed(c, "frame is not valid json", err)

			continue
		}

		c.handle(ctx, m, lim, f)
	}
}

func (c *socketClient) writePump(feed *events.Feed, stop <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(v any) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		return c.conn.WriteJSON(v)
	}

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-feed.C():
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"),
					time.Now().Add(writeWait))

				return
			}
			if err := write(reply{Type: "event", Event: &ev}); err != nil {
				return
			}
		case msg := <-c.send:
			if err := write(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func serveSocket(cfg *Config, m *session.Manager, lim *limiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := ps.ByName("room")

		role, client, err := feedIdentity(r.Context(), m, r, room)
		if err != nil {
			writeError(cfg, w, r, err)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("module", "feeds").Str("room", room).Msg("upgrade failed")

			return
		}
		defer conn.Close()

		// The request context ends with the handler, not the connection.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed, done := subscribe(ctx, m, room, role, client)
		defer done()

		c := &socketClient{
			conn:   conn,
			send:   make(chan reply, 8),
			room:   room,
			client: feed.ClientID(),
			role:   feed.Role(),
		}

		log.Debug().Str("module", "feeds").Str("room", room).Str("feed", feed.String()).Str("client", realIP(r)).Msg("socket opened")

		stop := make(chan struct{})
		go func() {
			defer close(stop)
			c.readPump(ctx, m, lim)
		}()

		c.writePump(feed, stop)
	}
}
