/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/session"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	playerCookieName = "gamenight_id"

	maxBodySize int64 = 64 << 10

	qrSize    = 320
	qrMinSize = 128
	qrMaxSize = 1024
)

type roomRequest struct {
	Game session.Game `json:"game"`
}

type joinRequest struct {
	ClientID string `json:"clientId"`
	Nickname string `json:"nickname"`
}

type leaveRequest struct {
	ClientID string `json:"clientId"`
}

type phaseRequest struct {
	Phase  session.Phase `json:"phase"`
	Expect session.Phase `json:"expect"`
}

type statsResponse struct {
	Rooms int `json:"rooms"`
	events.Stats
	MalformedFrames int64 `json:"malformedFrames"`
	Limiters        int   `json:"limiters"`
}

// apiHandler does the work of one endpoint. serveAPI writes whatever it
// returns.
type apiHandler func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error)

func serveAPI(cfg *Config, what string, h apiHandler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		started := time.Now()

		status, body, err := h(w, r, ps)
		if err != nil {
			writeError(cfg, w, r, err)

			return
		}

		written := writeJSON(cfg, w, status, body)

		logServe(r, what, written, started)
	}
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}

	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", session.ErrBadRequest, err)
	}

	return nil
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// clientOf picks the acting client: the id given in the request, otherwise
// the player cookie, unless the request speaks for the host.
func clientOf(r *http.Request, given string) string {
	if given != "" {
		return given
	}
	if events.ParseRole(r.URL.Query().Get("role")) == events.RoleHost {
		return ""
	}
	if c, err := r.Cookie(playerCookieName); err == nil {
		return c.Value
	}

	return ""
}

// limitKey names the bucket a request draws from. Host requests share one
// bucket per address.
func limitKey(r *http.Request, clientID string) string {
	if clientID != "" {
		return clientID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return "host@" + host
}

func serveOpenRoom(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any, error) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}

		snap, err := m.Open(r.Context(), req.Game)
		if err != nil {
			return 0, nil, err
		}

		return http.StatusCreated, snap, nil
	}
}

func serveCreateRoom(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}

		snap, created, err := m.Create(r.Context(), ps.ByName("room"), req.Game)
		if err != nil {
			return 0, nil, err
		}
		if created {
			return http.StatusCreated, snap, nil
		}

		return http.StatusOK, snap, nil
	}
}

func serveRoom(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		snap, err := m.Snapshot(r.Context(), ps.ByName("room"))

		return http.StatusOK, snap, err
	}
}

func serveCloseRoom(m *session.Manager, lim *limiter) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		room := ps.ByName("room")
		if err := m.Close(room); err != nil {
			return 0, nil, err
		}
		lim.forget(room)

		return http.StatusOK, map[string]string{"closed": room}, nil
	}
}

func serveJoin(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var req joinRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}
		if req.ClientID == "" {
			req.ClientID = getOrSetPlayerID(w, r)
		}

		p, err := m.AddPlayer(r.Context(), ps.ByName("room"), req.ClientID, req.Nickname)

		return http.StatusOK, p, err
	}
}

func serveLeave(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var req leaveRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}

		client := clientOf(r, req.ClientID)
		if client == "" {
			return 0, nil, fmt.Errorf("%w: missing client id", session.ErrBadRequest)
		}

		if err := m.RemovePlayer(r.Context(), ps.ByName("room"), client); err != nil {
			return 0, nil, err
		}

		return http.StatusOK, map[string]string{"left": client}, nil
	}
}

func serveStart(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}

		res, err := m.Start(r.Context(), ps.ByName("room"), req.Game)

		return http.StatusOK, res, err
	}
}

func servePhase(m *session.Manager, lim *limiter) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var req phaseRequest
		if err := decodeBody(r, &req); err != nil {
			return 0, nil, err
		}

		room := ps.ByName("room")
		if !lim.allow(room, limitKey(r, "")) {
			return 0, nil, errRateLimited
		}

		res, err := m.ChangePhase(r.Context(), room, req.Phase, req.Expect)

		return http.StatusOK, res, err
	}
}

func serveAction(m *session.Manager, lim *limiter) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		var act session.Action
		if err := decodeBody(r, &act); err != nil {
			return 0, nil, err
		}

		room := ps.ByName("room")
		act.Kind = session.KindGame
		act.Name = ps.ByName("action")
		act.ClientID = clientOf(r, act.ClientID)

		if !lim.allow(room, limitKey(r, act.ClientID)) {
			return 0, nil, errRateLimited
		}

		res, err := m.Apply(r.Context(), room, act)

		return http.StatusOK, res, err
	}
}

func servePrivate(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any, error) {
		out, err := m.Private(r.Context(), ps.ByName("room"), ps.ByName("client"))

		return http.StatusOK, out, err
	}
}

func serveGames(m *session.Manager) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any, error) {
		return http.StatusOK, map[string]any{"games": m.Games()}, nil
	}
}

func serveStats(m *session.Manager, lim *limiter) apiHandler {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any, error) {
		return http.StatusOK, statsResponse{
			Rooms:           m.Len(),
			Stats:           m.Broker().Stats(),
			MalformedFrames: malformedFrames.Load(),
			Limiters:        lim.len(),
		}, nil
	}
}

// joinURL is the address a phone opens to join room.
func joinURL(cfg *Config, r *http.Request, room string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/?room=" + url.QueryEscape(room)
}

func serveQR(cfg *Config, m *session.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		started := time.Now()

		room := ps.ByName("room")
		if _, err := m.Snapshot(r.Context(), room); err != nil {
			writeError(cfg, w, r, err)

			return
		}

		size := qrSize
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < qrMinSize || n > qrMaxSize {
				writeError(cfg, w, r, fmt.Errorf("%w: size must be between %d and %d", session.ErrBadRequest, qrMinSize, qrMaxSize))

				return
			}
			size = n
		}

		png, err := qrcode.Encode(joinURL(cfg, r, room), qrcode.Medium, size)
		if err != nil {
			writeError(cfg, w, r, err)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		log.Debug().Str("module", "http").Str("room", room).Int("size", size).Msg("rendered join code")
		logServe(r, "QR code", written, started)
	}
}

func registerRoomRoutes(cfg *Config, mux *httprouter.Router, m *session.Manager, lim *limiter, errs chan<- error) {
	api := cfg.prefix + "/api/v1"

	mux.GET(api+"/games", serveAPI(cfg, "games", serveGames(m)))
	mux.GET(api+"/stats", serveAPI(cfg, "stats", serveStats(m, lim)))

	mux.POST(api+"/rooms", serveAPI(cfg, "new room", serveOpenRoom(m)))
	mux.PUT(api+"/rooms/:room", serveAPI(cfg, "room", serveCreateRoom(m)))
	mux.GET(api+"/rooms/:room", serveAPI(cfg, "snapshot", serveRoom(m)))
	mux.DELETE(api+"/rooms/:room", serveAPI(cfg, "room close", serveCloseRoom(m, lim)))

	mux.POST(api+"/rooms/:room/join", serveAPI(cfg, "join", serveJoin(m)))
	mux.POST(api+"/rooms/:room/leave", serveAPI(cfg, "leave", serveLeave(m)))
	mux.POST(api+"/rooms/:room/start", serveAPI(cfg, "start", serveStart(m)))
	mux.POST(api+"/rooms/:room/phase", serveAPI(cfg, "phase change", servePhase(m, lim)))
	mux.POST(api+"/rooms/:room/actions/:action", serveAPI(cfg, "action", serveAction(m, lim)))
	mux.GET(api+"/rooms/:room/private/:client", serveAPI(cfg, "private view", servePrivate(m)))

	mux.GET(api+"/rooms/:room/events", serveEvents(cfg, m, errs))
	mux.GET(api+"/rooms/:room/ws", serveSocket(cfg, m, lim))
	mux.GET(api+"/rooms/:room/qr", serveQR(cfg, m, errs))
}
