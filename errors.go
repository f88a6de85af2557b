/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Seednode/gamenight/session"
	"github.com/Seednode/gamenight/votes"
	"github.com/rs/zerolog/log"
)

var errRateLimited = errors.New("rate limited")

type problem struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrRoomNotFound),
		errors.Is(err, session.ErrPlayerNotFound),
		errors.Is(err, votes.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRoomClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrStalePhase):
		return http.StatusConflict
	case errors.Is(err, session.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, session.ErrBadRequest),
		errors.Is(err, session.ErrUnknownGame),
		errors.Is(err, session.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	ev := log.Debug()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("module", "http").
		Str("client", realIP(r)).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}

	writeJSON(cfg, w, status, problem{Error: msg, Status: status})
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) int {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "http").Msg("encoding response")

		body = []byte(`{"error":"Internal Server Error","status":500}`)
		status = http.StatusInternalServerError
	}
	body = append(body, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	written, _ := w.Write(body)

	return written
}
