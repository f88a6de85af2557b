/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(cfg *Config) {
	zerolog.TimeFieldFormat = logDate

	var out io.Writer = os.Stderr
	if cfg.logFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: logDate}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

var sizeUnits = [...]string{"B", "kB", "MB", "GB"}

// payloadSize renders a response body length in decimal units.
func payloadSize(n int) string {
	size, i := float64(n), 0
	for size >= 1000 && i < len(sizeUnits)-1 {
		size /= 1000
		i++
	}
	if i == 0 {
		return strconv.Itoa(n) + " B"
	}

	return strconv.FormatFloat(size, 'f', 1, 64) + " " + sizeUnits[i]
}

// logServe records a completed request at debug level.
func logServe(r *http.Request, what string, written int, started time.Time) {
	log.Debug().
		Str("module", "http").
		Str("client", realIP(r)).
		Str("size", payloadSize(written)).
		Dur("elapsed", time.Since(started).Round(time.Microsecond)).
		Msg("served " + what)
}
