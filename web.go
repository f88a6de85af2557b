/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/gamenight/events"
	"github.com/Seednode/gamenight/games"
	"github.com/Seednode/gamenight/session"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	logDate         string        = `2006-01-02T15:04:05.000-07:00`
	timeout         time.Duration = 10 * time.Second
	shutdownTimeout time.Duration = 5 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		started := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("gamenight v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "version", written, started)
	}
}

func newRouter(cfg *Config, m *session.Manager, lim *limiter, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error().
			Str("module", "http").
			Str("client", realIP(r)).
			Str("path", r.URL.Path).
			Interface("panic", i).
			Msg("handler panicked")

		writeJSON(cfg, w, http.StatusInternalServerError, problem{
			Error:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
		})
	}

	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(cfg, w, http.StatusNotFound, problem{
			Error:  http.StatusText(http.StatusNotFound),
			Status: http.StatusNotFound,
		})
	})

	mux.GET(cfg.prefix+"/", serveIndex(cfg, m))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerRoomRoutes(cfg, mux, m, lim, errs)

	return mux
}

func newManager(cfg *Config) (*session.Manager, error) {
	return session.NewManager(session.Options{
		Broker:        events.NewBroker(cfg.feedBuffer),
		DefaultGame:   session.Game(cfg.defaultGame),
		TickInterval:  cfg.tickInterval,
		PlayerTimeout: cfg.playerTimeout,
	}, games.All(games.Deps{})...)
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log.Info().Str("module", "server").Str("version", releaseVersion).Msg("starting gamenight")

	m, err := newManager(cfg)
	if err != nil {
		return err
	}

	lim := newLimiter(cfg.rateLimit, cfg.rateBurst)

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, m, lim, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("module", "server").
			Strs("games", gameNames(m.Games())).
			Msgf("listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	})

	g.Go(func() error {
		return m.Reaper(ctx, cfg.sessionTimeout)
	})

	g.Go(func() error {
		return lim.run(ctx, cfg.sessionTimeout)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-errs:
				log.Debug().Err(err).Str("module", "http").Msg("write failed")
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()

		// Rooms close first so open event streams return.
		m.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Str("module", "server").Msg("shutting down")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func gameNames(list []session.Game) []string {
	out := make([]string, len(list))
	for i, g := range list {
		out[i] = string(g)
	}

	return out
}
