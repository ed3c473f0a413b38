/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partydeck/games/cards"
	"github.com/Seednode/partydeck/games/source"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
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
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("partydeck v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func loadFallback(cfg *Config) (cards.Library, error) {
	if cfg.fallbackFile != "" {
		library, err := cards.LoadFallbackFile(cfg.fallbackFile)
		if err != nil {
			return cards.Library{}, err
		}

		logf(cfg, "FETCH: Offline cards read from %s", cfg.fallbackFile)

		return library, nil
	}

	fb, err := cards.DefaultFallback()
	if err != nil {
		return cards.Library{}, err
	}

	return fb.Library(), nil
}

// loadLibrary fetches the configured sheet once. Any mode the sheet cannot
// fill uses the offline cards, so the server always starts.
func loadLibrary(ctx context.Context, cfg *Config, fetcher *source.Fetcher) (source.Loaded, error) {
	fallback, err := loadFallback(cfg)
	if err != nil {
		return source.Loaded{}, err
	}

	startTime := time.Now()

	loadCtx, cancel := context.WithTimeout(ctx, cfg.fetchTimeout)
	defer cancel()

	loaded := source.Load(loadCtx, fetcher, cfg.sheetURL, fallback)

	if cfg.sheetURL != "" && loaded.Result.Bytes > 0 {
		logf(cfg, "FETCH: Read %s from %s in %s",
			humanReadableSize(loaded.Result.Bytes),
			cfg.sheetURL,
			time.Since(startTime).Round(time.Microsecond),
		)
	}

	if err := loaded.Err(); err != nil {
		logf(cfg, "FETCH: Using offline cards: %v", err)
	}

	if loaded.Fatal() {
		logf(cfg, "FETCH: Every game mode is using offline cards")
	}

	for _, kind := range []cards.Kind{cards.Classic, cards.TruthOrDare, cards.Fortune} {
		logf(cfg, "FETCH: %s cards from %s", kind, loaded.Origins[kind])
	}

	logf(cfg, "FETCH: %d themes (%d cards), %d truths, %d dares, %d fortunes",
		loaded.Library.Themes.Len(),
		loaded.Library.Themes.Size(),
		len(loaded.Library.Dual.Truth),
		len(loaded.Library.Dual.Dare),
		len(loaded.Library.Fortunes),
	)

	return loaded, nil
}

func newRouter(cfg *Config, gm *GameManager, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerDeckGame(cfg, "/deck", mux, gm, errs)

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: partydeck v%s", releaseVersion)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	fetcher := source.NewFetcher(cfg.fetchTimeout, cfg.fetchInterval, cfg.maxPayload)

	loaded, err := loadLibrary(ctx, cfg, fetcher)
	if err != nil {
		return err
	}

	errs := make(chan error, 64)
	go logErrors(cfg, errs)

	gm := newGameManager(cfg.sessionTimeout, loaded, fetcher, cfg.seed)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, gm, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	go func() {
		var err error
		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
