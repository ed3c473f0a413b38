/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/partydeck/games/cards"
	"github.com/Seednode/partydeck/games/source"
)

func newTestServer(t *testing.T) (*httptest.Server, *GameManager, cards.Library) {
	t.Helper()

	cfg := validConfig()
	cfg.seed = 7

	fetcher := source.NewFetcher(cfg.fetchTimeout, 0, cfg.maxPayload)

	loaded, err := loadLibrary(context.Background(), cfg, fetcher)
	require.NoError(t, err)

	errs := make(chan error, 64)
	go logErrors(cfg, errs)
	t.Cleanup(func() { close(errs) })

	gm := newGameManager(0, loaded, fetcher, cfg.seed)

	srv := httptest.NewServer(newRouter(cfg, gm, errs))
	t.Cleanup(srv.Close)

	return srv, gm, loaded.Library
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestRoutes(t *testing.T) {
	srv, _, library := newTestServer(t)

	t.Run("version", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/version")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "partydeck v"+releaseVersion+"\n", body)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	})

	t.Run("healthz", func(t *testing.T) {
		_, body := get(t, srv.URL+"/healthz")
		assert.Equal(t, "Ok\n", body)
	})

	t.Run("home", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `href="/deck"`)
	})

	t.Run("robots", func(t *testing.T) {
		_, body := get(t, srv.URL+"/robots.txt")
		assert.Contains(t, body, "GPTBot")
	})

	t.Run("new game redirect", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/deck")
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Regexp(t, `^/deck/[A-Za-z0-9]{8}$`, resp.Header.Get("Location"))
	})

	t.Run("client page", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/deck/abcdefgh")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "app.js")
		assert.Contains(t, resp.Header.Get("Set-Cookie"), playerCookieName)
	})

	t.Run("assets", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/assets/deck/app.js")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/javascript")

		resp, _ = get(t, srv.URL+"/assets/deck/missing.js")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("favicons", func(t *testing.T) {
		resp, _ := get(t, srv.URL+"/favicons/favicon.svg")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	})

	t.Run("qr", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/deck/abcdefgh/qr")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(body, "\x89PNG"))
	})

	t.Run("themes", func(t *testing.T) {
		resp, body := get(t, srv.URL+"/deck/abcdefgh/themes")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var listing ThemeListMessage
		require.NoError(t, json.Unmarshal([]byte(body), &listing))
		assert.Equal(t, "themes", listing.Type)
		assert.Equal(t, source.OriginFallback, listing.Origin)
		assert.Equal(t, library.Themes.Counts(), listing.Themes)
	})
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, gameID string) *testConn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/deck/" + gameID + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testConn{t: t, conn: conn}
}

func (c *testConn) send(msg ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// expect reads until a message of the given type arrives.
func (c *testConn) expect(kind string) map[string]any {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var msg map[string]any
		require.NoError(c.t, c.conn.ReadJSON(&msg))
		if msg["type"] == kind {
			return msg
		}
	}
}

func TestWebSocketGame(t *testing.T) {
	srv, gm, library := newTestServer(t)

	host := dial(t, srv, "room0001")

	info := host.expect("session_info")
	assert.Equal(t, true, info["is_host"])
	assert.Equal(t, "room0001", info["game_id"])

	themes := host.expect("themes")
	assert.Len(t, themes["themes"], library.Themes.Len())

	state := host.expect("deck_state")
	assert.Equal(t, modeMenu, state["mode"])

	theme := library.Themes.Names()[0]
	size := len(library.Themes.Items(theme))

	host.send(ClientMessage{Type: "select_theme", Theme: theme})
	state = host.expect("deck_state")
	assert.Equal(t, theme, state["theme"])
	assert.EqualValues(t, size, state["remaining"])

	guest := dial(t, srv, "room0001")
	assert.Equal(t, false, guest.expect("session_info")["is_host"])
	state = guest.expect("deck_state")
	assert.Equal(t, theme, state["theme"])

	t.Run("draws reach every client", func(t *testing.T) {
		guest.send(ClientMessage{Type: "draw"})

		fromHost := host.expect("deck_state")
		fromGuest := guest.expect("deck_state")
		assert.Equal(t, fromHost["card"], fromGuest["card"])
		assert.EqualValues(t, size-1, fromHost["remaining"])
	})

	t.Run("only the host changes the deck", func(t *testing.T) {
		guest.send(ClientMessage{Type: "load_text", Text: "x\ny"})
		errMsg := guest.expect("error")
		assert.Contains(t, errMsg["message"], "host")

		host.send(ClientMessage{Type: "load_text", Text: "x\ny"})
		listing := guest.expect("themes")
		assert.Equal(t, string(source.OriginText), listing["origin"])
	})

	t.Run("sheet urls are validated", func(t *testing.T) {
		host.send(ClientMessage{Type: "load_sheet", URL: "file:///etc/passwd"})
		assert.NotEmpty(t, host.expect("error")["message"])
	})

	t.Run("truth prompt", func(t *testing.T) {
		host.send(ClientMessage{Type: "truth"})
		prompt := guest.expect("prompt")
		assert.Equal(t, "truth", prompt["kind"])
	})

	t.Run("fortune", func(t *testing.T) {
		host.send(ClientMessage{Type: "fortune"})
		fortune := host.expect("fortune")
		assert.NotEmpty(t, fortune["lucky_number"])
		assert.NotEmpty(t, fortune["verse"])
	})

	t.Run("reaper ends idle games", func(t *testing.T) {
		assert.Equal(t, 1, gm.reap(time.Now().Add(time.Hour)))

		_, ok := gm.lookup("room0001")
		assert.False(t, ok)
	})
}

func TestWebSocketLoadSheet(t *testing.T) {
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "Chủ đề,Câu hỏi\nVui,q1\nVui,q2\nBuồn,q3\n")
	}))
	t.Cleanup(sheet.Close)

	srv, _, _ := newTestServer(t)

	host := dial(t, srv, "room0002")
	host.expect("session_info")

	host.send(ClientMessage{Type: "load_sheet", URL: sheet.URL})

	listing := host.expect("themes")
	for listing["origin"] != string(source.OriginSheet) {
		listing = host.expect("themes")
	}

	assert.Equal(t, []any{
		map[string]any{"name": "Vui", "count": float64(2)},
		map[string]any{"name": "Buồn", "count": float64(1)},
	}, listing["themes"])
}
