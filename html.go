/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/parlor/internal/session"
)

func homePage(cfg *Config, player session.PlayerID) string {
	var body strings.Builder

	body.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	body.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	body.WriteString(`<style>body{font-family:Georgia,serif;background:#1b1411;color:#eadbc8;max-width:48rem;margin:2rem auto;padding:0 1rem;}`)
	body.WriteString(`a{color:#d9a45b;}figure{display:inline-block;margin:1rem;text-align:center;}code{color:#d9a45b;}</style>`)
	body.WriteString(`<title>Parlor</title></head><body>`)
	body.WriteString(`<h1>The Hartwell Case</h1>`)

	if player != "" {
		seat := "Player 1"
		if player == session.Player2 {
			seat = "Player 2"
		}
		body.WriteString(fmt.Sprintf(`<p>This device is seated as <strong>%s</strong>. Keep it open while Mrs. Hartwell speaks.</p>`, seat))
		body.WriteString(fmt.Sprintf(`<p>Speak through <code>POST %s/api/game/player-input</code> with <code>{"playerId":"%s"}</code>.</p>`,
			html.EscapeString(cfg.prefix), player))
	} else {
		body.WriteString(`<p>Each detective scans their code to take a seat at the table.</p>`)
		for _, p := range []session.PlayerID{session.Player1, session.Player2} {
			body.WriteString(fmt.Sprintf(`<figure><img src="%s/qr/%s" width="%d" height="%d" alt="Join as %s"><figcaption><a href="%s/?player=%s">%s</a></figcaption></figure>`,
				html.EscapeString(cfg.prefix), p, qrSize, qrSize, p, html.EscapeString(cfg.prefix), p, p))
		}
	}

	body.WriteString(fmt.Sprintf(`<p>Table <code>%s</code> streams over <code>%s/ws</code> and <code>%s/events</code>.</p>`,
		html.EscapeString(cfg.table), html.EscapeString(cfg.prefix), html.EscapeString(cfg.prefix)))
	body.WriteString(`</body></html>`)

	return body.String()
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		player := seat(r)
		if player != "" {
			setSeat(w, player)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")

		written, err := w.Write([]byte(homePage(cfg, player)))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /api/
Disallow: /qr/

User-agent: CCBot
Disallow: /

User-agent: GPTBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
