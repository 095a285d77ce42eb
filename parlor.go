/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/parlor/internal/broadcast"
	"github.com/Seednode/parlor/internal/game"
	"github.com/Seednode/parlor/internal/model"
	"github.com/Seednode/parlor/internal/narrator"
	"github.com/Seednode/parlor/internal/session"
)

const (
	maxBodySize      = 64 << 10
	playerCookieName = "parlor_player"
	qrSize           = 320
)

type parlor struct {
	cfg  *Config
	game *game.Game
	hub  *broadcast.Hub
	errs chan<- error
}

func newGenerator(cfg *Config) narrator.Generator {
	switch cfg.resolvedBackend() {
	case backendAnthropic:
		return model.NewAnthropic(model.AnthropicConfig{
			APIKey:    cfg.anthropicKey,
			Model:     cfg.anthropicModel,
			MaxTokens: cfg.maxTokens,
		})
	case backendOpenAI:
		return model.NewOpenAI(model.OpenAIConfig{
			APIKey:    cfg.openAIKey,
			Model:     cfg.openAIModel,
			MaxTokens: cfg.maxTokens,
			BaseURL:   cfg.openAIBaseURL,
		})
	default:
		return model.NewScripted()
	}
}

func newParlor(cfg *Config, tables *session.Manager, gen narrator.Generator, errs chan<- error) *parlor {
	hub := broadcast.NewHub(logger(cfg), broadcast.EventGameState)

	return &parlor{
		cfg: cfg,
		game: game.New(tables.Table(cfg.table), narrator.NewEngine(gen), hub, game.Options{
			Channel:           cfg.table,
			GenerationTimeout: cfg.generationTimeout,
			Logf:              logger(cfg),
		}),
		hub:  hub,
		errs: errs,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return 0
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	written, _ := w.Write(append(data, '\n'))
	return written
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus maps a game error onto the status and message sent back to the
// requesting client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, narrator.ErrGenerationFailed):
		return http.StatusInternalServerError, "Failed to generate response"
	case errors.Is(err, game.ErrSessionReset),
		errors.Is(err, game.ErrInProgress):
		return http.StatusConflict, err.Error()
	case errors.Is(err, game.ErrNoSession),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrMalformedInput),
		errors.Is(err, game.ErrNameAlreadySet),
		errors.Is(err, game.ErrGameOver):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}

// decodeBody reads an optional JSON body into v. An empty body leaves v alone.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (p *parlor) handle(name string, fn func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int, any)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		securityHeaders(p.cfg, w)

		status, body := fn(w, r, ps)
		if err, ok := body.(error); ok {
			var msg string
			status, msg = errorStatus(err)
			logf(p.cfg, "ERROR: %s from %s: %v", name, realIP(r), err)
			body = errorResponse{Error: msg}
		}

		written := writeJSON(w, status, body)

		logf(p.cfg, "SERVE: %s (%s) to %s in %s",
			name,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

type gameResponse struct {
	Success bool             `json:"success"`
	Game    *session.Session `json:"game"`
}

func (p *parlor) serveStart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	sess, err := p.game.Start()
	if err != nil {
		return 0, err
	}
	return http.StatusOK, gameResponse{Success: true, Game: &sess}
}

func (p *parlor) serveReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	sess := p.game.Reset()
	return http.StatusOK, gameResponse{Success: true, Game: &sess}
}

func (p *parlor) serveSnapshot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	sess, ok := p.game.Snapshot()
	if !ok {
		return http.StatusOK, gameResponse{Success: true}
	}
	return http.StatusOK, gameResponse{Success: true, Game: &sess}
}

type finishedRequest struct {
	NextAction string `json:"nextAction"`
}

type finishedResponse struct {
	Success bool          `json:"success"`
	State   session.State `json:"state"`
}

func (p *parlor) serveNarratorFinished(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	var req finishedRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, errors.Join(game.ErrMalformedInput, err)
	}

	sess, err := p.game.NarrationFinished(req.NextAction)
	if err != nil {
		return 0, err
	}
	return http.StatusOK, finishedResponse{Success: true, State: sess.State}
}

type playerInputRequest struct {
	PlayerID       session.PlayerID `json:"playerId"`
	Text           string           `json:"text"`
	IsAccusation   *bool            `json:"isAccusation"`
	IsNameResponse bool             `json:"isNameResponse"`
}

type nameResponse struct {
	Success   bool          `json:"success"`
	NextState session.State `json:"nextState"`
	Directive narrator.Line `json:"directive,omitempty"`
}

type narratorResponse struct {
	NarratorResponse string        `json:"narratorResponse"`
	NextState        session.State `json:"nextState"`
	GameOver         bool          `json:"gameOver"`
	Won              *bool         `json:"won"`
}

func (p *parlor) servePlayerInput(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	var req playerInputRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, errors.Join(game.ErrMalformedInput, err)
	}

	in := game.Input{
		Player:       req.PlayerID,
		Text:         req.Text,
		NameResponse: req.IsNameResponse,
	}
	if req.IsAccusation != nil {
		in.Accusation = *req.IsAccusation
	} else if !req.IsNameResponse {
		in.Accusation = narrator.LooksLikeAccusation(req.Text)
	}

	// The reply is broadcast to every client, so it outlives this request.
	out, err := p.game.Submit(context.WithoutCancel(r.Context()), in)
	if err != nil {
		return 0, err
	}

	if req.IsNameResponse {
		return http.StatusOK, nameResponse{
			Success:   true,
			NextState: out.NextState,
			Directive: out.Directive,
		}
	}

	resp := narratorResponse{
		NarratorResponse: out.Narration,
		NextState:        out.NextState,
		GameOver:         out.GameOver,
	}
	if out.GameOver {
		resp.Won = &out.Won
	}
	return http.StatusOK, resp
}

type accusationRequest struct {
	PlayerID session.PlayerID `json:"playerId"`
}

func (p *parlor) serveAccusation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) (int, any) {
	var req accusationRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, errors.Join(game.ErrMalformedInput, err)
	}

	sess, err := p.game.OpenAccusation(req.PlayerID)
	if err != nil {
		return 0, err
	}
	return http.StatusOK, finishedResponse{Success: true, State: sess.State}
}

// seat returns the player a request speaks for, from the query string or the
// cookie set when the player opened their join link.
func seat(r *http.Request) session.PlayerID {
	if player := session.PlayerID(r.URL.Query().Get("player")); player.Valid() {
		return player
	}
	if c, err := r.Cookie(playerCookieName); err == nil {
		if player := session.PlayerID(c.Value); player.Valid() {
			return player
		}
	}
	return ""
}

func setSeat(w http.ResponseWriter, player session.PlayerID) {
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    string(player),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *parlor) serveWebsocket() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		player := seat(r)
		logf(p.cfg, "SERVE: Websocket opened by %s (player=%q)", realIP(r), player)

		if player != "" {
			p.game.SetConnected(player, true)
			defer p.game.SetConnected(player, false)
		}

		if err := p.hub.ServeWebsocket(w, r, p.cfg.table); err != nil {
			logf(p.cfg, "ERROR: Websocket for %s: %v", realIP(r), err)
			return
		}

		logf(p.cfg, "SERVE: Websocket closed by %s", realIP(r))
	}
}

func (p *parlor) serveEvents() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(p.cfg, w)

		// Streams outlive the server-wide write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		logf(p.cfg, "SERVE: Event stream opened by %s", realIP(r))

		if err := p.hub.ServeEvents(w, r, p.cfg.table); err != nil {
			p.errs <- err
			return
		}

		logf(p.cfg, "SERVE: Event stream closed by %s", realIP(r))
	}
}

// joinURL is the address a player's device opens to take their seat.
func joinURL(cfg *Config, r *http.Request, player session.PlayerID) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"player": {string(player)}}.Encode(),
	}
	return u.String()
}

func (p *parlor) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		player := session.PlayerID(strings.TrimSuffix(ps.ByName("player"), ".png"))
		if !player.Valid() {
			http.Error(w, "unknown player", http.StatusBadRequest)
			return
		}

		png, err := qrcode.Encode(joinURL(p.cfg, r, player), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(p.cfg, w)

		written, err := w.Write(png)
		if err != nil {
			p.errs <- err
			return
		}

		logf(p.cfg, "SERVE: QR code for %s (%s) to %s in %s",
			player,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func registerParlor(cfg *Config, p *parlor, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/api/game", p.handle("Game snapshot", p.serveSnapshot))
	mux.POST(cfg.prefix+"/api/game/start", p.handle("Game start", p.serveStart))
	mux.POST(cfg.prefix+"/api/game/reset", p.handle("Game reset", p.serveReset))
	mux.POST(cfg.prefix+"/api/game/narrator-finished", p.handle("Narrator finished", p.serveNarratorFinished))
	mux.POST(cfg.prefix+"/api/game/player-input", p.handle("Player input", p.servePlayerInput))
	mux.POST(cfg.prefix+"/api/game/accusation", p.handle("Accusation", p.serveAccusation))

	mux.GET(cfg.prefix+"/ws", p.serveWebsocket())
	mux.GET(cfg.prefix+"/events", p.serveEvents())
	mux.GET(cfg.prefix+"/qr/:player", p.serveQR())
}
