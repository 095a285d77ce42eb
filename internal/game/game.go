/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game runs the parlor state machine: it validates player actions,
// mutates the session, sequences narrator replies and announces every change.
package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/parlor/internal/broadcast"
	"github.com/Seednode/parlor/internal/narrator"
	"github.com/Seednode/parlor/internal/session"
)

// Responder produces the narrator's reply to one player utterance.
type Responder interface {
	Respond(ctx context.Context, in narrator.Input) (narrator.Reply, error)
}

type Options struct {
	// Channel is the broadcast channel every event goes to.
	Channel string
	// GenerationTimeout bounds one narrator call. Zero means no limit.
	GenerationTimeout time.Duration
	Logf              func(format string, args ...any)
}

// Input is one player submission.
type Input struct {
	Player       session.PlayerID
	Text         string
	Accusation   bool
	NameResponse bool
}

// Outcome describes what an accepted submission did.
type Outcome struct {
	Session   session.Session
	Narration string
	NextState session.State
	GameOver  bool
	Won       bool
	// Directive is a script line the display must now play, if any.
	Directive narrator.Line
}

type Game struct {
	mu        sync.Mutex
	store     *session.Store
	responder Responder
	pub       broadcast.Publisher
	channel   string
	timeout   time.Duration
	logf      func(format string, args ...any)

	// inFlight is the id of the session awaiting a narrator reply.
	inFlight string
	// closed is the id of the last session whose closing line was played.
	closed string
}

func New(store *session.Store, responder Responder, pub broadcast.Publisher, opts Options) *Game {
	g := &Game{
		store:     store,
		responder: responder,
		pub:       pub,
		channel:   opts.Channel,
		timeout:   opts.GenerationTimeout,
		logf:      opts.Logf,
	}
	if g.channel == "" {
		g.channel = session.DefaultTable
	}
	if g.logf == nil {
		g.logf = func(string, ...any) {}
	}
	return g
}

// Snapshot returns a copy of the current session.
func (g *Game) Snapshot() (session.Session, bool) {
	return g.store.Get()
}

type statePayload struct {
	State session.State   `json:"state"`
	Game  session.Session `json:"game"`
}

type linePayload struct {
	Line narrator.Line `json:"line"`
	Text string        `json:"text"`
}

type inputPayload struct {
	PlayerID       session.PlayerID `json:"playerId"`
	Text           string           `json:"text"`
	IsAccusation   bool             `json:"isAccusation"`
	IsNameResponse bool             `json:"isNameResponse"`
}

type responsePayload struct {
	Text      string        `json:"text"`
	NextState session.State `json:"nextState"`
	GameOver  bool          `json:"gameOver"`
	Won       *bool         `json:"won"`
}

type resetPayload struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

type finishedPayload struct {
	State session.State `json:"state"`
}

func (g *Game) publishState() session.Session {
	sess, _ := g.store.Get()
	g.pub.Publish(g.channel, broadcast.EventGameState, statePayload{State: sess.State, Game: sess})
	return sess
}

func (g *Game) publishLine(line narrator.Line) {
	g.pub.Publish(g.channel, broadcast.EventNarratorLine, linePayload{Line: line, Text: line.Text()})
}

// Start creates a session if there is none or the last one finished, then
// begins the intro narration.
func (g *Game) Start() (session.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.store.Get()
	switch {
	case !ok || sess.State == session.StateGameOver:
		sess = g.store.Create()
	case sess.State != session.StateWaitingToStart:
		return sess, ErrInProgress
	}

	g.store.SetState(session.StateNarratorIntro)
	g.inFlight = ""
	g.logf("GAMES: Started session %s", sess.ID)

	sess = g.publishState()
	g.publishLine(narrator.LineIntro)

	return sess, nil
}

// Reset discards the current session unconditionally and installs a fresh one.
func (g *Game) Reset() session.Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess := g.store.Reset()
	g.inFlight = ""
	g.logf("GAMES: Reset to session %s", sess.ID)

	g.pub.Publish(g.channel, broadcast.EventGameReset, resetPayload{
		Timestamp: time.Now().UnixMilli(),
		Message:   "Game has been reset by host",
	})

	return g.publishState()
}

// NarrationFinished handles the display's report that playback ended. hint is
// the legacy client-side directive; it is logged but never followed.
func (g *Game) NarrationFinished(hint string) (session.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.store.Get()
	if !ok {
		return session.Session{}, ErrNoSession
	}

	if hint != "" {
		g.logf("GAMES: Ignoring client narration hint %q in state %s", hint, sess.State)
	}

	switch {
	case g.inFlight == sess.ID:
		g.logf("GAMES: Narration finished while awaiting the narrator in %s", sess.ID)
	case sess.Over():
		if g.closed != sess.ID {
			g.closed = sess.ID
			line := narrator.LineGameLost
			if *sess.GameResult == session.ResultWon {
				line = narrator.LineGameWon
			}
			g.publishLine(line)
		}
	default:
		if next, changed := AfterNarration(sess); changed {
			g.store.SetState(next)
			sess = g.publishState()
			if next == session.StateAskingPlayer1Name {
				g.publishLine(narrator.LineAskP1Name)
			}
		}
	}

	g.pub.Publish(g.channel, broadcast.EventNarratorFinished, finishedPayload{State: sess.State})

	return sess, nil
}

// OpenAccusation lets the current turn owner call for the accusation phase.
func (g *Game) OpenAccusation(player session.PlayerID) (session.Session, error) {
	if !player.Valid() {
		return session.Session{}, fmt.Errorf("%w: unknown player %q", ErrMalformedInput, player)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.store.Get()
	if !ok {
		return session.Session{}, ErrNoSession
	}
	if sess.Over() {
		return sess, ErrGameOver
	}
	if sess.State != player.TurnState() {
		return sess, ErrNotYourTurn
	}

	g.store.SetState(session.StateAccusationPhase)
	g.logf("GAMES: %s opened the accusation phase in %s", player, sess.ID)

	return g.publishState(), nil
}

// SetConnected records whether a player's device is subscribed.
func (g *Game) SetConnected(player session.PlayerID, connected bool) {
	if !player.Valid() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.store.Get(); !ok {
		return
	}
	g.store.SetPlayerConnected(player, connected)
	g.publishState()
}

// Submit validates and applies one player submission. Regular input locks
// the session in NARRATOR_SPEAKING while the narrator responds; the lock is
// released by the next NarrationFinished.
func (g *Game) Submit(ctx context.Context, in Input) (Outcome, error) {
	in.Text = strings.TrimSpace(in.Text)
	if !in.Player.Valid() {
		return Outcome{}, fmt.Errorf("%w: unknown player %q", ErrMalformedInput, in.Player)
	}
	if in.Text == "" {
		return Outcome{}, fmt.Errorf("%w: text is required", ErrMalformedInput)
	}

	g.mu.Lock()

	sess, ok := g.store.Get()
	if !ok {
		g.mu.Unlock()
		return Outcome{}, ErrNoSession
	}
	if sess.Over() {
		g.mu.Unlock()
		return Outcome{Session: sess}, ErrGameOver
	}

	if in.NameResponse {
		defer g.mu.Unlock()
		return g.name(sess, in)
	}

	if !CanAccept(sess.State, in.Player) {
		g.mu.Unlock()
		return Outcome{Session: sess}, ErrNotYourTurn
	}
	if sess.State == session.StateAccusationPhase {
		in.Accusation = true
	}

	g.store.SetState(session.StateNarratorSpeaking)
	g.store.SetCurrentTranscript(in.Text)
	g.store.SetLastPlayerTurn(in.Player)
	g.inFlight = sess.ID

	g.pub.Publish(g.channel, broadcast.EventPlayerInput, inputPayload{
		PlayerID:     in.Player,
		Text:         in.Text,
		IsAccusation: in.Accusation,
	})
	g.publishState()

	var playerName string
	if p := sess.Players.Get(in.Player); p.Name != nil {
		playerName = *p.Name
	}
	request := narrator.Input{
		PlayerName:        playerName,
		Text:              in.Text,
		Accusation:        in.Accusation,
		RevealedClues:     sess.RevealedClues,
		MentionedSuspects: sess.MentionedSuspects(),
	}

	g.mu.Unlock()

	reply, err := g.respond(ctx, request)

	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.store.Get()
	if !ok || current.ID != sess.ID {
		g.logf("GAMES: Discarded narrator reply for replaced session %s", sess.ID)
		return Outcome{}, ErrSessionReset
	}
	g.inFlight = ""

	if err != nil {
		g.logf("GAMES: Narrator failed for %s in %s: %v", in.Player, sess.ID, err)
		return Outcome{Session: current}, err
	}

	return g.apply(in, reply), nil
}

func (g *Game) respond(ctx context.Context, in narrator.Input) (narrator.Reply, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.responder.Respond(ctx, in)
}

// apply folds a narrator reply into the session. Must hold g.mu.
func (g *Game) apply(in Input, reply narrator.Reply) Outcome {
	for _, clue := range reply.Clues {
		g.store.AddRevealedClue(clue)
	}
	for _, id := range reply.Suspects {
		g.store.MarkSuspectMentioned(id)
	}
	g.store.SetNarratorText(reply.Text)

	next := NextTurn(in.Player)
	var won *bool
	if reply.GameOver {
		g.store.SetGameOver(reply.Won, reply.Accused)
		next = session.StateGameOver
		won = &reply.Won
		g.logf("GAMES: %s accused %s and the game is over (won=%t)", in.Player, reply.Accused, reply.Won)
	} else if in.Accusation {
		g.logf("GAMES: %s wrongly accused %q", in.Player, reply.Accused)
	}

	g.pub.Publish(g.channel, broadcast.EventNarratorResponse, responsePayload{
		Text:      reply.Text,
		NextState: next,
		GameOver:  reply.GameOver,
		Won:       won,
	})
	sess := g.publishState()

	return Outcome{
		Session:   sess,
		Narration: reply.Text,
		NextState: next,
		GameOver:  reply.GameOver,
		Won:       reply.Won,
	}
}

// name handles a name response. Must hold g.mu.
func (g *Game) name(sess session.Session, in Input) (Outcome, error) {
	if p := sess.Players.Get(in.Player); p.Name != nil {
		return Outcome{Session: sess}, ErrNameAlreadySet
	}
	if sess.State != NameState(in.Player) {
		return Outcome{Session: sess}, ErrNotYourTurn
	}

	g.store.SetPlayerName(in.Player, in.Text)
	g.store.SetCurrentTranscript(in.Text)

	next, line := session.StateAskingPlayer2Name, narrator.LineAskP2Name
	if in.Player == session.Player2 {
		next, line = session.StateNarratorSpeaking, narrator.LineMurderReveal
	}
	g.store.SetState(next)
	g.logf("GAMES: %s is named %q in %s", in.Player, in.Text, sess.ID)

	g.pub.Publish(g.channel, broadcast.EventPlayerInput, inputPayload{
		PlayerID:       in.Player,
		Text:           in.Text,
		IsNameResponse: true,
	})
	sess = g.publishState()
	g.publishLine(line)

	out := Outcome{
		Session:   sess,
		NextState: next,
	}
	if line == narrator.LineMurderReveal {
		out.Directive = line
	}
	return out, nil
}
