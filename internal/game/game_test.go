package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/parlor/internal/broadcast"
	"github.com/Seednode/parlor/internal/narrator"
	"github.com/Seednode/parlor/internal/session"
)

type published struct {
	channel string
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(channel, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{channel, event, payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.event)
	}
	return names
}

func (r *recorder) lines() []narrator.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lines []narrator.Line
	for _, e := range r.events {
		if p, ok := e.payload.(linePayload); ok {
			lines = append(lines, p.Line)
		}
	}
	return lines
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type generatorFunc func(ctx context.Context, persona, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, persona, prompt string) (string, error) {
	return f(ctx, persona, prompt)
}

func reply(text string) generatorFunc {
	return func(context.Context, string, string) (string, error) {
		return text, nil
	}
}

type fixture struct {
	store *session.Store
	pub   *recorder
	game  *Game
}

func newFixture(t *testing.T, gen narrator.Generator) *fixture {
	t.Helper()
	store := session.NewStore()
	pub := &recorder{}
	return &fixture{
		store: store,
		pub:   pub,
		game:  New(store, narrator.NewEngine(gen), pub, Options{Channel: "parlor"}),
	}
}

// inTurn drives a fresh game to the first player turn.
func (f *fixture) inTurn(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.game.Start()
	require.NoError(t, err)
	_, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	_, err = f.game.Submit(ctx, Input{Player: session.Player1, Text: "Ava", NameResponse: true})
	require.NoError(t, err)
	_, err = f.game.Submit(ctx, Input{Player: session.Player2, Text: "Ben", NameResponse: true})
	require.NoError(t, err)
	sess, err := f.game.NarrationFinished("")
	require.NoError(t, err)
	require.Equal(t, session.StatePlayer1Turn, sess.State)
	f.pub.reset()
}

func (f *fixture) state(t *testing.T) session.Session {
	t.Helper()
	sess, ok := f.store.Get()
	require.True(t, ok)
	return sess
}

func TestCanAccept(t *testing.T) {
	tests := []struct {
		state  session.State
		player session.PlayerID
		want   bool
	}{
		{session.StatePlayer1Turn, session.Player1, true},
		{session.StatePlayer1Turn, session.Player2, false},
		{session.StatePlayer2Turn, session.Player2, true},
		{session.StatePlayer2Turn, session.Player1, false},
		{session.StateAccusationPhase, session.Player1, true},
		{session.StateAccusationPhase, session.Player2, true},
		{session.StateNarratorSpeaking, session.Player1, false},
		{session.StateAskingPlayer1Name, session.Player1, false},
		{session.StateGameOver, session.Player2, false},
		{session.StatePlayer1Turn, session.PlayerID("player3"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanAccept(tt.state, tt.player), "%s/%s", tt.state, tt.player)
	}
}

func TestAfterNarration(t *testing.T) {
	won := session.ResultWon
	tests := []struct {
		name    string
		sess    session.Session
		want    session.State
		changed bool
	}{
		{"intro", session.Session{State: session.StateNarratorIntro}, session.StateAskingPlayer1Name, true},
		{"waiting", session.Session{State: session.StateWaitingToStart}, session.StateWaitingToStart, false},
		{"asking p1", session.Session{State: session.StateAskingPlayer1Name}, session.StateAskingPlayer1Name, false},
		{"asking p2", session.Session{State: session.StateAskingPlayer2Name}, session.StateAskingPlayer2Name, false},
		{"game over", session.Session{State: session.StateGameOver, GameResult: &won}, session.StateGameOver, false},
		{"speaking after p1", session.Session{State: session.StateNarratorSpeaking, LastPlayerTurn: session.Player1}, session.StatePlayer2Turn, true},
		{"speaking after p2", session.Session{State: session.StateNarratorSpeaking, LastPlayerTurn: session.Player2}, session.StatePlayer1Turn, true},
		{"already in turn", session.Session{State: session.StatePlayer1Turn, LastPlayerTurn: session.Player2}, session.StatePlayer1Turn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := AfterNarration(tt.sess)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestGame_NoSession(t *testing.T) {
	f := newFixture(t, reply("unused"))

	_, err := f.game.NarrationFinished("")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "hello"})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.game.OpenAccusation(session.Player1)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NotPanics(t, func() { f.game.SetConnected(session.Player1, true) })
	assert.Empty(t, f.pub.names())
}

func TestGame_MalformedInput(t *testing.T) {
	f := newFixture(t, reply("unused"))
	f.inTurn(t)
	before := f.state(t)

	_, err := f.game.Submit(context.Background(), Input{Player: "player3", Text: "hello"})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "   "})
	assert.ErrorIs(t, err, ErrMalformedInput)

	assert.Equal(t, before, f.state(t))
	assert.Empty(t, f.pub.names())
}

// Scenario 1: intro, then both names.
func TestGame_IntroAndNames(t *testing.T) {
	f := newFixture(t, reply("unused"))
	ctx := context.Background()

	sess, err := f.game.Start()
	require.NoError(t, err)
	assert.Equal(t, session.StateNarratorIntro, sess.State)

	sess, err = f.game.NarrationFinished("ask_p1_name")
	require.NoError(t, err)
	assert.Equal(t, session.StateAskingPlayer1Name, sess.State)

	// Finishing the prompt line itself does not move past the name phase.
	sess, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Equal(t, session.StateAskingPlayer1Name, sess.State)

	_, err = f.game.Submit(ctx, Input{Player: session.Player2, Text: "Ben", NameResponse: true})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	out, err := f.game.Submit(ctx, Input{Player: session.Player1, Text: "Ava", NameResponse: true})
	require.NoError(t, err)
	assert.Equal(t, session.StateAskingPlayer2Name, out.Session.State)
	assert.Equal(t, "Ava", *out.Session.Players.Player1.Name)
	assert.Empty(t, out.Directive)

	out, err = f.game.Submit(ctx, Input{Player: session.Player2, Text: "Ben", NameResponse: true})
	require.NoError(t, err)
	assert.Equal(t, session.StateNarratorSpeaking, out.Session.State)
	assert.Equal(t, "Ben", *out.Session.Players.Player2.Name)
	assert.Equal(t, narrator.LineMurderReveal, out.Directive)

	assert.Equal(t, []narrator.Line{
		narrator.LineIntro,
		narrator.LineAskP1Name,
		narrator.LineAskP2Name,
		narrator.LineMurderReveal,
	}, f.pub.lines())

	sess, err = f.game.NarrationFinished("start_investigation")
	require.NoError(t, err)
	assert.Equal(t, session.StatePlayer1Turn, sess.State)
}

func TestGame_NameAlreadySet(t *testing.T) {
	f := newFixture(t, reply("unused"))
	ctx := context.Background()

	_, err := f.game.Start()
	require.NoError(t, err)
	_, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	_, err = f.game.Submit(ctx, Input{Player: session.Player1, Text: "Ava", NameResponse: true})
	require.NoError(t, err)

	_, err = f.game.Submit(ctx, Input{Player: session.Player1, Text: "Mallory", NameResponse: true})
	assert.ErrorIs(t, err, ErrNameAlreadySet)

	sess := f.state(t)
	assert.Equal(t, "Ava", *sess.Players.Player1.Name)
	assert.Equal(t, session.StateAskingPlayer2Name, sess.State)
}

// Scenario 2: a question reveals a clue and the turn passes.
func TestGame_QuestionRevealsClue(t *testing.T) {
	var prompt string
	f := newFixture(t, generatorFunc(func(_ context.Context, _, p string) (string, error) {
		prompt = p
		return "Henry was the last to see her. They were arguing in the garden around midnight.", nil
	}))
	f.inTurn(t)

	out, err := f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "who saw Eleanor last"})
	require.NoError(t, err)

	assert.Contains(t, prompt, `Detective Ava asks: "who saw Eleanor last"`)
	assert.Equal(t, session.StatePlayer2Turn, out.NextState)
	assert.False(t, out.GameOver)

	sess := f.state(t)
	assert.Equal(t, session.StateNarratorSpeaking, sess.State)
	assert.Equal(t, []string{narrator.ClueHenryArgument}, sess.RevealedClues)
	assert.Equal(t, []string{"Henry Vance"}, sess.MentionedSuspects())
	assert.Equal(t, "who saw Eleanor last", sess.CurrentTranscript)
	assert.Equal(t, out.Narration, sess.NarratorText)
	assert.Equal(t, session.Player1, sess.LastPlayerTurn)

	assert.Equal(t, []string{
		broadcast.EventPlayerInput,
		broadcast.EventGameState,
		broadcast.EventNarratorResponse,
		broadcast.EventGameState,
	}, f.pub.names())

	sess, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Equal(t, session.StatePlayer2Turn, sess.State)
}

func TestGame_ClueNotDuplicated(t *testing.T) {
	f := newFixture(t, reply("They argued, Henry and Eleanor, at midnight in the garden."))
	f.inTurn(t)
	ctx := context.Background()

	_, err := f.game.Submit(ctx, Input{Player: session.Player1, Text: "what happened"})
	require.NoError(t, err)
	_, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	_, err = f.game.Submit(ctx, Input{Player: session.Player2, Text: "tell me again"})
	require.NoError(t, err)

	assert.Equal(t, []string{narrator.ClueHenryArgument}, f.state(t).RevealedClues)
}

func TestGame_TurnsAlternate(t *testing.T) {
	f := newFixture(t, reply("I cannot say, detective."))
	f.inTurn(t)
	ctx := context.Background()

	player := session.Player1
	for i := 0; i < 6; i++ {
		out, err := f.game.Submit(ctx, Input{Player: player, Text: "anything new?"})
		require.NoError(t, err)
		assert.NotEqual(t, player.TurnState(), out.NextState)

		sess, err := f.game.NarrationFinished("")
		require.NoError(t, err)
		assert.Equal(t, player.Other().TurnState(), sess.State)
		assert.NotEqual(t, session.StateWaitingToStart, sess.State)

		player = player.Other()
	}
}

// Illegal turn: player2 speaking during player1's turn changes nothing.
func TestGame_IllegalTurnRejected(t *testing.T) {
	f := newFixture(t, reply("should not be called"))
	f.inTurn(t)
	before := f.state(t)

	_, err := f.game.Submit(context.Background(), Input{Player: session.Player2, Text: "what about the knife?"})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	assert.Equal(t, before, f.state(t))
	assert.Empty(t, f.pub.names())
}

func TestGame_InputLockedWhileNarratorSpeaks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := newFixture(t, generatorFunc(func(ctx context.Context, _, _ string) (string, error) {
		close(started)
		<-release
		return "The knife... had fingerprints on the handle.", nil
	}))
	f.inTurn(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.game.Submit(ctx, Input{Player: session.Player1, Text: "the knife?"})
		done <- err
	}()
	<-started

	_, err := f.game.Submit(ctx, Input{Player: session.Player1, Text: "again"})
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = f.game.Submit(ctx, Input{Player: session.Player2, Text: "me?"})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// A stray finished signal does not release the lock mid-call.
	sess, err := f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Equal(t, session.StateNarratorSpeaking, sess.State)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{narrator.ClueFingerprintsExist}, f.state(t).RevealedClues)
}

// Scenario 3: the right accusation wins.
func TestGame_CorrectAccusation(t *testing.T) {
	f := newFixture(t, reply("I cannot say."))
	f.inTurn(t)
	ctx := context.Background()

	_, err := f.game.Submit(ctx, Input{Player: session.Player1, Text: "anything?"})
	require.NoError(t, err)
	_, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	require.Equal(t, session.StatePlayer2Turn, f.state(t).State)

	out, err := f.game.Submit(ctx, Input{Player: session.Player2, Text: "I accuse Dr. Webb", Accusation: true})
	require.NoError(t, err)
	assert.True(t, out.GameOver)
	assert.True(t, out.Won)
	assert.Equal(t, session.StateGameOver, out.NextState)

	sess := f.state(t)
	assert.Equal(t, session.StateGameOver, sess.State)
	require.NotNil(t, sess.GameResult)
	assert.Equal(t, session.ResultWon, *sess.GameResult)
	require.NotNil(t, sess.AccusedSuspect)
	assert.Equal(t, "webb", *sess.AccusedSuspect)

	_, err = f.game.Submit(ctx, Input{Player: session.Player1, Text: "more questions"})
	assert.ErrorIs(t, err, ErrGameOver)

	f.pub.reset()
	sess, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Equal(t, session.StateGameOver, sess.State)
	_, err = f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Equal(t, []narrator.Line{narrator.LineGameWon}, f.pub.lines())
}

// Scenario 4: a wrong accusation hands the turn over.
func TestGame_WrongAccusation(t *testing.T) {
	calls := 0
	f := newFixture(t, generatorFunc(func(context.Context, string, string) (string, error) {
		calls++
		return "", nil
	}))
	f.inTurn(t)

	out, err := f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "it was Clara", Accusation: true})
	require.NoError(t, err)
	assert.False(t, out.GameOver)
	assert.Equal(t, session.StatePlayer2Turn, out.NextState)
	assert.Contains(t, out.Narration, "Clara Finch")
	assert.Zero(t, calls)

	sess, err := f.game.NarrationFinished("")
	require.NoError(t, err)
	assert.Nil(t, sess.GameResult)
	assert.Equal(t, session.StatePlayer2Turn, sess.State)
}

func TestGame_AccusationPhase(t *testing.T) {
	f := newFixture(t, reply("unused"))
	f.inTurn(t)
	ctx := context.Background()

	_, err := f.game.OpenAccusation(session.Player2)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	sess, err := f.game.OpenAccusation(session.Player1)
	require.NoError(t, err)
	assert.Equal(t, session.StateAccusationPhase, sess.State)

	// Either player may accuse; input in this phase is always an accusation.
	out, err := f.game.Submit(ctx, Input{Player: session.Player2, Text: "it was Marcus"})
	require.NoError(t, err)
	assert.True(t, out.Won)
	assert.Equal(t, session.StateGameOver, f.state(t).State)
}

func TestGame_GenerationFailureLeavesLock(t *testing.T) {
	upstream := errors.New("timeout")
	f := newFixture(t, generatorFunc(func(context.Context, string, string) (string, error) {
		return "", upstream
	}))
	f.inTurn(t)

	_, err := f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "who saw Eleanor last"})
	assert.ErrorIs(t, err, narrator.ErrGenerationFailed)
	assert.ErrorIs(t, err, upstream)

	sess := f.state(t)
	assert.Equal(t, session.StateNarratorSpeaking, sess.State)
	assert.Empty(t, sess.RevealedClues)
	assert.NotContains(t, f.pub.names(), broadcast.EventNarratorResponse)
}

func TestGame_GenerationTimeout(t *testing.T) {
	store := session.NewStore()
	pub := &recorder{}
	g := New(store, narrator.NewEngine(generatorFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})), pub, Options{GenerationTimeout: 10 * time.Millisecond})
	f := &fixture{store: store, pub: pub, game: g}
	f.inTurn(t)

	_, err := g.Submit(context.Background(), Input{Player: session.Player1, Text: "hello?"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, narrator.ErrGenerationFailed)
}

func TestGame_ResetDuringGenerationDiscardsReply(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := newFixture(t, generatorFunc(func(context.Context, string, string) (string, error) {
		close(started)
		<-release
		return "Henry was embezzling.", nil
	}))
	f.inTurn(t)

	done := make(chan error, 1)
	go func() {
		_, err := f.game.Submit(context.Background(), Input{Player: session.Player1, Text: "the argument?"})
		done <- err
	}()
	<-started

	fresh := f.game.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionReset)
	sess := f.state(t)
	assert.Equal(t, fresh.ID, sess.ID)
	assert.Equal(t, session.StateWaitingToStart, sess.State)
	assert.Empty(t, sess.RevealedClues)
}

func TestGame_StartRules(t *testing.T) {
	f := newFixture(t, reply("unused"))

	first, err := f.game.Start()
	require.NoError(t, err)

	_, err = f.game.Start()
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Equal(t, first.ID, f.state(t).ID)

	f.store.SetGameOver(false, "clara")
	again, err := f.game.Start()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
	assert.Equal(t, session.StateNarratorIntro, again.State)
	assert.Nil(t, again.GameResult)

	reset := f.game.Reset()
	assert.Equal(t, session.StateWaitingToStart, reset.State)
	started, err := f.game.Start()
	require.NoError(t, err)
	assert.Equal(t, reset.ID, started.ID)
}

func TestGame_SetConnected(t *testing.T) {
	f := newFixture(t, reply("unused"))
	f.game.Reset()
	f.pub.reset()

	f.game.SetConnected(session.Player2, true)
	assert.True(t, f.state(t).Players.Player2.Connected)
	assert.Equal(t, []string{broadcast.EventGameState}, f.pub.names())

	f.game.SetConnected("nobody", true)
	assert.Len(t, f.pub.names(), 1)
}
