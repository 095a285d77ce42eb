/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package narrator turns player speech into Mrs. Hartwell's replies and works
// out which clues and suspects the exchange revealed.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrGenerationFailed wraps every model backend failure.
var ErrGenerationFailed = errors.New("failed to generate response")

// Generator is the language model backend.
type Generator interface {
	Generate(ctx context.Context, persona, prompt string) (string, error)
}

// Input is one player utterance plus the investigation state it is asked in.
type Input struct {
	PlayerName        string
	Text              string
	Accusation        bool
	RevealedClues     []string
	MentionedSuspects []string
}

// Reply is the engine's answer and the session changes it implies.
type Reply struct {
	Text string
	// Clues lists newly revealed clue ids, excluding ones already revealed.
	Clues []string
	// Suspects lists suspect ids mentioned in the question or answer.
	Suspects []string
	GameOver bool
	Won      bool
	Accused  string
}

type Engine struct {
	generator  Generator
	classifier *Classifier
	accuser    *Accuser
	persona    string
}

// NewEngine returns an engine for the Hartwell case backed by g.
func NewEngine(g Generator) *Engine {
	return &Engine{
		generator:  g,
		classifier: DefaultClassifier(),
		accuser:    DefaultAccuser(),
		persona:    Persona,
	}
}

// Respond produces the narration for in. Accusations never call the model.
func (e *Engine) Respond(ctx context.Context, in Input) (Reply, error) {
	if in.Accusation {
		v := e.accuser.Judge(in.Text)
		return Reply{
			Text:     v.Narration,
			GameOver: v.Correct,
			Won:      v.Correct,
			Accused:  v.Accused,
		}, nil
	}

	prompt := BuildContext(in.RevealedClues, in.MentionedSuspects, in.PlayerName, in.Text)

	text, err := e.generator.Generate(ctx, e.persona, prompt)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	return Reply{
		Text:     text,
		Clues:    e.newClues(text, in.RevealedClues),
		Suspects: e.classifier.MatchSuspects(in.Text + " " + text),
	}, nil
}

func (e *Engine) newClues(text string, revealed []string) []string {
	known := make(map[string]bool, len(revealed))
	for _, c := range revealed {
		known[c] = true
	}

	var fresh []string
	for _, id := range e.classifier.MatchClues(text) {
		if !known[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh
}
