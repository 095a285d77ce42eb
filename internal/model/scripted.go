/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package model

import (
	"context"
	"regexp"
	"strconv"
)

type scriptedRule struct {
	question *regexp.Regexp
	answer   string
}

// Scripted answers from a fixed keyword table and never leaves the process.
// It runs the game when no API key is configured.
type Scripted struct {
	rules    []scriptedRule
	fallback string
}

func NewScripted() *Scripted {
	return &Scripted{
		rules: []scriptedRule{
			{
				regexp.MustCompile(`(?i)whose.*(print|fingerprint)|(print|fingerprint).*(whose|who|match|belong)`),
				"*grips the arm of her chair* The prints... the prints belong to... Dr. Marcus Webb.",
			},
			{
				regexp.MustCompile(`(?i)print|knife|evidence|weapon`),
				"The knife came from my own kitchen, detectives. There are clear fingerprints on the handle.",
			},
			{
				regexp.MustCompile(`(?i)wound|body|examine|throat`),
				"*voice breaking* The cut is clean, precise... almost surgical. And there were defensive wounds on her hands. She fought, my brave girl.",
			},
			{
				regexp.MustCompile(`(?i)argu|fight|quarrel`),
				"Eleanor had discovered that Henry was embezzling from her father's company. She confronted him, and he did not take it kindly.",
			},
			{
				regexp.MustCompile(`(?i)clara.*(saw|see|what)|(saw|see|what).*clara`),
				"*lowers her voice* Clara confessed it to me this morning. She saw Dr. Webb lurking near the garden, and was too frightened to speak of it.",
			},
			{
				regexp.MustCompile(`(?i)clara|early|left`),
				"Clara left at ten o'clock, pale as a ghost. I believe she witnessed something on her way out, but she would not say what.",
			},
			{
				regexp.MustCompile(`(?i)last|saw eleanor|seen eleanor|who saw`),
				"Henry was the last to leave. I heard them arguing in the garden, around midnight.",
			},
		},
		fallback: "*dabs her eyes* Forgive me, detectives, but I do not see how that helps find my daughter's killer. Please, ask me about the guests, or the evening itself.",
	}
}

var questionRE = regexp.MustCompile(`(?m)asks: (".*")$`)

// question pulls the player's words back out of the rendered context so the
// investigation summary does not influence the answer.
func question(prompt string) string {
	m := questionRE.FindStringSubmatch(prompt)
	if m == nil {
		return prompt
	}
	q, err := strconv.Unquote(m[1])
	if err != nil {
		return prompt
	}
	return q
}

func (s *Scripted) Generate(ctx context.Context, _, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	q := question(prompt)
	for _, r := range s.rules {
		if r.question.MatchString(q) {
			return r.answer, nil
		}
	}
	return s.fallback, nil
}
