/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package narrator

import "regexp"

// Matcher decides whether a piece of free text contains something.
// *regexp.Regexp satisfies it.
type Matcher interface {
	MatchString(s string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(s string) bool

func (f MatcherFunc) MatchString(s string) bool {
	return f(s)
}

// Trigger maps one matcher to one identifier.
type Trigger struct {
	Matcher Matcher
	ID      string
}

// Classifier scans text against ordered trigger tables. It is pure and does
// not depend on any model backend.
type Classifier struct {
	Clues    []Trigger
	Suspects []Trigger
}

// Clue ids.
const (
	ClueHenryArgument     = "henry_argument"
	ClueEmbezzlement      = "embezzlement"
	ClueSurgicalWound     = "surgical_wound"
	ClueDefensiveWounds   = "defensive_wounds"
	ClueFingerprintsExist = "fingerprints_exist"
	ClueWebbFingerprints  = "webb_fingerprints"
	ClueClaraWitness      = "clara_witness"
)

// Suspect ids, matching session.DefaultSuspects.
const (
	SuspectWebb  = "webb"
	SuspectClara = "clara"
	SuspectHenry = "henry"
)

var (
	webbNameRE = regexp.MustCompile(`(?i)webb|marcus`)
	doctorRE   = regexp.MustCompile(`(?i)doctor(\s+finch)?`)
)

// webbMention matches webb or marcus, or "doctor" unless it is directly
// followed by "finch".
func webbMention(s string) bool {
	if webbNameRE.MatchString(s) {
		return true
	}
	for _, m := range doctorRE.FindAllStringSubmatchIndex(s, -1) {
		if m[2] < 0 {
			return true
		}
	}
	return false
}

// DefaultClassifier returns the murder-mystery clue and suspect tables.
func DefaultClassifier() *Classifier {
	return &Classifier{
		Clues: []Trigger{
			{regexp.MustCompile(`(?i)henry.*argu|argu.*henry|midnight.*garden`), ClueHenryArgument},
			{regexp.MustCompile(`(?i)embezzl`), ClueEmbezzlement},
			{regexp.MustCompile(`(?i)surgical|precise.*cut|clean.*cut`), ClueSurgicalWound},
			{regexp.MustCompile(`(?i)defensive wound`), ClueDefensiveWounds},
			{regexp.MustCompile(`(?i)fingerprint.*handle|print.*knife`), ClueFingerprintsExist},
			{regexp.MustCompile(`(?i)webb.*fingerprint|fingerprint.*webb|prints belong.*webb`), ClueWebbFingerprints},
			{regexp.MustCompile(`(?i)clara.*saw|saw.*garden|lurking`), ClueClaraWitness},
		},
		Suspects: []Trigger{
			{MatcherFunc(webbMention), SuspectWebb},
			{regexp.MustCompile(`(?i)clara|finch`), SuspectClara},
			{regexp.MustCompile(`(?i)henry|vance`), SuspectHenry},
		},
	}
}

// MatchClues returns the ids of every clue trigger matching text, in table order.
func (c *Classifier) MatchClues(text string) []string {
	return match(c.Clues, text)
}

// MatchSuspects returns the ids of every suspect mentioned in text.
func (c *Classifier) MatchSuspects(text string) []string {
	return match(c.Suspects, text)
}

func match(triggers []Trigger, text string) []string {
	var ids []string
	for _, t := range triggers {
		if t.Matcher.MatchString(text) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
