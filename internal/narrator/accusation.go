/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package narrator

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Verdict is the outcome of checking one accusation.
type Verdict struct {
	// Correct is true when the culprit was named.
	Correct bool
	// Accused is the suspect id the text referenced, or "" if none.
	Accused string
	// Narration is the in-character reaction.
	Narration string
}

// Accuser checks accusation text against the culprit's aliases.
type Accuser struct {
	Culprit string
	Aliases []string
	// Others are the innocent suspects, used only to name them in the
	// rejection line.
	Others []Suspect
}

// Suspect pairs a suspect id and display name with the terms that refer to it.
type Suspect struct {
	ID      string
	Name    string
	Aliases []string
}

const (
	wonNarration      = "*gasps* Dr. Webb? *trembles* Yes... yes, it makes terrible sense now. He was consumed by jealousy after Eleanor rejected him. He must have waited in the garden while Henry argued with her... waited for his moment. Guards! Seize Dr. Marcus Webb! Justice for my Eleanor at last!"
	rejectedNarration = "*shakes head slowly* No, detectives. %s may have their secrets, but they did not kill my Eleanor. I can feel it in my bones. Please... look deeper. The truth is still out there."
)

// DefaultAccuser returns the accuser for the Hartwell case.
func DefaultAccuser() *Accuser {
	return &Accuser{
		Culprit: SuspectWebb,
		Aliases: []string{"webb", "marcus", "doctor"},
		Others: []Suspect{
			{ID: SuspectClara, Name: "Clara Finch", Aliases: []string{"clara"}},
			{ID: SuspectHenry, Name: "Henry Vance", Aliases: []string{"henry", "vance"}},
		},
	}
}

// A Caser is stateful, so each call folds with its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

func containsAny(folded string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(folded, foldCase(alias)) {
			return true
		}
	}
	return false
}

// Judge decides whether text names the culprit.
func (a *Accuser) Judge(text string) Verdict {
	folded := foldCase(text)

	if containsAny(folded, a.Aliases) {
		return Verdict{
			Correct:   true,
			Accused:   a.Culprit,
			Narration: wonNarration,
		}
	}

	name, accused := "that person", ""
	for _, other := range a.Others {
		if containsAny(folded, other.Aliases) {
			name, accused = other.Name, other.ID
			break
		}
	}

	return Verdict{
		Accused:   accused,
		Narration: fmt.Sprintf(rejectedNarration, name),
	}
}

var accusationCueRE = regexp.MustCompile(`(?i)accuse|guilty|murderer|killer`)

// LooksLikeAccusation reports whether spoken text reads as an accusation.
// Used when a client does not say explicitly.
func LooksLikeAccusation(text string) bool {
	return accusationCueRE.MatchString(text)
}
