/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session holds the parlor game session data and the in-memory store
// that owns it. The store carries no game rules; it only mutates fields.
package session

// State is the narrative state of a session.
type State string

const (
	StateWaitingToStart    State = "WAITING_TO_START"
	StateNarratorIntro     State = "NARRATOR_INTRO"
	StateAskingPlayer1Name State = "ASKING_PLAYER1_NAME"
	StateAskingPlayer2Name State = "ASKING_PLAYER2_NAME"
	StateNarratorSpeaking  State = "NARRATOR_SPEAKING"
	StatePlayer1Turn       State = "PLAYER_1_TURN"
	StatePlayer2Turn       State = "PLAYER_2_TURN"
	StateAccusationPhase   State = "ACCUSATION_PHASE"
	StateGameOver          State = "GAME_OVER"
)

// PlayerID identifies one of the two player slots.
type PlayerID string

const (
	Player1 PlayerID = "player1"
	Player2 PlayerID = "player2"
)

// Valid reports whether p names one of the two slots.
func (p PlayerID) Valid() bool {
	return p == Player1 || p == Player2
}

// Other returns the opposing slot.
func (p PlayerID) Other() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// TurnState is the state in which p's regular input is accepted.
func (p PlayerID) TurnState() State {
	if p == Player1 {
		return StatePlayer1Turn
	}
	return StatePlayer2Turn
}

// Result is the terminal outcome of a session.
type Result string

const (
	ResultWon  Result = "won"
	ResultLost Result = "lost"
)

type Player struct {
	ID        PlayerID `json:"id"`
	Name      *string  `json:"name"`
	Connected bool     `json:"connected"`
}

type Players struct {
	Player1 Player `json:"player1"`
	Player2 Player `json:"player2"`
}

// Get returns a pointer to the slot for id, or nil for an unknown id.
func (p *Players) Get(id PlayerID) *Player {
	switch id {
	case Player1:
		return &p.Player1
	case Player2:
		return &p.Player2
	}
	return nil
}

type Suspect struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Relation  string `json:"relation"`
	Clue      string `json:"clue"`
	Mentioned bool   `json:"mentioned"`
}

// Session is the whole state the game logic operates on.
type Session struct {
	ID                string    `json:"id"`
	State             State     `json:"state"`
	Players           Players   `json:"players"`
	Suspects          []Suspect `json:"suspects"`
	RevealedClues     []string  `json:"revealedClues"`
	CurrentTranscript string    `json:"currentTranscript"`
	NarratorText      string    `json:"narratorText"`
	AccusedSuspect    *string   `json:"accusedSuspect"`
	GameResult        *Result   `json:"gameResult"`
	LastPlayerTurn    PlayerID  `json:"lastPlayerTurn"`
}

// HasClue reports whether clue has already been revealed.
func (s *Session) HasClue(clue string) bool {
	for _, c := range s.RevealedClues {
		if c == clue {
			return true
		}
	}
	return false
}

// MentionedSuspects returns the display names of suspects already discussed,
// in seed order.
func (s *Session) MentionedSuspects() []string {
	var names []string
	for _, sus := range s.Suspects {
		if sus.Mentioned {
			names = append(names, sus.Name)
		}
	}
	return names
}

// Over reports whether a terminal result has been recorded.
func (s *Session) Over() bool {
	return s.GameResult != nil
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s *Session) Clone() Session {
	c := *s
	c.Players.Player1.Name = cloneString(s.Players.Player1.Name)
	c.Players.Player2.Name = cloneString(s.Players.Player2.Name)
	c.Suspects = append([]Suspect(nil), s.Suspects...)
	c.RevealedClues = append([]string{}, s.RevealedClues...)
	c.AccusedSuspect = cloneString(s.AccusedSuspect)
	if s.GameResult != nil {
		r := *s.GameResult
		c.GameResult = &r
	}
	return c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// DefaultSuspects returns a fresh copy of the dinner party guest list.
func DefaultSuspects() []Suspect {
	return []Suspect{
		{
			ID:       "webb",
			Name:     "Dr. Marcus Webb",
			Relation: "Eleanor's ex-fiance",
			Clue:     "Arrived angry",
		},
		{
			ID:       "clara",
			Name:     "Clara Finch",
			Relation: "Childhood friend",
			Clue:     "Left early, seemed nervous",
		},
		{
			ID:       "henry",
			Name:     "Henry Vance",
			Relation: "Business partner",
			Clue:     "Stayed late, alone with Eleanor",
		},
	}
}
