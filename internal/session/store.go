/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds at most one live session. Every mutator is a no-op when no
// session exists; callers check existence at the orchestration boundary.
type Store struct {
	mu      sync.RWMutex
	current *Session
}

func NewStore() *Store {
	return &Store{}
}

// Create discards any existing session and installs a fresh one.
func (s *Store) Create() Session {
	fresh := &Session{
		ID:    uuid.NewString(),
		State: StateWaitingToStart,
		Players: Players{
			Player1: Player{ID: Player1},
			Player2: Player{ID: Player2},
		},
		Suspects:       DefaultSuspects(),
		RevealedClues:  []string{},
		LastPlayerTurn: Player2,
	}

	s.mu.Lock()
	s.current = fresh
	s.mu.Unlock()

	return fresh.Clone()
}

// Reset is indistinguishable from Create.
func (s *Store) Reset() Session {
	return s.Create()
}

// Get returns a copy of the current session.
func (s *Store) Get() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Session{}, false
	}
	return s.current.Clone(), true
}

func (s *Store) mutate(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	fn(s.current)
}

func (s *Store) SetState(state State) {
	s.mutate(func(sess *Session) {
		sess.State = state
	})
}

func (s *Store) SetPlayerName(id PlayerID, name string) {
	s.mutate(func(sess *Session) {
		if p := sess.Players.Get(id); p != nil {
			p.Name = &name
		}
	})
}

func (s *Store) SetPlayerConnected(id PlayerID, connected bool) {
	s.mutate(func(sess *Session) {
		if p := sess.Players.Get(id); p != nil {
			p.Connected = connected
		}
	})
}

// AddRevealedClue appends clue unless it is already present.
func (s *Store) AddRevealedClue(clue string) {
	s.mutate(func(sess *Session) {
		if !sess.HasClue(clue) {
			sess.RevealedClues = append(sess.RevealedClues, clue)
		}
	})
}

// MarkSuspectMentioned flags the suspect; unknown ids are ignored.
func (s *Store) MarkSuspectMentioned(id string) {
	s.mutate(func(sess *Session) {
		for i := range sess.Suspects {
			if sess.Suspects[i].ID == id {
				sess.Suspects[i].Mentioned = true
				return
			}
		}
	})
}

func (s *Store) SetNarratorText(text string) {
	s.mutate(func(sess *Session) {
		sess.NarratorText = text
	})
}

func (s *Store) SetCurrentTranscript(text string) {
	s.mutate(func(sess *Session) {
		sess.CurrentTranscript = text
	})
}

func (s *Store) SetLastPlayerTurn(id PlayerID) {
	s.mutate(func(sess *Session) {
		sess.LastPlayerTurn = id
	})
}

// SetGameOver records the terminal result. A result, once set, is kept.
func (s *Store) SetGameOver(won bool, accused string) {
	s.mutate(func(sess *Session) {
		if sess.GameResult != nil {
			return
		}
		result := ResultLost
		if won {
			result = ResultWon
		}
		sess.State = StateGameOver
		sess.GameResult = &result
		sess.AccusedSuspect = &accused
	})
}
