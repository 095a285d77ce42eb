/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "github.com/Seednode/parlor/internal/session"

// CanAccept reports whether player's regular input is legal in state.
// Either player may speak during the accusation phase.
func CanAccept(state session.State, player session.PlayerID) bool {
	if !player.Valid() {
		return false
	}
	return state == player.TurnState() || state == session.StateAccusationPhase
}

// NextTurn is the turn state of whoever did not act last.
func NextTurn(last session.PlayerID) session.State {
	return last.Other().TurnState()
}

// NameState is the state in which player may give their name.
func NameState(player session.PlayerID) session.State {
	if player == session.Player1 {
		return session.StateAskingPlayer1Name
	}
	return session.StateAskingPlayer2Name
}

// AfterNarration returns the state a narration-finished signal moves s to,
// and whether it changes anything. The intro script order is fixed here,
// never by the client.
func AfterNarration(s session.Session) (session.State, bool) {
	if s.Over() {
		return s.State, false
	}

	switch s.State {
	case session.StateNarratorIntro:
		return session.StateAskingPlayer1Name, true
	case session.StateWaitingToStart,
		session.StateAskingPlayer1Name,
		session.StateAskingPlayer2Name,
		session.StateGameOver:
		return s.State, false
	}

	next := NextTurn(s.LastPlayerTurn)
	return next, next != s.State
}
