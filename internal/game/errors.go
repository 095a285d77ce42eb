/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrNoSession      = errors.New("no game in progress")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrMalformedInput = errors.New("malformed input")
	ErrNameAlreadySet = errors.New("player name already set")
	ErrGameOver       = errors.New("game is over")
	ErrInProgress     = errors.New("game already in progress")
	ErrSessionReset   = errors.New("session was reset while the narrator was responding")
)
