package fusion

import "errors"

var (
	ErrInvalidMove    = errors.New("invalid move")
	ErrMissingPokemon = errors.New("square has no bound pokemon")
	ErrBattlePending  = errors.New("a battle is in progress")
	ErrNoBattle       = errors.New("no battle in progress")
	ErrGameOver       = errors.New("game is over")
	ErrNoVerdict      = errors.New("battle ended without a winner")
	ErrInvalidChoice  = errors.New("battle rejected choice")
)
