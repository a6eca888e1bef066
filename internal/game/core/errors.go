package core

import "errors"

var (
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrNotAdjacent         = errors.New("tiles are not adjacent")
	ErrNotOwned            = errors.New("tile not owned by player")
	ErrTargetIsMountain    = errors.New("target tile is a mountain")
	ErrDoubleMove          = errors.New("player already moved this turn")
	ErrGameNotRunning      = errors.New("game is not running")
	ErrGameOver            = errors.New("game is over")
	ErrMapGenerationFailed = errors.New("map generation failed")
	ErrInvalidPlayer       = errors.New("invalid player")
	ErrRoomFull            = errors.New("room is full")
	ErrNotEnoughPlayers    = errors.New("not enough players to start")
	ErrColorsExhausted     = errors.New("no player color available")
)
