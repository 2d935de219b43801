package fusion

import (
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/weather"
)

// EntryKind tags a journal entry.
type EntryKind string

const (
	EntryChess   EntryKind = "chess"
	EntryPokemon EntryKind = "pokemon"
	EntryWeather EntryKind = "weather"
	EntryGeneric EntryKind = "generic"
)

// Entry is one line of the game journal. Exactly one payload is set,
// matching Kind.
type Entry struct {
	Seq     int           `json:"seq"`
	Kind    EntryKind     `json:"kind"`
	At      time.Time     `json:"at"`
	Chess   *ChessEntry   `json:"chess,omitempty"`
	Pokemon *PokemonEntry `json:"pokemon,omitempty"`
	Weather *WeatherEntry `json:"weather,omitempty"`
	Generic *GenericEntry `json:"generic,omitempty"`
}

// ChessEntry records a move. Failed is set when a capture lost its battle
// and the capturing piece was removed instead.
type ChessEntry struct {
	Color    chess.Color `json:"color"`
	Notation string      `json:"notation"`
	Failed   bool        `json:"failed"`
}

// PokemonEvent is the sub-kind of a pokemon entry.
type PokemonEvent string

const (
	PokemonStart   PokemonEvent = "start"
	PokemonChunk   PokemonEvent = "chunk"
	PokemonVictory PokemonEvent = "victory"
)

// PokemonEntry records battle progress.
type PokemonEntry struct {
	Event       PokemonEvent         `json:"event"`
	BattleID    uuid.UUID            `json:"battleId"`
	Perspective string               `json:"perspective,omitempty"`
	Chunk       string               `json:"chunk,omitempty"`
	Start       *battle.StartOptions `json:"start,omitempty"`
	Square      chess.Square         `json:"square"`
	Winner      battle.Side          `json:"winner,omitempty"`
}

// WeatherEntry records square modifier changes.
type WeatherEntry struct {
	Deltas []weather.Delta `json:"deltas"`
}

// EndReason says why a game ended.
type EndReason string

const (
	ReasonKingCaptured EndReason = "KING_CAPTURED"
	ReasonResigned     EndReason = "RESIGNED"
	ReasonDraw         EndReason = "DRAW"
)

// GenericEntry records game-level events.
type GenericEntry struct {
	Reason EndReason   `json:"reason"`
	Winner chess.Color `json:"winner"`
}

// Ending is how a game finished. Winner is chess.NoColor for a draw.
type Ending struct {
	Reason EndReason
	Winner chess.Color
}
