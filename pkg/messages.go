package pkg

import (
	"encoding/json"
	"fmt"

	"github.com/qnkhuat/chessmon/pkg/battle"
	"github.com/qnkhuat/chessmon/pkg/fusion"
)

type MessageType int

const (
	TypeMessageGame MessageType = iota
	TypeMessageMove
	TypeMessageTransport
	TypeMessageConnect
	TypeMessageJoin
	TypeMessageBattle
	TypeMessageBattleChoice
	TypeMessageAction
	TypeMessageChat
	TypeMessageGameOver
	TypeMessageError
	TypeMessageLeave
	TypeMessageDraftPick
	TypeMessageDraftBan
)

func (m MessageType) String() string {
	switch m {
	case TypeMessageGame:
		return "TypeMessageGame"
	case TypeMessageMove:
		return "TypeMessageMove"
	case TypeMessageTransport:
		return "TypeMessageTransport"
	case TypeMessageConnect:
		return "TypeMessageConnect"
	case TypeMessageJoin:
		return "TypeMessageJoin"
	case TypeMessageBattle:
		return "TypeMessageBattle"
	case TypeMessageBattleChoice:
		return "TypeMessageBattleChoice"
	case TypeMessageAction:
		return "TypeMessageAction"
	case TypeMessageChat:
		return "TypeMessageChat"
	case TypeMessageGameOver:
		return "TypeMessageGameOver"
	case TypeMessageError:
		return "TypeMessageError"
	case TypeMessageLeave:
		return "TypeMessageLeave"
	case TypeMessageDraftPick:
		return "TypeMessageDraftPick"
	case TypeMessageDraftBan:
		return "TypeMessageDraftBan"
	default:
		return "Unknown MessageType"
	}
}

type MessageInterface interface {
	Type() MessageType
}

// MessageTransport is the envelope every line on the wire carries.
type MessageTransport struct {
	MsgType  MessageType
	Data     json.RawMessage
	PlayerId int `json:",omitempty"`
}

func (m MessageTransport) Type() MessageType { return TypeMessageTransport }

// Wrap puts a message in its envelope.
func Wrap(m MessageInterface) (MessageTransport, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return MessageTransport{}, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return MessageTransport{MsgType: m.Type(), Data: data}, nil
}

// Encode frames an envelope as one newline-terminated line.
func Encode(t MessageTransport) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode transport: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode unpacks the payload of an envelope into v.
func Decode(t MessageTransport, v any) error {
	if err := json.Unmarshal(t.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", t.MsgType, err)
	}
	return nil
}

// PieceInfo is a bound piece as the client draws it.
type PieceInfo struct {
	Square  string `json:",omitempty"`
	Color   string
	Species string
	Name    string
	Level   int
	Tier    string
}

// ModifierInfo is the state of one square's modifiers.
type ModifierInfo struct {
	Square       string
	Weather      string `json:",omitempty"`
	WeatherTurns int    `json:",omitempty"`
	Terrain      string `json:",omitempty"`
	TerrainTurns int    `json:",omitempty"`
}

// MessageJoin is the first line a client sends. An empty MatchId joins any
// match with a free seat.
type MessageJoin struct {
	MatchId string
	Name    string
}

func (m MessageJoin) Type() MessageType { return TypeMessageJoin }

type MessageConnect struct {
	MatchId string
	Color   PlayerColor
	Game    MessageGame
}

func (m MessageConnect) Type() MessageType { return TypeMessageConnect }

// MessageGame is a board snapshot.
type MessageGame struct {
	Fen       string
	IsTurn    bool
	State     string
	LastMove  string `json:",omitempty"`
	Pieces    []PieceInfo
	Modifiers []ModifierInfo
	White     string
	Black     string
	// Clocks are the remaining seconds per color, white first.
	Clocks [2]int
	// Drafting is set until every starting square has a combatant.
	Drafting bool        `json:",omitempty"`
	Draft    []DraftInfo `json:",omitempty"`
	Banned   []string    `json:",omitempty"`
	Taken    []PieceInfo `json:",omitempty"`
}

func (m MessageGame) Type() MessageType { return TypeMessageGame }

type MessageMove struct {
	Move string
}

func (m MessageMove) Type() MessageType { return TypeMessageMove }

// MessageBattle carries new battle output for one perspective. Request is
// set when the receiver has to choose.
type MessageBattle struct {
	BattleId string
	Square   string
	Attacker string
	Defender string
	Side     battle.Side `json:",omitempty"`
	Chunks   []string
	Request  *battle.Request `json:",omitempty"`
	Pending  bool
	Winner   battle.Side `json:",omitempty"`
}

func (m MessageBattle) Type() MessageType { return TypeMessageBattle }

// MessageBattleChoice answers a battle request, e.g. "move 2".
type MessageBattleChoice struct {
	Choice string
}

func (m MessageBattleChoice) Type() MessageType { return TypeMessageBattleChoice }

type MessageAction struct {
	Action Action
}

func (m MessageAction) Type() MessageType { return TypeMessageAction }

type MessageChat struct {
	Name    string
	Message string
}

func (m MessageChat) Type() MessageType { return TypeMessageChat }

type MessageGameOver struct {
	Reason fusion.EndReason
	Winner string
}

func (m MessageGameOver) Type() MessageType { return TypeMessageGameOver }

type MessageError struct {
	Error string
}

func (m MessageError) Type() MessageType { return TypeMessageError }

// MessageLeave is raised by the server when a connection drops.
type MessageLeave struct{}

func (m MessageLeave) Type() MessageType { return TypeMessageLeave }

// DraftInfo is one entry of the draft pool. Index is its position at the
// time of the snapshot.
type DraftInfo struct {
	Index   int
	Species string
	Name    string
	Level   int
	Tier    string
}

// MessageDraftPick binds draft entry Index to one of the sender's starting
// squares.
type MessageDraftPick struct {
	Index  int
	Square string
}

func (m MessageDraftPick) Type() MessageType { return TypeMessageDraftPick }

type MessageDraftBan struct {
	Index int
}

func (m MessageDraftBan) Type() MessageType { return TypeMessageDraftBan }
