package battle

import (
	"strconv"
	"strings"
)

// Kind enumerates the protocol events the fusion layer understands. Every
// other line decodes to KindUnknown and is passed through untouched.
type Kind int

const (
	KindUnknown Kind = iota
	KindWin
	KindTie
	KindTurn
	KindUpkeep
	KindMove
	KindSwitch
	KindFaint
	KindWeather
	KindFieldStart
	KindFieldEnd
	KindRequest
	KindForfeit
	KindReplayed
	KindError
	KindSpacer
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindWin:        "win",
	KindTie:        "tie",
	KindTurn:       "turn",
	KindUpkeep:     "upkeep",
	KindMove:       "move",
	KindSwitch:     "switch",
	KindFaint:      "faint",
	KindWeather:    "-weather",
	KindFieldStart: "-fieldstart",
	KindFieldEnd:   "-fieldend",
	KindRequest:    "request",
	KindForfeit:    "forfeit",
	KindReplayed:   "replayed",
	KindError:      "error",
	KindSpacer:     "spacer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one decoded protocol line. The set of implementations is closed;
// consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	Line() string
}

type raw string

func (r raw) Line() string { return string(r) }

// Unknown is any line the decoder does not model.
type Unknown struct{ raw }

func (Unknown) Kind() Kind { return KindUnknown }

// Win ends the battle in favor of Side.
type Win struct {
	raw
	Side Side
}

func (Win) Kind() Kind { return KindWin }

// Tie ends the battle with no winner.
type Tie struct{ raw }

func (Tie) Kind() Kind { return KindTie }

// Turn marks the start of turn N.
type Turn struct {
	raw
	N int
}

func (Turn) Kind() Kind { return KindTurn }

// Upkeep marks the end-of-turn residual phase.
type Upkeep struct{ raw }

func (Upkeep) Kind() Kind { return KindUpkeep }

// Move is a move being used by Source.
type Move struct {
	raw
	Source string
	Move   string
	Target string
}

func (Move) Kind() Kind { return KindMove }

// Switch is a battler entering the field.
type Switch struct {
	raw
	Ident   string
	Details string
	HP      string
}

func (Switch) Kind() Kind { return KindSwitch }

// Side returns the side owning the switched-in battler.
func (s Switch) Side() Side { return identSide(s.Ident) }

// Faint is a battler fainting.
type Faint struct {
	raw
	Ident string
}

func (Faint) Kind() Kind { return KindFaint }

// Weather reports the active weather. Condition "none" means cleared.
type Weather struct {
	raw
	Condition string
	From      string
	Upkeep    bool
}

func (Weather) Kind() Kind { return KindWeather }

// FieldStart reports a field condition (terrains among them) starting.
type FieldStart struct {
	raw
	Condition string
	From      string
}

func (FieldStart) Kind() Kind { return KindFieldStart }

// FieldEnd reports a field condition ending.
type FieldEnd struct {
	raw
	Condition string
	From      string
}

func (FieldEnd) Kind() Kind { return KindFieldEnd }

// RequestEvent carries the JSON choice request for one side.
type RequestEvent struct {
	raw
	JSON string
}

func (RequestEvent) Kind() Kind { return KindRequest }

// Decode parses the request payload.
func (r RequestEvent) Decode() (Request, error) { return ParseRequest(r.JSON) }

// Forfeit is the custom event marking Side giving up, distinct from a faint.
type Forfeit struct {
	raw
	Side Side
}

func (Forfeit) Kind() Kind { return KindForfeit }

// Replayed is the custom sentinel written after the recorded history has
// been fed back in; everything before it was already delivered.
type Replayed struct{ raw }

func (Replayed) Kind() Kind { return KindReplayed }

// Error is a simulator complaint, usually an invalid choice.
type Error struct {
	raw
	Message string
}

func (Error) Kind() Kind { return KindError }

// Spacer is the empty "|" line separating actions.
type Spacer struct{ raw }

func (Spacer) Kind() Kind { return KindSpacer }

// Protocol lines for the custom events.
const (
	ReplayedLine = "|replayed|"
	forfeitTag   = "forfeit"
)

// ForfeitLine renders the custom forfeit line for side.
func ForfeitLine(side Side) string { return "|" + forfeitTag + "|" + string(side) }

// ParseLine decodes one protocol line.
func ParseLine(line string) Event {
	r := raw(line)
	if !strings.HasPrefix(line, "|") {
		return Unknown{r}
	}
	parts := strings.Split(line[1:], "|")
	args, tags := splitTags(parts[1:])
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	switch parts[0] {
	case "":
		if len(parts) == 1 {
			return Spacer{r}
		}
	case "win":
		return Win{raw: r, Side: Side(arg(0))}
	case "tie":
		return Tie{r}
	case "turn":
		n, _ := strconv.Atoi(arg(0))
		return Turn{raw: r, N: n}
	case "upkeep":
		return Upkeep{r}
	case "move":
		return Move{raw: r, Source: arg(0), Move: arg(1), Target: arg(2)}
	case "switch", "drag":
		return Switch{raw: r, Ident: arg(0), Details: arg(1), HP: arg(2)}
	case "faint":
		return Faint{raw: r, Ident: arg(0)}
	case "-weather":
		_, upkeep := tags["upkeep"]
		return Weather{raw: r, Condition: arg(0), From: tags["from"], Upkeep: upkeep}
	case "-fieldstart":
		return FieldStart{raw: r, Condition: arg(0), From: tags["from"]}
	case "-fieldend":
		return FieldEnd{raw: r, Condition: arg(0), From: tags["from"]}
	case "request":
		return RequestEvent{raw: r, JSON: strings.Join(parts[1:], "|")}
	case forfeitTag:
		return Forfeit{raw: r, Side: Side(arg(0))}
	case "replayed":
		return Replayed{r}
	case "error":
		return Error{raw: r, Message: strings.Join(parts[1:], "|")}
	}
	return Unknown{r}
}

// ParseChunk decodes every line of a stream chunk.
func ParseChunk(chunk string) []Event {
	lines := strings.Split(strings.TrimRight(chunk, "\n"), "\n")
	out := make([]Event, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		out = append(out, ParseLine(l))
	}
	return out
}

// splitTags separates positional arguments from "[key] value" tags.
func splitTags(parts []string) ([]string, map[string]string) {
	args := parts[:0:0]
	tags := map[string]string{}
	for _, p := range parts {
		if strings.HasPrefix(p, "[") {
			if end := strings.Index(p, "]"); end > 0 {
				tags[p[1:end]] = strings.TrimSpace(p[end+1:])
				continue
			}
		}
		args = append(args, p)
	}
	return args, tags
}

func identSide(ident string) Side {
	if len(ident) < 2 {
		return ""
	}
	return Side(ident[:2])
}
