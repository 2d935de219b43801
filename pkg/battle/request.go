package battle

import (
	"encoding/json"
	"fmt"
)

// Request is the subset of a simulator choice request the CPU and the TUI
// need.
type Request struct {
	RQID        int            `json:"rqid"`
	TeamPreview bool           `json:"teamPreview,omitempty"`
	Wait        bool           `json:"wait,omitempty"`
	ForceSwitch []bool         `json:"forceSwitch,omitempty"`
	Active      []ActiveSlot   `json:"active,omitempty"`
	Side        RequestSideRef `json:"side"`
}

// ActiveSlot lists the moves of one active battler.
type ActiveSlot struct {
	Moves []RequestMove `json:"moves"`
}

// RequestMove is one selectable move.
type RequestMove struct {
	Move     string `json:"move"`
	ID       string `json:"id"`
	PP       int    `json:"pp"`
	MaxPP    int    `json:"maxpp"`
	Disabled flag   `json:"disabled"`
}

// RequestSideRef identifies the requested side.
type RequestSideRef struct {
	Name string `json:"name"`
	ID   Side   `json:"id"`
}

// flag accepts the simulator's bool-or-reason-string disabled field.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flag(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flag(s != "")
	return nil
}

// ParseRequest decodes a request payload.
func ParseRequest(payload string) (Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// EnabledMoves returns the 1-based slots of selectable moves for the first
// active battler.
func (r Request) EnabledMoves() []int {
	if len(r.Active) == 0 {
		return nil
	}
	var out []int
	for i, m := range r.Active[0].Moves {
		if !bool(m.Disabled) {
			out = append(out, i+1)
		}
	}
	return out
}

// NeedsChoice reports whether the side has to answer this request.
func (r Request) NeedsChoice() bool {
	return !r.Wait
}
