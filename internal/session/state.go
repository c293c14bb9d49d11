// Package session holds the per-user selection state and the pure reducer
// that applies navigation and selection events to it.
//
// State is owned by exactly one Session. Sessions never share mutable state;
// a server hosting many users creates one Session per user.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// View names known to the application. Navigation may target any name;
// unknown names render as ViewHome.
const (
	ViewHome     = "home"
	ViewAnalysis = "analysis"
)

// Selectable fields.
const (
	FieldX        = "x"
	FieldY        = "y"
	FieldIndustry = "industry"
)

// ErrUnknownField is returned for a selection event naming no known field.
var ErrUnknownField = errors.New("session: unknown selection field")

// State is the Session Selection State. Empty strings mean "unset".
type State struct {
	View     string `json:"view"`
	X        string `json:"x,omitempty"`
	Y        string `json:"y,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// NewState returns the state a session starts with.
func NewState() State {
	return State{View: ViewHome}
}

// Event is a navigation or selection event.
type Event interface {
	isEvent()
}

// Navigate moves the session to TargetView. It is never rejected.
type Navigate struct {
	TargetView string `json:"target_view"`
}

// Select sets one of x, y or industry.
type Select struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (Navigate) isEvent() {}
func (Select) isEvent()   {}

// Reduce applies ev to s and returns the new state. It has no side effects.
//
// Errors:
//   - ErrUnknownField for a Select on a field other than x, y or industry;
//     the returned state is s unchanged.
func Reduce(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Navigate:
		s.View = e.TargetView
		return s, nil
	case Select:
		switch e.Field {
		case FieldX:
			s.X = e.Value
		case FieldY:
			s.Y = e.Value
		case FieldIndustry:
			s.Industry = e.Value
		default:
			return s, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
		}
		return s, nil
	default:
		return s, fmt.Errorf("session: unsupported event %T", ev)
	}
}

// wireEvent is the JSON envelope accepted by DecodeEvent.
type wireEvent struct {
	Type       string `json:"type"`
	TargetView string `json:"target_view"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

// DecodeEvent parses {"type":"navigate","target_view":...} or
// {"type":"select","field":...,"value":...}.
func DecodeEvent(b []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("session: decode event: %w", err)
	}
	switch w.Type {
	case "navigate":
		return Navigate{TargetView: w.TargetView}, nil
	case "select":
		return Select{Field: w.Field, Value: w.Value}, nil
	default:
		return nil, fmt.Errorf("session: unknown event type %q", w.Type)
	}
}
