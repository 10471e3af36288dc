// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

// Layer is the concrete, reusable Session implementation for the
// common case: a protocol that sits between exactly one upper and one
// lower session and passes messages straight through, optionally
// transforming them. Purpose-built sessions (e.g. a tap driver that
// has no lower layer, or a demultiplexer with several uppers) embed
// BaseSession directly instead and implement Push/Pop/Control by hand.
type Layer struct {
	BaseSession

	lower Session
	upper Session

	// OnPush transforms a message on its way down before it is handed
	// to Lower. A nil OnPush passes msg through unchanged.
	OnPush func(msg any, extinfo map[string]any) (any, error)
	// OnPop transforms a message on its way up before it is handed to
	// Upper.
	OnPop func(msg any, extinfo map[string]any) (any, error)
}

// NewLayer constructs a pass-through Layer session.
func NewLayer(name, kind string, number int, inst InstantiationType) *Layer {
	return &Layer{BaseSession: NewBaseSession(name, kind, number, inst)}
}

// SetLower wires this layer's downstream session.
func (l *Layer) SetLower(s Session) { l.lower = s }

// SetUpper wires this layer's upstream session.
func (l *Layer) SetUpper(s Session) { l.upper = s }

// Push implements Session: transform msg via OnPush, then forward it
// to the lower session. A Layer with no lower session is the base of
// the stack; Push on it is a no-op success (the concrete lowest-layer
// session, e.g. a tap driver, overrides Push to actually transmit).
func (l *Layer) Push(msg any, upperSession Session, extinfo map[string]any) error {
	out := msg
	if l.OnPush != nil {
		var err error
		out, err = l.OnPush(msg, extinfo)
		if err != nil {
			return err
		}
	}
	if l.lower == nil {
		return nil
	}
	return l.lower.Push(out, l, extinfo)
}

// Pop implements Session: transform msg via OnPop, then forward it to
// the upper session. A Layer with no upper session is the top of the
// stack; Pop on it is a no-op success.
func (l *Layer) Pop(msg any, lowerSession Session, extinfo map[string]any) error {
	out := msg
	if l.OnPop != nil {
		var err error
		out, err = l.OnPop(msg, extinfo)
		if err != nil {
			return err
		}
	}
	if l.upper == nil {
		return nil
	}
	return l.upper.Pop(out, l, extinfo)
}

// Control answers IsLowestLayer truthfully based on whether a lower
// session is wired, and otherwise falls back to the base behavior.
func (l *Layer) Control(ctype ControlType, msg any, sender Session) (any, error) {
	if ctype == ControlIsLowestLayer {
		return l.lower == nil, nil
	}
	return l.BaseControl(ctype, msg, sender)
}
