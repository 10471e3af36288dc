// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package protograph implements the per-Host protocol stack: a graph
// of Sessions wired together by push/pop/control, with a shared
// lifecycle and a name/number index (spec §4.E).
package protograph

import "github.com/grimmlab/chronoswitch/internal/errors"

// Stage is a Session's position in the Created→Configured→Initialized
// →WrappedUp lifecycle.
type Stage string

const (
	StageCreated     Stage = "created"
	StageConfigured  Stage = "configured"
	StageInitialized Stage = "initialized"
	StageWrappedUp   Stage = "wrapped_up"
)

// InstantiationType governs how many copies of a protocol kind the
// Graph will allow.
type InstantiationType int

const (
	// UniqueInstance: at most one session of this kind may exist in
	// the graph.
	UniqueInstance InstantiationType = iota
	// MultipleInstances: any number of sessions of this kind may
	// coexist, each under a distinct name.
	MultipleInstances
	// MultipleImplementations: any number of sessions may coexist,
	// each presenting a different underlying Kind (e.g. two transports
	// both registered as "transport").
	MultipleImplementations
)

// ControlType names a control() query. The base session only
// recognizes IsLowestLayer; anything else unhandled at the base is a
// fatal error (spec §4.E "Unknown control types are a fatal error at
// the base").
type ControlType string

const (
	ControlIsLowestLayer ControlType = "is_lowest_layer"
)

// Async is the sentinel push/pop return value meaning "the call will
// complete asynchronously": the caller must not retain ownership of
// msg and must not re-enter the session before it completes.
var Async = errors.New(errors.KindInternal, "protograph: call will complete asynchronously")

// Session is the tagged-variant capability interface every protocol
// kind implements — there is no base class and no downcasting; a
// caller that needs kind-specific behavior matches on Kind() or sends
// a control() message.
type Session interface {
	// Name is this session's unique identifier within its Graph.
	Name() string
	// Kind names the protocol this session implements (e.g. "ip",
	// "udp", "tap"), used for the graph's instantiation-type checks.
	Kind() string
	// Number is the stable protocol id peers use for demultiplexing.
	Number() int
	// Instantiation declares how many sessions of this Kind the graph
	// may hold simultaneously.
	Instantiation() InstantiationType

	// Stage reports the session's current lifecycle stage.
	Stage() Stage
	// Configure transitions Created → Configured.
	Configure() error
	// Init transitions Configured → Initialized. May call Init on
	// sessions it depends on, but must check their Stage() first —
	// Init is not idempotent and must be called at most once per
	// session by the graph.
	Init() error
	// WrapUp transitions Initialized → WrappedUp, releasing resources.
	WrapUp() error

	// Push passes msg down from upperSession. Returns nil on
	// synchronous success, Async if it will complete later, or an
	// error.
	Push(msg any, upperSession Session, extinfo map[string]any) error
	// Pop passes msg up from lowerSession. Same return convention as Push.
	Pop(msg any, lowerSession Session, extinfo map[string]any) error
	// Control is the protocol-neutral side channel for queries like
	// "are you the lowest layer?" (spec §4.E). Unknown ControlTypes
	// reaching a session that does not override the base behavior are
	// a fatal ConfigInvalid error.
	Control(ctype ControlType, msg any, sender Session) (any, error)
}

// BaseSession is embedded by concrete Session implementations to
// supply the lifecycle bookkeeping and the base Control behavior,
// mirroring how the teacher's Flow/FlowState pairs a plain state
// field with a small fixed set of string-valued states rather than a
// class hierarchy.
type BaseSession struct {
	SessionName   string
	SessionKind   string
	SessionNumber int
	InstType      InstantiationType
	stage         Stage
}

func NewBaseSession(name, kind string, number int, inst InstantiationType) BaseSession {
	return BaseSession{SessionName: name, SessionKind: kind, SessionNumber: number, InstType: inst, stage: StageCreated}
}

func (b *BaseSession) Name() string                       { return b.SessionName }
func (b *BaseSession) Kind() string                        { return b.SessionKind }
func (b *BaseSession) Number() int                         { return b.SessionNumber }
func (b *BaseSession) Instantiation() InstantiationType     { return b.InstType }
func (b *BaseSession) Stage() Stage                        { return b.stage }

func (b *BaseSession) Configure() error {
	if b.stage != StageCreated {
		return errors.Errorf(errors.ConfigInvalid, "session %q: Configure called from stage %q, want %q", b.SessionName, b.stage, StageCreated)
	}
	b.stage = StageConfigured
	return nil
}

// Init transitions Configured → Initialized. Concrete sessions that
// need to recursively initialize dependencies should check
// dep.Stage() != StageInitialized before calling dep.Init(), per spec
// §4.E, then call BaseSession.Init to record their own transition.
func (b *BaseSession) Init() error {
	if b.stage != StageConfigured {
		return errors.Errorf(errors.ConfigInvalid, "session %q: Init called from stage %q, want %q", b.SessionName, b.stage, StageConfigured)
	}
	b.stage = StageInitialized
	return nil
}

func (b *BaseSession) WrapUp() error {
	if b.stage != StageInitialized {
		return errors.Errorf(errors.ConfigInvalid, "session %q: WrapUp called from stage %q, want %q", b.SessionName, b.stage, StageInitialized)
	}
	b.stage = StageWrappedUp
	return nil
}

// BaseControl implements the base Control behavior: IsLowestLayer
// answers false by default (a concrete lowest-layer session, e.g. a
// tap driver, overrides Control to answer true); anything else is
// fatal.
func (b *BaseSession) BaseControl(ctype ControlType, _ any, _ Session) (any, error) {
	switch ctype {
	case ControlIsLowestLayer:
		return false, nil
	default:
		return nil, errors.Errorf(errors.ConfigInvalid, "session %q: unknown control type %q", b.SessionName, ctype)
	}
}
