// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors provides the structured error type shared across the
// emulation/simulation engine. Every recoverable-vs-unrecoverable
// decision in the engine (see spec §7) is made by inspecting a Kind,
// never by string-matching an error message.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for propagation-policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal

	// ConfigInvalid: malformed DML, missing required attribute. Abort load.
	ConfigInvalid
	// RouteUnresolvable: next-hop cannot be tied to any endpoint of the link. Log, drop route, continue.
	RouteUnresolvable
	// DuplicateSession: protocol graph sees a second session where only one is allowed. Abort startup.
	DuplicateSession
	// CrossTimelineDropped: a channel write could not deliver to some subset of targets.
	CrossTimelineDropped
	// EmulationDrift: a container's elapsed vtime after advance differs from target by > 1ms.
	EmulationDrift
	// KernelServiceUnavailable: a time-dilation or socket-hook call failed.
	KernelServiceUnavailable
	// PacketUnroutable: destination IP has no matching Proxy.
	PacketUnroutable
	// RecursiveExpansion: DML _extends/_find forms a cycle.
	RecursiveExpansion
	// MissingAttachment: findSingle/find resolved to nothing required by the caller.
	MissingAttachment
	// NonListAttachment: an _extends keypath resolved to a String node, not a List.
	NonListAttachment
	// IllegalAttributeKey: a quoted string (or other non-identifier token) appeared where a key was expected.
	IllegalAttributeKey
	// ParseError: malformed DML syntax (unterminated list, unterminated string, stray token).
	ParseError
	// OpenDMLFile: a DML source file could not be read from disk.
	OpenDMLFile
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case ConfigInvalid:
		return "config_invalid"
	case RouteUnresolvable:
		return "route_unresolvable"
	case DuplicateSession:
		return "duplicate_session"
	case CrossTimelineDropped:
		return "cross_timeline_dropped"
	case EmulationDrift:
		return "emulation_drift"
	case KernelServiceUnavailable:
		return "kernel_service_unavailable"
	case PacketUnroutable:
		return "packet_unroutable"
	case RecursiveExpansion:
		return "recursive_expansion"
	case MissingAttachment:
		return "missing_attachment"
	case NonListAttachment:
		return "non_list_attachment"
	case IllegalAttributeKey:
		return "illegal_attribute_key"
	case ParseError:
		return "parse_error"
	case OpenDMLFile:
		return "open_dml_file"
	default:
		return "unknown"
	}
}

// Recoverable reports whether policy (spec §7) treats this Kind as
// log-and-continue rather than an aborting startup/config error.
func (k Kind) Recoverable() bool {
	switch k {
	case RouteUnresolvable, CrossTimelineDropped, EmulationDrift,
		KernelServiceUnavailable, PacketUnroutable:
		return true
	default:
		return false
	}
}

// Error is a structured, chainable error carrying a Kind and optional
// attributes (e.g. file/line for ConfigInvalid, pid for EmulationDrift).
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf wraps an existing error as a new Error of the specified kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// Attr attaches an attribute to an error, wrapping non-*Error values as KindInternal.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: err.Error(), Underlying: err}
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of err, or KindUnknown if err carries none.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetAttributes collects attributes from every *Error in err's chain,
// innermost values losing to outer ones on key collision.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	var e *Error
	cur := err
	for cur != nil {
		if !errors.As(cur, &e) {
			break
		}
		for k, v := range e.Attributes {
			if _, ok := attrs[k]; !ok {
				attrs[k] = v
			}
		}
		cur = e.Underlying
	}
	return attrs
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool { return errors.As(err, target) }

// Unwrap returns the result of calling err's Unwrap method, if any.
func Unwrap(err error) error { return errors.Unwrap(err) }
