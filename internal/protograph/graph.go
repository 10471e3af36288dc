// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package protograph

import (
	"fmt"

	"github.com/grimmlab/chronoswitch/internal/errors"
)

// Graph is one Host's protocol stack: the set of Sessions wired
// together, plus the name→session and number→session indexes spec
// §4.E requires for demultiplexing.
type Graph struct {
	Description string

	byName      map[string]Session
	byNumber    map[int]Session
	kindCount   map[string]int
	kindInst    map[string]InstantiationType
	insertOrder []string
}

// NewGraph creates an empty Graph.
func NewGraph(description string) *Graph {
	return &Graph{
		Description: description,
		byName:      make(map[string]Session),
		byNumber:    make(map[int]Session),
		kindCount:   make(map[string]int),
		kindInst:    make(map[string]InstantiationType),
	}
}

// Add registers s with the graph, enforcing instantiation_type (spec
// §4.E "Session uniqueness"): a second UniqueInstance session of a
// kind already present is a DuplicateSession error, and a
// MultipleInstances/MultipleImplementations kind may repeat freely as
// long as each session's Name is itself unique.
func (g *Graph) Add(s Session) error {
	if _, exists := g.byName[s.Name()]; exists {
		return errors.Errorf(errors.DuplicateSession, "protocol graph %q: session name %q already registered", g.Description, s.Name())
	}
	if other, exists := g.byNumber[s.Number()]; exists {
		return errors.Errorf(errors.DuplicateSession, "protocol graph %q: protocol number %d already claimed by session %q", g.Description, s.Number(), other.Name())
	}

	kind := s.Kind()
	if prevInst, seen := g.kindInst[kind]; seen {
		if prevInst != s.Instantiation() {
			return errors.Errorf(errors.ConfigInvalid, "protocol graph %q: session kind %q registered with inconsistent instantiation types", g.Description, kind)
		}
		if s.Instantiation() == UniqueInstance && g.kindCount[kind] > 0 {
			return errors.Errorf(errors.DuplicateSession, "protocol graph %q: kind %q is UniqueInstance but a second session %q was added", g.Description, kind, s.Name())
		}
	} else {
		g.kindInst[kind] = s.Instantiation()
	}

	g.byName[s.Name()] = s
	g.byNumber[s.Number()] = s
	g.kindCount[kind]++
	g.insertOrder = append(g.insertOrder, s.Name())
	return nil
}

// Session looks up a session by name.
func (g *Graph) Session(name string) (Session, bool) {
	s, ok := g.byName[name]
	return s, ok
}

// SessionByNumber looks up a session by its stable protocol number.
func (g *Graph) SessionByNumber(number int) (Session, bool) {
	s, ok := g.byNumber[number]
	return s, ok
}

// Sessions returns every registered session in insertion order.
func (g *Graph) Sessions() []Session {
	out := make([]Session, 0, len(g.insertOrder))
	for _, name := range g.insertOrder {
		out = append(out, g.byName[name])
	}
	return out
}

// ConfigureAll calls Configure on every session in insertion order.
func (g *Graph) ConfigureAll() error {
	for _, name := range g.insertOrder {
		s := g.byName[name]
		if s.Stage() != StageCreated {
			continue
		}
		if err := s.Configure(); err != nil {
			return err
		}
	}
	return nil
}

// Init calls every session's Init() at most once (spec §4.E "The
// graph's init() calls each session's init() at most once"). Sessions
// are free to call Init on their own dependencies first, as long as
// they check Stage() — Init skips any session already past
// StageConfigured so a dependency initialized early by another
// session is never re-entered.
func (g *Graph) Init() error {
	for _, name := range g.insertOrder {
		s := g.byName[name]
		if s.Stage() == StageInitialized || s.Stage() == StageWrappedUp {
			continue
		}
		if s.Stage() != StageConfigured {
			return errors.Errorf(errors.ConfigInvalid, "protocol graph %q: session %q not configured before Init (stage %q)", g.Description, s.Name(), s.Stage())
		}
		if err := s.Init(); err != nil {
			return fmt.Errorf("protocol graph %q: init session %q: %w", g.Description, s.Name(), err)
		}
	}
	return nil
}

// WrapUp tears every initialized session down in reverse insertion
// order, so a session's dependents unwind before the dependency does.
func (g *Graph) WrapUp() error {
	var firstErr error
	for i := len(g.insertOrder) - 1; i >= 0; i-- {
		s := g.byName[g.insertOrder[i]]
		if s.Stage() != StageInitialized {
			continue
		}
		if err := s.WrapUp(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
