// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dml

import (
	"os"

	"github.com/grimmlab/chronoswitch/internal/errors"
)

// Load parses and merges one or more DML files: the first-level
// children of every file become children of a single shared root
// (spec §4.A load(files[])).
func Load(files ...string) (*Tree, error) {
	t := NewTree()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.OpenDMLFile, "open DML file %q", path)
		}
		if err := ParseInto(t, path, string(data)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseString parses a single in-memory DML source into a fresh tree.
// name is used only for error locations.
func ParseString(name, src string) (*Tree, error) {
	t := NewTree()
	if err := ParseInto(t, name, src); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseInto parses src and appends its top-level attributes as
// children of t's root, under the given name for error locations.
func ParseInto(t *Tree, name, src string) error {
	lex := newLexer(name, src)
	return parseAttrs(t, lex, t.Root(), true)
}

func classifyKey(s string) KeyTag {
	switch s {
	case "_extends":
		return KeyExtends
	case "_find":
		return KeyFind
	case "_schema":
		return KeySchema
	default:
		return KeyIdent
	}
}

// parseAttrs reads "key value" / "key [ ... ]" pairs into parent's
// children until it sees the token that ends the current scope: EOF
// at the top level, ']' inside a nested list.
func parseAttrs(t *Tree, lex *lexer, parent Index, topLevel bool) error {
	for {
		keyTok, err := lex.next()
		if err != nil {
			return errors.Wrap(err, errors.ParseError, "scanning DML key")
		}

		switch keyTok.kind {
		case tokEOF:
			if !topLevel {
				return locErr(keyTok.loc, errors.ParseError, "unterminated list: missing ']'")
			}
			return nil
		case tokRBracket:
			if topLevel {
				return locErr(keyTok.loc, errors.ParseError, "unexpected ']' at top level")
			}
			return nil
		case tokString:
			return locErr(keyTok.loc, errors.IllegalAttributeKey, "quoted string used as attribute key")
		}

		keyTag := classifyKey(keyTok.text)

		valTok, err := lex.next()
		if err != nil {
			return errors.Wrap(err, errors.ParseError, "scanning DML value")
		}

		switch valTok.kind {
		case tokLBracket:
			child := t.alloc(Node{
				Kind:          KindList,
				KeyTag:        keyTag,
				Key:           t.Strings.Intern(keyTok.text),
				ExpansionLink: NilIndex,
				Location:      keyTok.loc,
			})
			t.addChild(parent, child)
			if err := parseAttrs(t, lex, child, false); err != nil {
				return err
			}
		case tokIdent, tokString:
			child := t.alloc(Node{
				Kind:          KindString,
				KeyTag:        keyTag,
				Key:           t.Strings.Intern(keyTok.text),
				Value:         t.Strings.Intern(valTok.text),
				ExpansionLink: NilIndex,
				Location:      keyTok.loc,
			})
			t.addChild(parent, child)
		case tokEOF:
			return locErr(keyTok.loc, errors.ParseError, "attribute %q has no value", keyTok.text)
		case tokRBracket:
			return locErr(keyTok.loc, errors.ParseError, "attribute %q has no value before ']'", keyTok.text)
		}
	}
}

func locErr(loc Location, kind errors.Kind, format string, args ...any) error {
	err := errors.Errorf(kind, format, args...)
	err = errors.Attr(err, "file", loc.File)
	err = errors.Attr(err, "line", loc.Line)
	err = errors.Attr(err, "column", loc.Column)
	err = errors.Attr(err, "start_byte", loc.StartByte)
	err = errors.Attr(err, "end_byte", loc.EndByte)
	return err
}
