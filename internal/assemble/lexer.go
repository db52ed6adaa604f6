// Package assemble is VIPL's textual front end: a minimal lexer, parser,
// and emitter for a line-oriented bytecode-assembly syntax, standing in
// for the surface-language lexer/parser/codegen spec.md scopes out.
// It exists only to make the repository runnable and testable end to
// end — see SPEC_FULL.md §6.
package assemble

import (
	"strings"

	"github.com/pkg/errors"
)

// tokenKind distinguishes the shapes of argument a mnemonic can take.
type tokenKind int

const (
	tokIdent tokenKind = iota // bare word: mnemonics, type names, jump kinds, true/false
	tokInt
	tokFloat
	tokChar   // 'c'
	tokString // "..."
)

type token struct {
	kind tokenKind
	text string // raw text for idents/numbers; unescaped payload for char/string
}

// lexLine splits one line of source into a label (if the line is exactly
// "name:"), a mnemonic, and its comma-separated argument tokens. Comments
// start with ';' and run to end of line; blank lines are skipped by the
// caller.
func lexLine(line string) (label string, mnemonic string, args []token, err error) {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", nil, nil
	}

	if strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t,") {
		return strings.TrimSuffix(line, ":"), "", nil, nil
	}

	fields := strings.SplitN(line, " ", 2)
	mnemonic = strings.ToLower(strings.TrimSpace(fields[0]))
	if len(fields) == 1 {
		return "", mnemonic, nil, nil
	}

	args, err = lexArgs(fields[1])
	if err != nil {
		return "", "", nil, errors.Wrapf(err, "instruction %q", mnemonic)
	}
	return "", mnemonic, args, nil
}

// lexArgs splits a comma-separated argument list into tokens, respecting
// quoted strings and char literals so a comma inside '...' or "..." does
// not split the argument.
func lexArgs(rest string) ([]token, error) {
	var tokens []token
	var parts []string

	var b strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case inQuote != 0:
			b.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
			b.WriteByte(c)
		case c == ',':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if inQuote != 0 {
		return nil, errors.New("unterminated quote")
	}
	parts = append(parts, b.String())

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tok, err := lexOne(p)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func lexOne(s string) (token, error) {
	switch {
	case strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") && len(s) >= 2:
		return token{kind: tokString, text: s[1 : len(s)-1]}, nil
	case strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 2:
		runes := []rune(s[1 : len(s)-1])
		if len(runes) != 1 {
			return token{}, errors.Errorf("invalid char literal %q", s)
		}
		return token{kind: tokChar, text: string(runes[0])}, nil
	case looksNumeric(s):
		if strings.ContainsAny(s, ".eE") && !strings.HasPrefix(s, "0x") {
			return token{kind: tokFloat, text: s}, nil
		}
		return token{kind: tokInt, text: s}, nil
	default:
		return token{kind: tokIdent, text: s}, nil
	}
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			if c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+' {
				continue
			}
			return false
		}
	}
	return true
}
