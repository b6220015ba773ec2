package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// EvalString is a textual template split into literal and variable-reference
// tokens. It is built once by the parser and evaluated many times, once per
// edge, against whatever Env is in scope at that point.
//
// A reference starts with '$' and takes one of three forms: "$$" (a literal
// dollar), "${name}" (braced), or "$name" where name is the maximal run of
// [A-Za-z0-9_]. Rule command templates additionally accept the legacy "@name"
// form, which resolves through the same Env lookup.
type EvalString struct {
	tokens []evalToken
}

type evalToken struct {
	text  string
	isVar bool
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// ParseEvalString parses text into an EvalString. The only parse failure is
// an unterminated ${...} reference.
func ParseEvalString(text string) (EvalString, error) {
	var es EvalString
	if err := es.Parse(text); err != nil {
		return EvalString{}, err
	}
	return es, nil
}

// Parse replaces the receiver's tokens with the parse of text.
func (es *EvalString) Parse(text string) error {
	es.tokens = nil
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			es.tokens = append(es.tokens, evalToken{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]
		if c != '$' && c != '@' {
			lit.WriteByte(c)
			i++
			continue
		}

		if c == '$' && i+1 < len(text) && text[i+1] == '$' {
			lit.WriteByte('$')
			i += 2
			continue
		}

		if c == '$' && i+1 < len(text) && text[i+1] == '{' {
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				return zerr.With(ErrUnterminatedReference, "template", text)
			}
			flush()
			es.tokens = append(es.tokens, evalToken{text: text[i+2 : i+2+end], isVar: true})
			i += 2 + end + 1
			continue
		}

		j := i + 1
		for j < len(text) && isIdentChar(text[j]) {
			j++
		}
		if j == i+1 {
			// A bare sigil with no name is literal text.
			lit.WriteByte(c)
			i++
			continue
		}
		flush()
		es.tokens = append(es.tokens, evalToken{text: text[i+1 : j], isVar: true})
		i = j
	}

	flush()
	return nil
}

// Evaluate concatenates the tokens, resolving variable references through
// env. A nil env and a missing variable both evaluate to the empty string.
func (es EvalString) Evaluate(env Env) string {
	var out strings.Builder
	for _, tok := range es.tokens {
		if !tok.isVar {
			out.WriteString(tok.text)
			continue
		}
		if env != nil {
			out.WriteString(env.Lookup(tok.text))
		}
	}
	return out.String()
}

// Empty reports whether the template has no tokens at all.
func (es EvalString) Empty() bool {
	return len(es.tokens) == 0
}
