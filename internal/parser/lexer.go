package parser

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	lit  string
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.lit == punct
}

const punctuation = "(){}[]+-*/^,=:"

// tokenize splits one statement line into tokens. A "//" outside a string ends the line.
func tokenize(raw string) ([]token, error) {
	toks := make([]token, 0, len(raw)/2)
	r := []rune(raw)
	for i := 0; i < len(r); {
		ch := r[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			i++
		case ch == '/' && i+1 < len(r) && r[i+1] == '/':
			i = len(r)
		case isDigit(ch):
			j := i + 1
			for j < len(r) && isDigit(r[j]) {
				j++
			}
			if j+1 < len(r) && r[j] == '.' && isDigit(r[j+1]) {
				j += 2
				for j < len(r) && isDigit(r[j]) {
					j++
				}
			}
			toks = append(toks, token{kind: tokNumber, lit: string(r[i:j])})
			i = j
		case isIdentStart(ch):
			j := i + 1
			for j < len(r) {
				if isIdentPart(r[j]) {
					j++
					continue
				}
				if r[j] == '.' && j+1 < len(r) && isIdentStart(r[j+1]) {
					j += 2
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, lit: string(r[i:j])})
			i = j
		case ch == '"' || ch == '\'':
			j := i + 1
			escape := false
			for j < len(r) {
				if escape {
					escape = false
				} else if r[j] == '\\' {
					escape = true
				} else if r[j] == ch {
					break
				}
				j++
			}
			if j >= len(r) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, token{kind: tokString, lit: unescape(string(r[i+1 : j]))})
			i = j + 1
		case strings.ContainsRune(punctuation, ch):
			toks = append(toks, token{kind: tokPunct, lit: string(ch)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", ch)
		}
	}
	return toks, nil
}

// unescape resolves \" \' \n \t and \\ inside a quoted literal.
func unescape(body string) string {
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	escape := false
	for _, r := range body {
		if escape {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(r)
			}
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		b.WriteRune(r)
	}
	if escape {
		b.WriteRune('\\')
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
