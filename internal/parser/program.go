// Package parser turns Star Script source into an ast.Program.
//
// Parsing is line oriented and lenient: a line that is neither a directive, an
// assignment nor a bare call is dropped without an error.
package parser

import (
	"strings"

	"star-core/internal/ast"
)

// attempt tries one interpretation of a statement line.
type attempt func(toks []token) (ast.Assignment, bool)

var statementAttempts = []attempt{
	attemptAssignment,
	attemptBareCall,
}

// Parse parses source text into a Program. It never fails.
func Parse(source string) *ast.Program {
	prog := &ast.Program{Indicators: []string{}}
	for _, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
			continue
		}
		if IsIndicatorLine(line) {
			prog.Indicators = append(prog.Indicators, line)
			continue
		}
		if a, ok := ParseStatement(line); ok {
			prog.Assignments = append(prog.Assignments, a)
		}
	}
	return prog
}

// ParseStatement parses one trimmed statement line. The first matching
// interpretation wins; ok is false when none applies.
func ParseStatement(line string) (ast.Assignment, bool) {
	toks, err := tokenize(line)
	if err != nil || len(toks) == 0 {
		return ast.Assignment{}, false
	}
	for _, try := range statementAttempts {
		if a, ok := try(toks); ok {
			return a, true
		}
	}
	return ast.Assignment{}, false
}

// IsIndicatorLine reports whether line starts with the indicator token.
func IsIndicatorLine(line string) bool {
	const kw = "indicator"
	if !strings.HasPrefix(line, kw) {
		return false
	}
	rest := []rune(line[len(kw):])
	return len(rest) == 0 || !(isIdentPart(rest[0]) || rest[0] == '.')
}

func attemptAssignment(toks []token) (ast.Assignment, bool) {
	if len(toks) < 3 || toks[0].kind != tokIdent || !toks[1].is("=") {
		return ast.Assignment{}, false
	}
	id := toks[0].lit
	if strings.Contains(id, ".") || id == ast.CallSentinel {
		return ast.Assignment{}, false
	}
	expr, err := parseTokens(toks[2:])
	if err != nil {
		return ast.Assignment{}, false
	}
	return ast.Assignment{ID: id, Expr: expr}, true
}

func attemptBareCall(toks []token) (ast.Assignment, bool) {
	expr, err := parseTokens(toks)
	if err != nil {
		return ast.Assignment{}, false
	}
	call, ok := expr.(ast.Call)
	if !ok {
		return ast.Assignment{}, false
	}
	return ast.Assignment{ID: ast.CallSentinel, Expr: call}, true
}
