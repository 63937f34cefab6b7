// Package grammar is a grammar-generated Star Script parser built with participle.
//
// It exists as an independent reference for the hand-written parser: the conformance
// harness parses the same fixtures with both and compares canonical trees.
package grammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var statementLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*`},
	{Name: "Punct", Pattern: `[-+*/^(),=\[\]{}:]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var statementParser = participle.MustBuild[Statement](
	participle.Lexer(statementLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

// Statement is one source line: an optional binding target and an expression.
type Statement struct {
	Target *string   `parser:"( @Ident '=' )?"`
	Value  *Additive `parser:"@@"`
}

type Additive struct {
	Head *Multiplicative `parser:"@@"`
	Tail []*AddOp        `parser:"@@*"`
}

type AddOp struct {
	Op      string          `parser:"@( '+' | '-' )"`
	Operand *Multiplicative `parser:"@@"`
}

type Multiplicative struct {
	Head *Power   `parser:"@@"`
	Tail []*MulOp `parser:"@@*"`
}

type MulOp struct {
	Op      string `parser:"@( '*' | '/' )"`
	Operand *Power `parser:"@@"`
}

type Power struct {
	Base     *Unary `parser:"@@"`
	Exponent *Power `parser:"( '^' @@ )?"`
}

type Unary struct {
	Signs   []string `parser:"@( '+' | '-' )*"`
	Operand *Postfix `parser:"@@"`
}

// Postfix is a primary followed by any subscripts.
type Postfix struct {
	Primary *Primary    `parser:"@@"`
	Indexes []*Additive `parser:"( '[' @@ ']' )*"`
}

type Primary struct {
	Number *string    `parser:"  @Number"`
	String *string    `parser:"| @String"`
	Array  *ArrayLit  `parser:"| @@"`
	Group  *Additive  `parser:"| '(' @@ ')'"`
	Ref    *Reference `parser:"| @@"`
}

type ArrayLit struct {
	Open  string      `parser:"@'['"`
	Items []*Additive `parser:"( @@ ( ',' @@ )* )? ']'"`
}

// Reference is an identifier, optionally called.
type Reference struct {
	Name string    `parser:"@Ident"`
	Call *CallArgs `parser:"@@?"`
}

type CallArgs struct {
	Open string      `parser:"@'('"`
	Args []*Argument `parser:"( @@ ( ',' @@ )* )? ')'"`
}

type Argument struct {
	Options *OptionGroup `parser:"  @@"`
	Name    *string      `parser:"| ( @Ident '=' )?"`
	Value   *Additive    `parser:"  @@"`
}

type OptionGroup struct {
	Open    string    `parser:"@'{'"`
	Entries []*Option `parser:"( @@ ( ',' @@ )* )? '}'"`
}

type Option struct {
	Name  string    `parser:"@Ident ':'"`
	Value *Additive `parser:"@@"`
}

// ParseStatement parses one statement line into the grammar tree.
func ParseStatement(line string) (*Statement, error) {
	return statementParser.ParseString("", line)
}
