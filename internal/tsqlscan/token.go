// Package tsqlscan is a structural scanner for T-SQL routine text.
//
// It finds the statements that write a given column (UPDATE ... SET,
// INSERT ... SELECT, INSERT ... VALUES, MERGE WHEN MATCHED / NOT
// MATCHED, and a dynamic-SQL heuristic) without building a full parse
// tree. The lexer is aware of string literals, bracketed and quoted
// identifiers, line and block comments, variables, and balanced
// parentheses, which is enough to bound expressions reliably across
// dialect variation. It is intentionally not a validating SQL parser:
// false negatives are preferred over brittleness.
package tsqlscan

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT    // identifier (plain, [bracketed], or "quoted")
	TOKEN_NUMBER   // 123, 45.67
	TOKEN_STRING   // 'hello' or N'hello'
	TOKEN_VARIABLE // @var or @@rowcount

	TOKEN_EQ        // =
	TOKEN_COMMA     // ,
	TOKEN_DOT       // .
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_OP        // any other operator or punctuation

	// TOKEN_AND and below are the keywords the scanner steers by.
	TOKEN_AND
	TOKEN_AS
	TOKEN_BY
	TOKEN_DELETE
	TOKEN_EXEC
	TOKEN_FROM
	TOKEN_GROUP
	TOKEN_INSERT
	TOKEN_INTO
	TOKEN_MATCHED
	TOKEN_MERGE
	TOKEN_NOT
	TOKEN_ON
	TOKEN_OPTION
	TOKEN_ORDER
	TOKEN_OUTPUT
	TOKEN_SELECT
	TOKEN_SET
	TOKEN_TARGET
	TOKEN_THEN
	TOKEN_UPDATE
	TOKEN_USING
	TOKEN_VALUES
	TOKEN_WHEN
	TOKEN_WHERE
	TOKEN_WITH
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:      "EOF",
	TOKEN_ILLEGAL:  "ILLEGAL",
	TOKEN_IDENT:    "IDENT",
	TOKEN_NUMBER:   "NUMBER",
	TOKEN_STRING:   "STRING",
	TOKEN_VARIABLE: "VARIABLE",

	TOKEN_EQ:        "=",
	TOKEN_COMMA:     ",",
	TOKEN_DOT:       ".",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_OP:        "OP",

	TOKEN_AND:     "AND",
	TOKEN_AS:      "AS",
	TOKEN_BY:      "BY",
	TOKEN_DELETE:  "DELETE",
	TOKEN_EXEC:    "EXEC",
	TOKEN_FROM:    "FROM",
	TOKEN_GROUP:   "GROUP",
	TOKEN_INSERT:  "INSERT",
	TOKEN_INTO:    "INTO",
	TOKEN_MATCHED: "MATCHED",
	TOKEN_MERGE:   "MERGE",
	TOKEN_NOT:     "NOT",
	TOKEN_ON:      "ON",
	TOKEN_OPTION:  "OPTION",
	TOKEN_ORDER:   "ORDER",
	TOKEN_OUTPUT:  "OUTPUT",
	TOKEN_SELECT:  "SELECT",
	TOKEN_SET:     "SET",
	TOKEN_TARGET:  "TARGET",
	TOKEN_THEN:    "THEN",
	TOKEN_UPDATE:  "UPDATE",
	TOKEN_USING:   "USING",
	TOKEN_VALUES:  "VALUES",
	TOKEN_WHEN:    "WHEN",
	TOKEN_WHERE:   "WHERE",
	TOKEN_WITH:    "WITH",
}

// keywords maps lowercase keyword strings to their token types.
// Only keywords the detector steers by are tokenized specially;
// everything else lexes as a plain identifier.
var keywords = map[string]TokenType{
	"and":     TOKEN_AND,
	"as":      TOKEN_AS,
	"by":      TOKEN_BY,
	"delete":  TOKEN_DELETE,
	"exec":    TOKEN_EXEC,
	"execute": TOKEN_EXEC,
	"from":    TOKEN_FROM,
	"group":   TOKEN_GROUP,
	"insert":  TOKEN_INSERT,
	"into":    TOKEN_INTO,
	"matched": TOKEN_MATCHED,
	"merge":   TOKEN_MERGE,
	"not":     TOKEN_NOT,
	"on":      TOKEN_ON,
	"option":  TOKEN_OPTION,
	"order":   TOKEN_ORDER,
	"output":  TOKEN_OUTPUT,
	"select":  TOKEN_SELECT,
	"set":     TOKEN_SET,
	"target":  TOKEN_TARGET,
	"then":    TOKEN_THEN,
	"update":  TOKEN_UPDATE,
	"using":   TOKEN_USING,
	"values":  TOKEN_VALUES,
	"when":    TOKEN_WHEN,
	"where":   TOKEN_WHERE,
	"with":    TOKEN_WITH,
}

// lookupKeyword returns the token type for the given lowercase
// identifier, or TOKEN_IDENT if it is not a steering keyword.
func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token represents a lexical token with its literal value and the byte
// range it occupies in the input. Pos/End allow the detector to slice
// raw expression text and excerpts straight from the source.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset of the first character
	End     int // byte offset just past the last character
}
