package tsqlscan

import "strings"

// Lexer tokenizes T-SQL routine text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.pos

	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF, Literal: "", Pos: start, End: start}
	case '=':
		l.readChar()
		return Token{Type: TOKEN_EQ, Literal: "=", Pos: start, End: l.pos}
	case ',':
		l.readChar()
		return Token{Type: TOKEN_COMMA, Literal: ",", Pos: start, End: l.pos}
	case '.':
		l.readChar()
		return Token{Type: TOKEN_DOT, Literal: ".", Pos: start, End: l.pos}
	case ';':
		l.readChar()
		return Token{Type: TOKEN_SEMICOLON, Literal: ";", Pos: start, End: l.pos}
	case '(':
		l.readChar()
		return Token{Type: TOKEN_LPAREN, Literal: "(", Pos: start, End: l.pos}
	case ')':
		l.readChar()
		return Token{Type: TOKEN_RPAREN, Literal: ")", Pos: start, End: l.pos}
	case '\'':
		lit := l.readString()
		return Token{Type: TOKEN_STRING, Literal: lit, Pos: start, End: l.pos}
	case '[':
		lit := l.readBracketedIdentifier()
		return Token{Type: TOKEN_IDENT, Literal: lit, Pos: start, End: l.pos}
	case '"':
		lit := l.readQuotedIdentifier()
		return Token{Type: TOKEN_IDENT, Literal: lit, Pos: start, End: l.pos}
	case '@':
		lit := l.readVariable()
		return Token{Type: TOKEN_VARIABLE, Literal: lit, Pos: start, End: l.pos}
	}

	switch {
	case l.ch == 'N' && l.peekChar() == '\'':
		// N'...' unicode string literal
		l.readChar() // skip N
		lit := l.readString()
		return Token{Type: TOKEN_STRING, Literal: lit, Pos: start, End: l.pos}
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		return Token{Type: lookupKeyword(strings.ToLower(lit)), Literal: lit, Pos: start, End: l.pos}
	case isDigit(l.ch):
		lit := l.readNumber()
		return Token{Type: TOKEN_NUMBER, Literal: lit, Pos: start, End: l.pos}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TOKEN_OP, Literal: string(ch), Pos: start, End: l.pos}
}

// Tokens lexes the whole input into a slice, always ending with EOF.
func Tokens(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TOKEN_EOF {
			return toks
		}
	}
}

// skipWhitespaceAndComments skips whitespace and SQL comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip /
			l.readChar() // skip *
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip *
					l.readChar() // skip /
					break
				}
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a single-quoted string literal.
// Handles '' escape for embedded quotes.
func (l *Lexer) readString() string {
	l.readChar() // skip opening quote
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readBracketedIdentifier reads a [bracketed] identifier.
// Handles ]] escape for embedded closing brackets.
func (l *Lexer) readBracketedIdentifier() string {
	l.readChar() // skip opening bracket
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == ']' {
			if l.peekChar() == ']' {
				result.WriteByte(']')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing bracket
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readQuotedIdentifier reads a double-quoted identifier.
// Handles "" escape for embedded double quotes.
func (l *Lexer) readQuotedIdentifier() string {
	l.readChar() // skip opening quote
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readVariable reads @var or @@system_var including the @ prefix.
func (l *Lexer) readVariable() string {
	start := l.pos
	l.readChar() // skip @
	if l.ch == '@' {
		l.readChar()
	}
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readIdentifier reads an unquoted identifier. # and $ are legal in
// T-SQL object names (temp tables, generated names).
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer or decimal).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip .
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '#' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
