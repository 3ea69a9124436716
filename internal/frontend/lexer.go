package frontend

import (
	"fmt"
	"strings"
)

// TokenType is the kind of a lambda text token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenIdentifier
	TokenString
	TokenInt
	TokenFloat

	// Keywords
	TokenTrue
	TokenFalse
	TokenNull
	TokenNew

	// Operators
	TokenArrow        // =>
	TokenAssign       // =
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenAnd          // &&
	TokenOr           // ||
	TokenNot          // !
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenQuestion     // ?
	TokenColon        // :

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenLeftBrace  // {
	TokenRightBrace // }
	TokenComma      // ,
	TokenDot        // .
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenIllegal:      "illegal character",
	TokenIdentifier:   "identifier",
	TokenString:       "string",
	TokenInt:          "integer",
	TokenFloat:        "number",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNull:         "null",
	TokenNew:          "new",
	TokenArrow:        "=>",
	TokenAssign:       "=",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenPercent:      "%",
	TokenQuestion:     "?",
	TokenColon:        ":",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenComma:        ",",
	TokenDot:          ".",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
	"new":   TokenNew,
}

// Token is one lexical token. Column is 1-based.
type Token struct {
	Type    TokenType
	Literal string
	Column  int
}

// Lexer tokenizes lambda text such as c => c.Age > 30.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // next position to read
	ch           byte // current char
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token. At the end of input it keeps returning
// TokenEOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	column := l.position + 1

	var tok Token
	switch l.ch {
	case '(':
		tok = Token{Type: TokenLeftParen, Literal: "("}
	case ')':
		tok = Token{Type: TokenRightParen, Literal: ")"}
	case '{':
		tok = Token{Type: TokenLeftBrace, Literal: "{"}
	case '}':
		tok = Token{Type: TokenRightBrace, Literal: "}"}
	case ',':
		tok = Token{Type: TokenComma, Literal: ","}
	case '.':
		tok = Token{Type: TokenDot, Literal: "."}
	case '+':
		tok = Token{Type: TokenPlus, Literal: "+"}
	case '-':
		tok = Token{Type: TokenMinus, Literal: "-"}
	case '*':
		tok = Token{Type: TokenStar, Literal: "*"}
	case '/':
		tok = Token{Type: TokenSlash, Literal: "/"}
	case '%':
		tok = Token{Type: TokenPercent, Literal: "%"}
	case '?':
		tok = Token{Type: TokenQuestion, Literal: "?"}
	case ':':
		tok = Token{Type: TokenColon, Literal: ":"}
	case '=':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = Token{Type: TokenArrow, Literal: "=>"}
		case '=':
			l.readChar()
			tok = Token{Type: TokenEqual, Literal: "=="}
		default:
			tok = Token{Type: TokenAssign, Literal: "="}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Literal: "!="}
		} else {
			tok = Token{Type: TokenNot, Literal: "!"}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLessEqual, Literal: "<="}
		} else {
			tok = Token{Type: TokenLess, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Literal: ">="}
		} else {
			tok = Token{Type: TokenGreater, Literal: ">"}
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = Token{Type: TokenAnd, Literal: "&&"}
		} else {
			tok = Token{Type: TokenIllegal, Literal: "&"}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: TokenOr, Literal: "||"}
		} else {
			tok = Token{Type: TokenIllegal, Literal: "|"}
		}
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenIllegal, Literal: "unterminated string", Column: column}
		}
		tok = Token{Type: TokenString, Literal: lit}
	case 0:
		return Token{Type: TokenEOF, Column: column}
	default:
		if isLetter(l.ch) {
			lit := l.readIdentifier()
			typ, ok := keywords[lit]
			if !ok {
				typ = TokenIdentifier
			}
			return Token{Type: typ, Literal: lit, Column: column}
		}
		if isDigit(l.ch) {
			lit, isFloat := l.readNumber()
			typ := TokenInt
			if isFloat {
				typ = TokenFloat
			}
			return Token{Type: typ, Literal: lit, Column: column}
		}
		tok = Token{Type: TokenIllegal, Literal: string(l.ch)}
	}

	tok.Column = column
	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], isFloat
}

// readString reads a quoted literal, leaving the lexer on the closing quote.
// Backslash escapes the next character.
func (l *Lexer) readString(quote byte) (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			return "", false
		case quote:
			return sb.String(), true
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return "", false
			}
		}
		sb.WriteByte(l.ch)
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
