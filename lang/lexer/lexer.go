// Package lexer splits raw source bytes into tokens and groups them into
// the coarse pipeline/command structure the parser consumes. Lexing never
// stops at the first error: an unterminated quote or bracket yields an
// "unclosed delimiter" diagnostic plus a best-effort token, so downstream
// stages always receive a token stream.
package lexer

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/shale/lang"
)

// TokenKind discriminates the variants of Token.
type TokenKind int

const (
	// TokenBare is an unquoted word.
	TokenBare TokenKind = iota

	// TokenString is a quoted string, delimiters included.
	TokenString

	// TokenNumber is a word that lexes as an integer or float literal.
	TokenNumber

	// TokenFlag is a word starting with - or -- that is not a number.
	TokenFlag

	// TokenPipe separates elements within a pipeline.
	TokenPipe

	// TokenSemicolon separates pipelines.
	TokenSemicolon

	// TokenNewline separates pipelines at end of line.
	TokenNewline

	// TokenComma separates items inside list, record, and table interiors.
	TokenComma

	// TokenComment is a # comment, excluding the trailing newline.
	TokenComment

	// TokenGroupParen is one opaque ( ... ) group. The interior is not
	// split here; it is re-lexed lazily by the shape sub-parsers.
	TokenGroupParen

	// TokenGroupBracket is one opaque [ ... ] group.
	TokenGroupBracket

	// TokenGroupBrace is one opaque { ... } group.
	TokenGroupBrace
)

// String returns a human-readable name for the kind.
func (k TokenKind) String() string {
	switch k {
	case TokenBare:
		return "word"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenFlag:
		return "flag"
	case TokenPipe:
		return "pipe"
	case TokenSemicolon:
		return "semicolon"
	case TokenNewline:
		return "newline"
	case TokenComma:
		return "comma"
	case TokenComment:
		return "comment"
	case TokenGroupParen:
		return "paren group"
	case TokenGroupBracket:
		return "bracket group"
	case TokenGroupBrace:
		return "brace group"
	default:
		return "unknown"
	}
}

// IsGroup reports whether the token is an opaque balanced group.
func (k TokenKind) IsGroup() bool {
	return k == TokenGroupParen || k == TokenGroupBracket || k == TokenGroupBrace
}

// Token is one lexed unit: a kind plus the half-open byte range it covers
// in the original source buffer.
type Token struct {
	Kind TokenKind
	Span lang.Span
}

// Text returns the token's source text.
func (t Token) Text(src []byte) string {
	return t.Span.Text(src)
}

// Lex tokenizes src. The offset shifts every span so that re-lexing a group
// interior produces spans into the original buffer. It returns the tokens
// plus every recoverable diagnostic found along the way.
func Lex(src []byte, offset int) ([]Token, lang.ParseErrors) {
	lx := &lexer{src: src, offset: offset}
	lx.run()

	return lx.tokens, lx.errors
}

type lexer struct {
	src    []byte
	pos    int
	offset int

	tokens []Token
	errors lang.ParseErrors
}

func (lx *lexer) run() {
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			lx.pos++

		case ch == '\n':
			lx.emit(TokenNewline, lx.pos, lx.pos+1)
			lx.pos++

		case ch == '|':
			lx.emit(TokenPipe, lx.pos, lx.pos+1)
			lx.pos++

		case ch == ';':
			lx.emit(TokenSemicolon, lx.pos, lx.pos+1)
			lx.pos++

		case ch == ',':
			lx.emit(TokenComma, lx.pos, lx.pos+1)
			lx.pos++

		case ch == '#':
			lx.lexComment()

		case ch == '(' || ch == '[' || ch == '{':
			lx.lexGroup()

		case ch == ')' || ch == ']' || ch == '}':
			lx.error(
				lang.ErrUnexpectedToken.
					With(slog.String("token", string(ch))),
				lx.pos, lx.pos+1,
			)
			lx.pos++

		case ch == '"' || ch == '\'' || ch == '`':
			lx.lexWord()

		default:
			lx.lexWord()
		}
	}
}

func (lx *lexer) emit(kind TokenKind, start, end int) {
	lx.tokens = append(lx.tokens, Token{
		Kind: kind,
		Span: lang.NewSpan(start+lx.offset, end+lx.offset),
	})
}

func (lx *lexer) error(err *lang.Error, start, end int) {
	lx.errors = append(lx.errors, lang.NewParseError(
		err,
		lang.NewSpan(start+lx.offset, end+lx.offset),
	))
}

// lexComment consumes a # comment up to, but not including, the newline.
func (lx *lexer) lexComment() {
	start := lx.pos

	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}

	lx.emit(TokenComment, start, lx.pos)
}

// lexGroup consumes one balanced bracket/brace/paren group as a single
// opaque token, honoring quotes and nested groups without descending into
// them. An unclosed group yields a diagnostic plus a best-effort token
// covering the remainder of the source.
func (lx *lexer) lexGroup() {
	start := lx.pos
	open := lx.src[lx.pos]

	var kind TokenKind

	switch open {
	case '(':
		kind = TokenGroupParen
	case '[':
		kind = TokenGroupBracket
	default:
		kind = TokenGroupBrace
	}

	if closed := lx.skipBalanced(); !closed {
		lx.error(
			lang.ErrUnclosedDelimiter.
				With(slog.String("delimiter", string(open))),
			start, start+1,
		)
	}

	lx.emit(kind, start, lx.pos)
}

// skipBalanced advances past one balanced group starting at the current
// opener, reporting whether the matching closer was found.
func (lx *lexer) skipBalanced() bool {
	depth := 0

	for lx.pos < len(lx.src) {
		switch ch := lx.src[lx.pos]; ch {
		case '(', '[', '{':
			depth++
			lx.pos++

		case ')', ']', '}':
			// Closers are not matched per-kind here: the shape parser
			// re-lexes the interior and reports the precise mismatch.
			depth--
			lx.pos++

			if depth == 0 {
				return true
			}

		case '"', '\'', '`':
			lx.skipString(ch)

		case '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}

		default:
			lx.pos++
		}
	}

	return false
}

// skipString advances past one quoted string. Double-quoted strings honor
// backslash escapes; single and backtick quotes are literal. An
// unterminated string yields a diagnostic and consumes to end of input.
func (lx *lexer) skipString(quote byte) {
	start := lx.pos
	lx.pos++ // opening quote

	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]

		if ch == '\\' && quote == '"' {
			lx.pos += 2

			continue
		}

		if ch == quote {
			lx.pos++

			return
		}

		lx.pos++
	}

	lx.error(
		lang.ErrUnclosedDelimiter.
			With(slog.String("delimiter", string(quote))),
		start, start+1,
	)
}

// lexWord consumes one word token: a run of characters up to whitespace or
// a separator, with embedded quotes and balanced groups consumed whole so
// forms like --name="a b" and foo(1) stay single tokens. The finished word
// is classified as a string, number, flag, or bare word.
func (lx *lexer) lexWord() {
	start := lx.pos
	quoted := false

	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]

		switch ch {
		case ' ', '\t', '\r', '\n', '|', ';', ',', '#':
			goto done

		case ')', ']', '}':
			goto done

		case '(', '[', '{':
			open := lx.pos
			if closed := lx.skipBalanced(); !closed {
				lx.error(
					lang.ErrUnclosedDelimiter.
						With(slog.String("delimiter", string(ch))),
					open, open+1,
				)
			}

		case '"', '\'', '`':
			if lx.pos == start {
				quoted = true
			}

			lx.skipString(ch)

		default:
			lx.pos++
		}
	}

done:
	text := string(lx.src[start:lx.pos])

	switch {
	case quoted && lx.pos-start > 0 && isQuote(lx.src[start]) &&
		strings.TrimSpace(text) == text && wholeQuoted(text):
		lx.emit(TokenString, start, lx.pos)

	case isNumberLiteral(text):
		lx.emit(TokenNumber, start, lx.pos)

	case len(text) > 1 && text[0] == '-' && !isNumberLiteral(text[1:]):
		lx.emit(TokenFlag, start, lx.pos)

	default:
		lx.emit(TokenBare, start, lx.pos)
	}
}

func isQuote(ch byte) bool {
	return ch == '"' || ch == '\'' || ch == '`'
}

// wholeQuoted reports whether text is exactly one quoted string, so that
// "a"b classifies as a bare word while "a b" classifies as a string.
func wholeQuoted(text string) bool {
	if len(text) < 2 {
		return false
	}

	quote := text[0]
	if text[len(text)-1] != quote {
		return false
	}

	for i := 1; i < len(text)-1; i++ {
		if text[i] == '\\' && quote == '"' {
			i++

			continue
		}

		if text[i] == quote {
			return false
		}
	}

	return true
}

// isNumberLiteral reports whether text lexes as an integer or float
// literal, including the 0x/0o/0b prefixes.
func isNumberLiteral(text string) bool {
	if text == "" {
		return false
	}

	if _, err := strconv.ParseInt(text, 0, 64); err == nil {
		return true
	}

	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return true
	}

	return false
}
