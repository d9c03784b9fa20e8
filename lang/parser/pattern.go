package parser

import (
	"log/slog"
	"strings"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/lexer"
)

// parseMatchBlock parses { pattern => expression, ... }. Each arm's pattern
// variables are scoped to its own expression: the arm enters a lexical
// frame, declares the bindings, parses the expression, and exits.
func (p *Parser) parseMatchBlock(tok lexer.Token) lang.Expression {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	c := &cursor{tokens: tokens}

	var arms []lang.MatchArm

	for !c.done() {
		if sep, _ := c.peek(); sep.Kind == lexer.TokenComma ||
			sep.Kind == lexer.TokenNewline {
			c.next()

			continue
		}

		p.ws.EnterScope()

		pattern := p.parsePattern(c)

		if arrow, ok := c.next(); !ok || arrow.Text(p.src) != "=>" {
			span := pattern.Span
			if ok {
				span = arrow.Span
			}

			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken, span,
			).WithHelp("expected => after match pattern"))

			p.ws.ExitScope()
			p.skipArm(c)

			continue
		}

		expr := p.parseArmExpression(c)

		p.ws.ExitScope()

		arms = append(arms, lang.MatchArm{Pattern: pattern, Expr: expr})
	}

	return lang.Expression{
		Kind: lang.ExprMatchBlock,
		Span: tok.Span,
		Type: lang.TypeAny,
		Arms: arms,
	}
}

// parseArmExpression parses the right side of =>: a block when braced,
// otherwise a math expression up to the arm separator.
func (p *Parser) parseArmExpression(c *cursor) lang.Expression {
	if tok, ok := c.peek(); ok && tok.Kind == lexer.TokenGroupBrace {
		c.next()

		block := p.parseBlockToken(tok)

		return lang.Expression{
			Kind:  lang.ExprBlock,
			Span:  tok.Span,
			Type:  lang.TypeBlock,
			Block: p.ws.AddBlock(block),
		}
	}

	return p.parseMath(c)
}

// skipArm advances past the current arm after an unrecoverable arm error.
func (p *Parser) skipArm(c *cursor) {
	for {
		tok, ok := c.next()
		if !ok || tok.Kind == lexer.TokenComma || tok.Kind == lexer.TokenNewline {
			return
		}
	}
}

// parsePattern parses one match pattern: _ discards, $name binds, literals
// compare, [a, b, ..$rest] destructures lists, {key: pattern} destructures
// records.
func (p *Parser) parsePattern(c *cursor) lang.MatchPattern {
	tok, ok := c.next()
	if !ok {
		span := c.span()
		p.ws.Error(lang.NewParseError(lang.ErrUnexpectedToken, span).
			WithHelp("expected a match pattern"))

		return lang.GarbagePattern(span)
	}

	switch tok.Kind {
	case lexer.TokenGroupBracket:
		return p.parseListPattern(tok)

	case lexer.TokenGroupBrace:
		return p.parseRecordPattern(tok)

	case lexer.TokenBare:
		text := tok.Text(p.src)

		switch {
		case text == "_":
			return lang.MatchPattern{
				Kind: lang.PatternDiscard,
				Span: tok.Span,
			}

		case strings.HasPrefix(text, "$"):
			name := strings.TrimPrefix(text, "$")
			id := p.ws.AddVariable(name, lang.TypeAny, false)

			return lang.MatchPattern{
				Kind: lang.PatternVariable,
				Span: tok.Span,
				Var:  id,
			}
		}
	}

	// Anything else is a literal value pattern compared by equality.
	c.pos--
	value := p.parseAtom(c)

	return lang.MatchPattern{
		Kind:  lang.PatternValue,
		Span:  value.Span,
		Value: &value,
	}
}

// parseListPattern parses [p1, p2, ..$rest], binding the rest variable to
// the unmatched tail.
func (p *Parser) parseListPattern(tok lexer.Token) lang.MatchPattern {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	c := &cursor{tokens: tokens}

	pattern := lang.MatchPattern{
		Kind: lang.PatternList,
		Span: tok.Span,
	}

	for !c.done() {
		item, _ := c.peek()
		if item.Kind == lexer.TokenComma || item.Kind == lexer.TokenNewline {
			c.next()

			continue
		}

		text := item.Text(p.src)

		if text == ".." || strings.HasPrefix(text, "..$") {
			c.next()

			rest := lang.MatchPattern{
				Kind: lang.PatternRest,
				Span: item.Span,
				Var:  -1,
			}

			if name := strings.TrimPrefix(text, ".."); name != "" {
				name = strings.TrimPrefix(name, "$")
				rest.Var = p.ws.AddVariable(name, lang.TypeList, false)
			}

			pattern.Items = append(pattern.Items, rest)

			if !c.done() {
				p.ws.Error(lang.NewParseError(
					lang.ErrUnexpectedToken, c.span(),
				).WithHelp("rest pattern must be last"))
			}

			break
		}

		pattern.Items = append(pattern.Items, p.parsePattern(c))
	}

	return pattern
}

// parseRecordPattern parses {key: pattern, ...}. A bare key with no pattern
// binds the field's value to a variable of the same name.
func (p *Parser) parseRecordPattern(tok lexer.Token) lang.MatchPattern {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	c := &cursor{tokens: tokens}

	pattern := lang.MatchPattern{
		Kind: lang.PatternRecord,
		Span: tok.Span,
	}

	for !c.done() {
		keyTok, _ := c.next()
		if keyTok.Kind == lexer.TokenComma || keyTok.Kind == lexer.TokenNewline {
			continue
		}

		keyText := keyTok.Text(p.src)

		hasPattern := true

		switch {
		case strings.HasSuffix(keyText, ":") && len(keyText) > 1:
			keyText = keyText[:len(keyText)-1]

		default:
			if sep, ok := c.peek(); ok && sep.Text(p.src) == ":" {
				c.next()
			} else {
				hasPattern = false
			}
		}

		if len(keyText) > 0 &&
			(keyText[0] == '"' || keyText[0] == '\'' || keyText[0] == '`') {
			keyText = unquote(keyText)
		}

		var field lang.MatchPattern

		if hasPattern {
			field = p.parsePattern(c)
		} else {
			// Shorthand: {name} and {$name} both bind $name to the field's
			// value under the field's own name.
			keyText = strings.TrimPrefix(keyText, "$")
			id := p.ws.AddVariable(keyText, lang.TypeAny, false)
			field = lang.MatchPattern{
				Kind: lang.PatternVariable,
				Span: keyTok.Span,
				Var:  id,
			}
		}

		if keyText == "" {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken.
					With(slog.String("token", keyTok.Text(p.src))),
				keyTok.Span,
			).WithHelp("expected key: pattern"))

			continue
		}

		pattern.Fields = append(pattern.Fields, lang.PatternField{
			Name:    keyText,
			Pattern: field,
		})
	}

	return pattern
}
