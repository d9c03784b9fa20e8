package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/lexer"
)

// parseShape consumes the next argument according to the declared shape.
// This is the dispatch point of signature-directed parsing: the shape, not
// the token, decides which sub-grammar applies. A mismatch records a
// diagnostic, consumes the offending token, and yields garbage so the call
// parse continues.
func (p *Parser) parseShape(c *cursor, shape lang.SyntaxShape) lang.Expression {
	switch shape.Kind {
	case lang.ShapeAny:
		return p.parseAtom(c)

	case lang.ShapeInt, lang.ShapeFloat, lang.ShapeNumber,
		lang.ShapeBool, lang.ShapeString, lang.ShapeNothing:
		expr := p.parseAtom(c)
		if !shapeAccepts(shape, &expr) {
			p.shapeError(shape, expr.Span)

			return lang.Garbage(expr.Span)
		}

		return expr

	case lang.ShapeBlock:
		return p.parseBlockArg(c)

	case lang.ShapeClosure:
		return p.parseClosureArg(c)

	case lang.ShapeExpression:
		if tok, ok := c.peek(); ok && tok.Kind == lexer.TokenBare {
			if expr, handled := p.parseCallHead(c); handled {
				return expr
			}
		}

		return p.parseMath(c)

	case lang.ShapeMath:
		return p.parseMath(c)

	case lang.ShapeRange:
		expr := p.parseAtom(c)
		if !shapeAccepts(shape, &expr) {
			p.shapeError(shape, expr.Span)

			return lang.Garbage(expr.Span)
		}

		return expr

	case lang.ShapeList, lang.ShapeTable:
		tok, ok := c.peek()
		if !ok || tok.Kind != lexer.TokenGroupBracket {
			return p.consumeGarbage(c, shape)
		}

		c.next()
		expr := p.parseBracketGroup(tok)

		if shape.Kind == lang.ShapeTable && expr.Kind != lang.ExprTable {
			p.shapeError(shape, expr.Span)

			return lang.Garbage(expr.Span)
		}

		return expr

	case lang.ShapeRecord:
		tok, ok := c.peek()
		if !ok || tok.Kind != lexer.TokenGroupBrace {
			return p.consumeGarbage(c, shape)
		}

		c.next()

		return p.parseRecord(tok)

	case lang.ShapeCellPath:
		tok, ok := c.peek()
		if !ok || (tok.Kind != lexer.TokenBare && tok.Kind != lexer.TokenString &&
			tok.Kind != lexer.TokenNumber) {
			return p.consumeGarbage(c, shape)
		}

		c.next()

		return p.parseCellPathLiteral(tok)

	case lang.ShapeFullCellPath:
		return p.parseAtom(c)

	case lang.ShapeVarName:
		tok, ok := c.peek()
		if !ok || tok.Kind != lexer.TokenBare {
			return p.consumeGarbage(c, shape)
		}

		c.next()

		name := strings.TrimPrefix(tok.Text(p.src), "$")
		id := p.ws.AddVariable(name, lang.TypeAny, false)

		return lang.Expression{
			Kind: lang.ExprVarDecl,
			Span: tok.Span,
			Type: lang.TypeNothing,
			Var:  id,
		}

	case lang.ShapeMatchBlock:
		tok, ok := c.peek()
		if !ok || tok.Kind != lexer.TokenGroupBrace {
			return p.consumeGarbage(c, shape)
		}

		c.next()

		return p.parseMatchBlock(tok)

	case lang.ShapeKeyword:
		tok, ok := c.peek()
		if !ok || tok.Text(p.src) != shape.Keyword {
			return p.consumeGarbage(c, shape)
		}

		c.next()

		inner := p.parseShape(c, shape.Of[0])

		return lang.Expression{
			Kind:    lang.ExprKeyword,
			Span:    tok.Span.Merge(inner.Span),
			Type:    inner.Type,
			Keyword: shape.Keyword,
			Inner:   &inner,
		}

	case lang.ShapeOneOf:
		return p.parseOneOf(c, shape)

	default:
		return p.consumeGarbage(c, shape)
	}
}

// parseOneOf tries each alternative in declared order, backtracking both
// the cursor and the diagnostics of a failed try. If nothing matches, the
// first alternative parses once more so its diagnostics stand.
func (p *Parser) parseOneOf(c *cursor, shape lang.SyntaxShape) lang.Expression {
	for _, alt := range shape.Of {
		save := c.pos
		mark := len(p.ws.Errors)

		expr := p.parseShape(c, alt)
		if len(p.ws.Errors) == mark && !expr.IsGarbage() {
			return expr
		}

		c.pos = save
		p.ws.Errors = p.ws.Errors[:mark]
	}

	if len(shape.Of) == 0 {
		return p.consumeGarbage(c, shape)
	}

	return p.parseShape(c, shape.Of[0])
}

// shapeError records an expected-shape diagnostic.
func (p *Parser) shapeError(shape lang.SyntaxShape, span lang.Span) {
	p.ws.Error(lang.NewParseError(
		lang.ErrExpectedShape.
			With(slog.String("expected", shape.String())),
		span,
	))
}

// consumeGarbage reports a shape mismatch, skips one token, and yields the
// recovery placeholder.
func (p *Parser) consumeGarbage(c *cursor, shape lang.SyntaxShape) lang.Expression {
	span := c.span()
	if tok, ok := c.next(); ok {
		span = tok.Span
	}

	p.shapeError(shape, span)

	return lang.Garbage(span)
}

// shapeAccepts reports whether a parsed expression satisfies a typed shape.
// Dynamic expressions (variables, subexpressions, calls) pass every shape;
// their values are checked at evaluation.
func shapeAccepts(shape lang.SyntaxShape, expr *lang.Expression) bool {
	switch expr.Kind {
	case lang.ExprVar, lang.ExprFullCellPath, lang.ExprSubexpression,
		lang.ExprCall, lang.ExprGarbage:
		return true
	}

	switch shape.Kind {
	case lang.ShapeInt:
		return expr.Type == lang.TypeInt
	case lang.ShapeFloat:
		return expr.Type == lang.TypeFloat
	case lang.ShapeNumber:
		return expr.Type == lang.TypeInt || expr.Type == lang.TypeFloat ||
			expr.Type == lang.TypeNumber
	case lang.ShapeBool:
		return expr.Type == lang.TypeBool
	case lang.ShapeString:
		return expr.Type == lang.TypeString
	case lang.ShapeNothing:
		return expr.Type == lang.TypeNothing
	case lang.ShapeRange:
		return expr.Type == lang.TypeRange
	default:
		return true
	}
}

// parseAtom consumes one value expression: a literal, variable, cell path,
// range, group, or bare string. It never parses binary operators; parseMath
// layers those on top.
func (p *Parser) parseAtom(c *cursor) lang.Expression {
	tok, ok := c.next()
	if !ok {
		span := c.span()
		p.ws.Error(lang.NewParseError(lang.ErrUnexpectedToken, span).
			WithHelp("expected an expression"))

		return lang.Garbage(span)
	}

	switch tok.Kind {
	case lexer.TokenNumber:
		return p.parseNumber(tok)

	case lexer.TokenString:
		return lang.Expression{
			Kind: lang.ExprString,
			Span: tok.Span,
			Type: lang.TypeString,
			Str:  unquote(tok.Text(p.src)),
		}

	case lexer.TokenGroupParen:
		return p.pathTail(c, p.parseSubexpression(tok))

	case lexer.TokenGroupBracket:
		return p.pathTail(c, p.parseBracketGroup(tok))

	case lexer.TokenGroupBrace:
		if p.braceIsRecord(tok) {
			return p.pathTail(c, p.parseRecord(tok))
		}

		return p.parseClosure(tok)

	case lexer.TokenBare:
		return p.parseBareAtom(c, tok)

	default:
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("token", tok.Text(p.src))),
			tok.Span,
		))

		return lang.Garbage(tok.Span)
	}
}

func (p *Parser) parseBareAtom(c *cursor, tok lexer.Token) lang.Expression {
	text := tok.Text(p.src)

	switch text {
	case "true", "false":
		return lang.Expression{
			Kind: lang.ExprBool,
			Span: tok.Span,
			Type: lang.TypeBool,
			Bool: text == "true",
		}

	case "null":
		return lang.Expression{
			Kind: lang.ExprNothing,
			Span: tok.Span,
			Type: lang.TypeNothing,
		}

	case "not":
		operand := p.parseAtom(c)

		return lang.Expression{
			Kind:  lang.ExprUnaryNot,
			Span:  tok.Span.Merge(operand.Span),
			Type:  lang.TypeBool,
			Inner: &operand,
		}
	}

	if strings.HasPrefix(text, "$") {
		return p.parseVarPath(tok)
	}

	if isRangeText(text) {
		return p.parseRangeToken(tok)
	}

	// Bare words in value position are strings.
	return lang.Expression{
		Kind: lang.ExprString,
		Span: tok.Span,
		Type: lang.TypeString,
		Str:  text,
	}
}

func (p *Parser) parseNumber(tok lexer.Token) lang.Expression {
	text := tok.Text(p.src)

	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return lang.Expression{
			Kind: lang.ExprInt,
			Span: tok.Span,
			Type: lang.TypeInt,
			Int:  n,
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("token", text)),
			tok.Span,
		))

		return lang.Garbage(tok.Span)
	}

	return lang.Expression{
		Kind:  lang.ExprFloat,
		Span:  tok.Span,
		Type:  lang.TypeFloat,
		Float: f,
	}
}

// parseVarPath parses $name with an optional dotted tail: $x, $x.col.0,
// $env.PATH. The $env pseudo-variable resolves to a reserved id.
func (p *Parser) parseVarPath(tok lexer.Token) lang.Expression {
	text := tok.Text(p.src)
	segments := splitPath(text, tok.Span.Start)

	name := strings.TrimPrefix(segments[0].text, "$")

	var head lang.Expression

	if name == "env" {
		head = lang.Expression{
			Kind: lang.ExprVar,
			Span: segments[0].span,
			Type: lang.TypeRecord,
			Var:  lang.EnvVarID,
		}
	} else {
		id, ok := p.ws.FindVariable(name)
		if !ok {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnknownVariable.
					With(slog.String("name", name)),
				segments[0].span,
			))

			return lang.Garbage(tok.Span)
		}

		ty := lang.TypeAny
		if v := p.ws.GetVar(id); v != nil {
			ty = v.Type
		}

		head = lang.Expression{
			Kind: lang.ExprVar,
			Span: segments[0].span,
			Type: ty,
			Var:  id,
		}
	}

	if len(segments) == 1 {
		return head
	}

	return lang.Expression{
		Kind: lang.ExprFullCellPath,
		Span: tok.Span,
		Type: lang.TypeAny,
		FullCellPath: &lang.FullCellPath{
			Head: head,
			Tail: p.pathMembers(segments[1:]),
		},
	}
}

// pathTail attaches a dotted cell path to a group expression when the next
// token starts with a dot and abuts the group, as in (expr).col or [1 2].0.
func (p *Parser) pathTail(c *cursor, head lang.Expression) lang.Expression {
	tok, ok := c.peek()
	if !ok || tok.Kind != lexer.TokenBare || tok.Span.Start != head.Span.End {
		return head
	}

	text := tok.Text(p.src)
	if !strings.HasPrefix(text, ".") || isRangeText(text) {
		return head
	}

	c.next()

	segments := splitPath(text[1:], tok.Span.Start+1)

	return lang.Expression{
		Kind: lang.ExprFullCellPath,
		Span: head.Span.Merge(tok.Span),
		Type: lang.TypeAny,
		FullCellPath: &lang.FullCellPath{
			Head: head,
			Tail: p.pathMembers(segments),
		},
	}
}

// parseCellPathLiteral parses a bare dotted path used as a value, e.g. the
// argument of get.
func (p *Parser) parseCellPathLiteral(tok lexer.Token) lang.Expression {
	segments := splitPath(tok.Text(p.src), tok.Span.Start)

	return lang.Expression{
		Kind: lang.ExprCellPath,
		Span: tok.Span,
		Type: lang.TypeCellPath,
		Path: &lang.CellPath{Members: p.pathMembers(segments)},
	}
}

type pathSegment struct {
	text string
	span lang.Span
}

// splitPath splits a dotted path on dots outside quotes, keeping each
// segment's span.
func splitPath(text string, base int) []pathSegment {
	var (
		segments []pathSegment
		start    int
		quote    byte
	)

	for i := 0; i < len(text); i++ {
		ch := text[i]

		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}

		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch

		case ch == '.':
			segments = append(segments, pathSegment{
				text: text[start:i],
				span: lang.NewSpan(base+start, base+i),
			})
			start = i + 1
		}
	}

	segments = append(segments, pathSegment{
		text: text[start:],
		span: lang.NewSpan(base+start, base+len(text)),
	})

	return segments
}

// pathMembers converts path segments into members: integer segments index
// lists, everything else names record columns, and a trailing ? marks the
// member optional.
func (p *Parser) pathMembers(segments []pathSegment) []lang.PathMember {
	members := make([]lang.PathMember, 0, len(segments))

	for _, seg := range segments {
		text := seg.text
		optional := strings.HasSuffix(text, "?")

		if optional {
			text = text[:len(text)-1]
		}

		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			members = append(members, lang.PathMember{
				Index:    n,
				IsIndex:  true,
				Optional: optional,
				Span:     seg.span,
			})

			continue
		}

		if len(text) > 0 && (text[0] == '"' || text[0] == '\'' || text[0] == '`') {
			text = unquote(text)
		}

		if text == "" {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken, seg.span,
			).WithHelp("empty cell path member"))

			continue
		}

		members = append(members, lang.PathMember{
			Name:     text,
			Optional: optional,
			Span:     seg.span,
		})
	}

	return members
}

// isRangeText reports whether a bare word is a range literal.
func isRangeText(text string) bool {
	return strings.Contains(text, "..") && !strings.HasPrefix(text, "$")
}

// parseRangeToken parses from..to, from..<to, and from..second..to, where
// each bound is a number, variable, or parenthesized subexpression. Omitted
// bounds leave the corresponding literal field nil.
func (p *Parser) parseRangeToken(tok lexer.Token) lang.Expression {
	text := tok.Text(p.src)
	base := tok.Span.Start

	type bound struct {
		text string
		off  int
	}

	var (
		bounds    []bound
		start     int
		depth     int
		inclusive = true
	)

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '.':
			if depth == 0 && i+1 < len(text) && text[i+1] == '.' {
				bounds = append(bounds, bound{text: text[start:i], off: start})

				i += 2
				if i < len(text) && text[i] == '<' {
					inclusive = false
					i++
				}

				start = i
				i--
			}
		}
	}

	bounds = append(bounds, bound{text: text[start:], off: start})

	if len(bounds) > 3 {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("token", text)),
			tok.Span,
		).WithHelp("a range has at most from..second..to"))

		return lang.Garbage(tok.Span)
	}

	parseBound := func(b bound) *lang.Expression {
		if b.text == "" {
			return nil
		}

		tokens, errs := lexer.Lex([]byte(b.text), base+b.off)
		for _, err := range errs {
			p.ws.Error(err)
		}

		expr := p.parseAtom(&cursor{tokens: tokens})

		return &expr
	}

	lit := &lang.RangeLiteral{Inclusive: inclusive}
	lit.From = parseBound(bounds[0])

	switch len(bounds) {
	case 2:
		lit.To = parseBound(bounds[1])
	case 3:
		lit.Second = parseBound(bounds[1])
		lit.To = parseBound(bounds[2])
	}

	return lang.Expression{
		Kind:  lang.ExprRange,
		Span:  tok.Span,
		Type:  lang.TypeRange,
		Range: lit,
	}
}

// interior returns the bytes inside a group token, excluding the delimiters
// when the group closed, and the offset re-lexing must apply.
func (p *Parser) interior(tok lexer.Token) ([]byte, int) {
	start, end := tok.Span.Start, tok.Span.End

	s := start + 1
	e := end

	if e > s {
		var closer byte

		switch p.src[start] {
		case '(':
			closer = ')'
		case '[':
			closer = ']'
		case '{':
			closer = '}'
		}

		if closer != 0 && p.src[e-1] == closer {
			e--
		}
	}

	return p.src[s:e], s
}

// parseBlockToken parses the interior of a brace group as a block, in the
// caller's current scope.
func (p *Parser) parseBlockToken(tok lexer.Token) *lang.Block {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	return p.parseTokens(tokens, tok.Span)
}

// parseSubexpression parses a parenthesized group as a block evaluated for
// its final value.
func (p *Parser) parseSubexpression(tok lexer.Token) lang.Expression {
	block := p.parseBlockToken(tok)

	return lang.Expression{
		Kind:  lang.ExprSubexpression,
		Span:  tok.Span,
		Type:  lang.TypeAny,
		Block: p.ws.AddBlock(block),
	}
}

// parseBlockArg parses a brace group as a parameterless block running in
// the caller's frame.
func (p *Parser) parseBlockArg(c *cursor) lang.Expression {
	tok, ok := c.peek()
	if !ok || tok.Kind != lexer.TokenGroupBrace {
		return p.consumeGarbage(c, lang.Shape(lang.ShapeBlock))
	}

	c.next()

	p.ws.EnterScope()
	block := p.parseBlockToken(tok)
	p.ws.ExitScope()

	return lang.Expression{
		Kind:  lang.ExprBlock,
		Span:  tok.Span,
		Type:  lang.TypeBlock,
		Block: p.ws.AddBlock(block),
	}
}

// parseClosureArg parses a brace group as a closure literal.
func (p *Parser) parseClosureArg(c *cursor) lang.Expression {
	tok, ok := c.peek()
	if !ok || tok.Kind != lexer.TokenGroupBrace {
		return p.consumeGarbage(c, lang.Shape(lang.ShapeClosure))
	}

	c.next()

	return p.parseClosure(tok)
}

// parseClosure parses {|params| body}, computing the captures: every
// variable the body references that was declared before the closure began.
// Captured bindings are snapshotted by value when the literal evaluates.
func (p *Parser) parseClosure(tok lexer.Token) lang.Expression {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	sig := lang.NewSignature("")
	mark := p.ws.NextVarID()

	p.ws.EnterScope()

	c := &cursor{tokens: tokens}
	if first, ok := c.peek(); ok && first.Kind == lexer.TokenPipe {
		c.next()
		p.parseClosureParams(c, sig)
	}

	block := p.parseTokens(c.tokens[c.pos:], tok.Span)
	block.Signature = sig

	p.ws.ExitScope()

	block.Captures = p.collectCaptures(block, mark)

	return lang.Expression{
		Kind:  lang.ExprClosure,
		Span:  tok.Span,
		Type:  lang.TypeClosure,
		Block: p.ws.AddBlock(block),
	}
}

// parseClosureParams parses |a, b: int| up to the closing pipe, declaring
// each parameter in the closure's scope.
func (p *Parser) parseClosureParams(c *cursor, sig *lang.Signature) {
	for {
		tok, ok := c.next()
		if !ok {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnclosedDelimiter.
					With(slog.String("delimiter", "|")),
				c.span(),
			))

			return
		}

		if tok.Kind == lexer.TokenPipe {
			return
		}

		if tok.Kind == lexer.TokenComma || tok.Kind == lexer.TokenNewline {
			continue
		}

		name := tok.Text(p.src)
		shape := lang.Shape(lang.ShapeAny)

		if strings.HasSuffix(name, ":") {
			name = name[:len(name)-1]

			if tyTok, ok := c.peek(); ok && tyTok.Kind == lexer.TokenBare {
				c.next()
				shape = p.shapeFromTypeName(tyTok.Text(p.src), tyTok.Span)
			}
		}

		name = strings.TrimPrefix(name, "$")

		sig.Required(name, shape, "")

		param := &sig.RequiredPositional[len(sig.RequiredPositional)-1]
		param.VarID = p.ws.AddVariable(name, shape.Type(), false)
		param.Bound = true
	}
}

// collectCaptures walks a block and returns the distinct variables it reads
// that were declared before mark, in declaration order.
func (p *Parser) collectCaptures(block *lang.Block, mark lang.VarID) []lang.VarID {
	seen := make(map[lang.VarID]bool)

	var ids []lang.VarID

	p.walkBlock(block, func(expr *lang.Expression) {
		switch expr.Kind {
		case lang.ExprVar, lang.ExprVarDecl:
			if expr.Var >= 0 && expr.Var < mark && !seen[expr.Var] {
				seen[expr.Var] = true
				ids = append(ids, expr.Var)
			}
		}
	})

	return ids
}

// walkBlock visits every expression of a block, descending into nested
// blocks by id.
func (p *Parser) walkBlock(block *lang.Block, visit func(*lang.Expression)) {
	for i := range block.Pipelines {
		for j := range block.Pipelines[i].Elements {
			p.walkExpr(&block.Pipelines[i].Elements[j].Expr, visit)
		}
	}
}

func (p *Parser) walkExpr(expr *lang.Expression, visit func(*lang.Expression)) {
	visit(expr)

	switch expr.Kind {
	case lang.ExprUnaryNot, lang.ExprKeyword, lang.ExprVarDecl:
		if expr.Inner != nil {
			p.walkExpr(expr.Inner, visit)
		}

	case lang.ExprBinaryOp:
		p.walkExpr(expr.Left, visit)
		p.walkExpr(expr.Right, visit)

	case lang.ExprCall:
		for i := range expr.Call.Positional {
			p.walkExpr(&expr.Call.Positional[i], visit)
		}

		for i := range expr.Call.Named {
			if expr.Call.Named[i].Value != nil {
				p.walkExpr(expr.Call.Named[i].Value, visit)
			}
		}

	case lang.ExprList:
		for i := range expr.List {
			p.walkExpr(&expr.List[i], visit)
		}

	case lang.ExprRecord:
		for i := range expr.Record {
			p.walkExpr(&expr.Record[i].Key, visit)
			p.walkExpr(&expr.Record[i].Value, visit)
		}

	case lang.ExprTable:
		for i := range expr.Table.Columns {
			p.walkExpr(&expr.Table.Columns[i], visit)
		}

		for i := range expr.Table.Rows {
			for j := range expr.Table.Rows[i] {
				p.walkExpr(&expr.Table.Rows[i][j], visit)
			}
		}

	case lang.ExprRange:
		for _, part := range []*lang.Expression{
			expr.Range.From, expr.Range.Second, expr.Range.To,
		} {
			if part != nil {
				p.walkExpr(part, visit)
			}
		}

	case lang.ExprFullCellPath:
		p.walkExpr(&expr.FullCellPath.Head, visit)

	case lang.ExprMatchBlock:
		for i := range expr.Arms {
			p.walkPattern(&expr.Arms[i].Pattern, visit)
			p.walkExpr(&expr.Arms[i].Expr, visit)
		}

	case lang.ExprBlock, lang.ExprClosure, lang.ExprSubexpression:
		if nested := p.ws.GetBlock(expr.Block); nested != nil {
			p.walkBlock(nested, visit)
		}
	}
}

func (p *Parser) walkPattern(pat *lang.MatchPattern, visit func(*lang.Expression)) {
	if pat.Value != nil {
		p.walkExpr(pat.Value, visit)
	}

	for i := range pat.Items {
		p.walkPattern(&pat.Items[i], visit)
	}

	for i := range pat.Fields {
		p.walkPattern(&pat.Fields[i].Pattern, visit)
	}
}

// braceIsRecord distinguishes {key: value} records from closures by the
// leading tokens of the interior: an empty brace or a key followed by a
// colon is a record, a parameter pipe or anything else is a closure.
func (p *Parser) braceIsRecord(tok lexer.Token) bool {
	src, offset := p.interior(tok)

	tokens, _ := lexer.Lex(src, offset)

	if len(tokens) == 0 {
		return true
	}

	if tokens[0].Kind == lexer.TokenPipe {
		return false
	}

	first := tokens[0].Text(p.src)
	if strings.HasSuffix(first, ":") && len(first) > 1 {
		return true
	}

	if len(tokens) > 1 {
		second := tokens[1].Text(p.src)
		if strings.HasPrefix(second, ":") {
			return true
		}
	}

	return false
}

// parseRecord parses {key: value, ...}. Keys are bare or quoted strings;
// separators are commas or newlines.
func (p *Parser) parseRecord(tok lexer.Token) lang.Expression {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	c := &cursor{tokens: tokens}

	var fields []lang.RecordField

	for !c.done() {
		keyTok, _ := c.next()
		if keyTok.Kind == lexer.TokenComma || keyTok.Kind == lexer.TokenNewline {
			continue
		}

		keyText := keyTok.Text(p.src)

		if strings.HasSuffix(keyText, ":") && len(keyText) > 1 {
			keyText = keyText[:len(keyText)-1]
		} else if sep, ok := c.peek(); ok && sep.Text(p.src) == ":" {
			c.next()
		} else {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken.
					With(slog.String("token", keyText)),
				keyTok.Span,
			).WithHelp("expected key: value"))

			continue
		}

		if len(keyText) > 0 &&
			(keyText[0] == '"' || keyText[0] == '\'' || keyText[0] == '`') {
			keyText = unquote(keyText)
		}

		key := lang.Expression{
			Kind: lang.ExprString,
			Span: keyTok.Span,
			Type: lang.TypeString,
			Str:  keyText,
		}

		value := p.parseAtom(c)

		fields = append(fields, lang.RecordField{Key: key, Value: value})
	}

	return lang.Expression{
		Kind:   lang.ExprRecord,
		Span:   tok.Span,
		Type:   lang.TypeRecord,
		Record: fields,
	}
}

// parseBracketGroup parses a bracket group as either a list literal or,
// when a header row and semicolon lead, a table literal.
func (p *Parser) parseBracketGroup(tok lexer.Token) lang.Expression {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	for _, t := range tokens {
		if t.Kind == lexer.TokenSemicolon {
			return p.parseTable(tok, tokens)
		}
	}

	return lang.Expression{
		Kind: lang.ExprList,
		Span: tok.Span,
		Type: lang.TypeList,
		List: p.parseListItems(tokens),
	}
}

// parseListItems parses comma or newline separated value expressions.
func (p *Parser) parseListItems(tokens []lexer.Token) []lang.Expression {
	c := &cursor{tokens: tokens}

	var items []lang.Expression

	for !c.done() {
		tok, _ := c.peek()
		if tok.Kind == lexer.TokenComma || tok.Kind == lexer.TokenNewline {
			c.next()

			continue
		}

		items = append(items, p.parseAtom(c))
	}

	return items
}

// parseTable parses [[col, ...]; [row, ...] ...].
func (p *Parser) parseTable(tok lexer.Token, tokens []lexer.Token) lang.Expression {
	c := &cursor{tokens: tokens}

	head, ok := c.next()
	if !ok || head.Kind != lexer.TokenGroupBracket {
		p.ws.Error(lang.NewParseError(
			lang.ErrExpectedShape.
				With(slog.String("expected", "table header row")),
			tok.Span,
		))

		return lang.Garbage(tok.Span)
	}

	headSrc, headOff := p.interior(head)

	headTokens, errs := lexer.Lex(headSrc, headOff)
	for _, err := range errs {
		p.ws.Error(err)
	}

	table := &lang.TableLiteral{Columns: p.parseListItems(headTokens)}

	if sep, ok := c.next(); !ok || sep.Kind != lexer.TokenSemicolon {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken, head.Span,
		).WithHelp("expected ; after table header"))
	}

	for !c.done() {
		rowTok, _ := c.next()
		if rowTok.Kind == lexer.TokenComma || rowTok.Kind == lexer.TokenNewline {
			continue
		}

		if rowTok.Kind != lexer.TokenGroupBracket {
			p.ws.Error(lang.NewParseError(
				lang.ErrExpectedShape.
					With(slog.String("expected", "table row")),
				rowTok.Span,
			))

			continue
		}

		rowSrc, rowOff := p.interior(rowTok)

		rowTokens, errs := lexer.Lex(rowSrc, rowOff)
		for _, err := range errs {
			p.ws.Error(err)
		}

		row := p.parseListItems(rowTokens)
		if len(row) != len(table.Columns) {
			p.ws.Error(lang.NewParseError(
				lang.ErrTypeMismatch.
					With(slog.Int("columns", len(table.Columns))).
					With(slog.Int("cells", len(row))),
				rowTok.Span,
			).WithHelp("row length must match the header"))
		}

		table.Rows = append(table.Rows, row)
	}

	return lang.Expression{
		Kind:  lang.ExprTable,
		Span:  tok.Span,
		Type:  lang.TypeTable,
		Table: table,
	}
}

// parseSignatureLiteral parses [name, opt?, rest..., --flag(-f): type]
// into a signature.
func (p *Parser) parseSignatureLiteral(
	tok lexer.Token,
	name string,
) *lang.Signature {
	src, offset := p.interior(tok)

	tokens, errs := lexer.Lex(src, offset)
	for _, err := range errs {
		p.ws.Error(err)
	}

	sig := lang.NewSignature(name)
	sig.CreatesScope = true

	c := &cursor{tokens: tokens}

	for !c.done() {
		item, _ := c.next()
		if item.Kind == lexer.TokenComma || item.Kind == lexer.TokenNewline {
			continue
		}

		text := item.Text(p.src)

		switch {
		case strings.HasPrefix(text, "--"):
			p.parseSignatureFlag(c, sig, text, item.Span)

		case strings.HasPrefix(text, "..."):
			rest := strings.TrimPrefix(text, "...")
			shape := p.signatureType(c, &rest, item.Span)
			sig.WithRest(rest, shape, "")

		default:
			optional := false
			param := text

			shape := p.signatureType(c, &param, item.Span)

			if strings.HasSuffix(param, "?") {
				optional = true
				param = param[:len(param)-1]
			}

			if optional {
				sig.Optional(param, shape, "")
			} else {
				sig.Required(param, shape, "")
			}
		}
	}

	return sig
}

// signatureType strips a trailing colon from a parameter name and consumes
// the following type word, defaulting to any.
func (p *Parser) signatureType(
	c *cursor,
	name *string,
	span lang.Span,
) lang.SyntaxShape {
	if !strings.HasSuffix(*name, ":") {
		return lang.Shape(lang.ShapeAny)
	}

	*name = strings.TrimSuffix(*name, ":")

	tyTok, ok := c.next()
	if !ok {
		p.ws.Error(lang.NewParseError(
			lang.ErrExpectedShape.
				With(slog.String("parameter", *name)),
			span,
		).WithHelp("expected a type name"))

		return lang.Shape(lang.ShapeAny)
	}

	return p.shapeFromTypeName(tyTok.Text(p.src), tyTok.Span)
}

// parseSignatureFlag parses --flag, --flag(-f), and typed forms of both.
func (p *Parser) parseSignatureFlag(
	c *cursor,
	sig *lang.Signature,
	text string,
	span lang.Span,
) {
	long := strings.TrimPrefix(text, "--")

	typed := strings.HasSuffix(long, ":")
	if typed {
		long = strings.TrimSuffix(long, ":")
	}

	var short rune

	if i := strings.Index(long, "(-"); i >= 0 {
		spec := long[i:]
		long = long[:i]

		runes := []rune(strings.TrimSuffix(strings.TrimPrefix(spec, "(-"), ")"))
		if len(runes) == 1 {
			short = runes[0]
		} else {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken.
					With(slog.String("flag", text)),
				span,
			).WithHelp("short form must be a single character"))
		}
	}

	if !typed {
		sig.Switch(long, short, "")

		return
	}

	shape := lang.Shape(lang.ShapeAny)

	if tyTok, ok := c.next(); ok {
		shape = p.shapeFromTypeName(tyTok.Text(p.src), tyTok.Span)
	} else {
		p.ws.Error(lang.NewParseError(
			lang.ErrExpectedShape.
				With(slog.String("flag", "--"+long)),
			span,
		).WithHelp("expected a type name"))
	}

	sig.NamedFlag(long, short, shape, "")
}

// shapeFromTypeName maps a type annotation to its shape.
func (p *Parser) shapeFromTypeName(name string, span lang.Span) lang.SyntaxShape {
	switch name {
	case "any":
		return lang.Shape(lang.ShapeAny)
	case "int":
		return lang.Shape(lang.ShapeInt)
	case "float":
		return lang.Shape(lang.ShapeFloat)
	case "number":
		return lang.Shape(lang.ShapeNumber)
	case "bool":
		return lang.Shape(lang.ShapeBool)
	case "string":
		return lang.Shape(lang.ShapeString)
	case "list":
		return lang.Shape(lang.ShapeList)
	case "record":
		return lang.Shape(lang.ShapeRecord)
	case "table":
		return lang.Shape(lang.ShapeTable)
	case "range":
		return lang.Shape(lang.ShapeRange)
	case "closure":
		return lang.Shape(lang.ShapeClosure)
	case "block":
		return lang.Shape(lang.ShapeBlock)
	case "cell-path":
		return lang.Shape(lang.ShapeCellPath)
	case "nothing":
		return lang.Shape(lang.ShapeNothing)
	default:
		p.ws.Error(lang.NewParseError(
			lang.ErrTypeMismatch.
				With(slog.String("type", name)),
			span,
		).WithHelp("unknown type name"))

		return lang.Shape(lang.ShapeAny)
	}
}

// unquote strips one layer of quotes, processing backslash escapes inside
// double quotes only.
func unquote(text string) string {
	if len(text) < 2 {
		return text
	}

	quote := text[0]
	if quote != '"' && quote != '\'' && quote != '`' {
		return text
	}

	if text[len(text)-1] != quote {
		return text
	}

	inner := text[1 : len(text)-1]
	if quote != '"' || !strings.ContainsRune(inner, '\\') {
		return inner
	}

	var buf strings.Builder

	for i := 0; i < len(inner); i++ {
		if inner[i] != '\\' || i+1 >= len(inner) {
			buf.WriteByte(inner[i])

			continue
		}

		i++

		switch inner[i] {
		case 'n':
			buf.WriteByte('\n')
		case 't':
			buf.WriteByte('\t')
		case 'r':
			buf.WriteByte('\r')
		case '\\', '"', '\'', '`':
			buf.WriteByte(inner[i])
		default:
			buf.WriteByte('\\')
			buf.WriteByte(inner[i])
		}
	}

	return buf.String()
}
