// Package parser turns source bytes into typed blocks. Parsing is
// signature-directed: once a command name resolves, its registered
// Signature tells the parser how to consume every following token, so the
// same token sequence can parse to different shapes under different
// commands. Errors never stop the pass: each diagnostic substitutes a
// garbage node and parsing continues, accumulating every problem in the
// working set.
package parser

import (
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/lexer"
)

// Parser holds the state of one parse pass: the working set its
// declarations land in and the source buffer its spans index.
type Parser struct {
	ws  *lang.WorkingSet
	src []byte
}

// Parse parses one source unit into a block, accumulating declarations and
// diagnostics in the working set. The caller decides whether to merge the
// working set's delta afterward; not merging rolls everything back.
func Parse(ws *lang.WorkingSet, src []byte) *lang.Block {
	p := &Parser{ws: ws, src: src}

	tokens, errs := lexer.Lex(src, 0)
	for _, err := range errs {
		ws.Error(err)
	}

	return p.parseTokens(tokens, lang.NewSpan(0, len(src)))
}

// cursor is a shared position over one command's tokens. Shape sub-parsers
// advance it cooperatively; how many tokens an argument consumes depends on
// its shape, not on any fixed arity.
type cursor struct {
	tokens []lexer.Token
	pos    int
}

func (c *cursor) peek() (lexer.Token, bool) {
	if c.pos >= len(c.tokens) {
		return lexer.Token{}, false
	}

	return c.tokens[c.pos], true
}

func (c *cursor) next() (lexer.Token, bool) {
	tok, ok := c.peek()
	if ok {
		c.pos++
	}

	return tok, ok
}

func (c *cursor) done() bool {
	return c.pos >= len(c.tokens)
}

// span returns the range from the current position to the last token.
func (c *cursor) span() lang.Span {
	if c.done() {
		if len(c.tokens) == 0 {
			return lang.UnknownSpan()
		}

		end := c.tokens[len(c.tokens)-1].Span.End

		return lang.NewSpan(end, end)
	}

	return c.tokens[c.pos].Span.Merge(c.tokens[len(c.tokens)-1].Span)
}

func (p *Parser) parseTokens(tokens []lexer.Token, span lang.Span) *lang.Block {
	lite := lexer.Split(tokens)

	block := lang.NewBlock()
	block.Span = span

	for _, lp := range lite.Pipelines {
		block.Pipelines = append(block.Pipelines, p.parsePipeline(lp))
	}

	return block
}

func (p *Parser) parsePipeline(lp *lexer.LitePipeline) lang.Pipeline {
	pipeline := lang.Pipeline{}

	for _, cmd := range lp.Commands {
		pipeline.Elements = append(pipeline.Elements, lang.PipelineElement{
			Expr: p.parseElement(cmd),
		})
	}

	return pipeline
}

// parseElement parses one command's worth of tokens. Declaration keywords
// are handled here because they mutate the working set; everything else is
// either a call to a resolvable command or a value expression.
func (p *Parser) parseElement(cmd *lexer.LiteCommand) lang.Expression {
	c := &cursor{tokens: cmd.Parts}

	head, ok := c.peek()
	if !ok {
		return lang.Garbage(lang.UnknownSpan())
	}

	if head.Kind == lexer.TokenBare {
		text := head.Text(p.src)

		switch text {
		case "let":
			return p.parseLet(c, false, false)
		case "mut":
			return p.parseLet(c, true, false)
		case "const":
			return p.parseLet(c, false, true)
		case "def":
			return p.parseDef(c, cmd.Comments)
		case "alias":
			return p.parseAliasDef(c)
		}

		if strings.HasPrefix(text, "$") && p.isAssignment(c) {
			return p.parseAssignment(c)
		}

		if call, handled := p.parseCallHead(c); handled {
			return call
		}

		if !looksLikeValue(text) {
			return p.unknownCommand(c, head)
		}
	}

	expr := p.parseMath(c)
	p.expectDone(c)

	return expr
}

// isAssignment reports whether the cursor holds `$name = ...`.
func (p *Parser) isAssignment(c *cursor) bool {
	if c.pos+1 >= len(c.tokens) {
		return false
	}

	next := c.tokens[c.pos+1]

	return next.Kind == lexer.TokenBare && next.Text(p.src) == "="
}

// looksLikeValue reports whether a bare head word starts a value expression
// rather than a command invocation.
func looksLikeValue(text string) bool {
	switch text {
	case "true", "false", "null", "not":
		return true
	}

	return strings.HasPrefix(text, "$") || strings.Contains(text, "..")
}

// expectDone reports any tokens left unconsumed after an element parse.
func (p *Parser) expectDone(c *cursor) {
	if c.done() {
		return
	}

	tok, _ := c.peek()
	p.ws.Error(lang.NewParseError(
		lang.ErrUnexpectedToken.
			With(slog.String("token", tok.Text(p.src))),
		c.span(),
	))

	c.pos = len(c.tokens)
}

// parseCallHead resolves the head word(s) of a command invocation and, on
// success, parses the full call. Aliases expand first; then the longest
// multi-word prefix of bare tokens that names a declaration wins, so
// `str trim` resolves as one command even when `str` alone also exists.
func (p *Parser) parseCallHead(c *cursor) (lang.Expression, bool) {
	head, _ := c.peek()
	name := head.Text(p.src)

	if aliased, ok := p.ws.FindAlias(name); ok {
		c.next()

		call := cloneCall(aliased)
		call.Head = head.Span

		return p.parseCall(call, name, c), true
	}

	declID, matched, consumed, ok := p.resolveDecl(c)
	if !ok {
		return lang.Expression{}, false
	}

	c.pos += consumed

	headSpan := head.Span
	if consumed > 1 {
		headSpan = headSpan.Merge(c.tokens[c.pos-1].Span)
	}

	return p.parseCall(lang.NewCall(declID, headSpan), matched, c), true
}

// resolveDecl finds the longest multi-word declaration name starting at the
// cursor, without consuming anything.
func (p *Parser) resolveDecl(c *cursor) (lang.DeclID, string, int, bool) {
	var words []string

	for i := c.pos; i < len(c.tokens); i++ {
		if c.tokens[i].Kind != lexer.TokenBare {
			break
		}

		words = append(words, c.tokens[i].Text(p.src))
	}

	for n := len(words); n >= 1; n-- {
		name := strings.Join(words[:n], " ")
		if id, ok := p.ws.FindDecl(name); ok {
			return id, name, n, true
		}
	}

	return 0, "", 0, false
}

// unknownCommand reports an unresolvable head word with a fuzzy-ranked
// suggestion and substitutes garbage for the whole command.
func (p *Parser) unknownCommand(c *cursor, head lexer.Token) lang.Expression {
	name := head.Text(p.src)
	span := c.span()

	err := lang.NewParseError(
		lang.ErrUnknownCommand.With(slog.String("name", name)),
		head.Span,
	)

	if help := didYouMean(name, p.ws.DeclNames()); help != "" {
		err = err.WithHelp(help)
	}

	p.ws.Error(err)
	c.pos = len(c.tokens)

	return lang.Garbage(span)
}

// didYouMean ranks candidates against name and suggests the best match.
func didYouMean(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}

	return "did you mean '" + matches[0].Str + "'?"
}

// parseCall consumes the remaining tokens against the declaration's
// signature: flags by name, positionals by their declared shapes, the rest
// parameter for anything beyond.
func (p *Parser) parseCall(
	call *lang.Call,
	name string,
	c *cursor,
) lang.Expression {
	sig := p.ws.GetDecl(call.Decl).Signature()

	if sig.CreatesScope {
		p.ws.EnterScope()
		defer p.ws.ExitScope()
	}

	npos := len(call.Positional)

	for !c.done() {
		tok, _ := c.peek()

		if tok.Kind == lexer.TokenFlag {
			p.parseFlag(sig, call, c)

			continue
		}

		param := sig.Positional(npos)

		switch {
		case param != nil:
			// An absent optional keyword argument does not consume; the
			// placeholder keeps later positionals index-aligned.
			if param.Shape.Kind == lang.ShapeKeyword &&
				npos >= len(sig.RequiredPositional) &&
				tok.Text(p.src) != param.Shape.Keyword {
				call.Positional = append(call.Positional, lang.Expression{
					Kind: lang.ExprNothing,
					Span: tok.Span,
					Type: lang.TypeNothing,
				})
				npos++

				continue
			}

			call.Positional = append(call.Positional, p.parseShape(c, param.Shape))
			npos++

		case sig.Rest != nil:
			call.Positional = append(call.Positional, p.parseShape(c, sig.Rest.Shape))

		default:
			p.ws.Error(lang.NewParseError(
				lang.ErrExtraPositional.
					With(slog.String("command", name)).
					With(slog.String("argument", tok.Text(p.src))),
				tok.Span,
			))
			c.next()
		}
	}

	for npos < len(sig.RequiredPositional) {
		param := sig.Positional(npos)

		p.ws.Error(lang.NewParseError(
			lang.ErrMissingPositional.
				With(slog.String("command", name)).
				With(slog.String("argument", param.Name)),
			call.Head,
		).WithHelp("expected " + param.Shape.String()))

		call.Positional = append(call.Positional, lang.Garbage(call.Head))
		npos++
	}

	for i := range sig.Named {
		if sig.Named[i].Required && !call.HasNamed(sig.Named[i].Long) {
			p.ws.Error(lang.NewParseError(
				lang.ErrMissingFlagValue.
					With(slog.String("command", name)).
					With(slog.String("flag", "--"+sig.Named[i].Long)),
				call.Head,
			))
		}
	}

	return lang.Expression{
		Kind: lang.ExprCall,
		Span: call.Span(),
		Type: lang.TypeAny,
		Call: call,
	}
}

// parseFlag consumes one flag token and, if the flag takes a value, the
// token(s) of its argument. Values may be attached with = or follow as the
// next token.
func (p *Parser) parseFlag(sig *lang.Signature, call *lang.Call, c *cursor) {
	tok, _ := c.next()
	text := tok.Text(p.src)

	var (
		flag      *lang.Flag
		valueText string
		hasValue  bool
		valueOff  int
	)

	if strings.HasPrefix(text, "--") {
		name := text[2:]
		if i := strings.IndexByte(name, '='); i >= 0 {
			valueText = name[i+1:]
			hasValue = true
			valueOff = 2 + i + 1
			name = name[:i]
		}

		flag = sig.GetLongFlag(name)
	} else {
		short := []rune(text[1:])
		if len(short) == 1 {
			flag = sig.GetShortFlag(short[0])
		}
	}

	if flag == nil {
		err := lang.NewParseError(
			lang.ErrUnknownFlag.
				With(slog.String("command", sig.Name)).
				With(slog.String("flag", text)),
			tok.Span,
		)

		longs := make([]string, len(sig.Named))
		for i := range sig.Named {
			longs[i] = "--" + sig.Named[i].Long
		}

		if help := didYouMean(text, longs); help != "" {
			err = err.WithHelp(help)
		}

		p.ws.Error(err)

		return
	}

	if flag.Arg == nil {
		if hasValue {
			p.ws.Error(lang.NewParseError(
				lang.ErrUnexpectedToken.
					With(slog.String("flag", "--"+flag.Long)),
				tok.Span,
			).WithHelp("switch takes no value"))
		}

		call.Named = append(call.Named, lang.NamedArg{
			Long: flag.Long,
			Span: tok.Span,
		})

		return
	}

	var value lang.Expression

	switch {
	case hasValue:
		vtokens, errs := lexer.Lex(
			[]byte(valueText),
			tok.Span.Start+valueOff,
		)
		for _, err := range errs {
			p.ws.Error(err)
		}

		value = p.parseShape(&cursor{tokens: vtokens}, *flag.Arg)

	case !c.done():
		value = p.parseShape(c, *flag.Arg)

	default:
		p.ws.Error(lang.NewParseError(
			lang.ErrMissingFlagValue.
				With(slog.String("flag", "--"+flag.Long)),
			tok.Span,
		).WithHelp("expected " + flag.Arg.String()))

		value = lang.Garbage(tok.Span)
	}

	call.Named = append(call.Named, lang.NamedArg{
		Long:  flag.Long,
		Span:  tok.Span,
		Value: &value,
	})
}

// cloneCall copies a stored alias call so expansion can append arguments
// without mutating the definition.
func cloneCall(call *lang.Call) *lang.Call {
	dup := &lang.Call{Decl: call.Decl, Head: call.Head}
	dup.Positional = append(dup.Positional, call.Positional...)
	dup.Named = append(dup.Named, call.Named...)

	return dup
}

// parseLet parses `let|mut|const name = expression`. The variable becomes
// visible to later statements of the same parse but not to its own
// right-hand side, so `let x = $x` refers to any outer x.
func (p *Parser) parseLet(c *cursor, mutable, constant bool) lang.Expression {
	kw, _ := c.next()

	nameTok, ok := c.next()
	if !ok || nameTok.Kind != lexer.TokenBare {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("keyword", kw.Text(p.src))),
			c.span(),
		).WithHelp("expected variable name"))

		return lang.Garbage(kw.Span)
	}

	name := strings.TrimPrefix(nameTok.Text(p.src), "$")

	if eq, ok := c.next(); !ok || eq.Text(p.src) != "=" {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("variable", name)),
			nameTok.Span,
		).WithHelp("expected ="))

		c.pos = len(c.tokens)

		return lang.Garbage(kw.Span.Merge(nameTok.Span))
	}

	rhs := p.parseMath(c)
	p.expectDone(c)

	id := p.ws.AddVariable(name, rhs.Type, mutable)

	if constant {
		if val, ok := p.constFold(&rhs); ok {
			p.ws.SetConstant(id, val)
		} else {
			p.ws.Error(lang.NewParseError(
				lang.ErrNotAConstant.
					With(slog.String("variable", name)),
				rhs.Span,
			))
		}
	}

	inner := rhs

	return lang.Expression{
		Kind:  lang.ExprVarDecl,
		Span:  kw.Span.Merge(rhs.Span),
		Type:  lang.TypeNothing,
		Var:   id,
		Inner: &inner,
	}
}

// parseAssignment parses `$name = expression` for a previously declared
// mutable variable.
func (p *Parser) parseAssignment(c *cursor) lang.Expression {
	nameTok, _ := c.next()
	name := strings.TrimPrefix(nameTok.Text(p.src), "$")

	id, found := p.ws.FindVariable(name)
	if !found {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnknownVariable.
				With(slog.String("name", name)),
			nameTok.Span,
		))
	} else if v := p.ws.GetVar(id); v != nil && !v.Mutable {
		p.ws.Error(lang.NewParseError(
			lang.ErrAssignReadOnly.
				With(slog.String("name", name)),
			nameTok.Span,
		).WithHelp("declare it with mut"))
	}

	c.next() // =

	rhs := p.parseMath(c)
	p.expectDone(c)

	if !found {
		return lang.Garbage(nameTok.Span.Merge(rhs.Span))
	}

	inner := rhs

	return lang.Expression{
		Kind:  lang.ExprVarDecl,
		Span:  nameTok.Span.Merge(rhs.Span),
		Type:  lang.TypeNothing,
		Var:   id,
		Inner: &inner,
	}
}

// parseDef parses `def name [signature] { body }`. The declaration
// registers before the body parses so the body may recurse, and later
// statements of the same parse can call it immediately.
func (p *Parser) parseDef(c *cursor, comments []lang.Span) lang.Expression {
	kw, _ := c.next()

	nameTok, ok := c.next()
	if !ok {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken, kw.Span,
		).WithHelp("expected command name"))

		return lang.Garbage(kw.Span)
	}

	name := nameTok.Text(p.src)
	if nameTok.Kind == lexer.TokenString {
		name = unquote(name)
	}

	sigTok, ok := c.next()
	if !ok || sigTok.Kind != lexer.TokenGroupBracket {
		p.ws.Error(lang.NewParseError(
			lang.ErrExpectedShape.
				With(slog.String("command", name)),
			nameTok.Span,
		).WithHelp("expected [ parameters ]"))

		c.pos = len(c.tokens)

		return lang.Garbage(kw.Span.Merge(nameTok.Span))
	}

	sig := p.parseSignatureLiteral(sigTok, name)
	sig.Desc = p.docComment(comments)

	cmd := lang.NewBlockCommand(sig, 0)
	p.ws.AddDecl(cmd)

	p.ws.EnterScope()
	p.bindSignatureVars(sig)

	bodyTok, ok := c.next()
	if !ok || bodyTok.Kind != lexer.TokenGroupBrace {
		p.ws.ExitScope()
		p.ws.Error(lang.NewParseError(
			lang.ErrExpectedShape.
				With(slog.String("command", name)),
			sigTok.Span,
		).WithHelp("expected { body }"))

		c.pos = len(c.tokens)

		return lang.Garbage(kw.Span.Merge(sigTok.Span))
	}

	body := p.parseBlockToken(bodyTok)
	body.Signature = sig
	p.ws.ExitScope()

	cmd.SetBlock(p.ws.AddBlock(body))
	p.expectDone(c)

	return lang.Expression{
		Kind: lang.ExprNothing,
		Span: kw.Span.Merge(bodyTok.Span),
		Type: lang.TypeNothing,
	}
}

// docComment joins attached comment lines into the declaration's one-line
// description.
func (p *Parser) docComment(comments []lang.Span) string {
	lines := make([]string, 0, len(comments))

	for _, span := range comments {
		text := strings.TrimLeft(span.Text(p.src), "# ")
		if text != "" {
			lines = append(lines, text)
		}
	}

	return strings.Join(lines, " ")
}

// bindSignatureVars declares one variable per bound parameter in the
// current scope, recording the ids argument binding uses at evaluation.
func (p *Parser) bindSignatureVars(sig *lang.Signature) {
	for i := range sig.RequiredPositional {
		param := &sig.RequiredPositional[i]
		param.VarID = p.ws.AddVariable(param.Name, param.Shape.Type(), false)
		param.Bound = true
	}

	for i := range sig.OptionalPositional {
		param := &sig.OptionalPositional[i]
		param.VarID = p.ws.AddVariable(param.Name, param.Shape.Type(), false)
		param.Bound = true
	}

	if sig.Rest != nil {
		sig.Rest.VarID = p.ws.AddVariable(sig.Rest.Name, lang.TypeList, false)
		sig.Rest.Bound = true
	}

	for i := range sig.Named {
		flag := &sig.Named[i]

		ty := lang.TypeBool
		if flag.Arg != nil {
			ty = flag.Arg.Type()
		}

		flag.VarID = p.ws.AddVariable(flag.Long, ty, false)
		flag.Bound = true
	}
}

// parseAliasDef parses `alias name = command args...`. The right-hand side
// must resolve to a command; its parsed call is stored and copied at each
// expansion site.
func (p *Parser) parseAliasDef(c *cursor) lang.Expression {
	kw, _ := c.next()

	nameTok, ok := c.next()
	if !ok || nameTok.Kind != lexer.TokenBare {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken, kw.Span,
		).WithHelp("expected alias name"))

		return lang.Garbage(kw.Span)
	}

	name := nameTok.Text(p.src)

	if eq, ok := c.next(); !ok || eq.Text(p.src) != "=" {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnexpectedToken.
				With(slog.String("alias", name)),
			nameTok.Span,
		).WithHelp("expected ="))

		c.pos = len(c.tokens)

		return lang.Garbage(kw.Span.Merge(nameTok.Span))
	}

	expr, handled := p.parseCallHead(c)
	if !handled || expr.Kind != lang.ExprCall {
		p.ws.Error(lang.NewParseError(
			lang.ErrUnknownCommand.
				With(slog.String("alias", name)),
			c.span(),
		).WithHelp("alias must expand to a command"))

		c.pos = len(c.tokens)

		return lang.Garbage(kw.Span.Merge(nameTok.Span))
	}

	p.ws.AddAlias(name, expr.Call)
	p.expectDone(c)

	return lang.Expression{
		Kind: lang.ExprNothing,
		Span: kw.Span.Merge(expr.Span),
		Type: lang.TypeNothing,
	}
}

// constFold reduces an expression to a value at parse time. Only literal
// forms fold; anything depending on runtime state does not.
func (p *Parser) constFold(expr *lang.Expression) (lang.Value, bool) {
	switch expr.Kind {
	case lang.ExprNothing:
		return lang.Nothing(expr.Span), true

	case lang.ExprBool:
		return lang.BoolValue(expr.Bool, expr.Span), true

	case lang.ExprInt:
		return lang.IntValue(expr.Int, expr.Span), true

	case lang.ExprFloat:
		return lang.FloatValue(expr.Float, expr.Span), true

	case lang.ExprString:
		return lang.StringValue(expr.Str, expr.Span), true

	case lang.ExprVar:
		if v := p.ws.GetVar(expr.Var); v != nil && v.Const != nil {
			return *v.Const, true
		}

		return lang.Value{}, false

	case lang.ExprList:
		items := make([]lang.Value, 0, len(expr.List))

		for i := range expr.List {
			val, ok := p.constFold(&expr.List[i])
			if !ok {
				return lang.Value{}, false
			}

			items = append(items, val)
		}

		return lang.ListValue(items, expr.Span), true

	case lang.ExprRecord:
		rec := lang.NewRecord()

		for i := range expr.Record {
			key, ok := p.constFold(&expr.Record[i].Key)
			if !ok || key.Kind != lang.KindString {
				return lang.Value{}, false
			}

			val, ok := p.constFold(&expr.Record[i].Value)
			if !ok {
				return lang.Value{}, false
			}

			rec.Set(key.Str, val)
		}

		return lang.RecordValue(rec, expr.Span), true

	default:
		return lang.Value{}, false
	}
}
