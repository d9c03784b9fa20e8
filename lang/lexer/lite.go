package lexer

import "github.com/ardnew/shale/lang"

// LiteCommand is one command's worth of tokens: a head word plus arguments,
// not yet interpreted. Comments document the command they precede or share
// a line with.
type LiteCommand struct {
	Parts    []Token
	Comments []lang.Span
}

// Span returns the source range covered by the command's parts.
func (c *LiteCommand) Span() lang.Span {
	if len(c.Parts) == 0 {
		return lang.UnknownSpan()
	}

	return c.Parts[0].Span.Merge(c.Parts[len(c.Parts)-1].Span)
}

// LitePipeline is a |-separated chain of commands.
type LitePipeline struct {
	Commands []*LiteCommand
}

// Span returns the source range covered by the pipeline.
func (p *LitePipeline) Span() lang.Span {
	if len(p.Commands) == 0 {
		return lang.UnknownSpan()
	}

	return p.Commands[0].Span().Merge(p.Commands[len(p.Commands)-1].Span())
}

// LiteBlock is the structure-only view of a source unit: pipelines split on
// semicolons and newlines, commands split on pipes, comments attached to the
// commands they document. No name has been resolved and no argument shape
// interpreted yet.
type LiteBlock struct {
	Pipelines []*LitePipeline
}

// Split groups a token stream into the lite structure. Pipes continue the
// current pipeline, semicolons and newlines end it, and comments attach to
// the command they share a line with or the next command they immediately
// precede. A blank line between a comment and the next command detaches the
// comment: only contiguous comment lines document a declaration.
func Split(tokens []Token) *LiteBlock {
	block := &LiteBlock{}

	var (
		pipeline *LitePipeline
		command  *LiteCommand
		pending  []lang.Span
		lastNL   bool
	)

	flushCommand := func() {
		if command != nil && len(command.Parts) > 0 {
			if pipeline == nil {
				pipeline = &LitePipeline{}
			}

			pipeline.Commands = append(pipeline.Commands, command)
		}

		command = nil
	}

	flushPipeline := func() {
		flushCommand()

		if pipeline != nil && len(pipeline.Commands) > 0 {
			block.Pipelines = append(block.Pipelines, pipeline)
		}

		pipeline = nil
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenNewline:
			// A pipe at end of line continues the pipeline onto the next.
			if command == nil && pipeline != nil {
				lastNL = true

				continue
			}

			flushPipeline()

			if lastNL {
				pending = nil
			}

			lastNL = true

		case TokenSemicolon:
			flushPipeline()

			lastNL = false

		case TokenPipe:
			flushCommand()

			lastNL = false

		case TokenComment:
			if command != nil && len(command.Parts) > 0 {
				command.Comments = append(command.Comments, tok.Span)
			} else {
				pending = append(pending, tok.Span)
			}

			lastNL = false

		default:
			if command == nil {
				command = &LiteCommand{Comments: pending}
				pending = nil
			}

			command.Parts = append(command.Parts, tok)

			lastNL = false
		}
	}

	flushPipeline()

	return block
}
