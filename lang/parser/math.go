package parser

import (
	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/lexer"
)

// parseMath parses an operator expression by precedence climbing over the
// static table in lang.Operator. Operands are atoms; operators are bare
// words between them. Parsing stops at the first token that is not an
// operator, leaving it for the caller.
func (p *Parser) parseMath(c *cursor) lang.Expression {
	return p.parseMathPrec(c, 0)
}

func (p *Parser) parseMathPrec(c *cursor, min int) lang.Expression {
	lhs := p.parseAtom(c)

	for {
		tok, ok := c.peek()
		if !ok || tok.Kind != lexer.TokenBare {
			return lhs
		}

		op, isOp := lang.ParseOperator(tok.Text(p.src))
		if !isOp {
			return lhs
		}

		prec := op.Precedence()
		if prec < min {
			return lhs
		}

		c.next()

		// Left-associative operators climb past equal precedence;
		// right-associative (**) recurses at its own level.
		next := prec + 1
		if op.RightAssociative() {
			next = prec
		}

		rhs := p.parseMathPrec(c, next)

		left := lhs
		lhs = lang.Expression{
			Kind:  lang.ExprBinaryOp,
			Span:  left.Span.Merge(rhs.Span),
			Type:  binaryType(op, &left, &rhs),
			Op:    op,
			Left:  &left,
			Right: &rhs,
		}
	}
}

// binaryType infers the static result type of an operator expression, as
// far as the operand types are known at parse time.
func binaryType(op lang.Operator, left, right *lang.Expression) lang.Type {
	switch op {
	case lang.OpEq, lang.OpNe, lang.OpLt, lang.OpGt, lang.OpLe, lang.OpGe,
		lang.OpRegexMatch, lang.OpNotRegexMatch, lang.OpIn, lang.OpNotIn,
		lang.OpAnd, lang.OpOr:
		return lang.TypeBool

	case lang.OpDiv:
		return lang.TypeFloat

	case lang.OpAdd:
		if left.Type == lang.TypeString && right.Type == lang.TypeString {
			return lang.TypeString
		}

		return numericType(left, right)

	default:
		return numericType(left, right)
	}
}

func numericType(left, right *lang.Expression) lang.Type {
	if left.Type == lang.TypeInt && right.Type == lang.TypeInt {
		return lang.TypeInt
	}

	if left.Type == lang.TypeFloat || right.Type == lang.TypeFloat {
		return lang.TypeFloat
	}

	return lang.TypeNumber
}
