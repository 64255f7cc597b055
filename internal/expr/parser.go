package expr

import "fmt"

// Parse parses src into an expression tree.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

// MustParse is Parse for constant sources; it panics on error.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("expr.MustParse(%q): %v", src, err))
	}
	return n
}

// maxNesting bounds parser recursion. A parenthesized group costs three
// levels, so about 200 groups fit.
const maxNesting = 600

type parser struct {
	toks  []token
	pos   int
	depth int
}

// enter records one level of nesting; callers defer p.leave().
func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return &SyntaxError{Pos: p.peek().pos, Msg: "expression nested too deeply"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// isOp reports whether the current token is one of the given operators.
func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) isWord(word string) bool {
	t := p.peek()
	return t.kind == tokName && t.text == word
}

func (p *parser) expect(op string) error {
	if !p.isOp(op) {
		return &SyntaxError{Pos: p.peek().pos, Msg: fmt.Sprintf("expected %q, found %s", op, p.peek())}
	}
	p.next()
	return nil
}

func (p *parser) unexpected() error {
	return &SyntaxError{Pos: p.peek().pos, Msg: fmt.Sprintf("unexpected %s", p.peek())}
}

// expr = or_expr [ "if" or_expr "else" expr ]
func (p *parser) expr() (Node, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	then, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if !p.isWord("if") {
		return then, nil
	}
	pos := p.next().pos
	cond, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if !p.isWord("else") {
		return nil, &SyntaxError{Pos: p.peek().pos, Msg: fmt.Sprintf("expected \"else\", found %s", p.peek())}
	}
	p.next()
	els, err := p.expr()
	if err != nil {
		return nil, err
	}
	return Conditional{Offset: pos, Then: then, Cond: cond, Else: els}, nil
}

func (p *parser) orExpr() (Node, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		pos := p.next().pos
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = Logical{Offset: pos, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) andExpr() (Node, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		pos := p.next().pos
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = Logical{Offset: pos, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) notExpr() (Node, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	if p.isWord("not") {
		pos := p.next().pos
		x, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return Not{Offset: pos, X: x}, nil
	}
	return p.comparison()
}

var comparisonOps = []string{"<", "<=", ">", ">=", "==", "!="}

func (p *parser) comparison() (Node, error) {
	first, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if !p.isOp(comparisonOps...) {
		return first, nil
	}
	cmp := Compare{Offset: p.peek().pos, First: first}
	for p.isOp(comparisonOps...) {
		cmp.Ops = append(cmp.Ops, p.next().text)
		right, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		cmp.Rest = append(cmp.Rest, right)
	}
	return cmp, nil
}

// binaryLevels lists the left-associative binary operators from loosest
// to tightest binding.
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%"},
}

func (p *parser) binary(level int) (Node, error) {
	if level == len(binaryLevels) {
		return p.factor()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.isOp(binaryLevels[level]...) {
		op := p.next()
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Offset: op.pos, Op: op.text, Left: left, Right: right}
	}
	return left, nil
}

// factor = ("-"|"+"|"~") factor | power
func (p *parser) factor() (Node, error) {
	defer p.leave()
	if err := p.enter(); err != nil {
		return nil, err
	}
	if p.isOp("-", "+", "~") {
		op := p.next()
		x, err := p.factor()
		if err != nil {
			return nil, err
		}
		return Unary{Offset: op.pos, Op: op.text, X: x}, nil
	}
	return p.power()
}

// power = postfix [ "**" factor ]; right associative.
func (p *parser) power() (Node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	op := p.next()
	exp, err := p.factor()
	if err != nil {
		return nil, err
	}
	return Binary{Offset: op.pos, Op: "**", Left: base, Right: exp}, nil
}

func (p *parser) postfix() (Node, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("("):
			x, err = p.call(x)
			if err != nil {
				return nil, err
			}
		case p.isOp("."):
			pos := p.next().pos
			t := p.peek()
			if t.kind != tokName || IsKeyword(t.text) {
				return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected attribute name, found %s", t)}
			}
			p.next()
			x = Attribute{Offset: pos, X: x, Ident: t.text}
		default:
			return x, nil
		}
	}
}

func (p *parser) call(fn Node) (Node, error) {
	c := Call{Offset: p.next().pos, Func: fn}
	seen := make(map[string]bool)
	for !p.isOp(")") {
		t := p.peek()
		if t.kind == tokName && p.toks[p.pos+1].kind == tokOp && p.toks[p.pos+1].text == "=" {
			if IsKeyword(t.text) {
				return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("keyword %q cannot be an argument name", t.text)}
			}
			if seen[t.text] {
				return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("keyword argument repeated: %s", t.text)}
			}
			seen[t.text] = true
			p.next()
			p.next()
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			c.Keywords = append(c.Keywords, KeywordArg{Name: t.text, Value: v})
		} else {
			if len(c.Keywords) > 0 {
				return nil, &SyntaxError{Pos: t.pos, Msg: "positional argument follows keyword argument"}
			}
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			c.Args = append(c.Args, v)
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) atom() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return Literal{Offset: t.pos, Value: t.num}, nil
	case tokName:
		switch {
		case t.text == "True":
			p.next()
			return Literal{Offset: t.pos, Value: Bool(true)}, nil
		case t.text == "False":
			p.next()
			return Literal{Offset: t.pos, Value: Bool(false)}, nil
		case IsKeyword(t.text):
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("keyword %q is not allowed here", t.text)}
		}
		p.next()
		return Name{Offset: t.pos, Ident: t.text}, nil
	case tokOp:
		if t.text == "(" {
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, p.unexpected()
}
