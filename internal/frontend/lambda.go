package frontend

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/roach88/querymodel/internal/exec"
	"github.com/roach88/querymodel/internal/expr"
)

// LambdaError reports lambda text that does not parse or does not type.
type LambdaError struct {
	Text    string
	Column  int
	Message string
}

func (e *LambdaError) Error() string {
	return fmt.Sprintf("lambda %q: column %d: %s", e.Text, e.Column, e.Message)
}

// ParseLambda parses lambda text such as c => c.Age > 30 whose parameters
// have the given types.
func ParseLambda(text string, params ...reflect.Type) (*expr.Lambda, error) {
	return parseLambda(text, func(n int) ([]reflect.Type, error) {
		if n != len(params) {
			return nil, fmt.Errorf("lambda takes %d parameters, expected %d", n, len(params))
		}
		return params, nil
	})
}

// MustLambda is ParseLambda for tests and static tables; it panics on error.
func MustLambda(text string, params ...reflect.Type) *expr.Lambda {
	l, err := ParseLambda(text, params...)
	if err != nil {
		panic(err)
	}
	return l
}

func parseLambda(text string, types func(n int) ([]reflect.Type, error)) (*expr.Lambda, error) {
	p := newLambdaParser(text)
	l, err := p.parseLambda(types)
	if err != nil {
		return nil, err
	}
	if !p.currentTokenIs(TokenEOF) {
		return nil, p.errorf("unexpected %s after lambda body", p.current.Type)
	}
	return l, nil
}

// lambdaParser is a recursive-descent parser, one method per precedence
// level:
//
//	conditional  a ? b : c
//	or           ||
//	and          &&
//	equality     == !=
//	comparison   < <= > >=
//	additive     + -
//	multiplicative * / %
//	unary        ! -
//	postfix      .Member .Method(args)
type lambdaParser struct {
	text    string
	lexer   *Lexer
	current Token
	peek    Token

	// scopes holds the parameters of the enclosing lambdas, innermost last.
	scopes []map[string]*expr.Parameter

	// untyped marks literal constants whose type adapts to the other
	// operand, as in c.Score > 4.
	untyped map[expr.Expr]bool
}

func newLambdaParser(text string) *lambdaParser {
	p := &lambdaParser{text: text, lexer: NewLexer(text), untyped: make(map[expr.Expr]bool)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *lambdaParser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *lambdaParser) currentTokenIs(t TokenType) bool { return p.current.Type == t }

func (p *lambdaParser) expect(t TokenType) error {
	if !p.currentTokenIs(t) {
		return p.errorf("expected %s, got %s", t, p.describe(p.current))
	}
	p.nextToken()
	return nil
}

func (p *lambdaParser) describe(tok Token) string {
	if tok.Type == TokenIdentifier || tok.Type == TokenIllegal {
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

func (p *lambdaParser) errorf(format string, args ...any) error {
	return &LambdaError{Text: p.text, Column: p.current.Column, Message: fmt.Sprintf(format, args...)}
}

// isLambdaStart reports whether the tokens at the cursor begin a lambda:
// x => or (x, y) =>. It scans ahead on a copy of the lexer.
func (p *lambdaParser) isLambdaStart() bool {
	if p.currentTokenIs(TokenIdentifier) {
		return p.peek.Type == TokenArrow
	}
	if !p.currentTokenIs(TokenLeftParen) {
		return false
	}
	saved := *p.lexer
	defer func() { *p.lexer = saved }()
	tok := p.peek
	for {
		if tok.Type == TokenRightParen {
			return p.lexer.NextToken().Type == TokenArrow
		}
		if tok.Type != TokenIdentifier {
			return false
		}
		tok = p.lexer.NextToken()
		if tok.Type == TokenComma {
			tok = p.lexer.NextToken()
		}
	}
}

func (p *lambdaParser) parseLambda(types func(n int) ([]reflect.Type, error)) (*expr.Lambda, error) {
	var names []string
	switch {
	case p.currentTokenIs(TokenIdentifier):
		names = append(names, p.current.Literal)
		p.nextToken()
	case p.currentTokenIs(TokenLeftParen):
		p.nextToken()
		for !p.currentTokenIs(TokenRightParen) {
			if !p.currentTokenIs(TokenIdentifier) {
				return nil, p.errorf("expected parameter name, got %s", p.describe(p.current))
			}
			names = append(names, p.current.Literal)
			p.nextToken()
			if p.currentTokenIs(TokenComma) {
				p.nextToken()
			}
		}
		p.nextToken()
	default:
		return nil, p.errorf("expected lambda parameters, got %s", p.describe(p.current))
	}
	if err := p.expect(TokenArrow); err != nil {
		return nil, err
	}

	paramTypes, err := types(len(names))
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	scope := make(map[string]*expr.Parameter, len(names))
	params := make([]*expr.Parameter, len(names))
	for i, name := range names {
		if _, dup := scope[name]; dup {
			return nil, p.errorf("duplicate parameter %s", name)
		}
		params[i] = expr.NewParameter(name, paramTypes[i])
		scope[name] = params[i]
	}

	p.scopes = append(p.scopes, scope)
	defer func() { p.scopes = p.scopes[:len(p.scopes)-1] }()

	b, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return expr.NewLambda(p.settle(b), params...), nil
}

func (p *lambdaParser) lookup(name string) (*expr.Parameter, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if param, ok := p.scopes[i][name]; ok {
			return param, true
		}
	}
	return nil, false
}

func (p *lambdaParser) parseExpression() (expr.Expr, error) {
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.currentTokenIs(TokenQuestion) {
		return test, nil
	}
	if test.Type() != boolType {
		return nil, p.errorf("condition must be Bool, got %s", expr.TypeName(test.Type()))
	}
	p.nextToken()
	a, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	b, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	a, b = p.coerce(a, b)
	if a.Type() != b.Type() {
		return nil, p.errorf("branches have different types %s and %s", expr.TypeName(a.Type()), expr.TypeName(b.Type()))
	}
	return expr.NewConditional(test, a, b), nil
}

// binaryLevel parses one left-associative precedence level.
func (p *lambdaParser) binaryLevel(next func() (expr.Expr, error), ops map[TokenType]expr.BinaryOp) (expr.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.current.Type]
		if !ok {
			return left, nil
		}
		p.nextToken()
		right, err := next()
		if err != nil {
			return nil, err
		}
		if left, err = p.binary(op, left, right); err != nil {
			return nil, err
		}
	}
}

var (
	orOps             = map[TokenType]expr.BinaryOp{TokenOr: expr.OrElse}
	andOps            = map[TokenType]expr.BinaryOp{TokenAnd: expr.AndAlso}
	equalityOps       = map[TokenType]expr.BinaryOp{TokenEqual: expr.Equal, TokenNotEqual: expr.NotEqual}
	comparisonOps     = map[TokenType]expr.BinaryOp{TokenLess: expr.LessThan, TokenLessEqual: expr.LessThanOrEqual, TokenGreater: expr.GreaterThan, TokenGreaterEqual: expr.GreaterThanOrEqual}
	additiveOps       = map[TokenType]expr.BinaryOp{TokenPlus: expr.Add, TokenMinus: expr.Subtract}
	multiplicativeOps = map[TokenType]expr.BinaryOp{TokenStar: expr.Multiply, TokenSlash: expr.Divide, TokenPercent: expr.Modulo}
)

func (p *lambdaParser) parseOr() (expr.Expr, error) {
	return p.binaryLevel(p.parseAnd, orOps)
}

func (p *lambdaParser) parseAnd() (expr.Expr, error) {
	return p.binaryLevel(p.parseEquality, andOps)
}

func (p *lambdaParser) parseEquality() (expr.Expr, error) {
	return p.binaryLevel(p.parseComparison, equalityOps)
}

func (p *lambdaParser) parseComparison() (expr.Expr, error) {
	return p.binaryLevel(p.parseAdditive, comparisonOps)
}

func (p *lambdaParser) parseAdditive() (expr.Expr, error) {
	return p.binaryLevel(p.parseMultiplicative, additiveOps)
}

func (p *lambdaParser) parseMultiplicative() (expr.Expr, error) {
	return p.binaryLevel(p.parseUnary, multiplicativeOps)
}

func (p *lambdaParser) parseUnary() (expr.Expr, error) {
	switch p.current.Type {
	case TokenNot:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if operand.Type() != boolType {
			return nil, p.errorf("operand of ! must be Bool, got %s", expr.TypeName(operand.Type()))
		}
		return expr.NewNot(operand), nil
	case TokenMinus:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(*expr.Constant); ok && p.untyped[c] {
			return p.literal(negateLiteral(c.Value)), nil
		}
		if !isNumeric(operand.Type()) {
			return nil, p.errorf("operand of - must be numeric, got %s", expr.TypeName(operand.Type()))
		}
		return expr.NewNegate(operand), nil
	}
	return p.parsePostfix()
}

func negateLiteral(v any) any {
	switch n := v.(type) {
	case int32:
		return -n
	case int64:
		return -n
	case float64:
		return -n
	}
	return v
}

func (p *lambdaParser) parsePostfix() (expr.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.currentTokenIs(TokenDot) {
		p.nextToken()
		if !p.currentTokenIs(TokenIdentifier) {
			return nil, p.errorf("expected member name, got %s", p.describe(p.current))
		}
		name := p.current.Literal
		p.nextToken()
		if p.currentTokenIs(TokenLeftParen) {
			e, err = p.parseCall(p.settle(e), name)
		} else {
			e, err = p.member(p.settle(e), name)
		}
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (p *lambdaParser) member(obj expr.Expr, name string) (expr.Expr, error) {
	st := obj.Type()
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, p.errorf("cannot read %s from %s", name, expr.TypeName(obj.Type()))
	}
	if _, ok := st.FieldByName(name); !ok {
		if _, ok := st.FieldByName(expr.ExportName(name)); !ok {
			return nil, p.errorf("%s has no member %s", expr.TypeName(st), name)
		}
	}
	return expr.NewMember(obj, name), nil
}

// parseCall parses the argument list of recv.name(...). Calls on sequences
// are query operators; calls on other values are scalar methods.
func (p *lambdaParser) parseCall(recv expr.Expr, name string) (expr.Expr, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	elem, isSeq := expr.ElementType(recv.Type())
	op, isOp := operators[name]

	var args []expr.Expr
	for !p.currentTokenIs(TokenRightParen) {
		var arg expr.Expr
		var err error
		if isSeq && isOp && p.isLambdaStart() {
			i, prior := len(args), args
			arg, err = p.parseLambda(func(n int) ([]reflect.Type, error) {
				params, ok := op.lambda(elem, i, n, prior)
				if !ok {
					return nil, fmt.Errorf("argument %d of %s is not a function", i, name)
				}
				if len(params) != n {
					return nil, fmt.Errorf("argument %d of %s takes %d parameters, got %d", i, name, len(params), n)
				}
				return params, nil
			})
		} else {
			arg, err = p.parseExpression()
		}
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.currentTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.currentTokenIs(TokenRightParen) {
			return nil, p.errorf("expected , or ), got %s", p.describe(p.current))
		}
	}
	p.nextToken()

	if isSeq {
		if !isOp {
			return nil, p.errorf("unknown query operator %s", name)
		}
		if name == "Contains" && len(args) == 1 {
			args[0] = p.adapt(args[0], elem)
		}
		for i := range args {
			args[i] = p.settle(args[i])
		}
		c, err := call(recv, name, args)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		return c, nil
	}

	m, ok := exec.ScalarMethods[expr.Signature(name, len(args))]
	if !ok || m.Receiver != recv.Type() {
		return nil, p.errorf("%s has no method %s with %d arguments", expr.TypeName(recv.Type()), name, len(args))
	}
	for i, a := range args {
		args[i] = p.adapt(a, m.Params[i])
		if args[i].Type() != m.Params[i] {
			return nil, p.errorf("argument %d of %s must be %s, got %s", i, name,
				expr.TypeName(m.Params[i]), expr.TypeName(args[i].Type()))
		}
	}
	return expr.NewCall(m.Result, recv, name, args...), nil
}

var conversions = map[string]reflect.Type{
	"int":     intType,
	"int32":   reflect.TypeFor[int32](),
	"int64":   int64Type,
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
}

func (p *lambdaParser) parsePrimary() (expr.Expr, error) {
	tok := p.current
	switch tok.Type {
	case TokenInt:
		p.nextToken()
		if n, err := strconv.ParseInt(tok.Literal, 10, 32); err == nil {
			return p.literal(int32(n)), nil
		}
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %s", tok.Literal)
		}
		return p.literal(n), nil
	case TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid number %s", tok.Literal)
		}
		return p.literal(f), nil
	case TokenString:
		p.nextToken()
		return expr.NewConstant(tok.Literal), nil
	case TokenTrue, TokenFalse:
		p.nextToken()
		return expr.NewConstant(tok.Type == TokenTrue), nil
	case TokenNull:
		p.nextToken()
		c := expr.NewTypedConstant(nil, reflect.TypeFor[any]())
		p.untyped[c] = true
		return c, nil
	case TokenLeftParen:
		p.nextToken()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return e, p.expect(TokenRightParen)
	case TokenNew:
		return p.parseNew()
	case TokenIdentifier:
		if param, ok := p.lookup(tok.Literal); ok {
			p.nextToken()
			return param, nil
		}
		if t, ok := conversions[tok.Literal]; ok && p.peek.Type == TokenLeftParen {
			p.nextToken()
			p.nextToken()
			operand, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenRightParen); err != nil {
				return nil, err
			}
			operand = p.adapt(operand, t)
			if !isNumeric(operand.Type()) {
				return nil, p.errorf("cannot convert %s to %s", expr.TypeName(operand.Type()), expr.TypeName(t))
			}
			return expr.NewConvert(operand, t), nil
		}
		return nil, p.errorf("unknown identifier %s", tok.Literal)
	}
	return nil, p.errorf("unexpected %s", p.describe(tok))
}

// parseNew parses new { Name = expr, ... }. A bare member access such as
// new { c.Name } takes the member's name.
func (p *lambdaParser) parseNew() (expr.Expr, error) {
	p.nextToken()
	if err := p.expect(TokenLeftBrace); err != nil {
		return nil, err
	}
	var names []string
	var args []expr.Expr
	seen := make(map[string]bool)
	for !p.currentTokenIs(TokenRightBrace) {
		var name string
		if p.currentTokenIs(TokenIdentifier) && p.peek.Type == TokenAssign {
			name = p.current.Literal
			p.nextToken()
			p.nextToken()
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if name == "" {
			m, ok := arg.(*expr.Member)
			if !ok {
				return nil, p.errorf("member name required for %s", arg)
			}
			name = m.Name
		}
		if seen[expr.ExportName(name)] {
			return nil, p.errorf("duplicate member %s", name)
		}
		seen[expr.ExportName(name)] = true
		names = append(names, name)
		args = append(args, p.settle(arg))
		if p.currentTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.currentTokenIs(TokenRightBrace) {
			return nil, p.errorf("expected , or }, got %s", p.describe(p.current))
		}
	}
	p.nextToken()
	if len(names) == 0 {
		return nil, p.errorf("new { } needs at least one member")
	}
	return expr.TransparentIdentifier(names, args...), nil
}

func (p *lambdaParser) literal(v any) *expr.Constant {
	c := expr.NewConstant(v)
	p.untyped[c] = true
	return c
}

// binary type-checks and builds a binary operation, adapting literals and
// promoting mixed numeric operands.
func (p *lambdaParser) binary(op expr.BinaryOp, l, r expr.Expr) (expr.Expr, error) {
	l, r = p.coerce(l, r)
	lt, rt := l.Type(), r.Type()
	switch {
	case op.IsLogical():
		if lt != boolType || rt != boolType {
			return nil, p.errorf("operator %s requires Bool operands, got %s and %s", op, expr.TypeName(lt), expr.TypeName(rt))
		}
	case op == expr.Equal || op == expr.NotEqual:
		if !equatable(lt, rt) && !isNullLiteral(l) && !isNullLiteral(r) {
			return nil, p.errorf("cannot compare %s and %s", expr.TypeName(lt), expr.TypeName(rt))
		}
	case op.IsComparison():
		if !(isNumeric(lt) && isNumeric(rt)) && !(base(lt) == base(rt) && (base(lt).Kind() == reflect.String)) {
			return nil, p.errorf("operator %s is not defined on %s and %s", op, expr.TypeName(lt), expr.TypeName(rt))
		}
	case op == expr.Add && lt.Kind() == reflect.String && rt.Kind() == reflect.String:
	default:
		if !isNumeric(lt) || !isNumeric(rt) {
			return nil, p.errorf("operator %s is not defined on %s and %s", op, expr.TypeName(lt), expr.TypeName(rt))
		}
		l, r = promote(l, r)
	}
	return expr.NewBinary(op, l, r), nil
}

// coerce gives an untyped literal the type of the other operand.
func (p *lambdaParser) coerce(l, r expr.Expr) (expr.Expr, expr.Expr) {
	lu, ru := p.isUntyped(l), p.isUntyped(r)
	switch {
	case lu && !ru:
		l = p.adapt(l, r.Type())
	case ru && !lu:
		r = p.adapt(r, l.Type())
	}
	return l, r
}

func (p *lambdaParser) isUntyped(e expr.Expr) bool {
	c, ok := e.(*expr.Constant)
	return ok && p.untyped[c]
}

// adapt converts an untyped literal to t (or to the value type under a
// nullable t) when the conversion is lossless. Other expressions are
// returned unchanged.
func (p *lambdaParser) adapt(e expr.Expr, t reflect.Type) expr.Expr {
	c, ok := e.(*expr.Constant)
	if !ok || !p.untyped[c] {
		return e
	}
	if c.Value == nil {
		if expr.IsNullable(t) {
			return expr.NewTypedConstant(nil, t)
		}
		return e
	}
	target := base(t)
	kind := reflect.TypeOf(c.Value).Kind()
	switch {
	case expr.IsFloatKind(kind) && !expr.IsFloatKind(target.Kind()):
		return e
	case !isNumeric(target):
		return e
	}
	return expr.NewConstant(reflect.ValueOf(c.Value).Convert(target).Interface())
}

// settle fixes an untyped literal that has no partner operand to its default
// type.
func (p *lambdaParser) settle(e expr.Expr) expr.Expr {
	if c, ok := e.(*expr.Constant); ok && p.untyped[c] {
		delete(p.untyped, c)
	}
	return e
}

func isNullLiteral(e expr.Expr) bool {
	c, ok := e.(*expr.Constant)
	return ok && c.Value == nil
}

func base(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func isNumeric(t reflect.Type) bool {
	k := base(t).Kind()
	return expr.IsIntegerKind(k) || expr.IsUnsignedKind(k) || expr.IsFloatKind(k)
}

func equatable(a, b reflect.Type) bool {
	if isNumeric(a) && isNumeric(b) {
		return true
	}
	return base(a) == base(b) || a.Kind() == reflect.Interface || b.Kind() == reflect.Interface
}

// promote converts mixed numeric operands to a common type: Float64 when
// either side is a float, Int64 when the integer kinds differ. The common
// type is nullable when either side is.
func promote(l, r expr.Expr) (expr.Expr, expr.Expr) {
	lt, rt := l.Type(), r.Type()
	if lt == rt {
		return l, r
	}
	lb, rb := base(lt), base(rt)
	common := lb
	switch {
	case lb == rb:
	case expr.IsFloatKind(lb.Kind()) || expr.IsFloatKind(rb.Kind()):
		common = reflect.TypeFor[float64]()
	default:
		common = int64Type
	}
	if lt.Kind() == reflect.Pointer || rt.Kind() == reflect.Pointer {
		common = reflect.PointerTo(common)
	}
	if lt != common {
		l = expr.NewConvert(l, common)
	}
	if rt != common {
		r = expr.NewConvert(r, common)
	}
	return l, r
}
