package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

// expressionPattern is the whole accepted language: one lowercase parameter,
// then two or more lowercase-alnum operands joined by + - * /.
var expressionPattern = regexp.MustCompile(`^\s*(?:lambda\s+)?([a-z][a-z0-9]*)\s*:\s*((?:[a-z0-9]+\s*[-+*/]\s*)+[a-z0-9]+)\s*$`)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+|[-+*/]`)

// Expression is a compiled restricted arithmetic expression such as
// "x: x/255". It is evaluated elementwise by walking its tree and can reach
// nothing but its argument and integer literals.
type Expression struct {
	literal string
	param   string
	root    node
	divides bool
}

type node interface {
	eval(x float64) (float64, error)
}

type paramRef struct{}

func (paramRef) eval(x float64) (float64, error) {
	return x, nil
}

type constant float64

func (c constant) eval(float64) (float64, error) {
	return float64(c), nil
}

type binaryOp struct {
	op          string
	left, right node
}

func (b binaryOp) eval(x float64) (float64, error) {
	l, err := b.left.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(x)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	default:
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
}

func CompileExpression(literal string) (*Expression, error) {
	match := expressionPattern.FindStringSubmatch(literal)
	if match == nil {
		return nil, &errs.BadTransformError{Expression: literal, Reason: "does not match the restricted arithmetic grammar"}
	}
	expr := &Expression{literal: literal, param: match[1]}
	p := &parser{tokens: tokenPattern.FindAllString(match[2], -1), param: expr.param}
	root, err := p.parseSum()
	if err != nil {
		return nil, &errs.BadTransformError{Expression: literal, Reason: err.Error()}
	}
	if p.pos != len(p.tokens) {
		return nil, &errs.BadTransformError{Expression: literal, Reason: fmt.Sprintf("unexpected token %q", p.tokens[p.pos])}
	}
	expr.root = root
	expr.divides = strings.Contains(match[2], "/")
	return expr, nil
}

func (e *Expression) String() string {
	return e.literal
}

func (e *Expression) Apply(value any) (any, error) {
	switch v := value.(type) {
	case *tensor.Tensor:
		return e.applyTensor(v)
	case float64:
		return e.evalScalar(v)
	case float32:
		return e.evalScalar(float64(v))
	case int:
		return e.applyInt(int64(v))
	case int64:
		return e.applyInt(v)
	case int32:
		return e.applyInt(int64(v))
	case string, []byte, nil:
		return nil, e.fail(fmt.Sprintf("cannot evaluate on %T", value))
	}
	t, err := tensor.FromValue(value)
	if err != nil {
		return nil, e.fail(err.Error())
	}
	return e.applyTensor(t)
}

func (e *Expression) applyInt(v int64) (any, error) {
	out, err := e.evalScalar(float64(v))
	if err != nil || e.divides {
		return out, err
	}
	return int64(out.(float64)), nil
}

func (e *Expression) evalScalar(v float64) (any, error) {
	out, err := e.root.eval(v)
	if err != nil {
		return nil, e.fail(err.Error())
	}
	return out, nil
}

func (e *Expression) applyTensor(t *tensor.Tensor) (*tensor.Tensor, error) {
	if !t.DType.IsNumeric() {
		return nil, e.fail(fmt.Sprintf("cannot evaluate on %s tensor", t.DType))
	}
	if err := t.Validate(); err != nil {
		return nil, e.fail(err.Error())
	}
	dtype := t.DType
	switch {
	case dtype.IsFloat():
	case e.divides:
		dtype = tensor.Double
	case dtype == tensor.Bool:
		dtype = tensor.Int64
	}
	out, err := tensor.New(dtype, t.Shape)
	if err != nil {
		return nil, e.fail(err.Error())
	}
	for i := 0; i < t.Len(); i++ {
		v, err := e.root.eval(t.Float64At(i))
		if err != nil {
			return nil, e.fail(err.Error())
		}
		out.SetFloat64(i, v)
	}
	return out, nil
}

func (e *Expression) fail(reason string) error {
	return &errs.BadTransformError{Expression: e.literal, Reason: reason}
}

type parser struct {
	tokens []string
	pos    int
	param  string
}

func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.tokens) && (p.tokens[p.pos] == "+" || p.tokens[p.pos] == "-") {
		op := p.tokens[p.pos]
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binaryOp{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseProduct() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.tokens) && (p.tokens[p.pos] == "*" || p.tokens[p.pos] == "/") {
		op := p.tokens[p.pos]
		p.pos++
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left = binaryOp{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("expression ends after an operator")
	}
	token := p.tokens[p.pos]
	p.pos++
	if token == p.param {
		return paramRef{}, nil
	}
	if n, err := strconv.ParseUint(token, 10, 64); err == nil {
		return constant(float64(n)), nil
	}
	return nil, fmt.Errorf("unknown identifier %q", token)
}
