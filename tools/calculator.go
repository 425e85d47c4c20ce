package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// calcConsts are the names an expression may use without defining them.
var calcConsts = map[string]interface{}{
	"pi":  math.Pi,
	"e":   math.E,
	"phi": math.Phi,
}

func unary(name string, fn func(float64) (float64, error)) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument", name)
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s: argument is not a number", name)
		}
		return fn(x)
	}
}

var calcFuncs = map[string]govaluate.ExpressionFunction{
	"sqrt": unary("sqrt", func(x float64) (float64, error) {
		if x < 0 {
			return 0, errors.New("sqrt of negative")
		}
		return math.Sqrt(x), nil
	}),
	"abs":   unary("abs", func(x float64) (float64, error) { return math.Abs(x), nil }),
	"round": unary("round", func(x float64) (float64, error) { return math.Round(x), nil }),
	"floor": unary("floor", func(x float64) (float64, error) { return math.Floor(x), nil }),
	"ceil":  unary("ceil", func(x float64) (float64, error) { return math.Ceil(x), nil }),
	"ln": unary("ln", func(x float64) (float64, error) {
		if x <= 0 {
			return 0, errors.New("ln of non-positive")
		}
		return math.Log(x), nil
	}),
}

// CalculatorTool does arithmetic for agents that should not trust the model
// with numbers. Input is an expression such as "12 * (3 + 4)" or
// "round(pi * 100) / 100".
type CalculatorTool struct{}

func (c *CalculatorTool) Name() string { return "calculator" }
func (c *CalculatorTool) Description() string {
	return "Evaluate an arithmetic expression. Operators: + - * / % ** and parentheses. " +
		"Functions: sqrt, abs, round, floor, ceil, ln. Constants: pi, e, phi."
}

func (c *CalculatorTool) Schema() map[string]interface{} {
	return InputSchema("arithmetic expression, e.g. '3 * (4 + 5)'")
}

func (c *CalculatorTool) Execute(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty expression")
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(input, calcFuncs)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", input, err)
	}
	out, err := expr.Evaluate(calcConsts)
	if err != nil {
		return "", err
	}
	res, ok := out.(float64)
	if !ok {
		return "", fmt.Errorf("%q is not a number", input)
	}
	if math.IsInf(res, 0) || math.IsNaN(res) {
		return "", errors.New("result is not finite (division by zero?)")
	}
	return strconv.FormatFloat(res, 'f', -1, 64), nil
}

var _ Tool = (*CalculatorTool)(nil)
