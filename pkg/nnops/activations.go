package nnops

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// ELU is the exponential linear unit: x for x > 0, exp(x)-1 otherwise.
//
// It is composed so that exp is only ever evaluated on non-positive
// arguments: relu(x) + expm1(-relu(-x)). A plain mask-and-blend form would
// evaluate exp(x) for large positive x and overflow.
func ELU(x *gorgonia.Node) (*gorgonia.Node, error) {
	if x == nil {
		return nil, fmt.Errorf("input node is nil")
	}

	pos, err := gorgonia.Rectify(x)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rectify: %v", err)
	}

	negX, err := gorgonia.Neg(x)
	if err != nil {
		return nil, fmt.Errorf("failed to negate input: %v", err)
	}

	negPart, err := gorgonia.Rectify(negX)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rectify of negated input: %v", err)
	}

	clippedNeg, err := gorgonia.Neg(negPart)
	if err != nil {
		return nil, fmt.Errorf("failed to negate rectified input: %v", err)
	}

	expTerm, err := gorgonia.Expm1(clippedNeg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute expm1: %v", err)
	}

	return gorgonia.Add(pos, expTerm)
}

// Mish is x * tanh(softplus(x)).
func Mish(x *gorgonia.Node) (*gorgonia.Node, error) {
	if x == nil {
		return nil, fmt.Errorf("input node is nil")
	}

	softplus, err := gorgonia.Softplus(x)
	if err != nil {
		return nil, fmt.Errorf("failed to compute softplus: %v", err)
	}

	tanh, err := gorgonia.Tanh(softplus)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tanh: %v", err)
	}

	return gorgonia.HadamardProd(x, tanh)
}
