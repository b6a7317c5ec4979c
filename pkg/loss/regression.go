package loss

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// MeanSquaredError computes the squared error averaged over the final axis.
// Elements whose label equals the magic number contribute zero.
func (c Config) MeanSquaredError(yTrue, yPred *gorgonia.Node) (*gorgonia.Node, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}

	diff, err := gorgonia.Sub(yTrue, yPred)
	if err != nil {
		return nil, fmt.Errorf("failed to compute residual: %v", err)
	}

	sq, err := gorgonia.Square(diff)
	if err != nil {
		return nil, fmt.Errorf("failed to square residual: %v", err)
	}

	return c.maskAndReduce(yTrue, sq)
}

// MeanAbsoluteError computes the absolute error averaged over the final
// axis, with magic-number elements contributing zero.
func (c Config) MeanAbsoluteError(yTrue, yPred *gorgonia.Node) (*gorgonia.Node, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}

	diff, err := gorgonia.Sub(yTrue, yPred)
	if err != nil {
		return nil, fmt.Errorf("failed to compute residual: %v", err)
	}

	abs, err := gorgonia.Abs(diff)
	if err != nil {
		return nil, fmt.Errorf("failed to compute absolute residual: %v", err)
	}

	return c.maskAndReduce(yTrue, abs)
}

// RobustMeanSquaredError is the heteroscedastic regression loss
// 0.5*exp(-s)*(y-ŷ)² + 0.5*s, where s is the per-element predicted
// log variance. Magic-number labels contribute zero, so unobserved targets
// also exert no pull on the variance head.
func (c Config) RobustMeanSquaredError(yTrue, yPred, yLogVar *gorgonia.Node) (*gorgonia.Node, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}
	if err := checkShapes(yTrue, yLogVar); err != nil {
		return nil, err
	}

	diff, err := gorgonia.Sub(yTrue, yPred)
	if err != nil {
		return nil, fmt.Errorf("failed to compute residual: %v", err)
	}

	sq, err := gorgonia.Square(diff)
	if err != nil {
		return nil, fmt.Errorf("failed to square residual: %v", err)
	}

	negLogVar, err := gorgonia.Neg(yLogVar)
	if err != nil {
		return nil, fmt.Errorf("failed to negate log variance: %v", err)
	}

	precision, err := gorgonia.Exp(negLogVar)
	if err != nil {
		return nil, fmt.Errorf("failed to compute precision: %v", err)
	}

	weighted, err := gorgonia.HadamardProd(precision, sq)
	if err != nil {
		return nil, fmt.Errorf("failed to weight residual: %v", err)
	}

	combined, err := gorgonia.Add(weighted, yLogVar)
	if err != nil {
		return nil, fmt.Errorf("failed to add variance penalty: %v", err)
	}

	halved, err := gorgonia.Mul(gorgonia.NewConstant(0.5), combined)
	if err != nil {
		return nil, fmt.Errorf("failed to halve loss: %v", err)
	}

	return c.maskAndReduce(yTrue, halved)
}

func (c Config) maskAndReduce(labels, elemLoss *gorgonia.Node) (*gorgonia.Node, error) {
	keep, err := c.observedMask(labels)
	if err != nil {
		return nil, err
	}

	masked, err := gorgonia.HadamardProd(keep, elemLoss)
	if err != nil {
		return nil, fmt.Errorf("failed to mask missing labels: %v", err)
	}

	axis := masked.Shape().Dims() - 1
	reduced, err := gorgonia.Mean(masked, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce over final axis: %v", err)
	}

	return reduced, nil
}
