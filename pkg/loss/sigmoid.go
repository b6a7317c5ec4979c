package loss

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// SigmoidCrossEntropyWithLogits computes the elementwise logistic loss
// between labels and logits. Elements whose label equals the magic number
// contribute exactly zero.
//
// The loss is built in the overflow-safe split form
//
//	max(x, 0) - x*y + log1p(exp(-|x|))
//
// which is finite for any |x| the dtype can represent; a naive
// log(sigmoid(x)) form is not.
func (c Config) SigmoidCrossEntropyWithLogits(labels, logits *gorgonia.Node) (*gorgonia.Node, error) {
	if err := checkShapes(labels, logits); err != nil {
		return nil, err
	}

	reluLogits, err := gorgonia.Rectify(logits)
	if err != nil {
		return nil, fmt.Errorf("failed to rectify logits: %v", err)
	}

	absLogits, err := gorgonia.Abs(logits)
	if err != nil {
		return nil, fmt.Errorf("failed to compute abs of logits: %v", err)
	}

	negAbsLogits, err := gorgonia.Neg(absLogits)
	if err != nil {
		return nil, fmt.Errorf("failed to negate abs of logits: %v", err)
	}

	expNegAbs, err := gorgonia.Exp(negAbsLogits)
	if err != nil {
		return nil, fmt.Errorf("failed to exponentiate logits: %v", err)
	}

	logTerm, err := gorgonia.Log1p(expNegAbs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute log1p: %v", err)
	}

	xy, err := gorgonia.HadamardProd(logits, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to compute logits*labels: %v", err)
	}

	linear, err := gorgonia.Sub(reluLogits, xy)
	if err != nil {
		return nil, fmt.Errorf("failed to compute linear term: %v", err)
	}

	raw, err := gorgonia.Add(linear, logTerm)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble logistic loss: %v", err)
	}

	keep, err := c.observedMask(labels)
	if err != nil {
		return nil, err
	}

	masked, err := gorgonia.HadamardProd(keep, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to mask missing labels: %v", err)
	}

	return masked, nil
}
