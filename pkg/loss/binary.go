package loss

import (
	"fmt"

	"github.com/apsis-ml/apsis/pkg/nnops"
	"gorgonia.org/gorgonia"
)

// BinaryCrossEntropy computes the mean over the final axis of the masked
// logistic loss, so the result has one rank less than the inputs.
//
// With fromLogits false, yPred holds probabilities: magic-number labels are
// zeroed, yPred is clipped into [eps, 1-eps] and converted to logits via
// log(p/(1-p)) before the logistic loss. With fromLogits true, yPred is
// passed straight through as logits.
func (c Config) BinaryCrossEntropy(yTrue, yPred *gorgonia.Node, fromLogits bool) (*gorgonia.Node, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}

	labels := yTrue
	logits := yPred

	if !fromLogits {
		masked, err := c.zeroMissing(yTrue)
		if err != nil {
			return nil, err
		}

		eps := c.Epsilon()
		clipped, err := nnops.ClipByValue(yPred, eps, 1-eps)
		if err != nil {
			return nil, fmt.Errorf("failed to clip probabilities: %v", err)
		}

		complement, err := gorgonia.Sub(gorgonia.NewConstant(1.0), clipped)
		if err != nil {
			return nil, fmt.Errorf("failed to compute probability complement: %v", err)
		}

		odds, err := gorgonia.HadamardDiv(clipped, complement)
		if err != nil {
			return nil, fmt.Errorf("failed to compute odds: %v", err)
		}

		asLogits, err := gorgonia.Log(odds)
		if err != nil {
			return nil, fmt.Errorf("failed to convert probabilities to logits: %v", err)
		}

		labels = masked
		logits = asLogits
	}

	elemLoss, err := c.SigmoidCrossEntropyWithLogits(labels, logits)
	if err != nil {
		return nil, err
	}

	axis := elemLoss.Shape().Dims() - 1
	reduced, err := gorgonia.Mean(elemLoss, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce over final axis: %v", err)
	}

	return reduced, nil
}
