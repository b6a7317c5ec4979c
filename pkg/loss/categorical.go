package loss

import (
	"fmt"
	"sync"

	"github.com/apsis-ml/apsis/pkg/nnops"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var (
	softmaxProbeOnce sync.Once
	fusedLogSoftmax  bool
)

// softmaxStrategy decides once, for the life of the process, whether the
// engine accepts the max-shift log-softmax construction. Engines that reject
// it get the plain softmax-then-log construction instead. The probe runs on a
// throwaway graph so the decision never shows up as a per-call error path.
func softmaxStrategy() bool {
	softmaxProbeOnce.Do(func() {
		g := gorgonia.NewGraph()
		probe := gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithShape(1, 2),
			gorgonia.WithName("softmax_probe"),
			gorgonia.WithInit(gorgonia.Zeroes()))
		_, err := logSoftmax(probe)
		fusedLogSoftmax = err == nil
	})
	return fusedLogSoftmax
}

// logSoftmax builds logits - logsumexp(logits) along the last axis, shifting
// by the row maximum first so no exp overflows.
func logSoftmax(logits *gorgonia.Node) (*gorgonia.Node, error) {
	axis := logits.Shape().Dims() - 1

	maxes, err := gorgonia.Max(logits, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to compute row maxima: %v", err)
	}

	colShape := logits.Shape().Clone()
	colShape[axis] = 1

	maxesCol, err := gorgonia.Reshape(maxes, colShape)
	if err != nil {
		return nil, fmt.Errorf("failed to reshape row maxima: %v", err)
	}

	shifted, err := gorgonia.BroadcastSub(logits, maxesCol, nil, []byte{byte(axis)})
	if err != nil {
		return nil, fmt.Errorf("failed to shift logits: %v", err)
	}

	exps, err := gorgonia.Exp(shifted)
	if err != nil {
		return nil, fmt.Errorf("failed to exponentiate shifted logits: %v", err)
	}

	sums, err := gorgonia.Sum(exps, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to sum exponentials: %v", err)
	}

	logZ, err := gorgonia.Log(sums)
	if err != nil {
		return nil, fmt.Errorf("failed to compute log partition: %v", err)
	}

	logZCol, err := gorgonia.Reshape(logZ, colShape)
	if err != nil {
		return nil, fmt.Errorf("failed to reshape log partition: %v", err)
	}

	return gorgonia.BroadcastSub(shifted, logZCol, nil, []byte{byte(axis)})
}

// CategoricalCrossEntropy computes the per-sample cross entropy between
// yTrue and yPred, reduced over the class axis.
//
// With fromLogits false, yPred holds class probabilities: labels equal to the
// magic number are zeroed, yPred is renormalized along the class axis (even
// when it already sums to one) and clipped into [eps, 1-eps] before the log.
//
// With fromLogits true, yPred holds unnormalized scores and the loss is the
// stable softmax cross entropy. No magic-number masking is applied in this
// mode; callers pairing logits with partially missing labels must mask
// upstream.
func (c Config) CategoricalCrossEntropy(yTrue, yPred *gorgonia.Node, fromLogits bool) (*gorgonia.Node, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}

	if fromLogits {
		return c.softmaxCrossEntropyWithLogits(yTrue, yPred)
	}

	yTrueMasked, err := c.zeroMissing(yTrue)
	if err != nil {
		return nil, err
	}

	axis := yPred.Shape().Dims() - 1

	sums, err := gorgonia.Sum(yPred, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to sum class probabilities: %v", err)
	}

	colShape := yPred.Shape().Clone()
	colShape[axis] = 1

	sumsCol, err := gorgonia.Reshape(sums, colShape)
	if err != nil {
		return nil, fmt.Errorf("failed to reshape probability sums: %v", err)
	}

	normed, err := gorgonia.BroadcastHadamardDiv(yPred, sumsCol, nil, []byte{byte(axis)})
	if err != nil {
		return nil, fmt.Errorf("failed to renormalize probabilities: %v", err)
	}

	eps := c.Epsilon()
	clipped, err := nnops.ClipByValue(normed, eps, 1-eps)
	if err != nil {
		return nil, fmt.Errorf("failed to clip probabilities: %v", err)
	}

	logPred, err := gorgonia.Log(clipped)
	if err != nil {
		return nil, fmt.Errorf("failed to compute log probabilities: %v", err)
	}

	weighted, err := gorgonia.HadamardProd(yTrueMasked, logPred)
	if err != nil {
		return nil, fmt.Errorf("failed to weight log probabilities: %v", err)
	}

	total, err := gorgonia.Sum(weighted, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce over class axis: %v", err)
	}

	return gorgonia.Neg(total)
}

func (c Config) softmaxCrossEntropyWithLogits(labels, logits *gorgonia.Node) (*gorgonia.Node, error) {
	axis := logits.Shape().Dims() - 1

	var logProbs *gorgonia.Node
	if softmaxStrategy() {
		ls, err := logSoftmax(logits)
		if err != nil {
			return nil, err
		}
		logProbs = ls
	} else {
		probs, err := gorgonia.SoftMax(logits)
		if err != nil {
			return nil, fmt.Errorf("failed to compute softmax: %v", err)
		}

		clipped, err := nnops.ClipByValue(probs, c.Epsilon(), 1-c.Epsilon())
		if err != nil {
			return nil, fmt.Errorf("failed to clip softmax: %v", err)
		}

		logs, err := gorgonia.Log(clipped)
		if err != nil {
			return nil, fmt.Errorf("failed to compute log softmax: %v", err)
		}
		logProbs = logs
	}

	weighted, err := gorgonia.HadamardProd(labels, logProbs)
	if err != nil {
		return nil, fmt.Errorf("failed to weight log softmax: %v", err)
	}

	total, err := gorgonia.Sum(weighted, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce over class axis: %v", err)
	}

	return gorgonia.Neg(total)
}
