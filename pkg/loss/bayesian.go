package loss

import (
	"fmt"

	"github.com/apsis-ml/apsis/pkg/nnops"
	"gorgonia.org/gorgonia"
)

// MonteCarloSamples is the number of stochastic draws averaged by the
// Bayesian cross entropy. Fixed by the loss design.
const MonteCarloSamples = 25

// BayesianCategoricalCrossEntropy returns a loss constructor for a network
// that outputs, per example, numClasses class scores followed by one
// log-variance column, so yPred is [batch, numClasses+1] while yTrue is
// [batch, numClasses].
//
// The loss perturbs the class scores with Gaussian noise scaled by the
// network's own predicted spread, MonteCarloSamples times, and compares each
// perturbed cross entropy against the unperturbed baseline through -elu. A
// network that tolerates perturbation keeps its loss low; one that claims
// low variance but degrades under noise is penalized. exp(variance)-1 is
// added to depress runaway variance estimates.
//
// Deliberately, the spread is sqrt of the whole output tensor rather than of
// the variance column alone, and the inner cross entropies bind
// (classScores, yTrue) in the reverse of CategoricalCrossEntropy's declared
// argument order.
func (c Config) BayesianCategoricalCrossEntropy(numClasses int) func(yTrue, yPred *gorgonia.Node) (*gorgonia.Node, error) {
	return func(yTrue, yPred *gorgonia.Node) (*gorgonia.Node, error) {
		if numClasses < 1 {
			return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
		}

		predShape := yPred.Shape()
		trueShape := yTrue.Shape()
		if predShape.Dims() != 2 || predShape[1] != numClasses+1 ||
			trueShape.Dims() != 2 || trueShape[0] != predShape[0] || trueShape[1] != numClasses {
			return nil, &ShapeMismatchError{Labels: trueShape, Predictions: predShape}
		}

		batch := predShape[0]
		g := yPred.Graph()

		std, err := gorgonia.Sqrt(yPred)
		if err != nil {
			return nil, fmt.Errorf("failed to compute predicted spread: %v", err)
		}

		// Column splits go through a transpose so only leading-axis slices
		// are asked of the engine.
		yPredT, err := gorgonia.Transpose(yPred, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to transpose predictions: %v", err)
		}

		predT, err := gorgonia.Slice(yPredT, gorgonia.S(0, numClasses))
		if err != nil {
			return nil, fmt.Errorf("failed to slice class scores: %v", err)
		}

		pred, err := gorgonia.Transpose(predT, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to transpose class scores: %v", err)
		}

		variance, err := gorgonia.Slice(yPredT, gorgonia.S(numClasses))
		if err != nil {
			return nil, fmt.Errorf("failed to slice variance column: %v", err)
		}

		varianceDepressor, err := gorgonia.Expm1(variance)
		if err != nil {
			return nil, fmt.Errorf("failed to compute variance depressor: %v", err)
		}

		stdT, err := gorgonia.Transpose(std, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to transpose spread: %v", err)
		}

		stdPredT, err := gorgonia.Slice(stdT, gorgonia.S(0, numClasses))
		if err != nil {
			return nil, fmt.Errorf("failed to slice spread columns: %v", err)
		}

		stdPred, err := gorgonia.Transpose(stdPredT, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to transpose spread columns: %v", err)
		}

		undistortedLoss, err := c.CategoricalCrossEntropy(pred, yTrue, true)
		if err != nil {
			return nil, fmt.Errorf("failed to compute undistorted loss: %v", err)
		}

		var monteCarlo *gorgonia.Node
		for t := 0; t < MonteCarloSamples; t++ {
			// A fresh random node per draw keeps the samples independent
			// while leaving seeding to the engine.
			unit := gorgonia.GaussianRandomNode(g, c.Dtype, 0, 1, numClasses, batch)

			unitT, err := gorgonia.Transpose(unit, 1, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to transpose noise (sample %d): %v", t, err)
			}

			noise, err := gorgonia.HadamardProd(unitT, stdPred)
			if err != nil {
				return nil, fmt.Errorf("failed to scale noise (sample %d): %v", t, err)
			}

			distortedPred, err := gorgonia.Add(pred, noise)
			if err != nil {
				return nil, fmt.Errorf("failed to distort class scores (sample %d): %v", t, err)
			}

			distortedLoss, err := c.CategoricalCrossEntropy(distortedPred, yTrue, true)
			if err != nil {
				return nil, fmt.Errorf("failed to compute distorted loss (sample %d): %v", t, err)
			}

			diff, err := gorgonia.Sub(undistortedLoss, distortedLoss)
			if err != nil {
				return nil, fmt.Errorf("failed to compute loss difference (sample %d): %v", t, err)
			}

			elu, err := nnops.ELU(diff)
			if err != nil {
				return nil, fmt.Errorf("failed to compute elu (sample %d): %v", t, err)
			}

			contribution, err := gorgonia.Neg(elu)
			if err != nil {
				return nil, fmt.Errorf("failed to negate elu (sample %d): %v", t, err)
			}

			if monteCarlo == nil {
				monteCarlo = contribution
			} else if monteCarlo, err = gorgonia.Add(monteCarlo, contribution); err != nil {
				return nil, fmt.Errorf("failed to accumulate contribution (sample %d): %v", t, err)
			}
		}

		monteCarloMean, err := gorgonia.Mul(gorgonia.NewConstant(1.0/float64(MonteCarloSamples)), monteCarlo)
		if err != nil {
			return nil, fmt.Errorf("failed to average contributions: %v", err)
		}

		varianceLoss, err := gorgonia.HadamardProd(monteCarloMean, undistortedLoss)
		if err != nil {
			return nil, fmt.Errorf("failed to weight variance loss: %v", err)
		}

		total, err := gorgonia.Add(varianceLoss, undistortedLoss)
		if err != nil {
			return nil, fmt.Errorf("failed to combine losses: %v", err)
		}

		return gorgonia.Add(total, varianceDepressor)
	}
}
