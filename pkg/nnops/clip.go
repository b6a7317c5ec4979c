package nnops

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// ClipByValue clamps every element of x into [lo, hi].
//
// The engine has no clamp op, so both bounds are expressed through Rectify:
// max(x, lo) = lo + relu(x - lo) and min(x, hi) = hi - relu(hi - x). Both
// forms stay inside the differentiable op set.
func ClipByValue(x *gorgonia.Node, lo, hi float64) (*gorgonia.Node, error) {
	if x == nil {
		return nil, fmt.Errorf("input node is nil")
	}
	if lo > hi {
		return nil, fmt.Errorf("invalid clip bounds: %v > %v", lo, hi)
	}

	loNode := gorgonia.NewConstant(lo)
	hiNode := gorgonia.NewConstant(hi)

	shifted, err := gorgonia.Sub(x, loNode)
	if err != nil {
		return nil, fmt.Errorf("failed to subtract lower bound: %v", err)
	}

	lower, err := gorgonia.Rectify(shifted)
	if err != nil {
		return nil, fmt.Errorf("failed to rectify lower bound: %v", err)
	}

	floored, err := gorgonia.Add(loNode, lower)
	if err != nil {
		return nil, fmt.Errorf("failed to apply lower bound: %v", err)
	}

	headroom, err := gorgonia.Sub(hiNode, floored)
	if err != nil {
		return nil, fmt.Errorf("failed to subtract upper bound: %v", err)
	}

	upper, err := gorgonia.Rectify(headroom)
	if err != nil {
		return nil, fmt.Errorf("failed to rectify upper bound: %v", err)
	}

	return gorgonia.Sub(hiNode, upper)
}
