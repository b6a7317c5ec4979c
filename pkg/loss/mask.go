package loss

import (
	"fmt"

	"gorgonia.org/gorgonia"
)

// observedMask returns a tensor shaped like labels holding 1 where the label
// is observed and 0 where it equals the magic number.
func (c Config) observedMask(labels *gorgonia.Node) (*gorgonia.Node, error) {
	missing, err := gorgonia.Eq(labels, gorgonia.NewConstant(c.MagicNumber), true)
	if err != nil {
		return nil, fmt.Errorf("failed to compare labels with magic number: %v", err)
	}

	keep, err := gorgonia.Sub(gorgonia.NewConstant(1.0), missing)
	if err != nil {
		return nil, fmt.Errorf("failed to invert missing-label mask: %v", err)
	}

	return keep, nil
}

// zeroMissing replaces magic-number elements of labels with 0.
func (c Config) zeroMissing(labels *gorgonia.Node) (*gorgonia.Node, error) {
	keep, err := c.observedMask(labels)
	if err != nil {
		return nil, err
	}

	masked, err := gorgonia.HadamardProd(keep, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to zero missing labels: %v", err)
	}

	return masked, nil
}
