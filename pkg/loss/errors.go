package loss

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ShapeMismatchError reports labels and predictions whose shapes cannot be
// made equal. It is returned before any graph node is constructed.
type ShapeMismatchError struct {
	Labels      tensor.Shape
	Predictions tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("labels and predictions must have the same shape (%v vs %v)", e.Labels, e.Predictions)
}

func checkShapes(labels, predictions *gorgonia.Node) error {
	if !labels.Shape().Eq(predictions.Shape()) {
		return &ShapeMismatchError{Labels: labels.Shape(), Predictions: predictions.Shape()}
	}
	return nil
}
