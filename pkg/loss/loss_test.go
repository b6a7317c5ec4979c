package loss_test

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func matrixNode(g *gorgonia.ExprGraph, name string, rows, cols int, data []float64) *gorgonia.Node {
	v := tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(data),
	)
	return gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(rows, cols),
		gorgonia.WithName(name),
		gorgonia.WithValue(v))
}

func evalGraph(t *testing.T, g *gorgonia.ExprGraph, out *gorgonia.Node) gorgonia.Value {
	t.Helper()

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		t.Fatalf("failed to evaluate graph: %v", err)
	}
	return out.Value()
}

func valueFloats(t *testing.T, v gorgonia.Value) []float64 {
	t.Helper()

	switch data := v.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	default:
		t.Fatalf("unexpected value type %T", data)
		return nil
	}
}

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// stableLogisticLoss is the exact formula the implementation must reproduce.
func stableLogisticLoss(logit, label float64) float64 {
	return math.Max(logit, 0) - logit*label + math.Log1p(math.Exp(-math.Abs(logit)))
}

func softmaxCrossEntropyRow(labels, logits []float64) float64 {
	maxLogit := math.Inf(-1)
	for _, x := range logits {
		if x > maxLogit {
			maxLogit = x
		}
	}
	var sum float64
	for _, x := range logits {
		sum += math.Exp(x - maxLogit)
	}
	logZ := maxLogit + math.Log(sum)

	var loss float64
	for i, y := range labels {
		loss -= y * (logits[i] - logZ)
	}
	return loss
}
