package loss_test

import (
	"math"
	"testing"

	"github.com/apsis-ml/apsis/pkg/loss"
	"gorgonia.org/gorgonia"
)

func TestBinaryCrossEntropyProbLogitEquivalence(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	labels := []float64{1, 0, 1, 0, 1, 1}
	probs := []float64{0.9, 0.2, 0.55, 0.4, 0.75, 0.15}
	logits := make([]float64, len(probs))
	for i, p := range probs {
		logits[i] = math.Log(p / (1 - p))
	}

	g1 := gorgonia.NewGraph()
	out1, err := cfg.BinaryCrossEntropy(
		matrixNode(g1, "y_true", 2, 3, labels),
		matrixNode(g1, "y_pred", 2, 3, probs),
		false)
	if err != nil {
		t.Fatalf("failed to build probability-mode loss: %v", err)
	}
	fromProbs := valueFloats(t, evalGraph(t, g1, out1))

	g2 := gorgonia.NewGraph()
	out2, err := cfg.BinaryCrossEntropy(
		matrixNode(g2, "y_true", 2, 3, labels),
		matrixNode(g2, "y_pred", 2, 3, logits),
		true)
	if err != nil {
		t.Fatalf("failed to build logit-mode loss: %v", err)
	}
	fromLogits := valueFloats(t, evalGraph(t, g2, out2))

	if len(fromProbs) != 2 || len(fromLogits) != 2 {
		t.Fatalf("expected per-sample losses of length 2, got %d and %d", len(fromProbs), len(fromLogits))
	}
	for i := range fromProbs {
		if !closeTo(fromProbs[i], fromLogits[i], 1e-9) {
			t.Errorf("sample %d: probability mode %v vs logit mode %v", i, fromProbs[i], fromLogits[i])
		}
	}
}

func TestBinaryCrossEntropyReducesFinalAxis(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	g := gorgonia.NewGraph()
	out, err := cfg.BinaryCrossEntropy(
		matrixNode(g, "y_true", 2, 2, []float64{1, 0, 0, 1}),
		matrixNode(g, "y_pred", 2, 2, []float64{1.5, -0.5, 0.25, 2}),
		true)
	if err != nil {
		t.Fatalf("failed to build loss: %v", err)
	}

	v := evalGraph(t, g, out)
	if dims := v.Shape().Dims(); dims != 1 {
		t.Fatalf("expected rank reduced by one, got shape %v", v.Shape())
	}

	got := valueFloats(t, v)
	want0 := (stableLogisticLoss(1.5, 1) + stableLogisticLoss(-0.5, 0)) / 2
	want1 := (stableLogisticLoss(0.25, 0) + stableLogisticLoss(2, 1)) / 2
	if !closeTo(got[0], want0, 1e-12) || !closeTo(got[1], want1, 1e-12) {
		t.Errorf("got %v, want [%v %v]", got, want0, want1)
	}
}

func TestBinaryCrossEntropyFromLogitsMasksMissing(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	g := gorgonia.NewGraph()
	out, err := cfg.BinaryCrossEntropy(
		matrixNode(g, "y_true", 1, 2, []float64{1, cfg.MagicNumber}),
		matrixNode(g, "y_pred", 1, 2, []float64{0, 5}),
		true)
	if err != nil {
		t.Fatalf("failed to build loss: %v", err)
	}

	got := valueFloats(t, evalGraph(t, g, out))
	want := stableLogisticLoss(0, 1) / 2
	if !closeTo(got[0], want, 1e-12) {
		t.Errorf("got %v, want %v (masked element must average in as zero)", got[0], want)
	}
}

func TestBinaryCrossEntropyShapeMismatch(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	g := gorgonia.NewGraph()
	if _, err := cfg.BinaryCrossEntropy(
		matrixNode(g, "y_true", 1, 3, []float64{1, 0, 1}),
		matrixNode(g, "y_pred", 2, 3, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}),
		false); err == nil {
		t.Fatal("expected shape mismatch error, got nil")
	}
}
