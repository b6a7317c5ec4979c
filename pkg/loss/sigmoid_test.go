package loss_test

import (
	"errors"
	"math"
	"testing"

	"github.com/apsis-ml/apsis/pkg/loss"
	"gorgonia.org/gorgonia"
)

func TestSigmoidCrossEntropyMasksMissingLabels(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	g := gorgonia.NewGraph()
	labels := matrixNode(g, "labels", 2, 2, []float64{1, 0, cfg.MagicNumber, cfg.MagicNumber})
	logits := matrixNode(g, "logits", 2, 2, []float64{2, -1, 5, 5})

	out, err := cfg.SigmoidCrossEntropyWithLogits(labels, logits)
	if err != nil {
		t.Fatalf("failed to build loss: %v", err)
	}

	got := valueFloats(t, evalGraph(t, g, out))

	want := []float64{
		stableLogisticLoss(2, 1),
		stableLogisticLoss(-1, 0),
		0,
		0,
	}
	for i := range want {
		if !closeTo(got[i], want[i], 1e-12) {
			t.Errorf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if got[2] != 0 || got[3] != 0 {
		t.Errorf("missing-label elements must be exactly zero, got %v, %v", got[2], got[3])
	}
}

func TestSigmoidCrossEntropyStableAcrossExtremeLogits(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	n := 41
	logitValues := make([]float64, n)
	labelValues := make([]float64, n)
	for i := 0; i < n; i++ {
		logitValues[i] = -50 + 2.5*float64(i)
		labelValues[i] = float64(i % 2)
	}

	g := gorgonia.NewGraph()
	labels := matrixNode(g, "labels", 1, n, labelValues)
	logits := matrixNode(g, "logits", 1, n, logitValues)

	out, err := cfg.SigmoidCrossEntropyWithLogits(labels, logits)
	if err != nil {
		t.Fatalf("failed to build loss: %v", err)
	}

	got := valueFloats(t, evalGraph(t, g, out))
	for i := 0; i < n; i++ {
		if math.IsNaN(got[i]) || math.IsInf(got[i], 0) {
			t.Fatalf("loss at logit %v is not finite: %v", logitValues[i], got[i])
		}
		want := stableLogisticLoss(logitValues[i], labelValues[i])
		if !closeTo(got[i], want, 1e-10) {
			t.Errorf("logit %v label %v: got %v, want %v", logitValues[i], labelValues[i], got[i], want)
		}
	}
}

func TestSigmoidCrossEntropyShapeMismatch(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()

	g := gorgonia.NewGraph()
	labels := matrixNode(g, "labels", 2, 3, []float64{1, 0, 1, 0, 1, 0})
	logits := matrixNode(g, "logits", 2, 2, []float64{1, 2, 3, 4})

	_, err := cfg.SigmoidCrossEntropyWithLogits(labels, logits)
	if err == nil {
		t.Fatal("expected shape mismatch error, got nil")
	}

	var mismatch *loss.ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ShapeMismatchError, got %T: %v", err, err)
	}
	if !mismatch.Labels.Eq(labels.Shape()) || !mismatch.Predictions.Eq(logits.Shape()) {
		t.Errorf("error carries wrong shapes: %v", mismatch)
	}
}

func TestSigmoidCrossEntropyAlternateSentinel(t *testing.T) {
	cfg := loss.NewConfigFromDefaults()
	cfg.MagicNumber = -77

	g := gorgonia.NewGraph()
	labels := matrixNode(g, "labels", 1, 2, []float64{-77, 1})
	logits := matrixNode(g, "logits", 1, 2, []float64{3, 3})

	out, err := cfg.SigmoidCrossEntropyWithLogits(labels, logits)
	if err != nil {
		t.Fatalf("failed to build loss: %v", err)
	}

	got := valueFloats(t, evalGraph(t, g, out))
	if got[0] != 0 {
		t.Errorf("sentinel element must be exactly zero, got %v", got[0])
	}
	if want := stableLogisticLoss(3, 1); !closeTo(got[1], want, 1e-12) {
		t.Errorf("observed element: got %v, want %v", got[1], want)
	}
}
