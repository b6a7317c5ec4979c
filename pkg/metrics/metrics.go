package metrics

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Report holds classification metrics for a validation run. Rows whose
// labels were entirely the magic number carry no ground truth and are
// counted in Skipped rather than scored.
type Report struct {
	Accuracy        float64
	ConfusionMatrix [][]float64
	ClassPrecision  []float64
	ClassRecall     []float64
	F1Scores        []float64

	Samples []int
	Skipped int
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func allMagic(row []float64, magicNumber float64) bool {
	for _, v := range row {
		if v != magicNumber {
			return false
		}
	}
	return true
}

// Evaluate scores one-hot (or probabilistic) labels against predicted class
// scores by argmax on both sides.
func Evaluate(yTrue, yPred [][]float64, magicNumber float64) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("label and prediction counts differ (%d vs %d)", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Report{}, fmt.Errorf("no samples to evaluate")
	}

	numClasses := len(yTrue[0])
	if numClasses == 0 {
		return Report{}, fmt.Errorf("labels have no classes")
	}

	confusionMatrix := make([][]int, numClasses)
	for i := range confusionMatrix {
		confusionMatrix[i] = make([]int, numClasses)
	}

	total := 0
	skipped := 0
	for i := range yTrue {
		if len(yTrue[i]) != numClasses || len(yPred[i]) != numClasses {
			return Report{}, fmt.Errorf("sample %d has inconsistent class count", i)
		}

		if allMagic(yTrue[i], magicNumber) {
			skipped++
			continue
		}

		actual := argmax(yTrue[i])
		predicted := argmax(yPred[i])
		confusionMatrix[actual][predicted]++
		total++
	}

	if total == 0 {
		return Report{}, fmt.Errorf("all %d samples are missing labels", skipped)
	}

	report := calculateReport(confusionMatrix, total)
	report.Skipped = skipped
	return report, nil
}

func calculateReport(confusionMatrix [][]int, total int) Report {
	numClasses := len(confusionMatrix)
	report := Report{
		ConfusionMatrix: make([][]float64, numClasses),
		ClassPrecision:  make([]float64, numClasses),
		ClassRecall:     make([]float64, numClasses),
		F1Scores:        make([]float64, numClasses),
		Samples:         make([]int, numClasses),
	}

	for i := 0; i < numClasses; i++ {
		report.ConfusionMatrix[i] = make([]float64, numClasses)
		rowTotal := 0
		for j := 0; j < numClasses; j++ {
			rowTotal += confusionMatrix[i][j]
		}
		for j := 0; j < numClasses; j++ {
			if rowTotal > 0 {
				report.ConfusionMatrix[i][j] = float64(confusionMatrix[i][j]) / float64(rowTotal) * 100
			}
		}
		report.Samples[i] = rowTotal
	}

	for i := 0; i < numClasses; i++ {
		truePositives := confusionMatrix[i][i]
		falsePositives := 0
		falseNegatives := 0

		for j := 0; j < numClasses; j++ {
			if i != j {
				falsePositives += confusionMatrix[j][i]
				falseNegatives += confusionMatrix[i][j]
			}
		}

		if truePositives+falsePositives > 0 {
			report.ClassPrecision[i] = float64(truePositives) / float64(truePositives+falsePositives) * 100
		}

		if truePositives+falseNegatives > 0 {
			report.ClassRecall[i] = float64(truePositives) / float64(truePositives+falseNegatives) * 100
		}

		if report.ClassPrecision[i]+report.ClassRecall[i] > 0 {
			report.F1Scores[i] = 2 * (report.ClassPrecision[i] * report.ClassRecall[i]) /
				(report.ClassPrecision[i] + report.ClassRecall[i])
		}
	}

	correct := 0
	for i := 0; i < numClasses; i++ {
		correct += confusionMatrix[i][i]
	}
	report.Accuracy = float64(correct) / float64(total) * 100

	return report
}

func (r Report) Write(w io.Writer) error {
	numClasses := len(r.ConfusionMatrix)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Confusion Matrix")

	header := table.Row{""}
	for i := 0; i < numClasses; i++ {
		header = append(header, fmt.Sprintf("CLASS %d", i))
	}
	t.AppendHeader(header)

	for i := 0; i < numClasses; i++ {
		row := table.Row{fmt.Sprintf("CLASS %d", i)}
		if r.Samples[i] == 0 {
			for _i := 0; _i < numClasses; _i++ {
				row = append(row, "")
			}
		} else {
			for j := 0; j < numClasses; j++ {
				row = append(row, fmt.Sprintf("%6.2f%%", r.ConfusionMatrix[i][j]))
			}
		}
		t.AppendRow(row)
	}

	footer := table.Row{"ACCURACY"}
	for _i := 0; _i < numClasses-1; _i++ {
		footer = append(footer, "")
	}
	footer = append(footer, fmt.Sprintf("%0.02f%%", r.Accuracy))
	t.AppendFooter(footer)
	t.Render()

	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Class Metrics")
	t.AppendHeader(table.Row{"CLASS", "PRECISION", "RECALL", "F1 SCORE", "SAMPLES"})
	for i := 0; i < numClasses; i++ {
		t.AppendRow(table.Row{
			fmt.Sprintf("CLASS %d", i),
			fmt.Sprintf("%6.2f%%", r.ClassPrecision[i]),
			fmt.Sprintf("%6.2f%%", r.ClassRecall[i]),
			fmt.Sprintf("%6.2f%%", r.F1Scores[i]),
			fmt.Sprintf("%d", r.Samples[i]),
		})
	}
	if r.Skipped > 0 {
		t.AppendSeparator()
		t.AppendRow(table.Row{"UNLABELLED", "", "", "", fmt.Sprintf("%d", r.Skipped)})
	}
	t.Render()

	return nil
}
