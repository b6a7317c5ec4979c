package loss

import (
	"log"
	"math"
	"os"
	"strconv"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// DefaultMagicNumber marks a label element as missing. It must match the
// value the data-loading side writes for "no ground truth here".
const DefaultMagicNumber = -9999.0

func envFloat64(name string, def func() float64) func() float64 {
	return func() float64 {
		value := def()
		if v, ok := os.LookupEnv(name); ok {
			if v, err := strconv.ParseFloat(v, 64); err != nil {
				log.Fatalf("failed to parse env.%s: %v", name, err)
			} else {
				value = v
			}
		}
		return value
	}
}

// MagicNumber returns the configured missing-label sentinel.
var MagicNumber = envFloat64("APSIS_MAGIC_NUMBER", func() float64 { return DefaultMagicNumber })

// Config carries the process-wide numeric conventions the loss functions
// depend on. It is passed explicitly so tests can run with alternate
// sentinels or dtypes.
type Config struct {
	MagicNumber float64
	Dtype       tensor.Dtype
}

func NewConfigFromDefaults() Config {
	return Config{
		MagicNumber: MagicNumber(),
		Dtype:       tensor.Float64,
	}
}

// Epsilon is the smallest representable increment above 1 for the configured
// dtype. It bounds probabilities away from {0, 1} before any log.
func (c Config) Epsilon() float64 {
	switch c.Dtype {
	case tensor.Float32:
		return float64(math32.Nextafter(1, 2) - 1)
	default:
		return math.Nextafter(1, 2) - 1
	}
}
