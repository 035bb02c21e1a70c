package telemetry

// DefaultThreshold splits acceleration magnitudes from tension ADC readings.
const DefaultThreshold = 50.0

// Classifier routes a reading by value range. Readings below Threshold are
// acceleration, everything at or above it is tension.
type Classifier struct {
	Threshold float64
}

// NewClassifier returns a classifier; a non-positive threshold selects DefaultThreshold.
func NewClassifier(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{Threshold: threshold}
}

func (c Classifier) Classify(value float64) Kind {
	if value < c.Threshold {
		return KindAcceleration
	}
	return KindTension
}

// Classify uses DefaultThreshold.
func Classify(value float64) Kind {
	return NewClassifier(DefaultThreshold).Classify(value)
}
