// Package anomaly labels each vessel in a tick's batch as an outlier or an
// inlier from its (speed, heading) features. The algorithm sits behind the
// Detector interface so it can be swapped without touching scoring or
// alerting.
package anomaly

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when a batch is too small to separate.
var ErrInsufficientData = errors.New("anomaly: insufficient data")

// Sample is one vessel's feature vector.
type Sample struct {
	Speed   float64
	Heading float64
}

// Label is the per-sample verdict.
type Label int

const (
	Inlier Label = iota
	Outlier
)

func (l Label) String() string {
	if l == Outlier {
		return "outlier"
	}
	return "inlier"
}

// Params controls a detection run. The same Params and batch always give
// the same labels.
type Params struct {
	// Contamination is the expected share of outliers, in (0, 0.5].
	Contamination float64
	// Seed drives all randomness in the detector.
	Seed uint64
	// MinSamples is the smallest batch that will be labelled.
	MinSamples int
}

// DefaultParams returns contamination 0.1, seed 42, at least 2 samples.
func DefaultParams() Params {
	return Params{Contamination: 0.1, Seed: 42, MinSamples: 2}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if math.IsNaN(p.Contamination) || p.Contamination <= 0 || p.Contamination > 0.5 {
		return fmt.Errorf("anomaly: contamination %v must be in (0, 0.5]", p.Contamination)
	}
	if p.MinSamples < 1 {
		return fmt.Errorf("anomaly: min samples %d must be >= 1", p.MinSamples)
	}
	return nil
}

// Detector fits a model over a batch and labels every sample in it.
//
// An empty batch yields no labels and no error. A batch smaller than
// Params.MinSamples yields ErrInsufficientData. Otherwise the result has
// one label per sample, in batch order.
type Detector interface {
	FitAndLabel(batch []Sample, p Params) ([]Label, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(batch []Sample, p Params) ([]Label, error)

// FitAndLabel implements Detector.
func (f DetectorFunc) FitAndLabel(batch []Sample, p Params) ([]Label, error) {
	return f(batch, p)
}

// sanitize copies the batch replacing missing (NaN/Inf) values with 0.
func sanitize(batch []Sample) [][2]float64 {
	out := make([][2]float64, len(batch))
	for i, s := range batch {
		out[i] = [2]float64{clean(s.Speed), clean(s.Heading)}
	}
	return out
}

func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
