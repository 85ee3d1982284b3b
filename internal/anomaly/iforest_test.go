package anomaly

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clusterWithOutlier() []Sample {
	batch := make([]Sample, 0, 10)
	for i := range 9 {
		batch = append(batch, Sample{Speed: 10 + 0.1*float64(i), Heading: 90 + float64(i)})
	}
	return append(batch, Sample{Speed: 25, Heading: 300})
}

func TestIsolationForest_EmptyBatch(t *testing.T) {
	t.Parallel()

	labels, err := NewIsolationForest().FitAndLabel(nil, DefaultParams())
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if labels != nil {
		t.Errorf("labels = %v, want nil", labels)
	}
}

func TestIsolationForest_InsufficientData(t *testing.T) {
	t.Parallel()

	_, err := NewIsolationForest().FitAndLabel([]Sample{{Speed: 10, Heading: 0}}, DefaultParams())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}

	p := DefaultParams()
	p.MinSamples = 5
	_, err = NewIsolationForest().FitAndLabel(clusterWithOutlier()[:4], p)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData below MinSamples", err)
	}
}

func TestIsolationForest_InvalidParams(t *testing.T) {
	t.Parallel()

	for _, c := range []float64{0, -0.1, 0.6, math.NaN()} {
		p := DefaultParams()
		p.Contamination = c
		if _, err := NewIsolationForest().FitAndLabel(clusterWithOutlier(), p); err == nil {
			t.Errorf("contamination %v: expected error", c)
		}
	}
}

func TestIsolationForest_FlagsObviousOutlier(t *testing.T) {
	t.Parallel()

	labels, err := NewIsolationForest().FitAndLabel(clusterWithOutlier(), DefaultParams())
	if err != nil {
		t.Fatalf("FitAndLabel: %v", err)
	}
	if len(labels) != 10 {
		t.Fatalf("len = %d, want 10", len(labels))
	}
	if labels[9] != Outlier {
		t.Errorf("labels[9] = %v, want outlier", labels[9])
	}
	outliers := 0
	for _, l := range labels {
		if l == Outlier {
			outliers++
		}
	}
	if outliers != 1 {
		t.Errorf("outliers = %d, want 1 at contamination 0.1", outliers)
	}
}

func TestIsolationForest_Deterministic(t *testing.T) {
	t.Parallel()

	batch := []Sample{
		{5, 10}, {7, 200}, {12, 45}, {19, 330}, {8, 100},
		{15, 15}, {6, 275}, {11, 180}, {9, 60}, {17, 250},
	}
	f := NewIsolationForest()
	a, err := f.FitAndLabel(batch, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.FitAndLabel(batch, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("labels differ across runs (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(f.Scores(batch, 42), f.Scores(batch, 42)); diff != "" {
		t.Errorf("scores differ across runs (-a +b):\n%s", diff)
	}
}

func TestIsolationForest_IdenticalSamplesAreInliers(t *testing.T) {
	t.Parallel()

	batch := make([]Sample, 10)
	for i := range batch {
		batch[i] = Sample{Speed: 5, Heading: 0}
	}
	labels, err := NewIsolationForest().FitAndLabel(batch, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for i, l := range labels {
		if l != Inlier {
			t.Errorf("labels[%d] = %v, want inlier", i, l)
		}
	}
}

func TestIsolationForest_MissingValuesTreatedAsZero(t *testing.T) {
	t.Parallel()

	f := NewIsolationForest()
	withNaN := []Sample{{math.NaN(), 10}, {5, math.Inf(1)}, {6, 20}}
	zeroed := []Sample{{0, 10}, {5, 0}, {6, 20}}
	if diff := cmp.Diff(f.Scores(zeroed, 7), f.Scores(withNaN, 7)); diff != "" {
		t.Errorf("NaN/Inf not treated as zero (-zeroed +nan):\n%s", diff)
	}
}

func TestIsolationForest_ScoresInRange(t *testing.T) {
	t.Parallel()

	for i, s := range NewIsolationForest().Scores(clusterWithOutlier(), 1) {
		if s <= 0 || s > 1 {
			t.Errorf("score[%d] = %v, want in (0,1]", i, s)
		}
	}
}

func TestAvgPathLength(t *testing.T) {
	t.Parallel()

	if avgPathLength(1) != 0 || avgPathLength(2) != 1 {
		t.Error("base cases wrong")
	}
	// c(256) is about 10.24 in the isolation forest literature
	if got := avgPathLength(256); math.Abs(got-10.24) > 0.01 {
		t.Errorf("avgPathLength(256) = %v, want ~10.24", got)
	}
}

func TestDetectorFunc(t *testing.T) {
	t.Parallel()

	var d Detector = DetectorFunc(func(batch []Sample, _ Params) ([]Label, error) {
		return make([]Label, len(batch)), nil
	})
	got, err := d.FitAndLabel([]Sample{{}, {}}, DefaultParams())
	if err != nil || len(got) != 2 {
		t.Errorf("got %v, %v", got, err)
	}
}
