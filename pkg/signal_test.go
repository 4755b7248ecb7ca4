package rawfit

import (
	"math"
	"testing"
)

func buildSignal(values []float64) *RawSignal {
	s := NewRawSignal(0)
	for _, v := range values {
		s.AddPoint(v)
	}
	return s
}

// trianglePulse is zero everywhere except bins 10..14 with amplitudes
// 1,2,3,2,1. With a zero baseline every sample is its own amplitude.
func trianglePulse() *RawSignal {
	values := make([]float64, 30)
	values[10], values[11], values[12], values[13], values[14] = 1, 2, 3, 2, 1
	s := buildSignal(values)
	s.CalculateBaseLine(0, 5)
	return s
}

func TestCalculateBaseLine(t *testing.T) {
	s := buildSignal([]float64{1, 2, 3, 4})
	s.CalculateBaseLine(0, 4)
	if got := s.GetBaseLine(); got != 2.5 {
		t.Errorf("baseline = %v, want 2.5", got)
	}
	want := math.Sqrt(1.25)
	if got := s.GetBaseLineSigma(); math.Abs(got-want) > 1e-12 {
		t.Errorf("baseline sigma = %v, want %v", got, want)
	}
}

func TestCalculateBaseLineClampsRange(t *testing.T) {
	s := buildSignal([]float64{2, 2, 2, 2})
	s.CalculateBaseLine(-5, 100)
	if got := s.GetBaseLine(); got != 2 {
		t.Errorf("baseline = %v, want 2", got)
	}
	if got := s.GetBaseLineSigma(); got != 0 {
		t.Errorf("baseline sigma = %v, want 0", got)
	}
}

func TestCalculateBaseLineEmptyRange(t *testing.T) {
	s := buildSignal([]float64{5, 5, 5})
	s.CalculateBaseLine(2, 2)
	if s.GetBaseLine() != 0 || s.GetBaseLineSigma() != 0 {
		t.Errorf("empty range: baseline = %v sigma = %v, want zeros",
			s.GetBaseLine(), s.GetBaseLineSigma())
	}
}

func TestBaseLineCachePerRange(t *testing.T) {
	s := buildSignal([]float64{1, 1, 3, 3})
	s.CalculateBaseLine(0, 2)
	if got := s.GetBaseLine(); got != 1 {
		t.Fatalf("baseline = %v, want 1", got)
	}
	s.CalculateBaseLine(2, 4)
	if got := s.GetBaseLine(); got != 3 {
		t.Errorf("baseline after range change = %v, want 3", got)
	}
}

func TestGetMaxPeakBin(t *testing.T) {
	s := buildSignal([]float64{0, 5, 2, 5, 0})
	if got := s.GetMaxPeakBin(); got != 1 {
		t.Errorf("peak bin = %d, want 1 (first occurrence on ties)", got)
	}

	empty := NewRawSignal(0)
	if got := empty.GetMaxPeakBin(); got != -1 {
		t.Errorf("peak bin of empty signal = %d, want -1", got)
	}
	if got := empty.GetMaxPeakValue(); got != 0 {
		t.Errorf("peak value of empty signal = %v, want 0", got)
	}
}

func TestPointsOverThresholdFlatSignal(t *testing.T) {
	values := make([]float64, 64)
	for i := range values {
		values[i] = 100
	}
	s := buildSignal(values)
	s.CalculateBaseLine(0, 64)
	s.InitializePointsOverThreshold(2, 3, 4)
	if got := len(s.GetPointsOverThreshold()); got != 0 {
		t.Errorf("flat signal has %d points over threshold, want 0", got)
	}
}

func TestPointsOverThreshold(t *testing.T) {
	values := make([]float64, 512)
	for i := range values {
		values[i] = 100
	}
	// Baseline region with mean 100 and sigma 1.
	for i := 20; i < 150; i += 2 {
		values[i] = 99
		values[i+1] = 101
	}
	// A ten-bin pulse well above 2 sigma.
	pulse := []float64{120, 140, 160, 180, 200, 180, 160, 140, 120, 110}
	for i, v := range pulse {
		values[300+i] = v
	}
	// A two-bin spike, too short to qualify with nOver = 5.
	values[400] = 150
	values[401] = 150

	s := buildSignal(values)
	s.CalculateBaseLine(20, 150)
	if got := s.GetBaseLine(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("baseline = %v, want 100", got)
	}
	if got := s.GetBaseLineSigma(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("baseline sigma = %v, want 1", got)
	}

	s.InitializePointsOverThreshold(2, 3, 5)
	points := s.GetPointsOverThreshold()
	if len(points) != len(pulse) {
		t.Fatalf("got %d points over threshold, want %d: %v", len(points), len(pulse), points)
	}
	for i, p := range points {
		if p != 300+i {
			t.Errorf("point %d = bin %d, want %d", i, p, 300+i)
		}
	}
}

func TestDerivedStats(t *testing.T) {
	s := trianglePulse()
	s.InitializePointsOverThreshold(0, 0, 3)

	if got := len(s.GetPointsOverThreshold()); got != 5 {
		t.Fatalf("points over threshold = %d, want 5", got)
	}
	if got := s.GetIntegral(); got != 9 {
		t.Errorf("integral = %v, want 9", got)
	}
	if got := s.GetThresholdIntegral(); got != 9 {
		t.Errorf("threshold integral = %v, want 9", got)
	}
	if got := s.GetSlopeIntegral(); got != 6 {
		t.Errorf("slope integral = %v, want 6", got)
	}
	if got := s.GetRiseTime(); got != 2 {
		t.Errorf("rise time = %v, want 2", got)
	}
	if got := s.GetTripleMaxIntegral(); got != 7 {
		t.Errorf("triple max integral = %v, want 7", got)
	}
	if got := s.GetMaxPeakWidth(); got != 4 {
		t.Errorf("max peak width = %v, want 4", got)
	}
}

func TestIncreaseBinByOutOfRange(t *testing.T) {
	s := NewRawSignal(4)
	s.IncreaseBinBy(10, 5) // ignored
	s.IncreaseBinBy(2, 5)
	if got := s.GetRawData(2); got != 5 {
		t.Errorf("bin 2 = %v, want 5", got)
	}
	if got := s.GetIntegral(); got != 5 {
		t.Errorf("integral = %v, want 5", got)
	}
}

func TestSamplesReturnsCopy(t *testing.T) {
	s := buildSignal([]float64{1, 2, 3})
	samples := s.Samples()
	samples[0] = 99
	if got := s.GetRawData(0); got != 1 {
		t.Errorf("internal buffer modified through Samples copy: bin 0 = %v", got)
	}
}
