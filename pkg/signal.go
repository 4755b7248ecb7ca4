package rawfit

import "math"

// DefaultSignalBins is the number of samples per readout channel produced by
// the acquisition electronics.
const DefaultSignalBins = 512

// RawSignal holds the fixed-length amplitude samples of one readout channel
// for one trigger, together with the baseline and threshold quantities
// derived from them. Baseline and points-over-threshold are computed on
// demand and cached; asking for a different baseline range recomputes them.
type RawSignal struct {
	ID int

	data []float64

	baseLine      float64
	baseLineSigma float64
	baseLineRange [2]int
	baseLineDone  bool

	pointsOverThreshold []int
	thresholdDone       bool
}

// NewRawSignal creates a zero-filled signal of nBins samples. With nBins = 0
// the signal is empty and can be grown with AddPoint.
func NewRawSignal(nBins int) *RawSignal {
	return &RawSignal{data: make([]float64, nBins)}
}

func (s *RawSignal) GetNumberOfPoints() int {
	return len(s.data)
}

// AddPoint appends one sample. Used when building synthetic signals, e.g.
// the binwise sum of all pulses in an event.
func (s *RawSignal) AddPoint(value float64) {
	s.data = append(s.data, value)
	s.invalidate()
}

// IncreaseBinBy accumulates value into the given bin. Out-of-range bins are
// ignored with a warning.
func (s *RawSignal) IncreaseBinBy(bin int, value float64) {
	if bin < 0 || bin >= len(s.data) {
		logError("bin out of range, charge not added")
		return
	}
	s.data[bin] += value
	s.invalidate()
}

func (s *RawSignal) invalidate() {
	s.baseLineDone = false
	s.thresholdDone = false
	s.pointsOverThreshold = nil
}

// GetRawData returns the sample stored in bin i, without baseline correction.
func (s *RawSignal) GetRawData(i int) float64 {
	return s.data[i]
}

// GetData returns the baseline-subtracted sample in bin i.
func (s *RawSignal) GetData(i int) float64 {
	return s.data[i] - s.baseLine
}

// Samples returns a copy of the raw samples. External collaborators get a
// snapshot, never the internal buffer.
func (s *RawSignal) Samples() []float64 {
	out := make([]float64, len(s.data))
	copy(out, s.data)
	return out
}

// CalculateBaseLine computes the mean and standard deviation of the samples
// in [start, end). The range is clamped to the valid sample domain; an empty
// range yields zero baseline and sigma. Results are cached per range, a call
// with a different range recomputes and drops the threshold cache.
func (s *RawSignal) CalculateBaseLine(start, end int) {
	if s.baseLineDone && s.baseLineRange[0] == start && s.baseLineRange[1] == end {
		return
	}
	s.baseLineRange = [2]int{start, end}
	s.baseLineDone = true
	s.thresholdDone = false
	s.pointsOverThreshold = nil

	lo, hi := start, end
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.data) {
		hi = len(s.data)
	}
	if hi <= lo {
		s.baseLine = 0
		s.baseLineSigma = 0
		return
	}

	n := float64(hi - lo)
	var sum, sumSq float64
	for i := lo; i < hi; i++ {
		sum += s.data[i]
		sumSq += s.data[i] * s.data[i]
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	s.baseLine = mean
	s.baseLineSigma = math.Sqrt(variance)
}

func (s *RawSignal) GetBaseLine() float64 {
	return s.baseLine
}

func (s *RawSignal) GetBaseLineSigma() float64 {
	return s.baseLineSigma
}

// GetMaxPeakBin returns the bin holding the maximum baseline-subtracted
// sample, first occurrence on ties, or -1 for an empty signal.
func (s *RawSignal) GetMaxPeakBin() int {
	if len(s.data) == 0 {
		return -1
	}
	peak := 0
	for i := 1; i < len(s.data); i++ {
		if s.data[i] > s.data[peak] {
			peak = i
		}
	}
	return peak
}

// GetMaxPeakValue returns the baseline-subtracted amplitude at the peak bin,
// or 0 for an empty signal.
func (s *RawSignal) GetMaxPeakValue() float64 {
	peak := s.GetMaxPeakBin()
	if peak < 0 {
		return 0
	}
	return s.GetData(peak)
}

func (s *RawSignal) GetMinValue() float64 {
	minV := math.Inf(1)
	for _, v := range s.data {
		if v < minV {
			minV = v
		}
	}
	return minV
}

func (s *RawSignal) GetMaxValue() float64 {
	maxV := math.Inf(-1)
	for _, v := range s.data {
		if v > maxV {
			maxV = v
		}
	}
	return maxV
}

// InitializePointsOverThreshold identifies the bins belonging to pulses. A
// candidate point satisfies data-baseline > pointThreshold*baselineSigma.
// Consecutive candidates form a run; a run is kept when it has at least
// nOver points and the standard deviation of its amplitudes exceeds
// signalThreshold*baselineSigma. The baseline must have been computed first.
func (s *RawSignal) InitializePointsOverThreshold(pointThreshold, signalThreshold float64, nOver int) {
	s.pointsOverThreshold = nil
	s.thresholdDone = true

	threshold := pointThreshold * s.baseLineSigma
	n := len(s.data)
	for i := 0; i < n; i++ {
		if s.GetData(i) <= threshold {
			continue
		}
		start := i
		for i < n && s.GetData(i) > threshold {
			i++
		}
		length := i - start
		if length < nOver {
			continue
		}
		if runStdDev(s, start, i) > signalThreshold*s.baseLineSigma {
			for j := start; j < i; j++ {
				s.pointsOverThreshold = append(s.pointsOverThreshold, j)
			}
		}
	}
}

func runStdDev(s *RawSignal, start, end int) float64 {
	n := float64(end - start)
	var sum, sumSq float64
	for i := start; i < end; i++ {
		v := s.GetData(i)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// GetPointsOverThreshold returns the bins identified by the last call to
// InitializePointsOverThreshold.
func (s *RawSignal) GetPointsOverThreshold() []int {
	return s.pointsOverThreshold
}

// GetIntegral returns the sum of baseline-subtracted samples over the full
// signal.
func (s *RawSignal) GetIntegral() float64 {
	var sum float64
	for i := range s.data {
		sum += s.GetData(i)
	}
	return sum
}

// GetThresholdIntegral returns the sum of baseline-subtracted samples
// restricted to the points over threshold.
func (s *RawSignal) GetThresholdIntegral() float64 {
	var sum float64
	for _, i := range s.pointsOverThreshold {
		sum += s.GetData(i)
	}
	return sum
}

// GetSlopeIntegral returns the integral of the rising edge, from the first
// point over threshold up to the peak bin.
func (s *RawSignal) GetSlopeIntegral() float64 {
	if len(s.pointsOverThreshold) == 0 {
		return 0
	}
	peak := s.GetMaxPeakBin()
	var sum float64
	for i := s.pointsOverThreshold[0]; i <= peak && i < len(s.data); i++ {
		sum += s.GetData(i)
	}
	return sum
}

// GetRiseTime returns the number of bins between the first point over
// threshold and the peak bin, or 0 when no points were identified.
func (s *RawSignal) GetRiseTime() float64 {
	if len(s.pointsOverThreshold) == 0 {
		return 0
	}
	return float64(s.GetMaxPeakBin() - s.pointsOverThreshold[0])
}

// GetTripleMaxIntegral returns the sum of the peak sample and its two
// neighbours, baseline subtracted.
func (s *RawSignal) GetTripleMaxIntegral() float64 {
	peak := s.GetMaxPeakBin()
	if peak < 0 {
		return 0
	}
	sum := s.GetData(peak)
	if peak > 0 {
		sum += s.GetData(peak - 1)
	}
	if peak+1 < len(s.data) {
		sum += s.GetData(peak + 1)
	}
	return sum
}

// GetMaxPeakWidth returns the width of the main pulse at half of its
// baseline-subtracted amplitude.
func (s *RawSignal) GetMaxPeakWidth() int {
	peak := s.GetMaxPeakBin()
	if peak < 0 {
		return 0
	}
	half := s.GetData(peak) / 2
	left := peak
	for left > 0 && s.GetData(left) > half {
		left--
	}
	right := peak
	for right < len(s.data)-1 && s.GetData(right) > half {
		right++
	}
	return right - left
}
