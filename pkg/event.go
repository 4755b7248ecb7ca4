package rawfit

import (
	"fmt"
	"math"
	"sort"
)

// RawSignalEvent is the collection of RawSignals recorded for one physical
// trigger. Signals keep their insertion order; IDs are unique within the
// event. Aggregate statistics are always computed from the current
// membership.
type RawSignalEvent struct {
	RunNumber uint32
	EventID   uint32
	Timestamp uint64

	signals []*RawSignal

	baseLineRange    [2]int
	hasBaseLineRange bool

	// Set by the worker pool when the event could not be built.
	Error bool
}

func NewRawSignalEvent() *RawSignalEvent {
	return &RawSignalEvent{}
}

func (e *RawSignalEvent) GetNumberOfSignals() int {
	return len(e.signals)
}

func (e *RawSignalEvent) GetSignal(index int) *RawSignal {
	return e.signals[index]
}

// GetSignalIndex returns the slice index of the signal with the given ID, or
// -1 when absent.
func (e *RawSignalEvent) GetSignalIndex(signalID int) int {
	for i, s := range e.signals {
		if s.ID == signalID {
			return i
		}
	}
	return -1
}

func (e *RawSignalEvent) GetSignalByID(signalID int) *RawSignal {
	index := e.GetSignalIndex(signalID)
	if index == -1 {
		return nil
	}
	return e.signals[index]
}

// SetBaseLineRange sets the bin range applied to signals as they are added.
func (e *RawSignalEvent) SetBaseLineRange(start, end int) {
	e.baseLineRange = [2]int{start, end}
	e.hasBaseLineRange = true
}

// AddSignal adds a signal to the event. A signal whose ID already exists is
// skipped with a warning, the event is left unchanged.
func (e *RawSignalEvent) AddSignal(s *RawSignal) {
	if e.GetSignalIndex(s.ID) != -1 {
		logError(fmt.Sprintf("signal ID %d already exists, signal not added to event %d", s.ID, e.EventID))
		return
	}
	if e.hasBaseLineRange {
		s.CalculateBaseLine(e.baseLineRange[0], e.baseLineRange[1])
	}
	e.signals = append(e.signals, s)
}

// RemoveSignalWithID removes the signal with the given ID. A missing ID is a
// no-op with a warning.
func (e *RawSignalEvent) RemoveSignalWithID(signalID int) {
	index := e.GetSignalIndex(signalID)
	if index == -1 {
		logError(fmt.Sprintf("signal ID %d does not exist, signal not removed from event %d", signalID, e.EventID))
		return
	}
	e.signals = append(e.signals[:index], e.signals[index+1:]...)
}

// AddChargeToSignal accumulates value into the given bin of the signal with
// the given ID, creating a zero-filled signal first when the ID is unknown.
func (e *RawSignalEvent) AddChargeToSignal(signalID int, bin int, value float64) {
	index := e.GetSignalIndex(signalID)
	if index == -1 {
		s := NewRawSignal(DefaultSignalBins)
		s.ID = signalID
		e.AddSignal(s)
		index = len(e.signals) - 1
	}
	e.signals[index].IncreaseBinBy(bin, value)
}

// GetIntegral returns the sum of every signal's integral.
func (e *RawSignalEvent) GetIntegral() float64 {
	var sum float64
	for _, s := range e.signals {
		sum += s.GetIntegral()
	}
	return sum
}

// GetThresholdIntegral depends on InitializePointsOverThreshold having been
// called on the signals.
func (e *RawSignalEvent) GetThresholdIntegral() float64 {
	var sum float64
	for _, s := range e.signals {
		sum += s.GetThresholdIntegral()
	}
	return sum
}

func (e *RawSignalEvent) GetSlopeIntegral() float64 {
	var sum float64
	for _, s := range e.signals {
		sum += s.GetSlopeIntegral()
	}
	return sum
}

// GetMaxSignal returns the signal with the largest integral, first
// occurrence on ties, or nil for an empty event.
func (e *RawSignalEvent) GetMaxSignal() *RawSignal {
	if len(e.signals) == 0 {
		return nil
	}
	best := e.signals[0]
	max := best.GetIntegral()
	for _, s := range e.signals[1:] {
		if integral := s.GetIntegral(); integral > max {
			max = integral
			best = s
		}
	}
	return best
}

// GetRiseSlope returns the mean slope integral over the signals with a
// positive threshold integral, or 0 when none qualify.
func (e *RawSignalEvent) GetRiseSlope() float64 {
	var sum float64
	n := 0
	for _, s := range e.signals {
		if s.GetThresholdIntegral() > 0 {
			sum += s.GetSlopeIntegral()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// GetRiseTime returns the mean rise time over the signals with a positive
// threshold integral, or 0 when none qualify.
func (e *RawSignalEvent) GetRiseTime() float64 {
	var sum float64
	n := 0
	for _, s := range e.signals {
		if s.GetThresholdIntegral() > 0 {
			sum += s.GetRiseTime()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (e *RawSignalEvent) GetTripleMaxIntegral() float64 {
	var sum float64
	for _, s := range e.signals {
		if s.GetThresholdIntegral() > 0 {
			sum += s.GetTripleMaxIntegral()
		}
	}
	return sum
}

func (e *RawSignalEvent) GetBaseLineAverage() float64 {
	if len(e.signals) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.signals {
		sum += s.GetBaseLine()
	}
	return sum / float64(len(e.signals))
}

func (e *RawSignalEvent) GetBaseLineSigmaAverage() float64 {
	if len(e.signals) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.signals {
		sum += s.GetBaseLineSigma()
	}
	return sum / float64(len(e.signals))
}

// GetLowestWidth returns the smallest half-maximum peak width among signals
// with a peak amplitude above minPeakAmplitude, or 0 when none qualify.
func (e *RawSignalEvent) GetLowestWidth(minPeakAmplitude float64) int {
	low := 0
	found := false
	for _, s := range e.signals {
		if s.GetMaxPeakValue() > minPeakAmplitude {
			w := s.GetMaxPeakWidth()
			if !found || w < low {
				low = w
				found = true
			}
		}
	}
	return low
}

// GetAverageWidth returns the mean half-maximum peak width among signals
// with a peak amplitude above minPeakAmplitude, or 0 when none qualify.
func (e *RawSignalEvent) GetAverageWidth(minPeakAmplitude float64) float64 {
	var sum float64
	n := 0
	for _, s := range e.signals {
		if s.GetMaxPeakValue() > minPeakAmplitude {
			sum += float64(s.GetMaxPeakWidth())
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// GetLowAverageWidth returns the mean of the nSignals smallest qualifying
// widths, or 0 when no signal qualifies.
func (e *RawSignalEvent) GetLowAverageWidth(nSignals int, minPeakAmplitude float64) float64 {
	var widths []float64
	for _, s := range e.signals {
		if s.GetMaxPeakValue() > minPeakAmplitude {
			widths = append(widths, float64(s.GetMaxPeakWidth()))
		}
	}
	if len(widths) == 0 || nSignals <= 0 {
		return 0
	}
	sort.Float64s(widths)
	nMax := nSignals
	if len(widths) < nMax {
		nMax = len(widths)
	}
	var sum float64
	for _, w := range widths[:nMax] {
		sum += w
	}
	return sum / float64(nSignals)
}

func (e *RawSignalEvent) GetMinValue() float64 {
	minV := math.Inf(1)
	for _, s := range e.signals {
		if v := s.GetMinValue(); v < minV {
			minV = v
		}
	}
	if math.IsInf(minV, 1) {
		return 0
	}
	return minV
}

func (e *RawSignalEvent) GetMaxValue() float64 {
	maxV := math.Inf(-1)
	for _, s := range e.signals {
		if v := s.GetMaxValue(); v > maxV {
			maxV = v
		}
	}
	if math.IsInf(maxV, -1) {
		return 0
	}
	return maxV
}

func (e *RawSignalEvent) GetMinTime() float64 {
	return 0
}

// GetMaxTime returns the number of samples per signal, taken from the first
// signal in the event.
func (e *RawSignalEvent) GetMaxTime() float64 {
	if len(e.signals) == 0 {
		return DefaultSignalBins
	}
	return float64(e.signals[0].GetNumberOfPoints())
}

// GoodSignalIDs computes the baseline and points over threshold of every
// signal and returns, in insertion order, the IDs with at least two points
// over threshold. This is the selection used to pick signals worth fitting
// or drawing.
func (e *RawSignalEvent) GoodSignalIDs(pointThreshold, signalThreshold float64, nOver int, blStart, blEnd int) []int {
	var ids []int
	for _, s := range e.signals {
		s.CalculateBaseLine(blStart, blEnd)
		s.InitializePointsOverThreshold(pointThreshold, signalThreshold, nOver)
		if len(s.GetPointsOverThreshold()) >= 2 {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// SumSignals returns a synthetic signal holding the binwise sum of all raw
// samples in the event. The returned signal has ID 0 and the bin count of
// the first signal.
func (e *RawSignalEvent) SumSignals() *RawSignal {
	nBins := DefaultSignalBins
	if len(e.signals) > 0 {
		nBins = e.signals[0].GetNumberOfPoints()
	}
	sum := NewRawSignal(0)
	for i := 0; i < nBins; i++ {
		var a float64
		for _, s := range e.signals {
			if i < s.GetNumberOfPoints() {
				a += s.GetRawData(i)
			}
		}
		sum.AddPoint(a)
	}
	return sum
}
