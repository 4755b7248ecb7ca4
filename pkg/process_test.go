package rawfit

import (
	"testing"
)

type rejectAllCut struct{}

func (rejectAllCut) Evaluate(event *RawSignalEvent) bool { return true }

func responseEvent(ids []int, shaping, start, amplitude float64) *RawSignalEvent {
	event := NewRawSignalEvent()
	event.EventID = 1
	for _, id := range ids {
		s := responseSignal(512, shaping, start, amplitude)
		s.ID = id
		event.AddSignal(s)
	}
	return event
}

func TestProcessEventSelectionSentinels(t *testing.T) {
	cfg := Configuration{
		BaseLineRange:       "(0,20)",
		PointsOverThreshold: 5,
		PointThreshold:      3,
		SignalThreshold:     2,
	}
	sink := NewMemorySink()
	process, err := NewFitEventProcess(cfg, sink, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A flat signal never qualifies for the fit.
	event := NewRawSignalEvent()
	event.AddSignal(signalWithID(4, make([]float64, 512)))

	if got := process.ProcessEvent(event); got != event {
		t.Fatal("event without qualifying signals must still be returned")
	}

	for _, name := range []string{
		"FitAmplitude_map",
		"FitShapingTime_map",
		"FitStartPosition_map",
		"FitVarianceGauss_map",
		"FitRatioSigmaMaxPeak_map",
	} {
		m, ok := sink.Map(name)
		if !ok {
			t.Errorf("observable %s not published", name)
			continue
		}
		if got := m[4]; got != -1 {
			t.Errorf("%s[4] = %v, want -1 sentinel", name, got)
		}
	}

	for _, name := range []string{
		"FitSigmaMean", "FitSigmaStdDev", "FitChiSquareMean",
		"FitRatioSigmaMaxPeakMean", "FitMaxVarianceGauss",
		"FitVarianceGaussWMean", "FitVarianceGaussWStdDev",
	} {
		v, ok := sink.Scalar(name)
		if !ok {
			t.Errorf("observable %s not published", name)
			continue
		}
		if v != 0 {
			t.Errorf("%s = %v, want 0 with nothing fitted", name, v)
		}
	}
}

func TestProcessEventAgetFit(t *testing.T) {
	cfg := Configuration{
		AgetFit: true,
		// The selection options are ignored in this mode.
		PointsOverThreshold: 5,
		PointThreshold:      3,
		SignalThreshold:     2,
	}
	sink := NewMemorySink()
	process, err := NewFitEventProcess(cfg, sink, nil)
	if err != nil {
		t.Fatal(err)
	}

	event := responseEvent([]int{11}, 30, 100, 1000)
	if got := process.ProcessEvent(event); got != event {
		t.Fatal("event not returned")
	}

	amplitudes, ok := sink.Map("FitAmplitude_map")
	if !ok {
		t.Fatal("FitAmplitude_map not published")
	}
	if got := amplitudes[11]; got == -1 || got == 0 {
		t.Errorf("amplitude[11] = %v, want a fitted value despite the selection options", got)
	}
	if _, ok := sink.Map("FitVarianceGauss_map"); ok {
		t.Error("FitVarianceGauss_map published for the response-only fit")
	}
	if _, ok := sink.Scalar("FitMaxVarianceGauss"); ok {
		t.Error("FitMaxVarianceGauss published for the response-only fit")
	}
	if _, ok := sink.Scalar("FitSigmaMean"); !ok {
		t.Error("FitSigmaMean not published")
	}
	if _, ok := sink.Scalar("FitVarianceGaussWMean"); ok {
		t.Error("FitVarianceGaussWMean published for the response-only fit")
	}
}

func TestProcessEventSummedPulse(t *testing.T) {
	cfg := Configuration{AddAllPulses: true}
	sink := NewMemorySink()
	process, err := NewFitEventProcess(cfg, sink, nil)
	if err != nil {
		t.Fatal(err)
	}

	event := responseEvent([]int{1, 2}, 30, 100, 500)

	// Binwise sum of two identical pulses doubles the peak amplitude.
	single := event.GetSignal(0).GetMaxValue()
	summed := event.SumSignals()
	if got := summed.GetMaxValue(); got != 2*single {
		t.Errorf("summed peak = %v, want %v", got, 2*single)
	}

	if got := process.ProcessEvent(event); got != event {
		t.Fatal("event not returned")
	}

	amplitudes, ok := sink.Map("FitAmplitude_map")
	if !ok {
		t.Fatal("FitAmplitude_map not published")
	}
	if len(amplitudes) != 1 {
		t.Fatalf("amplitude map has %d entries, want 1 for the summed pulse", len(amplitudes))
	}
	if _, ok := amplitudes[0]; !ok {
		t.Errorf("amplitude map keys = %v, want the summed signal ID 0", amplitudes)
	}
	if _, ok := sink.Scalar("FitMaxVarianceGauss"); !ok {
		t.Error("FitMaxVarianceGauss not published for the summed fit")
	}
}

func TestProcessEventCutRejects(t *testing.T) {
	cfg := Configuration{AgetFit: true}
	sink := NewMemorySink()
	process, err := NewFitEventProcess(cfg, sink, rejectAllCut{})
	if err != nil {
		t.Fatal(err)
	}

	event := responseEvent([]int{1}, 30, 100, 1000)
	if got := process.ProcessEvent(event); got != nil {
		t.Error("rejected event must return nil")
	}
}

func TestNewFitEventProcessBadRange(t *testing.T) {
	cfg := Configuration{BaseLineRange: "20-150"}
	if _, err := NewFitEventProcess(cfg, NewMemorySink(), nil); err == nil {
		t.Error("malformed baseline_range accepted")
	}
}

func TestResolveParamModes(t *testing.T) {
	cfg := Configuration{
		AgetFit:                   true,
		ShapingFixed:              40,
		StartPositionFixed:        25,
		AmplitudeInitialValue:     2,
		StartPositionInitialValue: 0,
	}
	sink := NewMemorySink()
	process, err := NewFitEventProcess(cfg, sink, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := responseSignal(512, 30, 100, 1000)
	peakBin := float64(s.GetMaxPeakBin())
	peakValue := s.GetMaxPeakValue()

	params := process.resolveParams(s, ResponseModel{NBins: 512})
	if len(params) != 3 {
		t.Fatalf("resolved %d params, want 3", len(params))
	}
	if !params[0].Fixed || params[0].Value != 40 {
		t.Errorf("shaping = %+v, want fixed 40", params[0])
	}
	if !params[1].Fixed || params[1].Value != peakBin-25 {
		t.Errorf("start = %+v, want fixed peakBin-25 = %v", params[1], peakBin-25)
	}
	if params[2].Fixed || params[2].Value != peakValue*2 {
		t.Errorf("amplitude = %+v, want free with initial peakValue*2 = %v", params[2], peakValue*2)
	}
}

func TestResolveParamDefaults(t *testing.T) {
	sink := NewMemorySink()
	process, err := NewFitEventProcess(Configuration{}, sink, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := responseSignal(512, 30, 100, 1000)
	peakBin := float64(s.GetMaxPeakBin())
	peakValue := s.GetMaxPeakValue()

	params := process.resolveParams(s, ConvolvedModel{NBins: 512})
	if len(params) != 4 {
		t.Fatalf("resolved %d params, want 4", len(params))
	}
	want := []FitParam{
		{Value: defaultShapingTime},
		{Value: peakBin - defaultStartOffset},
		{Value: defaultVariance},
		{Value: peakValue * defaultAmplitudeScale},
	}
	for i, w := range want {
		if params[i] != w {
			t.Errorf("param %d = %+v, want %+v", i, params[i], w)
		}
	}
}
