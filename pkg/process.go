package rawfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Baseline bin range applied when no selection range is configured.
const (
	defaultBaseLineLo = 20
	defaultBaseLineHi = 150
)

// Default initial parameter values of the pulse fit.
const (
	defaultShapingTime    = 32.0
	defaultStartOffset    = 25.0
	defaultVariance       = 1.0
	defaultAmplitudeScale = 10.0
)

// ParamMode is the state of one pulse-model parameter.
type ParamMode int

const (
	// ParamFree lets the fit determine the parameter.
	ParamFree ParamMode = iota
	// ParamFixedValue fixes the parameter to Value.
	ParamFixedValue
	// ParamFixedFromPeak fixes the parameter to a value derived from the
	// signal's own peak: peakBin-Value for the start position,
	// peakAmplitude*Value for the amplitude.
	ParamFixedFromPeak
)

// ParamSetting configures one pulse-model parameter: its mode and, for free
// parameters, an optional initial value overriding the default.
type ParamSetting struct {
	Mode       ParamMode
	Value      float64
	Initial    float64
	HasInitial bool
}

// FitEventProcess fits the pulses of an event against the response model,
// or its gaussian convolution, and publishes per-signal and per-event fit
// observables. The cut decision is delegated to an external evaluator.
type FitEventProcess struct {
	agetFit      bool
	addAllPulses bool

	shaping       ParamSetting
	startPosition ParamSetting
	variance      ParamSetting
	amplitude     ParamSetting

	baseLineRange    [2]int
	hasBaseLineRange bool

	pointsOverThreshold int
	pointThreshold      float64
	signalThreshold     float64

	sink ObservableSink
	cut  CutEvaluator
}

// NewFitEventProcess builds a process from the configuration. A malformed
// baseline range string is rejected here, before any event is processed.
// The zero values of the fixed/initial options mean "not configured"; a
// genuine fixed value of zero is not representable, matching the original
// processing chain.
func NewFitEventProcess(cfg Configuration, sink ObservableSink, cut CutEvaluator) (*FitEventProcess, error) {
	p := &FitEventProcess{
		agetFit:             cfg.AgetFit,
		addAllPulses:        cfg.AddAllPulses,
		pointsOverThreshold: cfg.PointsOverThreshold,
		pointThreshold:      cfg.PointThreshold,
		signalThreshold:     cfg.SignalThreshold,
		sink:                sink,
		cut:                 cut,
	}
	if cfg.BaseLineRange != "" {
		r, err := ParseBinRange("baseline_range", cfg.BaseLineRange)
		if err != nil {
			return nil, err
		}
		p.baseLineRange = r
		p.hasBaseLineRange = true
	}
	p.shaping = paramSetting(cfg.ShapingFixed, cfg.ShapingInitialValue, ParamFixedValue)
	p.startPosition = paramSetting(cfg.StartPositionFixed, cfg.StartPositionInitialValue, ParamFixedFromPeak)
	p.variance = paramSetting(cfg.VarianceFixed, cfg.VarianceInitialValue, ParamFixedValue)
	p.amplitude = paramSetting(cfg.AmplitudeFixed, cfg.AmplitudeInitialValue, ParamFixedFromPeak)
	return p, nil
}

func paramSetting(fixed, initial float64, fixedMode ParamMode) ParamSetting {
	s := ParamSetting{Mode: ParamFree}
	if fixed != 0 {
		s.Mode = fixedMode
		s.Value = fixed
	}
	if initial != 0 {
		s.Initial = initial
		s.HasInitial = true
	}
	return s
}

// hasSelection reports whether the good-signal selection is configured. With
// every selection option at zero all signals are fitted.
func (p *FitEventProcess) hasSelection() bool {
	return p.pointThreshold != 0 || p.signalThreshold != 0 ||
		p.pointsOverThreshold != 0 || p.hasBaseLineRange
}

func (p *FitEventProcess) selectionBaseLine() [2]int {
	if p.hasBaseLineRange {
		return p.baseLineRange
	}
	return [2]int{defaultBaseLineLo, defaultBaseLineHi}
}

// signalFit is the outcome of one pulse fit, tagged with the signal ID.
type signalFit struct {
	id     int
	result FitResult
	ratio  float64
}

// ProcessEvent fits the event's pulses, publishes the observables and asks
// the cut evaluator for the accept/reject decision. A rejected event
// returns nil; everything else, including an event where no signal
// qualified or no fit converged, returns the event unchanged.
func (p *FitEventProcess) ProcessEvent(event *RawSignalEvent) *RawSignalEvent {
	logInfo(fmt.Sprintf("processing event %d with %d signals", event.EventID, event.GetNumberOfSignals()), "fitProcess")

	if p.addAllPulses {
		p.processSummedPulse(event)
	} else {
		p.processSignals(event)
	}

	if p.cut != nil && p.cut.Evaluate(event) {
		logInfo(fmt.Sprintf("event %d rejected by cut", event.EventID), "fitProcess")
		return nil
	}
	return event
}

func (p *FitEventProcess) model(nBins int) PulseModel {
	if p.agetFit {
		return ResponseModel{NBins: nBins}
	}
	return ConvolvedModel{NBins: nBins}
}

// processSignals fits each signal of the event independently. With the
// selection configured (convolution mode only) signals without at least two
// points over threshold are not fitted and carry -1 in every observable
// map.
func (p *FitEventProcess) processSignals(event *RawSignalEvent) {
	model := p.model(int(event.GetMaxTime()))
	convolved := !p.agetFit
	selection := convolved && p.hasSelection()
	blRange := p.selectionBaseLine()

	amplitudeFit := make(map[int]float64)
	shapingFit := make(map[int]float64)
	startPositionFit := make(map[int]float64)
	varianceFit := make(map[int]float64)
	ratioFit := make(map[int]float64)

	var fits []signalFit
	for i := 0; i < event.GetNumberOfSignals(); i++ {
		s := event.GetSignal(i)

		if selection {
			s.CalculateBaseLine(blRange[0], blRange[1])
			s.InitializePointsOverThreshold(p.pointThreshold, p.signalThreshold, p.pointsOverThreshold)
			if len(s.GetPointsOverThreshold()) < 2 {
				amplitudeFit[s.ID] = -1
				shapingFit[s.ID] = -1
				startPositionFit[s.ID] = -1
				varianceFit[s.ID] = -1
				ratioFit[s.ID] = -1
				continue
			}
		} else {
			s.CalculateBaseLine(defaultBaseLineLo, defaultBaseLineHi)
		}

		fit := p.fitSignal(s, model)
		fits = append(fits, fit)

		amplitudeFit[s.ID] = fit.result.Params[len(fit.result.Params)-1]
		shapingFit[s.ID] = fit.result.Params[0]
		startPositionFit[s.ID] = fit.result.Params[1]
		if convolved {
			varianceFit[s.ID] = fit.result.Params[2]
		}
		ratioFit[s.ID] = fit.ratio
	}

	p.sink.SetObservable("FitAmplitude_map", amplitudeFit)
	p.sink.SetObservable("FitShapingTime_map", shapingFit)
	p.sink.SetObservable("FitStartPosition_map", startPositionFit)
	if convolved {
		p.sink.SetObservable("FitVarianceGauss_map", varianceFit)
		maxVariance := 0.0
		for _, v := range varianceFit {
			if v > maxVariance {
				maxVariance = v
			}
		}
		p.sink.SetObservable("FitMaxVarianceGauss", maxVariance)
	}
	p.sink.SetObservable("FitRatioSigmaMaxPeak_map", ratioFit)

	p.publishEventAggregates(fits, convolved)
}

// publishEventAggregates computes the per-event observables from the fitted
// signals. Every division guards against an event with nothing fitted.
func (p *FitEventProcess) publishEventAggregates(fits []signalFit, convolved bool) {
	var sigmaMean, sigmaStdDev, chiSquareMean, ratioMean float64
	if len(fits) > 0 {
		sigmas := make([]float64, len(fits))
		chis := make([]float64, len(fits))
		ratios := make([]float64, len(fits))
		for i, f := range fits {
			sigmas[i] = f.result.ResidualRMS
			chis[i] = f.result.ChiSquare
			ratios[i] = f.ratio
		}
		sigmaMean = stat.Mean(sigmas, nil)
		sigmaStdDev = math.Sqrt(stat.MomentAbout(2, sigmas, sigmaMean, nil))
		chiSquareMean = stat.Mean(chis, nil)
		ratioMean = stat.Mean(ratios, nil)
	}
	p.sink.SetObservable("FitSigmaMean", sigmaMean)
	p.sink.SetObservable("FitSigmaStdDev", sigmaStdDev)
	p.sink.SetObservable("FitChiSquareMean", chiSquareMean)
	p.sink.SetObservable("FitRatioSigmaMaxPeakMean", ratioMean)

	if !convolved {
		return
	}
	// Weighted by the inverse uncertainty of the variance parameter.
	var values, weights []float64
	for _, f := range fits {
		if parErr := f.result.Errors[2]; parErr > 0 {
			values = append(values, f.result.Params[2])
			weights = append(weights, 1/parErr)
		}
	}
	var wMean, wStdDev float64
	if len(values) > 0 {
		wMean = stat.Mean(values, weights)
		var sumSq, sumW float64
		for i, v := range values {
			sumSq += v * v * weights[i]
			sumW += weights[i]
		}
		if d := sumSq/sumW - wMean*wMean; d > 0 {
			wStdDev = math.Sqrt(d)
		}
	}
	p.sink.SetObservable("FitVarianceGaussWMean", wMean)
	p.sink.SetObservable("FitVarianceGaussWStdDev", wStdDev)
}

// processSummedPulse sums all pulses binwise into one synthetic signal and
// fits the convolved model once. The single fit result is broadcast as the
// event's observables.
func (p *FitEventProcess) processSummedPulse(event *RawSignalEvent) {
	sum := event.SumSignals()
	blRange := p.selectionBaseLine()
	sum.CalculateBaseLine(blRange[0], blRange[1])

	model := ConvolvedModel{NBins: sum.GetNumberOfPoints()}
	fit := p.fitSignal(sum, model)

	p.sink.SetObservable("FitAmplitude_map", map[int]float64{sum.ID: fit.result.Params[3]})
	p.sink.SetObservable("FitShapingTime_map", map[int]float64{sum.ID: fit.result.Params[0]})
	p.sink.SetObservable("FitStartPosition_map", map[int]float64{sum.ID: fit.result.Params[1]})
	p.sink.SetObservable("FitVarianceGauss_map", map[int]float64{sum.ID: fit.result.Params[2]})
	p.sink.SetObservable("FitRatioSigmaMaxPeak_map", map[int]float64{sum.ID: fit.ratio})

	p.sink.SetObservable("FitMaxVarianceGauss", fit.result.Params[2])
	p.sink.SetObservable("FitSigmaMean", fit.result.ResidualRMS)
	p.sink.SetObservable("FitChiSquareMean", fit.result.ChiSquare)
	p.sink.SetObservable("FitRatioSigmaMaxPeakMean", fit.ratio)
	p.sink.SetObservable("FitVarianceGaussWMean", fit.result.Params[2])
	p.sink.SetObservable("FitVarianceGaussWStdDev", fit.result.Errors[2])
}

// fitSignal resolves the parameter configuration against the signal's own
// peak and runs the fit.
func (p *FitEventProcess) fitSignal(s *RawSignal, model PulseModel) signalFit {
	params := p.resolveParams(s, model)
	result := FitSignal(s, model, params)

	ratio := 0.0
	if peakValue := s.GetMaxPeakValue(); peakValue != 0 {
		ratio = result.ResidualRMS / peakValue
	}
	return signalFit{id: s.ID, result: result, ratio: ratio}
}

// resolveParams turns the per-parameter settings into the fixed values and
// initial guesses of one concrete fit. Peak-derived settings use the
// signal's peak bin and baseline-subtracted peak amplitude.
func (p *FitEventProcess) resolveParams(s *RawSignal, model PulseModel) []FitParam {
	peakBin := float64(s.GetMaxPeakBin())
	peakValue := s.GetMaxPeakValue()

	amplitudeScale := defaultAmplitudeScale
	if p.agetFit {
		amplitudeScale = 1.0
	}

	shaping := resolveParam(p.shaping, defaultShapingTime, nil)
	start := resolveParam(p.startPosition, peakBin-defaultStartOffset, func(v float64) float64 {
		return peakBin - v
	})
	amplitude := resolveParam(p.amplitude, peakValue*amplitudeScale, func(v float64) float64 {
		return peakValue * v
	})

	if model.NumParams() == 3 {
		return []FitParam{shaping, start, amplitude}
	}
	variance := resolveParam(p.variance, defaultVariance, nil)
	return []FitParam{shaping, start, variance, amplitude}
}

// resolveParam maps one ParamSetting to a FitParam. fromPeak transforms
// peak-derived fixed values and initial overrides; it is also applied to an
// explicit initial value, mirroring the original semantics where e.g.
// start_position_initial_value is an offset below the peak bin.
func resolveParam(setting ParamSetting, defaultInitial float64, fromPeak func(float64) float64) FitParam {
	switch setting.Mode {
	case ParamFixedValue:
		return FitParam{Fixed: true, Value: setting.Value}
	case ParamFixedFromPeak:
		return FitParam{Fixed: true, Value: fromPeak(setting.Value)}
	}
	if setting.HasInitial {
		if fromPeak != nil {
			return FitParam{Value: fromPeak(setting.Initial)}
		}
		return FitParam{Value: setting.Initial}
	}
	return FitParam{Value: defaultInitial}
}
