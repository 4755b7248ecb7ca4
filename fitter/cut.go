package main

import (
	rawfit "github.com/rest-for-physics/rawfit_go/pkg"
)

// ThresholdCut rejects an event when a scalar fit observable exceeds a
// threshold, e.g. cut_observable = "FitRatioSigmaMaxPeakMean" with
// cut_above = 0.1 to drop events with bad fits.
type ThresholdCut struct {
	Observable string
	Above      float64
	Sink       *rawfit.MemorySink
}

func (c *ThresholdCut) Evaluate(event *rawfit.RawSignalEvent) bool {
	value, ok := c.Sink.Scalar(c.Observable)
	if !ok {
		return false
	}
	return value > c.Above
}

// newCut builds the configured cut bound to the sink the observables are
// published to. Without cut_observable no cut is applied.
func newCut(config rawfit.Configuration, sink *rawfit.MemorySink) rawfit.CutEvaluator {
	if config.CutObservable == "" {
		return nil
	}
	return &ThresholdCut{
		Observable: config.CutObservable,
		Above:      config.CutAbove,
		Sink:       sink,
	}
}
