package rawfit

import (
	"fmt"
	"strconv"
	"strings"
)

type Configuration struct {
	MaxEvents  int    `json:"max_events"`
	Verbosity  int    `json:"verbosity"`
	FileIn     string `json:"file_in"`
	FileOut    string `json:"file_out"`
	NoDB       bool   `json:"no_db"`
	Discard    bool   `json:"discard"`
	Skip       int    `json:"skip"`
	Host       string `json:"host"`
	User       string `json:"user"`
	Passwd     string `json:"pass"`
	DBName     string `json:"dbname"`
	NumWorkers int    `json:"num_workers"`
	WriteData  bool   `json:"write_data"`

	// Fit options. Zero means "not set" for the fixed/initial values,
	// matching the behaviour of the original processing chain.
	AgetFit                   bool    `json:"aget_fit"`
	AddAllPulses              bool    `json:"add_all_pulses"`
	ShapingFixed              float64 `json:"shaping_fixed"`
	ShapingInitialValue       float64 `json:"shaping_initial_value"`
	StartPositionFixed        float64 `json:"start_position_fixed"`
	StartPositionInitialValue float64 `json:"start_position_initial_value"`
	VarianceFixed             float64 `json:"variance_fixed"`
	VarianceInitialValue      float64 `json:"variance_initial_value"`
	AmplitudeFixed            float64 `json:"amplitude_fixed"`
	AmplitudeInitialValue     float64 `json:"amplitude_initial_value"`

	// Good-signal selection. All zero disables the selection and every
	// signal in the event is fitted.
	BaseLineRange       string  `json:"baseline_range"`
	PointsOverThreshold int     `json:"points_over_threshold"`
	PointThreshold      float64 `json:"point_threshold"`
	SignalThreshold     float64 `json:"signal_threshold"`

	// Cut applied by the binary after observables are computed.
	CutObservable string  `json:"cut_observable"`
	CutAbove      float64 `json:"cut_above"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

// ParseBinRange parses a bin range given as "(first,last)", the format used
// in the processing metadata, e.g. baseline_range = "(20,150)".
func ParseBinRange(option string, value string) ([2]int, error) {
	var r [2]int
	s := strings.TrimSpace(value)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return r, &ErrRangeFormat{Option: option, Value: value}
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return r, &ErrRangeFormat{Option: option, Value: value}
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return r, &ErrRangeFormat{Option: option, Value: value}
		}
		r[i] = v
	}
	if r[0] < 0 || r[1] < r[0] {
		return r, &ErrRangeFormat{Option: option, Value: value}
	}
	return r, nil
}

func (c Configuration) String() string {
	return fmt.Sprintf("in=%s out=%s agetFit=%t addAllPulses=%t baseLineRange=%q workers=%d",
		c.FileIn, c.FileOut, c.AgetFit, c.AddAllPulses, c.BaseLineRange, c.NumWorkers)
}
