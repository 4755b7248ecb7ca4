package rawfit

import (
	hdf5 "github.com/jmbenlloch/go-hdf5"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EventDataHDF5 is one row of /Run/events.
type EventDataHDF5 struct {
	evt_number int32
	timestamp  uint64
}

// RunInfoHDF5 is the single row of /Run/runInfo.
type RunInfoHDF5 struct {
	run_number int32
}

// FitScalarsHDF5 is one row of /Fit/events: per-event aggregates.
type FitScalarsHDF5 struct {
	evt_number     int32
	sigma_mean     float64
	sigma_std      float64
	chi2_mean      float64
	ratio_mean     float64
	max_variance   float64
	variance_wmean float64
	variance_wstd  float64
}

// FitSignalHDF5 is one row of /Fit/signals: per-signal fit parameters.
type FitSignalHDF5 struct {
	evt_number     int32
	signal_id      int32
	amplitude      float64
	shaping_time   float64
	start_position float64
	variance_gauss float64
	ratio_sigma    float64
}

// Writer appends fitted events to an HDF5 results file.
type Writer struct {
	File         *hdf5.File
	Filename     string
	RunGroup     *hdf5.Group
	FitGroup     *hdf5.Group
	EventTable   *hdf5.Dataset
	RunInfoTable *hdf5.Dataset
	ScalarTable  *hdf5.Dataset
	SignalTable  *hdf5.Dataset
	FirstEvt     bool
	EvtCounter   int
}

func NewWriter(filename string) (*Writer, error) {
	writer := &Writer{Filename: filename}

	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return nil, err
	}
	if writer.FitGroup, err = createGroup(writer.File, "Fit"); err != nil {
		return nil, err
	}
	if writer.EventTable, err = createTable(writer.RunGroup, "events", EventDataHDF5{}); err != nil {
		return nil, err
	}
	if writer.RunInfoTable, err = createTable(writer.RunGroup, "runInfo", RunInfoHDF5{}); err != nil {
		return nil, err
	}
	if writer.ScalarTable, err = createTable(writer.FitGroup, "events", FitScalarsHDF5{}); err != nil {
		return nil, err
	}
	if writer.SignalTable, err = createTable(writer.FitGroup, "signals", FitSignalHDF5{}); err != nil {
		return nil, err
	}
	return writer, nil
}

func scalarOrZero(sink *MemorySink, name string) float64 {
	v, _ := sink.Scalar(name)
	return v
}

// sortFitSignals flattens the per-signal observable maps into rows
// ordered by signal ID.
// The array MUST be allocated at creation, if not, HDF5 will panic
// doing appends will not work
func sortFitSignals(eventID uint32, sink *MemorySink) []FitSignalHDF5 {
	amplitudes, ok := sink.Map("FitAmplitude_map")
	if !ok {
		return nil
	}
	shaping, _ := sink.Map("FitShapingTime_map")
	start, _ := sink.Map("FitStartPosition_map")
	variance, _ := sink.Map("FitVarianceGauss_map")
	ratio, _ := sink.Map("FitRatioSigmaMaxPeak_map")

	ids := maps.Keys(amplitudes)
	slices.Sort(ids)

	rows := make([]FitSignalHDF5, len(ids))
	for i, id := range ids {
		rows[i] = FitSignalHDF5{
			evt_number:     int32(eventID),
			signal_id:      int32(id),
			amplitude:      amplitudes[id],
			shaping_time:   shaping[id],
			start_position: start[id],
			variance_gauss: variance[id],
			ratio_sigma:    ratio[id],
		}
	}
	return rows
}

func (w *Writer) WriteEvent(event *RawSignalEvent, sink *MemorySink) {
	if !w.FirstEvt {
		writeEntryToTable(w.RunInfoTable, RunInfoHDF5{run_number: int32(event.RunNumber)})
		w.FirstEvt = true
	}

	writeEntryToTable(w.EventTable, EventDataHDF5{
		evt_number: int32(event.EventID),
		timestamp:  event.Timestamp,
	})

	writeEntryToTable(w.ScalarTable, FitScalarsHDF5{
		evt_number:     int32(event.EventID),
		sigma_mean:     scalarOrZero(sink, "FitSigmaMean"),
		sigma_std:      scalarOrZero(sink, "FitSigmaStdDev"),
		chi2_mean:      scalarOrZero(sink, "FitChiSquareMean"),
		ratio_mean:     scalarOrZero(sink, "FitRatioSigmaMaxPeakMean"),
		max_variance:   scalarOrZero(sink, "FitMaxVarianceGauss"),
		variance_wmean: scalarOrZero(sink, "FitVarianceGaussWMean"),
		variance_wstd:  scalarOrZero(sink, "FitVarianceGaussWStdDev"),
	})

	signalRows := sortFitSignals(event.EventID, sink)
	writeArrayToTable(w.SignalTable, &signalRows)

	w.EvtCounter++
}

func (w *Writer) Close() {
	w.EventTable.Close()
	w.RunInfoTable.Close()
	w.ScalarTable.Close()
	w.SignalTable.Close()
	w.RunGroup.Close()
	w.FitGroup.Close()
	w.File.Close()
}
