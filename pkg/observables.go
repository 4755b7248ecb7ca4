package rawfit

// ObservableSink receives the named quantities computed per event. Values
// are either float64 scalars or map[int]float64 keyed by signal ID.
type ObservableSink interface {
	SetObservable(name string, value any)
}

// CutEvaluator decides, once per event and after all observables were set,
// whether the event should be dropped from the pipeline.
type CutEvaluator interface {
	Evaluate(event *RawSignalEvent) bool
}

// MemorySink collects observables in memory. It is the sink used by the
// processing binary, where it backs both the results writer and the cut
// evaluation, and by the tests.
type MemorySink struct {
	scalars map[string]float64
	maps    map[string]map[int]float64
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		scalars: make(map[string]float64),
		maps:    make(map[string]map[int]float64),
	}
}

func (s *MemorySink) SetObservable(name string, value any) {
	switch v := value.(type) {
	case float64:
		s.scalars[name] = v
	case map[int]float64:
		s.maps[name] = v
	default:
		logError("unsupported observable type for " + name)
	}
}

func (s *MemorySink) Scalar(name string) (float64, bool) {
	v, ok := s.scalars[name]
	return v, ok
}

func (s *MemorySink) Map(name string) (map[int]float64, bool) {
	v, ok := s.maps[name]
	return v, ok
}

func (s *MemorySink) Reset() {
	s.scalars = make(map[string]float64)
	s.maps = make(map[string]map[int]float64)
}
