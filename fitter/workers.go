package main

import (
	"fmt"
	"io"
	"time"

	rawfit "github.com/rest-for-physics/rawfit_go/pkg"
)

type WorkerData struct {
	Data   []byte
	Header rawfit.RawEventHeader
}

// WorkerResult carries a fitted event together with the observables its
// worker published for it. Accepted is false when the cut fired.
type WorkerResult struct {
	Event    *rawfit.RawSignalEvent
	Sink     *rawfit.MemorySink
	Accepted bool
}

func worker(id int, jobs <-chan WorkerData, results chan<- WorkerResult) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Worker %d recovered from panic: %v\n", id, r)
			results <- WorkerResult{Event: &rawfit.RawSignalEvent{Error: true}}
		}
	}()

	for job := range jobs {
		if VerbosityLevel > 1 {
			logger.Info(fmt.Sprintf("Worker %d processing event %d", id, job.Header.EventID), "worker")
		}
		results <- processEvent(job.Data, job.Header)
	}
}

func processEvent(data []byte, header rawfit.RawEventHeader) (result WorkerResult) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("fit recovered from panic on event %d: %v", header.EventID, r)
			logger.Error(errMessage.Error())
			result = WorkerResult{Event: &rawfit.RawSignalEvent{Error: true}}
		}
	}()

	event, err := rawfit.DecodeEvent(data, header, rawfit.GetReadout())
	if err != nil {
		message := fmt.Errorf("error decoding event %d: %w", header.EventID, err)
		logger.Error(message.Error())
		return WorkerResult{Event: &rawfit.RawSignalEvent{Error: true}}
	}

	sink := rawfit.NewMemorySink()
	process, err := rawfit.NewFitEventProcess(configuration, sink, newCut(configuration, sink))
	if err != nil {
		// The options were validated at startup, this cannot happen.
		logger.Error(err.Error())
		return WorkerResult{Event: &rawfit.RawSignalEvent{Error: true}}
	}

	accepted := process.ProcessEvent(event)
	return WorkerResult{Event: event, Sink: sink, Accepted: accepted != nil}
}

func sendEventsToWorkers(fileReader *FileReader, jobs chan<- WorkerData) {
	for {
		header, eventData, err := fileReader.getNextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		jobs <- WorkerData{Data: eventData, Header: header}
	}
	close(jobs)
}

func processWorkerResults(results chan WorkerResult, writer *rawfit.Writer, evtsToRead int) {
	if evtsToRead == 0 {
		return
	}
	evtsProcessed := 0
	var totalTime int64 = 0
	for result := range results {
		if VerbosityLevel > 0 {
			message := fmt.Sprintf("Processed event %d of %d", evtsProcessed, evtsToRead)
			logger.Info(message, "main")
		}
		start := time.Now()
		if result.Event.Error && DiscardErrors {
			message := fmt.Sprintf("discarding event %d", result.Event.EventID)
			logger.Error(message)
		} else if configuration.WriteData && result.Accepted {
			writer.WriteEvent(result.Event, result.Sink)
		}

		evtsProcessed++
		if evtsProcessed >= evtsToRead {
			break
		}

		duration := time.Since(start)
		totalTime += duration.Milliseconds()
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Total time writing: %d ms", totalTime)
		logger.Info(message, "main")
	}
}
