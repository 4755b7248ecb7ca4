package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	rawfit "github.com/rest-for-physics/rawfit_go/pkg"
)

var dbConn *sqlx.DB
var configuration rawfit.Configuration

var (
	logger         Logger
	VerbosityLevel int
	DiscardErrors  bool
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	rawfit.SetConfiguration(configuration)
	rawfit.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	DiscardErrors = configuration.Discard
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	// Reject malformed fit options before anything is opened.
	if _, err := rawfit.NewFitEventProcess(configuration, nil, nil); err != nil {
		logger.Error(err.Error())
		return
	}

	if !configuration.NoDB {
		dbConn, err = rawfit.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connecting to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer file.Close()

	evtCount, runNumber := rawfit.CountEvents(file)
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d", evtCount)
		logger.Info(message, "main")
	}

	if !configuration.NoDB {
		if err := rawfit.LoadDatabase(dbConn, runNumber); err != nil {
			message := fmt.Errorf("Error loading readout from database: %w", err)
			logger.Error(message.Error())
			return
		}
	}

	writer, err := rawfit.NewWriter(configuration.FileOut)
	if err != nil {
		message := fmt.Errorf("Error creating output file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer writer.Close()

	fileReader := NewFileReader(file)

	jobs := make(chan WorkerData, 100)
	results := make(chan WorkerResult, 100)

	for w := 1; w <= configuration.NumWorkers; w++ {
		go worker(w, jobs, results)
	}
	go sendEventsToWorkers(fileReader, jobs)

	evtsToRead := numberOfEventsToProcess(evtCount, configuration.Skip, configuration.MaxEvents)

	start := time.Now()
	processWorkerResults(results, writer, evtsToRead)
	duration := time.Since(start)
	message := fmt.Sprintf("Total time: %d ms, events written: %d", duration.Milliseconds(), writer.EvtCounter)
	logger.Info(message, "main")
}

func numberOfEventsToProcess(fileEvtCount int, skipEvts int, maxEvtCount int) int {
	evtsToRead := maxEvtCount
	if evtsToRead > fileEvtCount {
		evtsToRead = fileEvtCount
	}
	evtsToRead -= skipEvts
	if evtsToRead < 0 {
		evtsToRead = 0
	}
	return evtsToRead
}
