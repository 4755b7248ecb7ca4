package main

import (
	"encoding/json"
	"fmt"
	"os"

	rawfit "github.com/rest-for-physics/rawfit_go/pkg"
)

func LoadConfiguration(filename string) (rawfit.Configuration, error) {
	var config rawfit.Configuration

	// Set default values
	config.MaxEvents = 1000000000
	config.Verbosity = 0
	config.NoDB = false
	config.Discard = true
	config.Skip = 0
	config.Host = "localhost"
	config.User = "restreader"
	config.Passwd = "readonly"
	config.DBName = "RESTDB"
	config.NumWorkers = 1
	config.WriteData = true
	config.AgetFit = false
	config.AddAllPulses = false

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config rawfit.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("AGET fit: %t", config.AgetFit), "config")
	logger.Info(fmt.Sprintf("Add all pulses: %t", config.AddAllPulses), "config")
	logger.Info(fmt.Sprintf("Baseline range: %s", config.BaseLineRange), "config")
	logger.Info(fmt.Sprintf("Points over threshold: %d", config.PointsOverThreshold), "config")
	logger.Info(fmt.Sprintf("Point threshold: %f", config.PointThreshold), "config")
	logger.Info(fmt.Sprintf("Signal threshold: %f", config.SignalThreshold), "config")
	logger.Info(fmt.Sprintf("Cut observable: %s", config.CutObservable), "config")
	logger.Info(fmt.Sprintf("Cut above: %f", config.CutAbove), "config")
}
