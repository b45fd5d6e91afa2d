// src/services/interfaces.go
package services

import (
	"errors"
	"io"

	"github.com/username/lotlens/src/models"
)

// Define common service errors
var (
	ErrDatasetNotFound = errors.New("dataset not found or expired")
	ErrNoSimulation    = errors.New("no simulation has been run for this dataset")
)

// ReportService is the session-scoped facade over the parser, the
// statistics engine and the resimulation transform. Parsed datasets are
// held in memory only; there is no durable persistence.
type ReportService interface {
	// ProcessUpload parses one HTML report and stores the canonical dataset.
	ProcessUpload(fileReader io.Reader) (*models.ReportAnalysis, error)

	// GetAnalysis returns the stored analysis for a dataset.
	GetAnalysis(datasetID string) (*models.ReportAnalysis, error)

	// GetEvents returns the canonical event sequence for a dataset.
	GetEvents(datasetID string) ([]models.DataPoint, error)

	// Simulate reruns the dataset under the given lot size and stores the
	// result as the dataset's latest simulation.
	Simulate(datasetID string, lotSize float64) (*models.SimulationResult, error)

	// GetLastSimulation returns the most recent simulation for a dataset.
	GetLastSimulation(datasetID string) (*models.SimulationResult, error)
}
