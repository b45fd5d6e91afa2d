// src/services/report_service.go
package services

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/lotlens/src/logger"
	"github.com/username/lotlens/src/models"
	"github.com/username/lotlens/src/parsers/metatrader"
	"github.com/username/lotlens/src/security/validation"
	"github.com/username/lotlens/src/simulation"
	"github.com/username/lotlens/src/stats"
)

const (
	ckDataset        = "ds_report_%s"
	ckAnalysis       = "ds_analysis_%s"
	ckLastSimulation = "sim_latest_%s"
)

type reportServiceImpl struct {
	parser       *metatrader.Parser
	sessionCache *cache.Cache
}

func NewReportService(parser *metatrader.Parser, sessionCache *cache.Cache) ReportService {
	return &reportServiceImpl{
		parser:       parser,
		sessionCache: sessionCache,
	}
}

func (s *reportServiceImpl) ProcessUpload(fileReader io.Reader) (*models.ReportAnalysis, error) {
	start := time.Now()
	report := s.parser.Parse(fileReader)
	report.Meta.Extra = sanitizeExtra(report.Meta.Extra)

	analysis := &models.ReportAnalysis{
		DatasetID:      uuid.New().String(),
		EventCount:     len(report.Events),
		InitialDeposit: report.InitialDeposit,
		FixedLotSize:   report.FixedLotSize,
		HasFixedLot:    report.HasFixedLot,
		Meta:           report.Meta,
		ComputedMeta:   stats.Compute(report.Events, report.InitialDeposit),
	}

	s.sessionCache.Set(fmt.Sprintf(ckDataset, analysis.DatasetID), report, cache.DefaultExpiration)
	s.sessionCache.Set(fmt.Sprintf(ckAnalysis, analysis.DatasetID), analysis, cache.DefaultExpiration)

	logger.L.Info("Report processed",
		"datasetID", analysis.DatasetID,
		"events", analysis.EventCount,
		"hasFixedLot", analysis.HasFixedLot,
		"duration", time.Since(start))
	return analysis, nil
}

func (s *reportServiceImpl) GetAnalysis(datasetID string) (*models.ReportAnalysis, error) {
	cached, found := s.sessionCache.Get(fmt.Sprintf(ckAnalysis, datasetID))
	if !found {
		return nil, ErrDatasetNotFound
	}
	return cached.(*models.ReportAnalysis), nil
}

func (s *reportServiceImpl) GetEvents(datasetID string) ([]models.DataPoint, error) {
	report, err := s.getDataset(datasetID)
	if err != nil {
		return nil, err
	}
	return report.Events, nil
}

func (s *reportServiceImpl) Simulate(datasetID string, lotSize float64) (*models.SimulationResult, error) {
	report, err := s.getDataset(datasetID)
	if err != nil {
		return nil, err
	}

	simulated, err := simulation.Resimulate(report.Events, report.InitialDeposit, lotSize)
	if err != nil {
		logger.L.Warn("Resimulation refused", "datasetID", datasetID, "lotSize", lotSize, "error", err)
		return nil, err
	}

	finalBalance := report.InitialDeposit
	if len(simulated) > 0 {
		finalBalance = simulated[len(simulated)-1].Balance
	}

	result := &models.SimulationResult{
		DatasetID:    datasetID,
		LotSize:      lotSize,
		Events:       simulated,
		FinalBalance: finalBalance,
		Meta:         stats.Compute(simulated, report.InitialDeposit),
		Comparison:   simulation.Compare(report.Meta.TotalNetProfit, simulation.NetProfit(simulated)),
	}

	// The latest result set is the session state the UI reads back; a new
	// run simply replaces it.
	s.sessionCache.Set(fmt.Sprintf(ckLastSimulation, datasetID), result, cache.DefaultExpiration)

	logger.L.Info("Simulation complete",
		"datasetID", datasetID,
		"lotSize", lotSize,
		"finalBalance", finalBalance)
	return result, nil
}

func (s *reportServiceImpl) GetLastSimulation(datasetID string) (*models.SimulationResult, error) {
	if _, err := s.getDataset(datasetID); err != nil {
		return nil, err
	}
	cached, found := s.sessionCache.Get(fmt.Sprintf(ckLastSimulation, datasetID))
	if !found {
		return nil, ErrNoSimulation
	}
	return cached.(*models.SimulationResult), nil
}

func (s *reportServiceImpl) getDataset(datasetID string) (models.Report, error) {
	cached, found := s.sessionCache.Get(fmt.Sprintf(ckDataset, datasetID))
	if !found {
		return models.Report{}, ErrDatasetNotFound
	}
	return cached.(models.Report), nil
}

// sanitizeExtra strips markup and unprintable characters from the
// open-ended metric entries before they are stored and echoed back to the
// UI. Known metric fields are already reduced to plain cell text by the
// parser; the Extra mapping is the one place arbitrary report text
// survives verbatim.
func sanitizeExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	clean := make(map[string]string, len(extra))
	for k, v := range extra {
		key := validation.SanitizeText(validation.StripUnprintable(k))
		clean[key] = validation.SanitizeText(validation.StripUnprintable(v))
	}
	return clean
}
